package block

import "errors"

var (
	errMissingName     = errors.New("block state compound missing string \"Name\"")
	errBadProperties   = errors.New("block state \"Properties\" is not a compound of strings")
	errNotReferenced   = errors.New("state is not currently referenced")
	errUnknownState    = errors.New("state is not present in palette")
	errBadPaletteEntry = errors.New("palette list entry is not a compound")
)
