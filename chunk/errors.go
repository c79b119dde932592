package chunk

import "errors"

var (
	errOutOfRange     = errors.New("coordinate out of range")
	errBadSection      = errors.New("section entry is not a compound")
	errBadY            = errors.New("section Y is missing, not a byte, or outside 0..15")
	errBadPalette      = errors.New("section Palette is missing, not a list, or lacks a block in use")
	errBadBlockStates  = errors.New("section BlockStates is not a long array")
	errBadBiomeArray   = errors.New("BiomeArray is not an int array of length 64")
	errMissingLevel    = errors.New("root compound missing \"Level\"")
	errBadLevel        = errors.New("\"Level\" is not a compound")
	errBadSections     = errors.New("\"Sections\" is not a list")
	errBadCoordTag     = errors.New("xPos/zPos is not an Int")
)
