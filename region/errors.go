package region

import "errors"

var (
	errBadLocation      = errors.New("location table entry out of range for file length")
	errBadCompression   = errors.New("unknown compression type byte")
	errNotLoaded        = errors.New("chunk slot has no data")
	errOutOfRegion      = errors.New("chunk coordinates are outside this region")
	errYOutOfRange      = errors.New("y coordinate outside 0..255")
	errTooLarge         = errors.New("serialized column exceeds 256 sectors (1 MiB)")
	errShortPayload     = errors.New("chunk payload shorter than its declared length")
)
