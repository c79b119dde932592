package bitpack

import "errors"

var (
	errBitLength  = errors.New("bit length must be in [1, 64]")
	errShortInput = errors.New("not enough words for requested count")
)
