package nbt

import "errors"

var (
	errUnknownKind    = errors.New("unknown tag kind")
	errNegativeLength = errors.New("negative array/list length")
	errNestingTooDeep = errors.New("compound/list nesting exceeds depth cap")
	// ErrClosed is returned by a Writer method called after Close.
	ErrClosed = errors.New("nbt: writer closed")
)
