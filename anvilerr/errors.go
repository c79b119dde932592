// Package anvilerr classifies the failures this module's callers need to
// distinguish: a malformed wire format, an out-of-range coordinate, a
// missing chunk, and so on. It mirrors the shape of the standard library's
// *os.PathError / *net.OpError: a small struct carrying the failing
// operation, a classification, and the underlying cause.
package anvilerr

import "errors"

// Kind classifies why an operation failed.
type Kind int

const (
	// Malformed covers an unknown tag kind, a negative declared length, an
	// invalid compression byte, or a payload that ends mid-tag.
	Malformed Kind = iota
	// Encoding covers invalid modified UTF-8 in an NBT string.
	Encoding
	// OutOfRange covers chunk coordinates outside the owning region, a y
	// coordinate outside 0..255, or block coordinates outside a chunk.
	OutOfRange
	// NotPresent covers a read aimed at a chunk slot that has no data.
	NotPresent
	// Capacity covers a serialized chunk column that would need 256 or more
	// sectors (1 MiB) to store, which the location encoding cannot address.
	Capacity
	// InvalidArgument covers palette operations referencing an unknown
	// block state, or a bit-packing call with an illegal bit width.
	InvalidArgument
	// Io covers an underlying stream failure, bubbled up unchanged.
	Io
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed"
	case Encoding:
		return "encoding"
	case OutOfRange:
		return "out of range"
	case NotPresent:
		return "not present"
	case Capacity:
		return "capacity"
	case InvalidArgument:
		return "invalid argument"
	case Io:
		return "io"
	default:
		return "unknown"
	}
}

// Error wraps a cause with the operation that failed and its classification.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is one of the package sentinels for e's Kind,
// so callers can write errors.Is(err, anvilerr.ErrNotPresent) without
// needing to know about *Error at all.
func (e *Error) Is(target error) bool {
	sentinel, ok := sentinelFor(e.Kind)
	return ok && target == sentinel
}

// New builds an *Error for op/kind wrapping err.
func New(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Sentinels usable with errors.Is against any *Error of the matching Kind.
var (
	ErrMalformed       = errors.New("malformed")
	ErrEncoding        = errors.New("encoding")
	ErrOutOfRange      = errors.New("out of range")
	ErrNotPresent      = errors.New("not present")
	ErrCapacity        = errors.New("capacity")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrIo              = errors.New("io")
)

func sentinelFor(k Kind) (error, bool) {
	switch k {
	case Malformed:
		return ErrMalformed, true
	case Encoding:
		return ErrEncoding, true
	case OutOfRange:
		return ErrOutOfRange, true
	case NotPresent:
		return ErrNotPresent, true
	case Capacity:
		return ErrCapacity, true
	case InvalidArgument:
		return ErrInvalidArgument, true
	case Io:
		return ErrIo, true
	default:
		return nil, false
	}
}
