// Package mutf8 implements Java's "modified UTF-8" string encoding, the
// variant used by java.io.DataInput/DataOutput and therefore by every NBT
// string on the wire: NUL is encoded as the two bytes 0xC0 0x80 instead of a
// single zero byte, and codepoints outside the Basic Multilingual Plane are
// encoded as a UTF-16 surrogate pair with each half serialized as its own
// 3-byte sequence, rather than as one 4-byte UTF-8 sequence.
//
// The package exposes both a pair of transform.Transformer implementations,
// the idiomatic golang.org/x/text shape for a custom text codec, and plain
// Encode/Decode convenience functions for the common case where the whole
// string is already in memory.
package mutf8

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

// ErrInvalid is returned when a byte sequence is not valid modified UTF-8.
var ErrInvalid = errors.New("mutf8: invalid encoding")

// Encode converts a Go string (UTF-8, possibly containing supplementary
// codepoints) into its modified-UTF-8 byte representation.
func Encode(s string) []byte {
	out := make([]byte, 0, len(s)+2)
	for _, r := range s {
		out = appendRune(out, r)
	}
	return out
}

func appendRune(out []byte, r rune) []byte {
	switch {
	case r == 0:
		return append(out, 0xC0, 0x80)
	case r < 0x80:
		return append(out, byte(r))
	case r < 0x800:
		return append(out,
			0xC0|byte(r>>6),
			0x80|byte(r&0x3F),
		)
	case r < 0x10000:
		return append(out,
			0xE0|byte(r>>12),
			0x80|byte((r>>6)&0x3F),
			0x80|byte(r&0x3F),
		)
	default:
		hi, lo := utf16.EncodeRune(r)
		out = appendSurrogate(out, hi)
		out = appendSurrogate(out, lo)
		return out
	}
}

func appendSurrogate(out []byte, unit rune) []byte {
	return append(out,
		0xE0|byte(unit>>12),
		0x80|byte((unit>>6)&0x3F),
		0x80|byte(unit&0x3F),
	)
}

// Decode converts modified-UTF-8 bytes back into a Go string.
func Decode(b []byte) (string, error) {
	var out []rune
	for i := 0; i < len(b); {
		r, n, err := decodeRune(b[i:])
		if err != nil {
			return "", err
		}
		out = append(out, r)
		i += n
	}
	return string(out), nil
}

// decodeRune decodes one logical character (possibly a surrogate pair
// spanning two 3-byte sequences) from the front of b.
func decodeRune(b []byte) (rune, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrInvalid
	}
	c0 := b[0]
	switch {
	case c0&0x80 == 0:
		return rune(c0), 1, nil
	case c0&0xE0 == 0xC0:
		if len(b) < 2 || b[1]&0xC0 != 0x80 {
			return 0, 0, ErrInvalid
		}
		r := rune(c0&0x1F)<<6 | rune(b[1]&0x3F)
		return r, 2, nil
	case c0&0xF0 == 0xE0:
		if len(b) < 3 || b[1]&0xC0 != 0x80 || b[2]&0xC0 != 0x80 {
			return 0, 0, ErrInvalid
		}
		r := rune(c0&0x0F)<<12 | rune(b[1]&0x3F)<<6 | rune(b[2]&0x3F)
		if utf16.IsSurrogate(r) {
			if len(b) < 6 {
				return 0, 0, ErrInvalid
			}
			lo, n, err := decodeRune(b[3:])
			if err != nil {
				return 0, 0, err
			}
			combined := utf16.DecodeRune(r, lo)
			if combined == utf8.RuneError {
				return 0, 0, ErrInvalid
			}
			return combined, 3 + n, nil
		}
		return r, 3, nil
	default:
		return 0, 0, ErrInvalid
	}
}

// NewEncoder returns a transform.Transformer that rewrites standard UTF-8
// bytes into modified UTF-8.
func NewEncoder() transform.Transformer { return &encoder{} }

// NewDecoder returns a transform.Transformer that rewrites modified UTF-8
// bytes into standard UTF-8.
func NewDecoder() transform.Transformer { return &decoder{} }

type encoder struct{}

func (encoder) Reset() {}

func (encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size <= 1 {
			if !atEOF && size == 0 {
				return nDst, nSrc, transform.ErrShortSrc
			}
			return nDst, nSrc, ErrInvalid
		}
		enc := appendRune(nil, r)
		if nDst+len(enc) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		copy(dst[nDst:], enc)
		nDst += len(enc)
		nSrc += size
	}
	return nDst, nSrc, nil
}

type decoder struct{}

func (decoder) Reset() {}

func (decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r, n, derr := decodeRune(src[nSrc:])
		if derr != nil {
			if !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			return nDst, nSrc, derr
		}
		if nSrc+n > len(src) {
			if !atEOF {
				return nDst, nSrc, transform.ErrShortSrc
			}
			return nDst, nSrc, ErrInvalid
		}
		size := utf8.RuneLen(r)
		if size < 0 {
			return nDst, nSrc, ErrInvalid
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		utf8.EncodeRune(dst[nDst:], r)
		nDst += size
		nSrc += n
	}
	return nDst, nSrc, nil
}
