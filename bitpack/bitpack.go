// Package bitpack packs and unpacks fixed-width non-negative integers into
// 64-bit words using the legacy Anvil layout: values are stored LSB-first
// within each word and across words, and an integer is never split across a
// word boundary. A value that would straddle two words is instead pushed
// into the next word, leaving the high bits of the previous word zero. This
// is deliberately not the newer "paletted container" network-protocol
// layout, which does allow straddling; that is a different wire format
// outside this package's scope.
package bitpack

import (
	"math/bits"

	"github.com/go-mclib/anvil/anvilerr"
)

// Pack packs xs into 64-bit words using bitLength bits per value. bitLength
// must be in [1, 64]; every value in xs must fit in bitLength bits (higher
// bits are silently discarded, matching the writer's contract that callers
// only pass values known to fit).
func Pack(xs []uint64, bitLength int) ([]uint64, error) {
	if bitLength < 1 || bitLength > 64 {
		return nil, anvilerr.New("bitpack.Pack", anvilerr.InvalidArgument, errBitLength)
	}
	if len(xs) == 0 {
		return []uint64{}, nil
	}
	perWord := 64 / bitLength
	numWords := (len(xs) + perWord - 1) / perWord
	words := make([]uint64, numWords)
	mask := maskFor(bitLength)
	for i, x := range xs {
		word := i / perWord
		offset := (i % perWord) * bitLength
		words[word] |= (x & mask) << uint(offset)
	}
	return words, nil
}

// Unpack is the exact inverse of Pack: given the words produced for count
// values at bitLength bits each, it recovers the original values.
func Unpack(words []uint64, bitLength int, count int) ([]uint64, error) {
	if bitLength < 1 || bitLength > 64 {
		return nil, anvilerr.New("bitpack.Unpack", anvilerr.InvalidArgument, errBitLength)
	}
	if count == 0 {
		return []uint64{}, nil
	}
	perWord := 64 / bitLength
	mask := maskFor(bitLength)
	out := make([]uint64, count)
	for i := range out {
		word := i / perWord
		offset := (i % perWord) * bitLength
		if word >= len(words) {
			return nil, anvilerr.New("bitpack.Unpack", anvilerr.Malformed, errShortInput)
		}
		out[i] = (words[word] >> uint(offset)) & mask
	}
	return out, nil
}

func maskFor(bitLength int) uint64 {
	if bitLength == 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(bitLength)) - 1
}

// BitsFor returns the number of bits needed to address n distinct values:
// ceil(log2(n)), clamped to a minimum of 1 (a palette of size 1 still needs
// one bit per the spec's "pick b = 1 when palette size is 1" rule).
func BitsFor(n int) int {
	if n <= 1 {
		return 1
	}
	b := bits.Len(uint(n - 1))
	if b < 1 {
		b = 1
	}
	return b
}
