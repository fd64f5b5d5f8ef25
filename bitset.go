// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package omni

import (
	"fmt"
	"math/bits"
)

// Bits is a growable bit set. It records which members of an ordered
// committee contributed to an aggregate attestation, indexed by the
// member's position in the canonical committee ordering.
type Bits []byte

// NewBitSet creates an empty bit set
func NewBitSet() Bits {
	return make(Bits, 0)
}

// Add sets the bit at index i, growing the set as needed
func (b *Bits) Add(i int) {
	if i < 0 {
		return
	}
	byteIndex := i / 8
	bitIndex := i % 8

	for len(*b) <= byteIndex {
		*b = append(*b, 0)
	}

	(*b)[byteIndex] |= 1 << uint(bitIndex) //nolint:gosec // bitIndex is always 0-7
}

// Contains returns true if the bit at index i is set
func (b Bits) Contains(i int) bool {
	if i < 0 {
		return false
	}
	byteIndex := i / 8
	if byteIndex >= len(b) {
		return false
	}
	bitIndex := i % 8
	return (b[byteIndex] & (1 << uint(bitIndex))) != 0 //nolint:gosec // bitIndex is always 0-7
}

// BitLen returns the number of bits the set can currently represent
func (b Bits) BitLen() int {
	return len(b) * 8
}

// Len returns the number of set bits
func (b Bits) Len() int {
	count := 0
	for _, bb := range b {
		count += bits.OnesCount8(bb)
	}
	return count
}

// Union returns the union of two bit sets
func (b Bits) Union(other Bits) Bits {
	maxLen := len(b)
	if len(other) > maxLen {
		maxLen = len(other)
	}

	result := make(Bits, maxLen)
	copy(result, b)
	for i := 0; i < len(other); i++ {
		result[i] |= other[i]
	}

	return result
}

// Equal returns true if two bit sets carry the same members, ignoring
// trailing zero bytes
func (b Bits) Equal(other Bits) bool {
	if len(b) != len(other) {
		b = b.trim()
		other = other.trim()
		if len(b) != len(other) {
			return false
		}
	}

	for i := range b {
		if b[i] != other[i] {
			return false
		}
	}
	return true
}

// trim removes trailing zero bytes
func (b Bits) trim() Bits {
	i := len(b) - 1
	for i >= 0 && b[i] == 0 {
		i--
	}
	return b[:i+1]
}

// String returns the set members as a sorted index list
func (b Bits) String() string {
	if len(b) == 0 {
		return "{}"
	}

	indices := make([]int, 0, b.Len())
	for i := 0; i < b.BitLen(); i++ {
		if b.Contains(i) {
			indices = append(indices, i)
		}
	}

	return fmt.Sprintf("%v", indices)
}
