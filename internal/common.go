// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package internal is a collection of common compression algorithms.
//
// For performance reasons, these packages lack strong error checking and
// require that the caller to ensure that strict invariants are kept.
package internal

var (
	// IdentityLUT returns the input key itself.
	IdentityLUT = func() (lut [256]byte) {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}()

	// ReverseLUT returns the input key with its bits reversed.
	ReverseLUT = func() (lut [256]byte) {
		for i := range lut {
			b := uint8(i)
			b = (b&0xaa)>>1 | (b&0x55)<<1
			b = (b&0xcc)>>2 | (b&0x33)<<2
			b = (b&0xf0)>>4 | (b&0x0f)<<4
			lut[i] = b
		}
		return lut
	}()
)

// ReverseUint32 reverses all bits of v.
func ReverseUint32(v uint32) (x uint32) {
	x |= uint32(ReverseLUT[byte(v>>0)]) << 24
	x |= uint32(ReverseLUT[byte(v>>8)]) << 16
	x |= uint32(ReverseLUT[byte(v>>16)]) << 8
	x |= uint32(ReverseLUT[byte(v>>24)]) << 0
	return x
}

// ReverseUint64 reverses all bits of v.
func ReverseUint64(v uint64) (x uint64) {
	return uint64(ReverseUint32(uint32(v)))<<32 | uint64(ReverseUint32(uint32(v>>32)))
}

// ReverseUint64N reverses the lower n bits of v.
func ReverseUint64N(v uint64, n uint) (x uint64) {
	if n == 0 {
		return 0
	}
	return ReverseUint64(v << (64 - n))
}

// MoveToFront is a move-to-front coder over a small dense alphabet 0..N-1.
// The bzip2 selector list is the only user, so the alphabet never exceeds
// the number of prefix tables.
//
// The zero value is ready for use and starts from the identity ordering.
type MoveToFront struct {
	dict [256]uint8
	n    int // Number of entries currently in use by dict
}

func (m *MoveToFront) reset(vals []uint8) {
	var max int
	for _, v := range vals {
		if int(v) >= max {
			max = int(v) + 1
		}
	}
	copy(m.dict[:max], IdentityLUT[:max])
	m.n = max
}

// Encode replaces each value in vals with its position in the list,
// moving the value to the front afterwards.
func (m *MoveToFront) Encode(vals []uint8) {
	m.reset(vals)
	for i, val := range vals {
		var idx uint8
		for di, dv := range m.dict[:m.n] {
			if dv == val {
				idx = uint8(di)
				break
			}
		}
		vals[i] = idx
		copy(m.dict[1:], m.dict[:idx])
		m.dict[0] = val
	}
}

// Decode is the inverse of Encode. Every index must be below n, the size of
// the alphabet that the encoder used.
func (m *MoveToFront) Decode(idxs []uint8, n int) {
	copy(m.dict[:n], IdentityLUT[:n])
	m.n = n
	for i, idx := range idxs {
		val := m.dict[idx]
		idxs[i] = val
		copy(m.dict[1:], m.dict[:idx])
		m.dict[0] = val
	}
}
