// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import "github.com/gobzip/compress/internal/errors"

// Decoder decodes canonical prefix codes using only their bit-lengths.
//
// Codes of a given length occupy a contiguous range of values. For each
// length n, limit[n] holds the largest code value of that length and base[n]
// converts a code value of that length into an index of perm, which lists
// the symbols ordered by (length, symbol).
type Decoder struct {
	limit [valueBits + 2]int64
	base  [valueBits + 2]int64
	perm  []uint32

	MinBits uint // The minimum number of bits to safely make progress
	NumSyms uint32
	maxBits uint
}

// Init initializes Decoder according to the codes provided. The codes must
// be sorted by symbol and have the Len field populated. Trees with unused
// bit patterns are accepted; reading one of those patterns fails later.
// Over-subscribed trees are rejected.
func (pd *Decoder) Init(codes PrefixCodes) {
	*pd = Decoder{perm: pd.perm[:0]}
	if len(codes) == 0 {
		return
	}

	var bitCnts [valueBits + 1]int64
	pd.MinBits = valueBits
	for _, c := range codes {
		if c.Len == 0 || c.Len > valueBits {
			panicf(errors.InvalidCode, "invalid code length: %d", c.Len)
		}
		bitCnts[c.Len]++
		if uint(c.Len) < pd.MinBits {
			pd.MinBits = uint(c.Len)
		}
		if uint(c.Len) > pd.maxBits {
			pd.maxBits = uint(c.Len)
		}
	}
	if sum, _ := codes.kraftSum(); sum > 1<<valueBits {
		panicf(errors.InvalidCode, "over-subscribed prefix tree")
	}

	for n := pd.MinBits; n <= pd.maxBits; n++ {
		for _, c := range codes {
			if uint(c.Len) == n {
				pd.perm = append(pd.perm, c.Sym)
			}
		}
	}

	var start, offset int64
	for n := uint(1); n <= pd.maxBits; n++ {
		pd.base[n] = offset - start
		pd.limit[n] = start + bitCnts[n] - 1
		offset += bitCnts[n]
		start = (start + bitCnts[n]) << 1
	}
	pd.NumSyms = uint32(len(codes))
}

// lookup reports the symbol for the n-bit code v, if there is one.
func (pd *Decoder) lookup(v uint32, n uint) (uint32, bool) {
	if int64(v) <= pd.limit[n] {
		return pd.perm[int64(v)+pd.base[n]], true
	}
	return 0, false
}
