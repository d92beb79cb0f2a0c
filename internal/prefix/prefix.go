// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package prefix implements bit readers and writers that use prefix encoding.
//
// Bits are packed starting with the most-significant bit of each byte and
// prefix codes are canonical, where shorter codes precede longer codes and
// codes of the same length are ordered by symbol value.
package prefix

import (
	"fmt"
	"sort"

	"github.com/gobzip/compress/internal/errors"
)

func errorf(c int, f string, a ...interface{}) error {
	return errors.Error{Code: c, Pkg: "prefix", Msg: fmt.Sprintf(f, a...)}
}

func panicf(c int, f string, a ...interface{}) {
	errors.Panic(errorf(c, f, a...))
}

const (
	valueBits = 32 // Maximum length of any prefix code
	maxSyms   = 1 << 16
)

// PrefixCode is a representation of a prefix code, which is conceptually a
// mapping from some arbitrary symbol to some bit-string.
//
// The Sym and Cnt fields are typically provided by the user,
// while the Len and Val fields are generated by this package.
type PrefixCode struct {
	Sym uint32 // The symbol being mapped
	Cnt uint32 // The number times this symbol is used
	Len uint32 // Bit-length of the prefix code
	Val uint32 // Value of the prefix code (MSB-first)
}
type PrefixCodes []PrefixCode

type prefixCodesBySymbol []PrefixCode

func (c prefixCodesBySymbol) Len() int           { return len(c) }
func (c prefixCodesBySymbol) Less(i, j int) bool { return c[i].Sym < c[j].Sym }
func (c prefixCodesBySymbol) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }

type prefixCodesByCount []PrefixCode

func (c prefixCodesByCount) Len() int { return len(c) }
func (c prefixCodesByCount) Less(i, j int) bool {
	return c[i].Cnt < c[j].Cnt || (c[i].Cnt == c[j].Cnt && c[i].Sym < c[j].Sym)
}
func (c prefixCodesByCount) Swap(i, j int) { c[i], c[j] = c[j], c[i] }

func (pc PrefixCodes) SortBySymbol() { sort.Sort(prefixCodesBySymbol(pc)) }
func (pc PrefixCodes) SortByCount()  { sort.Sort(prefixCodesByCount(pc)) }

// Length computes the total bit-length using the Len and Cnt fields.
func (pc PrefixCodes) Length() (nb uint) {
	for _, c := range pc {
		nb += uint(c.Len * c.Cnt)
	}
	return nb
}

// kraftSum reports the Kraft sum of the code lengths scaled by 1<<valueBits.
// A complete code sums to exactly 1<<valueBits.
func (pc PrefixCodes) kraftSum() (sum uint64, ok bool) {
	for _, c := range pc {
		if c.Len == 0 || c.Len > valueBits {
			return 0, false
		}
		sum += 1 << (valueBits - c.Len)
	}
	return sum, true
}

// checkLengths reports whether the codes form a complete prefix tree.
// A lone symbol of length one is also accepted.
func (pc PrefixCodes) checkLengths() bool {
	if len(pc) == 0 {
		return true
	}
	if len(pc) == 1 {
		return pc[0].Len == 1
	}
	sum, ok := pc.kraftSum()
	return ok && sum == 1<<valueBits
}

// checkPrefixes reports whether all codes have non-overlapping prefixes.
func (pc PrefixCodes) checkPrefixes() bool {
	for i, c1 := range pc {
		for j, c2 := range pc {
			if i == j || c1.Len > c2.Len {
				continue
			}
			if c1.Val == c2.Val>>(c2.Len-c1.Len) {
				return false
			}
		}
	}
	return true
}

// checkCanonical reports whether all codes are canonical.
// That is, they have the following properties:
//
//	1. All codes of a given bit-length are consecutive values.
//	2. Shorter codes lexicographically precede longer codes.
//
// The codes must have unique symbols and be sorted by the symbol.
// The Len and Val fields in each code must be populated.
func (pc PrefixCodes) checkCanonical() bool {
	// Rule 1.
	var vals [valueBits + 1]PrefixCode
	for _, c := range pc {
		if c.Len > 0 {
			if vals[c.Len].Cnt > 0 {
				if vals[c.Len].Val+1 != c.Val {
					return false
				}
			}
			vals[c.Len].Val = c.Val
			vals[c.Len].Cnt++
		}
	}

	// Rule 2.
	var last PrefixCode
	for _, v := range vals {
		if v.Cnt > 0 {
			curVal := v.Val - v.Cnt + 1
			if last.Cnt != 0 && last.Val >= curVal>>(v.Len-last.Len) {
				return false
			}
			last = v
		}
	}
	return true
}

// GenerateLengths assigns non-zero bit-lengths to all codes. Codes with high
// frequency counts will be assigned shorter codes to reduce bit entropy.
// This function is used primarily by compressors.
//
// The input codes must have the Cnt field populated and be sorted by count.
// A count of 0 is weighted as 1, so every code is assigned a non-zero
// bit-length.
//
// The result will have the Len field populated. The algorithm used guarantees
// that Len <= maxBits and that it is a complete prefix tree. The resulting
// codes will remain sorted by count.
//
// Trees deeper than maxBits are rebuilt after halving every count, repeating
// until the tree fits.
func GenerateLengths(codes PrefixCodes, maxBits uint) error {
	if len(codes) <= 1 {
		if len(codes) == 1 {
			codes[0].Len = 1
		}
		return nil
	}
	if maxBits > valueBits || len(codes) > 1<<maxBits || len(codes) > maxSyms {
		return errorf(errors.Invalid, "cannot fit %d codes in %d bits", len(codes), maxBits)
	}

	// Verify that the codes are in ascending order by count.
	weights := make([]uint64, 2*len(codes)-1)
	for i, c := range codes {
		if i > 0 && c.Cnt < codes[i-1].Cnt {
			return errorf(errors.Invalid, "non-monotonically increasing symbol counts")
		}
		weights[i] = max(1, uint64(c.Cnt))
	}

	parent := make([]int32, len(weights))
	depth := make([]uint32, len(weights))
	for {
		maxDepth := buildTree(weights, parent, depth, len(codes))
		if maxDepth <= uint32(maxBits) {
			break
		}
		for i := range codes {
			weights[i] = 1 + weights[i]/2
		}
	}

	// Deeper leaves have smaller weights, so the lengths come out in
	// descending order.
	for i := range codes {
		codes[i].Len = depth[i]
	}
	return nil
}

// buildTree merges the n leaves at the head of weights with the two-queue
// method and records each node's depth. Leaves must be in ascending order and
// the internal nodes occupy weights[n:] in the order they are created.
func buildTree(weights []uint64, parent []int32, depth []uint32, n int) (maxDepth uint32) {
	leaf, node, next := 0, n, n
	pick := func() int {
		if leaf < n && (node >= next || weights[leaf] <= weights[node]) {
			leaf++
			return leaf - 1
		}
		node++
		return node - 1
	}
	for ; next < len(weights); next++ {
		a, b := pick(), pick()
		weights[next] = weights[a] + weights[b]
		parent[a], parent[b] = int32(next), int32(next)
	}

	root := len(weights) - 1
	depth[root] = 0
	for i := root - 1; i >= 0; i-- {
		depth[i] = depth[parent[i]] + 1
	}
	for _, d := range depth[:n] {
		if d > maxDepth {
			maxDepth = d
		}
	}
	return maxDepth
}

// GeneratePrefixes assigns a prefix value to all codes according to the
// bit-lengths. This function is used by both compressors and decompressors.
//
// The input codes must have the Sym and Len fields populated and be
// sorted by symbol. The bit-lengths of each code must be properly allocated,
// such that it forms a complete tree.
//
// The result will have the Val field populated and will produce a canonical
// prefix tree. The resulting codes will remain sorted by symbol.
func GeneratePrefixes(codes PrefixCodes) error {
	if len(codes) == 0 {
		return nil
	}
	if !codes.checkLengths() {
		return errorf(errors.Invalid, "incomplete prefix tree")
	}

	// Compute basic statistics on the symbols.
	var bitCnts [valueBits + 1]uint
	for i, c := range codes {
		if i > 0 && c.Sym <= codes[i-1].Sym {
			return errorf(errors.Invalid, "non-unique or non-monotonically increasing symbols")
		}
		bitCnts[c.Len]++
	}

	// Compute the starting code for each bit-length.
	var nextCodes [valueBits + 1]uint32
	var code uint32
	for i := 1; i < len(nextCodes); i++ {
		code = (code + uint32(bitCnts[i-1])) << 1
		nextCodes[i] = code
	}

	for i, c := range codes {
		codes[i].Val = nextCodes[c.Len]
		nextCodes[c.Len]++
	}
	return nil
}
