// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"github.com/gobzip/compress/internal/errors"
	"github.com/gobzip/compress/internal/prefix"
)

const (
	minNumTrees = 2
	maxNumTrees = 6

	maxPrefixBits = 20      // Maximum bit-width of a prefix code
	maxEncBits    = 17      // Maximum bit-width produced by the encoder
	maxNumSyms    = 256 + 2 // Maximum number of symbols in the alphabet
	numBlockSyms  = 50      // Number of symbols coded by each selector
	maxNumSels    = 1<<15 - 1
)

// encSel and decSel are used to handle the prefix encoding for tree selectors.
// The prefix encoding is as follows:
//
//	Code         TreeIdx
//	0        <=> 0
//	10       <=> 1
//	110      <=> 2
//	1110     <=> 3
//	11110    <=> 4
//	111110   <=> 5
//	111111   <=> 6	Invalid tree index, so should fail
var encSel, decSel = func() (e prefix.Encoder, d prefix.Decoder) {
	var selCodes [maxNumTrees + 1]prefix.PrefixCode
	for i := range selCodes {
		selCodes[i] = prefix.PrefixCode{Sym: uint32(i), Len: uint32(i + 1)}
	}
	selCodes[maxNumTrees] = prefix.PrefixCode{Sym: maxNumTrees, Len: maxNumTrees}
	if err := prefix.GeneratePrefixes(selCodes[:]); err != nil {
		panic(err)
	}
	e.Init(selCodes[:])
	d.Init(selCodes[:])
	return
}()

type prefixReader struct{ prefix.Reader }

// ReadPrefixCodes reads the delta-coded bit-lengths of every tree and
// initializes the matching decoders. Each tree starts from a 5-bit length,
// and each symbol adjusts the running length with "10" (+1) or "11" (-1)
// until a "0" terminates it.
//
// A length outside 1..20 or a set of lengths that over-subscribes the tree
// is an invalid block. Incomplete trees are allowed.
func (pr *prefixReader) ReadPrefixCodes(codes []prefix.PrefixCodes, trees []prefix.Decoder) {
	for i, pc := range codes {
		var kraft uint64
		clen := int(pr.ReadBits(5))
		for j := range pc {
			for {
				if clen < 1 || clen > maxPrefixBits {
					panicf(errors.InvalidBlock, "invalid prefix bit-length: %d", clen)
				}
				if pr.ReadBits(1) == 0 {
					break
				}
				clen -= int(pr.ReadBits(1)*2) - 1 // +1 or -1
			}
			pc[j] = prefix.PrefixCode{Sym: uint32(j), Len: uint32(clen)}
			kraft += 1 << uint(maxPrefixBits-clen)
		}
		if kraft > 1<<maxPrefixBits {
			panicf(errors.InvalidBlock, "over-subscribed prefix tree")
		}
		trees[i].Init(pc)
	}
}

type prefixWriter struct{ prefix.Writer }

func (pw *prefixWriter) WritePrefixCodes(codes []prefix.PrefixCodes, trees []prefix.Encoder) {
	for i, pc := range codes {
		if err := prefix.GeneratePrefixes(pc); err != nil {
			errors.Panic(err)
		}
		trees[i].Init(pc)

		clen := int(pc[0].Len)
		pw.WriteBits(uint(clen), 5)
		for _, c := range pc {
			for int(c.Len) < clen {
				pw.WriteBits(3, 2) // 11
				clen--
			}
			for int(c.Len) > clen {
				pw.WriteBits(2, 2) // 10
				clen++
			}
			pw.WriteBits(0, 1)
		}
	}
}
