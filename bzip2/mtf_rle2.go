// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import "github.com/gobzip/compress/internal/errors"

// moveToFront implements both the MTF and RLE stages of bzip2 at the same time.
// Any runs of zeros in the encoded output will be replaced by a sequence of
// RUNA and RUNB symbols that encode the length of the run. Every other index
// is emitted as idx+1, so the symbol alphabet is RUNA, RUNB, 1..len(dict)-1
// shifted up by one.
//
// The run length is a bijective base-2 numeral with RUNA as digit 1 and RUNB
// as digit 2, least-significant digit first. It can be converted using
// normal two's complement arithmetic. Assuming the following:
//	num: The value being encoded by RLE encoding.
//	run: A sequence of RUNA and RUNB symbols represented as a binary integer,
//	where RUNA is the 0 bit, RUNB is the 1 bit, and least-significant RUN
//	symbols are at the least-significant bit positions.
//	cnt: The number of RUNA and RUNB symbols.
//
// Then the RLE encoding used by bzip2 has this mathematical property:
//	num+1 == (1<<cnt) | run
type moveToFront struct {
	dictBuf [256]uint8
	dictLen int

	vals    []byte
	syms    []uint16
	blkSize int
}

const (
	symRUNA = 0
	symRUNB = 1

	maxRunDigits = 24 // Longest run numeral that fits in the largest block
)

// Init sets the alphabet, which must list every byte of the block in
// ascending order, and the maximum number of bytes Decode may produce.
func (mtf *moveToFront) Init(dict []uint8, blkSize int) {
	if len(dict) > len(mtf.dictBuf) {
		panicf(errors.Internal, "alphabet too large")
	}
	copy(mtf.dictBuf[:], dict)
	mtf.dictLen = len(dict)
	mtf.blkSize = blkSize
}

func (mtf *moveToFront) Encode(vals []byte) (syms []uint16) {
	dict := mtf.dictBuf[:mtf.dictLen]
	syms = mtf.syms[:0]

	if len(vals) > mtf.blkSize {
		panicf(errors.Internal, "exceeded block size")
	}

	var lastNum uint32
	for _, val := range vals {
		// Normal move-to-front transform.
		var idx uint8 // Reverse lookup idx in dict
		for di, dv := range dict {
			if dv == val {
				idx = uint8(di)
				break
			}
		}
		copy(dict[1:], dict[:idx])
		dict[0] = val

		// Run-length encoding augmentation.
		if idx == 0 {
			lastNum++
			continue
		}
		syms = appendRun(syms, lastNum)
		lastNum = 0
		syms = append(syms, uint16(idx)+1)
	}
	syms = appendRun(syms, lastNum)
	mtf.syms = syms
	return syms
}

// appendRun appends the RUNA/RUNB digits for a run of n zeros.
func appendRun(syms []uint16, n uint32) []uint16 {
	for rc := n + 1; rc != 1; rc >>= 1 {
		syms = append(syms, uint16(rc&1))
	}
	return syms
}

func (mtf *moveToFront) Decode(syms []uint16) (vals []byte) {
	dict := mtf.dictBuf[:mtf.dictLen]
	vals = mtf.vals[:0]

	var lastCnt uint
	var lastRun uint32
	flushRun := func() {
		if lastCnt == 0 {
			return
		}
		cnt := int((1<<lastCnt)|lastRun) - 1
		if len(vals)+cnt > mtf.blkSize || lastCnt > maxRunDigits {
			panicf(errors.Corrupted, "run-length decoding exceeded block size")
		}
		for i := cnt; i > 0; i-- {
			vals = append(vals, dict[0])
		}
		lastCnt, lastRun = 0, 0
	}
	for _, sym := range syms {
		// Run-length encoding augmentation.
		if sym <= symRUNB {
			if lastCnt >= maxRunDigits {
				panicf(errors.Corrupted, "run-length decoding exceeded block size")
			}
			lastRun |= uint32(sym) << lastCnt
			lastCnt++
			continue
		}
		flushRun()

		// Normal move-to-front transform.
		idx := int(sym) - 1
		if idx >= len(dict) {
			panicf(errors.Corrupted, "move-to-front index out of range: %d", idx)
		}
		val := dict[idx] // Forward lookup val in dict
		copy(dict[1:], dict[:idx])
		dict[0] = val

		if len(vals) >= mtf.blkSize {
			panicf(errors.Corrupted, "run-length decoding exceeded block size")
		}
		vals = append(vals, val)
	}
	flushRun()
	mtf.vals = vals
	return vals
}
