// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"github.com/gobzip/compress/bzip2/internal/sais"
	"github.com/gobzip/compress/internal/errors"
)

// The Burrows-Wheeler Transform implementation used here is based on the
// Suffix Array by Induced Sorting (SA-IS) methodology by Nong, Zhang, and Chan.
//
// The SA-IS algorithm runs in O(n) and outputs a Suffix Array. There is a
// mathematical relationship between Suffix Arrays and the Burrows-Wheeler
// Transform, such that a SA can be converted to a BWT in O(n) time.
//
// References:
//	http://www.hpl.hp.com/techreports/Compaq-DEC/SRC-RR-124.pdf
//	https://github.com/cscott/compressjs/blob/master/lib/BWT.js
//	https://www.quora.com/How-can-I-optimize-burrows-wheeler-transform-and-inverse-transform-to-work-in-O-n-time-O-n-space
type burrowsWheelerTransform struct {
	buf  []byte
	sa   []int32
	perm []uint32
	fail []int32
}

// Encode replaces buf with the last column of its sorted rotations and
// returns the row holding the original string. Identical rotations are
// ordered by their starting index, so the origin pointer always refers to
// the first of its equal rows. An empty buf yields -1.
func (bwt *burrowsWheelerTransform) Encode(buf []byte) (ptr int) {
	if len(buf) == 0 {
		return -1
	}

	// Suffix arrays only order non-wrapped suffixes of a string, whereas the
	// BWT sorts rotations. Sorting the suffixes of the input concatenated to
	// itself orders the rotations by their first n symbols.
	n := len(buf)
	bwt.buf = append(append(bwt.buf[:0], buf...), buf...)
	if cap(bwt.sa) < 2*n {
		bwt.sa = make([]int32, 2*n)
	}
	t := bwt.buf[:2*n]
	sa := bwt.sa[:2*n]
	sais.ComputeSA(t, sa)

	// Since ComputeSA does not mutate the input, the second half of t still
	// holds a copy of the input, while the result is written to buf.
	var j int
	buf2 := t[n:]
	for _, i := range sa {
		if i := int(i); i < n {
			if i == 0 {
				ptr = j
				i = n
			}
			buf[j] = buf2[i-1]
			j++
		}
	}

	// Equal rotations come out in descending index order since the shorter
	// suffix of the doubled string sorts first. Such ties only exist when the
	// input is a repetition of its smallest period, in which case the
	// original string is the last of n/p equal rows.
	if p := bwt.period(buf2); n%p == 0 {
		ptr -= n/p - 1
	}
	return ptr
}

// period returns the length of the smallest period of b.
func (bwt *burrowsWheelerTransform) period(b []byte) int {
	if cap(bwt.fail) < len(b) {
		bwt.fail = make([]int32, len(b))
	}
	fail := bwt.fail[:len(b)]
	fail[0] = 0
	var k int32
	for i := 1; i < len(b); i++ {
		for k > 0 && b[i] != b[k] {
			k = fail[k-1]
		}
		if b[i] == b[k] {
			k++
		}
		fail[i] = k
	}
	return len(b) - int(fail[len(b)-1])
}

// Decode reverses Encode in place using the LF-mapping. The pointer must be
// less than len(buf).
func (bwt *burrowsWheelerTransform) Decode(buf []byte, ptr int) {
	if len(buf) == 0 {
		return
	}
	if ptr < 0 || ptr >= len(buf) {
		panicf(errors.InvalidBlock, "origin pointer (0x%06x) exceeds block size: %d", ptr, len(buf))
	}

	// Step 1: Compute cumm, where cumm[ch] reports the total number of
	// characters that precede the character ch in the alphabet.
	var cumm [256]int
	for _, v := range buf {
		cumm[v]++
	}
	var sum int
	for i, v := range cumm {
		cumm[i] = sum
		sum += v
	}

	// Step 2: Compute perm, where perm[ptr] contains a pointer to the next
	// byte in buf and the next pointer in perm itself.
	if cap(bwt.perm) < len(buf) {
		bwt.perm = make([]uint32, len(buf))
	}
	perm := bwt.perm[:len(buf)]
	for i, b := range buf {
		perm[cumm[b]] = uint32(i)
		cumm[b]++
	}

	// Step 3: Follow each pointer in perm to the next byte, starting with the
	// origin pointer.
	if cap(bwt.buf) < len(buf) {
		bwt.buf = make([]byte, len(buf))
	}
	buf2 := bwt.buf[:len(buf)]
	i := perm[ptr]
	for j := range buf2 {
		buf2[j] = buf[i]
		i = perm[i]
	}
	copy(buf, buf2)
}
