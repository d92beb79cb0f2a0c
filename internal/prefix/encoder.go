// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import "github.com/gobzip/compress/internal/errors"

type encEntry struct {
	val uint32
	len uint32
}

// Encoder maps each symbol directly to its code value and bit-length.
type Encoder struct {
	table   []encEntry
	NumSyms uint32
}

// Init initializes Encoder according to the codes provided.
// The codes must have Val and Len populated.
func (pe *Encoder) Init(codes PrefixCodes) {
	if !codes.checkLengths() || !codes.checkPrefixes() {
		panicf(errors.Internal, "invalid prefix code for encoder")
	}

	var numSyms uint32
	for _, c := range codes {
		if c.Sym >= numSyms {
			numSyms = c.Sym + 1
		}
	}
	if cap(pe.table) < int(numSyms) {
		pe.table = make([]encEntry, numSyms)
	}
	pe.table = pe.table[:numSyms]
	for i := range pe.table {
		pe.table[i] = encEntry{}
	}
	for _, c := range codes {
		pe.table[c.Sym] = encEntry{val: c.Val, len: c.Len}
	}
	pe.NumSyms = numSyms
}

// Cost reports the number of bits needed to encode sym.
func (pe *Encoder) Cost(sym uint) uint {
	return uint(pe.table[sym].len)
}
