// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import (
	"bufio"
	"io"

	"github.com/gobzip/compress/internal/errors"
)

// Reader implements a prefix decoder on top of an io.ByteReader. Bits are
// consumed starting with the most-significant bit of each byte. If the
// underlying io.Reader does not implement io.ByteReader, then it is wrapped
// with a bufio.Reader, which may read more bytes than are needed.
//
// All read failures are raised with errors.Panic and must be recovered with
// errors.Recover by the caller.
type Reader struct {
	Offset int64 // Number of bytes read from the underlying io.Reader

	rd      io.ByteReader
	bufBits uint64 // Buffer to hold some bits; the newest bit is the LSB
	numBits uint   // Number of valid bits in bufBits
}

// Init initializes the bit Reader to read from r.
func (pr *Reader) Init(r io.Reader) {
	*pr = Reader{rd: pr.rd}
	if rr, ok := r.(io.ByteReader); ok {
		pr.rd = rr
	} else if br, ok := pr.rd.(*bufio.Reader); ok {
		br.Reset(r)
	} else {
		pr.rd = bufio.NewReader(r)
	}
}

// BitsRead reports the total number of bits consumed by the Reader.
func (pr *Reader) BitsRead() int64 {
	return 8*pr.Offset - int64(pr.numBits)
}

// PullBits ensures that at least nb bits exist in the bit buffer.
// It reports false if the underlying reader hits io.EOF before that.
// Any other read error is raised as a panic.
func (pr *Reader) PullBits(nb uint) bool {
	for pr.numBits < nb {
		c, err := pr.rd.ReadByte()
		if err != nil {
			if err == io.EOF {
				return false
			}
			errors.Panic(err)
		}
		pr.bufBits = pr.bufBits<<8 | uint64(c)
		pr.numBits += 8
		pr.Offset++
	}
	return true
}

// ReadBits reads nb bits in MSB-first order. The value nb must be at most 32.
func (pr *Reader) ReadBits(nb uint) uint {
	if !pr.PullBits(nb) {
		errors.Panic(errors.ErrTruncated)
	}
	pr.numBits -= nb
	return uint(pr.bufBits>>pr.numBits) & (1<<nb - 1)
}

// ReadBitsBE64 reads nb bits, which may be up to 64.
func (pr *Reader) ReadBitsBE64(nb uint) uint64 {
	if nb > 32 {
		hi := uint64(pr.ReadBits(nb - 32))
		return hi<<32 | uint64(pr.ReadBits(32))
	}
	return uint64(pr.ReadBits(nb))
}

// ReadPads reads 0-7 bits from the bit buffer to achieve byte-alignment.
func (pr *Reader) ReadPads() uint {
	nb := pr.numBits % 8
	pr.numBits -= nb
	return uint(pr.bufBits>>pr.numBits) & (1<<nb - 1)
}

// ReadSymbol reads the next prefix symbol using the provided Decoder.
// A bit pattern that matches no code is raised as errors.InvalidCode.
func (pr *Reader) ReadSymbol(pd *Decoder) uint {
	if pd.NumSyms == 0 {
		panicf(errors.Internal, "decoder is not initialized")
	}

	// Decoding near the end of the stream must not require more bits than
	// the code actually uses, so missing bits are only fatal when needed.
	pr.PullBits(pd.maxBits)
	nb := pd.MinBits
	if pr.numBits < nb {
		errors.Panic(errors.ErrTruncated)
	}
	v := uint32(pr.bufBits>>(pr.numBits-nb)) & (1<<nb - 1)
	for {
		if sym, ok := pd.lookup(v, nb); ok {
			pr.numBits -= nb
			return uint(sym)
		}
		if nb++; nb > pd.maxBits {
			panicf(errors.InvalidCode, "no code matches %d-bit pattern", pd.maxBits)
		}
		if pr.numBits < nb {
			errors.Panic(errors.ErrTruncated)
		}
		v = v<<1 | uint32(pr.bufBits>>(pr.numBits-nb))&1
	}
}
