// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import (
	"io"

	"github.com/gobzip/compress/internal/errors"
)

const flushSize = 1 << 16

// Writer implements a prefix encoder. Bits are packed starting with the
// most-significant bit of each byte.
//
// Write failures from the underlying io.Writer are raised with errors.Panic.
type Writer struct {
	Offset int64 // Number of bytes written to the underlying io.Writer

	wr      io.Writer
	bufBits uint64 // Buffer to hold some bits; the newest bit is the LSB
	numBits uint   // Number of valid bits in bufBits; always less than 8 between calls
	buf     []byte // Whole bytes not yet written to wr
}

// Init initializes the bit Writer to write to w.
// If w is nil, the output accumulates in memory until Flush or Detach.
func (pw *Writer) Init(w io.Writer) {
	*pw = Writer{wr: w, buf: pw.buf[:0]}
}

// BitsWritten reports the total number of bits issued to the Writer.
func (pw *Writer) BitsWritten() int64 {
	return 8*(pw.Offset+int64(len(pw.buf))) + int64(pw.numBits)
}

// WriteBits writes the lower nb bits of v. The value nb must be at most 32.
func (pw *Writer) WriteBits(v, nb uint) {
	pw.bufBits = pw.bufBits<<nb | uint64(v)&(1<<nb-1)
	pw.numBits += nb
	for pw.numBits >= 8 {
		pw.numBits -= 8
		pw.buf = append(pw.buf, byte(pw.bufBits>>pw.numBits))
	}
	if len(pw.buf) >= flushSize && pw.wr != nil {
		pw.flushBuf()
	}
}

// WriteBitsBE64 writes the lower nb bits of v, where nb may be up to 64.
func (pw *Writer) WriteBitsBE64(v uint64, nb uint) {
	if nb > 32 {
		pw.WriteBits(uint(v>>32), nb-32)
		nb = 32
	}
	pw.WriteBits(uint(v), nb)
}

// WritePads writes 0-7 bits to the bit buffer to achieve byte-alignment.
func (pw *Writer) WritePads(v uint) {
	if nb := (8 - pw.numBits%8) % 8; nb > 0 {
		pw.WriteBits(v, nb)
	}
}

// WriteSymbol writes the code for sym using the provided Encoder.
func (pw *Writer) WriteSymbol(sym uint, pe *Encoder) {
	e := pe.table[sym]
	if e.len == 0 {
		panicf(errors.Internal, "no prefix code for symbol %d", sym)
	}
	pw.WriteBits(uint(e.val), uint(e.len))
}

// WriteBitString appends the output of a detached Writer: the whole bytes in
// b followed by the lowest nb bits of tail.
func (pw *Writer) WriteBitString(b []byte, tail, nb uint) {
	if pw.numBits == 0 {
		pw.buf = append(pw.buf, b...)
	} else {
		for _, c := range b {
			pw.WriteBits(uint(c), 8)
		}
	}
	pw.WriteBits(tail, nb)
	if len(pw.buf) >= flushSize && pw.wr != nil {
		pw.flushBuf()
	}
}

// Detach returns all output of a Writer created with a nil io.Writer.
// The whole bytes are returned in b, and the trailing partial byte is
// returned as the lowest nb bits of tail. The Writer is reset afterwards
// but b remains valid until the next write.
func (pw *Writer) Detach() (b []byte, tail, nb uint) {
	b = pw.buf
	tail, nb = uint(pw.bufBits)&(1<<pw.numBits-1), pw.numBits
	pw.buf, pw.bufBits, pw.numBits = pw.buf[:0], 0, 0
	return b, tail, nb
}

// Flush writes all whole bytes to the underlying io.Writer. Trailing bits
// that do not form a full byte stay buffered. It reports the new Offset.
func (pw *Writer) Flush() (int64, error) {
	if pw.wr == nil {
		return pw.Offset, nil
	}
	var err error
	func() {
		defer errors.Recover(&err)
		pw.flushBuf()
	}()
	return pw.Offset, err
}

func (pw *Writer) flushBuf() {
	n, err := pw.wr.Write(pw.buf)
	pw.Offset += int64(n)
	if err == nil && n < len(pw.buf) {
		err = io.ErrShortWrite
	}
	pw.buf = pw.buf[:0]
	if err != nil {
		errors.Panic(err)
	}
}
