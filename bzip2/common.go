// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package bzip2 implements the BZip2 compressed data format.
//
// Canonical C implementation:
//	http://bzip.org
//
// Unofficial format specification:
//	https://github.com/dsnet/compress/blob/master/doc/bzip2-format.pdf
package bzip2

import (
	"fmt"
	"hash/crc32"

	"github.com/gobzip/compress/internal"
	"github.com/gobzip/compress/internal/errors"
)

// There does not exist a formal specification of the BZip2 format. As such,
// much of this work is derived by either reverse engineering the original C
// source code or using secondary sources.
//
// Significant amounts of fuzz testing is done to ensure that outputs from
// this package is properly decoded by the C library. Furthermore, we test that
// both this package and the C library agree about what inputs are invalid.
//
// Compression stack:
//	Run-length encoding 1     (RLE1)
//	Burrows-Wheeler transform (BWT)
//	Move-to-front transform   (MTF)
//	Run-length encoding 2     (RLE2)
//	Prefix encoding           (PE)
//
// References:
//	http://bzip.org/
//	https://en.wikipedia.org/wiki/Bzip2
//	https://code.google.com/p/jbzip2/

const (
	BestSpeed          = 1
	BestCompression    = 9
	DefaultCompression = 6
)

const (
	hdrMagic = 0x425a         // Hex of "BZ"
	blkMagic = 0x314159265359 // BCD of PI
	endMagic = 0x177245385090 // BCD of sqrt(PI)

	blockSize = 100000
)

func errorf(c int, f string, a ...interface{}) error {
	return errors.Error{Code: c, Pkg: "bzip2", Msg: fmt.Sprintf(f, a...)}
}

func panicf(c int, f string, a ...interface{}) {
	errors.Panic(errorf(c, f, a...))
}

// errWrap converts a lower-level errors.Error to be one from this package.
// The replaceCode passed in will be used to replace the code for any errors
// with the errors.Invalid code.
//
// For the Reader, set this to errors.Corrupted.
// For the Writer, set this to errors.Internal.
func errWrap(err error, replaceCode int) error {
	if cerr, ok := err.(errors.Error); ok {
		if errors.IsInvalid(cerr) {
			cerr.Code = replaceCode
		}
		cerr.Pkg = "bzip2"
		err = cerr
	}
	return err
}

var errClosed = errorf(errors.Closed, "")

// Sentinel errors for use with errors.Is. Every error returned by this
// package that belongs to one of these classes matches the sentinel.
var (
	// ErrTruncated reports input that ended in the middle of a stream.
	// It also matches io.ErrUnexpectedEOF.
	ErrTruncated error = errors.Error{Code: errors.Truncated, Pkg: "bzip2"}

	// ErrInvalidBlock reports a block whose header fields are impossible.
	ErrInvalidBlock error = errors.Error{Code: errors.InvalidBlock, Pkg: "bzip2"}

	// ErrInvalidCode reports a bit pattern that matches no prefix code.
	ErrInvalidCode error = errors.Error{Code: errors.InvalidCode, Pkg: "bzip2"}

	// ErrChecksum reports a block or stream CRC mismatch.
	// The concrete error is a *ChecksumError.
	ErrChecksum error = errors.Error{Code: errors.Checksum, Pkg: "bzip2"}

	// ErrCorrupted reports any other structural violation of the format.
	ErrCorrupted error = errors.Error{Code: errors.Corrupted, Pkg: "bzip2"}

	// ErrDeprecated reports a stream in the obsolete bzip1 format.
	ErrDeprecated error = errors.Error{Code: errors.Deprecated, Pkg: "bzip2"}

	// ErrInvalid reports misuse of the API, such as a bad compression level.
	ErrInvalid error = errors.Error{Code: errors.Invalid, Pkg: "bzip2"}

	// ErrClosed reports use of a closed Reader or Writer.
	ErrClosed error = errors.Error{Code: errors.Closed, Pkg: "bzip2"}
)

// ChecksumError reports that the CRC stored in the stream differs from the
// CRC of the decompressed data.
type ChecksumError struct {
	Want   uint32 // CRC recorded in the stream
	Got    uint32 // CRC computed over the decompressed data
	Stream bool   // Whether this is the combined stream CRC instead of a block CRC
}

func (e *ChecksumError) Error() string {
	what := "block"
	if e.Stream {
		what = "stream"
	}
	return fmt.Sprintf("bzip2: checksum mismatch: %s checksum: got 0x%08x, want 0x%08x", what, e.Got, e.Want)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksum }

type crc struct {
	val uint32
	buf [256]byte
}

// update computes the CRC-32 of appending buf to c.
func (c *crc) update(buf []byte) {
	// The CRC-32 computation in bzip2 treats bytes as having bits in big-endian
	// order. That is, the MSB is read before the LSB. Thus, we can use the
	// standard library version of CRC-32 IEEE with some minor adjustments.
	cval := internal.ReverseUint32(c.val)
	for len(buf) > 0 {
		n := copy(c.buf[:], buf)
		buf = buf[n:]
		for i, b := range c.buf[:n] {
			c.buf[i] = internal.ReverseLUT[b]
		}
		cval = crc32.Update(cval, crc32.IEEETable, c.buf[:n])
	}
	c.val = internal.ReverseUint32(cval)
}

// combineCRC folds the block CRC into the running stream CRC.
func combineCRC(streamCRC, blockCRC uint32) uint32 {
	return (streamCRC<<1 | streamCRC>>31) ^ blockCRC
}
