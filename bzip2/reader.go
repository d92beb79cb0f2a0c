// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"io"

	"github.com/gobzip/compress/internal"
	"github.com/gobzip/compress/internal/errors"
	"github.com/gobzip/compress/internal/prefix"
)

type Reader struct {
	InputOffset  int64 // Total number of bytes read from underlying io.Reader
	OutputOffset int64 // Total number of bytes emitted from Read

	rd         prefixReader
	err        error
	level      int    // The current compression level
	rdHdr      bool   // Have we read the stream header?
	inBlock    bool   // Is rle holding the output of a block?
	numStreams int    // Number of completed streams
	blkCRC     uint32 // CRC-32 IEEE of each block (as stored)
	endCRC     uint32 // Checksum of all blocks using bzip2's custom method

	crc crc
	mtf moveToFront
	bwt burrowsWheelerTransform
	rle runLengthEncoding

	// These fields are allocated with Reader and re-used later.
	treeSels []uint8
	codes2D  [maxNumTrees][maxNumSyms]prefix.PrefixCode
	codes1D  [maxNumTrees]prefix.PrefixCodes
	trees1D  [maxNumTrees]prefix.Decoder
	syms     []uint16
}

type ReaderConfig struct {
	_ struct{} // Blank field to prevent unkeyed struct literals
}

// NewReader returns a new Reader that decompresses every stream in r.
// Concatenated streams are decoded back to back.
func NewReader(r io.Reader, conf *ReaderConfig) (*Reader, error) {
	zr := new(Reader)
	zr.Reset(r)
	return zr, nil
}

func (zr *Reader) Reset(r io.Reader) error {
	*zr = Reader{
		rd: zr.rd,

		mtf: zr.mtf,
		bwt: zr.bwt,

		treeSels: zr.treeSels,
		syms:     zr.syms,
	}
	zr.rd.Init(r)
	return nil
}

func (zr *Reader) Read(buf []byte) (int, error) {
	for {
		cnt, err := zr.rle.Read(buf)
		if err != rleDone && zr.err == nil {
			zr.err = err
		}
		if cnt > 0 {
			zr.crc.update(buf[:cnt])
			zr.OutputOffset += int64(cnt)
			return cnt, nil
		}
		if zr.err != nil || len(buf) == 0 {
			return 0, zr.err
		}

		// Read the next chunk.
		zr.rd.Offset = zr.InputOffset
		func() {
			defer errors.Recover(&zr.err)
			if zr.inBlock {
				if zr.blkCRC != zr.crc.val {
					errors.Panic(&ChecksumError{Want: zr.blkCRC, Got: zr.crc.val})
				}
				zr.endCRC = combineCRC(zr.endCRC, zr.blkCRC)
				zr.inBlock = false
			}
			zr.crc.val = 0
			zr.readNext()
		}()
		zr.InputOffset = zr.rd.Offset
		if zr.err != nil {
			zr.err = errWrap(zr.err, errors.Corrupted)
			return 0, zr.err
		}
	}
}

// readNext parses stream headers and footers until it finds the next block,
// which it decodes into rle. It raises io.EOF once every stream is done.
func (zr *Reader) readNext() {
	for {
		if !zr.rdHdr {
			// Any further input must be another complete stream.
			if zr.numStreams > 0 && !zr.rd.PullBits(8) {
				errors.Panic(io.EOF)
			}
			if magic := zr.rd.ReadBits(16); magic != hdrMagic {
				panicf(errors.Corrupted, "invalid header magic: 0x%04x", magic)
			}
			switch ver := zr.rd.ReadBits(8); ver {
			case 'h':
			case '0':
				panicf(errors.Deprecated, "unsupported version: %c", ver)
			default:
				panicf(errors.Corrupted, "invalid version: 0x%02x", ver)
			}
			lvl := int(zr.rd.ReadBits(8)) - '0'
			if lvl < BestSpeed || lvl > BestCompression {
				panicf(errors.Corrupted, "invalid block size: %d", lvl*blockSize)
			}
			zr.level = lvl
			zr.endCRC = 0
			zr.rdHdr = true
		}

		switch magic := zr.rd.ReadBitsBE64(48); magic {
		case blkMagic:
			zr.decodeBlock()
			return
		case endMagic:
			endCRC := uint32(zr.rd.ReadBits(32))
			if endCRC != zr.endCRC {
				errors.Panic(&ChecksumError{Want: endCRC, Got: zr.endCRC, Stream: true})
			}
			zr.rd.ReadPads()
			zr.rdHdr = false
			zr.numStreams++
		default:
			panicf(errors.Corrupted, "invalid block or footer magic: 0x%012x", magic)
		}
	}
}

// decodeBlock decodes a single block, whose magic has already been read,
// leaving the output of the BWT stage in rle.
func (zr *Reader) decodeBlock() {
	zr.blkCRC = uint32(zr.rd.ReadBits(32))
	randomized := zr.rd.ReadBits(1) == 1
	ptr := int(zr.rd.ReadBits(24))

	// Read the symbol bitmap.
	var dictArr [256]uint8
	dict := dictArr[:0]
	bmapHi := uint16(zr.rd.ReadBits(16))
	for i := 0; i < 256; i, bmapHi = i+16, bmapHi<<1 {
		if bmapHi&0x8000 > 0 {
			bmapLo := uint16(zr.rd.ReadBits(16))
			for j := 0; j < 16; j, bmapLo = j+1, bmapLo<<1 {
				if bmapLo&0x8000 > 0 {
					dict = append(dict, uint8(i+j))
				}
			}
		}
	}

	// Step 1: Prefix decoding.
	syms := zr.decodePrefix(len(dict))

	// Step 2: Move-to-front transform and run-length encoding.
	zr.mtf.Init(dict, zr.level*blockSize)
	buf := zr.mtf.Decode(syms)

	// Step 3: Burrows-Wheeler transformation.
	if ptr >= len(buf) {
		panicf(errors.InvalidBlock, "origin pointer (0x%06x) exceeds block size: %d", ptr, len(buf))
	}
	zr.bwt.Decode(buf, ptr)
	if randomized {
		randomize(buf)
	}

	zr.rle.Init(buf)
	zr.inBlock = true
}

func (zr *Reader) decodePrefix(numSyms int) (syms []uint16) {
	numSyms += 2 // Remove 0 symbol, add RUNA, RUNB, and EOB symbols
	if numSyms < 3 {
		panicf(errors.Corrupted, "not enough prefix symbols: %d", numSyms)
	}

	// Read information about the trees and tree selectors.
	var mtf internal.MoveToFront
	numTrees := int(zr.rd.ReadBits(3))
	if numTrees < minNumTrees || numTrees > maxNumTrees {
		panicf(errors.Corrupted, "invalid number of prefix trees: %d", numTrees)
	}
	numSels := int(zr.rd.ReadBits(15))
	if numSels == 0 {
		panicf(errors.Corrupted, "no tree selectors")
	}
	if cap(zr.treeSels) < numSels {
		zr.treeSels = make([]uint8, numSels)
	}
	treeSels := zr.treeSels[:numSels]
	for i := range treeSels {
		sym := zr.rd.ReadSymbol(&decSel)
		if int(sym) >= numTrees {
			panicf(errors.Corrupted, "invalid prefix tree selector: %d", sym)
		}
		treeSels[i] = uint8(sym)
	}
	mtf.Decode(treeSels, numTrees)

	// Initialize prefix codes.
	for i := range zr.codes2D[:numTrees] {
		zr.codes1D[i] = zr.codes2D[i][:numSyms]
	}
	zr.rd.ReadPrefixCodes(zr.codes1D[:numTrees], zr.trees1D[:numTrees])

	// Read prefix encoded symbols of compressed data.
	var tree *prefix.Decoder
	var blkLen, selIdx int
	syms = zr.syms[:0]
	for {
		if blkLen == 0 {
			blkLen = numBlockSyms
			if selIdx >= len(treeSels) {
				panicf(errors.Corrupted, "not enough prefix tree selectors")
			}
			tree = &zr.trees1D[treeSels[selIdx]]
			selIdx++
		}
		blkLen--
		sym := uint16(zr.rd.ReadSymbol(tree))

		if int(sym) == numSyms-1 {
			break // EOB marker
		}
		syms = append(syms, sym)
	}
	zr.syms = syms
	return syms
}

// Close ends decompression. It does not close the underlying io.Reader.
// It returns the persistent error if decompression failed.
func (zr *Reader) Close() error {
	if zr.err == nil || zr.err == io.EOF || zr.err == errClosed {
		zr.rle.Init(nil) // Make sure future reads fail
		zr.err = errClosed
		return nil
	}
	return zr.err // Return the persistent error
}
