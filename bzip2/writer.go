// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"io"
	"sync"

	"github.com/sourcegraph/conc/stream"

	"github.com/gobzip/compress/internal"
	"github.com/gobzip/compress/internal/errors"
	"github.com/gobzip/compress/internal/prefix"
)

// numIters is the number of passes used to refine the prefix trees against
// the groups of symbols that select them.
const numIters = 4

type Writer struct {
	InputOffset  int64 // Total number of bytes issued to Write
	OutputOffset int64 // Total number of bytes written to underlying io.Writer

	wr         prefixWriter
	err        error
	level      int    // The current compression level
	numWorkers int    // Maximum number of blocks encoded at once
	wrHdr      bool   // Have we written the stream header?
	endCRC     uint32 // Checksum of all blocks using bzip2's custom method

	crc crc
	rle runLengthEncoding
	blk *[]byte // Block buffer currently filled by rle

	enc     *blockEncoder  // Used when blocks are encoded sequentially
	strm    *stream.Stream // Orders concurrently encoded blocks; nil if sequential
	mu      sync.Mutex     // Protects wr, err, endCRC, and OutputOffset from stream callbacks
	bufPool sync.Pool      // Block buffers of *[]byte released by stream callbacks

	randomize bool // Emit randomized blocks; only used to test decoders
}

type WriterConfig struct {
	Level int // Block size in units of 100k, from BestSpeed to BestCompression

	// Concurrency is the maximum number of blocks compressed in parallel.
	// Output is identical regardless of this value. Values less than 2
	// compress every block on the goroutine that calls Write or Close.
	Concurrency int

	_ struct{} // Blank field to prevent unkeyed struct literals
}

// NewWriter returns a new Writer that compresses data written to it into w.
// A nil config or a zero level selects DefaultCompression.
func NewWriter(w io.Writer, conf *WriterConfig) (*Writer, error) {
	var lvl, conc int
	if conf != nil {
		lvl, conc = conf.Level, conf.Concurrency
	}
	if lvl == 0 {
		lvl = DefaultCompression
	}
	if lvl < BestSpeed || lvl > BestCompression {
		return nil, errorf(errors.Invalid, "compression level: %d", lvl)
	}
	zw := new(Writer)
	zw.level = lvl
	zw.numWorkers = conc
	zw.Reset(w)
	return zw, nil
}

// Reset discards the Writer's state and makes it equivalent to the result of
// NewWriter with the same configuration, but writing to w instead.
// Blocks still being compressed for the previous output are discarded.
func (zw *Writer) Reset(w io.Writer) error {
	if zw.strm != nil {
		zw.mu.Lock()
		zw.err = errClosed // Make pending callbacks drop their output
		zw.mu.Unlock()
		zw.strm.Wait()
		zw.strm = nil
	}

	zw.InputOffset, zw.OutputOffset = 0, 0
	zw.err = nil
	zw.wrHdr = false
	zw.endCRC = 0
	zw.crc.val = 0
	zw.wr.Init(w)
	if zw.blk == nil || len(*zw.blk) != zw.level*blockSize {
		zw.blk = zw.newBlock()
	}
	zw.rle.Init(*zw.blk)
	if zw.numWorkers > 1 {
		zw.strm = stream.New().WithMaxGoroutines(zw.numWorkers)
	} else if zw.enc == nil {
		zw.enc = new(blockEncoder)
	}
	return nil
}

func (zw *Writer) newBlock() *[]byte {
	if b, ok := zw.bufPool.Get().(*[]byte); ok && len(*b) == zw.level*blockSize {
		return b
	}
	b := make([]byte, zw.level*blockSize)
	return &b
}

func (zw *Writer) loadErr() error {
	zw.mu.Lock()
	defer zw.mu.Unlock()
	return zw.err
}

// setErr records err as the persistent error unless one is already present,
// and returns the persistent error.
func (zw *Writer) setErr(err error) error {
	zw.mu.Lock()
	defer zw.mu.Unlock()
	if zw.err == nil {
		zw.err = errWrap(err, errors.Internal)
	}
	return zw.err
}

func (zw *Writer) Write(buf []byte) (int, error) {
	if err := zw.loadErr(); err != nil {
		return 0, err
	}

	cnt := len(buf)
	for {
		wrCnt, _ := zw.rle.Write(buf)
		zw.crc.update(buf[:wrCnt])
		buf = buf[wrCnt:]
		if len(buf) == 0 {
			zw.InputOffset += int64(cnt)
			return cnt, nil
		}
		if err := zw.flush(); err != nil {
			return 0, err
		}
	}
}

// flush compresses the current block, either directly or by handing it to
// the stream of concurrent encoders.
func (zw *Writer) flush() error {
	vals := zw.rle.Bytes()
	if len(vals) == 0 {
		return nil
	}
	blkCRC := zw.crc.val
	zw.crc.val = 0

	zw.mu.Lock()
	err := zw.err
	if err == nil {
		func() {
			defer errors.Recover(&err)
			zw.writeHeader()
		}()
	}
	zw.mu.Unlock()
	if err != nil {
		return zw.setErr(err)
	}

	if zw.strm == nil {
		func() {
			defer errors.Recover(&err)
			zw.enc.encodeBlock(vals, blkCRC, zw.randomize)
		}()
		if err == nil {
			err = zw.appendBlock(zw.enc, blkCRC)
		}
		if err != nil {
			return zw.setErr(err)
		}
		zw.rle.Init(*zw.blk)
		return nil
	}

	// The encoder owns the filled block buffer until its callback runs.
	blk, randomize := zw.blk, zw.randomize
	zw.blk = zw.newBlock()
	zw.rle.Init(*zw.blk)
	zw.strm.Go(func() stream.Callback {
		enc := encoderPool.Get().(*blockEncoder)
		var err error
		func() {
			defer errors.Recover(&err)
			enc.encodeBlock(vals, blkCRC, randomize)
		}()
		return func() {
			zw.mu.Lock()
			if zw.err == nil {
				if err == nil {
					err = zw.appendBlock(enc, blkCRC)
				}
				if err != nil {
					zw.err = errWrap(err, errors.Internal)
				}
			}
			zw.mu.Unlock()
			encoderPool.Put(enc)
			zw.bufPool.Put(blk)
		}
	})
	return nil
}

// appendBlock copies the encoded block to the output stream.
func (zw *Writer) appendBlock(enc *blockEncoder, blkCRC uint32) (err error) {
	defer errors.Recover(&err)
	zw.wr.WriteBitString(enc.bw.Detach())
	zw.endCRC = combineCRC(zw.endCRC, blkCRC)
	zw.OutputOffset, err = zw.wr.Flush()
	return err
}

func (zw *Writer) writeHeader() {
	if !zw.wrHdr {
		zw.wr.WriteBits(hdrMagic, 16)
		zw.wr.WriteBits('h', 8)
		zw.wr.WriteBits(uint('0'+zw.level), 8)
		zw.wrHdr = true
	}
}

// Close compresses any buffered data and writes the stream footer.
// It does not close the underlying io.Writer.
func (zw *Writer) Close() error {
	if err := zw.loadErr(); err == errClosed {
		return nil
	} else if err != nil {
		zw.wait()
		return err
	}

	// Flush RLE buffer if there is left-over data.
	err := zw.flush()
	zw.wait()
	if err == nil {
		err = zw.loadErr()
	}
	if err != nil {
		return err
	}

	// Write stream footer.
	func() {
		defer errors.Recover(&err)
		zw.writeHeader()
		zw.wr.WriteBitsBE64(endMagic, 48)
		zw.wr.WriteBits(uint(zw.endCRC), 32)
		zw.wr.WritePads(0)
	}()
	if err == nil {
		zw.OutputOffset, err = zw.wr.Flush()
	}
	if err != nil {
		return zw.setErr(err)
	}

	zw.err = errClosed
	return nil
}

// wait blocks until every submitted block has been written out.
func (zw *Writer) wait() {
	if zw.strm != nil {
		zw.strm.Wait()
		zw.strm = nil
	}
}

// blockEncoder compresses a single block into a detached bit string.
// Every buffer it needs is owned by the encoder, so separate encoders may
// run in parallel.
type blockEncoder struct {
	bw  prefixWriter
	bwt burrowsWheelerTransform
	mtf moveToFront

	treeSels    []uint8
	treeSelsMTF []uint8
	codes2D     [maxNumTrees][maxNumSyms]prefix.PrefixCode
	codes1D     [maxNumTrees]prefix.PrefixCodes
	trees1D     [maxNumTrees]prefix.Encoder
}

var encoderPool = sync.Pool{New: func() interface{} { return new(blockEncoder) }}

// encodeBlock encodes buf, the output of the RLE1 stage, which is consumed
// in the process. The result is retrieved with e.bw.Detach.
func (e *blockEncoder) encodeBlock(buf []byte, blkCRC uint32, randomized bool) {
	if len(buf) == 0 {
		panicf(errors.Internal, "cannot encode an empty block")
	}
	e.bw.Init(nil)
	e.bw.WriteBitsBE64(blkMagic, 48)
	e.bw.WriteBits(uint(blkCRC), 32)
	if randomized {
		randomize(buf)
		e.bw.WriteBits(1, 1)
	} else {
		e.bw.WriteBits(0, 1)
	}

	// Step 1: Burrows-Wheeler transformation.
	ptr := e.bwt.Encode(buf)
	e.bw.WriteBits(uint(ptr), 24)

	// Step 2: Move-to-front transform and run-length encoding.
	var dictMap [256]bool
	for _, c := range buf {
		dictMap[c] = true
	}

	var dictArr [256]uint8
	var bmapLo [16]uint16
	dict := dictArr[:0]
	bmapHi := uint16(0)
	for i, b := range dictMap {
		if b {
			c := uint8(i)
			dict = append(dict, c)
			bmapHi |= 1 << (15 - c>>4)
			bmapLo[c>>4] |= 1 << (15 - c&0xf)
		}
	}

	e.bw.WriteBits(uint(bmapHi), 16)
	for _, m := range bmapLo {
		if m > 0 {
			e.bw.WriteBits(uint(m), 16)
		}
	}

	e.mtf.Init(dict, len(buf))
	syms := e.mtf.Encode(buf)

	// Step 3: Prefix encoding.
	e.encodePrefix(syms, len(dict))
}

func (e *blockEncoder) encodePrefix(syms []uint16, numSyms int) {
	numSyms += 2 // Remove 0 symbol, add RUNA, RUNB, and EOB symbols
	if numSyms < 3 {
		panicf(errors.Internal, "unable to encode EOB marker")
	}
	syms = append(syms, uint16(numSyms-1)) // EOB marker

	// Compute number of prefix trees needed.
	numTrees := maxNumTrees
	for i, lim := range []int{200, 600, 1200, 2400} {
		if len(syms) < lim {
			numTrees = minNumTrees + i
			break
		}
	}

	// Compute number of block selectors.
	numSels := (len(syms) + numBlockSyms - 1) / numBlockSyms
	if cap(e.treeSels) < numSels {
		e.treeSels = make([]uint8, numSels)
	}
	treeSels := e.treeSels[:numSels]
	for i := range e.codes1D[:numTrees] {
		e.codes1D[i] = e.codes2D[i][:numSyms]
	}

	// Refine the trees by assigning each group to the cheapest tree and then
	// rebuilding every tree from the groups assigned to it.
	var costs [maxNumTrees][maxNumSyms]uint8
	initCosts(&costs, syms, numTrees, numSyms)
	for iter := 0; iter < numIters; iter++ {
		for _, pc := range e.codes1D[:numTrees] {
			for j := range pc {
				pc[j] = prefix.PrefixCode{Sym: uint32(j)}
			}
		}
		for i := range treeSels {
			grp := syms[i*numBlockSyms : min((i+1)*numBlockSyms, len(syms))]
			var best, bestCost int
			for t := 0; t < numTrees; t++ {
				var cost int
				for _, sym := range grp {
					cost += int(costs[t][sym])
				}
				if t == 0 || cost < bestCost {
					best, bestCost = t, cost
				}
			}
			treeSels[i] = uint8(best)
			pc := e.codes1D[best]
			for _, sym := range grp {
				pc[sym].Cnt++
			}
		}
		for t, pc := range e.codes1D[:numTrees] {
			pc.SortByCount()
			if err := prefix.GenerateLengths(pc, maxEncBits); err != nil {
				errors.Panic(err)
			}
			pc.SortBySymbol()
			for _, c := range pc {
				costs[t][c.Sym] = uint8(c.Len)
			}
		}
	}

	// Write out information about the trees and tree selectors.
	var mtf internal.MoveToFront
	e.bw.WriteBits(uint(numTrees), 3)
	e.bw.WriteBits(uint(numSels), 15)
	e.treeSelsMTF = append(e.treeSelsMTF[:0], treeSels...)
	mtf.Encode(e.treeSelsMTF)
	for _, sym := range e.treeSelsMTF {
		e.bw.WriteSymbol(uint(sym), &encSel)
	}
	e.bw.WritePrefixCodes(e.codes1D[:numTrees], e.trees1D[:numTrees])

	// Write out prefix encoded symbols of compressed data.
	for i, sel := range treeSels {
		tree := &e.trees1D[sel]
		for _, sym := range syms[i*numBlockSyms : min((i+1)*numBlockSyms, len(syms))] {
			e.bw.WriteSymbol(uint(sym), tree)
		}
	}
}

// initCosts seeds the trees by splitting the alphabet into numTrees ranges of
// roughly equal frequency. Each tree starts out cheap for its own range and
// expensive for all other symbols.
func initCosts(costs *[maxNumTrees][maxNumSyms]uint8, syms []uint16, numTrees, numSyms int) {
	var freqs [maxNumSyms]int
	for _, sym := range syms {
		freqs[sym]++
	}

	remFreq, lo := len(syms), 0
	for n := numTrees; n > 0; n-- {
		target := remFreq / n
		hi, freq := lo-1, 0
		for freq < target && hi < numSyms-1 {
			hi++
			freq += freqs[hi]
		}
		// Alternate whether the boundary symbol belongs to this range.
		if hi > lo && n != numTrees && n != 1 && (numTrees-n)%2 == 1 {
			freq -= freqs[hi]
			hi--
		}
		for v := 0; v < numSyms; v++ {
			if v >= lo && v <= hi {
				costs[n-1][v] = 0
			} else {
				costs[n-1][v] = 15
			}
		}
		remFreq -= freq
		lo = hi + 1
	}
}
