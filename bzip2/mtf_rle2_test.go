// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/gobzip/compress/internal/errors"
)

func getDict(buf []byte) []uint8 {
	var dictMap [256]bool
	for _, b := range buf {
		dictMap[b] = true
	}
	var dictArr [256]uint8
	var i int
	for j, b := range dictMap {
		if b {
			dictArr[i] = uint8(j)
			i++
		}
	}
	return dictArr[:i]
}

func TestMoveToFront(t *testing.T) {
	var vectors = []struct {
		input  []byte
		output []uint16
	}{{
		input:  []byte{},
		output: []uint16{},
	}, {
		input:  []byte{3},
		output: []uint16{symRUNA},
	}, {
		input:  []byte{2, 2, 2, 2, 2, 2, 2, 2, 2, 2},
		output: []uint16{symRUNB, symRUNB, symRUNA},
	}, {
		input:  []byte{9, 8, 7, 6, 5, 4, 3, 2, 1},
		output: []uint16{9, 9, 9, 9, 9, 9, 9, 9, 9},
	}, {
		input:  []byte{42, 47, 42, 47, 42, 47, 42, 47, 42, 47, 42, 47},
		output: []uint16{symRUNA, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2},
	}, {
		input:  []byte{0, 5, 2, 3, 4, 4, 3, 1, 2, 3, 3, 3, 3, 3, 3, 4, 4, 4, 5, 2, 3, 3},
		output: []uint16{symRUNA, 6, 4, 5, 6, symRUNA, 2, 6, 4, 3, symRUNA, symRUNB, 4, symRUNB, 5, 4, 4, symRUNA},
	}}

	mtf := new(moveToFront)
	for i, v := range vectors {
		dict := getDict(v.input)
		mtf.Init(dict, len(v.input))
		syms := append([]uint16(nil), mtf.Encode(append([]byte(nil), v.input...))...)
		mtf.Init(dict, len(v.input))
		input := mtf.Decode(syms)

		if diff := cmp.Diff(v.input, input, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("test %d, input mismatch (-want +got):\n%s", i, diff)
		}
		if diff := cmp.Diff(v.output, syms, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("test %d, output mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestAppendRun(t *testing.T) {
	var vectors = []struct {
		input  uint32
		output []uint16
	}{
		{input: 0, output: nil},
		{input: 1, output: []uint16{symRUNA}},
		{input: 2, output: []uint16{symRUNB}},
		{input: 3, output: []uint16{symRUNA, symRUNA}},
		{input: 4, output: []uint16{symRUNB, symRUNA}},
		{input: 5, output: []uint16{symRUNA, symRUNB}},
		{input: 6, output: []uint16{symRUNB, symRUNB}},
		{input: 7, output: []uint16{symRUNA, symRUNA, symRUNA}},
		{input: 14, output: []uint16{symRUNB, symRUNB, symRUNB}},
		{input: 15, output: []uint16{symRUNA, symRUNA, symRUNA, symRUNA}},
	}

	for i, v := range vectors {
		output := appendRun(nil, v.input)
		if diff := cmp.Diff(v.output, output); diff != "" {
			t.Errorf("test %d, output mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestMoveToFrontRuns(t *testing.T) {
	// Runs of length 0, 1, and the largest block size.
	const maxBlock = BestCompression * blockSize
	for _, n := range []int{0, 1, 2, 3, 1000, maxBlock - 1, maxBlock} {
		input := bytes.Repeat([]byte{'y'}, n)

		mtf := new(moveToFront)
		dict := getDict(input)
		mtf.Init(dict, len(input))
		syms := append([]uint16(nil), mtf.Encode(append([]byte(nil), input...))...)
		if len(syms) > maxRunDigits {
			t.Errorf("run %d, too many symbols: %d", n, len(syms))
		}
		mtf.Init(dict, len(input))
		if output := mtf.Decode(syms); string(output) != string(input) {
			t.Errorf("run %d, round trip mismatch", n)
		}
	}
}

func TestMoveToFrontErrors(t *testing.T) {
	var vectors = []struct {
		dict    []uint8
		blkSize int
		syms    []uint16
	}{{
		dict:    []uint8{'a'},
		blkSize: 2,
		syms:    []uint16{symRUNA, symRUNA}, // Run of 3
	}, {
		dict:    []uint8{'a', 'b'},
		blkSize: 10,
		syms:    []uint16{symRUNA, 3}, // Index 2 is out of range
	}, {
		dict:    []uint8{'a', 'b'},
		blkSize: 1,
		syms:    []uint16{2, 2},
	}, {
		dict:    []uint8{'a'},
		blkSize: 1 << 30,
		syms:    make([]uint16, maxRunDigits+1),
	}}

	for i, v := range vectors {
		var err error
		func() {
			defer errors.Recover(&err)
			mtf := new(moveToFront)
			mtf.Init(v.dict, v.blkSize)
			mtf.Decode(v.syms)
		}()
		if !stderrors.Is(err, ErrCorrupted) {
			t.Errorf("test %d, error mismatch: got %v, want %v", i, err, ErrCorrupted)
		}
	}
}
