// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package prefix

import (
	"bytes"
	"io"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gobzip/compress/internal/errors"
	"github.com/gobzip/compress/internal/testutil"
)

func TestReader(t *testing.T) {
	input := testutil.MustDecodeBitGen(`>>>
		> 1 01 D3:5 H8:a5 D5:0 H16:beef D32:4294967295 D6:33 1 0*6
	`)

	var readers = map[string]func([]byte) io.Reader{
		"io.Reader": func(b []byte) io.Reader {
			return struct{ io.Reader }{bytes.NewReader(b)}
		},
		"bytes.Reader": func(b []byte) io.Reader {
			return bytes.NewReader(b)
		},
		"strings.Reader": func(b []byte) io.Reader {
			return strings.NewReader(string(b))
		},
	}

	for name, newReader := range readers {
		t.Run(name, func(t *testing.T) {
			var rd Reader
			rd.Init(newReader(input))

			var vectors = []struct {
				nb   uint
				want uint
			}{
				{1, 1}, {2, 1}, {3, 5}, {8, 0xa5}, {5, 0}, {16, 0xbeef},
				{32, 0xffffffff}, {6, 33}, {1, 1},
			}
			var err error
			func() {
				defer errors.Recover(&err)
				for i, v := range vectors {
					if got := rd.ReadBits(v.nb); got != v.want {
						t.Errorf("test %d, ReadBits(%d): got %#x, want %#x", i, v.nb, got, v.want)
					}
				}
				if got := rd.BitsRead(); got != 74 {
					t.Errorf("BitsRead: got %d, want 74", got)
				}
				if pads := rd.ReadPads(); pads != 0 {
					t.Errorf("ReadPads: got %d, want 0", pads)
				}
				if rd.PullBits(1) {
					t.Errorf("PullBits: got true past end of input")
				}
				rd.ReadBits(1)
			}()
			if !errors.IsTruncated(err) {
				t.Errorf("read past end: got %v, want truncated error", err)
			}
			if err != nil && err.(errors.Error).Unwrap() != io.ErrUnexpectedEOF {
				t.Errorf("truncated error does not wrap io.ErrUnexpectedEOF: %v", err)
			}
			if rd.Offset != int64(len(input)) {
				t.Errorf("offset mismatch: got %d, want %d", rd.Offset, len(input))
			}
		})
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	var wr Writer
	wr.Init(&buf)
	wr.WriteBits(1, 1)
	wr.WriteBits(1, 2)
	wr.WriteBits(5, 3)
	wr.WriteBits(0xa5, 8)
	wr.WriteBits(0, 5)
	wr.WriteBitsBE64(0xbeef, 16)
	wr.WriteBitsBE64(0x0177245385090, 48)
	wr.WritePads(0)
	if got := wr.BitsWritten(); got != 88 {
		t.Errorf("BitsWritten: got %d, want 88", got)
	}
	if _, err := wr.Flush(); err != nil {
		t.Fatalf("unexpected Flush error: %v", err)
	}

	want := testutil.MustDecodeBitGen(`>>> > 1 01 D3:5 H8:a5 D5:0 H16:beef H48:177245385090 0*5`)
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("output mismatch:\ngot  %x\nwant %x", buf.Bytes(), want)
	}
	if wr.Offset != int64(len(want)) {
		t.Errorf("offset mismatch: got %d, want %d", wr.Offset, len(want))
	}
}

func TestWriterDetach(t *testing.T) {
	// Writing the same bits directly or through a detached Writer must
	// produce identical output, regardless of the current alignment.
	for lead := uint(0); lead < 8; lead++ {
		var direct, joined bytes.Buffer
		var wd, wj, detached Writer
		wd.Init(&direct)
		wj.Init(&joined)
		detached.Init(nil)

		wd.WriteBits(0x55, lead)
		wj.WriteBits(0x55, lead)
		for i := uint(0); i < 20; i++ {
			wd.WriteBits(i*7, 5)
			detached.WriteBits(i*7, 5)
		}
		b, tail, nb := detached.Detach()
		wj.WriteBitString(b, tail, nb)

		wd.WritePads(0)
		wj.WritePads(0)
		wd.Flush()
		wj.Flush()
		if !bytes.Equal(direct.Bytes(), joined.Bytes()) {
			t.Errorf("lead %d, output mismatch:\ngot  %x\nwant %x", lead, joined.Bytes(), direct.Bytes())
		}
	}
}

func TestWriterError(t *testing.T) {
	var wr Writer
	wr.Init(&testutil.BuggyWriter{W: io.Discard, N: 10, Err: io.ErrClosedPipe})
	for i := 0; i < flushSize-1; i++ {
		wr.WriteBits(uint(i), 8)
	}
	if _, err := wr.Flush(); err != io.ErrClosedPipe {
		t.Errorf("Flush error: got %v, want %v", err, io.ErrClosedPipe)
	}
}

func TestGenerate(t *testing.T) {
	r := testutil.NewRand(0)
	var makeCodes = func(freqs []uint) PrefixCodes {
		codes := make(PrefixCodes, len(freqs))
		for i, j := range r.Perm(len(freqs)) {
			codes[i] = PrefixCode{Sym: uint32(i), Cnt: uint32(freqs[j])}
		}
		codes.SortByCount()
		return codes
	}

	var vectors = []struct {
		maxBits uint // Maximum prefix bit-length (0 to skip GenerateLengths)
		input   PrefixCodes
		valid   bool
	}{{
		maxBits: 15,
		input:   makeCodes([]uint{}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{0}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{5}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{0, 0}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{5, 15}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{1, 1, 2, 4}),
		valid:   true,
	}, {
		maxBits: 2,
		input:   makeCodes([]uint{1, 1, 2, 4}),
		valid:   true,
	}, {
		maxBits: 7,
		input:   makeCodes([]uint{100, 101, 102, 103}),
		valid:   true,
	}, {
		maxBits: 10,
		input:   makeCodes([]uint{2, 2, 2, 2, 5, 5, 5}),
		valid:   true,
	}, {
		maxBits: 15,
		input:   makeCodes([]uint{1, 2, 3, 4, 5, 6, 7, 8, 9}),
		valid:   true,
	}, {
		maxBits: 7,
		input:   makeCodes([]uint{0, 0, 2, 3, 4, 4, 4, 5, 5, 6, 6, 7, 7, 9, 10, 11, 13, 15}),
		valid:   true,
	}, {
		maxBits: 20,
		input:   makeCodes([]uint{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536}),
		valid:   true,
	}, {
		maxBits: 12,
		input:   makeCodes([]uint{1, 2, 4, 8, 16, 32, 64, 128, 256, 512, 1024, 2048, 4096, 8192, 16384, 32768, 65536}),
		valid:   true,
	}, {
		// Full bzip2 alphabet with most symbols unused.
		maxBits: 17,
		input: makeCodes(func() []uint {
			freqs := make([]uint, 258)
			freqs[0], freqs[1], freqs[257] = 90000, 45000, 1
			return freqs
		}()),
		valid: true,
	}, {
		// Too many symbols for the length limit.
		maxBits: 2,
		input:   makeCodes([]uint{1, 1, 1, 1, 1}),
		valid:   false,
	}, {
		// Input counts are not sorted in ascending order.
		maxBits: 15,
		input: []PrefixCode{
			{Sym: 0, Cnt: 3},
			{Sym: 1, Cnt: 2},
			{Sym: 2, Cnt: 1},
		},
		valid: false,
	}, {
		// Input symbols are not sorted in ascending order.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 2, Len: 1},
			{Sym: 1, Len: 2},
			{Sym: 0, Len: 2},
		},
		valid: false,
	}, {
		// Input symbols are not unique.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 5, Len: 1},
			{Sym: 5, Len: 1},
		},
		valid: false,
	}, {
		// Invalid small tree.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 0, Len: 500},
		},
		valid: false,
	}, {
		// Some bit-length is too short.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 0, Len: 1},
			{Sym: 1, Len: 2},
			{Sym: 2, Len: 0},
		},
		valid: false,
	}, {
		// Under-subscribed tree.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 0, Len: 3},
			{Sym: 1, Len: 4},
			{Sym: 2, Len: 3},
		},
		valid: false,
	}, {
		// Over-subscribed tree.
		maxBits: 0,
		input: []PrefixCode{
			{Sym: 0, Len: 1},
			{Sym: 1, Len: 3},
			{Sym: 2, Len: 4},
			{Sym: 3, Len: 3},
			{Sym: 4, Len: 2},
		},
		valid: false,
	}}

	for i, v := range vectors {
		var sum uint32
		var maxLen uint
		var lens []int

		codes := v.input
		if v.maxBits == 0 {
			goto genPrefixes
		}

		if err := GenerateLengths(codes, v.maxBits); err != nil {
			if v.valid {
				t.Errorf("test %d, unexpected failure: %v", i, err)
			}
			continue
		}

		for _, c := range codes {
			if maxLen < uint(c.Len) {
				maxLen = uint(c.Len)
			}
			lens = append(lens, int(c.Len))
			sum += c.Cnt
		}

		if !codes.checkLengths() {
			t.Errorf("test %d, incomplete tree generated", i)
		}
		if !sort.IsSorted(sort.Reverse(sort.IntSlice(lens))) {
			t.Errorf("test %d, bit-lengths are not sorted:\ngot %v", i, lens)
		}
		if maxLen > v.maxBits {
			t.Errorf("test %d, max bit-length exceeded: %d not in 1..%d", i, maxLen, v.maxBits)
		}

		// The resulting lengths must stay near the ideal entropy.
		if len(codes) >= 4 && sum > 0 {
			var worst, got, best float64
			worst = math.Log2(float64(len(codes)))
			got = float64(codes.Length()) / float64(sum)
			for _, c := range codes {
				if c.Cnt > 0 {
					p := float64(c.Cnt) / float64(sum)
					best += -(p * math.Log2(p))
				}
			}

			if got > worst+1 {
				t.Errorf("test %d, actual entropy worst than worst-case: %0.3f > %0.3f", i, got, worst)
			}
			if got < best {
				t.Errorf("test %d, actual entropy better than best-case: %0.3f < %0.3f", i, got, best)
			}
		}
		codes.SortBySymbol()

	genPrefixes:
		if err := GeneratePrefixes(codes); err != nil {
			if v.valid {
				t.Errorf("test %d, unexpected failure: %v", i, err)
			}
			continue
		}

		if !codes.checkPrefixes() {
			t.Errorf("test %d, tree with non-unique prefixes generated", i)
		}
		if !codes.checkCanonical() {
			t.Errorf("test %d, tree with non-canonical prefixes generated", i)
		}
		if !v.valid {
			t.Errorf("test %d, unexpected success", i)
		}
	}
}

// TestGenerateZeroCounts checks that unused symbols are weighted as if they
// occurred once.
func TestGenerateZeroCounts(t *testing.T) {
	var vectors = []struct {
		cnts []uint32
		want []uint32
	}{
		{cnts: []uint32{0, 0, 1, 1}, want: []uint32{2, 2, 2, 2}},
		{cnts: []uint32{0, 1, 1}, want: []uint32{2, 2, 1}},
		{cnts: []uint32{0, 0, 0, 0, 1, 1, 1, 1}, want: []uint32{3, 3, 3, 3, 3, 3, 3, 3}},
		{cnts: []uint32{0, 0, 6}, want: []uint32{2, 2, 1}},
	}

	for i, v := range vectors {
		codes := make(PrefixCodes, len(v.cnts))
		for j, c := range v.cnts {
			codes[j] = PrefixCode{Sym: uint32(j), Cnt: c}
		}
		if err := GenerateLengths(codes, 15); err != nil {
			t.Errorf("test %d, unexpected error: %v", i, err)
			continue
		}
		var got []uint32
		for _, c := range codes {
			got = append(got, c.Len)
		}
		if diff := cmp.Diff(v.want, got); diff != "" {
			t.Errorf("test %d, bit-length mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestPrefix(t *testing.T) {
	var makeCodes = func(freqs []uint, maxBits uint) PrefixCodes {
		codes := make(PrefixCodes, len(freqs))
		for i, n := range freqs {
			codes[i] = PrefixCode{Sym: uint32(i), Cnt: uint32(n)}
		}
		codes.SortByCount()
		if err := GenerateLengths(codes, maxBits); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		codes.SortBySymbol()
		if err := GeneratePrefixes(codes); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return codes
	}
	var fixedCodes = func(lens ...uint32) (codes PrefixCodes) {
		for i, n := range lens {
			codes = append(codes, PrefixCode{Sym: uint32(i), Len: n})
		}
		if err := GeneratePrefixes(codes); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return codes
	}

	var vectors = []struct {
		codes PrefixCodes
	}{{
		codes: makeCodes([]uint{0}, 15),
	}, {
		codes: makeCodes([]uint{2, 4, 3, 2, 2, 4}, 15),
	}, {
		codes: makeCodes([]uint{2, 2, 2, 2, 5, 5, 5}, 15),
	}, {
		codes: makeCodes([]uint{100, 101, 102, 103}, 15),
	}, {
		codes: makeCodes([]uint{
			1, 1, 1, 1, 1, 2, 2, 2, 3, 4, 5, 6, 6, 7, 8, 9, 9, 10, 11, 11, 12, 12,
			14, 15, 15, 16, 18, 18, 19, 19, 20, 20, 20, 25, 25, 27, 29, 31, 32, 35,
			39, 44, 47, 52, 60, 62, 71, 73, 74, 82, 86, 97, 98, 103, 108, 110, 112,
			125, 130, 142, 154, 155, 160, 185, 198, 204, 204, 219, 222, 259, 262,
			292, 296, 302, 334, 434, 450, 679, 697, 1032, 1441, 1888, 1892, 2188,
		}, 17),
	}, {
		// Sparsely allocated symbols.
		codes: func() PrefixCodes {
			codes := PrefixCodes{{Sym: 16, Len: 1}, {Sym: 32, Len: 2}, {Sym: 64, Len: 3}, {Sym: 128, Len: 3}}
			if err := GeneratePrefixes(codes); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			return codes
		}(),
	}, {
		// Large number of symbols.
		codes: func() PrefixCodes {
			freqs := make([]uint, 4096)
			for i := range freqs {
				freqs[i] = uint(i)
			}
			return makeCodes(freqs, 20)
		}(),
	}, {
		// Longest lengths accepted by bzip2 decoders.
		codes: fixedCodes(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 20),
	}, {
		// Fixed literal codes from DEFLATE.
		codes: func() PrefixCodes {
			var lens []uint32
			for i := 0; i < 288; i++ {
				switch {
				case i < 144:
					lens = append(lens, 8)
				case i < 256:
					lens = append(lens, 9)
				case i < 280:
					lens = append(lens, 7)
				default:
					lens = append(lens, 8)
				}
			}
			return fixedCodes(lens...)
		}(),
	}}

	for i, v := range vectors {
		var pd Decoder
		var pe Encoder
		pd.Init(v.codes)
		pe.Init(v.codes)

		r := testutil.NewRand(i)
		syms := make([]uint, 1000)
		for j := range syms {
			syms[j] = uint(v.codes[r.Intn(len(v.codes))].Sym)
		}

		var buf bytes.Buffer
		var wr Writer
		wr.Init(&buf)
		var nb int64
		for _, sym := range syms {
			wr.WriteSymbol(sym, &pe)
			nb += int64(pe.Cost(sym))
		}
		if got := wr.BitsWritten(); got != nb {
			t.Errorf("test %d, bit count mismatch: got %d, want %d", i, got, nb)
		}
		wr.WritePads(0)
		if _, err := wr.Flush(); err != nil {
			t.Errorf("test %d, unexpected Writer error: %v", i, err)
		}
		if wr.Offset != int64(buf.Len()) {
			t.Errorf("test %d, offset mismatch: got %d, want %d", i, wr.Offset, buf.Len())
		}

		var rd Reader
		rd.Init(&buf)
		var err error
		func() {
			defer errors.Recover(&err)
			for j := range syms {
				if sym := rd.ReadSymbol(&pd); sym != syms[j] {
					t.Errorf("test %d, read back wrong symbol %d: got %d, want %d", i, j, sym, syms[j])
					return
				}
			}
			if pads := rd.ReadPads(); pads != 0 {
				t.Errorf("test %d, unexpected padding bits: got %d, want 0", i, pads)
			}
		}()
		if err != nil {
			t.Errorf("test %d, unexpected Reader error: %v", i, err)
		}
		if rd.Offset != wr.Offset {
			t.Errorf("test %d, offset mismatch: got %d, want %d", i, rd.Offset, wr.Offset)
		}
	}
}

func TestDecoderErrors(t *testing.T) {
	var vectors = []struct {
		lens  []uint32
		input string // BitGen formatted input
		want  int    // Expected error code, or -1 for success
	}{{
		// Incomplete tree: only the pattern 11 is unused.
		lens:  []uint32{1, 2},
		input: ">>> 0 10 0 10",
		want:  -1,
	}, {
		lens:  []uint32{1, 2},
		input: ">>> 0 10 11",
		want:  errors.InvalidCode,
	}, {
		lens:  []uint32{3, 3, 3, 3, 3, 3, 3, 3},
		input: ">>> 000 001 01",
		want:  errors.Truncated,
	}, {
		lens:  []uint32{1, 1, 2},
		input: ">>> 0",
		want:  errors.InvalidCode,
	}}

	for i, v := range vectors {
		var codes PrefixCodes
		for j, n := range v.lens {
			codes = append(codes, PrefixCode{Sym: uint32(j), Len: n})
		}

		var err error
		func() {
			defer errors.Recover(&err)
			var pd Decoder
			pd.Init(codes)
			var rd Reader
			rd.Init(bytes.NewReader(testutil.MustDecodeBitGen(v.input)))
			for n := len(v.input); n > 0; n-- {
				if !rd.PullBits(1) {
					break
				}
				rd.ReadSymbol(&pd)
			}
		}()

		switch {
		case v.want < 0 && err != nil && !errors.IsTruncated(err):
			t.Errorf("test %d, unexpected error: %v", i, err)
		case v.want >= 0:
			if cerr, ok := err.(errors.Error); !ok || cerr.Code != v.want {
				t.Errorf("test %d, error mismatch: got %v, want code %d", i, err, v.want)
			}
		}
	}
}
