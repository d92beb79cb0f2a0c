// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package testutil

import "strings"

// The generators below produce deterministic inputs of a given size with
// distinct statistical shapes. They take the place of an on-disk corpus.

// Zeros returns n zero bytes. This is the degenerate case for block sorting,
// since every rotation of the block is identical.
func Zeros(n int) []byte {
	return make([]byte, n)
}

// Random returns n bytes of incompressible data.
func Random(n, seed int) []byte {
	return NewRand(seed).Bytes(n)
}

// Digits returns n random decimal digits, which exercise a small alphabet
// with a nearly uniform distribution.
func Digits(n int) []byte {
	r := NewRand(10)
	b := make([]byte, n)
	for i := range b {
		b[i] = '0' + byte(r.Intn(10))
	}
	return b
}

var words = strings.Fields(`
	the of and to in a is that for it as was with be by on not he i this are
	or his from at which but have an they you were her she there been one all
	we their has would when if so no will more out up into do any your what
	river steamboat pilot island town night water shore current bank raft
	mississippi reckoned considerable presently laughed sandbar snag
`)

// Text returns n bytes of pseudo-English prose with a skewed word
// distribution and occasional line breaks.
func Text(n int) []byte {
	r := NewRand(20)
	b := make([]byte, 0, n+32)
	var col int
	for len(b) < n {
		// Squaring the index skews selection toward the first words.
		i := r.Intn(len(words))
		w := words[i*i/len(words)]
		b = append(b, w...)
		col += len(w) + 1
		switch {
		case r.Intn(16) == 0:
			b = append(b, ". "...)
		case col > 72:
			b = append(b, '\n')
			col = 0
		default:
			b = append(b, ' ')
		}
	}
	return b[:n]
}

// Repeats returns n bytes of mostly random data where the bulk of the output
// is a copy of some earlier stretch, either near or far away.
func Repeats(n int) []byte {
	r := NewRand(30)
	b := make([]byte, 0, n+512)
	prob := func() float32 { return float32(r.Intn(1<<24)) / (1 << 24) }

	randLen := func() int {
		p := prob()
		switch {
		case p <= 0.15:
			return 4 + r.Intn(4)
		case p <= 0.30:
			return 8 + r.Intn(8)
		case p <= 0.45:
			return 16 + r.Intn(16)
		case p <= 0.60:
			return 32 + r.Intn(32)
		case p <= 0.75:
			return 64 + r.Intn(64)
		case p <= 0.90:
			return 128 + r.Intn(128)
		default:
			return 256 + r.Intn(256)
		}
	}
	randDist := func() (d int) {
		for d == 0 || d > len(b) {
			// Distances are spread over power-of-two ranges up to 32KiB.
			shift := uint(r.Intn(15))
			d = 1<<shift + r.Intn(1<<shift)
		}
		return d
	}
	writeRand := func(l int) {
		b = append(b, r.Bytes(l)...)
	}
	writeCopy := func(d, l int) {
		for i := 0; i < l; i++ {
			b = append(b, b[len(b)-d])
		}
	}

	writeRand(randLen())
	for len(b) < n {
		switch p := prob(); {
		case p <= 0.1:
			writeRand(randLen())
		default:
			writeCopy(randDist(), randLen())
		}
	}
	return b[:n]
}
