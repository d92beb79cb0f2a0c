// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package sais

import (
	"bytes"
	"sort"
	"strings"
	"testing"

	"github.com/gobzip/compress/internal/testutil"
)

func naiveSA(t []byte) []int32 {
	sa := make([]int32, len(t))
	for i := range sa {
		sa[i] = int32(i)
	}
	sort.Slice(sa, func(i, j int) bool {
		return bytes.Compare(t[sa[i]:], t[sa[j]:]) < 0
	})
	return sa
}

func TestComputeSA(t *testing.T) {
	var vectors = []string{
		"",
		"a",
		"aa",
		"ab",
		"ba",
		"banana",
		"mississippi",
		"abracadabra",
		"aaaaaaaaaaaaaaaa",
		"abababababababab",
		"cbacbacbacbacba",
		"zyxwvutsrqponmlkjihgfedcba",
		"abcdefghijklmnopqrstuvwxyz",
		"SIX.MIXED.PIXIES.SIFT.SIXTY.PIXIE.DUST.BOXES",
		strings.Repeat("abcab", 50) + "\x00\xff\x00",
		"\x00\x00\x01\x00\x00\x01\x00\x00\x01\x00",
	}

	r := testutil.NewRand(0)
	for i := 0; i < 100; i++ {
		b := r.Bytes(1 + r.Intn(300))
		for j := range b {
			b[j] %= byte(1 + i%4) // Small alphabets produce deep recursion
		}
		vectors = append(vectors, string(b))
	}
	vectors = append(vectors, string(testutil.Repeats(1<<14)), string(testutil.Text(1<<14)))

	for i, v := range vectors {
		sa := make([]int32, len(v))
		ComputeSA([]byte(v), sa)
		want := naiveSA([]byte(v))
		for j := range sa {
			if sa[j] != want[j] {
				t.Errorf("test %d, mismatch at index %d: got %d, want %d", i, j, sa[j], want[j])
				break
			}
		}
	}
}

func TestComputeSASizeMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("unexpected success")
		}
	}()
	ComputeSA([]byte("abc"), make([]int32, 2))
}

func BenchmarkComputeSA(b *testing.B) {
	t := testutil.Text(1 << 20)
	sa := make([]int32, len(t))
	b.SetBytes(int64(len(t)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeSA(t, sa)
	}
}
