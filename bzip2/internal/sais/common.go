// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package sais implements a linear time suffix array algorithm.
package sais

// The algorithm is the suffix array by induced sorting (SA-IS) method of
// Nong, Zhang, and Chan. The text is terminated by a virtual sentinel that
// is smaller than every symbol and is never stored.
//
// A single generic implementation serves both the byte input and the int32
// reduced strings produced during recursion. All bookkeeping lives in flat
// int32 arrays indexed by position; no per-suffix objects are allocated.
//
// References:
//	https://sites.google.com/site/yuta256/sais
//	https://ge-nong.googlecode.com/files/Two%20Efficient%20Algorithms%20for%20Linear%20Time%20Suffix%20Array%20Construction.pdf

// ComputeSA computes the suffix array of T and places the result in SA.
// Both T and SA must be the same length.
func ComputeSA(T []byte, SA []int32) {
	if len(SA) != len(T) {
		panic("mismatching sizes")
	}
	computeSA(T, SA, 256)
}
