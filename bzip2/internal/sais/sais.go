// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package sais

type symbol interface {
	~byte | ~int32
}

// computeSA computes the suffix array of T, whose symbols are all within
// 0..k-1, and stores it in SA.
func computeSA[S symbol](T []S, SA []int32, k int) {
	n := len(T)
	switch n {
	case 0:
		return
	case 1:
		SA[0] = 0
		return
	}

	// Classify each suffix. A suffix is S-type if it is smaller than the
	// suffix that follows it. The last suffix is L-type since it is larger
	// than the sentinel.
	isS := make([]bool, n)
	for i := n - 2; i >= 0; i-- {
		isS[i] = T[i] < T[i+1] || (T[i] == T[i+1] && isS[i+1])
	}
	isLMS := func(i int) bool { return i > 0 && isS[i] && !isS[i-1] }

	cnts := make([]int32, k)
	for _, c := range T {
		cnts[c]++
	}
	bkt := make([]int32, k)
	bucketStarts := func() {
		var sum int32
		for i, c := range cnts {
			bkt[i] = sum
			sum += c
		}
	}
	bucketEnds := func() {
		var sum int32
		for i, c := range cnts {
			sum += c
			bkt[i] = sum
		}
	}
	induce := func() {
		bucketStarts()
		c := T[n-1]
		SA[bkt[c]] = int32(n - 1)
		bkt[c]++
		for i := 0; i < n; i++ {
			if j := SA[i] - 1; j >= 0 && !isS[j] {
				c := T[j]
				SA[bkt[c]] = j
				bkt[c]++
			}
		}
		bucketEnds()
		for i := n - 1; i >= 0; i-- {
			if j := SA[i] - 1; j >= 0 && isS[j] {
				c := T[j]
				bkt[c]--
				SA[bkt[c]] = j
			}
		}
	}

	// Stage 1: Sort the LMS substrings by placing the LMS suffixes at the end
	// of their buckets and inducing the rest.
	for i := range SA {
		SA[i] = -1
	}
	bucketEnds()
	var n1 int
	for i := n - 1; i > 0; i-- {
		if isLMS(i) {
			c := T[i]
			bkt[c]--
			SA[bkt[c]] = int32(i)
			n1++
		}
	}
	induce()
	if n1 == 0 {
		return // Every suffix is L-type, so induction alone sorted them
	}

	// Stage 2: Compact the sorted LMS suffixes into SA[:n1] and name each LMS
	// substring by its rank, storing the names in SA[n1:] at index pos/2.
	// Two LMS positions are never adjacent, so the slots do not collide.
	var m int
	for i := 0; i < n; i++ {
		if p := int(SA[i]); isLMS(p) {
			SA[m] = int32(p)
			m++
		}
	}
	for i := n1; i < n; i++ {
		SA[i] = -1
	}
	var name int32
	prev := -1
	for i := 0; i < n1; i++ {
		pos := int(SA[i])
		diff := prev < 0
		for d := 0; !diff; d++ {
			if pos+d == n || prev+d == n || T[pos+d] != T[prev+d] || isS[pos+d] != isS[prev+d] {
				diff = true
			} else if d > 0 && isLMS(pos+d) {
				break // Reached the end of both substrings
			}
		}
		if diff {
			name++
		}
		prev = pos
		SA[n1+pos/2] = name - 1
	}
	j := n - 1
	for i := n - 1; i >= n1; i-- {
		if SA[i] >= 0 {
			SA[j] = SA[i]
			j--
		}
	}

	// Stage 3: Sort the reduced string. If all names are unique, the order
	// follows directly from the names; otherwise recurse.
	T1 := SA[n-n1:]
	SA1 := SA[:n1]
	if int(name) < n1 {
		computeSA(T1, SA1, int(name))
	} else {
		for i, c := range T1 {
			SA1[c] = int32(i)
		}
	}

	// Stage 4: Map the sorted reduced suffixes back to LMS positions, place
	// them at the end of their buckets in order, and induce the final array.
	j = 0
	for i := 1; i < n; i++ {
		if isLMS(i) {
			T1[j] = int32(i)
			j++
		}
	}
	for i := range SA1 {
		SA1[i] = T1[SA1[i]]
	}
	for i := n1; i < n; i++ {
		SA[i] = -1
	}
	bucketEnds()
	for i := n1 - 1; i >= 0; i-- {
		p := SA[i]
		SA[i] = -1
		c := T[p]
		bkt[c]--
		SA[bkt[c]] = p
	}
	induce()
}
