// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

//go:build !no_uk_lib

package bench

import (
	"io"

	"github.com/ulikunitz/xz"
)

// The xz package has no notion of levels, so the level selects the
// dictionary size the way xz-utils presets do.
func xzDictCap(lvl int) int {
	switch {
	case lvl <= 1:
		return 1 << 20
	case lvl <= 5:
		return 1 << 22
	default:
		return 1 << 23
	}
}

func init() {
	RegisterEncoder(FormatXZ, "uk",
		func(w io.Writer, lvl int) io.WriteCloser {
			conf := xz.WriterConfig{DictCap: xzDictCap(lvl)}
			zw, err := conf.NewWriter(w)
			if err != nil {
				panic(err)
			}
			return zw
		})
	RegisterDecoder(FormatXZ, "uk",
		func(r io.Reader) io.ReadCloser {
			zr, err := xz.NewReader(r)
			if err != nil {
				panic(err)
			}
			return io.NopCloser(zr)
		})
}
