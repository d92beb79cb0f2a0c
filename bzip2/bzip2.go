// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package bzip2

import (
	"bytes"
	"io"
)

// Compress returns data compressed as a single stream at the given level.
// A level of zero selects DefaultCompression.
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := NewWriter(&buf, &WriterConfig{Level: level})
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress returns the concatenated contents of every stream in data.
func Decompress(data []byte) ([]byte, error) {
	zr, err := NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, err
	}
	return out, zr.Close()
}

// Verify decompresses every stream in r and discards the output.
// It reports the number of decompressed bytes and the first error found.
func Verify(r io.Reader) (int64, error) {
	zr, err := NewReader(r, nil)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(io.Discard, zr)
	if err != nil {
		return n, err
	}
	return n, zr.Close()
}
