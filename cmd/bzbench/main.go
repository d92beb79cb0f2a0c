// Copyright 2015, Joe Tsai. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Benchmark tool to compare performance between multiple compression
// implementations. Individual implementations are referred to as codecs.
//
// Example usage:
//	$ go build -o bzbench ./cmd/bzbench
//	$ ./bzbench \
//		-formats bz2             \
//		-tests   encRate,decRate \
//		-codecs  std,ds,dsp      \
//		-inputs  text,digits     \
//		-levels  1,6,9           \
//		-sizes   1e4,1e5,1e6
//
// Results are printed to stdout as a table where each delta is relative to
// the first codec listed. Progress and failures are logged to stderr.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	strconv "github.com/dsnet/golib/unitconv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gobzip/compress/internal/tool/bench"
)

const (
	defaultLevels = "1,6,9"
	defaultSizes  = "1e4,1e5,1e6"
)

// The decompression speed benchmark works by decompressing some pre-compressed
// data. In order for the benchmarks to be consistent, the same encoder should
// be used to generate the pre-compressed data for all the trials.
//
// encRefs defines the priority order for which encoders to choose first as the
// reference compressor. If no compressor is found for any of the listed codecs,
// then a random encoder will be chosen.
var encRefs = []string{"std", "ds", "kp", "uk"}

var (
	fmtToEnum = map[string]bench.Format{
		bench.FormatBZ2.String():   bench.FormatBZ2,
		bench.FormatFlate.String(): bench.FormatFlate,
		bench.FormatXZ.String():    bench.FormatXZ,
		bench.FormatZstd.String():  bench.FormatZstd,
	}
	testToEnum = map[string]bench.Test{
		bench.TestEncodeRate.String():    bench.TestEncodeRate,
		bench.TestDecodeRate.String():    bench.TestDecodeRate,
		bench.TestCompressRatio.String(): bench.TestCompressRatio,
	}
)

var log *zap.SugaredLogger

func newLogger(debug, json bool) (*zap.SugaredLogger, error) {
	var conf zap.Config
	if json {
		conf = zap.NewProductionConfig()
	} else {
		conf = zap.NewDevelopmentConfig()
		conf.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		conf.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	conf.OutputPaths = []string{"stderr"}
	if debug {
		conf.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	logger, err := conf.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger.Sugar(), nil
}

func defaultTests() string {
	return strings.Join([]string{
		bench.TestEncodeRate.String(),
		bench.TestDecodeRate.String(),
		bench.TestCompressRatio.String(),
	}, ",")
}

func defaultCodecs() string {
	m := make(map[string]bool)
	for _, v := range bench.Encoders {
		for k := range v {
			m[k] = true
		}
	}
	for _, v := range bench.Decoders {
		for k := range v {
			m[k] = true
		}
	}
	hasStd := m["std"]
	delete(m, "std")
	var s []string
	for k := range m {
		s = append(s, k)
	}
	sort.Strings(s)
	if hasStd {
		s = append([]string{"std"}, s...) // Ensure "std" always appears first
	}
	return strings.Join(s, ",")
}

func defaultFormats() string {
	m := make(map[bench.Format]bool)
	for k := range bench.Encoders {
		m[k] = true
	}
	for k := range bench.Decoders {
		m[k] = true
	}
	var d []int
	for k := range m {
		d = append(d, int(k))
	}
	sort.Ints(d)
	var s []string
	for _, v := range d {
		s = append(s, bench.Format(v).String())
	}
	return strings.Join(s, ",")
}

func main() {
	// Setup flag arguments.
	f0 := flag.String("formats", defaultFormats(), "List of formats to benchmark")
	f1 := flag.String("tests", defaultTests(), "List of different benchmark tests")
	f2 := flag.String("codecs", defaultCodecs(), "List of codecs to benchmark")
	f3 := flag.String("inputs", strings.Join(bench.InputNames(), ","), "List of generated inputs to benchmark")
	f4 := flag.String("levels", defaultLevels, "List of compression levels to benchmark")
	f5 := flag.String("sizes", defaultSizes, "List of input sizes to benchmark")
	debug := flag.Bool("debug", false, "Enable debug logging")
	json := flag.Bool("json", false, "Log in JSON format")
	flag.Parse()

	var err error
	if log, err = newLogger(*debug, *json); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	// Parse the flag arguments.
	var sep = regexp.MustCompile("[,:]")
	var codecs, inputs []string
	var formats []bench.Format
	var tests []bench.Test
	var levels, sizes []int
	codecs = sep.Split(*f2, -1)
	for _, s := range sep.Split(*f3, -1) {
		if _, ok := bench.Inputs[s]; !ok {
			log.Fatalw("invalid input", "input", s)
		}
		inputs = append(inputs, s)
	}
	for _, s := range sep.Split(*f0, -1) {
		if _, ok := fmtToEnum[s]; !ok {
			log.Fatalw("invalid format", "format", s)
		}
		formats = append(formats, fmtToEnum[s])
	}
	for _, s := range sep.Split(*f1, -1) {
		if _, ok := testToEnum[s]; !ok {
			log.Fatalw("invalid test", "test", s)
		}
		tests = append(tests, testToEnum[s])
	}
	for _, s := range sep.Split(*f4, -1) {
		lvl, err := strconv.ParsePrefix(s, strconv.AutoParse)
		if err != nil {
			log.Fatalw("invalid level", "level", s, "error", err)
		}
		levels = append(levels, int(lvl))
	}
	for _, s := range sep.Split(*f5, -1) {
		nf, err := strconv.ParsePrefix(s, strconv.AutoParse)
		if err != nil || nf < 0 {
			log.Fatalw("invalid size", "size", s, "error", err)
		}
		sizes = append(sizes, int(nf))
	}
	log.Debugw("configuration",
		"formats", formats, "tests", tests, "codecs", codecs,
		"inputs", inputs, "levels", levels, "sizes", sizes)

	ts := time.Now()
	runBenchmarks(inputs, codecs, formats, tests, levels, sizes)
	log.Infow("benchmarks complete", "runtime", time.Since(ts))
}

func runBenchmarks(inputs, codecs []string, formats []bench.Format, tests []bench.Test, levels, sizes []int) {
	for _, f := range formats {
		// Get lists of encoders and decoders that exist.
		var encs, decs []string
		for _, c := range codecs {
			if _, ok := bench.Encoders[f][c]; ok {
				encs = append(encs, c)
			}
		}
		for _, c := range codecs {
			if _, ok := bench.Decoders[f][c]; ok {
				decs = append(decs, c)
			}
		}

		for _, t := range tests {
			var results [][]bench.Result
			var names, codecs []string
			var title, suffix string

			// Check that we can actually do this bench.
			fmt.Printf("BENCHMARK: %v:%v\n", f, t)
			if len(encs) == 0 {
				log.Warnw("skipping benchmark: no encoders available", "format", f, "test", t)
				fmt.Println()
				continue
			}
			if len(decs) == 0 && t == bench.TestDecodeRate {
				log.Warnw("skipping benchmark: no decoders available", "format", f, "test", t)
				fmt.Println()
				continue
			}

			// Progress ticker.
			var cnt int
			tick := func() {
				total := len(codecs) * len(inputs) * len(levels) * len(sizes)
				log.Debugw("progress", "format", f, "test", t, "done", cnt, "total", total)
				cnt++
			}

			// Perform the bench. This may take some time.
			switch t {
			case bench.TestEncodeRate:
				codecs, title, suffix = encs, "MB/s", ""
				results, names = bench.BenchmarkEncoderSuite(f, encs, inputs, levels, sizes, tick)
			case bench.TestDecodeRate:
				ref := getReferenceEncoder(f)
				codecs, title, suffix = decs, "MB/s", ""
				results, names = bench.BenchmarkDecoderSuite(f, decs, inputs, levels, sizes, ref, tick)
			case bench.TestCompressRatio:
				codecs, title, suffix = encs, "ratio", "x"
				results, names = bench.BenchmarkRatioSuite(f, encs, inputs, levels, sizes, tick)
			default:
				log.Fatalw("unknown test", "test", t)
			}

			// Print all of the results.
			printResults(results, names, codecs, title, suffix)
			fmt.Println()
		}
		fmt.Println()
	}
}

func getReferenceEncoder(f bench.Format) bench.Encoder {
	for _, c := range encRefs {
		if enc, ok := bench.Encoders[f][c]; ok {
			return enc // Choose by priority
		}
	}
	for _, enc := range bench.Encoders[f] {
		return enc // Choose any random encoder
	}
	return nil // There are no encoders
}

func printResults(results [][]bench.Result, names, codecs []string, title, suffix string) {
	// Allocate result table.
	cells := make([][]string, 1+len(names))
	for i := range cells {
		cells[i] = make([]string, 1+2*len(codecs))
	}

	// Label the first row.
	cells[0][0] = "benchmark"
	for i, c := range codecs {
		cells[0][1+2*i] = c + " " + title
		cells[0][2+2*i] = "delta"
	}

	// Insert all rows.
	for j, row := range results {
		cells[1+j][0] = names[j]
		for i, r := range row {
			if r.R != 0 && !math.IsNaN(r.R) && !math.IsInf(r.R, 0) {
				cells[1+j][1+2*i] = fmt.Sprintf("%.2f", r.R) + suffix
			}
			if r.D != 0 && !math.IsNaN(r.D) && !math.IsInf(r.D, 0) {
				cells[1+j][2+2*i] = fmt.Sprintf("%.2f", r.D) + "x"
			}
		}
	}

	// Compute the maximum lengths.
	maxLens := make([]int, 1+2*len(codecs))
	for _, row := range cells {
		for i, s := range row {
			if maxLens[i] < len(s) {
				maxLens[i] = len(s)
			}
		}
	}

	// Print padded versions of all cells.
	for _, row := range cells {
		var sb strings.Builder
		sb.WriteString("\t")
		for i, s := range row {
			switch {
			case i == 0:
				sb.WriteString(s + strings.Repeat(" ", maxLens[i]-len(s)))
			case i%2 == 1: // Rate or ratio columns
				sb.WriteString(strings.Repeat(" ", 6+maxLens[i]-len(s)) + s)
			default: // Delta columns
				sb.WriteString(strings.Repeat(" ", 2+maxLens[i]-len(s)) + s)
			}
		}
		fmt.Println(sb.String())
	}
}
