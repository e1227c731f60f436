// Command bench measures compressor implementations against JSON datasets:
// compression ratio, compression/decompression throughput, and random-access
// latency, mirroring the benchmark harness' original CLI contract.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/onpair-db/onpair/compressor"
	"github.com/onpair-db/onpair/dataset"
)

var logger = log.New(os.Stderr, "bench: ", 0)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "single":
		err = runSingle(os.Args[2:])
	case "all":
		err = runAll(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		logger.Println(err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  bench single <dataset_path> <codec_name> <output_json> [core_id]")
	fmt.Fprintln(os.Stderr, "  bench all <directory> <output_json>")
	fmt.Fprintf(os.Stderr, "Registered codecs: %v\n", compressor.Names())
}

func runSingle(args []string) error {
	fs := flag.NewFlagSet("single", flag.ExitOnError)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 3 {
		usage()
		os.Exit(1)
	}
	datasetPath, codecName, outputFile := rest[0], rest[1], rest[2]
	if len(rest) > 3 {
		logger.Printf("core_id %s ignored: this build has no CPU-pinning support", rest[3])
	}

	ds, err := dataset.Load(datasetPath)
	if err != nil {
		return err
	}

	result, err := benchmarkOne(ds, codecName)
	if err != nil {
		return fmt.Errorf("%s on %s: %w", codecName, ds.Name, err)
	}

	logger.Printf("%s/%s: ratio=%.2f compress=%.1f MiB/s decompress=%.1f MiB/s random_access=%.1f MiB/s",
		ds.Name, codecName, result.CompressionRate, result.CompressionSpeedMiBps,
		result.DecompressionSpeedMiBps, result.RandomAccessSpeedMiBps)

	return dataset.AppendResultToFile(result, outputFile)
}

func runAll(args []string) error {
	fs := flag.NewFlagSet("all", flag.ExitOnError)
	fs.Parse(args)
	rest := fs.Args()
	if len(rest) < 2 {
		usage()
		os.Exit(1)
	}
	dir, outputFile := rest[0], rest[1]

	datasets, err := dataset.LoadDir(dir)
	if err != nil {
		return err
	}

	for _, ds := range datasets {
		for _, codecName := range compressor.Names() {
			result, err := benchmarkOne(ds, codecName)
			if err != nil {
				return fmt.Errorf("%s on %s: %w", codecName, ds.Name, err)
			}
			logger.Printf("%s/%s: ratio=%.2f compress=%.1f MiB/s decompress=%.1f MiB/s random_access=%.1f MiB/s",
				ds.Name, codecName, result.CompressionRate, result.CompressionSpeedMiBps,
				result.DecompressionSpeedMiBps, result.RandomAccessSpeedMiBps)
			if err := dataset.AppendResultToFile(result, outputFile); err != nil {
				return err
			}
		}
	}
	return nil
}

// benchmarkOne runs the full compress/decompress/random-access cycle for one
// (dataset, codec) pair and validates every decoded byte against the
// original, matching the original harness's correctness-checked benchmark.
func benchmarkOne(ds *dataset.Dataset, codecName string) (dataset.BenchmarkResult, error) {
	data, endOffsets := ds.Flatten()

	c, err := compressor.New(codecName, len(data), len(endOffsets)-1)
	if err != nil {
		return dataset.BenchmarkResult{}, err
	}

	dataBytes := float64(len(data))
	randomAccessBytes := 0
	for _, i := range ds.Queries {
		prev := 0
		if i > 0 {
			prev = endOffsets[i]
		}
		randomAccessBytes += endOffsets[i+1] - prev
	}

	start := time.Now()
	if err := c.Compress(data, endOffsets); err != nil {
		return dataset.BenchmarkResult{}, fmt.Errorf("compress: %w", err)
	}
	compressionTime := time.Since(start).Seconds()
	compressionRate := dataBytes / float64(c.SpaceUsedBytes())
	compressionSpeed := (dataBytes / (1024 * 1024)) / compressionTime

	buffer := make([]byte, len(data))
	start = time.Now()
	n, err := c.Decompress(buffer)
	if err != nil {
		return dataset.BenchmarkResult{}, fmt.Errorf("decompress: %w", err)
	}
	decompressionTime := time.Since(start).Seconds()
	decompressionSpeed := (dataBytes / (1024 * 1024)) / decompressionTime

	if n != len(data) || string(buffer[:n]) != string(data) {
		return dataset.BenchmarkResult{}, fmt.Errorf("decompressed output mismatch")
	}

	var randomAccessTimes []float64
	itemBuf := make([]byte, 0, 1024)
	for _, query := range ds.Queries {
		want := ds.Rows[query]
		if cap(itemBuf) < len(want) {
			itemBuf = make([]byte, len(want))
		}
		start := time.Now()
		n, err := c.GetItemAt(query, itemBuf[:len(want)])
		elapsed := time.Since(start).Seconds()
		if err != nil {
			return dataset.BenchmarkResult{}, fmt.Errorf("get item at %d: %w", query, err)
		}
		if string(itemBuf[:n]) != want {
			return dataset.BenchmarkResult{}, fmt.Errorf("item %d mismatch", query)
		}
		randomAccessTimes = append(randomAccessTimes, elapsed)
	}

	var totalRandomAccessTime float64
	for _, t := range randomAccessTimes {
		totalRandomAccessTime += t
	}
	var randomAccessSpeed, averageRandomAccessTime float64
	if len(randomAccessTimes) > 0 {
		randomAccessSpeed = (float64(randomAccessBytes) / (1024 * 1024)) / totalRandomAccessTime
		averageRandomAccessTime = totalRandomAccessTime / float64(len(randomAccessTimes))
	}

	return dataset.BenchmarkResult{
		DatasetName:             ds.Name,
		CompressorName:          c.Name(),
		CompressionRate:         compressionRate,
		CompressionSpeedMiBps:   compressionSpeed,
		DecompressionSpeedMiBps: decompressionSpeed,
		RandomAccessSpeedMiBps:  randomAccessSpeed,
		AverageRandomAccessTime: averageRandomAccessTime,
	}, nil
}
