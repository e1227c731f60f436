// Package dataset loads the JSON fixtures the benchmark harness (cmd/bench)
// measures compressors against, and reports the per-run results it collects.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Dataset is a named collection of rows plus a set of row indices to probe
// during random-access benchmarking.
type Dataset struct {
	Name    string   `json:"dataset_name"`
	Rows    []string `json:"data"`
	Queries []int    `json:"queries"`
}

// Load reads a single dataset from a JSON file.
func Load(path string) (*Dataset, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %s: %w", path, err)
	}

	var ds Dataset
	if err := json.Unmarshal(content, &ds); err != nil {
		return nil, fmt.Errorf("dataset: parse %s: %w", path, err)
	}
	return &ds, nil
}

// LoadDir loads every *.json dataset in dir.
func LoadDir(dir string) ([]*Dataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("dataset: read dir %s: %w", dir, err)
	}

	var datasets []*Dataset
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		ds, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// Flatten concatenates every row into a single byte slice and returns the
// cumulative end offset of each row, with a leading 0 — the shape every
// Compressor.Compress implementation expects.
func (d *Dataset) Flatten() (data []byte, endOffsets []int) {
	total := 0
	for _, row := range d.Rows {
		total += len(row)
	}

	data = make([]byte, 0, total)
	endOffsets = make([]int, 0, len(d.Rows)+1)
	endOffsets = append(endOffsets, 0)
	for _, row := range d.Rows {
		data = append(data, row...)
		endOffsets = append(endOffsets, len(data))
	}
	return data, endOffsets
}

// BenchmarkResult is one compressor-on-dataset measurement, reported by
// cmd/bench and appended to its output JSON file.
type BenchmarkResult struct {
	DatasetName             string  `json:"dataset_name"`
	CompressorName          string  `json:"compressor_name"`
	CompressionRate         float64 `json:"compression_rate"`
	CompressionSpeedMiBps   float64 `json:"compression_speed"`
	DecompressionSpeedMiBps float64 `json:"decompression_speed"`
	RandomAccessSpeedMiBps  float64 `json:"random_access_speed"`
	AverageRandomAccessTime float64 `json:"average_random_access_time"`
}

// AppendResultToFile loads any existing results at path, appends result, and
// writes the combined list back as pretty-printed JSON.
func AppendResultToFile(result BenchmarkResult, path string) error {
	var results []BenchmarkResult
	if existing, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(existing, &results); err != nil {
			return fmt.Errorf("dataset: parse existing results %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("dataset: read %s: %w", path, err)
	}

	results = append(results, result)

	encoded, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("dataset: encode results: %w", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("dataset: write %s: %w", path, err)
	}
	return nil
}
