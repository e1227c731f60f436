package main

import (
	"testing"

	"github.com/onpair-db/onpair/dataset"
)

func TestBenchmarkOneRaw(t *testing.T) {
	ds := &dataset.Dataset{
		Name:    "inline",
		Rows:    []string{"alpha", "beta", "gamma", "delta"},
		Queries: []int{0, 2, 3},
	}

	result, err := benchmarkOne(ds, "raw")
	if err != nil {
		t.Fatalf("benchmarkOne: %v", err)
	}
	if result.DatasetName != "inline" {
		t.Fatalf("DatasetName = %q, want %q", result.DatasetName, "inline")
	}
	if result.CompressorName != "raw" {
		t.Fatalf("CompressorName = %q, want %q", result.CompressorName, "raw")
	}
	if result.CompressionRate <= 0 {
		t.Fatalf("CompressionRate = %v, want > 0", result.CompressionRate)
	}
}

func TestBenchmarkOneUnknownCodec(t *testing.T) {
	ds := &dataset.Dataset{Name: "inline", Rows: []string{"a"}, Queries: []int{0}}
	if _, err := benchmarkOne(ds, "does-not-exist"); err == nil {
		t.Fatal("expected error for unknown codec")
	}
}
