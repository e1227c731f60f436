package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeDataset(t *testing.T, dir, name string, ds Dataset) string {
	t.Helper()
	path := filepath.Join(dir, name)
	encoded, err := json.Marshal(ds)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeDataset(t, dir, "a.json", Dataset{
		Name:    "alpha",
		Rows:    []string{"foo", "bar", "baz"},
		Queries: []int{0, 2},
	})

	ds, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ds.Name != "alpha" || len(ds.Rows) != 3 || len(ds.Queries) != 2 {
		t.Fatalf("unexpected dataset: %+v", ds)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "a.json", Dataset{Name: "a", Rows: []string{"x"}})
	writeDataset(t, dir, "b.json", Dataset{Name: "b", Rows: []string{"y"}})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	datasets, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(datasets) != 2 {
		t.Fatalf("len(datasets) = %d, want 2", len(datasets))
	}
}

func TestFlatten(t *testing.T) {
	ds := Dataset{Rows: []string{"ab", "", "cde"}}
	data, endOffsets := ds.Flatten()

	if string(data) != "abcde" {
		t.Fatalf("data = %q, want %q", data, "abcde")
	}
	want := []int{0, 2, 2, 5}
	if len(endOffsets) != len(want) {
		t.Fatalf("endOffsets = %v, want %v", endOffsets, want)
	}
	for i := range want {
		if endOffsets[i] != want[i] {
			t.Fatalf("endOffsets[%d] = %d, want %d", i, endOffsets[i], want[i])
		}
	}
}

func TestAppendResultToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	if err := AppendResultToFile(BenchmarkResult{DatasetName: "a", CompressorName: "raw"}, path); err != nil {
		t.Fatalf("AppendResultToFile (first): %v", err)
	}
	if err := AppendResultToFile(BenchmarkResult{DatasetName: "b", CompressorName: "onpair"}, path); err != nil {
		t.Fatalf("AppendResultToFile (second): %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var results []BenchmarkResult
	if err := json.Unmarshal(content, &results); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].DatasetName != "a" || results[1].DatasetName != "b" {
		t.Fatalf("unexpected results: %+v", results)
	}
}
