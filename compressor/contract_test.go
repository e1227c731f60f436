package compressor_test

import (
	"testing"

	"github.com/onpair-db/onpair/compressor"
)

func flatten(rows []string) ([]byte, []int) {
	data := make([]byte, 0)
	endOffsets := []int{0}
	for _, r := range rows {
		data = append(data, r...)
		endOffsets = append(endOffsets, len(data))
	}
	return data, endOffsets
}

var testRows = []string{
	"user_000001",
	"user_000002",
	"user_000003",
	"admin_001",
	"user_000004",
	"",
	"the quick brown fox jumps over the lazy dog",
}

func TestAllBackendsRoundTrip(t *testing.T) {
	data, endOffsets := flatten(testRows)

	for _, name := range compressor.Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			c, err := compressor.New(name, len(data), len(testRows))
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}
			if err := c.Compress(data, endOffsets); err != nil {
				t.Fatalf("Compress: %v", err)
			}
			if got := c.Name(); got == "" {
				t.Fatalf("Name() returned empty string")
			}

			buf := make([]byte, len(data))
			n, err := c.Decompress(buf)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if string(buf[:n]) != string(data) {
				t.Fatalf("Decompress mismatch: got %q want %q", buf[:n], data)
			}

			for i, row := range testRows {
				itemBuf := make([]byte, len(row))
				n, err := c.GetItemAt(i, itemBuf)
				if err != nil {
					t.Fatalf("GetItemAt(%d): %v", i, err)
				}
				if string(itemBuf[:n]) != row {
					t.Fatalf("GetItemAt(%d) = %q, want %q", i, itemBuf[:n], row)
				}
			}

			if _, err := c.GetItemAt(len(testRows), make([]byte, 1)); err != compressor.ErrIndexOutOfRange {
				t.Fatalf("GetItemAt out of range: got %v, want ErrIndexOutOfRange", err)
			}

			if su := c.SpaceUsedBytes(); su <= 0 {
				t.Fatalf("SpaceUsedBytes() = %d, want > 0", su)
			}
		})
	}
}

func TestNewUnknownCodec(t *testing.T) {
	if _, err := compressor.New("does-not-exist", 0, 0); err == nil {
		t.Fatal("expected error for unknown codec name")
	}
}

func TestShortBufferErrors(t *testing.T) {
	data, endOffsets := flatten(testRows)

	for _, name := range compressor.Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			c, err := compressor.New(name, len(data), len(testRows))
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}
			if err := c.Compress(data, endOffsets); err != nil {
				t.Fatalf("Compress: %v", err)
			}

			if _, err := c.Decompress(make([]byte, 0)); err != compressor.ErrShortBuffer {
				t.Fatalf("Decompress short buffer: got %v, want ErrShortBuffer", err)
			}
			if _, err := c.GetItemAt(0, make([]byte, 0)); err != compressor.ErrShortBuffer {
				t.Fatalf("GetItemAt short buffer: got %v, want ErrShortBuffer", err)
			}
		})
	}
}

func TestNotCompressedBeforeCompress(t *testing.T) {
	for _, name := range compressor.Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			c, err := compressor.New(name, 0, 0)
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}
			if _, err := c.Decompress(nil); err != compressor.ErrNotCompressed {
				t.Fatalf("Decompress before Compress: got %v, want ErrNotCompressed", err)
			}
			if _, err := c.GetItemAt(0, nil); err != compressor.ErrNotCompressed {
				t.Fatalf("GetItemAt before Compress: got %v, want ErrNotCompressed", err)
			}
		})
	}
}
