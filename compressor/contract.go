// Package compressor hosts the Compressor contract shared by OnPair, a raw
// fallback, and block codecs wrapping third-party stream compressors. All
// variants support the same life cycle: Compress once, then any number of
// GetItemAt/Decompress calls against the immutable result.
package compressor

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a caller's output buffer is smaller than
// the decompressed length it must hold.
var ErrShortBuffer = errors.New("compressor: output buffer too small")

// ErrIndexOutOfRange is returned by GetItemAt for an index outside [0, N).
var ErrIndexOutOfRange = errors.New("compressor: index out of range")

// ErrNotCompressed is returned when Decompress or GetItemAt is called before
// Compress.
var ErrNotCompressed = errors.New("compressor: Compress has not been called")

// Compressor is the uniform contract every codec variant in this package
// satisfies: Raw, the block codecs over zstd/s2/lz4, and the OnPair adapter.
//
// Compress must be called exactly once before Decompress or GetItemAt.
// Concurrent mutation of a single instance is not supported; concurrent
// read-only calls after Compress are safe provided each caller supplies its
// own output buffer.
type Compressor interface {
	// Compress ingests the concatenation of all items in data, delimited by
	// endOffsets (a prefix-sum array of length N+1 with endOffsets[0] == 0).
	Compress(data []byte, endOffsets []int) error

	// Decompress writes every item, in order, into out and returns the
	// number of bytes written. Returns ErrShortBuffer if out is too small.
	Decompress(out []byte) (int, error)

	// GetItemAt writes the item at index into out and returns its length.
	// Returns ErrIndexOutOfRange if index is outside [0, N), ErrShortBuffer
	// if out is too small.
	GetItemAt(index int, out []byte) (int, error)

	// SpaceUsedBytes reports the total memory footprint of the compressed
	// representation.
	SpaceUsedBytes() int

	// Name identifies the codec, e.g. "raw", "onpair", "block-zstd".
	Name() string
}

// Constructor builds an empty Compressor sized for the given capacity hints.
// dataCapacityBytes and elementCount are advisory; every backend must accept
// more than it was sized for.
type Constructor func(dataCapacityBytes, elementCount int) Compressor

var registry = map[string]Constructor{}

// Register adds a named backend to the registry consulted by New. Called
// from each backend's init function.
func Register(name string, ctor Constructor) {
	registry[name] = ctor
}

// New builds a Compressor by registered name. Matches spec.md's family-name
// factory (onpair, onpair16, raw, block-zstd, block-s2, block-lz4) while
// keeping each backend's own constructor concrete, per Go's
// accept-concrete-constructor/return-interface idiom.
func New(name string, dataCapacityBytes, elementCount int) (Compressor, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("compressor: unknown codec %q", name)
	}
	return ctor(dataCapacityBytes, elementCount), nil
}

// Names returns every codec name currently registered, for CLI help text and
// "run every codec" benchmark sweeps.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
