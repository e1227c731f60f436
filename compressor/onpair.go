package compressor

import (
	"errors"
	"fmt"

	"github.com/onpair-db/onpair"
)

// onpairCompressor adapts the onpair package's Encoder/Archive pair to the
// Compressor contract. It trains on the same data it compresses — there is
// no separate Train call in this interface, matching spec.md's single-shot
// Compress contract.
type onpairCompressor struct {
	name string
	opts []onpair.Option
	a    *onpair.Archive
}

func init() {
	Register("onpair", func(dataCapacityBytes, elementCount int) Compressor {
		return NewOnPair()
	})
	Register("onpair16", func(dataCapacityBytes, elementCount int) Compressor {
		return NewOnPair16()
	})
}

// NewOnPair builds a Compressor backed by the onpair package's wider,
// 20-bit token stream, matching spec.md's two named OnPair variants
// (K=16 vs K=20).
func NewOnPair(opts ...onpair.Option) Compressor {
	return &onpairCompressor{
		name: "onpair",
		opts: append([]onpair.Option{onpair.WithTokenBitWidth(20)}, opts...),
	}
}

// NewOnPair16 builds a Compressor constrained to a 16-bit token stream,
// matching spec.md's two named OnPair variants (K=16 vs K=20).
func NewOnPair16(opts ...onpair.Option) Compressor {
	return &onpairCompressor{
		name: "onpair16",
		opts: append([]onpair.Option{onpair.WithTokenBitWidth(16)}, opts...),
	}
}

func (c *onpairCompressor) Compress(data []byte, endOffsets []int) error {
	strings := splitByOffsets(data, endOffsets)
	enc := onpair.NewEncoder(c.opts...)
	archive, err := enc.Encode(strings)
	if err != nil {
		return fmt.Errorf("compressor: onpair encode: %w", err)
	}
	c.a = archive
	return nil
}

func (c *onpairCompressor) Decompress(out []byte) (int, error) {
	if c.a == nil {
		return 0, ErrNotCompressed
	}
	n, err := c.a.DecompressAllChecked(out)
	if err != nil {
		if errors.Is(err, onpair.ErrShortBuffer) {
			return 0, ErrShortBuffer
		}
		return 0, err
	}
	return n, nil
}

func (c *onpairCompressor) GetItemAt(index int, out []byte) (int, error) {
	if c.a == nil {
		return 0, ErrNotCompressed
	}
	if index < 0 || index >= c.a.Rows() {
		return 0, ErrIndexOutOfRange
	}
	n, err := c.a.DecompressString(index, out)
	if err != nil {
		if errors.Is(err, onpair.ErrShortBuffer) {
			return 0, ErrShortBuffer
		}
		return 0, err
	}
	return n, nil
}

func (c *onpairCompressor) SpaceUsedBytes() int {
	if c.a == nil {
		return 0
	}
	return c.a.SpaceUsed()
}

func (c *onpairCompressor) Name() string {
	return c.name
}

// splitByOffsets reconstructs the original []string view of a flattened
// (data, endOffsets) pair, since onpair.Encoder.Encode takes strings rather
// than a pre-flattened buffer.
func splitByOffsets(data []byte, endOffsets []int) []string {
	if len(endOffsets) == 0 {
		return nil
	}
	strs := make([]string, len(endOffsets)-1)
	for i := 0; i < len(strs); i++ {
		strs[i] = string(data[endOffsets[i]:endOffsets[i+1]])
	}
	return strs
}
