package compressor

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// lz4Codec wraps pierrec/lz4's block-level API (CompressBlock/
// UncompressBlock), the third stream-codec backend completing spec.md's
// {LZ4, Zstd, Snappy} trio.
type lz4Codec struct {
	hashTable []int
}

func newLZ4Codec() *lz4Codec {
	return &lz4Codec{hashTable: make([]int, 1<<16)}
}

func (l *lz4Codec) name() string { return "lz4" }

func (l *lz4Codec) compressBlock(src []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	for i := range l.hashTable {
		l.hashTable[i] = 0
	}
	n, err := lz4.CompressBlock(src, dst, l.hashTable)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// Incompressible block: lz4.CompressBlock signals this by
		// returning 0 with no error. Store the raw bytes behind a 0 tag
		// byte (compressed blocks carry a 1 tag); decode returns the
		// payload of a 0-tagged block as is.
		return append([]byte{0}, src...), nil
	}
	return append([]byte{1}, dst[:n]...), nil
}

func (l *lz4Codec) decompressBlock(src []byte, uncompressedSize int) ([]byte, error) {
	if len(src) == 0 {
		return nil, fmt.Errorf("lz4: empty compressed block")
	}
	tag, payload := src[0], src[1:]
	if tag == 0 {
		return payload, nil
	}
	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(payload, dst)
	if err != nil {
		return nil, err
	}
	if n != uncompressedSize {
		return nil, fmt.Errorf("lz4: expected %d bytes, got %d", uncompressedSize, n)
	}
	return dst, nil
}

func init() {
	Register("block-lz4", func(dataCapacityBytes, elementCount int) Compressor {
		return newBlockCompressor(newLZ4Codec(), defaultBlockSize)
	})
}

// NewBlockLZ4 builds a block-codec Compressor backed by lz4.
func NewBlockLZ4(blockSize int) Compressor {
	return newBlockCompressor(newLZ4Codec(), blockSize)
}
