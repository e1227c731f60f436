package compressor

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// s2Codec wraps klauspost/compress/s2 (the Snappy-compatible codec named
// "Snappy" in spec.md's variant list) as a streamCodec.
type s2Codec struct{}

func (s2Codec) name() string { return "s2" }

func (s2Codec) compressBlock(src []byte) ([]byte, error) {
	return s2.Encode(nil, src), nil
}

func (s2Codec) decompressBlock(src []byte, uncompressedSize int) ([]byte, error) {
	dst := make([]byte, uncompressedSize)
	ret, err := s2.Decode(dst, src)
	if err != nil {
		return nil, err
	}
	if len(ret) != uncompressedSize {
		return nil, fmt.Errorf("s2: expected %d bytes, got %d", uncompressedSize, len(ret))
	}
	return ret, nil
}

func init() {
	Register("block-s2", func(dataCapacityBytes, elementCount int) Compressor {
		return newBlockCompressor(s2Codec{}, defaultBlockSize)
	})
}

// NewBlockS2 builds a block-codec Compressor backed by s2.
func NewBlockS2(blockSize int) Compressor {
	return newBlockCompressor(s2Codec{}, blockSize)
}
