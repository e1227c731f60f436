package compressor

import (
	"fmt"
	"runtime"

	"github.com/klauspost/compress/zstd"
)

// zstdCodec wraps klauspost/compress's streaming zstd encoder/decoder as a
// streamCodec, grounded on sneller's zstdCompressor/zstdDecompressor pair.
type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec() *zstdCodec {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		panic(err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(runtime.GOMAXPROCS(0)))
	if err != nil {
		panic(err)
	}
	return &zstdCodec{enc: enc, dec: dec}
}

func (z *zstdCodec) name() string { return "zstd" }

func (z *zstdCodec) compressBlock(src []byte) ([]byte, error) {
	return z.enc.EncodeAll(src, nil), nil
}

func (z *zstdCodec) decompressBlock(src []byte, uncompressedSize int) ([]byte, error) {
	dst := make([]byte, 0, uncompressedSize)
	ret, err := z.dec.DecodeAll(src, dst)
	if err != nil {
		return nil, err
	}
	if len(ret) != uncompressedSize {
		return nil, fmt.Errorf("zstd: expected %d bytes, got %d", uncompressedSize, len(ret))
	}
	return ret, nil
}

func init() {
	Register("block-zstd", func(dataCapacityBytes, elementCount int) Compressor {
		return newBlockCompressor(newZstdCodec(), defaultBlockSize)
	})
}

// NewBlockZstd builds a block-codec Compressor backed by zstd, with a
// configurable block size (in bytes).
func NewBlockZstd(blockSize int) Compressor {
	return newBlockCompressor(newZstdCodec(), blockSize)
}
