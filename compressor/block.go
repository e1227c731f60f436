package compressor

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultBlockSize matches the original implementation's 64 KiB default; a
// good range per its own comment is 4 KiB-128 KiB.
const defaultBlockSize = 64 * 1024

// streamCodec is the minimal contract a whole-buffer compressor must satisfy
// to back blockCompressor. Each backend sizes its own scratch buffer inside
// compressBlock with whatever its library offers (zstd.Encoder.EncodeAll
// grows as needed, s2/lz4 expose explicit bound functions).
type streamCodec interface {
	name() string
	compressBlock(src []byte) ([]byte, error)
	decompressBlock(src []byte, uncompressedSize int) ([]byte, error)
}

// blockMetadata records one compressed block's placement, mirroring the
// original's BlockMetadata.
type blockMetadata struct {
	endPosition      int // cumulative compressed bytes through this block
	numItemsPSum     int // cumulative item count through this block
	uncompressedSize int
}

// blockCompressor implements item-aligned blocking atop a streamCodec,
// giving a whole-buffer stream compressor (zstd, s2, lz4) random access by
// never letting an item span a block boundary.
type blockCompressor struct {
	codec     streamCodec
	blockSize int

	compressedData   []byte
	blocks           []blockMetadata
	itemEndPositions []int
	cache            *lru.Cache[int, []byte]
}

func newBlockCompressor(codec streamCodec, blockSize int) *blockCompressor {
	if blockSize <= 0 {
		blockSize = defaultBlockSize
	}
	cache, err := lru.New[int, []byte](1)
	if err != nil {
		// Only returns an error for a non-positive size, which size=1 never
		// triggers.
		panic(err)
	}
	return &blockCompressor{codec: codec, blockSize: blockSize, cache: cache}
}

func (b *blockCompressor) Compress(data []byte, endOffsets []int) error {
	b.itemEndPositions = append([]int(nil), endOffsets...)
	b.compressedData = b.compressedData[:0]
	b.blocks = b.blocks[:0]

	blockStart := 0
	numItemsInBlock := 0
	currentBlockSize := 0
	itemStart := 0

	flush := func(blockEnd int) error {
		if numItemsInBlock == 0 {
			return nil
		}
		block := data[blockStart:blockEnd]
		compressed, err := b.codec.compressBlock(block)
		if err != nil {
			return fmt.Errorf("compressor: %s compress block: %w", b.codec.name(), err)
		}
		b.compressedData = append(b.compressedData, compressed...)

		prevEnd, prevItems := 0, 0
		if n := len(b.blocks); n > 0 {
			prevEnd = b.blocks[n-1].endPosition
			prevItems = b.blocks[n-1].numItemsPSum
		}
		b.blocks = append(b.blocks, blockMetadata{
			endPosition:      prevEnd + len(compressed),
			numItemsPSum:     prevItems + numItemsInBlock,
			uncompressedSize: len(block),
		})
		return nil
	}

	for _, itemEnd := range endOffsets[1:] {
		itemSize := itemEnd - itemStart
		if currentBlockSize+itemSize > b.blockSize && numItemsInBlock > 0 {
			if err := flush(itemStart); err != nil {
				return err
			}
			blockStart = itemStart
			numItemsInBlock = 0
			currentBlockSize = 0
		}
		currentBlockSize += itemSize
		numItemsInBlock++
		itemStart = itemEnd
	}
	return flush(itemStart)
}

func (b *blockCompressor) Decompress(out []byte) (int, error) {
	if b.itemEndPositions == nil {
		return 0, ErrNotCompressed
	}
	total := 0
	start := 0
	for _, meta := range b.blocks {
		end := meta.endPosition
		block, err := b.codec.decompressBlock(b.compressedData[start:end], meta.uncompressedSize)
		if err != nil {
			return 0, fmt.Errorf("compressor: %s decompress block: %w", b.codec.name(), err)
		}
		if total+len(block) > len(out) {
			return 0, ErrShortBuffer
		}
		copy(out[total:], block)
		total += len(block)
		start = end
	}
	return total, nil
}

func (b *blockCompressor) GetItemAt(index int, out []byte) (int, error) {
	if b.itemEndPositions == nil {
		return 0, ErrNotCompressed
	}
	if index < 0 || index >= len(b.itemEndPositions)-1 {
		return 0, ErrIndexOutOfRange
	}

	blockIndex := b.blockIndexFor(index)
	block, err := b.blockAt(blockIndex)
	if err != nil {
		return 0, err
	}

	itemStart, itemEnd := b.itemDelimiters(blockIndex, index)
	itemSize := itemEnd - itemStart
	if len(out) < itemSize {
		return 0, ErrShortBuffer
	}
	return copy(out, block[itemStart:itemEnd]), nil
}

// blockIndexFor finds the smallest block whose cumulative item count
// exceeds itemIndex, equivalent to the original's binary search over
// numItemsPSum.
func (b *blockCompressor) blockIndexFor(itemIndex int) int {
	return sort.Search(len(b.blocks), func(i int) bool {
		return b.blocks[i].numItemsPSum > itemIndex
	})
}

func (b *blockCompressor) blockAt(blockIndex int) ([]byte, error) {
	if cached, ok := b.cache.Get(blockIndex); ok {
		return cached, nil
	}
	start := 0
	if blockIndex > 0 {
		start = b.blocks[blockIndex-1].endPosition
	}
	meta := b.blocks[blockIndex]
	block, err := b.codec.decompressBlock(b.compressedData[start:meta.endPosition], meta.uncompressedSize)
	if err != nil {
		return nil, fmt.Errorf("compressor: %s decompress block %d: %w", b.codec.name(), blockIndex, err)
	}
	b.cache.Add(blockIndex, block)
	return block, nil
}

func (b *blockCompressor) itemDelimiters(blockIndex, itemIndex int) (int, int) {
	firstItemIndex := 0
	if blockIndex > 0 {
		firstItemIndex = b.blocks[blockIndex-1].numItemsPSum
	}
	adjustment := 0
	if firstItemIndex > 0 {
		adjustment = b.itemEndPositions[firstItemIndex]
	}
	return b.itemEndPositions[itemIndex] - adjustment, b.itemEndPositions[itemIndex+1] - adjustment
}

func (b *blockCompressor) SpaceUsedBytes() int {
	return len(b.compressedData)
}

func (b *blockCompressor) Name() string {
	return "block-" + b.codec.name()
}
