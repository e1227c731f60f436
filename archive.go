package onpair

import (
	"fmt"

	"github.com/onpair-db/onpair/bitvector"
)

// Archive holds the compressed token stream and the dictionary needed to
// decompress it. An Archive is the in-memory output of Encode/Model.Encode:
// it supports random access to any row without decompressing its neighbors,
// but carries no on-disk wire format of its own.
type Archive struct {
	// Compressed data storage
	CompressedData   []uint32 // Sequence of token IDs
	StringBoundaries []int    // End positions for each string

	// Dictionary storage
	Dictionary      []byte   // Raw token data
	TokenBoundaries []uint32 // Token end positions in dictionary

	// Internal encoding metadata for the compressed token stream.
	compressedTokenBitWidth uint8
}

func (a *Archive) tokenBitWidth() uint8 {
	switch a.compressedTokenBitWidth {
	case tokenBitWidth12, tokenBitWidth16, tokenBitWidth20:
		return a.compressedTokenBitWidth
	default:
		return tokenBitWidth16
	}
}

// bitPackedSize reports the byte footprint of tokenCount token IDs packed at
// width bits each, matching how bitvector.BitVector lays out AppendBits
// calls: ceil(tokenCount*width / 8).
func bitPackedSize(tokenCount int, width uint8) int {
	bits := tokenCount * int(width)
	return (bits + 7) / 8
}

// packTokens packs compressed token IDs into a bit vector at width bits
// each. Token IDs are masked to width bits first: AppendBits panics on a
// value that doesn't fit, and a hand-built or corrupted Archive may carry
// out-of-range ids that Validate would otherwise have caught.
func packTokens(compressed []uint32, width uint8) *bitvector.BitVector {
	bv := bitvector.WithCapacity(len(compressed) * int(width))
	mask := uint64(1)<<uint(width) - 1
	for _, tokenID := range compressed {
		bv.AppendBits(uint64(tokenID)&mask, int(width))
	}
	return bv
}

// PackedTokens returns the compressed token stream packed into a bit vector
// at the archive's configured bit-width, the representation a block codec
// would hand off to a byte-oriented backend (see the compressor package).
func (a *Archive) PackedTokens() *bitvector.BitVector {
	return packTokens(a.CompressedData, a.tokenBitWidth())
}

// Rows returns the number of strings encoded in this archive.
func (a *Archive) Rows() int {
	if len(a.StringBoundaries) == 0 {
		return 0
	}
	return len(a.StringBoundaries) - 1
}

// DecodedLen reports the decoded length in bytes for one string.
func (a *Archive) DecodedLen(index int) (int, error) {
	if index < 0 || index >= a.Rows() {
		return 0, fmt.Errorf("index out of bounds: %d", index)
	}

	start := a.StringBoundaries[index]
	end := a.StringBoundaries[index+1]
	if start < 0 || end < start || end > len(a.CompressedData) {
		return 0, fmt.Errorf("corrupted string boundaries for index %d", index)
	}

	tokenBounds := a.TokenBoundaries
	dictionary := a.Dictionary
	dictLen := uint32(len(dictionary))
	boundsLen := len(tokenBounds)

	n := 0
	for tokenPos, tokenID := range a.CompressedData[start:end] {
		absPos := start + tokenPos
		tokenIdx := int(tokenID)
		if tokenIdx+1 >= boundsLen {
			return 0, fmt.Errorf("invalid token ID at row %d token %d (abs %d): %d", index, tokenPos, absPos, tokenID)
		}
		tokenStart := tokenBounds[tokenIdx]
		tokenEnd := tokenBounds[tokenIdx+1]
		if tokenEnd > dictLen || tokenStart > tokenEnd {
			return 0, fmt.Errorf("corrupted token boundaries at row %d token %d (abs %d) for ID %d", index, tokenPos, absPos, tokenID)
		}
		tokenBytes := dictionary[tokenStart:tokenEnd]
		n += len(tokenBytes)
	}
	return n, nil
}

// AppendRow appends the decoded string at index to dst.
func (a *Archive) AppendRow(dst []byte, index int) ([]byte, error) {
	if index < 0 || index >= a.Rows() {
		return dst, fmt.Errorf("index out of bounds: %d", index)
	}

	start := a.StringBoundaries[index]
	end := a.StringBoundaries[index+1]
	if start < 0 || end < start || end > len(a.CompressedData) {
		return dst, fmt.Errorf("corrupted string boundaries for index %d", index)
	}

	tokenBounds := a.TokenBoundaries
	dictionary := a.Dictionary
	dictLen := uint32(len(dictionary))
	boundsLen := len(tokenBounds)

	for tokenPos, tokenID := range a.CompressedData[start:end] {
		absPos := start + tokenPos
		tokenIdx := int(tokenID)
		if tokenIdx+1 >= boundsLen {
			return dst, fmt.Errorf("invalid token ID at row %d token %d (abs %d): %d", index, tokenPos, absPos, tokenID)
		}
		tokenStart := tokenBounds[tokenIdx]
		tokenEnd := tokenBounds[tokenIdx+1]
		if tokenEnd > dictLen || tokenStart > tokenEnd {
			return dst, fmt.Errorf("corrupted token boundaries at row %d token %d (abs %d) for ID %d", index, tokenPos, absPos, tokenID)
		}
		tokenBytes := dictionary[tokenStart:tokenEnd]
		dst = append(dst, tokenBytes...)
	}
	return dst, nil
}

// AppendAll appends all decoded strings to dst.
func (a *Archive) AppendAll(dst []byte) ([]byte, error) {
	tokenBounds := a.TokenBoundaries
	dictionary := a.Dictionary
	dictLen := uint32(len(dictionary))
	boundsLen := len(tokenBounds)

	for tokenPos, tokenID := range a.CompressedData {
		tokenIdx := int(tokenID)
		if tokenIdx+1 >= boundsLen {
			return dst, fmt.Errorf("invalid token ID at token %d: %d", tokenPos, tokenID)
		}
		tokenStart := tokenBounds[tokenIdx]
		tokenEnd := tokenBounds[tokenIdx+1]
		if tokenEnd > dictLen || tokenStart > tokenEnd {
			return dst, fmt.Errorf("corrupted token boundaries at token %d for ID %d", tokenPos, tokenID)
		}
		tokenBytes := dictionary[tokenStart:tokenEnd]
		dst = append(dst, tokenBytes...)
	}
	return dst, nil
}

// DecompressString decompresses a specific string into buffer.
func (a *Archive) DecompressString(index int, buffer []byte) (int, error) {
	if index < 0 || index >= a.Rows() {
		return 0, fmt.Errorf("index out of bounds: %d", index)
	}
	start := a.StringBoundaries[index]
	end := a.StringBoundaries[index+1]
	if start < 0 || end < start || end > len(a.CompressedData) {
		return 0, fmt.Errorf("corrupted string boundaries for index %d", index)
	}

	tokenBounds := a.TokenBoundaries
	dictionary := a.Dictionary
	dictLen := uint32(len(dictionary))
	boundsLen := len(tokenBounds)

	offset := 0
	for tokenPos, tokenID := range a.CompressedData[start:end] {
		absPos := start + tokenPos
		tokenIdx := int(tokenID)
		if tokenIdx+1 >= boundsLen {
			return 0, fmt.Errorf("invalid token ID at row %d token %d (abs %d): %d", index, tokenPos, absPos, tokenID)
		}
		tokenStart := tokenBounds[tokenIdx]
		tokenEnd := tokenBounds[tokenIdx+1]
		if tokenEnd > dictLen || tokenStart > tokenEnd {
			return 0, fmt.Errorf("corrupted token boundaries at row %d token %d (abs %d) for ID %d", index, tokenPos, absPos, tokenID)
		}
		tokenBytes := dictionary[tokenStart:tokenEnd]
		if offset+len(tokenBytes) > len(buffer) {
			return 0, fmt.Errorf("%w at row %d token %d (abs %d): need %d bytes, have %d", ErrShortBuffer, index, tokenPos, absPos, offset+len(tokenBytes), len(buffer))
		}
		copy(buffer[offset:offset+len(tokenBytes)], tokenBytes)
		offset += len(tokenBytes)
	}
	return offset, nil
}

// DecompressAllChecked decompresses all strings into a single buffer,
// reading the token stream back out of its bit-packed form (PackedTokens)
// width bits at a time rather than indexing CompressedData directly — the
// same sequential get_bits advance the bit-vector-packed OnPair variant
// uses for its whole-buffer decode.
func (a *Archive) DecompressAllChecked(buffer []byte) (int, error) {
	tokenBounds := a.TokenBoundaries
	dictionary := a.Dictionary
	dictLen := uint32(len(dictionary))
	boundsLen := len(tokenBounds)

	width := int(a.tokenBitWidth())
	packed := a.PackedTokens()

	offset := 0
	tokenPos := 0
	for bitPos := 0; bitPos+width <= packed.Len(); bitPos += width {
		tokenID, ok := packed.GetBits(bitPos, width)
		if !ok {
			return 0, fmt.Errorf("corrupted packed token stream at token %d", tokenPos)
		}
		tokenIdx := int(tokenID)
		if tokenIdx+1 >= boundsLen {
			return 0, fmt.Errorf("invalid token ID at token %d: %d", tokenPos, tokenID)
		}
		tokenStart := tokenBounds[tokenIdx]
		tokenEnd := tokenBounds[tokenIdx+1]
		if tokenEnd > dictLen || tokenStart > tokenEnd {
			return 0, fmt.Errorf("corrupted token boundaries at token %d for ID %d", tokenPos, tokenID)
		}
		tokenBytes := dictionary[tokenStart:tokenEnd]
		if offset+len(tokenBytes) > len(buffer) {
			return 0, fmt.Errorf("%w at token %d: need %d bytes, have %d", ErrShortBuffer, tokenPos, offset+len(tokenBytes), len(buffer))
		}
		copy(buffer[offset:offset+len(tokenBytes)], tokenBytes)
		offset += len(tokenBytes)
		tokenPos++
	}
	return offset, nil
}

// SpaceUsed returns the total space (in bytes) used by the archive, counting
// the compressed token stream at its configured bit-width rather than its
// in-memory []uint32 representation.
func (a *Archive) SpaceUsed() int {
	return bitPackedSize(len(a.CompressedData), a.tokenBitWidth()) +
		len(a.Dictionary) +
		len(a.TokenBoundaries)*4
}

// Validate checks that the archive's slices are internally consistent:
// boundaries are monotonic and start at zero, every token ID resolves to a
// dictionary span, and the bit-width is one of the supported values. Callers
// that build or mutate an Archive's exported fields directly (rather than
// going through Encode) should call Validate before relying on the decode
// methods.
func (a *Archive) Validate() error {
	return validateArchiveStructure(a)
}

func validateArchiveStructure(a *Archive) error {
	if a.compressedTokenBitWidth != 0 &&
		a.compressedTokenBitWidth != tokenBitWidth12 &&
		a.compressedTokenBitWidth != tokenBitWidth16 &&
		a.compressedTokenBitWidth != tokenBitWidth20 {
		return fmt.Errorf("invalid token bit-width: %d", a.compressedTokenBitWidth)
	}

	if len(a.StringBoundaries) == 0 {
		return fmt.Errorf("string boundaries must contain at least one entry")
	}
	if a.StringBoundaries[0] != 0 {
		return fmt.Errorf("first string boundary must be 0: %d", a.StringBoundaries[0])
	}
	for i := 1; i < len(a.StringBoundaries); i++ {
		if a.StringBoundaries[i] < a.StringBoundaries[i-1] {
			return fmt.Errorf("string boundaries not monotonic at index %d", i)
		}
	}
	if last := a.StringBoundaries[len(a.StringBoundaries)-1]; last > len(a.CompressedData) {
		return fmt.Errorf("string boundary %d out of range for %d tokens", last, len(a.CompressedData))
	}

	if len(a.TokenBoundaries) == 0 {
		return fmt.Errorf("token boundaries must contain at least one entry")
	}
	if a.TokenBoundaries[0] != 0 {
		return fmt.Errorf("first token boundary must be 0: %d", a.TokenBoundaries[0])
	}
	for i := 1; i < len(a.TokenBoundaries); i++ {
		if a.TokenBoundaries[i] < a.TokenBoundaries[i-1] {
			return fmt.Errorf("token boundaries not monotonic at index %d", i)
		}
	}
	if last := a.TokenBoundaries[len(a.TokenBoundaries)-1]; int(last) > len(a.Dictionary) {
		return fmt.Errorf("token boundary %d out of range for dictionary size %d", last, len(a.Dictionary))
	}
	if a.tokenBitWidth() == tokenBitWidth12 {
		for i, tokenID := range a.CompressedData {
			if tokenID > maxTokenID12Bit {
				return fmt.Errorf("compressed token out of 12-bit range at index %d: %d", i, tokenID)
			}
		}
	}
	for i, tokenID := range a.CompressedData {
		if int(tokenID)+1 >= len(a.TokenBoundaries) {
			return fmt.Errorf("compressed token out of range at index %d: %d", i, tokenID)
		}
	}
	return nil
}
