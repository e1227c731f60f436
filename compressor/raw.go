package compressor

// rawCompressor stores data uncompressed. It exists as a performance and
// compression-ratio baseline for the other backends, not as a usable codec
// in its own right.
type rawCompressor struct {
	data    []byte
	offsets []int
}

func init() {
	Register("raw", func(dataCapacityBytes, elementCount int) Compressor {
		return &rawCompressor{}
	})
}

// NewRaw builds an empty raw compressor.
func NewRaw(dataCapacityBytes, elementCount int) Compressor {
	return &rawCompressor{}
}

func (r *rawCompressor) Compress(data []byte, endOffsets []int) error {
	r.data = append([]byte(nil), data...)
	r.offsets = append([]int(nil), endOffsets...)
	return nil
}

func (r *rawCompressor) Decompress(out []byte) (int, error) {
	if r.offsets == nil {
		return 0, ErrNotCompressed
	}
	if len(out) < len(r.data) {
		return 0, ErrShortBuffer
	}
	return copy(out, r.data), nil
}

func (r *rawCompressor) GetItemAt(index int, out []byte) (int, error) {
	if r.offsets == nil {
		return 0, ErrNotCompressed
	}
	if index < 0 || index >= len(r.offsets)-1 {
		return 0, ErrIndexOutOfRange
	}
	start := r.offsets[index]
	end := r.offsets[index+1]
	itemSize := end - start
	if len(out) < itemSize {
		return 0, ErrShortBuffer
	}
	return copy(out, r.data[start:end]), nil
}

func (r *rawCompressor) SpaceUsedBytes() int {
	return len(r.data)
}

func (r *rawCompressor) Name() string {
	return "raw"
}
