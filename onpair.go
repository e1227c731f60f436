// Package onpair implements the OnPair grammar compressor: a single-pass
// trainer that learns a dictionary of byte-sequence tokens by merging
// frequently-adjacent token pairs, and a parser that re-walks the corpus
// against the finalized dictionary to produce a fixed-width token stream.
package onpair

import (
	"errors"
	"math"
	"sort"

	"github.com/onpair-db/onpair/internal/prng"
	"github.com/onpair-db/onpair/internal/templates"
	"github.com/onpair-db/onpair/lpm"
)

const (
	singleByteTokens = 256       // number of single-byte tokens (0-255)
	maxTokenID       = 65535     // maximum token ID for a 16-bit token stream
	maxTokenID12Bit  = 4095      // maximum token ID representable in 12 bits
	maxTokenID20Bit  = 1<<20 - 1 // maximum token ID representable in 20 bits
	tokenBitWidth12  = uint8(12)
	tokenBitWidth16  = uint8(16)
	tokenBitWidth20  = uint8(20)
)

// Config holds configuration for the compressor.
type Config struct {
	Threshold           uint16 // Minimum frequency to merge tokens (0 = dynamic)
	MaxTokenID          uint32 // Maximum token ID (0 = default ceiling for TokenBitWidth)
	MaxTokenLen         int    // Maximum token length (0 = unlimited)
	TokenBitWidth       uint8  // Encoded token bit-width (0 = default 16, supported: 12, 16, 20)
	TrainingSampleBytes int    // Maximum sampled training bytes (0 = default 1 MiB)
	TemplateStratified  bool   // Enable template-based stratified sampling for training.
	TemplateMaxClusters int    // Maximum number of template clusters for stratified sampling.
}

// Option is a functional option for configuring the compressor.
type Option func(*Config)

// WithThreshold sets a fixed pair-frequency promotion threshold.
func WithThreshold(t uint16) Option {
	return func(c *Config) { c.Threshold = t }
}

// WithMaxTokenID sets an explicit token ID limit. Valid range is
// [255, 2^K-1] for the configured TokenBitWidth (4095/65535/1048575 for
// K=12/16/20); values outside the range are clamped.
func WithMaxTokenID(maxID uint32) Option {
	return func(c *Config) { c.MaxTokenID = maxID }
}

// WithMaxTokenLength sets L_max, the maximum payload length for a token.
func WithMaxTokenLength(n int) Option {
	return func(c *Config) { c.MaxTokenLen = n }
}

// WithTokenBitWidth configures the encoded token bit-width (K). Supported
// values: 12, 16, or 20; any other value falls back to 16.
func WithTokenBitWidth(bits uint8) Option {
	return func(c *Config) { c.TokenBitWidth = bits }
}

// WithTrainingSampleBytes sets the maximum number of sampled bytes used to
// train the dictionary. Non-positive values fall back to the default.
func WithTrainingSampleBytes(n int) Option {
	return func(c *Config) { c.TrainingSampleBytes = n }
}

// WithTemplateStratifiedSampling enables template-based stratified sampling
// when selecting rows used for dictionary training. maxClusters<=0 uses the
// default cluster cap.
func WithTemplateStratifiedSampling(maxClusters int) Option {
	return func(c *Config) {
		c.TemplateStratified = true
		c.TemplateMaxClusters = maxClusters
	}
}

// Encoder trains the dictionary and compresses data.
type Encoder struct {
	config Config
}

var (
	// ErrShortBuffer indicates the provided destination buffer is too small.
	ErrShortBuffer = errors.New("onpair: short buffer")
	// ErrUntrainedModel indicates Encode was called before a model was trained.
	ErrUntrainedModel = errors.New("onpair: model is not trained")
)

// NewEncoder creates a new encoder with the given options.
func NewEncoder(opts ...Option) *Encoder {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Encoder{config: cfg}
}

const maxTrainingSampleBytes = 1024 * 1024 // 1 MiB default sample cap

const (
	defaultTemplateMaxClusters = 2048
	templateOtherClusterKey    = "__template_other__"
)

// train runs the trainer (spec 4.D): it builds the mutable LPM and the
// dictionary, then finalizes the LPM into its static form for the parser.
func (e *Encoder) train(data []byte, endPositions []int) (*lpm.StaticMatcher, []byte, []uint32) {
	tokenBoundaries := make([]uint32, 0, singleByteTokens+4096)
	tokenBoundaries = append(tokenBoundaries, 0)
	dictionary := make([]byte, 0, 1024*1024)

	matcher := lpm.NewMatcher(e.config.MaxTokenLen)

	for i := 0; i < singleByteTokens; i++ {
		token := []byte{byte(i)}
		_ = matcher.Insert(token, uint32(i))
		dictionary = append(dictionary, token...)
		tokenBoundaries = append(tokenBoundaries, uint32(len(dictionary)))
	}

	numStrings := len(endPositions) - 1
	if numStrings == 0 {
		return matcher.Finalize(), dictionary, tokenBoundaries
	}

	shuffledIndices := make([]int, numStrings)
	for i := range shuffledIndices {
		shuffledIndices[i] = i
	}
	prng.New(42).Shuffle(shuffledIndices)

	sampleIndices := shuffledIndices
	sampleBytes := len(data)
	trainingSampleBytes := resolveTrainingSampleBytes(e.config)
	if len(data) > trainingSampleBytes {
		if e.config.TemplateStratified {
			maxClusters := resolveTemplateMaxClusters(e.config)
			sampleIndices, sampleBytes = stratifiedSampleIndicesByTemplate(
				data, endPositions, shuffledIndices, trainingSampleBytes, maxClusters,
			)
		} else {
			sampleIndices, sampleBytes = sampleIndicesByBytes(shuffledIndices, endPositions, trainingSampleBytes)
		}
	}

	threshold := e.config.Threshold
	if threshold == 0 {
		sampleSizeMiB := float64(sampleBytes) / (1024.0 * 1024.0)
		threshold = uint16(math.Max(2.0, math.Log2(sampleSizeMiB)))
	}

	limitTokenID := resolveTokenLimit(e.config)

	dictionary, tokenBoundaries = e.buildTokens(
		data, endPositions, sampleIndices,
		matcher, dictionary, tokenBoundaries,
		threshold, limitTokenID,
	)

	return matcher.Finalize(), dictionary, tokenBoundaries
}

// resolveTokenLimit computes the highest token id the trainer may assign,
// raising the ceiling for wider token bit-widths (mirroring onpair_bv.rs's
// MAX_TOKEN_ID bump for its bit-vector-packed variant) and honoring an
// explicit Config.MaxTokenID override within that ceiling.
func resolveTokenLimit(cfg Config) uint32 {
	bitWidth := resolveTokenBitWidth(cfg)
	ceiling := uint32(maxTokenID)
	if bitWidth == tokenBitWidth20 {
		ceiling = maxTokenID20Bit
	}

	limit := ceiling
	if cfg.MaxTokenID != 0 {
		if cfg.MaxTokenID < uint32(singleByteTokens-1) {
			limit = uint32(singleByteTokens - 1)
		} else if cfg.MaxTokenID > ceiling {
			limit = ceiling
		} else {
			limit = cfg.MaxTokenID
		}
	}
	if bitWidth == tokenBitWidth12 && limit > maxTokenID12Bit {
		limit = maxTokenID12Bit
	}
	return limit
}

func resolveTokenBitWidth(cfg Config) uint8 {
	switch cfg.TokenBitWidth {
	case tokenBitWidth12, tokenBitWidth20:
		return cfg.TokenBitWidth
	default:
		return tokenBitWidth16
	}
}

func resolveTrainingSampleBytes(cfg Config) int {
	if cfg.TrainingSampleBytes > 0 {
		return cfg.TrainingSampleBytes
	}
	return maxTrainingSampleBytes
}

func resolveTemplateMaxClusters(cfg Config) int {
	if cfg.TemplateMaxClusters > 0 {
		return cfg.TemplateMaxClusters
	}
	return defaultTemplateMaxClusters
}

func sampleIndicesByBytes(shuffledIndices []int, endPositions []int, sampleLimit int) ([]int, int) {
	if sampleLimit <= 0 || len(shuffledIndices) == 0 {
		return shuffledIndices, 0
	}
	sampleSize := 0
	for i, idx := range shuffledIndices {
		sampleSize += endPositions[idx+1] - endPositions[idx]
		if sampleSize >= sampleLimit {
			return shuffledIndices[:i+1], sampleSize
		}
	}
	return shuffledIndices, sampleSize
}

// stratifiedSampleIndicesByTemplate clusters rows with a drain3-style
// template miner, then draws a proportional number of rows from each
// cluster so the sample covers every structurally distinct shape in the
// corpus rather than only the most frequent one.
func stratifiedSampleIndicesByTemplate(
	data []byte,
	endPositions []int,
	shuffledIndices []int,
	sampleBytesLimit int,
	maxClusters int,
) ([]int, int) {
	if sampleBytesLimit <= 0 || len(shuffledIndices) == 0 {
		return shuffledIndices, 0
	}

	miner := templates.NewMiner(maxClusters)
	clusterGroups := make(map[string][]int, 256)
	clusterOrder := make([]string, 0, 256)
	totalPoolBytes := 0

	for _, idx := range shuffledIndices {
		start, end := endPositions[idx], endPositions[idx+1]
		totalPoolBytes += end - start
		key := miner.Key(data[start:end])
		if key == "" {
			key = templateOtherClusterKey
		}
		if _, exists := clusterGroups[key]; !exists {
			clusterGroups[key] = nil
			clusterOrder = append(clusterOrder, key)
		}
		clusterGroups[key] = append(clusterGroups[key], idx)
	}

	if len(clusterOrder) == 0 {
		return sampleIndicesByBytes(shuffledIndices, endPositions, sampleBytesLimit)
	}

	totalRows := len(shuffledIndices)
	avgLen := float64(totalPoolBytes) / float64(totalRows)
	targetRows := int(float64(sampleBytesLimit) / avgLen)
	if targetRows < 1 {
		targetRows = 1
	}
	if targetRows > totalRows {
		targetRows = totalRows
	}

	type clusterQuota struct {
		key       string
		quota     int
		remainder float64
	}
	quotas := make([]clusterQuota, 0, len(clusterOrder))
	allocated := 0
	for _, key := range clusterOrder {
		count := len(clusterGroups[key])
		exact := float64(count) * float64(targetRows) / float64(totalRows)
		quota := int(exact)
		quotas = append(quotas, clusterQuota{key: key, quota: quota, remainder: exact - float64(quota)})
		allocated += quota
	}
	if allocated < targetRows {
		sort.SliceStable(quotas, func(i, j int) bool { return quotas[i].remainder > quotas[j].remainder })
		remaining := targetRows - allocated
		for i := 0; remaining > 0; i++ {
			quotas[i%len(quotas)].quota++
			remaining--
		}
	}

	clusterPos := make(map[string]int, len(quotas))
	sampleIndices := make([]int, 0, targetRows)
	sampleBytes := 0

	for _, q := range quotas {
		group := clusterGroups[q.key]
		n := q.quota
		if n > len(group) {
			n = len(group)
		}
		for i := 0; i < n; i++ {
			idx := group[i]
			sampleIndices = append(sampleIndices, idx)
			sampleBytes += endPositions[idx+1] - endPositions[idx]
		}
		clusterPos[q.key] = n
		if sampleBytes >= sampleBytesLimit {
			return sampleIndices, sampleBytes
		}
	}

	orderedKeys := make([]string, 0, len(quotas))
	for _, q := range quotas {
		orderedKeys = append(orderedKeys, q.key)
	}
	for sampleBytes < sampleBytesLimit {
		progressed := false
		for _, key := range orderedKeys {
			group := clusterGroups[key]
			pos := clusterPos[key]
			if pos >= len(group) {
				continue
			}
			idx := group[pos]
			clusterPos[key] = pos + 1
			sampleIndices = append(sampleIndices, idx)
			sampleBytes += endPositions[idx+1] - endPositions[idx]
			progressed = true
			if sampleBytes >= sampleBytesLimit {
				break
			}
		}
		if !progressed {
			break
		}
	}

	if len(sampleIndices) == 0 {
		return sampleIndicesByBytes(shuffledIndices, endPositions, sampleBytesLimit)
	}
	return sampleIndices, sampleBytes
}

// buildTokens discovers and creates merged tokens from the training data
// (spec 4.D steps 2-5): threshold-gated online pair merging in a single
// pass over the sampled, shuffled segments.
func (e *Encoder) buildTokens(
	data []byte,
	endPositions []int,
	shuffledIndices []int,
	matcher *lpm.Matcher,
	dictionary []byte,
	tokenBoundaries []uint32,
	threshold uint16,
	limitTokenID uint32,
) ([]byte, []uint32) {
	if len(shuffledIndices) == 0 {
		return dictionary, tokenBoundaries
	}

	nextTokenID := uint32(singleByteTokens)
	frequency := make(map[uint64]uint32, 4096)
	maxTokenLen := e.config.MaxTokenLen

	segIdx := 0
	pos := 0
	end := 0
	prevTokenID := uint32(0)
	prevLength := 0
	hasPrev := false

	for {
		if !hasPrev {
			for segIdx < len(shuffledIndices) {
				index := shuffledIndices[segIdx]
				start := endPositions[index]
				end = endPositions[index+1]
				segIdx++
				if start >= end {
					continue
				}
				tokenID, length, ok := matcher.FindLongestMatch(data[start:end])
				if !ok {
					continue
				}
				prevTokenID = tokenID
				prevLength = length
				pos = start + length
				hasPrev = true
				break
			}
			if !hasPrev {
				break
			}
			continue
		}

		if pos >= end {
			hasPrev = false
			continue
		}

		currTokenID, currLength, ok := matcher.FindLongestMatch(data[pos:end])
		if !ok {
			hasPrev = false
			continue
		}

		if maxTokenLen > 0 && prevLength+currLength > maxTokenLen {
			prevTokenID = currTokenID
			prevLength = currLength
			pos += currLength
			continue
		}

		pair := uint64(prevTokenID)<<32 | uint64(currTokenID)
		frequency[pair]++

		if frequency[pair] >= uint32(threshold) {
			if nextTokenID > limitTokenID {
				return dictionary, tokenBoundaries
			}
			mergedToken := data[pos-prevLength : pos+currLength]
			if !matcher.Insert(mergedToken, nextTokenID) {
				delete(frequency, pair)
				prevTokenID = currTokenID
				prevLength = currLength
				pos += currLength
				continue
			}
			dictionary = append(dictionary, mergedToken...)
			tokenBoundaries = append(tokenBoundaries, uint32(len(dictionary)))

			delete(frequency, pair)
			prevTokenID = nextTokenID
			prevLength = len(mergedToken)

			if nextTokenID == limitTokenID {
				return dictionary, tokenBoundaries
			}
			nextTokenID++
		} else {
			prevTokenID = currTokenID
			prevLength = currLength
		}
		pos += currLength
	}

	return dictionary, tokenBoundaries
}

// compress parses the data (spec 4.E) against the finalized static LPM.
func (e *Encoder) compress(data []byte, endPositions []int, matcher *lpm.StaticMatcher) ([]uint32, []int) {
	compressedData := make([]uint32, 0, len(data)/2)
	stringBoundaries := make([]int, 0, len(endPositions))
	stringBoundaries = append(stringBoundaries, 0)

	for i := 0; i < len(endPositions)-1; i++ {
		start, end := endPositions[i], endPositions[i+1]
		if start == end {
			stringBoundaries = append(stringBoundaries, len(compressedData))
			continue
		}
		pos := start
		for pos < end {
			tokenID, length, ok := matcher.FindLongestMatch(data[pos:end])
			if !ok {
				break
			}
			compressedData = append(compressedData, tokenID)
			pos += length
		}
		stringBoundaries = append(stringBoundaries, len(compressedData))
	}
	return compressedData, stringBoundaries
}

// flattenStrings concatenates strings into one buffer with prefix-sum end
// offsets, matching the external dataset collaborator's contract.
func flattenStrings(strings []string) ([]byte, []int) {
	totalLen := 0
	for _, s := range strings {
		totalLen += len(s)
	}
	data := make([]byte, 0, totalLen)
	endPositions := make([]int, 0, len(strings)+1)
	endPositions = append(endPositions, 0)
	for _, s := range strings {
		data = append(data, s...)
		endPositions = append(endPositions, len(data))
	}
	return data, endPositions
}
