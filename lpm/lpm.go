// Package lpm implements the longest-prefix matcher used by the OnPair
// grammar compressor: a mutable index built during training (Matcher) and a
// read-only, cache-friendly index built from it for the parsing hot path
// (StaticMatcher, via Matcher.Finalize).
package lpm

import (
	"bytes"
	"encoding/binary"
	"math/bits"
	"unsafe"
)

// masks extracts little-endian prefixes of 0..8 bytes from a uint64.
var masks = [9]uint64{
	0x0000000000000000,
	0x00000000000000FF,
	0x000000000000FFFF,
	0x0000000000FFFFFF,
	0x00000000FFFFFFFF,
	0x000000FFFFFFFFFF,
	0x0000FFFFFFFFFFFF,
	0x00FFFFFFFFFFFFFF,
	0xFFFFFFFFFFFFFFFF,
}

const (
	minMatch        = 8
	maxBucketSize   = 128
	shortTableBits  = 24
	mediumKeyBytes  = 4
	longKeyBytes    = 8
	mediumMaxSuffix = 3 // 7 - mediumKeyBytes range, suffix bytes beyond the 4-byte prefix, up to L_max-4
	nInlineMedium   = 7
	nInlineLong     = 4
)

// Matcher is a hybrid longest-prefix matcher over byte strings of length
// 1..=maxTokenLen. Short entries (<=8 bytes) live in per-length hash maps;
// long entries (9..=maxTokenLen) are bucketed by their 8-byte prefix and kept
// sorted by descending suffix length so FindLongestMatch tries the longest
// candidate first.
type Matcher struct {
	longMatchBuckets map[uint64][]uint32
	shortMatchLookup [9]map[uint64]uint32
	dictionary       []byte
	endPositions     []uint32
	maxTokenLen      int
	bucketSizeLimit  int
}

// NewMatcher creates an empty matcher bounding entries to maxTokenLen bytes
// (8 or 16, per the OnPair payload bound).
func NewMatcher(maxTokenLen int) *Matcher {
	return &Matcher{
		longMatchBuckets: make(map[uint64][]uint32),
		endPositions:     []uint32{0},
		maxTokenLen:      maxTokenLen,
		bucketSizeLimit:  maxBucketSize,
	}
}

// Insert adds entry with the given token id. Token ids must be inserted
// densely starting from 0, since the suffix dictionary is addressed by id.
// Ids up to 2^20-1 are supported, matching the widest configured token
// bit-width. Returns false if entry is longer than a positive maxTokenLen,
// or if the long-pattern bucket for this prefix is full.
func (m *Matcher) Insert(entry []byte, id uint32) bool {
	if m.maxTokenLen > 0 && len(entry) > m.maxTokenLen {
		return false
	}
	if len(entry) > minMatch {
		prefix := bytesToU64LE(entry, minMatch)
		bucket := m.longMatchBuckets[prefix]
		if len(bucket) >= m.bucketSizeLimit {
			return false
		}

		m.dictionary = append(m.dictionary, entry[minMatch:]...)
		m.endPositions = append(m.endPositions, uint32(len(m.dictionary)))
		bucket = append(bucket, id)

		for i := len(bucket) - 1; i > 0; i-- {
			id1, id2 := bucket[i], bucket[i-1]
			len1 := int(m.endPositions[id1+1]) - int(m.endPositions[id1])
			len2 := int(m.endPositions[id2+1]) - int(m.endPositions[id2])
			if len1 > len2 {
				bucket[i], bucket[i-1] = bucket[i-1], bucket[i]
			} else {
				break
			}
		}
		m.longMatchBuckets[prefix] = bucket
		return true
	}

	if len(entry) == 1 {
		// Single-byte tokens are identity-mapped; no lookup entry needed
		// beyond the endPositions slot so id+1 indexing stays valid.
		m.endPositions = append(m.endPositions, uint32(len(m.dictionary)))
		return true
	}

	prefix := bytesToU64LE(entry, len(entry))
	lookup := m.shortMatchLookup[len(entry)]
	if lookup == nil {
		lookup = make(map[uint64]uint32)
		m.shortMatchLookup[len(entry)] = lookup
	}
	lookup[prefix] = id
	m.endPositions = append(m.endPositions, uint32(len(m.dictionary)))
	return true
}

// FindLongestMatch returns the id and length of the longest entry that is a
// prefix of data. Single-byte tokens 0..255 are always available, so this
// only returns ok=false for an empty haystack.
func (m *Matcher) FindLongestMatch(data []byte) (uint32, int, bool) {
	if len(data) > minMatch {
		prefix := bytesToU64LE(data, minMatch)
		if bucket, ok := m.longMatchBuckets[prefix]; ok {
			suffixSpace := data[minMatch:]
			for _, id := range bucket {
				if int(id)+1 >= len(m.endPositions) {
					continue
				}
				dictStart := int(m.endPositions[id])
				dictEnd := int(m.endPositions[id+1])
				if dictStart < 0 || dictEnd > len(m.dictionary) || dictStart > dictEnd {
					continue
				}
				length := dictEnd - dictStart
				if len(suffixSpace) >= length && bytes.HasPrefix(suffixSpace, m.dictionary[dictStart:dictEnd]) {
					return id, minMatch + length, true
				}
			}
		}
	}

	maxLen := minMatch
	if len(data) < maxLen {
		maxLen = len(data)
	}
	prefix := bytesToU64LE(data, maxLen)
	for length := maxLen; length >= 2; length-- {
		maskedPrefix := prefix & masks[length]
		if id, ok := m.shortMatchLookup[length][maskedPrefix]; ok {
			return id, length, true
		}
	}
	if len(data) > 0 {
		return uint32(data[0]), 1, true
	}
	return 0, 0, false
}

func bytesToU64LE(b []byte, length int) uint64 {
	if length > 8 {
		length = 8
	}
	if length < 0 {
		length = 0
	}
	if len(b) < 8 {
		var buf [8]byte
		copy(buf[:], b)
		return binary.LittleEndian.Uint64(buf[:]) & masks[length]
	}
	// len(b) >= 8 verified above; safe to read a full word unconditionally.
	ptr := unsafe.Pointer(&b[0])
	return *(*uint64)(ptr) & masks[length]
}

func sharedPrefixSize(a, b uint64) int {
	return bits.TrailingZeros64(a^b) >> 3
}
