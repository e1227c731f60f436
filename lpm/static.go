package lpm

import "sort"

// StaticMatcher is the read-only, cache-friendly longest-prefix matcher
// produced by Matcher.Finalize. It answers the same queries as Matcher but
// is tiered by haystack length so each tier can use a layout tuned for its
// key size: a dense table for 1-3 byte prefixes, and two minimal-perfect-hash
// tables (4-7 and 8-16 bytes) whose records carry inline suffix candidates
// plus a precomputed fallback answer, so a miss at the long or medium tier
// still resolves to the correct shorter match without a second probe.
// Entries longer than 16 bytes are not indexed: where Matcher's longest
// match is such an entry, StaticMatcher returns the longest matching entry
// of at most 16 bytes instead.
type StaticMatcher struct {
	short1 []shortAnswer // indexed by the single byte value, len 256
	short2 []shortAnswer // indexed by 2-byte little-endian prefix, len 65536
	short3 []shortAnswer // indexed by 3-byte little-endian prefix, len 1<<24

	mediumMPH     *minimalPerfectHash
	mediumInfo    []*tierRecord
	mediumBuckets []bucketEntry

	longMPH     *minimalPerfectHash
	longInfo    []*tierRecord
	longBuckets []bucketEntry
}

type shortAnswer struct {
	id     uint32
	length uint8
	valid  bool
}

type bucketEntry struct {
	suffix uint64
	length uint8
	id     uint32
}

// tierRecord is the heap-allocated record attached to one MPHF slot (it is
// not padded or aligned to a cache line): the
// key for verification, a handful of inline suffix candidates, an overflow
// range for the rest, and a fallback answer for when nothing in this tier
// matches the haystack at this prefix.
type tierRecord struct {
	key            uint64
	inlineSuffixes [nInlineMedium]uint64 // longest-tier records only use the first nInlineLong slots
	inlineLengths  [nInlineMedium]uint8
	inlineIDs      [nInlineMedium]uint32
	nSuffixes      uint16
	offset         uint32
	fallbackID     uint32
	fallbackLength uint8
}

// Finalize consumes m's training-time contents and builds the static,
// tiered index. m remains usable afterwards but should not be mutated
// further; the static index does not observe later inserts.
func (m *Matcher) Finalize() *StaticMatcher {
	sm := &StaticMatcher{
		short1: make([]shortAnswer, 256),
		short2: make([]shortAnswer, 1<<16),
		short3: make([]shortAnswer, 1<<shortTableBits),
	}
	for v := 0; v < 256; v++ {
		id, length, ok := m.FindLongestMatch([]byte{byte(v)})
		sm.short1[v] = shortAnswer{id, uint8(length), ok}
	}
	for v := 0; v < 1<<16; v++ {
		buf := []byte{byte(v), byte(v >> 8)}
		id, length, ok := m.FindLongestMatch(buf)
		sm.short2[v] = shortAnswer{id, uint8(length), ok}
	}
	for v := 0; v < 1<<shortTableBits; v++ {
		buf := []byte{byte(v), byte(v >> 8), byte(v >> 16)}
		id, length, ok := m.FindLongestMatch(buf)
		sm.short3[v] = shortAnswer{id, uint8(length), ok}
	}

	sm.buildMediumTier(m)
	sm.buildLongTier(m)
	return sm
}

func (sm *StaticMatcher) shortFallback(prefix uint64, maxLen int) (uint32, int) {
	if maxLen > 3 {
		maxLen = 3
	}
	for length := maxLen; length >= 1; length-- {
		masked := prefix & masks[length]
		var answer shortAnswer
		switch length {
		case 1:
			answer = sm.short1[masked]
		case 2:
			answer = sm.short2[masked]
		case 3:
			answer = sm.short3[masked]
		}
		if answer.valid {
			return answer.id, int(answer.length)
		}
	}
	return 0, 0
}

func (sm *StaticMatcher) buildMediumTier(m *Matcher) {
	buckets := make(map[uint64][]bucketEntry)
	for length := 4; length <= 7; length++ {
		lookup := m.shortMatchLookup[length]
		for key, id := range lookup {
			prefix := key & masks[4]
			suffix := key >> 32
			buckets[prefix] = append(buckets[prefix], bucketEntry{suffix: suffix, length: uint8(length - 4), id: id})
		}
	}
	for _, bucket := range buckets {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].length > bucket[j].length })
	}

	keys := make([]uint64, 0, len(buckets))
	for prefix := range buckets {
		keys = append(keys, prefix)
	}
	sm.mediumMPH = newMinimalPerfectHash(keys)
	sm.mediumInfo = make([]*tierRecord, sm.mediumMPH.tableSize)

	for prefix, bucket := range buckets {
		fallbackID, fallbackLen := sm.shortFallback(prefix, 3)
		rec := &tierRecord{key: prefix, fallbackID: fallbackID, fallbackLength: uint8(fallbackLen)}
		for i := 0; i < nInlineMedium && i < len(bucket); i++ {
			rec.inlineSuffixes[i] = bucket[i].suffix
			rec.inlineLengths[i] = bucket[i].length
			rec.inlineIDs[i] = bucket[i].id
			rec.nSuffixes++
		}
		rec.offset = uint32(len(sm.mediumBuckets))
		for i := nInlineMedium; i < len(bucket); i++ {
			sm.mediumBuckets = append(sm.mediumBuckets, bucket[i])
			rec.nSuffixes++
		}
		sm.mediumInfo[sm.mediumMPH.hash(prefix)] = rec
	}
}

func (sm *StaticMatcher) buildLongTier(m *Matcher) {
	buckets := make(map[uint64][]bucketEntry)
	for key, id := range m.shortMatchLookup[8] {
		buckets[key] = append(buckets[key], bucketEntry{suffix: 0, length: 0, id: id})
	}
	for prefix, ids := range m.longMatchBuckets {
		for _, id := range ids {
			if int(id)+1 >= len(m.endPositions) {
				continue
			}
			start, end := int(m.endPositions[id]), int(m.endPositions[id+1])
			if start < 0 || end > len(m.dictionary) || start > end {
				continue
			}
			suffix := m.dictionary[start:end]
			if len(suffix) > 8 {
				continue
			}
			buckets[prefix] = append(buckets[prefix], bucketEntry{suffix: bytesToU64LE(suffix, len(suffix)), length: uint8(len(suffix)), id: id})
		}
	}
	for _, bucket := range buckets {
		sort.Slice(bucket, func(i, j int) bool { return bucket[i].length > bucket[j].length })
	}

	keys := make([]uint64, 0, len(buckets))
	for prefix := range buckets {
		keys = append(keys, prefix)
	}
	sm.longMPH = newMinimalPerfectHash(keys)
	sm.longInfo = make([]*tierRecord, sm.longMPH.tableSize)

	for prefix, bucket := range buckets {
		fallbackID, fallbackLen := sm.mediumOrShortFallback(prefix)
		rec := &tierRecord{key: prefix, fallbackID: fallbackID, fallbackLength: uint8(fallbackLen)}
		for i := 0; i < nInlineLong && i < len(bucket); i++ {
			rec.inlineSuffixes[i] = bucket[i].suffix
			rec.inlineLengths[i] = bucket[i].length
			rec.inlineIDs[i] = bucket[i].id
			rec.nSuffixes++
		}
		rec.offset = uint32(len(sm.longBuckets))
		for i := nInlineLong; i < len(bucket); i++ {
			sm.longBuckets = append(sm.longBuckets, bucket[i])
			rec.nSuffixes++
		}
		sm.longInfo[sm.longMPH.hash(prefix)] = rec
	}
}

// mediumOrShortFallback computes the long tier's fallback answer: the
// longest match the haystack's first 8 bytes would produce in the medium
// or short tiers.
func (sm *StaticMatcher) mediumOrShortFallback(prefix8 uint64) (uint32, int) {
	prefix4 := prefix8 & masks[4]
	if id, length, ok := sm.lookupMedium(prefix4, (prefix8>>32)&masks[4], 4); ok {
		return id, length
	}
	return sm.shortFallback(prefix4, 3)
}

func (sm *StaticMatcher) lookupMedium(prefix4, suffixBits uint64, suffixLen int) (uint32, int, bool) {
	if sm.mediumMPH == nil || sm.mediumMPH.tableSize == 0 {
		return 0, 0, false
	}
	idx := sm.mediumMPH.hash(prefix4)
	if idx >= len(sm.mediumInfo) || sm.mediumInfo[idx] == nil || sm.mediumInfo[idx].key != prefix4 {
		return 0, 0, false
	}
	rec := sm.mediumInfo[idx]
	inline := int(rec.nSuffixes)
	if inline > nInlineMedium {
		inline = nInlineMedium
	}
	for i := 0; i < inline; i++ {
		if rec.inlineLengths[i] <= uint8(suffixLen) && sharedSuffixMatches(suffixBits, rec.inlineSuffixes[i], int(rec.inlineLengths[i])) {
			return rec.inlineIDs[i], 4 + int(rec.inlineLengths[i]), true
		}
	}
	if int(rec.nSuffixes) > nInlineMedium {
		start := int(rec.offset)
		end := start + int(rec.nSuffixes) - nInlineMedium
		for i := start; i < end && i < len(sm.mediumBuckets); i++ {
			entry := sm.mediumBuckets[i]
			if entry.length <= uint8(suffixLen) && sharedSuffixMatches(suffixBits, entry.suffix, int(entry.length)) {
				return entry.id, 4 + int(entry.length), true
			}
		}
	}
	return rec.fallbackID, int(rec.fallbackLength), rec.fallbackLength > 0 || rec.fallbackID == 0
}

func sharedSuffixMatches(haystack, candidate uint64, length int) bool {
	if length == 0 {
		return true
	}
	mask := masks[length]
	return haystack&mask == candidate&mask
}

// FindLongestMatch answers the same query as Matcher.FindLongestMatch using
// the tiered static index.
func (sm *StaticMatcher) FindLongestMatch(data []byte) (uint32, int, bool) {
	if len(data) == 0 {
		return 0, 0, false
	}

	if len(data) >= 8 {
		prefix8 := bytesToU64LE(data, 8)
		suffixLen := len(data) - 8
		if suffixLen > 8 {
			suffixLen = 8
		}
		suffixBits := bytesToU64LE(data[8:], suffixLen)
		if sm.longMPH != nil && sm.longMPH.tableSize > 0 {
			idx := sm.longMPH.hash(prefix8)
			if idx < len(sm.longInfo) && sm.longInfo[idx] != nil && sm.longInfo[idx].key == prefix8 {
				rec := sm.longInfo[idx]
				inline := int(rec.nSuffixes)
				if inline > nInlineLong {
					inline = nInlineLong
				}
				for i := 0; i < inline; i++ {
					if rec.inlineLengths[i] <= uint8(suffixLen) && sharedSuffixMatches(suffixBits, rec.inlineSuffixes[i], int(rec.inlineLengths[i])) {
						return rec.inlineIDs[i], 8 + int(rec.inlineLengths[i]), true
					}
				}
				if int(rec.nSuffixes) > nInlineLong {
					start := int(rec.offset)
					end := start + int(rec.nSuffixes) - nInlineLong
					for i := start; i < end && i < len(sm.longBuckets); i++ {
						entry := sm.longBuckets[i]
						if entry.length <= uint8(suffixLen) && sharedSuffixMatches(suffixBits, entry.suffix, int(entry.length)) {
							return entry.id, 8 + int(entry.length), true
						}
					}
				}
				return rec.fallbackID, int(rec.fallbackLength), true
			}
		}
	}

	if len(data) >= 4 {
		prefix4 := bytesToU64LE(data, 4)
		suffixLen := len(data) - 4
		if suffixLen > 4 {
			suffixLen = 4
		}
		suffixBits := bytesToU64LE(data[4:], suffixLen)
		if id, length, ok := sm.lookupMedium(prefix4, suffixBits, suffixLen); ok {
			return id, length, true
		}
	}

	prefixLen := len(data)
	if prefixLen > 3 {
		prefixLen = 3
	}
	prefix := bytesToU64LE(data, prefixLen)
	id, length := sm.shortFallback(prefix, prefixLen)
	return id, length, true
}
