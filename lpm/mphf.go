package lpm

import "github.com/cespare/xxhash/v2"

// minimalPerfectHash is a displacement-based MPHF (a CHD-family scheme):
// keys are bucketed by a primary hash, then each bucket is assigned a
// displacement so its members land on distinct, previously-unused slots of
// a table sized to ~1.05x the key count.
type minimalPerfectHash struct {
	displacements []uint32
	tableSize     int
	seed1         uint64
	seed2         uint64
}

func newMinimalPerfectHash(keys []uint64) *minimalPerfectHash {
	if len(keys) == 0 {
		return &minimalPerfectHash{tableSize: 0, seed1: 0, seed2: 1}
	}

	tableSize := (len(keys) * 105) / 100
	if tableSize < len(keys)+1 {
		tableSize = len(keys) + 1
	}

	seed1 := uint64(0x517cc1b727220a95)
	seed2 := uint64(0x8b51f5e3e9f0d2af)

	for attempt := 0; attempt < 100; attempt++ {
		displacements := make([]uint32, tableSize)
		occupied := make([]bool, tableSize)
		buckets := make(map[int][]uint64)
		for _, key := range keys {
			h := hash1(key, seed1, tableSize)
			buckets[h] = append(buckets[h], key)
		}

		type bucketInfo struct {
			index int
			keys  []uint64
		}
		sorted := make([]bucketInfo, 0, len(buckets))
		for idx, ks := range buckets {
			sorted = append(sorted, bucketInfo{idx, ks})
		}
		for i := range sorted {
			for j := i + 1; j < len(sorted); j++ {
				if len(sorted[j].keys) > len(sorted[i].keys) {
					sorted[i], sorted[j] = sorted[j], sorted[i]
				}
			}
		}

		success := true
		for _, bucket := range sorted {
			found := false
			for d := uint32(0); d < uint32(tableSize*2); d++ {
				positions := make([]int, len(bucket.keys))
				valid := true
				seen := make(map[int]bool, len(bucket.keys))
				for i, key := range bucket.keys {
					pos := hash2(key, d, seed2, tableSize)
					if occupied[pos] || seen[pos] {
						valid = false
						break
					}
					seen[pos] = true
					positions[i] = pos
				}
				if valid {
					displacements[bucket.index] = d
					for _, pos := range positions {
						occupied[pos] = true
					}
					found = true
					break
				}
			}
			if !found {
				success = false
				break
			}
		}

		if success {
			return &minimalPerfectHash{displacements: displacements, tableSize: tableSize, seed1: seed1, seed2: seed2}
		}

		seed1 = xxhash.Sum64(uint64ToBytes(seed1))
		seed2 = xxhash.Sum64(uint64ToBytes(seed2))
	}

	// Give up on perfectness: a table of twice the key count with zero
	// displacements, indexed by hash2 alone. This index is not collision-free;
	// keys that collide share a slot.
	tableSize = len(keys) * 2
	return &minimalPerfectHash{displacements: make([]uint32, tableSize), tableSize: tableSize, seed1: seed1, seed2: seed2}
}

func (mph *minimalPerfectHash) hash(key uint64) int {
	if mph.tableSize == 0 {
		return 0
	}
	h1 := hash1(key, mph.seed1, mph.tableSize)
	var d uint32
	if h1 < len(mph.displacements) {
		d = mph.displacements[h1]
	}
	return hash2(key, d, mph.seed2, mph.tableSize)
}

func hash1(key uint64, seed uint64, tableSize int) int {
	h := key ^ seed
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return int(h % uint64(tableSize))
}

func hash2(key uint64, displacement uint32, seed uint64, tableSize int) int {
	h := key ^ seed ^ uint64(displacement)
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return int(h % uint64(tableSize))
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
