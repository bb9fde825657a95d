// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statetable

import (
	"math"
	"math/rand"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
)

// BloomTable is the approximate-existence state table kind — the
// original's stringhash9a, "an expiring bloom filter.. only not": a
// fixed-size bit array sized from the expected record count rather than
// a target false-positive rate, with a whole-table Reset (run when the
// owner calls it) standing in for per-entry expiration (the original ages
// the whole table out in generations rather than tracking individual
// entries).
type BloomTable struct {
	bits     *bitset.BitSet
	numBits  uint64
	numHash  int
	hashSeed uint32
	count    uint64
}

// idealBits mirrors the original's sh9a_uint32_log2-based sizing:
// ibits = ceil(log2(20 * maxRecords)) + 1, rounded up to a power of two
// bit-array size.
func idealBits(maxRecords uint64) uint64 {
	if maxRecords == 0 {
		maxRecords = 1024
	}
	ibits := uint64(math.Ceil(math.Log2(float64(20*maxRecords)))) + 1
	return uint64(1) << ibits
}

// NewBloom creates an approximate-existence table sized for maxRecords
// expected insertions, using numHash independent hash probes per
// operation (3 is a reasonable default balancing false-positive rate
// against per-op cost).
func NewBloom(maxRecords uint64, numHash int, hashSeed uint32) *BloomTable {
	if numHash <= 0 {
		numHash = 3
	}
	if hashSeed == 0 {
		hashSeed = rand.Uint32()
	}
	n := idealBits(maxRecords)
	return &BloomTable{
		bits:     bitset.New(uint(n)),
		numBits:  n,
		numHash:  numHash,
		hashSeed: hashSeed,
	}
}

// Kind implements Table.
func (t *BloomTable) Kind() Kind { return KindBloom }

// MemoryUsage implements Table.
func (t *BloomTable) MemoryUsage() uint64 { return t.numBits / 8 }

// Add marks key as present.
func (t *BloomTable) Add(key []byte) {
	for i := 0; i < t.numHash; i++ {
		t.bits.Set(uint(t.slot(key, i)))
	}
	t.count++
}

// Test reports whether key may be present (false positives possible,
// false negatives never — the defining bloom-filter contract).
func (t *BloomTable) Test(key []byte) bool {
	for i := 0; i < t.numHash; i++ {
		if !t.bits.Test(uint(t.slot(key, i))) {
			return false
		}
	}
	return true
}

// Reset clears every bit, the original's whole-generation expiration.
func (t *BloomTable) Reset(reg *Registry) {
	evicted := t.count
	t.bits.ClearAll()
	t.count = 0
	if reg != nil && evicted > 0 {
		reg.BumpExpireCount(t, evicted)
	}
}

func (t *BloomTable) slot(key []byte, probe int) uint64 {
	h := xxhash.Sum64(key) ^ (uint64(t.hashSeed) * uint64(probe+1) * 0x9E3779B97F4A7C15)
	return h % t.numBits
}
