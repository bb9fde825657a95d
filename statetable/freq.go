// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statetable

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// FreqTable is the frequency-estimator state table kind, an
// approximate top-k counter standing in for the original's
// heavyhitters.h structure (explicitly out of scope to reimplement from
// scratch per spec.md §1's "auxiliary probabilistic data structures...
// except as state-table consumers of the registry"). Backed by an
// LRU-evicted counter map: a key's count rides along with its recency,
// so the table naturally forgets cold keys under memory pressure instead
// of requiring an explicit sweep.
type FreqTable struct {
	counts *lru.Cache[string, uint64]
	cap    int
}

// NewFreq creates a frequency-estimator table tracking up to capacity
// distinct keys.
func NewFreq(capacity int) (*FreqTable, error) {
	if capacity <= 0 {
		capacity = 4096
	}
	c, err := lru.New[string, uint64](capacity)
	if err != nil {
		return nil, err
	}
	return &FreqTable{counts: c, cap: capacity}, nil
}

// Kind implements Table.
func (t *FreqTable) Kind() Kind { return KindFreq }

// MemoryUsage implements Table.
func (t *FreqTable) MemoryUsage() uint64 {
	// Rough fixed-size-entry estimate (key header + uint64 count +
	// LRU bookkeeping); exact accounting isn't exposed by golang-lru.
	return uint64(t.counts.Len()) * 64
}

// Observe increments key's count, returning the updated count.
func (t *FreqTable) Observe(key string) uint64 {
	n, _ := t.counts.Get(key)
	n++
	t.counts.Add(key, n)
	return n
}

// Top returns up to n keys with the highest observed counts.
// It is O(len(keys) * n); callers should not poll this on a hot path.
func (t *FreqTable) Top(n int) []string {
	keys := t.counts.Keys()
	type kc struct {
		key   string
		count uint64
	}
	ranked := make([]kc, 0, len(keys))
	for _, k := range keys {
		c, ok := t.counts.Peek(k)
		if ok {
			ranked = append(ranked, kc{k, c})
		}
	}
	// simple insertion-based top-n selection; tables are capped small
	// enough (registry-bounded) that a full sort is unnecessary overhead
	top := make([]string, 0, n)
	for len(top) < n && len(ranked) > 0 {
		best := 0
		for i := 1; i < len(ranked); i++ {
			if ranked[i].count > ranked[best].count {
				best = i
			}
		}
		top = append(top, ranked[best].key)
		ranked[best] = ranked[len(ranked)-1]
		ranked = ranked[:len(ranked)-1]
	}
	return top
}
