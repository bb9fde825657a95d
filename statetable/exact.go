// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package statetable

import (
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
)

// ExactTable is the exact-match state table kind (the original's
// per-row-locked stringhash5): a key/value store with bounded memory,
// internally sharded for concurrent access without the registry needing
// to know anything about locking.
type ExactTable struct {
	cache *fastcache.Cache
}

// NewExact creates an exact-match table sized to hold roughly maxRecords
// entries. maxRecords of 0 falls back to a small default so tests and
// throwaway local tables don't need to guess a capacity.
func NewExact(maxRecords uint64) (*ExactTable, error) {
	if maxRecords == 0 {
		maxRecords = 1 << 16
	}
	// fastcache sizes itself in bytes; assume an average entry footprint
	// of 128 bytes (key + value + bookkeeping), matching the rough sizing
	// the original's WS_STATESTORE_MAX env var hints at for row-based
	// hash tables.
	bytes := int(maxRecords) * 128
	if bytes < 32*1024 {
		bytes = 32 * 1024
	}
	return &ExactTable{cache: fastcache.New(bytes)}, nil
}

// Kind implements Table.
func (t *ExactTable) Kind() Kind { return KindExact }

// MemoryUsage implements Table.
func (t *ExactTable) MemoryUsage() uint64 {
	var stats fastcache.Stats
	t.cache.UpdateStats(&stats)
	return stats.BytesSize
}

// Get looks up key, returning (nil, false) on a miss.
func (t *ExactTable) Get(key []byte) ([]byte, bool) {
	val, ok := t.cache.HasGet(nil, key)
	return val, ok
}

// Set inserts or overwrites key's value.
func (t *ExactTable) Set(key, val []byte) {
	t.cache.Set(key, val)
}

// Del removes key, counting it toward the table's expiration tally when
// reg is non-nil (callers pass their owning Registry so the teardown
// summary can report it, §4.3).
func (t *ExactTable) Del(reg *Registry, key []byte) {
	t.cache.Del(key)
	if reg != nil {
		reg.BumpExpireCount(t, 1)
	}
}

// Reset clears every entry.
func (t *ExactTable) Reset() { t.cache.Reset() }

// String renders basic cache stats for diagnostics.
func (t *ExactTable) String() string {
	var stats fastcache.Stats
	t.cache.UpdateStats(&stats)
	return fmt.Sprintf("exact(entries=%d, bytes=%d, collisions=%d)", stats.EntriesCount, stats.BytesSize, stats.Collisions)
}
