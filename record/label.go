// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package record

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Label is an interned name with a stable numeric id, looked up once at
// graph-compile time and compared by id thereafter on every dispatch
// hot-path (never by string).
type Label struct {
	id   uint32
	name string
}

// ID returns the label's stable numeric id.
func (l Label) ID() uint32 { return l.id }

// String returns the label's interned name.
func (l Label) String() string { return l.name }

// IsZero reports whether l is the zero Label (no label present).
func (l Label) IsZero() bool { return l.id == 0 && l.name == "" }

// LabelTable interns label names into numeric ids, process-wide.
//
// Interning happens at graph-compile time only (subscriber wiring,
// §4.4 step 8); the hot dispatch path never
// calls Intern, only compares already-resolved Label values.
type LabelTable struct {
	mu     sync.RWMutex
	byName map[string]Label
	next   uint32
}

// NewLabelTable creates an empty label table. Id 0 is reserved for the
// zero Label (meaning "no label").
func NewLabelTable() *LabelTable {
	return &LabelTable{
		byName: make(map[string]Label),
		next:   1,
	}
}

// Intern returns the Label for name, allocating a fresh id on first use.
// The xxhash digest of name is not part of the returned Label (ids are
// dense and sequential for cache-friendly comparisons), and Intern does
// not hash at all: the table is one map under a read-write lock. The
// xxhash digest is used only by [LabelTable.Shard], for callers that
// partition their own storage.
func (t *LabelTable) Intern(name string) Label {
	t.mu.RLock()
	if l, ok := t.byName[name]; ok {
		t.mu.RUnlock()
		return l
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if l, ok := t.byName[name]; ok {
		return l
	}
	l := Label{id: t.next, name: name}
	t.next++
	t.byName[name] = l
	return l
}

// Lookup returns the Label for name without allocating a new one.
func (t *LabelTable) Lookup(name string) (Label, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	l, ok := t.byName[name]
	return l, ok
}

// Shard returns a deterministic bucket index in [0, n) for name, used by
// callers that want to pre-partition label-keyed storage (e.g. per-thread
// label statistics) without taking the table lock on the hot path.
func (t *LabelTable) Shard(name string, n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return uint32(xxhash.Sum64String(name)) % n
}
