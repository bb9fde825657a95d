// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package statetable implements the process-wide state-table registry
// (§4.3): the central ledger of shared and local state tables, the
// share-label discovery mechanism that lets two kids agree to share one
// table's physical storage, and the three concrete table kinds
// (exact-match, approximate-existence, frequency-estimator) the registry
// can hold.
package statetable

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Kind identifies which concrete table backs a registry entry.
type Kind int

const (
	KindExact Kind = iota
	KindBloom
	KindFreq
)

func (k Kind) String() string {
	switch k {
	case KindExact:
		return "exact"
	case KindBloom:
		return "bloom"
	case KindFreq:
		return "freq"
	default:
		return "unknown"
	}
}

// Table is the minimal surface every registered state table implements.
// Concrete kinds (ExactTable, BloomTable, FreqTable) expose their own
// richer Get/Set/Add/Test/Observe APIs on top of this; callers that hold
// a Table from the registry type-assert to the kind they expect.
type Table interface {
	Kind() Kind
	MemoryUsage() uint64
}

// entry is one registry ledger row, mirroring the original's
// sht_registry_t: kind, owning kid name, optional share label, table
// handle, footprint, hash seed, and an expiration counter modules bump
// as they age out entries.
type entry struct {
	kind       Kind
	kidName    string
	shareLabel string
	table      Table
	size       uint64
	hashSeed   uint32
	refCount   int
	expireCnt  uint64
	shared     bool
}

// Registry is a ledger of registered state tables (design note "Global
// mutable state": confined here rather than scattered package globals).
// Each runtime.Runtime holds its own; GlobalRegistry is a separate
// process-wide instance.
type Registry struct {
	mu     sync.Mutex
	shared map[string]*entry
	local  []*entry
}

// NewRegistry creates an empty registry. runtime.New uses it for each
// Runtime's States ledger, and tests use it for an isolated ledger.
func NewRegistry() *Registry {
	return &Registry{shared: make(map[string]*entry)}
}

var (
	globalOnce sync.Once
	global     *Registry
)

// GlobalRegistry returns the process-wide Registry singleton, confining
// what would otherwise be the original's file-scope registry globals to
// one explicitly-named accessor.
func GlobalRegistry() *Registry {
	globalOnce.Do(func() { global = NewRegistry() })
	return global
}

// RegisterShared registers table under shareLabel. The first registration
// for a given label creates the share descriptor and owns the table's
// physical storage (spec §3 invariant: "exactly one compiled graph owns
// the table's physical storage"); every subsequent call with the same
// label bumps the reference count and returns the table from the first
// registration, discarding the caller's own table argument.
func (r *Registry) RegisterShared(table Table, kind Kind, shareLabel string, size uint64, hashSeed uint32) (Table, error) {
	if shareLabel == "" {
		return nil, fmt.Errorf("statetable: RegisterShared requires a non-empty share label")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.shared[shareLabel]; ok {
		if e.kind != kind {
			return nil, fmt.Errorf("statetable: share label %q already registered with kind %s, cannot reuse as %s", shareLabel, e.kind, kind)
		}
		e.refCount++
		return e.table, nil
	}

	e := &entry{
		kind:       kind,
		shareLabel: shareLabel,
		table:      table,
		size:       size,
		hashSeed:   hashSeed,
		refCount:   1,
		shared:     true,
	}
	r.shared[shareLabel] = e
	return table, nil
}

// RegisterLocal registers an unshared, per-thread table. Local tables
// never participate in VerifySharing demotion; they are always
// thread-local by construction.
func (r *Registry) RegisterLocal(table Table, kind Kind, size uint64, hashSeed uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.local = append(r.local, &entry{
		kind:     kind,
		table:    table,
		size:     size,
		hashSeed: hashSeed,
		refCount: 1,
		shared:   false,
	})
	return nil
}

// Release drops one reference from shareLabel's entry, as a node tears
// down (module.Destroy). It does not remove the entry or free the table
// — VerifySharing and process teardown are the only places the registry
// actually discards a table.
func (r *Registry) Release(shareLabel string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.shared[shareLabel]; ok && e.refCount > 0 {
		e.refCount--
	}
}

// VerifySharing runs once, post-compile, on the main thread (§4.4 step
// 6). Any shared table whose reference count is 1 — a "share of one",
// i.e. no second kid ever actually agreed to share it — is demoted: its
// share-label is released so later phases treat it exactly like a local
// table. The demoted labels are returned sorted. Demotion changes only
// the registry's bookkeeping: the table itself, including any locking its
// concrete type does internally, is left as it is, and graph/compile.go
// does not act on the returned list.
func (r *Registry) VerifySharing() (demoted []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for label, e := range r.shared {
		if e.refCount <= 1 {
			demoted = append(demoted, label)
			delete(r.shared, label)
			r.local = append(r.local, e)
			e.shared = false
		}
	}
	sort.Strings(demoted)
	return demoted
}

// BumpExpireCount lets a table owner record that it aged out n entries,
// surfaced later in the teardown summary.
func (r *Registry) BumpExpireCount(table Table, n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.shared {
		if e.table == table {
			e.expireCnt += n
			return
		}
	}
	for _, e := range r.local {
		if e.table == table {
			e.expireCnt += n
			return
		}
	}
}

// Verbosity controls how much detail TeardownSummary prints, mirroring
// the §6 `-t level` flag.
type Verbosity int

const (
	// VerbosityCount prints only the number of registered tables.
	VerbosityCount Verbosity = iota
	// VerbositySize additionally prints each table's kind and footprint.
	VerbositySize
	// VerbosityFull additionally prints expiration counts and hash seeds.
	VerbosityFull
)

// TeardownSummary renders the registry's final report (§4.3 "Teardown
// prints a summary and a per-table expiration count").
func (r *Registry) TeardownSummary(v Verbosity) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var b strings.Builder
	all := make([]*entry, 0, len(r.shared)+len(r.local))
	for _, e := range r.shared {
		all = append(all, e)
	}
	all = append(all, r.local...)

	fmt.Fprintf(&b, "state tables: %d\n", len(all))
	if v == VerbosityCount {
		return b.String()
	}
	for _, e := range all {
		label := e.shareLabel
		if label == "" {
			label = "<local>"
		}
		fmt.Fprintf(&b, "  %-8s %-20s size=%d", e.kind, label, e.size)
		if v == VerbosityFull {
			fmt.Fprintf(&b, " expired=%d seed=%d refs=%d", e.expireCnt, e.hashSeed, e.refCount)
		}
		b.WriteByte('\n')
	}
	return b.String()
}
