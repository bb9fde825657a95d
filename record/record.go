// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package record implements the reference-counted tagged data record
// ("tuple") that flows through a compiled graph, its interned label set,
// and the process-wide data-type registry.
package record

import (
	"fmt"

	"code.hybscloud.com/atomix"
)

// Record is a reference-counted container of labeled sub-elements.
//
// A Record is allocated by a source or an emitting node, its ref-count
// incremented once per surviving subscriber edge at dispatch time, and
// decremented by the scheduler after dispatch and by the consumer after
// use; it is freed (its DataType.Free callback invoked) when the count
// reaches zero. Ref-count is non-negative at all times: a Record with
// zero count is not referenced by any live subscriber or queue entry.
//
// The crossesThreads flag is set once, at allocation, and never changes:
// records produced by a node with at least one external (cross-thread)
// subscriber use the atomic counter; records that provably stay within
// one thread (no external subscribers at dispatch time) use the faster
// non-atomic counter. This mirrors the design note "Record ref-count:
// atomic increment/decrement when the record may cross threads;
// thread-local non-atomic when the record is known to stay within one
// thread."
type Record struct {
	Type   *DataType
	Labels []Label
	Payload any

	// Flush marks a synthesized record the flush protocol (§4.5 "Source
	// exhaustion and flush") passes to a node's own ProcessFunc in place
	// of a record it consumed from a queue; a module that needs to flush
	// buffered state checks this flag rather than its payload.
	Flush bool

	crossesThreads bool
	refAtomic      atomix.Int64
	refPlain       int64
}

// New allocates a Record of the given type. crossesThreads must be known
// at allocation time by the caller (the scheduler knows, from the
// compiled outtype's subscriber lists, whether any subscriber of the
// about-to-be-emitted outtype is external).
func New(dt *DataType, crossesThreads bool) *Record {
	r := &Record{Type: dt, crossesThreads: crossesThreads}
	if dt != nil && dt.Alloc != nil {
		r.Payload = dt.Alloc()
	}
	if crossesThreads {
		r.refAtomic.StoreRelaxed(1)
	} else {
		r.refPlain = 1
	}
	return r
}

// NewFlush allocates a thread-local synthetic flush record: one with no
// payload, carrying the Flush flag, used by the scheduler's single-thread
// flush walk in place of a real dispatched record.
func NewFlush() *Record {
	r := &Record{Flush: true}
	r.refPlain = 1
	return r
}

// HasLabel reports whether r carries label l.
func (r *Record) HasLabel(l Label) bool {
	for _, have := range r.Labels {
		if have.ID() == l.ID() {
			return true
		}
	}
	return false
}

// AddLabel tags r with l if not already present. Not safe to call once r
// has been handed to more than one subscriber (labels are set by the
// emitting node before ws_set_outdata, never mutated concurrently).
func (r *Record) AddLabel(l Label) {
	if !r.HasLabel(l) {
		r.Labels = append(r.Labels, l)
	}
}

// Locate runs the record's data-type hash-locator against its payload,
// returning the (offset, length) a state table should key on.
func (r *Record) Locate() (offset, length int) {
	if r.Type == nil || r.Type.HashLocator == nil {
		return 0, 0
	}
	return r.Type.HashLocator(r.Payload)
}

// RefCount returns the current reference count. Intended for tests and
// diagnostics; do not branch production dispatch logic on its value
// (the count can change concurrently for cross-thread records).
func (r *Record) RefCount() int64 {
	if r.crossesThreads {
		return r.refAtomic.LoadRelaxed()
	}
	return r.refPlain
}

// Retain increments the ref-count by n, once per surviving subscriber
// edge a dispatch is about to fan out to. n is typically 1, called once
// per local job cell or external push.
func (r *Record) Retain(n int64) {
	if r.crossesThreads {
		r.refAtomic.AddAcqRel(n)
		return
	}
	r.refPlain += n
}

// Release decrements the ref-count by one. When the count reaches zero,
// the record's DataType.Free callback runs and Release returns true.
// Calling Release on an already-freed Record is a programming error and
// panics, since spec §3's invariant ("a record with zero count is not
// referenced by any live subscriber or queue entry") means it should be
// unreachable in a correct scheduler.
func (r *Record) Release() bool {
	var remaining int64
	if r.crossesThreads {
		remaining = r.refAtomic.AddAcqRel(-1)
	} else {
		r.refPlain--
		remaining = r.refPlain
	}
	switch {
	case remaining > 0:
		return false
	case remaining == 0:
		if r.Type != nil && r.Type.Free != nil {
			r.Type.Free(r.Payload)
		}
		return true
	default:
		panic(fmt.Sprintf("record: release on record with non-positive refcount %d (type %v)", remaining, r.Type))
	}
}
