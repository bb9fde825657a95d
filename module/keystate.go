// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package module

import (
	"time"

	"code.hybscloud.com/flowmesh/record"
	"code.hybscloud.com/flowmesh/statetable"
)

// ExpireMode names an expiration style for a KeyStateProcessor's backing
// table. The adapter stores the chosen mode in its KeyStateConfig but
// runs no eviction of its own under either mode: entries leave the
// exact-match table only through that table's own capacity-based
// eviction.
type ExpireMode int

const (
	// ExpireGradual names incremental, per-update eviction; the adapter
	// does not perform it.
	ExpireGradual ExpireMode = iota
	// ExpireBatch names timed bulk eviction; the adapter runs no timer
	// and does not perform it.
	ExpireBatch
)

// KeyStateProcessor is the narrower callback set a state-keyed update
// module implements (§4.1 "key-state adapter"). KeyStateAdapter wraps it
// into a full Adapter, registering its backing table in
// statetable.GlobalRegistry, so adapters with the same share label
// coalesce onto one table. That registry is not the one graph.Compile
// runs VerifySharing on (runtime.Runtime.States), so these tables are
// never demoted and do not appear in the Runtime's teardown summary.
type KeyStateProcessor interface {
	// Update applies one record's contribution to the state keyed by
	// key, returning zero or more derived records to emit.
	Update(key []byte, r *record.Record) (emit []*record.Record, err error)
}

// KeyStateConfig configures a KeyStateAdapter instance.
type KeyStateConfig struct {
	Name        string
	ShareLabel  string // empty means an unshared, per-node table
	MaxRecords  uint64
	ExpireMode  ExpireMode
	ExpireEvery time.Duration // stored only; the adapter starts no timer from it
}

type keyStateAdapter struct {
	cfg     KeyStateConfig
	newProc func(tbl statetable.Table) KeyStateProcessor
	emitAs  *record.DataType
}

// NewKeyStateAdapter builds a generic Adapter around a KeyStateProcessor
// factory, backing it with an exact-match state table registered under
// cfg.ShareLabel (or a local table if ShareLabel is empty).
func NewKeyStateAdapter(cfg KeyStateConfig, emitAs *record.DataType, newProc func(tbl statetable.Table) KeyStateProcessor) Adapter {
	return &keyStateAdapter{cfg: cfg, newProc: newProc, emitAs: emitAs}
}

type keyStateInstance struct {
	proc KeyStateProcessor
	tbl  statetable.Table
	cfg  KeyStateConfig
	reg  *statetable.Registry
}

func (a *keyStateAdapter) Init(argv []string, _ Sources, _ *record.DataTypeTable) (Instance, error) {
	reg := statetable.GlobalRegistry()
	tbl, err := statetable.NewExact(a.cfg.MaxRecords)
	if err != nil {
		return nil, err
	}

	var shared statetable.Table
	if a.cfg.ShareLabel != "" {
		shared, err = reg.RegisterShared(tbl, statetable.KindExact, a.cfg.ShareLabel, a.cfg.MaxRecords, 0)
	} else {
		shared, err = tbl, reg.RegisterLocal(tbl, statetable.KindExact, a.cfg.MaxRecords, 0)
	}
	if err != nil {
		return nil, err
	}

	proc := a.newProc(shared)
	return &keyStateInstance{proc: proc, tbl: shared, cfg: a.cfg, reg: reg}, nil
}

func (a *keyStateAdapter) InputSet(inst Instance, inputType *record.DataType, port record.Label, outlist *[]Outtype, slot int, _ *record.DataTypeTable) (ProcessFunc, error) {
	*outlist = append(*outlist, Outtype{Type: a.emitAs})
	process := func(i Instance, r *record.Record, out Doutput, slot int) error {
		ks := i.(*keyStateInstance)
		off, ln := r.Locate()
		var key []byte
		if b, ok := r.Payload.([]byte); ok && off+ln <= len(b) {
			key = b[off : off+ln]
		}
		emitted, err := ks.proc.Update(key, r)
		if err != nil {
			return err
		}
		for _, e := range emitted {
			out.Emit(e, Outtype{Type: a.emitAs})
		}
		return nil
	}
	return process, nil
}

func (a *keyStateAdapter) InitFinish(Instance) error { return nil }

func (a *keyStateAdapter) Destroy(inst Instance) error {
	ks := inst.(*keyStateInstance)
	if ks.cfg.ShareLabel != "" {
		ks.reg.Release(ks.cfg.ShareLabel)
	}
	return nil
}
