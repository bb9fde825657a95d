// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package module defines the plug-in contract (§4.1) that every kid
// implementation binds to, and the generic-to-specialized adapters
// (buffer-processing, key-state) that translate a narrower callback set
// into it.
package module

import (
	"fmt"

	"code.hybscloud.com/flowmesh/record"
)

// Outtype is a (data type, optional emission label) pair a node declares
// it can emit. The subscriber lists for it live in graph.CompiledOuttype
// (Local/External), populated by the graph compiler during subscriber
// wiring (§4.4 step 8); a module never touches them directly.
type Outtype struct {
	Type  *record.DataType
	Label record.Label
}

// Doutput is how a running node hands emitted records to the scheduler.
// The scheduler implements Doutput; modules only ever see this interface.
type Doutput interface {
	// Emit hands r, tagged as outtype, to the scheduler for dispatch to
	// every subscriber of outtype (§4.5 "ws_set_outdata").
	Emit(r *record.Record, outtype Outtype)
}

// ProcessFunc handles one record for a specific (node, input slot) pair.
// It is the value InputSet returns; the scheduler calls it once per
// matching job. Returning an error marks the node's current record as
// failed; it does not stop the scheduler (§7: no exceptions escape the
// core — process failures are local to one record).
type ProcessFunc func(inst Instance, r *record.Record, out Doutput, slot int) error

// Instance is the opaque per-node state a module's Init call returns. The
// scheduler never inspects it; it is threaded back into every later
// callback for that node.
type Instance any

// Sources lets a module self-register as a source during Init (§4.1).
// The scheduler polls every registered source once per main-loop pass
// until it reports no data (§4.5).
type Sources interface {
	// RegisterSource marks inst as a source node whose Poll method the
	// scheduler must call once per iteration of the node's thread's main
	// loop.
	RegisterSource(inst Instance, poll SourcePoll)
	// RegisterMonitor marks inst as a monitor: a node with no upstream
	// edges that still needs init_finish / flush rendezvous (e.g. a
	// shared-table owner with no direct input).
	RegisterMonitor(inst Instance)
}

// SourcePoll pulls the next batch of records from a source node. It
// returns false once the source is exhausted for this pass, which the
// scheduler counts toward the thread's source-exhaustion tally (§4.5).
type SourcePoll func(out Doutput) (producedAny bool)

// Adapter is the plug-in contract every module implementation satisfies.
//
// Call order, once per node, is fixed by the compiler (§4.4):
// Init (phase 1) -> [VerifySharing] -> InitFinish (phase 2) -> InputSet
// (once per accepted (type, port) pair, during subscriber wiring) ->
// Process (many times) -> Destroy (once, at scheduler teardown).
type Adapter interface {
	// Init allocates per-node state. argv is the kid's token list from
	// its KidDef without the leading module name; sourcev lets the
	// module self-register as a source or
	// monitor; typeTable is the process-wide data-type registry so the
	// module can look up or register the types it works with.
	Init(argv []string, sourcev Sources, typeTable *record.DataTypeTable) (Instance, error)

	// InputSet declares acceptance of an incoming (type, port) pair. It
	// returns the ProcessFunc the scheduler will invoke for jobs on this
	// (node, slot). A node rejects an input by returning an error (e.g.
	// from NewUnsupportedInputError), which fails compilation; a
	// (nil, nil) return is not rejected, and the compiler wires the
	// subscriber with a nil ProcessFunc.
	// outlist is populated with every Outtype the node may emit as a
	// result of accepting this input.
	InputSet(inst Instance, inputType *record.DataType, portLabel record.Label, outlist *[]Outtype, slot int, typeTable *record.DataTypeTable) (ProcessFunc, error)

	// InitFinish runs for every node after every node in the graph has
	// completed Init, letting modules rendezvous through the state-table
	// registry (§4.4 step 7).
	InitFinish(inst Instance) error

	// Destroy tears the node down, e.g. printing stats or releasing
	// state-table registrations it owns.
	Destroy(inst Instance) error
}

// Name returns the module's canonical registry name; Alias returns any
// additional synonym names it should also resolve under (§6 proc_alias).
// Flags describes the optional ABI flags a module may declare.
type Descriptor interface {
	Name() string
	Alias() []string
	Flags() Flags
}

// Flags mirrors the optional §6 ABI flags a module export set carries.
type Flags struct {
	IsProcBuffer           bool
	IsProcKeyState         bool
	IsDeprecated           bool
	ProcBufferPassNotFound bool
}

// SafeCall invokes pf, recovering a panicking module call and converting
// it into an error instead of letting it escape into the scheduler (§7:
// "no exceptions escape the core"). The node's current record is treated
// as a failure, same as pf returning a non-nil error directly; the
// scheduler does not stop or retry.
func SafeCall(pf ProcessFunc, inst Instance, r *record.Record, out Doutput, slot int) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("module: process panicked: %v", p)
		}
	}()
	return pf(inst, r, out, slot)
}

// NewUnsupportedInputError builds the error InputSet returns when the
// (type, port) pair is not one the module accepts; the compiler surfaces
// it verbatim as a compile-time diagnostic (§7).
func NewUnsupportedInputError(moduleName string, typeName string, port record.Label) error {
	return fmt.Errorf("module %q: does not accept input type %q on port %q", moduleName, typeName, port.String())
}
