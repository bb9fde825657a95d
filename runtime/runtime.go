// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runtime wires the graph compiler, module registry, state-table
// registry, and scheduler into the single explicitly passed context the
// rest of the system threads calls through, per the design note on
// confining process-wide state to a `Runtime` value instead of package
// globals.
package runtime

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/record"
	"code.hybscloud.com/flowmesh/scheduler"
	"code.hybscloud.com/flowmesh/statetable"
)

// Options configures a Runtime, collecting every knob the driver's flags
// (§6) and environment variables populate before compile.
type Options struct {
	Logger *logrus.Logger

	QueueCapacity  int    // default 16
	ValidateInputs bool   // -r
	Verbose        bool   // -V
	Seed           uint64 // -s; recorded only: neither the compiler nor any state table reads it
	StateStoreMax  uint64 // WS_STATESTORE_MAX; recorded only: no state-table constructor reads it

	ThreadOffset    int  // -T, disables hwloc-style pinning in favor of a fixed CPU offset
	DisablePinning  bool // -W
	MaxFlushIters   int
	SkipExitFlush   bool // -X
	KeepShared      bool // -v, skip Destroy at teardown
	StateStatsLevel statetable.Verbosity // -t
}

// DefaultOptions returns the zero-value-safe defaults §6 documents for
// flags the user did not pass.
func DefaultOptions() Options {
	return Options{
		Logger:        logrus.New(),
		QueueCapacity: 16,
		MaxFlushIters: 64,
		ThreadOffset:  -1, // negative means no -T: pinPlan below then starts at CPU 0
	}
}

// Runtime is the process-wide context every compile and run threads
// through explicitly: the module registry, interned label table,
// data-type table, state-table registry, and logger. Exactly one Runtime
// exists per process; nothing here is a package-level variable.
type Runtime struct {
	Options Options

	Modules *graph.ModuleRegistry
	Labels  *record.LabelTable
	Types   *record.DataTypeTable
	States  *statetable.Registry

	log *logrus.Entry
}

// New constructs a Runtime with fresh registries, ready for modules to
// register themselves into via Modules.Register before the first Compile.
func New(opts Options) *Runtime {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	if opts.Verbose {
		opts.Logger.SetLevel(logrus.DebugLevel)
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 16
	}
	if opts.MaxFlushIters <= 0 {
		opts.MaxFlushIters = 64
	}

	return &Runtime{
		Options: opts,
		Modules: graph.NewModuleRegistry(),
		Labels:  record.NewLabelTable(),
		Types:   record.NewDataTypeTable(),
		States:  statetable.NewRegistry(),
		log:     logrus.NewEntry(opts.Logger),
	}
}

// SetLogOutput redirects the Runtime's logger, implementing -L file.
func (rt *Runtime) SetLogOutput(w io.Writer) {
	rt.Options.Logger.SetOutput(w)
}

// Log returns the structured logger every subsystem should log through.
func (rt *Runtime) Log() *logrus.Entry { return rt.log }

// Compile runs the graph compiler (§4.4) against ast using this
// Runtime's registries, returning the bound, schedulable graph.
func (rt *Runtime) Compile(stmts *graph.StatementList) (*graph.CompiledGraph, error) {
	opts := graph.CompileOptions{
		Modules:        rt.Modules,
		Types:          rt.Types,
		Labels:         rt.Labels,
		States:         rt.States,
		QueueCapacity:  rt.Options.QueueCapacity,
		ValidateInputs: rt.Options.ValidateInputs,
		Logf: func(format string, args ...any) {
			rt.log.Debugf(format, args...)
		},
	}
	g, err := graph.Compile(stmts, opts)
	if err != nil {
		return nil, fmt.Errorf("runtime: compile: %w", err)
	}
	for _, w := range g.Warnings {
		rt.log.Warn(w)
	}
	return g, nil
}

// pinPlan resolves -T/-W into a graph.PinPlan: an explicit offset, a
// disabled no-op plan, or (when neither flag was passed) one CPU per
// thread starting at 0, standing in for the original's hwloc-based
// idle-percentage placement the pack carries no Go binding for.
func (rt *Runtime) pinPlan(numThreads int) graph.PinPlan {
	if rt.Options.DisablePinning {
		return graph.PlanDisabled(numThreads)
	}
	offset := rt.Options.ThreadOffset
	if offset < 0 {
		offset = 0
	}
	return graph.PlanOffset(numThreads, offset)
}

// NewScheduler builds a scheduler.Scheduler for g using this Runtime's
// resolved pin plan and flush/logging options.
func (rt *Runtime) NewScheduler(g *graph.CompiledGraph) *scheduler.Scheduler {
	return scheduler.New(g, scheduler.Options{
		PinPlan:       rt.pinPlan(len(g.ThreadIDs)),
		SkipExitFlush: rt.Options.SkipExitFlush,
		MaxFlushIters: rt.Options.MaxFlushIters,
		KeepShared:    rt.Options.KeepShared,
		Logger:        rt.log,
	})
}

// Run compiles stmts and runs the resulting graph to completion (until
// every source is exhausted and flushed, or the caller requests exit via
// the returned scheduler's RequestExit). cmd/flowmesh does not call it:
// its runOnce calls Compile, NewScheduler and the scheduler's Run itself,
// with the graphviz dumps in between.
func (rt *Runtime) Run(stmts *graph.StatementList) (*scheduler.Scheduler, error) {
	g, err := rt.Compile(stmts)
	if err != nil {
		return nil, err
	}
	sched := rt.NewScheduler(g)
	sched.Run()
	return sched, nil
}

// TeardownSummary renders the state-table registry's -t report at the
// verbosity level Options.StateStatsLevel selects. The result is never
// empty: at the default VerbosityCount (-t not passed) it is still the
// one-line table count.
func (rt *Runtime) TeardownSummary() string {
	return rt.States.TeardownSummary(rt.Options.StateStatsLevel)
}

// writeFile is a small helper the driver's -G/-Z graphviz dump flags use;
// kept here so cmd/flowmesh stays thin glue over Runtime.
func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("runtime: create %q: %w", path, err)
	}
	defer f.Close()
	return write(f)
}

// DumpGraphviz writes g's graphviz dump (§6) to path, at the verbosity
// -V selects.
func (rt *Runtime) DumpGraphviz(path string, g *graph.CompiledGraph) error {
	return writeFile(path, func(w io.Writer) error {
		return graph.WriteGraphviz(w, g, rt.Options.Verbose)
	})
}
