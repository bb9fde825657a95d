// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runtime_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/module"
	"code.hybscloud.com/flowmesh/record"
	"code.hybscloud.com/flowmesh/runtime"
)

type noopAdapter struct{ dt *record.DataType }

func (a *noopAdapter) Init(argv []string, sv module.Sources, tt *record.DataTypeTable) (module.Instance, error) {
	a.dt = &record.DataType{Name: "item"}
	if err := tt.Register(a.dt); err != nil {
		return nil, err
	}
	sv.RegisterSource(nil, func(out module.Doutput) bool { return false })
	return nil, nil
}

func (a *noopAdapter) InputSet(inst module.Instance, inputType *record.DataType, port record.Label, outlist *[]module.Outtype, slot int, tt *record.DataTypeTable) (module.ProcessFunc, error) {
	*outlist = append(*outlist, module.Outtype{Type: a.dt})
	return nil, nil
}

func (a *noopAdapter) InitFinish(module.Instance) error { return nil }
func (a *noopAdapter) Destroy(module.Instance) error     { return nil }

func TestDefaultOptionsFillsZeroValueDefaults(t *testing.T) {
	opts := runtime.DefaultOptions()
	if opts.QueueCapacity != 16 {
		t.Fatalf("QueueCapacity: got %d, want 16", opts.QueueCapacity)
	}
	if opts.MaxFlushIters != 64 {
		t.Fatalf("MaxFlushIters: got %d, want 64", opts.MaxFlushIters)
	}
	if opts.ThreadOffset != -1 {
		t.Fatalf("ThreadOffset: got %d, want -1 (no -T offset)", opts.ThreadOffset)
	}
}

func TestNewFillsInZeroOptionsAndSetsDebugLevel(t *testing.T) {
	rt := runtime.New(runtime.Options{Verbose: true})
	if rt.Options.QueueCapacity != 16 {
		t.Fatalf("QueueCapacity: got %d, want 16 (New's own fallback)", rt.Options.QueueCapacity)
	}
	if rt.Log().Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("log level: got %v, want Debug under Verbose", rt.Log().Logger.GetLevel())
	}
	if rt.Modules == nil || rt.Labels == nil || rt.Types == nil || rt.States == nil {
		t.Fatalf("New: expected every registry to be constructed")
	}
}

func TestCompileAndNewSchedulerRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	rt := runtime.New(runtime.Options{Logger: log})
	if err := rt.Modules.Register("gen", func() module.Adapter { return &noopAdapter{} }); err != nil {
		t.Fatalf("register gen: %v", err)
	}

	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.Pipeline{
				KidList: graph.KidList{Kids: []graph.KidDef{{Tokens: []string{"gen"}}}},
			},
		},
	}

	g, err := rt.Compile(stmts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(g.Nodes) != 1 {
		t.Fatalf("Nodes: got %d, want 1", len(g.Nodes))
	}

	sched := rt.NewScheduler(g)
	if sched == nil {
		t.Fatalf("NewScheduler: got nil")
	}

	if summary := rt.TeardownSummary(); summary == "" {
		t.Fatalf("TeardownSummary: got empty string, want a nonempty default-verbosity report")
	}
}

func TestSetLogOutputRedirects(t *testing.T) {
	rt := runtime.New(runtime.Options{})
	var buf bytes.Buffer
	rt.SetLogOutput(&buf)
	rt.Log().Info("hello")
	if buf.Len() == 0 {
		t.Fatalf("SetLogOutput: expected log output to land in the redirected writer")
	}
}

func TestSetLogOutputDiscard(t *testing.T) {
	rt := runtime.New(runtime.Options{})
	rt.SetLogOutput(io.Discard)
	rt.Log().Info("swallowed")
}
