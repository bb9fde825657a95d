// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph_test

import (
	"testing"

	"code.hybscloud.com/flowmesh/graph"
	"code.hybscloud.com/flowmesh/module"
	"code.hybscloud.com/flowmesh/record"
	"code.hybscloud.com/flowmesh/statetable"
)

type fakeSourceAdapter struct {
	dt *record.DataType
}

func (a *fakeSourceAdapter) Init(argv []string, sv module.Sources, tt *record.DataTypeTable) (module.Instance, error) {
	sv.RegisterSource(nil, func(out module.Doutput) bool { return false })
	a.dt = &record.DataType{Name: "counter"}
	if err := tt.Register(a.dt); err != nil {
		return nil, err
	}
	return nil, nil
}

func (a *fakeSourceAdapter) InputSet(inst module.Instance, inputType *record.DataType, port record.Label, outlist *[]module.Outtype, slot int, tt *record.DataTypeTable) (module.ProcessFunc, error) {
	*outlist = append(*outlist, module.Outtype{Type: a.dt})
	return nil, nil
}

func (a *fakeSourceAdapter) InitFinish(inst module.Instance) error { return nil }
func (a *fakeSourceAdapter) Destroy(inst module.Instance) error    { return nil }

type fakeSinkAdapter struct{}

func (a *fakeSinkAdapter) Init(argv []string, sv module.Sources, tt *record.DataTypeTable) (module.Instance, error) {
	return nil, nil
}

func (a *fakeSinkAdapter) InputSet(inst module.Instance, inputType *record.DataType, port record.Label, outlist *[]module.Outtype, slot int, tt *record.DataTypeTable) (module.ProcessFunc, error) {
	return func(inst module.Instance, r *record.Record, out module.Doutput, slot int) error {
		return nil
	}, nil
}

func (a *fakeSinkAdapter) InitFinish(inst module.Instance) error { return nil }
func (a *fakeSinkAdapter) Destroy(inst module.Instance) error    { return nil }

func newTestRegistry(t *testing.T) *graph.ModuleRegistry {
	t.Helper()
	reg := graph.NewModuleRegistry()
	if err := reg.Register("gen", func() module.Adapter { return &fakeSourceAdapter{} }); err != nil {
		t.Fatalf("register gen: %v", err)
	}
	if err := reg.Register("count", func() module.Adapter { return &fakeSinkAdapter{} }); err != nil {
		t.Fatalf("register count: %v", err)
	}
	return reg
}

func baseOptions(t *testing.T) graph.CompileOptions {
	return graph.CompileOptions{
		Modules: newTestRegistry(t),
		Types:   record.NewDataTypeTable(),
		Labels:  record.NewLabelTable(),
		States:  statetable.NewRegistry(),
	}
}

func TestCompileSingleThreadLinearPipeline(t *testing.T) {
	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.Pipeline{
				KidList: graph.KidList{Kids: []graph.KidDef{
					{Tokens: []string{"gen"}},
					{Tokens: []string{"count"}},
				}},
			},
		},
	}

	g, err := graph.Compile(stmts, baseOptions(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("Nodes: got %d, want 2", len(g.Nodes))
	}
	if !g.Nodes[0].IsSource {
		t.Fatalf("first node: got IsSource=false, want true")
	}
	if len(g.FlushOrder) != 2 || g.FlushOrder[0].KidName != "gen" || g.FlushOrder[1].KidName != "count" {
		t.Fatalf("FlushOrder: got %v, want [gen count]", g.FlushOrder)
	}
	if g.CycleThreads.Cardinality() != 0 {
		t.Fatalf("CycleThreads: got %v, want none", g.CycleThreads.ToSlice())
	}
	if len(g.Queues) != 0 {
		t.Fatalf("Queues: got %d, want 0 (single-thread graph)", len(g.Queues))
	}
	if len(g.ThreadIDs) != 1 {
		t.Fatalf("ThreadIDs: got %v, want [0]", g.ThreadIDs)
	}
}

func TestCompileCrossThreadEdgeDemotesToSPSC(t *testing.T) {
	sinkVar := graph.Var{Name: "s"}
	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.Pipeline{
				KidList: graph.KidList{Kids: []graph.KidDef{{Tokens: []string{"gen"}}}},
				Sink:    &sinkVar,
			},
			&graph.ThreadDecl{
				Tid: 1,
				Body: []graph.Node{
					&graph.Pipeline{
						Sources: []graph.Var{{Name: "s"}},
						KidList: graph.KidList{Kids: []graph.KidDef{{Tokens: []string{"count"}}}},
					},
				},
			},
		},
	}

	g, err := graph.Compile(stmts, baseOptions(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(g.ThreadIDs) != 2 {
		t.Fatalf("ThreadIDs: got %v, want 2 threads", g.ThreadIDs)
	}
	if len(g.Queues) != 1 {
		t.Fatalf("Queues: got %d, want 1", len(g.Queues))
	}
	if g.Queues[0].Kind != graph.QueueSPSC {
		t.Fatalf("Queue kind: got %v, want SPSC (single writer thread)", g.Queues[0].Kind)
	}
}

func TestCompileUnknownModuleFails(t *testing.T) {
	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.Pipeline{
				KidList: graph.KidList{Kids: []graph.KidDef{{Tokens: []string{"nonexistent"}}}},
			},
		},
	}
	if _, err := graph.Compile(stmts, baseOptions(t)); err == nil {
		t.Fatalf("Compile with unknown module: expected error")
	}
}

func TestCompileUndefinedStreamVariableFails(t *testing.T) {
	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.Pipeline{
				Sources: []graph.Var{{Name: "missing"}},
				KidList: graph.KidList{Kids: []graph.KidDef{{Tokens: []string{"count"}}}},
			},
		},
	}
	if _, err := graph.Compile(stmts, baseOptions(t)); err == nil {
		t.Fatalf("Compile with undefined stream variable: expected error")
	}
}
