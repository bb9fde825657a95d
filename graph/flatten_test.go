// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph_test

import (
	"testing"

	"code.hybscloud.com/flowmesh/graph"
)

func TestCompileExpandsFunctionCall(t *testing.T) {
	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.FuncDecl{
				Name:    "pipe",
				Sources: []string{"in"},
				Dests:   []string{"out"},
				Body: []graph.Node{
					&graph.Pipeline{
						Sources: []graph.Var{{Name: "in"}},
						KidList: graph.KidList{Kids: []graph.KidDef{{Tokens: []string{"count"}}}},
						Sink:    &graph.Var{Name: "out"},
					},
				},
			},
			&graph.Pipeline{
				KidList: graph.KidList{Kids: []graph.KidDef{{Tokens: []string{"gen"}}}},
				Sink:    &graph.Var{Name: "a"},
			},
			&graph.FuncCall{Name: "pipe", Sources: []string{"a"}, Dests: []string{"b"}},
		},
	}

	g, err := graph.Compile(stmts, baseOptions(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(g.Nodes) != 2 {
		t.Fatalf("Nodes: got %d, want 2 (gen, count)", len(g.Nodes))
	}
}

func TestCompileRecursiveFunctionCallFails(t *testing.T) {
	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.FuncDecl{
				Name:    "loopy",
				Sources: []string{"in"},
				Dests:   []string{"out"},
				Body: []graph.Node{
					&graph.FuncCall{Name: "loopy", Sources: []string{"in"}, Dests: []string{"out"}},
				},
			},
			&graph.FuncCall{Name: "loopy", Sources: []string{"a"}, Dests: []string{"b"}},
		},
	}
	if _, err := graph.Compile(stmts, baseOptions(t)); err == nil {
		t.Fatalf("Compile with recursive function call: expected error")
	}
}

func TestCompileUndefinedFunctionCallFails(t *testing.T) {
	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.FuncCall{Name: "nope", Sources: []string{"a"}, Dests: []string{"b"}},
		},
	}
	if _, err := graph.Compile(stmts, baseOptions(t)); err == nil {
		t.Fatalf("Compile with undefined function call: expected error")
	}
}
