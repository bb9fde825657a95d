// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph_test

import (
	"bytes"
	"strings"
	"testing"

	"code.hybscloud.com/flowmesh/graph"
)

func TestWriteGraphvizProducesDigraph(t *testing.T) {
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

	var buf bytes.Buffer
	if err := graph.WriteGraphviz(&buf, g, false); err != nil {
		t.Fatalf("WriteGraphviz: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "digraph flowmesh {") {
		t.Fatalf("output does not start with digraph header: %q", out)
	}
	if !strings.Contains(out, "cluster_thread0") {
		t.Fatalf("output missing thread-0 cluster: %q", out)
	}
	if !strings.Contains(out, "->") {
		t.Fatalf("output missing any edge: %q", out)
	}
}

func TestWriteGraphvizVerboseIncludesDump(t *testing.T) {
	stmts := &graph.StatementList{
		Body: []graph.Node{
			&graph.Pipeline{
				KidList: graph.KidList{Kids: []graph.KidDef{{Tokens: []string{"gen"}}}},
			},
		},
	}
	g, err := graph.Compile(stmts, baseOptions(t))
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	var buf bytes.Buffer
	if err := graph.WriteGraphviz(&buf, g, true); err != nil {
		t.Fatalf("WriteGraphviz: %v", err)
	}
	if !strings.Contains(buf.String(), "/*") {
		t.Fatalf("verbose output missing spew dump comment block")
	}
}
