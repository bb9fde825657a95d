// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph_test

import (
	"strings"
	"testing"

	"code.hybscloud.com/flowmesh/graph"
)

func TestParseGraphJSONPipeline(t *testing.T) {
	const doc = `[
		{
			"kind": "pipeline",
			"kids": [
				{"tokens": ["gen"]},
				{"tokens": ["count"], "in_pipe_type": "single"}
			],
			"sink": {"name": "out"}
		}
	]`

	stmts, err := graph.ParseGraphJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseGraphJSON: %v", err)
	}
	if len(stmts.Body) != 1 {
		t.Fatalf("Body: got %d nodes, want 1", len(stmts.Body))
	}
	p, ok := stmts.Body[0].(*graph.Pipeline)
	if !ok {
		t.Fatalf("Body[0]: got %T, want *graph.Pipeline", stmts.Body[0])
	}
	kids := p.KidList.Kids
	if len(kids) != 2 || kids[0].Tokens[0] != "gen" || kids[1].Tokens[0] != "count" {
		t.Fatalf("Kids: got %+v", kids)
	}
	if kids[1].InPipeType != graph.PipeSingle {
		t.Fatalf("Kids[1].InPipeType: got %v, want PipeSingle", kids[1].InPipeType)
	}
	if p.Sink == nil || p.Sink.Name != "out" {
		t.Fatalf("Sink: got %+v, want Name=out", p.Sink)
	}
}

func TestParseGraphJSONThreadWithNestedFuncCall(t *testing.T) {
	const doc = `[
		{
			"kind": "thread",
			"tid": 2,
			"body": [
				{"kind": "func_call", "name": "helper", "sources": ["a"], "dests": ["b"]}
			]
		}
	]`

	stmts, err := graph.ParseGraphJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseGraphJSON: %v", err)
	}
	td, ok := stmts.Body[0].(*graph.ThreadDecl)
	if !ok {
		t.Fatalf("Body[0]: got %T, want *graph.ThreadDecl", stmts.Body[0])
	}
	if td.Tid != 2 {
		t.Fatalf("Tid: got %d, want 2", td.Tid)
	}
	if len(td.Body) != 1 {
		t.Fatalf("Body: got %d nodes, want 1", len(td.Body))
	}
	fc, ok := td.Body[0].(*graph.FuncCall)
	if !ok {
		t.Fatalf("Body[0].Body[0]: got %T, want *graph.FuncCall", td.Body[0])
	}
	if fc.Name != "helper" || len(fc.Sources) != 1 || fc.Sources[0] != "a" || len(fc.Dests) != 1 || fc.Dests[0] != "b" {
		t.Fatalf("FuncCall: got %+v", fc)
	}
}

func TestParseGraphJSONFuncDecl(t *testing.T) {
	const doc = `[
		{
			"kind": "func_decl",
			"name": "mkfilter",
			"sources": ["in"],
			"dests": ["out"],
			"body": [
				{"kind": "pipeline", "kids": [{"tokens": ["filter", "label"]}]}
			]
		}
	]`

	stmts, err := graph.ParseGraphJSON(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseGraphJSON: %v", err)
	}
	fd, ok := stmts.Body[0].(*graph.FuncDecl)
	if !ok {
		t.Fatalf("Body[0]: got %T, want *graph.FuncDecl", stmts.Body[0])
	}
	if fd.Name != "mkfilter" || len(fd.Body) != 1 {
		t.Fatalf("FuncDecl: got %+v", fd)
	}
}

func TestParseGraphJSONUnknownKindFails(t *testing.T) {
	const doc = `[{"kind": "bogus"}]`
	if _, err := graph.ParseGraphJSON(strings.NewReader(doc)); err == nil {
		t.Fatalf("ParseGraphJSON with unknown kind: expected error")
	}
}

func TestParseGraphJSONUnknownPipeTypeFails(t *testing.T) {
	const doc = `[
		{"kind": "pipeline", "kids": [{"tokens": ["gen"], "in_pipe_type": "triple"}]}
	]`
	if _, err := graph.ParseGraphJSON(strings.NewReader(doc)); err == nil {
		t.Fatalf("ParseGraphJSON with unknown in_pipe_type: expected error")
	}
}

func TestParseGraphJSONMalformedFails(t *testing.T) {
	if _, err := graph.ParseGraphJSON(strings.NewReader("not json")); err == nil {
		t.Fatalf("ParseGraphJSON with malformed input: expected error")
	}
}
