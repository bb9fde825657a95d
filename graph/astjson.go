// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

// varJSON is the wire shape of a Var (§6's AST contract).
type varJSON struct {
	Name       string `json:"name"`
	Filter     string `json:"filter,omitempty"`
	TargetPort string `json:"target_port,omitempty"`
	Bundled    bool   `json:"bundled,omitempty"`
}

func (v varJSON) toVar() Var {
	return Var{Name: v.Name, Filter: v.Filter, TargetPort: v.TargetPort, Bundled: v.Bundled}
}

// kidJSON is the wire shape of a KidDef.
type kidJSON struct {
	Tokens      []string `json:"tokens"`
	SourcePort  string   `json:"source_port,omitempty"`
	InPipeType  string   `json:"in_pipe_type,omitempty"` // "none" | "single" | "double"
	BundleVar   string   `json:"bundle_var,omitempty"`
	BundleIsSrc bool     `json:"bundle_is_src,omitempty"`
}

func (k kidJSON) toKidDef() (KidDef, error) {
	var pt PipeType
	switch k.InPipeType {
	case "", "none":
		pt = PipeNone
	case "single":
		pt = PipeSingle
	case "double":
		pt = PipeDouble
	default:
		return KidDef{}, fmt.Errorf("graph: astjson: unknown in_pipe_type %q", k.InPipeType)
	}
	return KidDef{
		Tokens:      k.Tokens,
		SourcePort:  k.SourcePort,
		InPipeType:  pt,
		BundleVar:   k.BundleVar,
		BundleIsSrc: k.BundleIsSrc,
	}, nil
}

// nodeJSON is a discriminated-union envelope wide enough to hold any of
// StatementList.Body's node kinds; only the fields relevant to Kind are
// ever populated by an encoder. This stands in for the original config
// DSL's lexer/parser (not retrieved in this pack's original_source, and
// outside §2's in-scope layer boundary, which starts at "AST → bound
// graph"): cmd/flowmesh's `-F file` flag decodes a file in this shape
// directly into a graph.StatementList instead of a textual grammar.
type nodeJSON struct {
	Kind string `json:"kind"`

	// thread
	Tid                 int        `json:"tid,omitempty"`
	TwoD                bool       `json:"two_d,omitempty"`
	IsLegacyForceThread bool       `json:"legacy_force_thread,omitempty"`
	Body                []nodeJSON `json:"body,omitempty"`

	// func_decl / func_call
	Name    string   `json:"name,omitempty"`
	Sources []string `json:"sources,omitempty"`
	Dests   []string `json:"dests,omitempty"`

	// pipeline
	PipelineSources []varJSON `json:"pipeline_sources,omitempty"`
	Kids            []kidJSON `json:"kids,omitempty"`
	Sink            *varJSON  `json:"sink,omitempty"`
	Register        bool      `json:"register,omitempty"`
}

func (n nodeJSON) toNode() (Node, error) {
	switch n.Kind {
	case "thread":
		body, err := decodeBody(n.Body)
		if err != nil {
			return nil, err
		}
		return &ThreadDecl{Tid: n.Tid, TwoD: n.TwoD, IsLegacyForceThread: n.IsLegacyForceThread, Body: body}, nil
	case "func_decl":
		body, err := decodeBody(n.Body)
		if err != nil {
			return nil, err
		}
		return &FuncDecl{Name: n.Name, Sources: n.Sources, Dests: n.Dests, Body: body}, nil
	case "func_call":
		return &FuncCall{Name: n.Name, Sources: n.Sources, Dests: n.Dests}, nil
	case "pipeline":
		srcs := make([]Var, len(n.PipelineSources))
		for i, v := range n.PipelineSources {
			srcs[i] = v.toVar()
		}
		kids := make([]KidDef, len(n.Kids))
		for i, k := range n.Kids {
			kd, err := k.toKidDef()
			if err != nil {
				return nil, err
			}
			kids[i] = kd
		}
		var sink *Var
		if n.Sink != nil {
			v := n.Sink.toVar()
			sink = &v
		}
		return &Pipeline{Sources: srcs, KidList: KidList{Kids: kids}, Sink: sink, Register: n.Register}, nil
	default:
		return nil, fmt.Errorf("graph: astjson: unknown node kind %q", n.Kind)
	}
}

func decodeBody(envs []nodeJSON) ([]Node, error) {
	nodes := make([]Node, 0, len(envs))
	for _, e := range envs {
		n, err := e.toNode()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// ParseGraphJSON decodes r's JSON document - a top-level array of
// nodeJSON envelopes - into a StatementList, in place of the textual
// config-DSL parser described in §6 and out of this implementation's
// scope (see DESIGN.md).
func ParseGraphJSON(r io.Reader) (*StatementList, error) {
	var envs []nodeJSON
	if err := json.NewDecoder(r).Decode(&envs); err != nil {
		return nil, fmt.Errorf("graph: astjson: decode: %w", err)
	}
	body, err := decodeBody(envs)
	if err != nil {
		return nil, err
	}
	return &StatementList{Body: body}, nil
}
