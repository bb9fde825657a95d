// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package graph implements the graph compiler (§4.4): it turns the
// parser's AST (§6) into a bound, schedulable graph with thread
// assignments, module bindings, subscriber wiring, flush order, and
// detected communication cycles.
//
// The parser itself is out of scope (spec.md §1); this package only
// consumes its output contract, reproduced here as the AST node types.
package graph

// Node is the common interface every AST node satisfies. It carries no
// behavior; it exists so StatementList.Body can hold a heterogeneous
// slice without an interface{} escape hatch at every call site.
type Node interface{ astNode() }

// StatementList is the root of a parsed config: an ordered sequence of
// declarations and pipelines.
type StatementList struct {
	Body []Node
}

func (*StatementList) astNode() {}

// ThreadDecl assigns every KidDef in Body to thread id Tid.
// IsLegacyForceThread marks a block introduced with the deprecated `||`
// operator (§4.4 edge policies, §9 open questions): such a block forces a
// *new* thread id even when nested inside an existing ThreadDecl, and is
// accepted rather than rejected. The deprecation warning graph.Compile
// logs comes from `||` pipe edges (PipeDouble), not from this flag.
// Neither flatten nor Compile reads TwoD.
type ThreadDecl struct {
	Tid                 int
	TwoD                bool
	IsLegacyForceThread bool
	Body                []Node
}

func (*ThreadDecl) astNode() {}

// FuncDecl declares a reusable pipeline fragment. Sources and Dests name
// the formal stream-variable parameters; Body is expanded inline at
// every FuncCall site with a fresh version number (§4.4 step 1).
type FuncDecl struct {
	Name    string
	Sources []string
	Dests   []string
	Body    []Node
}

func (*FuncDecl) astNode() {}

// FuncCall invokes a previously declared FuncDecl, binding Sources/Dests
// to the caller's own stream variables. Recursive calls (directly or
// through a chain) are rejected during expansion.
type FuncCall struct {
	Name    string
	Sources []string
	Dests   []string
}

func (*FuncCall) astNode() {}

// Pipeline is one `src | kid | kid | sink` chain. Register marks it as a
// flush-eligible pipeline (every node reachable from a source is
// registered as a flush subscriber regardless, but Register documents
// the source intent for diagnostics).
type Pipeline struct {
	Sources  []Var
	KidList  KidList
	Sink     *Var
	Register bool
}

func (*Pipeline) astNode() {}

// KidDef is one processor node occurrence in a pipeline. Tokens is the
// module name followed by its argv; SourcePort and InPipeType capture
// the edge that feeds this kid from its upstream neighbor in the KidList.
type KidDef struct {
	Tokens      []string
	SourcePort  string
	InPipeType  PipeType
	BundleVar   string // non-empty when an @$var bundle decoration applies
	BundleIsSrc bool   // true if @$var is on the source side of this kid
}

func (*KidDef) astNode() {}

// PipeType distinguishes the normal `|` pipe operator from the
// deprecated `||` thread-forcing operator (§4.4 edge policies).
type PipeType int

const (
	// PipeNone marks the first kid in a KidList (no upstream pipe).
	PipeNone PipeType = iota
	// PipeSingle is the ordinary `|` operator: same thread unless an
	// enclosing ThreadDecl says otherwise.
	PipeSingle
	// PipeDouble is the deprecated `||` operator: always forces a new
	// thread id for the kid that follows it.
	PipeDouble
)

// Var is a named stream variable. Filter is the source-side label filter
// (an edge is taken only if the record bears this label); TargetPort is
// the input-port label bound on the consumer side. Bundled marks a
// `@$var` decoration (§4.4 step 3).
type Var struct {
	Name       string
	Filter     string
	TargetPort string
	Bundled    bool
}

// VarList is an ordered list of stream-variable references, e.g. a
// FuncCall's Sources or Dests.
type VarList struct {
	Vars []Var
}

func (*VarList) astNode() {}

// KidList is an ordered list of KidDef occurrences within one Pipeline.
type KidList struct {
	Kids []KidDef
}

func (*KidList) astNode() {}
