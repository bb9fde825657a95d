// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"code.hybscloud.com/flowmesh/module"
	"code.hybscloud.com/flowmesh/record"
	"code.hybscloud.com/flowmesh/statetable"
)

// Subscriber is one edge in the bound graph, resolved down to the
// concrete ProcessFunc the scheduler calls on dispatch (§4.4 step 8).
type Subscriber struct {
	Node    *CompiledNode
	Slot    int
	Process module.ProcessFunc
	Filter  record.Label // zero Label means "no filter, always match"
	Port    record.Label
}

// CompiledOuttype pairs one of a node's declared module.Outtype values
// with the subscriber lists the compiler wired to it, split by whether
// the subscriber's thread matches the emitter's (§4.4 step 8).
type CompiledOuttype struct {
	module.Outtype
	Local    []*Subscriber
	External []*Subscriber
}

// CompiledNode is one bound processor instance: a (module, version) pair
// assigned to a thread, with live Init'd state.
type CompiledNode struct {
	UID       string
	KidName   string
	Version   int
	Thread    int
	Adapter   module.Adapter
	Instance  module.Instance
	Outtypes  []*CompiledOuttype
	IsSource  bool
	IsMonitor bool
	Poll      module.SourcePoll

	// ProcessFuncs holds the ProcessFunc returned by this node's own
	// InputSet calls, indexed by slot, for the flush protocol (§4.5
	// "Source exhaustion and flush") to invoke directly rather than
	// through a dispatched Job.
	ProcessFuncs []module.ProcessFunc

	visitedSlots int // next input slot to assign during subscriber wiring
}

// QueueKind distinguishes the cheap single-producer variant from the
// general multi-producer variant a cross-thread queue is built with
// (§4.4 step 11).
type QueueKind int

const (
	QueueSPSC QueueKind = iota
	QueueMPSC
)

func (k QueueKind) String() string {
	if k == QueueSPSC {
		return "spsc"
	}
	return "mpsc"
}

// ExternalQueueSpec describes the one shared queue a reader thread uses
// to receive records from every writer thread that targets it.
type ExternalQueueSpec struct {
	ToThread    int
	FromThreads []int
	Kind        QueueKind
	Capacity    int
}

// CompiledGraph is the graph compiler's output: the populated runtime
// graph (§4.4 "Output").
type CompiledGraph struct {
	Nodes        []*CompiledNode
	ThreadIDs    []int // dense [0, N) after remapping
	FlushOrder   []*CompiledNode
	CycleThreads mapset.Set[int]
	Queues       []ExternalQueueSpec
	Warnings     []string
}

// CompileOptions bundles every process-wide collaborator the compiler
// threads through Init/InputSet/InitFinish calls, plus the knobs exposed
// on the CLI (§6).
type CompileOptions struct {
	Modules        *ModuleRegistry
	Types          *record.DataTypeTable
	Labels         *record.LabelTable
	States         *statetable.Registry
	QueueCapacity  int  // default 16, §4.2 "Shared queue (bounded)"
	ValidateInputs bool // -r, §4.4 step 13
	Logf           func(format string, args ...any)
}

func (o *CompileOptions) logf(format string, args ...any) {
	if o.Logf != nil {
		o.Logf(format, args...)
	}
}

// edge is a resolved node-to-node connection discovered during variable
// collapse (§4.4 step 2) or an in-pipeline adjacency. filter/port carry
// the consuming Var's decorations (§4.4 "Edge policies").
type edge struct {
	from, to *flatKid
	filter   string
	port     string
}

// flatKid is one KidDef occurrence after function expansion and bundle
// rewriting, with a definite thread assignment, still pre-module-binding.
type flatKid struct {
	def    KidDef
	thread int
	synth  bool // true for an inserted bundle/unbundle node (§4.4 step 3)
	node   *CompiledNode
}

// Compile runs the full 13-step pipeline of §4.4 against stmts and
// returns the bound, schedulable graph.
func Compile(stmts *StatementList, opts CompileOptions) (*CompiledGraph, error) {
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = 16
	}

	// Step 1: function expansion.
	expanded, err := expandFunctions(stmts.Body)
	if err != nil {
		return nil, fmt.Errorf("graph: function expansion: %w", err)
	}

	// Flatten thread-context blocks and pipelines into flatKid chains plus
	// the cross-pipeline Var bindings variable collapse needs.
	fc := &flattener{threadSeq: 1}
	pipelines, err := fc.flatten(expanded, 0)
	if err != nil {
		return nil, fmt.Errorf("graph: flatten: %w", err)
	}

	// Step 3: bundle rewriting, done before variable collapse so inserted
	// bundle/unbundle kids participate in the same-pipeline adjacency
	// edges built next.
	for i := range pipelines {
		pipelines[i].kids = rewriteBundles(pipelines[i].kids)
	}

	// Same-pipeline adjacency edges (kid[i] -> kid[i+1]).
	var edges []edge
	for _, p := range pipelines {
		for i := 0; i+1 < len(p.kids); i++ {
			edges = append(edges, edge{from: p.kids[i], to: p.kids[i+1]})
		}
	}

	// Step 2: variable collapse. A Pipeline with a Sink var feeds every
	// Pipeline whose Sources list names that same var; the var itself
	// never appears as a graph vertex.
	producers := make(map[string]*flatKid)
	for _, p := range pipelines {
		if p.sink != nil && len(p.kids) > 0 {
			producers[p.sink.Name] = p.kids[len(p.kids)-1]
		}
	}
	for _, p := range pipelines {
		if len(p.kids) == 0 {
			continue
		}
		for _, src := range p.sources {
			producer, ok := producers[src.Name]
			if !ok {
				return nil, fmt.Errorf("graph: stream variable %q has no producer", src.Name)
			}
			edges = append(edges, edge{from: producer, to: p.kids[0], filter: src.Filter, port: src.TargetPort})
		}
	}

	// Step 4: module binding.
	var allKids []*flatKid
	var warnedDeprecatedPipe bool
	for _, p := range pipelines {
		allKids = append(allKids, p.kids...)
		for _, fk := range p.kids {
			if fk.def.InPipeType == PipeDouble && !warnedDeprecatedPipe {
				opts.logf("graph: pipeline uses deprecated `||` thread-forcing operator")
				warnedDeprecatedPipe = true
			}
		}
	}
	nodes := make([]*CompiledNode, 0, len(allKids))
	for _, fk := range allKids {
		canonical, version, inst, err := opts.Modules.Bind(fk.def.Tokens[0])
		if err != nil {
			return nil, fmt.Errorf("graph: module binding: %w", err)
		}
		n := &CompiledNode{
			UID:     KidUID(),
			KidName: canonical,
			Version: version,
			Thread:  fk.thread,
			Adapter: inst,
		}
		fk.node = n
		nodes = append(nodes, n)
	}

	// Step 5: module init, phase 1.
	for i, fk := range allKids {
		n := nodes[i]
		sv := &sourceCollector{node: n}
		argv := fk.def.Tokens
		if len(argv) > 0 {
			argv = argv[1:]
		}
		instance, err := n.Adapter.Init(argv, sv, opts.Types)
		if err != nil {
			return nil, fmt.Errorf("graph: module %q init: %w", n.KidName, err)
		}
		n.Instance = instance
	}

	// Step 6: share verification, between the two init phases so
	// demotion is visible to phase 2 (§4.3 "verify_sharing").
	opts.States.VerifySharing()

	// Step 7: module init, phase 2.
	for _, n := range nodes {
		if err := n.Adapter.InitFinish(n.Instance); err != nil {
			return nil, fmt.Errorf("graph: module %q init_finish: %w", n.KidName, err)
		}
	}

	// Build the per-node outgoing edge index (by source kid) needed for
	// subscriber wiring and flush wiring below.
	outEdges := make(map[*flatKid][]edge)
	for _, e := range edges {
		outEdges[e.from] = append(outEdges[e.from], e)
	}
	kidOf := make(map[*CompiledNode]*flatKid, len(allKids))
	for _, fk := range allKids {
		kidOf[fk.node] = fk
	}

	// Step 8: subscriber wiring. BFS from source nodes; a node is visited
	// once per distinct incoming edge (a fresh input slot each time).
	var sources []*CompiledNode
	for _, n := range nodes {
		if n.IsSource {
			sources = append(sources, n)
		}
	}

	var flushOrder []*CompiledNode
	flushPos := make(map[*CompiledNode]int)

	pushFlush := func(n *CompiledNode) {
		if pos, ok := flushPos[n]; ok {
			flushOrder = append(flushOrder[:pos], flushOrder[pos+1:]...)
			for k, v := range flushPos {
				if v > pos {
					flushPos[k] = v - 1
				}
			}
		}
		flushPos[n] = len(flushOrder)
		flushOrder = append(flushOrder, n)
	}

	// A source node declares its own emission types via the same
	// input_set callback, invoked once with no real input (slot 0).
	for _, s := range sources {
		var outlist []module.Outtype
		process, err := s.Adapter.InputSet(s.Instance, nil, record.Label{}, &outlist, 0, opts.Types)
		if err != nil {
			return nil, fmt.Errorf("graph: module %q input_set (source): %w", s.KidName, err)
		}
		s.visitedSlots++
		s.ProcessFuncs = append(s.ProcessFuncs, process)
		for _, ot := range outlist {
			s.Outtypes = append(s.Outtypes, &CompiledOuttype{Outtype: ot})
		}
		pushFlush(s)
	}

	traversed := mapset.NewThreadUnsafeSet[*CompiledNode]()
	var pendingEdges []edge
	for _, s := range sources {
		traversed.Add(s)
		pendingEdges = append(pendingEdges, outEdges[kidOf[s]]...)
	}

	var crossThreadEdges []edge
	for len(pendingEdges) > 0 {
		e := pendingEdges[0]
		pendingEdges = pendingEdges[1:]

		upstream := e.from.node
		downstream := e.to.node

		var filterLabel record.Label
		if e.filter != "" {
			filterLabel = opts.Labels.Intern(e.filter)
		}
		var portL record.Label
		if e.port != "" {
			portL = opts.Labels.Intern(e.port)
		}

		slot := downstream.visitedSlots
		downstream.visitedSlots++
		var outlist []module.Outtype
		process, err := downstream.Adapter.InputSet(downstream.Instance, firstOuttype(upstream), portL, &outlist, slot, opts.Types)
		if err != nil {
			return nil, fmt.Errorf("graph: module %q input_set: %w", downstream.KidName, err)
		}
		downstream.ProcessFuncs = append(downstream.ProcessFuncs, process)
		for _, ot := range outlist {
			downstream.Outtypes = append(downstream.Outtypes, &CompiledOuttype{Outtype: ot})
		}

		sub := &Subscriber{Node: downstream, Slot: slot, Process: process, Filter: filterLabel, Port: portL}

		crossThread := upstream.Thread != downstream.Thread
		if crossThread {
			crossThreadEdges = append(crossThreadEdges, e)
		}
		for _, co := range upstream.Outtypes {
			if crossThread {
				co.External = append(co.External, sub)
			} else {
				co.Local = append(co.Local, sub)
			}
		}

		pushFlush(downstream)

		if !traversed.Contains(downstream) {
			traversed.Add(downstream)
			pendingEdges = append(pendingEdges, outEdges[kidOf[downstream]]...)
		}
	}

	// Step 9 (flush wiring) is accomplished above: pushFlush runs on every
	// BFS visit, in discovery order, moving re-encountered nodes to the
	// tail so a node is flushed only after every one of its feeders.

	// Step 10: cycle detection.
	maxThread := 0
	for _, n := range nodes {
		if n.Thread > maxThread {
			maxThread = n.Thread
		}
	}
	tg := NewThreadGraph(maxThread + 1)
	for _, e := range crossThreadEdges {
		tg.AddEdge(e.from.thread, e.to.thread)
	}
	cycleThreads := CycleParticipants(tg.SCCs())

	// Step 11: shared-queue demotion, grouped by reader thread.
	writersByReader := make(map[int]mapset.Set[int])
	for _, e := range crossThreadEdges {
		set, ok := writersByReader[e.to.thread]
		if !ok {
			set = mapset.NewThreadUnsafeSet[int]()
			writersByReader[e.to.thread] = set
		}
		set.Add(e.from.thread)
	}
	var queues []ExternalQueueSpec
	for reader, writers := range writersByReader {
		kind := QueueMPSC
		if writers.Cardinality() <= 1 {
			kind = QueueSPSC
		}
		queues = append(queues, ExternalQueueSpec{
			ToThread:    reader,
			FromThreads: writers.ToSlice(),
			Kind:        kind,
			Capacity:    opts.QueueCapacity,
		})
	}

	// Step 12: thread-id remapping to a dense [0, N) space, in order of
	// first appearance across the bound node list.
	remap := make(map[int]int)
	var dense []int
	for _, n := range nodes {
		if _, ok := remap[n.Thread]; !ok {
			remap[n.Thread] = len(dense)
			dense = append(dense, n.Thread)
		}
	}
	for _, n := range nodes {
		n.Thread = remap[n.Thread]
	}
	remappedCycle := mapset.NewThreadUnsafeSet[int]()
	cycleThreads.Each(func(t int) bool {
		remappedCycle.Add(remap[t])
		return false
	})
	for i := range queues {
		queues[i].ToThread = remap[queues[i].ToThread]
		for j, w := range queues[i].FromThreads {
			queues[i].FromThreads[j] = remap[w]
		}
	}

	// Step 13: input-validation pass, opt-in via -r.
	var warnings []string
	if warnedDeprecatedPipe {
		warnings = append(warnings, "pipeline uses deprecated `||` thread-forcing operator")
	}
	if opts.ValidateInputs {
		for _, n := range nodes {
			if n.IsSource || n.IsMonitor {
				continue
			}
			if n.visitedSlots == 0 {
				return nil, fmt.Errorf("graph: node %q (%s) has no registered input", n.UID, n.KidName)
			}
		}
	}

	threadIDs := make([]int, len(dense))
	for i := range dense {
		threadIDs[i] = i
	}

	return &CompiledGraph{
		Nodes:        nodes,
		ThreadIDs:    threadIDs,
		FlushOrder:   flushOrder,
		CycleThreads: remappedCycle,
		Queues:       queues,
		Warnings:     warnings,
	}, nil
}

func firstOuttype(n *CompiledNode) *record.DataType {
	if len(n.Outtypes) == 0 {
		return nil
	}
	return n.Outtypes[0].Type
}

// sourceCollector implements module.Sources, recording the node's
// self-declared source/monitor status during Init (§4.1).
type sourceCollector struct {
	node *CompiledNode
	poll module.SourcePoll
}

func (s *sourceCollector) RegisterSource(inst module.Instance, poll module.SourcePoll) {
	s.node.IsSource = true
	s.node.Poll = poll
	s.poll = poll
}

func (s *sourceCollector) RegisterMonitor(inst module.Instance) {
	s.node.IsMonitor = true
}
