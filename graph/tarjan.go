// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// ThreadGraph is the thread-level directed graph built in §4.4 step 10:
// one vertex per thread id, one edge whenever a subscriber's thread
// differs from its emitter's thread.
type ThreadGraph struct {
	numThreads int
	adj        []mapset.Set[int] // adjacency list, dedup'd per edge
}

// NewThreadGraph creates an empty graph over numThreads dense thread ids
// [0, numThreads).
func NewThreadGraph(numThreads int) *ThreadGraph {
	g := &ThreadGraph{numThreads: numThreads, adj: make([]mapset.Set[int], numThreads)}
	for i := range g.adj {
		g.adj[i] = mapset.NewThreadUnsafeSet[int]()
	}
	return g
}

// AddEdge records that thread `from` has at least one subscriber on
// thread `to`. Self-edges (from == to) are not meaningful for deadlock
// detection (a thread never waits on its own queue) and are ignored.
func (g *ThreadGraph) AddEdge(from, to int) {
	if from == to {
		return
	}
	g.adj[from].Add(to)
}

// tarjanState is the mutable working state of one SCC computation,
// mirroring original_source's tarjan_graph_t (digraph, stack, lowlink,
// visited) but expressed as recursive Go instead of the manual stack the
// C implementation needs.
type tarjanState struct {
	g        *ThreadGraph
	index    []int
	lowlink  []int
	onStack  []bool
	visited  []bool
	stack    []int
	counter  int
	sccs     [][]int
}

// SCCs runs Tarjan's algorithm over g and returns every strongly
// connected component, in discovery order. A component of size 1 where
// the single vertex has no self-loop is a trivial (non-cyclic) SCC and
// is still returned — callers filter for size >= 2 themselves (§4.4 step
// 10: "strongly connected components of size >= 2").
func (g *ThreadGraph) SCCs() [][]int {
	st := &tarjanState{
		g:       g,
		index:   make([]int, g.numThreads),
		lowlink: make([]int, g.numThreads),
		onStack: make([]bool, g.numThreads),
		visited: make([]bool, g.numThreads),
	}
	for i := range st.index {
		st.index[i] = -1
	}
	for v := 0; v < g.numThreads; v++ {
		if !st.visited[v] {
			st.strongConnect(v)
		}
	}
	return st.sccs
}

func (st *tarjanState) strongConnect(v int) {
	st.visited[v] = true
	st.index[v] = st.counter
	st.lowlink[v] = st.counter
	st.counter++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	neighbors := st.g.adj[v].ToSlice()
	for _, w := range neighbors {
		if !st.visited[w] {
			st.strongConnect(w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.index[w] < st.lowlink[v] {
				st.lowlink[v] = st.index[w]
			}
		}
	}

	if st.lowlink[v] == st.index[v] {
		var component []int
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		st.sccs = append(st.sccs, component)
	}
}

// CycleParticipants returns the set of thread ids that belong to some
// SCC of size >= 2 — the precondition for communication deadlock
// (§4.4 step 10, §5 "Deadlock policy").
func CycleParticipants(sccs [][]int) mapset.Set[int] {
	participants := mapset.NewThreadUnsafeSet[int]()
	for _, comp := range sccs {
		if len(comp) >= 2 {
			for _, v := range comp {
				participants.Add(v)
			}
		}
	}
	return participants
}
