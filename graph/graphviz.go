// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph

import (
	"fmt"
	"io"

	"github.com/davecgh/go-spew/spew"
)

// WriteGraphviz emits a standard `digraph` dump of g: one node per
// (kid-name, version), edges labeled "src_label;port[THREAD]", and one
// `subgraph cluster_threadN` per distinct thread id (§6 "Graphviz dump").
// When verbose is true, each node's full compiled state is appended as a
// comment via go-spew, for -V diagnostics.
func WriteGraphviz(w io.Writer, g *CompiledGraph, verbose bool) error {
	if _, err := fmt.Fprintln(w, "digraph flowmesh {"); err != nil {
		return err
	}

	byThread := make(map[int][]*CompiledNode)
	for _, n := range g.Nodes {
		byThread[n.Thread] = append(byThread[n.Thread], n)
	}
	for _, tid := range g.ThreadIDs {
		if _, err := fmt.Fprintf(w, "  subgraph cluster_thread%d {\n", tid); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "    label = \"thread %d\";\n", tid); err != nil {
			return err
		}
		for _, n := range byThread[tid] {
			if _, err := fmt.Fprintf(w, "    %q [label=%q];\n", n.UID, nodeLabel(n)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w, "  }"); err != nil {
			return err
		}
	}

	for _, n := range g.Nodes {
		for _, co := range n.Outtypes {
			for _, sub := range append(append([]*Subscriber{}, co.Local...), co.External...) {
				if _, err := fmt.Fprintf(w, "  %q -> %q [label=%q];\n",
					n.UID, sub.Node.UID, edgeLabel(co, sub)); err != nil {
					return err
				}
			}
		}
	}

	if verbose {
		if _, err := fmt.Fprintln(w, "  /*"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, spew.Sdump(g)); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, "  */"); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintln(w, "}")
	return err
}

func nodeLabel(n *CompiledNode) string {
	return fmt.Sprintf("%s#%d", n.KidName, n.Version)
}

func edgeLabel(co *CompiledOuttype, sub *Subscriber) string {
	srcLabel := co.Label.String()
	port := sub.Port.String()
	return fmt.Sprintf("%s;%s[%d]", srcLabel, port, sub.Node.Thread)
}
