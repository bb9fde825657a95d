// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package graph

import "fmt"

// expandFunctions rewrites every FuncCall in body inline against its
// FuncDecl's body, substituting formal source/dest names for the
// caller's actual stream variables, and fails on recursive call chains
// (§4.4 step 1).
func expandFunctions(body []Node) ([]Node, error) {
	funcs := make(map[string]*FuncDecl)
	collectFuncDecls(body, funcs)
	return expandBody(body, funcs, make(map[string]bool))
}

func collectFuncDecls(body []Node, funcs map[string]*FuncDecl) {
	for _, n := range body {
		switch v := n.(type) {
		case *FuncDecl:
			funcs[v.Name] = v
		case *ThreadDecl:
			collectFuncDecls(v.Body, funcs)
		}
	}
}

func expandBody(body []Node, funcs map[string]*FuncDecl, stack map[string]bool) ([]Node, error) {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		switch v := n.(type) {
		case *FuncDecl:
			// Declarations are consumed at expansion time; they never
			// appear in the runtime graph themselves.
			continue

		case *FuncCall:
			decl, ok := funcs[v.Name]
			if !ok {
				return nil, fmt.Errorf("undefined function %q", v.Name)
			}
			if stack[v.Name] {
				return nil, fmt.Errorf("recursive call to function %q", v.Name)
			}
			if len(v.Sources) != len(decl.Sources) || len(v.Dests) != len(decl.Dests) {
				return nil, fmt.Errorf("function %q: called with %d source(s)/%d dest(s), declared with %d/%d",
					v.Name, len(v.Sources), len(v.Dests), len(decl.Sources), len(decl.Dests))
			}

			subst := make(map[string]string, len(decl.Sources)+len(decl.Dests))
			for i, formal := range decl.Sources {
				subst[formal] = v.Sources[i]
			}
			for i, formal := range decl.Dests {
				subst[formal] = v.Dests[i]
			}

			// Quirk (preserved verbatim, §9 open questions): a source-label
			// filter set on any one occurrence of a formal argument name
			// inside the function body leaks onto every other occurrence
			// of that same argument, not just the one that declared it.
			leaked := leakedFilters(decl.Body, subst)

			substBody := substituteBody(decl.Body, subst, leaked)

			nextStack := make(map[string]bool, len(stack)+1)
			for k := range stack {
				nextStack[k] = true
			}
			nextStack[v.Name] = true

			inner, err := expandBody(substBody, funcs, nextStack)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)

		case *ThreadDecl:
			inner, err := expandBody(v.Body, funcs, stack)
			if err != nil {
				return nil, err
			}
			out = append(out, &ThreadDecl{Tid: v.Tid, TwoD: v.TwoD, IsLegacyForceThread: v.IsLegacyForceThread, Body: inner})

		default:
			out = append(out, n)
		}
	}
	return out, nil
}

// leakedFilters scans body for Pipeline.Sources entries that reference a
// substituted formal name and carry a non-empty Filter, returning the
// first such filter found per formal name.
func leakedFilters(body []Node, subst map[string]string) map[string]string {
	leaked := make(map[string]string)
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch v := n.(type) {
			case *Pipeline:
				for _, src := range v.Sources {
					if _, isFormal := subst[src.Name]; isFormal && src.Filter != "" {
						if _, seen := leaked[src.Name]; !seen {
							leaked[src.Name] = src.Filter
						}
					}
				}
			case *ThreadDecl:
				walk(v.Body)
			}
		}
	}
	walk(body)
	return leaked
}

// substituteBody deep-copies body, renaming every reference to a formal
// source/dest name to the caller's actual stream variable, applying the
// leaked-filter quirk along the way.
func substituteBody(body []Node, subst map[string]string, leaked map[string]string) []Node {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		switch v := n.(type) {
		case *Pipeline:
			np := &Pipeline{Register: v.Register}
			np.Sources = make([]Var, len(v.Sources))
			for i, s := range v.Sources {
				np.Sources[i] = substituteVar(s, subst, leaked)
			}
			if v.Sink != nil {
				sink := substituteVar(*v.Sink, subst, leaked)
				np.Sink = &sink
			}
			np.KidList = v.KidList
			out = append(out, np)

		case *ThreadDecl:
			out = append(out, &ThreadDecl{
				Tid: v.Tid, TwoD: v.TwoD, IsLegacyForceThread: v.IsLegacyForceThread,
				Body: substituteBody(v.Body, subst, leaked),
			})

		case *FuncCall:
			nv := &FuncCall{Name: v.Name}
			nv.Sources = renameList(v.Sources, subst)
			nv.Dests = renameList(v.Dests, subst)
			out = append(out, nv)

		default:
			out = append(out, n)
		}
	}
	return out
}

func substituteVar(v Var, subst map[string]string, leaked map[string]string) Var {
	formal := v.Name
	if actual, ok := subst[v.Name]; ok {
		v.Name = actual
	}
	if f, ok := leaked[formal]; ok {
		v.Filter = f
	}
	return v
}

func renameList(names []string, subst map[string]string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		if actual, ok := subst[n]; ok {
			out[i] = actual
		} else {
			out[i] = n
		}
	}
	return out
}

// pipelineInfo is one Pipeline after function expansion and thread
// assignment, its kids still pre-module-binding.
type pipelineInfo struct {
	kids    []*flatKid
	sources []Var
	sink    *Var
}

// flattener walks the expanded AST, assigning a thread id to every kid
// occurrence and allocating fresh synthetic thread ids for legacy `||`
// blocks and pipe operators (§4.4 "Edge policies").
type flattener struct {
	threadSeq int
}

const syntheticThreadBase = 1 << 20

func (fc *flattener) nextThread() int {
	fc.threadSeq++
	return syntheticThreadBase + fc.threadSeq
}

// flatten walks nodes (already function-expanded) under the given
// enclosing thread id and returns one pipelineInfo per Pipeline found.
func (fc *flattener) flatten(nodes []Node, thread int) ([]*pipelineInfo, error) {
	var out []*pipelineInfo
	for _, n := range nodes {
		switch v := n.(type) {
		case *ThreadDecl:
			t := v.Tid
			if v.IsLegacyForceThread {
				t = fc.nextThread()
			}
			inner, err := fc.flatten(v.Body, t)
			if err != nil {
				return nil, err
			}
			out = append(out, inner...)

		case *Pipeline:
			pi := &pipelineInfo{sources: v.Sources, sink: v.Sink}
			cur := thread
			for i, kd := range v.KidList.Kids {
				if i > 0 && kd.InPipeType == PipeDouble {
					cur = fc.nextThread()
				}
				pi.kids = append(pi.kids, &flatKid{def: kd, thread: cur})
			}
			out = append(out, pi)

		case *FuncDecl, *FuncCall:
			return nil, fmt.Errorf("graph: %T survived function expansion", n)
		}
	}
	return out, nil
}

// rewriteBundles inserts the implicit unbundle/bundle kid a `@$var`
// decoration implies (§4.4 step 3), returning a new kid slice.
func rewriteBundles(kids []*flatKid) []*flatKid {
	out := make([]*flatKid, 0, len(kids))
	for _, fk := range kids {
		if fk.def.BundleVar != "" && fk.def.BundleIsSrc {
			out = append(out, &flatKid{
				def:    KidDef{Tokens: []string{"unbundle", fk.def.BundleVar}},
				thread: fk.thread,
				synth:  true,
			})
		}
		out = append(out, fk)
		if fk.def.BundleVar != "" && !fk.def.BundleIsSrc {
			out = append(out, &flatKid{
				def:    KidDef{Tokens: []string{"bundle", fk.def.BundleVar}},
				thread: fk.thread,
				synth:  true,
			})
		}
	}
	return out
}
