// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"fmt"
	"io"

	"github.com/aclements/go-moremath/graph"
	"github.com/aclements/go-moremath/graph/graphout"
)

// A Step is one transition: processor Proc took an Op transition.
type Step struct {
	Proc Proc
	Op   OpKind
}

func (s Step) String() string {
	return fmt.Sprintf("%s %s", s.Proc, s.Op)
}

// StateGraph is the reachability graph of an exploration. Node 0 is
// the initial state. It implements graph.Graph.
type StateGraph struct {
	states []*State
	out    [][]int
	labels [][]Step

	// parent and via record the edge along which each node was
	// first discovered. parent[0] is -1.
	parent []int
	via    []Step
}

var _ graph.Graph = (*StateGraph)(nil)

func newStateGraph() *StateGraph {
	return &StateGraph{}
}

func (g *StateGraph) add(s *State, parent int, via Step) {
	g.states = append(g.states, s)
	g.out = append(g.out, nil)
	g.labels = append(g.labels, nil)
	g.parent = append(g.parent, parent)
	g.via = append(g.via, via)
}

func (g *StateGraph) edge(from, to int, label Step) {
	g.out[from] = append(g.out[from], to)
	g.labels[from] = append(g.labels[from], label)
}

// NumNodes returns the number of distinct states.
func (g *StateGraph) NumNodes() int {
	return len(g.states)
}

// Out returns the successors of node i. A successor appears once per
// transition leading to it.
func (g *StateGraph) Out(i int) []int {
	return g.out[i]
}

// State returns the state of node i.
func (g *StateGraph) State(i int) *State {
	return g.states[i]
}

// Label returns the transition of the e'th out-edge of node i.
func (g *StateGraph) Label(i, e int) Step {
	return g.labels[i][e]
}

// Path returns the steps along which node i was first reached from
// the initial state.
func (g *StateGraph) Path(i int) []Step {
	var path []Step
	for ; g.parent[i] >= 0; i = g.parent[i] {
		path = append(path, g.via[i])
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// WriteDot writes g to w in Graphviz dot format. Final states are
// drawn with a double border.
func (g *StateGraph) WriteDot(w io.Writer, name string) error {
	d := graphout.Dot{
		Name: name,
		Label: func(node int) string {
			return g.states[node].String()
		},
		NodeAttrs: func(node int) []graphout.DotAttr {
			attrs := []graphout.DotAttr{{Name: "shape", Val: "box"}}
			if g.states[node].Final() {
				attrs = append(attrs, graphout.DotAttr{Name: "peripheries", Val: 2})
			}
			return attrs
		},
		EdgeAttrs: func(node, edge int) []graphout.DotAttr {
			return []graphout.DotAttr{{Name: "label", Val: g.labels[node][edge].String()}}
		},
	}
	return d.Fprint(w, g)
}
