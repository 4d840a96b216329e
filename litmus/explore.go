// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"context"
	"fmt"
	"strings"

	"github.com/aclements/go-moremath/stats"
)

// Order is the order in which Explore visits states. It affects only
// performance: every order finds the same set of terminal states.
type Order int

const (
	BFS Order = iota
	DFS
)

func (o Order) String() string {
	switch o {
	case BFS:
		return "bfs"
	case DFS:
		return "dfs"
	}
	return fmt.Sprintf("Order(%d)", int(o))
}

// ParseOrder parses "bfs" or "dfs".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(s) {
	case "bfs":
		return BFS, nil
	case "dfs":
		return DFS, nil
	}
	return 0, fmt.Errorf("unknown exploration order %q", s)
}

// Options control Explore. The zero Options explores breadth-first
// with no state budget and no graph.
type Options struct {
	Order Order

	// MaxStates, if non-zero, is the maximum number of distinct
	// states to discover before giving up with ErrBudget.
	MaxStates int

	// Graph, if true, records the full reachability graph in
	// Outcomes.Graph.
	Graph bool
}

// Outcomes is the result of exploring a program.
type Outcomes struct {
	// Terminals holds one Terminal per distinct final state, in
	// discovery order.
	Terminals []*Terminal

	Stats Stats

	// Graph is the reachability graph, if Options.Graph was set.
	Graph *StateGraph
}

// Trace returns the sequence of steps from the initial state to the
// final state t was derived from. It requires a recorded graph.
func (o *Outcomes) Trace(t *Terminal) ([]Step, bool) {
	if o.Graph == nil || t.node < 0 {
		return nil, false
	}
	return o.Graph.Path(t.node), true
}

// Stats summarizes an exploration.
type Stats struct {
	States      int // Distinct states discovered
	Tried       int // Transitions attempted
	Applied     int // Transitions that applied, including to known states
	MaxFrontier int // Peak length of the work list

	// Branching holds the number of successors of each expanded
	// (non-final) state.
	Branching stats.Sample
}

func (s *Stats) String() string {
	var mean, median, max float64
	if len(s.Branching.Xs) > 0 {
		mean = s.Branching.Mean()
		median = s.Branching.Quantile(0.5)
		_, max = s.Branching.Bounds()
	}
	return fmt.Sprintf("%d states, %d/%d transitions applied, peak frontier %d, branching mean %.2f median %g max %g",
		s.States, s.Applied, s.Tried, s.MaxFrontier, mean, median, max)
}

// ctxCheckInterval is how many states Explore expands between checks
// for context cancellation.
const ctxCheckInterval = 1024

// Explore finds every terminal state reachable from init by any
// interleaving of the transitions of prog's processors.
//
// It returns an error wrapping ErrIllFormed if prog and init don't
// describe the same processors, ErrVacuous if no final state is
// reachable, ErrBudget if opts.MaxStates is exceeded, or ctx.Err() if
// ctx is cancelled.
func Explore(ctx context.Context, prog CoreProg, init *Init, opts *Options) (*Outcomes, error) {
	m, err := newMachine(prog, init)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &Options{}
	}
	return m.explore(ctx, opts)
}

func (m *machine) explore(ctx context.Context, opts *Options) (*Outcomes, error) {
	out := &Outcomes{}
	if opts.Graph {
		out.Graph = newStateGraph()
	}
	st := &out.Stats

	s0 := m.initial()
	seen := map[string]int{s0.key(): 0}
	work := []*State{s0}
	ids := []int{0}
	head := 0
	if out.Graph != nil {
		out.Graph.add(s0, -1, Step{})
	}

	var branching []float64
	expanded := 0
	for head < len(work) {
		if len(work)-head > st.MaxFrontier {
			st.MaxFrontier = len(work) - head
		}

		var s *State
		var id int
		if opts.Order == DFS {
			s, id = work[len(work)-1], ids[len(ids)-1]
			work, ids = work[:len(work)-1], ids[:len(ids)-1]
		} else {
			s, id = work[head], ids[head]
			work[head] = nil
			head++
			if head > 1024 && head*2 > len(work) {
				// Drop the consumed prefix.
				work = append([]*State(nil), work[head:]...)
				ids = append([]int(nil), ids[head:]...)
				head = 0
			}
		}

		if s.Final() {
			t := s.terminal()
			if out.Graph != nil {
				t.node = id
			}
			out.Terminals = append(out.Terminals, t)
			continue
		}

		if expanded%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		expanded++

		succs := 0
		for p := range m.procs {
			for _, k := range OpKinds {
				st.Tried++
				ns, ok := m.step(k, p, s)
				if !ok {
					continue
				}
				st.Applied++
				succs++
				step := Step{m.procs[p], k}
				key := ns.key()
				nid, ok := seen[key]
				if !ok {
					nid = len(seen)
					seen[key] = nid
					if opts.MaxStates > 0 && len(seen) > opts.MaxStates {
						return nil, fmt.Errorf("%w: more than %d states", ErrBudget, opts.MaxStates)
					}
					work = append(work, ns)
					ids = append(ids, nid)
					if out.Graph != nil {
						out.Graph.add(ns, id, step)
					}
				}
				if out.Graph != nil {
					out.Graph.edge(id, nid, step)
				}
			}
		}
		branching = append(branching, float64(succs))
	}

	st.States = len(seen)
	st.Branching = stats.Sample{Xs: branching}
	if len(out.Terminals) == 0 {
		return nil, fmt.Errorf("%w: %d states explored", ErrVacuous, st.States)
	}
	return out, nil
}
