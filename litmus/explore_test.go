// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/aclements/go-moremath/graph/graphalg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Store buffering with a locked exchange thrown in, so exploration
// exercises every kind of transition.
var progMixed = Prog{
	0: {Mov(x, one), Mov(eax, y), Xchg(ecx, x)},
	1: {Mov(y, one), Mfence, Mov(ebx, x)},
	2: {Mov(edx, x), Mov(y, two)},
}

func explore(t *testing.T, prog Prog, init *Init, opts *Options) *Outcomes {
	t.Helper()
	core, err := Lower(prog)
	require.NoError(t, err)
	if init == nil {
		init = NewInit(prog.Procs()...)
	}
	out, err := Explore(context.Background(), core, init, opts)
	require.NoError(t, err)
	return out
}

// terminalSet returns the terminals of out as a sorted list of
// strings, including scratch registers.
func terminalSet(out *Outcomes) []string {
	var set []string
	for _, t := range out.Terminals {
		s := t.String()
		for _, p := range t.Procs() {
			s += " " + p.String() + ":tmp=" + strconv.Itoa(int(t.Reg(p, regTmp)))
		}
		set = append(set, s)
	}
	sort.Strings(set)
	return set
}

func TestExploreSingleProc(t *testing.T) {
	out := explore(t, Prog{0: {Mov(x, one), Mov(eax, x)}}, nil, nil)
	require.Len(t, out.Terminals, 1)
	term := out.Terminals[0]
	assert.Equal(t, Value(1), term.Reg(0, EAX))
	assert.Equal(t, Value(1), term.Load("x"))
}

func TestExploreStoreBufferingOutcomes(t *testing.T) {
	out := explore(t, Prog{
		0: {Mov(x, one), Mov(eax, y)},
		1: {Mov(y, one), Mov(ebx, x)},
	}, nil, nil)
	got := map[[2]Value]bool{}
	for _, term := range out.Terminals {
		got[[2]Value{term.Reg(0, EAX), term.Reg(1, EBX)}] = true
		assert.Equal(t, Value(1), term.Load("x"))
		assert.Equal(t, Value(1), term.Load("y"))
	}
	assert.Equal(t, map[[2]Value]bool{
		{0, 0}: true, {0, 1}: true, {1, 0}: true, {1, 1}: true,
	}, got)
	assert.Len(t, out.Terminals, 4)
}

func TestExploreDeterministic(t *testing.T) {
	bfs := explore(t, progMixed, nil, &Options{Order: BFS})
	bfs2 := explore(t, progMixed, nil, &Options{Order: BFS})
	dfs := explore(t, progMixed, nil, &Options{Order: DFS})

	assert.Equal(t, terminalSet(bfs), terminalSet(bfs2))
	assert.Equal(t, terminalSet(bfs), terminalSet(dfs))
	assert.Equal(t, bfs.Stats.States, dfs.Stats.States)
	assert.Equal(t, len(bfs.Terminals), len(dfs.Terminals))
}

func TestExploreTerminalsDistinct(t *testing.T) {
	out := explore(t, progMixed, nil, nil)
	set := terminalSet(out)
	for i := 1; i < len(set); i++ {
		assert.NotEqual(t, set[i-1], set[i])
	}
}

func TestExploreGraphReachable(t *testing.T) {
	out := explore(t, Prog{
		0: {Mov(x, one), Xchg(ecx, y)},
		1: {Mov(y, one), Mov(ebx, x)},
	}, nil, &Options{Graph: true})
	g := out.Graph
	// graphalg's node marks don't grow past 1024 nodes.
	require.Less(t, g.NumNodes(), 1024)

	// Every recorded state is reachable from the initial state.
	assert.Len(t, graphalg.PreOrder(g, 0), g.NumNodes())
}

func TestExploreGraphInvariants(t *testing.T) {
	out := explore(t, progMixed, nil, &Options{Graph: true})
	g := out.Graph
	require.NotNil(t, g)
	assert.Equal(t, out.Stats.States, g.NumNodes())

	finals := 0
	for i := 0; i < g.NumNodes(); i++ {
		s := g.State(i)
		if s.Final() {
			finals++
			assert.Empty(t, g.Out(i), "final states are not expanded")
			for _, p := range s.m.procs {
				assert.Equal(t, Terminated, s.IP(p))
				assert.Zero(t, s.BufLen(p))
			}
		}
		owner, held := s.LockOwner()
		for e, succ := range g.Out(i) {
			st := g.Label(i, e)
			ns := g.State(succ)
			switch st.Op {
			case OpFence:
				assert.Zero(t, s.BufLen(st.Proc), "fence with nonempty buffer")
			case OpLock:
				assert.False(t, held, "lock while lock held")
				o, _ := ns.LockOwner()
				assert.Equal(t, st.Proc, o)
			case OpUnlock:
				assert.True(t, held && owner == st.Proc, "unlock by non-owner")
			case OpRead, OpFlush:
				assert.False(t, held && owner != st.Proc, "%s while another processor holds the lock", st.Op)
			}
		}
	}
	assert.Equal(t, len(out.Terminals), finals)
}

func TestExploreTrace(t *testing.T) {
	prog := Prog{
		0: {Mov(x, one), Mov(eax, y)},
		1: {Mov(y, one), Mov(ebx, x)},
	}
	core, err := Lower(prog)
	require.NoError(t, err)
	init := NewInit(0, 1)
	out, err := Explore(context.Background(), core, init, &Options{Graph: true})
	require.NoError(t, err)

	m, err := newMachine(core, init)
	require.NoError(t, err)
	for _, term := range out.Terminals {
		steps, ok := out.Trace(term)
		require.True(t, ok)
		// Replaying the trace reaches a state with the same
		// terminal.
		s := run(t, m, m.initial(), steps...)
		require.True(t, s.Final())
		assert.Equal(t, term.String(), s.terminal().String())
	}

	noGraph := explore(t, prog, nil, nil)
	_, ok := noGraph.Trace(noGraph.Terminals[0])
	assert.False(t, ok)
}

func TestExploreVacuous(t *testing.T) {
	// The lock is never released, so no state is final.
	core := CoreProg{0: {{Op: CoreLock}}}
	_, err := Explore(context.Background(), core, NewInit(0), nil)
	assert.True(t, errors.Is(err, ErrVacuous), "got %v", err)
}

func TestExploreBudget(t *testing.T) {
	core, err := Lower(progMixed)
	require.NoError(t, err)
	_, err = Explore(context.Background(), core, NewInit(0, 1, 2), &Options{MaxStates: 10})
	assert.True(t, errors.Is(err, ErrBudget), "got %v", err)
}

func TestExploreUnknownProc(t *testing.T) {
	core, err := Lower(Prog{0: {Mov(x, one)}, 1: {Mov(y, one)}})
	require.NoError(t, err)
	_, err = Explore(context.Background(), core, NewInit(0), nil)
	assert.True(t, errors.Is(err, ErrIllFormed), "got %v", err)
}

func TestExploreStats(t *testing.T) {
	out := explore(t, progMixed, nil, nil)
	st := &out.Stats
	assert.Greater(t, st.States, len(out.Terminals))
	assert.LessOrEqual(t, st.Applied, st.Tried)
	assert.Equal(t, st.States-len(out.Terminals), len(st.Branching.Xs))
	assert.Contains(t, st.String(), "states")
}

func TestWriteDot(t *testing.T) {
	out := explore(t, Prog{0: {Mov(x, one)}}, nil, &Options{Graph: true})
	var buf bytes.Buffer
	require.NoError(t, out.Graph.WriteDot(&buf, "one"))
	dot := buf.String()
	assert.True(t, strings.HasPrefix(dot, `digraph "one" {`), dot)
	assert.Contains(t, dot, `label="P0 write"`)
	assert.Contains(t, dot, `label="P0 flush"`)
	assert.Contains(t, dot, "peripheries=2")
}
