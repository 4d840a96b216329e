// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tchajed/marshal"
)

// Init describes the initial machine state of a litmus test: the
// participating processors and any non-zero initial register and
// memory values. Everything else starts out zero, every processor
// starts at its first instruction with an empty store buffer, and
// the bus lock is free.
type Init struct {
	procs []Proc
	regs  map[Proc]map[Reg]Value
	mem   map[MemLoc]Value
}

// NewInit returns an Init with the given processors.
func NewInit(procs ...Proc) *Init {
	in := &Init{regs: map[Proc]map[Reg]Value{}, mem: map[MemLoc]Value{}}
	seen := map[Proc]bool{}
	for _, p := range procs {
		if !seen[p] {
			seen[p] = true
			in.procs = append(in.procs, p)
		}
	}
	sort.Slice(in.procs, func(i, j int) bool { return in.procs[i] < in.procs[j] })
	return in
}

// SetReg sets the initial value of register r on processor p.
func (in *Init) SetReg(p Proc, r Reg, v Value) *Init {
	if in.regs[p] == nil {
		in.regs[p] = map[Reg]Value{}
	}
	in.regs[p][r] = v
	return in
}

// SetMem sets the initial value of memory location loc.
func (in *Init) SetMem(loc MemLoc, v Value) *Init {
	in.mem[loc] = v
	return in
}

// Procs returns the participating processors in increasing order.
func (in *Init) Procs() []Proc {
	return append([]Proc(nil), in.procs...)
}

func (in *Init) hasProc(p Proc) bool {
	i := sort.Search(len(in.procs), func(i int) bool { return in.procs[i] >= p })
	return i < len(in.procs) && in.procs[i] == p
}

// An IP is a processor's instruction pointer. It either points at an
// instruction or the processor has terminated. The zero IP is
// terminated.
type IP struct {
	index   int
	running bool
}

// At returns an IP pointing at instruction i.
func At(i int) IP { return IP{i, true} }

// Terminated is the IP of a processor that has run off the end of
// its program.
var Terminated = IP{}

// Index returns the instruction index of ip, or false if ip is
// terminated.
func (ip IP) Index() (int, bool) {
	return ip.index, ip.running
}

func (ip IP) String() string {
	if !ip.running {
		return "done"
	}
	return fmt.Sprintf("@%d", ip.index)
}

// A RegFile holds every register of one processor, including the
// scratch register.
type RegFile [numAllRegs]Value

// machine is the fixed layout shared by every state of one
// exploration. Processors and memory locations are interned to dense
// indexes.
type machine struct {
	procs    []Proc
	procIdx  map[Proc]int
	locs     []MemLoc
	locIdx   map[MemLoc]int
	code     [][]inst
	prog     CoreProg
	initRegs []RegFile
	initMem  []Value
}

// inst is a CoreInst with its memory location resolved.
type inst struct {
	CoreInst
	loc int
}

func newMachine(prog CoreProg, in *Init) (*machine, error) {
	m := &machine{
		procs:   in.Procs(),
		procIdx: map[Proc]int{},
		locIdx:  map[MemLoc]int{},
		prog:    prog,
	}
	for i, p := range m.procs {
		m.procIdx[p] = i
	}
	for _, p := range prog.Procs() {
		if _, ok := m.procIdx[p]; !ok {
			return nil, fmt.Errorf("%w: program for %s, which is not a participating processor", ErrIllFormed, p)
		}
	}

	// Intern memory locations in sorted order so the layout
	// depends only on the program and initial state.
	locSet := map[MemLoc]bool{}
	for _, code := range prog {
		for _, ci := range code {
			if ci.Op == CoreRead || ci.Op == CoreWrite {
				locSet[ci.Loc] = true
			}
		}
	}
	for loc := range in.mem {
		locSet[loc] = true
	}
	for loc := range locSet {
		m.locs = append(m.locs, loc)
	}
	sort.Slice(m.locs, func(i, j int) bool { return m.locs[i] < m.locs[j] })
	for i, loc := range m.locs {
		m.locIdx[loc] = i
	}

	m.code = make([][]inst, len(m.procs))
	m.initRegs = make([]RegFile, len(m.procs))
	for i, p := range m.procs {
		for _, ci := range prog[p] {
			ri := inst{CoreInst: ci, loc: -1}
			if ci.Op == CoreRead || ci.Op == CoreWrite {
				ri.loc = m.locIdx[ci.Loc]
			}
			m.code[i] = append(m.code[i], ri)
		}
		for r, v := range in.regs[p] {
			if !r.valid() {
				return nil, fmt.Errorf("%w: initial value for bad register %s on %s", ErrIllFormed, r, p)
			}
			m.initRegs[i][r] = v
		}
	}
	for p := range in.regs {
		if !in.hasProc(p) {
			return nil, fmt.Errorf("%w: initial registers for unknown processor %s", ErrIllFormed, p)
		}
	}

	m.initMem = make([]Value, len(m.locs))
	for loc, v := range in.mem {
		m.initMem[m.locIdx[loc]] = v
	}
	return m, nil
}

// initial returns the initial state of m.
func (m *machine) initial() *State {
	s := &State{
		m:     m,
		procs: make([]procState, len(m.procs)),
		mem:   m.initMem,
	}
	for i := range s.procs {
		s.procs[i].regs = m.initRegs[i]
		if len(m.code[i]) > 0 {
			s.procs[i].ip = At(0)
		}
	}
	return s
}

// State is a global machine state. States are values: a transition
// always builds a new State and never modifies an existing one.
// Unmodified components are shared between states.
type State struct {
	m     *machine
	procs []procState
	mem   []Value
	owner lockOwner
}

type procState struct {
	regs RegFile
	ip   IP
	buf  []bufEntry // FIFO, oldest first
}

type bufEntry struct {
	loc int
	val Value
}

type lockOwner struct {
	proc int
	held bool
}

// clone returns a shallow copy of s with its own processor slice.
// Callers must copy any buffer or memory slice before modifying it.
func (s *State) clone() *State {
	ns := *s
	ns.procs = append([]procState(nil), s.procs...)
	return &ns
}

// blocked reports whether processor p is blocked by another
// processor holding the bus lock.
func (s *State) blocked(p int) bool {
	return s.owner.held && s.owner.proc != p
}

// procFinal reports whether processor p has terminated and drained
// its store buffer.
func (s *State) procFinal(p int) bool {
	ps := &s.procs[p]
	return !ps.ip.running && len(ps.buf) == 0
}

// Final reports whether s is a final state: every processor is
// locally final and the bus lock is free.
func (s *State) Final() bool {
	if s.owner.held {
		return false
	}
	for p := range s.procs {
		if !s.procFinal(p) {
			return false
		}
	}
	return true
}

// LockOwner returns the processor holding the bus lock, if any.
func (s *State) LockOwner() (Proc, bool) {
	if !s.owner.held {
		return 0, false
	}
	return s.m.procs[s.owner.proc], true
}

// IP returns the instruction pointer of processor p.
func (s *State) IP(p Proc) IP {
	return s.procs[s.m.procIdx[p]].ip
}

// BufLen returns the number of buffered writes of processor p.
func (s *State) BufLen(p Proc) int {
	return len(s.procs[s.m.procIdx[p]].buf)
}

// key returns a canonical encoding of every component of s. Two
// states of the same machine are identical if and only if their keys
// are equal.
func (s *State) key() string {
	b := make([]byte, 0, 8*(len(s.procs)*(numAllRegs+2)+len(s.mem)+1))
	for _, ps := range s.procs {
		for _, v := range ps.regs {
			b = marshal.WriteInt(b, uint64(v))
		}
		if ps.ip.running {
			b = marshal.WriteInt(b, uint64(ps.ip.index)+1)
		} else {
			b = marshal.WriteInt(b, 0)
		}
		b = marshal.WriteInt(b, uint64(len(ps.buf)))
		for _, e := range ps.buf {
			b = marshal.WriteInt(b, uint64(e.loc))
			b = marshal.WriteInt(b, uint64(e.val))
		}
	}
	for _, v := range s.mem {
		b = marshal.WriteInt(b, uint64(v))
	}
	if s.owner.held {
		b = marshal.WriteInt(b, uint64(s.owner.proc)+1)
	} else {
		b = marshal.WriteInt(b, 0)
	}
	return string(b)
}

// terminal derives the terminal snapshot of a final state.
func (s *State) terminal() *Terminal {
	if !s.Final() {
		panic("terminal of non-final state")
	}
	t := &Terminal{
		regs: make(map[Proc]RegFile, len(s.procs)),
		mem:  make(map[MemLoc]Value, len(s.mem)),
		node: -1,
	}
	for i, ps := range s.procs {
		t.regs[s.m.procs[i]] = ps.regs
	}
	for i, v := range s.mem {
		t.mem[s.m.locs[i]] = v
	}
	return t
}

func (s *State) String() string {
	var b strings.Builder
	for i, ps := range s.procs {
		fmt.Fprintf(&b, "%s %s", s.m.procs[i], ps.ip)
		for r, v := range ps.regs[:NumRegs] {
			if v != 0 {
				fmt.Fprintf(&b, " %s=%d", Reg(r), v)
			}
		}
		if len(ps.buf) > 0 {
			b.WriteString(" sb[")
			for j, e := range ps.buf {
				if j > 0 {
					b.WriteString(" ")
				}
				fmt.Fprintf(&b, "%s=%d", s.m.locs[e.loc], e.val)
			}
			b.WriteString("]")
		}
		b.WriteString("\n")
	}
	b.WriteString("mem")
	for i, v := range s.mem {
		fmt.Fprintf(&b, " %s=%d", s.m.locs[i], v)
	}
	if s.owner.held {
		fmt.Fprintf(&b, "\nlock %s", s.m.procs[s.owner.proc])
	}
	return b.String()
}

// A Terminal is the observable result of one complete execution:
// the final registers of every processor and the final contents of
// memory.
type Terminal struct {
	regs map[Proc]RegFile
	mem  map[MemLoc]Value

	// node is the state graph node this terminal was derived
	// from, or -1 if no graph was recorded.
	node int
}

// Reg returns the final value of register r on processor p.
func (t *Terminal) Reg(p Proc, r Reg) Value {
	if int(r) >= numAllRegs {
		return 0
	}
	return t.regs[p][r]
}

// Load returns the final value of memory location loc.
func (t *Terminal) Load(loc MemLoc) Value {
	return t.mem[loc]
}

// Procs returns the processors of t in increasing order.
func (t *Terminal) Procs() []Proc {
	return sortedProcs(t.regs)
}

// Locs returns the memory locations of t in increasing order.
func (t *Terminal) Locs() []MemLoc {
	locs := make([]MemLoc, 0, len(t.mem))
	for loc := range t.mem {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

func (t *Terminal) String() string {
	var parts []string
	for _, p := range t.Procs() {
		regs := t.regs[p]
		for r := 0; r < NumRegs; r++ {
			if regs[r] != 0 {
				parts = append(parts, fmt.Sprintf("%d:%s=%d", int(p), Reg(r), regs[r]))
			}
		}
	}
	for _, loc := range t.Locs() {
		parts = append(parts, fmt.Sprintf("%s=%d", loc, t.mem[loc]))
	}
	return strings.Join(parts, " ")
}
