// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

// This implements TSO using the abstract machine of Sewell, et al.,
// "x86-TSO: A Rigorous and Usable Programmer's Model for x86
// Multiprocessors", CACM Research Highlights, 2010: each processor
// has a FIFO store buffer, loads forward from the processor's own
// buffer, buffered stores drain to memory at arbitrary times, and a
// single bus lock makes locked sequences atomic.

// An OpKind is one of the kinds of transition a processor can take.
type OpKind uint8

const (
	OpMov OpKind = iota
	OpRead
	OpWrite
	OpFlush // Commit the oldest buffered store. Not tied to an instruction.
	OpFence
	OpLock
	OpUnlock

	numOpKinds
)

var opKindNames = [numOpKinds]string{"mov", "read", "write", "flush", "fence", "lock", "unlock"}

func (k OpKind) String() string {
	if k < numOpKinds {
		return opKindNames[k]
	}
	return "???"
}

// OpKinds lists every OpKind in the order the explorer tries them.
var OpKinds = [numOpKinds]OpKind{OpMov, OpRead, OpWrite, OpFlush, OpFence, OpLock, OpUnlock}

// stepFunc attempts one transition of processor p from state s. It
// returns the successor state, or false if the transition does not
// apply in s. It never modifies s.
type stepFunc func(m *machine, p int, s *State) (*State, bool)

var stepFuncs = [numOpKinds]stepFunc{
	OpMov:    stepMov,
	OpRead:   stepRead,
	OpWrite:  stepWrite,
	OpFlush:  stepFlush,
	OpFence:  stepFence,
	OpLock:   stepLock,
	OpUnlock: stepUnlock,
}

// step attempts transition k of processor p from state s.
func (m *machine) step(k OpKind, p int, s *State) (*State, bool) {
	return stepFuncs[k](m, p, s)
}

// current returns the instruction processor p is at in s, or false if
// p has terminated.
func (m *machine) current(p int, s *State) (inst, bool) {
	i, ok := s.procs[p].ip.Index()
	if !ok {
		return inst{}, false
	}
	return m.code[p][i], true
}

// advance moves processor p of ns to its next instruction.
func (m *machine) advance(p int, ns *State) {
	ps := &ns.procs[p]
	if !ps.ip.running {
		return
	}
	if next := ps.ip.index + 1; next < len(m.code[p]) {
		ps.ip = At(next)
	} else {
		ps.ip = Terminated
	}
}

// operand returns the value of a register or immediate operand on
// processor p.
func operand(s *State, p int, o Operand) Value {
	if o.Kind == OperandReg {
		return s.procs[p].regs[o.Reg]
	}
	return o.Imm
}

func stepMov(m *machine, p int, s *State) (*State, bool) {
	in, ok := m.current(p, s)
	if !ok || in.Op != CoreMov {
		return nil, false
	}
	v := operand(s, p, in.Src)
	ns := s.clone()
	ns.procs[p].regs[in.Dst] = v
	m.advance(p, ns)
	return ns, true
}

func stepRead(m *machine, p int, s *State) (*State, bool) {
	in, ok := m.current(p, s)
	if !ok || in.Op != CoreRead || s.blocked(p) {
		return nil, false
	}
	// Store buffer forwarding: the newest buffered store to the
	// location wins over memory.
	v, found := Value(0), false
	buf := s.procs[p].buf
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i].loc == in.loc {
			v, found = buf[i].val, true
			break
		}
	}
	if !found {
		v = s.mem[in.loc]
	}
	ns := s.clone()
	ns.procs[p].regs[in.Dst] = v
	m.advance(p, ns)
	return ns, true
}

func stepWrite(m *machine, p int, s *State) (*State, bool) {
	in, ok := m.current(p, s)
	if !ok || in.Op != CoreWrite {
		return nil, false
	}
	e := bufEntry{in.loc, operand(s, p, in.Src)}
	ns := s.clone()
	old := s.procs[p].buf
	buf := make([]bufEntry, len(old), len(old)+1)
	copy(buf, old)
	ns.procs[p].buf = append(buf, e)
	m.advance(p, ns)
	return ns, true
}

func stepFlush(m *machine, p int, s *State) (*State, bool) {
	buf := s.procs[p].buf
	if len(buf) == 0 || s.blocked(p) {
		return nil, false
	}
	ns := s.clone()
	// The tail of buf is never appended to in place, so sharing it
	// is safe.
	ns.procs[p].buf = buf[1:]
	if len(ns.procs[p].buf) == 0 {
		ns.procs[p].buf = nil
	}
	ns.mem = append([]Value(nil), s.mem...)
	ns.mem[buf[0].loc] = buf[0].val
	return ns, true
}

func stepFence(m *machine, p int, s *State) (*State, bool) {
	in, ok := m.current(p, s)
	if !ok || in.Op != CoreMfence || len(s.procs[p].buf) != 0 {
		return nil, false
	}
	ns := s.clone()
	m.advance(p, ns)
	return ns, true
}

func stepLock(m *machine, p int, s *State) (*State, bool) {
	in, ok := m.current(p, s)
	if !ok || in.Op != CoreLock || s.owner.held {
		return nil, false
	}
	ns := s.clone()
	ns.owner = lockOwner{proc: p, held: true}
	m.advance(p, ns)
	return ns, true
}

func stepUnlock(m *machine, p int, s *State) (*State, bool) {
	in, ok := m.current(p, s)
	if !ok || in.Op != CoreUnlock || !s.owner.held || s.owner.proc != p {
		return nil, false
	}
	ns := s.clone()
	ns.owner = lockOwner{}
	m.advance(p, ns)
	return ns, true
}
