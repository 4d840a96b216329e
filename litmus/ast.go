// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"fmt"
	"sort"
	"strings"
)

// A Value is the contents of a register or memory location.
// Uninitialized registers and locations hold 0.
type Value int

// A Proc identifies one of the processors of a litmus test.
type Proc int

func (p Proc) String() string {
	return fmt.Sprintf("P%d", int(p))
}

// A MemLoc names a shared memory location.
type MemLoc string

// A Reg is a processor register.
type Reg uint8

const (
	EAX Reg = iota
	EBX
	ECX
	EDX

	// regTmp is the scratch register used by lowering. Programs
	// can't name it.
	regTmp
)

// NumRegs is the number of registers visible to programs.
const NumRegs = int(regTmp)

// numAllRegs includes the scratch register.
const numAllRegs = NumRegs + 1

var regNames = [numAllRegs]string{"eax", "ebx", "ecx", "edx", "tmp"}

func (r Reg) String() string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return fmt.Sprintf("r%d", int(r))
}

// valid reports whether r is a register programs may name.
func (r Reg) valid() bool {
	return int(r) < NumRegs
}

// ParseReg parses a visible register name such as "eax".
func ParseReg(s string) (Reg, bool) {
	s = strings.ToLower(s)
	for i, name := range regNames[:NumRegs] {
		if s == name {
			return Reg(i), true
		}
	}
	return 0, false
}

type OperandKind uint8

const (
	OperandImm OperandKind = iota
	OperandReg
	OperandMem
)

// An Operand is an immediate, a register, or a memory location.
// Only the field selected by Kind is meaningful.
type Operand struct {
	Kind OperandKind
	Imm  Value
	Reg  Reg
	Mem  MemLoc
}

// Imm returns an immediate operand.
func Imm(v Value) Operand { return Operand{Kind: OperandImm, Imm: v} }

// R returns a register operand.
func R(r Reg) Operand { return Operand{Kind: OperandReg, Reg: r} }

// M returns a memory operand.
func M(loc MemLoc) Operand { return Operand{Kind: OperandMem, Mem: loc} }

func (o Operand) String() string {
	switch o.Kind {
	case OperandImm:
		return fmt.Sprint(int(o.Imm))
	case OperandReg:
		return o.Reg.String()
	case OperandMem:
		return "[" + string(o.Mem) + "]"
	}
	return "???"
}

type InstOp uint8

const (
	InstMov InstOp = iota
	InstXchg
	InstMfence
)

// An Inst is a surface instruction. For InstMov, A is the destination
// and B the source. For InstXchg, A and B are the two operands, one of
// which must be a register and the other memory.
type Inst struct {
	Op   InstOp
	A, B Operand
}

// Mov returns "mov dst, src".
func Mov(dst, src Operand) Inst { return Inst{Op: InstMov, A: dst, B: src} }

// Xchg returns "xchg a, b".
func Xchg(a, b Operand) Inst { return Inst{Op: InstXchg, A: a, B: b} }

// Mfence is the "mfence" instruction.
var Mfence = Inst{Op: InstMfence}

func (i Inst) String() string {
	switch i.Op {
	case InstMov:
		return fmt.Sprintf("mov %s, %s", i.A, i.B)
	case InstXchg:
		return fmt.Sprintf("xchg %s, %s", i.A, i.B)
	case InstMfence:
		return "mfence"
	}
	return "???"
}

// A Prog is a surface litmus program: the instruction sequence of
// each processor.
type Prog map[Proc][]Inst

// Procs returns the processors of p in increasing order.
func (p Prog) Procs() []Proc {
	return sortedProcs(p)
}

// String formats p with one column per processor.
func (p Prog) String() string {
	return formatColumns(p.Procs(), func(proc Proc) []string {
		var col []string
		for _, inst := range p[proc] {
			col = append(col, inst.String())
		}
		return col
	})
}

type CoreOp uint8

const (
	CoreMov CoreOp = iota
	CoreRead
	CoreWrite
	CoreMfence
	CoreLock
	CoreUnlock
)

// A CoreInst is a lowered instruction.
//
//	CoreMov:   Dst := Src (register or immediate)
//	CoreRead:  Dst := [Loc]
//	CoreWrite: [Loc] := Src (register or immediate)
type CoreInst struct {
	Op  CoreOp
	Dst Reg
	Src Operand
	Loc MemLoc
}

func (i CoreInst) String() string {
	switch i.Op {
	case CoreMov:
		return fmt.Sprintf("%s = %s", i.Dst, i.Src)
	case CoreRead:
		return fmt.Sprintf("%s = ld [%s]", i.Dst, i.Loc)
	case CoreWrite:
		return fmt.Sprintf("st [%s], %s", i.Loc, i.Src)
	case CoreMfence:
		return "mfence"
	case CoreLock:
		return "lock"
	case CoreUnlock:
		return "unlock"
	}
	return "???"
}

// A CoreProg is a lowered program.
type CoreProg map[Proc][]CoreInst

// Procs returns the processors of p in increasing order.
func (p CoreProg) Procs() []Proc {
	return sortedProcs(p)
}

func (p CoreProg) String() string {
	return formatColumns(p.Procs(), func(proc Proc) []string {
		var col []string
		for _, inst := range p[proc] {
			col = append(col, inst.String())
		}
		return col
	})
}

func sortedProcs[T any](m map[Proc]T) []Proc {
	procs := make([]Proc, 0, len(m))
	for proc := range m {
		procs = append(procs, proc)
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i] < procs[j] })
	return procs
}

// formatColumns lays out one tab-separated column per processor with
// a header row of processor names.
func formatColumns(procs []Proc, col func(Proc) []string) string {
	out := []string{}
	line := []string{}
	cols := make([][]string, len(procs))
	rows := 0
	for i, proc := range procs {
		line = append(line, proc.String())
		cols[i] = col(proc)
		if len(cols[i]) > rows {
			rows = len(cols[i])
		}
	}
	out = append(out, strings.Join(line, "\t"))

	for row := 0; row < rows; row++ {
		line = line[:0]
		for i := range procs {
			if row < len(cols[i]) {
				line = append(line, cols[i][row])
			} else {
				line = append(line, "")
			}
		}
		out = append(out, strings.Join(line, "\t"))
	}
	return strings.Join(out, "\n")
}
