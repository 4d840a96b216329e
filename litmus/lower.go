// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import "fmt"

// A LowerError reports a surface instruction that cannot be lowered.
type LowerError struct {
	Proc   Proc
	Index  int // Instruction index within Proc's program
	Inst   Inst
	Reason string
}

func (e *LowerError) Error() string {
	return fmt.Sprintf("%s instruction %d (%s): %s", e.Proc, e.Index, e.Inst, e.Reason)
}

func (e *LowerError) Unwrap() error {
	return ErrIllFormed
}

// Lower translates each processor's surface instructions into core
// instructions, preserving order within a processor.
//
// A mov from memory becomes a read, a mov to memory becomes a write,
// and xchg becomes a locked sequence through the scratch register:
//
//	lock; tmp = reg; reg = ld [mem]; st [mem], tmp; unlock
func Lower(p Prog) (CoreProg, error) {
	out := make(CoreProg, len(p))
	for _, proc := range p.Procs() {
		code := []CoreInst{}
		for i, inst := range p[proc] {
			var err error
			code, err = lowerInst(code, inst)
			if err != nil {
				return nil, &LowerError{proc, i, inst, err.Error()}
			}
		}
		out[proc] = code
	}
	return out, nil
}

func lowerInst(code []CoreInst, inst Inst) ([]CoreInst, error) {
	switch inst.Op {
	case InstMov:
		if err := checkOperand(inst.A); err != nil {
			return nil, err
		}
		if err := checkOperand(inst.B); err != nil {
			return nil, err
		}
		dst, src := inst.A, inst.B
		switch dst.Kind {
		case OperandImm:
			return nil, fmt.Errorf("destination must be a register or memory")

		case OperandReg:
			if src.Kind == OperandMem {
				return append(code, CoreInst{Op: CoreRead, Dst: dst.Reg, Loc: src.Mem}), nil
			}
			return append(code, CoreInst{Op: CoreMov, Dst: dst.Reg, Src: src}), nil

		case OperandMem:
			if src.Kind == OperandMem {
				return nil, fmt.Errorf("memory-to-memory move")
			}
			return append(code, CoreInst{Op: CoreWrite, Loc: dst.Mem, Src: src}), nil
		}

	case InstXchg:
		if err := checkOperand(inst.A); err != nil {
			return nil, err
		}
		if err := checkOperand(inst.B); err != nil {
			return nil, err
		}
		reg, mem := inst.A, inst.B
		if reg.Kind == OperandMem {
			reg, mem = mem, reg
		}
		if reg.Kind != OperandReg || mem.Kind != OperandMem {
			return nil, fmt.Errorf("xchg needs one register and one memory operand")
		}
		return append(code,
			CoreInst{Op: CoreLock},
			CoreInst{Op: CoreMov, Dst: regTmp, Src: R(reg.Reg)},
			CoreInst{Op: CoreRead, Dst: reg.Reg, Loc: mem.Mem},
			CoreInst{Op: CoreWrite, Loc: mem.Mem, Src: R(regTmp)},
			CoreInst{Op: CoreUnlock},
		), nil

	case InstMfence:
		return append(code, CoreInst{Op: CoreMfence}), nil
	}
	return nil, fmt.Errorf("unknown instruction")
}

func checkOperand(o Operand) error {
	switch o.Kind {
	case OperandImm:
		return nil
	case OperandReg:
		if o.Reg == regTmp {
			return fmt.Errorf("scratch register %s is reserved", o.Reg)
		}
		if !o.Reg.valid() {
			return fmt.Errorf("bad register %s", o.Reg)
		}
		return nil
	case OperandMem:
		if o.Mem == "" {
			return fmt.Errorf("empty memory location")
		}
		return nil
	}
	return fmt.Errorf("bad operand kind %d", o.Kind)
}
