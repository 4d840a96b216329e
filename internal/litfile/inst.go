// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litfile

import (
	"fmt"
	"strings"

	"github.com/aclements/tsolitmus/litmus"
)

// ParseInst parses one instruction, such as "mov eax, [x]".
//
// ParseInst checks only the syntax of operands. Whether an operand
// combination is legal is decided by litmus.Lower.
func ParseInst(s string) (litmus.Inst, error) {
	op, rest, _ := strings.Cut(strings.TrimSpace(s), " ")
	var args []litmus.Operand
	if rest = strings.TrimSpace(rest); rest != "" {
		for _, f := range strings.Split(rest, ",") {
			arg, err := parseOperand(strings.TrimSpace(f))
			if err != nil {
				return litmus.Inst{}, fmt.Errorf("%q: %w", s, err)
			}
			args = append(args, arg)
		}
	}

	want := 2
	var in litmus.Inst
	switch strings.ToLower(op) {
	case "mov":
		if len(args) == 2 {
			in = litmus.Mov(args[0], args[1])
		}
	case "xchg":
		if len(args) == 2 {
			in = litmus.Xchg(args[0], args[1])
		}
	case "mfence":
		want = 0
		in = litmus.Mfence
	default:
		return litmus.Inst{}, fmt.Errorf("%q: unknown instruction %q", s, op)
	}
	if len(args) != want {
		return litmus.Inst{}, fmt.Errorf("%q: %s takes %d operands", s, op, want)
	}
	return in, nil
}

func parseOperand(s string) (litmus.Operand, error) {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		name := strings.TrimSpace(s[1 : len(s)-1])
		if !isIdent(name) {
			return litmus.Operand{}, fmt.Errorf("bad memory location %q", s)
		}
		return litmus.M(litmus.MemLoc(name)), nil
	}
	if r, ok := litmus.ParseReg(s); ok {
		return litmus.R(r), nil
	}
	if v, err := parseValue(s); err == nil {
		return litmus.Imm(v), nil
	}
	return litmus.Operand{}, fmt.Errorf("bad operand %q", s)
}
