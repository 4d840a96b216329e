// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"fmt"
	"strings"
)

// A Pred is a boolean predicate over a Terminal.
//
// The primitives are RegEquals, MemEquals, Not, and And. Or and
// Implies build disjunction and implication out of these.
type Pred interface {
	Eval(t *Terminal) bool
	String() string

	// atoms calls f for every RegEquals and MemEquals in the
	// predicate, and with nil for every nil operand.
	atoms(f func(Pred))
}

// RegEquals holds if register Reg of processor Proc is Value.
type RegEquals struct {
	Proc  Proc
	Reg   Reg
	Value Value
}

func (p RegEquals) Eval(t *Terminal) bool {
	return t.Reg(p.Proc, p.Reg) == p.Value
}

func (p RegEquals) String() string {
	return fmt.Sprintf("%d:%s=%d", int(p.Proc), p.Reg, p.Value)
}

func (p RegEquals) atoms(f func(Pred)) { f(p) }

// MemEquals holds if memory location Loc is Value.
type MemEquals struct {
	Loc   MemLoc
	Value Value
}

func (p MemEquals) Eval(t *Terminal) bool {
	return t.Load(p.Loc) == p.Value
}

func (p MemEquals) String() string {
	return fmt.Sprintf("%s=%d", p.Loc, p.Value)
}

func (p MemEquals) atoms(f func(Pred)) { f(p) }

// Not negates a predicate.
type Not struct {
	P Pred
}

func (p Not) Eval(t *Terminal) bool {
	return !p.P.Eval(t)
}

func (p Not) String() string {
	return "!" + parenthesize(p.P)
}

func (p Not) atoms(f func(Pred)) { atomsOf(p.P, f) }

// And is the conjunction of its members. The empty And is true.
type And []Pred

func (p And) Eval(t *Terminal) bool {
	for _, q := range p {
		if !q.Eval(t) {
			return false
		}
	}
	return true
}

func (p And) String() string {
	if len(p) == 0 {
		return "true"
	}
	parts := make([]string, len(p))
	for i, q := range p {
		parts[i] = parenthesize(q)
	}
	return strings.Join(parts, " & ")
}

func (p And) atoms(f func(Pred)) {
	for _, q := range p {
		atomsOf(q, f)
	}
}

func atomsOf(p Pred, f func(Pred)) {
	if p == nil {
		f(nil)
		return
	}
	p.atoms(f)
}

// Or returns the disjunction of ps as !(!p1 & !p2 & ...).
func Or(ps ...Pred) Pred {
	neg := make(And, len(ps))
	for i, p := range ps {
		neg[i] = Not{p}
	}
	return Not{neg}
}

// Implies returns a -> b as !(a & !b).
func Implies(a, b Pred) Pred {
	return Not{And{a, Not{b}}}
}

func parenthesize(p Pred) string {
	switch p := p.(type) {
	case And:
		if len(p) > 1 {
			return "(" + p.String() + ")"
		}
	}
	return p.String()
}

// checkPred reports an error if pred has a nil operand or refers to a
// register programs can't name or to a processor not in procs.
func checkPred(pred Pred, in *Init) error {
	var err error
	atomsOf(pred, func(a Pred) {
		if err != nil {
			return
		}
		if a == nil {
			err = fmt.Errorf("%w: predicate has a nil operand", ErrIllFormed)
			return
		}
		r, ok := a.(RegEquals)
		if !ok {
			return
		}
		if !r.Reg.valid() {
			err = fmt.Errorf("%w: predicate %s names bad register", ErrIllFormed, r)
		} else if !in.hasProc(r.Proc) {
			err = fmt.Errorf("%w: predicate %s names unknown processor", ErrIllFormed, r)
		}
	})
	return err
}
