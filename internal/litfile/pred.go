// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litfile

import (
	"fmt"
	"strings"

	"github.com/aclements/tsolitmus/litmus"
)

// ParsePred parses a predicate such as "0:eax=1 & !(x=2 | 1:ebx=0)".
//
// "!" binds tightest, then "&", then "|". ParsePred accepts the
// output of litmus.Pred's String method.
func ParsePred(s string) (litmus.Pred, error) {
	p := &predParser{s: s}
	p.next()
	pred, err := p.or()
	if err != nil {
		return nil, err
	}
	if p.tok != "" {
		return nil, fmt.Errorf("predicate %q: unexpected %q", s, p.tok)
	}
	return pred, nil
}

type predParser struct {
	s   string
	pos int
	tok string // current token; "" at end of input
}

// next advances to the next token.
func (p *predParser) next() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == '\t') {
		p.pos++
	}
	if p.pos == len(p.s) {
		p.tok = ""
		return
	}
	start := p.pos
	if strings.IndexByte("()!&|", p.s[p.pos]) >= 0 {
		p.pos++
	} else {
		for p.pos < len(p.s) && strings.IndexByte("()!&| \t", p.s[p.pos]) < 0 {
			p.pos++
		}
	}
	p.tok = p.s[start:p.pos]
}

func (p *predParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("predicate %q: %s", p.s, fmt.Sprintf(format, args...))
}

func (p *predParser) or() (litmus.Pred, error) {
	var ps []litmus.Pred
	for {
		q, err := p.and()
		if err != nil {
			return nil, err
		}
		ps = append(ps, q)
		if p.tok != "|" {
			break
		}
		p.next()
	}
	if len(ps) == 1 {
		return ps[0], nil
	}
	return litmus.Or(ps...), nil
}

func (p *predParser) and() (litmus.Pred, error) {
	var ps litmus.And
	for {
		q, err := p.unary()
		if err != nil {
			return nil, err
		}
		ps = append(ps, q)
		if p.tok != "&" {
			break
		}
		p.next()
	}
	if len(ps) == 1 {
		return ps[0], nil
	}
	return ps, nil
}

func (p *predParser) unary() (litmus.Pred, error) {
	switch p.tok {
	case "":
		return nil, p.errorf("unexpected end")
	case "!":
		p.next()
		q, err := p.unary()
		if err != nil {
			return nil, err
		}
		return litmus.Not{P: q}, nil
	case "(":
		p.next()
		q, err := p.or()
		if err != nil {
			return nil, err
		}
		if p.tok != ")" {
			return nil, p.errorf("missing )")
		}
		p.next()
		return q, nil
	case "true":
		p.next()
		return litmus.And{}, nil
	}
	q, err := p.atom(p.tok)
	if err != nil {
		return nil, err
	}
	p.next()
	return q, nil
}

func (p *predParser) atom(tok string) (litmus.Pred, error) {
	lhs, rhs, ok := strings.Cut(tok, "=")
	if !ok {
		return nil, p.errorf("bad atom %q: want N:REG=V or LOC=V", tok)
	}
	v, err := parseValue(rhs)
	if err != nil {
		return nil, p.errorf("%s", err)
	}
	if ps, rs, ok := strings.Cut(lhs, ":"); ok {
		proc, err := parseProc(ps)
		if err != nil {
			return nil, p.errorf("%s", err)
		}
		r, ok := litmus.ParseReg(rs)
		if !ok {
			return nil, p.errorf("bad register %q", rs)
		}
		return litmus.RegEquals{Proc: proc, Reg: r, Value: v}, nil
	}
	if !isIdent(lhs) {
		return nil, p.errorf("bad memory location %q", lhs)
	}
	return litmus.MemEquals{Loc: litmus.MemLoc(lhs), Value: v}, nil
}
