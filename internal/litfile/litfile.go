// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package litfile parses the litmus test file format.
//
// A litmus file is a sequence of tests. Each line is split into words
// using shell quoting rules and "#" starts a comment. For example:
//
//	test sb
//	proc 0 "mov [x], 1" "mov eax, [y]"
//	proc 1 "mov [y], 1" "mov ebx, [x]"
//	forbidden "0:eax=0 & 1:ebx=0"
//	expect false
//
// The directives are:
//
//	test NAME                   begin a new test
//	proc N INST...              the instructions of processor N
//	init N:REG=V... LOC=V...    non-zero initial registers and memory
//	forbidden|required|allowed PRED
//	expect true|false           the expected verdict (default true)
//
// Instructions are "mov DST, SRC", "xchg A, B", and "mfence", where
// operands are registers (eax, ebx, ecx, edx), memory locations
// ("[x]"), or integers. Predicates combine atoms "N:REG=V" and
// "LOC=V" with "!", "&", "|", and parentheses. "true" is the empty
// conjunction.
package litfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aclements/tsolitmus/litmus"
	"github.com/kballard/go-shellquote"
	"go.uber.org/multierr"
)

// A Case is one test from a litmus file.
type Case struct {
	litmus.Test

	// Expect is the expected verdict of Test.
	Expect bool

	// File and Line give the location of the test directive.
	File string
	Line int
}

func (c *Case) Pos() string {
	return fmt.Sprintf("%s:%d", c.File, c.Line)
}

// A SyntaxError reports a malformed line of a litmus file.
type SyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Parse parses the litmus file read from r. name is used in error
// messages and in the positions of the returned Cases.
//
// Parse reports every malformed line it finds. The returned error is
// a combination of *SyntaxError values, or an error from r.
func Parse(name string, r io.Reader) ([]*Case, error) {
	p := &parser{file: name}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			p.errorf("%s", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	p.finish()
	if p.errs != nil {
		return nil, p.errs
	}
	return p.cases, nil
}

type parser struct {
	file string
	line int
	errs error

	cases []*Case
	cur   *pending
}

// pending is a test whose directives are still being read.
type pending struct {
	c       *Case
	prog    litmus.Prog
	regs    map[litmus.Proc]map[litmus.Reg]litmus.Value
	mem     map[litmus.MemLoc]litmus.Value
	hasPred bool
	expect  bool // saw an expect directive
}

func (p *parser) errorf(format string, args ...interface{}) {
	p.errs = multierr.Append(p.errs, &SyntaxError{p.file, p.line, fmt.Sprintf(format, args...)})
}

func (p *parser) parseLine(line string) error {
	words, err := shellquote.Split(stripComment(line))
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}

	dir, args := words[0], words[1:]
	if dir == "test" {
		if len(args) != 1 {
			return fmt.Errorf("usage: test NAME")
		}
		p.finish()
		p.cur = &pending{
			c:    &Case{Test: litmus.Test{Name: args[0]}, Expect: true, File: p.file, Line: p.line},
			prog: litmus.Prog{},
			regs: map[litmus.Proc]map[litmus.Reg]litmus.Value{},
			mem:  map[litmus.MemLoc]litmus.Value{},
		}
		return nil
	}
	if p.cur == nil {
		return fmt.Errorf("%s before first test directive", dir)
	}
	cur := p.cur

	if typ, ok := litmus.ParsePredType(dir); ok && dir == typ.String() {
		if len(args) != 1 {
			return fmt.Errorf("usage: %s PRED", dir)
		}
		if cur.hasPred {
			return fmt.Errorf("test %s has more than one predicate", cur.c.Name)
		}
		pred, err := ParsePred(args[0])
		if err != nil {
			return err
		}
		cur.c.Pred, cur.c.Type, cur.hasPred = pred, typ, true
		return nil
	}

	switch dir {
	case "proc":
		if len(args) < 1 {
			return fmt.Errorf("usage: proc N INST...")
		}
		proc, err := parseProc(args[0])
		if err != nil {
			return err
		}
		if _, ok := cur.prog[proc]; ok {
			return fmt.Errorf("duplicate proc %d", proc)
		}
		insts := []litmus.Inst{}
		for _, arg := range args[1:] {
			in, err := ParseInst(arg)
			if err != nil {
				return err
			}
			insts = append(insts, in)
		}
		cur.prog[proc] = insts

	case "init":
		for _, arg := range args {
			if err := cur.parseInit(arg); err != nil {
				return err
			}
		}

	case "expect":
		if len(args) != 1 {
			return fmt.Errorf("usage: expect true|false")
		}
		if cur.expect {
			return fmt.Errorf("test %s has more than one expect directive", cur.c.Name)
		}
		v, err := strconv.ParseBool(args[0])
		if err != nil {
			return fmt.Errorf("bad expectation %q", args[0])
		}
		cur.c.Expect, cur.expect = v, true

	default:
		return fmt.Errorf("unknown directive %q", dir)
	}
	return nil
}

func (t *pending) parseInit(arg string) error {
	lhs, rhs, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("bad init %q: want N:REG=V or LOC=V", arg)
	}
	v, err := parseValue(rhs)
	if err != nil {
		return err
	}
	if ps, rs, ok := strings.Cut(lhs, ":"); ok {
		proc, err := parseProc(ps)
		if err != nil {
			return err
		}
		r, ok := litmus.ParseReg(rs)
		if !ok {
			return fmt.Errorf("bad register %q", rs)
		}
		if t.regs[proc] == nil {
			t.regs[proc] = map[litmus.Reg]litmus.Value{}
		}
		t.regs[proc][r] = v
		return nil
	}
	if !isIdent(lhs) {
		return fmt.Errorf("bad memory location %q", lhs)
	}
	t.mem[litmus.MemLoc(lhs)] = v
	return nil
}

// finish completes the pending test, if any.
func (p *parser) finish() {
	cur := p.cur
	if cur == nil {
		return
	}
	p.cur = nil
	if !cur.hasPred {
		p.errs = multierr.Append(p.errs, &SyntaxError{p.file, cur.c.Line, fmt.Sprintf("test %s has no predicate", cur.c.Name)})
		return
	}
	if len(cur.prog) == 0 {
		p.errs = multierr.Append(p.errs, &SyntaxError{p.file, cur.c.Line, fmt.Sprintf("test %s has no processors", cur.c.Name)})
		return
	}

	// The participating processors are those with programs plus
	// any that are only given initial registers.
	procs := cur.prog.Procs()
	for proc := range cur.regs {
		procs = append(procs, proc)
	}
	init := litmus.NewInit(procs...)
	for proc, regs := range cur.regs {
		for r, v := range regs {
			init.SetReg(proc, r, v)
		}
	}
	for loc, v := range cur.mem {
		init.SetMem(loc, v)
	}
	cur.c.Prog = cur.prog
	cur.c.Init = init
	p.cases = append(p.cases, cur.c)
}

// stripComment removes a "#" comment from line. A "#" starts a
// comment only at the beginning of a word outside quotes.
func stripComment(line string) string {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else if c == '\\' && quote == '"' {
				i++
			}
		case c == '\\':
			i++
		case c == '\'' || c == '"':
			quote = c
		case c == '#' && (i == 0 || line[i-1] == ' ' || line[i-1] == '\t'):
			return line[:i]
		}
	}
	return line
}

func parseProc(s string) (litmus.Proc, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad processor %q", s)
	}
	return litmus.Proc(n), nil
}

func parseValue(s string) (litmus.Value, error) {
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("bad value %q", s)
	}
	return litmus.Value(n), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c == '_', 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z':
		case '0' <= c && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
