// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litfile

import (
	"errors"
	"strings"
	"testing"

	"github.com/aclements/tsolitmus/litmus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

var (
	x, y     = litmus.M("x"), litmus.M("y")
	eax, ebx = litmus.R(litmus.EAX), litmus.R(litmus.EBX)
	one      = litmus.Imm(1)
)

const sbFile = `# Store buffering.
test sb
proc 0 "mov [x], 1" "mov eax, [y]"
proc 1 "mov [y], 1" "mov ebx, [x]"   # reads x
forbidden "0:eax=0 & 1:ebx=0"
expect false

test xchg
proc 0 'xchg [x], eax' mfence
proc 1
init 0:eax=1 1:ecx=-2 x=0x10
allowed '!(0:eax=16) | x=1'
`

func TestParse(t *testing.T) {
	cases, err := Parse("sb.litmus", strings.NewReader(sbFile))
	require.NoError(t, err)
	require.Len(t, cases, 2)

	sb := cases[0]
	assert.Equal(t, "sb", sb.Name)
	assert.Equal(t, "sb.litmus:2", sb.Pos())
	assert.False(t, sb.Expect)
	assert.Equal(t, litmus.Forbidden, sb.Type)
	assert.Equal(t, litmus.Prog{
		0: {litmus.Mov(x, one), litmus.Mov(eax, y)},
		1: {litmus.Mov(y, one), litmus.Mov(ebx, x)},
	}, sb.Prog)
	assert.Equal(t, []litmus.Proc{0, 1}, sb.Init.Procs())
	assert.Equal(t, "0:eax=0 & 1:ebx=0", sb.Pred.String())

	xc := cases[1]
	assert.Equal(t, "xchg", xc.Name)
	assert.Equal(t, 8, xc.Line)
	assert.True(t, xc.Expect)
	assert.Equal(t, litmus.Allowed, xc.Type)
	assert.Equal(t, []litmus.Inst{litmus.Xchg(x, eax), litmus.Mfence}, xc.Prog[0])
	assert.Empty(t, xc.Prog[1])
	assert.Equal(t, "!(!!0:eax=16 & !x=1)", xc.Pred.String())
}

func TestParseSuiteVerdicts(t *testing.T) {
	cases, err := Parse("sb.litmus", strings.NewReader(sbFile))
	require.NoError(t, err)
	for _, c := range cases {
		got := litmus.Litmus(c.Name, c.Prog, c.Init, c.Pred, c.Type)
		assert.Equal(t, c.Expect, got, c.Name)
	}
}

func TestParseInitOnlyProc(t *testing.T) {
	cases, err := Parse("f", strings.NewReader(`
test idle
proc 0 "mov [x], 1"
init 3:edx=4
required "3:edx=4 & x=1"
`))
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, []litmus.Proc{0, 3}, cases[0].Init.Procs())
	assert.True(t, litmus.Litmus("idle", cases[0].Prog, cases[0].Init, cases[0].Pred, cases[0].Type))
}

func TestParseErrors(t *testing.T) {
	for _, test := range []struct {
		src  string
		line int
		msg  string
	}{
		{`proc 0 "mov [x], 1"`, 1, "before first test"},
		{"test a b", 1, "usage: test"},
		{"test a\nproc 0 \"mov [x], 1\"", 1, "no predicate"},
		{"test a\nrequired true", 1, "no processors"},
		{"test a\nproc 0 'mov [x], 1\nrequired true", 2, "nterminated"},
		{"test a\nproc zero\nrequired true", 2, `bad processor "zero"`},
		{"test a\nproc 0\nproc 0\nrequired true", 3, "duplicate proc"},
		{"test a\nproc 0 'add eax, 1'\nrequired true", 2, "unknown instruction"},
		{"test a\nproc 0 'mov eax'\nrequired true", 2, "takes 2 operands"},
		{"test a\nproc 0 'mfence eax'\nrequired true", 2, "takes 0 operands"},
		{"test a\nproc 0 'mov rax, 1'\nrequired true", 2, "bad operand"},
		{"test a\nproc 0 'mov [], 1'\nrequired true", 2, "bad memory location"},
		{"test a\nproc 0\ninit 0:tmp=1\nrequired true", 3, "bad register"},
		{"test a\nproc 0\ninit x\nrequired true", 3, "bad init"},
		{"test a\nproc 0\ninit x=y\nrequired true", 3, "bad value"},
		{"test a\nproc 0\nrequired true\nallowed true", 4, "more than one predicate"},
		{"test a\nproc 0\nrequired '0:eax=1 &'", 3, "unexpected end"},
		{"test a\nproc 0\nrequired '(x=1'", 3, "missing )"},
		{"test a\nproc 0\nrequired 'x=1)'", 3, "unexpected"},
		{"test a\nproc 0\nrequired 'x'", 3, "bad atom"},
		{"test a\nproc 0\nrequired true\nexpect maybe", 4, "bad expectation"},
		{"test a\nproc 0\nrequired true\nexpect true\nexpect false", 5, "more than one expect"},
		{"test a\nproc 0\nRequired true", 3, "unknown directive"},
		{"test a\nproc 0\nsometimes true", 3, "unknown directive"},
	} {
		_, err := Parse("f.litmus", strings.NewReader(test.src))
		require.Error(t, err, test.src)
		var se *SyntaxError
		require.True(t, errors.As(err, &se), "%q: %v", test.src, err)
		assert.Equal(t, "f.litmus", se.File)
		assert.Equal(t, test.line, se.Line, "%q: %v", test.src, err)
		assert.Contains(t, se.Msg, test.msg, test.src)
	}
}

func TestParseReportsAllErrors(t *testing.T) {
	_, err := Parse("f.litmus", strings.NewReader(`
test a
proc 0 'mov 1, 1' 'bogus'
proc 1 'mov eax, [x]'
init 9
required 'x=1'
`))
	errs := multierr.Errors(err)
	require.Len(t, errs, 2)
	assert.Equal(t, "f.litmus:3: \"bogus\": unknown instruction \"bogus\"", errs[0].Error())
	assert.Contains(t, errs[1].Error(), "f.litmus:5: bad init")
}

func TestStripComment(t *testing.T) {
	for in, want := range map[string]string{
		"# all":                "",
		"proc 0 # note":        "proc 0 ",
		`proc 0 "a # b" # c`:   `proc 0 "a # b" `,
		`proc 0 'a # b'`:       `proc 0 'a # b'`,
		`test a#b`:             `test a#b`,
		`test a \# b`:          `test a \# b`,
		`proc 0 "x \" # y" #z`: `proc 0 "x \" # y" `,
	} {
		assert.Equal(t, want, stripComment(in), in)
	}
}

func TestParseInst(t *testing.T) {
	for _, test := range []struct {
		in   string
		want litmus.Inst
	}{
		{"mov [x], 1", litmus.Mov(x, one)},
		{"MOV eax,[y]", litmus.Mov(eax, y)},
		{"  mov  ebx , eax ", litmus.Mov(ebx, eax)},
		{"mov [ x ], -3", litmus.Mov(x, litmus.Imm(-3))},
		{"xchg eax, [x]", litmus.Xchg(eax, x)},
		{"mfence", litmus.Mfence},
	} {
		got, err := ParseInst(test.in)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}

	// Syntactically valid but rejected by lowering.
	in, err := ParseInst("mov 1, eax")
	require.NoError(t, err)
	_, err = litmus.Lower(litmus.Prog{0: {in}})
	assert.True(t, errors.Is(err, litmus.ErrIllFormed))
}

func TestInstStringRoundTrip(t *testing.T) {
	for _, in := range []litmus.Inst{
		litmus.Mov(x, one),
		litmus.Mov(eax, y),
		litmus.Mov(eax, ebx),
		litmus.Xchg(x, eax),
		litmus.Mfence,
	} {
		got, err := ParseInst(in.String())
		require.NoError(t, err, in.String())
		assert.Equal(t, in, got)
	}
}

func TestParsePred(t *testing.T) {
	for _, test := range []struct {
		in   string
		want litmus.Pred
	}{
		{"0:eax=1", litmus.RegEquals{Proc: 0, Reg: litmus.EAX, Value: 1}},
		{"x=-1", litmus.MemEquals{Loc: "x", Value: -1}},
		{"true", litmus.And{}},
		{"!x=1", litmus.Not{P: litmus.MemEquals{Loc: "x", Value: 1}}},
		{"x=1 & y=2 & 1:EBX=3", litmus.And{
			litmus.MemEquals{Loc: "x", Value: 1},
			litmus.MemEquals{Loc: "y", Value: 2},
			litmus.RegEquals{Proc: 1, Reg: litmus.EBX, Value: 3},
		}},
		{"x=1 | y=2 & x=3", litmus.Or(
			litmus.MemEquals{Loc: "x", Value: 1},
			litmus.And{litmus.MemEquals{Loc: "y", Value: 2}, litmus.MemEquals{Loc: "x", Value: 3}},
		)},
		{"(x=1|y=2)&x=3", litmus.And{
			litmus.Or(litmus.MemEquals{Loc: "x", Value: 1}, litmus.MemEquals{Loc: "y", Value: 2}),
			litmus.MemEquals{Loc: "x", Value: 3},
		}},
	} {
		got, err := ParsePred(test.in)
		require.NoError(t, err, test.in)
		assert.Equal(t, test.want, got, test.in)
	}
}

func TestPredStringRoundTrip(t *testing.T) {
	a := litmus.RegEquals{Proc: 0, Reg: litmus.EAX, Value: 1}
	b := litmus.RegEquals{Proc: 1, Reg: litmus.EDX, Value: 0}
	c := litmus.MemEquals{Loc: "flag", Value: 2}
	for _, p := range []litmus.Pred{
		a,
		litmus.And{a, b, c},
		litmus.And{},
		litmus.Not{P: litmus.And{}},
		litmus.Or(a, litmus.And{b, c}),
		litmus.Implies(a, litmus.Not{P: c}),
		litmus.And{litmus.Not{P: a}, litmus.And{b, c}},
	} {
		got, err := ParsePred(p.String())
		require.NoError(t, err, p.String())
		assert.Equal(t, p, got, p.String())
	}
}
