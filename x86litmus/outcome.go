// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aclements/go-gg/table"
	"github.com/aclements/tsolitmus/litmus"
)

// printProg prints the program of t with one column per processor,
// followed by its lowered form.
func printProg(w io.Writer, t *litmus.Test) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, t.Prog)
	if core, err := litmus.Lower(t.Prog); err == nil {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, core)
	}
	tw.Flush()
}

// outcomeTable returns a table of terminals with one column for each
// register that is non-zero in some terminal, one column per memory
// location, and a column giving the value of pred.
func outcomeTable(terminals []*litmus.Terminal, pred litmus.Pred) *table.Table {
	type regCol struct {
		p litmus.Proc
		r litmus.Reg
	}
	var regCols []regCol
	var locs []litmus.MemLoc
	if len(terminals) > 0 {
		locs = terminals[0].Locs()
		for _, p := range terminals[0].Procs() {
			for r := litmus.Reg(0); int(r) < litmus.NumRegs; r++ {
				for _, t := range terminals {
					if t.Reg(p, r) != 0 {
						regCols = append(regCols, regCol{p, r})
						break
					}
				}
			}
		}
	}

	b := new(table.Builder)
	for _, c := range regCols {
		col := make([]int, len(terminals))
		for i, t := range terminals {
			col[i] = int(t.Reg(c.p, c.r))
		}
		b.Add(fmt.Sprintf("%d:%s", int(c.p), c.r), col)
	}
	for _, loc := range locs {
		col := make([]int, len(terminals))
		for i, t := range terminals {
			col[i] = int(t.Load(loc))
		}
		b.Add(string(loc), col)
	}
	holds := make([]string, len(terminals))
	for i, t := range terminals {
		holds[i] = "N"
		if pred.Eval(t) {
			holds[i] = "Y"
		}
	}
	b.Add("pred", holds)
	return b.Done()
}

func printOutcomeTable(w io.Writer, terminals []*litmus.Terminal, pred litmus.Pred) {
	table.Fprint(w, outcomeTable(terminals, pred))
}
