// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package litmus decides litmus tests under x86-TSO.
//
// A litmus test is a small multi-processor program together with a
// predicate over the final registers and memory. The package lowers
// the program to a handful of core instructions, enumerates every
// final state reachable under a TSO machine with per-processor FIFO
// store buffers, MFENCE, and a single bus lock, and reports whether
// the predicate is Forbidden, Required, or Allowed over those final
// states.
//
// Each processor is modeled as an instruction pointer, a register
// file, and a store buffer. Writes enter the store buffer and become
// visible to other processors only when the buffer drains, which may
// happen at any time. Reads see the processor's own newest buffered
// write to a location before they see memory. MFENCE waits for the
// store buffer to drain. xchg is lowered to a locked read-write
// sequence; while a processor holds the bus lock, no other processor
// may read memory or drain its store buffer.
package litmus

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// A Test is a litmus test.
type Test struct {
	Name string
	Prog Prog

	// Init is the initial state. If nil, the processors of Prog
	// start with zeroed registers and memory.
	Init *Init

	Pred Pred
	Type PredType
}

// A Result is the outcome of checking a Test.
type Result struct {
	Name    string
	Verdict bool

	// Deciding is the terminal state that settled the verdict, if
	// any. See Decide.
	Deciding *Terminal

	Outcomes *Outcomes

	// Cached is true if Outcomes came from an earlier exploration
	// of the same program.
	Cached bool
}

// A Checker checks litmus tests. It remembers the outcomes of
// recently explored programs, so tests that share a program and
// initial state are explored once. A Checker is safe for concurrent
// use.
type Checker struct {
	opts  Options
	log   *zap.Logger
	cache *lru.Cache[string, *Outcomes]
	group singleflight.Group
}

// NewChecker returns a Checker that explores with opts and
// remembers up to cacheSize explorations. If log is nil, nothing is
// logged.
func NewChecker(opts Options, log *zap.Logger, cacheSize int) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Checker{opts: opts, log: log}
	if cacheSize > 0 {
		cache, err := lru.New[string, *Outcomes](cacheSize)
		if err != nil {
			panic(err)
		}
		c.cache = cache
	}
	return c
}

// Check lowers, explores, and judges t.
//
// The returned error wraps ErrIllFormed if t is malformed and
// ErrVacuous if t's program has no terminal states.
func (c *Checker) Check(ctx context.Context, t *Test) (*Result, error) {
	if t.Pred == nil {
		return nil, fmt.Errorf("%s: %w: no predicate", t.Name, ErrIllFormed)
	}
	if t.Type < Forbidden || t.Type > Allowed {
		return nil, fmt.Errorf("%s: %w: bad predicate type %v", t.Name, ErrIllFormed, t.Type)
	}
	init := t.Init
	if init == nil {
		init = NewInit(t.Prog.Procs()...)
	}
	core, err := Lower(t.Prog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}
	m, err := newMachine(core, init)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}
	if err := checkPred(t.Pred, init); err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}

	out, cached, err := c.outcomes(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.Name, err)
	}
	verdict, deciding := Decide(out.Terminals, t.Pred, t.Type)
	c.log.Debug("checked litmus test",
		zap.String("test", t.Name),
		zap.Stringer("type", t.Type),
		zap.Bool("verdict", verdict),
		zap.Int("terminals", len(out.Terminals)),
		zap.Bool("cached", cached),
	)
	return &Result{
		Name:     t.Name,
		Verdict:  verdict,
		Deciding: deciding,
		Outcomes: out,
		Cached:   cached,
	}, nil
}

// outcomes explores m, sharing results with earlier and concurrent
// explorations of the same program.
func (c *Checker) outcomes(ctx context.Context, m *machine) (*Outcomes, bool, error) {
	key := m.programKey()
	if c.cache != nil {
		if out, ok := c.cache.Get(key); ok {
			return out, true, nil
		}
	}
	for {
		v, err, shared := c.group.Do(key, func() (interface{}, error) {
			out, err := m.explore(ctx, &c.opts)
			if err != nil {
				return nil, err
			}
			c.log.Debug("explored",
				zap.String("prog", fingerprint(key)),
				zap.Stringer("order", c.opts.Order),
				zap.Int("states", out.Stats.States),
				zap.Int("terminals", len(out.Terminals)),
				zap.Int("peak", out.Stats.MaxFrontier),
			)
			if c.cache != nil {
				c.cache.Add(key, out)
			}
			return out, nil
		})
		if err != nil {
			// The exploration ran under another caller's context.
			if shared && ctx.Err() == nil && isContextErr(err) {
				c.log.Debug("retrying cancelled shared exploration", zap.String("prog", fingerprint(key)))
				continue
			}
			return nil, false, err
		}
		return v.(*Outcomes), shared, nil
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Litmus checks a litmus test and returns its verdict. It panics if
// the test is ill-formed or its program has no terminal states; a
// verdict about such a test would be meaningless.
func Litmus(name string, prog Prog, init *Init, pred Pred, typ PredType) bool {
	c := NewChecker(Options{}, nil, 0)
	res, err := c.Check(context.Background(), &Test{name, prog, init, pred, typ})
	if err != nil {
		panic(err)
	}
	return res.Verdict
}
