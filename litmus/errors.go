// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import "errors"

var (
	// ErrIllFormed is wrapped by every error caused by a malformed
	// program, initial state, or predicate. Such tests are rejected
	// before exploration starts.
	ErrIllFormed = errors.New("ill-formed litmus test")

	// ErrVacuous is returned when exploration finds no terminal
	// state. Forbidden and Required are meaningless over an empty
	// set of outcomes.
	ErrVacuous = errors.New("no terminal states")

	// ErrBudget is returned when exploration exceeds
	// Options.MaxStates.
	ErrBudget = errors.New("state budget exceeded")
)
