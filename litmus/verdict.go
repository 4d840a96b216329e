// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package litmus

import (
	"fmt"
	"strings"
)

// PredType says how a predicate is judged against the set of
// terminal states.
type PredType int

const (
	// Forbidden holds if no terminal state satisfies the
	// predicate.
	Forbidden PredType = iota
	// Required holds if every terminal state satisfies the
	// predicate.
	Required
	// Allowed holds if some terminal state satisfies the
	// predicate.
	Allowed
)

func (t PredType) String() string {
	switch t {
	case Forbidden:
		return "forbidden"
	case Required:
		return "required"
	case Allowed:
		return "allowed"
	}
	return fmt.Sprintf("PredType(%d)", int(t))
}

// ParsePredType parses "forbidden", "required", or "allowed".
func ParsePredType(s string) (PredType, bool) {
	switch strings.ToLower(s) {
	case "forbidden":
		return Forbidden, true
	case "required":
		return Required, true
	case "allowed":
		return Allowed, true
	}
	return 0, false
}

// Decide judges pred against terminals according to typ. It also
// returns the terminal that settled the verdict, if there is one: the
// satisfying terminal that makes Forbidden false or Allowed true, or
// the violating terminal that makes Required false.
func Decide(terminals []*Terminal, pred Pred, typ PredType) (bool, *Terminal) {
	switch typ {
	case Forbidden:
		for _, t := range terminals {
			if pred.Eval(t) {
				return false, t
			}
		}
		return true, nil

	case Required:
		for _, t := range terminals {
			if !pred.Eval(t) {
				return false, t
			}
		}
		return true, nil

	case Allowed:
		for _, t := range terminals {
			if pred.Eval(t) {
				return true, t
			}
		}
		return false, nil
	}
	panic(fmt.Sprintf("bad PredType %d", int(typ)))
}
