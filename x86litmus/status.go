// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/aclements/go-moremath/fit"
	"golang.org/x/crypto/ssh/terminal"
)

// StatusReporter draws a progress line with an ETA at the bottom of
// a terminal. If w is not a terminal, it draws nothing.
type StatusReporter struct {
	w      io.Writer
	update chan<- statusUpdate
	done   chan bool
}

type statusUpdate struct {
	progress float64
	message  string
}

func NewStatusReporter(w io.Writer) *StatusReporter {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("TERM") == "dumb" || !terminal.IsTerminal(int(f.Fd())) {
		return &StatusReporter{}
	}
	update := make(chan statusUpdate)
	sr := &StatusReporter{w: w, update: update}
	go sr.loop(update)
	return sr
}

// Progress reports that frac of the work is done. It may be called
// from multiple goroutines.
func (sr *StatusReporter) Progress(msg string, frac float64) {
	if sr.update != nil {
		sr.update <- statusUpdate{message: msg, progress: frac}
	}
}

// Stop clears the status line. Progress must not be called after
// Stop.
func (sr *StatusReporter) Stop() {
	if sr.update != nil {
		sr.done = make(chan bool)
		close(sr.update)
		<-sr.done
		sr.update = nil
	}
}

func (sr *StatusReporter) loop(updates <-chan statusUpdate) {
	const resetLine = "\r\x1b[2K"
	const wrapOff = "\x1b[?7l"
	const wrapOn = "\x1b[?7h"

	tick := time.NewTicker(time.Second / 4)
	defer tick.Stop()

	var end time.Time
	t0 := time.Now()

	var times, progress, weights []float64
	var msg string
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				fmt.Fprint(sr.w, resetLine)
				close(sr.done)
				return
			}
			now := float64(time.Since(t0))
			times = append(times, now)
			progress = append(progress, update.progress)
			weights = append(weights, 0)
			msg = update.message

			// Fit progress over time with exponentially
			// decaying weights. Two points are needed for a
			// line.
			if len(times) < 2 {
				break
			}
			const halfLife = 30 * time.Second
			for i, t := range times {
				weights[i] = math.Exp(-1 / float64(halfLife) * (now - t))
			}
			params := fit.PolynomialRegression(times, progress, weights, 1).Coefficients
			a, b := params[0], params[1]

			// The intercept of a + b*x - 1 is the ending
			// time.
			if b <= 0 || math.IsNaN(b) {
				end = time.Time{}
			} else {
				end = t0.Add(time.Duration((1 - a) / b))
			}

		case <-tick.C:
		}

		eta := "unknown"
		if !end.IsZero() {
			etaDur := time.Until(end)
			etaDur -= etaDur % time.Second
			if etaDur <= 0 {
				eta = "0s"
			} else {
				eta = etaDur.String()
			}
		}
		fmt.Fprintf(sr.w, "%s%s%s, ETA %s%s", resetLine, wrapOff, msg, eta, wrapOn)
	}
}
