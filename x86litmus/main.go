// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command x86litmus checks litmus tests against the x86-TSO memory
// model.
//
// Usage:
//
//	x86litmus [flags] file.litmus...
//
// Each file contains one or more tests in the format described by
// internal/litfile. x86litmus explores every execution of each test
// under a TSO machine with FIFO store buffers, MFENCE, and a bus lock
// for locked instructions, decides the test's predicate, and prints
// "ok" if the verdict matches the test's expectation and "FAIL" if it
// doesn't.
//
// Tests are checked in parallel. Tests that share a program and
// initial state are explored only once.
//
// x86litmus exits with status 1 if any test fails and 2 if any file
// or test is malformed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"
	"sync/atomic"

	"github.com/aclements/tsolitmus/internal/litfile"
	"github.com/aclements/tsolitmus/litmus"
	"go.brendoncarroll.net/stdctx/logctx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// cacheSize is the number of explorations the checker remembers.
const cacheSize = 128

type config struct {
	jobs       int
	verbose    bool
	order      litmus.Order
	maxStates  int
	dotDir     string
	trace      bool
	stats      bool
	debug      bool
	cpuProfile string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cfg config
	fs := flag.NewFlagSet("x86litmus", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&cfg.jobs, "j", runtime.GOMAXPROCS(-1), "check `n` tests in parallel")
	fs.BoolVar(&cfg.verbose, "v", false, "print each test's program and outcomes")
	flagOrder := fs.String("order", "bfs", "explore states in `order` bfs or dfs")
	fs.IntVar(&cfg.maxStates, "max-states", 0, "give up on a test after `n` states (0 means no limit)")
	fs.StringVar(&cfg.dotDir, "dot", "", "write each test's state graph to `dir`/NAME.dot, qualifying NAME by file and line if it is not unique")
	fs.BoolVar(&cfg.trace, "trace", false, "print the execution that decided each verdict")
	fs.BoolVar(&cfg.stats, "stats", false, "print exploration statistics")
	fs.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	fs.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to `file`")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: x86litmus [flags] file.litmus...\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 || cfg.jobs < 1 {
		fs.Usage()
		return 2
	}
	order, err := litmus.ParseOrder(*flagOrder)
	if err != nil {
		fmt.Fprintf(stderr, "x86litmus: %v\n", err)
		return 2
	}
	cfg.order = order

	log := newLogger(stderr, cfg.debug)
	defer log.Sync()
	ctx = logctx.NewContext(ctx, log)

	if cfg.cpuProfile != "" {
		f, err := os.Create(cfg.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "x86litmus: %v\n", err)
			return 2
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "x86litmus: %v\n", err)
			return 2
		}
		defer pprof.StopCPUProfile()
	}

	cases, err := loadCases(fs.Args())
	if err != nil {
		for _, err := range multierr.Errors(err) {
			fmt.Fprintln(stderr, err)
		}
		return 2
	}
	if cfg.dotDir != "" {
		if err := os.MkdirAll(cfg.dotDir, 0777); err != nil {
			fmt.Fprintf(stderr, "x86litmus: %v\n", err)
			return 2
		}
	}

	results, errs := checkAll(ctx, &cfg, log, cases, NewStatusReporter(stderr))

	var dotFiles []string
	if cfg.dotDir != "" {
		dotFiles = dotFileNames(cases)
	}
	code := 0
	for i, c := range cases {
		if errs[i] != nil {
			fmt.Fprintf(stderr, "%s: %v\n", c.Pos(), errs[i])
			code = 2
			continue
		}
		dotFile := ""
		if dotFiles != nil {
			dotFile = dotFiles[i]
		}
		if !report(ctx, stdout, &cfg, c, results[i], dotFile) && code == 0 {
			code = 1
		}
	}
	return code
}

func newLogger(w io.Writer, debug bool) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}
	enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level))
}

// loadCases parses every file in paths. It reports errors from all
// files.
func loadCases(paths []string) ([]*litfile.Case, error) {
	var cases []*litfile.Case
	var errs error
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		cs, err := litfile.Parse(path, f)
		f.Close()
		errs = multierr.Append(errs, err)
		cases = append(cases, cs...)
	}
	if errs != nil {
		return nil, errs
	}
	return cases, nil
}

// checkAll checks cases concurrently. The i'th result or error
// belongs to cases[i].
func checkAll(ctx context.Context, cfg *config, log *zap.Logger, cases []*litfile.Case, status *StatusReporter) ([]*litmus.Result, []error) {
	opts := litmus.Options{
		Order:     cfg.order,
		MaxStates: cfg.maxStates,
		Graph:     cfg.dotDir != "" || cfg.trace,
	}
	checker := litmus.NewChecker(opts, log, cacheSize)

	results := make([]*litmus.Result, len(cases))
	errs := make([]error, len(cases))
	var done atomic.Int64
	var g errgroup.Group
	g.SetLimit(cfg.jobs)
	for i, c := range cases {
		g.Go(func() error {
			results[i], errs[i] = checker.Check(ctx, &c.Test)
			n := done.Add(1)
			status.Progress(fmt.Sprintf("%d/%d tests", n, len(cases)), float64(n)/float64(len(cases)))
			return nil
		})
	}
	g.Wait()
	status.Stop()
	return results, errs
}

// report prints the result of one case and reports whether its
// verdict matched the expectation. If dotFile is not empty, it writes
// the case's state graph there.
func report(ctx context.Context, w io.Writer, cfg *config, c *litfile.Case, res *litmus.Result, dotFile string) bool {
	pass := res.Verdict == c.Expect
	label := "ok"
	if !pass {
		label = "FAIL"
	}
	fmt.Fprintf(w, "%-4s %s %s: %s %q is %v", label, c.Pos(), c.Name, c.Type, c.Pred.String(), res.Verdict)
	if !pass {
		fmt.Fprintf(w, ", want %v", c.Expect)
	}
	fmt.Fprintln(w)

	if cfg.verbose {
		printProg(w, &c.Test)
		printOutcomeTable(w, res.Outcomes.Terminals, c.Pred)
	}
	if res.Deciding != nil && (cfg.verbose || cfg.trace || !pass) {
		fmt.Fprintf(w, "\tdecided by: %s\n", res.Deciding)
		if cfg.trace {
			if steps, ok := res.Outcomes.Trace(res.Deciding); ok {
				parts := make([]string, len(steps))
				for i, st := range steps {
					parts[i] = st.String()
				}
				fmt.Fprintf(w, "\ttrace: %s\n", strings.Join(parts, ", "))
			}
		}
	}
	if cfg.stats {
		cached := ""
		if res.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(w, "\t%s%s\n", &res.Outcomes.Stats, cached)
	}
	if dotFile != "" {
		path := filepath.Join(cfg.dotDir, dotFile)
		if err := writeDot(path, c.Name, res.Outcomes.Graph); err != nil {
			logctx.Error(ctx, "writing state graph", zap.String("test", c.Name), zap.Error(err))
		} else {
			logctx.Debug(ctx, "wrote state graph", zap.String("test", c.Name), zap.String("path", path), zap.Int("states", res.Outcomes.Graph.NumNodes()))
		}
	}
	return pass
}

// dotFileNames returns the Graphviz file name of each case. A test
// name shared by several cases is qualified by the case's file and
// line.
func dotFileNames(cases []*litfile.Case) []string {
	count := make(map[string]int)
	for _, c := range cases {
		count[c.Name]++
	}
	names := make([]string, len(cases))
	for i, c := range cases {
		name := c.Name
		if count[name] > 1 {
			stem := strings.TrimSuffix(filepath.Base(c.File), filepath.Ext(c.File))
			name = fmt.Sprintf("%s-%d-%s", stem, c.Line, name)
		}
		names[i] = strings.Map(func(r rune) rune {
			if r == '/' || r == filepath.Separator {
				return '_'
			}
			return r
		}, name) + ".dot"
	}
	return names
}

func writeDot(path, name string, g *litmus.StateGraph) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := g.WriteDot(f, name); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
