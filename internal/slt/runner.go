package slt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tuannm99/novalite/internal/engine"
)

// Options configure a Runner.
type Options struct {
	// Workers is the number of files run at once.
	Workers int
	// HashThreshold, when positive, replaces the files' hash-threshold for
	// printing long mismatching results.
	HashThreshold int
	FailFast      bool
	// Target is the engine name matched by skipif/onlyif.
	Target  string
	Session engine.Options
	// Oracle replays every file on SQLite and records divergences.
	Oracle bool
}

func DefaultOptions() Options {
	return Options{Workers: 1, Target: "sqlite", Session: engine.DefaultOptions()}
}

// Failure is a record that did not behave as expected.
type Failure struct {
	Line int
	Msg  string
}

func (f Failure) String() string { return fmt.Sprintf("Line %d: %s", f.Line, f.Msg) }

// FileResult is the outcome of one test file.
type FileResult struct {
	Path             string
	Statements       int
	Queries          int
	FailedStatements int
	FailedQueries    int
	Failures         []Failure
	Divergences      []Failure
	Skipped          bool
	Err              error
	Elapsed          time.Duration
}

func (r *FileResult) Passed() bool {
	return !r.Skipped && r.Err == nil && len(r.Failures) == 0
}

// Runner executes sqllogictest files, each on a fresh session.
type Runner struct {
	opts Options
}

func NewRunner(opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Target == "" {
		opts.Target = "sqlite"
	}
	return &Runner{opts: opts}
}

var errStop = errors.New("slt: stopped on first failure")

// Run executes the files and returns their results in input order.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	start := time.Now()
	results := make([]FileResult, len(paths))
	for i, p := range paths {
		results[i] = FileResult{Path: p, Skipped: true}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for i, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := r.RunFile(gctx, path)
			if gctx.Err() != nil && !res.Passed() {
				// interrupted by another file's failure
				return nil
			}
			results[i] = res
			if r.opts.FailFast && !res.Passed() {
				return errStop
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Report{Files: results, Elapsed: time.Since(start)}, nil
}

// RunFile runs one file on a new session.
func (r *Runner) RunFile(ctx context.Context, path string) FileResult {
	start := time.Now()
	res := FileResult{Path: path}
	recs, err := ParseFile(path, r.opts.Target)
	if err != nil {
		res.Err = err
		return res
	}
	r.runRecords(ctx, recs, &res)
	res.Elapsed = time.Since(start)
	slog.Debug("slt: file done", "path", path, "passed", res.Passed(), "elapsed", res.Elapsed)
	return res
}

func (r *Runner) runRecords(ctx context.Context, recs []Record, res *FileResult) {
	sess := engine.NewSession(r.opts.Session)
	var orc *oracle
	if r.opts.Oracle {
		var err error
		if orc, err = openOracle(ctx); err != nil {
			res.Err = err
			return
		}
		defer func() { _ = orc.Close() }()
	}
	labels := map[string]string{}

	for i := range recs {
		if ctx.Err() != nil {
			res.Err = ctx.Err()
			return
		}
		rec := &recs[i]
		var fail, execErr error
		switch rec.Kind {
		case KindStatement:
			res.Statements++
			execErr, fail = r.statement(ctx, sess, rec)
			if fail != nil {
				res.FailedStatements++
			}
		case KindQuery:
			res.Queries++
			var vals []string
			vals, fail = r.query(ctx, sess, rec)
			if fail == nil && rec.Label != "" {
				fail = checkLabel(labels, rec, vals)
			}
			if fail != nil {
				res.FailedQueries++
			}
		}
		if fail != nil {
			res.Failures = append(res.Failures, Failure{Line: rec.Line, Msg: fail.Error()})
		}
		if orc != nil {
			if d := diverge(ctx, sess, orc, rec, execErr); d != "" {
				res.Divergences = append(res.Divergences, Failure{Line: rec.Line, Msg: d})
			}
		}
		if fail != nil && r.opts.FailFast {
			return
		}
	}
}

// statement runs a statement record and returns the session's error along
// with the failure it amounts to.
func (r *Runner) statement(ctx context.Context, sess *engine.Session, rec *Record) (execErr, fail error) {
	_, execErr = sess.ExecuteStatement(ctx, rec.SQL)
	switch {
	case rec.ExpectError && execErr == nil:
		return nil, errors.New("expected error but got success")
	case !rec.ExpectError && execErr != nil:
		return execErr, fmt.Errorf("statement failed: %w", execErr)
	}
	return execErr, nil
}

func (r *Runner) query(ctx context.Context, sess *engine.Session, rec *Record) ([]string, error) {
	res, err := sess.ExecuteStatement(ctx, rec.SQL)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	if !res.IsQuery() {
		return nil, errors.New("statement returned no result set")
	}
	if len(res.Columns) != len(rec.Types) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(rec.Types), len(res.Columns))
	}
	vals := FormatRows(res.Rows, rec.Types)
	if err := compare(rec, vals); err != nil {
		threshold := rec.HashThreshold
		if r.opts.HashThreshold > 0 {
			threshold = r.opts.HashThreshold
		}
		if threshold > 0 && len(vals) > threshold {
			arranged := arrange(vals, len(rec.Types), rec.Sort)
			return nil, fmt.Errorf("%w (got %d values hashing to %s)", err, len(vals), Hash(arranged))
		}
		return nil, err
	}
	return vals, nil
}

// checkLabel requires queries sharing a label to produce the same result.
func checkLabel(labels map[string]string, rec *Record, vals []string) error {
	h := Hash(arrange(vals, len(rec.Types), rec.Sort))
	prev, seen := labels[rec.Label]
	if !seen {
		labels[rec.Label] = h
		return nil
	}
	if prev != h {
		return fmt.Errorf("label %s: result differs from earlier query with the same label", rec.Label)
	}
	return nil
}

// diverge replays rec on the oracle and describes any difference from the
// session's behavior. The session has already run rec, with execErr as the
// outcome of a statement; queries are read only so running them again is
// harmless.
func diverge(ctx context.Context, sess *engine.Session, orc *oracle, rec *Record, execErr error) string {
	if rec.Kind == KindStatement {
		oerr := orc.exec(ctx, rec.SQL)
		switch {
		case oerr != nil && execErr == nil:
			return fmt.Sprintf("sqlite failed: %v", oerr)
		case oerr == nil && execErr != nil:
			return fmt.Sprintf("sqlite succeeded, novalite failed: %v", execErr)
		}
		return ""
	}
	want, oerr := orc.query(ctx, rec.SQL)
	res, err := sess.ExecuteStatement(ctx, rec.SQL)
	switch {
	case oerr != nil && err != nil:
		return ""
	case oerr != nil:
		return fmt.Sprintf("sqlite failed: %v", oerr)
	case err != nil:
		return fmt.Sprintf("novalite failed: %v", err)
	}
	ncols := max(len(rec.Types), 1)
	got := arrange(FormatRows(res.Rows, rec.Types), ncols, rec.Sort)
	exp := arrange(FormatRows(want, rec.Types), ncols, rec.Sort)
	if !slices.Equal(got, exp) {
		return fmt.Sprintf("results differ: sqlite %d values hashing to %s, novalite %d values hashing to %s",
			len(exp), Hash(exp), len(got), Hash(got))
	}
	return ""
}

// FindFiles lists the *.test files under root in sorted order, keeping
// those whose base name contains pattern.
func FindFiles(root, pattern string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".test" {
			return nil
		}
		if pattern != "" && !strings.Contains(strings.TrimSuffix(d.Name(), ".test"), pattern) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("slt: find files: %w", err)
	}
	slices.Sort(out)
	return out, nil
}
