package slt

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Report gathers the results of a run.
type Report struct {
	Files   []FileResult
	Elapsed time.Duration
}

// Passed reports whether every file ran and passed.
func (r *Report) Passed() bool {
	for i := range r.Files {
		if !r.Files[i].Passed() {
			return false
		}
	}
	return true
}

// Totals sums the per-file counters.
func (r *Report) Totals() (files, passed, stmts, failedStmts, queries, failedQueries int) {
	for i := range r.Files {
		f := &r.Files[i]
		if f.Skipped {
			continue
		}
		files++
		if f.Passed() {
			passed++
		}
		stmts += f.Statements
		failedStmts += f.FailedStatements
		queries += f.Queries
		failedQueries += f.FailedQueries
	}
	return
}

// FirstFailure returns the first failing file in run order.
func (r *Report) FirstFailure() (*FileResult, bool) {
	for i := range r.Files {
		f := &r.Files[i]
		if !f.Skipped && !f.Passed() {
			return f, true
		}
	}
	return nil, false
}

// Print writes one line per file, unless summaryOnly, followed by totals.
func (r *Report) Print(w io.Writer, summaryOnly bool) {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed, color.Bold).SprintFunc()
	warn := color.New(color.FgYellow).SprintFunc()

	if !summaryOnly {
		for i := range r.Files {
			f := &r.Files[i]
			switch {
			case f.Skipped:
				_, _ = fmt.Fprintf(w, "  %s %s\n", f.Path, warn("SKIP"))
			case f.Passed():
				_, _ = fmt.Fprintf(w, "  %s %s (%d stmt, %d queries)\n", f.Path, pass("PASS"), f.Statements, f.Queries)
			default:
				_, _ = fmt.Fprintf(w, "  %s %s\n", f.Path, fail("FAIL"))
				if d := failureDetail(f); d != "" {
					_, _ = fmt.Fprintf(w, "        %s\n", d)
				}
			}
			for _, d := range f.Divergences {
				_, _ = fmt.Fprintf(w, "        %s %s\n", warn("oracle:"), d)
			}
		}
		_, _ = fmt.Fprintln(w)
	}

	files, passed, stmts, failedStmts, queries, failedQueries := r.Totals()
	pct := 0.0
	if files > 0 {
		pct = float64(passed) / float64(files) * 100
	}
	_, _ = fmt.Fprintln(w, strings.Repeat("=", 60))
	_, _ = fmt.Fprintf(w, "Files:      %d/%d passed (%.1f%%)\n", passed, files, pct)
	_, _ = fmt.Fprintf(w, "Statements: %d/%d passed\n", stmts-failedStmts, stmts)
	_, _ = fmt.Fprintf(w, "Queries:    %d/%d passed\n", queries-failedQueries, queries)
	_, _ = fmt.Fprintf(w, "Time:       %.1fs\n", r.Elapsed.Seconds())

	if f, ok := r.FirstFailure(); ok {
		line := 0
		if len(f.Failures) > 0 {
			line = f.Failures[0].Line
		}
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintf(w, "First failure: %s:%d\n", f.Path, line)
		_, _ = fmt.Fprintf(w, "  %s\n", failureDetail(f))
	}
}

func failureDetail(f *FileResult) string {
	if f.Err != nil {
		return f.Err.Error()
	}
	if len(f.Failures) > 0 {
		return f.Failures[0].String()
	}
	return ""
}
