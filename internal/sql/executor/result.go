package executor

import "github.com/tuannm99/novalite/internal/record"

// Result is the generic query result returned to the caller.
type Result struct {
	Columns []string
	Rows    []record.Row

	// For DML:
	AffectedRows int64
}

// IsQuery reports whether the result carries rows rather than a count.
func (r *Result) IsQuery() bool { return r.Columns != nil }
