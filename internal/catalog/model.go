package catalog

import (
	"github.com/tuannm99/novalite/internal/btree"
	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// Check is a CHECK constraint. Name is empty for unnamed constraints.
type Check struct {
	Name string
	Expr parser.Expr
}

// Table is a table definition together with its rows and indexes.
type Table struct {
	Name   string
	Schema record.Schema

	// Defaults holds the DEFAULT expression of each column, nil for NULL.
	Defaults []parser.Expr
	Checks   []Check

	// RowidAlias is the position of the INTEGER PRIMARY KEY column, or -1.
	RowidAlias int
	// PrimaryKey lists the primary key columns, empty when there is none.
	PrimaryKey []int

	Heap    *heap.Table
	Indexes []*btree.Index
}

// View is a stored query.
type View struct {
	Name    string
	Columns []string
	Select  *parser.SelectStmt
}

// Cardinality is the row count the planner uses for ordering joins.
func (t *Table) Cardinality() int { return t.Heap.Len() }

// ColumnIndex returns the position of a column, or -1.
func (t *Table) ColumnIndex(name string) int { return t.Schema.Index(name) }

// Collations returns the collation of every column.
func (t *Table) Collations() []record.Collation {
	out := make([]record.Collation, t.Schema.NumCols())
	for i := range out {
		out[i] = t.Schema.CollationOf(i)
	}
	return out
}
