package binder

import (
	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// Query is a bound SELECT statement.
type Query struct {
	Body Body
	// OrderBy keys index the rows produced by Body, which may carry extra
	// sort columns after the visible ones.
	OrderBy []SortKey
	Limit   Expr
	Offset  Expr
	Columns []ResultColumn
}

// NumColumns is the number of visible result columns.
func (q *Query) NumColumns() int { return len(q.Columns) }

type ResultColumn struct {
	Name string
	Info Info
}

type SortKey struct {
	Index      int
	Desc       bool
	NullsFirst bool
	Coll       record.Collation
}

// Body is a *Select or a *Compound.
type Body interface {
	body()
}

// Select is one bound SELECT core. Rows of the FROM clause are Width wide:
// every source occupies a fixed slice of the row, so expressions keep their
// positions under any join order. Aggregated selects append one slot per
// AggCall after the FROM row.
type Select struct {
	From  Source // nil: a single empty row
	Width int
	Where Expr

	GroupBy    []Expr
	GroupColls []record.Collation
	Aggs       []*AggCall
	Aggregated bool
	Having     Expr

	// Exprs are the visible result columns followed by extra ORDER BY keys.
	Exprs      []Expr
	NumOutputs int
	Distinct   bool
	// Values holds the rows of a VALUES clause instead of a FROM pipeline.
	Values [][]Expr
}

// OutputColls returns the collations used to compare visible outputs.
func (s *Select) OutputColls() []record.Collation {
	out := make([]record.Collation, s.NumOutputs)
	for i := range out {
		out[i] = s.Exprs[i].Info().Collation
	}
	return out
}

type Compound struct {
	Op    parser.SetOp
	Left  Body
	Right Body
	Colls []record.Collation
}

func (*Select) body()   {}
func (*Compound) body() {}

// Source is a bound FROM item.
type Source interface {
	source()
}

// TableSource scans a table into NumCols+1 slots starting at Offset; the
// last slot holds the rowid.
type TableSource struct {
	Table  *catalog.Table
	Name   string
	Offset int
}

type SubquerySource struct {
	Query  *Query
	Name   string
	Offset int
}

type JoinSource struct {
	Kind  parser.JoinKind
	Left  Source
	Right Source
	On    Expr
}

func (*TableSource) source()    {}
func (*SubquerySource) source() {}
func (*JoinSource) source()     {}

// Width is the number of row slots s occupies.
func Width(s Source) int {
	switch x := s.(type) {
	case *TableSource:
		return x.Table.Schema.NumCols() + 1
	case *SubquerySource:
		return x.Query.NumColumns()
	case *JoinSource:
		return Width(x.Left) + Width(x.Right)
	default:
		return 0
	}
}

// Offset is the first row slot of s.
func Offset(s Source) int {
	switch x := s.(type) {
	case *TableSource:
		return x.Offset
	case *SubquerySource:
		return x.Offset
	case *JoinSource:
		return Offset(x.Left)
	default:
		return 0
	}
}

// Check is a bound CHECK constraint, evaluated against a table row followed
// by its rowid.
type Check struct {
	Name string
	Text string
	Expr Expr
}

type Insert struct {
	Table *catalog.Table
	// Columns maps each supplied value to a table column.
	Columns       []int
	Rows          [][]Expr
	Query         *Query
	DefaultValues bool
	Defaults      []Expr
	Checks        []Check
	Conflict      parser.ConflictAction
}

type Assignment struct {
	Column int
	Value  Expr
}

type Update struct {
	Table    *catalog.Table
	Source   *TableSource
	Where    Expr
	Set      []Assignment
	Checks   []Check
	Conflict parser.ConflictAction
}

type Delete struct {
	Table  *catalog.Table
	Source *TableSource
	Where  Expr
}
