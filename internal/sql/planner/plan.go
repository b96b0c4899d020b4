package planner

import (
	"github.com/tuannm99/novalite/internal/btree"
	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// Plan is the interface for executable plans.
type Plan interface {
	planNode()
}

// ----- Statement plans -----

// QueryPlan runs a SELECT. Root produces exactly len(Columns) values per row.
type QueryPlan struct {
	Root    Node
	Columns []binder.ResultColumn
}

func (*QueryPlan) planNode() {}

type ExplainPlan struct {
	Target Plan
}

func (*ExplainPlan) planNode() {}

type InsertPlan struct {
	Table *catalog.Table
	// Columns maps each supplied value to a table column.
	Columns []int
	Rows    [][]binder.Expr
	// Query is the row source of INSERT ... SELECT.
	Query         *QueryPlan
	DefaultValues bool
	Defaults      []binder.Expr
	Checks        []binder.Check
	Conflict      parser.ConflictAction
}

func (*InsertPlan) planNode() {}

// UpdatePlan applies Set to every row produced by Input. Input rows hold the
// table columns followed by the rowid.
type UpdatePlan struct {
	Table    *catalog.Table
	Input    Node
	Set      []binder.Assignment
	Checks   []binder.Check
	Conflict parser.ConflictAction
}

func (*UpdatePlan) planNode() {}

type DeletePlan struct {
	Table *catalog.Table
	Input Node
}

func (*DeletePlan) planNode() {}

// CreateTablePlan creates a table from its definition, or from the result
// columns of Query for CREATE TABLE ... AS SELECT.
type CreateTablePlan struct {
	Stmt  *parser.CreateTableStmt
	Query *QueryPlan
}

func (*CreateTablePlan) planNode() {}

type DropTablePlan struct {
	TableName string
	IfExists  bool
}

func (*DropTablePlan) planNode() {}

type CreateIndexPlan struct {
	Stmt *parser.CreateIndexStmt
}

func (*CreateIndexPlan) planNode() {}

type DropIndexPlan struct {
	IndexName string
	IfExists  bool
}

func (*DropIndexPlan) planNode() {}

type CreateViewPlan struct {
	Stmt *parser.CreateViewStmt
}

func (*CreateViewPlan) planNode() {}

type DropViewPlan struct {
	ViewName string
	IfExists bool
}

func (*DropViewPlan) planNode() {}

// TransactionPlan is accepted and ignored: every statement commits alone.
type TransactionPlan struct {
	Verb string
}

func (*TransactionPlan) planNode() {}

// ----- Query operators -----

// Node is a logical operator of a query. Operators below Project produce
// rows of the enclosing select's FROM layout, where every source owns a
// fixed span of slots and slots of sources not joined yet are NULL.
type Node interface {
	queryNode()
}

// Span is the half-open slot range [Lo, Hi) of a FROM source.
type Span struct {
	Lo, Hi int
}

// Scan reads a table in rowid order.
type Scan struct {
	Source *binder.TableSource
	Width  int
	Filter binder.Expr
}

// Probe is a value computed when the scan opens, converted for comparison
// with the indexed column.
type Probe struct {
	Expr binder.Expr
	Cmp  binder.Comparison
}

type Bound struct {
	Probe
	Inclusive bool
}

// IndexScan reads the rows of a table that an index lookup selects. With a
// nil Index it fetches the single row whose rowid equals Eq[0]. Filter is
// still applied to every row fetched.
type IndexScan struct {
	Source *binder.TableSource
	Width  int
	Index  *btree.Index
	Eq     []Probe
	Lo, Hi *Bound
	Filter binder.Expr
}

// SubqueryScan places the rows of a derived table, view or CTE at its span.
type SubqueryScan struct {
	Source *binder.SubquerySource
	Input  Node
	Width  int
	Filter binder.Expr
}

// Values produces one row per entry of Rows. An empty row list of width zero
// stands for a SELECT without FROM.
type Values struct {
	Rows  [][]binder.Expr
	Width int
}

type Filter struct {
	Input Node
	Cond  binder.Expr
}

// Join combines rows of Left and Right. When LeftKeys is set the join
// matches on those equalities through a hash table; Cond is the residual
// predicate. RightSpans lists the slots filled by Right.
type Join struct {
	Kind       parser.JoinKind
	Left       Node
	Right      Node
	Cond       binder.Expr
	LeftKeys   []binder.Expr
	RightKeys  []binder.Expr
	KeyCmps    []binder.Comparison
	RightSpans []Span
}

// Aggregate groups its input and emits one row per group: a representative
// input row of Width slots followed by one slot per aggregate.
type Aggregate struct {
	Input      Node
	Width      int
	GroupBy    []binder.Expr
	GroupColls []record.Collation
	Aggs       []*binder.AggCall
}

type Project struct {
	Input Node
	Exprs []binder.Expr
}

// Distinct removes rows equal to an earlier row on the first len(Colls)
// values.
type Distinct struct {
	Input Node
	Colls []record.Collation
}

type Sort struct {
	Input Node
	Keys  []binder.SortKey
}

type Limit struct {
	Input  Node
	Limit  binder.Expr
	Offset binder.Expr
}

// Trim drops trailing sort-only columns.
type Trim struct {
	Input Node
	N     int
}

type SetOp struct {
	Op    parser.SetOp
	Left  Node
	Right Node
	Colls []record.Collation
}

func (*Scan) queryNode()         {}
func (*IndexScan) queryNode()    {}
func (*SubqueryScan) queryNode() {}
func (*Values) queryNode()       {}
func (*Filter) queryNode()       {}
func (*Join) queryNode()         {}
func (*Aggregate) queryNode()    {}
func (*Project) queryNode()      {}
func (*Distinct) queryNode()     {}
func (*Sort) queryNode()         {}
func (*Limit) queryNode()        {}
func (*Trim) queryNode()         {}
func (*SetOp) queryNode()        {}

// Children returns the inputs of n.
func Children(n Node) []Node {
	switch x := n.(type) {
	case *SubqueryScan:
		return []Node{x.Input}
	case *Filter:
		return []Node{x.Input}
	case *Join:
		return []Node{x.Left, x.Right}
	case *Aggregate:
		return []Node{x.Input}
	case *Project:
		return []Node{x.Input}
	case *Distinct:
		return []Node{x.Input}
	case *Sort:
		return []Node{x.Input}
	case *Limit:
		return []Node{x.Input}
	case *Trim:
		return []Node{x.Input}
	case *SetOp:
		return []Node{x.Left, x.Right}
	default:
		return nil
	}
}
