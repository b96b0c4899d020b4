package binder

import (
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/function"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// Info is the static type annotation of a bound expression: the affinity it
// carries into comparisons and its collation.
type Info struct {
	Affinity    record.Affinity
	HasAffinity bool
	// Collation is nil for BINARY. Explicit marks a COLLATE clause, which
	// takes precedence over a column's declared collation.
	Collation record.Collation
	Explicit  bool
}

// Expr is a resolved expression. Column references are positions in the
// row the expression is evaluated against.
type Expr interface {
	Info() Info
}

// Comparison describes how the operands of a comparison are prepared:
// Affinity is applied to both sides when Apply is set, then the values are
// compared under Coll.
type Comparison struct {
	Affinity record.Affinity
	Apply    bool
	Coll     record.Collation
}

type Const struct {
	Value record.Value
}

// Column reads position Index of the current row.
type Column struct {
	Index int
	Name  string
	Type  Info
}

// Outer reads position Index of the row of an enclosing query, Depth levels
// up.
type Outer struct {
	Depth int
	Index int
	Name  string
	Type  Info
}

type Unary struct {
	Op   parser.UnaryOp
	X    Expr
	Type Info
}

type Binary struct {
	Op  parser.BinaryOp
	L   Expr
	R   Expr
	Cmp Comparison
}

type Like struct {
	Glob    bool
	Not     bool
	X       Expr
	Pattern Expr
	Escape  Expr
}

type InList struct {
	Not  bool
	X    Expr
	List []Expr
	Cmp  Comparison
}

type InSelect struct {
	Not bool
	X   Expr
	Sub *Subquery
	Cmp Comparison
}

type Exists struct {
	Sub *Subquery
}

// ScalarSub yields the first column of the first row of a subquery, or
// NULL when it returns no rows.
type ScalarSub struct {
	Sub *Subquery
}

type IsNull struct {
	Not bool
	X   Expr
}

type When struct {
	Cond   Expr
	Result Expr
	// Cmp compares the CASE operand with Cond when there is an operand.
	Cmp Comparison
}

type Case struct {
	Operand Expr
	Whens   []When
	Else    Expr
}

type Cast struct {
	X        Expr
	TypeName string
	Affinity record.Affinity
}

type Collate struct {
	X    Expr
	Coll record.Collation
}

type Func struct {
	Def  *function.Scalar
	Args []Expr
	Coll record.Collation
}

// Subquery is a nested query used as an expression. Correlated is set when
// the query reads columns of an enclosing query. Uses lists the positions of
// the immediately enclosing row it reads.
type Subquery struct {
	Query      *Query
	Correlated bool
	Uses       []int
}

// AggCall is an aggregate computed by the Aggregate operator. Inside the
// select list it is replaced by a Column reading its result slot.
type AggCall struct {
	Def      *function.Aggregate
	Name     string
	Args     []Expr
	Distinct bool
	Coll     record.Collation
}

func (*Const) Info() Info       { return Info{} }
func (e *Column) Info() Info    { return e.Type }
func (e *Outer) Info() Info     { return e.Type }
func (e *Unary) Info() Info     { return e.Type }
func (*Binary) Info() Info      { return Info{} }
func (*Like) Info() Info        { return Info{} }
func (*InList) Info() Info      { return Info{} }
func (*InSelect) Info() Info    { return Info{} }
func (*Exists) Info() Info      { return Info{} }
func (*IsNull) Info() Info      { return Info{} }
func (*Case) Info() Info        { return Info{} }
func (*Func) Info() Info        { return Info{} }
func (e *Cast) Info() Info      { return Info{Affinity: e.Affinity, HasAffinity: true} }
func (e *ScalarSub) Info() Info { return e.Sub.Query.Columns[0].Info }

func (e *Collate) Info() Info {
	in := e.X.Info()
	in.Collation = e.Coll
	in.Explicit = true
	return in
}

// comparison picks the affinity and collation for comparing l with r.
func comparison(l, r Info) Comparison {
	aff, apply := record.ComparisonAffinity(l.Affinity, l.HasAffinity, r.Affinity, r.HasAffinity)
	return Comparison{Affinity: aff, Apply: apply, Coll: pickCollation(l, r)}
}

// pickCollation applies the precedence rule for binary operators: an
// explicit COLLATE on the left, then on the right, then the left column's
// collation, then the right's.
func pickCollation(l, r Info) record.Collation {
	switch {
	case l.Explicit:
		return l.Collation
	case r.Explicit:
		return r.Collation
	case l.Collation != nil:
		return l.Collation
	default:
		return r.Collation
	}
}

// Walk visits e and its children depth-first until fn returns false. It does
// not descend into subqueries.
func Walk(e Expr, fn func(Expr) bool) {
	if e == nil || !fn(e) {
		return
	}
	switch x := e.(type) {
	case *Unary:
		Walk(x.X, fn)
	case *Binary:
		Walk(x.L, fn)
		Walk(x.R, fn)
	case *Like:
		Walk(x.X, fn)
		Walk(x.Pattern, fn)
		Walk(x.Escape, fn)
	case *InList:
		Walk(x.X, fn)
		for _, it := range x.List {
			Walk(it, fn)
		}
	case *InSelect:
		Walk(x.X, fn)
	case *IsNull:
		Walk(x.X, fn)
	case *Case:
		Walk(x.Operand, fn)
		for _, w := range x.Whens {
			Walk(w.Cond, fn)
			Walk(w.Result, fn)
		}
		Walk(x.Else, fn)
	case *Cast:
		Walk(x.X, fn)
	case *Collate:
		Walk(x.X, fn)
	case *Func:
		for _, a := range x.Args {
			Walk(a, fn)
		}
	}
}

// ColumnsUsed returns the current-row positions e reads, including those
// read by correlated subqueries.
func ColumnsUsed(e Expr) []int {
	var out []int
	Walk(e, func(n Expr) bool {
		switch x := n.(type) {
		case *Column:
			out = append(out, x.Index)
		case *InSelect:
			out = append(out, x.Sub.Uses...)
		case *Exists:
			out = append(out, x.Sub.Uses...)
		case *ScalarSub:
			out = append(out, x.Sub.Uses...)
		}
		return true
	})
	return out
}

// IsConstant reports whether e reads nothing from the current row. It may
// still read enclosing rows.
func IsConstant(e Expr) bool { return len(ColumnsUsed(e)) == 0 }

// SplitAnd flattens a conjunction.
func SplitAnd(e Expr) []Expr {
	if b, ok := e.(*Binary); ok && b.Op == parser.OpAnd {
		return append(SplitAnd(b.L), SplitAnd(b.R)...)
	}
	if e == nil {
		return nil
	}
	return []Expr{e}
}

// JoinAnd rebuilds a conjunction; it returns nil for no terms.
func JoinAnd(terms []Expr) Expr {
	var out Expr
	for _, t := range terms {
		if out == nil {
			out = t
			continue
		}
		out = &Binary{Op: parser.OpAnd, L: out, R: t}
	}
	return out
}
