package planner

import (
	"fmt"

	"github.com/tuannm99/novalite/internal/sql/binder"
)

// PlanQuery lowers a bound query into an operator tree whose rows carry the
// visible result columns.
func (b *Builder) PlanQuery(q *binder.Query) (Node, error) {
	root, width, err := b.planBody(q.Body)
	if err != nil {
		return nil, err
	}
	if len(q.OrderBy) > 0 {
		root = &Sort{Input: root, Keys: q.OrderBy}
	}
	if q.Limit != nil {
		root = &Limit{Input: root, Limit: q.Limit, Offset: q.Offset}
	}
	if width > q.NumColumns() {
		root = &Trim{Input: root, N: q.NumColumns()}
	}
	return root, nil
}

// planBody returns the operator tree of a body and the width of its rows,
// which exceeds the visible column count when ORDER BY needs extra keys.
func (b *Builder) planBody(body binder.Body) (Node, int, error) {
	switch x := body.(type) {
	case *binder.Select:
		return b.planSelect(x)
	case *binder.Compound:
		left, _, err := b.planBody(x.Left)
		if err != nil {
			return nil, 0, err
		}
		right, _, err := b.planBody(x.Right)
		if err != nil {
			return nil, 0, err
		}
		return &SetOp{Op: x.Op, Left: left, Right: right, Colls: x.Colls}, len(x.Colls), nil
	default:
		return nil, 0, fmt.Errorf("planner: unsupported query body %T", body)
	}
}

func (b *Builder) planSelect(sel *binder.Select) (Node, int, error) {
	if sel.Values != nil {
		return &Values{Rows: sel.Values, Width: len(sel.Exprs)}, len(sel.Exprs), nil
	}
	root, err := b.planFrom(sel)
	if err != nil {
		return nil, 0, err
	}
	if sel.Aggregated {
		root = &Aggregate{
			Input:      root,
			Width:      sel.Width,
			GroupBy:    sel.GroupBy,
			GroupColls: sel.GroupColls,
			Aggs:       sel.Aggs,
		}
		if sel.Having != nil {
			root = &Filter{Input: root, Cond: sel.Having}
		}
	}
	root = &Project{Input: root, Exprs: sel.Exprs}
	if sel.Distinct {
		root = &Distinct{Input: root, Colls: sel.OutputColls()}
	}
	return root, len(sel.Exprs), nil
}

func withFilter(n Node, conds []binder.Expr) Node {
	if len(conds) == 0 {
		return n
	}
	return &Filter{Input: n, Cond: binder.JoinAnd(conds)}
}
