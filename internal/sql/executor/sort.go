package executor

import (
	"slices"

	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
	"github.com/tuannm99/novalite/internal/sql/planner"
)

func (rt *runtime) sort(x *planner.Sort) ([]record.Row, error) {
	rows, err := rt.collect(x.Input, -1)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(rows, func(a, b record.Row) int { return compareSortKeys(a, b, x.Keys) })
	return rows, nil
}

// compareSortKeys orders rows by ORDER BY keys. NULLs come first in
// ascending order unless a key says otherwise.
func compareSortKeys(a, b record.Row, keys []binder.SortKey) int {
	for _, k := range keys {
		va, vb := a[k.Index], b[k.Index]
		var c int
		switch {
		case va.IsNull() && vb.IsNull():
		case va.IsNull():
			c = nullOrder(k.NullsFirst)
		case vb.IsNull():
			c = -nullOrder(k.NullsFirst)
		default:
			c = record.Compare(va, vb, k.Coll)
			if k.Desc {
				c = -c
			}
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func nullOrder(first bool) int {
	if first {
		return -1
	}
	return 1
}

// openSetOp evaluates a compound select. UNION ALL streams both inputs;
// the other operators deduplicate and return rows in sorted order.
func (rt *runtime) openSetOp(x *planner.SetOp) (iterator, error) {
	if x.Op == parser.SetUnionAll {
		left, err := rt.open(x.Left)
		if err != nil {
			return nil, err
		}
		return &concatIter{rt: rt, cur: left, next: x.Right}, nil
	}
	left, err := rt.collect(x.Left, -1)
	if err != nil {
		return nil, err
	}
	right, err := rt.collect(x.Right, -1)
	if err != nil {
		return nil, err
	}
	rightKeys := make(map[string]struct{}, len(right))
	for _, r := range right {
		rightKeys[record.RowKey(r, x.Colls)] = struct{}{}
	}

	seen := map[string]struct{}{}
	var out []record.Row
	add := func(r record.Row) {
		k := record.RowKey(r, x.Colls)
		if _, dup := seen[k]; dup {
			return
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	for _, r := range left {
		_, inRight := rightKeys[record.RowKey(r, x.Colls)]
		switch {
		case x.Op == parser.SetUnion,
			x.Op == parser.SetIntersect && inRight,
			x.Op == parser.SetExcept && !inRight:
			add(r)
		}
	}
	if x.Op == parser.SetUnion {
		for _, r := range right {
			add(r)
		}
	}
	slices.SortFunc(out, func(a, b record.Row) int { return record.CompareRows(a, b, x.Colls) })
	return &sliceIter{rows: out}, nil
}

type concatIter struct {
	rt   *runtime
	cur  iterator
	next planner.Node
}

func (it *concatIter) Next() (record.Row, bool, error) {
	for {
		row, ok, err := it.cur.Next()
		if err != nil || ok {
			return row, ok, err
		}
		if it.next == nil {
			return nil, false, nil
		}
		if it.cur, err = it.rt.open(it.next); err != nil {
			return nil, false, err
		}
		it.next = nil
	}
}
