package executor

import (
	"fmt"
	"math"

	"github.com/tuannm99/novalite/internal/btree"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/planner"
)

// open builds the iterator tree for n.
func (rt *runtime) open(n planner.Node) (iterator, error) {
	switch x := n.(type) {
	case *planner.Scan:
		return &scanIter{rt: rt, src: x.Source, width: x.Width, filter: x.Filter, cur: x.Source.Table.Heap.Cursor()}, nil
	case *planner.IndexScan:
		ids, err := rt.lookup(x)
		if err != nil {
			return nil, err
		}
		return &lookupIter{rt: rt, x: x, ids: ids}, nil
	case *planner.SubqueryScan:
		in, err := rt.open(x.Input)
		if err != nil {
			return nil, err
		}
		return &subqueryIter{rt: rt, x: x, in: in}, nil
	case *planner.Values:
		return &valuesIter{rt: rt, x: x}, nil
	case *planner.Filter:
		in, err := rt.open(x.Input)
		if err != nil {
			return nil, err
		}
		return &filterIter{rt: rt, in: in, cond: x.Cond}, nil
	case *planner.Project:
		in, err := rt.open(x.Input)
		if err != nil {
			return nil, err
		}
		return &projectIter{rt: rt, in: in, exprs: x.Exprs}, nil
	case *planner.Distinct:
		in, err := rt.open(x.Input)
		if err != nil {
			return nil, err
		}
		return &distinctIter{in: in, colls: x.Colls, seen: map[string]struct{}{}}, nil
	case *planner.Limit:
		return rt.openLimit(x)
	case *planner.Trim:
		in, err := rt.open(x.Input)
		if err != nil {
			return nil, err
		}
		return &trimIter{in: in, n: x.N}, nil
	case *planner.Join:
		return rt.openJoin(x)
	case *planner.Aggregate:
		rows, err := rt.aggregate(x)
		if err != nil {
			return nil, err
		}
		return &sliceIter{rows: rows}, nil
	case *planner.Sort:
		rows, err := rt.sort(x)
		if err != nil {
			return nil, err
		}
		return &sliceIter{rows: rows}, nil
	case *planner.SetOp:
		return rt.openSetOp(x)
	default:
		return nil, fmt.Errorf("executor: unsupported node %T", n)
	}
}

// place lays a stored row and its id into a FROM row of the given width.
func place(src *binder.TableSource, width int, id heap.RowID, row record.Row) record.Row {
	out := make(record.Row, width)
	n := copy(out[src.Offset:], row)
	out[src.Offset+n] = record.Int(int64(id))
	return out
}

type scanIter struct {
	rt     *runtime
	src    *binder.TableSource
	width  int
	filter binder.Expr
	cur    *heap.Cursor
}

func (it *scanIter) Next() (record.Row, bool, error) {
	for {
		if err := it.rt.check(); err != nil {
			return nil, false, err
		}
		id, row, ok := it.cur.Next()
		if !ok {
			return nil, false, nil
		}
		out := place(it.src, it.width, id, row)
		keep, err := it.rt.test(it.filter, out)
		if err != nil {
			return nil, false, err
		}
		if keep {
			return out, true, nil
		}
	}
}

type lookupIter struct {
	rt  *runtime
	x   *planner.IndexScan
	ids []heap.RowID
	pos int
}

func (it *lookupIter) Next() (record.Row, bool, error) {
	for it.pos < len(it.ids) {
		if err := it.rt.check(); err != nil {
			return nil, false, err
		}
		id := it.ids[it.pos]
		it.pos++
		row, ok := it.x.Source.Table.Heap.Get(id)
		if !ok {
			continue
		}
		out := place(it.x.Source, it.x.Width, id, row)
		keep, err := it.rt.test(it.x.Filter, out)
		if err != nil {
			return nil, false, err
		}
		if keep {
			return out, true, nil
		}
	}
	return nil, false, nil
}

// probe evaluates a lookup value. ok is false when the value is NULL, which
// matches nothing.
func (rt *runtime) probe(p planner.Probe) (record.Value, bool, error) {
	v, err := rt.eval(p.Expr, nil)
	if err != nil {
		return record.Null, false, err
	}
	if p.Cmp.Apply {
		v = p.Cmp.Affinity.ApplyComparison(v)
	}
	return v, !v.IsNull(), nil
}

// lookup resolves the row ids an index or rowid scan visits.
func (rt *runtime) lookup(x *planner.IndexScan) ([]heap.RowID, error) {
	eq := make(record.Row, len(x.Eq))
	for i, p := range x.Eq {
		v, ok, err := rt.probe(p)
		if err != nil || !ok {
			return nil, err
		}
		eq[i] = v
	}
	if x.Index == nil {
		id, ok := rowidOf(eq[0])
		if !ok {
			return nil, nil
		}
		return []heap.RowID{id}, nil
	}
	if len(eq) > 0 {
		return x.Index.SearchEqual(eq), nil
	}
	lo, ok, err := rt.bound(x.Lo)
	if err != nil || !ok {
		return nil, err
	}
	hi, ok, err := rt.bound(x.Hi)
	if err != nil || !ok {
		return nil, err
	}
	var ids []heap.RowID
	x.Index.RangeScan(lo, hi, func(key record.Row, id heap.RowID) bool {
		// NULL keys sort first and never satisfy a range.
		if !key[0].IsNull() {
			ids = append(ids, id)
		}
		return true
	})
	return ids, nil
}

func (rt *runtime) bound(b *planner.Bound) (*btree.Bound, bool, error) {
	if b == nil {
		return nil, true, nil
	}
	v, ok, err := rt.probe(b.Probe)
	if err != nil || !ok {
		return nil, false, err
	}
	return &btree.Bound{Value: v, Inclusive: b.Inclusive}, true, nil
}

// rowidOf converts a probe value to a row id. Values that are not integral
// cannot equal any rowid.
func rowidOf(v record.Value) (heap.RowID, bool) {
	switch v.Kind() {
	case record.KindInteger:
		return heap.RowID(v.Int()), true
	case record.KindReal:
		f := v.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return heap.RowID(int64(f)), true
	default:
		return 0, false
	}
}

type subqueryIter struct {
	rt *runtime
	x  *planner.SubqueryScan
	in iterator
}

func (it *subqueryIter) Next() (record.Row, bool, error) {
	for {
		row, ok, err := it.in.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		out := make(record.Row, it.x.Width)
		copy(out[it.x.Source.Offset:], row)
		keep, err := it.rt.test(it.x.Filter, out)
		if err != nil {
			return nil, false, err
		}
		if keep {
			return out, true, nil
		}
	}
}

type valuesIter struct {
	rt  *runtime
	x   *planner.Values
	pos int
}

func (it *valuesIter) Next() (record.Row, bool, error) {
	if it.pos >= len(it.x.Rows) {
		return nil, false, nil
	}
	exprs := it.x.Rows[it.pos]
	it.pos++
	out := make(record.Row, max(it.x.Width, len(exprs)))
	for i, e := range exprs {
		v, err := it.rt.eval(e, nil)
		if err != nil {
			return nil, false, err
		}
		out[i] = v
	}
	return out, true, nil
}

type filterIter struct {
	rt   *runtime
	in   iterator
	cond binder.Expr
}

func (it *filterIter) Next() (record.Row, bool, error) {
	for {
		row, ok, err := it.in.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		keep, err := it.rt.test(it.cond, row)
		if err != nil {
			return nil, false, err
		}
		if keep {
			return row, true, nil
		}
	}
}

type projectIter struct {
	rt    *runtime
	in    iterator
	exprs []binder.Expr
}

func (it *projectIter) Next() (record.Row, bool, error) {
	row, ok, err := it.in.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	out := make(record.Row, len(it.exprs))
	for i, e := range it.exprs {
		if out[i], err = it.rt.eval(e, row); err != nil {
			return nil, false, err
		}
	}
	return out, true, nil
}

type distinctIter struct {
	in    iterator
	colls []record.Collation
	seen  map[string]struct{}
}

func (it *distinctIter) Next() (record.Row, bool, error) {
	for {
		row, ok, err := it.in.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		k := record.RowKey(row[:min(len(row), len(it.colls))], it.colls)
		if _, dup := it.seen[k]; dup {
			continue
		}
		it.seen[k] = struct{}{}
		return row, true, nil
	}
}

type limitIter struct {
	in     iterator
	limit  int64
	offset int64
	n      int64
}

func (rt *runtime) openLimit(x *planner.Limit) (iterator, error) {
	limit, err := rt.limitValue(x.Limit)
	if err != nil {
		return nil, err
	}
	var offset int64
	if x.Offset != nil {
		if offset, err = rt.limitValue(x.Offset); err != nil {
			return nil, err
		}
	}
	in, err := rt.open(x.Input)
	if err != nil {
		return nil, err
	}
	return &limitIter{in: in, limit: limit, offset: max(offset, 0)}, nil
}

// limitValue evaluates a LIMIT or OFFSET operand, which must be an integer.
func (rt *runtime) limitValue(e binder.Expr) (int64, error) {
	v, err := rt.eval(e, nil)
	if err != nil {
		return 0, err
	}
	v = record.AffinityNumeric.ApplyComparison(v)
	switch v.Kind() {
	case record.KindInteger:
		return v.Int(), nil
	case record.KindReal:
		if id, ok := rowidOf(v); ok {
			return int64(id), nil
		}
	}
	return 0, dberr.Runtime("datatype mismatch")
}

func (it *limitIter) Next() (record.Row, bool, error) {
	for it.offset > 0 {
		_, ok, err := it.in.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		it.offset--
	}
	if it.limit >= 0 && it.n >= it.limit {
		return nil, false, nil
	}
	row, ok, err := it.in.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	it.n++
	return row, true, nil
}

type trimIter struct {
	in iterator
	n  int
}

func (it *trimIter) Next() (record.Row, bool, error) {
	row, ok, err := it.in.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	return row[:it.n:it.n], true, nil
}

type sliceIter struct {
	rows []record.Row
	pos  int
}

func (it *sliceIter) Next() (record.Row, bool, error) {
	if it.pos >= len(it.rows) {
		return nil, false, nil
	}
	row := it.rows[it.pos]
	it.pos++
	return row, true, nil
}
