package executor

import (
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
	"github.com/tuannm99/novalite/internal/sql/planner"
)

// joinIter streams the left input against the materialized right input.
// With join keys the right rows are hashed; otherwise every pair is tried.
type joinIter struct {
	rt *runtime
	j  *planner.Join

	left    iterator
	right   []record.Row
	all     []int
	table   map[string][]int
	matched []bool // right rows that found a partner, for RIGHT and FULL

	cur        record.Row
	curMatched bool
	cands      []int
	pos        int

	leftDone bool
	tail     int
}

func (rt *runtime) openJoin(x *planner.Join) (iterator, error) {
	right, err := rt.collect(x.Right, -1)
	if err != nil {
		return nil, err
	}
	it := &joinIter{rt: rt, j: x, right: right}
	if len(x.LeftKeys) > 0 {
		it.table = make(map[string][]int, len(right))
		for i, row := range right {
			k, ok, err := rt.joinKey(x.RightKeys, x.KeyCmps, row)
			if err != nil {
				return nil, err
			}
			if ok {
				it.table[k] = append(it.table[k], i)
			}
		}
	} else {
		it.all = make([]int, len(right))
		for i := range right {
			it.all[i] = i
		}
	}
	if keepsRight(x.Kind) {
		it.matched = make([]bool, len(right))
	}
	if it.left, err = rt.open(x.Left); err != nil {
		return nil, err
	}
	return it, nil
}

func keepsLeft(k parser.JoinKind) bool  { return k == parser.JoinLeft || k == parser.JoinFull }
func keepsRight(k parser.JoinKind) bool { return k == parser.JoinRight || k == parser.JoinFull }

// joinKey hashes the key expressions of one side. ok is false when a key
// is NULL, which never joins.
func (rt *runtime) joinKey(keys []binder.Expr, cmps []binder.Comparison, row record.Row) (string, bool, error) {
	var buf []byte
	for i, e := range keys {
		v, err := rt.eval(e, row)
		if err != nil {
			return "", false, err
		}
		if cmps[i].Apply {
			v = cmps[i].Affinity.ApplyComparison(v)
		}
		if v.IsNull() {
			return "", false, nil
		}
		buf = record.AppendKey(buf, v, cmps[i].Coll)
	}
	return string(buf), true, nil
}

func (it *joinIter) Next() (record.Row, bool, error) {
	for {
		if it.leftDone {
			for it.tail < len(it.right) {
				i := it.tail
				it.tail++
				if !it.matched[i] {
					return it.right[i], true, nil
				}
			}
			return nil, false, nil
		}
		if it.cur == nil {
			row, ok, err := it.left.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				if it.matched == nil {
					return nil, false, nil
				}
				it.leftDone = true
				continue
			}
			if err := it.start(row); err != nil {
				return nil, false, err
			}
		}
		for it.pos < len(it.cands) {
			if err := it.rt.tick(); err != nil {
				return nil, false, err
			}
			i := it.cands[it.pos]
			it.pos++
			out := combine(it.cur, it.right[i], it.j.RightSpans)
			ok, err := it.rt.test(it.j.Cond, out)
			if err != nil {
				return nil, false, err
			}
			if ok {
				it.curMatched = true
				if it.matched != nil {
					it.matched[i] = true
				}
				return out, true, nil
			}
		}
		cur := it.cur
		it.cur = nil
		if !it.curMatched && keepsLeft(it.j.Kind) {
			return cur, true, nil
		}
	}
}

func (it *joinIter) start(row record.Row) error {
	it.cur, it.curMatched, it.pos = row, false, 0
	if it.table == nil {
		it.cands = it.all
		return nil
	}
	k, ok, err := it.rt.joinKey(it.j.LeftKeys, it.j.KeyCmps, row)
	if err != nil {
		return err
	}
	it.cands = nil
	if ok {
		it.cands = it.table[k]
	}
	return nil
}

// combine overlays the right row's slots onto a copy of the left row.
func combine(left, right record.Row, spans []planner.Span) record.Row {
	out := make(record.Row, len(left))
	copy(out, left)
	for _, s := range spans {
		copy(out[s.Lo:s.Hi], right[s.Lo:s.Hi])
	}
	return out
}
