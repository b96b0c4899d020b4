package executor

import (
	"context"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/planner"
)

// runtime is the state of one statement execution.
type runtime struct {
	ctx context.Context
	ex  *Executor

	// outer holds the rows of the enclosing queries while a correlated
	// subquery runs; the innermost row is last.
	outer []record.Row

	subs  map[*binder.Subquery][]record.Row
	sets  map[*binder.Subquery]*inSet
	plans map[*binder.Query]planner.Node
	ticks int
}

func newRuntime(ctx context.Context, e *Executor) *runtime {
	return &runtime{
		ctx:   ctx,
		ex:    e,
		subs:  map[*binder.Subquery][]record.Row{},
		sets:  map[*binder.Subquery]*inSet{},
		plans: map[*binder.Query]planner.Node{},
	}
}

// iterator produces the rows of a plan node one at a time.
type iterator interface {
	Next() (record.Row, bool, error)
}

// check reports cancellation of the statement context.
func (rt *runtime) check() error {
	if err := rt.ctx.Err(); err != nil {
		return dberr.Interrupted(err)
	}
	return nil
}

// tick is check for inner loops that do not produce rows: the context is
// consulted every 1024 calls.
func (rt *runtime) tick() error {
	rt.ticks++
	if rt.ticks&1023 != 0 {
		return nil
	}
	return rt.check()
}

// collect runs n and returns at most limit rows; a negative limit returns
// all of them.
func (rt *runtime) collect(n planner.Node, limit int) ([]record.Row, error) {
	it, err := rt.open(n)
	if err != nil {
		return nil, err
	}
	var rows []record.Row
	for limit < 0 || len(rows) < limit {
		row, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// subquery returns up to limit rows of sub evaluated for the current row.
// Uncorrelated subqueries run once per statement.
func (rt *runtime) subquery(sub *binder.Subquery, row record.Row, limit int) ([]record.Row, error) {
	if !sub.Correlated {
		if rows, ok := rt.subs[sub]; ok {
			return rows, nil
		}
	}
	node, err := rt.planOf(sub.Query)
	if err != nil {
		return nil, err
	}
	if sub.Correlated {
		rt.outer = append(rt.outer, row)
		defer func() { rt.outer = rt.outer[:len(rt.outer)-1] }()
	}
	rows, err := rt.collect(node, limit)
	if err != nil {
		return nil, err
	}
	if !sub.Correlated {
		rt.subs[sub] = rows
	}
	return rows, nil
}

func (rt *runtime) planOf(q *binder.Query) (planner.Node, error) {
	if n, ok := rt.plans[q]; ok {
		return n, nil
	}
	n, err := rt.ex.builder.PlanQuery(q)
	if err != nil {
		return nil, err
	}
	rt.plans[q] = n
	return n, nil
}

// inSet is the hashed result of an uncorrelated IN subquery.
type inSet struct {
	keys    map[string]struct{}
	hasNull bool
}

func (rt *runtime) inSetOf(x *binder.InSelect) (*inSet, error) {
	if s, ok := rt.sets[x.Sub]; ok {
		return s, nil
	}
	rows, err := rt.subquery(x.Sub, nil, -1)
	if err != nil {
		return nil, err
	}
	s := &inSet{keys: make(map[string]struct{}, len(rows))}
	for _, r := range rows {
		v := r[0]
		if v.IsNull() {
			s.hasNull = true
			continue
		}
		s.keys[string(compareKey(nil, v, x.Cmp))] = struct{}{}
	}
	rt.sets[x.Sub] = s
	return s, nil
}

// compareKey encodes v so that two values have equal keys exactly when
// they compare equal under cmp.
func compareKey(dst []byte, v record.Value, cmp binder.Comparison) []byte {
	if cmp.Apply {
		v = cmp.Affinity.ApplyComparison(v)
	}
	return record.AppendKey(dst, v, cmp.Coll)
}
