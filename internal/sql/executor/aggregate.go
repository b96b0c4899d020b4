package executor

import (
	"slices"

	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/function"
	"github.com/tuannm99/novalite/internal/sql/planner"
)

type group struct {
	key  record.Row
	rep  record.Row
	accs []function.Accumulator
	seen []map[string]struct{} // per DISTINCT aggregate
}

// aggregate folds the input of x into one row per group. Each output row is
// a representative input row followed by the aggregate results. Bare
// columns read the representative row: the row min() or max() last
// selected, or else the first row of the group.
func (rt *runtime) aggregate(x *planner.Aggregate) ([]record.Row, error) {
	in, err := rt.open(x.Input)
	if err != nil {
		return nil, err
	}
	groups := map[string]*group{}
	var order []*group
	for {
		row, ok, err := in.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		key, err := rt.evalList(x.GroupBy, row)
		if err != nil {
			return nil, err
		}
		k := record.RowKey(key, x.GroupColls)
		g, ok := groups[k]
		if !ok {
			g = newGroup(key, x.Aggs)
			groups[k] = g
			order = append(order, g)
		}
		selected, err := rt.step(g, x.Aggs, row)
		if err != nil {
			return nil, err
		}
		if g.rep == nil || selected {
			g.rep = row
		}
	}

	if len(order) == 0 && len(x.GroupBy) == 0 {
		g := newGroup(nil, x.Aggs)
		g.rep = make(record.Row, x.Width)
		order = append(order, g)
	}
	if len(x.GroupBy) > 0 {
		slices.SortStableFunc(order, func(a, b *group) int {
			return record.CompareRows(a.key, b.key, x.GroupColls)
		})
	}

	out := make([]record.Row, 0, len(order))
	for _, g := range order {
		row := make(record.Row, x.Width+len(x.Aggs))
		copy(row, g.rep)
		for i, acc := range g.accs {
			v, err := acc.Final()
			if err != nil {
				return nil, err
			}
			row[x.Width+i] = v
		}
		out = append(out, row)
	}
	return out, nil
}

func newGroup(key record.Row, aggs []*binder.AggCall) *group {
	g := &group{key: key, accs: make([]function.Accumulator, len(aggs)), seen: make([]map[string]struct{}, len(aggs))}
	for i, a := range aggs {
		g.accs[i] = a.Def.New(a.Coll)
		if a.Distinct {
			g.seen[i] = map[string]struct{}{}
		}
	}
	return g
}

// step feeds row to every accumulator of g and reports whether a selector
// picked it.
func (rt *runtime) step(g *group, aggs []*binder.AggCall, row record.Row) (bool, error) {
	selected := false
	for i, a := range aggs {
		args, err := rt.evalList(a.Args, row)
		if err != nil {
			return false, err
		}
		if g.seen[i] != nil && len(args) > 0 {
			if args[0].IsNull() {
				continue
			}
			k := string(record.AppendKey(nil, args[0], a.Coll))
			if _, dup := g.seen[i][k]; dup {
				continue
			}
			g.seen[i][k] = struct{}{}
		}
		if err := g.accs[i].Step(args); err != nil {
			return false, err
		}
		if sel, ok := g.accs[i].(function.Selector); ok && sel.Selected() {
			selected = true
		}
	}
	return selected, nil
}
