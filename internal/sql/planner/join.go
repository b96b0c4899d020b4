package planner

import (
	"log/slog"
	"math"
	"slices"

	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// relation is a planned piece of a FROM clause with the slots it fills and
// an estimate of the rows it produces.
type relation struct {
	node  Node
	spans []Span
	est   float64
}

// planFrom plans the FROM clause and WHERE of a select. WHERE conjuncts are
// pushed to the lowest operator that has every slot they read.
func (b *Builder) planFrom(sel *binder.Select) (Node, error) {
	conds := binder.SplitAnd(sel.Where)
	if sel.From == nil {
		return withFilter(&Values{Rows: [][]binder.Expr{nil}, Width: sel.Width}, conds), nil
	}
	rel, rest, err := b.planSource(sel.From, conds, sel.Width)
	if err != nil {
		return nil, err
	}
	return withFilter(rel.node, rest), nil
}

// planSource plans src, consuming the conjuncts of conds that src alone can
// evaluate. The others are returned.
func (b *Builder) planSource(src binder.Source, conds []binder.Expr, width int) (relation, []binder.Expr, error) {
	spans := spansOf(src)
	switch x := src.(type) {
	case *binder.TableSource:
		own, rest := partition(conds, spans)
		node, est := b.planTable(x, own, width)
		return relation{node: node, spans: spans, est: est}, rest, nil
	case *binder.SubquerySource:
		input, err := b.PlanQuery(x.Query)
		if err != nil {
			return relation{}, nil, err
		}
		own, rest := partition(conds, spans)
		node := &SubqueryScan{Source: x, Input: input, Width: width, Filter: binder.JoinAnd(own)}
		return relation{node: node, spans: spans, est: estimateQuery(input)}, rest, nil
	case *binder.JoinSource:
		if isInner(x.Kind) {
			var items []binder.Source
			var on []binder.Expr
			flattenInner(x, &items, &on)
			return b.planInner(items, slices.Concat(conds, on), width)
		}
		return b.planOuter(x, conds, width)
	default:
		return relation{}, nil, nil
	}
}

func isInner(k parser.JoinKind) bool { return k == parser.JoinInner || k == parser.JoinCross }

func flattenInner(src binder.Source, items *[]binder.Source, on *[]binder.Expr) {
	j, ok := src.(*binder.JoinSource)
	if !ok || !isInner(j.Kind) {
		*items = append(*items, src)
		return
	}
	flattenInner(j.Left, items, on)
	flattenInner(j.Right, items, on)
	*on = append(*on, binder.SplitAnd(j.On)...)
}

// planInner joins a list of inner-joined sources left-deep, in written order
// or, when that is strictly cheaper by estimate, greedily smallest first.
func (b *Builder) planInner(items []binder.Source, conds []binder.Expr, width int) (relation, []binder.Expr, error) {
	rels := make([]relation, len(items))
	for i, item := range items {
		rel, rest, err := b.planSource(item, conds, width)
		if err != nil {
			return relation{}, nil, err
		}
		rels[i] = rel
		conds = rest
	}
	order := b.joinOrder(rels, conds)

	cur := rels[order[0]]
	for _, i := range order[1:] {
		var here []binder.Expr
		here, conds = partition(conds, mergeSpans(cur.spans, rels[i].spans))
		cur = b.join(parser.JoinInner, cur, rels[i], here)
	}
	return cur, conds, nil
}

// planOuter plans an outer join. Conjuncts never move into the side that
// may be NULL-padded; ON conjuncts that read only that side are applied to
// it before the join instead.
func (b *Builder) planOuter(x *binder.JoinSource, conds []binder.Expr, width int) (relation, []binder.Expr, error) {
	on := binder.SplitAnd(x.On)
	var left, right relation
	var err error
	switch x.Kind {
	case parser.JoinLeft:
		if left, conds, err = b.planSource(x.Left, conds, width); err != nil {
			return relation{}, nil, err
		}
		if right, on, err = b.planSource(x.Right, on, width); err != nil {
			return relation{}, nil, err
		}
	case parser.JoinRight:
		if left, on, err = b.planSource(x.Left, on, width); err != nil {
			return relation{}, nil, err
		}
		if right, conds, err = b.planSource(x.Right, conds, width); err != nil {
			return relation{}, nil, err
		}
	default:
		if left, _, err = b.planSource(x.Left, nil, width); err != nil {
			return relation{}, nil, err
		}
		if right, _, err = b.planSource(x.Right, nil, width); err != nil {
			return relation{}, nil, err
		}
	}
	return b.join(x.Kind, left, right, on), conds, nil
}

// join builds a Join of l and r under conds, moving equalities between the
// two sides into hash keys when enabled.
func (b *Builder) join(kind parser.JoinKind, l, r relation, conds []binder.Expr) relation {
	j := &Join{Kind: kind, Left: l.node, Right: r.node, RightSpans: r.spans}
	var residual []binder.Expr
	for _, c := range conds {
		if b.opts.HashJoin {
			if lk, rk, cmp, ok := equiKey(c, l.spans, r.spans); ok {
				j.LeftKeys = append(j.LeftKeys, lk)
				j.RightKeys = append(j.RightKeys, rk)
				j.KeyCmps = append(j.KeyCmps, cmp)
				continue
			}
		}
		residual = append(residual, c)
	}
	j.Cond = binder.JoinAnd(residual)
	if len(j.LeftKeys) > 0 {
		slog.Debug("planner: hash join", "kind", kind.String(), "keys", len(j.LeftKeys))
	}

	est := l.est * r.est
	if connects(conds, l.spans, r.spans) {
		est = math.Max(l.est, r.est)
	}
	switch kind {
	case parser.JoinLeft:
		est = math.Max(est, l.est)
	case parser.JoinRight:
		est = math.Max(est, r.est)
	case parser.JoinFull:
		est = math.Max(est, l.est+r.est)
	}
	return relation{node: j, spans: mergeSpans(l.spans, r.spans), est: est}
}

// equiKey reports whether c is an equality whose operands each read only
// one side of the join.
func equiKey(c binder.Expr, left, right []Span) (lk, rk binder.Expr, cmp binder.Comparison, ok bool) {
	eq, isEq := c.(*binder.Binary)
	if !isEq || eq.Op != parser.OpEq {
		return nil, nil, cmp, false
	}
	lu, ru := binder.ColumnsUsed(eq.L), binder.ColumnsUsed(eq.R)
	if len(lu) == 0 || len(ru) == 0 {
		return nil, nil, cmp, false
	}
	switch {
	case covers(left, lu) && covers(right, ru):
		return eq.L, eq.R, eq.Cmp, true
	case covers(left, ru) && covers(right, lu):
		return eq.R, eq.L, eq.Cmp, true
	default:
		return nil, nil, cmp, false
	}
}

// connects reports whether some conjunct reads both sides.
func connects(conds []binder.Expr, l, r []Span) bool {
	for _, c := range conds {
		used := binder.ColumnsUsed(c)
		if touches(l, used) && touches(r, used) {
			return true
		}
	}
	return false
}

// joinOrder picks the order in which rels are joined.
func (b *Builder) joinOrder(rels []relation, conds []binder.Expr) []int {
	written := make([]int, len(rels))
	for i := range written {
		written[i] = i
	}
	if !b.opts.ReorderJoins || len(rels) < 2 {
		return written
	}

	greedy := make([]int, 0, len(rels))
	used := make([]bool, len(rels))
	var spans []Span
	for len(greedy) < len(rels) {
		best, bestLinked := -1, false
		for i, r := range rels {
			if used[i] {
				continue
			}
			linked := len(greedy) > 0 && connects(conds, spans, r.spans)
			switch {
			case best < 0,
				linked && !bestLinked,
				linked == bestLinked && r.est < rels[best].est:
				best, bestLinked = i, linked
			}
		}
		used[best] = true
		greedy = append(greedy, best)
		spans = mergeSpans(spans, rels[best].spans)
	}

	if orderCost(rels, conds, greedy) < orderCost(rels, conds, written) {
		slog.Debug("planner: join reordered", "order", greedy)
		return greedy
	}
	return written
}

// orderCost sums the estimated sizes of the intermediate results of a
// left-deep join in the given order.
func orderCost(rels []relation, conds []binder.Expr, order []int) float64 {
	cur := rels[order[0]]
	cost := cur.est
	for _, i := range order[1:] {
		r := rels[i]
		est := cur.est * r.est
		if connects(conds, cur.spans, r.spans) {
			est = math.Max(cur.est, r.est)
		}
		cur = relation{spans: mergeSpans(cur.spans, r.spans), est: est}
		cost += est
	}
	return cost
}

// estimateQuery guesses the size of a derived table.
func estimateQuery(n Node) float64 {
	switch x := n.(type) {
	case *Values:
		return float64(max(len(x.Rows), 1))
	case *Aggregate:
		if len(x.GroupBy) == 0 {
			return 1
		}
		return math.Max(estimateQuery(x.Input)/2, 1)
	case *Scan:
		return float64(max(x.Source.Table.Cardinality(), 1))
	case *IndexScan:
		return 1
	case *Join:
		return estimateQuery(x.Left) * estimateQuery(x.Right)
	case *SetOp:
		return estimateQuery(x.Left) + estimateQuery(x.Right)
	case *SubqueryScan:
		return estimateQuery(x.Input)
	default:
		if ch := Children(n); len(ch) == 1 {
			return estimateQuery(ch[0])
		}
		return 1
	}
}

// ----- slot sets -----

func spansOf(src binder.Source) []Span {
	switch x := src.(type) {
	case *binder.JoinSource:
		return mergeSpans(spansOf(x.Left), spansOf(x.Right))
	default:
		off := binder.Offset(src)
		return []Span{{Lo: off, Hi: off + binder.Width(src)}}
	}
}

func mergeSpans(a, b []Span) []Span {
	out := make([]Span, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.SortFunc(out, func(x, y Span) int { return x.Lo - y.Lo })
	return out
}

func inSpans(spans []Span, slot int) bool {
	for _, s := range spans {
		if slot >= s.Lo && slot < s.Hi {
			return true
		}
	}
	return false
}

// covers reports whether every slot in used lies in spans.
func covers(spans []Span, used []int) bool {
	for _, u := range used {
		if !inSpans(spans, u) {
			return false
		}
	}
	return true
}

func touches(spans []Span, used []int) bool {
	for _, u := range used {
		if inSpans(spans, u) {
			return true
		}
	}
	return false
}

// partition splits conds into those evaluable within spans and the rest.
func partition(conds []binder.Expr, spans []Span) (own, rest []binder.Expr) {
	for _, c := range conds {
		if covers(spans, binder.ColumnsUsed(c)) {
			own = append(own, c)
		} else {
			rest = append(rest, c)
		}
	}
	return own, rest
}
