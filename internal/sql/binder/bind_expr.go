package binder

import (
	"strings"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/function"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

func (b *Binder) bindExpr(e parser.Expr, sc *scope) (Expr, error) {
	if st := sc.sel; st != nil && st.groupTexts != nil && st.grouped == 0 && st.inAgg == 0 {
		if st.groupTexts[exprKey(e)] {
			st.grouped++
			defer func() { st.grouped-- }()
		}
	}

	switch x := e.(type) {
	case *parser.Literal:
		return &Const{Value: x.Value}, nil
	case *parser.ColumnRef:
		return b.bindColumnRef(x, sc)
	case *parser.UnaryExpr:
		return b.bindUnary(x, sc)
	case *parser.BinaryExpr:
		return b.bindBinary(x, sc)
	case *parser.LikeExpr:
		return b.bindLike(x, sc)
	case *parser.BetweenExpr:
		var rewritten parser.Expr = &parser.BinaryExpr{
			Op: parser.OpAnd,
			L:  &parser.BinaryExpr{Op: parser.OpGe, L: x.X, R: x.Lo},
			R:  &parser.BinaryExpr{Op: parser.OpLe, L: x.X, R: x.Hi},
		}
		if x.Not {
			rewritten = &parser.UnaryExpr{Op: parser.OpNot, X: rewritten}
		}
		return b.bindExpr(rewritten, sc)
	case *parser.InListExpr:
		return b.bindInList(x, sc)
	case *parser.InSelectExpr:
		lhs, err := b.bindExpr(x.X, sc)
		if err != nil {
			return nil, err
		}
		sub, err := b.bindSubquery(x.Select, sc, true)
		if err != nil {
			return nil, err
		}
		cmp := comparison(lhs.Info(), sub.Query.Columns[0].Info)
		return &InSelect{Not: x.Not, X: lhs, Sub: sub, Cmp: cmp}, nil
	case *parser.ExistsExpr:
		sub, err := b.bindSubquery(x.Select, sc, false)
		if err != nil {
			return nil, err
		}
		return &Exists{Sub: sub}, nil
	case *parser.SubqueryExpr:
		sub, err := b.bindSubquery(x.Select, sc, true)
		if err != nil {
			return nil, err
		}
		return &ScalarSub{Sub: sub}, nil
	case *parser.IsNullExpr:
		inner, err := b.bindExpr(x.X, sc)
		if err != nil {
			return nil, err
		}
		return &IsNull{Not: x.Not, X: inner}, nil
	case *parser.CaseExpr:
		return b.bindCase(x, sc)
	case *parser.CastExpr:
		inner, err := b.bindExpr(x.X, sc)
		if err != nil {
			return nil, err
		}
		return &Cast{X: inner, TypeName: x.Type, Affinity: record.AffinityOf(x.Type)}, nil
	case *parser.CollateExpr:
		inner, err := b.bindExpr(x.X, sc)
		if err != nil {
			return nil, err
		}
		coll, ok := record.LookupCollation(x.Collation)
		if !ok {
			return nil, dberr.Bind("no such collation sequence: %s", x.Collation)
		}
		return &Collate{X: inner, Coll: coll}, nil
	case *parser.FuncCall:
		return b.bindFunc(x, sc)
	default:
		return nil, dberr.Bind("unsupported expression %T", e)
	}
}

func (b *Binder) bindColumnRef(ref *parser.ColumnRef, sc *scope) (Expr, error) {
	depth := 0
	for s := sc; s != nil; s, depth = s.parent, depth+1 {
		e, found, err := s.find(ref)
		if err != nil {
			return nil, err
		}
		if found {
			if depth == 0 {
				b.noteBare(sc, e, ref)
				return e, nil
			}
			markEscape(sc, depth, ColumnsUsed(e))
			return lift(e, depth), nil
		}
		if depth == 0 && ref.Table == "" && s.sel != nil && s.sel.aliasesOn {
			key := strings.ToLower(ref.Column)
			if pe, ok := s.sel.aliases[key]; ok && !s.sel.expanding[key] {
				s.sel.expanding[key] = true
				e, err := b.bindExpr(pe, s)
				delete(s.sel.expanding, key)
				return e, err
			}
		}
	}
	return nil, dberr.Bind("no such column: %s", displayName(ref))
}

// noteBare records column references made outside aggregates for the
// grouping check.
func (b *Binder) noteBare(sc *scope, e Expr, ref *parser.ColumnRef) {
	st := sc.sel
	if st == nil || !st.aggAllowed || st.inAgg > 0 {
		return
	}
	for _, idx := range ColumnsUsed(e) {
		st.bare = append(st.bare, bareRef{index: idx, name: displayName(ref), grouped: st.grouped > 0})
	}
}

func (b *Binder) bindUnary(x *parser.UnaryExpr, sc *scope) (Expr, error) {
	inner, err := b.bindExpr(x.X, sc)
	if err != nil {
		return nil, err
	}
	if x.Op == parser.OpNeg {
		if c, ok := inner.(*Const); ok && c.Value.IsNumeric() {
			return &Const{Value: record.Negate(c.Value)}, nil
		}
	}
	u := &Unary{Op: x.Op, X: inner}
	if x.Op == parser.OpPlus {
		in := inner.Info()
		u.Type = Info{Collation: in.Collation, Explicit: in.Explicit}
	}
	return u, nil
}

func (b *Binder) bindBinary(x *parser.BinaryExpr, sc *scope) (Expr, error) {
	l, err := b.bindExpr(x.L, sc)
	if err != nil {
		return nil, err
	}
	r, err := b.bindExpr(x.R, sc)
	if err != nil {
		return nil, err
	}
	out := &Binary{Op: x.Op, L: l, R: r}
	if x.Op.IsComparison() {
		out.Cmp = comparison(l.Info(), r.Info())
		if out.Cmp.Apply {
			out.L = preconvert(out.L, out.Cmp.Affinity)
			out.R = preconvert(out.R, out.Cmp.Affinity)
		}
	}
	return out, nil
}

// preconvert applies a comparison affinity to a literal operand once at bind
// time, so index probes see the converted value.
func preconvert(e Expr, aff record.Affinity) Expr {
	if c, ok := e.(*Const); ok {
		return &Const{Value: aff.ApplyComparison(c.Value)}
	}
	return e
}

func (b *Binder) bindLike(x *parser.LikeExpr, sc *scope) (Expr, error) {
	out := &Like{Glob: x.Op == parser.OpGlob, Not: x.Not}
	var err error
	if out.X, err = b.bindExpr(x.X, sc); err != nil {
		return nil, err
	}
	if out.Pattern, err = b.bindExpr(x.Pattern, sc); err != nil {
		return nil, err
	}
	if x.Escape != nil {
		if out.Escape, err = b.bindExpr(x.Escape, sc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *Binder) bindInList(x *parser.InListExpr, sc *scope) (Expr, error) {
	lhs, err := b.bindExpr(x.X, sc)
	if err != nil {
		return nil, err
	}
	out := &InList{Not: x.Not, X: lhs}
	// Values in the list compare as if they had no affinity.
	li := lhs.Info()
	out.Cmp = comparison(li, Info{})
	out.Cmp.Coll = li.Collation
	for _, it := range x.List {
		e, err := b.bindExpr(it, sc)
		if err != nil {
			return nil, err
		}
		if out.Cmp.Apply {
			e = preconvert(e, out.Cmp.Affinity)
		}
		out.List = append(out.List, e)
	}
	return out, nil
}

func (b *Binder) bindSubquery(stmt *parser.SelectStmt, sc *scope, single bool) (*Subquery, error) {
	sub := &Subquery{}
	q, err := b.bindQuery(stmt, sc, []*Subquery{sub})
	if err != nil {
		return nil, err
	}
	if single && q.NumColumns() != 1 {
		return nil, dberr.Bind("sub-select returns %d columns - expected 1", q.NumColumns())
	}
	sub.Query = q
	return sub, nil
}

func (b *Binder) bindCase(x *parser.CaseExpr, sc *scope) (Expr, error) {
	out := &Case{}
	var err error
	if x.Operand != nil {
		if out.Operand, err = b.bindExpr(x.Operand, sc); err != nil {
			return nil, err
		}
	}
	for _, w := range x.Whens {
		cond, err := b.bindExpr(w.Cond, sc)
		if err != nil {
			return nil, err
		}
		res, err := b.bindExpr(w.Result, sc)
		if err != nil {
			return nil, err
		}
		bw := When{Cond: cond, Result: res}
		if out.Operand != nil {
			bw.Cmp = comparison(out.Operand.Info(), cond.Info())
		}
		out.Whens = append(out.Whens, bw)
	}
	if x.Else != nil {
		if out.Else, err = b.bindExpr(x.Else, sc); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (b *Binder) bindFunc(x *parser.FuncCall, sc *scope) (Expr, error) {
	nargs := len(x.Args)
	if x.Star {
		if x.Name != "count" {
			return nil, dberr.Bind("wrong number of arguments to function %s()", x.Name)
		}
		nargs = 0
	}
	if agg, ok := function.LookupAggregate(x.Name, nargs); ok {
		return b.bindAggregate(x, agg, sc)
	}
	if x.Distinct {
		return nil, dberr.Bind("DISTINCT aggregates must have exactly one argument")
	}
	def, err := function.LookupScalar(x.Name, nargs)
	if err != nil {
		return nil, err
	}
	out := &Func{Def: def}
	for _, a := range x.Args {
		e, err := b.bindExpr(a, sc)
		if err != nil {
			return nil, err
		}
		out.Args = append(out.Args, e)
	}
	for _, a := range out.Args {
		if in := a.Info(); in.Collation != nil {
			out.Coll = in.Collation
			break
		}
	}
	return out, nil
}

func (b *Binder) bindAggregate(x *parser.FuncCall, agg *function.Aggregate, sc *scope) (Expr, error) {
	st := sc.sel
	if st == nil || !st.aggAllowed {
		msg := "misuse of aggregate: %s()"
		if st != nil {
			msg = st.aggMisuse
		}
		if strings.Contains(msg, "%s") {
			return nil, dberr.Bind(msg, x.Name)
		}
		return nil, dberr.Bind("%s", msg)
	}
	if st.inAgg > 0 {
		return nil, dberr.Bind("misuse of aggregate function %s()", x.Name)
	}
	if x.Distinct && len(x.Args) != 1 {
		return nil, dberr.Bind("DISTINCT aggregates must have exactly one argument")
	}
	call := &AggCall{Def: agg, Name: x.Name, Distinct: x.Distinct}
	st.inAgg++
	for _, a := range x.Args {
		e, err := b.bindExpr(a, sc)
		if err != nil {
			st.inAgg--
			return nil, err
		}
		call.Args = append(call.Args, e)
	}
	st.inAgg--
	if len(call.Args) > 0 {
		call.Coll = call.Args[0].Info().Collation
	}
	st.aggs = append(st.aggs, call)
	return &Column{Index: st.width + len(st.aggs) - 1, Name: x.Name + "()"}, nil
}
