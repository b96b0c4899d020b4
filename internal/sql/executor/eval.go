package executor

import (
	"fmt"
	"unicode/utf8"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/function"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// test evaluates a condition; NULL counts as false. A nil condition holds.
func (rt *runtime) test(e binder.Expr, row record.Row) (bool, error) {
	if e == nil {
		return true, nil
	}
	v, err := rt.eval(e, row)
	if err != nil {
		return false, err
	}
	t, _ := v.Truth()
	return t, nil
}

// eval computes e over row.
func (rt *runtime) eval(e binder.Expr, row record.Row) (record.Value, error) {
	switch x := e.(type) {
	case *binder.Const:
		return x.Value, nil
	case *binder.Column:
		if x.Index >= len(row) {
			return record.Null, nil
		}
		return row[x.Index], nil
	case *binder.Outer:
		return rt.outer[len(rt.outer)-x.Depth][x.Index], nil
	case *binder.Unary:
		return rt.evalUnary(x, row)
	case *binder.Binary:
		return rt.evalBinary(x, row)
	case *binder.Like:
		return rt.evalLike(x, row)
	case *binder.InList:
		return rt.evalInList(x, row)
	case *binder.InSelect:
		return rt.evalInSelect(x, row)
	case *binder.Exists:
		rows, err := rt.subquery(x.Sub, row, 1)
		if err != nil {
			return record.Null, err
		}
		return record.Bool(len(rows) > 0), nil
	case *binder.ScalarSub:
		rows, err := rt.subquery(x.Sub, row, 1)
		if err != nil || len(rows) == 0 {
			return record.Null, err
		}
		return rows[0][0], nil
	case *binder.IsNull:
		v, err := rt.eval(x.X, row)
		if err != nil {
			return record.Null, err
		}
		return record.Bool(v.IsNull() != x.Not), nil
	case *binder.Case:
		return rt.evalCase(x, row)
	case *binder.Cast:
		v, err := rt.eval(x.X, row)
		if err != nil {
			return record.Null, err
		}
		return castValue(v, x.Affinity), nil
	case *binder.Collate:
		return rt.eval(x.X, row)
	case *binder.Func:
		if x.Def == function.Changes {
			return record.Int(rt.ex.changes), nil
		}
		args, err := rt.evalList(x.Args, row)
		if err != nil {
			return record.Null, err
		}
		return x.Def.Fn(args, x.Coll)
	default:
		return record.Null, fmt.Errorf("executor: cannot evaluate %T", e)
	}
}

func (rt *runtime) evalList(es []binder.Expr, row record.Row) ([]record.Value, error) {
	out := make([]record.Value, len(es))
	for i, e := range es {
		v, err := rt.eval(e, row)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (rt *runtime) evalUnary(x *binder.Unary, row record.Row) (record.Value, error) {
	v, err := rt.eval(x.X, row)
	if err != nil {
		return record.Null, err
	}
	switch x.Op {
	case parser.OpNeg:
		return record.Negate(v), nil
	case parser.OpNot:
		t, known := v.Truth()
		if !known {
			return record.Null, nil
		}
		return record.Bool(!t), nil
	case parser.OpBitNot:
		return record.BitNot(v), nil
	default:
		return v, nil
	}
}

func (rt *runtime) evalBinary(x *binder.Binary, row record.Row) (record.Value, error) {
	switch x.Op {
	case parser.OpAnd:
		return rt.evalLogic(x, row, false)
	case parser.OpOr:
		return rt.evalLogic(x, row, true)
	}
	l, err := rt.eval(x.L, row)
	if err != nil {
		return record.Null, err
	}
	r, err := rt.eval(x.R, row)
	if err != nil {
		return record.Null, err
	}
	if x.Op.IsComparison() {
		return compare(x.Op, l, r, x.Cmp), nil
	}
	switch x.Op {
	case parser.OpAdd:
		return record.Add(l, r), nil
	case parser.OpSub:
		return record.Sub(l, r), nil
	case parser.OpMul:
		return record.Mul(l, r), nil
	case parser.OpDiv:
		return record.Div(l, r), nil
	case parser.OpRem:
		return record.Rem(l, r), nil
	case parser.OpConcat:
		return record.Concat(l, r), nil
	case parser.OpBitAnd:
		return record.BitAnd(l, r), nil
	case parser.OpBitOr:
		return record.BitOr(l, r), nil
	case parser.OpShl:
		return record.ShiftLeft(l, r), nil
	case parser.OpShr:
		return record.ShiftRight(l, r), nil
	default:
		return record.Null, fmt.Errorf("executor: unknown operator %s", x.Op)
	}
}

// evalLogic is three-valued AND (or=false) and OR (or=true). The right
// operand is skipped once the left one decides the result.
func (rt *runtime) evalLogic(x *binder.Binary, row record.Row, or bool) (record.Value, error) {
	l, err := rt.eval(x.L, row)
	if err != nil {
		return record.Null, err
	}
	lt, lk := l.Truth()
	if lk && lt == or {
		return record.Bool(or), nil
	}
	r, err := rt.eval(x.R, row)
	if err != nil {
		return record.Null, err
	}
	rt2, rk := r.Truth()
	if rk && rt2 == or {
		return record.Bool(or), nil
	}
	if lk && rk {
		return record.Bool(!or), nil
	}
	return record.Null, nil
}

// compare applies a comparison operator after converting both operands
// under cmp. Only IS and IS NOT yield a non-NULL result for NULL operands.
func compare(op parser.BinaryOp, l, r record.Value, cmp binder.Comparison) record.Value {
	if cmp.Apply {
		l = cmp.Affinity.ApplyComparison(l)
		r = cmp.Affinity.ApplyComparison(r)
	}
	switch op {
	case parser.OpIs, parser.OpIsNot:
		var same bool
		if l.IsNull() || r.IsNull() {
			same = l.IsNull() && r.IsNull()
		} else {
			same = record.Compare(l, r, cmp.Coll) == 0
		}
		return record.Bool(same == (op == parser.OpIs))
	}
	if l.IsNull() || r.IsNull() {
		return record.Null
	}
	c := record.Compare(l, r, cmp.Coll)
	switch op {
	case parser.OpEq:
		return record.Bool(c == 0)
	case parser.OpNe:
		return record.Bool(c != 0)
	case parser.OpLt:
		return record.Bool(c < 0)
	case parser.OpLe:
		return record.Bool(c <= 0)
	case parser.OpGt:
		return record.Bool(c > 0)
	default:
		return record.Bool(c >= 0)
	}
}

func equal(l, r record.Value, cmp binder.Comparison) bool {
	t, _ := compare(parser.OpEq, l, r, cmp).Truth()
	return t
}

func (rt *runtime) evalLike(x *binder.Like, row record.Row) (record.Value, error) {
	s, err := rt.eval(x.X, row)
	if err != nil {
		return record.Null, err
	}
	pat, err := rt.eval(x.Pattern, row)
	if err != nil {
		return record.Null, err
	}
	var esc rune
	if x.Escape != nil {
		ev, err := rt.eval(x.Escape, row)
		if err != nil {
			return record.Null, err
		}
		if ev.IsNull() {
			return record.Null, nil
		}
		text := ev.AsText()
		if utf8.RuneCountInString(text) != 1 {
			return record.Null, dberr.Runtime("ESCAPE expression must be a single character")
		}
		esc, _ = utf8.DecodeRuneInString(text)
	}
	if s.IsNull() || pat.IsNull() {
		return record.Null, nil
	}
	var m bool
	if x.Glob {
		m = function.Glob(pat.AsText(), s.AsText())
	} else {
		m = function.Like(pat.AsText(), s.AsText(), esc)
	}
	return record.Bool(m != x.Not), nil
}

// evalInList: a match yields true, otherwise a NULL anywhere yields NULL.
// The empty list never matches, even for a NULL operand.
func (rt *runtime) evalInList(x *binder.InList, row record.Row) (record.Value, error) {
	if len(x.List) == 0 {
		return record.Bool(x.Not), nil
	}
	v, err := rt.eval(x.X, row)
	if err != nil || v.IsNull() {
		return record.Null, err
	}
	sawNull := false
	for _, item := range x.List {
		iv, err := rt.eval(item, row)
		if err != nil {
			return record.Null, err
		}
		if iv.IsNull() {
			sawNull = true
			continue
		}
		if equal(v, iv, x.Cmp) {
			return record.Bool(!x.Not), nil
		}
	}
	if sawNull {
		return record.Null, nil
	}
	return record.Bool(x.Not), nil
}

func (rt *runtime) evalInSelect(x *binder.InSelect, row record.Row) (record.Value, error) {
	v, err := rt.eval(x.X, row)
	if err != nil {
		return record.Null, err
	}
	if !x.Sub.Correlated {
		set, err := rt.inSetOf(x)
		if err != nil {
			return record.Null, err
		}
		if len(set.keys) == 0 && !set.hasNull {
			return record.Bool(x.Not), nil
		}
		if v.IsNull() {
			return record.Null, nil
		}
		if _, ok := set.keys[string(compareKey(nil, v, x.Cmp))]; ok {
			return record.Bool(!x.Not), nil
		}
		if set.hasNull {
			return record.Null, nil
		}
		return record.Bool(x.Not), nil
	}

	rows, err := rt.subquery(x.Sub, row, -1)
	if err != nil {
		return record.Null, err
	}
	if len(rows) == 0 {
		return record.Bool(x.Not), nil
	}
	if v.IsNull() {
		return record.Null, nil
	}
	sawNull := false
	for _, r := range rows {
		if r[0].IsNull() {
			sawNull = true
			continue
		}
		if equal(v, r[0], x.Cmp) {
			return record.Bool(!x.Not), nil
		}
	}
	if sawNull {
		return record.Null, nil
	}
	return record.Bool(x.Not), nil
}

func (rt *runtime) evalCase(x *binder.Case, row record.Row) (record.Value, error) {
	var operand record.Value
	if x.Operand != nil {
		v, err := rt.eval(x.Operand, row)
		if err != nil {
			return record.Null, err
		}
		operand = v
	}
	for _, w := range x.Whens {
		cond, err := rt.eval(w.Cond, row)
		if err != nil {
			return record.Null, err
		}
		var hit bool
		if x.Operand != nil {
			hit = equal(operand, cond, w.Cmp)
		} else {
			hit, _ = cond.Truth()
		}
		if hit {
			return rt.eval(w.Result, row)
		}
	}
	if x.Else == nil {
		return record.Null, nil
	}
	return rt.eval(x.Else, row)
}

// castValue converts v the way CAST(v AS type) does for a type of
// affinity aff.
func castValue(v record.Value, aff record.Affinity) record.Value {
	if v.IsNull() {
		return v
	}
	switch aff {
	case record.AffinityInteger:
		return record.Int(v.AsInt())
	case record.AffinityReal:
		return record.Real(v.AsFloat())
	case record.AffinityNumeric:
		if v.IsNumeric() {
			return v
		}
		n := record.NumericPrefix(v.Str())
		if n.Kind() == record.KindReal {
			if i, ok := rowidOf(n); ok {
				return record.Int(int64(i))
			}
		}
		return n
	case record.AffinityText:
		return record.Text(v.AsText())
	default:
		if v.Kind() == record.KindBlob {
			return v
		}
		return record.BlobString(v.AsText())
	}
}
