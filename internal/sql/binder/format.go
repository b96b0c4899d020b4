package binder

import (
	"fmt"
	"strings"

	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// Format renders a bound expression for plan output.
func Format(e Expr) string {
	var sb strings.Builder
	format(&sb, e)
	return sb.String()
}

func format(sb *strings.Builder, e Expr) {
	switch x := e.(type) {
	case nil:
		sb.WriteString("<nil>")
	case *Const:
		sb.WriteString(record.Quote(x.Value))
	case *Column:
		sb.WriteString(x.Name)
	case *Outer:
		fmt.Fprintf(sb, "outer(%s)", x.Name)
	case *Unary:
		switch x.Op {
		case parser.OpNeg:
			sb.WriteString("-")
		case parser.OpPlus:
			sb.WriteString("+")
		case parser.OpNot:
			sb.WriteString("NOT ")
		case parser.OpBitNot:
			sb.WriteString("~")
		}
		format(sb, x.X)
	case *Binary:
		sb.WriteString("(")
		format(sb, x.L)
		fmt.Fprintf(sb, " %s ", x.Op)
		format(sb, x.R)
		sb.WriteString(")")
	case *Like:
		format(sb, x.X)
		if x.Not {
			sb.WriteString(" NOT")
		}
		if x.Glob {
			sb.WriteString(" GLOB ")
		} else {
			sb.WriteString(" LIKE ")
		}
		format(sb, x.Pattern)
	case *InList:
		format(sb, x.X)
		if x.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN (")
		for i, it := range x.List {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, it)
		}
		sb.WriteString(")")
	case *InSelect:
		format(sb, x.X)
		if x.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN (subquery)")
	case *Exists:
		sb.WriteString("EXISTS (subquery)")
	case *ScalarSub:
		sb.WriteString("(subquery)")
	case *IsNull:
		format(sb, x.X)
		if x.Not {
			sb.WriteString(" NOTNULL")
		} else {
			sb.WriteString(" ISNULL")
		}
	case *Case:
		sb.WriteString("CASE")
		if x.Operand != nil {
			sb.WriteString(" ")
			format(sb, x.Operand)
		}
		for _, w := range x.Whens {
			sb.WriteString(" WHEN ")
			format(sb, w.Cond)
			sb.WriteString(" THEN ")
			format(sb, w.Result)
		}
		if x.Else != nil {
			sb.WriteString(" ELSE ")
			format(sb, x.Else)
		}
		sb.WriteString(" END")
	case *Cast:
		sb.WriteString("CAST(")
		format(sb, x.X)
		fmt.Fprintf(sb, " AS %s)", x.TypeName)
	case *Collate:
		format(sb, x.X)
		fmt.Fprintf(sb, " COLLATE %s", x.Coll.Name())
	case *Func:
		sb.WriteString(x.Def.Name)
		sb.WriteString("(")
		for i, a := range x.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, a)
		}
		sb.WriteString(")")
	default:
		fmt.Fprintf(sb, "%T", e)
	}
}

// FormatAgg renders an aggregate call.
func FormatAgg(a *AggCall) string {
	var sb strings.Builder
	sb.WriteString(a.Name)
	sb.WriteString("(")
	if a.Distinct {
		sb.WriteString("DISTINCT ")
	}
	if len(a.Args) == 0 {
		sb.WriteString("*")
	}
	for i, arg := range a.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		format(&sb, arg)
	}
	sb.WriteString(")")
	return sb.String()
}
