package parser

import (
	"strings"

	"github.com/tuannm99/novalite/internal/record"
)

// FormatExpr renders e back to SQL text. The output is used in plan
// descriptions and error messages, not re-parsed.
func FormatExpr(e Expr) string {
	var sb strings.Builder
	formatExpr(&sb, e)
	return sb.String()
}

func formatExpr(sb *strings.Builder, e Expr) {
	switch x := e.(type) {
	case nil:
		sb.WriteString("NULL")
	case *Literal:
		sb.WriteString(record.Quote(x.Value))
	case *ColumnRef:
		if x.Table != "" {
			sb.WriteString(x.Table)
			sb.WriteByte('.')
		}
		sb.WriteString(x.Column)
	case *UnaryExpr:
		switch x.Op {
		case OpNeg:
			sb.WriteByte('-')
		case OpPlus:
			sb.WriteByte('+')
		case OpBitNot:
			sb.WriteByte('~')
		case OpNot:
			sb.WriteString("NOT ")
		}
		formatExpr(sb, x.X)
	case *BinaryExpr:
		sb.WriteByte('(')
		formatExpr(sb, x.L)
		sb.WriteString(" " + x.Op.String() + " ")
		formatExpr(sb, x.R)
		sb.WriteByte(')')
	case *LikeExpr:
		formatExpr(sb, x.X)
		if x.Not {
			sb.WriteString(" NOT")
		}
		if x.Op == OpGlob {
			sb.WriteString(" GLOB ")
		} else {
			sb.WriteString(" LIKE ")
		}
		formatExpr(sb, x.Pattern)
		if x.Escape != nil {
			sb.WriteString(" ESCAPE ")
			formatExpr(sb, x.Escape)
		}
	case *BetweenExpr:
		formatExpr(sb, x.X)
		if x.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" BETWEEN ")
		formatExpr(sb, x.Lo)
		sb.WriteString(" AND ")
		formatExpr(sb, x.Hi)
	case *InListExpr:
		formatExpr(sb, x.X)
		if x.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN (")
		for i, item := range x.List {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatExpr(sb, item)
		}
		sb.WriteByte(')')
	case *InSelectExpr:
		formatExpr(sb, x.X)
		if x.Not {
			sb.WriteString(" NOT")
		}
		sb.WriteString(" IN (SELECT ...)")
	case *ExistsExpr:
		sb.WriteString("EXISTS (SELECT ...)")
	case *SubqueryExpr:
		sb.WriteString("(SELECT ...)")
	case *IsNullExpr:
		formatExpr(sb, x.X)
		if x.Not {
			sb.WriteString(" NOTNULL")
		} else {
			sb.WriteString(" ISNULL")
		}
	case *CaseExpr:
		sb.WriteString("CASE")
		if x.Operand != nil {
			sb.WriteByte(' ')
			formatExpr(sb, x.Operand)
		}
		for _, w := range x.Whens {
			sb.WriteString(" WHEN ")
			formatExpr(sb, w.Cond)
			sb.WriteString(" THEN ")
			formatExpr(sb, w.Result)
		}
		if x.Else != nil {
			sb.WriteString(" ELSE ")
			formatExpr(sb, x.Else)
		}
		sb.WriteString(" END")
	case *CastExpr:
		sb.WriteString("CAST(")
		formatExpr(sb, x.X)
		sb.WriteString(" AS " + x.Type + ")")
	case *CollateExpr:
		formatExpr(sb, x.X)
		sb.WriteString(" COLLATE " + x.Collation)
	case *FuncCall:
		sb.WriteString(x.Name)
		sb.WriteByte('(')
		if x.Star {
			sb.WriteByte('*')
		}
		if x.Distinct {
			sb.WriteString("DISTINCT ")
		}
		for i, a := range x.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatExpr(sb, a)
		}
		sb.WriteByte(')')
	default:
		sb.WriteString("?")
	}
}
