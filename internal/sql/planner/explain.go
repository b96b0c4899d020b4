package planner

import (
	"fmt"
	"strings"

	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// Explain renders a plan as indented lines, one operator per line.
func Explain(p Plan) []string {
	var out []string
	emit := func(depth int, format string, args ...any) {
		out = append(out, strings.Repeat("  ", depth)+fmt.Sprintf(format, args...))
	}
	switch x := p.(type) {
	case *QueryPlan:
		explainNode(x.Root, 0, emit)
	case *InsertPlan:
		emit(0, "INSERT INTO %s%s", x.Table.Name, conflictSuffix(x.Conflict))
		switch {
		case x.Query != nil:
			explainNode(x.Query.Root, 1, emit)
		case x.DefaultValues:
			emit(1, "DEFAULT VALUES")
		default:
			emit(1, "VALUES %d rows", len(x.Rows))
		}
	case *UpdatePlan:
		sets := make([]string, len(x.Set))
		for i, a := range x.Set {
			sets[i] = fmt.Sprintf("%s = %s", x.Table.Schema.Cols[a.Column].Name, binder.Format(a.Value))
		}
		emit(0, "UPDATE %s%s SET %s", x.Table.Name, conflictSuffix(x.Conflict), strings.Join(sets, ", "))
		explainNode(x.Input, 1, emit)
	case *DeletePlan:
		emit(0, "DELETE FROM %s", x.Table.Name)
		explainNode(x.Input, 1, emit)
	case *CreateTablePlan:
		emit(0, "CREATE TABLE %s", x.Stmt.Name)
		if x.Query != nil {
			explainNode(x.Query.Root, 1, emit)
		}
	case *DropTablePlan:
		emit(0, "DROP TABLE %s", x.TableName)
	case *CreateIndexPlan:
		emit(0, "CREATE INDEX %s ON %s", x.Stmt.Name, x.Stmt.Table)
	case *DropIndexPlan:
		emit(0, "DROP INDEX %s", x.IndexName)
	case *CreateViewPlan:
		emit(0, "CREATE VIEW %s", x.Stmt.Name)
	case *DropViewPlan:
		emit(0, "DROP VIEW %s", x.ViewName)
	case *TransactionPlan:
		emit(0, "%s", strings.ToUpper(x.Verb))
	case *ExplainPlan:
		return Explain(x.Target)
	}
	return out
}

func conflictSuffix(c parser.ConflictAction) string {
	switch c {
	case parser.ConflictIgnore:
		return " OR IGNORE"
	case parser.ConflictReplace:
		return " OR REPLACE"
	case parser.ConflictFail:
		return " OR FAIL"
	case parser.ConflictRollback:
		return " OR ROLLBACK"
	default:
		return ""
	}
}

func explainNode(n Node, depth int, emit func(int, string, ...any)) {
	switch x := n.(type) {
	case *Scan:
		emit(depth, "SCAN %s%s", sourceName(x.Source), where(x.Filter))
	case *IndexScan:
		emit(depth, "SEARCH %s %s%s", sourceName(x.Source), lookupText(x), where(x.Filter))
	case *SubqueryScan:
		emit(depth, "SUBQUERY %s%s", x.Source.Name, where(x.Filter))
	case *Values:
		if x.Width == 0 && len(x.Rows) == 1 {
			emit(depth, "ONE ROW")
		} else {
			emit(depth, "VALUES %d rows", len(x.Rows))
		}
	case *Filter:
		emit(depth, "FILTER %s", binder.Format(x.Cond))
	case *Join:
		text := x.Kind.String() + " JOIN"
		if len(x.LeftKeys) > 0 {
			keys := make([]string, len(x.LeftKeys))
			for i := range x.LeftKeys {
				keys[i] = binder.Format(x.LeftKeys[i]) + " = " + binder.Format(x.RightKeys[i])
			}
			text = "HASH " + text + " ON " + strings.Join(keys, " AND ")
			if x.Cond != nil {
				text += " AND " + binder.Format(x.Cond)
			}
		} else {
			text = "NESTED LOOP " + text
			if x.Cond != nil {
				text += " ON " + binder.Format(x.Cond)
			}
		}
		emit(depth, "%s", text)
	case *Aggregate:
		aggs := make([]string, len(x.Aggs))
		for i, a := range x.Aggs {
			aggs[i] = binder.FormatAgg(a)
		}
		text := "AGGREGATE " + strings.Join(aggs, ", ")
		if len(x.GroupBy) > 0 {
			text += " GROUP BY " + formatList(x.GroupBy)
		}
		emit(depth, "%s", strings.TrimSpace(text))
	case *Project:
		emit(depth, "PROJECT %s", formatList(x.Exprs))
	case *Distinct:
		emit(depth, "DISTINCT")
	case *Sort:
		keys := make([]string, len(x.Keys))
		for i, k := range x.Keys {
			keys[i] = fmt.Sprintf("#%d", k.Index+1)
			if k.Desc {
				keys[i] += " DESC"
			}
		}
		emit(depth, "SORT %s", strings.Join(keys, ", "))
	case *Limit:
		text := "LIMIT " + binder.Format(x.Limit)
		if x.Offset != nil {
			text += " OFFSET " + binder.Format(x.Offset)
		}
		emit(depth, "%s", text)
	case *Trim:
		emit(depth, "TRIM %d", x.N)
	case *SetOp:
		emit(depth, "%s", x.Op.String())
	}
	for _, c := range Children(n) {
		explainNode(c, depth+1, emit)
	}
}

func sourceName(src *binder.TableSource) string {
	if src.Name != "" && !strings.EqualFold(src.Name, src.Table.Name) {
		return src.Table.Name + " AS " + src.Name
	}
	return src.Table.Name
}

func lookupText(x *IndexScan) string {
	if x.Index == nil {
		return "USING ROWID (rowid=?)"
	}
	var conds []string
	for i := range x.Eq {
		conds = append(conds, x.Source.Table.Schema.Cols[x.Index.Columns[i]].Name+"=?")
	}
	lead := x.Source.Table.Schema.Cols[x.Index.Columns[0]].Name
	if x.Lo != nil {
		conds = append(conds, lead+">?")
	}
	if x.Hi != nil {
		conds = append(conds, lead+"<?")
	}
	return fmt.Sprintf("USING INDEX %s (%s)", x.Index.Name, strings.Join(conds, " AND "))
}

func where(e binder.Expr) string {
	if e == nil {
		return ""
	}
	return " WHERE " + binder.Format(e)
}

func formatList(es []binder.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = binder.Format(e)
	}
	return strings.Join(parts, ", ")
}
