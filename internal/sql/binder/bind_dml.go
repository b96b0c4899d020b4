package binder

import (
	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

func (b *Binder) targetTable(name string) (*catalog.Table, error) {
	if t, ok := b.cat.Table(name); ok {
		return t, nil
	}
	if _, ok := b.cat.View(name); ok {
		return nil, dberr.Bind("cannot modify %s because it is a view", name)
	}
	return nil, dberr.Bind("no such table: %s", name)
}

// tableScope is the scope of a single table laid out at offset 0, used by
// UPDATE, DELETE and CHECK constraints.
func (b *Binder) tableScope(t *catalog.Table, name string) (*scope, *TableSource) {
	sc := newScope(nil, nil)
	src := b.addTableSource(t, name, sc)
	return sc, src
}

func (b *Binder) bindChecks(t *catalog.Table) ([]Check, error) {
	if len(t.Checks) == 0 {
		return nil, nil
	}
	sc, _ := b.tableScope(t, t.Name)
	out := make([]Check, 0, len(t.Checks))
	for _, c := range t.Checks {
		e, err := b.bindExpr(c.Expr, sc)
		if err != nil {
			return nil, err
		}
		out = append(out, Check{Name: c.Name, Text: parser.FormatExpr(c.Expr), Expr: e})
	}
	return out, nil
}

// BindInsert resolves the target columns and binds the row source.
func (b *Binder) BindInsert(stmt *parser.InsertStmt) (*Insert, error) {
	t, err := b.targetTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	ins := &Insert{Table: t, Conflict: stmt.Conflict, DefaultValues: stmt.DefaultValues}
	n := t.Schema.NumCols()
	if len(stmt.Columns) > 0 {
		for _, name := range stmt.Columns {
			pos := t.ColumnIndex(name)
			if pos < 0 && isRowidName(name) && t.RowidAlias >= 0 {
				pos = t.RowidAlias
			}
			if pos < 0 {
				return nil, dberr.Bind("table %s has no column named %s", t.Name, name)
			}
			ins.Columns = append(ins.Columns, pos)
		}
	} else if !stmt.DefaultValues {
		for i := 0; i < n; i++ {
			ins.Columns = append(ins.Columns, i)
		}
	}

	supplied := func(got int) error {
		if got == len(ins.Columns) {
			return nil
		}
		if len(stmt.Columns) == 0 {
			return dberr.Bind("table %s has %d columns but %d values were supplied", t.Name, n, got)
		}
		return dberr.Bind("%d values for %d columns", got, len(ins.Columns))
	}

	switch {
	case stmt.DefaultValues:
	case stmt.Select != nil:
		q, err := b.BindSelect(stmt.Select)
		if err != nil {
			return nil, err
		}
		if err := supplied(q.NumColumns()); err != nil {
			return nil, err
		}
		ins.Query = q
	default:
		sc := newScope(nil, nil)
		width := -1
		for _, row := range stmt.Values {
			if width >= 0 && len(row) != width {
				return nil, dberr.Bind("all VALUES must have the same number of terms")
			}
			width = len(row)
			if err := supplied(len(row)); err != nil {
				return nil, err
			}
			bound := make([]Expr, len(row))
			for i, pe := range row {
				if bound[i], err = b.bindExpr(pe, sc); err != nil {
					return nil, err
				}
			}
			ins.Rows = append(ins.Rows, bound)
		}
	}

	if ins.Defaults, err = b.bindDefaults(t); err != nil {
		return nil, err
	}
	if ins.Checks, err = b.bindChecks(t); err != nil {
		return nil, err
	}
	return ins, nil
}

func (b *Binder) bindDefaults(t *catalog.Table) ([]Expr, error) {
	out := make([]Expr, len(t.Defaults))
	sc := newScope(nil, nil)
	for i, d := range t.Defaults {
		if d == nil {
			continue
		}
		e, err := b.bindExpr(d, sc)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (b *Binder) BindUpdate(stmt *parser.UpdateStmt) (*Update, error) {
	t, err := b.targetTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	name := stmt.Alias
	if name == "" {
		name = t.Name
	}
	sc, src := b.tableScope(t, name)
	up := &Update{Table: t, Source: src, Conflict: stmt.Conflict}
	if stmt.Where != nil {
		if up.Where, err = b.bindExpr(stmt.Where, sc); err != nil {
			return nil, err
		}
	}
	for _, as := range stmt.Set {
		pos := t.ColumnIndex(as.Column)
		if pos < 0 && isRowidName(as.Column) && t.RowidAlias >= 0 {
			pos = t.RowidAlias
		}
		if pos < 0 {
			return nil, dberr.Bind("no such column: %s", as.Column)
		}
		v, err := b.bindExpr(as.Value, sc)
		if err != nil {
			return nil, err
		}
		replaced := false
		for i := range up.Set {
			if up.Set[i].Column == pos {
				up.Set[i].Value = v
				replaced = true
			}
		}
		if !replaced {
			up.Set = append(up.Set, Assignment{Column: pos, Value: v})
		}
	}
	if up.Checks, err = b.bindChecks(t); err != nil {
		return nil, err
	}
	return up, nil
}

func (b *Binder) BindDelete(stmt *parser.DeleteStmt) (*Delete, error) {
	t, err := b.targetTable(stmt.Table)
	if err != nil {
		return nil, err
	}
	name := stmt.Alias
	if name == "" {
		name = t.Name
	}
	sc, src := b.tableScope(t, name)
	del := &Delete{Table: t, Source: src}
	if stmt.Where != nil {
		if del.Where, err = b.bindExpr(stmt.Where, sc); err != nil {
			return nil, err
		}
	}
	return del, nil
}

// ColumnNames lists the names used for CREATE TABLE ... AS SELECT.
func ColumnNames(q *Query) []string {
	names := make([]string, len(q.Columns))
	for i, c := range q.Columns {
		names[i] = c.Name
	}
	return uniqueNames(names)
}

// DeclType returns the declared type CREATE TABLE ... AS SELECT gives a
// column of the given affinity.
func DeclType(in Info) string {
	if !in.HasAffinity {
		return ""
	}
	switch in.Affinity {
	case record.AffinityInteger:
		return "INT"
	case record.AffinityText:
		return "TEXT"
	case record.AffinityReal:
		return "REAL"
	case record.AffinityNumeric:
		return "NUM"
	default:
		return ""
	}
}
