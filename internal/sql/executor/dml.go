package executor

import (
	"errors"
	"log/slog"

	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
	"github.com/tuannm99/novalite/internal/sql/planner"
)

// Data changes run in two phases: every input row and new value is computed
// first, then the changes are applied under a journal. A failing change
// rolls the statement back, except under OR FAIL, which keeps the changes
// made before the failure.

func finish(j *heap.Journal, conflict parser.ConflictAction, err error) error {
	if err == nil || conflict == parser.ConflictFail {
		j.Commit()
	} else {
		j.Rollback()
	}
	return err
}

func (rt *runtime) execInsert(p *planner.InsertPlan) (*Result, error) {
	src, err := rt.insertSource(p)
	if err != nil {
		return nil, err
	}
	rows := make([]record.Row, len(src))
	for i, vals := range src {
		if rows[i], err = rt.newRow(p, vals); err != nil {
			return nil, err
		}
	}

	j := heap.NewJournal()
	var n int64
	for _, row := range rows {
		if err := rt.check(); err != nil {
			return nil, finish(j, parser.ConflictAbort, err)
		}
		ok, err := rt.checkRow(p.Table, p.Checks, row, record.Null, p.Conflict)
		if err != nil {
			return nil, finish(j, p.Conflict, err)
		}
		if !ok {
			continue
		}
		inserted, err := p.Table.Insert(j, row, p.Conflict)
		if err != nil {
			return nil, finish(j, p.Conflict, err)
		}
		if inserted {
			n++
		}
	}
	_ = finish(j, p.Conflict, nil)
	slog.Debug("executor: insert", "table", p.Table.Name, "rows", n)
	return &Result{AffectedRows: n}, nil
}

// insertSource evaluates the supplied values of every row to insert.
func (rt *runtime) insertSource(p *planner.InsertPlan) ([]record.Row, error) {
	switch {
	case p.Query != nil:
		return rt.collect(p.Query.Root, -1)
	case p.DefaultValues:
		return []record.Row{{}}, nil
	}
	out := make([]record.Row, len(p.Rows))
	for i, exprs := range p.Rows {
		vals, err := rt.evalList(exprs, nil)
		if err != nil {
			return nil, err
		}
		out[i] = vals
	}
	return out, nil
}

// newRow fills a full table row from the supplied values and the column
// defaults.
func (rt *runtime) newRow(p *planner.InsertPlan, vals record.Row) (record.Row, error) {
	row := make(record.Row, p.Table.Schema.NumCols())
	for i, d := range p.Defaults {
		if d == nil {
			continue
		}
		v, err := rt.eval(d, nil)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	for k, col := range p.Columns {
		row[col] = vals[k]
	}
	return row, nil
}

// checkRow evaluates the CHECK constraints of t against row as it will be
// stored. A constraint that yields NULL passes. ok is false when the row is
// to be skipped under OR IGNORE.
func (rt *runtime) checkRow(t *catalog.Table, checks []binder.Check, row record.Row, rowid record.Value, conflict parser.ConflictAction) (bool, error) {
	if len(checks) == 0 {
		return true, nil
	}
	stored := t.Schema.Coerce(row)
	if t.RowidAlias >= 0 {
		rowid = stored[t.RowidAlias]
	}
	ext := append(stored[:len(stored):len(stored)], rowid)
	for _, c := range checks {
		v, err := rt.eval(c.Expr, ext)
		if err != nil {
			return false, err
		}
		if pass, known := v.Truth(); known && !pass {
			if conflict == parser.ConflictIgnore {
				return false, nil
			}
			name := c.Name
			if name == "" {
				name = c.Text
			}
			return false, dberr.Constraint("CHECK constraint failed: %s", name)
		}
	}
	return true, nil
}

type change struct {
	id  heap.RowID
	row record.Row
}

func (rt *runtime) execUpdate(p *planner.UpdatePlan) (*Result, error) {
	input, err := rt.collect(p.Input, -1)
	if err != nil {
		return nil, err
	}
	ncols := p.Table.Schema.NumCols()
	changes := make([]change, len(input))
	for i, in := range input {
		row := in[:ncols].Clone()
		for _, a := range p.Set {
			if row[a.Column], err = rt.eval(a.Value, in); err != nil {
				return nil, err
			}
		}
		changes[i] = change{id: heap.RowID(in[ncols].Int()), row: row}
	}

	j := heap.NewJournal()
	var n int64
	for _, c := range changes {
		if err := rt.check(); err != nil {
			return nil, finish(j, parser.ConflictAbort, err)
		}
		ok, err := rt.checkRow(p.Table, p.Checks, c.row, record.Int(int64(c.id)), p.Conflict)
		if err != nil {
			return nil, finish(j, p.Conflict, err)
		}
		if !ok {
			continue
		}
		updated, err := p.Table.Update(j, c.id, c.row, p.Conflict)
		if errors.Is(err, heap.ErrRowNotFound) {
			// removed earlier in this statement by OR REPLACE
			continue
		}
		if err != nil {
			return nil, finish(j, p.Conflict, err)
		}
		if updated {
			n++
		}
	}
	_ = finish(j, p.Conflict, nil)
	slog.Debug("executor: update", "table", p.Table.Name, "rows", n)
	return &Result{AffectedRows: n}, nil
}

func (rt *runtime) execDelete(p *planner.DeletePlan) (*Result, error) {
	input, err := rt.collect(p.Input, -1)
	if err != nil {
		return nil, err
	}
	ncols := p.Table.Schema.NumCols()
	j := heap.NewJournal()
	var n int64
	for _, in := range input {
		err := p.Table.Delete(j, heap.RowID(in[ncols].Int()))
		if errors.Is(err, heap.ErrRowNotFound) {
			continue
		}
		if err != nil {
			return nil, finish(j, parser.ConflictAbort, err)
		}
		n++
	}
	_ = finish(j, parser.ConflictAbort, nil)
	slog.Debug("executor: delete", "table", p.Table.Name, "rows", n)
	return &Result{AffectedRows: n}, nil
}

// execCreateTable creates a table. For CREATE TABLE ... AS SELECT the
// columns take the names and affinities of the query result and the rows
// are copied in; on failure the new table is dropped again.
func (rt *runtime) execCreateTable(p *planner.CreateTablePlan) (*Result, error) {
	if p.Query == nil {
		if _, err := rt.ex.cat.CreateTable(p.Stmt); err != nil {
			return nil, err
		}
		return &Result{}, nil
	}

	rows, err := rt.collect(p.Query.Root, -1)
	if err != nil {
		return nil, err
	}
	stmt := &parser.CreateTableStmt{Name: p.Stmt.Name, IfNotExists: p.Stmt.IfNotExists}
	names := binder.ColumnNames(&binder.Query{Columns: p.Query.Columns})
	for i, c := range p.Query.Columns {
		stmt.Columns = append(stmt.Columns, &parser.ColumnDef{Name: names[i], Type: binder.DeclType(c.Info)})
	}
	t, err := rt.ex.cat.CreateTable(stmt)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return &Result{}, nil
	}
	j := heap.NewJournal()
	for _, row := range rows {
		if _, err := t.Insert(j, row.Clone(), parser.ConflictAbort); err != nil {
			j.Rollback()
			_ = rt.ex.cat.DropTable(t.Name, true)
			return nil, err
		}
	}
	j.Commit()
	slog.Debug("executor: table populated", "table", t.Name, "rows", len(rows))
	return &Result{}, nil
}
