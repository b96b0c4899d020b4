package planner

import (
	"fmt"
	"log/slog"

	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// Options toggles planner rewrites.
type Options struct {
	// HashJoin turns equality join conditions into hash lookups.
	HashJoin bool
	// ReorderJoins lets inner joins run in a cheaper order than written.
	ReorderJoins bool
}

func DefaultOptions() Options {
	return Options{HashJoin: true, ReorderJoins: true}
}

// Builder turns statements into plans. Statements are bound against the
// catalog first, so a Builder must not outlive a schema change it planned
// around.
type Builder struct {
	cat    *catalog.Catalog
	binder *binder.Binder
	opts   Options
}

func NewBuilder(cat *catalog.Catalog, b *binder.Binder, opts Options) *Builder {
	return &Builder{cat: cat, binder: b, opts: opts}
}

// BuildPlan builds a plan from an AST Statement.
func (b *Builder) BuildPlan(stmt parser.Statement) (Plan, error) {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return b.buildQueryPlan(s)
	case *parser.InsertStmt:
		return b.buildInsertPlan(s)
	case *parser.UpdateStmt:
		return b.buildUpdatePlan(s)
	case *parser.DeleteStmt:
		return b.buildDeletePlan(s)
	case *parser.CreateTableStmt:
		return b.buildCreateTablePlan(s)
	case *parser.DropTableStmt:
		return &DropTablePlan{TableName: s.Name, IfExists: s.IfExists}, nil
	case *parser.CreateIndexStmt:
		return &CreateIndexPlan{Stmt: s}, nil
	case *parser.DropIndexStmt:
		return &DropIndexPlan{IndexName: s.Name, IfExists: s.IfExists}, nil
	case *parser.CreateViewStmt:
		return b.buildCreateViewPlan(s)
	case *parser.DropViewStmt:
		return &DropViewPlan{ViewName: s.Name, IfExists: s.IfExists}, nil
	case *parser.TransactionStmt:
		return &TransactionPlan{Verb: s.Verb}, nil
	case *parser.ExplainStmt:
		if _, nested := s.Stmt.(*parser.ExplainStmt); nested {
			return nil, dberr.Bind("cannot EXPLAIN an EXPLAIN")
		}
		target, err := b.BuildPlan(s.Stmt)
		if err != nil {
			return nil, err
		}
		return &ExplainPlan{Target: target}, nil
	default:
		return nil, fmt.Errorf("planner: unsupported statement type %T", stmt)
	}
}

func (b *Builder) buildQueryPlan(s *parser.SelectStmt) (*QueryPlan, error) {
	q, err := b.binder.BindSelect(s)
	if err != nil {
		return nil, err
	}
	root, err := b.PlanQuery(q)
	if err != nil {
		return nil, err
	}
	return &QueryPlan{Root: root, Columns: q.Columns}, nil
}

func (b *Builder) buildInsertPlan(s *parser.InsertStmt) (Plan, error) {
	ins, err := b.binder.BindInsert(s)
	if err != nil {
		return nil, err
	}
	p := &InsertPlan{
		Table:         ins.Table,
		Columns:       ins.Columns,
		Rows:          ins.Rows,
		DefaultValues: ins.DefaultValues,
		Defaults:      ins.Defaults,
		Checks:        ins.Checks,
		Conflict:      ins.Conflict,
	}
	if ins.Query != nil {
		root, err := b.PlanQuery(ins.Query)
		if err != nil {
			return nil, err
		}
		p.Query = &QueryPlan{Root: root, Columns: ins.Query.Columns}
	}
	return p, nil
}

func (b *Builder) buildUpdatePlan(s *parser.UpdateStmt) (Plan, error) {
	up, err := b.binder.BindUpdate(s)
	if err != nil {
		return nil, err
	}
	input, err := b.planTarget(up.Source, up.Where)
	if err != nil {
		return nil, err
	}
	return &UpdatePlan{
		Table:    up.Table,
		Input:    input,
		Set:      up.Set,
		Checks:   up.Checks,
		Conflict: up.Conflict,
	}, nil
}

func (b *Builder) buildDeletePlan(s *parser.DeleteStmt) (Plan, error) {
	del, err := b.binder.BindDelete(s)
	if err != nil {
		return nil, err
	}
	input, err := b.planTarget(del.Source, del.Where)
	if err != nil {
		return nil, err
	}
	return &DeletePlan{Table: del.Table, Input: input}, nil
}

// planTarget selects the rows a DML statement changes.
func (b *Builder) planTarget(src *binder.TableSource, where binder.Expr) (Node, error) {
	width := binder.Width(src)
	var sel binder.Select
	sel.From = src
	sel.Width = width
	sel.Where = where
	return b.planFrom(&sel)
}

func (b *Builder) buildCreateTablePlan(s *parser.CreateTableStmt) (Plan, error) {
	p := &CreateTablePlan{Stmt: s}
	if s.AsSelect != nil {
		q, err := b.buildQueryPlan(s.AsSelect)
		if err != nil {
			return nil, err
		}
		p.Query = q
	}
	return p, nil
}

// buildCreateViewPlan binds the view body once so a broken view is rejected
// when it is defined rather than when it is first used.
func (b *Builder) buildCreateViewPlan(s *parser.CreateViewStmt) (Plan, error) {
	q, err := b.binder.BindSelect(s.Select)
	if err != nil {
		return nil, err
	}
	if len(s.Columns) > 0 && len(s.Columns) != q.NumColumns() {
		return nil, dberr.Bind("expected %d columns for '%s' but got %d", len(s.Columns), s.Name, q.NumColumns())
	}
	slog.Debug("planner: view validated", "view", s.Name, "columns", q.NumColumns())
	return &CreateViewPlan{Stmt: s}, nil
}
