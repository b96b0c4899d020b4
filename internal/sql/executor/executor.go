package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
	"github.com/tuannm99/novalite/internal/sql/planner"
)

// Executor executes plans against a catalog.
type Executor struct {
	cat     *catalog.Catalog
	builder *planner.Builder
	// changes is the row count of the last INSERT, UPDATE or DELETE.
	changes int64
}

// NewExecutor returns an executor for plans built by builder over cat. The
// builder also plans subqueries when they are first evaluated.
func NewExecutor(cat *catalog.Catalog, builder *planner.Builder) *Executor {
	return &Executor{cat: cat, builder: builder}
}

// ExecStatement plans and runs one statement.
func (e *Executor) ExecStatement(ctx context.Context, stmt parser.Statement) (*Result, error) {
	plan, err := e.builder.BuildPlan(stmt)
	if err != nil {
		return nil, err
	}
	return e.Exec(ctx, plan)
}

// Exec runs a plan.
func (e *Executor) Exec(ctx context.Context, p planner.Plan) (*Result, error) {
	rt := newRuntime(ctx, e)
	switch plan := p.(type) {
	case *planner.QueryPlan:
		return rt.execQuery(plan)
	case *planner.ExplainPlan:
		return e.execExplain(plan)

	case *planner.InsertPlan:
		return e.counted(rt.execInsert(plan))
	case *planner.UpdatePlan:
		return e.counted(rt.execUpdate(plan))
	case *planner.DeletePlan:
		return e.counted(rt.execDelete(plan))

	case *planner.CreateTablePlan:
		return rt.execCreateTable(plan)
	case *planner.DropTablePlan:
		return e.execDropTable(plan)
	case *planner.CreateIndexPlan:
		return e.execCreateIndex(plan)
	case *planner.DropIndexPlan:
		return e.execDropIndex(plan)
	case *planner.CreateViewPlan:
		return e.execCreateView(plan)
	case *planner.DropViewPlan:
		return e.execDropView(plan)
	case *planner.TransactionPlan:
		return &Result{}, nil

	default:
		return nil, fmt.Errorf("executor: unsupported plan type %T", p)
	}
}

func (e *Executor) counted(res *Result, err error) (*Result, error) {
	if err == nil {
		e.changes = res.AffectedRows
	}
	return res, err
}

func (rt *runtime) execQuery(p *planner.QueryPlan) (*Result, error) {
	rows, err := rt.collect(p.Root, -1)
	if err != nil {
		return nil, err
	}
	res := &Result{Columns: make([]string, len(p.Columns)), Rows: rows}
	for i, c := range p.Columns {
		res.Columns[i] = c.Name
	}
	if res.Rows == nil {
		res.Rows = []record.Row{}
	}
	return res, nil
}

func (e *Executor) execExplain(p *planner.ExplainPlan) (*Result, error) {
	res := &Result{Columns: []string{"plan"}, Rows: []record.Row{}}
	for _, line := range planner.Explain(p.Target) {
		res.Rows = append(res.Rows, record.Row{record.Text(line)})
	}
	return res, nil
}

func (e *Executor) execDropTable(p *planner.DropTablePlan) (*Result, error) {
	if err := e.cat.DropTable(p.TableName, p.IfExists); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: 0}, nil
}

func (e *Executor) execCreateIndex(p *planner.CreateIndexPlan) (*Result, error) {
	if err := e.cat.CreateIndex(p.Stmt); err != nil {
		return nil, err
	}
	slog.Debug("executor: index created", "index", p.Stmt.Name, "table", p.Stmt.Table)
	return &Result{AffectedRows: 0}, nil
}

func (e *Executor) execDropIndex(p *planner.DropIndexPlan) (*Result, error) {
	if err := e.cat.DropIndex(p.IndexName, p.IfExists); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: 0}, nil
}

func (e *Executor) execCreateView(p *planner.CreateViewPlan) (*Result, error) {
	if err := e.cat.CreateView(p.Stmt); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: 0}, nil
}

func (e *Executor) execDropView(p *planner.DropViewPlan) (*Result, error) {
	if err := e.cat.DropView(p.ViewName, p.IfExists); err != nil {
		return nil, err
	}
	return &Result{AffectedRows: 0}, nil
}
