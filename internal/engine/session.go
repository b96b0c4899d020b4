// Package engine ties the SQL pipeline together into a session that owns
// one in-memory database.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/executor"
	"github.com/tuannm99/novalite/internal/sql/parser"
	"github.com/tuannm99/novalite/internal/sql/planner"
)

// Options tune a session.
type Options struct {
	StrictGrouping   bool
	HashJoin         bool
	ReorderJoins     bool
	StatementTimeout time.Duration
}

// DefaultOptions enables every optimization and no timeout.
func DefaultOptions() Options {
	return Options{HashJoin: true, ReorderJoins: true}
}

// Session is one connection to a private in-memory database. Statements of
// a session run one at a time.
type Session struct {
	mu   sync.Mutex
	opts Options
	cat  *catalog.Catalog
	exec *executor.Executor
}

func NewSession(opts Options) *Session {
	cat := catalog.New()
	b := binder.New(cat, binder.Options{StrictGrouping: opts.StrictGrouping})
	builder := planner.NewBuilder(cat, b, planner.Options{HashJoin: opts.HashJoin, ReorderJoins: opts.ReorderJoins})
	return &Session{opts: opts, cat: cat, exec: executor.NewExecutor(cat, builder)}
}

// Catalog exposes the session's schema, for inspection only.
func (s *Session) Catalog() *catalog.Catalog { return s.cat }

// TableNames lists the session's tables in sorted order.
func (s *Session) TableNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cat.TableNames()
}

// ExecuteStatement runs the ';'-separated statements in sql in order and
// returns the result of the last one. The first failing statement stops
// the batch; its own effects are rolled back, earlier statements stay
// applied. A script that does not parse runs nothing.
func (s *Session) ExecuteStatement(ctx context.Context, sql string) (*executor.Result, error) {
	stmts, err := parser.ParseScript(sql)
	if err != nil {
		return nil, err
	}
	if len(stmts) == 0 {
		return &executor.Result{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var res *executor.Result
	for _, stmt := range stmts {
		if res, err = s.run(ctx, stmt); err != nil {
			slog.Debug("engine: statement failed", "err", err, "kind", dberr.KindOf(err).String())
			return nil, err
		}
	}
	return res, nil
}

func (s *Session) run(ctx context.Context, stmt parser.Statement) (*executor.Result, error) {
	if s.opts.StatementTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.StatementTimeout)
		defer cancel()
	}
	if tx, ok := stmt.(*parser.TransactionStmt); ok {
		// Every statement is atomic on its own; transaction verbs are
		// accepted so scripts written for SQLite run unchanged.
		slog.Debug("engine: transaction statement ignored", "verb", strings.ToUpper(tx.Verb))
	}
	start := time.Now()
	res, err := s.exec.ExecStatement(ctx, stmt)
	if err != nil {
		return nil, err
	}
	slog.Debug("engine: statement done", "type", statementType(stmt), "elapsed", time.Since(start), "rows", len(res.Rows), "affected", res.AffectedRows)
	return res, nil
}

func statementType(stmt parser.Statement) string {
	return strings.TrimSuffix(strings.TrimPrefix(fmt.Sprintf("%T", stmt), "*parser."), "Stmt")
}
