package slt

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/tuannm99/novalite/internal/record"
)

// oracle replays records on a real SQLite in-memory database so the runner
// can report where the two engines disagree.
type oracle struct {
	db *sql.DB
}

func openOracle(ctx context.Context) (*oracle, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("slt: open oracle: %w", err)
	}
	// every connection to :memory: is its own database
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("slt: open oracle: %w", err)
	}
	return &oracle{db: db}, nil
}

func (o *oracle) Close() error { return o.db.Close() }

func (o *oracle) exec(ctx context.Context, stmt string) error {
	_, err := o.db.ExecContext(ctx, stmt)
	return err
}

func (o *oracle) query(ctx context.Context, q string) ([]record.Row, error) {
	rows, err := o.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []record.Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(record.Row, len(cols))
		for i, v := range vals {
			row[i] = fromDriver(v)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func fromDriver(v any) record.Value {
	switch x := v.(type) {
	case nil:
		return record.Null
	case int64:
		return record.Int(x)
	case float64:
		return record.Real(x)
	case string:
		return record.Text(x)
	case []byte:
		return record.Blob(x)
	case bool:
		return record.Bool(x)
	case time.Time:
		return record.Text(x.Format(time.RFC3339Nano))
	default:
		return record.Text(fmt.Sprint(x))
	}
}
