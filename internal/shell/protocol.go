package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tuannm99/novalite/internal/sql/executor"
)

// Engine executes SQL text. *engine.Session implements it.
type Engine interface {
	ExecuteStatement(ctx context.Context, sql string) (*executor.Result, error)
}

// Serve speaks the line protocol on r and w: input lines accumulate until a
// blank line (or the end of input), then the buffer runs. Query rows are
// written one per line followed by a blank line; a statement answers with
// just the blank line and a failure with "Error: <message>" and the blank
// line.
func Serve(ctx context.Context, eng Engine, r io.Reader, w io.Writer, f Formatter) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)
	bw := bufio.NewWriter(w)

	var buf strings.Builder
	flush := func() error {
		sql := strings.TrimSpace(buf.String())
		buf.Reset()
		if sql == "" {
			return nil
		}
		writeResponse(ctx, eng, bw, f, sql)
		return bw.Flush()
	}

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("shell: read input: %w", err)
	}
	return flush()
}

func writeResponse(ctx context.Context, eng Engine, w io.Writer, f Formatter, sql string) {
	res, err := eng.ExecuteStatement(ctx, sql)
	if err != nil {
		_, _ = fmt.Fprintf(w, "Error: %s\n\n", compactOneLine(err.Error()))
		return
	}
	for _, row := range res.Rows {
		_, _ = fmt.Fprintln(w, f.Row(row))
	}
	_, _ = fmt.Fprintln(w)
}
