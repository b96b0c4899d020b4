package shell

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/tuannm99/novalite/internal/sql/executor"
)

// Output formats understood by Render.
const (
	FormatTable    = "table"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatList     = "list"
)

// Render writes res to w. Statements without a result set print the number
// of affected rows; query results are drawn in the given format.
func Render(w io.Writer, res *executor.Result, format string, f Formatter) error {
	if !res.IsQuery() {
		_, err := fmt.Fprintf(w, "OK (%d affected)\n", res.AffectedRows)
		return err
	}
	if format == FormatList {
		for _, row := range res.Rows {
			if _, err := fmt.Fprintln(w, f.Row(row)); err != nil {
				return err
			}
		}
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	header := make(table.Row, len(res.Columns))
	for i, c := range res.Columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for _, row := range res.Rows {
		r := make(table.Row, len(row))
		for i, v := range row {
			r[i] = f.Value(v)
		}
		t.AppendRow(r)
	}

	switch format {
	case FormatCSV:
		t.RenderCSV()
		return nil
	case FormatMarkdown:
		t.RenderMarkdown()
		return nil
	case FormatTable, "":
		t.Render()
	default:
		return fmt.Errorf("shell: unknown output format %q", format)
	}
	_, err := fmt.Fprintf(w, "(%d rows)\n", len(res.Rows))
	return err
}
