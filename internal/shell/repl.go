package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

const (
	prompt         = "novalite> "
	continuePrompt = "...> "
)

const helpText = `meta commands:
  \q | quit | exit       quit
  \tables                list tables
  \format [name]         show or set output format (table, csv, markdown, list)
  \history               print history
  \help                  show help

sql:
  end statements with ';'
  multiline input is collected until the ';'`

// REPL is the interactive console.
type REPL struct {
	Engine     Engine
	Out        io.Writer
	Formatter  Formatter
	Format     string
	History    *History
	HistoryMax int

	buf    strings.Builder
	errOut *color.Color
}

func NewREPL(eng Engine, out io.Writer, f Formatter, h *History) *REPL {
	return &REPL{Engine: eng, Out: out, Formatter: f, Format: FormatTable, History: h, HistoryMax: 2000}
}

// Run reads lines from the terminal until EOF or a quit command.
func (r *REPL) Run(ctx context.Context) error {
	if r.History != nil {
		if err := r.History.Load(r.HistoryMax); err != nil {
			return fmt.Errorf("shell: load history: %w", err)
		}
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("shell: readline: %w", err)
	}
	defer func() { _ = rl.Close() }()
	if r.History != nil {
		for _, line := range r.History.Lines() {
			_ = rl.SaveHistory(line)
		}
	}

	_, _ = fmt.Fprintln(r.Out, `type \help for help`)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			// Ctrl+C drops a partial statement
			if r.buf.Len() > 0 {
				r.buf.Reset()
				rl.SetPrompt(prompt)
			}
			continue
		}
		if err != nil {
			_, _ = fmt.Fprintln(r.Out)
			return nil
		}
		stmt, quit := r.Feed(ctx, line)
		if quit {
			return nil
		}
		if stmt != "" {
			_ = rl.SaveHistory(compactOneLine(stmt))
		}
		if r.buf.Len() > 0 {
			rl.SetPrompt(continuePrompt)
		} else {
			rl.SetPrompt(prompt)
		}
	}
}

// Feed handles one input line. It returns the statement text when the line
// completed and ran one, and quit when the user asked to leave.
func (r *REPL) Feed(ctx context.Context, line string) (stmt string, quit bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}
	if r.buf.Len() == 0 && isMetaCommand(line) {
		return "", r.meta(line)
	}

	if r.buf.Len() > 0 {
		r.buf.WriteByte('\n')
	}
	r.buf.WriteString(line)
	if !statementComplete(r.buf.String()) {
		return "", false
	}
	stmt = strings.TrimSpace(r.buf.String())
	r.buf.Reset()

	if r.History != nil {
		_ = r.History.Append(stmt)
	}
	res, err := r.Engine.ExecuteStatement(ctx, stmt)
	if err != nil {
		r.printError(err)
		return stmt, false
	}
	if err := Render(r.Out, res, r.Format, r.Formatter); err != nil {
		r.printError(err)
	}
	return stmt, false
}

func (r *REPL) printError(err error) {
	if r.errOut == nil {
		r.errOut = color.New(color.FgRed, color.Bold)
	}
	_, _ = r.errOut.Fprintf(r.Out, "Error: %v\n", err)
}

func (r *REPL) meta(line string) (quit bool) {
	fields := strings.Fields(line)
	switch fields[0] {
	case `\q`, "quit", "exit":
		return true
	case `\help`:
		_, _ = fmt.Fprintln(r.Out, helpText)
	case `\history`:
		if r.History != nil {
			r.History.Print(r.Out, 50)
		}
	case `\tables`:
		lister, ok := r.Engine.(interface{ TableNames() []string })
		if !ok {
			_, _ = fmt.Fprintln(r.Out, "table listing not supported")
			return false
		}
		for _, name := range lister.TableNames() {
			_, _ = fmt.Fprintln(r.Out, name)
		}
	case `\format`:
		if len(fields) == 1 {
			_, _ = fmt.Fprintln(r.Out, r.Format)
			return false
		}
		switch fields[1] {
		case FormatTable, FormatCSV, FormatMarkdown, FormatList:
			r.Format = fields[1]
		default:
			r.printError(fmt.Errorf("unknown format %q", fields[1]))
		}
	default:
		_, _ = fmt.Fprintf(r.Out, "unknown command: %s\n", line)
	}
	return false
}

// statementComplete reports whether buf ends a statement: a ';' outside
// quotes and comments.
func statementComplete(buf string) bool {
	var quote byte
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == '[':
			quote = ']'
		case c == '-' && i+1 < len(buf) && buf[i+1] == '-':
			nl := strings.IndexByte(buf[i:], '\n')
			if nl < 0 {
				return false
			}
			i += nl
		case c == ';':
			if strings.TrimSpace(stripComments(buf[i+1:])) == "" {
				return true
			}
		}
	}
	return false
}

func stripComments(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		if i := strings.Index(line, "--"); i >= 0 {
			line = line[:i]
		}
		b.WriteString(line)
	}
	return b.String()
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, `\`) || line == "quit" || line == "exit"
}
