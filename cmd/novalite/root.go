package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tuannm99/novalite/internal"
	"github.com/tuannm99/novalite/internal/engine"
	"github.com/tuannm99/novalite/internal/shell"
)

var version = "0.1.0"

// app carries what the commands share once flags are parsed.
type app struct {
	cfgFile string
	cfg     *internal.NovaLiteConfig
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var protocol bool

	root := &cobra.Command{
		Use:   "novalite",
		Short: "NovaLite - in-memory SQL engine",
		Long: `NovaLite runs SQL with SQLite semantics against a private in-memory database.

With a terminal on stdin it starts an interactive console. Otherwise it reads
the line protocol: statements accumulate until a blank line, then run, and the
result rows are written tab separated followed by a blank line.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := internal.LoadConfig(a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			return setupLogging(cmd.ErrOrStderr(), cfg)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess := engine.NewSession(a.sessionOptions())
			in := cmd.InOrStdin()
			if f, ok := in.(*os.File); ok && !protocol && term.IsTerminal(int(f.Fd())) {
				hist := shell.NewHistory(a.cfg.Shell.History)
				if a.cfg.Shell.History == "" {
					hist = shell.NewHistory(shell.DefaultHistoryPath())
				}
				return shell.NewREPL(sess, cmd.OutOrStdout(), a.formatter(), hist).Run(cmd.Context())
			}
			return shell.Serve(cmd.Context(), sess, in, cmd.OutOrStdout(), a.formatter())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (yaml)")
	pf.String("log-level", "warn", "log level (debug|info|warn|error)")
	pf.String("log-format", "text", "log format (text|json)")
	pf.Bool("strict-grouping", false, "reject bare columns outside GROUP BY")
	pf.Bool("hash-join", true, "use hash joins for equality conditions")
	pf.Bool("reorder-joins", true, "reorder inner joins")
	pf.Duration("statement-timeout", 0, "interrupt statements running longer than this (0 = never)")
	pf.String("null-text", "NULL", "text printed for NULL")
	root.Flags().BoolVar(&protocol, "protocol", false, "speak the line protocol even on a terminal")
	root.Flags().String("history", "", "console history file (default ~/.novalite_history)")

	root.AddCommand(newExecCmd(a))
	root.AddCommand(newSLTCmd(a))
	return root
}

func (a *app) sessionOptions() engine.Options {
	return engine.Options{
		StrictGrouping:   a.cfg.Engine.StrictGrouping,
		HashJoin:         a.cfg.Engine.HashJoin,
		ReorderJoins:     a.cfg.Engine.ReorderJoins,
		StatementTimeout: a.cfg.Engine.StatementTimeout,
	}
}

func (a *app) formatter() shell.Formatter {
	return shell.Formatter{
		NullText:  a.cfg.Shell.NullText,
		EmptyText: a.cfg.Shell.EmptyText,
		Separator: a.cfg.Shell.Separator,
	}
}

// setupLogging installs the default logger on w, which is stderr so that
// stdout only carries results.
func setupLogging(w io.Writer, cfg *internal.NovaLiteConfig) error {
	level, err := internal.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if cfg.Log.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
	return nil
}
