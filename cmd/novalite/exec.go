package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novalite/internal/engine"
	"github.com/tuannm99/novalite/internal/shell"
)

func newExecCmd(a *app) *cobra.Command {
	var (
		file   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "exec [sql]",
		Short: "Run a script and print the result of its last statement",
		Example: `  novalite exec "CREATE TABLE t(a); INSERT INTO t VALUES (1); SELECT * FROM t"
  novalite exec -f schema.sql -o csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := readScript(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			sess := engine.NewSession(a.sessionOptions())
			res, err := sess.ExecuteStatement(cmd.Context(), script)
			if err != nil {
				return err
			}
			return shell.Render(cmd.OutOrStdout(), res, output, a.formatter())
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the script from a file ('-' for stdin)")
	cmd.Flags().StringVarP(&output, "output", "o", shell.FormatTable, "output format (table|csv|markdown|list)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{shell.FormatTable, shell.FormatCSV, shell.FormatMarkdown, shell.FormatList}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func readScript(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case file == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(b), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	}
	return "", errors.New("no SQL given: pass it as an argument or with --file")
}
