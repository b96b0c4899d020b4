package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tuannm99/novalite/internal/slt"
)

func newSLTCmd(a *app) *cobra.Command {
	var (
		pattern  string
		failFast bool
		oracle   bool
		summary  bool
	)
	cmd := &cobra.Command{
		Use:   "slt <file-or-dir>...",
		Short: "Run sqllogictest files",
		Long: `Run sqllogictest files, each against a fresh database. Directories are
searched for *.test files. The exit status is non-zero when any file fails.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			for _, arg := range args {
				st, err := os.Stat(arg)
				if err != nil {
					return err
				}
				if !st.IsDir() {
					files = append(files, arg)
					continue
				}
				found, err := slt.FindFiles(arg, pattern)
				if err != nil {
					return err
				}
				files = append(files, found...)
			}
			if len(files) == 0 {
				return fmt.Errorf("no test files found")
			}

			opts := slt.DefaultOptions()
			opts.Workers = a.cfg.SLT.Workers
			opts.HashThreshold = a.cfg.SLT.HashThreshold
			opts.FailFast = failFast
			opts.Oracle = oracle
			opts.Session = a.sessionOptions()

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Running %d test file(s)...\n\n", len(files))
			rep, err := slt.NewRunner(opts).Run(cmd.Context(), files)
			if err != nil {
				return err
			}
			rep.Print(out, summary)
			if !rep.Passed() {
				nfiles, passed, _, _, _, _ := rep.Totals()
				return fmt.Errorf("%d of %d file(s) failed", nfiles-passed, nfiles)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&pattern, "pattern", "", "only run files whose name contains this")
	f.BoolVarP(&failFast, "fail-fast", "x", false, "stop on the first failure")
	f.BoolVar(&oracle, "oracle", false, "replay every file on SQLite and report divergences")
	f.BoolVar(&summary, "summary", false, "print totals only")
	f.Int("workers", 1, "files run in parallel")
	f.Int("hash-threshold", 0, "print mismatching results longer than this as a hash")
	return cmd
}
