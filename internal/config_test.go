package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Equal(t, "warn", cfg.Log.Level)
	require.True(t, cfg.Engine.HashJoin)
	require.True(t, cfg.Engine.ReorderJoins)
	require.False(t, cfg.Engine.StrictGrouping)
	require.Zero(t, cfg.Engine.StatementTimeout)
	require.Equal(t, "NULL", cfg.Shell.NullText)
	require.Equal(t, "(empty)", cfg.Shell.EmptyText)
	require.Equal(t, "\t", cfg.Shell.Separator)
	require.Equal(t, 1, cfg.SLT.Workers)
}

func TestLoadConfig_FileEnvAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "novalite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
engine:
  strict_grouping: true
  statement_timeout: 2s
slt:
  workers: 4
`), 0o644))
	t.Setenv("NOVALITE_SHELL_NULL_TEXT", "<null>")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Bool("hash-join", true, "")
	fs.Int("workers", 1, "")
	require.NoError(t, fs.Parse([]string{"--hash-join=false"}))

	cfg, err := LoadConfig(path, fs)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Engine.StrictGrouping)
	require.Equal(t, 2*time.Second, cfg.Engine.StatementTimeout)
	require.False(t, cfg.Engine.HashJoin)
	require.Equal(t, "<null>", cfg.Shell.NullText)
	// an unset flag does not override the file
	require.Equal(t, 4, cfg.SLT.Workers)
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)

	t.Setenv("NOVALITE_LOG_LEVEL", "loud")
	_, err = LoadConfig("", nil)
	require.ErrorContains(t, err, "invalid log.level")
}
