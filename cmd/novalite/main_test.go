package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRoot_Protocol(t *testing.T) {
	in := "CREATE TABLE t(a, b);\n\nINSERT INTO t VALUES (1, NULL), (2, 'two');\n\nSELECT * FROM t ORDER BY a;\n\nSELECT * FROM nope;\n"
	out, err := execute(t, in)
	require.NoError(t, err)
	require.Equal(t, "\n\n1\tNULL\n2\ttwo\n\nError: no such table: nope\n\n", out)

	out, err = execute(t, "SELECT NULL;\n", "--null-text=-")
	require.NoError(t, err)
	require.Equal(t, "-\n\n", out)
}

func TestExec(t *testing.T) {
	out, err := execute(t, "", "exec", "-o", "list", "SELECT 1, 'a'; SELECT 2, 'b'")
	require.NoError(t, err)
	require.Equal(t, "2\tb\n", out)

	script := filepath.Join(t.TempDir(), "s.sql")
	require.NoError(t, os.WriteFile(script, []byte("CREATE TABLE t(a);\nINSERT INTO t VALUES (1), (2), (3);\n"), 0o644))
	out, err = execute(t, "", "exec", "-f", script)
	require.NoError(t, err)
	require.Equal(t, "OK (3 affected)\n", out)

	out, err = execute(t, "SELECT 40 + 2 AS answer", "exec", "-f", "-")
	require.NoError(t, err)
	require.Contains(t, out, "42")
	require.Contains(t, out, "(1 rows)")

	_, err = execute(t, "", "exec", "SELEC 1")
	require.Error(t, err)

	_, err = execute(t, "", "exec")
	require.ErrorContains(t, err, "no SQL given")
}

func TestSLT(t *testing.T) {
	dir := t.TempDir()
	good := "statement ok\nCREATE TABLE t(a INTEGER)\n\nstatement ok\nINSERT INTO t VALUES (1), (2)\n\nquery I rowsort\nSELECT a FROM t\n----\n1\n2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.test"), []byte(good), 0o644))

	out, err := execute(t, "", "slt", "--workers", "2", dir)
	require.NoError(t, err)
	require.Contains(t, out, "Files:      1/1 passed (100.0%)")

	bad := "query I nosort\nSELECT 1\n----\n2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.test"), []byte(bad), 0o644))
	out, err = execute(t, "", "slt", "--summary", dir)
	require.ErrorContains(t, err, "1 of 2 file(s) failed")
	require.Contains(t, out, "First failure: ")

	_, err = execute(t, "", "slt", filepath.Join(dir, "missing.test"))
	require.Error(t, err)
}

func TestBadConfig(t *testing.T) {
	_, err := execute(t, "", "--log-level", "loud")
	require.ErrorContains(t, err, "invalid log.level")
}
