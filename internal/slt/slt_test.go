package slt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novalite/internal/record"
)

const passingFile = `# basic coverage
hash-threshold 8

statement ok
CREATE TABLE t1(a INTEGER, b INTEGER, c TEXT)

statement ok
INSERT INTO t1 VALUES(1, 2, 'x'), (3, 4, ''), (5, NULL, 'z')

statement error
CREATE TABLE t1(a)

query IIT rowsort
SELECT a, b, c FROM t1
----
5
NULL
z
1
2
x
3
4
(empty)

query I valuesort
SELECT a FROM t1 UNION ALL SELECT b FROM t1 WHERE b IS NOT NULL
----
5
4
3
2
1

query R nosort
SELECT a * 1.5 FROM t1 ORDER BY a
----
1.500
4.500
7.500

query IT nosort
SELECT a, c FROM t1 WHERE a < 4 ORDER BY a
----
1|x
3|(empty)

skipif sqlite
query I nosort
SELECT nope
----
1

onlyif mysql
statement ok
THIS IS NOT SQL

query II rowsort label-1
SELECT a, a + 1 FROM t1
----
6 values hashing to f3a4562cd2134c76b4ff170ce6f28fee

query II rowsort label-1
SELECT a, a + 1 FROM t1 ORDER BY a DESC
----
6 values hashing to f3a4562cd2134c76b4ff170ce6f28fee

halt

statement ok
NOT REACHED
`

const failingFile = `statement ok
CREATE TABLE t(x)

statement ok
INSERT INTO t VALUES (1)

query I nosort
SELECT x FROM t
----
2

statement ok
SELECT * FROM missing

query I nosort
SELECT x FROM t
----
1 values hashing to 00000000000000000000000000000000
`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParse(t *testing.T) {
	recs, err := Parse(strings.NewReader(passingFile), "sqlite")
	require.NoError(t, err)
	require.Len(t, recs, 9)

	require.Equal(t, KindStatement, recs[0].Kind)
	require.Equal(t, 4, recs[0].Line)
	require.False(t, recs[0].ExpectError)
	require.True(t, recs[2].ExpectError)

	q := recs[3]
	require.Equal(t, KindQuery, q.Kind)
	require.Equal(t, "IIT", q.Types)
	require.Equal(t, RowSort, q.Sort)
	require.Equal(t, 8, q.HashThreshold)
	require.Len(t, q.Expected, 9)

	require.Equal(t, []string{"1", "x", "3", "(empty)"}, recs[6].Expected)

	h := recs[7]
	require.True(t, h.Hashed())
	require.Equal(t, 6, h.HashCount)
	require.Equal(t, "label-1", h.Label)
	require.Empty(t, h.Expected)

	for _, r := range recs {
		require.NotContains(t, r.SQL, "NOT REACHED")
		require.NotContains(t, r.SQL, "nope")
		require.NotContains(t, r.SQL, "THIS IS NOT SQL")
	}

	// the same file read for another engine keeps the guarded records
	recs, err = Parse(strings.NewReader(passingFile), "mysql")
	require.NoError(t, err)
	require.Len(t, recs, 11)
}

func TestFormat(t *testing.T) {
	cases := []struct {
		v    record.Value
		typ  byte
		want string
	}{
		{record.Null, 'I', "NULL"},
		{record.Int(7), 'I', "7"},
		{record.Real(2.9), 'I', "2"},
		{record.Text("12abc"), 'I', "12"},
		{record.Int(3), 'R', "3.000"},
		{record.Real(1.0 / 3), 'R', "0.333"},
		{record.Text(""), 'T', "(empty)"},
		{record.Text("a\tb"), 'T', "a@b"},
		{record.Real(1.5), 'T', "1.5"},
		{record.Blob([]byte("hi")), 'T', "hi"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Format(c.v, c.typ), "%v as %c", c.v, c.typ)
	}
}

func TestNormalizeAndArrange(t *testing.T) {
	require.Equal(t, "NULL", normalize("", 'T'))
	require.Equal(t, "3", normalize("3.0", 'I'))
	require.Equal(t, "2.0", normalize("2.000", 'R'))
	require.Equal(t, "0.5", normalize("0.500", 'R'))
	require.Equal(t, "abc", normalize(" abc ", 'T'))

	vals := []string{"b", "2", "a", "1"}
	require.Equal(t, []string{"a", "1", "b", "2"}, arrange(vals, 2, RowSort))
	require.Equal(t, []string{"1", "2", "a", "b"}, arrange(vals, 2, ValueSort))
	require.Equal(t, vals, arrange(vals, 2, NoSort))

	require.Equal(t, "dd8c6a395b5dd36c56d23275028f526c", Hash([]string{"a", "b"}))
}

func TestRunner_Passing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "basic.test", passingFile)

	res := NewRunner(DefaultOptions()).RunFile(context.Background(), path)
	require.NoError(t, res.Err)
	require.Empty(t, res.Failures)
	require.True(t, res.Passed())
	require.Equal(t, 3, res.Statements)
	require.Equal(t, 6, res.Queries)
}

func TestRunner_Failing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.test", failingFile)

	res := NewRunner(DefaultOptions()).RunFile(context.Background(), path)
	require.False(t, res.Passed())
	require.Equal(t, 1, res.FailedStatements)
	require.Equal(t, 2, res.FailedQueries)
	require.Len(t, res.Failures, 3)
	require.Equal(t, 7, res.Failures[0].Line)
	require.Contains(t, res.Failures[0].Msg, "mismatch at row 0, col 0: got '1', expected '2'")
	require.Contains(t, res.Failures[1].Msg, "no such table: missing")
	require.Contains(t, res.Failures[2].Msg, "expected hash")

	opts := DefaultOptions()
	opts.FailFast = true
	res = NewRunner(opts).RunFile(context.Background(), path)
	require.Len(t, res.Failures, 1)
}

func TestRunner_RunAndReport(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "a/select1.test", passingFile)
	bad := writeFile(t, dir, "b/select2.test", failingFile)
	writeFile(t, dir, "b/notes.txt", "ignored")

	files, err := FindFiles(dir, "")
	require.NoError(t, err)
	require.Equal(t, []string{good, bad}, files)

	files, err = FindFiles(dir, "select2")
	require.NoError(t, err)
	require.Equal(t, []string{bad}, files)

	opts := DefaultOptions()
	opts.Workers = 2
	rep, err := NewRunner(opts).Run(context.Background(), []string{good, bad})
	require.NoError(t, err)
	require.False(t, rep.Passed())
	require.True(t, rep.Files[0].Passed())
	require.False(t, rep.Files[1].Passed())

	nfiles, passed, stmts, failedStmts, queries, failedQueries := rep.Totals()
	require.Equal(t, 2, nfiles)
	require.Equal(t, 1, passed)
	require.Equal(t, 6, stmts)
	require.Equal(t, 1, failedStmts)
	require.Equal(t, 8, queries)
	require.Equal(t, 2, failedQueries)

	var out bytes.Buffer
	rep.Print(&out, false)
	text := out.String()
	require.Contains(t, text, "PASS (3 stmt, 6 queries)")
	require.Contains(t, text, "Files:      1/2 passed (50.0%)")
	require.Contains(t, text, "Statements: 5/6 passed")
	require.Contains(t, text, "Queries:    6/8 passed")
	require.Contains(t, text, "First failure: "+bad+":7")
}

func TestRunner_Oracle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "basic.test", passingFile)

	opts := DefaultOptions()
	opts.Oracle = true
	res := NewRunner(opts).RunFile(context.Background(), path)
	require.NoError(t, res.Err)
	require.True(t, res.Passed())
	require.Empty(t, res.Divergences)
}
