package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

func createTable(t *testing.T, c *Catalog, sql string) *Table {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	tbl, err := c.CreateTable(stmt.(*parser.CreateTableStmt))
	require.NoError(t, err)
	return tbl
}

func rows(t *testing.T, tbl *Table) []record.Row {
	t.Helper()
	var out []record.Row
	require.NoError(t, tbl.Heap.Scan(func(_ heap.RowID, r record.Row) error {
		out = append(out, r)
		return nil
	}))
	return out
}

func TestCreateTable_SchemaAndAliases(t *testing.T) {
	c := New()
	tbl := createTable(t, c, "CREATE TABLE t1(id INTEGER PRIMARY KEY, name TEXT UNIQUE, score REAL, blob, n NUMERIC)")

	require.Equal(t, 0, tbl.RowidAlias)
	require.Equal(t, []record.Affinity{
		record.AffinityInteger, record.AffinityText, record.AffinityReal, record.AffinityNone, record.AffinityNumeric,
	}, []record.Affinity{
		tbl.Schema.Cols[0].Affinity, tbl.Schema.Cols[1].Affinity, tbl.Schema.Cols[2].Affinity,
		tbl.Schema.Cols[3].Affinity, tbl.Schema.Cols[4].Affinity,
	})
	require.Len(t, tbl.Indexes, 1)
	require.True(t, tbl.Indexes[0].Auto)

	_, err := c.CreateTable(&parser.CreateTableStmt{Name: "T1"})
	require.True(t, errors.Is(err, dberr.ErrSchema))
	require.ErrorIs(t, err, ErrTableExists)

	tbl2, err := c.CreateTable(&parser.CreateTableStmt{Name: "t1", IfNotExists: true})
	require.NoError(t, err)
	require.Nil(t, tbl2)

	stmt, err := parser.Parse("CREATE TABLE t2(a, A)")
	require.NoError(t, err)
	_, err = c.CreateTable(stmt.(*parser.CreateTableStmt))
	require.True(t, errors.Is(err, dberr.ErrSchema))
}

func TestInsert_AffinityAndRowid(t *testing.T) {
	c := New()
	tbl := createTable(t, c, "CREATE TABLE t(id INTEGER PRIMARY KEY, v TEXT, n INTEGER)")
	j := heap.NewJournal()

	_, err := tbl.Insert(j, record.Row{record.Null, record.Int(5), record.Text("12")}, parser.ConflictAbort)
	require.NoError(t, err)
	_, err = tbl.Insert(j, record.Row{record.Text("10"), record.Real(1.5), record.Text("x")}, parser.ConflictAbort)
	require.NoError(t, err)
	_, err = tbl.Insert(j, record.Row{record.Null, record.Null, record.Null}, parser.ConflictAbort)
	require.NoError(t, err)

	got := rows(t, tbl)
	require.Equal(t, []record.Row{
		{record.Int(1), record.Text("5"), record.Int(12)},
		{record.Int(10), record.Text("1.5"), record.Text("x")},
		{record.Int(11), record.Null, record.Null},
	}, got)

	_, err = tbl.Insert(j, record.Row{record.Text("abc"), record.Null, record.Null}, parser.ConflictAbort)
	require.True(t, errors.Is(err, dberr.ErrConstraint))
}

func TestInsert_ConstraintsAndRollback(t *testing.T) {
	c := New()
	tbl := createTable(t, c, "CREATE TABLE t(a INT NOT NULL, b TEXT, UNIQUE(b))")

	j := heap.NewJournal()
	_, err := tbl.Insert(j, record.Row{record.Int(1), record.Text("x")}, parser.ConflictAbort)
	require.NoError(t, err)
	_, err = tbl.Insert(j, record.Row{record.Int(2), record.Null}, parser.ConflictAbort)
	require.NoError(t, err)
	_, err = tbl.Insert(j, record.Row{record.Int(3), record.Null}, parser.ConflictAbort)
	require.NoError(t, err, "NULLs never clash in a unique index")
	j.Commit()

	j = heap.NewJournal()
	_, err = tbl.Insert(j, record.Row{record.Int(4), record.Text("y")}, parser.ConflictAbort)
	require.NoError(t, err)
	_, err = tbl.Insert(j, record.Row{record.Null, record.Text("z")}, parser.ConflictAbort)
	require.EqualError(t, err, "NOT NULL constraint failed: t.a")
	j.Rollback()
	require.Len(t, rows(t, tbl), 3)
	require.Equal(t, 3, tbl.Indexes[0].Len())

	j = heap.NewJournal()
	_, err = tbl.Insert(j, record.Row{record.Int(9), record.Text("x")}, parser.ConflictAbort)
	require.EqualError(t, err, "UNIQUE constraint failed: t.b")

	ok, err := tbl.Insert(j, record.Row{record.Int(9), record.Text("x")}, parser.ConflictIgnore)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = tbl.Insert(j, record.Row{record.Int(9), record.Text("x")}, parser.ConflictReplace)
	require.NoError(t, err)
	require.True(t, ok)
	j.Commit()

	var as []int64
	for _, r := range rows(t, tbl) {
		as = append(as, r[0].Int())
	}
	require.ElementsMatch(t, []int64{2, 3, 9}, as)
}

func TestUpdateAndDelete(t *testing.T) {
	c := New()
	tbl := createTable(t, c, "CREATE TABLE t(id INTEGER PRIMARY KEY, v)")
	j := heap.NewJournal()
	for i := 1; i <= 3; i++ {
		_, err := tbl.Insert(j, record.Row{record.Int(int64(i)), record.Int(int64(i * 10))}, parser.ConflictAbort)
		require.NoError(t, err)
	}
	j.Commit()

	_, err := tbl.Update(j, 1, record.Row{record.Int(2), record.Int(0)}, parser.ConflictAbort)
	require.EqualError(t, err, "UNIQUE constraint failed: t.id")

	ok, err := tbl.Update(j, 1, record.Row{record.Int(7), record.Int(70)}, parser.ConflictAbort)
	require.NoError(t, err)
	require.True(t, ok)
	_, found := tbl.Heap.Get(7)
	require.True(t, found)

	require.NoError(t, tbl.Delete(j, 2))
	require.Equal(t, 2, tbl.Cardinality())

	j.Rollback()
	require.Equal(t, []record.Row{
		{record.Int(1), record.Int(10)},
		{record.Int(2), record.Int(20)},
		{record.Int(3), record.Int(30)},
	}, rows(t, tbl))
}

func TestIndexesAndViews(t *testing.T) {
	c := New()
	tbl := createTable(t, c, "CREATE TABLE t(a, b)")
	j := heap.NewJournal()
	for _, v := range []int64{1, 1, 2} {
		_, err := tbl.Insert(j, record.Row{record.Int(v), record.Int(v)}, parser.ConflictAbort)
		require.NoError(t, err)
	}

	stmt, err := parser.Parse("CREATE UNIQUE INDEX ua ON t(a)")
	require.NoError(t, err)
	err = c.CreateIndex(stmt.(*parser.CreateIndexStmt))
	require.True(t, errors.Is(err, dberr.ErrConstraint))
	_, ok := c.Index("ua")
	require.False(t, ok)

	stmt, err = parser.Parse("CREATE INDEX ib ON t(b DESC)")
	require.NoError(t, err)
	require.NoError(t, c.CreateIndex(stmt.(*parser.CreateIndexStmt)))
	ix, ok := c.Index("IB")
	require.True(t, ok)
	require.Equal(t, 3, ix.Len())

	require.NoError(t, c.DropIndex("ib", false))
	require.Empty(t, tbl.Indexes)
	require.True(t, errors.Is(c.DropIndex("ib", false), dberr.ErrNotFound))
	require.NoError(t, c.DropIndex("ib", true))

	vs, err := parser.Parse("CREATE VIEW v AS SELECT a FROM t")
	require.NoError(t, err)
	require.NoError(t, c.CreateView(vs.(*parser.CreateViewStmt)))
	_, err = c.CreateTable(&parser.CreateTableStmt{Name: "v"})
	require.ErrorIs(t, err, ErrViewExists)
	require.NoError(t, c.DropView("v", false))

	require.NoError(t, c.DropTable("t", false))
	require.True(t, errors.Is(c.DropTable("t", false), dberr.ErrNotFound))
	require.Empty(t, c.TableNames())
}
