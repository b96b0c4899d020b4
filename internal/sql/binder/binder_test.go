package binder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

func newCatalog(t *testing.T, ddl ...string) *catalog.Catalog {
	t.Helper()
	c := catalog.New()
	for _, sql := range ddl {
		stmt, err := parser.Parse(sql)
		require.NoError(t, err)
		switch s := stmt.(type) {
		case *parser.CreateTableStmt:
			_, err = c.CreateTable(s)
		case *parser.CreateViewStmt:
			err = c.CreateView(s)
		}
		require.NoError(t, err)
	}
	return c
}

func testCatalog(t *testing.T) *catalog.Catalog {
	return newCatalog(t,
		"CREATE TABLE t1(a INTEGER, b TEXT)",
		"CREATE TABLE t2(b INT, c TEXT COLLATE NOCASE)",
		"CREATE VIEW v1 AS SELECT a, b AS bb FROM t1",
	)
}

func bindSelect(t *testing.T, b *Binder, sql string) (*Query, error) {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	return b.BindSelect(stmt.(*parser.SelectStmt))
}

func mustSelect(t *testing.T, b *Binder, sql string) (*Query, *Select) {
	t.Helper()
	q, err := bindSelect(t, b, sql)
	require.NoError(t, err)
	sel, ok := q.Body.(*Select)
	require.True(t, ok)
	return q, sel
}

func TestResolveColumns(t *testing.T) {
	b := New(testCatalog(t), Options{})
	q, sel := mustSelect(t, b, "SELECT a, t2.b, c, t1.rowid FROM t1, t2")

	require.Equal(t, 6, sel.Width)
	idx := func(e Expr) int { return e.(*Column).Index }
	require.Equal(t, 0, idx(sel.Exprs[0]))
	require.Equal(t, 3, idx(sel.Exprs[1]))
	require.Equal(t, 4, idx(sel.Exprs[2]))
	require.Equal(t, 2, idx(sel.Exprs[3]))
	require.Equal(t, []string{"a", "b", "c", "rowid"}, []string{q.Columns[0].Name, q.Columns[1].Name, q.Columns[2].Name, q.Columns[3].Name})
	require.Equal(t, record.NoCase, q.Columns[2].Info.Collation)
	require.Equal(t, record.AffinityInteger, q.Columns[0].Info.Affinity)
}

func TestResolveErrors(t *testing.T) {
	b := New(testCatalog(t), Options{})
	tests := []struct {
		sql string
		msg string
	}{
		{"SELECT b FROM t1, t2", "ambiguous column name: b"},
		{"SELECT z FROM t1", "no such column: z"},
		{"SELECT t9.a FROM t1", "no such column: t9.a"},
		{"SELECT * FROM nope", "no such table: nope"},
		{"SELECT *", "no tables specified"},
		{"SELECT a FROM t1 WHERE count(*) > 1", "misuse of aggregate: count()"},
		{"SELECT a FROM t1 GROUP BY count(*)", "aggregate functions are not allowed in the GROUP BY clause"},
		{"SELECT sum(max(a)) FROM t1", "misuse of aggregate function max()"},
		{"SELECT a FROM t1 HAVING a > 1", "a GROUP BY clause is required before HAVING"},
		{"SELECT a FROM t1 UNION SELECT a, b FROM t1", "SELECTs to the left and right of UNION do not have the same number of result columns"},
		{"SELECT a FROM t1 ORDER BY 2", "1st ORDER BY term out of range - should be between 1 and 1"},
		{"SELECT a FROM t1 UNION SELECT b FROM t1 ORDER BY c", "1st ORDER BY term does not match any column in the result set"},
		{"SELECT a FROM t1 WHERE a IN (SELECT a, b FROM t1)", "sub-select returns 2 columns - expected 1"},
		{"SELECT nosuch(a) FROM t1", "no such function: nosuch"},
		{"SELECT a FROM t1 JOIN t2 USING (c)", "cannot join using column c - column not present in both tables"},
		{"SELECT a COLLATE klingon FROM t1", "no such collation sequence: klingon"},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			_, err := bindSelect(t, b, tt.sql)
			require.EqualError(t, err, tt.msg)
			require.ErrorIs(t, err, dberr.ErrBind)
		})
	}
}

func TestStarAndUsing(t *testing.T) {
	b := New(testCatalog(t), Options{})
	q, sel := mustSelect(t, b, "SELECT * FROM t1 JOIN t2 USING (b)")
	require.Len(t, q.Columns, 3)
	require.Equal(t, "c", q.Columns[2].Name)

	join := sel.From.(*JoinSource)
	on := join.On.(*Binary)
	require.Equal(t, parser.OpEq, on.Op)
	// INTEGER against TEXT compares numerically.
	require.True(t, on.Cmp.Apply)
	require.Equal(t, record.AffinityNumeric, on.Cmp.Affinity)

	q, _ = mustSelect(t, b, "SELECT t2.* FROM t1 NATURAL JOIN t2")
	require.Len(t, q.Columns, 2)

	_, sel = mustSelect(t, b, "SELECT b FROM t1 FULL JOIN t2 USING (b)")
	_, merged := sel.Exprs[0].(*Func)
	require.True(t, merged)
}

func TestComparisonAffinity(t *testing.T) {
	b := New(testCatalog(t), Options{})
	_, sel := mustSelect(t, b, "SELECT a FROM t1 WHERE a = '5'")
	eq := sel.Where.(*Binary)
	require.Equal(t, record.Int(5), eq.R.(*Const).Value)

	_, sel = mustSelect(t, b, "SELECT a FROM t1 WHERE b = 7")
	eq = sel.Where.(*Binary)
	require.Equal(t, record.Text("7"), eq.R.(*Const).Value)

	_, sel = mustSelect(t, b, "SELECT c FROM t2 WHERE c = 'x' AND c = 'y' COLLATE BINARY")
	terms := SplitAnd(sel.Where)
	require.Len(t, terms, 2)
	require.Equal(t, record.NoCase, terms[0].(*Binary).Cmp.Coll)
	require.Equal(t, record.Binary, terms[1].(*Binary).Cmp.Coll)

	_, sel = mustSelect(t, b, "SELECT a FROM t1 WHERE a IN ('1', 2.0, 'x')")
	in := sel.Where.(*InList)
	require.Equal(t, record.Int(1), in.List[0].(*Const).Value)
	require.Equal(t, record.Text("x"), in.List[2].(*Const).Value)

	_, sel = mustSelect(t, b, "SELECT a FROM t1 WHERE a BETWEEN 1 AND 3")
	require.Len(t, SplitAnd(sel.Where), 2)
}

func TestAggregates(t *testing.T) {
	b := New(testCatalog(t), Options{})
	_, sel := mustSelect(t, b, "SELECT b, count(*), max(a) + 1 FROM t1 GROUP BY b HAVING count(*) > 1")
	require.True(t, sel.Aggregated)
	require.Len(t, sel.GroupBy, 1)
	require.Len(t, sel.Aggs, 3)
	require.Equal(t, sel.Width, sel.Exprs[1].(*Column).Index)
	require.Equal(t, "count", sel.Aggs[0].Name)
	require.Empty(t, sel.Aggs[0].Args)

	_, sel = mustSelect(t, b, "SELECT count(DISTINCT a) FROM t1")
	require.True(t, sel.Aggs[0].Distinct)
	require.Nil(t, sel.GroupBy)

	_, sel = mustSelect(t, b, "SELECT a + 1 AS x FROM t1 GROUP BY 1")
	require.IsType(t, &Binary{}, sel.GroupBy[0])
}

func TestStrictGrouping(t *testing.T) {
	lenient := New(testCatalog(t), Options{})
	_, err := bindSelect(t, lenient, "SELECT a, b FROM t1 GROUP BY a")
	require.NoError(t, err)

	strict := New(testCatalog(t), Options{StrictGrouping: true})
	_, err = bindSelect(t, strict, "SELECT a, b FROM t1 GROUP BY a")
	require.EqualError(t, err, "column b must appear in the GROUP BY clause or be used in an aggregate function")

	_, err = bindSelect(t, strict, "SELECT a, count(b) FROM t1 GROUP BY a")
	require.NoError(t, err)
	_, err = bindSelect(t, strict, "SELECT a + b, count(*) FROM t1 GROUP BY a + b")
	require.NoError(t, err)
	_, err = bindSelect(t, strict, "SELECT a, count(*) FROM t1")
	require.Error(t, err)
}

func TestOrderBy(t *testing.T) {
	b := New(testCatalog(t), Options{})
	q, sel := mustSelect(t, b, "SELECT a AS x, b FROM t1 ORDER BY x DESC, 2, a + 1, b COLLATE nocase")
	require.Equal(t, 2, sel.NumOutputs)
	require.Len(t, sel.Exprs, 3)
	require.Equal(t, []SortKey{
		{Index: 0, Desc: true, NullsFirst: false},
		{Index: 1, NullsFirst: true},
		{Index: 2, NullsFirst: true},
		{Index: 1, NullsFirst: true, Coll: record.NoCase},
	}, q.OrderBy)

	q, err := bindSelect(t, b, "SELECT a FROM t1 UNION SELECT b FROM t2 ORDER BY a NULLS LAST")
	require.NoError(t, err)
	_, ok := q.Body.(*Compound)
	require.True(t, ok, "got %T", q.Body)
	require.Len(t, q.OrderBy, 1)
	require.Equal(t, 0, q.OrderBy[0].Index)
	require.False(t, q.OrderBy[0].NullsFirst)
}

func TestSubqueries(t *testing.T) {
	b := New(testCatalog(t), Options{})
	_, sel := mustSelect(t, b, "SELECT a FROM t1 WHERE EXISTS (SELECT 1 FROM t2 WHERE t2.b = t1.a)")
	ex := sel.Where.(*Exists)
	require.True(t, ex.Sub.Correlated)
	require.Equal(t, []int{0}, ex.Sub.Uses)
	require.Equal(t, []int{0}, ColumnsUsed(sel.Where))

	inner := ex.Sub.Query.Body.(*Select)
	outer := inner.Where.(*Binary).R.(*Outer)
	require.Equal(t, 1, outer.Depth)
	require.Equal(t, 0, outer.Index)

	_, sel = mustSelect(t, b, "SELECT (SELECT max(b) FROM t2) FROM t1")
	sub := sel.Exprs[0].(*ScalarSub)
	require.False(t, sub.Sub.Correlated)
	require.True(t, IsConstant(sel.Exprs[0]))

	// a reference two levels up marks both subqueries correlated
	_, sel = mustSelect(t, b, "SELECT a FROM t1 WHERE a IN (SELECT b FROM t2 WHERE EXISTS (SELECT 1 FROM t2 AS x WHERE x.b = t1.a))")
	in := sel.Where.(*InSelect)
	require.True(t, in.Sub.Correlated)
	require.Equal(t, []int{0}, in.Sub.Uses)
	mid := in.Sub.Query.Body.(*Select).Where.(*Exists)
	require.True(t, mid.Sub.Correlated)
	require.Empty(t, mid.Sub.Uses)
}

func TestViewsAndCTEs(t *testing.T) {
	b := New(testCatalog(t), Options{})
	q, sel := mustSelect(t, b, "SELECT bb, a FROM v1 WHERE a > 0")
	require.Equal(t, "bb", q.Columns[0].Name)
	require.IsType(t, &SubquerySource{}, sel.From)

	q, _ = mustSelect(t, b, "WITH c(x, y) AS (SELECT a, b FROM t1), d AS (SELECT x FROM c) SELECT x FROM d")
	require.Equal(t, "x", q.Columns[0].Name)

	_, err := bindSelect(t, b, "WITH c(x) AS (SELECT a, b FROM t1) SELECT x FROM c")
	require.EqualError(t, err, "table c has 2 values for 1 columns")

	q, _ = mustSelect(t, b, "SELECT * FROM (SELECT a, a FROM t1) AS s")
	require.Len(t, q.Columns, 2)

	q, sel = mustSelect(t, b, "VALUES (1, 'a'), (2, 'b')")
	require.Len(t, sel.Values, 2)
	require.Equal(t, "column2", q.Columns[1].Name)
}

func TestBindDML(t *testing.T) {
	c := newCatalog(t, "CREATE TABLE t(id INTEGER PRIMARY KEY, v TEXT DEFAULT 'x', n INT CHECK (n > 0))")
	b := New(c, Options{})

	parse := func(sql string) parser.Statement {
		stmt, err := parser.Parse(sql)
		require.NoError(t, err)
		return stmt
	}

	ins, err := b.BindInsert(parse("INSERT INTO t(v, n) VALUES ('a', 1), ('b', 2)").(*parser.InsertStmt))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, ins.Columns)
	require.Len(t, ins.Rows, 2)
	require.NotNil(t, ins.Defaults[1])
	require.Len(t, ins.Checks, 1)
	require.Equal(t, "(n > 0)", ins.Checks[0].Text)

	ins, err = b.BindInsert(parse("INSERT INTO t DEFAULT VALUES").(*parser.InsertStmt))
	require.NoError(t, err)
	require.True(t, ins.DefaultValues)
	require.Empty(t, ins.Columns)
	require.Len(t, ins.Defaults, 3)

	_, err = b.BindInsert(parse("INSERT INTO t VALUES (1, 2)").(*parser.InsertStmt))
	require.EqualError(t, err, "table t has 3 columns but 2 values were supplied")
	_, err = b.BindInsert(parse("INSERT INTO t(v) VALUES (1, 2)").(*parser.InsertStmt))
	require.EqualError(t, err, "2 values for 1 columns")
	_, err = b.BindInsert(parse("INSERT INTO t(zz) VALUES (1)").(*parser.InsertStmt))
	require.EqualError(t, err, "table t has no column named zz")
	_, err = b.BindInsert(parse("INSERT INTO nope VALUES (1)").(*parser.InsertStmt))
	require.EqualError(t, err, "no such table: nope")

	up, err := b.BindUpdate(parse("UPDATE t SET n = n + 1, v = 'z' WHERE id = 3").(*parser.UpdateStmt))
	require.NoError(t, err)
	require.Len(t, up.Set, 2)
	require.Equal(t, 2, up.Set[0].Column)
	require.Equal(t, 0, up.Where.(*Binary).L.(*Column).Index)

	_, err = b.BindUpdate(parse("UPDATE t SET zz = 1").(*parser.UpdateStmt))
	require.EqualError(t, err, "no such column: zz")

	del, err := b.BindDelete(parse("DELETE FROM t WHERE rowid > 2").(*parser.DeleteStmt))
	require.NoError(t, err)
	require.Equal(t, 3, del.Where.(*Binary).L.(*Column).Index)
}
