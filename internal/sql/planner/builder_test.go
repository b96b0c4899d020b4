package planner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

func setup(t *testing.T, opts Options, ddl ...string) (*catalog.Catalog, *Builder) {
	t.Helper()
	cat := catalog.New()
	for _, sql := range ddl {
		stmt, err := parser.Parse(sql)
		require.NoError(t, err)
		switch s := stmt.(type) {
		case *parser.CreateTableStmt:
			_, err = cat.CreateTable(s)
		case *parser.CreateIndexStmt:
			err = cat.CreateIndex(s)
		}
		require.NoError(t, err)
	}
	return cat, NewBuilder(cat, binder.New(cat, binder.Options{}), opts)
}

func fill(t *testing.T, cat *catalog.Catalog, table string, n int) {
	t.Helper()
	tbl, ok := cat.Table(table)
	require.True(t, ok)
	j := heap.NewJournal()
	for i := 0; i < n; i++ {
		row := make(record.Row, tbl.Schema.NumCols())
		for c := range row {
			row[c] = record.Int(int64(i))
		}
		_, err := tbl.Insert(j, row, parser.ConflictAbort)
		require.NoError(t, err)
	}
	j.Commit()
}

func build(t *testing.T, b *Builder, sql string) Plan {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	p, err := b.BuildPlan(stmt)
	require.NoError(t, err)
	return p
}

// queryRoot returns the operator below the final Project.
func queryRoot(t *testing.T, b *Builder, sql string) Node {
	t.Helper()
	qp, ok := build(t, b, sql).(*QueryPlan)
	require.True(t, ok)
	proj, ok := qp.Root.(*Project)
	require.True(t, ok, "root is %T", qp.Root)
	return proj.Input
}

func TestBuildPlan_Statements(t *testing.T) {
	_, b := setup(t, DefaultOptions(), "CREATE TABLE t(a INT, b TEXT)")

	{
		p := build(t, b, "CREATE TABLE u(x)")
		plan, ok := p.(*CreateTablePlan)
		require.True(t, ok)
		require.Equal(t, "u", plan.Stmt.Name)
		require.Nil(t, plan.Query)
	}
	{
		p := build(t, b, "CREATE TABLE u AS SELECT a, b FROM t")
		plan, ok := p.(*CreateTablePlan)
		require.True(t, ok)
		require.NotNil(t, plan.Query)
		require.Len(t, plan.Query.Columns, 2)
	}
	{
		p := build(t, b, "DROP TABLE IF EXISTS t")
		plan, ok := p.(*DropTablePlan)
		require.True(t, ok)
		require.Equal(t, "t", plan.TableName)
		require.True(t, plan.IfExists)
	}
	{
		p := build(t, b, "CREATE INDEX ta ON t(a)")
		require.IsType(t, &CreateIndexPlan{}, p)
		require.IsType(t, &DropIndexPlan{}, build(t, b, "DROP INDEX ta"))
		require.IsType(t, &TransactionPlan{}, build(t, b, "BEGIN"))
	}
	{
		p := build(t, b, "INSERT INTO t SELECT a, b FROM t")
		plan, ok := p.(*InsertPlan)
		require.True(t, ok)
		require.Equal(t, []int{0, 1}, plan.Columns)
		require.NotNil(t, plan.Query)
	}
	{
		p := build(t, b, "DELETE FROM t WHERE a = 1")
		plan, ok := p.(*DeletePlan)
		require.True(t, ok)
		scan, ok := plan.Input.(*Scan)
		require.True(t, ok)
		require.NotNil(t, scan.Filter)
		require.Equal(t, 3, scan.Width)
	}
}

func TestBuildPlan_CreateViewChecksColumns(t *testing.T) {
	_, b := setup(t, DefaultOptions(), "CREATE TABLE t(a INT, b TEXT)")

	require.IsType(t, &CreateViewPlan{}, build(t, b, "CREATE VIEW v(x, y) AS SELECT a, b FROM t"))

	stmt, err := parser.Parse("CREATE VIEW v(x) AS SELECT a, b FROM t")
	require.NoError(t, err)
	_, err = b.BuildPlan(stmt)
	require.EqualError(t, err, "expected 1 columns for 'v' but got 2")

	stmt, err = parser.Parse("CREATE VIEW v AS SELECT nope FROM t")
	require.NoError(t, err)
	_, err = b.BuildPlan(stmt)
	require.EqualError(t, err, "no such column: nope")
}

func TestPushdown_InnerJoin(t *testing.T) {
	_, b := setup(t, Options{}, "CREATE TABLE t1(a INT, b TEXT)", "CREATE TABLE t2(b INT, c TEXT)")

	n := queryRoot(t, b, "SELECT * FROM t1, t2 WHERE t1.a = 1 AND t2.b > t1.a AND t2.c = 'x'")
	join, ok := n.(*Join)
	require.True(t, ok, "got %T", n)
	require.Equal(t, parser.JoinInner, join.Kind)
	require.Empty(t, join.LeftKeys)
	require.Equal(t, "(t2.b > t1.a)", binder.Format(join.Cond))
	require.Equal(t, []Span{{Lo: 3, Hi: 6}}, join.RightSpans)

	left := join.Left.(*Scan)
	require.Equal(t, "t1", left.Source.Name)
	require.Equal(t, "(t1.a = 1)", binder.Format(left.Filter))
	right := join.Right.(*Scan)
	require.Equal(t, "(t2.c = 'x')", binder.Format(right.Filter))
}

func TestHashJoinKeys(t *testing.T) {
	_, b := setup(t, DefaultOptions(), "CREATE TABLE t1(a INT, b TEXT)", "CREATE TABLE t2(b INT, c TEXT)")

	n := queryRoot(t, b, "SELECT t1.a FROM t1 JOIN t2 ON t2.b = t1.a AND t1.b < t2.c")
	join := n.(*Join)
	require.Len(t, join.LeftKeys, 1)
	require.Equal(t, "t1.a", binder.Format(join.LeftKeys[0]))
	require.Equal(t, "t2.b", binder.Format(join.RightKeys[0]))
	require.Equal(t, "(t1.b < t2.c)", binder.Format(join.Cond))

	_, noHash := setup(t, Options{}, "CREATE TABLE t1(a INT, b TEXT)", "CREATE TABLE t2(b INT, c TEXT)")
	join = queryRoot(t, noHash, "SELECT t1.a FROM t1 JOIN t2 ON t2.b = t1.a").(*Join)
	require.Empty(t, join.LeftKeys)
	require.NotNil(t, join.Cond)
}

func TestPushdown_LeftJoin(t *testing.T) {
	_, b := setup(t, DefaultOptions(), "CREATE TABLE t1(a INT, b TEXT)", "CREATE TABLE t2(b INT, c TEXT)")

	n := queryRoot(t, b, `SELECT * FROM t1 LEFT JOIN t2 ON t1.a = t2.b AND t2.c = 'x' AND t1.b = 'y'
		WHERE t2.c IS NULL AND t1.a > 0`)
	filter, ok := n.(*Filter)
	require.True(t, ok, "got %T", n)
	require.Equal(t, "(t2.c IS NULL)", binder.Format(filter.Cond))

	join := filter.Input.(*Join)
	require.Equal(t, parser.JoinLeft, join.Kind)
	require.Len(t, join.LeftKeys, 1)
	// an ON condition on the preserved side stays in the join
	require.Equal(t, "(t1.b = 'y')", binder.Format(join.Cond))
	require.Equal(t, "(t1.a > 0)", binder.Format(join.Left.(*Scan).Filter))
	require.Equal(t, "(t2.c = 'x')", binder.Format(join.Right.(*Scan).Filter))
}

func TestPushdown_FullJoinKeepsConditionsAbove(t *testing.T) {
	_, b := setup(t, DefaultOptions(), "CREATE TABLE t1(a INT)", "CREATE TABLE t2(b INT)")

	n := queryRoot(t, b, "SELECT * FROM t1 FULL JOIN t2 ON t1.a = t2.b WHERE t1.a > 0")
	filter := n.(*Filter)
	join := filter.Input.(*Join)
	require.Equal(t, parser.JoinFull, join.Kind)
	require.Nil(t, join.Left.(*Scan).Filter)
	require.Nil(t, join.Right.(*Scan).Filter)
}

func TestIndexSelection(t *testing.T) {
	cat, b := setup(t, DefaultOptions(),
		"CREATE TABLE t(id INTEGER PRIMARY KEY, v TEXT UNIQUE, n INT, w BLOB)",
		"CREATE INDEX tn ON t(n)",
		"CREATE INDEX tw ON t(w)",
	)
	fill(t, cat, "t", 50)

	tests := []struct {
		name  string
		where string
		check func(t *testing.T, n Node)
	}{
		{"rowid alias", "id = 5", func(t *testing.T, n Node) {
			s := n.(*IndexScan)
			require.Nil(t, s.Index)
			require.Len(t, s.Eq, 1)
		}},
		{"rowid reversed", "7 = rowid", func(t *testing.T, n Node) {
			require.Nil(t, n.(*IndexScan).Index)
		}},
		{"unique text", "v = 'a'", func(t *testing.T, n Node) {
			s := n.(*IndexScan)
			require.True(t, s.Index.Unique)
		}},
		{"range", "n > 3 AND n <= 10", func(t *testing.T, n Node) {
			s := n.(*IndexScan)
			require.Equal(t, "tn", s.Index.Name)
			require.NotNil(t, s.Lo)
			require.False(t, s.Lo.Inclusive)
			require.True(t, s.Hi.Inclusive)
			require.Empty(t, s.Eq)
		}},
		{"flipped range", "3 < n", func(t *testing.T, n Node) {
			s := n.(*IndexScan)
			require.NotNil(t, s.Lo)
			require.Nil(t, s.Hi)
		}},
		{"numeric comparison on text column", "v = CAST(3 AS INTEGER)", func(t *testing.T, n Node) {
			require.IsType(t, &Scan{}, n)
		}},
		{"collation mismatch", "v = 'a' COLLATE nocase", func(t *testing.T, n Node) {
			require.IsType(t, &Scan{}, n)
		}},
		{"no usable term", "n + 1 = 3", func(t *testing.T, n Node) {
			require.IsType(t, &Scan{}, n)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := queryRoot(t, b, "SELECT * FROM t WHERE "+tt.where)
			tt.check(t, n)
		})
	}
}

func TestJoinReorder(t *testing.T) {
	ddl := []string{"CREATE TABLE big(a INT)", "CREATE TABLE small(b INT)"}
	cat, b := setup(t, DefaultOptions(), ddl...)
	fill(t, cat, "big", 100)
	fill(t, cat, "small", 2)

	join := queryRoot(t, b, "SELECT * FROM big, small WHERE big.a = small.b").(*Join)
	require.Equal(t, "small", join.Left.(*Scan).Source.Name)

	cat, fixed := setup(t, Options{HashJoin: true}, ddl...)
	fill(t, cat, "big", 100)
	fill(t, cat, "small", 2)
	join = queryRoot(t, fixed, "SELECT * FROM big, small WHERE big.a = small.b").(*Join)
	require.Equal(t, "big", join.Left.(*Scan).Source.Name)
}

func TestQueryShape(t *testing.T) {
	_, b := setup(t, DefaultOptions(), "CREATE TABLE t(a INT, b TEXT)")

	qp := build(t, b, "SELECT DISTINCT b FROM t WHERE a > 1 ORDER BY a LIMIT 2 OFFSET 1").(*QueryPlan)
	trim, ok := qp.Root.(*Trim)
	require.True(t, ok)
	require.Equal(t, 1, trim.N)
	limit := trim.Input.(*Limit)
	sort := limit.Input.(*Sort)
	require.Equal(t, 1, sort.Keys[0].Index)
	distinct := sort.Input.(*Distinct)
	require.Len(t, distinct.Colls, 1)

	qp = build(t, b, "SELECT b, count(*) FROM t GROUP BY b HAVING count(*) > 1").(*QueryPlan)
	filter := qp.Root.(*Project).Input.(*Filter)
	agg := filter.Input.(*Aggregate)
	require.Equal(t, 3, agg.Width)
	require.Len(t, agg.GroupBy, 1)

	qp = build(t, b, "SELECT a FROM t UNION SELECT 1 ORDER BY 1").(*QueryPlan)
	setop := qp.Root.(*Sort).Input.(*SetOp)
	require.Equal(t, parser.SetUnion, setop.Op)
	require.IsType(t, &Values{}, setop.Right.(*Project).Input)

	qp = build(t, b, "SELECT x FROM (SELECT a AS x FROM t) WHERE x = 3").(*QueryPlan)
	sub := qp.Root.(*Project).Input.(*SubqueryScan)
	require.NotNil(t, sub.Filter)
	require.IsType(t, &Project{}, sub.Input)
}

func TestExplain(t *testing.T) {
	cat, b := setup(t, DefaultOptions(),
		"CREATE TABLE t1(a INTEGER PRIMARY KEY, b TEXT)",
		"CREATE TABLE t2(b INT, c TEXT)",
	)
	fill(t, cat, "t1", 3)

	lines := Explain(build(t, b, "EXPLAIN SELECT t2.c FROM t1 JOIN t2 ON t1.b = t2.c WHERE t1.a = 2"))
	text := strings.Join(lines, "\n")
	require.Contains(t, lines[0], "PROJECT t2.c")
	require.Contains(t, text, "HASH INNER JOIN ON t1.b = t2.c")
	require.Contains(t, text, "SEARCH t1 USING ROWID")
	require.Contains(t, text, "    SCAN t2")

	lines = Explain(build(t, b, "UPDATE t2 SET c = 'x' WHERE b = 1"))
	require.Equal(t, []string{"UPDATE t2 SET c = 'x'", "  SCAN t2 WHERE (t2.b = 1)"}, lines)
}
