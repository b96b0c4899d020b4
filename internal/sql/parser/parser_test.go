package parser

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
)

func mustParse(t *testing.T, sql string) Statement {
	t.Helper()
	stmt, err := Parse(sql)
	require.NoError(t, err)
	return stmt
}

func TestLexer_Tokens(t *testing.T) {
	l := NewLexer("SELECT a<>b, 'it''s', x'0aFF', 1.5e3, 0x1F, \"Col\" -- trailing\n/* block */ ||")
	var types []TokenType
	var lits []string
	for {
		tok := l.NextToken()
		if tok.Type == TOKEN_EOF {
			break
		}
		types = append(types, tok.Type)
		lits = append(lits, tok.Literal)
	}
	require.NoError(t, l.Err())
	require.Equal(t, []TokenType{
		TOKEN_IDENT, TOKEN_IDENT, TOKEN_NE, TOKEN_IDENT, TOKEN_COMMA, TOKEN_STRING, TOKEN_COMMA,
		TOKEN_BLOB, TOKEN_COMMA, TOKEN_FLOAT, TOKEN_COMMA, TOKEN_INTEGER, TOKEN_COMMA, TOKEN_IDENT, TOKEN_DPIPE,
	}, types)
	require.Equal(t, "it's", lits[5])
	require.Equal(t, "0aFF", lits[7])
	require.Equal(t, "Col", lits[13])
}

func TestParse_SelectShape(t *testing.T) {
	stmt := mustParse(t, `SELECT DISTINCT a.x AS ax, count(*), y + 1 FROM a LEFT JOIN b ON a.k = b.k
		WHERE a.x > 1 AND b.y IS NOT NULL GROUP BY a.x HAVING count(*) > 1
		ORDER BY 1 DESC NULLS LAST, ax LIMIT 10 OFFSET 2;`)
	sel, ok := stmt.(*SelectStmt)
	require.True(t, ok)

	core := sel.Body.(*SelectCore)
	require.True(t, core.Distinct)
	require.Len(t, core.Columns, 3)
	require.Equal(t, "ax", core.Columns[0].Alias)
	require.Equal(t, "count(*)", core.Columns[1].Text)
	require.Equal(t, "y + 1", core.Columns[2].Text)

	join := core.From.(*JoinExpr)
	require.Equal(t, JoinLeft, join.Kind)
	require.Equal(t, "a", join.Left.(*TableRef).Name)
	require.NotNil(t, join.On)

	where := core.Where.(*BinaryExpr)
	require.Equal(t, OpAnd, where.Op)
	require.Equal(t, OpIsNot, where.R.(*BinaryExpr).Op)

	require.Len(t, core.GroupBy, 1)
	require.NotNil(t, core.Having)
	require.Len(t, sel.OrderBy, 2)
	require.True(t, sel.OrderBy[0].Desc)
	require.Equal(t, NullsLast, sel.OrderBy[0].Nulls)
	require.Equal(t, record.Int(10), sel.Limit.(*Literal).Value)
	require.Equal(t, record.Int(2), sel.Offset.(*Literal).Value)
}

func TestParse_Precedence(t *testing.T) {
	cases := map[string]string{
		"SELECT 1 + 2 * 3":              "(1 + (2 * 3))",
		"SELECT NOT a = b AND c":        "(NOT (a = b) AND c)",
		"SELECT a OR b AND c":           "(a OR (b AND c))",
		"SELECT 'a' || 'b' || 'c'":      "(('a' || 'b') || 'c')",
		"SELECT a < b = c":              "((a < b) = c)",
		"SELECT -a * b":                 "(-a * b)",
		"SELECT x BETWEEN 1 AND 2 OR y": "(x BETWEEN 1 AND 2 OR y)",
		"SELECT a & b + 1":              "(a & (b + 1))",
	}
	for sql, want := range cases {
		sel := mustParse(t, sql).(*SelectStmt)
		require.Equal(t, want, FormatExpr(sel.Body.(*SelectCore).Columns[0].Expr), sql)
	}
}

func TestParse_Literals(t *testing.T) {
	sel := mustParse(t, "SELECT -9223372036854775808, 9223372036854775808, 0x10, NULL, x'01', TRUE").(*SelectStmt)
	cols := sel.Body.(*SelectCore).Columns
	require.Equal(t, record.Int(math.MinInt64), cols[0].Expr.(*Literal).Value)
	require.Equal(t, record.Real(9223372036854775808.0), cols[1].Expr.(*Literal).Value)
	require.Equal(t, record.Int(16), cols[2].Expr.(*Literal).Value)
	require.True(t, cols[3].Expr.(*Literal).Value.IsNull())
	require.Equal(t, record.Blob([]byte{1}), cols[4].Expr.(*Literal).Value)
	require.Equal(t, record.Int(1), cols[5].Expr.(*Literal).Value)
}

func TestParse_PredicateForms(t *testing.T) {
	sel := mustParse(t, `SELECT x NOT IN (1, 2), x IN (SELECT y FROM t), EXISTS (SELECT 1),
		x NOT LIKE 'a%' ESCAPE '\', x GLOB '*', x ISNULL, x NOT NULL, x IS DISTINCT FROM y,
		CASE WHEN x THEN 1 ELSE 2 END, CAST(x AS VARCHAR(10)), x COLLATE nocase`).(*SelectStmt)
	cols := sel.Body.(*SelectCore).Columns
	require.True(t, cols[0].Expr.(*InListExpr).Not)
	require.NotNil(t, cols[1].Expr.(*InSelectExpr).Select)
	require.IsType(t, &ExistsExpr{}, cols[2].Expr)
	like := cols[3].Expr.(*LikeExpr)
	require.True(t, like.Not)
	require.NotNil(t, like.Escape)
	require.Equal(t, OpGlob, cols[4].Expr.(*LikeExpr).Op)
	require.False(t, cols[5].Expr.(*IsNullExpr).Not)
	require.True(t, cols[6].Expr.(*IsNullExpr).Not)
	require.Equal(t, OpIsNot, cols[7].Expr.(*BinaryExpr).Op)
	require.Len(t, cols[8].Expr.(*CaseExpr).Whens, 1)
	require.Equal(t, "VARCHAR(10)", cols[9].Expr.(*CastExpr).Type)
	require.Equal(t, "nocase", cols[10].Expr.(*CollateExpr).Collation)
}

func TestParse_CompoundAndCTE(t *testing.T) {
	sel := mustParse(t, "WITH c(n) AS (SELECT 1) SELECT n FROM c UNION ALL SELECT 2 EXCEPT VALUES (3) ORDER BY 1 LIMIT 1, 2").(*SelectStmt)
	require.Len(t, sel.With, 1)
	require.Equal(t, []string{"n"}, sel.With[0].Columns)
	top := sel.Body.(*CompoundSelect)
	require.Equal(t, SetExcept, top.Op)
	require.Equal(t, SetUnionAll, top.Left.(*CompoundSelect).Op)
	require.Len(t, top.Right.(*SelectCore).Values, 1)
	require.Equal(t, record.Int(1), sel.Offset.(*Literal).Value)
	require.Equal(t, record.Int(2), sel.Limit.(*Literal).Value)
}

func TestParse_DDL(t *testing.T) {
	ct := mustParse(t, `CREATE TABLE IF NOT EXISTS t1(
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name VARCHAR(20) NOT NULL DEFAULT 'x' COLLATE NOCASE,
		score DOUBLE PRECISION CHECK (score >= 0) DEFAULT -1,
		ref INT REFERENCES other(id) ON DELETE CASCADE,
		UNIQUE (name, score),
		CONSTRAINT pos CHECK (id > 0)
	)`).(*CreateTableStmt)
	require.True(t, ct.IfNotExists)
	require.Len(t, ct.Columns, 4)
	require.True(t, ct.Columns[0].PrimaryKey)
	require.True(t, ct.Columns[0].Autoincrement)
	require.Equal(t, "VARCHAR(20)", ct.Columns[1].Type)
	require.True(t, ct.Columns[1].NotNull)
	require.Equal(t, "NOCASE", ct.Columns[1].Collate)
	require.Equal(t, "DOUBLE PRECISION", ct.Columns[2].Type)
	require.Len(t, ct.Columns[2].Checks, 1)
	require.IsType(t, &UnaryExpr{}, ct.Columns[2].Default)
	require.Len(t, ct.Constraints, 2)
	require.Equal(t, "pos", ct.Constraints[1].Name)

	ci := mustParse(t, "CREATE UNIQUE INDEX IF NOT EXISTS i1 ON t1(name COLLATE nocase DESC, score)").(*CreateIndexStmt)
	require.True(t, ci.Unique)
	require.True(t, ci.Columns[0].Desc)
	require.Equal(t, "nocase", ci.Columns[0].Collate)

	dv := mustParse(t, "DROP VIEW IF EXISTS v1").(*DropViewStmt)
	require.True(t, dv.IfExists)
	require.Equal(t, "v1", dv.Name)
}

func TestParse_DML(t *testing.T) {
	ins := mustParse(t, "INSERT OR REPLACE INTO t1(a, b) VALUES (1, 'x'), (2, NULL)").(*InsertStmt)
	require.Equal(t, ConflictReplace, ins.Conflict)
	require.Equal(t, []string{"a", "b"}, ins.Columns)
	require.Len(t, ins.Values, 2)

	rep := mustParse(t, "REPLACE INTO t1 SELECT * FROM t2").(*InsertStmt)
	require.Equal(t, ConflictReplace, rep.Conflict)
	require.NotNil(t, rep.Select)

	up := mustParse(t, "UPDATE t1 SET a = a + 1, b = 'y' WHERE a > 2").(*UpdateStmt)
	require.Len(t, up.Set, 2)
	require.NotNil(t, up.Where)

	del := mustParse(t, "DELETE FROM t1").(*DeleteStmt)
	require.Nil(t, del.Where)
}

func TestParse_Errors(t *testing.T) {
	cases := []string{
		"SELECT FROM",
		"SELECT 'unterminated",
		"SELECT (1",
		"CREATE TABLE",
		"SELEC 1",
		"SELECT 1 +",
	}
	for _, sql := range cases {
		_, err := Parse(sql)
		require.Error(t, err, sql)
		require.True(t, errors.Is(err, dberr.ErrSyntax), sql)
	}

	_, err := Parse("SELECT 1,\n  FROM t")
	var de *dberr.Error
	require.True(t, errors.As(err, &de))
	require.Equal(t, 2, de.Pos.Line)
	require.Equal(t, 3, de.Pos.Column)
}

func TestParseScriptAndSplit(t *testing.T) {
	stmts, err := ParseScript("CREATE TABLE t(x); INSERT INTO t VALUES(';'); ; SELECT * FROM t;")
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	parts := SplitStatements("SELECT ';' ; -- c;\nSELECT 2")
	require.Equal(t, []string{"SELECT ';'", "-- c;\nSELECT 2"}, parts)
}
