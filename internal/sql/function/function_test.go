package function

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
)

func call(t *testing.T, name string, args ...record.Value) record.Value {
	t.Helper()
	fn, err := LookupScalar(name, len(args))
	require.NoError(t, err)
	v, err := fn.Fn(args, nil)
	require.NoError(t, err)
	return v
}

func TestLookup(t *testing.T) {
	_, err := LookupScalar("nosuch", 1)
	require.EqualError(t, err, "no such function: nosuch")
	require.ErrorIs(t, err, dberr.ErrBind)

	_, err = LookupScalar("ABS", 2)
	require.EqualError(t, err, "wrong number of arguments to function abs()")

	_, ok := LookupAggregate("max", 1)
	require.True(t, ok)
	_, ok = LookupAggregate("max", 2)
	require.False(t, ok)
	_, err = LookupScalar("max", 3)
	require.NoError(t, err)

	_, err = LookupScalar("count", 2)
	require.EqualError(t, err, "wrong number of arguments to function count()")
}

func TestScalarFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   string
		args []record.Value
		want record.Value
	}{
		{"abs int", "abs", []record.Value{record.Int(-4)}, record.Int(4)},
		{"abs text", "abs", []record.Value{record.Text("-2.5")}, record.Real(2.5)},
		{"abs null", "abs", []record.Value{record.Null}, record.Null},
		{"coalesce", "coalesce", []record.Value{record.Null, record.Null, record.Int(3)}, record.Int(3)},
		{"ifnull", "ifnull", []record.Value{record.Int(1), record.Int(2)}, record.Int(1)},
		{"iif false", "iif", []record.Value{record.Int(0), record.Text("a"), record.Text("b")}, record.Text("b")},
		{"nullif equal", "nullif", []record.Value{record.Int(1), record.Real(1)}, record.Null},
		{"length text", "length", []record.Value{record.Text("héllo")}, record.Int(5)},
		{"length int", "length", []record.Value{record.Int(-12)}, record.Int(3)},
		{"length blob", "length", []record.Value{record.BlobString("ab")}, record.Int(2)},
		{"upper", "upper", []record.Value{record.Text("abc")}, record.Text("ABC")},
		{"lower int", "lower", []record.Value{record.Int(7)}, record.Text("7")},
		{"substr", "substr", []record.Value{record.Text("hello"), record.Int(2), record.Int(3)}, record.Text("ell")},
		{"substr tail", "substr", []record.Value{record.Text("hello"), record.Int(-3)}, record.Text("llo")},
		{"substr zero start", "substr", []record.Value{record.Text("hello"), record.Int(0), record.Int(2)}, record.Text("h")},
		{"substr negative len", "substr", []record.Value{record.Text("hello"), record.Int(4), record.Int(-2)}, record.Text("el")},
		{"substr past end", "substr", []record.Value{record.Text("abc"), record.Int(10)}, record.Text("")},
		{"trim", "trim", []record.Value{record.Text("  x  ")}, record.Text("x")},
		{"ltrim chars", "ltrim", []record.Value{record.Text("xxyz"), record.Text("x")}, record.Text("yz")},
		{"replace", "replace", []record.Value{record.Text("aXbX"), record.Text("X"), record.Text("-")}, record.Text("a-b-")},
		{"instr", "instr", []record.Value{record.Text("hello"), record.Text("ll")}, record.Int(3)},
		{"instr miss", "instr", []record.Value{record.Text("hello"), record.Text("z")}, record.Int(0)},
		{"typeof", "typeof", []record.Value{record.Real(1)}, record.Text("real")},
		{"round", "round", []record.Value{record.Real(2.5)}, record.Real(3)},
		{"round negative", "round", []record.Value{record.Real(-2.5)}, record.Real(-3)},
		{"round digits", "round", []record.Value{record.Real(3.14159), record.Int(2)}, record.Real(3.14)},
		{"round int", "round", []record.Value{record.Int(7)}, record.Real(7)},
		{"hex", "hex", []record.Value{record.Text("ab")}, record.Text("6162")},
		{"quote text", "quote", []record.Value{record.Text("it's")}, record.Text("'it''s'")},
		{"char", "char", []record.Value{record.Int(72), record.Int(105)}, record.Text("Hi")},
		{"unicode", "unicode", []record.Value{record.Text("A")}, record.Int(65)},
		{"min scalar", "min", []record.Value{record.Int(3), record.Real(1.5), record.Text("a")}, record.Real(1.5)},
		{"max scalar null", "max", []record.Value{record.Int(3), record.Null}, record.Null},
		{"sign", "sign", []record.Value{record.Real(-0.5)}, record.Int(-1)},
		{"sign text", "sign", []record.Value{record.Text("abc")}, record.Null},
		{"zeroblob", "zeroblob", []record.Value{record.Int(2)}, record.BlobString("\x00\x00")},
		{"printf", "printf", []record.Value{record.Text("%d-%s-%.2f-%5s|%-3d|"), record.Int(4), record.Text("x"), record.Real(1.5), record.Text("ab"), record.Int(1)}, record.Text("4-x-1.50-   ab|1  |")},
		{"printf q", "printf", []record.Value{record.Text("%q %Q %%"), record.Text("a'b"), record.Null}, record.Text("a''b NULL %")},
		{"printf thousands", "printf", []record.Value{record.Text("%,d"), record.Int(-1234567)}, record.Text("-1,234,567")},
		{"concat", "concat", []record.Value{record.Text("a"), record.Null, record.Int(1)}, record.Text("a1")},
		{"concat_ws", "concat_ws", []record.Value{record.Text("-"), record.Text("a"), record.Null, record.Text("b")}, record.Text("a-b")},
		{"like", "like", []record.Value{record.Text("a%"), record.Text("ABC")}, record.Int(1)},
		{"glob", "glob", []record.Value{record.Text("a*"), record.Text("ABC")}, record.Int(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, call(t, tt.fn, tt.args...))
		})
	}
}

func TestAbsOverflow(t *testing.T) {
	fn, err := LookupScalar("abs", 1)
	require.NoError(t, err)
	_, err = fn.Fn([]record.Value{record.Int(-9223372036854775808)}, nil)
	require.EqualError(t, err, "integer overflow")
}

func TestLikeAndGlob(t *testing.T) {
	require.True(t, Like("%b_", "abc", 0))
	require.True(t, Like("A%", "abc", 0))
	require.False(t, Like("a_", "abc", 0))
	require.True(t, Like("100!%", "100%", '!'))
	require.False(t, Like("100!%", "1000", '!'))
	require.True(t, Like("%", "", 0))

	require.True(t, Glob("a*c", "abbbc"))
	require.False(t, Glob("a*c", "ABC"))
	require.True(t, Glob("[a-c]?", "bz"))
	require.False(t, Glob("[^a-c]?", "bz"))
	require.True(t, Glob("[]]", "]"))
	require.False(t, Glob("[abc", "a"))
}

func runAgg(t *testing.T, name string, coll record.Collation, rows ...[]record.Value) record.Value {
	t.Helper()
	n := 1
	if len(rows) > 0 {
		n = len(rows[0])
	}
	agg, ok := LookupAggregate(name, n)
	require.True(t, ok)
	acc := agg.New(coll)
	for _, r := range rows {
		require.NoError(t, acc.Step(r))
	}
	v, err := acc.Final()
	require.NoError(t, err)
	return v
}

func vals(vs ...record.Value) [][]record.Value {
	out := make([][]record.Value, len(vs))
	for i, v := range vs {
		out[i] = []record.Value{v}
	}
	return out
}

func TestAggregates(t *testing.T) {
	in := vals(record.Int(1), record.Null, record.Int(3))

	require.Equal(t, record.Int(2), runAgg(t, "count", nil, in...))
	require.Equal(t, record.Int(4), runAgg(t, "sum", nil, in...))
	require.Equal(t, record.Real(4), runAgg(t, "total", nil, in...))
	require.Equal(t, record.Real(2), runAgg(t, "avg", nil, in...))
	require.Equal(t, record.Int(1), runAgg(t, "min", nil, in...))
	require.Equal(t, record.Int(3), runAgg(t, "max", nil, in...))
	require.Equal(t, record.Text("1,3"), runAgg(t, "group_concat", nil, in...))

	empty := vals(record.Null)
	require.Equal(t, record.Int(0), runAgg(t, "count", nil, empty...))
	require.Equal(t, record.Null, runAgg(t, "sum", nil, empty...))
	require.Equal(t, record.Real(0), runAgg(t, "total", nil, empty...))
	require.Equal(t, record.Null, runAgg(t, "avg", nil, empty...))
	require.Equal(t, record.Null, runAgg(t, "max", nil, empty...))

	require.Equal(t, record.Real(3.5), runAgg(t, "sum", nil, vals(record.Int(1), record.Real(2.5))...))
	require.Equal(t, record.Int(5), runAgg(t, "sum", nil, vals(record.Text("2"), record.Int(3))...))
	require.Equal(t, record.Text("B"), runAgg(t, "max", record.NoCase, vals(record.Text("a"), record.Text("B"))...))
	require.Equal(t, record.Text("a;b"), runAgg(t, "group_concat", nil,
		[]record.Value{record.Text("a"), record.Text(";")}, []record.Value{record.Text("b"), record.Text(";")}))

	agg, _ := LookupAggregate("count", 0)
	acc := agg.New(nil)
	require.NoError(t, acc.Step(nil))
	require.NoError(t, acc.Step(nil))
	v, _ := acc.Final()
	require.Equal(t, record.Int(2), v)
}

func TestSumOverflow(t *testing.T) {
	agg, _ := LookupAggregate("sum", 1)
	acc := agg.New(nil)
	require.NoError(t, acc.Step([]record.Value{record.Int(9223372036854775807)}))
	require.NoError(t, acc.Step([]record.Value{record.Int(1)}))
	_, err := acc.Final()
	require.EqualError(t, err, "integer overflow")
}

func TestMinMaxSelector(t *testing.T) {
	agg, _ := LookupAggregate("max", 1)
	acc := agg.New(nil)
	sel := acc.(Selector)
	require.NoError(t, acc.Step([]record.Value{record.Int(2)}))
	require.True(t, sel.Selected())
	require.NoError(t, acc.Step([]record.Value{record.Int(1)}))
	require.False(t, sel.Selected())
	require.NoError(t, acc.Step([]record.Value{record.Int(5)}))
	require.True(t, sel.Selected())
}
