package record

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAffinityOf(t *testing.T) {
	cases := map[string]Affinity{
		"INTEGER":          AffinityInteger,
		"bigint":           AffinityInteger,
		"VARCHAR(10)":      AffinityText,
		"clob":             AffinityText,
		"":                 AffinityNone,
		"BLOB":             AffinityNone,
		"DOUBLE PRECISION": AffinityReal,
		"float":            AffinityReal,
		"DECIMAL(10,2)":    AffinityNumeric,
		"BOOLEAN":          AffinityNumeric,
		"CHARINT":          AffinityInteger,
	}
	for decl, want := range cases {
		require.Equal(t, want, AffinityOf(decl), decl)
	}
}

func TestAffinityApply(t *testing.T) {
	t.Run("numeric converts well formed text", func(t *testing.T) {
		require.Equal(t, Int(42), AffinityInteger.Apply(Text(" 42 ")))
		require.Equal(t, Int(300000), AffinityNumeric.Apply(Text("3.0e+5")))
		require.Equal(t, Real(1.5), AffinityNumeric.Apply(Text("1.5")))
		require.Equal(t, Text("12abc"), AffinityNumeric.Apply(Text("12abc")))
		require.Equal(t, Int(3), AffinityInteger.Apply(Real(3.0)))
		require.Equal(t, Real(3.5), AffinityInteger.Apply(Real(3.5)))
		require.Equal(t, Real(9223372036854775808.0), AffinityInteger.Apply(Text("9223372036854775808")))
	})
	t.Run("real forces floats", func(t *testing.T) {
		require.Equal(t, Real(7), AffinityReal.Apply(Int(7)))
		require.Equal(t, Real(7), AffinityReal.Apply(Text("7")))
		require.Equal(t, Text("x"), AffinityReal.Apply(Text("x")))
	})
	t.Run("text renders numbers", func(t *testing.T) {
		require.Equal(t, Text("7"), AffinityText.Apply(Int(7)))
		require.Equal(t, Text("2.5"), AffinityText.Apply(Real(2.5)))
		require.Equal(t, Null, AffinityText.Apply(Null))
	})
	t.Run("none keeps values", func(t *testing.T) {
		require.Equal(t, Text("7"), AffinityNone.Apply(Text("7")))
		require.Equal(t, Blob([]byte{1}), AffinityInteger.Apply(Blob([]byte{1})))
	})
}

func TestComparisonAffinity(t *testing.T) {
	a, ok := ComparisonAffinity(AffinityInteger, true, AffinityNone, false)
	require.True(t, ok)
	require.Equal(t, AffinityNumeric, a)

	a, ok = ComparisonAffinity(AffinityNone, false, AffinityText, true)
	require.True(t, ok)
	require.Equal(t, AffinityText, a)

	_, ok = ComparisonAffinity(AffinityText, true, AffinityNone, true)
	require.False(t, ok)

	_, ok = ComparisonAffinity(AffinityNone, false, AffinityNone, false)
	require.False(t, ok)
}

func TestCompareTotalOrder(t *testing.T) {
	vals := []Value{
		Null, Int(-5), Real(-4.5), Int(0), Real(0.5), Int(1), Real(1),
		Int(math.MaxInt64), Real(1e19), Text(""), Text("A"), Text("a"), Text("b"),
		Blob(nil), Blob([]byte{0}), Blob([]byte{1, 2}),
	}
	for _, a := range vals {
		for _, b := range vals {
			require.Equal(t, Compare(a, b, nil), -Compare(b, a, nil), "%v vs %v", a, b)
		}
	}
	for i := 0; i+1 < len(vals); i++ {
		require.LessOrEqual(t, Compare(vals[i], vals[i+1], nil), 0, "%v vs %v", vals[i], vals[i+1])
	}
	require.Equal(t, 0, Compare(Int(1), Real(1), nil))
	require.Equal(t, -1, Compare(Int(math.MaxInt64), Real(9223372036854775808.0), nil))
	require.Equal(t, 0, Compare(Text("ABC"), Text("abc"), NoCase))
	require.Equal(t, 0, Compare(Text("a  "), Text("a"), RTrim))
}

func TestArithmetic(t *testing.T) {
	require.Equal(t, Int(5), Add(Int(2), Int(3)))
	require.Equal(t, Real(9223372036854775808.0), Add(Int(math.MaxInt64), Int(1)))
	require.Equal(t, Int(2), Div(Int(7), Int(3)))
	require.Equal(t, Null, Div(Int(7), Int(0)))
	require.Equal(t, Null, Div(Real(7), Real(0)))
	require.Equal(t, Real(3.5), Div(Real(7), Int(2)))
	require.Equal(t, Int(1), Rem(Int(7), Int(3)))
	require.Equal(t, Null, Rem(Int(7), Int(0)))
	require.Equal(t, Real(1), Rem(Real(5.5), Int(2)))
	require.Equal(t, Int(13), Add(Text("12abc"), Int(1)))
	require.Equal(t, Int(1), Add(Text("abc"), Int(1)))
	require.Equal(t, Real(3.0), Add(Text("3.0"), Int(0)))
	require.Equal(t, Null, Mul(Null, Int(2)))
	require.Equal(t, Real(-float64(math.MinInt64)), Negate(Int(math.MinInt64)))
	require.Equal(t, Int(math.MaxInt64), Mul(Int(math.MaxInt64), Int(1)))
	require.Equal(t, Real(float64(math.MaxInt64)*2), Mul(Int(math.MaxInt64), Int(2)))
	require.Equal(t, Int(8), ShiftLeft(Int(1), Int(3)))
	require.Equal(t, Int(-1), ShiftRight(Int(-8), Int(100)))
	require.Equal(t, Text("ab1"), Concat(Text("ab"), Int(1)))
}

func TestFormatReal(t *testing.T) {
	cases := map[float64]string{
		100:                "100.0",
		0.1:                "0.1",
		1e20:               "1.0e+20",
		1.5e-7:             "1.5e-07",
		123456789012345678: "1.23456789012346e+17",
		-2.5:               "-2.5",
		1.0 / 3:            "0.333333333333333",
		math.Inf(1):        "Inf",
	}
	for f, want := range cases {
		require.Equal(t, want, FormatReal(f))
	}
	require.Equal(t, "0.0", FormatReal(math.Copysign(0, -1)))
}

func TestNumericParsing(t *testing.T) {
	v, ok := ParseNumeric("  -12 ")
	require.True(t, ok)
	require.Equal(t, Int(-12), v)

	_, ok = ParseNumeric("1e")
	require.False(t, ok)
	_, ok = ParseNumeric("0x10")
	require.False(t, ok)

	require.Equal(t, Real(1500), NumericPrefix("1.5e3xyz"))
	require.Equal(t, Int(0), NumericPrefix("."))
	require.Equal(t, int64(1), IntegerPrefix("1.9"))
	require.Equal(t, int64(math.MaxInt64), IntegerPrefix("99999999999999999999"))
	require.Equal(t, int64(math.MaxInt64), Real(1e20).AsInt())
}

func TestKeysFollowEquality(t *testing.T) {
	require.Equal(t, RowKey(Row{Int(1)}, nil), RowKey(Row{Real(1)}, nil))
	require.NotEqual(t, RowKey(Row{Int(1)}, nil), RowKey(Row{Text("1")}, nil))
	require.Equal(t, RowKey(Row{Text("ABC")}, []Collation{NoCase}), RowKey(Row{Text("abc")}, []Collation{NoCase}))
	require.NotEqual(t, RowKey(Row{Text("a"), Text("bc")}, nil), RowKey(Row{Text("ab"), Text("c")}, nil))
	require.NotEqual(t, RowKey(Row{Null}, nil), RowKey(Row{Int(0)}, nil))
}

func TestTruth(t *testing.T) {
	b, known := Text("0.5abc").Truth()
	require.True(t, known)
	require.True(t, b)
	_, known = Null.Truth()
	require.False(t, known)
	b, _ = Text("abc").Truth()
	require.False(t, b)
}
