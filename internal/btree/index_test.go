package btree

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
)

func collect(ix *Index, lo, hi *Bound) []heap.RowID {
	var out []heap.RowID
	ix.RangeScan(lo, hi, func(_ record.Row, id heap.RowID) bool {
		out = append(out, id)
		return true
	})
	return out
}

func TestIndex_SearchEqualOnPrefix(t *testing.T) {
	ix := New("i_ab", "t", []int{0, 1}, []record.Collation{record.Binary, record.NoCase}, nil, false)
	require.NoError(t, ix.Insert(record.Row{record.Int(1), record.Text("a")}, 10))
	require.NoError(t, ix.Insert(record.Row{record.Int(1), record.Text("B")}, 11))
	require.NoError(t, ix.Insert(record.Row{record.Int(2), record.Text("a")}, 12))
	require.NoError(t, ix.Insert(record.Row{record.Real(1), record.Text("b")}, 13))
	require.ErrorIs(t, ix.Insert(record.Row{record.Int(1)}, 14), ErrKeyArity)

	require.Equal(t, []heap.RowID{10, 11, 13}, ix.SearchEqual(record.Row{record.Int(1)}))
	require.Equal(t, []heap.RowID{11, 13}, ix.SearchEqual(record.Row{record.Int(1), record.Text("b")}))
	require.Empty(t, ix.SearchEqual(record.Row{record.Int(3)}))

	ix.Delete(record.Row{record.Int(1), record.Text("B")}, 11)
	require.Equal(t, []heap.RowID{13}, ix.SearchEqual(record.Row{record.Int(1), record.Text("b")}))
	require.Equal(t, 3, ix.Len())
}

func TestIndex_RangeScan(t *testing.T) {
	ix := New("i_x", "t", []int{0}, []record.Collation{record.Binary}, nil, false)
	vals := []record.Value{record.Null, record.Int(1), record.Int(2), record.Int(3), record.Text("x")}
	for i, v := range vals {
		require.NoError(t, ix.Insert(record.Row{v}, heap.RowID(i)))
	}

	require.Equal(t, []heap.RowID{2, 3, 4}, collect(ix, &Bound{Value: record.Int(1)}, nil))
	require.Equal(t, []heap.RowID{1, 2}, collect(ix, &Bound{Value: record.Int(1), Inclusive: true}, &Bound{Value: record.Real(2.5)}))
	require.Equal(t, []heap.RowID{0, 1}, collect(ix, nil, &Bound{Value: record.Int(2)}))
	require.Len(t, collect(ix, nil, nil), 5)
}

func TestIndex_RangeScanDescending(t *testing.T) {
	ix := New("i_x", "t", []int{0}, []record.Collation{record.Binary}, []bool{true}, false)
	for i := 1; i <= 5; i++ {
		require.NoError(t, ix.Insert(record.Row{record.Int(int64(i))}, heap.RowID(i)))
	}
	got := collect(ix, &Bound{Value: record.Int(2), Inclusive: true}, &Bound{Value: record.Int(4)})
	require.Equal(t, []heap.RowID{3, 2}, got)
}
