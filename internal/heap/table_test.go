package heap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/novalite/internal/record"
)

func newTestTable() *Table {
	return NewTable("users", record.Schema{Cols: []record.Column{
		{Name: "id", DeclType: "INTEGER", Affinity: record.AffinityInteger},
		{Name: "name", DeclType: "TEXT", Affinity: record.AffinityText},
	}})
}

func TestTable_InsertGetUpdateDelete(t *testing.T) {
	tbl := newTestTable()

	require.NoError(t, tbl.Insert(1, record.Row{record.Int(1), record.Text("alice")}))
	require.ErrorIs(t, tbl.Insert(1, record.Row{record.Int(1), record.Text("dup")}), ErrRowExists)

	row, ok := tbl.Get(1)
	require.True(t, ok)
	require.Equal(t, record.Text("alice"), row[1])

	require.NoError(t, tbl.Update(1, record.Row{record.Int(1), record.Text("bob")}))
	row, _ = tbl.Get(1)
	require.Equal(t, record.Text("bob"), row[1])
	require.ErrorIs(t, tbl.Update(7, nil), ErrRowNotFound)

	require.NoError(t, tbl.Delete(1))
	require.ErrorIs(t, tbl.Delete(1), ErrRowNotFound)
	require.Equal(t, 0, tbl.Len())
}

func TestTable_ScanOrderAndStop(t *testing.T) {
	tbl := newTestTable()
	for _, id := range []RowID{5, -2, 3} {
		require.NoError(t, tbl.Insert(id, record.Row{record.Int(int64(id)), record.Null}))
	}

	var ids []RowID
	require.NoError(t, tbl.Scan(func(id RowID, _ record.Row) error {
		ids = append(ids, id)
		return nil
	}))
	require.Equal(t, []RowID{-2, 3, 5}, ids)

	stop := errors.New("stop")
	require.ErrorIs(t, tbl.Scan(func(RowID, record.Row) error { return stop }), stop)

	next, err := tbl.NextRowID()
	require.NoError(t, err)
	require.Equal(t, RowID(6), next)
}

func TestCursor_BatchesAndRestarts(t *testing.T) {
	tbl := newTestTable()
	for i := 1; i <= 200; i++ {
		require.NoError(t, tbl.Insert(RowID(i), record.Row{record.Int(int64(i)), record.Null}))
	}

	c := tbl.Cursor()
	count := 0
	var last RowID
	for {
		id, _, ok := c.Next()
		if !ok {
			break
		}
		require.Greater(t, id, last)
		last = id
		count++
	}
	require.Equal(t, 200, count)

	c.Reset()
	id, _, ok := c.Next()
	require.True(t, ok)
	require.Equal(t, RowID(1), id)
}

func TestJournal_RollbackRunsNewestFirst(t *testing.T) {
	tbl := newTestTable()
	j := NewJournal()

	require.NoError(t, tbl.Insert(1, record.Row{record.Int(1), record.Null}))
	j.Record(func() { _ = tbl.Delete(1) })
	require.NoError(t, tbl.Update(1, record.Row{record.Int(2), record.Null}))
	j.Record(func() { _ = tbl.Update(1, record.Row{record.Int(1), record.Null}) })

	require.Equal(t, 2, j.Len())
	j.Rollback()
	require.Equal(t, 0, tbl.Len())
	require.Equal(t, 0, j.Len())
}
