package heap

import (
	"errors"
	"math"

	gbtree "github.com/google/btree"

	"github.com/tuannm99/novalite/internal/record"
)

var (
	ErrRowNotFound = errors.New("heap: row not found")
	ErrRowExists   = errors.New("heap: row id already in use")
	ErrRowIDFull   = errors.New("heap: database or disk is full")
)

type item struct {
	id  RowID
	row record.Row
}

func lessItem(a, b item) bool { return a.id < b.id }

// Table is the row store of one table: rows addressed by RowID and kept in
// row id order. Rows handed out are shared and must not be modified.
type Table struct {
	Name   string
	Schema record.Schema

	rows *gbtree.BTreeG[item]
}

func NewTable(name string, schema record.Schema) *Table {
	return &Table{
		Name:   name,
		Schema: schema,
		rows:   gbtree.NewG[item](32, lessItem),
	}
}

// Insert stores row under id. The id must be free.
func (t *Table) Insert(id RowID, row record.Row) error {
	if t.rows.Has(item{id: id}) {
		return ErrRowExists
	}
	t.rows.ReplaceOrInsert(item{id: id, row: row})
	return nil
}

// Get reads a single row by id.
func (t *Table) Get(id RowID) (record.Row, bool) {
	it, ok := t.rows.Get(item{id: id})
	return it.row, ok
}

// Update replaces the row stored under id.
func (t *Table) Update(id RowID, row record.Row) error {
	if !t.rows.Has(item{id: id}) {
		return ErrRowNotFound
	}
	t.rows.ReplaceOrInsert(item{id: id, row: row})
	return nil
}

// Delete removes the row stored under id.
func (t *Table) Delete(id RowID) error {
	if _, ok := t.rows.Delete(item{id: id}); !ok {
		return ErrRowNotFound
	}
	return nil
}

// Scan visits every row in row id order. A non-nil error from fn stops the
// scan and is returned.
func (t *Table) Scan(fn func(id RowID, row record.Row) error) error {
	var err error
	t.rows.Ascend(func(it item) bool {
		err = fn(it.id, it.row)
		return err == nil
	})
	return err
}

func (t *Table) Len() int { return t.rows.Len() }

// MaxRowID returns the largest id in use, or 0 for an empty table.
func (t *Table) MaxRowID() RowID {
	it, ok := t.rows.Max()
	if !ok {
		return 0
	}
	return it.id
}

// NextRowID picks the id for a row inserted without an explicit one.
func (t *Table) NextRowID() (RowID, error) {
	max := t.MaxRowID()
	if max < math.MaxInt64 {
		return max + 1, nil
	}
	// Every id above is taken: fall back to the smallest free positive id.
	var next RowID = 1
	found := false
	t.rows.Ascend(func(it item) bool {
		if it.id < next {
			return true
		}
		if it.id > next {
			found = true
			return false
		}
		next++
		return true
	})
	if !found {
		return 0, ErrRowIDFull
	}
	return next, nil
}

// Truncate removes all rows.
func (t *Table) Truncate() { t.rows.Clear(false) }

// Cursor returns a lazy iterator positioned before the first row.
func (t *Table) Cursor() *Cursor {
	return &Cursor{t: t}
}
