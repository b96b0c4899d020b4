package catalog

import (
	"strings"

	"github.com/tuannm99/novalite/internal/btree"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// The mutation methods below keep the heap and every index in step and
// record undo steps in the journal, so a failing statement can be rolled
// back by the caller. Rows are coerced to the column affinities first.

// Insert adds row. It returns false when the row was skipped by
// INSERT OR IGNORE.
func (t *Table) Insert(j *heap.Journal, row record.Row, onConflict parser.ConflictAction) (bool, error) {
	row = t.Schema.Coerce(row)
	id, err := t.rowIDFor(row)
	if err != nil {
		return false, err
	}
	if ok, err := t.checkNotNull(row, onConflict); !ok {
		return false, err
	}
	ok, err := t.resolveConflicts(j, row, id, nil, onConflict)
	if !ok {
		return false, err
	}
	return true, t.put(j, id, row)
}

// Update replaces the row stored under id. Changing the INTEGER PRIMARY
// KEY column moves the row to a new id.
func (t *Table) Update(j *heap.Journal, id heap.RowID, row record.Row, onConflict parser.ConflictAction) (bool, error) {
	old, ok := t.Heap.Get(id)
	if !ok {
		return false, heap.ErrRowNotFound
	}
	row = t.Schema.Coerce(row)
	newID := id
	if t.RowidAlias >= 0 {
		v := row[t.RowidAlias]
		if v.Kind() != record.KindInteger {
			return false, dberr.Constraint("datatype mismatch")
		}
		newID = heap.RowID(v.Int())
	}
	if ok, err := t.checkNotNull(row, onConflict); !ok {
		return false, err
	}
	self := id
	if ok, err := t.resolveConflicts(j, row, newID, &self, onConflict); !ok {
		return false, err
	}
	// Conflict resolution may have replaced rows, but never this one.
	t.unindex(id, old)
	if newID != id {
		if err := t.Heap.Delete(id); err != nil {
			return false, err
		}
		if err := t.Heap.Insert(newID, row); err != nil {
			return false, err
		}
	} else if err := t.Heap.Update(id, row); err != nil {
		return false, err
	}
	t.index(newID, row)
	j.Record(func() {
		t.unindex(newID, row)
		_ = t.Heap.Delete(newID)
		_ = t.Heap.Insert(id, old)
		t.index(id, old)
	})
	return true, nil
}

// Delete removes the row stored under id.
func (t *Table) Delete(j *heap.Journal, id heap.RowID) error {
	row, ok := t.Heap.Get(id)
	if !ok {
		return heap.ErrRowNotFound
	}
	t.unindex(id, row)
	if err := t.Heap.Delete(id); err != nil {
		return err
	}
	j.Record(func() {
		_ = t.Heap.Insert(id, row)
		t.index(id, row)
	})
	return nil
}

// Truncate deletes every row.
func (t *Table) Truncate(j *heap.Journal) (int, error) {
	var ids []heap.RowID
	_ = t.Heap.Scan(func(id heap.RowID, _ record.Row) error {
		ids = append(ids, id)
		return nil
	})
	for _, id := range ids {
		if err := t.Delete(j, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (t *Table) put(j *heap.Journal, id heap.RowID, row record.Row) error {
	if err := t.Heap.Insert(id, row); err != nil {
		return err
	}
	t.index(id, row)
	j.Record(func() {
		t.unindex(id, row)
		_ = t.Heap.Delete(id)
	})
	return nil
}

func (t *Table) index(id heap.RowID, row record.Row) {
	for _, ix := range t.Indexes {
		_ = ix.Insert(ix.KeyOf(row), id)
	}
}

func (t *Table) unindex(id heap.RowID, row record.Row) {
	for _, ix := range t.Indexes {
		ix.Delete(ix.KeyOf(row), id)
	}
}

// rowIDFor picks the row id of a new row, filling in the INTEGER PRIMARY
// KEY column when it is NULL.
func (t *Table) rowIDFor(row record.Row) (heap.RowID, error) {
	if t.RowidAlias >= 0 {
		v := row[t.RowidAlias]
		switch v.Kind() {
		case record.KindInteger:
			return heap.RowID(v.Int()), nil
		case record.KindNull:
		default:
			return 0, dberr.Constraint("datatype mismatch")
		}
	}
	id, err := t.Heap.NextRowID()
	if err != nil {
		return 0, dberr.Wrap(dberr.KindRuntime, err, "database or disk is full")
	}
	if t.RowidAlias >= 0 {
		row[t.RowidAlias] = record.Int(int64(id))
	}
	return id, nil
}

func (t *Table) checkNotNull(row record.Row, onConflict parser.ConflictAction) (bool, error) {
	for i, c := range t.Schema.Cols {
		if c.NotNull && row[i].IsNull() {
			if onConflict == parser.ConflictIgnore {
				return false, nil
			}
			return false, dberr.Constraint("NOT NULL constraint failed: %s.%s", t.Name, c.Name)
		}
	}
	return true, nil
}

// resolveConflicts finds rows clashing with row on the row id or on a
// unique index and applies the conflict action. self, when set, is the id
// of the row being updated and never counts as a clash.
func (t *Table) resolveConflicts(j *heap.Journal, row record.Row, id heap.RowID, self *heap.RowID, onConflict parser.ConflictAction) (bool, error) {
	isSelf := func(other heap.RowID) bool { return self != nil && *self == other }

	var clashes []heap.RowID
	var firstMsg string
	if _, exists := t.Heap.Get(id); exists && !isSelf(id) {
		clashes = append(clashes, id)
		firstMsg = "UNIQUE constraint failed: " + t.rowidName()
	}
	for _, ix := range t.Indexes {
		if !ix.Unique {
			continue
		}
		k := ix.KeyOf(row)
		if hasNull(k) {
			continue
		}
		for _, other := range ix.SearchEqual(k) {
			if isSelf(other) {
				continue
			}
			if firstMsg == "" {
				firstMsg = "UNIQUE constraint failed: " + t.indexColumnList(ix)
			}
			clashes = append(clashes, other)
		}
	}
	if len(clashes) == 0 {
		return true, nil
	}
	switch onConflict {
	case parser.ConflictIgnore:
		return false, nil
	case parser.ConflictReplace:
		for _, other := range clashes {
			if _, live := t.Heap.Get(other); !live {
				continue
			}
			if err := t.Delete(j, other); err != nil {
				return false, err
			}
		}
		return true, nil
	default:
		return false, dberr.Constraint("%s", firstMsg)
	}
}

func (t *Table) rowidName() string {
	if t.RowidAlias >= 0 {
		return t.Name + "." + t.Schema.Cols[t.RowidAlias].Name
	}
	return t.Name + ".rowid"
}

func (t *Table) indexColumnList(ix *btree.Index) string {
	names := make([]string, len(ix.Columns))
	for i, c := range ix.Columns {
		names[i] = t.Name + "." + t.Schema.Cols[c].Name
	}
	return strings.Join(names, ", ")
}
