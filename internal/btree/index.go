package btree

import (
	gbtree "github.com/google/btree"

	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
)

const degree = 16

// entry is one (key, row id) pair. Probes used to position range scans carry
// a non-zero bias so they sort before (-1) or after (+1) every entry that
// shares their key prefix.
type entry struct {
	key  record.Row
	id   heap.RowID
	bias int8
}

// Index orders row ids by a tuple of column values. Several rows may share a
// key; a unique index rejects that at the table layer, not here.
type Index struct {
	Name    string
	Table   string
	Columns []int // positions of the indexed columns in the table row
	Desc    []bool
	Colls   []record.Collation
	Unique  bool
	// Auto marks indexes created implicitly for PRIMARY KEY and UNIQUE.
	Auto bool

	tree *gbtree.BTreeG[entry]
}

// Bound is one end of a value range on the leading index column.
type Bound struct {
	Value     record.Value
	Inclusive bool
}

func New(name, table string, columns []int, colls []record.Collation, desc []bool, unique bool) *Index {
	if desc == nil {
		desc = make([]bool, len(columns))
	}
	ix := &Index{
		Name:    name,
		Table:   table,
		Columns: columns,
		Desc:    desc,
		Colls:   colls,
		Unique:  unique,
	}
	ix.tree = gbtree.NewG[entry](degree, ix.less)
	return ix
}

func (ix *Index) compareKeys(a, b record.Row) int {
	for i := range a {
		c := record.Compare(a[i], b[i], ix.Colls[i])
		if ix.Desc[i] {
			c = -c
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

func (ix *Index) less(a, b entry) bool {
	n := min(len(a.key), len(b.key))
	if c := ix.compareKeys(a.key[:n], b.key[:n]); c != 0 {
		return c < 0
	}
	if a.bias != 0 || b.bias != 0 {
		return a.bias < b.bias
	}
	return a.id < b.id
}

// KeyOf extracts the index key from a full table row.
func (ix *Index) KeyOf(row record.Row) record.Row {
	key := make(record.Row, len(ix.Columns))
	for i, c := range ix.Columns {
		key[i] = row[c]
	}
	return key
}

func (ix *Index) Insert(key record.Row, id heap.RowID) error {
	if len(key) != len(ix.Columns) {
		return ErrKeyArity
	}
	ix.tree.ReplaceOrInsert(entry{key: key, id: id})
	return nil
}

func (ix *Index) Delete(key record.Row, id heap.RowID) {
	ix.tree.Delete(entry{key: key, id: id})
}

func (ix *Index) Len() int { return ix.tree.Len() }

// Clear drops every entry.
func (ix *Index) Clear() { ix.tree.Clear(false) }

// SearchEqual returns the ids whose key starts with prefix, in index order.
func (ix *Index) SearchEqual(prefix record.Row) []heap.RowID {
	var out []heap.RowID
	ix.tree.AscendGreaterOrEqual(entry{key: prefix, bias: -1}, func(e entry) bool {
		if ix.compareKeys(e.key[:len(prefix)], prefix) != 0 {
			return false
		}
		out = append(out, e.id)
		return true
	})
	return out
}

// Ascend visits every entry in index order until fn returns false.
func (ix *Index) Ascend(fn func(key record.Row, id heap.RowID) bool) {
	ix.tree.Ascend(func(e entry) bool { return fn(e.key, e.id) })
}

// RangeScan visits, in index order, entries whose leading column lies
// between lo and hi by value. A nil bound is open. Descending leading
// columns are handled transparently.
func (ix *Index) RangeScan(lo, hi *Bound, fn func(key record.Row, id heap.RowID) bool) {
	first, last := lo, hi
	if ix.Desc[0] {
		first, last = hi, lo
	}
	visit := func(e entry) bool {
		if last != nil {
			c := record.Compare(e.key[0], last.Value, ix.Colls[0])
			if ix.Desc[0] {
				c = -c
			}
			if c > 0 || c == 0 && !last.Inclusive {
				return false
			}
		}
		return fn(e.key, e.id)
	}
	if first == nil {
		ix.tree.Ascend(visit)
		return
	}
	var bias int8 = 1
	if first.Inclusive {
		bias = -1
	}
	ix.tree.AscendGreaterOrEqual(entry{key: record.Row{first.Value}, bias: bias}, visit)
}
