package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tuannm99/novalite/internal/btree"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/heap"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// Catalog maps names to the tables, indexes and views of one session.
// Names are case-insensitive. A Catalog is not safe for concurrent use.
type Catalog struct {
	tables  map[string]*Table
	views   map[string]*View
	indexes map[string]*btree.Index
}

func New() *Catalog {
	return &Catalog{
		tables:  make(map[string]*Table),
		views:   make(map[string]*View),
		indexes: make(map[string]*btree.Index),
	}
}

func key(name string) string { return strings.ToLower(name) }

func (c *Catalog) Table(name string) (*Table, bool) {
	t, ok := c.tables[key(name)]
	return t, ok
}

func (c *Catalog) View(name string) (*View, bool) {
	v, ok := c.views[key(name)]
	return v, ok
}

func (c *Catalog) Index(name string) (*btree.Index, bool) {
	ix, ok := c.indexes[key(name)]
	return ix, ok
}

// TableNames lists table names in sorted order.
func (c *Catalog) TableNames() []string {
	out := make([]string, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t.Name)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) nameTaken(name string) error {
	k := key(name)
	if t, ok := c.tables[k]; ok {
		return dberr.Wrap(dberr.KindSchema, ErrTableExists, "table %s already exists", t.Name)
	}
	if v, ok := c.views[k]; ok {
		return dberr.Wrap(dberr.KindSchema, ErrViewExists, "view %s already exists", v.Name)
	}
	return nil
}

// CreateTable registers a table built from its definition. With IF NOT
// EXISTS an existing table yields (nil, nil).
func (c *Catalog) CreateTable(stmt *parser.CreateTableStmt) (*Table, error) {
	if err := c.nameTaken(stmt.Name); err != nil {
		if stmt.IfNotExists {
			return nil, nil
		}
		return nil, err
	}
	t, err := buildTable(stmt)
	if err != nil {
		return nil, err
	}
	for _, ix := range t.Indexes {
		c.indexes[key(ix.Name)] = ix
	}
	c.tables[key(t.Name)] = t
	slog.Debug("catalog: table created", "table", t.Name, "columns", t.Schema.NumCols())
	return t, nil
}

func buildTable(stmt *parser.CreateTableStmt) (*Table, error) {
	t := &Table{Name: stmt.Name, RowidAlias: -1}
	seen := make(map[string]bool)
	var pk []*parser.IndexedColumn
	pkCount := 0
	var uniques [][]*parser.IndexedColumn

	for _, cd := range stmt.Columns {
		if seen[key(cd.Name)] {
			return nil, dberr.Schema("duplicate column name: %s", cd.Name)
		}
		seen[key(cd.Name)] = true
		if cd.Collate != "" {
			if _, ok := record.LookupCollation(cd.Collate); !ok {
				return nil, dberr.Schema("no such collation sequence: %s", cd.Collate)
			}
		}
		t.Schema.Cols = append(t.Schema.Cols, record.Column{
			Name:      cd.Name,
			Table:     stmt.Name,
			DeclType:  cd.Type,
			Affinity:  record.AffinityOf(cd.Type),
			NotNull:   cd.NotNull,
			Collation: cd.Collate,
		})
		t.Defaults = append(t.Defaults, cd.Default)
		for _, chk := range cd.Checks {
			t.Checks = append(t.Checks, Check{Expr: chk})
		}
		if cd.PrimaryKey {
			pkCount++
			pk = []*parser.IndexedColumn{{Name: cd.Name, Desc: cd.PKDesc}}
		}
		if cd.Unique {
			uniques = append(uniques, []*parser.IndexedColumn{{Name: cd.Name}})
		}
	}
	for _, tc := range stmt.Constraints {
		switch tc.Kind {
		case parser.ConstraintPrimaryKey:
			pkCount++
			pk = tc.Columns
		case parser.ConstraintUnique:
			uniques = append(uniques, tc.Columns)
		case parser.ConstraintCheck:
			t.Checks = append(t.Checks, Check{Name: tc.Name, Expr: tc.Check})
		}
	}
	if pkCount > 1 {
		return nil, dberr.Schema("table %q has more than one primary key", stmt.Name)
	}
	t.Heap = heap.NewTable(t.Name, t.Schema)

	if pk != nil {
		cols, err := t.resolveColumns(pk)
		if err != nil {
			return nil, err
		}
		t.PrimaryKey = cols
		if len(cols) == 1 && !pk[0].Desc && strings.EqualFold(strings.TrimSpace(t.Schema.Cols[cols[0]].DeclType), "INTEGER") {
			t.RowidAlias = cols[0]
		} else {
			uniques = append([][]*parser.IndexedColumn{pk}, uniques...)
		}
	}
	for i, u := range uniques {
		ix, err := t.newIndex(fmt.Sprintf("sqlite_autoindex_%s_%d", t.Name, i+1), u, true)
		if err != nil {
			return nil, err
		}
		ix.Auto = true
		t.Indexes = append(t.Indexes, ix)
	}
	return t, nil
}

func (t *Table) resolveColumns(cols []*parser.IndexedColumn) ([]int, error) {
	out := make([]int, len(cols))
	for i, ic := range cols {
		pos := t.ColumnIndex(ic.Name)
		if pos < 0 {
			return nil, dberr.Schema("no such column: %s", ic.Name)
		}
		out[i] = pos
	}
	return out, nil
}

func (t *Table) newIndex(name string, cols []*parser.IndexedColumn, unique bool) (*btree.Index, error) {
	pos, err := t.resolveColumns(cols)
	if err != nil {
		return nil, err
	}
	colls := make([]record.Collation, len(cols))
	desc := make([]bool, len(cols))
	for i, ic := range cols {
		colls[i] = t.Schema.CollationOf(pos[i])
		if ic.Collate != "" {
			coll, ok := record.LookupCollation(ic.Collate)
			if !ok {
				return nil, dberr.Schema("no such collation sequence: %s", ic.Collate)
			}
			colls[i] = coll
		}
		desc[i] = ic.Desc
	}
	return btree.New(name, t.Name, pos, colls, desc, unique), nil
}

// DropTable removes a table and its indexes.
func (c *Catalog) DropTable(name string, ifExists bool) error {
	t, ok := c.Table(name)
	if !ok {
		if ifExists {
			return nil
		}
		return dberr.Wrap(dberr.KindNotFound, ErrNoSuchTable, "no such table: %s", name)
	}
	for _, ix := range t.Indexes {
		delete(c.indexes, key(ix.Name))
	}
	delete(c.tables, key(name))
	slog.Debug("catalog: table dropped", "table", t.Name)
	return nil
}

// CreateIndex builds an index over the current rows of its table.
func (c *Catalog) CreateIndex(stmt *parser.CreateIndexStmt) error {
	if _, exists := c.Index(stmt.Name); exists {
		if stmt.IfNotExists {
			return nil
		}
		return dberr.Wrap(dberr.KindSchema, ErrIndexExists, "index %s already exists", stmt.Name)
	}
	if err := c.nameTaken(stmt.Name); err != nil {
		return err
	}
	t, ok := c.Table(stmt.Table)
	if !ok {
		return dberr.Wrap(dberr.KindNotFound, ErrNoSuchTable, "no such table: %s", stmt.Table)
	}
	ix, err := t.newIndex(stmt.Name, stmt.Columns, stmt.Unique)
	if err != nil {
		return err
	}
	err = t.Heap.Scan(func(id heap.RowID, row record.Row) error {
		k := ix.KeyOf(row)
		if ix.Unique && !hasNull(k) && len(ix.SearchEqual(k)) > 0 {
			return dberr.Constraint("UNIQUE constraint failed: %s", t.indexColumnList(ix))
		}
		return ix.Insert(k, id)
	})
	if err != nil {
		return err
	}
	t.Indexes = append(t.Indexes, ix)
	c.indexes[key(ix.Name)] = ix
	slog.Debug("catalog: index created", "index", ix.Name, "table", t.Name, "entries", ix.Len())
	return nil
}

// DropIndex removes an explicitly created index.
func (c *Catalog) DropIndex(name string, ifExists bool) error {
	ix, ok := c.Index(name)
	if !ok {
		if ifExists {
			return nil
		}
		return dberr.Wrap(dberr.KindNotFound, ErrNoSuchIndex, "no such index: %s", name)
	}
	if ix.Auto {
		return dberr.Schema("index associated with UNIQUE or PRIMARY KEY constraint cannot be dropped")
	}
	if t, ok := c.Table(ix.Table); ok {
		for i, other := range t.Indexes {
			if other == ix {
				t.Indexes = append(t.Indexes[:i:i], t.Indexes[i+1:]...)
				break
			}
		}
	}
	delete(c.indexes, key(name))
	return nil
}

func (c *Catalog) CreateView(stmt *parser.CreateViewStmt) error {
	if err := c.nameTaken(stmt.Name); err != nil {
		if stmt.IfNotExists {
			return nil
		}
		return err
	}
	c.views[key(stmt.Name)] = &View{Name: stmt.Name, Columns: stmt.Columns, Select: stmt.Select}
	return nil
}

func (c *Catalog) DropView(name string, ifExists bool) error {
	if _, ok := c.View(name); !ok {
		if ifExists {
			return nil
		}
		return dberr.Wrap(dberr.KindNotFound, ErrNoSuchView, "no such view: %s", name)
	}
	delete(c.views, key(name))
	return nil
}

func hasNull(row record.Row) bool {
	for _, v := range row {
		if v.IsNull() {
			return true
		}
	}
	return false
}
