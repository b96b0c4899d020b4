package record

import "strings"

// Column describes one column of a table or of an intermediate result.
type Column struct {
	Name     string
	Table    string // qualifying table name or alias, may be empty
	DeclType string
	Affinity Affinity
	NotNull  bool
	// Collation name, empty means BINARY.
	Collation string
	// Hidden columns are excluded from star expansion.
	Hidden bool
}

type Schema struct {
	Cols []Column
}

func (s Schema) NumCols() int { return len(s.Cols) }

// Index returns the position of the column named name, or -1.
func (s Schema) Index(name string) int {
	for i, c := range s.Cols {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

func (s Schema) Names() []string {
	out := make([]string, len(s.Cols))
	for i, c := range s.Cols {
		out[i] = c.Name
	}
	return out
}

// CollationOf resolves the collation of column i.
func (s Schema) CollationOf(i int) Collation {
	if c, ok := LookupCollation(s.Cols[i].Collation); ok {
		return c
	}
	return Binary
}

// Coerce applies each column's affinity to the matching value of row.
func (s Schema) Coerce(row Row) Row {
	out := make(Row, len(row))
	for i, v := range row {
		out[i] = s.Cols[i].Affinity.Apply(v)
	}
	return out
}
