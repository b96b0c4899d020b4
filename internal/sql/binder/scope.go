package binder

import (
	"strings"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// scope is the name environment of one SELECT core (or DML statement).
// parent is the enclosing query for correlated references. subs are the
// subquery expressions that become correlated when a reference leaves this
// scope.
type scope struct {
	parent  *scope
	subs    []*Subquery
	sources []*scopeSource
	width   int
	sel     *selectState
}

type scopeSource struct {
	name  string
	cols  []scopeCol
	rowid int // absolute row slot, -1 for sources without a rowid
}

type scopeCol struct {
	name  string
	index int
	info  Info
	// hidden columns were merged into the left side by USING or NATURAL and
	// are only reachable qualified.
	hidden bool
	// merged replaces unqualified references, for USING columns of outer
	// joins where either side may be NULL.
	merged Expr
}

// selectState tracks aggregate collection and grouping checks while one
// SELECT core is bound.
type selectState struct {
	width      int
	aggs       []*AggCall
	aggAllowed bool
	aggMisuse  string
	inAgg      int

	aliases      map[string]parser.Expr
	aliasesOn    bool
	expanding    map[string]bool
	groupTexts   map[string]bool
	grouped      int
	bare         []bareRef
	groupedIndex map[int]bool
}

type bareRef struct {
	index   int
	name    string
	grouped bool
}

func newScope(parent *scope, subs []*Subquery) *scope {
	return &scope{parent: parent, subs: subs}
}

func (s *scope) addSource(src *scopeSource) {
	s.sources = append(s.sources, src)
}

func isRowidName(name string) bool {
	switch strings.ToLower(name) {
	case "rowid", "oid", "_rowid_":
		return true
	}
	return false
}

func displayName(ref *parser.ColumnRef) string {
	if ref.Table != "" {
		return ref.Table + "." + ref.Column
	}
	return ref.Column
}

// find resolves ref among the sources of s only.
func (s *scope) find(ref *parser.ColumnRef) (Expr, bool, error) {
	var hits []Expr
	for _, src := range s.sources {
		if ref.Table != "" && !strings.EqualFold(src.name, ref.Table) {
			continue
		}
		for i := range src.cols {
			c := &src.cols[i]
			if !strings.EqualFold(c.name, ref.Column) {
				continue
			}
			if ref.Table == "" && c.hidden {
				continue
			}
			if ref.Table == "" && c.merged != nil {
				hits = append(hits, c.merged)
			} else {
				hits = append(hits, &Column{Index: c.index, Name: src.name + "." + c.name, Type: c.info})
			}
			break
		}
	}
	if len(hits) > 1 {
		return nil, false, dberr.Bind("ambiguous column name: %s", displayName(ref))
	}
	if len(hits) == 1 {
		return hits[0], true, nil
	}
	if !isRowidName(ref.Column) {
		return nil, false, nil
	}
	var rowids []Expr
	for _, src := range s.sources {
		if src.rowid < 0 || ref.Table != "" && !strings.EqualFold(src.name, ref.Table) {
			continue
		}
		rowids = append(rowids, &Column{
			Index: src.rowid,
			Name:  src.name + ".rowid",
			Type:  Info{Affinity: record.AffinityInteger, HasAffinity: true},
		})
	}
	if len(rowids) > 1 {
		return nil, false, dberr.Bind("ambiguous column name: %s", displayName(ref))
	}
	if len(rowids) == 1 {
		return rowids[0], true, nil
	}
	return nil, false, nil
}

// lift turns a reference found depth levels up into outer references.
func lift(e Expr, depth int) Expr {
	switch x := e.(type) {
	case *Column:
		return &Outer{Depth: depth, Index: x.Index, Name: x.Name, Type: x.Type}
	case *Func:
		args := make([]Expr, len(x.Args))
		for i, a := range x.Args {
			args[i] = lift(a, depth)
		}
		return &Func{Def: x.Def, Args: args, Coll: x.Coll}
	default:
		return e
	}
}

// markEscape records that a reference made in from resolved depth levels
// up, reading the given slots of that level's row.
func markEscape(from *scope, depth int, used []int) {
	s := from
	for i := 0; i < depth && s != nil; i++ {
		for _, sub := range s.subs {
			sub.Correlated = true
			if i == depth-1 {
				sub.Uses = append(sub.Uses, used...)
			}
		}
		s = s.parent
	}
}
