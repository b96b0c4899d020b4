package binder

import (
	"fmt"
	"strings"

	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/sql/function"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

func (b *Binder) bindFrom(item parser.FromItem, sc *scope) (Source, error) {
	switch x := item.(type) {
	case *parser.TableRef:
		return b.bindTableRef(x, sc)
	case *parser.SubqueryRef:
		q, err := b.bindQuery(x.Select, sc.parent, sc.subs)
		if err != nil {
			return nil, err
		}
		return b.addQuerySource(q, x.Alias, nil, sc)
	case *parser.JoinExpr:
		return b.bindJoin(x, sc)
	default:
		return nil, dberr.Bind("unsupported FROM item %T", item)
	}
}

func (b *Binder) bindTableRef(ref *parser.TableRef, sc *scope) (Source, error) {
	name := ref.Alias
	if name == "" {
		name = ref.Name
	}
	if def := b.lookupCTE(ref.Name); def != nil {
		saved := b.ctes
		b.ctes = b.ctes[:def.visible]
		q, err := b.bindQuery(def.stmt, def.parent, def.subs)
		b.ctes = saved
		if err != nil {
			return nil, err
		}
		return b.addQuerySource(q, name, def.columns, sc)
	}
	if t, ok := b.cat.Table(ref.Name); ok {
		return b.addTableSource(t, name, sc), nil
	}
	if v, ok := b.cat.View(ref.Name); ok {
		if b.viewDepth >= maxViewDepth {
			return nil, dberr.Bind("view %s is circularly defined", v.Name)
		}
		b.viewDepth++
		saved := b.ctes
		b.ctes = nil
		q, err := b.bindQuery(v.Select, nil, nil)
		b.ctes = saved
		b.viewDepth--
		if err != nil {
			return nil, err
		}
		return b.addQuerySource(q, name, v.Columns, sc)
	}
	return nil, dberr.Bind("no such table: %s", ref.Name)
}

func (b *Binder) lookupCTE(name string) *cteDef {
	for i := len(b.ctes) - 1; i >= 0; i-- {
		if strings.EqualFold(b.ctes[i].name, name) {
			return b.ctes[i]
		}
	}
	return nil
}

func (b *Binder) addTableSource(t *catalog.Table, name string, sc *scope) *TableSource {
	src := &TableSource{Table: t, Name: name, Offset: sc.width}
	n := t.Schema.NumCols()
	ss := &scopeSource{name: name, rowid: sc.width + n}
	for i, c := range t.Schema.Cols {
		info := Info{Affinity: c.Affinity, HasAffinity: true}
		if c.Collation != "" {
			info.Collation = t.Schema.CollationOf(i)
		}
		ss.cols = append(ss.cols, scopeCol{name: c.Name, index: sc.width + i, info: info})
	}
	sc.addSource(ss)
	sc.width += n + 1
	return src
}

func (b *Binder) addQuerySource(q *Query, name string, names []string, sc *scope) (Source, error) {
	n := q.NumColumns()
	if names != nil && len(names) != n {
		return nil, dberr.Bind("table %s has %d values for %d columns", name, n, len(names))
	}
	if names == nil {
		names = make([]string, n)
		for i, c := range q.Columns {
			names[i] = c.Name
		}
	}
	names = uniqueNames(names)
	src := &SubquerySource{Query: q, Name: name, Offset: sc.width}
	ss := &scopeSource{name: name, rowid: -1}
	for i, c := range q.Columns {
		info := c.Info
		info.Explicit = false
		ss.cols = append(ss.cols, scopeCol{name: names[i], index: sc.width + i, info: info})
	}
	sc.addSource(ss)
	sc.width += n
	return src, nil
}

// uniqueNames suffixes repeated column names with ":N".
func uniqueNames(names []string) []string {
	out := make([]string, len(names))
	seen := make(map[string]int)
	for i, n := range names {
		k := strings.ToLower(n)
		if c, dup := seen[k]; dup {
			seen[k] = c + 1
			out[i] = fmt.Sprintf("%s:%d", n, c+1)
			continue
		}
		seen[k] = 0
		out[i] = n
	}
	return out
}

func (b *Binder) bindJoin(j *parser.JoinExpr, sc *scope) (Source, error) {
	start := len(sc.sources)
	left, err := b.bindFrom(j.Left, sc)
	if err != nil {
		return nil, err
	}
	mid := len(sc.sources)
	right, err := b.bindFrom(j.Right, sc)
	if err != nil {
		return nil, err
	}
	kind := j.Kind
	if kind == parser.JoinCross {
		kind = parser.JoinInner
	}

	using := j.Using
	if j.Natural {
		using = commonColumns(sc.sources[start:mid], sc.sources[mid:])
	}
	var on []Expr
	for _, name := range using {
		lsrc, lcol := findVisible(sc.sources[start:mid], name)
		rsrc, rcol := findVisible(sc.sources[mid:], name)
		if lcol == nil || rcol == nil {
			return nil, dberr.Bind("cannot join using column %s - column not present in both tables", name)
		}
		l := &Column{Index: lcol.index, Name: lsrc.name + "." + lcol.name, Type: lcol.info}
		r := &Column{Index: rcol.index, Name: rsrc.name + "." + rcol.name, Type: rcol.info}
		on = append(on, &Binary{Op: parser.OpEq, L: l, R: r, Cmp: comparison(l.Type, r.Type)})
		rcol.hidden = true
		if kind == parser.JoinRight || kind == parser.JoinFull {
			fn, err := function.LookupScalar("coalesce", 2)
			if err != nil {
				return nil, err
			}
			lcol.merged = &Func{Def: fn, Args: []Expr{l, r}, Coll: l.Type.Collation}
		}
	}
	if j.On != nil {
		e, err := b.bindExpr(j.On, sc)
		if err != nil {
			return nil, err
		}
		on = append(on, e)
	}
	return &JoinSource{Kind: kind, Left: left, Right: right, On: JoinAnd(on)}, nil
}

func findVisible(srcs []*scopeSource, name string) (*scopeSource, *scopeCol) {
	for _, src := range srcs {
		for i := range src.cols {
			c := &src.cols[i]
			if !c.hidden && strings.EqualFold(c.name, name) {
				return src, c
			}
		}
	}
	return nil, nil
}

func commonColumns(left, right []*scopeSource) []string {
	var out []string
	for _, rs := range right {
		for _, c := range rs.cols {
			if c.hidden {
				continue
			}
			if _, lc := findVisible(left, c.name); lc != nil {
				out = append(out, c.name)
			}
		}
	}
	return out
}
