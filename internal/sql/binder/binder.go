// Package binder resolves parsed statements against the catalog. It turns
// names into row positions, annotates expressions with affinity and
// collation, expands stars, collects aggregates and checks grouping.
package binder

import (
	"fmt"
	"strings"

	"github.com/tuannm99/novalite/internal/catalog"
	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

const maxViewDepth = 64

// Options tune binding rules.
type Options struct {
	// StrictGrouping rejects result columns of an aggregate query that are
	// neither grouped nor aggregated, instead of taking them from an
	// arbitrary row of the group.
	StrictGrouping bool
}

// Binder binds statements of one session. It is not safe for concurrent use.
type Binder struct {
	cat       *catalog.Catalog
	opts      Options
	ctes      []*cteDef
	viewDepth int
}

type cteDef struct {
	name    string
	columns []string
	stmt    *parser.SelectStmt
	parent  *scope
	subs    []*Subquery
	// visible is how many entries of Binder.ctes the body may see.
	visible int
}

func New(cat *catalog.Catalog, opts Options) *Binder {
	return &Binder{cat: cat, opts: opts}
}

// BindSelect binds a top-level query.
func (b *Binder) BindSelect(stmt *parser.SelectStmt) (*Query, error) {
	return b.bindQuery(stmt, nil, nil)
}

func (b *Binder) bindQuery(stmt *parser.SelectStmt, parent *scope, subs []*Subquery) (*Query, error) {
	if len(stmt.With) > 0 {
		saved := b.ctes
		defer func() { b.ctes = saved }()
		for _, c := range stmt.With {
			b.ctes = append(b.ctes, &cteDef{
				name:    c.Name,
				columns: c.Columns,
				stmt:    c.Select,
				parent:  parent,
				subs:    subs,
				visible: len(b.ctes),
			})
		}
	}

	q := &Query{}
	if core, ok := stmt.Body.(*parser.SelectCore); ok {
		sel, sc, err := b.bindCore(core, parent, subs)
		if err != nil {
			return nil, err
		}
		q.Body = sel.Select
		q.Columns = sel.columns
		if err := b.bindCoreOrderBy(q, sel, sc, stmt.OrderBy); err != nil {
			return nil, err
		}
		if err := b.checkGrouping(sel.Select, sc); err != nil {
			return nil, err
		}
	} else {
		body, cols, first, err := b.bindBody(stmt.Body, parent, subs)
		if err != nil {
			return nil, err
		}
		q.Body = body
		q.Columns = cols
		if err := b.bindCompoundOrderBy(q, first, stmt.OrderBy); err != nil {
			return nil, err
		}
	}

	limScope := newScope(parent, subs)
	var err error
	if stmt.Limit != nil {
		if q.Limit, err = b.bindExpr(stmt.Limit, limScope); err != nil {
			return nil, err
		}
	}
	if stmt.Offset != nil {
		if q.Offset, err = b.bindExpr(stmt.Offset, limScope); err != nil {
			return nil, err
		}
	}
	return q, nil
}

// boundCore is a bound SELECT core plus what ORDER BY resolution needs.
type boundCore struct {
	*Select
	columns []ResultColumn
	// exprs are the parsed select-list expressions behind each output,
	// nil for star expansions.
	exprs   []parser.Expr
	aliases []string
}

// bindBody binds one side of a compound select. first is the leftmost core,
// whose result names the compound's columns.
func (b *Binder) bindBody(body parser.SelectBody, parent *scope, subs []*Subquery) (Body, []ResultColumn, *boundCore, error) {
	switch x := body.(type) {
	case *parser.SelectCore:
		sel, sc, err := b.bindCore(x, parent, subs)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := b.checkGrouping(sel.Select, sc); err != nil {
			return nil, nil, nil, err
		}
		return sel.Select, sel.columns, sel, nil
	case *parser.CompoundSelect:
		left, cols, first, err := b.bindBody(x.Left, parent, subs)
		if err != nil {
			return nil, nil, nil, err
		}
		right, rcols, _, err := b.bindBody(x.Right, parent, subs)
		if err != nil {
			return nil, nil, nil, err
		}
		if len(cols) != len(rcols) {
			return nil, nil, nil, dberr.Bind("SELECTs to the left and right of %s do not have the same number of result columns", x.Op)
		}
		colls := make([]record.Collation, len(cols))
		for i := range cols {
			colls[i] = cols[i].Info.Collation
			if colls[i] == nil {
				colls[i] = rcols[i].Info.Collation
			}
		}
		return &Compound{Op: x.Op, Left: left, Right: right, Colls: colls}, cols, first, nil
	default:
		return nil, nil, nil, dberr.Bind("unsupported select body %T", body)
	}
}

func (b *Binder) bindCore(core *parser.SelectCore, parent *scope, subs []*Subquery) (*boundCore, *scope, error) {
	if core.Values != nil {
		return b.bindValues(core, parent, subs)
	}
	sc := newScope(parent, subs)
	sel := &Select{Distinct: core.Distinct}
	if core.From != nil {
		from, err := b.bindFrom(core.From, sc)
		if err != nil {
			return nil, nil, err
		}
		sel.From = from
	}
	sel.Width = sc.width
	st := &selectState{
		width:     sc.width,
		aliases:   make(map[string]parser.Expr),
		expanding: make(map[string]bool),
		aggMisuse: "misuse of aggregate: %s()",
	}
	for _, rc := range core.Columns {
		if rc.Alias != "" && rc.Expr != nil {
			if _, dup := st.aliases[strings.ToLower(rc.Alias)]; !dup {
				st.aliases[strings.ToLower(rc.Alias)] = rc.Expr
			}
		}
	}
	sc.sel = st

	var err error
	st.aliasesOn = true
	if core.Where != nil {
		if sel.Where, err = b.bindExpr(core.Where, sc); err != nil {
			return nil, nil, err
		}
	}

	if len(core.GroupBy) > 0 {
		st.aggMisuse = "aggregate functions are not allowed in the GROUP BY clause"
		if b.opts.StrictGrouping {
			st.groupTexts = make(map[string]bool)
			st.groupedIndex = make(map[int]bool)
		}
		for i, g := range core.GroupBy {
			pe := g
			if k, ok := ordinal(g); ok {
				if k < 1 || k > len(core.Columns) || core.Columns[k-1].Star {
					return nil, nil, dberr.Bind("%s GROUP BY term out of range - should be between 1 and %d", ordinalWord(i+1), len(core.Columns))
				}
				pe = core.Columns[k-1].Expr
			}
			e, err := b.bindExpr(pe, sc)
			if err != nil {
				return nil, nil, err
			}
			sel.GroupBy = append(sel.GroupBy, e)
			sel.GroupColls = append(sel.GroupColls, e.Info().Collation)
			if st.groupTexts != nil {
				st.groupTexts[exprKey(pe)] = true
				if c, ok := e.(*Column); ok {
					st.groupedIndex[c.Index] = true
				}
			}
		}
		st.aggMisuse = "misuse of aggregate: %s()"
	}
	st.aliasesOn = false
	st.aggAllowed = true

	out := &boundCore{Select: sel}
	for _, rc := range core.Columns {
		if rc.Star {
			n, err := b.expandStar(rc, sc, out)
			if err != nil {
				return nil, nil, err
			}
			if n == 0 && rc.Table != "" {
				return nil, nil, dberr.Bind("no such table: %s", rc.Table)
			}
			continue
		}
		e, err := b.bindExpr(rc.Expr, sc)
		if err != nil {
			return nil, nil, err
		}
		name := rc.Alias
		if name == "" {
			name = rc.Text
			if ref, ok := rc.Expr.(*parser.ColumnRef); ok {
				name = ref.Column
			}
		}
		sel.Exprs = append(sel.Exprs, e)
		out.columns = append(out.columns, ResultColumn{Name: name, Info: e.Info()})
		out.exprs = append(out.exprs, rc.Expr)
		out.aliases = append(out.aliases, rc.Alias)
	}
	sel.NumOutputs = len(sel.Exprs)

	if core.Having != nil {
		st.aliasesOn = true
		if sel.Having, err = b.bindExpr(core.Having, sc); err != nil {
			return nil, nil, err
		}
		st.aliasesOn = false
	}
	sel.Aggs = st.aggs
	sel.Aggregated = len(sel.GroupBy) > 0 || len(st.aggs) > 0
	if sel.Having != nil && !sel.Aggregated {
		return nil, nil, dberr.Bind("a GROUP BY clause is required before HAVING")
	}
	return out, sc, nil
}

// expandStar appends the columns matched by * or t.* and returns how many
// were added.
func (b *Binder) expandStar(rc *parser.ResultColumn, sc *scope, out *boundCore) (int, error) {
	if len(sc.sources) == 0 {
		return 0, dberr.Bind("no tables specified")
	}
	n := 0
	for _, src := range sc.sources {
		if rc.Table != "" && !strings.EqualFold(src.name, rc.Table) {
			continue
		}
		for _, c := range src.cols {
			if c.hidden && rc.Table == "" {
				continue
			}
			var e Expr = &Column{Index: c.index, Name: src.name + "." + c.name, Type: c.info}
			if c.merged != nil && rc.Table == "" {
				e = c.merged
			}
			out.Select.Exprs = append(out.Select.Exprs, e)
			out.columns = append(out.columns, ResultColumn{Name: c.name, Info: e.Info()})
			out.exprs = append(out.exprs, nil)
			out.aliases = append(out.aliases, "")
			n++
		}
	}
	return n, nil
}

func (b *Binder) bindValues(core *parser.SelectCore, parent *scope, subs []*Subquery) (*boundCore, *scope, error) {
	sc := newScope(parent, subs)
	sel := &Select{}
	width := len(core.Values[0])
	for _, row := range core.Values {
		if len(row) != width {
			return nil, nil, dberr.Bind("all VALUES must have the same number of terms")
		}
		bound := make([]Expr, len(row))
		for i, pe := range row {
			e, err := b.bindExpr(pe, sc)
			if err != nil {
				return nil, nil, err
			}
			bound[i] = e
		}
		sel.Values = append(sel.Values, bound)
	}
	out := &boundCore{Select: sel}
	for i := 0; i < width; i++ {
		name := fmt.Sprintf("column%d", i+1)
		sel.Exprs = append(sel.Exprs, &Column{Index: i, Name: name})
		out.columns = append(out.columns, ResultColumn{Name: name})
		out.exprs = append(out.exprs, nil)
		out.aliases = append(out.aliases, "")
	}
	sel.NumOutputs = width
	return out, sc, nil
}

// checkGrouping enforces StrictGrouping once a core is fully bound.
func (b *Binder) checkGrouping(sel *Select, sc *scope) error {
	if !b.opts.StrictGrouping || !sel.Aggregated || sc.sel == nil {
		return nil
	}
	for _, ref := range sc.sel.bare {
		if ref.grouped || sc.sel.groupedIndex[ref.index] {
			continue
		}
		return dberr.Bind("column %s must appear in the GROUP BY clause or be used in an aggregate function", ref.name)
	}
	return nil
}

func ordinal(e parser.Expr) (int, bool) {
	lit, ok := e.(*parser.Literal)
	if !ok || lit.Value.Kind() != record.KindInteger {
		return 0, false
	}
	return int(lit.Value.Int()), true
}

func ordinalWord(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}

// exprKey is a case-insensitive rendering used to match expressions
// textually across clauses.
func exprKey(e parser.Expr) string {
	return strings.ToLower(parser.FormatExpr(e))
}

func stripCollate(e parser.Expr) (parser.Expr, string) {
	if c, ok := e.(*parser.CollateExpr); ok {
		return c.X, c.Collation
	}
	return e, ""
}

func nullsFirst(t *parser.OrderTerm) bool {
	switch t.Nulls {
	case parser.NullsFirst:
		return true
	case parser.NullsLast:
		return false
	default:
		return !t.Desc
	}
}

func (b *Binder) sortKey(t *parser.OrderTerm, index int, info Info, collName string) (SortKey, error) {
	coll := info.Collation
	if collName != "" {
		c, ok := record.LookupCollation(collName)
		if !ok {
			return SortKey{}, dberr.Bind("no such collation sequence: %s", collName)
		}
		coll = c
	}
	return SortKey{Index: index, Desc: t.Desc, NullsFirst: nullsFirst(t), Coll: coll}, nil
}

// matchOutput finds the visible column an ORDER BY term names by ordinal,
// alias or identical expression. It returns -1 when nothing matches.
func matchOutput(core *boundCore, term parser.Expr, n, pos int) (int, error) {
	if k, ok := ordinal(term); ok {
		if k < 1 || k > n {
			return 0, dberr.Bind("%s ORDER BY term out of range - should be between 1 and %d", ordinalWord(pos), n)
		}
		return k - 1, nil
	}
	if ref, ok := term.(*parser.ColumnRef); ok && ref.Table == "" {
		for i, a := range core.aliases {
			if a != "" && strings.EqualFold(a, ref.Column) {
				return i, nil
			}
		}
	}
	key := exprKey(term)
	for i, pe := range core.exprs {
		if pe != nil && exprKey(pe) == key {
			return i, nil
		}
	}
	return -1, nil
}

func (b *Binder) bindCoreOrderBy(q *Query, core *boundCore, sc *scope, terms []*parser.OrderTerm) error {
	sel := core.Select
	for i, t := range terms {
		term, collName := stripCollate(t.Expr)
		idx, err := matchOutput(core, term, sel.NumOutputs, i+1)
		if err != nil {
			return err
		}
		if idx < 0 {
			if sel.Values != nil {
				return dberr.Bind("%s ORDER BY term does not match any column in the result set", ordinalWord(i+1))
			}
			sc.sel.aliasesOn = true
			e, err := b.bindExpr(term, sc)
			sc.sel.aliasesOn = false
			if err != nil {
				return err
			}
			sel.Exprs = append(sel.Exprs, e)
			idx = len(sel.Exprs) - 1
		}
		key, err := b.sortKey(t, idx, sel.Exprs[idx].Info(), collName)
		if err != nil {
			return err
		}
		q.OrderBy = append(q.OrderBy, key)
	}
	if sc.sel != nil {
		sel.Aggs = sc.sel.aggs
		sel.Aggregated = len(sel.GroupBy) > 0 || len(sel.Aggs) > 0
	}
	return nil
}

func (b *Binder) bindCompoundOrderBy(q *Query, first *boundCore, terms []*parser.OrderTerm) error {
	for i, t := range terms {
		term, collName := stripCollate(t.Expr)
		idx, err := matchOutput(first, term, len(q.Columns), i+1)
		if err != nil {
			return err
		}
		if idx < 0 {
			if ref, ok := term.(*parser.ColumnRef); ok && ref.Table == "" {
				for j, c := range q.Columns {
					if strings.EqualFold(c.Name, ref.Column) {
						idx = j
						break
					}
				}
			}
		}
		if idx < 0 {
			return dberr.Bind("%s ORDER BY term does not match any column in the result set", ordinalWord(i+1))
		}
		info := q.Columns[idx].Info
		if cmp, ok := q.Body.(*Compound); ok && info.Collation == nil {
			info.Collation = cmp.Colls[idx]
		}
		key, err := b.sortKey(t, idx, info, collName)
		if err != nil {
			return err
		}
		q.OrderBy = append(q.OrderBy, key)
	}
	return nil
}
