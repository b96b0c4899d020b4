package planner

import (
	"math"

	"github.com/tuannm99/novalite/internal/btree"
	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/sql/binder"
	"github.com/tuannm99/novalite/internal/sql/parser"
)

// term is a conjunct of the form column OP probe, normalized so the column
// is on the left.
type term struct {
	col   int // table column, or NumCols for the rowid
	op    parser.BinaryOp
	probe Probe
}

// planTable chooses between a full scan and an index or rowid lookup for a
// table with the given local conjuncts.
func (b *Builder) planTable(src *binder.TableSource, conds []binder.Expr, width int) (Node, float64) {
	filter := binder.JoinAnd(conds)
	card := math.Max(float64(src.Table.Cardinality()), 1)
	terms := tableTerms(src, conds)

	rowid := src.Table.Schema.NumCols()
	for _, t := range terms {
		if t.col == rowid && t.op == parser.OpEq && rowidProbe(t.probe.Cmp) {
			return &IndexScan{Source: src, Width: width, Eq: []Probe{t.probe}, Filter: filter}, 1
		}
	}

	var best *IndexScan
	bestEst := card
	if filter != nil {
		bestEst = math.Max(card/2, 1)
	}
	for _, ix := range src.Table.Indexes {
		scan, est := indexAccess(ix, terms, card)
		if scan != nil && (est < bestEst || best == nil && est <= bestEst) {
			best, bestEst = scan, est
		}
	}
	if best == nil {
		return &Scan{Source: src, Width: width, Filter: filter}, bestEst
	}
	best.Source, best.Width, best.Filter = src, width, filter
	return best, bestEst
}

// indexAccess builds the lookup ix supports for terms: an equality prefix,
// or else a range on the leading column.
func indexAccess(ix *btree.Index, terms []term, card float64) (*IndexScan, float64) {
	scan := &IndexScan{Index: ix}
	for k, col := range ix.Columns {
		t, ok := findTerm(terms, col, ix.Colls[k], parser.OpEq)
		if !ok {
			break
		}
		scan.Eq = append(scan.Eq, t.probe)
	}
	if n := len(scan.Eq); n > 0 {
		if n == len(ix.Columns) && ix.Unique {
			return scan, 1
		}
		return scan, math.Max(card/math.Pow(10, float64(n)), 1)
	}

	lead, coll := ix.Columns[0], ix.Colls[0]
	if t, ok := findTerm(terms, lead, coll, parser.OpGt); ok {
		scan.Lo = &Bound{Probe: t.probe}
	} else if t, ok := findTerm(terms, lead, coll, parser.OpGe); ok {
		scan.Lo = &Bound{Probe: t.probe, Inclusive: true}
	}
	if t, ok := findTerm(terms, lead, coll, parser.OpLt); ok {
		scan.Hi = &Bound{Probe: t.probe}
	} else if t, ok := findTerm(terms, lead, coll, parser.OpLe); ok {
		scan.Hi = &Bound{Probe: t.probe, Inclusive: true}
	}
	switch {
	case scan.Lo != nil && scan.Hi != nil:
		return scan, math.Max(card/8, 1)
	case scan.Lo != nil || scan.Hi != nil:
		return scan, math.Max(card/4, 1)
	default:
		return nil, 0
	}
}

func findTerm(terms []term, col int, coll record.Collation, op parser.BinaryOp) (term, bool) {
	for _, t := range terms {
		if t.col == col && t.op == op && sameCollation(t.probe.Cmp.Coll, coll) {
			return t, true
		}
	}
	return term{}, false
}

func sameCollation(a, b record.Collation) bool {
	if a == nil {
		a = record.Binary
	}
	if b == nil {
		b = record.Binary
	}
	return a.Name() == b.Name()
}

// tableTerms extracts the conjuncts usable for a lookup on src: a column of
// src compared with a value that does not depend on the current row, under
// a comparison that orders stored values the way the index does.
func tableTerms(src *binder.TableSource, conds []binder.Expr) []term {
	var out []term
	ncols := src.Table.Schema.NumCols()
	for _, c := range conds {
		bin, ok := c.(*binder.Binary)
		if !ok {
			continue
		}
		op, ok := rangeOp(bin.Op)
		if !ok {
			continue
		}
		col, probe := bin.L, bin.R
		if _, isCol := col.(*binder.Column); !isCol {
			col, probe, op = bin.R, bin.L, flip(op)
		}
		ref, isCol := col.(*binder.Column)
		if !isCol || len(binder.ColumnsUsed(probe)) > 0 {
			continue
		}
		pos := ref.Index - src.Offset
		if pos < 0 || pos > ncols {
			continue
		}
		if pos == src.Table.RowidAlias {
			pos = ncols
		}
		if pos < ncols && !storedOrder(src.Table.Schema.Cols[pos].Affinity, bin.Cmp) {
			continue
		}
		out = append(out, term{col: pos, op: op, probe: Probe{Expr: probe, Cmp: bin.Cmp}})
	}
	return out
}

// storedOrder reports whether comparing a stored value under cmp agrees
// with comparing it as stored. Affinity conversion of the probe is done
// when the scan opens.
func storedOrder(col record.Affinity, cmp binder.Comparison) bool {
	if !cmp.Apply {
		return true
	}
	switch {
	case cmp.Affinity.IsNumeric():
		return col.IsNumeric()
	case cmp.Affinity == record.AffinityText:
		return col == record.AffinityText
	default:
		return false
	}
}

func rowidProbe(cmp binder.Comparison) bool {
	return !cmp.Apply || cmp.Affinity.IsNumeric()
}

func rangeOp(op parser.BinaryOp) (parser.BinaryOp, bool) {
	switch op {
	case parser.OpEq, parser.OpLt, parser.OpLe, parser.OpGt, parser.OpGe:
		return op, true
	default:
		return op, false
	}
}

func flip(op parser.BinaryOp) parser.BinaryOp {
	switch op {
	case parser.OpLt:
		return parser.OpGt
	case parser.OpLe:
		return parser.OpGe
	case parser.OpGt:
		return parser.OpLt
	case parser.OpGe:
		return parser.OpLe
	default:
		return op
	}
}
