package record

import "strings"

// Affinity is the preferred storage class of a column or expression.
type Affinity uint8

const (
	AffinityNone Affinity = iota // BLOB affinity: values are stored as given
	AffinityText
	AffinityNumeric
	AffinityInteger
	AffinityReal
)

func (a Affinity) String() string {
	switch a {
	case AffinityText:
		return "TEXT"
	case AffinityNumeric:
		return "NUMERIC"
	case AffinityInteger:
		return "INTEGER"
	case AffinityReal:
		return "REAL"
	default:
		return "BLOB"
	}
}

// IsNumeric reports whether a prefers numbers (NUMERIC, INTEGER, REAL).
func (a Affinity) IsNumeric() bool { return a >= AffinityNumeric }

// AffinityOf derives a column affinity from its declared type name. The
// rules are checked in order against the upper-cased type name.
func AffinityOf(declType string) Affinity {
	t := strings.ToUpper(declType)
	switch {
	case strings.Contains(t, "INT"):
		return AffinityInteger
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return AffinityText
	case t == "" || strings.Contains(t, "BLOB"):
		return AffinityNone
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return AffinityReal
	default:
		return AffinityNumeric
	}
}

// Apply converts v toward a. Conversions never fail: a value that cannot be
// converted losslessly is returned unchanged.
func (a Affinity) Apply(v Value) Value {
	switch a {
	case AffinityText:
		if v.IsNumeric() {
			return Text(v.AsText())
		}
		return v
	case AffinityNumeric, AffinityInteger:
		switch v.kind {
		case KindText:
			n, ok := ParseNumeric(v.s)
			if !ok {
				return v
			}
			if n.kind == KindReal {
				if i, exact := exactInt(n.f); exact {
					return Int(i)
				}
			}
			return n
		case KindReal:
			if i, exact := exactInt(v.f); exact {
				return Int(i)
			}
		}
		return v
	case AffinityReal:
		switch v.kind {
		case KindInteger:
			return Real(float64(v.i))
		case KindText:
			n, ok := ParseNumeric(v.s)
			if !ok {
				return v
			}
			if n.kind == KindInteger {
				return Real(float64(n.i))
			}
			return n
		}
		return v
	default:
		return v
	}
}

// ComparisonAffinity picks the affinity applied to both operands of a
// comparison whose sides carry affinities l and r. hasL and hasR are false
// for operands without affinity (literals and most expressions).
func ComparisonAffinity(l Affinity, hasL bool, r Affinity, hasR bool) (Affinity, bool) {
	switch {
	case hasL && l.IsNumeric() || hasR && r.IsNumeric():
		return AffinityNumeric, true
	case hasL && l == AffinityText || hasR && r == AffinityText:
		if hasL && hasR {
			// TEXT against BLOB: no conversion
			if l == AffinityNone || r == AffinityNone {
				return AffinityNone, false
			}
		}
		return AffinityText, true
	default:
		return AffinityNone, false
	}
}

// ApplyComparison converts an operand for a comparison under affinity a.
// Unlike Apply it leaves reals alone, which does not change any ordering.
func (a Affinity) ApplyComparison(v Value) Value {
	switch {
	case a.IsNumeric():
		if v.kind == KindText {
			if n, ok := ParseNumeric(v.s); ok {
				return n
			}
		}
		return v
	case a == AffinityText:
		if v.IsNumeric() {
			return Text(v.AsText())
		}
		return v
	default:
		return v
	}
}
