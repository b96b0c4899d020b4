package record

import "strings"

// typeClass ranks storage classes: NULL < numbers < text < blob.
func typeClass(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindInteger, KindReal:
		return 1
	case KindText:
		return 2
	default:
		return 3
	}
}

// Compare totally orders a and b. Text is compared under coll (BINARY when
// nil). NULL equals NULL here; three-valued logic is the caller's business.
func Compare(a, b Value, coll Collation) int {
	ca, cb := typeClass(a.kind), typeClass(b.kind)
	if ca != cb {
		if ca < cb {
			return -1
		}
		return 1
	}
	switch ca {
	case 0:
		return 0
	case 1:
		return compareNumbers(a, b)
	case 2:
		if coll == nil {
			return strings.Compare(a.s, b.s)
		}
		return coll.Compare(a.s, b.s)
	default:
		return strings.Compare(a.s, b.s)
	}
}

func compareNumbers(a, b Value) int {
	switch {
	case a.kind == KindInteger && b.kind == KindInteger:
		return cmpInt(a.i, b.i)
	case a.kind == KindReal && b.kind == KindReal:
		return cmpFloat(a.f, b.f)
	case a.kind == KindInteger:
		return compareIntReal(a.i, b.f)
	default:
		return -compareIntReal(b.i, a.f)
	}
}

// compareIntReal compares exactly, without rounding i to a float64 first.
func compareIntReal(i int64, r float64) int {
	if r < -9223372036854775808.0 {
		return 1
	}
	if r >= 9223372036854775808.0 {
		return -1
	}
	y := int64(r)
	if i < y {
		return -1
	}
	if i > y {
		return 1
	}
	return cmpFloat(float64(i), r)
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// CompareRows orders rows lexicographically with a per-column collation.
func CompareRows(a, b Row, colls []Collation) int {
	for i := range a {
		var c Collation
		if i < len(colls) {
			c = colls[i]
		}
		if r := Compare(a[i], b[i], c); r != 0 {
			return r
		}
	}
	return 0
}
