package slt

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/tuannm99/novalite/internal/record"
	"github.com/tuannm99/novalite/internal/shell"
)

// Format renders v the way sqllogictest prints a result column of type
// typ: I as an integer, R with three decimals, anything else as text.
func Format(v record.Value, typ byte) string {
	if v.IsNull() {
		return "NULL"
	}
	switch typ {
	case 'I':
		return strconv.FormatInt(v.AsInt(), 10)
	case 'R':
		return fmt.Sprintf("%.3f", v.AsFloat())
	}
	s := v.AsText()
	if s == "" {
		return "(empty)"
	}
	return shell.Printable(s)
}

// FormatRows flattens rows into formatted values, typing column i by
// types[i % len(types)].
func FormatRows(rows []record.Row, types string) []string {
	out := make([]string, 0, len(rows)*max(len(types), 1))
	for _, row := range rows {
		for i, v := range row {
			out = append(out, Format(v, typeAt(types, i)))
		}
	}
	return out
}

func typeAt(types string, i int) byte {
	if types == "" {
		return 'T'
	}
	return types[i%len(types)]
}

// normalize relaxes a value so that results printed by other engines
// compare equal: empty means NULL, integers drop fractions and reals drop
// trailing zeros.
func normalize(v string, typ byte) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, "NULL") {
		return "NULL"
	}
	switch typ {
	case 'I':
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			if i, err := strconv.ParseInt(v, 10, 64); err == nil {
				return strconv.FormatInt(i, 10)
			}
			return strconv.FormatInt(int64(f), 10)
		}
	case 'R':
		if f, err := strconv.ParseFloat(v, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			if f == math.Trunc(f) && math.Abs(f) < 1e18 {
				return strconv.FormatInt(int64(f), 10) + ".0"
			}
			s := strings.TrimRight(strconv.FormatFloat(f, 'f', 3, 64), "0")
			return strings.TrimSuffix(s, ".")
		}
	}
	return v
}

// arrange applies the sort mode to flat values of ncols columns.
func arrange(vals []string, ncols int, mode SortMode) []string {
	switch mode {
	case ValueSort:
		out := slices.Clone(vals)
		slices.Sort(out)
		return out
	case RowSort:
		if ncols <= 0 {
			ncols = 1
		}
		rows := make([][]string, 0, len(vals)/ncols+1)
		for i := 0; i < len(vals); i += ncols {
			rows = append(rows, vals[i:min(i+ncols, len(vals))])
		}
		slices.SortStableFunc(rows, func(a, b []string) int { return slices.Compare(a, b) })
		out := make([]string, 0, len(vals))
		for _, r := range rows {
			out = append(out, r...)
		}
		return out
	}
	return vals
}

// Hash is the md5 sqllogictest computes over result values, each followed
// by a newline.
func Hash(vals []string) string {
	h := md5.New()
	for _, v := range vals {
		h.Write([]byte(v))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// compare checks formatted result values against a query's expected
// result.
func compare(rec *Record, actual []string) error {
	ncols := max(len(rec.Types), 1)
	if rec.Hashed() {
		if len(actual) != rec.HashCount {
			return fmt.Errorf("expected %d values, got %d", rec.HashCount, len(actual))
		}
		if h := Hash(arrange(actual, ncols, rec.Sort)); h != rec.Hash {
			return fmt.Errorf("expected hash %s, got %s", rec.Hash, h)
		}
		return nil
	}

	norm := func(vals []string) []string {
		out := make([]string, len(vals))
		for i, v := range vals {
			out[i] = normalize(v, typeAt(rec.Types, i))
		}
		return arrange(out, ncols, rec.Sort)
	}
	got, want := norm(actual), norm(rec.Expected)
	if len(got) != len(want) {
		return fmt.Errorf("row count mismatch: got %d values, expected %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			return fmt.Errorf("mismatch at row %d, col %d: got '%s', expected '%s'", i/ncols, i%ncols, got[i], want[i])
		}
	}
	return nil
}
