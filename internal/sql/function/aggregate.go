package function

import (
	"math"
	"strings"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
)

func init() {
	registerAggregate("count", 0, 1, func(record.Collation) Accumulator { return &countAcc{} })
	registerAggregate("sum", 1, 1, func(record.Collation) Accumulator { return &sumAcc{} })
	registerAggregate("total", 1, 1, func(record.Collation) Accumulator { return &sumAcc{total: true} })
	registerAggregate("avg", 1, 1, func(record.Collation) Accumulator { return &sumAcc{avg: true} })
	registerAggregate("min", 1, 1, func(c record.Collation) Accumulator { return &extremeAcc{dir: -1, coll: c} })
	registerAggregate("max", 1, 1, func(c record.Collation) Accumulator { return &extremeAcc{dir: 1, coll: c} })
	registerAggregate("group_concat", 1, 2, func(record.Collation) Accumulator { return &concatAcc{} })
	registerAggregate("string_agg", 2, 2, func(record.Collation) Accumulator { return &concatAcc{} })
}

// countAcc counts rows (no arguments, count(*)) or non-NULL values.
type countAcc struct{ n int64 }

func (a *countAcc) Step(args []record.Value) error {
	if len(args) == 0 || !args[0].IsNull() {
		a.n++
	}
	return nil
}

func (a *countAcc) Final() (record.Value, error) { return record.Int(a.n), nil }

// sumAcc implements sum(), total() and avg(). Integer sums stay exact until a
// real shows up; an overflowing integer sum is an error for sum() only.
type sumAcc struct {
	total, avg bool

	n        int64
	isum     int64
	fsum     float64
	comp     float64
	isReal   bool
	overflow bool
}

func (a *sumAcc) Step(args []record.Value) error {
	v := args[0]
	switch v.Kind() {
	case record.KindNull:
		return nil
	case record.KindText, record.KindBlob:
		if n, ok := record.ParseNumeric(v.Str()); ok && n.Kind() == record.KindInteger {
			v = n
		} else {
			v = record.Real(v.AsFloat())
		}
	}
	a.n++
	if v.Kind() == record.KindInteger && !a.isReal {
		s := a.isum + v.Int()
		if (v.Int() > 0 && s < a.isum) || (v.Int() < 0 && s > a.isum) {
			a.overflow = true
			a.isReal = true
			a.addFloat(float64(a.isum))
			a.addFloat(float64(v.Int()))
			return nil
		}
		a.isum = s
		return nil
	}
	if !a.isReal {
		a.isReal = true
		a.addFloat(float64(a.isum))
	}
	a.addFloat(v.AsFloat())
	return nil
}

// addFloat is Kahan-Babuska summation.
func (a *sumAcc) addFloat(x float64) {
	t := a.fsum + x
	if math.Abs(a.fsum) >= math.Abs(x) {
		a.comp += (a.fsum - t) + x
	} else {
		a.comp += (x - t) + a.fsum
	}
	a.fsum = t
}

func (a *sumAcc) Final() (record.Value, error) {
	switch {
	case a.total:
		if !a.isReal {
			return record.Real(float64(a.isum)), nil
		}
		return record.Real(a.fsum + a.comp), nil
	case a.n == 0:
		return record.Null, nil
	case a.avg:
		if !a.isReal {
			return record.Real(float64(a.isum) / float64(a.n)), nil
		}
		return record.Real((a.fsum + a.comp) / float64(a.n)), nil
	case a.overflow:
		return record.Null, dberr.Runtime("integer overflow")
	case a.isReal:
		return record.Real(a.fsum + a.comp), nil
	default:
		return record.Int(a.isum), nil
	}
}

// extremeAcc implements min() and max(). NULLs are ignored.
type extremeAcc struct {
	dir      int
	coll     record.Collation
	best     record.Value
	seen     bool
	selected bool
}

func (a *extremeAcc) Step(args []record.Value) error {
	v := args[0]
	a.selected = false
	if v.IsNull() {
		return nil
	}
	if !a.seen || record.Compare(v, a.best, a.coll)*a.dir > 0 {
		a.best = v
		a.seen = true
		a.selected = true
	}
	return nil
}

func (a *extremeAcc) Selected() bool { return a.selected }

func (a *extremeAcc) Final() (record.Value, error) { return a.best, nil }

type concatAcc struct {
	sb   strings.Builder
	seen bool
}

func (a *concatAcc) Step(args []record.Value) error {
	if args[0].IsNull() {
		return nil
	}
	if a.seen {
		sep := ","
		if len(args) == 2 {
			sep = args[1].AsText()
		}
		a.sb.WriteString(sep)
	}
	a.seen = true
	a.sb.WriteString(args[0].AsText())
	return nil
}

func (a *concatAcc) Final() (record.Value, error) {
	if !a.seen {
		return record.Null, nil
	}
	return record.Text(a.sb.String()), nil
}
