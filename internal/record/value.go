package record

import (
	"math"
	"strconv"
)

// Kind is the storage class of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindInteger
	KindReal
	KindText
	KindBlob
)

// String returns the name reported by typeof().
func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindText:
		return "text"
	case KindBlob:
		return "blob"
	default:
		return "null"
	}
}

// Value is a dynamically typed SQL value. The zero Value is NULL.
//
// Text and blob payloads are kept in an immutable string so values can be
// copied and compared freely.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

var Null = Value{}

func Int(i int64) Value { return Value{kind: KindInteger, i: i} }

// Real wraps f. NaN has no SQL representation and becomes NULL.
func Real(f float64) Value {
	if math.IsNaN(f) {
		return Null
	}
	return Value{kind: KindReal, f: f}
}

func Text(s string) Value { return Value{kind: KindText, s: s} }

func Blob(b []byte) Value { return Value{kind: KindBlob, s: string(b)} }

func BlobString(s string) Value { return Value{kind: KindBlob, s: s} }

func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsNumeric reports whether v is an INTEGER or REAL.
func (v Value) IsNumeric() bool { return v.kind == KindInteger || v.kind == KindReal }

// Int returns the raw integer payload. Only meaningful for KindInteger.
func (v Value) Int() int64 { return v.i }

// Float returns the raw real payload. Only meaningful for KindReal.
func (v Value) Float() float64 { return v.f }

// Str returns the raw text or blob payload.
func (v Value) Str() string { return v.s }

func (v Value) Bytes() []byte { return []byte(v.s) }

// AsInt converts v to an integer the way CAST(v AS INTEGER) does.
func (v Value) AsInt() int64 {
	switch v.kind {
	case KindInteger:
		return v.i
	case KindReal:
		return FloatToInt(v.f)
	case KindText, KindBlob:
		return IntegerPrefix(v.s)
	default:
		return 0
	}
}

// AsFloat converts v to a real the way CAST(v AS REAL) does.
func (v Value) AsFloat() float64 {
	switch v.kind {
	case KindInteger:
		return float64(v.i)
	case KindReal:
		return v.f
	case KindText, KindBlob:
		n := NumericPrefix(v.s)
		if n.kind == KindInteger {
			return float64(n.i)
		}
		return n.f
	default:
		return 0
	}
}

// AsText renders v as text. NULL renders as the empty string.
func (v Value) AsText() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return FormatReal(v.f)
	case KindText, KindBlob:
		return v.s
	default:
		return ""
	}
}

// Truth evaluates v as a condition. known is false for NULL.
func (v Value) Truth() (val, known bool) {
	switch v.kind {
	case KindNull:
		return false, false
	case KindInteger:
		return v.i != 0, true
	case KindReal:
		return v.f != 0, true
	default:
		return v.AsFloat() != 0, true
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindText:
		return strconv.Quote(v.s)
	case KindBlob:
		return "x'" + hexUpper(v.s) + "'"
	default:
		return v.AsText()
	}
}

// FloatToInt truncates f toward zero, saturating at the int64 range.
func FloatToInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f <= math.MinInt64:
		return math.MinInt64
	case f >= math.MaxInt64:
		return math.MaxInt64
	default:
		return int64(f)
	}
}

// Row is a positional tuple of values.
type Row []Value

func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}
