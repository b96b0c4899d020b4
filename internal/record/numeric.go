package record

import (
	"math"
	"strconv"
	"strings"
)

const numericSpace = " \t\n\r\f\v"

// scanNumber measures the numeric literal at the start of s. It returns the
// length of the literal (0 when there is none) and whether it is a plain
// integer without fraction or exponent.
func scanNumber(s string) (n int, isInt bool) {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := 0
	for i < len(s) && isDigit(s[i]) {
		i++
		digits++
	}
	isInt = true
	if i < len(s) && s[i] == '.' {
		j := i + 1
		frac := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			frac++
		}
		if digits+frac > 0 {
			i = j
			digits += frac
			isInt = false
		}
	}
	if digits == 0 {
		return 0, false
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		exp := 0
		for j < len(s) && isDigit(s[j]) {
			j++
			exp++
		}
		if exp > 0 {
			i = j
			isInt = false
		}
	}
	return i, isInt
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// ParseNumeric reports whether the whole of s (surrounding whitespace
// allowed) is a well-formed number, and returns it. Integers that do not fit
// in 64 bits come back as reals.
func ParseNumeric(s string) (Value, bool) {
	t := strings.Trim(s, numericSpace)
	n, isInt := scanNumber(t)
	if n == 0 || n != len(t) {
		return Null, false
	}
	return numberFromLiteral(t, isInt), true
}

// NumericPrefix converts the longest numeric prefix of s. Text without one
// converts to integer 0.
func NumericPrefix(s string) Value {
	t := strings.TrimLeft(s, numericSpace)
	n, isInt := scanNumber(t)
	if n == 0 {
		return Int(0)
	}
	return numberFromLiteral(t[:n], isInt)
}

// IntegerPrefix converts the longest integer prefix of s, saturating on
// overflow.
func IntegerPrefix(s string) int64 {
	t := strings.TrimLeft(s, numericSpace)
	i := 0
	if i < len(t) && (t[i] == '+' || t[i] == '-') {
		i++
	}
	start := i
	for i < len(t) && isDigit(t[i]) {
		i++
	}
	if i == start {
		return 0
	}
	v, err := strconv.ParseInt(t[:i], 10, 64)
	if err != nil {
		if t[0] == '-' {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	return v
}

func numberFromLiteral(lit string, isInt bool) Value {
	if isInt {
		if v, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return Int(v)
		}
	}
	// lit is already validated, so the only possible error is a range
	// error and f then holds ±Inf or 0.
	f, _ := strconv.ParseFloat(lit, 64)
	return Real(f)
}

// exactInt returns the integer equal to f when f is integral and inside the
// int64 range.
func exactInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < -9223372036854775808.0 || f >= 9223372036854775808.0 {
		return 0, false
	}
	return int64(f), true
}

// ToNumber coerces v for arithmetic: numbers pass through, text and blobs use
// their numeric prefix, NULL stays NULL.
func ToNumber(v Value) Value {
	switch v.kind {
	case KindText, KindBlob:
		return NumericPrefix(v.s)
	default:
		return v
	}
}
