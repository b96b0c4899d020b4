package record

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"
)

// FormatReal renders f with 15 significant digits and always keeps a decimal
// point in the mantissa: 100.0 -> "100.0", 1e20 -> "1.0e+20".
func FormatReal(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	case f == 0:
		return "0.0"
	}
	s := strconv.FormatFloat(f, 'g', 15, 64)
	mant, exp := s, ""
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		mant, exp = s[:i], s[i:]
	}
	if !strings.ContainsRune(mant, '.') {
		mant += ".0"
	}
	return mant + exp
}

func hexUpper(s string) string {
	return strings.ToUpper(hex.EncodeToString([]byte(s)))
}

// Hex renders the bytes of v's text form as upper-case hex, like hex().
func Hex(v Value) string {
	if v.kind == KindBlob || v.kind == KindText {
		return hexUpper(v.s)
	}
	return hexUpper(v.AsText())
}

// Quote renders v as an SQL literal, like quote().
func Quote(v Value) string {
	switch v.kind {
	case KindNull:
		return "NULL"
	case KindText:
		return "'" + strings.ReplaceAll(v.s, "'", "''") + "'"
	case KindBlob:
		return "X'" + hexUpper(v.s) + "'"
	default:
		return v.AsText()
	}
}
