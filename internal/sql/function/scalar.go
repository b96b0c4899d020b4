package function

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/tuannm99/novalite/internal/dberr"
	"github.com/tuannm99/novalite/internal/record"
)

func init() {
	registerScalar("abs", 1, 1, abs)
	registerScalar("coalesce", 2, Variadic, coalesce)
	registerScalar("ifnull", 2, 2, coalesce)
	registerScalar("iif", 3, 3, iif)
	registerScalar("nullif", 2, 2, nullif)
	registerScalar("length", 1, 1, length)
	registerScalar("octet_length", 1, 1, octetLength)
	registerScalar("lower", 1, 1, mapASCII(lowerASCII))
	registerScalar("upper", 1, 1, mapASCII(upperASCII))
	registerScalar("substr", 2, 3, substr)
	registerScalar("substring", 2, 3, substr)
	registerScalar("trim", 1, 2, trimFunc(true, true))
	registerScalar("ltrim", 1, 2, trimFunc(true, false))
	registerScalar("rtrim", 1, 2, trimFunc(false, true))
	registerScalar("replace", 3, 3, replace)
	registerScalar("instr", 2, 2, instr)
	registerScalar("typeof", 1, 1, typeOf)
	registerScalar("round", 1, 2, round)
	registerScalar("hex", 1, 1, hexFunc)
	registerScalar("quote", 1, 1, quote)
	registerScalar("char", 0, Variadic, char)
	registerScalar("unicode", 1, 1, unicodeFunc)
	registerScalar("min", 2, Variadic, minMax(-1))
	registerScalar("max", 2, Variadic, minMax(1))
	registerScalar("sign", 1, 1, sign)
	registerScalar("random", 0, 0, random)
	registerScalar("randomblob", 1, 1, randomBlob)
	registerScalar("zeroblob", 1, 1, zeroBlob)
	registerScalar("printf", 1, Variadic, printf)
	registerScalar("format", 1, Variadic, printf)
	registerScalar("like", 2, 3, likeFunc)
	registerScalar("glob", 2, 2, globFunc)
	registerScalar("likely", 1, 1, identity)
	registerScalar("unlikely", 1, 1, identity)
	registerScalar("concat", 1, Variadic, concat)
	registerScalar("concat_ws", 2, Variadic, concatWS)
}

func anyNull(args []record.Value) bool {
	for _, a := range args {
		if a.IsNull() {
			return true
		}
	}
	return false
}

func identity(args []record.Value, _ record.Collation) (record.Value, error) { return args[0], nil }

func abs(args []record.Value, _ record.Collation) (record.Value, error) {
	v := args[0]
	switch v.Kind() {
	case record.KindNull:
		return record.Null, nil
	case record.KindInteger:
		i := v.Int()
		if i == math.MinInt64 {
			return record.Null, dberr.Runtime("integer overflow")
		}
		if i < 0 {
			i = -i
		}
		return record.Int(i), nil
	default:
		return record.Real(math.Abs(v.AsFloat())), nil
	}
}

func coalesce(args []record.Value, _ record.Collation) (record.Value, error) {
	for _, a := range args {
		if !a.IsNull() {
			return a, nil
		}
	}
	return record.Null, nil
}

func iif(args []record.Value, _ record.Collation) (record.Value, error) {
	if t, _ := args[0].Truth(); t {
		return args[1], nil
	}
	return args[2], nil
}

func nullif(args []record.Value, coll record.Collation) (record.Value, error) {
	if record.Compare(args[0], args[1], coll) == 0 {
		return record.Null, nil
	}
	return args[0], nil
}

func length(args []record.Value, _ record.Collation) (record.Value, error) {
	v := args[0]
	switch v.Kind() {
	case record.KindNull:
		return record.Null, nil
	case record.KindBlob:
		return record.Int(int64(len(v.Str()))), nil
	default:
		s := v.AsText()
		if i := strings.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		return record.Int(int64(utf8.RuneCountInString(s))), nil
	}
}

func octetLength(args []record.Value, _ record.Collation) (record.Value, error) {
	if args[0].IsNull() {
		return record.Null, nil
	}
	return record.Int(int64(len(args[0].AsText()))), nil
}

func lowerASCII(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func upperASCII(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func mapASCII(fn func(byte) byte) func([]record.Value, record.Collation) (record.Value, error) {
	return func(args []record.Value, _ record.Collation) (record.Value, error) {
		if args[0].IsNull() {
			return record.Null, nil
		}
		b := []byte(args[0].AsText())
		for i := range b {
			b[i] = fn(b[i])
		}
		return record.Text(string(b)), nil
	}
}

func substr(args []record.Value, _ record.Collation) (record.Value, error) {
	if anyNull(args) {
		return record.Null, nil
	}
	v := args[0]
	blob := v.Kind() == record.KindBlob
	var units []rune
	var bytes string
	var n int64
	if blob {
		bytes = v.Str()
		n = int64(len(bytes))
	} else {
		units = []rune(v.AsText())
		n = int64(len(units))
	}

	p1 := args[1].AsInt()
	p2 := int64(math.MaxInt32)
	negP2 := false
	if len(args) == 3 {
		p2 = args[2].AsInt()
		if p2 < 0 {
			negP2 = true
			p2 = -p2
		}
	}
	switch {
	case p1 < 0:
		p1 += n
		if p1 < 0 {
			p2 += p1
			if p2 < 0 {
				p2 = 0
			}
			p1 = 0
		}
	case p1 > 0:
		p1--
	case p2 > 0:
		p2--
	}
	if negP2 {
		p1 -= p2
		if p1 < 0 {
			p2 += p1
			p1 = 0
		}
	}
	if p1 > n {
		p1 = n
	}
	if p1+p2 > n {
		p2 = max(n-p1, 0)
	}
	if blob {
		return record.BlobString(bytes[p1 : p1+p2]), nil
	}
	return record.Text(string(units[p1 : p1+p2])), nil
}

func trimFunc(left, right bool) func([]record.Value, record.Collation) (record.Value, error) {
	return func(args []record.Value, _ record.Collation) (record.Value, error) {
		if anyNull(args) {
			return record.Null, nil
		}
		cut := " "
		if len(args) == 2 {
			cut = args[1].AsText()
		}
		s := args[0].AsText()
		if left {
			s = strings.TrimLeft(s, cut)
		}
		if right {
			s = strings.TrimRight(s, cut)
		}
		return record.Text(s), nil
	}
}

func replace(args []record.Value, _ record.Collation) (record.Value, error) {
	if anyNull(args) {
		return record.Null, nil
	}
	from := args[1].AsText()
	if from == "" {
		return args[0], nil
	}
	return record.Text(strings.ReplaceAll(args[0].AsText(), from, args[2].AsText())), nil
}

func instr(args []record.Value, _ record.Collation) (record.Value, error) {
	if anyNull(args) {
		return record.Null, nil
	}
	if args[0].Kind() == record.KindBlob && args[1].Kind() == record.KindBlob {
		return record.Int(int64(strings.Index(args[0].Str(), args[1].Str()) + 1)), nil
	}
	hay, needle := args[0].AsText(), args[1].AsText()
	i := strings.Index(hay, needle)
	if i < 0 {
		return record.Int(0), nil
	}
	return record.Int(int64(utf8.RuneCountInString(hay[:i]) + 1)), nil
}

func typeOf(args []record.Value, _ record.Collation) (record.Value, error) {
	return record.Text(args[0].Kind().String()), nil
}

func round(args []record.Value, _ record.Collation) (record.Value, error) {
	if anyNull(args) {
		return record.Null, nil
	}
	digits := int64(0)
	if len(args) == 2 {
		digits = min(max(args[1].AsInt(), 0), 30)
	}
	x := args[0].AsFloat()
	if math.IsInf(x, 0) || math.Abs(x) >= 1<<52 && digits == 0 {
		return record.Real(x), nil
	}
	return record.Real(roundDecimal(x, int(digits))), nil
}

// roundDecimal rounds the shortest decimal form of x to digits fractional
// digits, halves away from zero.
func roundDecimal(x float64, digits int) float64 {
	s := strconv.FormatFloat(math.Abs(x), 'f', -1, 64)
	intPart, frac, _ := strings.Cut(s, ".")
	if len(frac) <= digits {
		return x
	}
	keep := []byte(intPart + frac[:digits])
	if frac[digits] >= '5' {
		i := len(keep) - 1
		for ; i >= 0; i-- {
			if keep[i] == '9' {
				keep[i] = '0'
				continue
			}
			keep[i]++
			break
		}
		if i < 0 {
			keep = append([]byte{'1'}, keep...)
		}
	}
	point := len(keep) - digits
	out := string(keep[:point])
	if digits > 0 {
		out += "." + string(keep[point:])
	}
	r, _ := strconv.ParseFloat(out, 64)
	if x < 0 {
		r = -r
	}
	return r
}

func hexFunc(args []record.Value, _ record.Collation) (record.Value, error) {
	return record.Text(record.Hex(args[0])), nil
}

func quote(args []record.Value, _ record.Collation) (record.Value, error) {
	return record.Text(record.Quote(args[0])), nil
}

func char(args []record.Value, _ record.Collation) (record.Value, error) {
	var sb strings.Builder
	for _, a := range args {
		if a.IsNull() {
			continue
		}
		c := a.AsInt()
		if c < 0 || c > utf8.MaxRune {
			c = utf8.RuneError
		}
		sb.WriteRune(rune(c))
	}
	return record.Text(sb.String()), nil
}

func unicodeFunc(args []record.Value, _ record.Collation) (record.Value, error) {
	if args[0].IsNull() {
		return record.Null, nil
	}
	s := args[0].AsText()
	if s == "" {
		return record.Null, nil
	}
	r, _ := utf8.DecodeRuneInString(s)
	return record.Int(int64(r)), nil
}

func minMax(dir int) func([]record.Value, record.Collation) (record.Value, error) {
	return func(args []record.Value, coll record.Collation) (record.Value, error) {
		if anyNull(args) {
			return record.Null, nil
		}
		best := args[0]
		for _, a := range args[1:] {
			if record.Compare(a, best, coll)*dir > 0 {
				best = a
			}
		}
		return best, nil
	}
}

func sign(args []record.Value, _ record.Collation) (record.Value, error) {
	v := args[0]
	switch v.Kind() {
	case record.KindNull, record.KindBlob:
		return record.Null, nil
	case record.KindText:
		n, ok := record.ParseNumeric(v.Str())
		if !ok {
			return record.Null, nil
		}
		v = n
	}
	f := v.AsFloat()
	switch {
	case f > 0:
		return record.Int(1), nil
	case f < 0:
		return record.Int(-1), nil
	default:
		return record.Int(0), nil
	}
}

func random([]record.Value, record.Collation) (record.Value, error) {
	return record.Int(int64(rand.Uint64())), nil
}

func randomBlob(args []record.Value, _ record.Collation) (record.Value, error) {
	n := max(args[0].AsInt(), 1)
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rand.UintN(256))
	}
	return record.Blob(b), nil
}

func zeroBlob(args []record.Value, _ record.Collation) (record.Value, error) {
	n := max(args[0].AsInt(), 0)
	return record.Blob(make([]byte, n)), nil
}

func likeFunc(args []record.Value, _ record.Collation) (record.Value, error) {
	if anyNull(args) {
		return record.Null, nil
	}
	var esc rune
	if len(args) == 3 {
		e := []rune(args[2].AsText())
		if len(e) != 1 {
			return record.Null, dberr.Runtime("ESCAPE expression must be a single character")
		}
		esc = e[0]
	}
	return record.Bool(Like(args[0].AsText(), args[1].AsText(), esc)), nil
}

func globFunc(args []record.Value, _ record.Collation) (record.Value, error) {
	if anyNull(args) {
		return record.Null, nil
	}
	return record.Bool(Glob(args[0].AsText(), args[1].AsText())), nil
}

func concat(args []record.Value, _ record.Collation) (record.Value, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(a.AsText())
	}
	return record.Text(sb.String()), nil
}

func concatWS(args []record.Value, _ record.Collation) (record.Value, error) {
	if args[0].IsNull() {
		return record.Null, nil
	}
	parts := make([]string, 0, len(args)-1)
	for _, a := range args[1:] {
		if !a.IsNull() {
			parts = append(parts, a.AsText())
		}
	}
	return record.Text(strings.Join(parts, args[0].AsText())), nil
}
