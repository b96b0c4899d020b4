package record

import (
	"math"
	"math/bits"
)

// Arithmetic follows the dynamic typing rules: text and blob operands use
// their numeric prefix, any NULL operand yields NULL, integer overflow
// spills into a real, and division or remainder by zero yields NULL.

func Add(a, b Value) Value {
	a, b, ok := numericOperands(a, b)
	if !ok {
		return Null
	}
	if a.kind == KindInteger && b.kind == KindInteger {
		s := a.i + b.i
		if (s > a.i) == (b.i > 0) {
			return Int(s)
		}
	}
	return Real(a.AsFloat() + b.AsFloat())
}

func Sub(a, b Value) Value {
	a, b, ok := numericOperands(a, b)
	if !ok {
		return Null
	}
	if a.kind == KindInteger && b.kind == KindInteger {
		d := a.i - b.i
		if (d < a.i) == (b.i > 0) {
			return Int(d)
		}
	}
	return Real(a.AsFloat() - b.AsFloat())
}

func Mul(a, b Value) Value {
	a, b, ok := numericOperands(a, b)
	if !ok {
		return Null
	}
	if a.kind == KindInteger && b.kind == KindInteger {
		if p, ok := mulInt(a.i, b.i); ok {
			return Int(p)
		}
	}
	return Real(a.AsFloat() * b.AsFloat())
}

func mulInt(x, y int64) (int64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	neg := (x < 0) != (y < 0)
	ux, uy := absUint(x), absUint(y)
	hi, lo := bits.Mul64(ux, uy)
	if hi != 0 {
		return 0, false
	}
	if neg {
		if lo > 1<<63 {
			return 0, false
		}
		return -int64(lo), true
	}
	if lo > math.MaxInt64 {
		return 0, false
	}
	return int64(lo), true
}

func absUint(x int64) uint64 {
	if x < 0 {
		return uint64(-(x + 1)) + 1
	}
	return uint64(x)
}

func Div(a, b Value) Value {
	a, b, ok := numericOperands(a, b)
	if !ok {
		return Null
	}
	if a.kind == KindInteger && b.kind == KindInteger {
		if b.i == 0 {
			return Null
		}
		if a.i == math.MinInt64 && b.i == -1 {
			return Real(-float64(a.i))
		}
		return Int(a.i / b.i)
	}
	d := b.AsFloat()
	if d == 0 {
		return Null
	}
	return Real(a.AsFloat() / d)
}

// Rem computes the remainder on integer-truncated operands. The result is a
// real when either operand is a real.
func Rem(a, b Value) Value {
	a, b, ok := numericOperands(a, b)
	if !ok {
		return Null
	}
	x, y := a.AsInt(), b.AsInt()
	if y == 0 {
		return Null
	}
	if y == -1 {
		y = 1
	}
	r := x % y
	if a.kind == KindReal || b.kind == KindReal {
		return Real(float64(r))
	}
	return Int(r)
}

func Negate(a Value) Value {
	a = ToNumber(a)
	switch a.kind {
	case KindInteger:
		if a.i == math.MinInt64 {
			return Real(-float64(a.i))
		}
		return Int(-a.i)
	case KindReal:
		return Real(-a.f)
	default:
		return Null
	}
}

func BitAnd(a, b Value) Value { return bitOp(a, b, func(x, y int64) int64 { return x & y }) }
func BitOr(a, b Value) Value  { return bitOp(a, b, func(x, y int64) int64 { return x | y }) }

func BitNot(a Value) Value {
	if a.IsNull() {
		return Null
	}
	return Int(^ToNumber(a).AsInt())
}

func ShiftLeft(a, b Value) Value {
	return bitOp(a, b, func(x, n int64) int64 { return shift(x, n) })
}

func ShiftRight(a, b Value) Value {
	return bitOp(a, b, func(x, n int64) int64 {
		if n == math.MinInt64 {
			n++
		}
		return shift(x, -n)
	})
}

// shift moves x left by n bits, or right by -n bits with sign extension.
func shift(x, n int64) int64 {
	switch {
	case n >= 64:
		return 0
	case n >= 0:
		return x << uint(n)
	case n <= -64:
		if x < 0 {
			return -1
		}
		return 0
	default:
		return x >> uint(-n)
	}
}

func bitOp(a, b Value, fn func(x, y int64) int64) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	return Int(fn(ToNumber(a).AsInt(), ToNumber(b).AsInt()))
}

// Concat joins the text forms of a and b.
func Concat(a, b Value) Value {
	if a.IsNull() || b.IsNull() {
		return Null
	}
	return Text(a.AsText() + b.AsText())
}

func numericOperands(a, b Value) (Value, Value, bool) {
	if a.IsNull() || b.IsNull() {
		return Null, Null, false
	}
	return ToNumber(a), ToNumber(b), true
}
