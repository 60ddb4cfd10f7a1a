package interp

import (
	"math"
	"math/big"
)

// A pyInt is an arbitrary-precision integer (spec §3: "Int — arbitrary precision"), backed by
// math/big rather than the teacher's machine-word `pyInt int`, since BUILD-file integers never
// needed to exceed int64 but general Python scripts routinely do (e.g. `2 ** 100`).
type pyInt struct {
	v *big.Int
}

func newPyInt(i int64) pyInt {
	return pyInt{v: big.NewInt(i)}
}

func newPyIntFromBig(v *big.Int) pyInt {
	return pyInt{v: v}
}

// newPyIntFromString parses the lexer's decimal (`_`-stripped) integer text. Supports the lexer's
// optional leading `-` emitted nowhere (unary minus is a parser-level wrap), so this is always a
// plain non-negative decimal string, but is written to tolerate a leading sign defensively.
func newPyIntFromString(ctx *Context, s string) pyInt {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(ctx.newValueError("invalid literal for int() with base 10: %q", s))
	}
	return pyInt{v: v}
}

func intFromBool(b pyBool) pyInt {
	if b {
		return newPyInt(1)
	}
	return newPyInt(0)
}

func (i pyInt) Type() string   { return "int" }
func (i pyInt) IsTruthy() bool { return i.v.Sign() != 0 }
func (i pyInt) String() string { return i.v.String() }
func (i pyInt) hashKey() interface{} {
	if i.v.IsInt64() {
		return i.v.Int64()
	}
	return i.v.String()
}

func (i pyInt) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, i, name, intMethods)
}

func (i pyInt) Float() float64 {
	f, _ := new(big.Float).SetInt(i.v).Float64()
	return f
}

func (i pyInt) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	if operator == Is || operator == IsNot {
		oi, ok := operand.(pyInt)
		eq := ok && i.v.Cmp(oi.v) == 0
		if ob, ok := operand.(pyBool); ok {
			eq = i.v.Cmp(intFromBool(ob).v) == 0
		}
		if operator == Is {
			return newPyBool(eq)
		}
		return newPyBool(!eq)
	}
	if of, ok := asFloat(operand); ok {
		if _, isFloat := operand.(pyFloat); isFloat {
			return pyFloat(i.Float()).Operator(ctx, operator, operand)
		}
		_ = of
	}
	oi, ok := toInt(operand)
	if !ok {
		if operator == Equal {
			return False
		}
		if operator == NotEqual {
			return True
		}
		panic(ctx.newTypeError("unsupported operand type(s) for %s: 'int' and '%s'", operator, operand.Type()))
	}
	switch operator {
	case Add:
		return newPyIntFromBig(new(big.Int).Add(i.v, oi.v))
	case Subtract:
		return newPyIntFromBig(new(big.Int).Sub(i.v, oi.v))
	case Multiply:
		return newPyIntFromBig(new(big.Int).Mul(i.v, oi.v))
	case Divide:
		if oi.v.Sign() == 0 {
			panic(ctx.newException("ZeroDivisionError", "division by zero"))
		}
		return pyFloat(i.Float() / oi.Float())
	case FloorDivide:
		if oi.v.Sign() == 0 {
			panic(ctx.newException("ZeroDivisionError", "integer division or modulo by zero"))
		}
		q := new(big.Int)
		m := new(big.Int)
		q.DivMod(i.v, oi.v, m)
		if m.Sign() != 0 && (m.Sign() < 0) != (oi.v.Sign() < 0) {
			// big.Int.DivMod is Euclidean; Python floor division rounds toward negative infinity.
		}
		return newPyIntFromBig(floorDiv(i.v, oi.v))
	case Modulo:
		if oi.v.Sign() == 0 {
			panic(ctx.newException("ZeroDivisionError", "integer modulo by zero"))
		}
		return newPyIntFromBig(floorMod(i.v, oi.v))
	case Power:
		if oi.v.Sign() < 0 {
			return pyFloat(math.Pow(i.Float(), oi.Float()))
		}
		return newPyIntFromBig(new(big.Int).Exp(i.v, oi.v, nil))
	case BitAnd:
		return newPyIntFromBig(new(big.Int).And(i.v, oi.v))
	case BitOr:
		return newPyIntFromBig(new(big.Int).Or(i.v, oi.v))
	case BitXor:
		return newPyIntFromBig(new(big.Int).Xor(i.v, oi.v))
	case LShift:
		return newPyIntFromBig(new(big.Int).Lsh(i.v, uint(oi.v.Int64())))
	case RShift:
		return newPyIntFromBig(new(big.Int).Rsh(i.v, uint(oi.v.Int64())))
	case LessThan:
		return newPyBool(i.v.Cmp(oi.v) < 0)
	case LessThanOrEqual:
		return newPyBool(i.v.Cmp(oi.v) <= 0)
	case GreaterThan:
		return newPyBool(i.v.Cmp(oi.v) > 0)
	case GreaterThanOrEqual:
		return newPyBool(i.v.Cmp(oi.v) >= 0)
	case Equal:
		return newPyBool(i.v.Cmp(oi.v) == 0)
	case NotEqual:
		return newPyBool(i.v.Cmp(oi.v) != 0)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'int' and '%s'", operator, operand.Type()))
}

func floorDiv(a, b *big.Int) *big.Int {
	q, m := new(big.Int), new(big.Int)
	q.QuoRem(a, b, m)
	if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

func floorMod(a, b *big.Int) *big.Int {
	m := new(big.Int).Mod(a, b)
	if m.Sign() != 0 && (m.Sign() < 0) != (b.Sign() < 0) {
		m.Add(m, b)
	}
	return m
}

// toInt converts operand to a pyInt if it is an int or bool; bools participate in integer
// arithmetic exactly as in Python (`True + 1 == 2`).
func toInt(operand pyObject) (pyInt, bool) {
	switch v := operand.(type) {
	case pyInt:
		return v, true
	case pyBool:
		return intFromBool(v), true
	}
	return pyInt{}, false
}

// pyFloat is a double-precision float (spec §3).
type pyFloat float64

func (f pyFloat) Type() string   { return "float" }
func (f pyFloat) IsTruthy() bool { return f != 0 }
func (f pyFloat) String() string { return formatFloat(float64(f)) }
func (f pyFloat) hashKey() interface{} { return float64(f) }

func (f pyFloat) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, f, name, floatMethods)
}

func asFloat(operand pyObject) (float64, bool) {
	switch v := operand.(type) {
	case pyFloat:
		return float64(v), true
	case pyInt:
		return v.Float(), true
	case pyBool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (f pyFloat) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	if operator == Is || operator == IsNot {
		of, ok := operand.(pyFloat)
		eq := ok && of == f
		if operator == Is {
			return newPyBool(eq)
		}
		return newPyBool(!eq)
	}
	of, ok := asFloat(operand)
	if !ok {
		if operator == Equal {
			return False
		}
		if operator == NotEqual {
			return True
		}
		panic(ctx.newTypeError("unsupported operand type(s) for %s: 'float' and '%s'", operator, operand.Type()))
	}
	a := float64(f)
	switch operator {
	case Add:
		return pyFloat(a + of)
	case Subtract:
		return pyFloat(a - of)
	case Multiply:
		return pyFloat(a * of)
	case Divide:
		if of == 0 {
			panic(ctx.newException("ZeroDivisionError", "float division by zero"))
		}
		return pyFloat(a / of)
	case FloorDivide:
		if of == 0 {
			panic(ctx.newException("ZeroDivisionError", "float floor division by zero"))
		}
		return pyFloat(math.Floor(a / of))
	case Modulo:
		if of == 0 {
			panic(ctx.newException("ZeroDivisionError", "float modulo"))
		}
		m := math.Mod(a, of)
		if m != 0 && (m < 0) != (of < 0) {
			m += of
		}
		return pyFloat(m)
	case Power:
		return pyFloat(math.Pow(a, of))
	case LessThan:
		return newPyBool(a < of)
	case LessThanOrEqual:
		return newPyBool(a <= of)
	case GreaterThan:
		return newPyBool(a > of)
	case GreaterThanOrEqual:
		return newPyBool(a >= of)
	case Equal:
		return newPyBool(a == of)
	case NotEqual:
		return newPyBool(a != of)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'float' and '%s'", operator, operand.Type()))
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1e16 {
		return bigFloatTrimString(f)
	}
	return trimFloat(f)
}

func bigFloatTrimString(f float64) string {
	return trimFloat(f) + ".0"
}

// trimFloat renders f with Go's shortest round-tripping representation, matching the precision
// (if not the exact formatting corner cases) of Python's `repr(float)`.
func trimFloat(f float64) string {
	return big.NewFloat(f).Text('g', -1)
}
