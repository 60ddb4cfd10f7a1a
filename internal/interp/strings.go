package interp

import (
	"fmt"
	"strings"
)

// pyString is an immutable Unicode string (spec §3). Stored as a Go string (already UTF-8), with
// indexing/slicing done over runes rather than bytes to match Python's character semantics.
type pyString string

func (s pyString) Type() string   { return "str" }
func (s pyString) IsTruthy() bool { return len(s) > 0 }
func (s pyString) String() string { return string(s) }
func (s pyString) hashKey() interface{} { return string(s) }

func (s pyString) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, s, name, stringMethods)
}

func (s pyString) Len() int { return len([]rune(s)) }

func (s pyString) runes() []rune { return []rune(s) }

func (s pyString) Index(ctx *Context, index pyObject) pyObject {
	i, ok := toInt(index)
	if !ok {
		panic(ctx.newTypeError("string indices must be integers, not '%s'", index.Type()))
	}
	rs := s.runes()
	n := int64(len(rs))
	idx := i.v.Int64()
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		panic(ctx.newException("IndexError", "string index out of range"))
	}
	return pyString(rs[idx])
}

func (s pyString) Slice(ctx *Context, start, stop, step *int) pyObject {
	rs := s.runes()
	idxs := sliceIndices(len(rs), start, stop, step)
	var out []rune
	for _, i := range idxs {
		out = append(out, rs[i])
	}
	return pyString(out)
}

func (s pyString) Iterate(ctx *Context) iterator {
	rs := s.runes()
	i := 0
	return iteratorFunc(func() (pyObject, bool) {
		if i >= len(rs) {
			return nil, false
		}
		r := rs[i]
		i++
		return pyString(r), true
	})
}

func (s pyString) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Add:
		os, ok := operand.(pyString)
		if !ok {
			panic(ctx.newTypeError("can only concatenate str (not \"%s\") to str", operand.Type()))
		}
		return s + os
	case Multiply:
		n, ok := toInt(operand)
		if !ok {
			panic(ctx.newTypeError("can't multiply sequence by non-int of type '%s'", operand.Type()))
		}
		return pyString(strings.Repeat(string(s), maxInt(0, int(n.v.Int64()))))
	case Equal:
		os, ok := operand.(pyString)
		return newPyBool(ok && os == s)
	case NotEqual:
		os, ok := operand.(pyString)
		return newPyBool(!ok || os != s)
	case LessThan:
		return newPyBool(compareStrs(ctx, s, operand) < 0)
	case LessThanOrEqual:
		return newPyBool(compareStrs(ctx, s, operand) <= 0)
	case GreaterThan:
		return newPyBool(compareStrs(ctx, s, operand) > 0)
	case GreaterThanOrEqual:
		return newPyBool(compareStrs(ctx, s, operand) >= 0)
	case In:
		os, ok := operand.(pyString)
		if !ok {
			panic(ctx.newTypeError("'in <string>' requires string as left operand, not %s", operand.Type()))
		}
		return newPyBool(strings.Contains(string(os), string(s)))
	case Is:
		os, ok := operand.(pyString)
		return newPyBool(ok && os == s)
	case IsNot:
		os, ok := operand.(pyString)
		return newPyBool(!ok || os != s)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'str' and '%s'", operator, operand.Type()))
}

func compareStrs(ctx *Context, s pyString, operand pyObject) int {
	os, ok := operand.(pyString)
	if !ok {
		panic(ctx.newTypeError("'<' not supported between instances of 'str' and '%s'", operand.Type()))
	}
	return strings.Compare(string(s), string(os))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// sliceIndices resolves a Python slice's [start:stop:step] over a sequence of length n into the
// concrete list of indices to visit, handling negative indices, negative steps, and omitted parts
// exactly as CPython's slice.indices() does.
func sliceIndices(n int, start, stop, step *int) []int {
	st := 1
	if step != nil {
		st = *step
	}
	if st == 0 {
		st = 1
	}
	var lo, hi int
	if st > 0 {
		lo, hi = 0, n
	} else {
		lo, hi = -1, n-1
	}
	s := lo
	if start != nil {
		s = normalizeSliceIndex(*start, n, st > 0)
	}
	e := hi
	if stop != nil {
		e = normalizeSliceIndex(*stop, n, st > 0)
	}
	var out []int
	if st > 0 {
		for i := s; i < e; i += st {
			if i >= 0 && i < n {
				out = append(out, i)
			}
		}
	} else {
		for i := s; i > e; i += st {
			if i >= 0 && i < n {
				out = append(out, i)
			}
		}
	}
	return out
}

func normalizeSliceIndex(i, n int, forward bool) int {
	if i < 0 {
		i += n
		if i < 0 {
			if forward {
				return 0
			}
			return -1
		}
		return i
	}
	if i > n {
		if forward {
			return n
		}
		return n - 1
	}
	return i
}

// iteratorFunc adapts a plain closure to the iterator interface, used throughout the builtin
// container types instead of hand-writing a distinct struct per container.
type iteratorFunc func() (pyObject, bool)

func (f iteratorFunc) Next() (pyObject, bool) { return f() }

// pyBytes is an immutable byte string (spec §3).
type pyBytes []byte

func (b pyBytes) Type() string   { return "bytes" }
func (b pyBytes) IsTruthy() bool { return len(b) > 0 }
func (b pyBytes) String() string { return fmt.Sprintf("b%q", string(b)) }
func (b pyBytes) hashKey() interface{} { return string(b) }

func (b pyBytes) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, b, name, bytesMethods)
}

func (b pyBytes) Len() int { return len(b) }

func (b pyBytes) Index(ctx *Context, index pyObject) pyObject {
	i, ok := toInt(index)
	if !ok {
		panic(ctx.newTypeError("byte indices must be integers, not '%s'", index.Type()))
	}
	n := int64(len(b))
	idx := i.v.Int64()
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		panic(ctx.newException("IndexError", "index out of range"))
	}
	return newPyInt(int64(b[idx]))
}

func (b pyBytes) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Add:
		ob, ok := operand.(pyBytes)
		if !ok {
			panic(ctx.newTypeError("can't concat %s to bytes", operand.Type()))
		}
		out := make(pyBytes, 0, len(b)+len(ob))
		out = append(out, b...)
		out = append(out, ob...)
		return out
	case Equal:
		ob, ok := operand.(pyBytes)
		return newPyBool(ok && string(ob) == string(b))
	case NotEqual:
		ob, ok := operand.(pyBytes)
		return newPyBool(!ok || string(ob) != string(b))
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'bytes' and '%s'", operator, operand.Type()))
}
