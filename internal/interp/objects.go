package interp

import "fmt"

// A pyObject is the base type for every interpreter value. Mirrors the teacher's pyObject
// (objects.go) exactly: a small tagged interface rather than a type-switch over `interface{}`,
// so every value type carries its own property lookup, truthiness, and operator dispatch.
type pyObject interface {
	fmt.Stringer
	// Type returns the name of this object's type, as `type(x).__name__` would report it.
	Type() string
	// IsTruthy reports whether this object is truthy in a boolean context.
	IsTruthy() bool
	// Property returns an attribute or bound method of this object by name.
	Property(ctx *Context, name string) (pyObject, bool)
	// Operator invokes a binary operator with this object as the left-hand operand.
	Operator(ctx *Context, operator Operator, operand pyObject) pyObject
}

// An iterable is any pyObject that can appear on the right of a `for x in y`.
type iterable interface {
	pyObject
	Iterate(ctx *Context) iterator
}

// An iterator yields successive values; Next returns ok=false once exhausted.
type iterator interface {
	Next() (pyObject, bool)
}

// A sized object knows its own length (`len(x)`).
type sized interface {
	pyObject
	Len() int
}

// An indexable object supports `x[i]`.
type indexable interface {
	pyObject
	Index(ctx *Context, index pyObject) pyObject
}

// A sliceable object supports `x[a:b:c]`.
type sliceable interface {
	pyObject
	Slice(ctx *Context, start, stop, step *int) pyObject
}

// An indexAssignable object supports `x[i] = v`.
type indexAssignable interface {
	pyObject
	SetIndex(ctx *Context, index, value pyObject)
}

// A propertySettable object supports `x.name = v`.
type propertySettable interface {
	pyObject
	SetProperty(ctx *Context, name string, value pyObject)
}

// A callable object can be invoked as `x(...)`.
type callable interface {
	pyObject
	Call(ctx *Context, args *callArgs) pyObject
}

// hashable marks values usable as dict keys / set members, and supplies a comparable Go value to
// key an underlying Go map with (since pyObject itself isn't comparable in general — lists/dicts
// aren't hashable, matching Python).
type hashable interface {
	pyObject
	hashKey() interface{}
}

type pyBool bool

var (
	True  pyObject = pyBool(true)
	False pyObject = pyBool(false)
)

func newPyBool(b bool) pyObject {
	if b {
		return True
	}
	return False
}

func (b pyBool) Type() string   { return "bool" }
func (b pyBool) IsTruthy() bool { return bool(b) }
func (b pyBool) String() string {
	if b {
		return "True"
	}
	return "False"
}
func (b pyBool) hashKey() interface{} { return bool(b) }

func (b pyBool) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, b, name, boolMethods)
}

func (b pyBool) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Is:
		ob, ok := operand.(pyBool)
		return newPyBool(ok && ob == b)
	case IsNot:
		ob, ok := operand.(pyBool)
		return newPyBool(!ok || ob != b)
	}
	return intFromBool(b).Operator(ctx, operator, operand)
}

type pyNone struct{}

var None pyObject = pyNone{}

func (n pyNone) Type() string                { return "NoneType" }
func (n pyNone) IsTruthy() bool              { return false }
func (n pyNone) String() string              { return "None" }
func (n pyNone) hashKey() interface{}        { return nil }
func (n pyNone) Property(ctx *Context, name string) (pyObject, bool) {
	return nil, false
}

func (n pyNone) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Equal:
		_, ok := operand.(pyNone)
		return newPyBool(ok)
	case NotEqual:
		_, ok := operand.(pyNone)
		return newPyBool(!ok)
	case Is:
		_, ok := operand.(pyNone)
		return newPyBool(ok)
	case IsNot:
		_, ok := operand.(pyNone)
		return newPyBool(!ok)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'NoneType' and '%s'", operator, operand.Type()))
}

type pyEllipsis struct{}

var Ellipsis pyObject = pyEllipsis{}

func (pyEllipsis) Type() string   { return "ellipsis" }
func (pyEllipsis) IsTruthy() bool { return true }
func (pyEllipsis) String() string { return "Ellipsis" }
func (pyEllipsis) Property(ctx *Context, name string) (pyObject, bool) {
	return nil, false
}
func (pyEllipsis) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'ellipsis' and '%s'", operator, operand.Type()))
}

// pyObjectsEqual implements Python's `==` across heterogeneous types, used by dict/set membership
// and the `in`/`not in`/`==`/`!=` operators when a type's own Operator doesn't special-case the
// comparison.
func pyObjectsEqual(ctx *Context, a, b pyObject) bool {
	if ab, ok := a.(pyBool); ok {
		a = intFromBool(ab)
	}
	if bb, ok := b.(pyBool); ok {
		b = intFromBool(bb)
	}
	if ha, ok := a.(hashable); ok {
		if hb, ok := b.(hashable); ok {
			return ha.hashKey() == hb.hashKey() && a.Type() == typeForCompare(a, b)
		}
	}
	return a.Operator(ctx, Equal, b).IsTruthy()
}

// typeForCompare lets bool/int compare equal across their Go types (True == 1), matching Python.
func typeForCompare(a, b pyObject) string {
	_, aBool := a.(pyBool)
	_, bBool := b.(pyBool)
	if aBool || bBool {
		return a.Type()
	}
	if _, ok := a.(pyInt); ok {
		if _, ok := b.(pyInt); ok {
			return "int"
		}
	}
	return a.Type()
}

// lookupMethod is shared by every builtin type's Property: it looks the name up in that type's
// bound-method table and wraps it as a builtinMethod bound to receiver.
func lookupMethod(ctx *Context, receiver pyObject, name string, table map[string]*builtinMethod) (pyObject, bool) {
	m, ok := table[name]
	if !ok {
		return nil, false
	}
	return &boundBuiltin{receiver: receiver, method: m}, true
}

// A builtinMethod is a Go-implemented method available on a builtin type.
type builtinMethod struct {
	name string
	fn   func(ctx *Context, receiver pyObject, args *callArgs) pyObject
}

// A boundBuiltin is a builtinMethod bound to a specific receiver, the pyObject produced by
// `receiver.method`.
type boundBuiltin struct {
	receiver pyObject
	method   *builtinMethod
}

func (b *boundBuiltin) Type() string   { return "builtin_function_or_method" }
func (b *boundBuiltin) IsTruthy() bool { return true }
func (b *boundBuiltin) String() string {
	return fmt.Sprintf("<built-in method %s of %s object>", b.method.name, b.receiver.Type())
}
func (b *boundBuiltin) Property(ctx *Context, name string) (pyObject, bool) { return nil, false }
func (b *boundBuiltin) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'builtin_function_or_method' and '%s'", operator, operand.Type()))
}
func (b *boundBuiltin) Call(ctx *Context, args *callArgs) pyObject {
	return b.method.fn(ctx, b.receiver, args)
}

// A goBuiltin is a free (unbound) Go-implemented function registered as a global builtin or
// module member (spec §3's "Builtin"), as opposed to a boundBuiltin which is always a method.
type goBuiltin struct {
	name string
	fn   func(ctx *Context, args *callArgs) pyObject
}

func (b *goBuiltin) Type() string   { return "builtin_function_or_method" }
func (b *goBuiltin) IsTruthy() bool { return true }
func (b *goBuiltin) String() string { return fmt.Sprintf("<built-in function %s>", b.name) }
func (b *goBuiltin) Property(ctx *Context, name string) (pyObject, bool) { return nil, false }
func (b *goBuiltin) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'builtin_function_or_method' and '%s'", operator, operand.Type()))
}
func (b *goBuiltin) Call(ctx *Context, args *callArgs) pyObject {
	return b.fn(ctx, args)
}
