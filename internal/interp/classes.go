package interp

import "fmt"

// pyClass is a user-defined or builtin class object (spec §4.3). Its MRO is computed once at
// creation via C3 linearization and never recomputed (spec §3 invariant), generalizing the
// teacher's package-scoped BUILD function tables (which had no notion of inheritance at all) up
// to full Python multiple-inheritance dispatch.
type pyClass struct {
	name    string
	bases   []*pyClass
	mro     []*pyClass
	dict    map[string]pyObject
	isBuiltin bool
}

// objectClass is the implicit root every class's MRO ends with (spec §3: "Every class's MRO
// begins with itself and ends with the implicit object").
var objectClass = &pyClass{name: "object", dict: map[string]pyObject{}, isBuiltin: true}

func init() {
	objectClass.mro = []*pyClass{objectClass}
}

func newPyClass(name string, bases []*pyClass, dict map[string]pyObject) (*pyClass, error) {
	c := &pyClass{name: name, bases: bases, dict: dict}
	mro, err := c3Linearize(c)
	if err != nil {
		log.Warningf("class %q has no consistent MRO: %s", name, err)
		return nil, err
	}
	log.Debugf("class %q linearized to %d-deep MRO", name, len(mro))
	c.mro = mro
	return c, nil
}

// c3Linearize computes the C3 superclass linearization of c (spec §4.3's MRO requirement),
// following the standard algorithm: L[C] = C + merge(L[B1], ..., L[Bn], [B1, ..., Bn]), with
// objectClass threaded in as the implicit common ancestor every base's own MRO already ends
// with, so the merge naturally places it last exactly once.
func c3Linearize(c *pyClass) ([]*pyClass, error) {
	if c == objectClass {
		return []*pyClass{c}, nil
	}
	if len(c.bases) == 0 {
		return []*pyClass{c, objectClass}, nil
	}
	sequences := make([][]*pyClass, 0, len(c.bases)+1)
	for _, b := range c.bases {
		sequences = append(sequences, b.mro)
	}
	sequences = append(sequences, append([]*pyClass{}, c.bases...))
	merged, err := c3Merge(sequences)
	if err != nil {
		return nil, err
	}
	return append([]*pyClass{c}, merged...), nil
}

func c3Merge(sequences [][]*pyClass) ([]*pyClass, error) {
	var result []*pyClass
	seqs := make([][]*pyClass, len(sequences))
	for i, s := range sequences {
		seqs[i] = append([]*pyClass{}, s...)
	}
	for {
		seqs = dropEmpty(seqs)
		if len(seqs) == 0 {
			return result, nil
		}
		var head *pyClass
		for _, seq := range seqs {
			candidate := seq[0]
			if !appearsInTail(seqs, candidate) {
				head = candidate
				break
			}
		}
		if head == nil {
			return nil, fmt.Errorf("cannot create a consistent method resolution order (MRO)")
		}
		result = append(result, head)
		for i, seq := range seqs {
			if len(seq) > 0 && seq[0] == head {
				seqs[i] = seq[1:]
			}
		}
	}
}

func dropEmpty(seqs [][]*pyClass) [][]*pyClass {
	out := seqs[:0]
	for _, s := range seqs {
		if len(s) > 0 {
			out = append(out, s)
		}
	}
	return out
}

func appearsInTail(seqs [][]*pyClass, c *pyClass) bool {
	for _, seq := range seqs {
		for _, other := range seq[1:] {
			if other == c {
				return true
			}
		}
	}
	return false
}

func (c *pyClass) Type() string   { return "type" }
func (c *pyClass) IsTruthy() bool { return true }
func (c *pyClass) String() string { return fmt.Sprintf("<class '%s'>", c.name) }

// lookupInMRO walks c's MRO in order, returning the first class dict entry found for name.
func (c *pyClass) lookupInMRO(name string) (pyObject, bool) {
	for _, k := range c.mro {
		if v, ok := k.dict[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// lookupInMROWithOwner is lookupInMRO plus the class whose dict the entry actually came from, so
// callers can bind a method with the information a zero-arg super() needs.
func (c *pyClass) lookupInMROWithOwner(name string) (pyObject, *pyClass, bool) {
	for _, k := range c.mro {
		if v, ok := k.dict[name]; ok {
			return v, k, true
		}
	}
	return nil, nil, false
}

func (c *pyClass) isSubclassOf(other *pyClass) bool {
	for _, k := range c.mro {
		if k == other {
			return true
		}
	}
	return false
}

func (c *pyClass) Property(ctx *Context, name string) (pyObject, bool) {
	if name == "__name__" {
		return pyString(c.name), true
	}
	v, ok := c.lookupInMRO(name)
	if !ok {
		return nil, false
	}
	if fn, ok := v.(*pyFunction); ok {
		return &unboundClassMethod{class: c, fn: fn}, true
	}
	return v, true
}

// unboundClassMethod represents `SomeClass.method`: a callable that requires an explicit
// instance as its first argument, as opposed to the bound method returned by instance attribute
// access.
type unboundClassMethod struct {
	class *pyClass
	fn    *pyFunction
}

func (m *unboundClassMethod) Type() string   { return "function" }
func (m *unboundClassMethod) IsTruthy() bool { return true }
func (m *unboundClassMethod) String() string {
	return fmt.Sprintf("<function %s.%s>", m.class.name, m.fn.name)
}
func (m *unboundClassMethod) Property(ctx *Context, name string) (pyObject, bool) { return nil, false }
func (m *unboundClassMethod) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'function' and '%s'", operator, operand.Type()))
}
func (m *unboundClassMethod) Call(ctx *Context, args *callArgs) pyObject {
	return m.fn.Call(ctx, args)
}

func (c *pyClass) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Is:
		oc, ok := operand.(*pyClass)
		return newPyBool(ok && oc == c)
	case IsNot:
		oc, ok := operand.(*pyClass)
		return newPyBool(!ok || oc != c)
	case Equal:
		oc, ok := operand.(*pyClass)
		return newPyBool(ok && oc == c)
	case NotEqual:
		oc, ok := operand.(*pyClass)
		return newPyBool(!ok || oc != c)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'type' and '%s'", operator, operand.Type()))
}

// Call constructs a new instance: allocates it, then calls `__init__` if the class (or a base)
// defines one. A class descending from BaseException always constructs a *pyException rather than
// a *pyInstance (even when user-defined, not just the builtins bootstrapClasses registers), so that
// `except`/`isInstanceOfName` and the `.args` protocol work uniformly for custom exception types.
func (c *pyClass) Call(ctx *Context, args *callArgs) pyObject {
	if c.isExceptionClass() {
		exc := &pyException{class: c, attrs: newPyDict(), args: append([]pyObject{}, args.positional...)}
		if init, owner, ok := c.lookupInMROWithOwner("__init__"); ok {
			if fn, ok := init.(*pyFunction); ok {
				fn.bindMethod(exc, owner).Call(ctx, args)
			}
		}
		return exc
	}
	inst := &pyInstance{class: c, attrs: newPyDict()}
	if init, owner, ok := c.lookupInMROWithOwner("__init__"); ok {
		if fn, ok := init.(*pyFunction); ok {
			fn.bindMethod(inst, owner).Call(ctx, args)
		}
	}
	return inst
}

// isExceptionClass reports whether c descends from BaseException.
func (c *pyClass) isExceptionClass() bool {
	for _, k := range c.mro {
		if k.name == "BaseException" {
			return true
		}
	}
	return false
}

// pyInstance is an instance of a user-defined class (spec §4.3). Its class pointer is immutable
// for its lifetime; attributes are mutable (spec §3 invariant).
type pyInstance struct {
	class *pyClass
	attrs *pyDict
}

func (o *pyInstance) Type() string { return o.class.name }

// IsTruthy/String are the context-free defaults used when no Context is at hand (e.g. a panic
// message formatted deep in a Go callback). Evaluator code that does have a Context should prefer
// isTruthy(ctx, v) / strOf(ctx, v) below, which consult `__bool__`/`__str__` first, matching
// Python's actual truthiness/str protocol.
func (o *pyInstance) IsTruthy() bool { return true }
func (o *pyInstance) String() string { return fmt.Sprintf("<%s object>", o.class.name) }

// isTruthy is the context-aware boolean-conversion protocol (`bool(x)`, `if x:`): instances defer
// to `__bool__` then `__len__` if defined, else are always truthy.
func isTruthy(ctx *Context, v pyObject) bool {
	inst, ok := v.(*pyInstance)
	if !ok {
		return v.IsTruthy()
	}
	if m, ok := inst.class.lookupInMRO("__bool__"); ok {
		if fn, ok := m.(*pyFunction); ok {
			return fn.bind(inst).Call(ctx, newCallArgs()).IsTruthy()
		}
	}
	if m, ok := inst.class.lookupInMRO("__len__"); ok {
		if fn, ok := m.(*pyFunction); ok {
			return fn.bind(inst).Call(ctx, newCallArgs()).IsTruthy()
		}
	}
	return true
}

// strOf is the context-aware `str(x)` protocol: instances defer to `__str__` then `__repr__` if
// defined, else the default "<ClassName object>" rendering.
func strOf(ctx *Context, v pyObject) string {
	inst, ok := v.(*pyInstance)
	if !ok {
		return v.String()
	}
	for _, dunder := range []string{"__str__", "__repr__"} {
		if m, ok := inst.class.lookupInMRO(dunder); ok {
			if fn, ok := m.(*pyFunction); ok {
				return strOf(ctx, fn.bind(inst).Call(ctx, newCallArgs()))
			}
		}
	}
	return inst.String()
}

func (o *pyInstance) Property(ctx *Context, name string) (pyObject, bool) {
	if v, ok := o.attrs.Get(ctx, pyString(name)); ok {
		return v, true
	}
	if v, owner, ok := o.class.lookupInMROWithOwner(name); ok {
		if fn, ok := v.(*pyFunction); ok {
			return fn.bindMethod(o, owner), true
		}
		return v, true
	}
	return nil, false
}

func (o *pyInstance) SetProperty(ctx *Context, name string, value pyObject) {
	o.attrs.Set(ctx, pyString(name), value)
}

var operatorDunders = map[Operator]string{
	Add: "__add__", Subtract: "__sub__", Multiply: "__mul__", Divide: "__truediv__",
	FloorDivide: "__floordiv__", Modulo: "__mod__", Power: "__pow__",
	BitAnd: "__and__", BitOr: "__or__", BitXor: "__xor__", LShift: "__lshift__", RShift: "__rshift__",
	LessThan: "__lt__", LessThanOrEqual: "__le__", GreaterThan: "__gt__", GreaterThanOrEqual: "__ge__",
	Equal: "__eq__", NotEqual: "__ne__",
}

func (o *pyInstance) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	if operator == Is {
		oo, ok := operand.(*pyInstance)
		return newPyBool(ok && oo == o)
	}
	if operator == IsNot {
		oo, ok := operand.(*pyInstance)
		return newPyBool(!ok || oo != o)
	}
	if dunder, ok := operatorDunders[operator]; ok {
		if m, ok := o.class.lookupInMRO(dunder); ok {
			if fn, ok := m.(*pyFunction); ok {
				args := newCallArgs()
				args.addPositional(operand)
				return fn.bind(o).Call(ctx, args)
			}
		}
	}
	if operator == Equal {
		return newPyBool(o == operand)
	}
	if operator == NotEqual {
		return newPyBool(o != operand)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: '%s' and '%s'", operator, o.Type(), operand.Type()))
}

func (o *pyInstance) Iterate(ctx *Context) iterator {
	if m, ok := o.class.lookupInMRO("__iter__"); ok {
		if fn, ok := m.(*pyFunction); ok {
			it := fn.bind(o).Call(ctx, newCallArgs())
			return &instanceIterator{ctx: ctx, obj: it}
		}
	}
	panic(ctx.newTypeError("'%s' object is not iterable", o.Type()))
}

// instanceIterator adapts an instance's `__next__` method to the internal iterator interface,
// recovering the `StopIteration` exception that ends Python iteration.
type instanceIterator struct {
	ctx *Context
	obj pyObject
}

func (it *instanceIterator) Next() (v pyObject, ok bool) {
	inst, isInstance := it.obj.(*pyInstance)
	if !isInstance {
		return nil, false
	}
	m, found := inst.class.lookupInMRO("__next__")
	if !found {
		return nil, false
	}
	fn, isFn := m.(*pyFunction)
	if !isFn {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			if sig, isExc := r.(*exceptionSignal); isExc && sig.exc.isInstanceOfName("StopIteration") {
				v, ok = nil, false
				return
			}
			panic(r)
		}
	}()
	return fn.bind(inst).Call(it.ctx, newCallArgs()), true
}

// superProxy implements the zero/two-argument `super()` builtin (spec §4.3): attribute lookups on
// it skip over `startClass` in the instance's MRO, finding the next class's definition.
type superProxy struct {
	instance   *pyInstance
	startClass *pyClass
}

func (s *superProxy) Type() string   { return "super" }
func (s *superProxy) IsTruthy() bool { return true }
func (s *superProxy) String() string { return fmt.Sprintf("<super: <class '%s'>, <%s object>>", s.startClass.name, s.instance.class.name) }

func (s *superProxy) Property(ctx *Context, name string) (pyObject, bool) {
	mro := s.instance.class.mro
	i := 0
	for ; i < len(mro); i++ {
		if mro[i] == s.startClass {
			break
		}
	}
	for j := i + 1; j < len(mro); j++ {
		if v, ok := mro[j].dict[name]; ok {
			if fn, ok := v.(*pyFunction); ok {
				return fn.bindMethod(s.instance, mro[j]), true
			}
			return v, true
		}
	}
	return nil, false
}

func (s *superProxy) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'super' and '%s'", operator, operand.Type()))
}

// bootstrapClasses registers the builtin exception hierarchy (exceptions.go's
// baseExceptionHierarchy) into ctx.classes, computing each class's MRO exactly once, matching
// spec §3's invariant that a class's MRO is computed once at creation and never recomputed.
func bootstrapClasses(ctx *Context) {
	ctx.classes["object"] = objectClass
	for _, entry := range baseExceptionHierarchy {
		var bases []*pyClass
		if entry.base != "" {
			bases = []*pyClass{ctx.classes[entry.base]}
		}
		c, err := newPyClass(entry.name, bases, map[string]pyObject{})
		if err != nil {
			panic(err)
		}
		c.isBuiltin = true
		ctx.classes[entry.name] = c
	}
}
