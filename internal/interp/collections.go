package interp

import (
	"fmt"
	"strings"
)

// pyList is a mutable, ordered sequence (spec §3). Lists are reference types in Python: assignment
// never copies, so pyList is always handled through its pointer receiver.
type pyList struct {
	items []pyObject
}

func newPyList(items []pyObject) *pyList { return &pyList{items: items} }

func (l *pyList) Type() string   { return "list" }
func (l *pyList) IsTruthy() bool { return len(l.items) > 0 }
func (l *pyList) String() string { return "[" + joinRepr(l.items) + "]" }
func (l *pyList) Len() int       { return len(l.items) }

func (l *pyList) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, l, name, listMethods)
}

func (l *pyList) resolveIndex(ctx *Context, index pyObject) int {
	i, ok := toInt(index)
	if !ok {
		panic(ctx.newTypeError("list indices must be integers, not '%s'", index.Type()))
	}
	n := int64(len(l.items))
	idx := i.v.Int64()
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		panic(ctx.newException("IndexError", "list index out of range"))
	}
	return int(idx)
}

func (l *pyList) Index(ctx *Context, index pyObject) pyObject {
	return l.items[l.resolveIndex(ctx, index)]
}

func (l *pyList) SetIndex(ctx *Context, index, value pyObject) {
	l.items[l.resolveIndex(ctx, index)] = value
}

func (l *pyList) Slice(ctx *Context, start, stop, step *int) pyObject {
	idxs := sliceIndices(len(l.items), start, stop, step)
	out := make([]pyObject, len(idxs))
	for i, idx := range idxs {
		out[i] = l.items[idx]
	}
	return newPyList(out)
}

func (l *pyList) Iterate(ctx *Context) iterator {
	i := 0
	return iteratorFunc(func() (pyObject, bool) {
		if i >= len(l.items) {
			return nil, false
		}
		v := l.items[i]
		i++
		return v, true
	})
}

func (l *pyList) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Add:
		ol, ok := operand.(*pyList)
		if !ok {
			panic(ctx.newTypeError("can only concatenate list (not \"%s\") to list", operand.Type()))
		}
		out := make([]pyObject, 0, len(l.items)+len(ol.items))
		out = append(out, l.items...)
		out = append(out, ol.items...)
		return newPyList(out)
	case Multiply:
		n, ok := toInt(operand)
		if !ok {
			panic(ctx.newTypeError("can't multiply sequence by non-int of type '%s'", operand.Type()))
		}
		count := maxInt(0, int(n.v.Int64()))
		out := make([]pyObject, 0, len(l.items)*count)
		for i := 0; i < count; i++ {
			out = append(out, l.items...)
		}
		return newPyList(out)
	case Equal:
		ol, ok := operand.(*pyList)
		return newPyBool(ok && sequencesEqual(ctx, l.items, ol.items))
	case NotEqual:
		ol, ok := operand.(*pyList)
		return newPyBool(!ok || !sequencesEqual(ctx, l.items, ol.items))
	case In:
		for _, v := range l.items {
			if pyObjectsEqual(ctx, v, operand) {
				return True
			}
		}
		return False
	case Is:
		ol, ok := operand.(*pyList)
		return newPyBool(ok && ol == l)
	case IsNot:
		ol, ok := operand.(*pyList)
		return newPyBool(!ok || ol != l)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'list' and '%s'", operator, operand.Type()))
}

func sequencesEqual(ctx *Context, a, b []pyObject) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !pyObjectsEqual(ctx, a[i], b[i]) {
			return false
		}
	}
	return true
}

func joinRepr(items []pyObject) string {
	parts := make([]string, len(items))
	for i, v := range items {
		parts[i] = reprOf(v)
	}
	return strings.Join(parts, ", ")
}

// reprOf renders v the way Python's repr() would for container members (quoting strings), falling
// back to String() for everything else.
func reprOf(v pyObject) string {
	if s, ok := v.(pyString); ok {
		return "'" + strings.ReplaceAll(string(s), "'", "\\'") + "'"
	}
	return v.String()
}

// pyTuple is an immutable, ordered sequence (spec §3). Distinct Go type from pyList so `type()`,
// hashability, and the `tuple`/`list` dunder tables stay separate, matching Python.
type pyTuple struct {
	items []pyObject
}

func newPyTuple(items []pyObject) pyTuple { return pyTuple{items: items} }

func (t pyTuple) Type() string   { return "tuple" }
func (t pyTuple) IsTruthy() bool { return len(t.items) > 0 }
func (t pyTuple) String() string {
	if len(t.items) == 1 {
		return "(" + reprOf(t.items[0]) + ",)"
	}
	return "(" + joinRepr(t.items) + ")"
}
func (t pyTuple) Len() int { return len(t.items) }

func (t pyTuple) hashKey() interface{} {
	keys := make([]interface{}, len(t.items))
	for i, v := range t.items {
		if h, ok := v.(hashable); ok {
			keys[i] = h.hashKey()
		} else {
			keys[i] = v
		}
	}
	return fmtTupleKey(keys)
}

func fmtTupleKey(keys []interface{}) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = interfaceKeyString(k)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

func (t pyTuple) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, t, name, tupleMethods)
}

func (t pyTuple) Index(ctx *Context, index pyObject) pyObject {
	i, ok := toInt(index)
	if !ok {
		panic(ctx.newTypeError("tuple indices must be integers, not '%s'", index.Type()))
	}
	n := int64(len(t.items))
	idx := i.v.Int64()
	if idx < 0 {
		idx += n
	}
	if idx < 0 || idx >= n {
		panic(ctx.newException("IndexError", "tuple index out of range"))
	}
	return t.items[idx]
}

func (t pyTuple) Slice(ctx *Context, start, stop, step *int) pyObject {
	idxs := sliceIndices(len(t.items), start, stop, step)
	out := make([]pyObject, len(idxs))
	for i, idx := range idxs {
		out[i] = t.items[idx]
	}
	return newPyTuple(out)
}

func (t pyTuple) Iterate(ctx *Context) iterator {
	i := 0
	return iteratorFunc(func() (pyObject, bool) {
		if i >= len(t.items) {
			return nil, false
		}
		v := t.items[i]
		i++
		return v, true
	})
}

func (t pyTuple) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Add:
		ot, ok := operand.(pyTuple)
		if !ok {
			panic(ctx.newTypeError("can only concatenate tuple (not \"%s\") to tuple", operand.Type()))
		}
		out := make([]pyObject, 0, len(t.items)+len(ot.items))
		out = append(out, t.items...)
		out = append(out, ot.items...)
		return newPyTuple(out)
	case Equal:
		ot, ok := operand.(pyTuple)
		return newPyBool(ok && sequencesEqual(ctx, t.items, ot.items))
	case NotEqual:
		ot, ok := operand.(pyTuple)
		return newPyBool(!ok || !sequencesEqual(ctx, t.items, ot.items))
	case In:
		for _, v := range t.items {
			if pyObjectsEqual(ctx, v, operand) {
				return True
			}
		}
		return False
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'tuple' and '%s'", operator, operand.Type()))
}

// interfaceKeyString renders a hashKey() result (string, int64, float64, bool, nil, or nested
// tuple key string) into a single string suitable as a Go map key component.
func interfaceKeyString(k interface{}) string {
	switch v := k.(type) {
	case string:
		return "s:" + v
	case nil:
		return "n"
	default:
		return fmtAny(v)
	}
}

func fmtAny(v interface{}) string {
	return fmt.Sprintf("%v", v)
}

// pyDictEntry is one key/value pair of a pyDict, stored alongside the insertion order so iteration
// matches Python 3.7+'s guaranteed insertion-order dict semantics.
type pyDictEntry struct {
	key   pyObject
	value pyObject
}

// pyDict is a mutable, insertion-ordered mapping (spec §3). Keyed internally by each key's
// hashKey() string form rather than using pyObject directly as a Go map key, since most pyObject
// implementations (pointers to pyList, etc.) are not meaningfully comparable the way Python
// equality requires.
type pyDict struct {
	entries []pyDictEntry
	index   map[string]int
}

func newPyDict() *pyDict {
	return &pyDict{index: map[string]int{}}
}

func (d *pyDict) dictKey(ctx *Context, key pyObject) string {
	h, ok := key.(hashable)
	if !ok {
		panic(ctx.newTypeError("unhashable type: '%s'", key.Type()))
	}
	return key.Type() + ":" + interfaceKeyString(h.hashKey())
}

func (d *pyDict) Get(ctx *Context, key pyObject) (pyObject, bool) {
	i, ok := d.index[d.dictKey(ctx, key)]
	if !ok {
		return nil, false
	}
	return d.entries[i].value, true
}

func (d *pyDict) Set(ctx *Context, key, value pyObject) {
	k := d.dictKey(ctx, key)
	if i, ok := d.index[k]; ok {
		d.entries[i].value = value
		return
	}
	d.index[k] = len(d.entries)
	d.entries = append(d.entries, pyDictEntry{key: key, value: value})
}

func (d *pyDict) Delete(ctx *Context, key pyObject) bool {
	k := d.dictKey(ctx, key)
	i, ok := d.index[k]
	if !ok {
		return false
	}
	d.entries = append(d.entries[:i], d.entries[i+1:]...)
	delete(d.index, k)
	for j := i; j < len(d.entries); j++ {
		d.index[d.dictKey(ctx, d.entries[j].key)] = j
	}
	return true
}

func (d *pyDict) Type() string   { return "dict" }
func (d *pyDict) IsTruthy() bool { return len(d.entries) > 0 }
func (d *pyDict) Len() int       { return len(d.entries) }

func (d *pyDict) String() string {
	parts := make([]string, len(d.entries))
	for i, e := range d.entries {
		parts[i] = reprOf(e.key) + ": " + reprOf(e.value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d *pyDict) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, d, name, dictMethods)
}

func (d *pyDict) Index(ctx *Context, index pyObject) pyObject {
	v, ok := d.Get(ctx, index)
	if !ok {
		panic(ctx.newException("KeyError", reprOf(index)))
	}
	return v
}

func (d *pyDict) SetIndex(ctx *Context, index, value pyObject) {
	d.Set(ctx, index, value)
}

func (d *pyDict) Iterate(ctx *Context) iterator {
	i := 0
	return iteratorFunc(func() (pyObject, bool) {
		if i >= len(d.entries) {
			return nil, false
		}
		k := d.entries[i].key
		i++
		return k, true
	})
}

func (d *pyDict) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Equal, NotEqual:
		od, ok := operand.(*pyDict)
		eq := ok && d.Len() == od.Len()
		if eq {
			for _, e := range d.entries {
				ov, found := od.Get(ctx, e.key)
				if !found || !pyObjectsEqual(ctx, e.value, ov) {
					eq = false
					break
				}
			}
		}
		if operator == Equal {
			return newPyBool(eq)
		}
		return newPyBool(!eq)
	case In:
		_, ok := d.Get(ctx, operand)
		return newPyBool(ok)
	case Is:
		od, ok := operand.(*pyDict)
		return newPyBool(ok && od == d)
	case IsNot:
		od, ok := operand.(*pyDict)
		return newPyBool(!ok || od != d)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'dict' and '%s'", operator, operand.Type()))
}

// pySet is a mutable, unordered collection of unique hashable values (spec §3). Iteration order
// here follows insertion order for determinism even though Python's own set order is unspecified.
type pySet struct {
	order []pyObject
	index map[string]int
}

func newPySet() *pySet {
	return &pySet{index: map[string]int{}}
}

func (s *pySet) setKey(ctx *Context, v pyObject) string {
	h, ok := v.(hashable)
	if !ok {
		panic(ctx.newTypeError("unhashable type: '%s'", v.Type()))
	}
	return v.Type() + ":" + interfaceKeyString(h.hashKey())
}

func (s *pySet) Add(ctx *Context, v pyObject) {
	k := s.setKey(ctx, v)
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = len(s.order)
	s.order = append(s.order, v)
}

func (s *pySet) Discard(ctx *Context, v pyObject) bool {
	k := s.setKey(ctx, v)
	i, ok := s.index[k]
	if !ok {
		return false
	}
	s.order = append(s.order[:i], s.order[i+1:]...)
	delete(s.index, k)
	for j := i; j < len(s.order); j++ {
		s.index[s.setKey(ctx, s.order[j])] = j
	}
	return true
}

func (s *pySet) Contains(ctx *Context, v pyObject) bool {
	_, ok := s.index[s.setKey(ctx, v)]
	return ok
}

func (s *pySet) Type() string   { return "set" }
func (s *pySet) IsTruthy() bool { return len(s.order) > 0 }
func (s *pySet) Len() int       { return len(s.order) }
func (s *pySet) String() string {
	if len(s.order) == 0 {
		return "set()"
	}
	return "{" + joinRepr(s.order) + "}"
}

func (s *pySet) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, s, name, setMethods)
}

func (s *pySet) Iterate(ctx *Context) iterator {
	i := 0
	return iteratorFunc(func() (pyObject, bool) {
		if i >= len(s.order) {
			return nil, false
		}
		v := s.order[i]
		i++
		return v, true
	})
}

func (s *pySet) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case In:
		return newPyBool(s.Contains(ctx, operand))
	case BitOr, BitAnd, Subtract, BitXor:
		os, ok := operand.(*pySet)
		if !ok {
			panic(ctx.newTypeError("unsupported operand type(s) for %s: 'set' and '%s'", operator, operand.Type()))
		}
		return s.setOp(ctx, operator, os)
	case Equal, NotEqual:
		os, ok := operand.(*pySet)
		eq := ok && s.Len() == os.Len()
		if eq {
			for _, v := range s.order {
				if !os.Contains(ctx, v) {
					eq = false
					break
				}
			}
		}
		if operator == Equal {
			return newPyBool(eq)
		}
		return newPyBool(!eq)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'set' and '%s'", operator, operand.Type()))
}

func (s *pySet) setOp(ctx *Context, operator Operator, other *pySet) *pySet {
	out := newPySet()
	switch operator {
	case BitOr:
		for _, v := range s.order {
			out.Add(ctx, v)
		}
		for _, v := range other.order {
			out.Add(ctx, v)
		}
	case BitAnd:
		for _, v := range s.order {
			if other.Contains(ctx, v) {
				out.Add(ctx, v)
			}
		}
	case Subtract:
		for _, v := range s.order {
			if !other.Contains(ctx, v) {
				out.Add(ctx, v)
			}
		}
	case BitXor:
		for _, v := range s.order {
			if !other.Contains(ctx, v) {
				out.Add(ctx, v)
			}
		}
		for _, v := range other.order {
			if !s.Contains(ctx, v) {
				out.Add(ctx, v)
			}
		}
	}
	return out
}
