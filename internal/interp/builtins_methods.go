package interp

import (
	"sort"
	"strings"
)

// method is shorthand for constructing a builtinMethod entry in the tables below.
func method(name string, fn func(ctx *Context, receiver pyObject, args *callArgs) pyObject) *builtinMethod {
	return &builtinMethod{name: name, fn: fn}
}

var boolMethods = map[string]*builtinMethod{}

var intMethods = map[string]*builtinMethod{
	"bit_length": method("bit_length", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return newPyInt(int64(recv.(pyInt).v.BitLen()))
	}),
}

var floatMethods = map[string]*builtinMethod{
	"is_integer": method("is_integer", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		f := float64(recv.(pyFloat))
		return newPyBool(f == float64(int64(f)))
	}),
}

var stringMethods = map[string]*builtinMethod{
	"upper": method("upper", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return pyString(strings.ToUpper(string(recv.(pyString))))
	}),
	"lower": method("lower", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return pyString(strings.ToLower(string(recv.(pyString))))
	}),
	"strip": method("strip", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return pyString(strings.TrimSpace(string(recv.(pyString))))
	}),
	"lstrip": method("lstrip", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return pyString(strings.TrimLeft(string(recv.(pyString)), " \t\n\r"))
	}),
	"rstrip": method("rstrip", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return pyString(strings.TrimRight(string(recv.(pyString)), " \t\n\r"))
	}),
	"title": method("title", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return pyString(strings.Title(strings.ToLower(string(recv.(pyString)))))
	}),
	"capitalize": method("capitalize", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := string(recv.(pyString))
		if s == "" {
			return recv
		}
		return pyString(strings.ToUpper(s[:1]) + strings.ToLower(s[1:]))
	}),
	"split": method("split", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := string(recv.(pyString))
		sep := args.arg(0)
		var parts []string
		if sep == nil {
			parts = strings.Fields(s)
		} else {
			parts = strings.Split(s, string(sep.(pyString)))
		}
		out := make([]pyObject, len(parts))
		for i, p := range parts {
			out[i] = pyString(p)
		}
		return newPyList(out)
	}),
	"join": method("join", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		sep := string(recv.(pyString))
		parts := collectIterable(ctx, args.arg(0))
		strs := make([]string, len(parts))
		for i, p := range parts {
			s, ok := p.(pyString)
			if !ok {
				panic(ctx.newTypeError("sequence item %d: expected str instance, %s found", i, p.Type()))
			}
			strs[i] = string(s)
		}
		return pyString(strings.Join(strs, sep))
	}),
	"replace": method("replace", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := string(recv.(pyString))
		old := string(args.arg(0).(pyString))
		new := string(args.arg(1).(pyString))
		return pyString(strings.ReplaceAll(s, old, new))
	}),
	"startswith": method("startswith", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return newPyBool(strings.HasPrefix(string(recv.(pyString)), string(args.arg(0).(pyString))))
	}),
	"endswith": method("endswith", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return newPyBool(strings.HasSuffix(string(recv.(pyString)), string(args.arg(0).(pyString))))
	}),
	"find": method("find", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		i := strings.Index(string(recv.(pyString)), string(args.arg(0).(pyString)))
		return newPyInt(int64(i))
	}),
	"count": method("count", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return newPyInt(int64(strings.Count(string(recv.(pyString)), string(args.arg(0).(pyString)))))
	}),
	"index": method("index", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		i := strings.Index(string(recv.(pyString)), string(args.arg(0).(pyString)))
		if i < 0 {
			panic(ctx.newValueError("substring not found"))
		}
		return newPyInt(int64(i))
	}),
	"isdigit": method("isdigit", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := string(recv.(pyString))
		if s == "" {
			return False
		}
		for _, r := range s {
			if r < '0' || r > '9' {
				return False
			}
		}
		return True
	}),
	"isalpha": method("isalpha", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := string(recv.(pyString))
		if s == "" {
			return False
		}
		for _, r := range s {
			if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
				return False
			}
		}
		return True
	}),
	"isspace": method("isspace", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := string(recv.(pyString))
		if s == "" {
			return False
		}
		return newPyBool(strings.TrimSpace(s) == "")
	}),
	"format": method("format", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := string(recv.(pyString))
		for i, a := range args.positional {
			s = strings.Replace(s, "{"+itoa(i)+"}", strOf(ctx, a), 1)
		}
		s = strings.Replace(s, "{}", "", -1)
		for _, name := range args.names {
			s = strings.ReplaceAll(s, "{"+name+"}", strOf(ctx, args.keyword[name]))
		}
		return pyString(s)
	}),
	"encode": method("encode", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return pyBytes(string(recv.(pyString)))
	}),
}

var bytesMethods = map[string]*builtinMethod{
	"decode": method("decode", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return pyString(string(recv.(pyBytes)))
	}),
	"hex": method("hex", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		const digits = "0123456789abcdef"
		b := recv.(pyBytes)
		var sb strings.Builder
		for _, by := range b {
			sb.WriteByte(digits[by>>4])
			sb.WriteByte(digits[by&0xf])
		}
		return pyString(sb.String())
	}),
}

var listMethods = map[string]*builtinMethod{
	"append": method("append", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		l.items = append(l.items, args.arg(0))
		return None
	}),
	"extend": method("extend", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		l.items = append(l.items, collectIterable(ctx, args.arg(0))...)
		return None
	}),
	"pop": method("pop", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		if len(l.items) == 0 {
			panic(ctx.newException("IndexError", "pop from empty list"))
		}
		idx := len(l.items) - 1
		if a := args.arg(0); a != nil {
			idx = l.resolveIndex(ctx, a)
		}
		v := l.items[idx]
		l.items = append(l.items[:idx], l.items[idx+1:]...)
		return v
	}),
	"insert": method("insert", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		i, _ := toInt(args.arg(0))
		idx := int(i.v.Int64())
		if idx < 0 {
			idx = maxInt(0, len(l.items)+idx)
		}
		if idx > len(l.items) {
			idx = len(l.items)
		}
		l.items = append(l.items, nil)
		copy(l.items[idx+1:], l.items[idx:])
		l.items[idx] = args.arg(1)
		return None
	}),
	"remove": method("remove", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		target := args.arg(0)
		for i, v := range l.items {
			if pyObjectsEqual(ctx, v, target) {
				l.items = append(l.items[:i], l.items[i+1:]...)
				return None
			}
		}
		panic(ctx.newValueError("list.remove(x): x not in list"))
	}),
	"index": method("index", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		target := args.arg(0)
		for i, v := range l.items {
			if pyObjectsEqual(ctx, v, target) {
				return newPyInt(int64(i))
			}
		}
		panic(ctx.newValueError("%s is not in list", reprOf(target)))
	}),
	"count": method("count", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		target := args.arg(0)
		n := 0
		for _, v := range l.items {
			if pyObjectsEqual(ctx, v, target) {
				n++
			}
		}
		return newPyInt(int64(n))
	}),
	"sort": method("sort", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		key, _ := args.keyword["key"]
		rev := args.keyword["reverse"]
		sortItems(ctx, l.items, key, rev != nil && isTruthy(ctx, rev))
		return None
	}),
	"reverse": method("reverse", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		for i, j := 0, len(l.items)-1; i < j; i, j = i+1, j-1 {
			l.items[i], l.items[j] = l.items[j], l.items[i]
		}
		return None
	}),
	"copy": method("copy", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		l := recv.(*pyList)
		return newPyList(append([]pyObject{}, l.items...))
	}),
	"clear": method("clear", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		recv.(*pyList).items = nil
		return None
	}),
}

func sortItems(ctx *Context, items []pyObject, key pyObject, reverse bool) {
	less := func(i, j int) bool {
		a, b := items[i], items[j]
		if key != nil {
			a = callValue(ctx, key, singlePositional(a))
			b = callValue(ctx, key, singlePositional(b))
		}
		lt := applyBinaryOperator(ctx, a, LessThan, b)
		return lt.IsTruthy()
	}
	if reverse {
		sort.SliceStable(items, func(i, j int) bool { return less(j, i) })
	} else {
		sort.SliceStable(items, less)
	}
}

var tupleMethods = map[string]*builtinMethod{
	"count": method("count", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		t := recv.(pyTuple)
		target := args.arg(0)
		n := 0
		for _, v := range t.items {
			if pyObjectsEqual(ctx, v, target) {
				n++
			}
		}
		return newPyInt(int64(n))
	}),
	"index": method("index", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		t := recv.(pyTuple)
		target := args.arg(0)
		for i, v := range t.items {
			if pyObjectsEqual(ctx, v, target) {
				return newPyInt(int64(i))
			}
		}
		panic(ctx.newValueError("tuple.index(x): x not in tuple"))
	}),
}

var dictMethods = map[string]*builtinMethod{
	"get": method("get", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		v, ok := d.Get(ctx, args.arg(0))
		if ok {
			return v
		}
		return args.argOr(1, None)
	}),
	"keys": method("keys", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		out := make([]pyObject, len(d.entries))
		for i, e := range d.entries {
			out[i] = e.key
		}
		return newPyList(out)
	}),
	"values": method("values", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		out := make([]pyObject, len(d.entries))
		for i, e := range d.entries {
			out[i] = e.value
		}
		return newPyList(out)
	}),
	"items": method("items", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		out := make([]pyObject, len(d.entries))
		for i, e := range d.entries {
			out[i] = newPyTuple([]pyObject{e.key, e.value})
		}
		return newPyList(out)
	}),
	"pop": method("pop", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		v, ok := d.Get(ctx, args.arg(0))
		if !ok {
			if def := args.arg(1); def != nil {
				return def
			}
			panic(ctx.newKeyError(args.arg(0)))
		}
		d.Delete(ctx, args.arg(0))
		return v
	}),
	"setdefault": method("setdefault", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		if v, ok := d.Get(ctx, args.arg(0)); ok {
			return v
		}
		def := args.argOr(1, None)
		d.Set(ctx, args.arg(0), def)
		return def
	}),
	"update": method("update", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		if other, ok := args.arg(0).(*pyDict); ok {
			for _, e := range other.entries {
				d.Set(ctx, e.key, e.value)
			}
		}
		for _, name := range args.names {
			d.Set(ctx, pyString(name), args.keyword[name])
		}
		return None
	}),
	"copy": method("copy", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		out := newPyDict()
		for _, e := range d.entries {
			out.Set(ctx, e.key, e.value)
		}
		return out
	}),
	"clear": method("clear", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		d := recv.(*pyDict)
		d.entries = nil
		d.index = map[string]int{}
		return None
	}),
}

var setMethods = map[string]*builtinMethod{
	"add": method("add", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		recv.(*pySet).Add(ctx, args.arg(0))
		return None
	}),
	"discard": method("discard", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		recv.(*pySet).Discard(ctx, args.arg(0))
		return None
	}),
	"remove": method("remove", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		if !recv.(*pySet).Discard(ctx, args.arg(0)) {
			panic(ctx.newKeyError(args.arg(0)))
		}
		return None
	}),
	"union": method("union", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return recv.(*pySet).setOp(ctx, BitOr, args.arg(0).(*pySet))
	}),
	"intersection": method("intersection", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return recv.(*pySet).setOp(ctx, BitAnd, args.arg(0).(*pySet))
	}),
	"difference": method("difference", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return recv.(*pySet).setOp(ctx, Subtract, args.arg(0).(*pySet))
	}),
	"copy": method("copy", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := recv.(*pySet)
		out := newPySet()
		for _, v := range s.order {
			out.Add(ctx, v)
		}
		return out
	}),
	"clear": method("clear", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := recv.(*pySet)
		s.order = nil
		s.index = map[string]int{}
		return None
	}),
	"issubset": method("issubset", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := recv.(*pySet)
		o := args.arg(0).(*pySet)
		for _, v := range s.order {
			if !o.Contains(ctx, v) {
				return False
			}
		}
		return True
	}),
	"issuperset": method("issuperset", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		s := recv.(*pySet)
		o := args.arg(0).(*pySet)
		for _, v := range o.order {
			if !s.Contains(ctx, v) {
				return False
			}
		}
		return True
	}),
}

var exceptionMethods = map[string]*builtinMethod{
	"with_traceback": method("with_traceback", func(ctx *Context, recv pyObject, args *callArgs) pyObject {
		return recv
	}),
}
