package interp

import "fmt"

// callArgs is the calling convention every callable receives: positional and keyword arguments
// already evaluated by eval.go, plus any `*args`/`**kwargs` unpacked in place. Generalizes the
// teacher's *Call (objects.go's pyFunc.Call, which walked raw CallArgument AST nodes against a
// scope) to a pre-evaluated value bundle, since builtin methods (boundBuiltin/goBuiltin) have no
// AST or scope of their own to evaluate against.
type callArgs struct {
	positional []pyObject
	names      []string
	keyword    map[string]pyObject
}

func newCallArgs() *callArgs {
	return &callArgs{keyword: map[string]pyObject{}}
}

func (a *callArgs) addPositional(v pyObject) { a.positional = append(a.positional, v) }

func (a *callArgs) addKeyword(name string, v pyObject) {
	if _, ok := a.keyword[name]; !ok {
		a.names = append(a.names, name)
	}
	a.keyword[name] = v
}

// arg returns the i'th positional argument, or nil if absent.
func (a *callArgs) arg(i int) pyObject {
	if i < len(a.positional) {
		return a.positional[i]
	}
	return nil
}

// argOr returns the i'th positional argument, falling back to def if absent.
func (a *callArgs) argOr(i int, def pyObject) pyObject {
	if v := a.arg(i); v != nil {
		return v
	}
	return def
}

// pyFunction is a user-defined function or method closure (spec §3/§4.3). It captures the scope
// it was defined in (for closures and methods alike) the way the teacher's pyFunc captures
// `parentScope`, but threads a *Context through calls instead of relying on scope-embedded
// host state.
type pyFunction struct {
	def       *FuncDef
	enclosing *scope
	self      pyObject // non-nil once bound as a method (classes.go)
	class     *pyClass // the class whose dict this method was found in, for zero-arg super()
	name      string
}

func newPyFunction(def *FuncDef, enclosing *scope) *pyFunction {
	return &pyFunction{def: def, enclosing: enclosing, name: def.Name}
}

func (f *pyFunction) Type() string   { return "function" }
func (f *pyFunction) IsTruthy() bool { return true }
func (f *pyFunction) String() string { return fmt.Sprintf("<function %s>", f.name) }

func (f *pyFunction) Property(ctx *Context, name string) (pyObject, bool) {
	switch name {
	case "__name__":
		return pyString(f.name), true
	case "__doc__":
		if f.def.Docstring == "" {
			return None, true
		}
		return pyString(f.def.Docstring), true
	}
	return nil, false
}

func (f *pyFunction) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'function' and '%s'", operator, operand.Type()))
}

// bind returns a copy of f bound to self, used when a function defined in a class body is
// accessed through an instance (classes.go's instance attribute lookup).
func (f *pyFunction) bind(self pyObject) *pyFunction {
	bound := *f
	bound.self = self
	return &bound
}

// bindMethod is bind plus the owning class, so a zero-arg `super()` inside the method body knows
// which MRO position to start looking past (spec §4.3).
func (f *pyFunction) bindMethod(self pyObject, owner *pyClass) *pyFunction {
	bound := *f
	bound.self = self
	bound.class = owner
	return &bound
}

// Call implements the user-function calling convention: binds positional/keyword/defaulted
// parameters into a fresh local scope enclosing f's defining scope, then evaluates the body.
// Mirrors the teacher's pyFunc.Call (objects.go) structurally, generalized to full Python
// parameter kinds (*args, **kwargs, keyword-only after a bare `*`).
func (f *pyFunction) Call(ctx *Context, args *callArgs) pyObject {
	local := newLocalScope(f.enclosing)
	bindArguments(ctx, f.def, local, args, f.self)
	if f.class != nil {
		local.Assign("__class__", f.class)
		if f.self != nil {
			local.Assign("__super_self__", f.self)
		}
	}
	if f.def.IsGenerator {
		return newGenerator(f, local)
	}
	result := evalFuncBody(ctx, local, f.def.Statements)
	if result.kind == sigReturn {
		return result.value
	}
	return None
}

// bindArguments implements the full Python argument-binding algorithm against def.Arguments:
// positional-or-keyword, *args, keyword-only (after a bare `*` marker), **kwargs, with defaults
// evaluated at call time in the new local scope (whose parent is the defining scope).
func bindArguments(ctx *Context, def *FuncDef, local *scope, args *callArgs, self pyObject) {
	params := def.Arguments
	rawPositional := args.positional
	offset := 0
	if self != nil {
		local.Assign(params[0].Name, self)
		offset = 1
	}
	pi := 0
	usedKeyword := map[string]bool{}
	for idx := offset; idx < len(params); idx++ {
		p := params[idx]
		switch p.Kind {
		case ArgVarargs:
			var rest []pyObject
			for ; pi < len(rawPositional); pi++ {
				rest = append(rest, rawPositional[pi])
			}
			local.Assign(p.Name, newPyTuple(rest))
		case ArgKeywordOnlyMarker:
			pi = len(rawPositional)
		case ArgKwargs:
			d := newPyDict()
			for _, name := range args.names {
				if !usedKeyword[name] {
					d.Set(ctx, pyString(name), args.keyword[name])
				}
			}
			local.Assign(p.Name, d)
		default:
			if v, ok := args.keyword[p.Name]; ok {
				local.Assign(p.Name, v)
				usedKeyword[p.Name] = true
			} else if pi < len(rawPositional) {
				local.Assign(p.Name, rawPositional[pi])
				pi++
			} else if p.Value != nil {
				local.Assign(p.Name, evalExpr(ctx, local, p.Value))
			} else {
				panic(ctx.newTypeError("%s() missing required argument: '%s'", def.Name, p.Name))
			}
		}
	}
}

// evalFuncBody runs a function body's statement list to completion or until a control signal
// (return/raise) escapes it; a bare fallthrough means an implicit `return None`.
func evalFuncBody(ctx *Context, local *scope, stmts []*Statement) signal {
	return evalStatements(ctx, local, stmts)
}
