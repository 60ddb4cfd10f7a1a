package interp

import (
	"math/big"
	"strings"
)

// signalKind tags the control-flow outcome of executing a statement (spec §4.4): Normal, Break,
// Continue, or Return(value). `raise` is not a signalKind — it unwinds via a Go panic of
// *exceptionSignal instead, recovered by the nearest enclosing try/except or `with` statement,
// by a generator body (which hands it to the consumer), or, failing all of those, by Run.
type signalKind int

const (
	sigNormal signalKind = iota
	sigBreak
	sigContinue
	sigReturn
)

type signal struct {
	kind  signalKind
	value pyObject
}

var normalSignal = signal{kind: sigNormal}

// evalStatements runs stmts in order, stopping early on any non-Normal signal.
func evalStatements(ctx *Context, s *scope, stmts []*Statement) signal {
	for _, stmt := range stmts {
		if sig := evalStatement(ctx, s, stmt); sig.kind != sigNormal {
			return sig
		}
	}
	return normalSignal
}

// evalStatement dispatches a single statement. Every step first consults the compute deadline
// (spec §5.1), matching the teacher's per-statement `s.parsingFor`-style bookkeeping in
// interpretStatements, generalized to a real wall-clock budget.
func evalStatement(ctx *Context, s *scope, stmt *Statement) signal {
	ctx.checkDeadline()
	switch {
	case stmt.Pass:
		return normalSignal
	case stmt.Break:
		return signal{kind: sigBreak}
	case stmt.Continue:
		return signal{kind: sigContinue}
	case stmt.FuncDef != nil:
		evalFuncDef(ctx, s, stmt.FuncDef)
		return normalSignal
	case stmt.ClassDef != nil:
		evalClassDef(ctx, s, stmt.ClassDef)
		return normalSignal
	case stmt.Return != nil:
		return evalReturn(ctx, s, stmt.Return)
	case stmt.Raise != nil:
		evalRaise(ctx, s, stmt.Raise)
		return normalSignal
	case stmt.Assert != nil:
		evalAssert(ctx, s, stmt.Assert)
		return normalSignal
	case stmt.Import != nil:
		evalImport(ctx, s, stmt.Import)
		return normalSignal
	case stmt.Global != nil:
		for _, name := range stmt.Global {
			s.declareGlobal(name)
		}
		return normalSignal
	case stmt.Nonlocal != nil:
		for _, name := range stmt.Nonlocal {
			if !s.declareNonlocal(name) {
				panic(ctx.newException("SyntaxError", "no binding for nonlocal '"+name+"' found"))
			}
		}
		return normalSignal
	case stmt.Del != nil:
		for _, target := range stmt.Del {
			evalDel(ctx, s, target)
		}
		return normalSignal
	case stmt.Assign != nil:
		evalAssign(ctx, s, stmt.Assign)
		return normalSignal
	case stmt.AugAssign != nil:
		evalAugAssign(ctx, s, stmt.AugAssign)
		return normalSignal
	case stmt.For != nil:
		return evalFor(ctx, s, stmt.For)
	case stmt.While != nil:
		return evalWhile(ctx, s, stmt.While)
	case stmt.If != nil:
		return evalIf(ctx, s, stmt.If)
	case stmt.Try != nil:
		return evalTry(ctx, s, stmt.Try)
	case stmt.With != nil:
		return evalWith(ctx, s, stmt.With)
	case stmt.Match != nil:
		return evalMatch(ctx, s, stmt.Match)
	case stmt.Expr != nil:
		evalExpr(ctx, s, stmt.Expr)
		return normalSignal
	}
	return normalSignal
}

func evalFuncDef(ctx *Context, s *scope, def *FuncDef) {
	var fn pyObject = newPyFunction(def, s)
	for i := len(def.Decorators) - 1; i >= 0; i-- {
		dec := evalExpr(ctx, s, def.Decorators[i])
		fn = callValue(ctx, dec, singlePositional(fn))
	}
	s.Assign(def.Name, fn)
}

func evalClassDef(ctx *Context, s *scope, def *ClassDef) {
	var bases []*pyClass
	for _, b := range def.Bases {
		v := evalExpr(ctx, s, b)
		bc, ok := v.(*pyClass)
		if !ok {
			panic(ctx.newTypeError("bases must be classes"))
		}
		bases = append(bases, bc)
	}
	classScope := newLocalScope(s)
	evalStatements(ctx, classScope, def.Statements)
	dict := map[string]pyObject{}
	for name, v := range classScope.vars {
		dict[name] = v
	}
	c, err := newPyClass(def.Name, bases, dict)
	if err != nil {
		panic(ctx.newException("TypeError", err.Error()))
	}
	var result pyObject = c
	for i := len(def.Decorators) - 1; i >= 0; i-- {
		dec := evalExpr(ctx, s, def.Decorators[i])
		result = callValue(ctx, dec, singlePositional(result))
	}
	s.Assign(def.Name, result)
}

func evalReturn(ctx *Context, s *scope, ret *ReturnStatement) signal {
	if len(ret.Values) == 0 {
		return signal{kind: sigReturn, value: None}
	}
	if len(ret.Values) == 1 {
		return signal{kind: sigReturn, value: evalExpr(ctx, s, ret.Values[0])}
	}
	values := make([]pyObject, len(ret.Values))
	for i, v := range ret.Values {
		values[i] = evalExpr(ctx, s, v)
	}
	return signal{kind: sigReturn, value: newPyTuple(values)}
}

func evalRaise(ctx *Context, s *scope, r *RaiseStatement) {
	if r.Expr == nil {
		panic(ctx.newException("RuntimeError", "No active exception to re-raise"))
	}
	v := evalExpr(ctx, s, r.Expr)
	switch exc := v.(type) {
	case *pyException:
		panic(&exceptionSignal{exc: exc})
	case *pyClass:
		inst := exc.Call(ctx, newCallArgs())
		panic(&exceptionSignal{exc: inst.(*pyException)})
	default:
		panic(ctx.newTypeError("exceptions must derive from BaseException"))
	}
}

func evalAssert(ctx *Context, s *scope, a *AssertStatement) {
	if !isTruthy(ctx, evalExpr(ctx, s, a.Expr)) {
		msg := ""
		if a.Message != nil {
			msg = strOf(ctx, evalExpr(ctx, s, a.Message))
		}
		panic(ctx.newException("AssertionError", msg))
	}
}

func evalDel(ctx *Context, s *scope, target *Expression) {
	if target.Val == nil || target.Val.Ident == nil {
		panic(ctx.newTypeError("invalid del target"))
	}
	ident := target.Val.Ident
	if len(ident.Action) == 0 {
		delete(s.vars, ident.Name)
		return
	}
	recv, lastAction := resolveChainUpTo(ctx, s, ident, len(ident.Action)-1)
	action := ident.Action[len(ident.Action)-1]
	switch {
	case action.Subscript != nil && action.Subscript.Index != nil:
		idx := evalExpr(ctx, s, action.Subscript.Index)
		delFromIndexable(ctx, recv, idx)
	case action.Property != "":
		if inst, ok := recv.(*pyInstance); ok {
			inst.attrs.Delete(ctx, pyString(action.Property))
		}
	}
	_ = lastAction
}

func delFromIndexable(ctx *Context, recv pyObject, idx pyObject) {
	switch v := recv.(type) {
	case *pyDict:
		if !v.Delete(ctx, idx) {
			panic(ctx.newKeyError(idx))
		}
	case *pyList:
		i := v.resolveIndex(ctx, idx)
		v.items = append(v.items[:i], v.items[i+1:]...)
	default:
		panic(ctx.newTypeError("'%s' object doesn't support item deletion", recv.Type()))
	}
}

// evalExpr evaluates a full Expression: the base value, any trailing binary operators
// left-to-right (short-circuiting `and`/`or`), then an optional inline-if, then an optional
// walrus bind.
func evalExpr(ctx *Context, s *scope, e *Expression) pyObject {
	v := evalExprChain(ctx, s, e)
	if e.Walrus != "" {
		s.Assign(e.Walrus, v)
	}
	return v
}

func evalExprChain(ctx *Context, s *scope, e *Expression) pyObject {
	v := evalValueExpression(ctx, s, e.Val)
	v = evalOpChain(ctx, s, v, e.Op)
	if e.If != nil {
		if isTruthy(ctx, evalExpr(ctx, s, e.If.Condition)) {
			return v
		}
		return evalExpr(ctx, s, e.If.Else)
	}
	return v
}

// evalOpChain folds an operand's Op list left to right. Each parser level appends its operators
// after those of the tighter-binding levels it called, so a left fold gives the right grouping
// (`a + b < c` is `(a + b) < c`). A run of two or more adjacent comparisons is evaluated as one
// chained comparison (`a<b<c` == `a<b and b<c`, each subexpression evaluated once), including
// when the run is followed or preceded by other operators (`0 < x < 10 and y`).
func evalOpChain(ctx *Context, s *scope, left pyObject, ops []OpExpression) pyObject {
	if len(ops) == 0 {
		return left
	}
	if allComparisons(ops) && len(ops) > 1 {
		return evalChainedComparison(ctx, s, left, ops)
	}
	result := left
	for i := 0; i < len(ops); i++ {
		op := ops[i]
		if op.Op.Lazy() {
			truthy := isTruthy(ctx, result)
			if (op.Op == And && !truthy) || (op.Op == Or && truthy) {
				continue
			}
			result = evalExpr(ctx, s, op.Expr)
			continue
		}
		if j := i + 1; allComparisons(ops[i:j]) {
			for j < len(ops) && allComparisons(ops[j:j+1]) {
				j++
			}
			if j > i+1 {
				result = evalChainedComparison(ctx, s, result, ops[i:j])
				i = j - 1
				continue
			}
		}
		right := evalExpr(ctx, s, op.Expr)
		result = applyBinaryOperator(ctx, result, op.Op, right)
	}
	return result
}

func allComparisons(ops []OpExpression) bool {
	for _, op := range ops {
		switch op.Op {
		case LessThan, GreaterThan, LessThanOrEqual, GreaterThanOrEqual, Equal, NotEqual, In, NotIn, Is, IsNot:
		default:
			return false
		}
	}
	return true
}

func evalChainedComparison(ctx *Context, s *scope, left pyObject, ops []OpExpression) pyObject {
	prev := left
	for _, op := range ops {
		right := evalExpr(ctx, s, op.Expr)
		if !applyBinaryOperator(ctx, prev, op.Op, right).IsTruthy() {
			return False
		}
		prev = right
	}
	return True
}

// applyBinaryOperator dispatches a single binary operator. `in` goes to the right-hand container's
// Operator method with the element as operand, except str-in-str, which goes to the left string's
// substring test; `not in` is the negation of `in`; `==`/`!=` fall back to pyObjectsEqual when the
// left operand's Operator rejects them. Everything else, `is`/`is not` included, is delegated to
// the left operand's Operator method (spec §9's "dispatches first on the tag of its operands").
func applyBinaryOperator(ctx *Context, left pyObject, op Operator, right pyObject) pyObject {
	switch op {
	case In:
		if _, ok := left.(pyString); ok {
			if _, ok := right.(pyString); ok {
				return left.Operator(ctx, In, right)
			}
		}
		return right.Operator(ctx, In, left)
	case NotIn:
		return newPyBool(!applyBinaryOperator(ctx, left, In, right).IsTruthy())
	case Equal:
		if result := tryOperator(ctx, left, Equal, right); result != nil {
			return result
		}
		return newPyBool(pyObjectsEqual(ctx, left, right))
	case NotEqual:
		if result := tryOperator(ctx, left, NotEqual, right); result != nil {
			return result
		}
		return newPyBool(!pyObjectsEqual(ctx, left, right))
	}
	return left.Operator(ctx, op, right)
}

func tryOperator(ctx *Context, left pyObject, op Operator, right pyObject) (result pyObject) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
		}
	}()
	return left.Operator(ctx, op, right)
}

func evalValueExpression(ctx *Context, s *scope, v *ValueExpression) pyObject {
	var result pyObject
	switch {
	case v.String != "":
		result = pyString(unescapeString(v.String))
	case v.FString != nil:
		result = evalFString(ctx, s, v.FString)
	case v.Bytes != "":
		result = pyBytes(unescapeString(v.Bytes))
	case v.True:
		result = True
	case v.False:
		result = False
	case v.None:
		result = None
	case v.Ellipsis:
		result = Ellipsis
	case v.IsInt:
		result = newPyIntFromString(ctx, v.Int)
	case v.IsFloat:
		result = pyFloat(v.Float)
	case v.List != nil:
		result = evalList(ctx, s, v.List)
	case v.Tuple != nil:
		result = evalTuple(ctx, s, v.Tuple)
	case v.Dict != nil:
		result = evalDict(ctx, s, v.Dict)
	case v.Set != nil:
		result = evalSet(ctx, s, v.Set)
	case v.Lambda != nil:
		result = evalLambda(s, v.Lambda)
	case v.Ident != nil:
		result = evalIdent(ctx, s, v.Ident)
	case v.Yield != nil:
		result = evalYield(ctx, s, v.Yield)
	case v.Paren != nil:
		result = evalExpr(ctx, s, v.Paren)
	default:
		result = None
	}
	if v.UnaryOp != 0 {
		result = applyUnaryOperator(ctx, v.UnaryOp, result)
	}
	return result
}

func applyUnaryOperator(ctx *Context, op Operator, v pyObject) pyObject {
	switch op {
	case Not:
		return newPyBool(!isTruthy(ctx, v))
	case Negate:
		switch n := v.(type) {
		case pyInt:
			return newPyIntFromBig(new(big.Int).Neg(n.v))
		case pyFloat:
			return pyFloat(-n)
		case pyBool:
			return newPyIntFromBig(new(big.Int).Neg(intFromBool(n).v))
		}
		panic(ctx.newTypeError("bad operand type for unary -: '%s'", v.Type()))
	case Positive:
		return v
	case BitNot:
		i, ok := toInt(v)
		if !ok {
			panic(ctx.newTypeError("bad operand type for unary ~: '%s'", v.Type()))
		}
		return newPyIntFromBig(new(big.Int).Not(i.v))
	}
	return v
}

func evalLambda(s *scope, l *Lambda) pyObject {
	return newPyFunction(&FuncDef{Name: "<lambda>", Arguments: l.Arguments, Statements: []*Statement{
		{Return: &ReturnStatement{Values: []*Expression{l.Expr}}},
	}}, s)
}

func evalYield(ctx *Context, s *scope, y *YieldExpr) pyObject {
	gen := s.enclosingGenerator()
	if gen == nil {
		panic(ctx.newException("SyntaxError", "'yield' outside function"))
	}
	if y.IsFrom {
		sub := evalExpr(ctx, s, y.Expr)
		it := iterate(ctx, sub)
		var last pyObject = None
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			last = gen.yield(ctx, v)
		}
		return last
	}
	if y.Expr == nil {
		return gen.yield(ctx, None)
	}
	return gen.yield(ctx, evalExpr(ctx, s, y.Expr))
}

func evalList(ctx *Context, s *scope, l *List) pyObject {
	if l.Comprehension != nil {
		var items []pyObject
		runComprehension(ctx, s, l.Comprehension.Clauses, func(cs *scope) {
			items = append(items, evalExpr(ctx, cs, singleValueExpr(l)))
		})
		return newPyList(items)
	}
	items := make([]pyObject, 0, len(l.Values))
	for _, v := range l.Values {
		items = append(items, evalExpr(ctx, s, v))
	}
	return newPyList(items)
}

// singleValueExpr recovers the element expression of a comprehension-bearing List/SetLiteral,
// which the parser stores as the sole entry of Values.
func singleValueExpr(l *List) *Expression { return l.Values[0] }

func evalTuple(ctx *Context, s *scope, l *List) pyObject {
	items := make([]pyObject, 0, len(l.Values))
	for _, v := range l.Values {
		items = append(items, evalExpr(ctx, s, v))
	}
	return newPyTuple(items)
}

func evalSet(ctx *Context, s *scope, l *SetLiteral) pyObject {
	out := newPySet()
	if l.Comprehension != nil {
		runComprehension(ctx, s, l.Comprehension.Clauses, func(cs *scope) {
			out.Add(ctx, evalExpr(ctx, cs, l.Values[0]))
		})
		return out
	}
	for _, v := range l.Values {
		out.Add(ctx, evalExpr(ctx, s, v))
	}
	return out
}

func evalDict(ctx *Context, s *scope, d *Dict) pyObject {
	out := newPyDict()
	if d.Comprehension != nil {
		c := d.Comprehension
		runComprehension(ctx, s, c.Clauses, func(cs *scope) {
			out.Set(ctx, evalExpr(ctx, cs, c.Key), evalExpr(ctx, cs, c.Value))
		})
		return out
	}
	for _, item := range d.Items {
		if item.Unpack {
			src := evalExpr(ctx, s, item.Value)
			if srcDict, ok := src.(*pyDict); ok {
				for _, e := range srcDict.entries {
					out.Set(ctx, e.key, e.value)
				}
			}
			continue
		}
		out.Set(ctx, evalExpr(ctx, s, item.Key), evalExpr(ctx, s, item.Value))
	}
	return out
}

// runComprehension evaluates nested `for`/`if` clauses, invoking body once per surviving
// combination with a fresh child scope holding the bound loop variables (Python 3 comprehensions
// have their own scope, unlike `for` statements).
func runComprehension(ctx *Context, s *scope, clauses []ComprehensionClause, body func(cs *scope)) {
	var recurse func(i int, cs *scope)
	recurse = func(i int, cs *scope) {
		if i == len(clauses) {
			body(cs)
			return
		}
		clause := clauses[i]
		it := iterate(ctx, evalExpr(ctx, cs, clause.Expr))
		for {
			v, ok := it.Next()
			if !ok {
				break
			}
			next := newLocalScope(cs)
			assignTarget(ctx, next, clause.Target, v)
			ok2 := true
			for _, ifExpr := range clause.Ifs {
				if !isTruthy(ctx, evalExpr(ctx, next, ifExpr)) {
					ok2 = false
					break
				}
			}
			if ok2 {
				recurse(i+1, next)
			}
		}
	}
	recurse(0, newLocalScope(s))
}

func evalFString(ctx *Context, s *scope, f *FString) pyObject {
	var sb strings.Builder
	for _, part := range f.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Text)
			continue
		}
		v := evalExpr(ctx, s, part.Expr)
		text := formatFStringValue(ctx, v, part.Conv, part.Spec)
		sb.WriteString(text)
	}
	return pyString(sb.String())
}

func formatFStringValue(ctx *Context, v pyObject, conv byte, spec string) string {
	switch conv {
	case 'r':
		return reprOf(v)
	case 'a':
		return reprOf(v)
	}
	text := strOf(ctx, v)
	if spec == "" {
		return text
	}
	return applyFormatSpec(v, spec, text)
}

func evalIdent(ctx *Context, s *scope, ident *IdentExpr) pyObject {
	if ident.Name == "super" && len(ident.Action) >= 1 && ident.Action[0].Call != nil && len(ident.Action[0].Call.Arguments) == 0 {
		v := evalZeroArgSuper(ctx, s)
		for _, action := range ident.Action[1:] {
			v = applyAction(ctx, s, v, action)
		}
		return v
	}
	v, ok := s.Lookup(ident.Name)
	if !ok {
		panic(nameErrorWithSuggestion(ctx, s, ident.Name))
	}
	for _, action := range ident.Action {
		v = applyAction(ctx, s, v, action)
	}
	return v
}

// evalZeroArgSuper implements bare `super()` inside a method body (spec §4.3) by reading the
// hidden `__class__`/`__super_self__` bindings pyFunction.Call leaves in the local frame when it
// runs a method obtained via bindMethod.
func evalZeroArgSuper(ctx *Context, s *scope) pyObject {
	classVal, ok := s.Lookup("__class__")
	if !ok {
		panic(ctx.newException("RuntimeError", "super(): no current class found"))
	}
	selfVal, ok := s.Lookup("__super_self__")
	if !ok {
		panic(ctx.newException("RuntimeError", "super(): no self found"))
	}
	inst, ok := selfVal.(*pyInstance)
	if !ok {
		panic(ctx.newTypeError("super(): self is not an instance"))
	}
	return &superProxy{instance: inst, startClass: classVal.(*pyClass)}
}

func applyAction(ctx *Context, s *scope, v pyObject, action IdentExprAction) pyObject {
	switch {
	case action.Property != "":
		p, ok := v.Property(ctx, action.Property)
		if !ok {
			panic(attributeErrorWithSuggestion(ctx, v, action.Property))
		}
		return p
	case action.Call != nil:
		args := evalCallArguments(ctx, s, action.Call)
		return callValue(ctx, v, args)
	case action.Subscript != nil:
		return evalSubscript(ctx, s, v, action.Subscript)
	}
	return v
}

func evalSubscript(ctx *Context, s *scope, v pyObject, sub *Subscript) pyObject {
	if sub.Slice != nil {
		start, stop, step := evalSliceParts(ctx, s, sub.Slice)
		sl, ok := v.(sliceable)
		if !ok {
			panic(ctx.newTypeError("'%s' object is not subscriptable", v.Type()))
		}
		return sl.Slice(ctx, start, stop, step)
	}
	idx := evalExpr(ctx, s, sub.Index)
	ix, ok := v.(indexable)
	if !ok {
		panic(ctx.newTypeError("'%s' object is not subscriptable", v.Type()))
	}
	return ix.Index(ctx, idx)
}

func evalSliceParts(ctx *Context, s *scope, sl *Slice) (start, stop, step *int) {
	toPtr := func(e *Expression) *int {
		if e == nil {
			return nil
		}
		i, ok := toInt(evalExpr(ctx, s, e))
		if !ok {
			panic(ctx.newTypeError("slice indices must be integers"))
		}
		v := int(i.v.Int64())
		return &v
	}
	return toPtr(sl.Start), toPtr(sl.Stop), toPtr(sl.Step)
}

// callValue invokes v as a callable, including the special case of a *pyClass (construction).
func callValue(ctx *Context, v pyObject, args *callArgs) pyObject {
	c, ok := v.(callable)
	if !ok {
		panic(ctx.newTypeError("'%s' object is not callable", v.Type()))
	}
	return c.Call(ctx, args)
}

func singlePositional(v pyObject) *callArgs {
	a := newCallArgs()
	a.addPositional(v)
	return a
}

func evalCallArguments(ctx *Context, s *scope, call *Call) *callArgs {
	args := newCallArgs()
	for _, a := range call.Arguments {
		switch {
		case a.Unpack:
			seq := evalExpr(ctx, s, a.Value)
			it := iterate(ctx, seq)
			for {
				v, ok := it.Next()
				if !ok {
					break
				}
				args.addPositional(v)
			}
		case a.UnpackKw:
			d, ok := evalExpr(ctx, s, a.Value).(*pyDict)
			if !ok {
				panic(ctx.newTypeError("argument after ** must be a mapping"))
			}
			for _, e := range d.entries {
				if key, ok := e.key.(pyString); ok {
					args.addKeyword(string(key), e.value)
				}
			}
		case a.Name != "":
			args.addKeyword(a.Name, evalExpr(ctx, s, a.Value))
		default:
			args.addPositional(evalExpr(ctx, s, a.Value))
		}
	}
	return args
}

// iterate adapts any pyObject to the internal iterator protocol, the single place every `for`,
// comprehension, unpacking, and `*args` call site goes through to get one.
func iterate(ctx *Context, v pyObject) iterator {
	if it, ok := v.(iterable); ok {
		return it.Iterate(ctx)
	}
	panic(ctx.newTypeError("'%s' object is not iterable", v.Type()))
}

func resolveChainUpTo(ctx *Context, s *scope, ident *IdentExpr, n int) (pyObject, IdentExprAction) {
	v, ok := s.Lookup(ident.Name)
	if !ok {
		panic(nameErrorWithSuggestion(ctx, s, ident.Name))
	}
	for i := 0; i < n; i++ {
		v = applyAction(ctx, s, v, ident.Action[i])
	}
	var last IdentExprAction
	if n < len(ident.Action) {
		last = ident.Action[n]
	}
	return v, last
}

func unescapeString(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\x00' {
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
