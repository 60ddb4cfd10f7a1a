package interp

// evalAssign implements simple and chained assignment (`a = b = expr`), evaluating the
// right-hand side exactly once and assigning it to every target left to right, matching Python's
// chained-assignment semantics.
func evalAssign(ctx *Context, s *scope, a *AssignStatement) {
	value := evalExpr(ctx, s, a.Value)
	for _, target := range a.Targets {
		assignTarget(ctx, s, target, value)
	}
}

// assignTarget binds value to target, which is either a plain name/attribute/subscript chain or a
// list/tuple literal describing an unpacking assignment (spec §4.2).
func assignTarget(ctx *Context, s *scope, target *Expression, value pyObject) {
	val := target.Val
	switch {
	case val.Ident != nil && len(val.Ident.Action) == 0:
		s.Assign(val.Ident.Name, value)
	case val.Ident != nil:
		assignIdentChain(ctx, s, val.Ident, value)
	case val.List != nil:
		assignSequence(ctx, s, val.List.Values, value)
	case val.Tuple != nil:
		assignSequence(ctx, s, val.Tuple.Values, value)
	default:
		panic(ctx.newException("SyntaxError", "cannot assign to this expression"))
	}
}

func assignIdentChain(ctx *Context, s *scope, ident *IdentExpr, value pyObject) {
	recv, last := resolveChainUpTo(ctx, s, ident, len(ident.Action)-1)
	switch {
	case last.Property != "":
		ps, ok := recv.(propertySettable)
		if !ok {
			panic(ctx.newTypeError("'%s' object has no attribute '%s'", recv.Type(), last.Property))
		}
		ps.SetProperty(ctx, last.Property, value)
	case last.Subscript != nil:
		assignSubscript(ctx, s, recv, last.Subscript, value)
	default:
		panic(ctx.newException("SyntaxError", "cannot assign to this expression"))
	}
}

func assignSubscript(ctx *Context, s *scope, recv pyObject, sub *Subscript, value pyObject) {
	if sub.Slice != nil {
		l, ok := recv.(*pyList)
		if !ok {
			panic(ctx.newTypeError("'%s' object does not support slice assignment", recv.Type()))
		}
		start, stop, step := evalSliceParts(ctx, s, sub.Slice)
		idxs := sliceIndices(len(l.items), start, stop, step)
		replacement := collectIterable(ctx, value)
		if len(idxs) == len(replacement) {
			for i, idx := range idxs {
				l.items[idx] = replacement[i]
			}
			return
		}
		// Extended (stepped) slices must match length exactly in Python; a plain [:] / [a:b]
		// replacement may change length, so rebuild the backing slice.
		out := make([]pyObject, 0, len(l.items))
		idxSet := map[int]bool{}
		for _, idx := range idxs {
			idxSet[idx] = true
		}
		inserted := false
		for i, item := range l.items {
			if idxSet[i] {
				if !inserted {
					out = append(out, replacement...)
					inserted = true
				}
				continue
			}
			out = append(out, item)
		}
		if !inserted {
			out = append(out, replacement...)
		}
		l.items = out
		return
	}
	idx := evalExpr(ctx, s, sub.Index)
	ia, ok := recv.(indexAssignable)
	if !ok {
		panic(ctx.newTypeError("'%s' object does not support item assignment", recv.Type()))
	}
	ia.SetIndex(ctx, idx, value)
}

func collectIterable(ctx *Context, v pyObject) []pyObject {
	it := iterate(ctx, v)
	var out []pyObject
	for {
		item, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, item)
	}
	return out
}

// assignSequence implements `a, b = ...`/`[a, b] = ...` unpacking. A single target for which
// isStarTarget holds collects the remaining values; the parser never produces such a target (see
// isStarTarget), so in practice the target count must equal the value count.
func assignSequence(ctx *Context, s *scope, targets []*Expression, value pyObject) {
	values := collectIterable(ctx, value)
	starIndex := -1
	for i, t := range targets {
		if t.Val.Ident != nil && t.Val.Ident.Name != "" && isStarTarget(t) {
			starIndex = i
		}
	}
	if starIndex == -1 {
		if len(values) != len(targets) {
			panic(ctx.newValueError("not enough values to unpack (expected %d, got %d)", len(targets), len(values)))
		}
		for i, t := range targets {
			assignTarget(ctx, s, t, values[i])
		}
		return
	}
	before := starIndex
	after := len(targets) - starIndex - 1
	if len(values) < before+after {
		panic(ctx.newValueError("not enough values to unpack"))
	}
	for i := 0; i < before; i++ {
		assignTarget(ctx, s, targets[i], values[i])
	}
	rest := values[before : len(values)-after]
	assignStarTarget(ctx, s, targets[starIndex], newPyList(append([]pyObject{}, rest...)))
	for i := 0; i < after; i++ {
		assignTarget(ctx, s, targets[starIndex+1+i], values[len(values)-after+i])
	}
}

// isStarTarget reports whether t is a `*name` unpacking target, represented as a ValueExpression
// whose UnaryOp is Multiply (there is no dedicated AST node). The parser never builds one: there is
// no unary `*` in the expression grammar, so `a, *rest = x` is rejected as a SyntaxError.
func isStarTarget(t *Expression) bool {
	return t.Val.UnaryOp == Multiply
}

func assignStarTarget(ctx *Context, s *scope, t *Expression, value pyObject) {
	if t.Val.Ident != nil {
		s.Assign(t.Val.Ident.Name, value)
		return
	}
	panic(ctx.newException("SyntaxError", "invalid starred assignment target"))
}

// evalAugAssign implements `+=` and friends (spec §4.2): reads the current value, applies the
// operator, writes the result back through the same target resolution assignTarget uses.
func evalAugAssign(ctx *Context, s *scope, a *AugAssignStatement) {
	current := evalExpr(ctx, s, a.Target)
	rhs := evalExpr(ctx, s, a.Value)
	result := applyBinaryOperator(ctx, current, a.Op, rhs)
	assignTarget(ctx, s, a.Target, result)
}
