package interp

// evalIf implements if/elif/else (spec §4.4): exactly one branch runs.
func evalIf(ctx *Context, s *scope, stmt *IfStatement) signal {
	if isTruthy(ctx, evalExpr(ctx, s, stmt.Condition)) {
		return evalStatements(ctx, s, stmt.Statements)
	}
	for _, elif := range stmt.Elif {
		if isTruthy(ctx, evalExpr(ctx, s, elif.Condition)) {
			return evalStatements(ctx, s, elif.Statements)
		}
	}
	if stmt.ElseStatements != nil {
		return evalStatements(ctx, s, stmt.ElseStatements)
	}
	return normalSignal
}

// evalWhile implements `while`/`while...else` (spec §4.4): the else clause runs only if the loop
// exits because its condition went false, not via `break`.
func evalWhile(ctx *Context, s *scope, stmt *WhileStatement) signal {
	brokeOut := false
	for isTruthy(ctx, evalExpr(ctx, s, stmt.Condition)) {
		sig := evalStatements(ctx, s, stmt.Statements)
		switch sig.kind {
		case sigBreak:
			brokeOut = true
		case sigReturn:
			return sig
		}
		if sig.kind == sigBreak {
			break
		}
	}
	if !brokeOut && stmt.ElseStatements != nil {
		return evalStatements(ctx, s, stmt.ElseStatements)
	}
	return normalSignal
}

// evalFor implements `for target in expr`/`for...else` (spec §4.4), iterating via the internal
// iterator protocol so it works uniformly over lists, dicts (by key), generators, and any
// user-defined `__iter__`/`__next__` object.
func evalFor(ctx *Context, s *scope, stmt *ForStatement) signal {
	it := iterate(ctx, evalExpr(ctx, s, stmt.Expr))
	brokeOut := false
loop:
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		assignTarget(ctx, s, stmt.Target, v)
		sig := evalStatements(ctx, s, stmt.Statements)
		switch sig.kind {
		case sigBreak:
			brokeOut = true
			break loop
		case sigReturn:
			return sig
		}
	}
	if !brokeOut && stmt.ElseStatements != nil {
		return evalStatements(ctx, s, stmt.ElseStatements)
	}
	return normalSignal
}
