package interp

// evalWith implements `with expr as name, ...:` (spec §4.4): enters every context manager in
// order, runs the body, then exits them in reverse order via `__exit__`, giving each manager a
// chance to suppress a propagating exception by returning a truthy value.
func evalWith(ctx *Context, s *scope, stmt *WithStatement) signal {
	managers := make([]pyObject, 0, len(stmt.Items))
	for _, item := range stmt.Items {
		mgr := evalExpr(ctx, s, item.Expr)
		managers = append(managers, mgr)
		var val pyObject = mgr
		if enter, ok := mgr.Property(ctx, "__enter__"); ok {
			val = callValue(ctx, enter, newCallArgs())
		}
		if item.Name != "" {
			s.Assign(item.Name, val)
		}
	}

	var result signal
	var caught *exceptionSignal
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if ts, ok := r.(*timeoutSignal); ok {
				panic(ts)
			}
			if es, ok := r.(*exceptionSignal); ok {
				caught = es
				return
			}
			panic(r)
		}()
		result = evalStatements(ctx, s, stmt.Statements)
	}()

	suppressed := false
	for i := len(managers) - 1; i >= 0; i-- {
		exitFn, ok := managers[i].Property(ctx, "__exit__")
		if !ok {
			continue
		}
		var excType, excVal pyObject = None, None
		if caught != nil {
			excType, excVal = caught.exc.class, caught.exc
		}
		args := newCallArgs()
		args.addPositional(excType)
		args.addPositional(excVal)
		args.addPositional(None)
		ret := callValue(ctx, exitFn, args)
		if caught != nil && isTruthy(ctx, ret) {
			suppressed = true
		}
	}
	if caught != nil && !suppressed {
		panic(caught)
	}
	return result
}
