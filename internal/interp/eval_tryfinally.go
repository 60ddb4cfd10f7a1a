package interp

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// evalTry implements try/except/else/finally (spec §4.4). `finally` always runs, even when the
// try body returns, breaks, continues, or an exception propagates past every except clause; a
// *timeoutSignal panic is never caught by any except clause (including a bare `except:`), per the
// compute-deadline semantics in context.go.
func evalTry(ctx *Context, s *scope, t *TryStatement) (result signal) {
	var sourceErr error
	if len(t.Finally) > 0 {
		defer func() {
			var finallyPanic interface{}
			func() {
				defer func() { finallyPanic = recover() }()
				sig := evalStatements(ctx, s, t.Finally)
				if sig.kind != sigNormal {
					result = sig
				}
			}()
			if finallyPanic != nil {
				// Python semantics: an exception raised in `finally` replaces whatever the try/except
				// was already propagating. Record both in a multierror purely for the host's diagnostic
				// log — only the finally's error actually propagates, matching CPython's own behavior.
				if sourceErr != nil {
					combined := multierror.Append(new(multierror.Error), sourceErr, fmt.Errorf("%v", finallyPanic))
					log.Warningf("exception in finally suppressed an earlier exception: %s", combined.Error())
				}
				panic(finallyPanic)
			}
		}()
	}

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
				sourceErr = es
				return
			}
			panic(r)
		}()
		result = evalStatements(ctx, s, t.Statements)
	}()

	if caught == nil {
		if result.kind == sigNormal && t.ElseStatements != nil {
			result = evalStatements(ctx, s, t.ElseStatements)
		}
		return result
	}

	for _, exc := range t.Excepts {
		if !exceptMatches(ctx, s, exc, caught.exc) {
			continue
		}
		if exc.Name != "" {
			s.Assign(exc.Name, caught.exc)
		}
		sourceErr = nil
		result = evalStatements(ctx, s, exc.Statements)
		if exc.Name != "" {
			delete(s.vars, exc.Name)
		}
		return result
	}
	panic(caught)
}

// exceptMatches reports whether caught's class matches any of exc's listed types (or Types is
// empty, a bare `except:`).
func exceptMatches(ctx *Context, s *scope, exc ExceptClause, caught *pyException) bool {
	if len(exc.Types) == 0 {
		return true
	}
	for _, t := range exc.Types {
		v := evalExpr(ctx, s, t)
		if c, ok := v.(*pyClass); ok && caught.isInstanceOfName(c.name) {
			return true
		}
	}
	return false
}
