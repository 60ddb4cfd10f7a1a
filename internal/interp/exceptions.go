package interp

import "fmt"

// A pyException is a first-class instance of a BaseException-derived class (spec §3, §7). Wrapped
// in an *exceptionSignal it is the Go panic payload used to unwind the evaluator; that payload is
// recovered by the enclosing try/except (eval_tryfinally.go) or `with` (eval_with.go), by a
// generator body (generators.go), or at the top by Run (run.go).
type pyException struct {
	class *pyClass
	attrs *pyDict
	args   []pyObject
	frames []traceFrame
}

// traceFrame is one (filename, line) entry of a Python-style traceback, appended by addFrame and
// modelled on the teacher's AddStackFrame (errors.go). Nothing in the evaluator calls addFrame, so
// a pyException's frames list stays empty and FormatTraceback prints only the final line.
type traceFrame struct {
	filename string
	line     int
	context  string
}

func (e *pyException) addFrame(filename string, line int, context string) {
	e.frames = append(e.frames, traceFrame{filename: filename, line: line, context: context})
}

func (e *pyException) Type() string   { return e.class.name }
func (e *pyException) IsTruthy() bool { return true }

func (e *pyException) String() string {
	msg := e.message()
	if msg == "" {
		return e.class.name
	}
	return fmt.Sprintf("%s: %s", e.class.name, msg)
}

func (e *pyException) message() string {
	if len(e.args) == 0 {
		return ""
	}
	if s, ok := e.args[0].(pyString); ok {
		return string(s)
	}
	return e.args[0].String()
}

func (e *pyException) Property(ctx *Context, name string) (pyObject, bool) {
	switch name {
	case "args":
		return newPyTuple(e.args), true
	}
	if e.attrs != nil {
		if v, ok := e.attrs.Get(ctx, pyString(name)); ok {
			return v, true
		}
	}
	return lookupMethod(ctx, e, name, exceptionMethods)
}

// SetProperty lets user `__init__` methods of exception subclasses do `self.code = code`, storing
// extra attributes alongside the positional `.args` tuple every exception carries.
func (e *pyException) SetProperty(ctx *Context, name string, value pyObject) {
	if e.attrs == nil {
		e.attrs = newPyDict()
	}
	e.attrs.Set(ctx, pyString(name), value)
}

func (e *pyException) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	switch operator {
	case Is:
		oe, ok := operand.(*pyException)
		return newPyBool(ok && oe == e)
	case IsNot:
		oe, ok := operand.(*pyException)
		return newPyBool(!ok || oe != e)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: '%s' and '%s'", operator, e.Type(), operand.Type()))
}

// isInstanceOfName reports whether e's class or any class in its MRO is named name, used by
// `except Name:` matching (exceptions are matched by class name along the MRO, not by class
// identity, so two distinct classes with the same name both match).
func (e *pyException) isInstanceOfName(name string) bool {
	for _, c := range e.class.mro {
		if c.name == name {
			return true
		}
	}
	return false
}

// exceptionSignal is panicked to unwind the evaluator on a `raise` (or a host-raised builtin
// error). The try/except handling in eval_tryfinally.go recovers this type specifically.
type exceptionSignal struct {
	exc *pyException
}

func (s *exceptionSignal) Error() string { return s.exc.String() }

// timeoutSignal is a distinct panic payload for a compute-deadline expiry (spec §5.1's
// TimeoutError). It is never matched by any `except` clause, including a bare `except:` — every
// matcher in eval_tryfinally.go explicitly special-cases and re-panics it, per the open-question
// decision recorded in SPEC_FULL.md §E.
type timeoutSignal struct {
	exc *pyException
}

func (s *timeoutSignal) Error() string { return s.exc.String() }

// baseExceptionHierarchy lists the builtin exception classes in the order CPython defines them,
// each naming its direct base; classes.go's class-registration bootstrap walks this to build the
// `pyClass` chain (and therefore each exception's MRO) once at interpreter start.
var baseExceptionHierarchy = []struct {
	name string
	base string
}{
	{"BaseException", ""},
	{"Exception", "BaseException"},
	{"TimeoutError", "BaseException"},
	{"ArithmeticError", "Exception"},
	{"ZeroDivisionError", "ArithmeticError"},
	{"OverflowError", "ArithmeticError"},
	{"LookupError", "Exception"},
	{"IndexError", "LookupError"},
	{"KeyError", "LookupError"},
	{"NameError", "Exception"},
	{"UnboundLocalError", "NameError"},
	{"AttributeError", "Exception"},
	{"TypeError", "Exception"},
	{"ValueError", "Exception"},
	{"StopIteration", "Exception"},
	{"StopAsyncIteration", "Exception"},
	{"RuntimeError", "Exception"},
	{"RecursionError", "RuntimeError"},
	{"NotImplementedError", "RuntimeError"},
	{"AssertionError", "Exception"},
	{"ImportError", "Exception"},
	{"ModuleNotFoundError", "ImportError"},
	{"OSError", "Exception"},
	{"FileNotFoundError", "OSError"},
	{"PermissionError", "OSError"},
	{"NetworkError", "OSError"},
	{"IOError", "OSError"},
	{"KeyboardInterrupt", "BaseException"},
	{"SystemExit", "BaseException"},
	{"GeneratorExit", "BaseException"},
}

// newException constructs a pyException of the named builtin class with a plain string message,
// the workhorse behind every ctx.newXxx helper and every host-signalled error in spec §7.
func (ctx *Context) newException(className, message string) *exceptionSignal {
	class := ctx.classes[className]
	if class == nil {
		class = ctx.classes["Exception"]
	}
	exc := &pyException{class: class, args: []pyObject{pyString(message)}}
	return &exceptionSignal{exc: exc}
}

func (ctx *Context) newTypeError(format string, args ...interface{}) *exceptionSignal {
	return ctx.newException("TypeError", fmt.Sprintf(format, args...))
}

func (ctx *Context) newValueError(format string, args ...interface{}) *exceptionSignal {
	return ctx.newException("ValueError", fmt.Sprintf(format, args...))
}

func (ctx *Context) newNameError(format string, args ...interface{}) *exceptionSignal {
	return ctx.newException("NameError", fmt.Sprintf(format, args...))
}

func (ctx *Context) newAttributeError(format string, args ...interface{}) *exceptionSignal {
	return ctx.newException("AttributeError", fmt.Sprintf(format, args...))
}

func (ctx *Context) newKeyError(key pyObject) *exceptionSignal {
	return ctx.newException("KeyError", reprOf(key))
}

func (ctx *Context) newImportError(format string, args ...interface{}) *exceptionSignal {
	return ctx.newException("ImportError", fmt.Sprintf(format, args...))
}

func (ctx *Context) newPermissionError(format string, args ...interface{}) *exceptionSignal {
	return ctx.newException("PermissionError", fmt.Sprintf(format, args...))
}

func (ctx *Context) newTimeoutSignal() *timeoutSignal {
	class := ctx.classes["TimeoutError"]
	exc := &pyException{class: class, args: []pyObject{pyString("execution exceeded time limit")}}
	return &timeoutSignal{exc: exc}
}
