package interp

import (
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// pyModule is a first-class module object, returned by `import name` (spec §4.7). Its dict holds
// every non-dunder top-level name a module exports.
type pyModule struct {
	name string
	dict *pyDict
}

func newModule(name string) *pyModule {
	return &pyModule{name: name, dict: newPyDict()}
}

func (m *pyModule) set(name string, v pyObject) { m.dict.Set(nil, pyString(name), v) }

func (m *pyModule) Type() string   { return "module" }
func (m *pyModule) IsTruthy() bool { return true }
func (m *pyModule) String() string { return fmt.Sprintf("<module '%s'>", m.name) }

func (m *pyModule) Property(ctx *Context, name string) (pyObject, bool) {
	return m.dict.Get(ctx, pyString(name))
}

func (m *pyModule) SetProperty(ctx *Context, name string, value pyObject) {
	m.dict.Set(ctx, pyString(name), value)
}

func (m *pyModule) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	if operator == In {
		s, ok := operand.(pyString)
		if !ok {
			return False
		}
		_, found := m.dict.Get(ctx, s)
		return newPyBool(found)
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'module' and '%s'", operator, operand.Type()))
}

// stubModule is returned in place of a capability-gated module whose capability is disabled
// (spec §4.6): the import itself always succeeds and every member is inspectable (`"get" in
// requests` is true), but calling any member raises the gate's denial signal.
type stubModule struct {
	name   string
	denial func(ctx *Context) *exceptionSignal
}

func (m *stubModule) Type() string   { return "module" }
func (m *stubModule) IsTruthy() bool { return true }
func (m *stubModule) String() string { return fmt.Sprintf("<module '%s' (disabled)>", m.name) }

func (m *stubModule) Property(ctx *Context, name string) (pyObject, bool) {
	return &goBuiltin{name: name, fn: func(ctx *Context, args *callArgs) pyObject {
		panic(m.denial(ctx))
	}}, true
}

func (m *stubModule) Operator(ctx *Context, operator Operator, operand pyObject) pyObject {
	if operator == In {
		return True
	}
	panic(ctx.newTypeError("unsupported operand type(s) for %s: 'module' and '%s'", operator, operand.Type()))
}

// moduleCapability maps a guarded module name to the capability that must be present for it to
// resolve to a working implementation rather than a stub (spec §4.6's gate table).
var moduleCapability = map[string]Capability{
	"boto3":    CapBoto3,
	"sql":      CapSQL,
	"requests": CapNetwork,
}

// resolveModule implements the §4.7 resolution order: context-injected, then builtin stdlib, then
// filesystem, caching every successful resolution so re-import is a no-op.
func resolveModule(ctx *Context, builtins *scope, name string) pyObject {
	if cached, ok := ctx.moduleCache[name]; ok {
		log.Debugf("module %q served from cache", name)
		return cached
	}
	if hostMod, ok := ctx.HostModules[name]; ok {
		log.Infof("module %q resolved from host-injected modules", name)
		ctx.moduleCache[name] = hostMod
		return hostMod
	}
	if builder, ok := stdlibModules[name]; ok {
		var mod pyObject
		if cap, gated := moduleCapability[name]; gated && !ctx.hasCapability(cap) {
			log.Debugf("module %q resolved but capability %q is not granted; returning stub", name, cap)
			mod = &stubModule{name: name, denial: func(ctx *Context) *exceptionSignal {
				return ctx.newPermissionError("%s access is disabled", cap)
			}}
		} else {
			mod = builder(ctx)
		}
		ctx.moduleCache[name] = mod
		return mod
	}
	if ctx.Filesystem != nil {
		log.Infof("resolving module %q from filesystem", name)
		mod := loadFilesystemModule(ctx, builtins, name)
		ctx.moduleCache[name] = mod
		return mod
	}
	log.Warningf("import of %q failed: no module found in host, stdlib, or filesystem", name)
	panic(ctx.newImportError("No module named '%s'", name))
}

// loadFilesystemModule parses and evaluates `<name>.py` in a fresh module scope, publishing every
// non-dunder top-level binding as a module attribute. Parsed ASTs are cached by content hash
// (rather than by path) so two modules with identical source, or the same module re-resolved
// after a cache eviction, never pay the parse cost twice.
func loadFilesystemModule(ctx *Context, builtins *scope, name string) pyObject {
	data, err := ctx.Filesystem.Read(name + ".py")
	if err != nil {
		panic(ctx.newImportError("%s: %s", name, err.Error()))
	}
	hash := blake3.Sum256(data)
	file, ok := ctx.parseCache[hash]
	if !ok {
		log.Debugf("parsing module %q (%d bytes, uncached)", name, len(data))
		var perr error
		file, perr = ParseFileInput(strings.NewReader(string(data)), name+".py")
		if perr != nil {
			panic(ctx.newException("SyntaxError", fmt.Sprintf("SyntaxError in %s: %s", name, perr.Error())))
		}
		ctx.parseCache[hash] = file
	} else {
		log.Debugf("module %q source already parsed; reusing cached AST", name)
	}
	modScope := newModuleScope(builtins, name, name+".py")
	func() {
		defer func() {
			if r := recover(); r != nil {
				if es, ok := r.(*exceptionSignal); ok {
					panic(ctx.newImportError("%s: %s", name, es.exc.String()))
				}
				panic(r)
			}
		}()
		evalStatements(ctx, modScope, file.Statements)
	}()
	mod := newModule(name)
	for k, v := range modScope.vars {
		if !isDunderName(k) {
			mod.set(k, v)
		}
	}
	return mod
}

func isDunderName(name string) bool {
	return len(name) > 4 && name[:2] == "__" && name[len(name)-2:] == "__"
}
