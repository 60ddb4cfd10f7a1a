package interp

// A scope is one frame of the environment chain (spec §3 "Environment"): builtins, module-global,
// enclosing (lexical captures of nested defs), and local (per invocation). Name resolution walks
// local -> enclosing* -> module-global -> builtins. Grounded on the teacher's own *scope
// (interpreter.go), generalized from "one BUILD-file package scope" to the full lexical chain
// Python closures require.
type scope struct {
	parent  *scope
	global  *scope
	vars      map[string]pyObject
	globals   map[string]bool    // names declared `global` in this frame
	nonlocals map[string]*scope  // names declared `nonlocal`, redirected to their owning frame
	kind      scopeKind
	ctx       *Context
	module    string
	filename  string
	generator *pyGenerator // set on the local frame of a running generator body, for `yield`
}

// enclosingGenerator walks the local-frame chain (without crossing into an enclosing function's
// own frame via closures, since `yield` only suspends the generator whose body it appears in
// lexically) to find the generator a `yield` expression should rendezvous with.
func (s *scope) enclosingGenerator() *pyGenerator {
	for cur := s; cur != nil && cur.kind == scopeLocal; cur = cur.parent {
		if cur.generator != nil {
			return cur.generator
		}
	}
	return nil
}

type scopeKind int

const (
	scopeBuiltins scopeKind = iota
	scopeModule
	scopeLocal
)

func newBuiltinsScope(ctx *Context) *scope {
	s := &scope{vars: map[string]pyObject{}, kind: scopeBuiltins, ctx: ctx}
	registerBuiltins(s)
	return s
}

func newModuleScope(builtins *scope, module, filename string) *scope {
	s := &scope{
		parent:   builtins,
		vars:     map[string]pyObject{},
		kind:     scopeModule,
		ctx:      builtins.ctx,
		module:   module,
		filename: filename,
	}
	s.global = s
	return s
}

// newLocalScope creates a per-invocation frame whose enclosing chain is `enclosing` (the defining
// scope, for closures) and whose module-global frame is inherited from it.
func newLocalScope(enclosing *scope) *scope {
	s := &scope{
		parent:   enclosing,
		global:   enclosing.global,
		vars:     map[string]pyObject{},
		kind:     scopeLocal,
		ctx:      enclosing.ctx,
		module:   enclosing.module,
		filename: enclosing.filename,
	}
	return s
}

// Lookup resolves name by walking local -> enclosing* -> module-global -> builtins.
func (s *scope) Lookup(name string) (pyObject, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Assign writes name into the local frame, unless a `global`/`nonlocal` declaration in this frame
// redirects it (spec §3's Environment invariant).
func (s *scope) Assign(name string, value pyObject) {
	if s.nonlocals != nil {
		if target, ok := s.nonlocals[name]; ok {
			target.vars[name] = value
			return
		}
	}
	if s.globals != nil && s.globals[name] {
		s.global.vars[name] = value
		return
	}
	s.vars[name] = value
}

// declareGlobal marks name as redirected to the module-global frame for the remainder of this
// scope's lifetime (the `global` statement).
func (s *scope) declareGlobal(name string) {
	if s.globals == nil {
		s.globals = map[string]bool{}
	}
	s.globals[name] = true
	if _, ok := s.global.vars[name]; !ok {
		// Leave unset; a read before first assignment still raises NameError.
	}
}

// declareNonlocal binds name to the nearest enclosing non-global frame that already defines it
// (spec §3: "nonlocal must resolve to an enclosing non-global frame or it is a compile-time
// error"). Returns false if no such frame exists.
func (s *scope) declareNonlocal(name string) bool {
	for cur := s.parent; cur != nil && cur != s.global; cur = cur.parent {
		if _, ok := cur.vars[name]; ok {
			if s.globals == nil {
				s.globals = map[string]bool{}
			}
			// Reuse the globals redirection mechanism, but point writes at cur instead of
			// s.global: store a dedicated redirect map lazily the first time nonlocal is used.
			s.redirect(name, cur)
			return true
		}
	}
	return false
}

func (s *scope) redirect(name string, target *scope) {
	if s.nonlocals == nil {
		s.nonlocals = map[string]*scope{}
	}
	s.nonlocals[name] = target
}
