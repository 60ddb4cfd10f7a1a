package interp

// evalImport implements `import x`, `import x as y`, `from x import a, b as c`, and
// `from x import *` (spec §4.7), through the shared resolveModule resolver.
func evalImport(ctx *Context, s *scope, imp *ImportStatement) {
	if imp.Relative > 0 {
		panic(ctx.newImportError("relative imports are not supported"))
	}
	mod := resolveModule(ctx, rootBuiltins(s), imp.Module)

	// Plain `import x` (no from-clause) is represented with at most one Names entry carrying only
	// an alias (see parseImport): Names == nil means bind under the module's own name, one entry
	// with empty Name means `import x as y`.
	if len(imp.Names) == 0 {
		s.Assign(imp.Module, mod)
		return
	}
	if len(imp.Names) == 1 && imp.Names[0].Name == "" {
		s.Assign(imp.Names[0].Alias, mod)
		return
	}
	if len(imp.Names) == 1 && imp.Names[0].Name == "*" {
		importStar(ctx, s, mod)
		return
	}
	for _, n := range imp.Names {
		if isDunderName(n.Name) {
			panic(ctx.newImportError("cannot import name '%s'", n.Name))
		}
		v, ok := mod.Property(ctx, n.Name)
		if !ok {
			panic(ctx.newImportError("cannot import name '%s' from '%s'", n.Name, imp.Module))
		}
		alias := n.Alias
		if alias == "" {
			alias = n.Name
		}
		s.Assign(alias, v)
	}
}

func importStar(ctx *Context, s *scope, mod pyObject) {
	m, ok := mod.(*pyModule)
	if !ok {
		return
	}
	for _, e := range m.dict.entries {
		name, ok := e.key.(pyString)
		if !ok || isDunderName(string(name)) {
			continue
		}
		s.Assign(string(name), e.value)
	}
}

func rootBuiltins(s *scope) *scope {
	cur := s
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur
}
