package interp

// evalMatch implements structural pattern matching (spec §4.4): the subject is matched against
// each case's pattern in order, binding captures into the enclosing scope only for the first case
// whose pattern (and optional guard) succeeds.
func evalMatch(ctx *Context, s *scope, stmt *MatchStatement) signal {
	subject := evalExpr(ctx, s, stmt.Subject)
	for _, c := range stmt.Cases {
		bindings := map[string]pyObject{}
		if !matchPattern(ctx, s, c.Pattern, subject, bindings) {
			continue
		}
		if c.Guard != nil {
			gs := newLocalScope(s)
			for name, v := range bindings {
				gs.vars[name] = v
			}
			if !isTruthy(ctx, evalExpr(ctx, gs, c.Guard)) {
				continue
			}
		}
		for name, v := range bindings {
			s.Assign(name, v)
		}
		return evalStatements(ctx, s, c.Statements)
	}
	return normalSignal
}

// matchPattern reports whether subject matches p, accumulating any captured bindings into
// bindings without touching the scope (the caller applies them only once the whole case matches).
func matchPattern(ctx *Context, s *scope, p Pattern, subject pyObject, bindings map[string]pyObject) bool {
	switch {
	case p.Wildcard:
		return true
	case p.Binding != "":
		if p.Inner != nil && !matchPattern(ctx, s, *p.Inner, subject, bindings) {
			return false
		}
		bindings[p.Binding] = subject
		return true
	case p.Capture != "":
		bindings[p.Capture] = subject
		return true
	case p.Literal != nil:
		return pyObjectsEqual(ctx, evalExpr(ctx, s, p.Literal), subject)
	case len(p.Sequence) > 0:
		return matchSequence(ctx, s, p, subject, bindings)
	case len(p.Mapping) > 0 || p.MappingRest != "":
		return matchMapping(ctx, s, p, subject, bindings)
	case p.Class != nil:
		return matchClass(ctx, s, p.Class, subject, bindings)
	case len(p.Or) > 0:
		for _, alt := range p.Or {
			sub := map[string]pyObject{}
			if matchPattern(ctx, s, alt, subject, sub) {
				for k, v := range sub {
					bindings[k] = v
				}
				return true
			}
		}
		return false
	}
	return false
}

func sequenceItems(v pyObject) []pyObject {
	switch x := v.(type) {
	case *pyList:
		return x.items
	case pyTuple:
		return x.items
	}
	return nil
}

func matchSequence(ctx *Context, s *scope, p Pattern, subject pyObject, bindings map[string]pyObject) bool {
	items := sequenceItems(subject)
	if items == nil {
		return false
	}
	if p.StarIndex < 0 {
		if len(items) != len(p.Sequence) {
			return false
		}
		for i, sub := range p.Sequence {
			if !matchPattern(ctx, s, sub, items[i], bindings) {
				return false
			}
		}
		return true
	}
	before := p.StarIndex
	after := len(p.Sequence) - before - 1
	if len(items) < before+after {
		return false
	}
	for i := 0; i < before; i++ {
		if !matchPattern(ctx, s, p.Sequence[i], items[i], bindings) {
			return false
		}
	}
	for i := 0; i < after; i++ {
		if !matchPattern(ctx, s, p.Sequence[before+1+i], items[len(items)-after+i], bindings) {
			return false
		}
	}
	if p.StarName != "" && p.StarName != "_" {
		rest := append([]pyObject{}, items[before:len(items)-after]...)
		bindings[p.StarName] = newPyList(rest)
	}
	return true
}

// matchMapping implements `{key: pattern, ..., **rest}` patterns (spec §4.4): the subject must be
// a mapping containing every specified key with a matching value; unmatched keys are ignored
// unless a `**rest` capture is present, in which case they're collected into a dict bound to it.
func matchMapping(ctx *Context, s *scope, p Pattern, subject pyObject, bindings map[string]pyObject) bool {
	d, ok := subject.(*pyDict)
	if !ok {
		return false
	}
	matched := map[string]bool{}
	for _, item := range p.Mapping {
		key := evalExpr(ctx, s, item.Key)
		val, found := d.Get(ctx, key)
		if !found {
			return false
		}
		if !matchPattern(ctx, s, item.Pattern, val, bindings) {
			return false
		}
		matched[d.dictKey(ctx, key)] = true
	}
	if p.MappingRest != "" && p.MappingRest != "_" {
		rest := newPyDict()
		for _, entry := range d.entries {
			if !matched[d.dictKey(ctx, entry.key)] {
				rest.Set(ctx, entry.key, entry.value)
			}
		}
		bindings[p.MappingRest] = rest
	}
	return true
}

// matchClass implements `ClassName(p1, p2, kw=p3)` patterns (spec §4.4): positional sub-patterns
// are resolved through the class's `__match_args__` tuple, exactly as CPython does.
func matchClass(ctx *Context, s *scope, cp *ClassPattern, subject pyObject, bindings map[string]pyObject) bool {
	classVal := evalExpr(ctx, s, cp.Class)
	c, ok := classVal.(*pyClass)
	if !ok {
		return false
	}
	if inst, isInst := subject.(*pyInstance); isInst {
		if !inst.class.isSubclassOf(c) {
			return false
		}
	} else if subject.Type() != c.name {
		return false
	}
	if len(cp.Positional) > 0 {
		var names []string
		if ma, ok := c.lookupInMRO("__match_args__"); ok {
			if t, ok := ma.(pyTuple); ok {
				for _, n := range t.items {
					if str, ok := n.(pyString); ok {
						names = append(names, string(str))
					}
				}
			}
		}
		for i, sub := range cp.Positional {
			if i >= len(names) {
				return false
			}
			attr, found := subject.Property(ctx, names[i])
			if !found {
				return false
			}
			if !matchPattern(ctx, s, sub, attr, bindings) {
				return false
			}
		}
	}
	for _, kw := range cp.Keyword {
		attr, found := subject.Property(ctx, kw.Name)
		if !found {
			return false
		}
		if !matchPattern(ctx, s, kw.Pattern, attr, bindings) {
			return false
		}
	}
	return true
}
