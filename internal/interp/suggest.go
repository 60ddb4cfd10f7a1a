package interp

import (
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// maxSuggestionDistance bounds how different a candidate name can be from the one that failed to
// resolve before it stops being worth suggesting (spec §7's "did you mean" diagnostics).
const maxSuggestionDistance = 3

type nameSuggestion struct {
	name string
	dist int
}

type nameSuggestions []nameSuggestion

func (s nameSuggestions) Len() int           { return len(s) }
func (s nameSuggestions) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }
func (s nameSuggestions) Less(i, j int) bool { return s[i].dist < s[j].dist }

func closestNames(target string, candidates []string) []string {
	r := []rune(target)
	options := make(nameSuggestions, 0, len(candidates))
	seen := map[string]bool{}
	for _, c := range candidates {
		if c == target || seen[c] {
			continue
		}
		seen[c] = true
		d := levenshtein.DistanceForStrings(r, []rune(c), levenshtein.DefaultOptions)
		if d <= maxSuggestionDistance {
			options = append(options, nameSuggestion{name: c, dist: d})
		}
	}
	sort.Sort(options)
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.name
	}
	return out
}

func suggestionSuffix(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	msg := ". Did you mean "
	for i, c := range candidates {
		if i > 0 {
			if i < len(candidates)-1 {
				msg += ", "
			} else {
				msg += " or "
			}
		}
		msg += "'" + c + "'"
	}
	return msg + "?"
}

// visibleNames walks a scope's local-vars chain up through enclosing, module, and builtins
// frames, the same resolution order Lookup uses, collecting every bound name as a suggestion
// candidate.
func visibleNames(s *scope) []string {
	var out []string
	for cur := s; cur != nil; cur = cur.parent {
		for name := range cur.vars {
			out = append(out, name)
		}
	}
	return out
}

// nameErrorWithSuggestion builds the NameError raised when an identifier doesn't resolve in any
// frame of s's lookup chain, adapted from the teacher's suggestTargets (src/parse/suggest.go) to
// walk lexical scopes instead of a package's target map.
func nameErrorWithSuggestion(ctx *Context, s *scope, name string) *exceptionSignal {
	suggestion := suggestionSuffix(closestNames(name, visibleNames(s)))
	return ctx.newNameError("name '%s' is not defined%s", name, suggestion)
}

// attributeNames returns the settable/gettable attribute names a value exposes, for the limited
// set of types that track an explicit name->value dict, for use as attributeErrorWithSuggestion
// candidates; other types have no enumerable attribute set and suggest nothing.
func attributeNames(v pyObject) []string {
	switch t := v.(type) {
	case *pyInstance:
		var names []string
		if t.attrs != nil {
			for _, e := range t.attrs.entries {
				if s, ok := e.key.(pyString); ok {
					names = append(names, string(s))
				}
			}
		}
		for name := range t.class.dict {
			names = append(names, name)
		}
		return names
	case *pyClass:
		var names []string
		for name := range t.dict {
			names = append(names, name)
		}
		return names
	case *pyModule:
		var names []string
		for _, e := range t.dict.entries {
			if s, ok := e.key.(pyString); ok {
				names = append(names, string(s))
			}
		}
		return names
	}
	return nil
}

// attributeErrorWithSuggestion builds the AttributeError raised when a property lookup misses,
// the attribute-access counterpart of nameErrorWithSuggestion.
func attributeErrorWithSuggestion(ctx *Context, v pyObject, name string) *exceptionSignal {
	suggestion := suggestionSuffix(closestNames(name, attributeNames(v)))
	return ctx.newAttributeError("'%s' object has no attribute '%s'%s", v.Type(), name, suggestion)
}
