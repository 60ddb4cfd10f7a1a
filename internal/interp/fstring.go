package interp

import "strings"

// parseFString splits the already-unquoted content of an f-string literal into alternating
// literal-text and `{expr}` parts, recursively parsing each embedded expression with a fresh
// lexer/parser over just that substring. This generalises the teacher's FString (grammar.go),
// which only supported bare variable-name substitution (`{x.y.z}`), to arbitrary expressions plus
// an optional `!conversion` and `:format spec`, matching spec §3's string-formatting value model.
func parseFString(content string) *FString {
	f := &FString{}
	var text strings.Builder
	i := 0
	for i < len(content) {
		c := content[i]
		switch {
		case c == '{' && i+1 < len(content) && content[i+1] == '{':
			text.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(content) && content[i+1] == '}':
			text.WriteByte('}')
			i += 2
		case c == '{':
			part := FStringPart{Text: text.String()}
			text.Reset()
			j, expr, conv, spec := scanFStringExpr(content, i+1)
			part.Expr = expr
			part.Conv = conv
			part.Spec = spec
			f.Parts = append(f.Parts, part)
			i = j
		default:
			text.WriteByte(c)
			i++
		}
	}
	if text.Len() > 0 || len(f.Parts) == 0 {
		f.Parts = append(f.Parts, FStringPart{Text: text.String()})
	}
	return f
}

// scanFStringExpr scans one `{expr[!conv][:spec]}` substitution starting just after the opening
// brace, tracking bracket depth so nested `[...]`/`(...)`/`{...}` inside the expression (e.g.
// `{d['key']}`) don't terminate the scan early. It returns the index just past the closing `}`.
func scanFStringExpr(s string, start int) (next int, expr *Expression, conv byte, spec string) {
	depth := 0
	i := start
	exprEnd := -1
	specStart := -1
	for i < len(s) {
		c := s[i]
		switch {
		case c == '{' || c == '[' || c == '(':
			depth++
		case c == '}' && depth == 0:
			if exprEnd == -1 {
				exprEnd = i
			}
			if specStart >= 0 {
				spec = s[specStart:i]
			}
			i++
			return i, parseSubExpression(s[start:exprEnd]), conv, spec
		case (c == ']' || c == ')') && depth > 0:
			depth--
		case c == '!' && depth == 0 && exprEnd == -1 && i+1 < len(s) && s[i+1] != '=':
			exprEnd = i
			conv = s[i+1]
			i++
		case c == ':' && depth == 0 && specStart == -1:
			if exprEnd == -1 {
				exprEnd = i
			}
			specStart = i + 1
		}
		i++
	}
	return i, parseSubExpression(s[start:len(s)]), conv, spec
}

// parseSubExpression parses a standalone expression out of a substring (used for f-string
// interpolations, which are lexed as ordinary Python expressions once extracted).
func parseSubExpression(src string) *Expression {
	p := &parser{l: newLexer(strings.NewReader(src+"\n"), "<fstring>")}
	return p.parseExpression()
}
