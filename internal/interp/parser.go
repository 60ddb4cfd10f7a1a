package interp

import (
	"io"
	"reflect"
	"strings"
)

// keywords are reserved words that cannot be used as identifiers: Python's own reserved-word list
// without async/await, plus `match`, which Python treats as a soft keyword (spec §4.2).
var keywords = map[string]struct{}{
	"False": {}, "None": {}, "True": {}, "and": {}, "as": {}, "assert": {},
	"break": {}, "class": {}, "continue": {}, "def": {}, "del": {}, "elif": {},
	"else": {}, "except": {}, "finally": {}, "for": {}, "from": {}, "global": {},
	"if": {}, "import": {}, "in": {}, "is": {}, "lambda": {}, "match": {},
	"nonlocal": {}, "not": {}, "or": {}, "pass": {}, "raise": {}, "return": {},
	"try": {}, "while": {}, "with": {}, "yield": {},
}

// A parser holds the mutable state of a single recursive-descent parse, reading tokens one at a
// time from a lex. Mirrors the teacher's `parser` (grammar_parse.go): statement/expression
// parsing functions recurse into each other directly, and any parse failure is signalled via the
// panic-based `fail` rather than threading an error return through every call.
type parser struct {
	l *lex
}

// ParseFileInput parses r (named filename, used only in error messages) into a FileInput.
// A parse failure panics with a *SyntaxError inside the parser (fail()'s contract); ParseFileInput
// recovers it and returns it as err. Any other panic is re-raised.
func ParseFileInput(r io.Reader, filename string) (input *FileInput, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if se, ok := rec.(*SyntaxError); ok {
				err = se
				return
			}
			panic(rec)
		}
	}()
	p := &parser{l: newLexer(r, filename)}
	input = &FileInput{}
	for tok := p.l.Peek(); tok.Type != EOF; tok = p.l.Peek() {
		input.Statements = append(input.Statements, p.parseStatement())
	}
	return input, nil
}

func (p *parser) assert(condition bool, pos Token, message string, args ...interface{}) {
	if !condition {
		p.fail(pos, message, args...)
	}
}

func (p *parser) fail(pos Token, message string, args ...interface{}) {
	fail(p.l.filePos(pos.Pos), message, args...)
}

func (p *parser) assertTokenType(tok Token, expectedType rune) {
	if tok.Type != expectedType {
		p.fail(tok, "unexpected token %s, expected %s", tok, reverseSymbol(expectedType))
	}
}

// next consumes and returns the next token, asserting it has the given type.
func (p *parser) next(expectedType rune) Token {
	tok := p.l.Next()
	p.assertTokenType(tok, expectedType)
	return tok
}

// nextv consumes and returns the next token, asserting it has the given literal value.
func (p *parser) nextv(expectedValue string) Token {
	tok := p.l.Next()
	if tok.Value != expectedValue {
		p.fail(tok, "unexpected token %s, expected %q", tok, expectedValue)
	}
	return tok
}

// optional consumes the next token and returns true if it has the given type, otherwise leaves it.
func (p *parser) optional(option rune) bool {
	if tok := p.l.Peek(); tok.Type == option {
		p.l.Next()
		return true
	}
	return false
}

// optionalv is optional but matches by literal value instead of type (used for keywords, which
// the lexer reports as plain Ident tokens).
func (p *parser) optionalv(option string) bool {
	if tok := p.l.Peek(); tok.Type == Ident && tok.Value == option {
		p.l.Next()
		return true
	}
	return false
}

func (p *parser) peekv(value string) bool {
	tok := p.l.Peek()
	return tok.Type == Ident && tok.Value == value
}

func (p *parser) anythingBut(r rune) bool {
	return p.l.Peek().Type != r
}

func (p *parser) oneof(expectedTypes ...rune) Token {
	tok := p.l.Next()
	for _, t := range expectedTypes {
		if tok.Type == t {
			return tok
		}
	}
	p.fail(tok, "unexpected token %s, expected one of %s", tok.Value, strings.Join(reverseSymbols(expectedTypes), " "))
	return Token{}
}

func (p *parser) oneofval(expectedValues ...string) Token {
	tok := p.l.Next()
	for _, v := range expectedValues {
		if tok.Value == v {
			return tok
		}
	}
	p.fail(tok, "unexpected token %s, expected one of %s", tok.Value, strings.Join(expectedValues, ", "))
	return Token{}
}

// newElement appends a zero-value element to the slice pointed to by x and returns its index.
// Kept from the teacher (grammar_parse.go) verbatim technique: it lets call sites fill in a
// struct field in place (`&x.Field[p.newElement(&x.Field)]`) without separately naming every
// intermediate slice-element type.
func (p *parser) newElement(x interface{}) int {
	v := reflect.ValueOf(x).Elem()
	v.Set(reflect.Append(v, reflect.Zero(v.Type().Elem())))
	return v.Len() - 1
}

func (p *parser) parseIdentList() []string {
	ret := []string{p.next(Ident).Value}
	for p.optional(',') {
		if tok := p.l.Peek(); tok.Type != Ident {
			break // trailing comma
		}
		ret = append(ret, p.next(Ident).Value)
	}
	return ret
}

// parseTargetList parses a comma-separated list of assignment/for/del targets as a single
// expression, wrapping more than one in an implicit tuple (`a, b = ...`, `for a, b in ...`).
func (p *parser) parseTargetList() *Expression {
	first := p.parseExpressionNoAssign()
	if tok := p.l.Peek(); tok.Type != ',' {
		return first
	}
	values := []*Expression{first}
	for p.optional(',') {
		if t := p.l.Peek(); t.Type == '=' || t.Type == ':' || t.Value == "in" || t.Type == NEWLINE {
			break
		}
		values = append(values, p.parseExpressionNoAssign())
	}
	return &Expression{Pos: first.Pos, Val: &ValueExpression{Tuple: &List{Values: values}}}
}
