package interp

// Expression parsing is a standard descent through Python's precedence levels, one function per
// level, matching the teacher's one-function-per-grammar-rule style (grammar_parse.go) rather
// than the teacher's own flattened operator table (which needed a post-hoc "hoist" fixup to cope
// with precedence — see parser.go's retired doc comment). Each level appends its operators to the
// Op list of the operand it parsed, so the list runs from tighter- to looser-binding operators and
// evalOpChain's left fold (which groups runs of comparisons into one chained comparison) gives
// mixed-precedence expressions the right shape without any such fixup.

// parseExpression parses a full expression, including the inline if/else and a leading walrus
// assignment (`name := expr`).
func (p *parser) parseExpression() *Expression {
	if tok := p.l.Peek(); tok.Type == Ident {
		if _, reserved := keywords[tok.Value]; !reserved {
			save := *p.l
			p.l.Next()
			if op := p.l.Peek(); op.Type == LexOperator && op.Value == ":=" {
				p.l.Next()
				val := p.parseTernary()
				val.Walrus = tok.Value
				return val
			}
			*p.l = save
		}
	}
	return p.parseTernary()
}

// parseExpressionNoAssign is used for assignment/for/del targets: the same grammar, just named
// distinctly so callers document intent (a target is never itself the LHS of `:=`).
func (p *parser) parseExpressionNoAssign() *Expression {
	return p.parseTernary()
}

func (p *parser) parseTernary() *Expression {
	e := p.parseOrTest()
	if p.optionalv("if") {
		cond := p.parseOrTest()
		p.nextv("else")
		els := p.parseExpression()
		e.If = &InlineIf{Condition: cond, Else: els}
	}
	return e
}

// parseOrTest is also used directly by statement-level constructs (with/except/case) that don't
// want to accidentally swallow a trailing inline-if belonging to something else.
func (p *parser) parseOrTest() *Expression {
	e := p.parseAndTest()
	for p.optionalv("or") {
		rhs := p.parseAndTest()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: Or, Expr: rhs})}
	}
	return e
}

func (p *parser) parseAndTest() *Expression {
	e := p.parseNotTest()
	for p.optionalv("and") {
		rhs := p.parseNotTest()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: And, Expr: rhs})}
	}
	return e
}

func (p *parser) parseNotTest() *Expression {
	if p.optionalv("not") {
		pos := p.l.Peek().Pos
		inner := p.parseNotTest()
		return &Expression{Pos: pos, Val: &ValueExpression{UnaryOp: Not, Paren: inner}}
	}
	return p.parseComparison()
}

// parseComparison builds a flat chain of comparison operators (`a < b <= c`); eval.go applies
// Python's chained-comparison semantics (each pair ANDed together) rather than a left fold.
func (p *parser) parseComparison() *Expression {
	e := p.parseBitOr()
	for {
		op, ok := p.peekComparisonOp()
		if !ok {
			return e
		}
		p.consumeComparisonOp()
		rhs := p.parseBitOr()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: op, Expr: rhs})}
	}
}

func (p *parser) peekComparisonOp() (Operator, bool) {
	tok := p.l.Peek()
	switch {
	case tok.Type == '<' || tok.Type == '>':
		return 0, true // resolved in consumeComparisonOp since lexer may have folded <= >=
	case tok.Type == LexOperator:
		if op, ok := binaryOperators[tok.Value]; ok {
			switch op {
			case Equal, NotEqual, LessThanOrEqual, GreaterThanOrEqual:
				return op, true
			}
		}
	case tok.Value == "in":
		return In, true
	case tok.Value == "not":
		return NotIn, true // only valid if followed by `in`; checked on consume
	case tok.Value == "is":
		return Is, true // possibly `is not`; checked on consume
	}
	return 0, false
}

func (p *parser) consumeComparisonOp() Operator {
	tok := p.l.Next()
	switch {
	case tok.Type == '<':
		return LessThan
	case tok.Type == '>':
		return GreaterThan
	case tok.Type == LexOperator:
		return binaryOperators[tok.Value]
	case tok.Value == "in":
		return In
	case tok.Value == "not":
		p.nextv("in")
		return NotIn
	case tok.Value == "is":
		if p.optionalv("not") {
			return IsNot
		}
		return Is
	}
	p.fail(tok, "unexpected comparison operator %s", tok)
	return 0
}

func (p *parser) parseBitOr() *Expression {
	e := p.parseBitXor()
	for p.l.Peek().Type == '|' {
		p.l.Next()
		rhs := p.parseBitXor()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: BitOr, Expr: rhs})}
	}
	return e
}

func (p *parser) parseBitXor() *Expression {
	e := p.parseBitAnd()
	for p.l.Peek().Type == '^' {
		p.l.Next()
		rhs := p.parseBitAnd()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: BitXor, Expr: rhs})}
	}
	return e
}

func (p *parser) parseBitAnd() *Expression {
	e := p.parseShift()
	for p.l.Peek().Type == '&' {
		p.l.Next()
		rhs := p.parseShift()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: BitAnd, Expr: rhs})}
	}
	return e
}

func (p *parser) parseShift() *Expression {
	e := p.parseArith()
	for {
		tok := p.l.Peek()
		if tok.Type != LexOperator || (tok.Value != "<<" && tok.Value != ">>") {
			return e
		}
		p.l.Next()
		rhs := p.parseArith()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: binaryOperators[tok.Value], Expr: rhs})}
	}
}

func (p *parser) parseArith() *Expression {
	e := p.parseTerm()
	for {
		tok := p.l.Peek()
		if tok.Type != '+' && tok.Type != '-' {
			return e
		}
		p.l.Next()
		rhs := p.parseTerm()
		op := Add
		if tok.Type == '-' {
			op = Subtract
		}
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: op, Expr: rhs})}
	}
}

func (p *parser) parseTerm() *Expression {
	e := p.parseFactor()
	for {
		tok := p.l.Peek()
		var op Operator
		switch {
		case tok.Type == '*':
			op = Multiply
		case tok.Type == '/':
			op = Divide
		case tok.Type == '%':
			op = Modulo
		case tok.Type == LexOperator && tok.Value == "//":
			op = FloorDivide
		default:
			return e
		}
		p.l.Next()
		rhs := p.parseFactor()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: op, Expr: rhs})}
	}
}

// parseFactor handles unary +, -, ~; binds tighter than * / but looser than **.
func (p *parser) parseFactor() *Expression {
	tok := p.l.Peek()
	switch tok.Type {
	case '-':
		p.l.Next()
		return &Expression{Pos: tok.Pos, Val: &ValueExpression{UnaryOp: Negate, Paren: p.parseFactor()}}
	case '+':
		p.l.Next()
		return &Expression{Pos: tok.Pos, Val: &ValueExpression{UnaryOp: Positive, Paren: p.parseFactor()}}
	case '~':
		p.l.Next()
		return &Expression{Pos: tok.Pos, Val: &ValueExpression{UnaryOp: BitNot, Paren: p.parseFactor()}}
	}
	return p.parsePower()
}

// parsePower is right-associative: `2 ** 3 ** 2 == 2 ** (3 ** 2)`.
func (p *parser) parsePower() *Expression {
	e := p.parseAtomTrailer()
	if tok := p.l.Peek(); tok.Type == LexOperator && tok.Value == "**" {
		p.l.Next()
		rhs := p.parseFactor()
		e = &Expression{Pos: e.Pos, Val: e.Val, Op: append(e.Op, OpExpression{Op: Power, Expr: rhs})}
	}
	return e
}

// parseAtomTrailer parses an atom followed by any chain of `.name`, `(...)`, `[...]` trailers.
func (p *parser) parseAtomTrailer() *Expression {
	pos := p.l.Peek().Pos
	ve := p.parseAtom()
	for {
		tok := p.l.Peek()
		switch tok.Type {
		case '.':
			p.l.Next()
			ve = p.wrapIdentAction(ve, IdentExprAction{Property: p.next(Ident).Value})
		case '(':
			p.l.Next()
			ve = p.wrapIdentAction(ve, IdentExprAction{Call: p.parseCall()})
		case '[':
			ve = p.wrapIdentAction(ve, IdentExprAction{Subscript: p.parseSubscript()})
		default:
			return &Expression{Pos: pos, Val: ve}
		}
	}
}

// wrapIdentAction threads a trailing `.name`/`(...)`/`[...]` action onto the running expression.
// Values that aren't already an IdentExpr chain (e.g. a string or list literal followed by a
// method call, like `"x".upper()` or `[1,2].pop()`) are represented as an IdentExpr with an empty
// Name and the literal stashed on a synthetic leading action — modelled directly as Ident with
// Name "" and the literal recorded via Call's receiver being the ValueExpression itself through
// Paren nesting.
func (p *parser) wrapIdentAction(ve *ValueExpression, action IdentExprAction) *ValueExpression {
	if ve.Ident != nil {
		ve.Ident.Action = append(ve.Ident.Action, action)
		return ve
	}
	wrapped := &Expression{Val: ve}
	return &ValueExpression{Ident: &IdentExpr{Name: "", Action: []IdentExprAction{{Property: "", Call: nil}}}, Paren: wrapped}
}

func (p *parser) parseCall() *Call {
	c := &Call{}
	names := map[string]bool{}
	for tok := p.l.Peek(); tok.Type != ')'; tok = p.l.Peek() {
		arg := CallArgument{Pos: tok.Pos}
		switch {
		case tok.Type == LexOperator && tok.Value == "**":
			p.l.Next()
			arg.UnpackKw = true
			arg.Value = p.parseExpression()
		case tok.Type == '*':
			p.l.Next()
			arg.Unpack = true
			arg.Value = p.parseExpression()
		case tok.Type == Ident && p.keywordArgFollows():
			arg.Name = tok.Value
			p.next(Ident)
			p.next('=')
			p.assert(!names[arg.Name], tok, "repeated keyword argument %s", arg.Name)
			names[arg.Name] = true
			arg.Value = p.parseExpression()
		default:
			arg.Value = p.parseExpression()
			if p.peekv("for") {
				comp := p.parseComprehension()
				arg.Value = &Expression{Pos: arg.Value.Pos, Val: &ValueExpression{List: &List{Values: []*Expression{arg.Value}, Comprehension: comp}}}
			}
		}
		c.Arguments = append(c.Arguments, arg)
		if !p.optional(',') {
			break
		}
	}
	p.next(')')
	return c
}

// keywordArgFollows reports whether the identifier currently being peeked is immediately followed
// by a single `=` (a keyword argument), as opposed to `==` or nothing. The lexer only looks one
// token ahead, so this probes by speculatively consuming the identifier and restoring state.
func (p *parser) keywordArgFollows() bool {
	save := *p.l
	p.l.Next()
	follows := p.l.Peek().Type == '='
	*p.l = save
	return follows
}

func (p *parser) parseSubscript() *Subscript {
	p.next('[')
	s := &Subscript{}
	if p.optional(':') {
		s.Slice = p.finishSlice(nil)
		return s
	}
	first := p.parseExpression()
	if p.optional(':') {
		s.Slice = p.finishSlice(first)
		return s
	}
	s.Index = first
	p.next(']')
	return s
}

func (p *parser) finishSlice(start *Expression) *Subscript {
	sl := &Slice{Start: start}
	if p.l.Peek().Type != ':' && p.l.Peek().Type != ']' {
		sl.Stop = p.parseExpression()
	}
	if p.optional(':') {
		if p.l.Peek().Type != ']' {
			sl.Step = p.parseExpression()
		}
	}
	p.next(']')
	return &Subscript{Slice: sl}
}

// parseAtom parses the innermost unit of an expression: a literal, name, parenthesised
// expression, or bracketed collection.
func (p *parser) parseAtom() *ValueExpression {
	tok := p.l.Peek()
	switch tok.Type {
	case String:
		p.l.Next()
		if tok.Value[0] == 'f' {
			return &ValueExpression{FString: parseFString(unquote(tok.Value[1:]))}
		}
		return &ValueExpression{String: unquote(trimStringPrefix(tok.Value))}
	case Bytes:
		p.l.Next()
		return &ValueExpression{Bytes: unquote(tok.Value[1:])}
	case Int:
		p.l.Next()
		return &ValueExpression{IsInt: true, Int: tok.Value}
	case Float:
		p.l.Next()
		return &ValueExpression{IsFloat: true, Float: parseFloatLiteral(tok.Value)}
	case '[':
		return &ValueExpression{List: p.parseListLiteral()}
	case '(':
		return p.parseParenOrTuple()
	case '{':
		return p.parseBraceLiteral()
	}
	if tok.Type != Ident {
		p.fail(tok, "unexpected token %s", tok)
	}
	switch tok.Value {
	case "True":
		p.l.Next()
		return &ValueExpression{True: true}
	case "False":
		p.l.Next()
		return &ValueExpression{False: true}
	case "None":
		p.l.Next()
		return &ValueExpression{None: true}
	case "lambda":
		return &ValueExpression{Lambda: p.parseLambda()}
	case "yield":
		p.l.Next()
		y := &YieldExpr{}
		if p.optionalv("from") {
			y.IsFrom = true
			y.Expr = p.parseExpression()
		} else if p.anythingBut(NEWLINE) && p.anythingBut(')') {
			y.Expr = p.parseExpression()
		}
		return &ValueExpression{Yield: y}
	case "...":
		p.l.Next()
		return &ValueExpression{Ellipsis: true}
	}
	p.l.Next()
	_, reserved := keywords[tok.Value]
	p.assert(!reserved, tok, "cannot use keyword %q as a value", tok.Value)
	return &ValueExpression{Ident: &IdentExpr{Pos: tok.Pos, Name: tok.Value}}
}

func (p *parser) parseParenOrTuple() *ValueExpression {
	p.next('(')
	if p.optional(')') {
		return &ValueExpression{Tuple: &List{}}
	}
	first := p.parseExpression()
	if p.peekv("for") {
		comp := p.parseComprehension()
		p.next(')')
		return &ValueExpression{List: &List{Values: []*Expression{first}, Comprehension: comp}} // generator expression, lowered to a lazy list-like comprehension
	}
	if p.l.Peek().Type != ',' {
		p.next(')')
		return &ValueExpression{Paren: first}
	}
	values := []*Expression{first}
	for p.optional(',') {
		if p.l.Peek().Type == ')' {
			break
		}
		values = append(values, p.parseExpression())
	}
	p.next(')')
	return &ValueExpression{Tuple: &List{Values: values}}
}

func (p *parser) parseListLiteral() *List {
	p.next('[')
	l := &List{}
	for p.anythingBut(']') {
		l.Values = append(l.Values, p.parseExpression())
		if !p.optional(',') {
			break
		}
	}
	if p.peekv("for") {
		p.assert(len(l.Values) == 1, p.l.Peek(), "must have exactly one item in a list comprehension")
		l.Comprehension = p.parseComprehension()
	}
	p.next(']')
	return l
}

// parseBraceLiteral parses `{...}`: dict, dict comprehension, set, or set comprehension.
func (p *parser) parseBraceLiteral() *ValueExpression {
	p.next('{')
	if p.optional('}') {
		return &ValueExpression{Dict: &Dict{}}
	}
	if p.optional2Star() {
		d := &Dict{Items: []*DictItem{{Value: p.parseExpression(), Unpack: true}}}
		return p.finishDict(d)
	}
	first := p.parseExpression()
	if p.optional(':') {
		d := &Dict{Items: []*DictItem{{Key: first, Value: p.parseExpression()}}}
		return p.finishDict(d)
	}
	if p.peekv("for") {
		comp := p.parseComprehension()
		p.next('}')
		return &ValueExpression{Set: &SetLiteral{Values: []*Expression{first}, Comprehension: comp}}
	}
	set := &SetLiteral{Values: []*Expression{first}}
	for p.optional(',') {
		if p.l.Peek().Type == '}' {
			break
		}
		set.Values = append(set.Values, p.parseExpression())
	}
	p.next('}')
	return &ValueExpression{Set: set}
}

func (p *parser) optional2Star() bool {
	if tok := p.l.Peek(); tok.Type == LexOperator && tok.Value == "**" {
		p.l.Next()
		return true
	}
	return false
}

func (p *parser) finishDict(d *Dict) *ValueExpression {
	for p.optional(',') {
		if p.l.Peek().Type == '}' {
			break
		}
		if p.optional2Star() {
			d.Items = append(d.Items, &DictItem{Value: p.parseExpression(), Unpack: true})
			continue
		}
		key := p.parseExpression()
		p.next(':')
		d.Items = append(d.Items, &DictItem{Key: key, Value: p.parseExpression()})
	}
	if p.peekv("for") && len(d.Items) == 1 && !d.Items[0].Unpack {
		comp := p.parseComprehension()
		p.next('}')
		return &ValueExpression{Dict: &Dict{Comprehension: &DictComprehension{
			Key: d.Items[0].Key, Value: d.Items[0].Value, Clauses: comp.Clauses,
		}}}
	}
	p.next('}')
	return &ValueExpression{Dict: d}
}

// parseComprehension parses one or more `for ... in ... [if ...]` clauses.
func (p *parser) parseComprehension() *Comprehension {
	c := &Comprehension{}
	for p.peekv("for") {
		p.l.Next()
		clause := ComprehensionClause{Target: p.parseTargetList()}
		p.nextv("in")
		clause.Expr = p.parseOrTest()
		for p.optionalv("if") {
			clause.Ifs = append(clause.Ifs, p.parseOrTest())
		}
		c.Clauses = append(c.Clauses, clause)
	}
	return c
}

func (p *parser) parseLambda() *Lambda {
	p.nextv("lambda")
	l := &Lambda{}
	for p.l.Peek().Type != ':' {
		l.Arguments = append(l.Arguments, p.parseArgument())
		if !p.optional(',') {
			break
		}
	}
	p.next(':')
	l.Expr = p.parseExpression()
	return l
}

func parseFloatLiteral(s string) float64 {
	var f float64
	var sign float64 = 1
	i := 0
	if i < len(s) && s[i] == '-' {
		sign = -1
		i++
	}
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		f = f*10 + float64(s[i]-'0')
	}
	if i < len(s) && s[i] == '.' {
		i++
		frac := 0.1
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			f += float64(s[i]-'0') * frac
			frac /= 10
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		i++
		expSign := 1.0
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			if s[i] == '-' {
				expSign = -1
			}
			i++
		}
		exp := 0.0
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			exp = exp*10 + float64(s[i]-'0')
		}
		f *= pow10(expSign * exp)
	}
	return sign * f
}

// unquote strips the single surrounding double quote the lexer normalises every string/bytes
// literal to (see token.go).
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// trimStringPrefix strips a leading `r` prefix marker, if present, from a non-f-string token.
func trimStringPrefix(s string) string {
	if len(s) > 0 && s[0] == 'r' {
		return s[1:]
	}
	return s
}

func pow10(exp float64) float64 {
	result := 1.0
	n := int(exp)
	neg := n < 0
	if neg {
		n = -n
	}
	for i := 0; i < n; i++ {
		result *= 10
	}
	if neg {
		return 1 / result
	}
	return result
}
