package interp

import "strings"

// parseStatement parses exactly one statement, simple or compound, consuming its trailing
// NEWLINE (simple statements) or its entire indented block (compound statements). Mirrors the
// teacher's parseStatement (grammar_parse.go) dispatch-by-leading-token structure, widened to the
// full statement grammar spec §4.2 requires.
func (p *parser) parseStatement() *Statement {
	tok := p.l.Peek()
	s := &Statement{Pos: tok.Pos}
	if tok.Type == '@' {
		decorators := p.parseDecorators()
		inner := p.parseStatement()
		switch {
		case inner.FuncDef != nil:
			inner.FuncDef.Decorators = decorators
		case inner.ClassDef != nil:
			inner.ClassDef.Decorators = decorators
		default:
			p.fail(tok, "decorators can only precede a function or class definition")
		}
		return inner
	}
	if tok.Type != Ident {
		return p.parseSimpleStatementLine(s)
	}
	switch tok.Value {
	case "pass":
		p.l.Next()
		s.Pass = true
		p.next(NEWLINE)
	case "break":
		p.l.Next()
		s.Break = true
		p.next(NEWLINE)
	case "continue":
		p.l.Next()
		s.Continue = true
		p.next(NEWLINE)
	case "def":
		s.FuncDef = p.parseFuncDef()
	case "class":
		s.ClassDef = p.parseClassDef()
	case "for":
		s.For = p.parseFor()
	case "while":
		s.While = p.parseWhile()
	case "if":
		s.If = p.parseIf()
	case "try":
		s.Try = p.parseTry()
	case "with":
		s.With = p.parseWith()
	case "match":
		s.Match = p.parseMatch()
	case "return":
		p.l.Next()
		s.Return = p.parseReturn()
	case "raise":
		p.l.Next()
		s.Raise = p.parseRaise()
	case "assert":
		p.l.Next()
		s.Assert = &AssertStatement{Expr: p.parseExpression()}
		if p.optional(',') {
			s.Assert.Message = p.parseExpression()
		}
		p.next(NEWLINE)
	case "global":
		p.l.Next()
		s.Global = p.parseIdentList()
		p.next(NEWLINE)
	case "nonlocal":
		p.l.Next()
		s.Nonlocal = p.parseIdentList()
		p.next(NEWLINE)
	case "del":
		p.l.Next()
		s.Del = append(s.Del, p.parseExpression())
		for p.optional(',') {
			s.Del = append(s.Del, p.parseExpression())
		}
		p.next(NEWLINE)
	case "import":
		s.Import = p.parseImport()
	case "from":
		s.Import = p.parseFromImport()
	default:
		return p.parseSimpleStatementLine(s)
	}
	return s
}

// parseSimpleStatementLine parses one line that is either a bare expression, an assignment, or an
// augmented assignment.
func (p *parser) parseSimpleStatementLine(s *Statement) *Statement {
	first := p.parseTargetList()
	tok := p.l.Peek()
	if tok.Type == '=' {
		targets := []*Expression{first}
		var value *Expression
		for {
			p.next('=')
			value = p.parseTargetList()
			if p.l.Peek().Type == '=' {
				targets = append(targets, value)
				continue
			}
			break
		}
		p.next(NEWLINE)
		s.Assign = &AssignStatement{Targets: targets, Value: value}
		return s
	}
	if tok.Type == LexOperator {
		if op, ok := augAssignOperators[tok.Value]; ok {
			p.l.Next()
			value := p.parseExpression()
			p.next(NEWLINE)
			s.AugAssign = &AugAssignStatement{Target: first, Op: op, Value: value}
			return s
		}
	}
	p.next(NEWLINE)
	s.Expr = first
	return s
}

// parseStatements parses an indented block: INDENT, one or more statements, DEDENT.
func (p *parser) parseStatements() []*Statement {
	p.next(INDENT)
	var stmts []*Statement
	for p.anythingBut(DEDENT) {
		stmts = append(stmts, p.parseStatement())
	}
	p.next(DEDENT)
	return stmts
}

func (p *parser) parseDecorators() []*Expression {
	var decorators []*Expression
	for p.l.Peek().Type == '@' {
		p.l.Next()
		decorators = append(decorators, p.parseExpression())
		p.next(NEWLINE)
	}
	return decorators
}

func (p *parser) parseFuncDef() *FuncDef {
	p.nextv("def")
	fd := &FuncDef{Name: p.next(Ident).Value}
	p.next('(')
	fd.Arguments = p.parseArgumentList(')')
	p.next(')')
	if p.optional('-') {
		p.nextv(">")
		p.parseExpression() // return-type annotation, informational only
	}
	p.next(':')
	p.next(NEWLINE)
	if tok := p.l.Peek(); tok.Type == String {
		fd.Docstring = tok.Value
		p.l.Next()
		p.next(NEWLINE)
	}
	fd.Statements = p.parseStatements()
	fd.IsGenerator = containsYield(fd.Statements)
	return fd
}

func (p *parser) parseClassDef() *ClassDef {
	p.nextv("class")
	cd := &ClassDef{Name: p.next(Ident).Value}
	if p.optional('(') {
		for p.anythingBut(')') {
			cd.Bases = append(cd.Bases, p.parseExpression())
			if !p.optional(',') {
				break
			}
		}
		p.next(')')
	}
	p.next(':')
	p.next(NEWLINE)
	if tok := p.l.Peek(); tok.Type == String {
		cd.Docstring = tok.Value
		p.l.Next()
		p.next(NEWLINE)
	}
	cd.Statements = p.parseStatements()
	return cd
}

// parseArgumentList parses a def/lambda parameter list up to (but not consuming) closing.
func (p *parser) parseArgumentList(closing rune) []Argument {
	var args []Argument
	for p.anythingBut(closing) {
		args = append(args, p.parseArgument())
		if !p.optional(',') {
			break
		}
	}
	return args
}

func (p *parser) parseArgument() Argument {
	if tok := p.l.Peek(); tok.Type == LexOperator && tok.Value == "**" {
		p.l.Next()
		return Argument{Name: p.next(Ident).Value, Kind: ArgKwargs}
	}
	if p.optional('*') {
		if tok := p.l.Peek(); tok.Type != Ident {
			return Argument{Kind: ArgKeywordOnlyMarker}
		}
		return Argument{Name: p.next(Ident).Value, Kind: ArgVarargs}
	}
	a := Argument{Name: p.next(Ident).Value}
	if p.optional(':') {
		a.Annotation = p.parseOrTest()
	}
	if p.optional('=') {
		a.Value = p.parseExpression()
	}
	return a
}

func (p *parser) parseFor() *ForStatement {
	p.nextv("for")
	f := &ForStatement{Target: p.parseTargetList()}
	p.nextv("in")
	f.Expr = p.parseExpression()
	p.next(':')
	p.next(NEWLINE)
	f.Statements = p.parseStatements()
	if p.optionalv("else") {
		p.next(':')
		p.next(NEWLINE)
		f.ElseStatements = p.parseStatements()
	}
	return f
}

func (p *parser) parseWhile() *WhileStatement {
	p.nextv("while")
	w := &WhileStatement{Condition: p.parseExpression()}
	p.next(':')
	p.next(NEWLINE)
	w.Statements = p.parseStatements()
	if p.optionalv("else") {
		p.next(':')
		p.next(NEWLINE)
		w.ElseStatements = p.parseStatements()
	}
	return w
}

func (p *parser) parseIf() *IfStatement {
	p.nextv("if")
	i := &IfStatement{Condition: p.parseExpression()}
	p.next(':')
	p.next(NEWLINE)
	i.Statements = p.parseStatements()
	for p.optionalv("elif") {
		elif := IfStatementElif{Condition: p.parseExpression()}
		p.next(':')
		p.next(NEWLINE)
		elif.Statements = p.parseStatements()
		i.Elif = append(i.Elif, elif)
	}
	if p.optionalv("else") {
		p.next(':')
		p.next(NEWLINE)
		i.ElseStatements = p.parseStatements()
	}
	return i
}

func (p *parser) parseTry() *TryStatement {
	p.nextv("try")
	p.next(':')
	p.next(NEWLINE)
	t := &TryStatement{Statements: p.parseStatements()}
	for p.peekv("except") {
		p.l.Next()
		var ec ExceptClause
		if p.anythingBut(':') {
			ec.Types = append(ec.Types, p.parseOrTest())
			for p.optional(',') {
				ec.Types = append(ec.Types, p.parseOrTest())
			}
			if p.optionalv("as") {
				ec.Name = p.next(Ident).Value
			}
		}
		p.next(':')
		p.next(NEWLINE)
		ec.Statements = p.parseStatements()
		t.Excepts = append(t.Excepts, ec)
	}
	if p.optionalv("else") {
		p.next(':')
		p.next(NEWLINE)
		t.ElseStatements = p.parseStatements()
	}
	if p.optionalv("finally") {
		p.next(':')
		p.next(NEWLINE)
		t.Finally = p.parseStatements()
	}
	p.assert(len(t.Excepts) > 0 || len(t.Finally) > 0, p.l.Peek(), "try statement must have an except or finally clause")
	return t
}

func (p *parser) parseWith() *WithStatement {
	p.nextv("with")
	w := &WithStatement{}
	for {
		item := WithItem{Expr: p.parseOrTest()}
		if p.optionalv("as") {
			item.Name = p.next(Ident).Value
		}
		w.Items = append(w.Items, item)
		if !p.optional(',') {
			break
		}
	}
	p.next(':')
	p.next(NEWLINE)
	w.Statements = p.parseStatements()
	return w
}

func (p *parser) parseMatch() *MatchStatement {
	p.nextv("match")
	m := &MatchStatement{Subject: p.parseExpression()}
	p.next(':')
	p.next(NEWLINE)
	p.next(INDENT)
	for p.peekv("case") {
		p.l.Next()
		c := MatchCase{Pattern: p.parsePattern()}
		if p.optionalv("if") {
			c.Guard = p.parseExpression()
		}
		p.next(':')
		p.next(NEWLINE)
		c.Statements = p.parseStatements()
		m.Cases = append(m.Cases, c)
	}
	p.next(DEDENT)
	return m
}

func (p *parser) parseReturn() *ReturnStatement {
	r := &ReturnStatement{}
	if p.anythingBut(NEWLINE) {
		r.Values = append(r.Values, p.parseExpression())
		for p.optional(',') {
			r.Values = append(r.Values, p.parseExpression())
		}
	}
	p.next(NEWLINE)
	return r
}

func (p *parser) parseRaise() *RaiseStatement {
	r := &RaiseStatement{}
	if p.anythingBut(NEWLINE) {
		r.Expr = p.parseExpression()
		if p.optionalv("from") {
			r.From = p.parseExpression()
		}
	}
	p.next(NEWLINE)
	return r
}

func (p *parser) parseImport() *ImportStatement {
	p.nextv("import")
	i := &ImportStatement{Module: p.parseDottedName()}
	if p.optionalv("as") {
		i.Names = []ImportName{{Name: "", Alias: p.next(Ident).Value}}
	}
	p.next(NEWLINE)
	return i
}

func (p *parser) parseFromImport() *ImportStatement {
	p.nextv("from")
	i := &ImportStatement{}
	for p.l.Peek().Type == '.' {
		p.l.Next()
		i.Relative++
	}
	if p.l.Peek().Type == Ident {
		i.Module = p.parseDottedName()
	}
	p.nextv("import")
	if p.optional('*') {
		i.Names = []ImportName{{Name: "*"}}
		p.next(NEWLINE)
		return i
	}
	paren := p.optional('(')
	for {
		n := ImportName{Name: p.next(Ident).Value}
		if p.optionalv("as") {
			n.Alias = p.next(Ident).Value
		}
		i.Names = append(i.Names, n)
		if !p.optional(',') {
			break
		}
		if paren && p.l.Peek().Type == ')' {
			break
		}
	}
	if paren {
		p.next(')')
	}
	p.next(NEWLINE)
	return i
}

func (p *parser) parseDottedName() string {
	name := p.next(Ident).Value
	for p.l.Peek().Type == '.' {
		p.l.Next()
		name += "." + p.next(Ident).Value
	}
	return name
}

// parsePattern parses one `case` pattern (spec §4.4's structural matching), including `|`
// alternatives and an `as` binding, both of which bind more loosely than the pattern itself.
func (p *parser) parsePattern() Pattern {
	first := p.parseOrPattern()
	if p.optionalv("as") {
		return Pattern{Binding: p.next(Ident).Value, Inner: &first}
	}
	return first
}

func (p *parser) parseOrPattern() Pattern {
	first := p.parseClosedPattern()
	if p.l.Peek().Type != '|' {
		return first
	}
	alts := []Pattern{first}
	for p.optional('|') {
		alts = append(alts, p.parseClosedPattern())
	}
	return Pattern{Or: alts}
}

func (p *parser) parseClosedPattern() Pattern {
	tok := p.l.Peek()
	switch tok.Type {
	case '[', '(':
		return p.parseSequencePattern(tok.Type)
	case '{':
		return p.parseMappingPattern()
	}
	if tok.Type == Ident && tok.Value == "_" {
		p.l.Next()
		return Pattern{Wildcard: true}
	}
	if tok.Type == Ident {
		if _, reserved := keywords[tok.Value]; !reserved {
			// Could be a bare capture name, or the start of `Name(...)`/`a.b.C(...)` class pattern.
			save := *p.l
			name := p.parseDottedNameOrIdent()
			if p.l.Peek().Type == '(' {
				return p.parseClassPattern(name)
			}
			if strings.Contains(name, ".") {
				*p.l = save
				lit := p.parseOrTest()
				return Pattern{Literal: lit}
			}
			return Pattern{Capture: name}
		}
	}
	// Anything else (int/float/string/True/False/None, or a negative-number unary expression) is a
	// literal pattern, compared to the subject by equality/identity.
	lit := p.parseOrTest()
	return Pattern{Literal: lit}
}

func (p *parser) parseDottedNameOrIdent() string {
	name := p.next(Ident).Value
	for p.l.Peek().Type == '.' {
		p.l.Next()
		name += "." + p.next(Ident).Value
	}
	return name
}

func (p *parser) parseSequencePattern(opening rune) Pattern {
	closing := rune(']')
	if opening == '(' {
		closing = ')'
	}
	p.next(opening)
	seq := Pattern{StarIndex: -1}
	for p.anythingBut(closing) {
		if p.optional('*') {
			seq.StarIndex = len(seq.Sequence)
			seq.StarName = p.next(Ident).Value
			seq.Sequence = append(seq.Sequence, Pattern{Capture: seq.StarName})
		} else {
			seq.Sequence = append(seq.Sequence, p.parsePattern())
		}
		if !p.optional(',') {
			break
		}
	}
	p.next(closing)
	return seq
}

func (p *parser) parseMappingPattern() Pattern {
	p.next('{')
	m := Pattern{}
	for p.anythingBut('}') {
		if tok := p.l.Peek(); tok.Type == LexOperator && tok.Value == "**" {
			p.l.Next()
			m.MappingRest = p.next(Ident).Value
			if !p.optional(',') {
				break
			}
			continue
		}
		key := p.parseOrTest()
		p.next(':')
		m.Mapping = append(m.Mapping, MappingPatternItem{Key: key, Pattern: p.parsePattern()})
		if !p.optional(',') {
			break
		}
	}
	p.next('}')
	return m
}

func (p *parser) parseClassPattern(name string) Pattern {
	cls := &Expression{Val: &ValueExpression{Ident: &IdentExpr{Name: name}}}
	p.next('(')
	cp := &ClassPattern{Class: cls}
	for p.anythingBut(')') {
		if tok := p.l.Peek(); tok.Type == Ident && p.keywordArgFollows() {
			kwName := tok.Value
			p.next(Ident)
			p.next('=')
			cp.Keyword = append(cp.Keyword, KeywordPattern{Name: kwName, Pattern: p.parsePattern()})
		} else {
			cp.Positional = append(cp.Positional, p.parsePattern())
		}
		if !p.optional(',') {
			break
		}
	}
	p.next(')')
	return Pattern{Class: cp}
}

// containsYield reports whether a function body contains a `yield`, determining IsGenerator
// (spec §4.5). It finds a yield that is a whole expression statement or the whole right-hand side
// of an assignment, at the top level or inside for/while/if/try/with blocks. A yield nested inside
// a larger expression, or in a return, augmented assignment or match case body, is not detected.
func containsYield(stmts []*Statement) bool {
	for _, s := range stmts {
		switch {
		case s.Expr != nil && exprContainsYield(s.Expr):
			return true
		case s.Assign != nil && exprContainsYield(s.Assign.Value):
			return true
		case s.For != nil:
			if containsYield(s.For.Statements) || containsYield(s.For.ElseStatements) {
				return true
			}
		case s.While != nil:
			if containsYield(s.While.Statements) || containsYield(s.While.ElseStatements) {
				return true
			}
		case s.If != nil:
			if containsYield(s.If.Statements) || containsYield(s.If.ElseStatements) {
				return true
			}
			for _, e := range s.If.Elif {
				if containsYield(e.Statements) {
					return true
				}
			}
		case s.Try != nil:
			if containsYield(s.Try.Statements) || containsYield(s.Try.ElseStatements) || containsYield(s.Try.Finally) {
				return true
			}
			for _, e := range s.Try.Excepts {
				if containsYield(e.Statements) {
					return true
				}
			}
		case s.With != nil:
			if containsYield(s.With.Statements) {
				return true
			}
		}
	}
	return false
}

func exprContainsYield(e *Expression) bool {
	if e == nil || e.Val == nil {
		return false
	}
	return e.Val.Yield != nil
}
