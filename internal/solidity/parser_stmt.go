package solidity

func (p *parser) parseBlock() *Node {
	n := newNode(KindBlock, p.tok().pos)
	if !p.expect("{") {
		return n
	}
	for !p.eof() && !p.is("}") {
		start := p.pos
		if s := p.parseStatement(); s != nil {
			n.add(s)
		}
		if p.pos == start {
			p.errorf(p.tok().pos, "unexpected %s in block", p.tok().describe())
			n.add(p.recoverTo(func() bool { return p.is("}") }))
		}
	}
	p.expect("}")
	return n
}

func (p *parser) parseStatement() *Node {
	defer p.leave()
	if !p.enter() {
		return nil
	}
	pos := p.tok().pos
	switch {
	case p.is("{"):
		return p.parseBlock()
	case p.is(";"):
		p.next()
		return newNode(KindEmpty, pos)
	case p.is("if"):
		return p.parseIf()
	case p.is("for"):
		return p.parseFor()
	case p.is("while"):
		n := newNode(KindWhile, pos)
		p.next()
		n.add(p.parseCondition())
		n.add(p.parseStatement())
		return n
	case p.is("do"):
		n := newNode(KindDoWhile, pos)
		p.next()
		n.add(p.parseStatement())
		p.expect("while")
		n.add(p.parseCondition())
		p.expectSemi()
		return n
	case p.is("return"):
		n := newNode(KindReturn, pos)
		p.next()
		if !p.is(";") {
			n.add(p.parseExpression())
		}
		p.expectSemi()
		return n
	case p.is("emit"):
		n := newNode(KindEmit, pos)
		p.next()
		n.add(p.parseExpression())
		p.expectSemi()
		return n
	case p.is("revert") && p.peekN(1).kind == tokIdent:
		// revert CustomError(...); plain revert("...") is an ordinary call
		n := newNode(KindRevert, pos)
		p.next()
		n.add(p.parseExpression())
		p.expectSemi()
		return n
	case p.is("try"):
		return p.parseTry()
	case p.is("assembly"):
		return p.parseAssembly()
	case p.is("unchecked") && p.isN(1, "{"):
		n := newNode(KindUnchecked, pos)
		p.next()
		n.add(p.parseBlock())
		return n
	case p.is("break"), p.is("continue"), p.is("throw"):
		n := newNode(KindJump, pos)
		n.Value = p.next().text
		p.expectSemi()
		return n
	}
	if n := p.tryVariableStatement(); n != nil {
		return n
	}
	return p.parseExpressionStatement()
}

func (p *parser) parseCondition() *Node {
	p.expect("(")
	e := p.parseExpression()
	p.expect(")")
	return e
}

func (p *parser) parseIf() *Node {
	n := newNode(KindIf, p.tok().pos)
	p.next()
	n.add(p.parseCondition())
	n.add(p.parseStatement())
	if p.accept("else") {
		n.add(p.parseStatement())
	}
	return n
}

func (p *parser) parseFor() *Node {
	n := newNode(KindFor, p.tok().pos)
	p.next()
	p.expect("(")
	switch {
	case p.accept(";"):
	default:
		if v := p.tryVariableStatement(); v != nil {
			n.add(v)
		} else {
			n.add(p.parseExpressionStatement())
		}
	}
	if !p.is(";") {
		n.add(p.parseExpression())
	}
	p.expectSemi()
	if !p.is(")") {
		n.add(p.parseExpression())
	}
	p.expect(")")
	n.add(p.parseStatement())
	return n
}

func (p *parser) parseExpressionStatement() *Node {
	pos := p.tok().pos
	e := p.parseExpression()
	if e == nil {
		return nil
	}
	n := newNode(KindExpressionStatement, pos)
	n.add(e)
	p.expectSemi()
	return n
}

func (p *parser) atStorageLocation() bool {
	return p.is("memory") || p.is("storage") || p.is("calldata")
}

// tryVariableStatement speculatively parses a local declaration. It rewinds
// and returns nil when the tokens turn out to be an expression.
func (p *parser) tryVariableStatement() *Node {
	if p.is("(") {
		return p.tryTupleDeclaration()
	}
	if !p.startsType() {
		return nil
	}
	m := p.mark()
	n := newNode(KindVariableStatement, p.tok().pos)
	decl := newNode(KindVariableDeclaration, p.tok().pos)
	decl.Value = "local"
	t := p.parseTypeName()
	if t == nil {
		p.reset(m)
		return nil
	}
	decl.setType(t)
	for p.atStorageLocation() {
		p.next()
	}
	if !p.isIdent() || keywords[p.tok().text] {
		p.reset(m)
		return nil
	}
	decl.Name = p.next().text
	n.add(decl)
	if p.accept("=") {
		n.add(p.parseExpression())
	}
	p.expectSemi()
	return n
}

// tryTupleDeclaration handles (T a, , U b) = expr;
func (p *parser) tryTupleDeclaration() *Node {
	m := p.mark()
	n := newNode(KindVariableStatement, p.tok().pos)
	p.next()
	declared := false
	for !p.is(")") {
		if p.accept(",") {
			continue
		}
		if !p.startsType() {
			p.reset(m)
			return nil
		}
		decl := newNode(KindVariableDeclaration, p.tok().pos)
		decl.Value = "local"
		t := p.parseTypeName()
		if t == nil {
			p.reset(m)
			return nil
		}
		decl.setType(t)
		for p.atStorageLocation() {
			p.next()
		}
		if !p.isIdent() || keywords[p.tok().text] {
			p.reset(m)
			return nil
		}
		decl.Name = p.next().text
		n.add(decl)
		declared = true
		if !p.is(",") && !p.is(")") {
			p.reset(m)
			return nil
		}
	}
	p.next()
	if !declared || !p.is("=") {
		p.reset(m)
		return nil
	}
	p.next()
	n.add(p.parseExpression())
	p.expectSemi()
	return n
}

func (p *parser) parseTry() *Node {
	n := newNode(KindTry, p.tok().pos)
	p.next()
	n.add(p.parseExpression())
	if p.accept("returns") {
		n.add(p.list("(", ")", p.paramParser("return"))...)
	}
	if p.is("{") {
		n.add(p.parseBlock())
	} else {
		p.errorf(p.tok().pos, "expected '{' after try expression, found %s", p.tok().describe())
	}
	for p.is("catch") {
		c := newNode(KindCatch, p.tok().pos)
		p.next()
		if p.isIdent() {
			c.Name = p.next().text
		}
		if p.is("(") {
			c.add(p.list("(", ")", p.paramParser("parameter"))...)
		}
		if p.is("{") {
			c.add(p.parseBlock())
		} else {
			p.errorf(p.tok().pos, "expected '{' after catch, found %s", p.tok().describe())
		}
		n.add(c)
	}
	return n
}

// parseAssembly skips an inline assembly block. Yul bodies are not analysed.
func (p *parser) parseAssembly() *Node {
	n := newNode(KindAssembly, p.tok().pos)
	p.next()
	if p.tok().kind == tokString {
		n.Value = p.next().text
	}
	if p.is("(") {
		p.skipBalanced("(", ")")
	}
	if p.is("{") {
		p.skipBalanced("{", "}")
	} else {
		p.errorf(p.tok().pos, "expected '{' after assembly, found %s", p.tok().describe())
	}
	return n
}
