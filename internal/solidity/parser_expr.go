package solidity

import "strings"

// keywords cannot start a type or name a declaration.
var keywords = map[string]bool{
	"abstract": true, "anonymous": true, "as": true, "assembly": true, "break": true,
	"calldata": true, "catch": true, "constant": true, "constructor": true, "continue": true,
	"contract": true, "delete": true, "do": true, "else": true, "emit": true, "enum": true,
	"event": true, "external": true, "false": true, "for": true, "function": true, "if": true,
	"immutable": true, "import": true, "indexed": true, "interface": true, "internal": true,
	"is": true, "library": true, "mapping": true, "memory": true, "modifier": true, "new": true,
	"override": true, "payable": true, "pragma": true, "private": true, "public": true,
	"pure": true, "return": true, "returns": true, "storage": true, "struct": true, "throw": true,
	"true": true, "try": true, "unchecked": true, "using": true, "view": true, "virtual": true,
	"while": true,
}

var etherUnits = map[string]bool{
	"wei": true, "gwei": true, "szabo": true, "finney": true, "ether": true,
	"seconds": true, "minutes": true, "hours": true, "days": true, "weeks": true, "years": true,
}

var assignmentOperators = map[string]bool{
	"=": true, "|=": true, "^=": true, "&=": true, "<<=": true, ">>=": true, ">>>=": true,
	"+=": true, "-=": true, "*=": true, "/=": true, "%=": true,
}

var binaryPrecedence = map[string]int{
	"||": 1,
	"&&": 2,
	"==": 3, "!=": 3,
	"<": 4, ">": 4, "<=": 4, ">=": 4,
	"|":  5,
	"^":  6,
	"&":  7,
	"<<": 8, ">>": 8, ">>>": 8,
	"+": 9, "-": 9,
	"*": 10, "/": 10, "%": 10,
	"**": 11,
}

// IsElementaryTypeName reports whether s names a built-in value type such as
// address, bool, bytes, bytes32 or uint256.
func IsElementaryTypeName(s string) bool { return isElementaryTypeName(s) }

func isElementaryTypeName(s string) bool {
	switch s {
	case "address", "bool", "string", "bytes", "byte", "int", "uint", "fixed", "ufixed":
		return true
	}
	for _, prefix := range []string{"uint", "int", "bytes"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok && rest != "" && allDigits(rest) {
			return true
		}
	}
	for _, prefix := range []string{"ufixed", "fixed"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			m, n, found := strings.Cut(rest, "x")
			return found && m != "" && n != "" && allDigits(m) && allDigits(n)
		}
	}
	return false
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func (p *parser) startsType() bool {
	if !p.isIdent() {
		return false
	}
	t := p.tok().text
	return !keywords[t] || t == "mapping" || (t == "function" && p.isN(1, "("))
}

// parseTypeName parses a type including array suffixes. It reports and
// returns nil when no type starts here.
func (p *parser) parseTypeName() *Node {
	defer p.leave()
	if !p.enter() {
		return nil
	}
	t := p.tok()
	var n *Node
	switch {
	case p.is("mapping"):
		n = p.parseMapping()
	case p.is("function") && p.isN(1, "("):
		n = p.parseFunctionType()
	case t.kind == tokIdent && isElementaryTypeName(t.text):
		p.next()
		n = &Node{Kind: KindElementaryType, Name: t.text, Pos: t.pos}
		if t.text == "address" && p.accept("payable") {
			n.Value = "payable"
		}
	case t.kind == tokIdent && !keywords[t.text]:
		n = p.parseUserTypePath()
	default:
		p.errorf(t.pos, "expected type name, found %s", t.describe())
		return nil
	}
	for p.is("[") {
		arr := newNode(KindArrayType, p.tok().pos)
		p.next()
		arr.setType(n)
		if !p.is("]") {
			arr.add(p.parseExpression())
		}
		p.expect("]")
		n = arr
	}
	return n
}

// parseUserTypePath parses Name(.Name)*.
func (p *parser) parseUserTypePath() *Node {
	if !p.isIdent() {
		p.errorf(p.tok().pos, "expected type name, found %s", p.tok().describe())
		return nil
	}
	t := p.next()
	n := &Node{Kind: KindUserType, Name: t.text, Pos: t.pos}
	for p.is(".") && p.peekN(1).kind == tokIdent {
		p.next()
		n.Name += "." + p.next().text
	}
	return n
}

func (p *parser) parseMapping() *Node {
	n := newNode(KindMapping, p.tok().pos)
	p.next()
	p.expect("(")
	n.add(p.parseTypeName())
	if p.isIdent() && !p.is("=>") {
		p.next() // named key
	}
	p.expect("=>")
	n.add(p.parseTypeName())
	if p.isIdent() {
		p.next() // named value
	}
	p.expect(")")
	return n
}

func (p *parser) parseFunctionType() *Node {
	n := newNode(KindFunctionType, p.tok().pos)
	p.next()
	n.add(p.list("(", ")", p.paramParser("parameter"))...)
	for p.isIdent() && functionAttributes[p.tok().text] {
		p.next()
	}
	if p.accept("returns") {
		n.add(p.list("(", ")", p.paramParser("return"))...)
	}
	return n
}

func (p *parser) parseExpression() *Node { return p.parseAssignment() }

func (p *parser) parseAssignment() *Node {
	defer p.leave()
	if !p.enter() {
		return nil
	}
	left := p.parseConditional()
	if left == nil {
		return nil
	}
	if t := p.tok(); t.kind == tokPunct && assignmentOperators[t.text] {
		p.next()
		n := newNode(KindAssignment, left.Pos)
		n.Value = t.text
		n.add(left, p.parseAssignment())
		return n
	}
	return left
}

func (p *parser) parseConditional() *Node {
	cond := p.parseBinary(0)
	if cond == nil || !p.is("?") {
		return cond
	}
	p.next()
	n := newNode(KindConditional, cond.Pos)
	n.add(cond, p.parseAssignment())
	p.expect(":")
	n.add(p.parseAssignment())
	return n
}

// parseBinary is precedence climbing; ** is right associative.
func (p *parser) parseBinary(minPrec int) *Node {
	defer p.leave()
	if !p.enter() {
		return nil
	}
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		t := p.tok()
		prec, ok := binaryPrecedence[t.text]
		if t.kind != tokPunct || !ok || prec <= minPrec {
			return left
		}
		p.next()
		rightMin := prec
		if t.text == "**" {
			rightMin = prec - 1
		}
		n := newNode(KindBinary, left.Pos)
		n.Value = t.text
		n.add(left, p.parseBinary(rightMin))
		left = n
	}
}

func (p *parser) parseUnary() *Node {
	defer p.leave()
	if !p.enter() {
		return nil
	}
	t := p.tok()
	if (t.kind == tokPunct && (t.text == "!" || t.text == "~" || t.text == "-" || t.text == "+" ||
		t.text == "++" || t.text == "--")) || p.is("delete") {
		p.next()
		n := newNode(KindUnary, t.pos)
		n.Value = t.text
		n.add(p.parseUnary())
		return n
	}
	return p.parsePostfix(p.parsePrimary())
}

func (p *parser) atCallOptions() bool {
	return p.is("{") && p.peekN(1).kind == tokIdent && p.isN(2, ":")
}

func (p *parser) parsePostfix(e *Node) *Node {
	if e == nil {
		return nil
	}
	for {
		switch {
		case p.is("("):
			call := newNode(KindFunctionCall, e.Pos)
			call.setCallee(e)
			p.parseCallArguments(call)
			e = call
		case p.is("."):
			m := newNode(KindMemberAccess, e.Pos)
			p.next()
			m.add(e)
			if p.isIdent() {
				m.Name = p.next().text
			} else {
				p.errorf(p.tok().pos, "expected member name, found %s", p.tok().describe())
			}
			e = m
		case p.is("["):
			ix := newNode(KindIndexAccess, e.Pos)
			p.next()
			ix.add(e)
			if !p.is("]") && !p.is(":") {
				ix.add(p.parseExpression())
			}
			if p.accept(":") {
				ix.Kind = KindIndexRange
				if !p.is("]") {
					ix.add(p.parseExpression())
				}
			}
			p.expect("]")
			e = ix
		case p.atCallOptions():
			opts := newNode(KindCallOptions, e.Pos)
			opts.add(e)
			opts.add(p.list("{", "}", p.parseNamedArgument)...)
			e = opts
		case p.is("++"), p.is("--"):
			u := newNode(KindUnary, e.Pos)
			u.Value = p.next().text
			u.Name = "postfix"
			u.add(e)
			e = u
		default:
			return e
		}
	}
}

func (p *parser) parseCallArguments(call *Node) {
	if p.isN(1, "{") {
		p.expect("(")
		call.add(p.list("{", "}", p.parseNamedArgument)...)
		p.expect(")")
		return
	}
	call.add(p.list("(", ")", p.parseExpression)...)
}

func (p *parser) parseNamedArgument() *Node {
	if !p.isIdent() || !p.isN(1, ":") {
		p.errorf(p.tok().pos, "expected named argument, found %s", p.tok().describe())
		return nil
	}
	t := p.next()
	p.next()
	n := &Node{Kind: KindNamedArgument, Name: t.text, Pos: t.pos}
	n.add(p.parseExpression())
	return n
}

func (p *parser) parsePrimary() *Node {
	t := p.tok()
	switch t.kind {
	case tokNumber:
		p.next()
		n := &Node{Kind: KindLiteral, Value: t.text, Pos: t.pos}
		if p.isIdent() && etherUnits[p.tok().text] {
			n.Value += " " + p.next().text
		}
		return n
	case tokString:
		p.next()
		n := &Node{Kind: KindLiteral, Value: t.text, Pos: t.pos}
		for p.tok().kind == tokString {
			n.Value += " " + p.next().text
		}
		return n
	case tokIdent:
		switch {
		case t.text == "true" || t.text == "false":
			p.next()
			return &Node{Kind: KindLiteral, Value: t.text, Pos: t.pos}
		case t.text == "new":
			p.next()
			n := newNode(KindNew, t.pos)
			n.setType(p.parseTypeName())
			return n
		case isElementaryTypeName(t.text):
			p.next()
			n := &Node{Kind: KindElementaryType, Name: t.text, Pos: t.pos}
			if t.text == "address" && p.is("payable") {
				p.next()
				n.Value = "payable"
			}
			return n
		case t.text == "payable" || t.text == "mapping" || !keywords[t.text]:
			p.next()
			return &Node{Kind: KindIdentifier, Name: t.text, Pos: t.pos}
		}
	case tokPunct:
		switch t.text {
		case "(":
			return p.parseTuple()
		case "[":
			n := newNode(KindArrayLiteral, t.pos)
			n.add(p.list("[", "]", p.parseExpression)...)
			return n
		}
	}
	p.errorf(t.pos, "expected expression, found %s", t.describe())
	return nil
}

// parseTuple covers parenthesised expressions and tuples with empty slots.
func (p *parser) parseTuple() *Node {
	n := newNode(KindTuple, p.tok().pos)
	p.next()
	for !p.eof() && !p.is(")") {
		if p.accept(",") {
			continue
		}
		start := p.pos
		n.add(p.parseExpression())
		if p.pos == start || (!p.is(",") && !p.is(")")) {
			break
		}
	}
	p.expect(")")
	return n
}
