package solidity

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// DefaultMaxErrors bounds recoverable diagnostics before a parse is abandoned.
const DefaultMaxErrors = 200

// MaxDepth bounds how deeply statements, expressions and types may nest.
// Deeper input is rejected with a *FatalError.
const MaxDepth = 1000

// Options tunes the tolerant parser.
type Options struct {
	// MaxErrors is the diagnostic count above which the input is treated as
	// unparseable. Zero means DefaultMaxErrors.
	MaxErrors int
}

// FatalError reports input the parser could not turn into a usable tree.
// Recoverable problems never produce one; they become Diagnostics.
type FatalError struct {
	File string
	Pos  Pos
	Msg  string
}

func (e *FatalError) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%s:%s: %s", e.File, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

// Parse builds a best-effort syntax tree. Local syntax errors are recorded as
// Diagnostics and KindError nodes; only input that yields no usable tree
// returns a *FatalError.
func Parse(file, src string, opts Options) (*Tree, error) {
	if i := strings.IndexByte(src, 0); i >= 0 {
		return nil, &FatalError{File: file, Msg: "input contains NUL bytes; not Solidity source text"}
	}
	if !utf8.ValidString(src) {
		return nil, &FatalError{File: file, Msg: "input is not valid UTF-8"}
	}
	max := opts.MaxErrors
	if max <= 0 {
		max = DefaultMaxErrors
	}
	toks, lexDiags := lex(src)
	p := &parser{src: src, toks: toks, max: max}
	for _, d := range lexDiags {
		p.diag(d)
	}
	root := p.parseSourceUnit()
	sort.SliceStable(p.diags, func(i, j int) bool { return p.diags[i].Pos.Offset < p.diags[j].Pos.Offset })

	if p.tooDeep {
		return nil, &FatalError{File: file, Pos: p.deepPos,
			Msg: fmt.Sprintf("nesting exceeds %d levels", MaxDepth)}
	}
	if p.aborted {
		return nil, &FatalError{File: file, Pos: p.diags[0].Pos,
			Msg: fmt.Sprintf("too many syntax errors (more than %d), first: %s", max, p.diags[0].Message)}
	}
	if len(p.diags) > 0 && p.units == 0 && len(toks) > 1 {
		return nil, &FatalError{File: file, Pos: p.diags[0].Pos,
			Msg: "no recognisable declarations: " + p.diags[0].Message}
	}
	return &Tree{File: file, Root: root, Diagnostics: p.diags}, nil
}

type parser struct {
	src     string
	toks    []token
	pos     int
	diags   []Diagnostic
	max     int
	aborted bool
	units   int

	depth   int
	tooDeep bool
	deepPos Pos
}

type mark struct {
	pos     int
	ndiags  int
	aborted bool
}

func (p *parser) mark() mark { return mark{pos: p.pos, ndiags: len(p.diags), aborted: p.aborted} }

// reset rewinds a speculative parse, discarding its diagnostics. Exceeding
// MaxDepth is never rewound.
func (p *parser) reset(m mark) {
	p.pos = m.pos
	p.diags = p.diags[:m.ndiags]
	p.aborted = m.aborted || p.tooDeep
}

// enter descends one nesting level. Every call must be paired with leave;
// false means the input nests past MaxDepth and parsing stops.
func (p *parser) enter() bool {
	p.depth++
	if p.depth <= MaxDepth {
		return true
	}
	if !p.tooDeep {
		p.tooDeep = true
		p.deepPos = p.tok().pos
	}
	p.aborted = true
	return false
}

func (p *parser) leave() { p.depth-- }

func (p *parser) peekN(n int) token {
	last := p.toks[len(p.toks)-1]
	if p.aborted || p.pos+n >= len(p.toks) {
		return last
	}
	return p.toks[p.pos+n]
}

func (p *parser) tok() token { return p.peekN(0) }

func (p *parser) next() token {
	t := p.tok()
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) eof() bool { return p.tok().kind == tokEOF }

func (p *parser) isN(n int, text string) bool {
	t := p.peekN(n)
	return (t.kind == tokPunct || t.kind == tokIdent) && t.text == text
}

func (p *parser) is(text string) bool { return p.isN(0, text) }

func (p *parser) isIdent() bool { return p.tok().kind == tokIdent }

func (p *parser) accept(text string) bool {
	if p.is(text) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(text string) bool {
	if p.accept(text) {
		return true
	}
	p.errorf(p.tok().pos, "expected '%s', found %s", text, p.tok().describe())
	return false
}

func (p *parser) expectSemi() { p.expect(";") }

func (p *parser) errorf(pos Pos, format string, args ...any) {
	// one diagnostic per position is enough
	if n := len(p.diags); n > 0 && p.diags[n-1].Pos.Offset == pos.Offset {
		return
	}
	p.diag(Diagnostic{Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (p *parser) diag(d Diagnostic) {
	if p.aborted {
		return
	}
	p.diags = append(p.diags, d)
	if len(p.diags) > p.max {
		p.aborted = true
	}
}

// text returns the raw source spanned by tokens [from, to).
func (p *parser) text(from, to int) string {
	if from >= to || to > len(p.toks) {
		return ""
	}
	last := p.toks[to-1]
	return strings.TrimSpace(p.src[p.toks[from].pos.Offset : last.pos.Offset+len(last.text)])
}

// skipBalanced consumes a bracketed region starting at the open token.
func (p *parser) skipBalanced(open, close string) {
	depth := 0
	for !p.eof() {
		switch {
		case p.is(open):
			depth++
		case p.is(close):
			depth--
		}
		p.next()
		if depth <= 0 {
			return
		}
	}
}

// skipUntil consumes tokens until stop reports true at bracket depth zero.
func (p *parser) skipUntil(stop func() bool) {
	for !p.eof() && !stop() {
		switch {
		case p.is("("):
			p.skipBalanced("(", ")")
		case p.is("["):
			p.skipBalanced("[", "]")
		case p.is("{"):
			p.skipBalanced("{", "}")
		default:
			p.next()
		}
	}
}

// recoverTo skips a malformed region and returns it as an error node. It always
// consumes at least one token; a ';' ends the region and is consumed with it.
func (p *parser) recoverTo(stop func() bool) *Node {
	n := newNode(KindError, p.tok().pos)
	for first := true; !p.eof(); first = false {
		if !first && stop() {
			break
		}
		switch {
		case p.is("{"):
			p.skipBalanced("{", "}")
		case p.is("("):
			p.skipBalanced("(", ")")
		case p.is("["):
			p.skipBalanced("[", "]")
		case p.is(";"):
			p.next()
			return n
		default:
			p.next()
		}
	}
	return n
}

// list parses open elem (',' elem)* close with separator-level recovery.
func (p *parser) list(open, close string, elem func() *Node) []*Node {
	if !p.expect(open) {
		return nil
	}
	var out []*Node
	for !p.eof() && !p.is(close) {
		if n := elem(); n != nil {
			out = append(out, n)
		}
		if p.accept(",") {
			continue
		}
		if p.is(close) {
			break
		}
		p.errorf(p.tok().pos, "expected ',' or '%s', found %s", close, p.tok().describe())
		p.skipUntil(func() bool { return p.is(",") || p.is(close) || p.is(";") || p.is("}") })
		if !p.accept(",") {
			break
		}
	}
	p.expect(close)
	return out
}

var topLevelKeywords = map[string]bool{
	"pragma": true, "import": true, "abstract": true, "contract": true, "interface": true,
	"library": true, "function": true, "struct": true, "enum": true, "event": true, "using": true,
}

func (p *parser) atTopLevelKeyword() bool {
	return p.isIdent() && topLevelKeywords[p.tok().text]
}

func (p *parser) parseSourceUnit() *Node {
	root := newNode(KindSourceUnit, Pos{Line: 1, Column: 1})
	for !p.eof() {
		start, before := p.pos, len(p.diags)
		n := p.parseTopLevel()
		if n != nil {
			root.add(n)
			// a stray "word word" line parses as a file-level variable; only
			// count it as recognised when it parsed cleanly
			if n.Kind != KindVariableDeclaration || len(p.diags) == before {
				p.units++
			}
		}
		if p.pos == start {
			p.errorf(p.tok().pos, "unexpected %s at top level", p.tok().describe())
			root.add(p.recoverTo(p.atTopLevelKeyword))
		}
	}
	return root
}

func (p *parser) parseTopLevel() *Node {
	switch {
	case p.is("pragma"):
		return p.parseDirective(KindPragma)
	case p.is("import"):
		return p.parseDirective(KindImport)
	case p.is("abstract"), p.is("contract"), p.is("interface"), p.is("library"):
		return p.parseContract()
	case p.is(";"):
		p.next()
		return nil
	}
	if n, ok := p.parseSharedMember(); ok {
		return n
	}
	if p.startsType() {
		return p.parseStateVariable()
	}
	return nil
}

// parseSharedMember handles definitions allowed both at file level and inside
// contracts.
func (p *parser) parseSharedMember() (*Node, bool) {
	switch {
	case p.is("function"):
		return p.parseFunction(), true
	case p.is("struct"):
		return p.parseStruct(), true
	case p.is("enum"):
		return p.parseEnum(), true
	case p.is("event"):
		return p.parseEvent(), true
	case p.is("error") && p.peekN(1).kind == tokIdent && p.isN(2, "("):
		return p.parseErrorDefinition(), true
	case p.is("using"):
		return p.parseDirective(KindUsing), true
	case p.is("type") && p.peekN(1).kind == tokIdent && p.isN(2, "is"):
		return p.parseTypeDefinition(), true
	}
	return nil, false
}

// parseDirective covers pragma, import and using: keyword, free text, ';'.
func (p *parser) parseDirective(kind NodeKind) *Node {
	n := newNode(kind, p.tok().pos)
	p.next()
	from := p.pos
	for !p.eof() && !p.is(";") && !p.atTopLevelKeyword() {
		if kind == KindImport && n.Name == "" && p.tok().kind == tokString {
			n.Name = strings.Trim(p.tok().text, `"'`)
		}
		if p.is("{") {
			p.skipBalanced("{", "}")
			continue
		}
		p.next()
	}
	n.Value = p.text(from, p.pos)
	p.expectSemi()
	return n
}

func (p *parser) parseContract() *Node {
	n := newNode(KindContract, p.tok().pos)
	if p.accept("abstract") {
		n.Value = "abstract "
	}
	n.Value += p.next().text
	if p.isIdent() {
		n.Name = p.next().text
	} else {
		p.errorf(p.tok().pos, "expected %s name, found %s", n.Value, p.tok().describe())
	}
	if p.accept("is") {
		for !p.eof() {
			start := p.pos
			n.add(p.parseInheritanceSpecifier())
			if p.pos == start || !p.accept(",") {
				break
			}
		}
	}
	if !p.is("{") {
		p.errorf(p.tok().pos, "expected '{', found %s", p.tok().describe())
		p.skipUntil(func() bool { return p.is("{") || p.atTopLevelKeyword() })
		if !p.is("{") {
			return n
		}
	}
	p.next()
	for !p.eof() && !p.is("}") {
		start := p.pos
		if m := p.parseContractMember(); m != nil {
			n.add(m)
		}
		if p.pos == start {
			p.errorf(p.tok().pos, "unexpected %s in %s body", p.tok().describe(), n.Value)
			n.add(p.recoverTo(p.atMemberBoundary))
		}
	}
	p.expect("}")
	return n
}

var memberKeywords = map[string]bool{
	"function": true, "constructor": true, "modifier": true, "fallback": true, "receive": true,
	"event": true, "struct": true, "enum": true, "using": true, "mapping": true,
}

func (p *parser) atMemberBoundary() bool {
	return p.is("}") || (p.isIdent() && (memberKeywords[p.tok().text] || isElementaryTypeName(p.tok().text)))
}

func (p *parser) parseInheritanceSpecifier() *Node {
	n := newNode(KindModifierInvocation, p.tok().pos)
	n.Value = "base"
	t := p.parseUserTypePath()
	if t == nil {
		return nil
	}
	n.Name = t.Name
	n.setType(t)
	if p.is("(") {
		n.add(p.list("(", ")", p.parseExpression)...)
	}
	return n
}

func (p *parser) parseContractMember() *Node {
	switch {
	case p.is("constructor"), p.is("modifier"),
		p.is("fallback") && p.isN(1, "("), p.is("receive") && p.isN(1, "("):
		return p.parseFunction()
	case p.is(";"):
		p.next()
		return nil
	}
	if n, ok := p.parseSharedMember(); ok {
		return n
	}
	if p.startsType() {
		return p.parseStateVariable()
	}
	return nil
}

var functionAttributes = map[string]bool{
	"public": true, "private": true, "internal": true, "external": true,
	"pure": true, "view": true, "payable": true, "constant": true, "virtual": true, "immutable": true,
}

func (p *parser) parseFunction() *Node {
	n := newNode(KindFunction, p.tok().pos)
	kw := p.next().text
	n.Value = kw
	switch kw {
	case "function", "modifier":
		if p.isIdent() {
			n.Name = p.next().text
		}
	default:
		n.Name = kw
	}
	if p.is("(") {
		n.add(p.list("(", ")", p.paramParser("parameter"))...)
	}
	for !p.eof() && !p.is("{") && !p.is(";") {
		switch {
		case p.is("returns"):
			p.next()
			n.add(p.list("(", ")", p.paramParser("return"))...)
		case p.is("override"):
			p.next()
			if p.is("(") {
				p.skipBalanced("(", ")")
			}
		case p.isIdent() && functionAttributes[p.tok().text]:
			p.next()
		case p.isIdent() && !keywords[p.tok().text]:
			n.add(p.parseModifierInvocation())
		default:
			p.errorf(p.tok().pos, "unexpected %s in function header", p.tok().describe())
			p.skipUntil(func() bool { return p.is("{") || p.is(";") || p.is("}") || p.atTopLevelKeyword() })
			if !p.is("{") && !p.is(";") {
				return n
			}
		}
	}
	if p.accept(";") {
		return n
	}
	if p.is("{") {
		n.add(p.parseBlock())
	}
	return n
}

func (p *parser) parseModifierInvocation() *Node {
	n := newNode(KindModifierInvocation, p.tok().pos)
	t := p.parseUserTypePath()
	if t == nil {
		return nil
	}
	n.Name = t.Name
	if p.is("(") {
		n.add(p.list("(", ")", p.parseExpression)...)
	}
	return n
}

func (p *parser) paramParser(scope string) func() *Node {
	return func() *Node { return p.parseParameter(scope) }
}

// parseParameter parses type [location|indexed] [name]. Unnamed parameters are
// kept with an empty Name.
func (p *parser) parseParameter(scope string) *Node {
	n := newNode(KindVariableDeclaration, p.tok().pos)
	n.Value = scope
	t := p.parseTypeName()
	if t == nil {
		return nil
	}
	n.setType(t)
	for p.is("memory") || p.is("storage") || p.is("calldata") || p.is("indexed") {
		p.next()
	}
	if p.isIdent() && !keywords[p.tok().text] {
		n.Name = p.next().text
	}
	return n
}

func (p *parser) parseEvent() *Node {
	n := newNode(KindEvent, p.tok().pos)
	p.next()
	if p.isIdent() {
		n.Name = p.next().text
	}
	n.add(p.list("(", ")", p.paramParser("event"))...)
	p.accept("anonymous")
	p.expectSemi()
	return n
}

func (p *parser) parseErrorDefinition() *Node {
	n := newNode(KindErrorDefinition, p.tok().pos)
	p.next()
	n.Name = p.next().text
	n.add(p.list("(", ")", p.paramParser("error"))...)
	p.expectSemi()
	return n
}

func (p *parser) parseStruct() *Node {
	n := newNode(KindStruct, p.tok().pos)
	p.next()
	if p.isIdent() {
		n.Name = p.next().text
	}
	if !p.expect("{") {
		return n
	}
	for !p.eof() && !p.is("}") {
		start := p.pos
		if m := p.parseParameter("member"); m != nil {
			n.add(m)
			p.expectSemi()
		}
		if p.pos == start {
			n.add(p.recoverTo(func() bool { return p.is("}") }))
		}
	}
	p.expect("}")
	return n
}

func (p *parser) parseEnum() *Node {
	n := newNode(KindEnum, p.tok().pos)
	p.next()
	if p.isIdent() {
		n.Name = p.next().text
	}
	n.add(p.list("{", "}", func() *Node {
		if !p.isIdent() {
			p.errorf(p.tok().pos, "expected enum value, found %s", p.tok().describe())
			return nil
		}
		t := p.next()
		return &Node{Kind: KindEnumValue, Name: t.text, Pos: t.pos}
	})...)
	return n
}

func (p *parser) parseTypeDefinition() *Node {
	n := newNode(KindTypeDefinition, p.tok().pos)
	p.next()
	n.Name = p.next().text
	p.next() // is
	n.setType(p.parseTypeName())
	p.expectSemi()
	return n
}

var stateVariableAttributes = map[string]bool{
	"public": true, "private": true, "internal": true, "external": true,
	"constant": true, "immutable": true,
}

func (p *parser) parseStateVariable() *Node {
	n := newNode(KindVariableDeclaration, p.tok().pos)
	n.Value = "state"
	t := p.parseTypeName()
	if t == nil {
		return nil
	}
	n.setType(t)
	for !p.eof() {
		switch {
		case p.isIdent() && stateVariableAttributes[p.tok().text]:
			p.next()
			continue
		case p.is("transient") && p.peekN(1).kind == tokIdent:
			p.next()
			continue
		case p.is("override"):
			p.next()
			if p.is("(") {
				p.skipBalanced("(", ")")
			}
			continue
		}
		break
	}
	if p.isIdent() && !keywords[p.tok().text] {
		n.Name = p.next().text
	} else {
		p.errorf(p.tok().pos, "expected variable name, found %s", p.tok().describe())
	}
	if p.accept("=") {
		n.add(p.parseExpression())
	}
	p.expectSemi()
	return n
}
