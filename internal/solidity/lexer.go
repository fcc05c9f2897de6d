package solidity

import (
	"strings"
	"unicode/utf8"
)

// Longest operators first so the scanner can take the first prefix match.
var punctuators = []string{
	">>>=",
	">>>", "<<=", ">>=",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "++", "--", "+=", "-=", "*=", "/=", "%=",
	"|=", "&=", "^=", "<<", ">>", "**", "->", ":=",
	"(", ")", "{", "}", "[", "]", ";", ",", ".", "?", ":", "=", "+", "-", "*", "/",
	"%", "!", "~", "<", ">", "&", "|", "^", "@",
}

type lexer struct {
	src   string
	off   int
	line  int
	col   int
	diags []Diagnostic
}

func lex(src string) ([]token, []Diagnostic) {
	lx := &lexer{src: src, line: 1, col: 1}
	var toks []token
	for {
		t := lx.next()
		toks = append(toks, t)
		if t.kind == tokEOF {
			break
		}
	}
	return toks, lx.diags
}

func (lx *lexer) pos() Pos { return Pos{Offset: lx.off, Line: lx.line, Column: lx.col} }

func (lx *lexer) errorf(p Pos, msg string) {
	lx.diags = append(lx.diags, Diagnostic{Pos: p, Message: msg})
}

// advance moves n bytes forward. Columns count runes, so UTF-8
// continuation bytes do not move the column.
func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.off < len(lx.src); i++ {
		switch c := lx.src[lx.off]; {
		case c == '\n':
			lx.line++
			lx.col = 1
		case c&0xC0 != 0x80:
			lx.col++
		}
		lx.off++
	}
}

func (lx *lexer) peekByte(ahead int) byte {
	if lx.off+ahead >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+ahead]
}

// skipTrivia consumes whitespace and comments, including NatSpec.
func (lx *lexer) skipTrivia() {
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			lx.advance(1)
		case c == '/' && lx.peekByte(1) == '/':
			for lx.off < len(lx.src) && lx.src[lx.off] != '\n' {
				lx.advance(1)
			}
		case c == '/' && lx.peekByte(1) == '*':
			start := lx.pos()
			end := strings.Index(lx.src[lx.off+2:], "*/")
			if end < 0 {
				lx.errorf(start, "unterminated block comment")
				lx.advance(len(lx.src) - lx.off)
				return
			}
			lx.advance(end + 4)
		default:
			return
		}
	}
}

func (lx *lexer) next() token {
	lx.skipTrivia()
	start := lx.pos()
	if lx.off >= len(lx.src) {
		return token{kind: tokEOF, pos: start}
	}
	c := lx.src[lx.off]
	switch {
	case isIdentStart(c):
		end := lx.off
		for end < len(lx.src) && isIdentPart(lx.src[end]) {
			end++
		}
		word := lx.src[lx.off:end]
		// hex"..." and unicode"..." literals
		if (word == "hex" || word == "unicode") && end < len(lx.src) && (lx.src[end] == '"' || lx.src[end] == '\'') {
			lx.advance(len(word))
			s := lx.scanString(start)
			return token{kind: tokString, text: word + s, pos: start}
		}
		lx.advance(len(word))
		return token{kind: tokIdent, text: word, pos: start}
	case isDigit(c) || (c == '.' && isDigit(lx.peekByte(1))):
		return token{kind: tokNumber, text: lx.scanNumber(), pos: start}
	case c == '"' || c == '\'':
		return token{kind: tokString, text: lx.scanString(start), pos: start}
	}
	for _, p := range punctuators {
		if strings.HasPrefix(lx.src[lx.off:], p) {
			lx.advance(len(p))
			return token{kind: tokPunct, text: p, pos: start}
		}
	}
	_, size := utf8.DecodeRuneInString(lx.src[lx.off:])
	text := lx.src[lx.off : lx.off+size]
	lx.advance(size)
	lx.errorf(start, "unexpected character '"+text+"'")
	return token{kind: tokIllegal, text: text, pos: start}
}

func (lx *lexer) scanNumber() string {
	begin := lx.off
	if lx.src[lx.off] == '0' && (lx.peekByte(1) == 'x' || lx.peekByte(1) == 'X') {
		lx.advance(2)
		for lx.off < len(lx.src) && (isHexDigit(lx.src[lx.off]) || lx.src[lx.off] == '_') {
			lx.advance(1)
		}
		return lx.src[begin:lx.off]
	}
	for lx.off < len(lx.src) && (isDigit(lx.src[lx.off]) || lx.src[lx.off] == '_') {
		lx.advance(1)
	}
	if lx.peekByte(0) == '.' && isDigit(lx.peekByte(1)) {
		lx.advance(1)
		for lx.off < len(lx.src) && (isDigit(lx.src[lx.off]) || lx.src[lx.off] == '_') {
			lx.advance(1)
		}
	}
	if e := lx.peekByte(0); e == 'e' || e == 'E' {
		n := 1
		if s := lx.peekByte(1); s == '-' || s == '+' {
			n = 2
		}
		if isDigit(lx.peekByte(n)) {
			lx.advance(n)
			for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
				lx.advance(1)
			}
		}
	}
	return lx.src[begin:lx.off]
}

// scanString consumes a quoted literal. An unterminated literal ends at the
// line break and is reported.
func (lx *lexer) scanString(start Pos) string {
	quote := lx.src[lx.off]
	begin := lx.off
	lx.advance(1)
	for lx.off < len(lx.src) {
		c := lx.src[lx.off]
		switch {
		case c == '\\':
			lx.advance(2)
		case c == quote:
			lx.advance(1)
			return lx.src[begin:lx.off]
		case c == '\n':
			lx.errorf(start, "unterminated string literal")
			return lx.src[begin:lx.off]
		default:
			lx.advance(1)
		}
	}
	lx.errorf(start, "unterminated string literal")
	return lx.src[begin:lx.off]
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
