package parser

import (
	"strings"

	"github.com/tuannm99/novalite/internal/dberr"
)

// Lexer tokenizes SQL input.
type Lexer struct {
	input   string
	pos     int  // current position in input
	readPos int  // reading position (after current char)
	ch      byte // current char under examination
	line    int  // current line number (1-based)
	col     int  // current column number (1-based)

	err error
}

// NewLexer creates a new Lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

// Err returns the first lexical error encountered.
func (l *Lexer) Err() error { return l.err }

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) atEOF() bool { return l.pos >= len(l.input) }

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

func (l *Lexer) fail(pos Position, msg string) Token {
	if l.err == nil {
		l.err = dberr.Syntax(pos, "%s", msg)
	}
	return Token{Type: TOKEN_ILLEGAL, Pos: pos, End: l.pos}
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	if !l.skipWhitespaceAndComments() {
		return l.fail(l.currentPos(), "unterminated comment")
	}
	pos := l.currentPos()
	if l.atEOF() {
		return Token{Type: TOKEN_EOF, Pos: pos, End: l.pos}
	}

	single := func(t TokenType) Token {
		lit := string(l.ch)
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos, End: l.pos}
	}
	double := func(t TokenType) Token {
		lit := l.input[l.pos : l.pos+2]
		l.readChar()
		l.readChar()
		return Token{Type: t, Literal: lit, Pos: pos, End: l.pos}
	}

	switch c := l.ch; {
	case c == ',':
		return single(TOKEN_COMMA)
	case c == ';':
		return single(TOKEN_SEMI)
	case c == '(':
		return single(TOKEN_LPAREN)
	case c == ')':
		return single(TOKEN_RPAREN)
	case c == '+':
		return single(TOKEN_PLUS)
	case c == '-':
		return single(TOKEN_MINUS)
	case c == '*':
		return single(TOKEN_STAR)
	case c == '/':
		return single(TOKEN_SLASH)
	case c == '%':
		return single(TOKEN_MOD)
	case c == '&':
		return single(TOKEN_AMP)
	case c == '~':
		return single(TOKEN_TILDE)
	case c == '?':
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TOKEN_PARAM, Literal: l.input[pos.Offset:l.pos], Pos: pos, End: l.pos}
	case c == '|':
		if l.peekChar() == '|' {
			return double(TOKEN_DPIPE)
		}
		return single(TOKEN_PIPE)
	case c == '=':
		if l.peekChar() == '=' {
			return double(TOKEN_EQ)
		}
		return single(TOKEN_EQ)
	case c == '!':
		if l.peekChar() == '=' {
			return double(TOKEN_NE)
		}
		return l.fail(pos, `unrecognized token: "!"`)
	case c == '<':
		switch l.peekChar() {
		case '=':
			return double(TOKEN_LE)
		case '>':
			return double(TOKEN_NE)
		case '<':
			return double(TOKEN_SHL)
		}
		return single(TOKEN_LT)
	case c == '>':
		switch l.peekChar() {
		case '=':
			return double(TOKEN_GE)
		case '>':
			return double(TOKEN_SHR)
		}
		return single(TOKEN_GT)
	case c == '.':
		if isDigit(l.peekChar()) {
			return l.readNumber(pos)
		}
		return single(TOKEN_DOT)
	case c == '\'':
		s, ok := l.readQuoted('\'')
		if !ok {
			return l.fail(pos, "unterminated string literal")
		}
		return Token{Type: TOKEN_STRING, Literal: s, Pos: pos, End: l.pos}
	case c == '"' || c == '`':
		s, ok := l.readQuoted(c)
		if !ok {
			return l.fail(pos, "unterminated quoted identifier")
		}
		return Token{Type: TOKEN_IDENT, Literal: s, Quoted: true, Pos: pos, End: l.pos}
	case c == '[':
		start := l.readPos
		for l.ch != ']' && !l.atEOF() {
			l.readChar()
		}
		if l.atEOF() {
			return l.fail(pos, "unterminated quoted identifier")
		}
		s := l.input[start:l.pos]
		l.readChar()
		return Token{Type: TOKEN_IDENT, Literal: s, Quoted: true, Pos: pos, End: l.pos}
	case (c == 'x' || c == 'X') && l.peekChar() == '\'':
		l.readChar()
		s, ok := l.readQuoted('\'')
		if !ok || len(s)%2 != 0 || !isHexString(s) {
			return l.fail(pos, "malformed blob literal")
		}
		return Token{Type: TOKEN_BLOB, Literal: s, Pos: pos, End: l.pos}
	case isDigit(c):
		return l.readNumber(pos)
	case isIdentStart(c):
		start := l.pos
		for isIdentPart(l.ch) {
			l.readChar()
		}
		word := l.input[start:l.pos]
		tok := Token{Type: TOKEN_IDENT, Literal: word, Pos: pos, End: l.pos}
		if up := strings.ToUpper(word); keywords[up] {
			tok.Keyword = up
		}
		return tok
	default:
		return l.fail(pos, "unrecognized token: \""+string(c)+"\"")
	}
}

// skipWhitespaceAndComments returns false on an unterminated block comment.
func (l *Lexer) skipWhitespaceAndComments() bool {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.readChar()
		case l.ch == '-' && l.peekChar() == '-':
			for l.ch != '\n' && !l.atEOF() {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for !(l.ch == '*' && l.peekChar() == '/') {
				if l.atEOF() {
					return false
				}
				l.readChar()
			}
			l.readChar()
			l.readChar()
		default:
			return true
		}
	}
	return true
}

// readQuoted reads a quote-delimited literal; a doubled quote escapes itself.
func (l *Lexer) readQuoted(q byte) (string, bool) {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		if l.atEOF() {
			return "", false
		}
		if l.ch == q {
			if l.peekChar() == q {
				sb.WriteByte(q)
				l.readChar()
				l.readChar()
				continue
			}
			l.readChar()
			return sb.String(), true
		}
		sb.WriteByte(l.ch)
		l.readChar()
	}
}

func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		digits := l.pos
		for isHexDigit(l.ch) {
			l.readChar()
		}
		if l.pos == digits || isIdentPart(l.ch) {
			return l.fail(pos, "unrecognized token: \""+l.input[start:l.pos]+"\"")
		}
		return Token{Type: TOKEN_INTEGER, Literal: l.input[start:l.pos], Pos: pos, End: l.pos}
	}
	typ := TOKEN_INTEGER
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		typ = TOKEN_FLOAT
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || ((next == '+' || next == '-') && l.readPos+1 < len(l.input) && isDigit(l.input[l.readPos+1])) {
			typ = TOKEN_FLOAT
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	if isIdentStart(l.ch) {
		for isIdentPart(l.ch) {
			l.readChar()
		}
		return l.fail(pos, "unrecognized token: \""+l.input[start:l.pos]+"\"")
	}
	return Token{Type: typ, Literal: l.input[start:l.pos], Pos: pos, End: l.pos}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isHexString(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isHexDigit(s[i]) {
			return false
		}
	}
	return true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) || c == '$' }
