// Package parser turns SQL text into an AST.
//
// # Grammar Overview
//
// The parser is a recursive descent parser with Pratt-style precedence
// climbing for expressions:
//
//	script        → statement (';' statement)*
//	statement     → [EXPLAIN [QUERY PLAN]] (select | insert | update | delete
//	                | create_table | create_index | create_view | drop | txn)
//	select        → [WITH cte_list] select_body [ORDER BY order_list]
//	                [LIMIT expr [(OFFSET | ',') expr]]
//	select_body   → select_core ((UNION [ALL] | INTERSECT | EXCEPT) select_core)*
//	select_core   → SELECT [DISTINCT | ALL] result_list [FROM from_clause]
//	                [WHERE expr] [GROUP BY expr_list] [HAVING expr]
//	              | VALUES '(' expr_list ')' (',' '(' expr_list ')')*
//
// The parser does no semantic validation; names are resolved by the binder.
package parser

import (
	"strings"

	"github.com/tuannm99/novalite/internal/dberr"
)

// Parser parses SQL into an AST.
type Parser struct {
	lexer *Lexer
	input string
	token Token // current token
	peek  Token // lookahead token
	peek2 Token // second lookahead token
	prev  Token // last consumed token
	err   error
}

// bailout unwinds the recursive descent after the first error.
type bailout struct{}

// NewParser creates a parser for sql.
func NewParser(sql string) *Parser {
	p := &Parser{lexer: NewLexer(sql), input: sql}
	p.token = p.lexer.NextToken()
	p.peek = p.lexer.NextToken()
	p.peek2 = p.lexer.NextToken()
	return p
}

// Parse parses exactly one statement. A trailing ';' is optional.
func Parse(sql string) (Statement, error) {
	stmts, err := ParseScript(sql)
	if err != nil {
		return nil, err
	}
	switch len(stmts) {
	case 0:
		return nil, dberr.Syntax(Position{Line: 1, Column: 1}, "empty statement")
	case 1:
		return stmts[0], nil
	default:
		return nil, dberr.Syntax(Position{Line: 1, Column: 1}, "expected a single statement, got %d", len(stmts))
	}
}

// ParseScript parses a ';'-separated list of statements. Empty statements
// are skipped.
func ParseScript(sql string) (stmts []Statement, err error) {
	p := NewParser(sql)
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			stmts, err = nil, p.err
		}
	}()
	for {
		for p.match(TOKEN_SEMI) {
		}
		if p.check(TOKEN_EOF) {
			break
		}
		stmts = append(stmts, p.parseStatement())
		if !p.check(TOKEN_SEMI) && !p.check(TOKEN_EOF) {
			p.unexpected()
		}
	}
	p.checkLex()
	return stmts, nil
}

// SplitStatements splits a script into the source text of each statement,
// honoring quotes and comments.
func SplitStatements(sql string) []string {
	l := NewLexer(sql)
	var out []string
	start := 0
	for {
		tok := l.NextToken()
		if tok.Type == TOKEN_EOF || tok.Type == TOKEN_ILLEGAL {
			break
		}
		if tok.Type == TOKEN_SEMI {
			if s := strings.TrimSpace(sql[start:tok.Pos.Offset]); s != "" {
				out = append(out, s)
			}
			start = tok.End
		}
	}
	if s := strings.TrimSpace(sql[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

// ---------- Token Helpers ----------

func (p *Parser) nextToken() {
	p.checkLex()
	p.prev = p.token
	p.token = p.peek
	p.peek = p.peek2
	p.peek2 = p.lexer.NextToken()
}

func (p *Parser) checkLex() {
	if p.token.Type == TOKEN_ILLEGAL && p.lexer.Err() != nil {
		p.err = p.lexer.Err()
		panic(bailout{})
	}
}

func (p *Parser) check(t TokenType) bool { return p.token.Type == t }

func (p *Parser) match(t TokenType) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t TokenType) Token {
	if !p.check(t) {
		p.errorf("near %q: syntax error, expected %s", p.token.String(), t)
	}
	tok := p.token
	p.nextToken()
	return tok
}

// ---------- Keyword Helpers ----------

// isKw reports whether tok is the unquoted keyword kw.
func isKw(tok Token, kw string) bool {
	return tok.Type == TOKEN_IDENT && !tok.Quoted && tok.Keyword == kw
}

func (p *Parser) atKw(kw string) bool { return isKw(p.token, kw) }

func (p *Parser) atAnyKw(kws ...string) bool {
	for _, kw := range kws {
		if p.atKw(kw) {
			return true
		}
	}
	return false
}

func (p *Parser) matchKw(kw string) bool {
	if p.atKw(kw) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expectKw(kw string) {
	if !p.matchKw(kw) {
		p.errorf("near %q: syntax error, expected %s", p.token.String(), kw)
	}
}

// isNameToken reports whether tok can serve as an identifier.
func isNameToken(tok Token) bool {
	if tok.Type != TOKEN_IDENT {
		return false
	}
	return tok.Quoted || !reserved[tok.Keyword]
}

// parseName consumes an identifier.
func (p *Parser) parseName(what string) string {
	if p.check(TOKEN_STRING) {
		// 'name' is accepted where an identifier is expected.
		s := p.token.Literal
		p.nextToken()
		return s
	}
	if !isNameToken(p.token) {
		p.errorf("near %q: syntax error, expected %s", p.token.String(), what)
	}
	s := p.token.Literal
	p.nextToken()
	return s
}

// parseQualifiedName consumes [schema '.'] name and drops the schema.
func (p *Parser) parseQualifiedName(what string) string {
	name := p.parseName(what)
	if p.check(TOKEN_DOT) {
		p.nextToken()
		name = p.parseName(what)
	}
	return name
}

// ---------- Errors ----------

func (p *Parser) errorf(format string, args ...any) {
	if p.err == nil {
		p.err = dberr.Syntax(p.token.Pos, format, args...)
	}
	panic(bailout{})
}

func (p *Parser) unexpected() {
	p.checkLex()
	if p.check(TOKEN_EOF) {
		p.errorf("incomplete input")
	}
	p.errorf("near %q: syntax error", p.token.String())
}

func equalFold(a, b string) bool { return strings.EqualFold(a, b) }

func (p *Parser) text(start, end int) string {
	return strings.TrimSpace(p.input[start:end])
}
