package parser

import (
	"encoding/hex"
	"math"
	"strconv"
	"strings"

	"github.com/tuannm99/novalite/internal/record"
)

// Precedence levels, lowest first.
//
//	precOr       OR
//	precAnd      AND
//	precNot      NOT (prefix)
//	precEquality = == != <> IS IN LIKE GLOB BETWEEN ISNULL NOTNULL
//	precCompare  < <= > >=
//	precBitwise  & | << >>
//	precAdd      + -
//	precMul      * / %
//	precConcat   ||
//	precCollate  COLLATE
//	precUnary    - + ~ (prefix)
const (
	precNone = iota
	precOr
	precAnd
	precNot
	precEquality
	precCompare
	precBitwise
	precAdd
	precMul
	precConcat
	precCollate
	precUnary
)

// parseExpression parses a full expression.
func (p *Parser) parseExpression() Expr {
	return p.parseExpressionWithPrecedence(precOr)
}

// parseExpressionWithPrecedence implements precedence climbing.
func (p *Parser) parseExpressionWithPrecedence(minPrecedence int) Expr {
	left := p.parsePrefixExpr()
	for {
		prec := p.infixPrecedence()
		if prec == precNone || prec < minPrecedence {
			return left
		}
		left = p.parseInfixExpr(left, prec)
	}
}

func (p *Parser) parsePrefixExpr() Expr {
	switch {
	case p.atKw("NOT"):
		p.nextToken()
		return &UnaryExpr{Op: OpNot, X: p.parseExpressionWithPrecedence(precNot)}
	case p.check(TOKEN_MINUS):
		p.nextToken()
		// -9223372036854775808 is the only way to spell the smallest integer.
		if p.check(TOKEN_INTEGER) && p.token.Literal == "9223372036854775808" {
			p.nextToken()
			return &Literal{Value: record.Int(math.MinInt64)}
		}
		return &UnaryExpr{Op: OpNeg, X: p.parseExpressionWithPrecedence(precUnary)}
	case p.check(TOKEN_PLUS):
		p.nextToken()
		return &UnaryExpr{Op: OpPlus, X: p.parseExpressionWithPrecedence(precUnary)}
	case p.check(TOKEN_TILDE):
		p.nextToken()
		return &UnaryExpr{Op: OpBitNot, X: p.parseExpressionWithPrecedence(precUnary)}
	default:
		return p.parsePrimary()
	}
}

// infixPrecedence returns the precedence of the current token as an infix
// operator, or precNone.
func (p *Parser) infixPrecedence() int {
	switch p.token.Type {
	case TOKEN_EQ, TOKEN_NE:
		return precEquality
	case TOKEN_LT, TOKEN_LE, TOKEN_GT, TOKEN_GE:
		return precCompare
	case TOKEN_AMP, TOKEN_PIPE, TOKEN_SHL, TOKEN_SHR:
		return precBitwise
	case TOKEN_PLUS, TOKEN_MINUS:
		return precAdd
	case TOKEN_STAR, TOKEN_SLASH, TOKEN_MOD:
		return precMul
	case TOKEN_DPIPE:
		return precConcat
	case TOKEN_IDENT:
		if p.token.Quoted {
			return precNone
		}
		switch p.token.Keyword {
		case "OR":
			return precOr
		case "AND":
			return precAnd
		case "IS", "IN", "LIKE", "GLOB", "BETWEEN", "ISNULL", "NOTNULL":
			return precEquality
		case "NOT":
			if isKw(p.peek, "IN") || isKw(p.peek, "LIKE") || isKw(p.peek, "GLOB") ||
				isKw(p.peek, "BETWEEN") || isKw(p.peek, "NULL") {
				return precEquality
			}
		case "COLLATE":
			return precCollate
		}
	}
	return precNone
}

var binaryTokens = map[TokenType]BinaryOp{
	TOKEN_EQ: OpEq, TOKEN_NE: OpNe, TOKEN_LT: OpLt, TOKEN_LE: OpLe, TOKEN_GT: OpGt, TOKEN_GE: OpGe,
	TOKEN_AMP: OpBitAnd, TOKEN_PIPE: OpBitOr, TOKEN_SHL: OpShl, TOKEN_SHR: OpShr,
	TOKEN_PLUS: OpAdd, TOKEN_MINUS: OpSub, TOKEN_STAR: OpMul, TOKEN_SLASH: OpDiv, TOKEN_MOD: OpRem,
	TOKEN_DPIPE: OpConcat,
}

func (p *Parser) parseInfixExpr(left Expr, prec int) Expr {
	if op, ok := binaryTokens[p.token.Type]; ok {
		p.nextToken()
		return &BinaryExpr{Op: op, L: left, R: p.parseExpressionWithPrecedence(prec + 1)}
	}

	switch p.token.Keyword {
	case "OR":
		p.nextToken()
		return &BinaryExpr{Op: OpOr, L: left, R: p.parseExpressionWithPrecedence(prec + 1)}
	case "AND":
		p.nextToken()
		return &BinaryExpr{Op: OpAnd, L: left, R: p.parseExpressionWithPrecedence(prec + 1)}
	case "COLLATE":
		p.nextToken()
		return &CollateExpr{X: left, Collation: p.parseName("collation name")}
	case "ISNULL":
		p.nextToken()
		return &IsNullExpr{X: left}
	case "NOTNULL":
		p.nextToken()
		return &IsNullExpr{X: left, Not: true}
	case "IS":
		return p.parseIsExpr(left)
	}

	not := p.matchKw("NOT")
	switch {
	case p.matchKw("NULL"):
		return &IsNullExpr{X: left, Not: true}
	case p.matchKw("IN"):
		return p.parseInExpr(left, not)
	case p.matchKw("BETWEEN"):
		lo := p.parseExpressionWithPrecedence(precEquality + 1)
		p.expectKw("AND")
		hi := p.parseExpressionWithPrecedence(precEquality + 1)
		return &BetweenExpr{Not: not, X: left, Lo: lo, Hi: hi}
	case p.atKw("LIKE"), p.atKw("GLOB"):
		op := OpLike
		if p.atKw("GLOB") {
			op = OpGlob
		}
		p.nextToken()
		e := &LikeExpr{Op: op, Not: not, X: left, Pattern: p.parseExpressionWithPrecedence(precEquality + 1)}
		if p.matchKw("ESCAPE") {
			e.Escape = p.parseExpressionWithPrecedence(precEquality + 1)
		}
		return e
	}
	p.unexpected()
	return nil
}

// parseIsExpr handles IS [NOT] [DISTINCT FROM] expr.
func (p *Parser) parseIsExpr(left Expr) Expr {
	p.expectKw("IS")
	not := p.matchKw("NOT")
	if p.matchKw("DISTINCT") {
		p.expectKw("FROM")
		not = !not
	}
	right := p.parseExpressionWithPrecedence(precEquality + 1)
	op := OpIs
	if not {
		op = OpIsNot
	}
	return &BinaryExpr{Op: op, L: left, R: right}
}

func (p *Parser) parseInExpr(left Expr, not bool) Expr {
	if !p.check(TOKEN_LPAREN) {
		// x IN table
		name := p.parseQualifiedName("table name")
		sel := &SelectStmt{Body: &SelectCore{
			Columns: []*ResultColumn{{Star: true}},
			From:    &TableRef{Name: name},
		}}
		return &InSelectExpr{Not: not, X: left, Select: sel}
	}
	p.nextToken()
	if p.atSelectStart() {
		sel := p.parseSelect()
		p.expect(TOKEN_RPAREN)
		return &InSelectExpr{Not: not, X: left, Select: sel}
	}
	var list []Expr
	if !p.check(TOKEN_RPAREN) {
		list = p.parseExprList()
	}
	p.expect(TOKEN_RPAREN)
	return &InListExpr{Not: not, X: left, List: list}
}

func (p *Parser) parseExprList() []Expr {
	list := []Expr{p.parseExpression()}
	for p.match(TOKEN_COMMA) {
		list = append(list, p.parseExpression())
	}
	return list
}

func (p *Parser) atSelectStart() bool {
	return p.atKw("SELECT") || p.atKw("WITH") || p.atKw("VALUES")
}

func (p *Parser) parsePrimary() Expr {
	tok := p.token
	switch tok.Type {
	case TOKEN_INTEGER:
		p.nextToken()
		return &Literal{Value: p.integerLiteral(tok)}
	case TOKEN_FLOAT:
		p.nextToken()
		f, _ := strconv.ParseFloat(tok.Literal, 64)
		return &Literal{Value: record.Real(f)}
	case TOKEN_STRING:
		p.nextToken()
		return &Literal{Value: record.Text(tok.Literal)}
	case TOKEN_BLOB:
		p.nextToken()
		b, _ := hex.DecodeString(tok.Literal)
		return &Literal{Value: record.Blob(b)}
	case TOKEN_LPAREN:
		p.nextToken()
		if p.atSelectStart() {
			sel := p.parseSelect()
			p.expect(TOKEN_RPAREN)
			return &SubqueryExpr{Select: sel}
		}
		e := p.parseExpression()
		if p.check(TOKEN_COMMA) {
			p.errorf("row values are not supported")
		}
		p.expect(TOKEN_RPAREN)
		return e
	case TOKEN_IDENT:
		return p.parseIdentExpr()
	}
	p.unexpected()
	return nil
}

func (p *Parser) integerLiteral(tok Token) record.Value {
	lit := tok.Literal
	if len(lit) > 2 && (lit[1] == 'x' || lit[1] == 'X') {
		u, err := strconv.ParseUint(lit[2:], 16, 64)
		if err != nil {
			p.errorf("hex literal too big: %s", lit)
		}
		return record.Int(int64(u))
	}
	if v, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return record.Int(v)
	}
	f, _ := strconv.ParseFloat(lit, 64)
	return record.Real(f)
}

func (p *Parser) parseIdentExpr() Expr {
	tok := p.token
	if !tok.Quoted && p.peek.Type != TOKEN_LPAREN && p.peek.Type != TOKEN_DOT {
		switch tok.Keyword {
		case "NULL":
			p.nextToken()
			return &Literal{Value: record.Null}
		case "TRUE":
			p.nextToken()
			return &Literal{Value: record.Int(1)}
		case "FALSE":
			p.nextToken()
			return &Literal{Value: record.Int(0)}
		case "CURRENT_TIMESTAMP", "CURRENT_DATE", "CURRENT_TIME":
			p.nextToken()
			return &FuncCall{Name: strings.ToLower(tok.Keyword)}
		case "CASE":
			return p.parseCaseExpr()
		}
	}
	if !tok.Quoted {
		switch tok.Keyword {
		case "CAST":
			return p.parseCastExpr()
		case "EXISTS":
			p.nextToken()
			p.expect(TOKEN_LPAREN)
			sel := p.parseSelect()
			p.expect(TOKEN_RPAREN)
			return &ExistsExpr{Select: sel}
		}
	}

	if p.peek.Type == TOKEN_LPAREN && tok.Type == TOKEN_IDENT && (tok.Quoted || !reserved[tok.Keyword] || tok.Keyword == "REPLACE" || tok.Keyword == "LIKE" || tok.Keyword == "GLOB") {
		return p.parseFuncCall()
	}

	first := p.parseName("expression")
	if !p.match(TOKEN_DOT) {
		return &ColumnRef{Column: first}
	}
	second := p.parseColumnName()
	if !p.match(TOKEN_DOT) {
		return &ColumnRef{Table: first, Column: second}
	}
	// schema.table.column
	return &ColumnRef{Table: second, Column: p.parseColumnName()}
}

// parseColumnName accepts any identifier after a qualifier, keywords
// included, so t.key and t."order" both work.
func (p *Parser) parseColumnName() string {
	if p.token.Type != TOKEN_IDENT {
		p.unexpected()
	}
	s := p.token.Literal
	p.nextToken()
	return s
}

func (p *Parser) parseFuncCall() Expr {
	name := strings.ToLower(p.token.Literal)
	p.nextToken()
	p.expect(TOKEN_LPAREN)
	fc := &FuncCall{Name: name}
	switch {
	case p.match(TOKEN_STAR):
		fc.Star = true
	case p.check(TOKEN_RPAREN):
	default:
		if p.matchKw("DISTINCT") {
			fc.Distinct = true
		} else {
			p.matchKw("ALL")
		}
		fc.Args = p.parseExprList()
	}
	p.expect(TOKEN_RPAREN)
	if p.token.Type == TOKEN_IDENT && strings.EqualFold(p.token.Literal, "OVER") {
		p.errorf("window functions are not supported")
	}
	return fc
}

func (p *Parser) parseCaseExpr() Expr {
	p.expectKw("CASE")
	c := &CaseExpr{}
	if !p.atKw("WHEN") {
		c.Operand = p.parseExpression()
	}
	for p.matchKw("WHEN") {
		w := &When{Cond: p.parseExpression()}
		p.expectKw("THEN")
		w.Result = p.parseExpression()
		c.Whens = append(c.Whens, w)
	}
	if len(c.Whens) == 0 {
		p.errorf("near %q: syntax error, expected WHEN", p.token.String())
	}
	if p.matchKw("ELSE") {
		c.Else = p.parseExpression()
	}
	p.expectKw("END")
	return c
}

func (p *Parser) parseCastExpr() Expr {
	p.expectKw("CAST")
	p.expect(TOKEN_LPAREN)
	x := p.parseExpression()
	p.expectKw("AS")
	typ := p.parseTypeName()
	p.expect(TOKEN_RPAREN)
	return &CastExpr{X: x, Type: typ}
}

// typeNameStop lists the keywords that end a column type name.
var typeNameStop = map[string]bool{
	"CONSTRAINT": true, "PRIMARY": true, "NOT": true, "NULL": true, "UNIQUE": true,
	"CHECK": true, "DEFAULT": true, "COLLATE": true, "REFERENCES": true, "AS": true,
}

// parseTypeName reads a type name such as `VARCHAR(10)` or
// `DOUBLE PRECISION`. It returns "" when no type is present.
func (p *Parser) parseTypeName() string {
	var words []string
	for p.token.Type == TOKEN_IDENT && (p.token.Quoted || !typeNameStop[p.token.Keyword]) {
		if !p.token.Quoted && reserved[p.token.Keyword] {
			break
		}
		words = append(words, p.token.Literal)
		p.nextToken()
	}
	typ := strings.Join(words, " ")
	if len(words) > 0 && p.check(TOKEN_LPAREN) {
		start := p.token.Pos.Offset
		p.nextToken()
		p.parseSignedNumber()
		if p.match(TOKEN_COMMA) {
			p.parseSignedNumber()
		}
		end := p.expect(TOKEN_RPAREN).End
		typ += p.input[start:end]
	}
	return typ
}

func (p *Parser) parseSignedNumber() {
	if p.check(TOKEN_PLUS) || p.check(TOKEN_MINUS) {
		p.nextToken()
	}
	if !p.check(TOKEN_INTEGER) && !p.check(TOKEN_FLOAT) {
		p.unexpected()
	}
	p.nextToken()
}
