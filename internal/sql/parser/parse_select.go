package parser

// parseSelect parses:
//
//	[WITH cte (',' cte)*] select_body [ORDER BY ...] [LIMIT ...]
func (p *Parser) parseSelect() *SelectStmt {
	stmt := &SelectStmt{}
	if p.matchKw("WITH") {
		p.matchKw("RECURSIVE")
		for {
			stmt.With = append(stmt.With, p.parseCTE())
			if !p.match(TOKEN_COMMA) {
				break
			}
		}
	}
	stmt.Body = p.parseSelectBody()
	if p.matchKw("ORDER") {
		p.expectKw("BY")
		stmt.OrderBy = p.parseOrderList()
	}
	if p.matchKw("LIMIT") {
		stmt.Limit = p.parseExpression()
		switch {
		case p.matchKw("OFFSET"):
			stmt.Offset = p.parseExpression()
		case p.match(TOKEN_COMMA):
			// LIMIT <offset>, <count>
			stmt.Offset = stmt.Limit
			stmt.Limit = p.parseExpression()
		}
	}
	return stmt
}

func (p *Parser) parseCTE() *CTE {
	cte := &CTE{Name: p.parseName("table name")}
	if p.match(TOKEN_LPAREN) {
		cte.Columns = p.parseNameList("column name")
		p.expect(TOKEN_RPAREN)
	}
	p.expectKw("AS")
	if p.matchKw("NOT") {
		p.expectMaterialized()
	} else if p.token.Type == TOKEN_IDENT && !p.token.Quoted && equalFold(p.token.Literal, "MATERIALIZED") {
		p.nextToken()
	}
	p.expect(TOKEN_LPAREN)
	cte.Select = p.parseSelect()
	p.expect(TOKEN_RPAREN)
	return cte
}

func (p *Parser) expectMaterialized() {
	if p.token.Type != TOKEN_IDENT || !equalFold(p.token.Literal, "MATERIALIZED") {
		p.unexpected()
	}
	p.nextToken()
}

func (p *Parser) parseNameList(what string) []string {
	names := []string{p.parseName(what)}
	for p.match(TOKEN_COMMA) {
		names = append(names, p.parseName(what))
	}
	return names
}

// parseSelectBody parses select cores joined by compound operators. The
// operators share one precedence and associate to the left.
func (p *Parser) parseSelectBody() SelectBody {
	var body SelectBody = p.parseSelectCore()
	for {
		var op SetOp
		switch {
		case p.matchKw("UNION"):
			op = SetUnion
			if p.matchKw("ALL") {
				op = SetUnionAll
			}
		case p.matchKw("INTERSECT"):
			op = SetIntersect
		case p.matchKw("EXCEPT"):
			op = SetExcept
		default:
			return body
		}
		body = &CompoundSelect{Op: op, Left: body, Right: p.parseSelectCore()}
	}
}

func (p *Parser) parseSelectCore() *SelectCore {
	core := &SelectCore{}
	if p.matchKw("VALUES") {
		for {
			p.expect(TOKEN_LPAREN)
			core.Values = append(core.Values, p.parseExprList())
			p.expect(TOKEN_RPAREN)
			if !p.match(TOKEN_COMMA) {
				return core
			}
		}
	}

	p.expectKw("SELECT")
	if p.matchKw("DISTINCT") {
		core.Distinct = true
	} else {
		p.matchKw("ALL")
	}
	core.Columns = p.parseResultColumns()
	if p.matchKw("FROM") {
		core.From = p.parseFromClause()
	}
	if p.matchKw("WHERE") {
		core.Where = p.parseExpression()
	}
	if p.matchKw("GROUP") {
		p.expectKw("BY")
		core.GroupBy = p.parseExprList()
	}
	if p.matchKw("HAVING") {
		core.Having = p.parseExpression()
	}
	return core
}

func (p *Parser) parseResultColumns() []*ResultColumn {
	var cols []*ResultColumn
	for {
		cols = append(cols, p.parseResultColumn())
		if !p.match(TOKEN_COMMA) {
			return cols
		}
	}
}

func (p *Parser) parseResultColumn() *ResultColumn {
	if p.match(TOKEN_STAR) {
		return &ResultColumn{Star: true}
	}
	if isNameToken(p.token) && p.peek.Type == TOKEN_DOT && p.peek2.Type == TOKEN_STAR {
		table := p.token.Literal
		p.nextToken()
		p.nextToken()
		p.nextToken()
		return &ResultColumn{Star: true, Table: table}
	}

	start := p.token.Pos.Offset
	rc := &ResultColumn{Expr: p.parseExpression()}
	rc.Text = p.text(start, p.prev.End)
	rc.Alias = p.parseAlias()
	return rc
}

// parseAlias parses an optional `[AS] alias`.
func (p *Parser) parseAlias() string {
	if p.matchKw("AS") {
		return p.parseName("alias")
	}
	if isNameToken(p.token) || p.check(TOKEN_STRING) {
		return p.parseName("alias")
	}
	return ""
}

// ---------- FROM ----------

func (p *Parser) parseFromClause() FromItem {
	left := p.parseTableOrSubquery()
	for {
		if p.match(TOKEN_COMMA) {
			left = &JoinExpr{Kind: JoinInner, Left: left, Right: p.parseTableOrSubquery()}
			continue
		}
		join, ok := p.parseJoinOperator()
		if !ok {
			return left
		}
		join.Left = left
		join.Right = p.parseTableOrSubquery()
		switch {
		case p.matchKw("ON"):
			join.On = p.parseExpression()
		case p.matchKw("USING"):
			p.expect(TOKEN_LPAREN)
			join.Using = p.parseNameList("column name")
			p.expect(TOKEN_RPAREN)
		}
		left = join
	}
}

// parseJoinOperator parses [NATURAL] [LEFT|RIGHT|FULL [OUTER] | INNER | CROSS] JOIN.
func (p *Parser) parseJoinOperator() (*JoinExpr, bool) {
	if !p.atAnyKw("NATURAL", "LEFT", "RIGHT", "FULL", "INNER", "CROSS", "JOIN") {
		return nil, false
	}
	j := &JoinExpr{Kind: JoinInner}
	j.Natural = p.matchKw("NATURAL")
	switch {
	case p.matchKw("LEFT"):
		j.Kind = JoinLeft
		p.matchKw("OUTER")
	case p.matchKw("RIGHT"):
		j.Kind = JoinRight
		p.matchKw("OUTER")
	case p.matchKw("FULL"):
		j.Kind = JoinFull
		p.matchKw("OUTER")
	case p.matchKw("INNER"):
	case p.matchKw("CROSS"):
		j.Kind = JoinCross
	}
	p.expectKw("JOIN")
	return j, true
}

func (p *Parser) parseTableOrSubquery() FromItem {
	if p.match(TOKEN_LPAREN) {
		if p.atSelectStart() {
			sel := p.parseSelect()
			p.expect(TOKEN_RPAREN)
			return &SubqueryRef{Select: sel, Alias: p.parseAlias()}
		}
		inner := p.parseFromClause()
		p.expect(TOKEN_RPAREN)
		if alias := p.parseAlias(); alias != "" {
			if ref, ok := inner.(*TableRef); ok {
				ref.Alias = alias
			}
		}
		return inner
	}
	ref := &TableRef{Name: p.parseQualifiedName("table name")}
	if !(p.token.Type == TOKEN_IDENT && equalFold(p.token.Literal, "INDEXED")) {
		ref.Alias = p.parseAlias()
	}
	// INDEXED BY name / NOT INDEXED are accepted and ignored.
	if p.token.Type == TOKEN_IDENT && equalFold(p.token.Literal, "INDEXED") {
		p.nextToken()
		p.expectKw("BY")
		p.parseName("index name")
	} else if p.atKw("NOT") && p.peek.Type == TOKEN_IDENT && equalFold(p.peek.Literal, "INDEXED") {
		p.nextToken()
		p.nextToken()
	}
	return ref
}

// ---------- ORDER BY ----------

func (p *Parser) parseOrderList() []*OrderTerm {
	var terms []*OrderTerm
	for {
		t := &OrderTerm{Expr: p.parseExpression()}
		if p.matchKw("DESC") {
			t.Desc = true
		} else {
			p.matchKw("ASC")
		}
		if p.matchKw("NULLS") {
			switch {
			case p.matchKw("FIRST"):
				t.Nulls = NullsFirst
			case p.matchKw("LAST"):
				t.Nulls = NullsLast
			default:
				p.unexpected()
			}
		}
		terms = append(terms, t)
		if !p.match(TOKEN_COMMA) {
			return terms
		}
	}
}
