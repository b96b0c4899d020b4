package parser

import (
	"strings"

	"github.com/tuannm99/novalite/internal/record"
)

func (p *Parser) parseStatement() Statement {
	switch {
	case p.matchKw("EXPLAIN"):
		if p.matchKw("QUERY") {
			p.expectKw("PLAN")
		}
		return &ExplainStmt{Stmt: p.parseStatement()}
	case p.atSelectStart():
		return p.parseSelect()
	case p.atKw("INSERT"), p.atKw("REPLACE"):
		return p.parseInsert()
	case p.atKw("UPDATE"):
		return p.parseUpdate()
	case p.atKw("DELETE"):
		return p.parseDelete()
	case p.atKw("CREATE"):
		return p.parseCreate()
	case p.atKw("DROP"):
		return p.parseDrop()
	case p.atKw("BEGIN"), p.atKw("COMMIT"), p.atKw("END"), p.atKw("ROLLBACK"):
		return p.parseTransaction()
	}
	p.unexpected()
	return nil
}

func (p *Parser) parseTransaction() Statement {
	verb := p.token.Keyword
	if verb == "END" {
		verb = "COMMIT"
	}
	p.nextToken()
	for p.token.Type == TOKEN_IDENT && !p.token.Quoted {
		w := strings.ToUpper(p.token.Literal)
		if w != "TRANSACTION" && w != "DEFERRED" && w != "IMMEDIATE" && w != "EXCLUSIVE" {
			break
		}
		p.nextToken()
	}
	return &TransactionStmt{Verb: verb}
}

// parseConflictAction parses the word after OR in INSERT OR ... / UPDATE OR ...
func (p *Parser) parseConflictAction() ConflictAction {
	switch {
	case p.matchKw("ABORT"):
		return ConflictAbort
	case p.matchKw("FAIL"):
		return ConflictFail
	case p.matchKw("IGNORE"):
		return ConflictIgnore
	case p.matchKw("REPLACE"):
		return ConflictReplace
	case p.matchKw("ROLLBACK"):
		return ConflictRollback
	}
	p.unexpected()
	return ConflictAbort
}

// ---------- INSERT / UPDATE / DELETE ----------

func (p *Parser) parseInsert() Statement {
	stmt := &InsertStmt{}
	if p.matchKw("REPLACE") {
		stmt.Conflict = ConflictReplace
	} else {
		p.expectKw("INSERT")
		if p.matchKw("OR") {
			stmt.Conflict = p.parseConflictAction()
		}
	}
	p.expectKw("INTO")
	stmt.Table = p.parseQualifiedName("table name")
	if p.matchKw("AS") {
		p.parseName("alias")
	}
	if p.match(TOKEN_LPAREN) {
		stmt.Columns = p.parseNameList("column name")
		p.expect(TOKEN_RPAREN)
	}
	switch {
	case p.matchKw("DEFAULT"):
		p.expectKw("VALUES")
		stmt.DefaultValues = true
	case p.atKw("VALUES"):
		// VALUES followed by ORDER BY/LIMIT or a compound operator is a
		// full select.
		sel := p.parseSelect()
		core, ok := sel.Body.(*SelectCore)
		if ok && core.Values != nil && sel.OrderBy == nil && sel.Limit == nil && sel.With == nil {
			stmt.Values = core.Values
		} else {
			stmt.Select = sel
		}
	case p.atSelectStart():
		stmt.Select = p.parseSelect()
	default:
		p.unexpected()
	}
	return stmt
}

func (p *Parser) parseUpdate() Statement {
	p.expectKw("UPDATE")
	stmt := &UpdateStmt{}
	if p.matchKw("OR") {
		stmt.Conflict = p.parseConflictAction()
	}
	stmt.Table = p.parseQualifiedName("table name")
	if p.matchKw("AS") {
		stmt.Alias = p.parseName("alias")
	}
	p.expectKw("SET")
	for {
		col := p.parseColumnName()
		if p.match(TOKEN_DOT) {
			col = p.parseColumnName()
		}
		p.expect(TOKEN_EQ)
		stmt.Set = append(stmt.Set, &Assignment{Column: col, Value: p.parseExpression()})
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	if p.matchKw("WHERE") {
		stmt.Where = p.parseExpression()
	}
	return stmt
}

func (p *Parser) parseDelete() Statement {
	p.expectKw("DELETE")
	p.expectKw("FROM")
	stmt := &DeleteStmt{Table: p.parseQualifiedName("table name")}
	if p.matchKw("AS") {
		stmt.Alias = p.parseName("alias")
	}
	if p.matchKw("WHERE") {
		stmt.Where = p.parseExpression()
	}
	return stmt
}

// ---------- CREATE / DROP ----------

func (p *Parser) parseCreate() Statement {
	p.expectKw("CREATE")
	if !p.matchKw("TEMP") {
		p.matchKw("TEMPORARY")
	}
	unique := p.matchKw("UNIQUE")
	switch {
	case !unique && p.matchKw("TABLE"):
		return p.parseCreateTable()
	case p.matchKw("INDEX"):
		return p.parseCreateIndex(unique)
	case !unique && p.matchKw("VIEW"):
		return p.parseCreateView()
	}
	if p.token.Type == TOKEN_IDENT && (equalFold(p.token.Literal, "TRIGGER") || equalFold(p.token.Literal, "VIRTUAL")) {
		p.errorf("CREATE %s is not supported", strings.ToUpper(p.token.Literal))
	}
	p.unexpected()
	return nil
}

func (p *Parser) parseIfNotExists() bool {
	if p.atKw("IF") && isKw(p.peek, "NOT") {
		p.nextToken()
		p.nextToken()
		p.expectKw("EXISTS")
		return true
	}
	return false
}

func (p *Parser) parseIfExists() bool {
	if p.matchKw("IF") {
		p.expectKw("EXISTS")
		return true
	}
	return false
}

func (p *Parser) parseCreateTable() Statement {
	stmt := &CreateTableStmt{IfNotExists: p.parseIfNotExists()}
	stmt.Name = p.parseQualifiedName("table name")
	if p.matchKw("AS") {
		stmt.AsSelect = p.parseSelect()
		return stmt
	}
	p.expect(TOKEN_LPAREN)
	for {
		if p.atAnyKw("CONSTRAINT", "PRIMARY", "UNIQUE", "CHECK", "FOREIGN") {
			if c := p.parseTableConstraint(); c != nil {
				stmt.Constraints = append(stmt.Constraints, c)
			}
		} else {
			if len(stmt.Constraints) > 0 {
				p.unexpected()
			}
			stmt.Columns = append(stmt.Columns, p.parseColumnDef())
		}
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RPAREN)
	// table options: WITHOUT ROWID, STRICT
	for p.token.Type == TOKEN_IDENT {
		switch {
		case p.matchKw("WITHOUT"):
			p.parseName("ROWID")
		case equalFold(p.token.Literal, "STRICT"):
			p.nextToken()
		default:
			p.unexpected()
		}
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	return stmt
}

func (p *Parser) parseColumnDef() *ColumnDef {
	col := &ColumnDef{Name: p.parseName("column name")}
	col.Type = p.parseTypeName()
	for {
		if p.matchKw("CONSTRAINT") {
			p.parseName("constraint name")
		}
		switch {
		case p.matchKw("PRIMARY"):
			p.expectKw("KEY")
			col.PrimaryKey = true
			if p.matchKw("DESC") {
				col.PKDesc = true
			} else {
				p.matchKw("ASC")
			}
			p.parseOnConflict()
			col.Autoincrement = p.matchKw("AUTOINCREMENT")
		case p.matchKw("NOT"):
			p.expectKw("NULL")
			col.NotNull = true
			p.parseOnConflict()
		case p.matchKw("NULL"):
		case p.matchKw("UNIQUE"):
			col.Unique = true
			p.parseOnConflict()
		case p.matchKw("CHECK"):
			p.expect(TOKEN_LPAREN)
			col.Checks = append(col.Checks, p.parseExpression())
			p.expect(TOKEN_RPAREN)
		case p.matchKw("DEFAULT"):
			col.Default = p.parseDefault()
		case p.matchKw("COLLATE"):
			col.Collate = p.parseName("collation name")
		case p.matchKw("REFERENCES"):
			p.skipForeignKeyClause()
		case p.atKw("AS") || p.token.Type == TOKEN_IDENT && equalFold(p.token.Literal, "GENERATED"):
			p.errorf("generated columns are not supported")
		default:
			return col
		}
	}
}

// parseDefault parses the value of a DEFAULT clause.
func (p *Parser) parseDefault() Expr {
	switch {
	case p.match(TOKEN_LPAREN):
		e := p.parseExpression()
		p.expect(TOKEN_RPAREN)
		return e
	case p.check(TOKEN_MINUS), p.check(TOKEN_PLUS):
		return p.parsePrefixExpr()
	case p.check(TOKEN_IDENT) && !p.token.Quoted &&
		(p.token.Keyword == "NULL" || p.token.Keyword == "TRUE" || p.token.Keyword == "FALSE" ||
			strings.HasPrefix(p.token.Keyword, "CURRENT_")):
		return p.parsePrimary()
	case p.check(TOKEN_IDENT):
		// A bare word is taken as a string.
		s := p.token.Literal
		p.nextToken()
		return &Literal{Value: record.Text(s)}
	default:
		return p.parsePrimary()
	}
}

// parseOnConflict skips ON CONFLICT <action>; the statement-level action
// always decides.
func (p *Parser) parseOnConflict() {
	if p.atKw("ON") && isKw(p.peek, "CONFLICT") {
		p.nextToken()
		p.nextToken()
		p.parseConflictAction()
	}
}

func (p *Parser) skipForeignKeyClause() {
	p.parseName("table name")
	if p.match(TOKEN_LPAREN) {
		p.parseNameList("column name")
		p.expect(TOKEN_RPAREN)
	}
	for {
		switch {
		case p.atKw("ON") && !isKw(p.peek, "CONFLICT"):
			p.nextToken()
			if !p.matchKw("DELETE") {
				p.expectKw("UPDATE")
			}
			switch {
			case p.matchKw("SET"):
				if !p.matchKw("NULL") {
					p.expectKw("DEFAULT")
				}
			case p.matchKw("NO"):
				p.expectKw("ACTION")
			case p.matchKw("CASCADE"):
			default:
				p.parseName("action")
			}
		case p.token.Type == TOKEN_IDENT && equalFold(p.token.Literal, "MATCH"):
			p.nextToken()
			p.parseName("match name")
		case p.atKw("NOT") && isKw(p.peek, "DEFERRABLE"), p.atKw("DEFERRABLE"):
			p.matchKw("NOT")
			p.nextToken()
			if p.token.Type == TOKEN_IDENT && equalFold(p.token.Literal, "INITIALLY") {
				p.nextToken()
				p.parseName("deferral")
			}
		default:
			return
		}
	}
}

func (p *Parser) parseTableConstraint() *TableConstraint {
	c := &TableConstraint{}
	if p.matchKw("CONSTRAINT") {
		c.Name = p.parseName("constraint name")
	}
	switch {
	case p.matchKw("PRIMARY"):
		p.expectKw("KEY")
		c.Kind = ConstraintPrimaryKey
		c.Columns = p.parseIndexedColumns()
		p.parseOnConflict()
	case p.matchKw("UNIQUE"):
		c.Kind = ConstraintUnique
		c.Columns = p.parseIndexedColumns()
		p.parseOnConflict()
	case p.matchKw("CHECK"):
		c.Kind = ConstraintCheck
		p.expect(TOKEN_LPAREN)
		c.Check = p.parseExpression()
		p.expect(TOKEN_RPAREN)
	case p.matchKw("FOREIGN"):
		p.expectKw("KEY")
		p.expect(TOKEN_LPAREN)
		p.parseNameList("column name")
		p.expect(TOKEN_RPAREN)
		p.expectKw("REFERENCES")
		p.skipForeignKeyClause()
		return nil
	default:
		p.unexpected()
	}
	return c
}

func (p *Parser) parseIndexedColumns() []*IndexedColumn {
	p.expect(TOKEN_LPAREN)
	var cols []*IndexedColumn
	for {
		ic := &IndexedColumn{Name: p.parseName("column name")}
		if p.matchKw("COLLATE") {
			ic.Collate = p.parseName("collation name")
		}
		if p.matchKw("DESC") {
			ic.Desc = true
		} else {
			p.matchKw("ASC")
		}
		cols = append(cols, ic)
		if !p.match(TOKEN_COMMA) {
			break
		}
	}
	p.expect(TOKEN_RPAREN)
	return cols
}

func (p *Parser) parseCreateIndex(unique bool) Statement {
	stmt := &CreateIndexStmt{Unique: unique, IfNotExists: p.parseIfNotExists()}
	stmt.Name = p.parseQualifiedName("index name")
	p.expectKw("ON")
	stmt.Table = p.parseName("table name")
	stmt.Columns = p.parseIndexedColumns()
	if p.atKw("WHERE") {
		p.errorf("partial indexes are not supported")
	}
	return stmt
}

func (p *Parser) parseCreateView() Statement {
	stmt := &CreateViewStmt{IfNotExists: p.parseIfNotExists()}
	stmt.Name = p.parseQualifiedName("view name")
	if p.match(TOKEN_LPAREN) {
		stmt.Columns = p.parseNameList("column name")
		p.expect(TOKEN_RPAREN)
	}
	p.expectKw("AS")
	stmt.Select = p.parseSelect()
	return stmt
}

func (p *Parser) parseDrop() Statement {
	p.expectKw("DROP")
	switch {
	case p.matchKw("TABLE"):
		ifExists := p.parseIfExists()
		return &DropTableStmt{IfExists: ifExists, Name: p.parseQualifiedName("table name")}
	case p.matchKw("INDEX"):
		ifExists := p.parseIfExists()
		return &DropIndexStmt{IfExists: ifExists, Name: p.parseQualifiedName("index name")}
	case p.matchKw("VIEW"):
		ifExists := p.parseIfExists()
		return &DropViewStmt{IfExists: ifExists, Name: p.parseQualifiedName("view name")}
	}
	p.unexpected()
	return nil
}
