package parser

import (
	"fmt"
	"strings"

	"github.com/tuannm99/novalite/internal/dberr"
)

// TokenType identifies the kind of a lexical token.
type TokenType int

const (
	TOKEN_ILLEGAL TokenType = iota
	TOKEN_EOF

	TOKEN_IDENT   // bare or quoted identifier, also keywords
	TOKEN_INTEGER // 123, 0x1F
	TOKEN_FLOAT   // 1.5, 1e3, .5
	TOKEN_STRING  // 'text'
	TOKEN_BLOB    // x'0A'
	TOKEN_PARAM   // ?

	TOKEN_COMMA
	TOKEN_SEMI
	TOKEN_DOT
	TOKEN_LPAREN
	TOKEN_RPAREN

	TOKEN_PLUS
	TOKEN_MINUS
	TOKEN_STAR
	TOKEN_SLASH
	TOKEN_MOD
	TOKEN_DPIPE  // ||
	TOKEN_AMP    // &
	TOKEN_PIPE   // |
	TOKEN_TILDE  // ~
	TOKEN_SHL    // <<
	TOKEN_SHR    // >>
	TOKEN_EQ     // = or ==
	TOKEN_NE     // != or <>
	TOKEN_LT
	TOKEN_LE
	TOKEN_GT
	TOKEN_GE
)

var tokenNames = map[TokenType]string{
	TOKEN_ILLEGAL: "ILLEGAL",
	TOKEN_EOF:     "end of input",
	TOKEN_IDENT:   "identifier",
	TOKEN_INTEGER: "integer",
	TOKEN_FLOAT:   "number",
	TOKEN_STRING:  "string",
	TOKEN_BLOB:    "blob",
	TOKEN_PARAM:   "?",
	TOKEN_COMMA:   ",",
	TOKEN_SEMI:    ";",
	TOKEN_DOT:     ".",
	TOKEN_LPAREN:  "(",
	TOKEN_RPAREN:  ")",
	TOKEN_PLUS:    "+",
	TOKEN_MINUS:   "-",
	TOKEN_STAR:    "*",
	TOKEN_SLASH:   "/",
	TOKEN_MOD:     "%",
	TOKEN_DPIPE:   "||",
	TOKEN_AMP:     "&",
	TOKEN_PIPE:    "|",
	TOKEN_TILDE:   "~",
	TOKEN_SHL:     "<<",
	TOKEN_SHR:     ">>",
	TOKEN_EQ:      "=",
	TOKEN_NE:      "!=",
	TOKEN_LT:      "<",
	TOKEN_LE:      "<=",
	TOKEN_GT:      ">",
	TOKEN_GE:      ">=",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Position is where a token starts in the statement text.
type Position = dberr.Pos

// Token is a lexical token. For identifiers Keyword holds the upper-cased
// word when it is an SQL keyword and the identifier was not quoted.
type Token struct {
	Type    TokenType
	Literal string
	Keyword string
	Quoted  bool
	Pos     Position
	End     int // byte offset just past the token
}

func (t Token) String() string {
	switch t.Type {
	case TOKEN_EOF:
		return "end of input"
	case TOKEN_STRING:
		return "'" + t.Literal + "'"
	default:
		if t.Literal != "" {
			return t.Literal
		}
		return t.Type.String()
	}
}

// keywords is the set of words the grammar treats specially. Only the words
// in reserved cannot be used as bare identifiers.
var keywords = map[string]bool{}

var reserved = map[string]bool{}

func init() {
	for _, k := range strings.Fields(`
		ABORT ACTION ALL ALTER AND AS ASC AUTOINCREMENT BEGIN BETWEEN BY CASCADE
		CASE CAST CHECK COLLATE COMMIT CONFLICT CONSTRAINT CREATE CROSS CURRENT_DATE
		CURRENT_TIME CURRENT_TIMESTAMP DEFAULT DEFERRABLE DELETE DESC DISTINCT DROP
		ELSE END ESCAPE EXCEPT EXISTS EXPLAIN FAIL FALSE FILTER FIRST FOREIGN FROM
		FULL GLOB GROUP HAVING IF IGNORE IN INDEX INNER INSERT INTERSECT INTO IS
		ISNULL JOIN KEY LAST LEFT LIKE LIMIT NATURAL NO NOT NOTNULL NULL NULLS OF
		OFFSET ON OR ORDER OUTER PLAN PRIMARY QUERY RECURSIVE REFERENCES REGEXP
		REPLACE RIGHT ROLLBACK ROWID SELECT SET TABLE TEMP TEMPORARY THEN TO
		TRANSACTION TRUE UNION UNIQUE UPDATE USING VALUES VIEW WHEN WHERE WITH
		WITHOUT`) {
		keywords[k] = true
	}
	for _, k := range strings.Fields(`
		ALL AND AS BETWEEN BY CASE CAST CHECK COLLATE CONSTRAINT CREATE CROSS
		DEFAULT DELETE DESC ASC DISTINCT DROP ELSE END ESCAPE EXCEPT EXISTS FROM
		FULL GLOB GROUP HAVING IN INDEX INNER INSERT INTERSECT INTO IS ISNULL JOIN
		LEFT LIKE LIMIT NATURAL NOT NOTNULL NULL OFFSET ON OR ORDER OUTER PRIMARY
		REFERENCES REGEXP RIGHT SELECT SET TABLE THEN UNION UNIQUE UPDATE USING
		VALUES WHEN WHERE WITH`) {
		reserved[k] = true
	}
}
