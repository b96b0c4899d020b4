package parser

import "github.com/tuannm99/novalite/internal/record"

// Statement is the root interface for all SQL statements.
type Statement interface {
	stmtNode()
}

// ----- SELECT -----

// SelectStmt is a full query: optional CTEs, a body of one or more compound
// parts, and the trailing ORDER BY / LIMIT that apply to the whole body.
type SelectStmt struct {
	With    []*CTE
	Body    SelectBody
	OrderBy []*OrderTerm
	Limit   Expr
	Offset  Expr
}

func (*SelectStmt) stmtNode() {}

type CTE struct {
	Name    string
	Columns []string
	Select  *SelectStmt
}

// SelectBody is a *SelectCore or a *CompoundSelect.
type SelectBody interface {
	selectBody()
}

type SelectCore struct {
	Distinct bool
	Columns  []*ResultColumn
	From     FromItem // nil when the query has no FROM
	Where    Expr
	GroupBy  []Expr
	Having   Expr

	// Values holds the rows of a VALUES clause; Columns is then empty.
	Values [][]Expr
}

func (*SelectCore) selectBody() {}

type SetOp int

const (
	SetUnion SetOp = iota
	SetUnionAll
	SetIntersect
	SetExcept
)

func (o SetOp) String() string {
	switch o {
	case SetUnionAll:
		return "UNION ALL"
	case SetIntersect:
		return "INTERSECT"
	case SetExcept:
		return "EXCEPT"
	default:
		return "UNION"
	}
}

// CompoundSelect combines two bodies; chains are left-deep.
type CompoundSelect struct {
	Op    SetOp
	Left  SelectBody
	Right SelectBody
}

func (*CompoundSelect) selectBody() {}

// ResultColumn is one entry of the select list: `*`, `t.*` or `expr [AS alias]`.
type ResultColumn struct {
	Star  bool
	Table string // qualifier of t.*
	Expr  Expr
	Alias string
	Text  string // source text of Expr
}

type OrderTerm struct {
	Expr Expr
	Desc bool
	// Nulls is NullsDefault, NullsFirst or NullsLast.
	Nulls NullsOrder
}

type NullsOrder int

const (
	NullsDefault NullsOrder = iota
	NullsFirst
	NullsLast
)

// ----- FROM -----

type FromItem interface {
	fromNode()
}

type TableRef struct {
	Name  string
	Alias string
}

func (*TableRef) fromNode() {}

type SubqueryRef struct {
	Select *SelectStmt
	Alias  string
}

func (*SubqueryRef) fromNode() {}

type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
)

func (k JoinKind) String() string {
	switch k {
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	case JoinCross:
		return "CROSS"
	default:
		return "INNER"
	}
}

// JoinExpr joins two FROM items. A comma join is an inner join without a
// constraint.
type JoinExpr struct {
	Kind    JoinKind
	Natural bool
	Left    FromItem
	Right   FromItem
	On      Expr
	Using   []string
}

func (*JoinExpr) fromNode() {}

// ----- DML -----

type ConflictAction int

const (
	ConflictAbort ConflictAction = iota
	ConflictFail
	ConflictIgnore
	ConflictReplace
	ConflictRollback
)

type InsertStmt struct {
	Table         string
	Columns       []string
	Conflict      ConflictAction
	Values        [][]Expr
	Select        *SelectStmt
	DefaultValues bool
}

func (*InsertStmt) stmtNode() {}

type Assignment struct {
	Column string
	Value  Expr
}

type UpdateStmt struct {
	Table    string
	Alias    string
	Conflict ConflictAction
	Set      []*Assignment
	Where    Expr
}

func (*UpdateStmt) stmtNode() {}

type DeleteStmt struct {
	Table string
	Alias string
	Where Expr
}

func (*DeleteStmt) stmtNode() {}

// ----- DDL -----

type ColumnDef struct {
	Name          string
	Type          string
	NotNull       bool
	PrimaryKey    bool
	PKDesc        bool
	Autoincrement bool
	Unique        bool
	Default       Expr
	Collate       string
	Checks        []Expr
}

type ConstraintKind int

const (
	ConstraintPrimaryKey ConstraintKind = iota
	ConstraintUnique
	ConstraintCheck
)

type TableConstraint struct {
	Kind    ConstraintKind
	Name    string
	Columns []*IndexedColumn
	Check   Expr
}

type CreateTableStmt struct {
	Name        string
	IfNotExists bool
	Columns     []*ColumnDef
	Constraints []*TableConstraint
	AsSelect    *SelectStmt
}

func (*CreateTableStmt) stmtNode() {}

type IndexedColumn struct {
	Name    string
	Collate string
	Desc    bool
}

type CreateIndexStmt struct {
	Name        string
	Table       string
	Unique      bool
	IfNotExists bool
	Columns     []*IndexedColumn
}

func (*CreateIndexStmt) stmtNode() {}

type CreateViewStmt struct {
	Name        string
	IfNotExists bool
	Columns     []string
	Select      *SelectStmt
}

func (*CreateViewStmt) stmtNode() {}

type DropTableStmt struct {
	Name     string
	IfExists bool
}

func (*DropTableStmt) stmtNode() {}

type DropIndexStmt struct {
	Name     string
	IfExists bool
}

func (*DropIndexStmt) stmtNode() {}

type DropViewStmt struct {
	Name     string
	IfExists bool
}

func (*DropViewStmt) stmtNode() {}

// ExplainStmt wraps a statement whose plan is reported instead of run.
type ExplainStmt struct {
	Stmt Statement
}

func (*ExplainStmt) stmtNode() {}

// TransactionStmt is BEGIN, COMMIT/END or ROLLBACK. Every statement already
// commits on its own, so these only exist to be accepted by scripts.
type TransactionStmt struct {
	Verb string
}

func (*TransactionStmt) stmtNode() {}

// ----- Expressions -----

type Expr interface {
	exprNode()
}

type Literal struct {
	Value record.Value
}

type ColumnRef struct {
	Table  string
	Column string
}

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpPlus
	OpNot
	OpBitNot
)

type UnaryExpr struct {
	Op UnaryOp
	X  Expr
}

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpConcat
	OpBitAnd
	OpBitOr
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpIs
	OpIsNot
	OpAnd
	OpOr
)

var binaryOpNames = [...]string{
	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpRem: "%", OpConcat: "||",
	OpBitAnd: "&", OpBitOr: "|", OpShl: "<<", OpShr: ">>",
	OpEq: "=", OpNe: "<>", OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",
	OpIs: "IS", OpIsNot: "IS NOT", OpAnd: "AND", OpOr: "OR",
}

func (o BinaryOp) String() string { return binaryOpNames[o] }

// IsComparison reports whether o compares its operands.
func (o BinaryOp) IsComparison() bool { return o >= OpEq && o <= OpIsNot }

type BinaryExpr struct {
	Op BinaryOp
	L  Expr
	R  Expr
}

type LikeOp int

const (
	OpLike LikeOp = iota
	OpGlob
)

type LikeExpr struct {
	Op      LikeOp
	Not     bool
	X       Expr
	Pattern Expr
	Escape  Expr
}

type BetweenExpr struct {
	Not bool
	X   Expr
	Lo  Expr
	Hi  Expr
}

type InListExpr struct {
	Not  bool
	X    Expr
	List []Expr
}

type InSelectExpr struct {
	Not    bool
	X      Expr
	Select *SelectStmt
}

type ExistsExpr struct {
	Select *SelectStmt
}

// SubqueryExpr is a scalar subquery.
type SubqueryExpr struct {
	Select *SelectStmt
}

type IsNullExpr struct {
	Not bool
	X   Expr
}

type When struct {
	Cond   Expr
	Result Expr
}

type CaseExpr struct {
	Operand Expr
	Whens   []*When
	Else    Expr
}

type CastExpr struct {
	X    Expr
	Type string
}

type CollateExpr struct {
	X         Expr
	Collation string
}

type FuncCall struct {
	Name     string
	Args     []Expr
	Star     bool
	Distinct bool
}

func (*Literal) exprNode()      {}
func (*ColumnRef) exprNode()    {}
func (*UnaryExpr) exprNode()    {}
func (*BinaryExpr) exprNode()   {}
func (*LikeExpr) exprNode()     {}
func (*BetweenExpr) exprNode()  {}
func (*InListExpr) exprNode()   {}
func (*InSelectExpr) exprNode() {}
func (*ExistsExpr) exprNode()   {}
func (*SubqueryExpr) exprNode() {}
func (*IsNullExpr) exprNode()   {}
func (*CaseExpr) exprNode()     {}
func (*CastExpr) exprNode()     {}
func (*CollateExpr) exprNode()  {}
func (*FuncCall) exprNode()     {}
