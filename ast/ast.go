// Package ast defines the abstract syntax tree produced by the parser.
//
// Every node carries a Span marking its source extent, so that
// compilation and parse errors can point back at the statement text.
package ast

// Span marks the source extent of a node: byte offsets [Start, End) and
// the 1-based line the node starts on.
type Span struct {
	Start, End int
	Line       int
}

// Node is implemented by every AST node.
type Node interface {
	Span() Span
	node()
}

// Base is embedded by every statement-level node to supply Span/node.
type Base struct {
	Sp Span
}

func (b Base) Span() Span { return b.Sp }
func (Base) node()        {}

// Ordering is the sort direction for an ORDER BY term.
type Ordering int

const (
	Asc Ordering = iota
	Desc
)

// Statement is the top-level parse result: exactly one of Select,
// Balances, Journal or Print is non-nil... modeled instead as an
// interface so each statement kind is its own Node.
type Statement interface {
	Node
	statement()
}

// Select is `SELECT [DISTINCT] targets [FROM from] [WHERE where]
// [GROUP BY group] [HAVING having] [ORDER BY order]+ [PIVOT BY pivot]
// [LIMIT limit]`.
type Select struct {
	Base
	Distinct bool
	Targets  []Target // nil means "*"
	From     *From
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	OrderBy  []OrderTerm
	PivotBy  []Expr // exactly two columns when present
	Limit    *int
}

func (*Select) statement() {}

// Balances is `BALANCES [AT name] [FROM from] [WHERE where]`.
type Balances struct {
	Base
	SummaryFunc string
	From        *From
	Where       Expr
}

func (*Balances) statement() {}

// Journal is `JOURNAL [account] [AT name] [FROM from]`.
type Journal struct {
	Base
	Account     string
	SummaryFunc string
	From        *From
}

func (*Journal) statement() {}

// Print is `PRINT [FROM from]`.
type Print struct {
	Base
	From *From
}

func (*Print) statement() {}

// Target is one SELECT output expression, with an optional explicit alias.
type Target struct {
	Expr  Expr
	As    string
	Star  bool // true for bare `*`
	Table string
}

// OrderTerm is one `ORDER BY` entry: an index, a column name, or an
// arbitrary expression, plus its direction.
type OrderTerm struct {
	Expr      Expr
	Direction Ordering
}

// From carries an optional source expression/subselect/table reference
// plus the OPEN/CLOSE/CLEAR lifecycle modifiers.
type From struct {
	Base
	Expr     Expr    // FROM <expr>; mutually exclusive with Subselect/Table
	Subselect *Select
	Table    string // `#name` reference
	Open     Expr   // OPEN ON <date>
	Close    Expr   // CLOSE ON <date>; nil for a bare CLOSE, which sets only HasClose
	HasClose bool
	Clear    bool
}

// ---- Expressions ----

// Expr is any value-producing AST node.
type Expr interface {
	Node
	expr()
}

type ExprBase struct{ Base }

func (ExprBase) expr() {}

// Constant is a literal value: bool, int64, string, DecimalLiteral,
// DateLiteral, or nil for NULL.
type Constant struct {
	ExprBase
	Value interface{}
}

// Placeholder is `%s` (Name == "") or `%(name)s`.
type Placeholder struct {
	ExprBase
	Name string
}

// Column is a bare identifier referencing a table column.
type Column struct {
	ExprBase
	Name string
}

// Asterisk is the `*` target.
type Asterisk struct{ ExprBase }

// NewBase builds a Base from a span.
func NewBase(sp Span) Base { return Base{Sp: sp} }

// NewExprBase builds an ExprBase from a span.
func NewExprBase(sp Span) ExprBase { return ExprBase{Base: Base{Sp: sp}} }

// DecimalLiteral is a Constant.Value payload for a decimal literal,
// kept as its original text so the compiler parses it with
// shopspring/decimal rather than losing precision through float64.
type DecimalLiteral struct{ Text string }

// DateLiteral is a Constant.Value payload for a YYYY-MM-DD literal.
type DateLiteral struct{ Text string }

// Function is `name(args...)`.
type Function struct {
	ExprBase
	Name string
	Args []Expr
}

// Attribute is `x.field`.
type Attribute struct {
	ExprBase
	X     Expr
	Field string
}

// Subscript is `x[key]`.
type Subscript struct {
	ExprBase
	X   Expr
	Key Expr
}

// UnaryOp identifies a unary operator.
type UnaryOp int

const (
	Neg UnaryOp = iota
	IsNull
	IsNotNull
	Not
)

// Unary is a unary operator node.
type Unary struct {
	ExprBase
	Op UnaryOp
	X  Expr
}

// BinaryOp identifies a binary operator.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
	Eq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	Match    // ~
	NotMatch // !~
	CondMatch // ?~
	And
	Or
)

// Binary is a binary operator node.
type Binary struct {
	ExprBase
	Op          BinaryOp
	Left, Right Expr
}

// Between is `x BETWEEN lo AND hi`.
type Between struct {
	ExprBase
	X, Low, High Expr
}

// InKind distinguishes IN from NOT IN.
type InKind int

const (
	In InKind = iota
	NotIn
)

// InExpr is `x IN (...)`/`x NOT IN (...)`. Exactly one of List or
// Subselect is set.
type InExpr struct {
	ExprBase
	Kind      InKind
	X         Expr
	List      []Expr
	Subselect *Select
}

// Quantifier distinguishes ANY from ALL in a quantified comparison.
type Quantifier int

const (
	Any Quantifier = iota
	All
)

// Quantified is `x <op> ANY(subselect)` / `x <op> ALL(subselect)`.
type Quantified struct {
	ExprBase
	Op         BinaryOp
	X          Expr
	Quantifier Quantifier
	Subselect  *Select
}
