// Package parser turns a token stream into an ast.Statement.
//
// Grounded on the same lexer/token/ast/parser split observed in a small
// reference SQL parser in this corpus, adapted to spec §4.B's grammar
// and precedence table: a hand-written recursive-descent/precedence-
// climbing parser (no generated grammar), raising errs.NewSyntax on
// failure rather than panicking.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/errs"
	"github.com/bqlquery/bql/lexer"
	"github.com/bqlquery/bql/token"
)

// Parser consumes a token stream and builds an ast.Statement.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	peek token.Token
}

// New returns a Parser over input.
func New(input string) *Parser {
	p := &Parser{lex: lexer.New(input)}
	p.next()
	p.next()
	return p
}

// Parse parses exactly one statement, optionally followed by a
// trailing semicolon and EOF.
func Parse(input string) (ast.Statement, error) {
	p := New(input)
	stmt, err := p.ParseStatement()
	if err != nil {
		return nil, err
	}
	if p.cur.Type == token.SEMI {
		p.next()
	}
	if p.cur.Type != token.EOF {
		return nil, p.errorf("unexpected input after statement")
	}
	return stmt, nil
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.lex.Next()
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return errs.NewSyntax(p.cur.Pos, p.cur.Line, msg)
}

func (p *Parser) expect(t token.Type, what string) (token.Token, error) {
	if p.cur.Type != t {
		return token.Token{}, p.errorf("expected %s", what)
	}
	tok := p.cur
	p.next()
	return tok, nil
}

func span(start, end token.Token) ast.Span {
	return ast.Span{Start: start.Pos, End: end.Pos, Line: start.Line}
}

// ParseStatement parses a single top-level statement.
func (p *Parser) ParseStatement() (ast.Statement, error) {
	switch p.cur.Type {
	case token.SELECT:
		return p.parseSelect()
	case token.BALANCES:
		return p.parseBalances()
	case token.JOURNAL:
		return p.parseJournal()
	case token.PRINT:
		return p.parsePrint()
	default:
		return nil, p.errorf("expected SELECT, BALANCES, JOURNAL or PRINT")
	}
}

// ---- SELECT ----

func (p *Parser) parseSelect() (*ast.Select, error) {
	start := p.cur
	p.next() // SELECT

	sel := &ast.Select{}
	if p.cur.Type == token.DISTINCT {
		sel.Distinct = true
		p.next()
	}

	targets, err := p.parseTargetList()
	if err != nil {
		return nil, err
	}
	sel.Targets = targets

	if p.cur.Type == token.FROM {
		from, err := p.parseFrom()
		if err != nil {
			return nil, err
		}
		sel.From = from
	}

	if p.cur.Type == token.WHERE {
		p.next()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Where = w
	}

	if p.cur.Type == token.GROUP {
		p.next()
		if _, err := p.expect(token.BY, "BY"); err != nil {
			return nil, err
		}
		group, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		sel.GroupBy = group
	}

	if p.cur.Type == token.HAVING {
		p.next()
		h, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.Having = h
	}

	if p.cur.Type == token.ORDER {
		p.next()
		if _, err := p.expect(token.BY, "BY"); err != nil {
			return nil, err
		}
		order, err := p.parseOrderList()
		if err != nil {
			return nil, err
		}
		sel.OrderBy = order
	}

	if p.cur.Type == token.PIVOT {
		p.next()
		if _, err := p.expect(token.BY, "BY"); err != nil {
			return nil, err
		}
		first, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COMMA, ","); err != nil {
			return nil, err
		}
		second, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		sel.PivotBy = []ast.Expr{first, second}
	}

	if p.cur.Type == token.LIMIT {
		p.next()
		n, err := p.expect(token.INT, "integer")
		if err != nil {
			return nil, err
		}
		v, _ := strconv.Atoi(n.Literal)
		sel.Limit = &v
	}

	sel.Sp = span(start, p.cur)
	return sel, nil
}

func (p *Parser) parseTargetList() ([]ast.Target, error) {
	if p.cur.Type == token.STAR {
		p.next()
		return nil, nil
	}
	var targets []ast.Target
	for {
		t, err := p.parseTarget()
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
		if p.cur.Type != token.COMMA {
			break
		}
		p.next()
	}
	return targets, nil
}

func (p *Parser) parseTarget() (ast.Target, error) {
	e, err := p.parseExpr()
	if err != nil {
		return ast.Target{}, err
	}
	t := ast.Target{Expr: e}
	if p.cur.Type == token.AS {
		p.next()
		name, err := p.expect(token.IDENT, "identifier")
		if err != nil {
			return ast.Target{}, err
		}
		t.As = name.Literal
	}
	return t, nil
}

func (p *Parser) parseExprList() ([]ast.Expr, error) {
	var list []ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.cur.Type != token.COMMA {
			break
		}
		p.next()
	}
	return list, nil
}

func (p *Parser) parseOrderList() ([]ast.OrderTerm, error) {
	var terms []ast.OrderTerm
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		term := ast.OrderTerm{Expr: e, Direction: ast.Asc}
		switch p.cur.Type {
		case token.ASC:
			p.next()
		case token.DESC:
			term.Direction = ast.Desc
			p.next()
		}
		terms = append(terms, term)
		if p.cur.Type != token.COMMA {
			break
		}
		p.next()
	}
	return terms, nil
}

// parseFrom parses `FROM <source> [OPEN ON <date>] [CLOSE [ON <date>]] [CLEAR]`.
func (p *Parser) parseFrom() (*ast.From, error) {
	start := p.cur
	p.next() // FROM

	from := &ast.From{}
	switch p.cur.Type {
	case token.HASH:
		p.next()
		name, err := p.expect(token.IDENT, "table name")
		if err != nil {
			return nil, err
		}
		from.Table = name.Literal
	case token.LPAREN:
		if p.peek.Type == token.SELECT {
			p.next() // (
			sub, err := p.parseSelect()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RPAREN, ")"); err != nil {
				return nil, err
			}
			from.Subselect = sub
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			from.Expr = e
		}
	default:
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		from.Expr = e
	}

	if p.cur.Type == token.OPEN {
		p.next()
		if _, err := p.expect(token.ON, "ON"); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		from.Open = e
	}

	if p.cur.Type == token.CLOSE {
		p.next()
		from.HasClose = true
		if p.cur.Type == token.ON {
			p.next()
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			from.Close = e
		}
	}

	if p.cur.Type == token.CLEAR {
		p.next()
		from.Clear = true
	}

	from.Sp = span(start, p.cur)
	return from, nil
}

// ---- BALANCES / JOURNAL / PRINT ----

func (p *Parser) parseSummaryFunc() (string, error) {
	if p.cur.Type != token.AT {
		return "", nil
	}
	p.next()
	name, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return "", err
	}
	return name.Literal, nil
}

func (p *Parser) parseBalances() (*ast.Balances, error) {
	start := p.cur
	p.next() // BALANCES

	b := &ast.Balances{}
	sf, err := p.parseSummaryFunc()
	if err != nil {
		return nil, err
	}
	b.SummaryFunc = sf

	if p.cur.Type == token.FROM {
		from, err := p.parseFrom()
		if err != nil {
			return nil, err
		}
		b.From = from
	}
	if p.cur.Type == token.WHERE {
		p.next()
		w, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		b.Where = w
	}
	b.Sp = span(start, p.cur)
	return b, nil
}

func (p *Parser) parseJournal() (*ast.Journal, error) {
	start := p.cur
	p.next() // JOURNAL

	j := &ast.Journal{}
	if p.cur.Type == token.STRING {
		j.Account = p.cur.Literal
		p.next()
	}
	sf, err := p.parseSummaryFunc()
	if err != nil {
		return nil, err
	}
	j.SummaryFunc = sf

	if p.cur.Type == token.FROM {
		from, err := p.parseFrom()
		if err != nil {
			return nil, err
		}
		j.From = from
	}
	j.Sp = span(start, p.cur)
	return j, nil
}

func (p *Parser) parsePrint() (*ast.Print, error) {
	start := p.cur
	p.next() // PRINT

	pr := &ast.Print{}
	if p.cur.Type == token.FROM {
		from, err := p.parseFrom()
		if err != nil {
			return nil, err
		}
		pr.From = from
	}
	pr.Sp = span(start, p.cur)
	return pr, nil
}

// ---- Expressions ----
//
// Precedence, lowest to highest (spec §4.B):
//   OR
//   AND
//   NOT (prefix)
//   comparison / IN / ~ / !~ / ?~ / IS [NOT] NULL / BETWEEN  (non-associative)
//   + -
//   * / %
//   unary - ; attribute/subscript postfix (highest)

func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.OR {
		start := p.cur
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: ast.Or, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.AND {
		start := p.cur
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: ast.And, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.cur.Type == token.NOT {
		start := p.cur
		p.next()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: ast.Not, X: x}, nil
	}
	return p.parseComparison()
}

// parseComparison parses the non-associative comparison tier: a plain
// comparison/match/IN/BETWEEN/IS-NULL suffix may appear at most once,
// so `a = b = c` is rejected at this level (spec §4.B).
func (p *Parser) parseComparison() (ast.Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	switch p.cur.Type {
	case token.EQ, token.NEQ, token.LT, token.LTEQ, token.GT, token.GTEQ,
		token.TILDE, token.NOTTILDE, token.CONDTILDE:
		op := binOpFor(p.cur.Type)
		start := p.cur
		p.next()
		if p.cur.Type == token.ANY || p.cur.Type == token.ALL {
			return p.parseQuantified(left, op, start)
		}
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Binary{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: op, Left: left, Right: right}, nil

	case token.BETWEEN:
		start := p.cur
		p.next()
		low, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.AND, "AND"); err != nil {
			return nil, err
		}
		high, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Between{ExprBase: ast.NewExprBase(span(start, p.cur)), X: left, Low: low, High: high}, nil

	case token.IN:
		return p.parseIn(left, ast.In)

	case token.NOT:
		if p.peek.Type == token.IN {
			p.next() // NOT
			return p.parseIn(left, ast.NotIn)
		}

	case token.IS:
		start := p.cur
		p.next()
		notNull := ast.IsNull
		if p.cur.Type == token.NOT {
			p.next()
			notNull = ast.IsNotNull
		}
		if _, err := p.expect(token.NULL, "NULL"); err != nil {
			return nil, err
		}
		return &ast.Unary{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: notNull, X: left}, nil
	}

	return left, nil
}

func (p *Parser) parseIn(left ast.Expr, kind ast.InKind) (ast.Expr, error) {
	start := p.cur
	p.next() // IN
	if _, err := p.expect(token.LPAREN, "("); err != nil {
		return nil, err
	}
	if p.cur.Type == token.SELECT {
		sub, err := p.parseSelect()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, ")"); err != nil {
			return nil, err
		}
		return &ast.InExpr{ExprBase: ast.NewExprBase(span(start, p.cur)), Kind: kind, X: left, Subselect: sub}, nil
	}
	list, err := p.parseExprList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	return &ast.InExpr{ExprBase: ast.NewExprBase(span(start, p.cur)), Kind: kind, X: left, List: list}, nil
}

func (p *Parser) parseQuantified(left ast.Expr, op ast.BinaryOp, start token.Token) (ast.Expr, error) {
	q := ast.Any
	if p.cur.Type == token.ALL {
		q = ast.All
	}
	p.next() // ANY/ALL
	if _, err := p.expect(token.LPAREN, "("); err != nil {
		return nil, err
	}
	sub, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN, ")"); err != nil {
		return nil, err
	}
	return &ast.Quantified{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: op, X: left, Quantifier: q, Subselect: sub}, nil
}

func binOpFor(t token.Type) ast.BinaryOp {
	switch t {
	case token.EQ:
		return ast.Eq
	case token.NEQ:
		return ast.NotEq
	case token.LT:
		return ast.Lt
	case token.LTEQ:
		return ast.LtEq
	case token.GT:
		return ast.Gt
	case token.GTEQ:
		return ast.GtEq
	case token.TILDE:
		return ast.Match
	case token.NOTTILDE:
		return ast.NotMatch
	case token.CONDTILDE:
		return ast.CondMatch
	}
	return ast.Eq
}

func (p *Parser) parseAdditive() (ast.Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.PLUS || p.cur.Type == token.MINUS {
		op := ast.Add
		if p.cur.Type == token.MINUS {
			op = ast.Sub
		}
		start := p.cur
		p.next()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseMultiplicative() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == token.STAR || p.cur.Type == token.SLASH || p.cur.Type == token.PERCENT {
		var op ast.BinaryOp
		switch p.cur.Type {
		case token.STAR:
			op = ast.Mul
		case token.SLASH:
			op = ast.Div
		case token.PERCENT:
			op = ast.Mod
		}
		start := p.cur
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	if p.cur.Type == token.MINUS {
		start := p.cur
		p.next()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Unary{ExprBase: ast.NewExprBase(span(start, p.cur)), Op: ast.Neg, X: x}, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur.Type {
		case token.DOT:
			start := p.cur
			p.next()
			name, err := p.expect(token.IDENT, "identifier")
			if err != nil {
				return nil, err
			}
			x = &ast.Attribute{ExprBase: ast.NewExprBase(span(start, p.cur)), X: x, Field: name.Literal}
		case token.LBRACKET:
			start := p.cur
			p.next()
			key, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET, "]"); err != nil {
				return nil, err
			}
			x = &ast.Subscript{ExprBase: ast.NewExprBase(span(start, p.cur)), X: x, Key: key}
		default:
			return x, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	start := p.cur
	switch p.cur.Type {
	case token.INT:
		n, err := strconv.ParseInt(p.cur.Literal, 10, 64)
		if err != nil {
			return nil, p.errorf("invalid integer %q", p.cur.Literal)
		}
		p.next()
		return &ast.Constant{ExprBase: ast.NewExprBase(span(start, p.cur)), Value: n}, nil

	case token.DECIMAL:
		lit := p.cur.Literal
		p.next()
		return &ast.Constant{ExprBase: ast.NewExprBase(span(start, p.cur)), Value: ast.DecimalLiteral{Text: lit}}, nil

	case token.STRING:
		s := p.cur.Literal
		p.next()
		return &ast.Constant{ExprBase: ast.NewExprBase(span(start, p.cur)), Value: s}, nil

	case token.DATE:
		s := p.cur.Literal
		p.next()
		return &ast.Constant{ExprBase: ast.NewExprBase(span(start, p.cur)), Value: ast.DateLiteral{Text: s}}, nil

	case token.TRUE:
		p.next()
		return &ast.Constant{ExprBase: ast.NewExprBase(span(start, p.cur)), Value: true}, nil

	case token.FALSE:
		p.next()
		return &ast.Constant{ExprBase: ast.NewExprBase(span(start, p.cur)), Value: false}, nil

	case token.NULL:
		p.next()
		return &ast.Constant{ExprBase: ast.NewExprBase(span(start, p.cur)), Value: nil}, nil

	case token.PLACEHOLDER:
		name := p.cur.Literal
		p.next()
		return &ast.Placeholder{ExprBase: ast.NewExprBase(span(start, p.cur)), Name: name}, nil

	case token.STAR:
		p.next()
		return &ast.Asterisk{ExprBase: ast.NewExprBase(span(start, p.cur))}, nil

	case token.LPAREN:
		p.next()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, ")"); err != nil {
			return nil, err
		}
		return e, nil

	case token.IDENT:
		name := p.cur.Literal
		p.next()
		if p.cur.Type == token.LPAREN {
			p.next()
			var args []ast.Expr
			if p.cur.Type != token.RPAREN {
				list, err := p.parseExprList()
				if err != nil {
					return nil, err
				}
				args = list
			}
			if _, err := p.expect(token.RPAREN, ")"); err != nil {
				return nil, err
			}
			return &ast.Function{ExprBase: ast.NewExprBase(span(start, p.cur)), Name: strings.ToLower(name), Args: args}, nil
		}
		return &ast.Column{ExprBase: ast.NewExprBase(span(start, p.cur)), Name: name}, nil
	}

	return nil, p.errorf("unexpected token")
}

