package compiler

import (
	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/plan"
	"github.com/bqlquery/bql/types"
)

// BALANCES, JOURNAL and PRINT all rewrite into an equivalent SELECT
// (spec §4.D "Statement rewrites") against the conventional ledger-row
// column names this engine's row sources expose: "account", "position"
// (a summable amount), "balance" (the running balance at a posting),
// "date", "flag", "payee" and "narration". A source need only provide
// the columns the particular statement uses.

func col(name string) ast.Expr {
	return &ast.Column{Name: name}
}

// summarize wraps x in a call to the named summary function (the
// optional `AT <name>` clause); an empty name leaves x untouched.
func summarize(name string, x ast.Expr) ast.Expr {
	if name == "" {
		return x
	}
	return &ast.Function{Name: name, Args: []ast.Expr{x}}
}

func (c *Compiler) compileBalances(b *ast.Balances, params map[string]types.Value) (*plan.Query, error) {
	sel := &ast.Select{
		Targets: []ast.Target{
			{Expr: col("account")},
			{Expr: &ast.Function{Name: "sum", Args: []ast.Expr{summarize(b.SummaryFunc, col("position"))}}, As: "balance"},
		},
		From:  b.From,
		Where: b.Where,
		GroupBy: []ast.Expr{
			col("account"),
			&ast.Function{Name: "account_sortkey", Args: []ast.Expr{col("account")}},
		},
		OrderBy: []ast.OrderTerm{
			{Expr: &ast.Function{Name: "account_sortkey", Args: []ast.Expr{col("account")}}, Direction: ast.Asc},
		},
	}
	return c.compileSelect(sel, params)
}

func (c *Compiler) compileJournal(j *ast.Journal, params map[string]types.Value) (*plan.Query, error) {
	var where ast.Expr
	if j.Account != "" {
		where = &ast.Binary{Op: ast.Match, Left: col("account"), Right: &ast.Constant{Value: j.Account}}
	}
	sel := &ast.Select{
		Targets: []ast.Target{
			{Expr: col("date")},
			{Expr: col("flag")},
			{Expr: &ast.Function{Name: "maxwidth", Args: []ast.Expr{col("payee"), &ast.Constant{Value: int64(48)}}}, As: "payee"},
			{Expr: &ast.Function{Name: "maxwidth", Args: []ast.Expr{col("narration"), &ast.Constant{Value: int64(80)}}}, As: "narration"},
			{Expr: col("account")},
			{Expr: summarize(j.SummaryFunc, col("position")), As: "position"},
			{Expr: summarize(j.SummaryFunc, col("balance")), As: "balance"},
		},
		From:  j.From,
		Where: where,
		OrderBy: []ast.OrderTerm{
			{Expr: col("date"), Direction: ast.Asc},
		},
	}
	return c.compileSelect(sel, params)
}

func (c *Compiler) compilePrint(p *ast.Print, params map[string]types.Value) (*plan.Query, error) {
	sel := &ast.Select{From: p.From}
	return c.compileSelect(sel, params)
}
