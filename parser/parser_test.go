package parser_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/parser"
)

func TestParseSelectStar(t *testing.T) {
	stmt, err := parser.Parse("SELECT * FROM #balances;")
	require.NoError(t, err)
	sel, ok := stmt.(*ast.Select)
	require.True(t, ok)
	require.Nil(t, sel.Targets)
	require.Equal(t, "balances", sel.From.Table)
}

func TestParseSelectWithAliasAndWhere(t *testing.T) {
	stmt, err := parser.Parse("SELECT account AS a, value % 2 FROM #test WHERE value > 1;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	require.Len(t, sel.Targets, 2)
	require.Equal(t, "a", sel.Targets[0].As)
	bin, ok := sel.Targets[1].Expr.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.Mod, bin.Op)
	require.NotNil(t, sel.Where)
}

func TestParseGroupByHavingOrderByLimit(t *testing.T) {
	stmt, err := parser.Parse("SELECT account, sum(value) AS total FROM #test GROUP BY account HAVING sum(value) > 0 ORDER BY total DESC LIMIT 5;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	require.Len(t, sel.GroupBy, 1)
	require.NotNil(t, sel.Having)
	require.Len(t, sel.OrderBy, 1)
	require.Equal(t, ast.Desc, sel.OrderBy[0].Direction)
	require.NotNil(t, sel.Limit)
	require.Equal(t, 5, *sel.Limit)
}

func TestParsePivotBy(t *testing.T) {
	stmt, err := parser.Parse("SELECT account, currency, sum(value) FROM #test PIVOT BY account, currency;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	require.Len(t, sel.PivotBy, 2)
}

func TestParseDistinct(t *testing.T) {
	stmt, err := parser.Parse("SELECT DISTINCT account FROM #test;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	require.True(t, sel.Distinct)
}

func TestParseInList(t *testing.T) {
	stmt, err := parser.Parse("SELECT value FROM #test WHERE value IN (1, 2, 3);")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	in, ok := sel.Where.(*ast.InExpr)
	require.True(t, ok)
	require.Equal(t, ast.In, in.Kind)
	require.Len(t, in.List, 3)
}

func TestParseNotIn(t *testing.T) {
	stmt, err := parser.Parse("SELECT value FROM #test WHERE value NOT IN (1, 2);")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	in, ok := sel.Where.(*ast.InExpr)
	require.True(t, ok)
	require.Equal(t, ast.NotIn, in.Kind)
}

func TestParseBetween(t *testing.T) {
	stmt, err := parser.Parse("SELECT value FROM #test WHERE value BETWEEN 1 AND 10;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	_, ok := sel.Where.(*ast.Between)
	require.True(t, ok)
}

func TestParseIsNull(t *testing.T) {
	stmt, err := parser.Parse("SELECT value FROM #test WHERE value IS NOT NULL;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	u, ok := sel.Where.(*ast.Unary)
	require.True(t, ok)
	require.Equal(t, ast.IsNotNull, u.Op)
}

func TestParseQuantifiedAny(t *testing.T) {
	stmt, err := parser.Parse("SELECT value FROM #test WHERE value = ANY(SELECT value FROM #test);")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	q, ok := sel.Where.(*ast.Quantified)
	require.True(t, ok)
	require.Equal(t, ast.Any, q.Quantifier)
}

func TestParsePlaceholders(t *testing.T) {
	stmt, err := parser.Parse("SELECT value FROM #test WHERE value = %s AND account = %(acct)s;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	and, ok := sel.Where.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.And, and.Op)
	left := and.Left.(*ast.Binary)
	ph := left.Right.(*ast.Placeholder)
	require.Equal(t, "", ph.Name)
	right := and.Right.(*ast.Binary)
	ph2 := right.Right.(*ast.Placeholder)
	require.Equal(t, "acct", ph2.Name)
}

func TestParseOperatorPrecedence(t *testing.T) {
	// `1 + 2 * 3` must parse as `1 + (2 * 3)`, not `(1 + 2) * 3`.
	stmt, err := parser.Parse("SELECT 1 + 2 * 3;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	top := sel.Targets[0].Expr.(*ast.Binary)
	require.Equal(t, ast.Add, top.Op)
	_, leftIsConst := top.Left.(*ast.Constant)
	require.True(t, leftIsConst)
	mul, ok := top.Right.(*ast.Binary)
	require.True(t, ok)
	require.Equal(t, ast.Mul, mul.Op)
}

func TestParseBalances(t *testing.T) {
	stmt, err := parser.Parse("BALANCES FROM #test WHERE value > 0;")
	require.NoError(t, err)
	_, ok := stmt.(*ast.Balances)
	require.True(t, ok)
}

func TestParseJournal(t *testing.T) {
	stmt, err := parser.Parse("JOURNAL 'Assets:Checking' FROM #test;")
	require.NoError(t, err)
	j, ok := stmt.(*ast.Journal)
	require.True(t, ok)
	require.Equal(t, "Assets:Checking", j.Account)
}

func TestParsePrint(t *testing.T) {
	stmt, err := parser.Parse("PRINT FROM #test;")
	require.NoError(t, err)
	_, ok := stmt.(*ast.Print)
	require.True(t, ok)
}

func TestParseSubselectFrom(t *testing.T) {
	stmt, err := parser.Parse("SELECT value FROM (SELECT value FROM #test);")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	require.NotNil(t, sel.From.Subselect)
}

func TestParseOpenCloseClear(t *testing.T) {
	stmt, err := parser.Parse("SELECT value FROM #test OPEN ON 2024-01-01 CLOSE ON 2024-12-31 CLEAR;")
	require.NoError(t, err)
	sel := stmt.(*ast.Select)
	require.NotNil(t, sel.From.Open)
	require.True(t, sel.From.HasClose)
	require.True(t, sel.From.Clear)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := parser.Parse("SELECT FROM WHERE;")
	require.Error(t, err)
}

func TestParseTrailingGarbageIsError(t *testing.T) {
	_, err := parser.Parse("SELECT 1; SELECT 2;")
	require.Error(t, err)
}
