package compiler_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bqlquery/bql/compiler"
	"github.com/bqlquery/bql/exec"
	"github.com/bqlquery/bql/function"
	"github.com/bqlquery/bql/parser"
	"github.com/bqlquery/bql/sources"
	"github.com/bqlquery/bql/types"
)

func newLedgerTable(t *testing.T) *sources.Table {
	t.Helper()
	tbl := sources.NewTable("ledger", []sources.Column{
		{Name: "account", Dtype: types.StringType},
		{Name: "currency", Dtype: types.StringType},
		{Name: "position", Dtype: types.DecimalType},
		{Name: "balance", Dtype: types.DecimalType},
		{Name: "date", Dtype: types.DateType},
		{Name: "flag", Dtype: types.StringType},
		{Name: "payee", Dtype: types.StringType},
		{Name: "narration", Dtype: types.StringType},
	})
	rows := []struct {
		account, currency string
		amount, running   int64
		date              string
	}{
		{"Assets:Checking", "USD", 100, 100, "2024-01-01"},
		{"Assets:Checking", "EUR", 50, 50, "2024-01-02"},
		{"Expenses:Food", "USD", -100, -100, "2024-01-01"},
		{"Expenses:Food", "EUR", -50, -50, "2024-01-02"},
	}
	for _, r := range rows {
		require.NoError(t, tbl.AddRow(
			types.String{V: r.account},
			types.String{V: r.currency},
			types.Decimal{V: decimal.NewFromInt(r.amount)},
			types.Decimal{V: decimal.NewFromInt(r.running)},
			types.CastDate(types.String{V: r.date}),
			types.String{V: "*"},
			types.String{V: "Store"},
			types.String{V: "narration"},
		))
	}
	return tbl
}

func compileAndRun(t *testing.T, c *compiler.Compiler, sql string) *exec.Result {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	q, err := c.Compile(stmt, nil)
	require.NoError(t, err)
	res, err := exec.Execute(q)
	require.NoError(t, err)
	return res
}

func newLedgerCompiler(t *testing.T) *compiler.Compiler {
	tbl := newLedgerTable(t)
	c := compiler.New(function.NewRegistry())
	c.Tables["ledger"] = tbl
	c.Default = tbl
	return c
}

func TestPivotByTransposesColumns(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "SELECT account, currency, sum(position) AS total FROM #ledger GROUP BY account, currency PIVOT BY account, currency;")

	require.Equal(t, "account", res.Columns[0].Name)
	var names []string
	for _, col := range res.Columns {
		names = append(names, col.Name)
	}
	// a single fanned-out target needs no "/<name>" suffix to disambiguate.
	require.Contains(t, names, "EUR")
	require.Contains(t, names, "USD")
	require.NotContains(t, names, "EUR/total")
	require.Len(t, res.Rows, 2) // one row per distinct account
}

func TestPivotByQualifiesNameWithMultipleTargets(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "SELECT account, currency, sum(position) AS total, count(position) AS cnt FROM #ledger GROUP BY account, currency PIVOT BY account, currency;")

	var names []string
	for _, col := range res.Columns {
		names = append(names, col.Name)
	}
	require.Contains(t, names, "EUR/total")
	require.Contains(t, names, "EUR/cnt")
	require.Contains(t, names, "USD/total")
	require.Contains(t, names, "USD/cnt")
}

func TestPivotByAcceptsOrdinals(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "SELECT account, currency, sum(position) AS total FROM #ledger GROUP BY account, currency PIVOT BY 1, 2;")

	require.Equal(t, "account", res.Columns[0].Name)
	var names []string
	for _, col := range res.Columns {
		names = append(names, col.Name)
	}
	require.Contains(t, names, "EUR")
	require.Contains(t, names, "USD")
}

func TestGroupByAcceptsOrdinals(t *testing.T) {
	c := newLedgerCompiler(t)
	// ordinals 1, 2 resolve to the account and y targets; every row falls
	// in 2024, so grouping collapses to one row per account.
	res := compileAndRun(t, c, "SELECT account, year(date) AS y, sum(position) FROM #ledger GROUP BY 1, 2;")
	require.Len(t, res.Rows, 2)
}

func TestGroupByAcceptsTargetAlias(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "SELECT account, year(date) AS y, sum(position) FROM #ledger GROUP BY account, y;")
	require.Len(t, res.Rows, 2)
}

func TestGroupByOrdinalRejectsAggregateTarget(t *testing.T) {
	c := newLedgerCompiler(t)
	stmt, err := parser.Parse("SELECT account, sum(position) FROM #ledger GROUP BY 2;")
	require.NoError(t, err)
	_, err = c.Compile(stmt, nil)
	require.Error(t, err)
}

func TestOrderByAcceptsOrdinal(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "SELECT account, position FROM #ledger ORDER BY 2;")
	require.Len(t, res.Rows, 4)
	want := []int64{-100, -50, 50, 100}
	for i, w := range want {
		require.True(t, res.Rows[i][1].(types.Decimal).V.Equal(decimal.NewFromInt(w)), "row %d", i)
	}
}

func TestFromRejectsOpenAfterClose(t *testing.T) {
	c := newLedgerCompiler(t)
	stmt, err := parser.Parse("SELECT account FROM #ledger OPEN ON 2024-12-31 CLOSE ON 2024-01-01;")
	require.NoError(t, err)
	_, err = c.Compile(stmt, nil)
	require.Error(t, err)
}

func TestBalancesRewrite(t *testing.T) {
	c := newLedgerCompiler(t)
	stmt, err := parser.Parse("BALANCES FROM #ledger WHERE currency = 'USD';")
	require.NoError(t, err)
	q, err := c.Compile(stmt, nil)
	require.NoError(t, err)
	res, err := exec.Execute(q)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	require.Equal(t, "Assets:Checking", res.Rows[0][0].(types.String).V)
}

func TestJournalRewriteFiltersByAccount(t *testing.T) {
	c := newLedgerCompiler(t)
	stmt, err := parser.Parse("JOURNAL 'Expenses:Food' FROM #ledger;")
	require.NoError(t, err)
	q, err := c.Compile(stmt, nil)
	require.NoError(t, err)
	res, err := exec.Execute(q)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	for _, row := range res.Rows {
		require.Equal(t, "Expenses:Food", row[4].(types.String).V)
	}
}

func TestJournalRewriteWrapsPayeeAndNarration(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "JOURNAL 'Expenses:Food' FROM #ledger;")

	require.Equal(t, "payee", res.Columns[2].Name)
	require.Equal(t, "narration", res.Columns[3].Name)
	require.Equal(t, "balance", res.Columns[6].Name)
	for _, row := range res.Rows {
		require.Equal(t, "Store", row[2].(types.String).V) // shorter than maxwidth(48), untruncated
	}
}

func TestJournalRewriteAppliesSummaryFunc(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "JOURNAL 'Expenses:Food' AT abs FROM #ledger;")

	for _, row := range res.Rows {
		require.True(t, row[5].(types.Decimal).V.IsPositive() || row[5].(types.Decimal).V.IsZero())
		require.True(t, row[6].(types.Decimal).V.IsPositive() || row[6].(types.Decimal).V.IsZero())
	}
}

func TestBalancesOrdersByAccountSortkey(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "BALANCES FROM #ledger WHERE currency = 'USD';")

	require.Len(t, res.Rows, 2)
	require.Equal(t, "Assets:Checking", res.Rows[0][0].(types.String).V)
	require.Equal(t, "Expenses:Food", res.Rows[1][0].(types.String).V)
}

func TestPrintRewriteIsSelectStar(t *testing.T) {
	c := newLedgerCompiler(t)
	res := compileAndRun(t, c, "PRINT FROM #ledger;")
	require.Len(t, res.Rows, 4)
	require.Len(t, res.Columns, 8)
}

func TestOrderByNullsFirstAscending(t *testing.T) {
	tbl := sources.NewTable("t", []sources.Column{{Name: "v", Dtype: types.IntType}})
	require.NoError(t, tbl.AddRow(types.Int{V: 2}))
	require.NoError(t, tbl.AddRow(types.Int{Null: true}))
	require.NoError(t, tbl.AddRow(types.Int{V: 1}))

	c := compiler.New(function.NewRegistry())
	c.Tables["t"] = tbl
	c.Default = tbl

	res := compileAndRun(t, c, "SELECT v FROM #t ORDER BY v;")
	require.Len(t, res.Rows, 3)
	require.True(t, res.Rows[0][0].IsNull())
	require.Equal(t, types.Int{V: 1}, res.Rows[1][0])
	require.Equal(t, types.Int{V: 2}, res.Rows[2][0])
}

func TestOrderByNullsLastDescending(t *testing.T) {
	tbl := sources.NewTable("t", []sources.Column{{Name: "v", Dtype: types.IntType}})
	require.NoError(t, tbl.AddRow(types.Int{V: 2}))
	require.NoError(t, tbl.AddRow(types.Int{Null: true}))
	require.NoError(t, tbl.AddRow(types.Int{V: 1}))

	c := compiler.New(function.NewRegistry())
	c.Tables["t"] = tbl
	c.Default = tbl

	res := compileAndRun(t, c, "SELECT v FROM #t ORDER BY v DESC;")
	require.Len(t, res.Rows, 3)
	require.Equal(t, types.Int{V: 2}, res.Rows[0][0])
	require.Equal(t, types.Int{V: 1}, res.Rows[1][0])
	require.True(t, res.Rows[2][0].IsNull())
}

func TestAggregateCoverageRejectsUncoveredColumn(t *testing.T) {
	c := newLedgerCompiler(t)
	stmt, err := parser.Parse("SELECT account, currency, sum(position) FROM #ledger GROUP BY account;")
	require.NoError(t, err)
	_, err = c.Compile(stmt, nil)
	require.Error(t, err)
}

func TestWhereRejectsAggregate(t *testing.T) {
	c := newLedgerCompiler(t)
	stmt, err := parser.Parse("SELECT account FROM #ledger WHERE sum(position) > 0;")
	require.NoError(t, err)
	_, err = c.Compile(stmt, nil)
	require.Error(t, err)
}

func TestUnknownTableIsCompilationError(t *testing.T) {
	c := compiler.New(function.NewRegistry())
	stmt, err := parser.Parse("SELECT 1 FROM #nope;")
	require.NoError(t, err)
	_, err = c.Compile(stmt, nil)
	require.Error(t, err)
}
