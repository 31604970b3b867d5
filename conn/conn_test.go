package conn_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlquery/bql/conn"
	"github.com/bqlquery/bql/types"
)

func newTestConn(t *testing.T) *conn.Connection {
	t.Helper()
	c := conn.New()
	require.NoError(t, c.Attach("test:"))
	return c
}

func TestCursorRowCountBeforeExecuteIsNegativeOne(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	require.Equal(t, -1, cur.RowCount())
	require.Nil(t, cur.Description())
}

func TestCursorSelectStar(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	require.NoError(t, cur.Execute("SELECT * FROM #test;", nil))

	require.Equal(t, 16, cur.RowCount())
	require.Len(t, cur.Description(), 1)
	require.Equal(t, "value", cur.Description()[0].Name)

	row, err := cur.FetchOne()
	require.NoError(t, err)
	require.Equal(t, types.Int{V: 0}, row[0])
}

func TestCursorWhereAndLimit(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	require.NoError(t, cur.Execute("SELECT value FROM #test WHERE value > 10 ORDER BY value LIMIT 2;", nil))

	rows, err := cur.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, types.Int{V: 11}, rows[0][0])
	require.Equal(t, types.Int{V: 12}, rows[1][0])
}

func TestCursorAggregateImplicitGroupBy(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	// value % 2 groups the sixteen rows into evens and odds; relying on
	// implicit GROUP BY (no explicit clause) so the grouping key is the
	// same compiled node as the first target, not a freshly recompiled
	// duplicate of the expression text.
	require.NoError(t, cur.Execute("SELECT value % 2 AS parity, count(value) AS n, sum(value) AS total FROM #test ORDER BY value % 2;", nil))

	rows, err := cur.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, types.Int{V: 0}, rows[0][0])
	require.Equal(t, types.Int{V: 8}, rows[0][1])
	require.Equal(t, types.Int{V: 56}, rows[0][2])
	require.Equal(t, types.Int{V: 1}, rows[1][0])
	require.Equal(t, types.Int{V: 8}, rows[1][1])
	require.Equal(t, types.Int{V: 64}, rows[1][2])
}

func TestCursorExplicitGroupBy(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	// The GROUP BY clause repeats the exact target expression text; this
	// must compile even though GROUP BY and the target compile into
	// separate plan.Node trees (see astEqual in compiler/astequal.go).
	require.NoError(t, cur.Execute("SELECT value % 2 AS parity, count(value) AS n FROM #test GROUP BY value % 2 ORDER BY value % 2;", nil))

	rows, err := cur.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, types.Int{V: 8}, rows[0][1])
	require.Equal(t, types.Int{V: 8}, rows[1][1])
}

func TestCursorInList(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	require.NoError(t, cur.Execute("SELECT value FROM #test WHERE value IN (1, 3, 5) ORDER BY value;", nil))

	rows, err := cur.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, types.Int{V: 1}, rows[0][0])
	require.Equal(t, types.Int{V: 5}, rows[2][0])
}

func TestCursorDistinct(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	require.NoError(t, cur.Execute("SELECT DISTINCT value % 3 AS r FROM #test ORDER BY value % 3;", nil))

	rows, err := cur.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestCursorParameterBinding(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	require.NoError(t, cur.Execute("SELECT value FROM #test WHERE value = %(n)s;", map[string]interface{}{"n": int64(7)}))

	rows, err := cur.FetchAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, types.Int{V: 7}, rows[0][0])
}

func TestCursorMissingParameter(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	err := cur.Execute("SELECT value FROM #test WHERE value = %(n)s;", nil)
	require.Error(t, err)
}

func TestCursorFetchExhaustion(t *testing.T) {
	c := newTestConn(t)
	cur := c.NewCursor()
	require.NoError(t, cur.Execute("SELECT value FROM #test WHERE value < 2;", nil))

	_, err := cur.FetchOne()
	require.NoError(t, err)
	_, err = cur.FetchOne()
	require.NoError(t, err)
	_, err = cur.FetchOne()
	require.ErrorIs(t, err, io.EOF)
}

func TestAttachUnknownScheme(t *testing.T) {
	c := conn.New()
	err := c.Attach("mystery://x")
	require.Error(t, err)
}
