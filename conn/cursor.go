package conn

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bqlquery/bql/errs"
	"github.com/bqlquery/bql/exec"
	"github.com/bqlquery/bql/parser"
	"github.com/bqlquery/bql/types"
)

// Cursor executes one statement and iterates its result, matching the
// DB-API shape spec §4.F mandates (execute/fetchone/fetchmany/fetchall/
// rowcount/description), grounded on the teacher's driver.Stmt/driver.Rows
// pair adapted to a single combined type since this module has no
// prepare/execute split at the wire level.
type Cursor struct {
	ID   uuid.UUID
	conn *Connection

	result *exec.Result
	pos    int
}

// NewCursor returns an unexecuted Cursor bound to conn.
func (c *Connection) NewCursor() *Cursor {
	return &Cursor{ID: uuid.New(), conn: c}
}

// Execute parses, compiles and runs sql, binding %s/%(name)s
// placeholders from params. A Cursor may be reused for successive
// statements; each Execute replaces its prior result and resets the
// fetch position.
func (c *Cursor) Execute(sql string, params map[string]interface{}) error {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return err
	}

	bound, err := bindParams(params)
	if err != nil {
		return err
	}

	cc := c.conn.newCompiler()
	q, err := cc.Compile(stmt, bound)
	if err != nil {
		return err
	}

	c.conn.log.WithField("cursor", c.ID).Debugf("executing: %s", sql)
	res, err := exec.Execute(q)
	if err != nil {
		return err
	}

	c.result = res
	c.pos = 0
	return nil
}

// Description reports the output schema of the last Execute.
func (c *Cursor) Description() []exec.Column {
	if c.result == nil {
		return nil
	}
	return c.result.Columns
}

// RowCount reports the number of rows the last Execute produced, or -1
// if no statement has been executed on this cursor yet (spec §4.F).
func (c *Cursor) RowCount() int {
	if c.result == nil {
		return -1
	}
	return len(c.result.Rows)
}

// FetchOne returns the next row, or io.EOF once exhausted.
func (c *Cursor) FetchOne() ([]types.Value, error) {
	if c.result == nil || c.pos >= len(c.result.Rows) {
		return nil, io.EOF
	}
	row := c.result.Rows[c.pos]
	c.pos++
	return row, nil
}

// FetchMany returns up to n further rows (fewer at the end of the
// result, never io.EOF for a short-but-nonzero batch — only an
// already-exhausted cursor returns an empty slice).
func (c *Cursor) FetchMany(n int) ([][]types.Value, error) {
	if c.result == nil {
		return nil, nil
	}
	end := c.pos + n
	if end > len(c.result.Rows) {
		end = len(c.result.Rows)
	}
	rows := c.result.Rows[c.pos:end]
	c.pos = end
	return rows, nil
}

// FetchAll returns every remaining row.
func (c *Cursor) FetchAll() ([][]types.Value, error) {
	if c.result == nil {
		return nil, nil
	}
	rows := c.result.Rows[c.pos:]
	c.pos = len(c.result.Rows)
	return rows, nil
}

// bindParams converts a caller-supplied parameter map into typed BQL
// values, accepting the Go types a parameter is naturally held in.
func bindParams(params map[string]interface{}) (map[string]types.Value, error) {
	if params == nil {
		return nil, nil
	}
	out := make(map[string]types.Value, len(params))
	for k, v := range params {
		tv, err := toValue(v)
		if err != nil {
			return nil, errs.NewParameter("parameter %q: %s", k, err)
		}
		out[k] = tv
	}
	return out, nil
}

func toValue(v interface{}) (types.Value, error) {
	switch t := v.(type) {
	case nil:
		return types.Object{Null: true}, nil
	case types.Value:
		return t, nil
	case bool:
		return types.Bool{V: t}, nil
	case int:
		return types.Int{V: int64(t)}, nil
	case int64:
		return types.Int{V: t}, nil
	case float64:
		return types.Decimal{V: decimal.NewFromFloat(t)}, nil
	case decimal.Decimal:
		return types.Decimal{V: t}, nil
	case string:
		return types.String{V: t}, nil
	case time.Time:
		return types.Date{V: t}, nil
	default:
		return nil, fmt.Errorf("unsupported parameter type %T", v)
	}
}
