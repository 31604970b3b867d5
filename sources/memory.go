package sources

import (
	"net/url"
	"time"

	"github.com/bqlquery/bql/table"
	"github.com/bqlquery/bql/types"
)

// Column declares one column of a Table: a name and its static type.
type Column struct {
	Name  string
	Dtype types.Datatype
}

// Table is an in-memory row store, directly adapted from the teacher's
// memory package (rows held in a Go slice, appended programmatically)
// narrowed to this engine's read-only use: once attached, a caller
// populates it via AddRow before any query scans it.
type Table struct {
	name string
	cols []Column
	rows []table.Row
}

// NewTable returns an empty in-memory table named name with the given
// columns, in declaration order (this order is also WildcardColumns'
// order for `SELECT *`).
func NewTable(name string, cols []Column) *Table {
	return &Table{name: name, cols: cols}
}

// AddRow appends one row; len(vals) must equal len(t.cols) and vals[i]
// must hold a value of t.cols[i].Dtype (or its NULL).
func (t *Table) AddRow(vals ...types.Value) error {
	row := make([]types.Value, len(vals))
	copy(row, vals)
	t.rows = append(t.rows, table.Row(row))
	return nil
}

func (t *Table) Name() string { return t.name }

func (t *Table) Columns() map[string]*table.ColumnAccessor {
	out := make(map[string]*table.ColumnAccessor, len(t.cols))
	for i, c := range t.cols {
		idx := i
		out[c.Name] = &table.ColumnAccessor{
			Name:  c.Name,
			Dtype: c.Dtype,
			Get: func(row table.Row) types.Value {
				r := row.([]types.Value)
				if idx >= len(r) {
					return types.Null(c.Dtype)
				}
				return r[idx]
			},
		}
	}
	return out
}

func (t *Table) WildcardColumns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// Update is a no-op: in-memory tables have no notion of an OPEN/CLOSE
// date window, unlike a ledger source (spec §4.C lifecycle dates apply
// to postings, which this source does not model).
func (t *Table) Update(open, close *time.Time, clear bool) table.Table { return t }

func (t *Table) Iterate() (table.RowIter, error) {
	return table.NewSliceIter(t.rows), nil
}

// MemoryDriver answers the `memory:` scheme (spec §6): it hands back an
// empty named Table for the caller to populate through the Go API,
// there being no row data representable in a bare URI.
type MemoryDriver struct{}

func (*MemoryDriver) Scheme() string { return "memory" }

func (*MemoryDriver) Attach(uri *url.URL) (table.Table, string, error) {
	name := nameFromQuery(uri, uri.Opaque)
	if name == "" {
		name = uri.Host
	}
	return NewTable(name, nil), name, nil
}
