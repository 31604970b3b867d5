package exec

import (
	"time"

	"github.com/bqlquery/bql/plan"
	"github.com/bqlquery/bql/table"
	"github.com/bqlquery/bql/types"
)

// SubqueryTable adapts a compiled plan.Query into a table.Table so a
// FROM (SELECT ...) clause can be scanned like any other source (spec
// §4.C "Subquery tables"). Kept in this package, not table, because
// scanning one requires running the executor (see SPEC_FULL.md §4.C).
type SubqueryTable struct {
	query *plan.Query
	alias string
}

// NewSubqueryTable wraps a compiled inner query without running it.
// Each Iterate call executes the inner query (uncorrelated to any outer
// row, per spec Non-goals) and materializes every row it returns.
func NewSubqueryTable(q *plan.Query, alias string) *SubqueryTable {
	return &SubqueryTable{query: q, alias: alias}
}

func (s *SubqueryTable) Name() string { return s.alias }

func (s *SubqueryTable) Columns() map[string]*table.ColumnAccessor {
	cols := make(map[string]*table.ColumnAccessor, len(s.query.Targets))
	for i, t := range s.query.Targets {
		idx := i
		cols[t.Name] = &table.ColumnAccessor{
			Name:  t.Name,
			Dtype: t.Dtype,
			Get: func(row table.Row) types.Value {
				r, ok := row.([]types.Value)
				if !ok || idx >= len(r) {
					return types.Null(t.Dtype)
				}
				return r[idx]
			},
		}
	}
	return cols
}

func (s *SubqueryTable) WildcardColumns() []string {
	names := make([]string, len(s.query.Targets))
	for i, t := range s.query.Targets {
		names[i] = t.Name
	}
	return names
}

func (s *SubqueryTable) Update(open, close *time.Time, clear bool) table.Table { return s }

func (s *SubqueryTable) Iterate() (table.RowIter, error) {
	res, err := Execute(s.query)
	if err != nil {
		return nil, err
	}
	rows := make([]table.Row, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = table.Row(r)
	}
	return table.NewSliceIter(rows), nil
}

// ScalarColumn returns the single-column accessor of a one-column
// subquery, used to drive IN (subselect) and ANY/ALL comparisons.
func (s *SubqueryTable) ScalarColumn() (*table.ColumnAccessor, bool) {
	if len(s.query.Targets) != 1 {
		return nil, false
	}
	cols := s.Columns()
	return cols[s.query.Targets[0].Name], true
}
