package exec

import (
	"fmt"
	"io"
	"sort"

	"github.com/bqlquery/bql/plan"
	"github.com/bqlquery/bql/table"
	"github.com/bqlquery/bql/types"
)

// Result is the output of executing a plan.Query: a column schema plus
// the materialized row data, already projected, sorted, deduplicated,
// limited and (if requested) pivoted.
type Result struct {
	Columns []Column
	Rows    [][]types.Value
}

// Column is one entry of a DB-API-style cursor description: a 7-tuple
// of (name, type_code, display_size, internal_size, precision, scale,
// null_ok) of which this engine only ever populates Name and Dtype
// (the type_code); the remaining fields carry the DB-API-mandated NULL
// and exist only for shape fidelity with conn.Cursor.Description.
type Column struct {
	Name         string
	Dtype        types.Datatype
	DisplaySize  *int
	InternalSize *int
	Precision    *int
	Scale        *int
	NullOK       *bool
}

type group struct {
	row   table.Row
	store plan.Store
}

// Execute runs q to completion and returns its materialized result
// (spec §4.E steps SCAN -> AGGREGATE? -> SORT? -> PROJECT -> DISTINCT?
// -> LIMIT? -> PIVOT?).
func Execute(q *plan.Query) (*Result, error) {
	iter, err := q.From.Iterate()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var matched []table.Row
	for {
		row, err := iter.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if q.Where != nil {
			v, err := q.Where.Eval(&plan.EvalContext{Row: row})
			if err != nil {
				return nil, err
			}
			if v == nil || v.IsNull() {
				continue
			}
			if b, ok := v.(types.Bool); !ok || !b.V {
				continue
			}
		}
		matched = append(matched, row)
	}

	var groups []*group
	if q.Aggregate {
		groups, err = aggregateRows(q, matched)
		if err != nil {
			return nil, err
		}
	} else {
		groups = make([]*group, len(matched))
		for i, r := range matched {
			groups[i] = &group{row: r}
		}
	}

	if q.Having != nil {
		filtered := groups[:0]
		for _, g := range groups {
			v, err := q.Having.Eval(&plan.EvalContext{Row: g.row, Store: g.store})
			if err != nil {
				return nil, err
			}
			if b, ok := v.(types.Bool); ok && !b.IsNull() && b.V {
				filtered = append(filtered, g)
			}
		}
		groups = filtered
	}

	if len(q.OrderBy) > 0 {
		sortGroups(groups, q.OrderBy)
	}

	rows := make([][]types.Value, len(groups))
	for i, g := range groups {
		row := make([]types.Value, len(q.Targets))
		ctx := &plan.EvalContext{Row: g.row, Store: g.store}
		for j, t := range q.Targets {
			v, err := t.Node.Eval(ctx)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		rows[i] = row
	}

	if q.Distinct {
		rows = dedup(rows)
	}

	if q.Limit != nil && len(rows) > *q.Limit {
		rows = rows[:*q.Limit]
	}

	cols := make([]Column, len(q.Targets))
	for i, t := range q.Targets {
		cols[i] = Column{Name: t.Name, Dtype: t.Dtype}
	}

	if q.Pivot != nil {
		return pivotResult(cols, rows, *q.Pivot)
	}

	return &Result{Columns: cols, Rows: rows}, nil
}

func aggregateRows(q *plan.Query, matched []table.Row) ([]*group, error) {
	keyOrder := []string{}
	byKey := map[string]*group{}

	for _, row := range matched {
		ctx := &plan.EvalContext{Row: row}
		parts := make([]string, len(q.GroupBy))
		for i, n := range q.GroupBy {
			v, err := n.Eval(ctx)
			if err != nil {
				return nil, err
			}
			parts[i] = fmt.Sprint(types.Reduce(v))
		}
		key := fmt.Sprint(parts)

		g, ok := byKey[key]
		if !ok {
			g = &group{row: row, store: q.Alloc.NewStore()}
			for _, agg := range q.Aggregators {
				agg.Initialize(g.store)
			}
			byKey[key] = g
			keyOrder = append(keyOrder, key)
		}
		for _, agg := range q.Aggregators {
			if err := agg.Update(g.store, &plan.EvalContext{Row: row, Store: g.store}); err != nil {
				return nil, err
			}
		}
	}

	out := make([]*group, len(keyOrder))
	for i, k := range keyOrder {
		g := byKey[k]
		for _, agg := range q.Aggregators {
			agg.Finalize(g.store)
		}
		out[i] = g
	}
	return out, nil
}

// sortGroups implements ORDER BY: each key sorts NULLs first in
// ascending order (last in descending), stable across ties so multiple
// ORDER BY terms compose left to right (spec §4.E).
func sortGroups(groups []*group, keys []plan.OrderKey) {
	sort.SliceStable(groups, func(i, j int) bool {
		for _, k := range keys {
			vi, _ := k.Node.Eval(&plan.EvalContext{Row: groups[i].row, Store: groups[i].store})
			vj, _ := k.Node.Eval(&plan.EvalContext{Row: groups[j].row, Store: groups[j].store})
			less, eq := compareOrdered(vi, vj, k.Desc)
			if eq {
				continue
			}
			return less
		}
		return false
	})
}

func compareOrdered(a, b types.Value, desc bool) (less bool, eq bool) {
	aNull := a == nil || a.IsNull()
	bNull := b == nil || b.IsNull()
	if aNull && bNull {
		return false, true
	}
	if aNull {
		return !desc, false
	}
	if bNull {
		return desc, false
	}
	lessFn := LessFor(a.Type())
	if lessFn(a, b) {
		return !desc, false
	}
	if lessFn(b, a) {
		return desc, false
	}
	return false, true
}

func dedup(rows [][]types.Value) [][]types.Value {
	seen := map[string]bool{}
	out := rows[:0]
	for _, row := range rows {
		parts := make([]interface{}, len(row))
		for i, v := range row {
			parts[i] = types.Reduce(v)
		}
		key := fmt.Sprint(parts)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, row)
	}
	return out
}

// pivotResult transposes rows per spec §4.F: groups by the Key column,
// fans the Other column's distinct values into new columns for every
// remaining target, named "<value>" or, with several remaining targets,
// "<value>/<name>".
func pivotResult(cols []Column, rows [][]types.Value, p plan.Pivot) (*Result, error) {
	otherVals := []string{}
	seenOther := map[string]bool{}
	for _, row := range rows {
		v := fmt.Sprint(types.Reduce(row[p.OtherIndex]))
		if !seenOther[v] {
			seenOther[v] = true
			otherVals = append(otherVals, v)
		}
	}
	sort.Strings(otherVals)

	var restIdx []int
	for i := range cols {
		if i != p.KeyIndex && i != p.OtherIndex {
			restIdx = append(restIdx, i)
		}
	}

	// A single remaining target needs no disambiguating suffix; with more
	// than one, each fanned-out column is named "<value>/<target name>".
	newCols := []Column{cols[p.KeyIndex]}
	for _, ov := range otherVals {
		for _, ri := range restIdx {
			name := ov
			if len(restIdx) > 1 {
				name = ov + "/" + cols[ri].Name
			}
			newCols = append(newCols, Column{Name: name, Dtype: cols[ri].Dtype})
		}
	}

	keyOrder := []string{}
	byKey := map[string][]types.Value{}
	for _, row := range rows {
		kv := row[p.KeyIndex]
		k := fmt.Sprint(types.Reduce(kv))
		out, ok := byKey[k]
		if !ok {
			out = make([]types.Value, len(newCols))
			out[0] = kv
			for i := 1; i < len(out); i++ {
				out[i] = types.Null(newCols[i].Dtype)
			}
			byKey[k] = out
			keyOrder = append(keyOrder, k)
		}
		ov := fmt.Sprint(types.Reduce(row[p.OtherIndex]))
		for j, ri := range restIdx {
			col := 1 + indexOf(otherVals, ov)*len(restIdx) + j
			if col >= 0 && col < len(out) {
				out[col] = row[ri]
			}
		}
	}

	outRows := make([][]types.Value, len(keyOrder))
	for i, k := range keyOrder {
		outRows[i] = byKey[k]
	}

	return &Result{Columns: newCols, Rows: outRows}, nil
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}
