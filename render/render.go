// Package render defines the column-aware output contract a caller
// implements to print a Cursor's result (spec §4.G). The engine itself
// renders nothing: the teacher's analogous surface is the MySQL wire
// protocol's result-set encoding, which has no equivalent here since
// this module is embedded in-process rather than serving a network
// client, so only the contract is specified (SPEC_FULL.md §4.G).
package render

import "github.com/bqlquery/bql/exec"

// Renderer formats a completed query result. Begin is called once
// before any row, Row once per result row in order, End once after the
// last row; a zero-row result still calls Begin and End.
type Renderer interface {
	Begin(columns []exec.Column) error
	Row(values []interface{}) error
	End() error
}

// Render drives a Renderer over a Result in full.
func Render(r Renderer, res *exec.Result) error {
	if err := r.Begin(res.Columns); err != nil {
		return err
	}
	for _, row := range res.Rows {
		vals := make([]interface{}, len(row))
		for i, v := range row {
			if v == nil {
				vals[i] = nil
				continue
			}
			vals[i] = v.Interface()
		}
		if err := r.Row(vals); err != nil {
			return err
		}
	}
	return r.End()
}
