// Package exec runs a compiled plan.Query against its FROM table,
// producing result rows (spec §4.E "Executor").
//
// Grounded on the teacher's sql/rowexec package, referenced from
// enginetest's evaluation harness: a single-pass, fully-materializing
// row engine (scan -> filter -> group/aggregate -> sort -> project ->
// distinct -> limit -> pivot) rather than a push-based iterator
// pipeline, since this engine has no cost-based planner deciding
// between strategies.
package exec

import (
	"github.com/bqlquery/bql/plan"
	"github.com/bqlquery/bql/types"
)

// Count implements COUNT(*) and COUNT(expr): COUNT(*) counts every row
// in the group, COUNT(expr) counts rows where expr is non-null.
type Count struct {
	Arg    plan.Node // nil for COUNT(*)
	slot   int
}

func (c *Count) Allocate(a *plan.Allocator) int { c.slot = a.Alloc(1); return c.slot }
func (c *Count) Initialize(s plan.Store)    { s[c.slot] = types.Int{V: 0} }
func (c *Count) Update(s plan.Store, ctx *plan.EvalContext) error {
	if c.Arg != nil {
		v, err := c.Arg.Eval(ctx)
		if err != nil {
			return err
		}
		if v == nil || v.IsNull() {
			return nil
		}
	}
	s[c.slot] = types.Int{V: s[c.slot].(types.Int).V + 1}
	return nil
}
func (c *Count) Finalize(s plan.Store) {}

// Sum implements SUM(expr) over int or decimal expressions; a group
// with no non-null rows finalizes to NULL.
type Sum struct {
	Arg  plan.Node
	Dt   types.Datatype
	slot int
	seen int // secondary slot tracking whether any non-null row was seen
}

func (a *Sum) Allocate(al *plan.Allocator) int { a.slot = al.Alloc(1); a.seen = al.Alloc(1); return a.slot }
func (a *Sum) Initialize(s plan.Store) {
	s[a.seen] = types.Bool{V: false}
	if a.Dt == types.DecimalType {
		s[a.slot] = types.Decimal{}
	} else {
		s[a.slot] = types.Int{}
	}
}
func (a *Sum) Update(s plan.Store, ctx *plan.EvalContext) error {
	v, err := a.Arg.Eval(ctx)
	if err != nil {
		return err
	}
	if v == nil || v.IsNull() {
		return nil
	}
	s[a.seen] = types.Bool{V: true}
	if a.Dt == types.DecimalType {
		acc := s[a.slot].(types.Decimal)
		d := types.CastDecimal(v).(types.Decimal)
		s[a.slot] = types.Decimal{V: acc.V.Add(d.V)}
	} else {
		acc := s[a.slot].(types.Int)
		i := v.(types.Int)
		s[a.slot] = types.Int{V: acc.V + i.V}
	}
	return nil
}
func (a *Sum) Finalize(s plan.Store) {
	if !s[a.seen].(types.Bool).V {
		s[a.slot] = types.Null(a.Dt)
	}
}

// First/Last keep the first or most recent non-null value seen.
type First struct {
	Arg  plan.Node
	Dt   types.Datatype
	slot int
	seen int
}

func (f *First) Allocate(a *plan.Allocator) int { f.slot = a.Alloc(1); f.seen = a.Alloc(1); return f.slot }
func (f *First) Initialize(s plan.Store) {
	s[f.slot] = types.Null(f.Dt)
	s[f.seen] = types.Bool{V: false}
}
func (f *First) Update(s plan.Store, ctx *plan.EvalContext) error {
	if s[f.seen].(types.Bool).V {
		return nil
	}
	v, err := f.Arg.Eval(ctx)
	if err != nil {
		return err
	}
	if v == nil || v.IsNull() {
		return nil
	}
	s[f.slot] = v
	s[f.seen] = types.Bool{V: true}
	return nil
}
func (f *First) Finalize(s plan.Store) {}

type Last struct {
	Arg  plan.Node
	Dt   types.Datatype
	slot int
}

func (l *Last) Allocate(a *plan.Allocator) int { l.slot = a.Alloc(1); return l.slot }
func (l *Last) Initialize(s plan.Store)    { s[l.slot] = types.Null(l.Dt) }
func (l *Last) Update(s plan.Store, ctx *plan.EvalContext) error {
	v, err := l.Arg.Eval(ctx)
	if err != nil {
		return err
	}
	if v == nil || v.IsNull() {
		return nil
	}
	s[l.slot] = v
	return nil
}
func (l *Last) Finalize(s plan.Store) {}

// MinMax implements MIN/MAX over int, decimal, date, or string.
type MinMax struct {
	Arg   plan.Node
	Dt    types.Datatype
	Max   bool
	Less  func(a, b types.Value) bool
	slot  int
}

func (m *MinMax) Allocate(a *plan.Allocator) int { m.slot = a.Alloc(1); return m.slot }
func (m *MinMax) Initialize(s plan.Store)    { s[m.slot] = types.Null(m.Dt) }
func (m *MinMax) Update(s plan.Store, ctx *plan.EvalContext) error {
	v, err := m.Arg.Eval(ctx)
	if err != nil {
		return err
	}
	if v == nil || v.IsNull() {
		return nil
	}
	cur := s[m.slot]
	if cur == nil || cur.IsNull() {
		s[m.slot] = v
		return nil
	}
	if m.Max {
		if m.Less(cur, v) {
			s[m.slot] = v
		}
	} else {
		if m.Less(v, cur) {
			s[m.slot] = v
		}
	}
	return nil
}
func (m *MinMax) Finalize(s plan.Store) {}

// LessFor returns the natural ordering comparator for dt, used by MIN/MAX
// and by ORDER BY (exec.go).
func LessFor(dt types.Datatype) func(a, b types.Value) bool {
	switch dt {
	case types.IntType:
		return func(a, b types.Value) bool { return a.(types.Int).V < b.(types.Int).V }
	case types.DecimalType:
		return func(a, b types.Value) bool { return a.(types.Decimal).V.LessThan(b.(types.Decimal).V) }
	case types.DateType:
		return func(a, b types.Value) bool { return a.(types.Date).V.Before(b.(types.Date).V) }
	case types.StringType:
		return func(a, b types.Value) bool { return a.(types.String).V < b.(types.String).V }
	case types.BoolType:
		return func(a, b types.Value) bool { return !a.(types.Bool).V && b.(types.Bool).V }
	default:
		return func(a, b types.Value) bool {
			return fmtString(types.Reduce(a)) < fmtString(types.Reduce(b))
		}
	}
}

func fmtString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
