// Package compiler turns a parsed ast.Statement into a compiled
// plan.Query, resolving overloads, folding constants, and validating
// the invariants spec §4.D lists (aggregate placement, GROUP BY
// coverage, PIVOT BY column references, ...).
//
// Grounded on the teacher's sql/analyzer and sql/planbuilder packages
// (observed only through their test suites): a fixed sequence of
// compile passes over one AST, each raising a typed error rather than
// panicking, mirroring analyzer.Rule chains.
package compiler

import (
	"fmt"
	"time"

	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/errs"
	"github.com/bqlquery/bql/exec"
	"github.com/bqlquery/bql/function"
	"github.com/bqlquery/bql/plan"
	"github.com/bqlquery/bql/table"
	"github.com/bqlquery/bql/types"
)

// Compiler holds the catalog a statement compiles against: the
// function/operator registry, named tables reachable via `#name`, and
// the implicit default FROM source (spec §9 "module-level registries").
type Compiler struct {
	Functions *function.Registry
	Tables    map[string]table.Table
	Default   table.Table

	// ImplicitGroupBy makes a bare aggregate SELECT (no GROUP BY clause)
	// group by every non-aggregate target automatically (spec §9 Open
	// Question, resolved: default true).
	ImplicitGroupBy bool
}

// New returns a Compiler around reg with an empty table catalog.
func New(reg *function.Registry) *Compiler {
	return &Compiler{
		Functions:       reg,
		Tables:          map[string]table.Table{},
		ImplicitGroupBy: true,
	}
}

// Compile compiles stmt into a runnable plan.Query, binding %s/%(name)s
// placeholders from params.
func (c *Compiler) Compile(stmt ast.Statement, params map[string]types.Value) (*plan.Query, error) {
	switch s := stmt.(type) {
	case *ast.Select:
		return c.compileSelect(s, params)
	case *ast.Balances:
		return c.compileBalances(s, params)
	case *ast.Journal:
		return c.compileJournal(s, params)
	case *ast.Print:
		return c.compilePrint(s, params)
	default:
		return nil, errs.NewCompilation(nil, "unsupported statement type %T", stmt)
	}
}

// ctx carries per-statement compile state: the resolved FROM table, the
// aggregator set being accumulated, the slot allocator, and the
// placeholder bindings.
type ctx struct {
	c       *Compiler
	table   table.Table
	params  map[string]types.Value
	posNext int

	aggregators []plan.Aggregator
	alloc       *plan.Allocator
}

func newCtx(c *Compiler, params map[string]types.Value) *ctx {
	return &ctx{c: c, params: params, alloc: &plan.Allocator{}}
}

func (c *Compiler) compileSelect(sel *ast.Select, params map[string]types.Value) (*plan.Query, error) {
	cx := newCtx(c, params)

	tbl, extraWhere, err := cx.compileFrom(sel.From)
	if err != nil {
		return nil, err
	}
	cx.table = tbl

	var targets []plan.Target
	var targetExprs []ast.Expr // parallel to targets; nil entries came from wildcard expansion
	if sel.Targets == nil {
		for _, name := range tbl.WildcardColumns() {
			acc := tbl.Columns()[name]
			targets = append(targets, plan.Target{
				Node:  &plan.EvalColumn{Accessor: acc},
				Name:  name,
				Dtype: acc.Dtype,
			})
			targetExprs = append(targetExprs, nil)
		}
	} else {
		for i, t := range sel.Targets {
			n, err := cx.compileExpr(t.Expr, true)
			if err != nil {
				return nil, err
			}
			name := t.As
			if name == "" {
				name = targetName(t.Expr, i)
			}
			targets = append(targets, plan.Target{Node: n, Name: name, Dtype: n.Dtype()})
			targetExprs = append(targetExprs, t.Expr)
		}
	}

	var where plan.Node
	if sel.Where != nil {
		w, err := cx.compileExpr(sel.Where, false)
		if err != nil {
			return nil, err
		}
		if w.HasAggregate() {
			return nil, errs.NewCompilation(spanOf(sel.Where), "WHERE may not contain an aggregate")
		}
		where = w
	}
	if extraWhere != nil {
		if where == nil {
			where = extraWhere
		} else {
			where = &plan.EvalAnd{Left: where, Right: extraWhere}
		}
	}

	var groupBy []plan.Node
	for _, g := range sel.GroupBy {
		n, err := cx.resolveTargetRef(g, targets, false)
		if err != nil {
			return nil, err
		}
		if n.HasAggregate() {
			return nil, errs.NewCompilation(spanOf(g), "GROUP BY may not contain an aggregate")
		}
		groupBy = append(groupBy, n)
	}

	aggregate := len(groupBy) > 0
	for _, t := range targets {
		if t.Node.HasAggregate() {
			aggregate = true
		}
	}

	if aggregate && len(groupBy) == 0 && c.ImplicitGroupBy {
		for _, t := range targets {
			if !t.Node.HasAggregate() {
				groupBy = append(groupBy, t.Node)
			}
		}
	}

	if aggregate {
		for i, t := range targets {
			if t.Node.HasAggregate() {
				continue
			}
			covered := containsNode(groupBy, t.Node)
			if !covered && targetExprs[i] != nil {
				covered = astEqualAny(targetExprs[i], sel.GroupBy)
			}
			if !covered {
				return nil, errs.NewCompilation(nil, "column %q is neither aggregated nor in GROUP BY", t.Name)
			}
		}
	}

	var having plan.Node
	if sel.Having != nil {
		h, err := cx.compileExpr(sel.Having, true)
		if err != nil {
			return nil, err
		}
		having = h
		aggregate = aggregate || h.HasAggregate()
	}

	var orderBy []plan.OrderKey
	for _, o := range sel.OrderBy {
		n, err := cx.resolveTargetRef(o.Expr, targets, true)
		if err != nil {
			return nil, err
		}
		aggregate = aggregate || n.HasAggregate()
		orderBy = append(orderBy, plan.OrderKey{Node: n, Desc: o.Direction == ast.Desc})
	}

	var pivot *plan.Pivot
	if len(sel.PivotBy) == 2 {
		keyIdx, err := targetIndexOf(sel.PivotBy[0], targets)
		if err != nil {
			return nil, err
		}
		otherIdx, err := targetIndexOf(sel.PivotBy[1], targets)
		if err != nil {
			return nil, err
		}
		pivot = &plan.Pivot{KeyIndex: keyIdx, OtherIndex: otherIdx}
	}

	return &plan.Query{
		Targets:     targets,
		From:        tbl,
		Where:       where,
		Distinct:    sel.Distinct,
		GroupBy:     groupBy,
		Having:      having,
		OrderBy:     orderBy,
		Pivot:       pivot,
		Limit:       sel.Limit,
		Aggregate:   aggregate,
		Aggregators: cx.aggregators,
		Alloc:       cx.alloc,
	}, nil
}

// resolveTargetRef resolves a GROUP BY/ORDER BY term against the
// already-compiled target list before falling back to compiling it as a
// fresh expression (spec §4.D steps 6-7): a bare integer literal is a
// 1-based target ordinal, a bare name matching a target's output name
// reuses that target's compiled node (so an aggregate alias is still
// caught by the caller's HasAggregate check), and anything else compiles
// as a new expression against the table in scope.
func (cx *ctx) resolveTargetRef(e ast.Expr, targets []plan.Target, allowAggregate bool) (plan.Node, error) {
	if idx, ok := ordinal(e); ok {
		if idx < 1 || idx > len(targets) {
			return nil, errs.NewCompilation(spanPtr(e), "ordinal %d is out of range for %d target(s)", idx, len(targets))
		}
		return targets[idx-1].Node, nil
	}
	if col, ok := e.(*ast.Column); ok {
		for _, t := range targets {
			if t.Name == col.Name {
				return t.Node, nil
			}
		}
	}
	return cx.compileExpr(e, allowAggregate)
}

// ordinal reports whether e is an integer literal, usable as a 1-based
// target index in GROUP BY/ORDER BY/PIVOT BY.
func ordinal(e ast.Expr) (int, bool) {
	c, ok := e.(*ast.Constant)
	if !ok {
		return 0, false
	}
	i, ok := c.Value.(int64)
	if !ok {
		return 0, false
	}
	return int(i), true
}

// targetIndexOf resolves a PIVOT BY term to a target index: either a
// 1-based ordinal or an output column name (spec §4.D step 8).
func targetIndexOf(e ast.Expr, targets []plan.Target) (int, error) {
	if idx, ok := ordinal(e); ok {
		if idx < 1 || idx > len(targets) {
			return 0, errs.NewCompilation(spanPtr(e), "PIVOT BY ordinal %d is out of range for %d target(s)", idx, len(targets))
		}
		return idx - 1, nil
	}
	col, ok := e.(*ast.Column)
	if !ok {
		return 0, errs.NewCompilation(spanPtr(e), "PIVOT BY must name an output column or ordinal")
	}
	for i, t := range targets {
		if t.Name == col.Name {
			return i, nil
		}
	}
	return 0, errs.NewCompilation(spanPtr(e), "PIVOT BY column %q is not a selected target", col.Name)
}

func containsNode(list []plan.Node, n plan.Node) bool {
	for _, g := range list {
		if g == n {
			return true
		}
	}
	return false
}

func targetName(e ast.Expr, i int) string {
	switch t := e.(type) {
	case *ast.Column:
		return t.Name
	case *ast.Function:
		return t.Name
	case *ast.Attribute:
		return t.Field
	default:
		return fmt.Sprintf("column_%d", i+1)
	}
}

func spanOf(e ast.Expr) *ast.Span {
	return spanPtr(e)
}

func spanPtr(n ast.Node) *ast.Span {
	s := n.Span()
	return &s
}

// ---- FROM ----

// compileFrom resolves a FROM clause into a table plus any additional
// filter expression it carries (spec §4.C: FROM's bare expression form
// is a filter over the implicit default table, not a table reference).
func (cx *ctx) compileFrom(f *ast.From) (table.Table, plan.Node, error) {
	if f == nil {
		return table.NullTable{}, nil, nil
	}

	var tbl table.Table
	var extra plan.Node

	switch {
	case f.Table != "":
		t, ok := cx.c.Tables[f.Table]
		if !ok {
			return nil, nil, errs.NewCompilation(spanPtr(f), "unknown table #%s", f.Table)
		}
		tbl = t

	case f.Subselect != nil:
		sub, err := cx.c.compileSelect(f.Subselect, cx.params)
		if err != nil {
			return nil, nil, err
		}
		tbl = exec.NewSubqueryTable(sub, "_subquery")

	default:
		if cx.c.Default == nil {
			return nil, nil, errs.NewCompilation(spanPtr(f), "no default table and no #table given in FROM")
		}
		tbl = cx.c.Default
		if f.Expr != nil {
			savedTable := cx.table
			cx.table = tbl
			n, err := cx.compileExpr(f.Expr, false)
			cx.table = savedTable
			if err != nil {
				return nil, nil, err
			}
			extra = n
		}
	}

	var openT, closeT *time.Time
	if f.Open != nil {
		d, err := cx.compileDateConst(f.Open)
		if err != nil {
			return nil, nil, err
		}
		openT = d
	}
	if f.HasClose && f.Close != nil {
		d, err := cx.compileDateConst(f.Close)
		if err != nil {
			return nil, nil, err
		}
		closeT = d
	}
	if openT != nil && closeT != nil && openT.After(*closeT) {
		return nil, nil, errs.NewCompilation(spanPtr(f), "OPEN date %s is after CLOSE date %s", openT.Format("2006-01-02"), closeT.Format("2006-01-02"))
	}
	if openT != nil || closeT != nil || f.Clear {
		tbl = tbl.Update(openT, closeT, f.Clear)
	}

	return tbl, extra, nil
}

// compileDateConst evaluates a FROM lifecycle date expression, which
// must fold to a constant date (no row context exists at this point).
func (cx *ctx) compileDateConst(e ast.Expr) (*time.Time, error) {
	n, err := cx.compileExpr(e, false)
	if err != nil {
		return nil, err
	}
	v, err := n.Eval(&plan.EvalContext{})
	if err != nil {
		return nil, err
	}
	d, ok := v.(types.Date)
	if !ok || d.IsNull() {
		return nil, errs.NewCompilation(spanPtr(e), "OPEN/CLOSE date must be a constant date")
	}
	return &d.V, nil
}
