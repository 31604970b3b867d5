package exec

import (
	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/plan"
	"github.com/bqlquery/bql/types"
)

// In implements `x IN (list)` / `x NOT IN (list)` against a static
// expression list.
type In struct {
	X    plan.Node
	List []plan.Node
	Kind ast.InKind
	Eq   func(a, b types.Value) bool
}

func (*In) Dtype() types.Datatype { return types.BoolType }
func (n *In) HasAggregate() bool {
	if n.X.HasAggregate() {
		return true
	}
	for _, e := range n.List {
		if e.HasAggregate() {
			return true
		}
	}
	return false
}
func (n *In) Eval(ctx *plan.EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if x == nil || x.IsNull() {
		return types.Bool{Null: true}, nil
	}
	found := false
	for _, e := range n.List {
		v, err := e.Eval(ctx)
		if err != nil {
			return nil, err
		}
		if v != nil && !v.IsNull() && n.Eq(x, v) {
			found = true
			break
		}
	}
	if n.Kind == ast.NotIn {
		found = !found
	}
	return types.Bool{V: found}, nil
}

// SubqueryIn implements `x IN (SELECT ...)` / NOT IN, against a
// one-column subquery materialized once and reused across rows (the
// subquery is uncorrelated, spec Non-goals).
type SubqueryIn struct {
	X    plan.Node
	Sub  *plan.Query
	Kind ast.InKind
	Eq   func(a, b types.Value) bool

	cached    []types.Value
	evaluated bool
}

func (*SubqueryIn) Dtype() types.Datatype { return types.BoolType }
func (n *SubqueryIn) HasAggregate() bool  { return n.X.HasAggregate() }

func (n *SubqueryIn) values() ([]types.Value, error) {
	if n.evaluated {
		return n.cached, nil
	}
	res, err := Execute(n.Sub)
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, len(res.Rows))
	for i, r := range res.Rows {
		out[i] = r[0]
	}
	n.cached = out
	n.evaluated = true
	return out, nil
}

func (n *SubqueryIn) Eval(ctx *plan.EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if x == nil || x.IsNull() {
		return types.Bool{Null: true}, nil
	}
	vals, err := n.values()
	if err != nil {
		return nil, err
	}
	found := false
	for _, v := range vals {
		if v != nil && !v.IsNull() && n.Eq(x, v) {
			found = true
			break
		}
	}
	if n.Kind == ast.NotIn {
		found = !found
	}
	return types.Bool{V: found}, nil
}

// Quantified implements `x <op> ANY(subselect)` / `ALL(subselect)`.
type Quantified struct {
	X          plan.Node
	Sub        *plan.Query
	Quantifier ast.Quantifier
	Compare    func(a, b types.Value) (types.Value, error)

	cached    []types.Value
	evaluated bool
}

func (*Quantified) Dtype() types.Datatype { return types.BoolType }
func (n *Quantified) HasAggregate() bool  { return n.X.HasAggregate() }

func (n *Quantified) values() ([]types.Value, error) {
	if n.evaluated {
		return n.cached, nil
	}
	res, err := Execute(n.Sub)
	if err != nil {
		return nil, err
	}
	out := make([]types.Value, len(res.Rows))
	for i, r := range res.Rows {
		out[i] = r[0]
	}
	n.cached = out
	n.evaluated = true
	return out, nil
}

func (n *Quantified) Eval(ctx *plan.EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	vals, err := n.values()
	if err != nil {
		return nil, err
	}
	anyNull := x == nil || x.IsNull()
	matchedAny := false
	allMatched := true
	for _, v := range vals {
		if v == nil || v.IsNull() || anyNull {
			allMatched = false
			continue
		}
		res, err := n.Compare(x, v)
		if err != nil {
			return nil, err
		}
		b, ok := res.(types.Bool)
		if !ok || b.IsNull() || !b.V {
			allMatched = false
		} else {
			matchedAny = true
		}
	}
	if n.Quantifier == ast.Any {
		return types.Bool{V: matchedAny}, nil
	}
	return types.Bool{V: allMatched && len(vals) > 0}, nil
}
