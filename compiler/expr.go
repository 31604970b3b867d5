package compiler

import (
	"fmt"
	"strconv"

	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/errs"
	"github.com/bqlquery/bql/exec"
	"github.com/bqlquery/bql/function"
	"github.com/bqlquery/bql/plan"
	"github.com/bqlquery/bql/types"

	"github.com/shopspring/decimal"
)

// aggregateFuncs names the functions that introduce an Aggregator
// rather than resolving through the plain function registry (spec §4.E).
var aggregateFuncs = map[string]bool{
	"count": true, "sum": true, "first": true, "last": true, "min": true, "max": true,
}

// compileExpr compiles an AST expression into a plan.Node against the
// table currently in scope. allowAggregate controls whether an
// aggregate function call is legal at this position (spec invariant
// iii: aggregates may appear in targets/HAVING/ORDER BY but never in
// WHERE, GROUP BY, or nested inside another aggregate's argument).
func (cx *ctx) compileExpr(e ast.Expr, allowAggregate bool) (plan.Node, error) {
	switch n := e.(type) {
	case *ast.Constant:
		return cx.compileConstant(n)

	case *ast.Placeholder:
		return cx.compilePlaceholder(n)

	case *ast.Column:
		return cx.compileColumn(n)

	case *ast.Asterisk:
		return nil, errs.NewCompilation(spanPtr(e), "* is only valid as the entire target list")

	case *ast.Function:
		return cx.compileFunction(n, allowAggregate)

	case *ast.Attribute:
		return cx.compileAttribute(n, allowAggregate)

	case *ast.Subscript:
		x, err := cx.compileExpr(n.X, allowAggregate)
		if err != nil {
			return nil, err
		}
		key, err := cx.compileExpr(n.Key, allowAggregate)
		if err != nil {
			return nil, err
		}
		if x.Dtype() != types.MappingType && x.Dtype() != types.Any {
			return nil, errs.NewCompilation(spanPtr(e), "subscript requires a mapping value")
		}
		return &plan.EvalGetItem{X: x, Key: key, DT: types.ObjectType}, nil

	case *ast.Unary:
		return cx.compileUnary(n, allowAggregate)

	case *ast.Binary:
		return cx.compileBinary(n, allowAggregate)

	case *ast.Between:
		return cx.compileBetween(n, allowAggregate)

	case *ast.InExpr:
		return cx.compileIn(n, allowAggregate)

	case *ast.Quantified:
		return cx.compileQuantified(n, allowAggregate)

	default:
		return nil, errs.NewCompilation(spanPtr(e), "unsupported expression %T", e)
	}
}

func (cx *ctx) compileConstant(n *ast.Constant) (plan.Node, error) {
	v, dt, err := constantValue(n.Value)
	if err != nil {
		return nil, errs.NewCompilation(spanPtr(n), "%s", err)
	}
	return &plan.EvalConstant{Value: v, DT: dt}, nil
}

// constantValue converts a parsed literal payload into a types.Value.
func constantValue(raw interface{}) (types.Value, types.Datatype, error) {
	switch v := raw.(type) {
	case nil:
		return types.Object{Null: true}, types.Any, nil
	case bool:
		return types.Bool{V: v}, types.BoolType, nil
	case int64:
		return types.Int{V: v}, types.IntType, nil
	case string:
		return types.String{V: v}, types.StringType, nil
	case ast.DecimalLiteral:
		d, err := decimal.NewFromString(v.Text)
		if err != nil {
			return nil, types.Any, fmt.Errorf("invalid decimal literal %q", v.Text)
		}
		return types.Decimal{V: d}, types.DecimalType, nil
	case ast.DateLiteral:
		dv := types.CastDate(types.String{V: v.Text})
		d := dv.(types.Date)
		if d.IsNull() {
			return nil, types.Any, fmt.Errorf("invalid date literal %q", v.Text)
		}
		return d, types.DateType, nil
	default:
		return nil, types.Any, fmt.Errorf("unsupported literal %T", raw)
	}
}

func (cx *ctx) compilePlaceholder(n *ast.Placeholder) (plan.Node, error) {
	key := n.Name
	if key == "" {
		key = strconv.Itoa(cx.posNext)
		cx.posNext++
	}
	v, ok := cx.params[key]
	if !ok {
		return nil, errs.NewParameter("missing value for parameter %q", key)
	}
	return &plan.EvalConstant{Value: v, DT: v.Type()}, nil
}

func (cx *ctx) compileColumn(n *ast.Column) (plan.Node, error) {
	if cx.table == nil {
		return nil, errs.NewCompilation(spanPtr(n), "no table in scope for column %q", n.Name)
	}
	acc, ok := cx.table.Columns()[n.Name]
	if !ok {
		return nil, errs.NewCompilation(spanPtr(n), "unknown column %q", n.Name)
	}
	return &plan.EvalColumn{Accessor: acc}, nil
}

// structOf recovers the Structured descriptor of a compiled node's
// output value: a direct column's own descriptor, or an attribute
// getter's ChildStruct, so chains of any depth resolve as long as each
// field along the way carries a Nested descriptor.
func structOf(n plan.Node) (*types.Structured, bool) {
	switch t := n.(type) {
	case *plan.EvalColumn:
		return t.Accessor.Struct, t.Accessor.Struct != nil
	case *plan.EvalGetter:
		return t.ChildStruct, t.ChildStruct != nil
	default:
		return nil, false
	}
}

func (cx *ctx) compileAttribute(n *ast.Attribute, allowAggregate bool) (plan.Node, error) {
	x, err := cx.compileExpr(n.X, allowAggregate)
	if err != nil {
		return nil, err
	}
	st, ok := structOf(x)
	if !ok {
		return nil, errs.NewCompilation(spanPtr(n), "%q is not a structured value", n.Field)
	}
	field, ok := st.Field(n.Field)
	if !ok {
		return nil, errs.NewCompilation(spanPtr(n), "structured type %q has no field %q", st.Name, n.Field)
	}
	// field.Nested carries the field's own Structured descriptor when its
	// Type is StructType, letting a further .field chained off this one
	// resolve through structOf; fields without nested structure leave
	// ChildStruct nil and a further chain fails cleanly at compile time.
	return &plan.EvalGetter{X: x, Get: field.Get, DT: field.Type, ChildStruct: field.Nested}, nil
}

func (cx *ctx) compileUnary(n *ast.Unary, allowAggregate bool) (plan.Node, error) {
	x, err := cx.compileExpr(n.X, allowAggregate)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case ast.Not:
		return &plan.EvalNot{X: mustBool(x)}, nil
	case ast.IsNull:
		return &plan.EvalIsNull{X: x, Want: true}, nil
	case ast.IsNotNull:
		return &plan.EvalIsNull{X: x, Want: false}, nil
	case ast.Neg:
		ov, casts, err := cx.c.Functions.ResolveUnary(ast.Neg, x.Dtype())
		if err != nil {
			return nil, errs.NewCompilation(spanPtr(n), "%s", err)
		}
		_ = casts
		if xc, ok := x.(*plan.EvalConstant); ok && ov.Pure {
			v, err := ov.Call([]types.Value{xc.Value})
			if err != nil {
				return nil, err
			}
			return &plan.EvalConstant{Value: v, DT: ov.Out}, nil
		}
		return &plan.EvalUnary{X: x, DT: ov.Out, Call: ov.Call}, nil
	}
	return nil, errs.NewCompilation(spanPtr(n), "unsupported unary operator")
}

// mustBool returns x; the compiler does not insert an implicit cast to
// bool for NOT's operand beyond what overload resolution already gives
// column/function expressions declared as bool.
func mustBool(x plan.Node) plan.Node { return x }

func (cx *ctx) compileBinary(n *ast.Binary, allowAggregate bool) (plan.Node, error) {
	left, err := cx.compileExpr(n.Left, allowAggregate)
	if err != nil {
		return nil, err
	}
	right, err := cx.compileExpr(n.Right, allowAggregate)
	if err != nil {
		return nil, err
	}

	if n.Op == ast.And {
		return &plan.EvalAnd{Left: left, Right: right}, nil
	}
	if n.Op == ast.Or {
		return &plan.EvalOr{Left: left, Right: right}, nil
	}

	ov, casts, err := cx.c.Functions.ResolveOperator(n.Op, []types.Datatype{left.Dtype(), right.Dtype()})
	if err != nil {
		return nil, errs.NewCompilation(spanPtr(n), "%s", err)
	}
	if len(casts) == 2 {
		left = applyCast(left, casts[0])
		right = applyCast(right, casts[1])
	}

	if lc, ok := left.(*plan.EvalConstant); ok {
		if rc, ok := right.(*plan.EvalConstant); ok && ov.Pure {
			v, err := ov.Call([]types.Value{lc.Value, rc.Value})
			if err != nil {
				return nil, err
			}
			return &plan.EvalConstant{Value: v, DT: ov.Out}, nil
		}
	}

	return &plan.EvalBinary{Left: left, Right: right, DT: ov.Out, Call: ov.Call}, nil
}

// applyCast wraps a node with a promotion cast resolved during
// overload matching (spec §4.A int<->decimal / object<->T promotion).
func applyCast(n plan.Node, cast function.Cast) plan.Node {
	if cast == nil {
		return n
	}
	if c, ok := n.(*plan.EvalConstant); ok {
		return &plan.EvalConstant{Value: cast(c.Value), DT: cast(c.Value).Type()}
	}
	return &castNode{x: n, cast: cast}
}

// castNode applies a Cast during evaluation; used only for promotions
// the overload resolver inserts, never for user-visible casts (those
// are plain function calls, e.g. `int(x)`).
type castNode struct {
	x    plan.Node
	cast function.Cast
}

func (c *castNode) Dtype() types.Datatype {
	return c.cast(types.Null(c.x.Dtype())).Type()
}
func (c *castNode) HasAggregate() bool { return c.x.HasAggregate() }
func (c *castNode) Eval(ctx *plan.EvalContext) (types.Value, error) {
	v, err := c.x.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return c.cast(v), nil
}

func (cx *ctx) compileBetween(n *ast.Between, allowAggregate bool) (plan.Node, error) {
	x, err := cx.compileExpr(n.X, allowAggregate)
	if err != nil {
		return nil, err
	}
	lo, err := cx.compileExpr(n.Low, allowAggregate)
	if err != nil {
		return nil, err
	}
	hi, err := cx.compileExpr(n.High, allowAggregate)
	if err != nil {
		return nil, err
	}
	ov, _, err := cx.c.Functions.ResolveOperator(ast.LtEq, []types.Datatype{x.Dtype(), x.Dtype()})
	if err != nil {
		return nil, errs.NewCompilation(spanPtr(n), "%s", err)
	}
	lessEq := func(a, b types.Value) (types.Value, error) { return ov.Call([]types.Value{a, b}) }
	return &plan.EvalBetween{X: x, Low: lo, High: hi, LessEq: lessEq}, nil
}

func (cx *ctx) compileIn(n *ast.InExpr, allowAggregate bool) (plan.Node, error) {
	x, err := cx.compileExpr(n.X, allowAggregate)
	if err != nil {
		return nil, err
	}
	eqOv, _, err := cx.c.Functions.ResolveOperator(ast.Eq, []types.Datatype{x.Dtype(), x.Dtype()})
	if err != nil {
		return nil, errs.NewCompilation(spanPtr(n), "%s", err)
	}
	eqFn := func(a, b types.Value) bool {
		v, err := eqOv.Call([]types.Value{a, b})
		if err != nil {
			return false
		}
		bv, ok := v.(types.Bool)
		return ok && !bv.IsNull() && bv.V
	}

	if n.Subselect != nil {
		sub, err := cx.c.compileSelect(n.Subselect, cx.params)
		if err != nil {
			return nil, err
		}
		return &exec.SubqueryIn{X: x, Sub: sub, Kind: n.Kind, Eq: eqFn}, nil
	}

	var list []plan.Node
	for _, e := range n.List {
		le, err := cx.compileExpr(e, allowAggregate)
		if err != nil {
			return nil, err
		}
		list = append(list, le)
	}
	return &exec.In{X: x, List: list, Kind: n.Kind, Eq: eqFn}, nil
}

func (cx *ctx) compileQuantified(n *ast.Quantified, allowAggregate bool) (plan.Node, error) {
	x, err := cx.compileExpr(n.X, allowAggregate)
	if err != nil {
		return nil, err
	}
	sub, err := cx.c.compileSelect(n.Subselect, cx.params)
	if err != nil {
		return nil, err
	}
	if len(sub.Targets) != 1 {
		return nil, errs.NewCompilation(spanPtr(n), "ANY/ALL subquery must select exactly one column")
	}
	ov, _, err := cx.c.Functions.ResolveOperator(n.Op, []types.Datatype{x.Dtype(), sub.Targets[0].Dtype})
	if err != nil {
		return nil, errs.NewCompilation(spanPtr(n), "%s", err)
	}
	return &exec.Quantified{
		X: x, Sub: sub, Quantifier: n.Quantifier,
		Compare: func(a, b types.Value) (types.Value, error) { return ov.Call([]types.Value{a, b}) },
	}, nil
}

func (cx *ctx) compileFunction(n *ast.Function, allowAggregate bool) (plan.Node, error) {
	if n.Name == "coalesce" {
		return cx.compileCoalesce(n, allowAggregate)
	}
	if n.Name == "meta" || n.Name == "entry_meta" || n.Name == "any_meta" {
		return cx.compileMeta(n, allowAggregate)
	}
	if aggregateFuncs[n.Name] {
		if !allowAggregate {
			return nil, errs.NewCompilation(spanPtr(n), "aggregate function %q not allowed here", n.Name)
		}
		return cx.compileAggregate(n)
	}

	var args []plan.Node
	var argTypes []types.Datatype
	for _, a := range n.Args {
		na, err := cx.compileExpr(a, allowAggregate)
		if err != nil {
			return nil, err
		}
		if na.HasAggregate() {
			return nil, errs.NewCompilation(spanPtr(n), "aggregate not allowed inside %q", n.Name)
		}
		args = append(args, na)
		argTypes = append(argTypes, na.Dtype())
	}

	ov, casts, err := cx.c.Functions.ResolveFunction(n.Name, argTypes)
	if err != nil {
		return nil, errs.NewCompilation(spanPtr(n), "%s", err)
	}
	for i, c := range casts {
		if c != nil {
			args[i] = applyCast(args[i], c)
		}
	}

	allConst := true
	constArgs := make([]types.Value, len(args))
	for i, a := range args {
		if ac, ok := a.(*plan.EvalConstant); ok {
			constArgs[i] = ac.Value
		} else {
			allConst = false
		}
	}
	if allConst && ov.Pure {
		v, err := ov.Call(constArgs)
		if err != nil {
			return nil, err
		}
		return &plan.EvalConstant{Value: v, DT: ov.Out}, nil
	}

	return &variadicNode{args: args, dt: ov.Out, call: ov.Call}, nil
}

// variadicNode evaluates an N-ary function overload, used for every
// registered function (arithmetic/comparison operators use EvalBinary
// instead, since those are always exactly 2-ary with folding built in).
type variadicNode struct {
	args []plan.Node
	dt   types.Datatype
	call func([]types.Value) (types.Value, error)
}

func (v *variadicNode) Dtype() types.Datatype { return v.dt }
func (v *variadicNode) HasAggregate() bool {
	for _, a := range v.args {
		if a.HasAggregate() {
			return true
		}
	}
	return false
}
func (v *variadicNode) Eval(ctx *plan.EvalContext) (types.Value, error) {
	vals := make([]types.Value, len(v.args))
	for i, a := range v.args {
		val, err := a.Eval(ctx)
		if err != nil {
			return nil, err
		}
		vals[i] = val
	}
	return v.call(vals)
}

func (cx *ctx) compileCoalesce(n *ast.Function, allowAggregate bool) (plan.Node, error) {
	if len(n.Args) == 0 {
		return nil, errs.NewCompilation(spanPtr(n), "coalesce requires at least one argument")
	}
	var args []plan.Node
	var dt types.Datatype
	for i, a := range n.Args {
		na, err := cx.compileExpr(a, allowAggregate)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			dt = na.Dtype()
		} else if na.Dtype() != dt && na.Dtype() != types.Any && dt != types.Any {
			return nil, errs.NewCompilation(spanPtr(a), "coalesce arguments must share a datatype")
		}
		args = append(args, na)
	}
	return &plan.EvalCoalesce{Args: args, DT: dt}, nil
}

// compileMeta rewrites meta(key)/entry_meta(key)/any_meta(key) (spec
// §4.D step 9) before resolution: meta(key) reads the posting-level
// "meta" mapping column; entry_meta(key) reads the "meta" field nested
// under the current table's "entry" structured column; any_meta(key)
// coalesces the two, preferring the posting-level value.
func (cx *ctx) compileMeta(n *ast.Function, allowAggregate bool) (plan.Node, error) {
	if len(n.Args) != 1 {
		return nil, errs.NewCompilation(spanPtr(n), "%s takes exactly one argument", n.Name)
	}
	key := n.Args[0]
	metaExpr := &ast.Subscript{X: &ast.Column{Name: "meta"}, Key: key}
	entryMetaExpr := &ast.Subscript{X: &ast.Attribute{X: &ast.Column{Name: "entry"}, Field: "meta"}, Key: key}

	switch n.Name {
	case "meta":
		return cx.compileExpr(metaExpr, allowAggregate)
	case "entry_meta":
		return cx.compileExpr(entryMetaExpr, allowAggregate)
	case "any_meta":
		return cx.compileExpr(&ast.Function{Name: "coalesce", Args: []ast.Expr{metaExpr, entryMetaExpr}}, allowAggregate)
	}
	return nil, errs.NewCompilation(spanPtr(n), "unknown meta function %q", n.Name)
}

func (cx *ctx) compileAggregate(n *ast.Function) (plan.Node, error) {
	var arg plan.Node
	var argDt types.Datatype
	if len(n.Args) == 1 {
		if _, star := n.Args[0].(*ast.Asterisk); !star {
			a, err := cx.compileExpr(n.Args[0], false)
			if err != nil {
				return nil, err
			}
			if a.HasAggregate() {
				return nil, errs.NewCompilation(spanPtr(n), "aggregates may not nest")
			}
			arg = a
			argDt = a.Dtype()
		}
	}

	var agg plan.Aggregator
	var outDt types.Datatype
	switch n.Name {
	case "count":
		agg = &exec.Count{Arg: arg}
		outDt = types.IntType
	case "sum":
		if arg == nil {
			return nil, errs.NewCompilation(spanPtr(n), "sum requires an argument")
		}
		outDt = argDt
		agg = &exec.Sum{Arg: arg, Dt: argDt}
	case "first":
		if arg == nil {
			return nil, errs.NewCompilation(spanPtr(n), "first requires an argument")
		}
		outDt = argDt
		agg = &exec.First{Arg: arg, Dt: argDt}
	case "last":
		if arg == nil {
			return nil, errs.NewCompilation(spanPtr(n), "last requires an argument")
		}
		outDt = argDt
		agg = &exec.Last{Arg: arg, Dt: argDt}
	case "min", "max":
		if arg == nil {
			return nil, errs.NewCompilation(spanPtr(n), "%s requires an argument", n.Name)
		}
		outDt = argDt
		agg = &exec.MinMax{Arg: arg, Dt: argDt, Max: n.Name == "max", Less: exec.LessFor(argDt)}
	}

	slot := agg.Allocate(cx.alloc)
	cx.aggregators = append(cx.aggregators, agg)

	return &plan.EvalAggregator{Agg: agg, Slot: slot, DT: outDt}, nil
}
