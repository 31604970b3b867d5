// Package plan defines the compiled, typed expression tree (spec §3
// "Plan node (EvalNode)") and the top-level query/pivot/print shells.
//
// Grounded on the teacher's sql/expression package (observed through its
// test suite: expression.Literal, expression.GetField, expression.Plus,
// expression.Between, expression.Sum/Count/Min/Max/First/Last, ...) —
// one Go type per evaluated node kind, each carrying its own resolved
// datatype, mirroring the teacher's sql.Expression.Type() contract.
package plan

import (
	"github.com/bqlquery/bql/table"
	"github.com/bqlquery/bql/types"
)

// Row is the row context under evaluation; carried through EvalContext
// so plan nodes never touch a table.Table directly.
type Row = table.Row

// Store is per-group aggregator accumulator storage (spec §4.E,
// §9 "Aggregator storage"): a dense vector of slots allocated at compile
// time by an Allocator, shared by every aggregator in one plan.
type Store []types.Value

// EvalContext carries what a node needs to evaluate: the current row,
// and, for aggregate queries, the accumulator Store belonging to the
// group currently being read or written.
type EvalContext struct {
	Row   Row
	Store Store
}

// Node is any compiled expression.
type Node interface {
	Dtype() types.Datatype
	// HasAggregate reports whether this node's subtree contains an
	// EvalAggregator (spec invariant iii: no aggregate may nest in
	// another, or appear in WHERE/FROM).
	HasAggregate() bool
	Eval(ctx *EvalContext) (types.Value, error)
}

// Allocator hands out sequential aggregator slot indexes at compile
// time (spec §9 "Aggregator storage").
type Allocator struct {
	next int
}

// Alloc reserves n contiguous slots and returns the index of the first.
func (a *Allocator) Alloc(n int) int {
	i := a.next
	a.next += n
	return i
}

// Size returns the total number of slots allocated so far; callers use
// it to build a zero-initialized Store per group.
func (a *Allocator) Size() int { return a.next }

// NewStore returns a Store of the allocator's current size.
func (a *Allocator) NewStore() Store {
	return make(Store, a.next)
}

// Aggregator is a stateful plan plugin folding rows within a group into
// a single value (spec §4.E "Aggregator contract").
type Aggregator interface {
	// Allocate reserves this aggregator's slot(s) from alloc, records
	// them on the instance, and returns the primary slot Eval reads
	// the finalized result from.
	Allocate(alloc *Allocator) int
	// Initialize seeds this aggregator's slots in store, typically with
	// the zero value of its output type.
	Initialize(store Store)
	// Update folds one row into store.
	Update(store Store, ctx *EvalContext) error
	// Finalize publishes the aggregator's result into its primary slot
	// in store, ready for Eval to read back.
	Finalize(store Store)
}

// EvalConstant is a literal value produced by parsing or constant
// folding (spec invariant: its dtype is the overload's declared output
// type when produced by folding).
type EvalConstant struct {
	Value types.Value
	DT    types.Datatype
}

func (n *EvalConstant) Dtype() types.Datatype { return n.DT }
func (*EvalConstant) HasAggregate() bool      { return false }
func (n *EvalConstant) Eval(*EvalContext) (types.Value, error) { return n.Value, nil }

// EvalColumn reads a table column accessor against the current row.
type EvalColumn struct {
	Accessor *table.ColumnAccessor
}

func (n *EvalColumn) Dtype() types.Datatype { return n.Accessor.Dtype }
func (*EvalColumn) HasAggregate() bool      { return false }
func (n *EvalColumn) Eval(ctx *EvalContext) (types.Value, error) {
	return n.Accessor.Get(ctx.Row), nil
}

// EvalUnary applies a resolved unary operator overload.
type EvalUnary struct {
	X    Node
	DT   types.Datatype
	Call func(args []types.Value) (types.Value, error)
}

func (n *EvalUnary) Dtype() types.Datatype { return n.DT }
func (n *EvalUnary) HasAggregate() bool    { return n.X.HasAggregate() }
func (n *EvalUnary) Eval(ctx *EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return n.Call([]types.Value{x})
}

// EvalIsNull (IS NULL, or IS NOT NULL with Want false) always produces a
// concrete boolean (spec §7),
// unlike every other node which propagates NULL.
type EvalIsNull struct {
	X    Node
	Want bool // true for IS NULL, false for IS NOT NULL
}

func (*EvalIsNull) Dtype() types.Datatype { return types.BoolType }
func (n *EvalIsNull) HasAggregate() bool  { return n.X.HasAggregate() }
func (n *EvalIsNull) Eval(ctx *EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	isNull := x == nil || x.IsNull()
	return types.Bool{V: isNull == n.Want}, nil
}

// EvalBinary applies a resolved binary operator/function overload.
type EvalBinary struct {
	Left, Right Node
	DT          types.Datatype
	Call        func(args []types.Value) (types.Value, error)
}

func (n *EvalBinary) Dtype() types.Datatype { return n.DT }
func (n *EvalBinary) HasAggregate() bool    { return n.Left.HasAggregate() || n.Right.HasAggregate() }
func (n *EvalBinary) Eval(ctx *EvalContext) (types.Value, error) {
	l, err := n.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	r, err := n.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}
	return n.Call([]types.Value{l, r})
}

// EvalAnd/EvalOr implement SQL three-valued logic (spec §7): NULL AND
// FALSE = FALSE, NULL AND TRUE = NULL, symmetric for OR.
type EvalAnd struct{ Left, Right Node }

func (*EvalAnd) Dtype() types.Datatype { return types.BoolType }
func (n *EvalAnd) HasAggregate() bool  { return n.Left.HasAggregate() || n.Right.HasAggregate() }
func (n *EvalAnd) Eval(ctx *EvalContext) (types.Value, error) {
	l, err := n.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if !l.IsNull() && !l.(types.Bool).V {
		return types.Bool{V: false}, nil
	}
	r, err := n.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if !r.IsNull() && !r.(types.Bool).V {
		return types.Bool{V: false}, nil
	}
	if l.IsNull() || r.IsNull() {
		return types.Bool{Null: true}, nil
	}
	return types.Bool{V: true}, nil
}

type EvalOr struct{ Left, Right Node }

func (*EvalOr) Dtype() types.Datatype { return types.BoolType }
func (n *EvalOr) HasAggregate() bool  { return n.Left.HasAggregate() || n.Right.HasAggregate() }
func (n *EvalOr) Eval(ctx *EvalContext) (types.Value, error) {
	l, err := n.Left.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if !l.IsNull() && l.(types.Bool).V {
		return types.Bool{V: true}, nil
	}
	r, err := n.Right.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if !r.IsNull() && r.(types.Bool).V {
		return types.Bool{V: true}, nil
	}
	if l.IsNull() || r.IsNull() {
		return types.Bool{Null: true}, nil
	}
	return types.Bool{V: false}, nil
}

// EvalNot negates a boolean, propagating NULL.
type EvalNot struct{ X Node }

func (*EvalNot) Dtype() types.Datatype { return types.BoolType }
func (n *EvalNot) HasAggregate() bool  { return n.X.HasAggregate() }
func (n *EvalNot) Eval(ctx *EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if x.IsNull() {
		return types.Bool{Null: true}, nil
	}
	return types.Bool{V: !x.(types.Bool).V}, nil
}

// EvalBetween is `x BETWEEN low AND high`, desugared to `low <= x AND
// x <= high` at evaluation time but kept as its own node so the
// compiler can reject aggregate nesting and report a single span.
type EvalBetween struct {
	X, Low, High Node
	LessEq       func(a, b types.Value) (types.Value, error)
}

func (*EvalBetween) Dtype() types.Datatype { return types.BoolType }
func (n *EvalBetween) HasAggregate() bool {
	return n.X.HasAggregate() || n.Low.HasAggregate() || n.High.HasAggregate()
}
func (n *EvalBetween) Eval(ctx *EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	lo, err := n.Low.Eval(ctx)
	if err != nil {
		return nil, err
	}
	hi, err := n.High.Eval(ctx)
	if err != nil {
		return nil, err
	}
	loOK, err := n.LessEq(lo, x)
	if err != nil {
		return nil, err
	}
	hiOK, err := n.LessEq(x, hi)
	if err != nil {
		return nil, err
	}
	return (&EvalAnd{Left: &EvalConstant{Value: loOK, DT: types.BoolType}, Right: &EvalConstant{Value: hiOK, DT: types.BoolType}}).Eval(ctx)
}

// EvalCoalesce returns the first non-null argument; all arguments share
// a datatype (spec §4.D step 9).
type EvalCoalesce struct {
	Args []Node
	DT   types.Datatype
}

func (n *EvalCoalesce) Dtype() types.Datatype { return n.DT }
func (n *EvalCoalesce) HasAggregate() bool {
	for _, a := range n.Args {
		if a.HasAggregate() {
			return true
		}
	}
	return false
}
func (n *EvalCoalesce) Eval(ctx *EvalContext) (types.Value, error) {
	for _, a := range n.Args {
		v, err := a.Eval(ctx)
		if err != nil {
			return nil, err
		}
		if !v.IsNull() {
			return v, nil
		}
	}
	return types.Null(n.DT), nil
}

// EvalGetItem is `x[key]` subscripting on a Mapping.
type EvalGetItem struct {
	X   Node
	Key Node
	DT  types.Datatype
}

func (n *EvalGetItem) Dtype() types.Datatype { return n.DT }
func (n *EvalGetItem) HasAggregate() bool    { return n.X.HasAggregate() || n.Key.HasAggregate() }
func (n *EvalGetItem) Eval(ctx *EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	k, err := n.Key.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if x.IsNull() || k.IsNull() {
		return types.Null(n.DT), nil
	}
	m, ok := x.(types.Mapping)
	if !ok {
		return types.Null(n.DT), nil
	}
	key, ok := k.(types.String)
	if !ok {
		return types.Null(n.DT), nil
	}
	if v, ok := m.V[key.V]; ok {
		return v, nil
	}
	return types.Null(n.DT), nil
}

// EvalGetter is `x.field` attribute access on a structured type.
type EvalGetter struct {
	X   Node
	Get func(record interface{}) types.Value
	DT  types.Datatype
	// ChildStruct is the Structured descriptor of this getter's own
	// output, populated when the accessed field is itself structured,
	// so a further `.field` can chain off it.
	ChildStruct *types.Structured
}

func (n *EvalGetter) Dtype() types.Datatype { return n.DT }
func (n *EvalGetter) HasAggregate() bool    { return n.X.HasAggregate() }
func (n *EvalGetter) Eval(ctx *EvalContext) (types.Value, error) {
	x, err := n.X.Eval(ctx)
	if err != nil {
		return nil, err
	}
	if x.IsNull() {
		return types.Null(n.DT), nil
	}
	return n.Get(x.Interface()), nil
}

// EvalAggregator wraps an Aggregator instance and its primary output
// slot; Eval reads the slot that Finalize published into (spec §4.E).
type EvalAggregator struct {
	Agg  Aggregator
	Slot int
	DT   types.Datatype
}

func (n *EvalAggregator) Dtype() types.Datatype { return n.DT }
func (*EvalAggregator) HasAggregate() bool      { return true }
func (n *EvalAggregator) Eval(ctx *EvalContext) (types.Value, error) {
	return ctx.Store[n.Slot], nil
}
