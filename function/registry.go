// Package function implements the overloaded function/operator registry
// (spec §4.A): FUNCTIONS maps a name to a list of overloads, OPERATORS
// maps a binary operator tag to a list of overloads, and overload
// resolution picks the first matching declared input-type tuple,
// promoting int<->decimal and object<->T mixes as spec §4.A describes.
//
// Grounded on the teacher's function registry (referenced throughout
// sql/functionregistry_test.go as sql.NewFunctionRegistry()/catalog.Function(name)):
// a name maps to a slice of candidate implementations chosen by argument
// type, rather than Go generics or reflection-based dispatch.
package function

import (
	"fmt"

	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/types"
)

// Cast converts a value from one datatype to another for promotion
// during overload resolution.
type Cast func(types.Value) types.Value

// Overload is one candidate implementation of a function or operator.
type Overload struct {
	In   []types.Datatype
	Out  types.Datatype
	Pure bool // eligible for constant folding (spec §4.D step 9)
	Call func(args []types.Value) (types.Value, error)
}

func (o *Overload) matches(argTypes []types.Datatype) bool {
	if len(o.In) != len(argTypes) {
		return false
	}
	for i, t := range o.In {
		if t != types.Any && t != argTypes[i] {
			return false
		}
	}
	return true
}

// Registry holds the function and operator overload tables for one
// Connection (spec §9: registries are threaded through the connection,
// not package globals).
type Registry struct {
	functions map[string][]*Overload
	operators map[ast.BinaryOp][]*Overload
	unary     map[ast.UnaryOp][]*Overload
}

// NewRegistry returns a Registry seeded with BQL's builtin functions,
// operators, and casts.
func NewRegistry() *Registry {
	r := &Registry{
		functions: map[string][]*Overload{},
		operators: map[ast.BinaryOp][]*Overload{},
		unary:     map[ast.UnaryOp][]*Overload{},
	}
	registerCasts(r)
	registerArithmetic(r)
	registerComparison(r)
	registerMatch(r)
	registerBuiltinFunctions(r)
	return r
}

// RegisterFunction adds an overload for name. Tables/embedders call this
// during catalog setup to add domain-specific functions (e.g. cost,
// position) without touching this package.
func (r *Registry) RegisterFunction(name string, ov *Overload) {
	r.functions[name] = append(r.functions[name], ov)
}

// RegisterOperator adds an overload for a binary operator tag.
func (r *Registry) RegisterOperator(op ast.BinaryOp, ov *Overload) {
	r.operators[op] = append(r.operators[op], ov)
}

// RegisterUnary adds an overload for a unary operator tag.
func (r *Registry) RegisterUnary(op ast.UnaryOp, ov *Overload) {
	r.unary[op] = append(r.unary[op], ov)
}

// HasFunction reports whether any overload is registered under name.
func (r *Registry) HasFunction(name string) bool {
	_, ok := r.functions[name]
	return ok
}

// ResolveFunction finds the first overload of name whose declared input
// types match argTypes, after the int<->decimal / object<->T promotions
// spec §4.A describes. It returns the chosen overload and any per-
// argument casts that must be applied before calling it.
func (r *Registry) ResolveFunction(name string, argTypes []types.Datatype) (*Overload, []Cast, error) {
	overloads, ok := r.functions[name]
	if !ok {
		return nil, nil, fmt.Errorf("unknown function %q", name)
	}
	return resolve(overloads, argTypes, fmt.Sprintf("function %q", name))
}

// ResolveOperator finds the overload for a binary operator given its
// operand types.
func (r *Registry) ResolveOperator(op ast.BinaryOp, argTypes []types.Datatype) (*Overload, []Cast, error) {
	overloads, ok := r.operators[op]
	if !ok {
		return nil, nil, fmt.Errorf("unknown operator %v", op)
	}
	return resolve(overloads, argTypes, fmt.Sprintf("operator %v", op))
}

// ResolveUnary finds the overload for a unary operator given its operand
// type.
func (r *Registry) ResolveUnary(op ast.UnaryOp, argType types.Datatype) (*Overload, []Cast, error) {
	overloads, ok := r.unary[op]
	if !ok {
		return nil, nil, fmt.Errorf("unknown unary operator %v", op)
	}
	return resolve(overloads, []types.Datatype{argType}, fmt.Sprintf("unary operator %v", op))
}

func resolve(overloads []*Overload, argTypes []types.Datatype, what string) (*Overload, []Cast, error) {
	// 1. exact match (or "any"-wildcard match).
	for _, o := range overloads {
		if o.matches(argTypes) {
			return o, nil, nil
		}
	}

	// 2. promotion, for the binary (2-arg) case only (spec §4.A).
	if len(argTypes) == 2 {
		l, rr := argTypes[0], argTypes[1]
		promoted, lc, rc := promotePair(l, rr)
		if promoted != nil {
			for _, o := range overloads {
				if o.matches(promoted) {
					return o, []Cast{lc, rc}, nil
				}
			}
		}
	}

	return nil, nil, fmt.Errorf("no overload of %s for argument types %v", what, argTypes)
}

// promotePair implements spec §4.A's mixed-operand promotion: integer
// promoted to decimal when paired with decimal; an untyped "object"
// operand promoted to the other side's type, except when the other side
// is integer, in which case both sides promote to decimal (since input
// values are never raw int, the object side cannot cleanly become one).
func promotePair(l, r types.Datatype) ([]types.Datatype, Cast, Cast) {
	switch {
	case l == types.IntType && r == types.DecimalType:
		return []types.Datatype{types.DecimalType, types.DecimalType}, types.CastDecimal, nil
	case l == types.DecimalType && r == types.IntType:
		return []types.Datatype{types.DecimalType, types.DecimalType}, nil, types.CastDecimal
	case l == types.ObjectType && r == types.IntType:
		return []types.Datatype{types.DecimalType, types.DecimalType}, types.CastDecimal, types.CastDecimal
	case l == types.IntType && r == types.ObjectType:
		return []types.Datatype{types.DecimalType, types.DecimalType}, types.CastDecimal, types.CastDecimal
	case l == types.ObjectType && r != types.ObjectType:
		return []types.Datatype{r, r}, castTo(r), nil
	case r == types.ObjectType && l != types.ObjectType:
		return []types.Datatype{l, l}, nil, castTo(l)
	}
	return nil, nil, nil
}

func castTo(dt types.Datatype) Cast {
	switch dt {
	case types.BoolType:
		return types.CastBool
	case types.IntType:
		return types.CastInt
	case types.DecimalType:
		return types.CastDecimal
	case types.StringType:
		return types.CastStr
	case types.DateType:
		return types.CastDate
	default:
		return func(v types.Value) types.Value { return v }
	}
}
