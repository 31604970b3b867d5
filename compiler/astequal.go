package compiler

import "github.com/bqlquery/bql/ast"

// astEqual reports whether a and b are the same expression syntactically
// (ignoring source spans), used to check that every non-aggregate
// target in an aggregate SELECT is covered by an explicit GROUP BY
// expression (spec invariant: "every non-aggregate target column must
// be named, or structurally equal to an entry, in GROUP BY"). Implicit
// GROUP BY instead reuses the compiled target plan.Node directly, so
// this comparison is only reached for an explicit GROUP BY clause.
func astEqual(a, b ast.Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch x := a.(type) {
	case *ast.Constant:
		y, ok := b.(*ast.Constant)
		return ok && x.Value == y.Value
	case *ast.Placeholder:
		y, ok := b.(*ast.Placeholder)
		return ok && x.Name == y.Name
	case *ast.Column:
		y, ok := b.(*ast.Column)
		return ok && x.Name == y.Name
	case *ast.Asterisk:
		_, ok := b.(*ast.Asterisk)
		return ok
	case *ast.Function:
		y, ok := b.(*ast.Function)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !astEqual(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	case *ast.Attribute:
		y, ok := b.(*ast.Attribute)
		return ok && x.Field == y.Field && astEqual(x.X, y.X)
	case *ast.Subscript:
		y, ok := b.(*ast.Subscript)
		return ok && astEqual(x.X, y.X) && astEqual(x.Key, y.Key)
	case *ast.Unary:
		y, ok := b.(*ast.Unary)
		return ok && x.Op == y.Op && astEqual(x.X, y.X)
	case *ast.Binary:
		y, ok := b.(*ast.Binary)
		return ok && x.Op == y.Op && astEqual(x.Left, y.Left) && astEqual(x.Right, y.Right)
	case *ast.Between:
		y, ok := b.(*ast.Between)
		return ok && astEqual(x.X, y.X) && astEqual(x.Low, y.Low) && astEqual(x.High, y.High)
	case *ast.InExpr:
		y, ok := b.(*ast.InExpr)
		if !ok || x.Kind != y.Kind || !astEqual(x.X, y.X) || len(x.List) != len(y.List) {
			return false
		}
		for i := range x.List {
			if !astEqual(x.List[i], y.List[i]) {
				return false
			}
		}
		return x.Subselect == y.Subselect
	case *ast.Quantified:
		y, ok := b.(*ast.Quantified)
		return ok && x.Op == y.Op && x.Quantifier == y.Quantifier && astEqual(x.X, y.X) && x.Subselect == y.Subselect
	default:
		return false
	}
}

func astEqualAny(e ast.Expr, list []ast.Expr) bool {
	for _, g := range list {
		if astEqual(e, g) {
			return true
		}
	}
	return false
}
