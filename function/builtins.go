package function

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/types"
	"github.com/shopspring/decimal"
)

func registerCasts(r *Registry) {
	one := func(in types.Datatype, out types.Datatype, f func(types.Value) types.Value) *Overload {
		return &Overload{In: []types.Datatype{in}, Out: out, Pure: true, Call: func(args []types.Value) (types.Value, error) {
			return f(args[0]), nil
		}}
	}
	for _, in := range []types.Datatype{types.Any} {
		r.RegisterFunction("bool", one(in, types.BoolType, types.CastBool))
		r.RegisterFunction("int", one(in, types.IntType, types.CastInt))
		r.RegisterFunction("decimal", one(in, types.DecimalType, types.CastDecimal))
		r.RegisterFunction("str", one(in, types.StringType, types.CastStr))
		r.RegisterFunction("date", one(in, types.DateType, types.CastDate))
	}
	r.RegisterFunction("date", &Overload{
		In:  []types.Datatype{types.IntType, types.IntType, types.IntType},
		Out: types.DateType, Pure: true,
		Call: func(args []types.Value) (types.Value, error) {
			y, m, d := args[0].(types.Int), args[1].(types.Int), args[2].(types.Int)
			if y.Null || m.Null || d.Null {
				return types.Date{Null: true}, nil
			}
			return types.DateFromYMD(y.V, m.V, d.V), nil
		},
	})
}

func registerArithmetic(r *Registry) {
	intOp := func(f func(a, b int64) int64) func([]types.Value) (types.Value, error) {
		return func(args []types.Value) (types.Value, error) {
			a, b := args[0].(types.Int), args[1].(types.Int)
			if a.Null || b.Null {
				return types.Int{Null: true}, nil
			}
			return types.Int{V: f(a.V, b.V)}, nil
		}
	}
	decOp := func(f func(a, b decimal.Decimal) decimal.Decimal) func([]types.Value) (types.Value, error) {
		return func(args []types.Value) (types.Value, error) {
			a, b := args[0].(types.Decimal), args[1].(types.Decimal)
			if a.Null || b.Null {
				return types.Decimal{Null: true}, nil
			}
			return types.Decimal{V: f(a.V, b.V)}, nil
		}
	}
	add := func(a, b int64) int64 { return a + b }
	sub := func(a, b int64) int64 { return a - b }
	mul := func(a, b int64) int64 { return a * b }
	mod := func(a, b int64) int64 {
		if b == 0 {
			return 0
		}
		return a % b
	}
	div := func(args []types.Value) (types.Value, error) {
		a, b := args[0].(types.Int), args[1].(types.Int)
		if a.Null || b.Null || b.V == 0 {
			// division by zero yields NULL, not an error (spec §7).
			return types.Int{Null: true}, nil
		}
		return types.Int{V: a.V / b.V}, nil
	}
	decDiv := func(args []types.Value) (types.Value, error) {
		a, b := args[0].(types.Decimal), args[1].(types.Decimal)
		if a.Null || b.Null || b.V.IsZero() {
			return types.Decimal{Null: true}, nil
		}
		return types.Decimal{V: a.V.Div(b.V)}, nil
	}

	both := func(dt types.Datatype) []types.Datatype { return []types.Datatype{dt, dt} }

	r.RegisterOperator(ast.Add, &Overload{In: both(types.IntType), Out: types.IntType, Pure: true, Call: intOp(add)})
	r.RegisterOperator(ast.Sub, &Overload{In: both(types.IntType), Out: types.IntType, Pure: true, Call: intOp(sub)})
	r.RegisterOperator(ast.Mul, &Overload{In: both(types.IntType), Out: types.IntType, Pure: true, Call: intOp(mul)})
	r.RegisterOperator(ast.Mod, &Overload{In: both(types.IntType), Out: types.IntType, Pure: true, Call: intOp(mod)})
	r.RegisterOperator(ast.Div, &Overload{In: both(types.IntType), Out: types.IntType, Pure: true, Call: div})

	r.RegisterOperator(ast.Add, &Overload{In: both(types.DecimalType), Out: types.DecimalType, Pure: true, Call: decOp(decimal.Decimal.Add)})
	r.RegisterOperator(ast.Sub, &Overload{In: both(types.DecimalType), Out: types.DecimalType, Pure: true, Call: decOp(decimal.Decimal.Sub)})
	r.RegisterOperator(ast.Mul, &Overload{In: both(types.DecimalType), Out: types.DecimalType, Pure: true, Call: decOp(decimal.Decimal.Mul)})
	r.RegisterOperator(ast.Div, &Overload{In: both(types.DecimalType), Out: types.DecimalType, Pure: true, Call: decDiv})

	r.RegisterOperator(ast.Add, &Overload{In: both(types.StringType), Out: types.StringType, Pure: true, Call: func(args []types.Value) (types.Value, error) {
		a, b := args[0].(types.String), args[1].(types.String)
		if a.Null || b.Null {
			return types.String{Null: true}, nil
		}
		return types.String{V: a.V + b.V}, nil
	}})

	r.RegisterUnary(ast.Neg, &Overload{In: []types.Datatype{types.IntType}, Out: types.IntType, Pure: true, Call: func(args []types.Value) (types.Value, error) {
		a := args[0].(types.Int)
		if a.Null {
			return types.Int{Null: true}, nil
		}
		return types.Int{V: -a.V}, nil
	}})
	r.RegisterUnary(ast.Neg, &Overload{In: []types.Datatype{types.DecimalType}, Out: types.DecimalType, Pure: true, Call: func(args []types.Value) (types.Value, error) {
		a := args[0].(types.Decimal)
		if a.Null {
			return types.Decimal{Null: true}, nil
		}
		return types.Decimal{V: a.V.Neg()}, nil
	}})
}

func registerComparison(r *Registry) {
	register := func(op ast.BinaryOp, dt types.Datatype, cmp func(a, b types.Value) bool) {
		r.RegisterOperator(op, &Overload{In: []types.Datatype{dt, dt}, Out: types.BoolType, Pure: true, Call: func(args []types.Value) (types.Value, error) {
			if args[0].IsNull() || args[1].IsNull() {
				return types.Bool{Null: true}, nil
			}
			return types.Bool{V: cmp(args[0], args[1])}, nil
		}})
	}

	intCmp := func(op ast.BinaryOp, f func(a, b int64) bool) {
		register(op, types.IntType, func(a, b types.Value) bool { return f(a.(types.Int).V, b.(types.Int).V) })
	}
	decCmp := func(op ast.BinaryOp, f func(a, b decimal.Decimal) bool) {
		register(op, types.DecimalType, func(a, b types.Value) bool { return f(a.(types.Decimal).V, b.(types.Decimal).V) })
	}
	strCmp := func(op ast.BinaryOp, f func(a, b string) bool) {
		register(op, types.StringType, func(a, b types.Value) bool { return f(a.(types.String).V, b.(types.String).V) })
	}
	boolCmp := func(op ast.BinaryOp, f func(a, b bool) bool) {
		register(op, types.BoolType, func(a, b types.Value) bool { return f(a.(types.Bool).V, b.(types.Bool).V) })
	}
	dateCmp := func(op ast.BinaryOp, f func(a, b int) bool) {
		register(op, types.DateType, func(a, b types.Value) bool {
			return f(a.(types.Date).V.Compare(b.(types.Date).V), 0)
		})
	}

	eq := func(a, b int64) bool { return a == b }
	neq := func(a, b int64) bool { return a != b }
	lt := func(a, b int64) bool { return a < b }
	lte := func(a, b int64) bool { return a <= b }
	gt := func(a, b int64) bool { return a > b }
	gte := func(a, b int64) bool { return a >= b }
	intCmp(ast.Eq, eq)
	intCmp(ast.NotEq, neq)
	intCmp(ast.Lt, lt)
	intCmp(ast.LtEq, lte)
	intCmp(ast.Gt, gt)
	intCmp(ast.GtEq, gte)

	decCmp(ast.Eq, decimal.Decimal.Equal)
	decCmp(ast.NotEq, func(a, b decimal.Decimal) bool { return !a.Equal(b) })
	decCmp(ast.Lt, decimal.Decimal.LessThan)
	decCmp(ast.LtEq, decimal.Decimal.LessThanOrEqual)
	decCmp(ast.Gt, decimal.Decimal.GreaterThan)
	decCmp(ast.GtEq, decimal.Decimal.GreaterThanOrEqual)

	strCmp(ast.Eq, func(a, b string) bool { return a == b })
	strCmp(ast.NotEq, func(a, b string) bool { return a != b })
	strCmp(ast.Lt, func(a, b string) bool { return a < b })
	strCmp(ast.LtEq, func(a, b string) bool { return a <= b })
	strCmp(ast.Gt, func(a, b string) bool { return a > b })
	strCmp(ast.GtEq, func(a, b string) bool { return a >= b })

	boolCmp(ast.Eq, func(a, b bool) bool { return a == b })
	boolCmp(ast.NotEq, func(a, b bool) bool { return a != b })

	dateCmp(ast.Eq, func(a, b int) bool { return a == b })
	dateCmp(ast.NotEq, func(a, b int) bool { return a != b })
	dateCmp(ast.Lt, func(a, b int) bool { return a < b })
	dateCmp(ast.LtEq, func(a, b int) bool { return a <= b })
	dateCmp(ast.Gt, func(a, b int) bool { return a > b })
	dateCmp(ast.GtEq, func(a, b int) bool { return a >= b })
}

func registerMatch(r *Registry) {
	match := func(args []types.Value) (types.Value, error) {
		x, pat := args[0].(types.String), args[1].(types.String)
		if x.Null || pat.Null {
			return types.Bool{Null: true}, nil
		}
		re, err := regexp.Compile("(?i)" + pat.V)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %w", pat.V, err)
		}
		return types.Bool{V: re.MatchString(x.V)}, nil
	}
	notMatch := func(args []types.Value) (types.Value, error) {
		v, err := match(args)
		if err != nil || v.IsNull() {
			return v, err
		}
		return types.Bool{V: !v.(types.Bool).V}, nil
	}
	r.RegisterOperator(ast.Match, &Overload{In: []types.Datatype{types.StringType, types.StringType}, Out: types.BoolType, Call: match})
	r.RegisterOperator(ast.NotMatch, &Overload{In: []types.Datatype{types.StringType, types.StringType}, Out: types.BoolType, Call: notMatch})
	// `?~` is the conditional match: NULL pattern matches everything.
	r.RegisterOperator(ast.CondMatch, &Overload{In: []types.Datatype{types.StringType, types.StringType}, Out: types.BoolType, Call: func(args []types.Value) (types.Value, error) {
		if args[1].IsNull() {
			return types.Bool{V: true}, nil
		}
		return match(args)
	}})
}

// registerBuiltinFunctions registers the handful of scalar functions BQL
// exposes beyond casts/operators: maxwidth (used by JOURNAL's rewrite,
// spec §4.D step 2), year/month/day accessors, and account_sortkey (used
// by BALANCES' rewrite).
func registerBuiltinFunctions(r *Registry) {
	r.RegisterFunction("maxwidth", &Overload{
		In: []types.Datatype{types.StringType, types.IntType}, Out: types.StringType, Pure: true,
		Call: func(args []types.Value) (types.Value, error) {
			s, w := args[0].(types.String), args[1].(types.Int)
			if s.Null {
				return types.String{Null: true}, nil
			}
			if int64(len(s.V)) <= w.V {
				return s, nil
			}
			if w.V < 1 {
				return types.String{V: ""}, nil
			}
			return types.String{V: s.V[:w.V-1] + "."}, nil
		},
	})

	r.RegisterFunction("year", &Overload{
		In: []types.Datatype{types.DateType}, Out: types.IntType, Pure: true,
		Call: func(args []types.Value) (types.Value, error) {
			d := args[0].(types.Date)
			if d.Null {
				return types.Int{Null: true}, nil
			}
			return types.Int{V: int64(d.V.Year())}, nil
		},
	})
	r.RegisterFunction("month", &Overload{
		In: []types.Datatype{types.DateType}, Out: types.IntType, Pure: true,
		Call: func(args []types.Value) (types.Value, error) {
			d := args[0].(types.Date)
			if d.Null {
				return types.Int{Null: true}, nil
			}
			return types.Int{V: int64(d.V.Month())}, nil
		},
	})
	r.RegisterFunction("day", &Overload{
		In: []types.Datatype{types.DateType}, Out: types.IntType, Pure: true,
		Call: func(args []types.Value) (types.Value, error) {
			d := args[0].(types.Date)
			if d.Null {
				return types.Int{Null: true}, nil
			}
			return types.Int{V: int64(d.V.Day())}, nil
		},
	})

	r.RegisterFunction("abs", &Overload{
		In: []types.Datatype{types.DecimalType}, Out: types.DecimalType, Pure: true,
		Call: func(args []types.Value) (types.Value, error) {
			d := args[0].(types.Decimal)
			if d.Null {
				return types.Decimal{Null: true}, nil
			}
			return types.Decimal{V: d.V.Abs()}, nil
		},
	})

	r.RegisterFunction("account_sortkey", &Overload{
		In: []types.Datatype{types.StringType}, Out: types.StringType, Pure: true,
		Call: func(args []types.Value) (types.Value, error) {
			s := args[0].(types.String)
			if s.Null {
				return types.String{Null: true}, nil
			}
			return types.String{V: accountSortKey(s.V)}, nil
		},
	})
}

// accountSortKey orders the five standard account-type roots
// (Assets, Liabilities, Equity, Income, Expenses) ahead of everything
// else, then lexically within each root — the ordering BALANCES' rewrite
// sorts by (spec §4.D step 2).
func accountSortKey(account string) string {
	roots := []string{"Assets", "Liabilities", "Equity", "Income", "Expenses"}
	root := strings.SplitN(account, ":", 2)[0]
	for i, r := range roots {
		if r == root {
			return fmt.Sprintf("%d:%s", i, account)
		}
	}
	return fmt.Sprintf("%d:%s", len(roots), account)
}
