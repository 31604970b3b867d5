package function_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bqlquery/bql/ast"
	"github.com/bqlquery/bql/function"
	"github.com/bqlquery/bql/types"
)

func TestResolveOperatorExactMatch(t *testing.T) {
	r := function.NewRegistry()
	ov, casts, err := r.ResolveOperator(ast.Add, []types.Datatype{types.IntType, types.IntType})
	require.NoError(t, err)
	require.Nil(t, casts)
	v, err := ov.Call([]types.Value{types.Int{V: 2}, types.Int{V: 3}})
	require.NoError(t, err)
	require.Equal(t, types.Int{V: 5}, v)
}

func TestResolveOperatorPromotesIntToDecimal(t *testing.T) {
	r := function.NewRegistry()
	ov, casts, err := r.ResolveOperator(ast.Add, []types.Datatype{types.IntType, types.DecimalType})
	require.NoError(t, err)
	require.Len(t, casts, 2)
	require.NotNil(t, casts[0])
	require.Nil(t, casts[1])

	left := casts[0](types.Int{V: 2})
	v, err := ov.Call([]types.Value{left, types.Decimal{V: decimal.NewFromInt(3)}})
	require.NoError(t, err)
	require.True(t, v.(types.Decimal).V.Equal(decimal.NewFromInt(5)))
}

func TestResolveOperatorPromotesObject(t *testing.T) {
	r := function.NewRegistry()
	ov, casts, err := r.ResolveOperator(ast.Eq, []types.Datatype{types.ObjectType, types.StringType})
	require.NoError(t, err)
	require.NotNil(t, casts[0])
	require.Nil(t, casts[1])

	left := casts[0](types.Object{V: "a"})
	v, err := ov.Call([]types.Value{left, types.String{V: "a"}})
	require.NoError(t, err)
	require.Equal(t, types.Bool{V: true}, v)
}

func TestResolveOperatorUnknown(t *testing.T) {
	r := function.NewRegistry()
	_, _, err := r.ResolveOperator(ast.Add, []types.Datatype{types.BoolType, types.BoolType})
	require.Error(t, err)
}

func TestResolveFunctionUnknownName(t *testing.T) {
	r := function.NewRegistry()
	_, _, err := r.ResolveFunction("nope", []types.Datatype{types.IntType})
	require.Error(t, err)
}

func TestDivisionByZeroYieldsNull(t *testing.T) {
	r := function.NewRegistry()
	ov, _, err := r.ResolveOperator(ast.Div, []types.Datatype{types.IntType, types.IntType})
	require.NoError(t, err)
	v, err := ov.Call([]types.Value{types.Int{V: 1}, types.Int{V: 0}})
	require.NoError(t, err)
	require.True(t, v.IsNull())
}

func TestModOperator(t *testing.T) {
	r := function.NewRegistry()
	ov, _, err := r.ResolveOperator(ast.Mod, []types.Datatype{types.IntType, types.IntType})
	require.NoError(t, err)
	v, err := ov.Call([]types.Value{types.Int{V: 7}, types.Int{V: 2}})
	require.NoError(t, err)
	require.Equal(t, types.Int{V: 1}, v)
}

func TestStringConcatOperator(t *testing.T) {
	r := function.NewRegistry()
	ov, _, err := r.ResolveOperator(ast.Add, []types.Datatype{types.StringType, types.StringType})
	require.NoError(t, err)
	v, err := ov.Call([]types.Value{types.String{V: "foo"}, types.String{V: "bar"}})
	require.NoError(t, err)
	require.Equal(t, types.String{V: "foobar"}, v)
}

func TestMatchOperatorCaseInsensitive(t *testing.T) {
	r := function.NewRegistry()
	ov, _, err := r.ResolveOperator(ast.Match, []types.Datatype{types.StringType, types.StringType})
	require.NoError(t, err)
	v, err := ov.Call([]types.Value{types.String{V: "Groceries"}, types.String{V: "^groc"}})
	require.NoError(t, err)
	require.Equal(t, types.Bool{V: true}, v)
}

func TestCondMatchNullPatternMatchesAll(t *testing.T) {
	r := function.NewRegistry()
	ov, _, err := r.ResolveOperator(ast.CondMatch, []types.Datatype{types.StringType, types.StringType})
	require.NoError(t, err)
	v, err := ov.Call([]types.Value{types.String{V: "anything"}, types.String{Null: true}})
	require.NoError(t, err)
	require.Equal(t, types.Bool{V: true}, v)
}

func TestMaxwidthTruncates(t *testing.T) {
	r := function.NewRegistry()
	ov, _, err := r.ResolveFunction("maxwidth", []types.Datatype{types.StringType, types.IntType})
	require.NoError(t, err)
	v, err := ov.Call([]types.Value{types.String{V: "Expenses:Food:Groceries"}, types.Int{V: 10}})
	require.NoError(t, err)
	require.Equal(t, types.String{V: "Expenses:."}, v)
}

func TestAccountSortkeyOrdersStandardRootsFirst(t *testing.T) {
	r := function.NewRegistry()
	ov, _, err := r.ResolveFunction("account_sortkey", []types.Datatype{types.StringType})
	require.NoError(t, err)

	assets, err := ov.Call([]types.Value{types.String{V: "Assets:Cash"}})
	require.NoError(t, err)
	other, err := ov.Call([]types.Value{types.String{V: "Zzz:Other"}})
	require.NoError(t, err)
	require.Less(t, assets.(types.String).V, other.(types.String).V)
}

func TestYearMonthDayAccessors(t *testing.T) {
	r := function.NewRegistry()
	d := types.CastDate(types.String{V: "2024-03-15"})

	ov, _, err := r.ResolveFunction("year", []types.Datatype{types.DateType})
	require.NoError(t, err)
	v, err := ov.Call([]types.Value{d})
	require.NoError(t, err)
	require.Equal(t, types.Int{V: 2024}, v)

	ov, _, err = r.ResolveFunction("month", []types.Datatype{types.DateType})
	require.NoError(t, err)
	v, err = ov.Call([]types.Value{d})
	require.NoError(t, err)
	require.Equal(t, types.Int{V: 3}, v)

	ov, _, err = r.ResolveFunction("day", []types.Datatype{types.DateType})
	require.NoError(t, err)
	v, err = ov.Call([]types.Value{d})
	require.NoError(t, err)
	require.Equal(t, types.Int{V: 15}, v)
}

func TestRegisterFunctionExtendsCatalog(t *testing.T) {
	r := function.NewRegistry()
	require.False(t, r.HasFunction("custom_fn"))
	r.RegisterFunction("custom_fn", &function.Overload{
		In:  []types.Datatype{types.IntType},
		Out: types.IntType,
		Call: func(args []types.Value) (types.Value, error) {
			return args[0], nil
		},
	})
	require.True(t, r.HasFunction("custom_fn"))
}
