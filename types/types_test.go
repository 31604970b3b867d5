package types_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/bqlquery/bql/types"
)

func TestNullByDatatype(t *testing.T) {
	require.True(t, types.Null(types.IntType).IsNull())
	require.Equal(t, types.IntType, types.Null(types.IntType).Type())
	require.True(t, types.Null(types.ObjectType).IsNull())
	require.Equal(t, types.ObjectType, types.Null(types.StringType+100).Type()) // unknown datatype falls back to Object
}

func TestInterfaceRoundtrip(t *testing.T) {
	require.Equal(t, int64(5), types.Int{V: 5}.Interface())
	require.Nil(t, types.Int{Null: true}.Interface())
	require.Equal(t, "hi", types.String{V: "hi"}.Interface())
	require.Nil(t, types.Decimal{Null: true}.Interface())
}

func TestListSetMappingInterface(t *testing.T) {
	l := types.List{V: []types.Value{types.Int{V: 1}, types.Int{V: 2}}}
	require.Equal(t, []interface{}{int64(1), int64(2)}, l.Interface())

	m := types.Mapping{V: map[string]types.Value{"a": types.Bool{V: true}}}
	require.Equal(t, map[string]interface{}{"a": true}, m.Interface())
}

func TestStructuredFieldLookupAndNesting(t *testing.T) {
	inner := &types.Structured{Name: "cost", Fields: []types.Field{
		{Name: "number", Type: types.DecimalType, Get: func(r interface{}) types.Value {
			return types.Decimal{V: decimal.NewFromInt(r.(int64))}
		}},
	}}
	outer := &types.Structured{Name: "posting", Fields: []types.Field{
		{Name: "cost", Type: types.StructType, Nested: inner, Get: func(r interface{}) types.Value {
			return types.Record{Struct: inner, V: r}
		}},
	}}

	f, ok := outer.Field("cost")
	require.True(t, ok)
	require.NotNil(t, f.Nested)
	require.Same(t, inner, f.Nested)

	_, ok = outer.Field("missing")
	require.False(t, ok)
}

func TestReduceScalarsAndContainers(t *testing.T) {
	require.Nil(t, types.Reduce(types.Int{Null: true}))
	require.Equal(t, int64(3), types.Reduce(types.Int{V: 3}))

	l := types.List{V: []types.Value{types.Int{V: 1}, types.Int{V: 2}}}
	require.Equal(t, "[1,2]", types.Reduce(l))

	// set reduction sorts its elements so insertion order doesn't affect
	// the group key.
	s1 := types.Set{V: []types.Value{types.Int{V: 2}, types.Int{V: 1}}}
	s2 := types.Set{V: []types.Value{types.Int{V: 1}, types.Int{V: 2}}}
	require.Equal(t, types.Reduce(s1), types.Reduce(s2))
}

func TestHashableAlwaysTrue(t *testing.T) {
	require.True(t, types.Hashable(types.IntType))
	require.True(t, types.Hashable(types.StructType))
}

func TestCastBool(t *testing.T) {
	require.Equal(t, types.Bool{V: true}, types.CastBool(types.Int{V: 1}))
	require.Equal(t, types.Bool{V: false}, types.CastBool(types.Int{V: 0}))
	require.Equal(t, types.Bool{V: false}, types.CastBool(types.String{V: ""}))
	require.True(t, types.CastBool(types.Int{Null: true}).IsNull())
	require.True(t, types.CastBool(types.Decimal{V: decimal.NewFromInt(1)}).IsNull())
}

func TestCastIntFromString(t *testing.T) {
	got := types.CastInt(types.String{V: "42"})
	require.Equal(t, types.Int{V: 42}, got)

	require.True(t, types.CastInt(types.String{V: "nope"}).IsNull())
	require.Equal(t, types.Int{V: 1}, types.CastInt(types.Bool{V: true}))
}

func TestCastDecimalPromotesObject(t *testing.T) {
	got := types.CastDecimal(types.Object{V: int64(7)})
	require.False(t, got.IsNull())
	require.True(t, got.(types.Decimal).V.Equal(decimal.NewFromInt(7)))

	require.True(t, types.CastDecimal(types.Object{V: "not a number"}).IsNull())
}

func TestCastStrFormatsDate(t *testing.T) {
	d := types.Date{V: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)}
	got := types.CastStr(d)
	require.Equal(t, types.String{V: "2024-01-31"}, got)
}

func TestCastDateParsesISO(t *testing.T) {
	got := types.CastDate(types.String{V: "2024-01-31"})
	require.False(t, got.IsNull())
	require.Equal(t, 2024, got.(types.Date).V.Year())

	require.True(t, types.CastDate(types.String{V: "01/31/2024"}).IsNull())
}

func TestDateFromYMD(t *testing.T) {
	got := types.DateFromYMD(2024, 1, 31)
	d, ok := got.(types.Date)
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), d.V)

	require.True(t, types.DateFromYMD(0, 0, 0).IsNull())
}
