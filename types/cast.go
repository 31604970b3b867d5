package types

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are the accepted ISO-8601 date string forms for the `date`
// cast (spec §4.A).
var dateLayouts = []string{"2006-01-02"}

// CastBool implements the `bool` cast.
func CastBool(v Value) Value {
	if v == nil || v.IsNull() {
		return Bool{Null: true}
	}
	switch t := v.(type) {
	case Bool:
		return t
	case Int:
		return Bool{V: t.V != 0}
	case String:
		return Bool{V: t.V != ""}
	default:
		return Bool{Null: true}
	}
}

// CastInt implements the `int` cast.
func CastInt(v Value) Value {
	if v == nil || v.IsNull() {
		return Int{Null: true}
	}
	switch t := v.(type) {
	case Int:
		return t
	case Decimal:
		return Int{V: t.V.IntPart()}
	case Bool:
		if t.V {
			return Int{V: 1}
		}
		return Int{V: 0}
	case String:
		n, err := strconv.ParseInt(t.V, 10, 64)
		if err != nil {
			return Int{Null: true}
		}
		return Int{V: n}
	default:
		return Int{Null: true}
	}
}

// CastDecimal implements the `decimal` cast. Integer operands promote
// cleanly; object operands that hold a numeric Go value also promote
// (spec §4.A: "untyped object operands are promoted to the other side's
// type").
func CastDecimal(v Value) Value {
	if v == nil || v.IsNull() {
		return Decimal{Null: true}
	}
	switch t := v.(type) {
	case Decimal:
		return t
	case Int:
		return Decimal{V: decimal.NewFromInt(t.V)}
	case String:
		d, err := decimal.NewFromString(t.V)
		if err != nil {
			return Decimal{Null: true}
		}
		return Decimal{V: d}
	case Object:
		switch n := t.V.(type) {
		case int64:
			return Decimal{V: decimal.NewFromInt(n)}
		case int:
			return Decimal{V: decimal.NewFromInt(int64(n))}
		case float64:
			return Decimal{V: decimal.NewFromFloat(n)}
		}
		return Decimal{Null: true}
	default:
		return Decimal{Null: true}
	}
}

// CastStr implements the `str` cast.
func CastStr(v Value) Value {
	if v == nil || v.IsNull() {
		return String{Null: true}
	}
	switch t := v.(type) {
	case String:
		return t
	case Int:
		return String{V: strconv.FormatInt(t.V, 10)}
	case Decimal:
		return String{V: t.V.String()}
	case Bool:
		return String{V: strconv.FormatBool(t.V)}
	case Date:
		return String{V: t.V.Format("2006-01-02")}
	case Object:
		if s, ok := t.V.(string); ok {
			return String{V: s}
		}
		return String{Null: true}
	default:
		return String{Null: true}
	}
}

// CastDate implements the one-argument `date` cast, from an ISO-8601
// string; the (y, m, d) form is DateFromYMD. Failures yield NULL rather
// than an error, per spec §4.A.
func CastDate(v Value) Value {
	if v == nil || v.IsNull() {
		return Date{Null: true}
	}
	if s, ok := v.(String); ok {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s.V); err == nil {
				return Date{V: t}
			}
		}
		return Date{Null: true}
	}
	return Date{Null: true}
}

// DateFromYMD builds a Date from a (y, m, d) triple, used by the `date`
// cast's 3-argument overload.
func DateFromYMD(y, m, d int64) Value {
	if y == 0 && m == 0 && d == 0 {
		return Date{Null: true}
	}
	return Date{V: time.Date(int(y), time.Month(m), int(d), 0, 0, 0, 0, time.UTC)}
}
