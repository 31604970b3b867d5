// Package types defines the BQL value domain (spec §3): scalar types
// bool, int, decimal, date, string, object, plus container types list,
// set, and mapping, each representable as NULL.
//
// Grounded on the teacher's sql/types package (observed only through its
// test suite: types.Int64, types.LongText, types.MustCreateDecimalType,
// ...), adapted from the teacher's "declared column type + untyped Go
// value" split into a single closed Value interface, because BQL values
// flow through ad hoc FROM/subquery columns whose type is discovered at
// compile time rather than read off a fixed catalog schema (see
// SPEC_FULL.md §3).
package types

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Datatype names a BQL value's type.
type Datatype int

const (
	Any Datatype = iota // matches every type during overload resolution
	BoolType
	IntType
	DecimalType
	DateType
	StringType
	ObjectType
	ListType
	SetType
	MappingType
	StructType // opaque structured/record type; see Structured
)

func (d Datatype) String() string {
	switch d {
	case Any:
		return "any"
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case DecimalType:
		return "decimal"
	case DateType:
		return "date"
	case StringType:
		return "string"
	case ObjectType:
		return "object"
	case ListType:
		return "list"
	case SetType:
		return "set"
	case MappingType:
		return "mapping"
	case StructType:
		return "struct"
	}
	return "unknown"
}

// Value is a BQL runtime value. Every concrete implementation carries a
// Null flag so a value's type is always recoverable even when null.
type Value interface {
	Type() Datatype
	IsNull() bool
	// Interface returns the underlying Go value (nil if IsNull), for
	// handoff to the cursor/renderer boundary.
	Interface() interface{}
}

// Null returns the null value of the given datatype.
func Null(dt Datatype) Value {
	switch dt {
	case BoolType:
		return Bool{Null: true}
	case IntType:
		return Int{Null: true}
	case DecimalType:
		return Decimal{Null: true}
	case DateType:
		return Date{Null: true}
	case StringType:
		return String{Null: true}
	case ListType:
		return List{Null: true}
	case SetType:
		return Set{Null: true}
	case MappingType:
		return Mapping{Null: true}
	default:
		return Object{Null: true}
	}
}

// Bool is the boolean scalar type.
type Bool struct {
	V    bool
	Null bool
}

func (b Bool) Type() Datatype { return BoolType }
func (b Bool) IsNull() bool   { return b.Null }
func (b Bool) Interface() interface{} {
	if b.Null {
		return nil
	}
	return b.V
}

// Int is the 64-bit integer scalar type.
type Int struct {
	V    int64
	Null bool
}

func (i Int) Type() Datatype { return IntType }
func (i Int) IsNull() bool   { return i.Null }
func (i Int) Interface() interface{} {
	if i.Null {
		return nil
	}
	return i.V
}

// Decimal is the arbitrary-precision decimal scalar type, backed by
// shopspring/decimal exactly as the teacher's DECIMAL column type is.
type Decimal struct {
	V    decimal.Decimal
	Null bool
}

func (d Decimal) Type() Datatype { return DecimalType }
func (d Decimal) IsNull() bool   { return d.Null }
func (d Decimal) Interface() interface{} {
	if d.Null {
		return nil
	}
	return d.V
}

// Date is a calendar date (no time-of-day component).
type Date struct {
	V    time.Time
	Null bool
}

func (d Date) Type() Datatype { return DateType }
func (d Date) IsNull() bool   { return d.Null }
func (d Date) Interface() interface{} {
	if d.Null {
		return nil
	}
	return d.V
}

// String is the text scalar type.
type String struct {
	V    string
	Null bool
}

func (s String) Type() Datatype { return StringType }
func (s String) IsNull() bool   { return s.Null }
func (s String) Interface() interface{} {
	if s.Null {
		return nil
	}
	return s.V
}

// Object is an opaque untyped value (e.g. a raw metadata value) whose
// concrete Go type is not otherwise representable.
type Object struct {
	V    interface{}
	Null bool
}

func (o Object) Type() Datatype { return ObjectType }
func (o Object) IsNull() bool   { return o.Null || o.V == nil }
func (o Object) Interface() interface{} {
	return o.V
}

// List is an ordered, homogeneous-or-not sequence of values.
type List struct {
	V    []Value
	Null bool
}

func (l List) Type() Datatype { return ListType }
func (l List) IsNull() bool   { return l.Null }
func (l List) Interface() interface{} {
	if l.Null {
		return nil
	}
	out := make([]interface{}, len(l.V))
	for i, v := range l.V {
		out[i] = v.Interface()
	}
	return out
}

// Set is an unordered collection of values, deduplicated by Reduce.
type Set struct {
	V    []Value
	Null bool
}

func (s Set) Type() Datatype { return SetType }
func (s Set) IsNull() bool   { return s.Null }
func (s Set) Interface() interface{} {
	if s.Null {
		return nil
	}
	out := make([]interface{}, len(s.V))
	for i, v := range s.V {
		out[i] = v.Interface()
	}
	return out
}

// Mapping is a string-keyed dictionary of values.
type Mapping struct {
	V    map[string]Value
	Null bool
}

func (m Mapping) Type() Datatype { return MappingType }
func (m Mapping) IsNull() bool   { return m.Null }
func (m Mapping) Interface() interface{} {
	if m.Null {
		return nil
	}
	out := make(map[string]interface{}, len(m.V))
	for k, v := range m.V {
		out[k] = v.Interface()
	}
	return out
}

// Field describes one named sub-field of a structured type (spec §3
// "Structured types"): a getter from the record value to a Value of the
// declared Datatype.
type Field struct {
	Name string
	Type Datatype
	Get  func(record interface{}) Value
	// Nested describes this field's own sub-fields when Type is
	// StructType, letting attribute access chain (x.field.subfield);
	// nil for fields whose Type is not StructType.
	Nested *Structured
}

// Structured is a record type such as a posting-cost record, declared as
// a mapping field-name -> (datatype, getter). Attribute access (x.field)
// is legal only on values whose static type is Structured.
type Structured struct {
	Name   string
	Fields []Field
}

func (s *Structured) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Record wraps a raw record value together with the Structured type
// that describes it, so attribute access can look up fields and object
// equality/hashing can fall back to the reducer (spec §8, hashable group
// keys).
type Record struct {
	Struct *Structured
	V      interface{}
	Null   bool
}

func (r Record) Type() Datatype { return StructType }
func (r Record) IsNull() bool   { return r.Null }
func (r Record) Interface() interface{} {
	if r.Null {
		return nil
	}
	return r.V
}

// Reduce produces a hashable, comparable representation of v, used by
// the executor to build GROUP BY keys (spec §4.E, §9 "Hashable group
// keys"). Scalars reduce to themselves; containers reduce to a
// deterministic string serialization. There is no per-type reducer
// registration.
func Reduce(v Value) interface{} {
	if v == nil || v.IsNull() {
		return nil
	}
	switch t := v.(type) {
	case Bool, Int, Decimal, Date, String:
		return v.Interface()
	case Object:
		return fmt.Sprintf("%v", t.V)
	case List:
		parts := make([]string, len(t.V))
		for i, e := range t.V {
			parts[i] = fmt.Sprint(Reduce(e))
		}
		return "[" + strings.Join(parts, ",") + "]"
	case Set:
		parts := make([]string, len(t.V))
		for i, e := range t.V {
			parts[i] = fmt.Sprint(Reduce(e))
		}
		sort.Strings(parts)
		return "{" + strings.Join(parts, ",") + "}"
	case Mapping:
		keys := make([]string, 0, len(t.V))
		for k := range t.V {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + fmt.Sprint(Reduce(t.V[k]))
		}
		return "{" + strings.Join(parts, ",") + "}"
	case Record:
		return fmt.Sprintf("%s:%v", t.Struct.Name, t.V)
	}
	return fmt.Sprintf("%v", v.Interface())
}

// Hashable reports whether dt may appear in a GROUP BY key directly
// (spec invariant vii). All of this engine's datatypes are hashable via
// Reduce, so this always returns true; it exists as a named hook for
// callers (and a future type) that might register a type that refuses
// grouping, per spec §9.
func Hashable(dt Datatype) bool {
	return true
}
