// Package table defines the row-source contract the compiler and
// executor consume (spec §3 "Table", §4.C).
//
// Grounded on the teacher's core sql.Table/sql.Schema/sql.Column
// contract (observed through sql/*_test.go and enginetest's database
// harnesses), narrowed to this engine's read-only, no-partition,
// no-index needs: a table names its columns, exposes a wildcard column
// order for SELECT *, and iterates opaque row contexts.
package table

import (
	"io"
	"time"

	"github.com/bqlquery/bql/types"
)

// Row is the opaque row context a table iterator yields (spec
// GLOSSARY: "Row context"). Column accessors are the only thing
// permitted to interpret it.
type Row interface{}

// ColumnAccessor is a pure function from a row context to a value of a
// declared datatype (spec §3). Equality between two accessors is
// identity, which Go's == already gives pointers to this type; plan
// nodes compare accessors by pointer.
type ColumnAccessor struct {
	Name  string
	Dtype types.Datatype
	Get   func(row Row) types.Value
	// Struct describes this column's fields when Dtype is StructType,
	// enabling `column.field` attribute access; nil otherwise.
	Struct *types.Structured
}

// RowIter iterates the row contexts of a Table. Next returns io.EOF when
// exhausted, matching the convention this module's executor and cursor
// also use (grounded on the teacher's driver.Rows.Next / sql.RowIter
// contract).
type RowIter interface {
	Next() (Row, error)
	Close() error
}

// Table is any row source pluggable into the compiler's catalog (spec
// §3, §4.C).
type Table interface {
	Name() string
	Columns() map[string]*ColumnAccessor
	WildcardColumns() []string
	// Update returns a view restricted to the given date window. Tables
	// that don't support lifecycle restriction may return themselves.
	Update(open, close *time.Time, clear bool) Table
	Iterate() (RowIter, error)
}

// sliceIter adapts a pre-materialized slice of rows to RowIter; used by
// NullTable and by sources that build their rows eagerly.
type sliceIter struct {
	rows []Row
	pos  int
}

// NewSliceIter returns a RowIter over an in-memory slice of rows.
func NewSliceIter(rows []Row) RowIter {
	return &sliceIter{rows: rows}
}

func (s *sliceIter) Next() (Row, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	r := s.rows[s.pos]
	s.pos++
	return r, nil
}

func (s *sliceIter) Close() error { return nil }

// NullTable yields a single NULL row and is the default FROM when none
// is given (spec §4.C); it makes `SELECT 1 + 1` legal.
type NullTable struct{}

func (NullTable) Name() string                       { return "" }
func (NullTable) Columns() map[string]*ColumnAccessor { return nil }
func (NullTable) WildcardColumns() []string           { return nil }
func (t NullTable) Update(open, close *time.Time, clear bool) Table { return t }
func (NullTable) Iterate() (RowIter, error) {
	return NewSliceIter([]Row{struct{}{}}), nil
}
