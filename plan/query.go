package plan

import (
	"github.com/bqlquery/bql/table"
	"github.com/bqlquery/bql/types"
)

// Target is one compiled SELECT/BALANCES output column.
type Target struct {
	Node  Node
	Name  string
	Dtype types.Datatype
}

// OrderKey is one compiled ORDER BY term.
type OrderKey struct {
	Node Node
	Desc bool
}

// Pivot is a compiled PIVOT BY clause (spec §4.F): KeyIndex is the
// target whose values key the output rows, one row per distinct value;
// OtherIndex is the target whose sorted distinct values become new result
// columns, named "<value>" when one other target remains and
// "<value>/<target name>" when several do.
type Pivot struct {
	KeyIndex   int
	OtherIndex int
}

// Query is the fully compiled, ready-to-run form of a SELECT or
// BALANCES statement (spec §3 "Compiled query plan").
type Query struct {
	Targets     []Target
	From        table.Table
	Where       Node
	Distinct    bool
	GroupBy     []Node
	Having      Node
	OrderBy     []OrderKey
	Pivot       *Pivot
	Limit       *int
	Aggregate   bool // true with a GROUP BY, or when any target/having/order references an aggregator
	Aggregators []Aggregator
	Alloc       *Allocator
}
