package sources

import (
	"net/url"

	"github.com/bqlquery/bql/table"
	"github.com/bqlquery/bql/types"
)

// NewTestTable builds the fixed `#test` fixture: sixteen rows with a
// single integer column `value` running 0..15, grounded on
// original_source/beanquery/sources/test.py's synthetic integers table
// used throughout that project's own query tests. This module's
// executor and compiler tests attach it the same way.
func NewTestTable() *Table {
	t := NewTable("test", []Column{{Name: "value", Dtype: types.IntType}})
	for i := int64(0); i < 16; i++ {
		t.AddRow(types.Int{V: i})
	}
	return t
}

// TestDriver answers the `test:` scheme with the fixed #test fixture
// (spec §6); the URI carries no parameters.
type TestDriver struct{}

func (*TestDriver) Scheme() string { return "test" }

func (*TestDriver) Attach(uri *url.URL) (table.Table, string, error) {
	return NewTestTable(), "test", nil
}
