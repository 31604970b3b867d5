// Package sources implements the attach drivers a Connection dispatches
// a FROM-URI to (spec §6 "External interfaces", SPEC_FULL.md §6).
//
// Grounded on the teacher's enginetest/memory_harness.go database
// provider pattern: a small named set of concrete implementations
// registered ahead of time, looked up by a string key (there, a
// database name; here, a URI scheme) rather than reflection or plugin
// loading.
package sources

import (
	"net/url"

	"github.com/bqlquery/bql/table"
)

// Driver attaches a data source named by a URI into a table.Table a
// Connection can register under `#name` (spec §4.F "Attach").
type Driver interface {
	// Scheme is the URI scheme this driver answers to (e.g. "csv").
	Scheme() string
	// Attach opens uri and returns the table it exposes, plus the name
	// the table should be registered under absent an explicit `name`
	// query parameter.
	Attach(uri *url.URL) (table.Table, string, error)
}

// Builtins returns the driver set every Connection registers by
// default (spec §6: memory, csv, test, ledger).
func Builtins() []Driver {
	return []Driver{
		&MemoryDriver{},
		&CSVDriver{},
		&TestDriver{},
		&LedgerDriver{},
	}
}

func nameFromQuery(uri *url.URL, fallback string) string {
	if n := uri.Query().Get("name"); n != "" {
		return n
	}
	return fallback
}
