package sources

import (
	"net/url"

	"github.com/bqlquery/bql/errs"
	"github.com/bqlquery/bql/table"
)

// LedgerDriver answers the `ledger:` scheme. Parsing a Beancount ledger
// file into postings/accounts is out of scope for this engine (spec §1
// Non-goals: no ledger loader), but the attach surface and URI dispatch
// must exist and be reachable, since Connection.Attach itself is in
// scope (SPEC_FULL.md §6).
type LedgerDriver struct{}

func (*LedgerDriver) Scheme() string { return "ledger" }

func (*LedgerDriver) Attach(uri *url.URL) (table.Table, string, error) {
	return nil, "", errs.NewInterface("ledger: source not implemented in this core (%s)", uri.String())
}
