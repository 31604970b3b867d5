// Package conn implements the Connection/Cursor surface spec §4.F
// names, grounded directly on the teacher's driver package (Conn, Stmt,
// Rows, value conversion in value.go — copied into this module's root
// then rewritten for in-process use, since there is no MySQL wire
// protocol to serve here: a Connection holds its catalog and registries
// directly rather than dialing a network connector).
package conn

import (
	"net/url"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bqlquery/bql/compiler"
	"github.com/bqlquery/bql/errs"
	"github.com/bqlquery/bql/function"
	"github.com/bqlquery/bql/sources"
	"github.com/bqlquery/bql/table"
)

// Connection is the catalog a statement compiles and executes against:
// a function/operator registry, a set of attached tables reachable via
// `#name`, and the implicit default FROM table (spec §9 "module-level
// registries": constructed fresh per Connection, never package globals).
type Connection struct {
	ID uuid.UUID

	Functions *function.Registry
	Tables    map[string]table.Table
	Default   table.Table

	// ImplicitGroupBy resolves spec §9's open question: a bare
	// aggregate SELECT with no GROUP BY groups by every non-aggregate
	// target. Default true.
	ImplicitGroupBy bool

	drivers map[string]sources.Driver
	log     *logrus.Logger
}

// Option configures a Connection at construction time.
type Option func(*Connection)

// WithLogger overrides the default logrus logger (e.g. to redirect
// output or raise the level in a caller's own test suite).
func WithLogger(l *logrus.Logger) Option {
	return func(c *Connection) { c.log = l }
}

// WithDefault sets the implicit FROM table used when a FROM clause names
// no #table or subselect, e.g. a bare filter expression (spec §4.C). A
// statement with no FROM clause at all reads table.NullTable instead.
func WithDefault(t table.Table) Option {
	return func(c *Connection) { c.Default = t }
}

// New returns a Connection with a fresh function/operator registry and
// the builtin attach drivers (memory, csv, test, ledger) registered.
func New(opts ...Option) *Connection {
	c := &Connection{
		ID:              uuid.New(),
		Functions:       function.NewRegistry(),
		Tables:          map[string]table.Table{},
		ImplicitGroupBy: true,
		drivers:         map[string]sources.Driver{},
		log:             logrus.New(),
	}
	for _, d := range sources.Builtins() {
		c.drivers[d.Scheme()] = d
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach opens dsn through the driver matching its URI scheme and
// registers the resulting table under `#name` (spec §4.F "Attach"),
// where name is the `name` query parameter if given, else the driver's
// own default. The first successful Attach also becomes the implicit
// default table unless WithDefault already set one.
func (c *Connection) Attach(dsn string) error {
	u, err := url.Parse(dsn)
	if err != nil {
		return errs.NewInterface("invalid attach URI %q: %s", dsn, err)
	}
	d, ok := c.drivers[u.Scheme]
	if !ok {
		return errs.NewInterface("no driver registered for scheme %q", u.Scheme)
	}
	tbl, name, err := d.Attach(u)
	if err != nil {
		c.log.WithField("scheme", u.Scheme).Warnf("attach failed: %s", err)
		return err
	}
	if n := u.Query().Get("name"); n != "" {
		name = n
	}
	c.Tables[name] = tbl
	if c.Default == nil {
		c.Default = tbl
	}
	c.log.WithFields(logrus.Fields{"scheme": u.Scheme, "name": name}).Debug("attached source")
	return nil
}

// RegisterDriver adds or overrides the driver answering a URI scheme,
// letting an embedding caller plug in its own source type.
func (c *Connection) RegisterDriver(d sources.Driver) {
	c.drivers[d.Scheme()] = d
}

// newCompiler returns a compiler bound to this Connection's current
// catalog; called fresh for every Cursor.Execute since attaching a
// table between statements must be visible to the next one.
func (c *Connection) newCompiler() *compiler.Compiler {
	cc := compiler.New(c.Functions)
	for name, t := range c.Tables {
		cc.Tables[name] = t
	}
	cc.Default = c.Default
	cc.ImplicitGroupBy = c.ImplicitGroupBy
	return cc
}
