package sources

import (
	"encoding/csv"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/bqlquery/bql/lexer"
	"github.com/bqlquery/bql/table"
	"github.com/bqlquery/bql/token"
	"github.com/bqlquery/bql/types"
)

// CSVDriver answers the `csv:` scheme (spec §6): `csv:<path>?header=
// true|false&name=<table>`. Columns are named from the header row when
// present (otherwise col1, col2, ...) and typed by sniffing the first
// data row's literal form with this module's own lexer, exactly as the
// lexer already classifies INT/DECIMAL/DATE/STRING literals in BQL
// source text — no CSV-parsing library appears anywhere in the
// retrieved pack, so stdlib encoding/csv is used for tokenizing rows
// (see DESIGN.md).
type CSVDriver struct{}

func (*CSVDriver) Scheme() string { return "csv" }

func (*CSVDriver) Attach(uri *url.URL) (table.Table, string, error) {
	path := uri.Opaque
	if path == "" {
		path = uri.Path
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, "", err
	}
	if len(records) == 0 {
		return NewTable(nameFromQuery(uri, "csv"), nil), nameFromQuery(uri, "csv"), nil
	}

	header := true
	if h := uri.Query().Get("header"); h != "" {
		header, _ = strconv.ParseBool(h)
	}

	var names []string
	data := records
	if header {
		names = records[0]
		data = records[1:]
	} else if len(records) > 0 {
		names = make([]string, len(records[0]))
		for i := range names {
			names[i] = "col" + strconv.Itoa(i+1)
		}
	}

	cols := make([]Column, len(names))
	for i, n := range names {
		dt := types.StringType
		if len(data) > 0 {
			dt = sniffType(data[0][i])
		}
		cols[i] = Column{Name: n, Dtype: dt}
	}

	name := nameFromQuery(uri, strings.TrimSuffix(trimPath(path), ".csv"))
	t := NewTable(name, cols)
	for _, rec := range data {
		vals := make([]types.Value, len(cols))
		for i, c := range cols {
			if i >= len(rec) {
				vals[i] = types.Null(c.Dtype)
				continue
			}
			vals[i] = parseField(rec[i], c.Dtype)
		}
		t.AddRow(vals...)
	}
	return t, name, nil
}

func trimPath(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// sniffType classifies a single CSV field by running it through this
// module's own lexer: a field types as INT/DECIMAL/DATE only when it
// lexes as exactly one token of that kind spanning the whole field.
func sniffType(field string) types.Datatype {
	field = strings.TrimSpace(field)
	if field == "" {
		return types.StringType
	}
	lx := lexer.New(field)
	tok := lx.Next()
	if tok.Pos != 0 || tok.Literal != field {
		return types.StringType
	}
	next := lx.Next()
	if next.Type != token.EOF {
		return types.StringType
	}
	switch tok.Type {
	case token.INT:
		return types.IntType
	case token.DECIMAL:
		return types.DecimalType
	case token.DATE:
		return types.DateType
	case token.TRUE, token.FALSE:
		return types.BoolType
	default:
		return types.StringType
	}
}

func parseField(field string, dt types.Datatype) types.Value {
	trimmed := strings.TrimSpace(field)
	if trimmed == "" {
		return types.Null(dt)
	}
	switch dt {
	case types.IntType:
		n, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return types.Null(dt)
		}
		return types.Int{V: n}
	case types.DecimalType:
		return types.CastDecimal(types.String{V: trimmed})
	case types.DateType:
		return types.CastDate(types.String{V: trimmed})
	case types.BoolType:
		b, err := strconv.ParseBool(trimmed)
		if err != nil {
			return types.Null(dt)
		}
		return types.Bool{V: b}
	default:
		return types.String{V: field}
	}
}
