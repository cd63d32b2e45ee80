package rowsnap

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/mickamy/rowsnap/internal/ident"
)

// Dialect renders identifiers, placeholders and key literals for one SQL flavour.
type Dialect interface {
	Name() string
	QuoteIdent(name string) string
	Qualify(schema, table string) string
	Placeholder(n int) string // n is 1-based
	KeyLiteral(v any) string
}

var (
	// MySQL renders `backtick` identifiers, ? placeholders and "double quoted" string keys.
	// It is also understood by SQLite and MariaDB.
	MySQL Dialect = mysqlDialect{}
	// Postgres renders "double quoted" identifiers, $n placeholders and 'single quoted' string keys.
	Postgres Dialect = postgresDialect{}
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) QuoteIdent(name string) string { return ident.Quote(name, ident.Backtick) }

func (mysqlDialect) Qualify(schema, table string) string {
	return ident.Qualified(ident.Backtick, schema, table)
}

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) KeyLiteral(v any) string { return keyLiteral(v, '"') }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) QuoteIdent(name string) string { return ident.Quote(name, ident.DoubleQuote) }

func (postgresDialect) Qualify(schema, table string) string {
	return ident.Qualified(ident.DoubleQuote, schema, table)
}

func (postgresDialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (postgresDialect) KeyLiteral(v any) string { return keyLiteral(v, '\'') }

// keyLiteral quotes string keys with q and renders every other scalar as is.
func keyLiteral(v any, q byte) string {
	var s string
	switch k := v.(type) {
	case string:
		s = k
	case []byte:
		s = string(k)
	default:
		rv := reflect.ValueOf(v)
		if !rv.IsValid() || rv.Kind() != reflect.String {
			return fmt.Sprint(v)
		}
		s = rv.String()
	}
	quote := string(q)
	return quote + strings.ReplaceAll(s, quote, quote+quote) + quote
}

// DialectFor returns the dialect matching a database/sql driver name.
func DialectFor(driverName string) Dialect {
	switch driverName {
	case "pgx", "postgres", "postgresql":
		return Postgres
	default:
		return MySQL
	}
}
