package rowsnap

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mickamy/rowsnap/internal/query"
)

// Op is the kind of a synthesized statement.
type Op string

const (
	OpSelect Op = "SELECT"
	OpInsert Op = "INSERT"
	OpUpdate Op = "UPDATE"
	OpDelete Op = "DELETE"
)

// Statement is SQL text plus its positional values.
type Statement struct {
	Op    Op
	Table string
	SQL   string
	Args  []any
	// Fallback is the INSERT to run when an UPDATE matches no rows.
	Fallback *Statement
}

// Change is a column and the value it is (or will be) persisted with.
type Change struct {
	Column string
	Value  any
}

var reComparison = regexp.MustCompile(`(?i)=|\blike\b`)

// SelectStatement builds the load query for the row located by key. It fails
// with ErrMalformedPredicate when the WHERE clause has no = or LIKE.
func SelectStatement(meta Meta, d Dialect, key any) (Statement, error) {
	where := location(meta, d, key)
	if !reComparison.MatchString(where) {
		return Statement{}, fmt.Errorf("%w: %q", ErrMalformedPredicate, where)
	}
	table := d.Qualify(meta.Schema, meta.Table)
	return Statement{
		Op:    OpSelect,
		Table: table,
		SQL:   fmt.Sprintf("SELECT %s FROM %s WHERE %s", columnList(meta.Columns, d), table, where),
	}, nil
}

// InsertStatement builds an INSERT over every declared column. values must
// be in column order.
func InsertStatement(meta Meta, d Dialect, values []any) Statement {
	table := d.Qualify(meta.Schema, meta.Table)
	return Statement{
		Op:    OpInsert,
		Table: table,
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, columnList(meta.Columns, d), placeholders(d, len(meta.Columns))),
		Args: values,
	}
}

// UpdateStatement builds an UPDATE setting only changes. An UPDATE without a
// SET clause is invalid, so an empty change list yields the INSERT over row.
// The result carries the INSERT to fall back to when no row matches, unless
// the extra predicate is not a plain AND of equalities.
func UpdateStatement(meta Meta, d Dialect, key any, changes []Change, row []any) Statement {
	if len(changes) == 0 {
		return InsertStatement(meta, d, row)
	}
	table := d.Qualify(meta.Schema, meta.Table)
	sets := make([]string, len(changes))
	args := make([]any, len(changes))
	for i, c := range changes {
		sets[i] = fmt.Sprintf("%s = %s", d.QuoteIdent(c.Column), d.Placeholder(i+1))
		args[i] = c.Value
	}
	q := fmt.Sprintf("UPDATE %s SET %s", table, strings.Join(sets, ", "))
	if where := location(meta, d, key); where != "" {
		q += " WHERE " + where
	}
	st := Statement{Op: OpUpdate, Table: table, SQL: q, Args: args}
	if fb, ok := fallbackInsert(meta, d, key, changes); ok {
		st.Fallback = &fb
	}
	return st
}

// fallbackInsert derives the INSERT for a zero-row UPDATE from the change
// list, the key and the extra predicate's equalities.
func fallbackInsert(meta Meta, d Dialect, key any, changes []Change) (Statement, bool) {
	cols := make([]string, 0, len(changes)+1)
	args := make([]any, 0, len(changes)+1)
	seen := map[string]bool{}
	add := func(col string, v any) {
		if seen[col] {
			return
		}
		seen[col] = true
		cols = append(cols, d.QuoteIdent(col))
		args = append(args, v)
	}
	for _, c := range changes {
		add(c.Column, c.Value)
	}
	if meta.Key != "" {
		add(meta.Key, key)
	}
	if meta.Predicate != "" {
		preds, err := query.ParsePredicate(meta.Predicate)
		if err != nil {
			return Statement{}, false
		}
		for _, p := range preds {
			v, err := query.Literal(p.Expr)
			if err != nil {
				return Statement{}, false
			}
			add(p.Name(), v)
		}
	}
	table := d.Qualify(meta.Schema, meta.Table)
	return Statement{
		Op:    OpInsert,
		Table: table,
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), placeholders(d, len(cols))),
		Args: args,
	}, true
}

// location renders `key` = <literal> [AND <predicate>].
func location(meta Meta, d Dialect, key any) string {
	var parts []string
	if meta.Key != "" {
		parts = append(parts, fmt.Sprintf("%s = %s", d.QuoteIdent(meta.Key), d.KeyLiteral(key)))
	}
	if meta.Predicate != "" {
		parts = append(parts, meta.Predicate)
	}
	return strings.Join(parts, " AND ")
}

func columnList(cols []string, d Dialect) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdent(c)
	}
	return strings.Join(quoted, ", ")
}

func placeholders(d Dialect, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.Placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}
