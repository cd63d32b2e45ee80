package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrNotLiteral = errors.New("expression is neither a placeholder nor a literal")

// diagnosticMarker precedes the bound-parameter dump some drivers append
// when a prepared statement is rendered as text.
const diagnosticMarker = "', parameters"

// Canonical isolates the UPDATE text from a driver-rendered statement.
func Canonical(q string) string {
	if i := strings.Index(q, diagnosticMarker); i >= 0 {
		q = q[:i]
		if j := strings.Index(strings.ToUpper(q), "UPDATE "); j > 0 {
			q = q[j:]
		}
	}
	return strings.TrimSpace(q)
}

// Rewrite is an INSERT derived from an UPDATE that matched no rows.
type Rewrite struct {
	SQL     string
	Columns []string
	Args    []any
}

// RewriteUpdate turns an UPDATE into the INSERT that creates the row it
// expected to find. SET columns come first, followed by the WHERE equality
// columns; args are reordered to match, and WHERE literals become args.
func RewriteUpdate(q string, args []any) (Rewrite, error) {
	u, err := ParseUpdate(Canonical(q))
	if err != nil {
		return Rewrite{}, err
	}

	b := newBinder(args)
	var rw Rewrite
	seen := map[string]bool{}
	for _, a := range append(append([]Assignment{}, u.Set...), u.Where...) {
		v, err := b.value(a.Expr)
		if err != nil {
			return Rewrite{}, fmt.Errorf("%s: %w", a.Column, err)
		}
		if seen[a.Name()] {
			continue
		}
		seen[a.Name()] = true
		rw.Columns = append(rw.Columns, a.Column)
		rw.Args = append(rw.Args, v)
	}

	placeholders := make([]string, len(rw.Columns))
	for i := range placeholders {
		if b.numbered {
			placeholders[i] = "$" + strconv.Itoa(i+1)
		} else {
			placeholders[i] = "?"
		}
	}
	rw.SQL = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		u.Table, strings.Join(rw.Columns, ", "), strings.Join(placeholders, ", "))
	return rw, nil
}

// binder resolves placeholders against bound values.
type binder struct {
	args       []any
	sequential int
	numbered   bool
}

func newBinder(args []any) *binder {
	return &binder{args: args}
}

func (b *binder) value(expr string) (any, error) {
	switch {
	case expr == "?":
		i := b.sequential
		b.sequential++
		if i >= len(b.args) {
			return nil, ErrArgCount
		}
		return b.args[i], nil
	case strings.HasPrefix(expr, "$"):
		n, err := strconv.Atoi(expr[1:])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: %q", ErrNotLiteral, expr)
		}
		b.numbered = true
		if n > len(b.args) {
			return nil, ErrArgCount
		}
		return b.args[n-1], nil
	}
	return Literal(expr)
}

// Literal parses a SQL literal into a Go value: quoted strings, integers,
// floats, booleans and NULL.
func Literal(expr string) (any, error) {
	expr = strings.TrimSpace(expr)
	if len(expr) >= 2 {
		if q := expr[0]; (q == '\'' || q == '"') && expr[len(expr)-1] == q {
			s := string(q)
			return strings.ReplaceAll(expr[1:len(expr)-1], s+s, s), nil
		}
	}
	switch strings.ToUpper(expr) {
	case "NULL":
		return nil, nil
	case "TRUE":
		return true, nil
	case "FALSE":
		return false, nil
	}
	if n, err := strconv.ParseInt(expr, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(expr, 64); err == nil {
		return f, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotLiteral, expr)
}
