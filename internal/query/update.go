package query

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/mickamy/rowsnap/internal/ident"
)

var (
	ErrNotUpdate   = errors.New("not an UPDATE statement")
	ErrNotEquality = errors.New("predicate is not a column equality")
	ErrArgCount    = errors.New("placeholder count does not match bound values")
)

// Assignment is a `column = expr` pair exactly as written in the statement.
type Assignment struct {
	Column string
	Expr   string
}

// Name returns the unquoted column name.
func (a Assignment) Name() string {
	return ident.Unquote(a.Column)
}

// Update is the column/value structure of a single-table UPDATE.
type Update struct {
	Table string
	Set   []Assignment
	Where []Assignment // empty when the statement has no WHERE clause
}

var reUpdateHead = regexp.MustCompile(`(?is)^\s*update\s+(` + tableTok + `)(?:\s+(?:as\s+)?` + tableTok + `)?\s+set\s+(.*)$`)

// ParseUpdate splits an UPDATE into its SET assignments and WHERE equalities.
func ParseUpdate(q string) (Update, error) {
	q = strings.TrimRight(strings.TrimSpace(q), ";")
	m := reUpdateHead.FindStringSubmatch(q)
	if len(m) != 3 {
		return Update{}, ErrNotUpdate
	}
	rest := m[2]
	if i := indexKeyword(rest, "returning"); i >= 0 {
		rest = rest[:i]
	}

	setPart, wherePart := rest, ""
	if i := indexKeyword(rest, "where"); i >= 0 {
		setPart, wherePart = rest[:i], rest[i+len("where"):]
	}

	u := Update{Table: m[1]}
	for _, s := range splitTopLevel(setPart, func(s string, i int) int {
		if s[i] == ',' {
			return 1
		}
		return 0
	}) {
		a, err := parseAssignment(s)
		if err != nil {
			return Update{}, fmt.Errorf("SET %q: %w", s, err)
		}
		u.Set = append(u.Set, a)
	}
	if len(u.Set) == 0 {
		return Update{}, fmt.Errorf("%w: empty SET clause", ErrNotUpdate)
	}

	if strings.TrimSpace(wherePart) != "" {
		where, err := ParsePredicate(wherePart)
		if err != nil {
			return Update{}, err
		}
		u.Where = where
	}
	return u, nil
}

// ParsePredicate splits an AND-joined predicate into column equalities.
func ParsePredicate(p string) ([]Assignment, error) {
	var out []Assignment
	for _, s := range splitTopLevel(p, func(s string, i int) int {
		if matchKeyword(s, i, "and") {
			return len("and")
		}
		return 0
	}) {
		a, err := parseAssignment(s)
		if err != nil {
			return nil, fmt.Errorf("WHERE %q: %w", s, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func parseAssignment(s string) (Assignment, error) {
	i := indexTopLevel(s, '=')
	if i <= 0 {
		return Assignment{}, ErrNotEquality
	}
	// reject <=, >=, !=, <>=
	if strings.ContainsAny(s[i-1:i], "<>!") {
		return Assignment{}, ErrNotEquality
	}
	col := strings.TrimSpace(s[:i])
	expr := strings.TrimSpace(s[i+1:])
	if col == "" || expr == "" || len(ident.SplitQualified(col)) == 0 {
		return Assignment{}, ErrNotEquality
	}
	return Assignment{Column: col, Expr: expr}, nil
}

// splitTopLevel splits s wherever sep reports a separator of non-zero width
// outside quotes and parentheses. Empty pieces are dropped.
func splitTopLevel(s string, sep func(s string, i int) int) []string {
	var out []string
	start, depth := 0, 0
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		if quote != 0 {
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
			continue
		case '(':
			depth++
			continue
		case ')':
			depth--
			continue
		}
		if depth > 0 {
			continue
		}
		if w := sep(s, i); w > 0 {
			out = appendTrimmed(out, s[start:i])
			start = i + w
			i += w - 1
		}
	}
	return appendTrimmed(out, s[start:])
}

func appendTrimmed(out []string, s string) []string {
	if s = strings.TrimSpace(s); s != "" {
		out = append(out, s)
	}
	return out
}

func indexTopLevel(s string, target byte) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == target:
			return i
		}
	}
	return -1
}

// indexKeyword finds kw as a whole word outside quotes, case-insensitively.
func indexKeyword(s, kw string) int {
	var quote byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case matchKeyword(s, i, kw):
			return i
		}
	}
	return -1
}

func matchKeyword(s string, i int, kw string) bool {
	if i+len(kw) > len(s) || !strings.EqualFold(s[i:i+len(kw)], kw) {
		return false
	}
	if i > 0 && isWordByte(s[i-1]) {
		return false
	}
	if j := i + len(kw); j < len(s) && isWordByte(s[j]) {
		return false
	}
	return true
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c < 0x80 && (unicode.IsLetter(rune(c)) || unicode.IsDigit(rune(c)))
}
