package rowsnap

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Meta is the resolved, read-only metadata of a model.
type Meta struct {
	Schema    string
	Table     string
	Key       string
	Columns   []string // declaration order
	Predicate string   // optional extra predicate, joined to the key with AND
}

// MetaOf resolves the metadata of m. An empty TableName falls back to the
// pluralized snake_case name of the model's type. A model must be located by
// a key column, an extra predicate, or both, so that no statement can match
// the whole table.
func MetaOf(m Model) (Meta, error) {
	table, err := resolveTableName(m)
	if err != nil {
		return Meta{}, err
	}
	meta := Meta{
		Schema:  strings.TrimSpace(m.SchemaName()),
		Table:   table,
		Key:     strings.TrimSpace(m.KeyColumn()),
		Columns: append([]string(nil), m.ColumnNames()...),
	}
	if p, ok := m.(Predicated); ok {
		meta.Predicate = trimLeadingAnd(p.ExtraPredicate())
	}
	if len(meta.Columns) == 0 {
		return Meta{}, fmt.Errorf("rowsnap: %s declares no columns", meta.Table)
	}
	if meta.Key == "" && meta.Predicate == "" {
		return Meta{}, fmt.Errorf("%w: %s has neither a key column nor a predicate", ErrMalformedPredicate, meta.Table)
	}
	return meta, nil
}

func trimLeadingAnd(p string) string {
	p = strings.TrimSpace(p)
	if len(p) > 4 && strings.EqualFold(p[:4], "and ") {
		p = strings.TrimSpace(p[4:])
	}
	return p
}

// TableNamer provides a custom table name for a model.
type TableNamer interface {
	TableName() string
}

// TableNameOf derives a table name for target: a non-empty TableName() wins,
// otherwise the type name is converted to plural snake_case (Account -> accounts).
func TableNameOf(target any) (string, error) {
	return resolveTableName(target)
}

func resolveTableName(target any) (string, error) {
	switch v := target.(type) {
	case nil:
		return "", errors.New("rowsnap: nil table target")
	case string:
		name := strings.TrimSpace(v)
		if name == "" {
			return "", errors.New("rowsnap: empty table name")
		}
		return name, nil
	}

	if namer, ok := target.(TableNamer); ok {
		if name := strings.TrimSpace(namer.TableName()); name != "" {
			return name, nil
		}
	}

	typ := reflect.TypeOf(target)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return "", fmt.Errorf("rowsnap: unsupported table target %T", target)
	}
	if typ.Name() == "" {
		return "", fmt.Errorf("rowsnap: cannot derive table name for anonymous struct of type %v", typ)
	}
	return inflection.Plural(toSnakeCase(typ.Name())), nil
}

func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
