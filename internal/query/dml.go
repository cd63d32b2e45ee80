package query

import (
	"regexp"
	"strings"

	"github.com/mickamy/rowsnap/internal/ident"
)

// DML describes a recognized data-changing statement.
type DML struct {
	Op           string // INSERT, UPDATE, DELETE
	Table        string // possibly schema-qualified
	HasReturning bool
}

// tableTok matches a possibly qualified, possibly quoted table reference.
const tableTok = "(?:`[^`]*`|\"[^\"]*\"|[^\\s(`\"])+"

var (
	reInsert    = regexp.MustCompile(`(?is)^\s*(?:with\b.*?\)\s*)?insert\s+into\s+(` + tableTok + `)`)
	reUpdate    = regexp.MustCompile(`(?is)^\s*(?:with\b.*?\)\s*)?update\s+(` + tableTok + `)(?:\s+(?:as\s+)?` + tableTok + `)?\s+set\b`)
	reDelete    = regexp.MustCompile(`(?is)^\s*(?:with\b.*?\)\s*)?delete\s+from\s+(` + tableTok + `)`)
	reReturning = regexp.MustCompile(`(?is)\breturning\b`)
)

// ParseDML attempts to recognize a single top-level DML and return its metadata.
func ParseDML(q string) (DML, bool) {
	qs := strings.TrimSpace(q)
	if m := reInsert.FindStringSubmatch(qs); len(m) == 2 {
		return DML{Op: "INSERT", Table: m[1], HasReturning: reReturning.MatchString(qs)}, true
	}
	if m := reUpdate.FindStringSubmatch(qs); len(m) == 2 {
		return DML{Op: "UPDATE", Table: m[1], HasReturning: reReturning.MatchString(qs)}, true
	}
	if m := reDelete.FindStringSubmatch(qs); len(m) == 2 {
		return DML{Op: "DELETE", Table: m[1], HasReturning: reReturning.MatchString(qs)}, true
	}
	return DML{}, false
}

// BaseTable returns the unqualified, unquoted table name of the statement.
func (d DML) BaseTable() string {
	return ident.BaseTableName(d.Table)
}
