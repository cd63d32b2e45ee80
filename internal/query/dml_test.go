package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mickamy/rowsnap/internal/query"
)

func TestParseDML(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name string
		sql  string
		want query.DML
		ok   bool
	}{
		{
			name: "synthesized update",
			sql:  "UPDATE shitakis.account SET `nNexonCash` = ? WHERE `dwAccountID` = 1",
			want: query.DML{Op: "UPDATE", Table: "shitakis.account"},
			ok:   true,
		},
		{
			name: "backtick qualified update",
			sql:  "update `shitakis`.`account` set `sUsername` = ?",
			want: query.DML{Op: "UPDATE", Table: "`shitakis`.`account`"},
			ok:   true,
		},
		{
			name: "postgres quoted update with alias",
			sql:  `UPDATE "Game"."Characters" ch SET "sName" = $1 WHERE ch."dwCharacterID" = $2`,
			want: query.DML{Op: "UPDATE", Table: `"Game"."Characters"`},
			ok:   true,
		},
		{
			name: "update with as alias and returning",
			sql:  "UPDATE account AS a SET nNexonCash = nNexonCash + 1 WHERE dwAccountID = $1 RETURNING nNexonCash",
			want: query.DML{Op: "UPDATE", Table: "account", HasReturning: true},
			ok:   true,
		},
		{
			name: "returning inside a string literal",
			sql:  "UPDATE account SET sUsername = 'returning player'",
			want: query.DML{Op: "UPDATE", Table: "account", HasReturning: true},
			ok:   true,
		},
		{
			name: "multi line insert",
			sql: `
insert into shitakis.account (dwAccountID, sUsername)
values (?, ?)`,
			want: query.DML{Op: "INSERT", Table: "shitakis.account"},
			ok:   true,
		},
		{
			name: "delete behind a cte",
			sql: `WITH idle AS (
	SELECT dwAccountID FROM account WHERE nNexonCash = 0
) DELETE FROM shitakis.account a USING idle WHERE a.dwAccountID = idle.dwAccountID RETURNING a.dwAccountID`,
			want: query.DML{Op: "DELETE", Table: "shitakis.account", HasReturning: true},
			ok:   true,
		},
		{
			name: "select",
			sql:  "SELECT `nNexonCash` FROM shitakis.account WHERE `dwAccountID` = 1",
		},
		{
			name: "ddl",
			sql:  "CREATE TABLE account (dwAccountID INTEGER PRIMARY KEY)",
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := query.ParseDML(tc.sql)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func TestDML_BaseTable(t *testing.T) {
	t.Parallel()

	tcs := map[string]string{
		"UPDATE shitakis.account SET a = 1":        "account",
		"UPDATE `shitakis`.`Account` SET a = 1":    "Account",
		`UPDATE "Game"."Characters" SET "a" = $1`: "Characters",
	}
	for sql, want := range tcs {
		dml, ok := query.ParseDML(sql)
		if assert.True(t, ok, sql) {
			assert.Equal(t, want, dml.BaseTable(), sql)
		}
	}
}
