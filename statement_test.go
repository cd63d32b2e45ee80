package rowsnap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/rowsnap"
)

func testMeta() rowsnap.Meta {
	return rowsnap.Meta{Schema: "s", Table: "t", Key: "id", Columns: []string{"id", "name", "balance"}}
}

func TestUpdateStatement(t *testing.T) {
	t.Parallel()

	changes := []rowsnap.Change{{Column: "name", Value: "ana"}, {Column: "balance", Value: 10}}

	tcs := []struct {
		name         string
		dialect      rowsnap.Dialect
		key          any
		predicate    string
		wantSQL      string
		wantFallback string
		wantFbArgs   []any
	}{
		{
			name:         "integer key",
			dialect:      rowsnap.MySQL,
			key:          7,
			wantSQL:      "UPDATE s.t SET `name` = ?, `balance` = ? WHERE `id` = 7",
			wantFallback: "INSERT INTO s.t (`name`, `balance`, `id`) VALUES (?, ?, ?)",
			wantFbArgs:   []any{"ana", 10, 7},
		},
		{
			name:         "string key",
			dialect:      rowsnap.MySQL,
			key:          "abc",
			wantSQL:      "UPDATE s.t SET `name` = ?, `balance` = ? WHERE `id` = \"abc\"",
			wantFallback: "INSERT INTO s.t (`name`, `balance`, `id`) VALUES (?, ?, ?)",
			wantFbArgs:   []any{"ana", 10, "abc"},
		},
		{
			name:         "extra predicate",
			dialect:      rowsnap.MySQL,
			key:          7,
			predicate:    "`world` = 3",
			wantSQL:      "UPDATE s.t SET `name` = ?, `balance` = ? WHERE `id` = 7 AND `world` = 3",
			wantFallback: "INSERT INTO s.t (`name`, `balance`, `id`, `world`) VALUES (?, ?, ?, ?)",
			wantFbArgs:   []any{"ana", 10, 7, int64(3)},
		},
		{
			name:         "postgres",
			dialect:      rowsnap.Postgres,
			key:          "abc",
			wantSQL:      `UPDATE s.t SET "name" = $1, "balance" = $2 WHERE "id" = 'abc'`,
			wantFallback: `INSERT INTO s.t ("name", "balance", "id") VALUES ($1, $2, $3)`,
			wantFbArgs:   []any{"ana", 10, "abc"},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			meta := testMeta()
			meta.Predicate = tc.predicate

			st := rowsnap.UpdateStatement(meta, tc.dialect, tc.key, changes, nil)
			assert.Equal(t, rowsnap.OpUpdate, st.Op)
			assert.Equal(t, tc.wantSQL, st.SQL)
			assert.Equal(t, []any{"ana", 10}, st.Args)
			require.NotNil(t, st.Fallback)
			assert.Equal(t, rowsnap.OpInsert, st.Fallback.Op)
			assert.Equal(t, tc.wantFallback, st.Fallback.SQL)
			assert.Equal(t, tc.wantFbArgs, st.Fallback.Args)
		})
	}
}

func TestUpdateStatement_EmptyChangesFallsBackToInsert(t *testing.T) {
	t.Parallel()

	row := []any{7, "ana", 10}
	st := rowsnap.UpdateStatement(testMeta(), rowsnap.MySQL, 7, nil, row)

	assert.Equal(t, rowsnap.OpInsert, st.Op)
	assert.Equal(t, "INSERT INTO s.t (`id`, `name`, `balance`) VALUES (?, ?, ?)", st.SQL)
	assert.Equal(t, row, st.Args)
}

func TestUpdateStatement_UnparseablePredicateHasNoFallback(t *testing.T) {
	t.Parallel()

	meta := testMeta()
	meta.Predicate = "`name` LIKE 'a%'"
	st := rowsnap.UpdateStatement(meta, rowsnap.MySQL, 7, []rowsnap.Change{{Column: "balance", Value: 1}}, nil)

	assert.Equal(t, "UPDATE s.t SET `balance` = ? WHERE `id` = 7 AND `name` LIKE 'a%'", st.SQL)
	assert.Nil(t, st.Fallback)
}

func TestInsertStatement(t *testing.T) {
	t.Parallel()

	st := rowsnap.InsertStatement(testMeta(), rowsnap.MySQL, []any{1, "a", 2})
	assert.Equal(t, "INSERT INTO s.t (`id`, `name`, `balance`) VALUES (?, ?, ?)", st.SQL)
	assert.Equal(t, "s.t", st.Table)

	st = rowsnap.InsertStatement(testMeta(), rowsnap.Postgres, []any{1, "a", 2})
	assert.Equal(t, `INSERT INTO s.t ("id", "name", "balance") VALUES ($1, $2, $3)`, st.SQL)
}

func TestSelectStatement(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name      string
		key       string
		predicate string
		keyValue  any
		want      string
		wantErr   error
	}{
		{name: "integer key", key: "id", keyValue: 7, want: "SELECT `id`, `name`, `balance` FROM s.t WHERE `id` = 7"},
		{name: "string key", key: "id", keyValue: `a"b`, want: "SELECT `id`, `name`, `balance` FROM s.t WHERE `id` = \"a\"\"b\""},
		{name: "with predicate", key: "id", keyValue: 7, predicate: "`world` = 3", want: "SELECT `id`, `name`, `balance` FROM s.t WHERE `id` = 7 AND `world` = 3"},
		{name: "like only", predicate: "`name` like 'a%'", want: "SELECT `id`, `name`, `balance` FROM s.t WHERE `name` like 'a%'"},
		{name: "no criteria", wantErr: rowsnap.ErrMalformedPredicate},
		{name: "no comparison", predicate: "`deleted_at` IS NULL", wantErr: rowsnap.ErrMalformedPredicate},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			meta := testMeta()
			meta.Key = tc.key
			meta.Predicate = tc.predicate

			st, err := rowsnap.SelectStatement(meta, rowsnap.MySQL, tc.keyValue)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, rowsnap.OpSelect, st.Op)
			assert.Equal(t, tc.want, st.SQL)
		})
	}
}

func TestDialectFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, rowsnap.Postgres, rowsnap.DialectFor("pgx"))
	assert.Equal(t, rowsnap.MySQL, rowsnap.DialectFor("mysql"))
	assert.Equal(t, rowsnap.MySQL, rowsnap.DialectFor("sqlite3"))

	assert.Equal(t, "mysql", rowsnap.MySQL.Name())
	assert.Equal(t, "postgres", rowsnap.Postgres.Name())
}
