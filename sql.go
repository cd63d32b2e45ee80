package rowsnap

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// affectedResult implements sql.Result for Exec-like semantics.
type affectedResult struct{ n int64 }

func newAffectedRows(n int64) sql.Result {
	return affectedResult{n: n}
}

func (r affectedResult) LastInsertId() (int64, error) {
	return 0, errors.New("not supported")
}

func (r affectedResult) RowsAffected() (int64, error) {
	return r.n, nil
}

// scanOne consumes the first row from rows as ordered column values.
func scanOne(rows *sqlx.Rows) ([]any, error) {
	defer func(rows *sqlx.Rows) {
		_ = rows.Close()
	}(rows)

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNoRows
	}
	vals, err := rows.SliceScan()
	if err != nil {
		return nil, err
	}
	return vals, rows.Err()
}
