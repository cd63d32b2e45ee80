package rowsnap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/mickamy/rowsnap/internal/query"
)

// Store executes synthesized statements.
type Store interface {
	// ExecStatement runs a data-changing statement.
	ExecStatement(ctx context.Context, st Statement) (Result, error)
	// QueryStatement runs a SELECT and returns the first row's values in
	// column order, or ErrNoRows.
	QueryStatement(ctx context.Context, st Statement) ([]any, error)
}

// Result describes an executed statement.
type Result struct {
	RowsAffected int64
	// Fallback is true when a zero-row UPDATE was re-run as an INSERT.
	Fallback bool
	// Executed is the statement that produced RowsAffected.
	Executed Statement
}

// DB wraps a *sqlx.DB as a Store. UPDATE statements that match no rows are
// rewritten into the equivalent INSERT and executed again.
type DB struct {
	*sqlx.DB
	logger *slog.Logger
}

// Open opens a database with a registered database/sql driver.
func Open(driverName, dsn string) (*DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("rowsnap: open %s: %w", driverName, err)
	}
	return &DB{DB: db, logger: slog.Default()}, nil
}

// WrapDB attaches rowsnap to an existing *sql.DB connection.
func WrapDB(db *sql.DB, driverName string) *DB {
	return &DB{DB: sqlx.NewDb(db, driverName), logger: slog.Default()}
}

// WithLogger returns a copy of db that logs to l.
func (db *DB) WithLogger(l *slog.Logger) *DB {
	cp := *db
	cp.logger = l
	return &cp
}

// Dialect returns the SQL dialect of the underlying driver.
func (db *DB) Dialect() Dialect {
	return DialectFor(db.DriverName())
}

// ExecStatement implements Store. An UPDATE that matches no rows runs its
// fallback INSERT; when none can be derived the zero-row result is returned.
func (db *DB) ExecStatement(ctx context.Context, st Statement) (Result, error) {
	n, err := db.exec(ctx, st)
	if err != nil {
		return Result{}, err
	}
	res := Result{RowsAffected: n, Executed: st}
	if n != 0 || extractSkipFallback(ctx) {
		return res, nil
	}
	// Only an UPDATE can mean "the row does not exist yet".
	dml, ok := query.ParseDML(st.SQL)
	if !ok || dml.Op != string(OpUpdate) {
		return res, nil
	}

	fb, err := fallbackFor(st, dml.Table)
	if err != nil {
		// A zero-row UPDATE is still a successful statement.
		db.logger.WarnContext(ctx, "rowsnap: update matched no rows and has no insert form",
			append(logAttrs(ctx), "table", dml.BaseTable(), "sql", st.SQL, "error", err)...)
		return res, nil
	}
	attrs := append(logAttrs(ctx), "table", dml.BaseTable(), "sql", fb.SQL)
	if dml.HasReturning {
		db.logger.WarnContext(ctx, "rowsnap: fallback insert drops the RETURNING clause", attrs...)
	}
	db.logger.InfoContext(ctx, "rowsnap: update matched no rows, inserting", attrs...)
	n, err = db.exec(ctx, fb)
	if err != nil {
		return Result{}, err
	}
	return Result{RowsAffected: n, Fallback: true, Executed: fb}, nil
}

// ExecContext intercepts ExecContext so raw UPDATE statements get the same
// zero-row fallback as synthesized ones.
func (db *DB) ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error) {
	res, err := db.ExecStatement(ctx, Statement{SQL: q, Args: args})
	if err != nil {
		return nil, err
	}
	return newAffectedRows(res.RowsAffected), nil
}

// QueryStatement implements Store.
func (db *DB) QueryStatement(ctx context.Context, st Statement) ([]any, error) {
	db.logger.DebugContext(ctx, "rowsnap: query", append(logAttrs(ctx), "sql", st.SQL)...)
	rows, err := db.QueryxContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return nil, classifyError(string(OpSelect), err)
	}
	vals, err := scanOne(rows)
	if errors.Is(err, ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, classifyError(string(OpSelect), err)
	}
	return vals, nil
}

func (db *DB) exec(ctx context.Context, st Statement) (int64, error) {
	db.logger.DebugContext(ctx, "rowsnap: exec", append(logAttrs(ctx), "sql", st.SQL, "args", len(st.Args))...)
	res, err := db.DB.ExecContext(ctx, st.SQL, st.Args...)
	if err != nil {
		return 0, classifyError(opOf(st), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classifyError(opOf(st), err)
	}
	return n, nil
}

// fallbackFor returns the INSERT attached to st, or derives one from its text.
func fallbackFor(st Statement, table string) (Statement, error) {
	if st.Fallback != nil {
		return *st.Fallback, nil
	}
	rw, err := query.RewriteUpdate(st.SQL, st.Args)
	if err != nil {
		return Statement{}, fmt.Errorf("%w: %w", ErrNoFallback, err)
	}
	return Statement{Op: OpInsert, Table: table, SQL: rw.SQL, Args: rw.Args}, nil
}

func opOf(st Statement) string {
	if st.Op != "" {
		return string(st.Op)
	}
	if dml, ok := query.ParseDML(st.SQL); ok {
		return dml.Op
	}
	return "EXEC"
}
