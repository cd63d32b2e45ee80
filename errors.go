package rowsnap

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrBind reports a value that cannot be bound as a statement parameter.
	ErrBind = errors.New("rowsnap: bind error")
	// ErrExec reports a statement the store rejected or failed to run.
	ErrExec = errors.New("rowsnap: execution error")
	// ErrConstraint is joined to ErrExec for integrity constraint violations.
	ErrConstraint = errors.New("rowsnap: constraint violation")
	// ErrConnection is joined to ErrExec when the store could not be reached.
	ErrConnection = errors.New("rowsnap: connection failure")
	// ErrMalformedPredicate reports a load query without any comparison.
	ErrMalformedPredicate = errors.New("rowsnap: load predicate has no comparison operator")
	// ErrUnknownColumn reports a declared column without an accessor.
	ErrUnknownColumn = errors.New("rowsnap: declared column has no field")
	// ErrNoRows is returned by Store.QueryStatement when nothing matched.
	ErrNoRows = errors.New("rowsnap: no rows")
	// ErrNoFallback reports a zero-row UPDATE that cannot be turned into an INSERT.
	ErrNoFallback = errors.New("rowsnap: cannot derive insert from update")
)

// MySQL server error numbers treated as constraint violations.
var mysqlConstraintErrors = map[uint16]bool{
	1048: true, // ER_BAD_NULL_ERROR
	1062: true, // ER_DUP_ENTRY
	1451: true, // ER_ROW_IS_REFERENCED_2
	1452: true, // ER_NO_REFERENCED_ROW_2
	3819: true, // ER_CHECK_CONSTRAINT_VIOLATED
}

// classifyError wraps a driver error as ErrExec, joining ErrConstraint or
// ErrConnection when the driver error says so. Argument conversion failures
// reported by database/sql become ErrBind.
func classifyError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isBindError(err):
		return fmt.Errorf("%w: %s: %w", ErrBind, op, err)
	case isConstraintError(err):
		return fmt.Errorf("%w: %w: %s: %w", ErrExec, ErrConstraint, op, err)
	case isConnectionError(err):
		return fmt.Errorf("%w: %w: %s: %w", ErrExec, ErrConnection, op, err)
	default:
		return fmt.Errorf("%w: %s: %w", ErrExec, op, err)
	}
}

func isBindError(err error) bool {
	// database/sql: "sql: converting argument $1 type: ..."
	return strings.Contains(err.Error(), "converting argument")
}

func isConstraintError(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return mysqlConstraintErrors[myErr.Number]
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// class 23: integrity constraint violation
		return strings.HasPrefix(pgErr.Code, "23")
	}
	// sqlite reports "UNIQUE constraint failed: ..." and friends
	return strings.Contains(err.Error(), "constraint failed")
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
