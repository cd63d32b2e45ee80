package rowsnap_test

import (
	"context"
	"sync"

	"github.com/mickamy/rowsnap"
)

// account mirrors a login-server account row.
type account struct {
	rowsnap.Fields
	ID       int
	Username string
	Cash     int
}

func newAccount(id int) *account {
	a := &account{ID: id}
	a.Bind("dwAccountID", rowsnap.Ref(&a.ID)).
		Bind("sUsername", rowsnap.Ref(&a.Username)).
		Bind("nNexonCash", rowsnap.Ref(&a.Cash))
	return a
}

func (a *account) SchemaName() string { return "shitakis" }
func (a *account) TableName() string  { return "account" }
func (a *account) KeyColumn() string  { return "dwAccountID" }

// fakeStore records executed statements and serves a single row.
type fakeStore struct {
	mu       sync.Mutex
	row      []any
	execErr  error
	queryErr error
	execs    []rowsnap.Statement
	queries  []rowsnap.Statement

	// entered, when set, receives once per ExecStatement before release is awaited.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeStore) ExecStatement(_ context.Context, st rowsnap.Statement) (rowsnap.Result, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, st)
	if f.execErr != nil {
		return rowsnap.Result{}, f.execErr
	}
	return rowsnap.Result{RowsAffected: 1, Executed: st}, nil
}

func (f *fakeStore) QueryStatement(_ context.Context, st rowsnap.Statement) ([]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, st)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if f.row == nil {
		return nil, rowsnap.ErrNoRows
	}
	return f.row, nil
}

func (f *fakeStore) executed() []rowsnap.Statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]rowsnap.Statement(nil), f.execs...)
}

func (f *fakeStore) setExecErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execErr = err
}

func countOp(sts []rowsnap.Statement, op rowsnap.Op) int {
	n := 0
	for _, st := range sts {
		if st.Op == op {
			n++
		}
	}
	return n
}
