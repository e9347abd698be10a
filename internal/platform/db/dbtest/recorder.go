// Package dbtest provides a db.Querier that records statements for unit tests.
package dbtest

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotScripted is returned for reads the recorder was not told how to answer.
var ErrNotScripted = errors.New("dbtest: statement not scripted")

// Call is one recorded statement.
type Call struct {
	SQL  string
	Args []any
}

// Recorder implements db.Querier. Exec calls are recorded and succeed unless
// ExecErr is set; reads return ErrNotScripted.
type Recorder struct {
	mu      sync.Mutex
	Calls   []Call
	ExecErr error
}

// Exec records the statement.
func (r *Recorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, Call{SQL: sql, Args: args})
	if r.ExecErr != nil {
		return pgconn.CommandTag{}, r.ExecErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

// Query is not scripted.
func (r *Recorder) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, ErrNotScripted
}

// QueryRow is not scripted.
func (r *Recorder) QueryRow(context.Context, string, ...any) pgx.Row {
	return errRow{}
}

// Last returns the most recent call.
func (r *Recorder) Last() (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return Call{}, false
	}
	return r.Calls[len(r.Calls)-1], true
}

type errRow struct{}

func (errRow) Scan(...any) error { return ErrNotScripted }
