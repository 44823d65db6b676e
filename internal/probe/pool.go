package probe

import (
	"context"
	"database/sql"
	"errors"

	"dbcheck/internal/profile"
)

// Pool probes a pool that is already open, such as the service's own primary
// database. Only the checked out connection is released; the pool stays
// open.
type Pool struct {
	name string
	db   *sql.DB
}

func NewPool(name string, db *sql.DB) *Pool {
	return &Pool{name: name, db: db}
}

func (a *Pool) Name() string { return a.name }

func (a *Pool) Available() bool { return a.db != nil }

func (a *Pool) Probe(ctx context.Context, p profile.Profile, query string) Outcome {
	if a.db == nil {
		return failedAs(a.name, p, Interface, errors.New("database pool not initialized"))
	}
	detail, err := scanFirst(ctx, a.db, query)
	if err != nil {
		return failed(a.name, p, err)
	}
	return succeeded(detail)
}
