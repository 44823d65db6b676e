package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"dbcheck/internal/profile"
)

// Pgx opens a single native pgx connection.
type Pgx struct{}

func NewPgx() *Pgx { return &Pgx{} }

func (a *Pgx) Name() string { return "pgx" }

func (a *Pgx) Available() bool { return true }

func (a *Pgx) Probe(ctx context.Context, p profile.Profile, query string) Outcome {
	dsn, _ := postgresDSN(p, "")
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return failedAs(a.Name(), p, Interface, err)
	}
	cfg.ConnectTimeout = p.Timeout

	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return failed(a.Name(), p, err)
	}
	defer func() {
		// ctx may already be done; Close still needs a live context.
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	var v any
	if err := conn.QueryRow(ctx, query).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return succeeded("")
		}
		return failed(a.Name(), p, err)
	}
	if v == nil {
		return succeeded("")
	}
	return succeeded(fmt.Sprint(v))
}
