package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"dbcheck/internal/db"
)

// ReadyCheck validates primary store connectivity and migration state.
func ReadyCheck(ctx context.Context, conn *sql.DB) error {
	if conn == nil {
		return fmt.Errorf("database connection not initialized")
	}
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := db.Ready(checkCtx, conn); err != nil {
		return fmt.Errorf("primary store not ready: %w", err)
	}
	return nil
}

// Ready adapts ReadyCheck to the observability readiness hook.
func Ready(conn *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error { return ReadyCheck(ctx, conn) }
}
