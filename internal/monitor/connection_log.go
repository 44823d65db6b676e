package monitor

import (
	"context"
	"fmt"

	"dbcheck/internal/db"
)

type connectionTestWriter interface {
	InsertConnectionTest(ctx context.Context, message string) (db.ConnectionTest, error)
}

// ConnectionLog appends every background result to connection_tests, which
// backs the latest connection test endpoint.
type ConnectionLog struct {
	db connectionTestWriter
}

func NewConnectionLog(dbx connectionTestWriter) *ConnectionLog {
	return &ConnectionLog{db: dbx}
}

func (l *ConnectionLog) RecordSample(ctx context.Context, s Sample) error {
	status := "ok"
	if !s.Result.Success {
		status = "failed"
	}
	msg := fmt.Sprintf("%s %s in %dms: %s", s.Target, status, s.Latency.Milliseconds(), s.Result.Message)
	if _, err := l.db.InsertConnectionTest(ctx, msg); err != nil {
		return fmt.Errorf("insert connection test: %w", err)
	}
	return nil
}
