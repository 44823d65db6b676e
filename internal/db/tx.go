package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

type txStarter interface {
	BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error)
}

// BeginTx starts a transaction and returns a Queries instance bound to it.
func (q *Queries) BeginTx(ctx context.Context, opts *sql.TxOptions) (*Queries, *sql.Tx, error) {
	starter, ok := q.db.(txStarter)
	if !ok {
		return nil, nil, fmt.Errorf("db does not support transactions")
	}
	tx, err := starter.BeginTx(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return q.WithTx(tx), tx, nil
}

// CreateNamedTestRecord inserts a placeholder row and renames it to
// "name<id>" in one transaction, then lists every row.
func (q *Queries) CreateNamedTestRecord(ctx context.Context) (TestRecord, []TestRecord, error) {
	qtx, tx, err := q.BeginTx(ctx, nil)
	if err != nil {
		return TestRecord{}, nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rec, err := qtx.InsertTestRecord(ctx, "temp")
	if err != nil {
		return TestRecord{}, nil, fmt.Errorf("insert test record: %w", err)
	}
	rec, err = qtx.RenameTestRecord(ctx, rec.ID, "name"+strconv.FormatInt(rec.ID, 10))
	if err != nil {
		return TestRecord{}, nil, fmt.Errorf("rename test record: %w", err)
	}
	all, err := qtx.ListTestRecords(ctx)
	if err != nil {
		return TestRecord{}, nil, fmt.Errorf("list test records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return TestRecord{}, nil, fmt.Errorf("commit: %w", err)
	}
	return rec, all, nil
}
