package db

import (
	"context"
	"fmt"
)

const latestConnectionTest = `SELECT id, message, created_at FROM connection_tests ORDER BY created_at DESC, id DESC LIMIT 1`

// LatestConnectionTest returns sql.ErrNoRows when the table is empty.
func (q *Queries) LatestConnectionTest(ctx context.Context) (ConnectionTest, error) {
	var ct ConnectionTest
	err := q.db.QueryRowContext(ctx, latestConnectionTest).Scan(&ct.ID, &ct.Message, &ct.CreatedAt)
	return ct, err
}

const insertConnectionTest = `INSERT INTO connection_tests (message) VALUES ($1) RETURNING id, message, created_at`

func (q *Queries) InsertConnectionTest(ctx context.Context, message string) (ConnectionTest, error) {
	var ct ConnectionTest
	err := q.db.QueryRowContext(ctx, insertConnectionTest, message).Scan(&ct.ID, &ct.Message, &ct.CreatedAt)
	return ct, err
}

const insertTestRecord = `INSERT INTO test_table (name) VALUES ($1) RETURNING id, name`

func (q *Queries) InsertTestRecord(ctx context.Context, name string) (TestRecord, error) {
	var rec TestRecord
	err := q.db.QueryRowContext(ctx, insertTestRecord, name).Scan(&rec.ID, &rec.Name)
	return rec, err
}

const renameTestRecord = `UPDATE test_table SET name = $2 WHERE id = $1 RETURNING id, name`

func (q *Queries) RenameTestRecord(ctx context.Context, id int64, name string) (TestRecord, error) {
	var rec TestRecord
	err := q.db.QueryRowContext(ctx, renameTestRecord, id, name).Scan(&rec.ID, &rec.Name)
	return rec, err
}

const listTestRecords = `SELECT id, name FROM test_table ORDER BY id ASC`

func (q *Queries) ListTestRecords(ctx context.Context) ([]TestRecord, error) {
	rows, err := q.db.QueryContext(ctx, listTestRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TestRecord
	for rows.Next() {
		var rec TestRecord
		if err := rows.Scan(&rec.ID, &rec.Name); err != nil {
			return nil, fmt.Errorf("scan test_table: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
