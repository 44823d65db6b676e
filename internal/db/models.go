package db

import "time"

// ConnectionTest is one row of connection_tests: a message recorded by a
// connectivity check against the primary store.
type ConnectionTest struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TestRecord is one row of test_table, written by the ORM round trip.
type TestRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
