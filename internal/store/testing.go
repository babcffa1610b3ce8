package store

import (
	"database/sql"
)

// NewTestDB wraps sqlDB (typically ":memory:") and runs migrations.
// This is only intended for use in tests.
func NewTestDB(sqlDB *sql.DB) (*DB, error) {
	// An in-memory database exists per connection
	sqlDB.SetMaxOpenConns(1)
	return initDB(sqlDB)
}
