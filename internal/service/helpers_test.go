package service

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"dune-health/internal/store"
)

// openTestDB creates an in-memory SQLite database with migrations applied
func openTestDB(t *testing.T) *store.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	db, err := store.NewTestDB(sqlDB)
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to initialize database: %v", err)
	}
	db.SetClock(func() time.Time { return testNow })
	db.SetLocation(time.UTC)

	t.Cleanup(func() { sqlDB.Close() })
	return db
}
