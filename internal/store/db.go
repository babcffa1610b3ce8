package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrWorkoutNotFound is returned when a workout doesn't exist
var ErrWorkoutNotFound = errors.New("workout not found")

// ErrSnapshotNotFound is returned when no snapshot has been saved
var ErrSnapshotNotFound = errors.New("snapshot not found")

// DB wraps the SQLite connection. It implements the health querier and
// settings interfaces over locally stored data.
type DB struct {
	*sql.DB
	now func() time.Time
	loc *time.Location
}

// Open opens the SQLite database, creating it if necessary.
// An empty path uses ~/.dune/data.db
func Open(path string) (*DB, error) {
	if path == "" {
		p, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("getting db path: %w", err)
		}
		path = p
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db, err := initDB(sqlDB)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func initDB(sqlDB *sql.DB) (*DB, error) {
	// Enable foreign keys
	if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(sqlDB); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &DB{DB: sqlDB, now: time.Now, loc: time.Local}, nil
}

// SetClock replaces the time source used for relative lookbacks
func (db *DB) SetClock(now func() time.Time) {
	db.now = now
}

// SetLocation sets the zone that calendar days are computed in
func (db *DB) SetLocation(loc *time.Location) {
	db.loc = loc
}

// getDBPath returns the path to the SQLite database file
func getDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".dune", "data.db"), nil
}

func toUnix(t time.Time) int64 {
	return t.Unix()
}

func (db *DB) fromUnix(v int64) time.Time {
	return time.Unix(v, 0).In(db.loc)
}

func (db *DB) dayKey(t time.Time) string {
	return t.In(db.loc).Format("2006-01-02")
}

func (db *DB) parseDay(key string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", key, db.loc)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
