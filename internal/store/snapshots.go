package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dune-health/internal/health"
)

// SaveSnapshot appends a snapshot to the history
func (db *DB) SaveSnapshot(ctx context.Context, snap *health.Snapshot) error {
	payload, err := health.EncodeSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	var score *int
	if snap.Condition != nil {
		s := snap.Condition.Score
		score = &s
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO snapshots (id, fetched_at, version, payload, condition_score)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, snap.ID, toUnix(snap.FetchedAt), health.SnapshotVersion, payload, score)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recently fetched snapshot
func (db *DB) LatestSnapshot(ctx context.Context) (*health.Snapshot, error) {
	var payload []byte
	err := db.QueryRowContext(ctx, `
		SELECT payload FROM snapshots
		ORDER BY fetched_at DESC
		LIMIT 1
	`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return health.DecodeSnapshot(payload)
}

// ConditionHistory returns the last condition score of each day over the
// trailing days, oldest first
func (db *DB) ConditionHistory(ctx context.Context, days int) ([]ConditionPoint, error) {
	since := db.now().AddDate(0, 0, -days)
	rows, err := db.QueryContext(ctx, `
		SELECT fetched_at, condition_score FROM snapshots
		WHERE condition_score IS NOT NULL AND fetched_at >= ?
		ORDER BY fetched_at ASC
	`, toUnix(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []ConditionPoint
	for rows.Next() {
		var at int64
		var score int
		if err := rows.Scan(&at, &score); err != nil {
			return nil, err
		}
		p := ConditionPoint{Date: db.fromUnix(at), Score: score}
		// Later snapshots on the same day replace earlier ones
		if n := len(points); n > 0 && health.SameDay(points[n-1].Date, p.Date) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// PruneSnapshots deletes all but the newest keep snapshots
func (db *DB) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	result, err := db.ExecContext(ctx, `
		DELETE FROM snapshots
		WHERE id NOT IN (
			SELECT id FROM snapshots ORDER BY fetched_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SnapshotRecorder saves each snapshot and trims the history to the newest Keep.
// Keep <= 0 keeps everything.
type SnapshotRecorder struct {
	DB   *DB
	Keep int
}

// SaveSnapshot implements cache.Persister
func (r SnapshotRecorder) SaveSnapshot(ctx context.Context, snap *health.Snapshot) error {
	if err := r.DB.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	if r.Keep <= 0 {
		return nil
	}
	if _, err := r.DB.PruneSnapshots(ctx, r.Keep); err != nil {
		return fmt.Errorf("pruning snapshots: %w", err)
	}
	return nil
}
