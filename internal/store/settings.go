package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// GetSetting retrieves a setting value by key
// Returns empty string if key doesn't exist
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.QueryRowContext(ctx, `
		SELECT value FROM settings WHERE key = ?
	`, key).Scan(&value)

	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

// SetSetting sets a setting value
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// getJSONSetting decodes the value at key into v, leaving v untouched when unset
func (db *DB) getJSONSetting(ctx context.Context, key string, v any) error {
	raw, err := db.GetSetting(ctx, key)
	if err != nil || raw == "" {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("parsing setting %s: %w", key, err)
	}
	return nil
}

func (db *DB) setJSONSetting(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.SetSetting(ctx, key, string(data))
}

// PinnedMetrics returns the metrics pinned to the dashboard
func (db *DB) PinnedMetrics(ctx context.Context) ([]string, error) {
	var metrics []string
	if err := db.getJSONSetting(ctx, SettingPinnedMetrics, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}

// SetPinnedMetrics replaces the pinned metric selection
func (db *DB) SetPinnedMetrics(ctx context.Context, metrics []string) error {
	return db.setJSONSetting(ctx, SettingPinnedMetrics, metrics)
}

// GetWorkoutDefaults returns the saved workout defaults, or the zero value
func (db *DB) GetWorkoutDefaults(ctx context.Context) (WorkoutDefaults, error) {
	var d WorkoutDefaults
	if err := db.getJSONSetting(ctx, SettingWorkoutDefaults, &d); err != nil {
		return WorkoutDefaults{}, err
	}
	return d, nil
}

// SetWorkoutDefaults saves the workout defaults
func (db *DB) SetWorkoutDefaults(ctx context.Context, d WorkoutDefaults) error {
	return db.setJSONSetting(ctx, SettingWorkoutDefaults, d)
}
