package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			user_id TEXT NOT NULL DEFAULT '',
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// HRV samples (SDNN, ms)
		`CREATE TABLE IF NOT EXISTS hrv_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			value REAL NOT NULL,
			sampled_at INTEGER NOT NULL UNIQUE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_hrv_samples_sampled_at ON hrv_samples(sampled_at)`,

		// Resting heart rate, one row per day
		`CREATE TABLE IF NOT EXISTS resting_heart_rate (
			day TEXT PRIMARY KEY,
			min REAL NOT NULL,
			max REAL NOT NULL,
			average REAL NOT NULL
		)`,

		// Sleep stage intervals
		`CREATE TABLE IF NOT EXISTS sleep_stages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stage TEXT NOT NULL,
			start_at INTEGER NOT NULL,
			end_at INTEGER NOT NULL,
			UNIQUE (start_at, stage)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sleep_stages_start_at ON sleep_stages(start_at)`,

		// Workouts
		`CREATE TABLE IF NOT EXISTS workouts (
			id TEXT PRIMARY KEY,
			started_at INTEGER NOT NULL,
			activity_type TEXT NOT NULL,
			duration_seconds INTEGER NOT NULL,
			average_heartrate REAL,
			rpe INTEGER,
			intensity_raw REAL,
			effort INTEGER,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_workouts_started_at ON workouts(started_at)`,

		`CREATE TABLE IF NOT EXISTS workout_exercises (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workout_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			input_kind TEXT NOT NULL,
			primary_muscles TEXT NOT NULL DEFAULT '',
			secondary_muscles TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (workout_id) REFERENCES workouts(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_workout_exercises_workout ON workout_exercises(workout_id)`,

		`CREATE TABLE IF NOT EXISTS workout_sets (
			exercise_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			weight REAL,
			reps INTEGER,
			duration_seconds REAL,
			distance REAL,
			rounds INTEGER,
			intensity INTEGER,
			is_warmup INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (exercise_id, position),
			FOREIGN KEY (exercise_id) REFERENCES workout_exercises(id) ON DELETE CASCADE
		)`,

		// Snapshot history (versioned JSON payload)
		`CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			fetched_at INTEGER NOT NULL,
			version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			condition_score INTEGER
		)`,

		`CREATE INDEX IF NOT EXISTS idx_snapshots_fetched_at ON snapshots(fetched_at)`,

		// Settings (key-value store for preferences and sync tracking)
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
