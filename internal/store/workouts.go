package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"dune-health/internal/health"
)

// UpsertWorkout inserts or replaces a workout together with its exercises and sets
func (db *DB) UpsertWorkout(ctx context.Context, w *health.Workout) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workouts (
			id, started_at, activity_type, duration_seconds, average_heartrate,
			rpe, intensity_raw, effort, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			activity_type = excluded.activity_type,
			duration_seconds = excluded.duration_seconds,
			average_heartrate = excluded.average_heartrate,
			rpe = excluded.rpe,
			intensity_raw = excluded.intensity_raw,
			effort = excluded.effort,
			updated_at = CURRENT_TIMESTAMP
	`,
		w.ID, toUnix(w.Date), w.ActivityType, int64(w.Duration.Seconds()), w.AverageHeartRate,
		w.RPE, w.IntensityRaw, w.Effort,
	)
	if err != nil {
		return fmt.Errorf("upserting workout: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM workout_exercises WHERE workout_id = ?`, w.ID); err != nil {
		return fmt.Errorf("clearing exercises: %w", err)
	}

	for i, ex := range w.Exercises {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO workout_exercises (workout_id, position, name, input_kind, primary_muscles, secondary_muscles)
			VALUES (?, ?, ?, ?, ?, ?)
		`, w.ID, i, ex.Name, string(ex.InputKind), joinMuscles(ex.PrimaryMuscles), joinMuscles(ex.SecondaryMuscles))
		if err != nil {
			return fmt.Errorf("inserting exercise %q: %w", ex.Name, err)
		}
		exID, err := res.LastInsertId()
		if err != nil {
			return err
		}

		for j, s := range ex.Sets {
			var dur *float64
			if s.Duration != nil {
				v := s.Duration.Seconds()
				dur = &v
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO workout_sets (exercise_id, position, weight, reps, duration_seconds, distance, rounds, intensity, is_warmup)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, exID, j, s.Weight, s.Reps, dur, s.Distance, s.Rounds, s.Intensity, boolToInt(s.IsWarmup)); err != nil {
				return fmt.Errorf("inserting set: %w", err)
			}
		}
	}

	return tx.Commit()
}

const workoutColumns = `id, started_at, activity_type, duration_seconds, average_heartrate, rpe, intensity_raw, effort`

type scanner interface {
	Scan(dest ...any) error
}

func (db *DB) scanWorkout(row scanner) (*health.Workout, error) {
	var w health.Workout
	var startedAt, durationSeconds int64
	var avgHR, intensityRaw sql.NullFloat64
	var rpe, effort sql.NullInt64

	err := row.Scan(&w.ID, &startedAt, &w.ActivityType, &durationSeconds, &avgHR, &rpe, &intensityRaw, &effort)
	if err != nil {
		return nil, err
	}

	w.Date = db.fromUnix(startedAt)
	w.Duration = time.Duration(durationSeconds) * time.Second
	w.AverageHeartRate = nullFloat(avgHR)
	w.RPE = nullInt(rpe)
	w.IntensityRaw = nullFloat(intensityRaw)
	w.Effort = nullInt(effort)
	return &w, nil
}

// GetWorkout retrieves a workout with its exercises by ID
func (db *DB) GetWorkout(ctx context.Context, id string) (*health.Workout, error) {
	row := db.QueryRowContext(ctx, `SELECT `+workoutColumns+` FROM workouts WHERE id = ?`, id)
	w, err := db.scanWorkout(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, err
	}

	if w.Exercises, err = db.loadExercises(ctx, w.ID); err != nil {
		return nil, err
	}
	return w, nil
}

// ListWorkouts returns workouts started within [start, end], oldest first
func (db *DB) ListWorkouts(ctx context.Context, start, end time.Time) ([]health.Workout, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT `+workoutColumns+` FROM workouts
		WHERE started_at >= ? AND started_at <= ?
		ORDER BY started_at ASC
	`, toUnix(start), toUnix(end))
	if err != nil {
		return nil, err
	}

	var workouts []health.Workout
	for rows.Next() {
		w, err := db.scanWorkout(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		workouts = append(workouts, *w)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range workouts {
		if workouts[i].Exercises, err = db.loadExercises(ctx, workouts[i].ID); err != nil {
			return nil, err
		}
	}
	return workouts, nil
}

func (db *DB) loadExercises(ctx context.Context, workoutID string) ([]health.ExerciseRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, input_kind, primary_muscles, secondary_muscles
		FROM workout_exercises
		WHERE workout_id = ?
		ORDER BY position ASC
	`, workoutID)
	if err != nil {
		return nil, err
	}

	var ids []int64
	var exercises []health.ExerciseRecord
	for rows.Next() {
		var id int64
		var ex health.ExerciseRecord
		var kind, primary, secondary string
		if err := rows.Scan(&id, &ex.Name, &kind, &primary, &secondary); err != nil {
			rows.Close()
			return nil, err
		}
		ex.InputKind = health.InputKind(kind)
		ex.PrimaryMuscles = splitMuscles(primary)
		ex.SecondaryMuscles = splitMuscles(secondary)
		ids = append(ids, id)
		exercises = append(exercises, ex)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i, id := range ids {
		if exercises[i].Sets, err = db.loadSets(ctx, id); err != nil {
			return nil, err
		}
	}
	return exercises, nil
}

func (db *DB) loadSets(ctx context.Context, exerciseID int64) ([]health.WorkoutSet, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT weight, reps, duration_seconds, distance, rounds, intensity, is_warmup
		FROM workout_sets
		WHERE exercise_id = ?
		ORDER BY position ASC
	`, exerciseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []health.WorkoutSet
	for rows.Next() {
		var weight, duration, distance sql.NullFloat64
		var reps, rounds, intensity sql.NullInt64
		var warmup int
		if err := rows.Scan(&weight, &reps, &duration, &distance, &rounds, &intensity, &warmup); err != nil {
			return nil, err
		}
		s := health.WorkoutSet{
			Weight:    nullFloat(weight),
			Reps:      nullInt(reps),
			Distance:  nullFloat(distance),
			Rounds:    nullInt(rounds),
			Intensity: nullInt(intensity),
			IsWarmup:  warmup != 0,
		}
		if duration.Valid {
			d := time.Duration(duration.Float64 * float64(time.Second))
			s.Duration = &d
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

// SetWorkoutIntensity stores the computed intensity and effort of a workout
func (db *DB) SetWorkoutIntensity(ctx context.Context, id string, intensityRaw *float64, effort *int) error {
	result, err := db.ExecContext(ctx, `
		UPDATE workouts
		SET intensity_raw = ?, effort = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, intensityRaw, effort, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// RecentEfforts returns up to limit recorded efforts, most recent first,
// excluding the workout excludeID
func (db *DB) RecentEfforts(ctx context.Context, limit int, excludeID string) ([]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT effort FROM workouts
		WHERE effort IS NOT NULL AND id != ?
		ORDER BY started_at DESC
		LIMIT ?
	`, excludeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var efforts []int
	for rows.Next() {
		var e int
		if err := rows.Scan(&e); err != nil {
			return nil, err
		}
		efforts = append(efforts, e)
	}
	return efforts, rows.Err()
}

func joinMuscles(ms []health.Muscle) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

func splitMuscles(s string) []health.Muscle {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]health.Muscle, len(parts))
	for i, p := range parts {
		out[i] = health.Muscle(p)
	}
	return out
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
