package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"dune-health/internal/analysis"
	"dune-health/internal/health"
	"dune-health/internal/store"
)

func seedWorkouts(t *testing.T, db *store.DB, workouts ...health.Workout) {
	t.Helper()
	for i := range workouts {
		if err := db.UpsertWorkout(context.Background(), &workouts[i]); err != nil {
			t.Fatalf("UpsertWorkout(%s): %v", workouts[i].ID, err)
		}
	}
}

func TestWorkoutService_ScoreRPEOnly(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	past := cardio("past-1", testNow.AddDate(0, 0, -3), 30)
	past.Effort = intPtr(3)
	older := cardio("past-2", testNow.AddDate(0, 0, -5), 30)
	older.Effort = intPtr(3)
	session := health.Workout{ID: "today", Date: testNow, ActivityType: "yoga", Duration: time.Hour, RPE: intPtr(7)}
	seedWorkouts(t, db, older, past, session)

	svc := NewWorkoutService(db, nil)
	score, err := svc.Score(ctx, "today")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if score.Intensity == nil {
		t.Fatal("Intensity = nil, want RPE-only result")
	}
	if score.Intensity.Detail.Method != analysis.MethodRPEOnly {
		t.Errorf("Method = %v, want rpeOnly", score.Intensity.Detail.Method)
	}
	if score.Intensity.RawScore != 0.7 {
		t.Errorf("RawScore = %v, want 0.7", score.Intensity.RawScore)
	}
	// 1 + 0.7*9 = 7.3, nudged 30% toward the mean effort of 3
	if score.SuggestedEffort == nil || *score.SuggestedEffort != 6 {
		t.Errorf("SuggestedEffort = %v, want 6", score.SuggestedEffort)
	}

	stored, err := db.GetWorkout(ctx, "today")
	if err != nil {
		t.Fatal(err)
	}
	if stored.IntensityRaw == nil || *stored.IntensityRaw != 0.7 {
		t.Errorf("stored IntensityRaw = %v, want 0.7", stored.IntensityRaw)
	}
	if stored.Effort == nil || *stored.Effort != 6 {
		t.Errorf("stored Effort = %v, want 6", stored.Effort)
	}
}

func TestWorkoutService_ScoreFallsBackToRecentEffort(t *testing.T) {
	db := openTestDB(t)

	newer := cardio("newer", testNow.AddDate(0, 0, -1), 30)
	newer.Effort = intPtr(4)
	older := cardio("older", testNow.AddDate(0, 0, -4), 30)
	older.Effort = intPtr(8)
	session := health.Workout{ID: "today", Date: testNow, ActivityType: "walk", Duration: time.Hour}
	seedWorkouts(t, db, older, newer, session)

	score, err := NewWorkoutService(db, nil).Score(context.Background(), "today")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.Intensity != nil {
		t.Errorf("Intensity = %+v, want nil without signals", score.Intensity)
	}
	if score.SuggestedEffort == nil || *score.SuggestedEffort != 4 {
		t.Errorf("SuggestedEffort = %v, want most recent effort 4", score.SuggestedEffort)
	}
}

func TestWorkoutService_ScoreUsesSameKindHistory(t *testing.T) {
	db := openTestDB(t)

	reps := func(id string, date time.Time, n ...int) health.Workout {
		sets := make([]health.WorkoutSet, len(n))
		for i := range n {
			sets[i] = health.WorkoutSet{Reps: intPtr(n[i])}
		}
		return health.Workout{
			ID:   id,
			Date: date,
			Exercises: []health.ExerciseRecord{{
				Name:           "pull-up",
				InputKind:      health.InputReps,
				PrimaryMuscles: []health.Muscle{health.MuscleLats},
				Sets:           sets,
			}},
		}
	}
	seedWorkouts(t, db,
		reps("h1", testNow.AddDate(0, 0, -6), 10, 8, 8),
		reps("h2", testNow.AddDate(0, 0, -3), 14, 12, 10),
		cardio("run", testNow.AddDate(0, 0, -2), 30),
		reps("today", testNow, 12, 10, 8),
		reps("later", testNow.AddDate(0, 0, 1), 20, 20, 20),
	)

	score, err := NewWorkoutService(db, nil).Score(context.Background(), "today")
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if score.HistorySize != 2 {
		t.Errorf("HistorySize = %d, want 2 (same kind, earlier only)", score.HistorySize)
	}
	if score.Intensity == nil || score.Intensity.Detail.Method != analysis.MethodRepsPercentile {
		t.Fatalf("Intensity = %+v, want reps percentile", score.Intensity)
	}
	if raw := score.Intensity.RawScore; raw < 0 || raw > 1 {
		t.Errorf("RawScore = %v, want within [0,1]", raw)
	}
}

func TestWorkoutService_ScoreNotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := NewWorkoutService(db, nil).Score(context.Background(), "missing")
	if !errors.Is(err, store.ErrWorkoutNotFound) {
		t.Errorf("err = %v, want ErrWorkoutNotFound", err)
	}
}
