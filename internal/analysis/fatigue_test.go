package analysis

import (
	"testing"
	"time"

	"dune-health/internal/health"
)

func strengthWorkout(id string, date time.Time, sets int, primary, secondary []health.Muscle) health.Workout {
	ws := make([]health.WorkoutSet, sets)
	for i := range ws {
		ws[i] = health.WorkoutSet{Weight: floatPtr(100), Reps: intPtr(5)}
	}
	return health.Workout{
		ID:           id,
		Date:         date,
		ActivityType: "strength",
		Duration:     time.Hour,
		Exercises: []health.ExerciseRecord{{
			Name:             "squat",
			InputKind:        health.InputWeightReps,
			PrimaryMuscles:   primary,
			SecondaryMuscles: secondary,
			Sets:             ws,
		}},
	}
}

func stateFor(states []MuscleFatigueState, m health.Muscle) MuscleFatigueState {
	for _, s := range states {
		if s.Muscle == m {
			return s
		}
	}
	return MuscleFatigueState{}
}

func TestComputeFatigueNoHistory(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	states := ComputeFatigue(nil, now, NeutralModifiers(), DefaultFatigueParams(), DefaultZones())

	if len(states) != len(health.AllMuscles) {
		t.Fatalf("got %d states, want %d", len(states), len(health.AllMuscles))
	}
	for _, s := range states {
		if s.CompoundScore == nil || s.CompoundScore.Level != FatigueNoData {
			t.Errorf("%s: level should be noData", s.Muscle)
		}
		if s.RecoveryPercent != 1 {
			t.Errorf("%s: RecoveryPercent = %v, want 1", s.Muscle, s.RecoveryPercent)
		}
		if s.LastTrainedDate != nil {
			t.Errorf("%s: LastTrainedDate should be nil", s.Muscle)
		}
	}
}

func TestComputeFatigueRecency(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	quads := []health.Muscle{health.MuscleQuadriceps}

	recent := ComputeFatigue(
		[]health.Workout{strengthWorkout("a", now.Add(-12*time.Hour), 10, quads, nil)},
		now, NeutralModifiers(), DefaultFatigueParams(), DefaultZones())
	older := ComputeFatigue(
		[]health.Workout{strengthWorkout("a", now.Add(-80*time.Hour), 10, quads, nil)},
		now, NeutralModifiers(), DefaultFatigueParams(), DefaultZones())

	r := stateFor(recent, health.MuscleQuadriceps)
	o := stateFor(older, health.MuscleQuadriceps)
	if o.RecoveryPercent <= r.RecoveryPercent {
		t.Errorf("older recovery %v should exceed recent recovery %v", o.RecoveryPercent, r.RecoveryPercent)
	}
	if o.RecoveryPercent-r.RecoveryPercent < 0.2 {
		t.Errorf("recovery difference %v should be material", o.RecoveryPercent-r.RecoveryPercent)
	}
	if r.CompoundScore.Level <= o.CompoundScore.Level {
		t.Errorf("recent level %v should exceed older level %v", r.CompoundScore.Level, o.CompoundScore.Level)
	}
	if r.HoursSinceLastTrained == nil || *r.HoursSinceLastTrained != 12 {
		t.Errorf("HoursSinceLastTrained = %v, want 12", r.HoursSinceLastTrained)
	}
}

func TestComputeFatigueInvolvementAndVolume(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	w := strengthWorkout("a", now.Add(-48*time.Hour), 4,
		[]health.Muscle{health.MuscleChest}, []health.Muscle{health.MuscleTriceps})

	states := ComputeFatigue([]health.Workout{w}, now, NeutralModifiers(), DefaultFatigueParams(), DefaultZones())
	chest := stateFor(states, health.MuscleChest)
	triceps := stateFor(states, health.MuscleTriceps)

	if chest.WeeklyVolume != 4 {
		t.Errorf("chest WeeklyVolume = %d, want 4", chest.WeeklyVolume)
	}
	if got := chest.CompoundScore.Breakdown.WorkoutContributions; len(got) != 1 || got[0].RawFatigue != 4 {
		t.Errorf("chest contributions = %+v, want one raw load of 4", got)
	}
	if got := triceps.CompoundScore.Breakdown.WorkoutContributions; len(got) != 1 || got[0].RawFatigue != 2 {
		t.Errorf("triceps contributions = %+v, want one raw load of 2", got)
	}
	if stateFor(states, health.MuscleCalves).CompoundScore.Level != FatigueNoData {
		t.Error("untrained calves should have no data")
	}
}

func TestComputeFatigueSkipsWarmupsAndOutOfWindow(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	chest := []health.Muscle{health.MuscleChest}

	warmup := strengthWorkout("warmup", now.Add(-2*time.Hour), 3, chest, nil)
	for i := range warmup.Exercises[0].Sets {
		warmup.Exercises[0].Sets[i].IsWarmup = true
	}
	future := strengthWorkout("future", now.Add(2*time.Hour), 5, chest, nil)
	old := strengthWorkout("old", now.AddDate(0, 0, -20), 5, chest, nil)

	states := ComputeFatigue([]health.Workout{warmup, future, old}, now, NeutralModifiers(), DefaultFatigueParams(), DefaultZones())
	if s := stateFor(states, health.MuscleChest); s.CompoundScore.Level != FatigueNoData {
		t.Errorf("chest level = %v, want noData", s.CompoundScore.Level)
	}
}

func TestComputeFatigueCardio(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	run := health.Workout{
		ID:               "run",
		Date:             now.Add(-6 * time.Hour),
		ActivityType:     "running",
		Duration:         time.Hour,
		AverageHeartRate: floatPtr(150),
	}

	states := ComputeFatigue([]health.Workout{run}, now, NeutralModifiers(), DefaultFatigueParams(), DefaultZones())
	if s := stateFor(states, health.MuscleQuadriceps); s.CompoundScore.Level == FatigueNoData {
		t.Error("running should load the quadriceps")
	}
	if s := stateFor(states, health.MuscleChest); s.CompoundScore.Level != FatigueNoData {
		t.Error("running should not load the chest")
	}
}

func TestComputeFatigueModifiers(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)
	w := []health.Workout{strengthWorkout("a", now.Add(-24*time.Hour), 8, []health.Muscle{health.MuscleBack}, nil)}

	neutral := stateFor(ComputeFatigue(w, now, NeutralModifiers(), DefaultFatigueParams(), DefaultZones()), health.MuscleBack)
	poorSleep := stateFor(ComputeFatigue(w, now, FatigueModifiers{Sleep: 1.25, Readiness: 1}, DefaultFatigueParams(), DefaultZones()), health.MuscleBack)
	clamped := stateFor(ComputeFatigue(w, now, FatigueModifiers{Sleep: 10, Readiness: 1}, DefaultFatigueParams(), DefaultZones()), health.MuscleBack)

	if poorSleep.RecoveryPercent >= neutral.RecoveryPercent {
		t.Errorf("poor sleep recovery %v should be below neutral %v", poorSleep.RecoveryPercent, neutral.RecoveryPercent)
	}
	if got := clamped.CompoundScore.Breakdown.SleepModifier; got != maxModifier {
		t.Errorf("SleepModifier = %v, want clamped to %v", got, maxModifier)
	}
	if got := neutral.CompoundScore.Breakdown.EffectiveTau; got != 36 {
		t.Errorf("EffectiveTau = %v, want 36", got)
	}
}

func TestFatigueLevelFor(t *testing.T) {
	tests := []struct {
		n    float64
		want FatigueLevel
	}{
		{0, FatigueFullyRecovered},
		{0.05, FatigueFullyRecovered},
		{0.1, FatigueWellRested},
		{0.45, FatigueModerate},
		{0.95, FatigueOvertrained},
		{1, FatigueOvertrained},
		{1.7, FatigueOvertrained},
	}
	for _, tt := range tests {
		if got := FatigueLevelFor(tt.n); got != tt.want {
			t.Errorf("FatigueLevelFor(%v) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestSleepAndReadinessModifiers(t *testing.T) {
	sleepTests := []struct {
		minutes *float64
		want    float64
	}{
		{nil, 1},
		{floatPtr(240), 1.25},
		{floatPtr(330), 1.15},
		{floatPtr(400), 1.05},
		{floatPtr(450), 1},
		{floatPtr(500), 0.9},
		{floatPtr(2000), 1},
	}
	for _, tt := range sleepTests {
		if got := SleepModifier(tt.minutes); got != tt.want {
			t.Errorf("SleepModifier(%v) = %v, want %v", tt.minutes, got, tt.want)
		}
	}

	readinessTests := []struct {
		score *int
		want  float64
	}{
		{nil, 1},
		{intPtr(30), 1.2},
		{intPtr(50), 1.1},
		{intPtr(70), 1},
		{intPtr(85), 0.9},
	}
	for _, tt := range readinessTests {
		if got := ReadinessModifier(tt.score); got != tt.want {
			t.Errorf("ReadinessModifier(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
