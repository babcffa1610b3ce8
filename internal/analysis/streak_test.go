package analysis

import (
	"testing"
	"time"

	"dune-health/internal/health"
)

func workoutsOn(dates ...time.Time) []health.Workout {
	out := make([]health.Workout, len(dates))
	for i, d := range dates {
		out[i] = health.Workout{ID: d.Format(time.RFC3339), Date: d, Duration: time.Hour}
	}
	return out
}

func TestComputeStreak(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 3, 18, 20, 0, 0, 0, time.UTC)
	day := func(offset int) time.Time {
		return time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}

	tests := []struct {
		name     string
		workouts []health.Workout
		want     WorkoutStreak
	}{
		{
			name:     "no workouts",
			workouts: nil,
			want:     WorkoutStreak{MonthlyGoal: 12},
		},
		{
			name:     "three days through today",
			workouts: workoutsOn(day(0), day(-1), day(-2)),
			want:     WorkoutStreak{CurrentStreak: 3, BestStreak: 3, MonthlyCount: 3, MonthlyGoal: 12},
		},
		{
			name:     "alive through yesterday",
			workouts: workoutsOn(day(-1), day(-2)),
			want:     WorkoutStreak{CurrentStreak: 2, BestStreak: 2, MonthlyCount: 2, MonthlyGoal: 12},
		},
		{
			name:     "broken streak keeps best",
			workouts: workoutsOn(day(-2), day(-5), day(-6), day(-7)),
			want:     WorkoutStreak{CurrentStreak: 0, BestStreak: 3, MonthlyCount: 4, MonthlyGoal: 12},
		},
		{
			name:     "two sessions in a day count once for streaks",
			workouts: workoutsOn(day(0), day(0).Add(6*time.Hour), day(-1)),
			want:     WorkoutStreak{CurrentStreak: 2, BestStreak: 2, MonthlyCount: 3, MonthlyGoal: 12},
		},
		{
			name:     "previous month excluded from monthly count",
			workouts: workoutsOn(day(0), day(-20)),
			want:     WorkoutStreak{CurrentStreak: 1, BestStreak: 1, MonthlyCount: 1, MonthlyGoal: 12},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComputeStreak(tt.workouts, now, 12); got != tt.want {
				t.Errorf("ComputeStreak() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeWeeklyActivity(t *testing.T) {
	// Wednesday 2026-03-18
	now := time.Date(2026, 3, 18, 20, 0, 0, 0, time.UTC)

	empty := ComputeWeeklyActivity(nil, now)
	if empty.ActiveDays != 0 || empty.DaysSinceLastWorkout != nil || empty.LastWorkout != nil {
		t.Errorf("empty = %+v, want zero value", empty)
	}

	got := ComputeWeeklyActivity(workoutsOn(
		time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC), // Sunday, previous week
		time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 17, 7, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 17, 18, 0, 0, 0, time.UTC),
	), now)
	if got.ActiveDays != 2 {
		t.Errorf("ActiveDays = %d, want 2", got.ActiveDays)
	}
	if got.DaysSinceLastWorkout == nil || *got.DaysSinceLastWorkout != 1 {
		t.Errorf("DaysSinceLastWorkout = %v, want 1", got.DaysSinceLastWorkout)
	}
	if got.LastWorkout == nil || got.LastWorkout.Date.Hour() != 18 {
		t.Errorf("LastWorkout = %+v, want the evening session", got.LastWorkout)
	}
}
