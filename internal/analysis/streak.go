package analysis

import (
	"sort"
	"time"

	"dune-health/internal/health"
)

// WorkoutStreak summarizes consecutive training days and monthly progress
type WorkoutStreak struct {
	CurrentStreak int
	BestStreak    int
	MonthlyCount  int
	MonthlyGoal   int
}

// ComputeStreak counts consecutive training days. The current streak stays alive
// through today if the last workout was yesterday.
func ComputeStreak(workouts []health.Workout, now time.Time, monthlyGoal int) WorkoutStreak {
	streak := WorkoutStreak{MonthlyGoal: monthlyGoal}
	today := health.StartOfDay(now)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

	seen := make(map[time.Time]bool)
	var days []time.Time
	for _, w := range workouts {
		d := health.StartOfDay(w.Date)
		if d.After(today) {
			continue
		}
		if !d.Before(monthStart) {
			streak.MonthlyCount++
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return streak
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	streak.BestStreak = 1
	for i := 1; i < len(days); i++ {
		if health.SameDay(days[i-1].AddDate(0, 0, 1), days[i]) {
			run++
		} else {
			run = 1
		}
		if run > streak.BestStreak {
			streak.BestStreak = run
		}
	}

	last := days[len(days)-1]
	if health.SameDay(last, today) || health.SameDay(last.AddDate(0, 0, 1), today) {
		streak.CurrentStreak = run
	}
	return streak
}

// WeeklyActivity is the training summary of the current week (Monday start)
type WeeklyActivity struct {
	ActiveDays int
	// DaysSinceLastWorkout is nil when there is no workout on record
	DaysSinceLastWorkout *int
	LastWorkout          *health.Workout
}

// ComputeWeeklyActivity counts distinct training days since Monday and the
// days elapsed since the most recent workout
func ComputeWeeklyActivity(workouts []health.Workout, now time.Time) WeeklyActivity {
	today := health.StartOfDay(now)
	offset := (int(today.Weekday()) + 6) % 7
	weekStart := today.AddDate(0, 0, -offset)

	var out WeeklyActivity
	seen := make(map[time.Time]bool)
	for i := range workouts {
		w := workouts[i]
		d := health.StartOfDay(w.Date)
		if d.After(today) {
			continue
		}
		if !d.Before(weekStart) && !seen[d] {
			seen[d] = true
			out.ActiveDays++
		}
		if out.LastWorkout == nil || w.Date.After(out.LastWorkout.Date) {
			out.LastWorkout = &w
		}
	}
	if out.LastWorkout != nil {
		days := int(today.Sub(health.StartOfDay(out.LastWorkout.Date)).Hours()/24 + 0.5)
		out.DaysSinceLastWorkout = &days
	}
	return out
}
