package service

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/dustin/go-humanize"

	"dune-health/internal/analysis"
)

// maxReportedMuscles bounds the fatigue lines in a report
const maxReportedMuscles = 3

// WriteReport prints a plain-text dashboard
func WriteReport(w io.Writer, d *Dashboard) {
	fmt.Fprintf(w, "%s\n\n", d.GeneratedAt.Format("Monday, Jan 2 15:04"))

	if d.Condition != nil {
		fmt.Fprintf(w, "  Condition   %d (%s)\n", d.Condition.Score, d.Condition.Status())
	} else {
		fmt.Fprintf(w, "  Condition   calibrating, %d of %d days\n", d.Baseline.DaysCollected, d.Baseline.DaysRequired)
	}

	readiness := fmt.Sprintf("%d (%s)", d.Readiness.Score, d.Readiness.Status())
	if d.Readiness.IsCalibrating {
		readiness += ", calibrating"
	}
	fmt.Fprintf(w, "  Readiness   %s\n", readiness)
	fmt.Fprintf(w, "  HRV trend   %s\n", formatTrend(d.HRVTrend))
	fmt.Fprintf(w, "  RHR trend   %s\n", formatTrend(d.RHRTrend))

	if d.SleepMinutes != nil {
		fmt.Fprintf(w, "  Sleep       %s\n", formatDuration(*d.SleepMinutes))
	}
	if d.LoadRatio != nil {
		fmt.Fprintf(w, "  Load ratio  %.2f (%s)\n", *d.LoadRatio, analysis.LoadRatioLabel(*d.LoadRatio))
	}

	streak := fmt.Sprintf("%s (best %s)", pluralDays(d.Streak.CurrentStreak), pluralDays(d.Streak.BestStreak))
	if d.Streak.MonthlyGoal > 0 {
		streak += fmt.Sprintf(", %d/%d this month", d.Streak.MonthlyCount, d.Streak.MonthlyGoal)
	}
	fmt.Fprintf(w, "  Streak      %s\n", streak)

	week := fmt.Sprintf("%d active days", d.Weekly.ActiveDays)
	if last := d.Weekly.LastWorkout; last != nil {
		week += fmt.Sprintf(", last workout %s", humanize.RelTime(last.Date, d.GeneratedAt, "ago", "from now"))
	}
	fmt.Fprintf(w, "  This week   %s\n", week)

	if wx := d.Weather; wx != nil {
		fmt.Fprintf(w, "  Weather     %.0f°C (feels %.0f°C), %s, UV %.0f\n", wx.TemperatureC, wx.FeelsLikeC, wx.Condition, wx.UVIndex)
	}

	for _, st := range mostFatigued(d.Fatigue, maxReportedMuscles) {
		fmt.Fprintf(w, "  Fatigue     %s: %s (%d)\n", st.Muscle, st.CompoundScore.Level, st.CompoundScore.Level)
	}

	fmt.Fprintf(w, "\n  %s\n  %s\n", d.Coaching.Focus.Title, d.Coaching.Focus.Message)
	for _, c := range d.Coaching.Cards {
		fmt.Fprintf(w, "    - %s: %s\n", c.Title, c.Message)
	}

	if d.Snapshot != nil {
		fmt.Fprintf(w, "\n  Data from %s", humanize.RelTime(d.Snapshot.FetchedAt, d.GeneratedAt, "ago", "from now"))
		if !d.Snapshot.FailedSources.Empty() {
			fmt.Fprintf(w, ", unavailable: %s", d.Snapshot.FailedSources)
		}
		fmt.Fprintln(w)
	}
}

func formatTrend(t analysis.TrendAnalysis) string {
	if t.Direction == analysis.TrendInsufficient {
		return t.Direction.String()
	}
	return fmt.Sprintf("%s (%+.1f%%, %s)", t.Direction, t.ChangePercent, pluralDays(t.ConsecutiveDays))
}

func formatDuration(minutes float64) string {
	m := int(math.Round(minutes))
	return fmt.Sprintf("%dh %02dm", m/60, m%60)
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return humanize.Comma(int64(n)) + " days"
}

// mostFatigued returns up to n loaded muscles, most fatigued first
func mostFatigued(states []analysis.MuscleFatigueState, n int) []analysis.MuscleFatigueState {
	var loaded []analysis.MuscleFatigueState
	for _, st := range states {
		if st.CompoundScore != nil && st.CompoundScore.Level > analysis.FatigueNoData {
			loaded = append(loaded, st)
		}
	}
	sort.SliceStable(loaded, func(i, j int) bool {
		return loaded[i].CompoundScore.NormalizedScore > loaded[j].CompoundScore.NormalizedScore
	})
	if len(loaded) > n {
		loaded = loaded[:n]
	}
	return loaded
}
