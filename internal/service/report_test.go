package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"dune-health/internal/analysis"
	"dune-health/internal/health"
)

func TestWriteReport(t *testing.T) {
	workouts := &fakeWorkouts{workouts: []health.Workout{
		cardio("w1", testNow.AddDate(0, 0, -2), 40),
	}}
	weather := &fakeWeather{snap: &health.WeatherSnapshot{TemperatureC: 18, FeelsLikeC: 17, Condition: "clear", UVIndex: 3}}
	d := newTestDashboard(&fakeSnapshots{snap: fullSnapshot()}, workouts, weather, nil).Build(context.Background())

	var buf bytes.Buffer
	WriteReport(&buf, d)
	out := buf.String()

	for _, want := range []string{
		"Friday, Mar 20 09:00",
		"Condition   71 (good)",
		"Sleep       7h 00m",
		"last workout 2 days ago",
		"Weather     18°C (feels 17°C), clear, UV 3",
		d.Coaching.Focus.Title,
		"Data from 2 minutes ago",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport_Calibrating(t *testing.T) {
	snap := &health.Snapshot{
		BaselineStatus: health.BaselineStatus{DaysCollected: 3, DaysRequired: 7},
		FailedSources:  health.NewSourceSet(health.SourceSleep),
		FetchedAt:      testNow,
	}
	d := newTestDashboard(&fakeSnapshots{snap: snap}, &fakeWorkouts{}, nil, nil).Build(context.Background())

	var buf bytes.Buffer
	WriteReport(&buf, d)
	out := buf.String()

	if !strings.Contains(out, "calibrating, 3 of 7 days") {
		t.Errorf("report should show calibration progress:\n%s", out)
	}
	if !strings.Contains(out, "unavailable: ") {
		t.Errorf("report should list failed sources:\n%s", out)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes float64
		want    string
	}{
		{0, "0h 00m"},
		{59.6, "1h 00m"},
		{425, "7h 05m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.minutes); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestMostFatigued(t *testing.T) {
	mk := func(m health.Muscle, score float64, level analysis.FatigueLevel) analysis.MuscleFatigueState {
		return analysis.MuscleFatigueState{
			Muscle:        m,
			CompoundScore: &analysis.CompoundFatigueScore{Muscle: m, NormalizedScore: score, Level: level},
		}
	}
	states := []analysis.MuscleFatigueState{
		{Muscle: health.MuscleCalves},
		mk(health.MuscleChest, 0.3, analysis.FatigueLight),
		mk(health.MuscleQuadriceps, 0.8, analysis.FatigueVeryHigh),
		mk(health.MuscleBack, 0.5, analysis.FatigueModerate),
		mk(health.MuscleCore, 0.1, analysis.FatigueFullyRecovered),
	}

	got := mostFatigued(states, 3)
	if len(got) != 3 {
		t.Fatalf("got %d states, want 3", len(got))
	}
	want := []health.Muscle{health.MuscleQuadriceps, health.MuscleBack, health.MuscleChest}
	for i, m := range want {
		if got[i].Muscle != m {
			t.Errorf("got[%d] = %s, want %s", i, got[i].Muscle, m)
		}
	}
}
