package analysis

import (
	"math"
	"testing"
	"time"

	"dune-health/internal/health"
)

func TestComputeTrainingReadinessNeutral(t *testing.T) {
	r := ComputeTrainingReadiness(ReadinessInput{Params: DefaultConditionParams()})

	want := ReadinessComponents{
		HRVScore:     50,
		RHRScore:     50,
		SleepScore:   50,
		FatigueScore: 80,
		TrendBonus:   50,
	}
	if r.Components != want {
		t.Errorf("Components = %+v, want %+v", r.Components, want)
	}
	if got := r.Components.WeightedTotal(); math.Abs(got-54.5) > 1e-9 {
		t.Errorf("WeightedTotal() = %v, want 54.5", got)
	}
	if r.Score != 55 {
		t.Errorf("Score = %d, want 55", r.Score)
	}
	if !r.IsCalibrating {
		t.Error("IsCalibrating should be true without HRV history")
	}
	if r.Status() != ReadinessLight {
		t.Errorf("Status() = %v, want light", r.Status())
	}
}

func TestComputeTrainingReadinessNonFiniteInputs(t *testing.T) {
	end := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)
	bad := []float64{math.NaN(), math.Inf(1), math.Inf(-1)}

	for _, v := range bad {
		in := ReadinessInput{
			DailyHRV:             dailySeries(end, v, v, v, v, v, v, v, v),
			TodayRHR:             floatPtr(v),
			RHRBaseline:          floatPtr(v),
			SleepMinutes:         floatPtr(v),
			SleepBaselineMinutes: floatPtr(v),
			SleepStageMinutes: map[health.SleepStageKind]float64{
				health.StageDeep: v,
				health.StageCore: 200,
			},
			FatigueStates: []MuscleFatigueState{{
				Muscle:        health.MuscleChest,
				CompoundScore: &CompoundFatigueScore{NormalizedScore: v, Level: FatigueHigh},
			}},
			HRVTrend: &TrendAnalysis{Direction: TrendRising, ConsecutiveDays: 3, ChangePercent: v},
			Params:   DefaultConditionParams(),
		}

		r := ComputeTrainingReadiness(in)
		if r.Score < 0 || r.Score > 100 {
			t.Errorf("Score = %d for input %v, want within [0,100]", r.Score, v)
		}
		c := r.Components
		for name, s := range map[string]int{
			"hrv": c.HRVScore, "rhr": c.RHRScore, "sleep": c.SleepScore,
			"fatigue": c.FatigueScore, "trend": c.TrendBonus,
		} {
			if s < 0 || s > 100 {
				t.Errorf("%s subscore = %d for input %v, want within [0,100]", name, s, v)
			}
		}
		if c.HRVScore != NeutralScore || c.RHRScore != NeutralScore || c.SleepScore != NeutralScore {
			t.Errorf("non-finite inputs should be neutral, got %+v", c)
		}
		if c.FatigueScore != DefaultFatigueSub {
			t.Errorf("FatigueScore = %d, want %d", c.FatigueScore, DefaultFatigueSub)
		}
	}
}

func TestComputeTrainingReadinessExtremes(t *testing.T) {
	end := time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC)

	best := ComputeTrainingReadiness(ReadinessInput{
		DailyHRV:     dailySeries(end, 50, 50, 50, 50, 50, 50, 50, 200),
		TodayRHR:     floatPtr(40),
		RHRBaseline:  floatPtr(60),
		SleepMinutes: floatPtr(540),
		HRVTrend:     &TrendAnalysis{Direction: TrendRising, ConsecutiveDays: 9},
		Params:       DefaultConditionParams(),
	})
	if best.Score > 100 {
		t.Errorf("Score = %d, want <= 100", best.Score)
	}
	if best.Components.HRVScore != 100 || best.Components.TrendBonus != 100 {
		t.Errorf("Components = %+v, want clamped maxima", best.Components)
	}
	if best.IsCalibrating {
		t.Error("eight days of HRV should not be calibrating")
	}

	worst := ComputeTrainingReadiness(ReadinessInput{
		DailyHRV:     dailySeries(end, 80, 80, 80, 80, 80, 80, 80, 5),
		TodayRHR:     floatPtr(90),
		RHRBaseline:  floatPtr(50),
		SleepMinutes: floatPtr(30),
		HRVTrend:     &TrendAnalysis{Direction: TrendFalling, ConsecutiveDays: 6},
		Params:       DefaultConditionParams(),
	})
	if worst.Score < 0 {
		t.Errorf("Score = %d, want >= 0", worst.Score)
	}
	if worst.Status() != ReadinessRest {
		t.Errorf("Status() = %v, want rest", worst.Status())
	}
}

func TestSleepSubscore(t *testing.T) {
	tests := []struct {
		name     string
		minutes  *float64
		stages   map[health.SleepStageKind]float64
		baseline *float64
		want     int
	}{
		{"missing", nil, nil, nil, 50},
		{"over a day", floatPtr(1500), nil, nil, 50},
		{"full default target", floatPtr(480), nil, nil, 100},
		{"half default target", floatPtr(240), nil, nil, 50},
		{"baseline floors at 420", floatPtr(420), nil, floatPtr(300), 100},
		{"baseline raises target", floatPtr(450), nil, floatPtr(500), 90},
		{
			name:    "restorative stages blend",
			minutes: floatPtr(480),
			stages: map[health.SleepStageKind]float64{
				health.StageCore: 360,
				health.StageDeep: 60,
				health.StageREM:  60,
			},
			// ratio 0.25 -> quality 55.6; 100*0.7 + 55.6*0.3
			want: 87,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sleepSubscore(tt.minutes, tt.stages, tt.baseline); got != tt.want {
				t.Errorf("sleepSubscore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFatigueSubscore(t *testing.T) {
	state := func(m health.Muscle, n float64, level FatigueLevel) MuscleFatigueState {
		return MuscleFatigueState{
			Muscle:        m,
			CompoundScore: &CompoundFatigueScore{Muscle: m, NormalizedScore: n, Level: level},
		}
	}

	tests := []struct {
		name   string
		states []MuscleFatigueState
		want   int
	}{
		{"no states", nil, DefaultFatigueSub},
		{"only no-data", []MuscleFatigueState{state(health.MuscleChest, 0, FatigueNoData)}, DefaultFatigueSub},
		{
			name: "top three averaged",
			states: []MuscleFatigueState{
				state(health.MuscleChest, 0.6, FatigueHigh),
				state(health.MuscleBack, 0.5, FatigueNotable),
				state(health.MuscleLats, 0.4, FatigueModerate),
				state(health.MuscleCalves, 0.1, FatigueWellRested),
			},
			want: 50,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fatigueSubscore(tt.states); got != tt.want {
				t.Errorf("fatigueSubscore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTrendSubscore(t *testing.T) {
	tests := []struct {
		trend *TrendAnalysis
		want  int
	}{
		{nil, 50},
		{&TrendAnalysis{Direction: TrendInsufficient}, 50},
		{&TrendAnalysis{Direction: TrendStable, ConsecutiveDays: 2}, 50},
		{&TrendAnalysis{Direction: TrendRising, ConsecutiveDays: 3}, 80},
		{&TrendAnalysis{Direction: TrendFalling, ConsecutiveDays: 4}, 10},
		{&TrendAnalysis{Direction: TrendFalling, ConsecutiveDays: 12}, 0},
	}
	for _, tt := range tests {
		if got := trendSubscore(tt.trend); got != tt.want {
			t.Errorf("trendSubscore(%+v) = %d, want %d", tt.trend, got, tt.want)
		}
	}
}

func TestReadinessStatusFor(t *testing.T) {
	tests := []struct {
		score int
		want  ReadinessStatus
	}{
		{100, ReadinessReady},
		{80, ReadinessReady},
		{79, ReadinessModerate},
		{60, ReadinessModerate},
		{59, ReadinessLight},
		{40, ReadinessLight},
		{39, ReadinessRest},
		{0, ReadinessRest},
	}
	for _, tt := range tests {
		if got := ReadinessStatusFor(tt.score); got != tt.want {
			t.Errorf("ReadinessStatusFor(%d) = %v, want %v", tt.score, got, tt.want)
		}
	}
}
