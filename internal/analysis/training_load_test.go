package analysis

import (
	"math"
	"testing"
	"time"

	"dune-health/internal/health"
)

func TestDefaultZones(t *testing.T) {
	zones := DefaultZones()

	if zones.RestingHR != 50 {
		t.Errorf("DefaultZones().RestingHR = %v, want 50", zones.RestingHR)
	}
	if zones.MaxHR != 185 {
		t.Errorf("DefaultZones().MaxHR = %v, want 185", zones.MaxHR)
	}
}

func TestTRIMP(t *testing.T) {
	defaultZones := DefaultZones()

	tests := []struct {
		name     string
		workout  health.Workout
		zones    HRZones
		expected float64
		delta    float64
	}{
		{
			name: "one hour at 150 bpm",
			workout: health.Workout{
				Duration:         time.Hour,
				AverageHeartRate: floatPtr(150),
			},
			zones: defaultZones,
			// hrRatio = (150-50)/(185-50) = 0.741
			// TRIMP = 60 * 0.741 * e^(1.92*0.741)
			expected: 184.3,
			delta:    1,
		},
		{
			name:     "no HR data available",
			workout:  health.Workout{Duration: time.Hour},
			zones:    defaultZones,
			expected: 0,
		},
		{
			name: "NaN heart rate",
			workout: health.Workout{
				Duration:         time.Hour,
				AverageHeartRate: floatPtr(math.NaN()),
			},
			zones:    defaultZones,
			expected: 0,
		},
		{
			name: "zero HR reserve",
			workout: health.Workout{
				Duration:         time.Hour,
				AverageHeartRate: floatPtr(150),
			},
			zones:    HRZones{RestingHR: 100, MaxHR: 100},
			expected: 0,
		},
		{
			name: "HR below resting - clamped to 0",
			workout: health.Workout{
				Duration:         time.Hour,
				AverageHeartRate: floatPtr(40),
			},
			zones:    defaultZones,
			expected: 0,
		},
		{
			name: "HR above max - clamped to 1",
			workout: health.Workout{
				Duration:         time.Hour,
				AverageHeartRate: floatPtr(200),
			},
			zones: defaultZones,
			// TRIMP = 60 * 1.0 * e^1.92
			expected: 409,
			delta:    2,
		},
		{
			name: "short easy session",
			workout: health.Workout{
				Duration:         30 * time.Minute,
				AverageHeartRate: floatPtr(130),
			},
			zones:    defaultZones,
			expected: 55.5,
			delta:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TRIMP(tt.workout, tt.zones)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("TRIMP() = %v, want %v (±%v)", result, tt.expected, tt.delta)
			}
		})
	}
}

func TestSessionLoad(t *testing.T) {
	tests := []struct {
		name     string
		workout  health.Workout
		expected float64
	}{
		{
			name:     "rated session without HR",
			workout:  health.Workout{Duration: time.Hour, RPE: intPtr(8)},
			expected: 60 * 8 * sessionRPEScale,
		},
		{
			name:     "unrated session assumes RPE 5",
			workout:  health.Workout{Duration: time.Hour},
			expected: 60 * 5 * sessionRPEScale,
		},
		{
			name:     "invalid RPE treated as unrated",
			workout:  health.Workout{Duration: time.Hour, RPE: intPtr(0)},
			expected: 60 * 5 * sessionRPEScale,
		},
		{
			name:     "zero duration",
			workout:  health.Workout{RPE: intPtr(9)},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SessionLoad(tt.workout, DefaultZones())
			if math.Abs(got-tt.expected) > 0.001 {
				t.Errorf("SessionLoad() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDailyLoads(t *testing.T) {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	workouts := []health.Workout{
		{Date: day.Add(18 * time.Hour), Duration: time.Hour},
		{Date: day.Add(7 * time.Hour), Duration: 30 * time.Minute},
		{Date: day.AddDate(0, 0, -2).Add(9 * time.Hour), Duration: time.Hour},
	}

	loads := DailyLoads(workouts, DefaultZones())
	if len(loads) != 2 {
		t.Fatalf("DailyLoads() returned %d days, want 2", len(loads))
	}
	if !loads[0].Date.Before(loads[1].Date) {
		t.Error("DailyLoads() should be sorted ascending")
	}
	if want := 90 * 5 * sessionRPEScale; math.Abs(loads[1].Load-want) > 0.001 {
		t.Errorf("combined day load = %v, want %v", loads[1].Load, want)
	}
}

func TestCalculateFitnessTrend(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	t.Run("empty loads", func(t *testing.T) {
		if got := CalculateFitnessTrend(nil, day); got != nil {
			t.Errorf("CalculateFitnessTrend(nil) = %v, want nil", got)
		}
	})

	t.Run("single load extends to end date", func(t *testing.T) {
		metrics := CalculateFitnessTrend([]DailyLoad{{Date: day, Load: 100}}, day.AddDate(0, 0, 3))
		if len(metrics) != 4 {
			t.Fatalf("got %d days, want 4", len(metrics))
		}
		first := metrics[0]
		if math.Abs(first.CTL-100*2.0/43.0) > 0.01 {
			t.Errorf("CTL = %v, want %v", first.CTL, 100*2.0/43.0)
		}
		if math.Abs(first.ATL-25) > 0.01 {
			t.Errorf("ATL = %v, want 25", first.ATL)
		}
		last := metrics[3]
		if last.ATL >= first.ATL || last.CTL >= first.CTL {
			t.Error("loads should decay on rest days")
		}
		if math.Abs(last.TSB-(last.CTL-last.ATL)) > 1e-9 {
			t.Errorf("TSB = %v, want CTL-ATL", last.TSB)
		}
	})
}

func TestLoadRatio(t *testing.T) {
	now := time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

	if got := LoadRatio(nil, DefaultZones(), now); got != nil {
		t.Errorf("LoadRatio(nil) = %v, want nil", *got)
	}

	// Steady training for a month then a heavy final week
	var workouts []health.Workout
	for i := 30; i >= 0; i-- {
		d := time.Hour
		if i < 7 {
			d = 2 * time.Hour
		}
		workouts = append(workouts, health.Workout{Date: now.AddDate(0, 0, -i), Duration: d})
	}
	ratio := LoadRatio(workouts, DefaultZones(), now)
	if ratio == nil {
		t.Fatal("LoadRatio() = nil, want value")
	}
	if *ratio <= 1 {
		t.Errorf("LoadRatio() = %v, want > 1 after a heavy week", *ratio)
	}
}

func TestLoadRatioLabel(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{1.6, "Overreaching"},
		{1.3, "Building"},
		{1.0, "Optimal"},
		{0.8, "Optimal"},
		{0.5, "Detraining"},
		{0, "No History"},
	}
	for _, tt := range tests {
		if got := LoadRatioLabel(tt.ratio); got != tt.want {
			t.Errorf("LoadRatioLabel(%v) = %q, want %q", tt.ratio, got, tt.want)
		}
	}
}
