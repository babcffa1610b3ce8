package provider

import (
	"time"

	"dune-health/internal/health"
)

// Wire types returned by the provider API

type hrvSample struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

type rhrValue struct {
	Value *float64 `json:"value"`
}

type rhrReading struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

type rhrStat struct {
	Date    time.Time `json:"date"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Average float64   `json:"average"`
}

type sleepStage struct {
	Stage string    `json:"stage"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type sleepNight struct {
	Date   time.Time    `json:"date"`
	Stages []sleepStage `json:"stages"`
}

type dailySleep struct {
	Date         time.Time          `json:"date"`
	TotalMinutes float64            `json:"total_minutes"`
	Stages       map[string]float64 `json:"stages"`
}

type weather struct {
	TemperatureC             float64   `json:"temperature_c"`
	FeelsLikeC               float64   `json:"feels_like_c"`
	UVIndex                  float64   `json:"uv_index"`
	PrecipitationProbability float64   `json:"precipitation_probability"`
	Condition                string    `json:"condition"`
	IsRaining                bool      `json:"is_raining"`
	ObservedAt               time.Time `json:"observed_at"`
}

type workoutSet struct {
	Weight          *float64 `json:"weight_kg"`
	Reps            *int     `json:"reps"`
	DurationSeconds *float64 `json:"duration_seconds"`
	Distance        *float64 `json:"distance_m"`
	Rounds          *int     `json:"rounds"`
	Intensity       *int     `json:"intensity"`
	IsWarmup        bool     `json:"is_warmup"`
}

type exercise struct {
	Name             string       `json:"name"`
	InputKind        string       `json:"input_kind"`
	PrimaryMuscles   []string     `json:"primary_muscles"`
	SecondaryMuscles []string     `json:"secondary_muscles"`
	Sets             []workoutSet `json:"sets"`
}

type workout struct {
	ID               string     `json:"id"`
	StartDate        time.Time  `json:"start_date"`
	ActivityType     string     `json:"activity_type"`
	DurationSeconds  float64    `json:"duration_seconds"`
	AverageHeartRate *float64   `json:"average_heartrate"`
	RPE              *int       `json:"rpe"`
	Exercises        []exercise `json:"exercises"`
}

func (s sleepStage) toHealth() health.SleepStage {
	return health.SleepStage{
		Stage:     health.ParseSleepStageKind(s.Stage),
		Duration:  s.End.Sub(s.Start),
		StartDate: s.Start,
		EndDate:   s.End,
	}
}

func toStages(in []sleepStage) []health.SleepStage {
	out := make([]health.SleepStage, 0, len(in))
	for _, s := range in {
		if !s.End.After(s.Start) {
			continue
		}
		out = append(out, s.toHealth())
	}
	return out
}

func (w workout) toHealth() health.Workout {
	out := health.Workout{
		ID:               w.ID,
		Date:             w.StartDate,
		ActivityType:     w.ActivityType,
		Duration:         time.Duration(w.DurationSeconds * float64(time.Second)),
		AverageHeartRate: w.AverageHeartRate,
		RPE:              w.RPE,
	}
	for _, e := range w.Exercises {
		rec := health.ExerciseRecord{
			Name:             e.Name,
			InputKind:        health.InputKind(e.InputKind),
			PrimaryMuscles:   toMuscles(e.PrimaryMuscles),
			SecondaryMuscles: toMuscles(e.SecondaryMuscles),
		}
		for _, s := range e.Sets {
			set := health.WorkoutSet{
				Weight:    s.Weight,
				Reps:      s.Reps,
				Distance:  s.Distance,
				Rounds:    s.Rounds,
				Intensity: s.Intensity,
				IsWarmup:  s.IsWarmup,
			}
			if s.DurationSeconds != nil {
				d := time.Duration(*s.DurationSeconds * float64(time.Second))
				set.Duration = &d
			}
			rec.Sets = append(rec.Sets, set)
		}
		out.Exercises = append(out.Exercises, rec)
	}
	return out
}

func toMuscles(names []string) []health.Muscle {
	if len(names) == 0 {
		return nil
	}
	out := make([]health.Muscle, len(names))
	for i, n := range names {
		out[i] = health.Muscle(n)
	}
	return out
}
