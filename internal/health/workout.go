package health

import "time"

// Muscle identifies a trainable muscle group
type Muscle string

const (
	MuscleChest      Muscle = "chest"
	MuscleBack       Muscle = "back"
	MuscleLats       Muscle = "lats"
	MuscleTraps      Muscle = "traps"
	MuscleShoulders  Muscle = "shoulders"
	MuscleBiceps     Muscle = "biceps"
	MuscleTriceps    Muscle = "triceps"
	MuscleForearms   Muscle = "forearms"
	MuscleCore       Muscle = "core"
	MuscleQuadriceps Muscle = "quadriceps"
	MuscleHamstrings Muscle = "hamstrings"
	MuscleGlutes     Muscle = "glutes"
	MuscleCalves     Muscle = "calves"
)

// AllMuscles lists every tracked muscle
var AllMuscles = []Muscle{
	MuscleChest, MuscleBack, MuscleLats, MuscleTraps, MuscleShoulders,
	MuscleBiceps, MuscleTriceps, MuscleForearms, MuscleCore,
	MuscleQuadriceps, MuscleHamstrings, MuscleGlutes, MuscleCalves,
}

// InputKind describes what an exercise records per set
type InputKind string

const (
	InputWeightReps        InputKind = "weight_reps"
	InputReps              InputKind = "reps"
	InputDurationDistance  InputKind = "duration_distance"
	InputDurationIntensity InputKind = "duration_intensity"
	InputRounds            InputKind = "rounds"
	InputDuration          InputKind = "duration"
)

// WorkoutSet is a single set. Nil fields were not recorded.
type WorkoutSet struct {
	Weight   *float64 // kg
	Reps     *int
	Duration *time.Duration
	Distance *float64 // meters
	Rounds   *int
	// Intensity is a manual 1-10 rating for duration_intensity exercises
	Intensity *int
	IsWarmup  bool
}

// ExerciseRecord is one exercise performed within a workout
type ExerciseRecord struct {
	Name             string
	InputKind        InputKind
	PrimaryMuscles   []Muscle
	SecondaryMuscles []Muscle
	Sets             []WorkoutSet
}

// Workout is a completed training session
type Workout struct {
	ID           string
	Date         time.Time
	ActivityType string
	Duration     time.Duration
	// AverageHeartRate is set for tracked cardio sessions
	AverageHeartRate *float64
	// RPE is the user's 1-10 session rating of perceived exertion
	RPE       *int
	Exercises []ExerciseRecord
	// IntensityRaw and Effort are filled in after scoring
	IntensityRaw *float64
	Effort       *int
}

// PrimaryInputKind returns the input kind of the first exercise, or InputDuration
func (w Workout) PrimaryInputKind() InputKind {
	if len(w.Exercises) == 0 || w.Exercises[0].InputKind == "" {
		return InputDuration
	}
	return w.Exercises[0].InputKind
}

// IsCardio reports whether the workout carries no set-based exercises
func (w Workout) IsCardio() bool {
	for _, ex := range w.Exercises {
		if len(ex.Sets) > 0 && ex.InputKind != InputDurationDistance && ex.InputKind != InputDuration {
			return false
		}
	}
	return true
}

// WeatherSnapshot is a read-only observation from the weather provider
type WeatherSnapshot struct {
	TemperatureC             float64
	FeelsLikeC               float64
	UVIndex                  float64
	PrecipitationProbability float64 // 0-1
	Condition                string
	IsRaining                bool
	ObservedAt               time.Time
}
