package health

import (
	"context"
	"strings"
	"time"
)

// SourceKind identifies one upstream data source feeding a snapshot
type SourceKind uint8

const (
	SourceHRV SourceKind = 1 << iota
	SourceRHR
	SourceSleep
)

// AllSources lists every source kind in display order
var AllSources = []SourceKind{SourceHRV, SourceRHR, SourceSleep}

func (k SourceKind) String() string {
	switch k {
	case SourceHRV:
		return "hrv"
	case SourceRHR:
		return "restingHeartRate"
	case SourceSleep:
		return "sleep"
	default:
		return "unknown"
	}
}

// SourceSet is an immutable set of source kinds. Add returns a new set.
type SourceSet uint8

// NewSourceSet builds a set from the given kinds
func NewSourceSet(kinds ...SourceKind) SourceSet {
	var s SourceSet
	for _, k := range kinds {
		s = s.Add(k)
	}
	return s
}

// Add returns a copy of the set including k
func (s SourceSet) Add(k SourceKind) SourceSet {
	return s | SourceSet(k)
}

// Has reports whether k is in the set
func (s SourceSet) Has(k SourceKind) bool {
	return s&SourceSet(k) != 0
}

// Empty reports whether no source is in the set
func (s SourceSet) Empty() bool {
	return s == 0
}

// Kinds lists the members in AllSources order
func (s SourceSet) Kinds() []SourceKind {
	var out []SourceKind
	for _, k := range AllSources {
		if s.Has(k) {
			out = append(out, k)
		}
	}
	return out
}

func (s SourceSet) String() string {
	kinds := s.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return "[" + strings.Join(names, ",") + "]"
}

// HRVQuerier reads heart rate variability and resting heart rate from the provider
type HRVQuerier interface {
	FetchHRVSamples(ctx context.Context, days int) ([]HRVSample, error)
	// FetchRestingHeartRate returns nil when no reading exists for the day
	FetchRestingHeartRate(ctx context.Context, date time.Time) (*float64, error)
	// FetchLatestRestingHeartRate returns nil when nothing was recorded within the window
	FetchLatestRestingHeartRate(ctx context.Context, withinDays int) (*RHRReading, error)
	FetchRHRCollection(ctx context.Context, start, end time.Time, interval time.Duration) ([]RHRDailyStat, error)
}

// SleepQuerier reads sleep data from the provider
type SleepQuerier interface {
	FetchSleepStages(ctx context.Context, date time.Time) ([]SleepStage, error)
	// FetchLatestSleepStages returns nil when no night was recorded within the window
	FetchLatestSleepStages(ctx context.Context, withinDays int) (*SleepReading, error)
	FetchDailySleepDurations(ctx context.Context, start, end time.Time) ([]DailySleep, error)
}

// WorkoutQuerier reads completed workouts
type WorkoutQuerier interface {
	ListWorkouts(ctx context.Context, start, end time.Time) ([]Workout, error)
}

// WeatherProvider supplies the current weather for the user's location
type WeatherProvider interface {
	CurrentWeather(ctx context.Context) (*WeatherSnapshot, error)
}

// SettingsStore is a simple keyed get/set persistence for user preferences.
// Get returns "" with a nil error when the key is unset.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
