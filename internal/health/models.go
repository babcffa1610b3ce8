package health

import (
	"sort"
	"time"
)

// HRVSample is a single heart rate variability reading (SDNN, milliseconds)
type HRVSample struct {
	Value float64
	Date  time.Time
}

// SleepStageKind identifies a sleep stage reported by the provider
type SleepStageKind int

const (
	StageUnspecified SleepStageKind = iota
	StageAwake
	StageCore
	StageDeep
	StageREM
)

// String returns the wire name of the stage
func (k SleepStageKind) String() string {
	switch k {
	case StageAwake:
		return "awake"
	case StageCore:
		return "core"
	case StageDeep:
		return "deep"
	case StageREM:
		return "rem"
	default:
		return "unspecified"
	}
}

// ParseSleepStageKind maps a wire name back to a stage. Unknown names map to StageUnspecified.
func ParseSleepStageKind(s string) SleepStageKind {
	switch s {
	case "awake":
		return StageAwake
	case "core":
		return StageCore
	case "deep":
		return StageDeep
	case "rem":
		return StageREM
	default:
		return StageUnspecified
	}
}

// SleepStage is one contiguous block of a single sleep stage
type SleepStage struct {
	Stage     SleepStageKind
	Duration  time.Duration
	StartDate time.Time
	EndDate   time.Time
}

// RHRReading is a resting heart rate value with the day it was measured
type RHRReading struct {
	Value float64
	Date  time.Time
}

// RHRDailyStat summarizes resting heart rate for one collection interval
type RHRDailyStat struct {
	Date    time.Time
	Min     float64
	Max     float64
	Average float64
}

// SleepReading is the most recent night of sleep found within a lookback window
type SleepReading struct {
	Stages []SleepStage
	Date   time.Time
}

// DailySleep is the total sleep for one night with a per-stage breakdown in minutes
type DailySleep struct {
	Date           time.Time
	TotalMinutes   float64
	StageBreakdown map[SleepStageKind]float64
}

// BaselineStatus reports how much HRV history backs the condition score
type BaselineStatus struct {
	DaysCollected int
	DaysRequired  int
}

// IsReady reports whether enough history exists for a non-calibrating score
func (b BaselineStatus) IsReady() bool {
	return b.DaysRequired > 0 && b.DaysCollected >= b.DaysRequired
}

// Progress returns collected/required clamped to [0,1]
func (b BaselineStatus) Progress() float64 {
	if b.DaysRequired <= 0 {
		return 1
	}
	p := float64(b.DaysCollected) / float64(b.DaysRequired)
	if p > 1 {
		return 1
	}
	return p
}

// ConditionDetail exposes the intermediate values behind a condition score
type ConditionDetail struct {
	ZScore          float64
	BaselineHRV     float64
	StdDev          float64
	EffectiveStdDev float64
	RHRPenalty      float64
	RawScore        float64
	DaysInBaseline  int
}

// ConditionScore is the daily HRV-based condition score, always within [0,100]
type ConditionScore struct {
	Score  int
	Date   time.Time
	Detail *ConditionDetail
}

// ConditionStatus buckets a condition score
type ConditionStatus int

const (
	ConditionWarning ConditionStatus = iota
	ConditionTired
	ConditionFair
	ConditionGood
	ConditionExcellent
)

// Status maps the score onto its bucket
func (c ConditionScore) Status() ConditionStatus {
	return ConditionStatusFor(c.Score)
}

// ConditionStatusFor maps a 0-100 score onto a status bucket
func ConditionStatusFor(score int) ConditionStatus {
	switch {
	case score >= 80:
		return ConditionExcellent
	case score >= 60:
		return ConditionGood
	case score >= 40:
		return ConditionFair
	case score >= 20:
		return ConditionTired
	default:
		return ConditionWarning
	}
}

func (s ConditionStatus) String() string {
	switch s {
	case ConditionExcellent:
		return "excellent"
	case ConditionGood:
		return "good"
	case ConditionFair:
		return "fair"
	case ConditionTired:
		return "tired"
	default:
		return "warning"
	}
}

// Snapshot is the immutable aggregate produced by one cache fill.
// Callers share the same value and must treat every field as read-only.
type Snapshot struct {
	ID string

	HRVSamples []HRVSample

	TodayRHR      *float64
	YesterdayRHR  *float64
	LatestRHR     *RHRReading
	RHRCollection []RHRDailyStat

	TodaySleepStages     []SleepStage
	YesterdaySleepStages []SleepStage
	LatestSleep          *SleepReading
	DailySleep           []DailySleep

	Condition      *ConditionScore
	BaselineStatus BaselineStatus

	FailedSources SourceSet
	FetchedAt     time.Time
}

// EffectiveRHR returns today's resting heart rate, falling back to the latest reading
func (s *Snapshot) EffectiveRHR() *float64 {
	if s.TodayRHR != nil {
		return s.TodayRHR
	}
	if s.LatestRHR != nil {
		v := s.LatestRHR.Value
		return &v
	}
	return nil
}

// LastNightStages returns today's stages, or the latest night found within the lookback window
func (s *Snapshot) LastNightStages() []SleepStage {
	if len(s.TodaySleepStages) > 0 {
		return s.TodaySleepStages
	}
	if s.LatestSleep != nil {
		return s.LatestSleep.Stages
	}
	return nil
}

// RHRBaseline averages the RHR collection, excluding the entry for today's date.
// Returns nil when no prior data exists.
func (s *Snapshot) RHRBaseline(today time.Time) *float64 {
	var sum float64
	var n int
	for _, stat := range s.RHRCollection {
		if SameDay(stat.Date, today) || stat.Average <= 0 {
			continue
		}
		sum += stat.Average
		n++
	}
	if n == 0 {
		if s.YesterdayRHR != nil {
			v := *s.YesterdayRHR
			return &v
		}
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// SleepMinutes sums asleep time across stages, excluding awake blocks
func SleepMinutes(stages []SleepStage) float64 {
	var total time.Duration
	for _, st := range stages {
		if st.Stage == StageAwake {
			continue
		}
		total += st.Duration
	}
	return total.Minutes()
}

// StageMinutes sums the minutes spent in each stage
func StageMinutes(stages []SleepStage) map[SleepStageKind]float64 {
	out := make(map[SleepStageKind]float64)
	for _, st := range stages {
		out[st.Stage] += st.Duration.Minutes()
	}
	return out
}

// SortHRV returns a copy of samples sorted by date ascending
func SortHRV(samples []HRVSample) []HRVSample {
	out := make([]HRVSample, len(samples))
	copy(out, samples)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// StartOfDay truncates t to local midnight in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
