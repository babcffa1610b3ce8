package analysis

import (
	"math"
	"sort"

	"dune-health/internal/health"
)

// Readiness component weights
const (
	weightHRV     = 0.30
	weightRHR     = 0.20
	weightSleep   = 0.25
	weightFatigue = 0.15
	weightTrend   = 0.10

	// minReadinessDays is the number of distinct daily HRV averages needed before
	// readiness stops calibrating
	minReadinessDays = 7

	defaultSleepTargetMinutes = 480.0
	minSleepTargetMinutes     = 420.0
	restorativeRatioTarget    = 0.45
)

// ReadinessStatus buckets a readiness score
type ReadinessStatus int

const (
	ReadinessRest ReadinessStatus = iota
	ReadinessLight
	ReadinessModerate
	ReadinessReady
)

func (s ReadinessStatus) String() string {
	switch s {
	case ReadinessReady:
		return "ready"
	case ReadinessModerate:
		return "moderate"
	case ReadinessLight:
		return "light"
	default:
		return "rest"
	}
}

// ReadinessComponents are the five 0-100 subscores
type ReadinessComponents struct {
	HRVScore     int
	RHRScore     int
	SleepScore   int
	FatigueScore int
	TrendBonus   int
}

// WeightedTotal returns the unrounded weighted sum of the components
func (c ReadinessComponents) WeightedTotal() float64 {
	return float64(c.HRVScore)*weightHRV +
		float64(c.RHRScore)*weightRHR +
		float64(c.SleepScore)*weightSleep +
		float64(c.FatigueScore)*weightFatigue +
		float64(c.TrendBonus)*weightTrend
}

// TrainingReadiness is the composite daily readiness score
type TrainingReadiness struct {
	Score         int
	Components    ReadinessComponents
	IsCalibrating bool
}

// Status maps the score onto its band. Lower bounds are inclusive.
func (r TrainingReadiness) Status() ReadinessStatus {
	return ReadinessStatusFor(r.Score)
}

// ReadinessStatusFor maps a 0-100 score onto its band
func ReadinessStatusFor(score int) ReadinessStatus {
	switch {
	case score >= 80:
		return ReadinessReady
	case score >= 60:
		return ReadinessModerate
	case score >= 40:
		return ReadinessLight
	default:
		return ReadinessRest
	}
}

// ReadinessInput gathers everything readiness is computed from. Any field may be empty.
type ReadinessInput struct {
	// DailyHRV is one averaged value per day, ascending
	DailyHRV    []DatedValue
	TodayRHR    *float64
	RHRBaseline *float64
	// SleepMinutes is last night's asleep time
	SleepMinutes *float64
	// SleepStageMinutes breaks last night down by stage
	SleepStageMinutes    map[health.SleepStageKind]float64
	SleepBaselineMinutes *float64
	FatigueStates        []MuscleFatigueState
	HRVTrend             *TrendAnalysis
	Params               ConditionParams
}

// ComputeTrainingReadiness combines the subscores. Every subscore falls back to a
// neutral value when its data is missing or implausible, so the result is always
// within [0,100].
func ComputeTrainingReadiness(in ReadinessInput) TrainingReadiness {
	c := ReadinessComponents{
		HRVScore:     hrvSubscore(in.DailyHRV, in.Params),
		RHRScore:     rhrSubscore(in.TodayRHR, in.RHRBaseline),
		SleepScore:   sleepSubscore(in.SleepMinutes, in.SleepStageMinutes, in.SleepBaselineMinutes),
		FatigueScore: fatigueSubscore(in.FatigueStates),
		TrendBonus:   trendSubscore(in.HRVTrend),
	}
	return TrainingReadiness{
		Score:         clampScore(c.WeightedTotal()),
		Components:    c,
		IsCalibrating: len(in.DailyHRV) < minReadinessDays,
	}
}

func hrvSubscore(daily []DatedValue, p ConditionParams) int {
	clean := make([]float64, 0, len(daily))
	for _, d := range daily {
		if isFinite(d.Value) && d.Value > 0 {
			clean = append(clean, d.Value)
		}
	}
	if len(clean) < 2 {
		return NeutralScore
	}

	today := clean[len(clean)-1]
	start := 0
	if p.BaselineDays > 0 && len(clean)-1 > p.BaselineDays {
		start = len(clean) - 1 - p.BaselineDays
	}
	baseline := clean[start : len(clean)-1]

	floor := p.StdDevFloor
	if floor <= 0 {
		floor = DefaultConditionParams().StdDevFloor
	}
	sd := math.Max(stdDev(baseline), floor)
	z := (today - mean(baseline)) / sd
	return clampScore(float64(NeutralScore) + z*20)
}

// rhrSubscore rewards a resting heart rate below its baseline
func rhrSubscore(today, baseline *float64) int {
	if !plausibleRHR(today) || !plausibleRHR(baseline) {
		return NeutralScore
	}
	return clampScore(float64(NeutralScore) - (*today-*baseline)*5)
}

func sleepSubscore(minutes *float64, stages map[health.SleepStageKind]float64, baseline *float64) int {
	if minutes == nil || !isFinite(*minutes) || *minutes <= 0 || *minutes > MaxSleepMinutes {
		return NeutralScore
	}

	target := defaultSleepTargetMinutes
	if baseline != nil && isFinite(*baseline) && *baseline > 0 && *baseline <= MaxSleepMinutes {
		target = math.Max(*baseline, minSleepTargetMinutes)
	}
	duration := clamp(*minutes/target*100, 0, 100)

	asleep := stages[health.StageCore] + stages[health.StageDeep] + stages[health.StageREM] + stages[health.StageUnspecified]
	if asleep <= 0 {
		return clampScore(duration)
	}
	ratio := (stages[health.StageDeep] + stages[health.StageREM]) / asleep
	if !isFinite(ratio) || ratio < 0 || ratio > 1 {
		return clampScore(duration)
	}
	quality := clamp(ratio/restorativeRatioTarget*100, 0, 100)
	return clampScore(duration*0.7 + quality*0.3)
}

// fatigueSubscore inverts the mean fatigue of the three most loaded muscles
func fatigueSubscore(states []MuscleFatigueState) int {
	var loads []float64
	for _, s := range states {
		if s.CompoundScore == nil || s.CompoundScore.Level == FatigueNoData {
			continue
		}
		n := s.CompoundScore.NormalizedScore
		if !isFinite(n) {
			continue
		}
		loads = append(loads, clamp(n, 0, 1))
	}
	if len(loads) == 0 {
		return DefaultFatigueSub
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(loads)))
	if len(loads) > 3 {
		loads = loads[:3]
	}
	return clampScore((1 - mean(loads)) * 100)
}

func trendSubscore(t *TrendAnalysis) int {
	if t == nil {
		return NeutralScore
	}
	steps := t.ConsecutiveDays
	if steps > 5 {
		steps = 5
	}
	switch t.Direction {
	case TrendRising:
		return clampScore(float64(NeutralScore + steps*10))
	case TrendFalling:
		return clampScore(float64(NeutralScore - steps*10))
	default:
		return NeutralScore
	}
}
