package analysis

import (
	"math"

	"dune-health/internal/health"
)

// ConditionParams holds the calibration constants of the condition score.
// They are tunable through config; the defaults are a starting point, not a fit.
type ConditionParams struct {
	// BaselineCenter is the score of a day exactly at the personal baseline
	BaselineCenter float64
	// Scale converts one effective standard deviation into score points
	Scale float64
	// StdDevFloor keeps a near-constant baseline from producing huge z-scores
	StdDevFloor float64
	// BaselineDays is the number of days preceding today that form the baseline
	BaselineDays int
	// MinBaselineDays is required before the score stops calibrating
	MinBaselineDays int

	RHRPenaltyThreshold float64 // bpm above baseline before a penalty applies
	RHRPenaltyPerBPM    float64
	RHRPenaltyMax       float64
}

// DefaultConditionParams returns the default calibration
func DefaultConditionParams() ConditionParams {
	return ConditionParams{
		BaselineCenter:      70,
		Scale:               15,
		StdDevFloor:         3,
		BaselineDays:        14,
		MinBaselineDays:     7,
		RHRPenaltyThreshold: 2,
		RHRPenaltyPerBPM:    2,
		RHRPenaltyMax:       20,
	}
}

// Physiological plausibility bounds
const (
	MinPlausibleRHR   = 30.0
	MaxPlausibleRHR   = 250.0
	MaxSleepMinutes   = 1440.0
	NeutralScore      = 50
	DefaultFatigueSub = 80
)

func plausibleRHR(v *float64) bool {
	return v != nil && isFinite(*v) && *v >= MinPlausibleRHR && *v <= MaxPlausibleRHR
}

// ComputeConditionScore scores today's HRV against the preceding baseline days.
// It returns nil while fewer than MinBaselineDays of history exist; the returned
// BaselineStatus reports progress either way.
func ComputeConditionScore(samples []health.HRVSample, todayRHR, rhrBaseline *float64, p ConditionParams) (*health.ConditionScore, health.BaselineStatus) {
	status := health.BaselineStatus{DaysRequired: p.MinBaselineDays}

	daily := DailyHRVAverages(samples)
	if len(daily) == 0 {
		return nil, status
	}

	today := daily[len(daily)-1]
	start := 0
	if p.BaselineDays > 0 && len(daily)-1 > p.BaselineDays {
		start = len(daily) - 1 - p.BaselineDays
	}
	baseline := values(daily[start : len(daily)-1])
	status.DaysCollected = len(baseline)

	if len(baseline) == 0 || len(baseline) < p.MinBaselineDays {
		return nil, status
	}

	baselineMean := mean(baseline)
	sd := stdDev(baseline)
	effectiveSD := math.Max(sd, p.StdDevFloor)
	if effectiveSD <= 0 || !isFinite(effectiveSD) {
		return nil, status
	}

	z := (today.Value - baselineMean) / effectiveSD
	penalty := RHRPenalty(todayRHR, rhrBaseline, p)

	raw := clamp(p.BaselineCenter+p.Scale*z-penalty, 0, 100)
	if !isFinite(raw) {
		raw = float64(NeutralScore)
	}

	return &health.ConditionScore{
		Score: clampScore(raw),
		Date:  today.Date,
		Detail: &health.ConditionDetail{
			ZScore:          z,
			BaselineHRV:     baselineMean,
			StdDev:          sd,
			EffectiveStdDev: effectiveSD,
			RHRPenalty:      penalty,
			RawScore:        raw,
			DaysInBaseline:  len(baseline),
		},
	}, status
}

// RHRPenalty returns the score points deducted for a resting heart rate elevated
// above its own baseline. Missing or implausible readings yield no penalty.
func RHRPenalty(todayRHR, rhrBaseline *float64, p ConditionParams) float64 {
	if !plausibleRHR(todayRHR) || !plausibleRHR(rhrBaseline) {
		return 0
	}
	excess := *todayRHR - *rhrBaseline - p.RHRPenaltyThreshold
	if excess <= 0 {
		return 0
	}
	return math.Min(excess*p.RHRPenaltyPerBPM, p.RHRPenaltyMax)
}
