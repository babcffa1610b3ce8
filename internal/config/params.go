package config

import "dune-health/internal/analysis"

// Params converts the scoring section into condition score parameters
func (s ScoringConfig) Params() analysis.ConditionParams {
	return analysis.ConditionParams{
		BaselineCenter:      s.BaselineCenter,
		Scale:               s.Scale,
		StdDevFloor:         s.StdDevFloor,
		BaselineDays:        s.BaselineDays,
		MinBaselineDays:     s.MinBaselineDays,
		RHRPenaltyThreshold: s.RHRPenaltyThreshold,
		RHRPenaltyPerBPM:    s.RHRPenaltyPerBPM,
		RHRPenaltyMax:       s.RHRPenaltyMax,
	}
}

// Params converts the fatigue section into decay model parameters
func (f FatigueConfig) Params() analysis.FatigueParams {
	return analysis.FatigueParams{
		TauHours:       f.TauHours,
		SaturationLoad: f.SaturationLoad,
		LookbackDays:   f.LookbackDays,
	}
}

// Zones returns the athlete's heart rate bounds
func (a AthleteConfig) Zones() analysis.HRZones {
	return analysis.HRZones{RestingHR: a.RestingHR, MaxHR: a.MaxHR}
}
