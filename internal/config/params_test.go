package config

import (
	"testing"

	"dune-health/internal/analysis"
)

func TestDefaultsMatchAnalysisDefaults(t *testing.T) {
	cfg := DefaultConfig()

	if got, want := cfg.Scoring.Params(), analysis.DefaultConditionParams(); got != want {
		t.Errorf("Scoring.Params() = %+v, want %+v", got, want)
	}
	if got, want := cfg.Fatigue.Params(), analysis.DefaultFatigueParams(); got != want {
		t.Errorf("Fatigue.Params() = %+v, want %+v", got, want)
	}
	if got, want := cfg.Athlete.Zones(), analysis.DefaultZones(); got != want {
		t.Errorf("Athlete.Zones() = %+v, want %+v", got, want)
	}
}

func TestScoringParams_CarriesOverrides(t *testing.T) {
	s := DefaultConfig().Scoring
	s.Scale = 20
	s.MinBaselineDays = 5

	p := s.Params()
	if p.Scale != 20 || p.MinBaselineDays != 5 {
		t.Errorf("Params() = %+v, overrides not carried", p)
	}
}
