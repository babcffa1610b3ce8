package analysis

import (
	"math"
	"time"

	"dune-health/internal/health"
)

// FatigueLevel is a discrete severity tier. FatigueNoData means the muscle has
// no training in the lookback window.
type FatigueLevel int

const (
	FatigueNoData FatigueLevel = iota
	FatigueFullyRecovered
	FatigueWellRested
	FatigueFresh
	FatigueLight
	FatigueModerate
	FatigueNotable
	FatigueHigh
	FatigueVeryHigh
	FatigueExtreme
	FatigueOvertrained
)

var fatigueLevelNames = [...]string{
	"noData", "fullyRecovered", "wellRested", "fresh", "light", "moderate",
	"notable", "high", "veryHigh", "extreme", "overtrained",
}

func (l FatigueLevel) String() string {
	if l < FatigueNoData || l > FatigueOvertrained {
		return "unknown"
	}
	return fatigueLevelNames[l]
}

// FatigueLevelFor maps a normalized score in [0,1] to levels 1..10
func FatigueLevelFor(normalized float64) FatigueLevel {
	if !isFinite(normalized) {
		return FatigueNoData
	}
	level := 1 + int(math.Floor(clamp(normalized, 0, 1)*10))
	if level > int(FatigueOvertrained) {
		level = int(FatigueOvertrained)
	}
	return FatigueLevel(level)
}

// FatigueParams are the tunable constants of the decay model
type FatigueParams struct {
	// TauHours is the decay time constant for a medium-sized muscle
	TauHours float64
	// SaturationLoad is the accumulated load at which normalized fatigue reaches ~63%
	SaturationLoad float64
	LookbackDays   int
}

// DefaultFatigueParams returns the default decay constants
func DefaultFatigueParams() FatigueParams {
	return FatigueParams{
		TauHours:       24,
		SaturationLoad: 12,
		LookbackDays:   14,
	}
}

// FatigueModifiers scale the decay time constant. Values above 1 make fatigue
// persist longer; below 1 speed recovery.
type FatigueModifiers struct {
	Sleep     float64
	Readiness float64
}

// NeutralModifiers leave the time constant unchanged
func NeutralModifiers() FatigueModifiers {
	return FatigueModifiers{Sleep: 1, Readiness: 1}
}

const (
	minModifier = 0.5
	maxModifier = 2.0
)

func normalizeModifier(m float64) float64 {
	if !isFinite(m) || m <= 0 {
		return 1
	}
	return clamp(m, minModifier, maxModifier)
}

// SleepModifier derives the sleep modifier from last night's asleep minutes
func SleepModifier(minutes *float64) float64 {
	if minutes == nil || !isFinite(*minutes) || *minutes <= 0 || *minutes > MaxSleepMinutes {
		return 1
	}
	switch m := *minutes; {
	case m < 300:
		return 1.25
	case m < 360:
		return 1.15
	case m < 420:
		return 1.05
	case m >= 480:
		return 0.9
	default:
		return 1
	}
}

// ReadinessModifier derives the readiness modifier from a 0-100 score
func ReadinessModifier(score *int) float64 {
	if score == nil {
		return 1
	}
	switch s := *score; {
	case s < 40:
		return 1.2
	case s < 60:
		return 1.1
	case s >= 80:
		return 0.9
	default:
		return 1
	}
}

// muscleRecoveryFactor scales tau by muscle size; large groups recover slower
func muscleRecoveryFactor(m health.Muscle) float64 {
	switch m {
	case health.MuscleQuadriceps, health.MuscleHamstrings, health.MuscleGlutes,
		health.MuscleBack, health.MuscleLats, health.MuscleChest:
		return 1.5
	case health.MuscleBiceps, health.MuscleTriceps, health.MuscleForearms,
		health.MuscleCalves, health.MuscleCore:
		return 0.75
	default:
		return 1
	}
}

// WorkoutContribution is one workout's share of a muscle's fatigue
type WorkoutContribution struct {
	WorkoutID      string
	Date           time.Time
	HoursAgo       float64
	RawFatigue     float64
	DecayedFatigue float64
}

// FatigueBreakdown explains a compound score
type FatigueBreakdown struct {
	WorkoutContributions []WorkoutContribution
	BaseFatigue          float64
	SleepModifier        float64
	ReadinessModifier    float64
	EffectiveTau         float64
}

// CompoundFatigueScore is the decayed fatigue of one muscle
type CompoundFatigueScore struct {
	Muscle          health.Muscle
	NormalizedScore float64
	Level           FatigueLevel
	Breakdown       FatigueBreakdown
}

// MuscleFatigueState is the per-muscle summary consumed by readiness and coaching
type MuscleFatigueState struct {
	Muscle                health.Muscle
	LastTrainedDate       *time.Time
	HoursSinceLastTrained *float64
	WeeklyVolume          int
	RecoveryPercent       float64
	CompoundScore         *CompoundFatigueScore
}

// IsOverloaded reports whether the muscle is at or above minLevel
func (s MuscleFatigueState) IsOverloaded(minLevel FatigueLevel) bool {
	return s.CompoundScore != nil && s.CompoundScore.Level >= minLevel
}

// cardio loads are expressed in set-equivalents
const trimpPerSetEquivalent = 25.0

type muscleLoad struct {
	muscle health.Muscle
	raw    float64
	sets   int
}

// ComputeFatigue returns one state per tracked muscle. Each workout contributes
// raw × exp(−hours/τ), with τ = TauHours × size factor × sleep × readiness modifiers.
func ComputeFatigue(workouts []health.Workout, now time.Time, mods FatigueModifiers, p FatigueParams, zones HRZones) []MuscleFatigueState {
	if p.TauHours <= 0 {
		p.TauHours = DefaultFatigueParams().TauHours
	}
	if p.SaturationLoad <= 0 {
		p.SaturationLoad = DefaultFatigueParams().SaturationLoad
	}
	if p.LookbackDays <= 0 {
		p.LookbackDays = DefaultFatigueParams().LookbackDays
	}
	sleepMod := normalizeModifier(mods.Sleep)
	readinessMod := normalizeModifier(mods.Readiness)

	lookbackStart := now.AddDate(0, 0, -p.LookbackDays)
	weekStart := now.AddDate(0, 0, -7)

	states := make(map[health.Muscle]*MuscleFatigueState, len(health.AllMuscles))
	scores := make(map[health.Muscle]*CompoundFatigueScore, len(health.AllMuscles))
	for _, m := range health.AllMuscles {
		tau := p.TauHours * muscleRecoveryFactor(m) * sleepMod * readinessMod
		scores[m] = &CompoundFatigueScore{
			Muscle: m,
			Level:  FatigueNoData,
			Breakdown: FatigueBreakdown{
				SleepModifier:     sleepMod,
				ReadinessModifier: readinessMod,
				EffectiveTau:      tau,
			},
		}
		states[m] = &MuscleFatigueState{Muscle: m, RecoveryPercent: 1}
	}

	for _, w := range workouts {
		if w.Date.After(now) || w.Date.Before(lookbackStart) {
			continue
		}
		hoursAgo := now.Sub(w.Date).Hours()

		for _, ml := range workoutLoads(w, zones) {
			state, ok := states[ml.muscle]
			if !ok || ml.raw <= 0 {
				continue
			}
			score := scores[ml.muscle]
			decayed := ml.raw * math.Exp(-hoursAgo/score.Breakdown.EffectiveTau)

			score.Breakdown.WorkoutContributions = append(score.Breakdown.WorkoutContributions, WorkoutContribution{
				WorkoutID:      w.ID,
				Date:           w.Date,
				HoursAgo:       hoursAgo,
				RawFatigue:     ml.raw,
				DecayedFatigue: decayed,
			})
			score.Breakdown.BaseFatigue += decayed

			if state.LastTrainedDate == nil || w.Date.After(*state.LastTrainedDate) {
				d := w.Date
				h := hoursAgo
				state.LastTrainedDate = &d
				state.HoursSinceLastTrained = &h
			}
			if !w.Date.Before(weekStart) {
				state.WeeklyVolume += ml.sets
			}
		}
	}

	out := make([]MuscleFatigueState, 0, len(health.AllMuscles))
	for _, m := range health.AllMuscles {
		state := states[m]
		score := scores[m]
		if len(score.Breakdown.WorkoutContributions) > 0 {
			score.NormalizedScore = 1 - math.Exp(-score.Breakdown.BaseFatigue/p.SaturationLoad)
			score.Level = FatigueLevelFor(score.NormalizedScore)
		}
		state.RecoveryPercent = clamp(1-score.NormalizedScore, 0, 1)
		state.CompoundScore = score
		out = append(out, *state)
	}
	return out
}

// workoutLoads converts a workout into raw per-muscle load
func workoutLoads(w health.Workout, zones HRZones) []muscleLoad {
	rpeMul := 1.0
	if validRPE(w.RPE) {
		rpeMul = 0.8 + float64(*w.RPE-1)/9*0.4
	}

	var loads []muscleLoad
	hasSets := false
	for _, ex := range w.Exercises {
		working := 0
		for _, s := range ex.Sets {
			if !s.IsWarmup {
				working++
			}
		}
		if working == 0 {
			continue
		}
		hasSets = true
		for _, m := range ex.PrimaryMuscles {
			loads = append(loads, muscleLoad{muscle: m, raw: float64(working) * rpeMul, sets: working})
		}
		for _, m := range ex.SecondaryMuscles {
			loads = append(loads, muscleLoad{muscle: m, raw: float64(working) * 0.5 * rpeMul, sets: working})
		}
	}
	if hasSets || !w.IsCardio() {
		return loads
	}

	// Cardio sessions without sets load the prime movers of the activity
	units := SessionLoad(w, zones) / trimpPerSetEquivalent
	if units <= 0 {
		return loads
	}
	for m, share := range cardioDistribution(w.ActivityType) {
		loads = append(loads, muscleLoad{muscle: m, raw: units * share})
	}
	return loads
}

func cardioDistribution(activityType string) map[health.Muscle]float64 {
	switch activityType {
	case "swimming", "rowing":
		return map[health.Muscle]float64{
			health.MuscleLats:      1,
			health.MuscleBack:      0.7,
			health.MuscleShoulders: 0.7,
			health.MuscleCore:      0.3,
		}
	default:
		return map[health.Muscle]float64{
			health.MuscleQuadriceps: 1,
			health.MuscleHamstrings: 0.8,
			health.MuscleCalves:     0.8,
			health.MuscleGlutes:     0.5,
			health.MuscleCore:       0.3,
		}
	}
}
