package coaching

import (
	"sort"
	"time"

	"dune-health/internal/analysis"
	"dune-health/internal/health"
)

// Category groups insights. Declaration order breaks priority ties.
type Category int

const (
	CategoryRecovery Category = iota
	CategoryTraining
	CategorySleep
	CategoryMotivation
	CategoryRecap
	CategoryWeather
	CategoryGeneral
)

func (c Category) String() string {
	switch c {
	case CategoryRecovery:
		return "recovery"
	case CategoryTraining:
		return "training"
	case CategorySleep:
		return "sleep"
	case CategoryMotivation:
		return "motivation"
	case CategoryRecap:
		return "recap"
	case CategoryWeather:
		return "weather"
	default:
		return "general"
	}
}

// Priority orders insights; lower values are more urgent
type Priority int

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityMedium
	PriorityAmbient
	PriorityFallback
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityAmbient:
		return "ambient"
	default:
		return "fallback"
	}
}

// Insight is one piece of coaching advice
type Insight struct {
	ID       string
	Category Category
	Priority Priority
	Title    string
	Message  string
	IconName string
}

// MaxCards bounds Output.Cards
const MaxCards = 3

// Output is the selected coaching for one refresh. Focus is never empty and its
// priority is at or above every card's.
type Output struct {
	Focus Insight
	Cards []Insight
}

// Input is everything the rules look at. Every field is optional.
type Input struct {
	Now           time.Time
	Condition     *health.ConditionScore
	HRVTrend      *analysis.TrendAnalysis
	Readiness     *analysis.TrainingReadiness
	FatigueStates []analysis.MuscleFatigueState
	// SleepMinutes is last night's asleep time
	SleepMinutes *float64
	Weekly       analysis.WeeklyActivity
	WeeklyGoal   int
	Streak       analysis.WorkoutStreak
	Weather      *health.WeatherSnapshot
}

type rule func(in Input) *Insight

// rules run in category order; each returns its category's strongest insight
var rules = []rule{
	recoveryInsight,
	trainingInsight,
	sleepInsight,
	motivationInsight,
	recapInsight,
	weatherInsight,
}

// Generate evaluates every category and picks the focus insight and up to
// MaxCards supporting cards from distinct categories. It never returns an
// empty result.
func Generate(in Input) Output {
	var candidates []Insight
	for _, r := range rules {
		if ins := r(in); ins != nil {
			candidates = append(candidates, *ins)
		}
	}
	if len(candidates) == 0 {
		candidates = append(candidates, generalInsight(in))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Priority != candidates[j].Priority {
			return candidates[i].Priority < candidates[j].Priority
		}
		return candidates[i].Category < candidates[j].Category
	})

	out := Output{Focus: candidates[0]}
	used := map[Category]bool{out.Focus.Category: true}
	for _, c := range candidates[1:] {
		if len(out.Cards) == MaxCards {
			break
		}
		if used[c.Category] {
			continue
		}
		used[c.Category] = true
		out.Cards = append(out.Cards, c)
	}
	return out
}
