package coaching

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"dune-health/internal/analysis"
	"dune-health/internal/health"
)

// Thresholds
const (
	fallingTrendDays = 3
	overloadLevel    = analysis.FatigueVeryHigh

	sleepCriticalMinutes = 300.0
	sleepShortMinutes    = 360.0
	sleepGoodMinutes     = 480.0

	inactiveGapDays = 4
	longStreakDays  = 7

	heatFeelsLikeC   = 32.0
	coldFeelsLikeC   = -5.0
	highUVIndex      = 8.0
	rainProbability  = 0.7
	dryProbability   = 0.3
	pleasantMinTempC = 12.0
	pleasantMaxTempC = 24.0
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func recoveryInsight(in Input) *Insight {
	status := health.ConditionStatus(-1)
	if in.Condition != nil {
		status = in.Condition.Status()
	}
	falling := in.HRVTrend != nil &&
		in.HRVTrend.Direction == analysis.TrendFalling &&
		in.HRVTrend.ConsecutiveDays >= fallingTrendDays

	switch {
	case status == health.ConditionWarning && falling:
		return &Insight{
			ID:       "recovery.hrv_declining",
			Category: CategoryRecovery,
			Priority: PriorityCritical,
			Title:    "Prioritize recovery",
			Message: fmt.Sprintf("HRV has dropped %d days in a row and your condition is low. Take a rest day.",
				in.HRVTrend.ConsecutiveDays),
			IconName: "heart.slash",
		}
	case status == health.ConditionWarning:
		return &Insight{
			ID:       "recovery.condition_low",
			Category: CategoryRecovery,
			Priority: PriorityHigh,
			Title:    "Condition is low",
			Message:  fmt.Sprintf("Your condition score is %d. Keep today easy.", in.Condition.Score),
			IconName: "heart",
		}
	}

	if m := mostFatigued(in.FatigueStates); m != nil {
		return &Insight{
			ID:       "recovery.muscle_overloaded",
			Category: CategoryRecovery,
			Priority: PriorityHigh,
			Title:    "Give your " + string(m.Muscle) + " a break",
			Message: fmt.Sprintf("Fatigue in your %s is %s. Train other muscle groups today.",
				m.Muscle, m.CompoundScore.Level),
			IconName: "figure.strengthtraining",
		}
	}

	restDay := in.Readiness != nil && in.Readiness.Status() == analysis.ReadinessRest
	if status == health.ConditionTired || restDay {
		return &Insight{
			ID:       "recovery.take_it_easy",
			Category: CategoryRecovery,
			Priority: PriorityMedium,
			Title:    "Take it easy",
			Message:  "Your body is still recovering. Light movement will help more than intensity today.",
			IconName: "leaf",
		}
	}
	if status == health.ConditionExcellent {
		return &Insight{
			ID:       "recovery.excellent",
			Category: CategoryRecovery,
			Priority: PriorityAmbient,
			Title:    "Fully recharged",
			Message:  fmt.Sprintf("Condition %d. You are well recovered.", in.Condition.Score),
			IconName: "bolt.heart",
		}
	}
	return nil
}

// mostFatigued returns the overloaded muscle with the highest score, if any
func mostFatigued(states []analysis.MuscleFatigueState) *analysis.MuscleFatigueState {
	var best *analysis.MuscleFatigueState
	for i := range states {
		s := &states[i]
		if !s.IsOverloaded(overloadLevel) {
			continue
		}
		if best == nil || s.CompoundScore.NormalizedScore > best.CompoundScore.NormalizedScore {
			best = s
		}
	}
	return best
}

func sleepInsight(in Input) *Insight {
	if in.SleepMinutes == nil || !finite(*in.SleepMinutes) || *in.SleepMinutes < 0 {
		return nil
	}
	m := *in.SleepMinutes
	switch {
	case m < sleepCriticalMinutes:
		return &Insight{
			ID:       "sleep.severe_deficit",
			Category: CategorySleep,
			Priority: PriorityCritical,
			Title:    "Very short night",
			Message:  "You slept " + formatMinutes(m) + ". Skip hard training and aim for an early night.",
			IconName: "bed.double",
		}
	case m < sleepShortMinutes:
		return &Insight{
			ID:       "sleep.short",
			Category: CategorySleep,
			Priority: PriorityHigh,
			Title:    "Short on sleep",
			Message:  "You slept " + formatMinutes(m) + ". Consider a lighter session.",
			IconName: "bed.double",
		}
	case m >= sleepGoodMinutes:
		return &Insight{
			ID:       "sleep.well_rested",
			Category: CategorySleep,
			Priority: PriorityAmbient,
			Title:    "Well rested",
			Message:  "You slept " + formatMinutes(m) + ".",
			IconName: "moon.stars",
		}
	}
	return nil
}

func trainingInsight(in Input) *Insight {
	gap := in.Weekly.DaysSinceLastWorkout
	if in.Weekly.ActiveDays == 0 && gap != nil && *gap >= inactiveGapDays {
		return &Insight{
			ID:       "training.get_moving",
			Category: CategoryTraining,
			Priority: PriorityMedium,
			Title:    "Time to move",
			Message:  fmt.Sprintf("It has been %d days since your last workout. A short session counts.", *gap),
			IconName: "figure.walk",
		}
	}
	if in.Readiness != nil && in.Readiness.Status() == analysis.ReadinessReady && mostFatigued(in.FatigueStates) == nil {
		return &Insight{
			ID:       "training.ready",
			Category: CategoryTraining,
			Priority: PriorityAmbient,
			Title:    "Ready to train",
			Message:  fmt.Sprintf("Readiness %d. A good day for a hard session.", in.Readiness.Score),
			IconName: "flame",
		}
	}
	return nil
}

func motivationInsight(in Input) *Insight {
	if in.WeeklyGoal > 0 && in.Weekly.ActiveDays >= in.WeeklyGoal {
		return &Insight{
			ID:       "motivation.weekly_goal",
			Category: CategoryMotivation,
			Priority: PriorityMedium,
			Title:    "Weekly goal reached",
			Message: fmt.Sprintf("%d of %d active days this week.",
				in.Weekly.ActiveDays, in.WeeklyGoal),
			IconName: "trophy",
		}
	}
	if in.Streak.CurrentStreak >= longStreakDays {
		return &Insight{
			ID:       "motivation.streak",
			Category: CategoryMotivation,
			Priority: PriorityAmbient,
			Title:    "On a roll",
			Message:  fmt.Sprintf("%d days in a row. Best so far: %d.", in.Streak.CurrentStreak, in.Streak.BestStreak),
			IconName: "flame.fill",
		}
	}
	return nil
}

func recapInsight(in Input) *Insight {
	if last := in.Weekly.LastWorkout; last != nil {
		when := humanize.RelTime(last.Date, in.Now, "ago", "from now")
		return &Insight{
			ID:       "recap.last_workout",
			Category: CategoryRecap,
			Priority: PriorityAmbient,
			Title:    "Last workout",
			Message:  fmt.Sprintf("%s, %s, %s.", activityName(last.ActivityType), formatMinutes(last.Duration.Minutes()), when),
			IconName: "clock.arrow.circlepath",
		}
	}
	if n := in.Streak.MonthlyCount; n > 0 {
		msg := fmt.Sprintf("%s this month.", pluralWorkouts(n))
		if g := in.Streak.MonthlyGoal; g > 0 {
			msg = fmt.Sprintf("%s of %d this month.", pluralWorkouts(n), g)
		}
		return &Insight{
			ID:       "recap.monthly",
			Category: CategoryRecap,
			Priority: PriorityAmbient,
			Title:    "This month",
			Message:  msg,
			IconName: "calendar",
		}
	}
	return nil
}

func weatherInsight(in Input) *Insight {
	w := in.Weather
	if w == nil {
		return &Insight{
			ID:       "weather.unavailable",
			Category: CategoryWeather,
			Priority: PriorityAmbient,
			Title:    "Weather unavailable",
			Message:  "Check conditions before heading outside.",
			IconName: "cloud.slash",
		}
	}

	feels := w.FeelsLikeC
	if !finite(feels) {
		feels = w.TemperatureC
	}
	switch {
	case finite(feels) && feels >= heatFeelsLikeC:
		return &Insight{
			ID:       "weather.heat",
			Category: CategoryWeather,
			Priority: PriorityHigh,
			Title:    "Heat warning",
			Message:  fmt.Sprintf("Feels like %.0f°C. Train early or indoors and hydrate.", feels),
			IconName: "thermometer.sun",
		}
	case finite(feels) && feels <= coldFeelsLikeC:
		return &Insight{
			ID:       "weather.cold",
			Category: CategoryWeather,
			Priority: PriorityHigh,
			Title:    "Extreme cold",
			Message:  fmt.Sprintf("Feels like %.0f°C. Warm up indoors and layer up.", feels),
			IconName: "thermometer.snowflake",
		}
	case finite(w.UVIndex) && w.UVIndex >= highUVIndex:
		return &Insight{
			ID:       "weather.uv",
			Category: CategoryWeather,
			Priority: PriorityMedium,
			Title:    "High UV",
			Message:  fmt.Sprintf("UV index %.0f. Wear sunscreen if training outside.", w.UVIndex),
			IconName: "sun.max",
		}
	case w.IsRaining || (finite(w.PrecipitationProbability) && w.PrecipitationProbability >= rainProbability):
		return &Insight{
			ID:       "weather.rain",
			Category: CategoryWeather,
			Priority: PriorityMedium,
			Title:    "Rain expected",
			Message:  "Plan an indoor session or bring a shell.",
			IconName: "cloud.rain",
		}
	case finite(w.TemperatureC) && w.TemperatureC >= pleasantMinTempC && w.TemperatureC <= pleasantMaxTempC &&
		finite(w.PrecipitationProbability) && w.PrecipitationProbability < dryProbability:
		return &Insight{
			ID:       "weather.pleasant",
			Category: CategoryWeather,
			Priority: PriorityAmbient,
			Title:    "Great weather",
			Message:  fmt.Sprintf("%.0f°C and dry. A good day to train outside.", w.TemperatureC),
			IconName: "sun.min",
		}
	}
	return nil
}

// generalInsight summarizes whatever data exists
func generalInsight(in Input) Insight {
	ins := Insight{
		ID:       "general.summary",
		Category: CategoryGeneral,
		Priority: PriorityFallback,
		Title:    "Today",
		IconName: "heart.text.square",
	}

	var parts []string
	if in.Condition != nil {
		parts = append(parts, fmt.Sprintf("condition %d (%s)", in.Condition.Score, in.Condition.Status()))
	}
	if in.Readiness != nil {
		parts = append(parts, fmt.Sprintf("readiness %d", in.Readiness.Score))
	}
	if in.SleepMinutes != nil && finite(*in.SleepMinutes) && *in.SleepMinutes > 0 {
		parts = append(parts, formatMinutes(*in.SleepMinutes)+" of sleep")
	}
	if len(parts) == 0 {
		ins.Message = "Keep wearing your watch and logging workouts to unlock personalized coaching."
		return ins
	}
	ins.Message = strings.ToUpper(parts[0][:1]) + strings.Join(parts, ", ")[1:] + "."
	return ins
}

func formatMinutes(m float64) string {
	total := int(math.Round(m))
	h, mins := total/60, total%60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh %dm", h, mins)
	}
}

func pluralWorkouts(n int) string {
	if n == 1 {
		return "1 workout"
	}
	return humanize.Comma(int64(n)) + " workouts"
}

func activityName(t string) string {
	if t == "" {
		return "Workout"
	}
	return strings.ToUpper(t[:1]) + t[1:]
}
