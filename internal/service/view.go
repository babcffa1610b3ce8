package service

import (
	"time"

	"dune-health/internal/analysis"
	"dune-health/internal/coaching"
)

// DashboardView is the JSON form of a Dashboard
type DashboardView struct {
	GeneratedAt   time.Time      `json:"generated_at"`
	SnapshotID    string         `json:"snapshot_id"`
	FetchedAt     time.Time      `json:"fetched_at"`
	FailedSources []string       `json:"failed_sources"`
	Condition     *ConditionView `json:"condition"`
	Baseline      BaselineView   `json:"baseline"`
	HRVTrend      TrendView      `json:"hrv_trend"`
	RHRTrend      TrendView      `json:"rhr_trend"`
	Readiness     ReadinessView  `json:"readiness"`
	SleepMinutes  *float64       `json:"sleep_minutes"`
	Fatigue       []FatigueView  `json:"fatigue"`
	LoadRatio     *float64       `json:"load_ratio"`
	Streak        StreakView     `json:"streak"`
	Weekly        WeeklyView     `json:"weekly"`
	Weather       *WeatherView   `json:"weather"`
	History       []HistoryPoint `json:"condition_history"`
	Focus         InsightView    `json:"focus"`
	Cards         []InsightView  `json:"cards"`
}

type ConditionView struct {
	Score  int    `json:"score"`
	Status string `json:"status"`
}

type BaselineView struct {
	DaysCollected int     `json:"days_collected"`
	DaysRequired  int     `json:"days_required"`
	Progress      float64 `json:"progress"`
	Ready         bool    `json:"ready"`
}

type TrendView struct {
	Direction       string  `json:"direction"`
	ConsecutiveDays int     `json:"consecutive_days"`
	ChangePercent   float64 `json:"change_percent"`
}

type ReadinessView struct {
	Score         int    `json:"score"`
	Status        string `json:"status"`
	IsCalibrating bool   `json:"is_calibrating"`
	HRV           int    `json:"hrv"`
	RHR           int    `json:"rhr"`
	Sleep         int    `json:"sleep"`
	Fatigue       int    `json:"fatigue"`
	Trend         int    `json:"trend"`
}

type FatigueView struct {
	Muscle          string  `json:"muscle"`
	Level           int     `json:"level"`
	LevelName       string  `json:"level_name"`
	RecoveryPercent float64 `json:"recovery_percent"`
	WeeklyVolume    int     `json:"weekly_volume"`
}

type StreakView struct {
	Current      int `json:"current"`
	Best         int `json:"best"`
	MonthlyCount int `json:"monthly_count"`
	MonthlyGoal  int `json:"monthly_goal"`
}

type WeeklyView struct {
	ActiveDays           int  `json:"active_days"`
	DaysSinceLastWorkout *int `json:"days_since_last_workout"`
}

type WeatherView struct {
	TemperatureC             float64 `json:"temperature_c"`
	FeelsLikeC               float64 `json:"feels_like_c"`
	UVIndex                  float64 `json:"uv_index"`
	PrecipitationProbability float64 `json:"precipitation_probability"`
	Condition                string  `json:"condition"`
	IsRaining                bool    `json:"is_raining"`
}

type HistoryPoint struct {
	Date  string `json:"date"`
	Score int    `json:"score"`
}

type InsightView struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Priority string `json:"priority"`
	Title    string `json:"title"`
	Message  string `json:"message"`
	Icon     string `json:"icon"`
}

// NewDashboardView flattens d for JSON output
func NewDashboardView(d *Dashboard) DashboardView {
	v := DashboardView{
		GeneratedAt:   d.GeneratedAt,
		FailedSources: []string{},
		Baseline: BaselineView{
			DaysCollected: d.Baseline.DaysCollected,
			DaysRequired:  d.Baseline.DaysRequired,
			Progress:      d.Baseline.Progress(),
			Ready:         d.Baseline.IsReady(),
		},
		HRVTrend: trendView(d.HRVTrend),
		RHRTrend: trendView(d.RHRTrend),
		Readiness: ReadinessView{
			Score:         d.Readiness.Score,
			Status:        d.Readiness.Status().String(),
			IsCalibrating: d.Readiness.IsCalibrating,
			HRV:           d.Readiness.Components.HRVScore,
			RHR:           d.Readiness.Components.RHRScore,
			Sleep:         d.Readiness.Components.SleepScore,
			Fatigue:       d.Readiness.Components.FatigueScore,
			Trend:         d.Readiness.Components.TrendBonus,
		},
		SleepMinutes: d.SleepMinutes,
		LoadRatio:    d.LoadRatio,
		Streak: StreakView{
			Current:      d.Streak.CurrentStreak,
			Best:         d.Streak.BestStreak,
			MonthlyCount: d.Streak.MonthlyCount,
			MonthlyGoal:  d.Streak.MonthlyGoal,
		},
		Weekly: WeeklyView{
			ActiveDays:           d.Weekly.ActiveDays,
			DaysSinceLastWorkout: d.Weekly.DaysSinceLastWorkout,
		},
		Focus: insightView(d.Coaching.Focus),
	}

	if d.Snapshot != nil {
		v.SnapshotID = d.Snapshot.ID
		v.FetchedAt = d.Snapshot.FetchedAt
		for _, k := range d.Snapshot.FailedSources.Kinds() {
			v.FailedSources = append(v.FailedSources, k.String())
		}
	}
	if d.Condition != nil {
		v.Condition = &ConditionView{Score: d.Condition.Score, Status: d.Condition.Status().String()}
	}
	for _, st := range d.Fatigue {
		v.Fatigue = append(v.Fatigue, fatigueView(st))
	}
	if w := d.Weather; w != nil {
		v.Weather = &WeatherView{
			TemperatureC:             w.TemperatureC,
			FeelsLikeC:               w.FeelsLikeC,
			UVIndex:                  w.UVIndex,
			PrecipitationProbability: w.PrecipitationProbability,
			Condition:                w.Condition,
			IsRaining:                w.IsRaining,
		}
	}
	for _, p := range d.ConditionHistory {
		v.History = append(v.History, HistoryPoint{Date: p.Date.Format("2006-01-02"), Score: p.Score})
	}
	for _, c := range d.Coaching.Cards {
		v.Cards = append(v.Cards, insightView(c))
	}
	return v
}

func trendView(t analysis.TrendAnalysis) TrendView {
	return TrendView{
		Direction:       t.Direction.String(),
		ConsecutiveDays: t.ConsecutiveDays,
		ChangePercent:   t.ChangePercent,
	}
}

func fatigueView(st analysis.MuscleFatigueState) FatigueView {
	v := FatigueView{
		Muscle:          string(st.Muscle),
		RecoveryPercent: st.RecoveryPercent,
		WeeklyVolume:    st.WeeklyVolume,
	}
	level := analysis.FatigueLevel(0)
	if st.CompoundScore != nil {
		level = st.CompoundScore.Level
	}
	v.Level = int(level)
	v.LevelName = level.String()
	return v
}

func insightView(in coaching.Insight) InsightView {
	return InsightView{
		ID:       in.ID,
		Category: in.Category.String(),
		Priority: in.Priority.String(),
		Title:    in.Title,
		Message:  in.Message,
		Icon:     in.IconName,
	}
}

// WorkoutScoreView is the JSON form of a WorkoutScore
type WorkoutScoreView struct {
	WorkoutID       string   `json:"workout_id"`
	RawScore        *float64 `json:"raw_score"`
	Level           string   `json:"level,omitempty"`
	Method          string   `json:"method,omitempty"`
	SuggestedEffort *int     `json:"suggested_effort"`
	HistorySize     int      `json:"history_size"`
}

// NewWorkoutScoreView flattens s for JSON output
func NewWorkoutScoreView(s *WorkoutScore) WorkoutScoreView {
	v := WorkoutScoreView{
		WorkoutID:       s.Workout.ID,
		SuggestedEffort: s.SuggestedEffort,
		HistorySize:     s.HistorySize,
	}
	if s.Intensity != nil {
		raw := s.Intensity.RawScore
		v.RawScore = &raw
		v.Level = s.Intensity.Level.String()
		v.Method = s.Intensity.Detail.Method.String()
	}
	return v
}
