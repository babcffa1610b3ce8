package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"dune-health/internal/analysis"
	"dune-health/internal/coaching"
	"dune-health/internal/health"
	"dune-health/internal/refresh"
	"dune-health/internal/store"
)

// SnapshotSource supplies the current health snapshot. cache.Cache implements it.
type SnapshotSource interface {
	FetchSnapshot(ctx context.Context) *health.Snapshot
}

// ConditionHistorian returns recorded condition scores. store.DB implements it.
type ConditionHistorian interface {
	ConditionHistory(ctx context.Context, days int) ([]store.ConditionPoint, error)
}

// DashboardConfig holds the scoring parameters and goals used by Build
type DashboardConfig struct {
	Condition   analysis.ConditionParams
	Fatigue     analysis.FatigueParams
	Zones       analysis.HRZones
	WeeklyGoal  int
	MonthlyGoal int
}

// DefaultDashboardConfig returns default scoring parameters with no goals
func DefaultDashboardConfig() DashboardConfig {
	return DashboardConfig{
		Condition: analysis.DefaultConditionParams(),
		Fatigue:   analysis.DefaultFatigueParams(),
		Zones:     analysis.DefaultZones(),
	}
}

// Dashboard is everything shown for one refresh
type Dashboard struct {
	GeneratedAt time.Time
	Snapshot    *health.Snapshot

	Condition *health.ConditionScore
	Baseline  health.BaselineStatus
	HRVTrend  analysis.TrendAnalysis
	RHRTrend  analysis.TrendAnalysis
	Readiness analysis.TrainingReadiness

	// SleepMinutes is last night's asleep time, nil without stage data
	SleepMinutes *float64
	Fatigue      []analysis.MuscleFatigueState
	LoadRatio    *float64

	Streak analysis.WorkoutStreak
	Weekly analysis.WeeklyActivity

	// Weather is nil when no provider is configured or the fetch failed
	Weather *health.WeatherSnapshot

	ConditionHistory []store.ConditionPoint

	Coaching coaching.Output
}

// DashboardService assembles dashboards from the cached snapshot and local workouts
type DashboardService struct {
	snapshots SnapshotSource
	workouts  health.WorkoutQuerier
	weather   health.WeatherProvider
	history   ConditionHistorian
	cfg       DashboardConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewDashboardService creates a dashboard service. weather and history may be nil.
func NewDashboardService(snapshots SnapshotSource, workouts health.WorkoutQuerier, weather health.WeatherProvider, history ConditionHistorian, cfg DashboardConfig, logger *zap.Logger) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		snapshots: snapshots,
		workouts:  workouts,
		weather:   weather,
		history:   history,
		cfg:       cfg,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the time source
func (s *DashboardService) SetClock(now func() time.Time) {
	s.now = now
}

// Build assembles the dashboard. It never fails: missing workouts, weather or
// history leave their sections empty and are logged.
func (s *DashboardService) Build(ctx context.Context) *Dashboard {
	now := s.now()
	snap := s.snapshots.FetchSnapshot(ctx)

	d := &Dashboard{
		GeneratedAt: now,
		Snapshot:    snap,
		Condition:   snap.Condition,
		Baseline:    snap.BaselineStatus,
	}
	if !snap.FailedSources.Empty() {
		s.logger.Warn("snapshot has failed sources", zap.Stringer("failed", snap.FailedSources))
	}

	dailyHRV := analysis.DailyHRVAverages(snap.HRVSamples)
	d.HRVTrend = analysis.AnalyzeTrend(dailyHRV, TrendWindowDays)
	d.RHRTrend = analysis.AnalyzeTrend(analysis.RHRSeries(snap.RHRCollection), TrendWindowDays)

	var stageMinutes map[health.SleepStageKind]float64
	if stages := snap.LastNightStages(); len(stages) > 0 {
		m := health.SleepMinutes(stages)
		d.SleepMinutes = &m
		stageMinutes = health.StageMinutes(stages)
	}

	workouts, err := s.workouts.ListWorkouts(ctx, now.AddDate(0, 0, -WorkoutHistoryDays), now)
	if err != nil {
		s.logger.Warn("listing workouts failed", zap.Error(err))
		workouts = nil
	}

	in := analysis.ReadinessInput{
		DailyHRV:             dailyHRV,
		TodayRHR:             snap.EffectiveRHR(),
		RHRBaseline:          snap.RHRBaseline(now),
		SleepMinutes:         d.SleepMinutes,
		SleepStageMinutes:    stageMinutes,
		SleepBaselineMinutes: sleepBaseline(snap.DailySleep, now),
		HRVTrend:             &d.HRVTrend,
		Params:               s.cfg.Condition,
	}

	// Fatigue decays faster or slower depending on readiness, so readiness is
	// first computed without fatigue to derive the modifier
	provisional := analysis.ComputeTrainingReadiness(in)
	mods := analysis.FatigueModifiers{
		Sleep:     analysis.SleepModifier(d.SleepMinutes),
		Readiness: analysis.ReadinessModifier(&provisional.Score),
	}
	d.Fatigue = analysis.ComputeFatigue(workouts, now, mods, s.cfg.Fatigue, s.cfg.Zones)

	in.FatigueStates = d.Fatigue
	d.Readiness = analysis.ComputeTrainingReadiness(in)

	d.LoadRatio = analysis.LoadRatio(workouts, s.cfg.Zones, now)
	d.Streak = analysis.ComputeStreak(workouts, now, s.cfg.MonthlyGoal)
	d.Weekly = analysis.ComputeWeeklyActivity(workouts, now)

	d.Weather = s.fetchWeather(ctx)

	if s.history != nil {
		points, err := s.history.ConditionHistory(ctx, ConditionChartDays)
		if err != nil {
			s.logger.Warn("loading condition history failed", zap.Error(err))
		}
		d.ConditionHistory = points
	}

	d.Coaching = coaching.Generate(coaching.Input{
		Now:           now,
		Condition:     d.Condition,
		HRVTrend:      &d.HRVTrend,
		Readiness:     &d.Readiness,
		FatigueStates: d.Fatigue,
		SleepMinutes:  d.SleepMinutes,
		Weekly:        d.Weekly,
		WeeklyGoal:    s.cfg.WeeklyGoal,
		Streak:        d.Streak,
		Weather:       d.Weather,
	})

	s.logger.Debug("dashboard built",
		zap.Int("readiness", d.Readiness.Score),
		zap.String("focus", d.Coaching.Focus.ID),
		zap.Int("workouts", len(workouts)),
	)
	return d
}

func (s *DashboardService) fetchWeather(ctx context.Context) *health.WeatherSnapshot {
	if s.weather == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, WeatherFetchTimeout)
	defer cancel()

	w, err := s.weather.CurrentWeather(ctx)
	if err != nil {
		s.logger.Warn("fetching weather failed", zap.Error(err))
		return nil
	}
	return w
}

// Watch builds a dashboard for every refresh event and hands it to render.
// It returns when ctx is done or events is closed.
func (s *DashboardService) Watch(ctx context.Context, events <-chan refresh.Source, render func(refresh.Source, *Dashboard)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case source, ok := <-events:
			if !ok {
				return nil
			}
			s.logger.Info("refresh received", zap.Stringer("source", source))
			render(source, s.Build(ctx))
		}
	}
}

// sleepBaseline averages recorded nights before today
func sleepBaseline(days []health.DailySleep, now time.Time) *float64 {
	today := health.StartOfDay(now)
	var sum float64
	var n int
	for _, d := range days {
		if d.TotalMinutes <= 0 || !health.StartOfDay(d.Date).Before(today) {
			continue
		}
		sum += d.TotalMinutes
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}
