package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dune-health/internal/health"
	"dune-health/internal/store"
)

// RemoteSource is the provider API a sync reads from. provider.Client implements it.
type RemoteSource interface {
	health.HRVQuerier
	health.SleepQuerier
	health.WorkoutQuerier
}

// SyncStore is where synced data lands. store.DB implements it.
type SyncStore interface {
	health.SettingsStore
	InsertHRVSamples(ctx context.Context, samples []health.HRVSample) error
	UpsertRestingHeartRate(ctx context.Context, stat health.RHRDailyStat) error
	InsertSleepStages(ctx context.Context, stages []health.SleepStage) error
	UpsertWorkout(ctx context.Context, w *health.Workout) error
}

// SyncService copies provider data into the local store
type SyncService struct {
	remote RemoteSource
	store  SyncStore
	now    func() time.Time
	logger *zap.Logger
}

// NewSyncService creates a new sync service
func NewSyncService(remote RemoteSource, store SyncStore, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{remote: remote, store: store, now: time.Now, logger: logger}
}

// SetClock replaces the time source
func (s *SyncService) SetClock(now func() time.Time) {
	s.now = now
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase     string // "hrv", "rhr", "sleep", "workouts"
	Total     int
	Completed int
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	Days            int
	HRVSamples      int
	RHRDays         int
	SleepStages     int
	WorkoutsFetched int
	WorkoutsSaved   int
	// Errors holds per-phase fetch failures; the other phases still ran
	Errors []error
}

// SyncAll pulls everything since the last successful sync (or DefaultSyncDays
// on first run). A failed provider call is recorded and the remaining phases
// still run; a failed store write aborts. progress, if non-nil, is closed on return.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	now := s.now()
	days, err := s.lookbackDays(ctx, now)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Days: days}
	start := health.StartOfDay(now).AddDate(0, 0, -days)

	phases := []struct {
		name string
		run  func(context.Context, time.Time, time.Time, *SyncResult, chan<- SyncProgress) error
	}{
		{"hrv", s.syncHRV},
		{"rhr", s.syncRHR},
		{"sleep", s.syncSleep},
		{"workouts", s.syncWorkouts},
	}

	for _, p := range phases {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := p.run(ctx, start, now, result, progress); err != nil {
			var fe *fetchError
			if errors.As(err, &fe) {
				s.logger.Warn("sync phase failed", zap.String("phase", p.name), zap.Error(fe.err))
				result.Errors = append(result.Errors, fmt.Errorf("%s: %w", p.name, fe.err))
				continue
			}
			return result, fmt.Errorf("syncing %s: %w", p.name, err)
		}
	}

	if len(result.Errors) == 0 {
		if err := s.store.SetSetting(ctx, store.SettingLastSync, now.Format(time.RFC3339)); err != nil {
			return result, fmt.Errorf("recording sync time: %w", err)
		}
	}

	s.logger.Info("sync complete",
		zap.Int("days", days),
		zap.Int("hrv_samples", result.HRVSamples),
		zap.Int("rhr_days", result.RHRDays),
		zap.Int("sleep_stages", result.SleepStages),
		zap.Int("workouts", result.WorkoutsSaved),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

// lookbackDays covers the time since the last sync plus one day of overlap
func (s *SyncService) lookbackDays(ctx context.Context, now time.Time) (int, error) {
	raw, err := s.store.GetSetting(ctx, store.SettingLastSync)
	if err != nil {
		return 0, fmt.Errorf("reading last sync: %w", err)
	}
	if raw == "" {
		return DefaultSyncDays, nil
	}
	last, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.logger.Warn("ignoring unparsable last sync time", zap.String("value", raw))
		return DefaultSyncDays, nil
	}
	days := int(now.Sub(last).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	if days > DefaultSyncDays {
		days = DefaultSyncDays
	}
	return days, nil
}

func (s *SyncService) syncHRV(ctx context.Context, start, now time.Time, result *SyncResult, progress chan<- SyncProgress) error {
	days := int(now.Sub(start).Hours()/24 + 0.5)
	samples, err := s.remote.FetchHRVSamples(ctx, days)
	if err != nil {
		return &fetchError{err}
	}
	if err := s.store.InsertHRVSamples(ctx, samples); err != nil {
		return err
	}
	result.HRVSamples = len(samples)
	report(ctx, progress, SyncProgress{Phase: "hrv", Total: len(samples), Completed: len(samples)})
	return nil
}

func (s *SyncService) syncRHR(ctx context.Context, start, now time.Time, result *SyncResult, progress chan<- SyncProgress) error {
	stats, err := s.remote.FetchRHRCollection(ctx, start, now, 24*time.Hour)
	if err != nil {
		return &fetchError{err}
	}
	for i, stat := range stats {
		if err := s.store.UpsertRestingHeartRate(ctx, stat); err != nil {
			return err
		}
		result.RHRDays++
		report(ctx, progress, SyncProgress{Phase: "rhr", Total: len(stats), Completed: i + 1})
	}
	return nil
}

func (s *SyncService) syncSleep(ctx context.Context, start, now time.Time, result *SyncResult, progress chan<- SyncProgress) error {
	today := health.StartOfDay(now)
	total := int(today.Sub(start).Hours()/24+0.5) + 1
	done := 0
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return err
		}
		stages, err := s.remote.FetchSleepStages(ctx, day)
		if err != nil {
			return &fetchError{fmt.Errorf("%s: %w", day.Format("2006-01-02"), err)}
		}
		if len(stages) > 0 {
			if err := s.store.InsertSleepStages(ctx, stages); err != nil {
				return err
			}
			result.SleepStages += len(stages)
		}
		done++
		report(ctx, progress, SyncProgress{Phase: "sleep", Total: total, Completed: done})
	}
	return nil
}

func (s *SyncService) syncWorkouts(ctx context.Context, start, now time.Time, result *SyncResult, progress chan<- SyncProgress) error {
	workouts, err := s.remote.ListWorkouts(ctx, start, now)
	if err != nil {
		return &fetchError{err}
	}
	result.WorkoutsFetched = len(workouts)
	for i := range workouts {
		if err := s.store.UpsertWorkout(ctx, &workouts[i]); err != nil {
			return fmt.Errorf("storing workout %s: %w", workouts[i].ID, err)
		}
		result.WorkoutsSaved++
		report(ctx, progress, SyncProgress{Phase: "workouts", Total: len(workouts), Completed: i + 1})
	}
	return nil
}

// fetchError marks a provider failure, which skips a phase instead of aborting
type fetchError struct {
	err error
}

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

// report delivers progress unless ctx is done first
func report(ctx context.Context, progress chan<- SyncProgress, p SyncProgress) {
	if progress == nil {
		return
	}
	select {
	case progress <- p:
	case <-ctx.Done():
	}
}
