package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dune-health/internal/analysis"
	"dune-health/internal/health"
)

// WorkoutStore is the persistence WorkoutService needs. store.DB implements it.
type WorkoutStore interface {
	GetWorkout(ctx context.Context, id string) (*health.Workout, error)
	ListWorkouts(ctx context.Context, start, end time.Time) ([]health.Workout, error)
	RecentEfforts(ctx context.Context, limit int, excludeID string) ([]int, error)
	SetWorkoutIntensity(ctx context.Context, id string, intensityRaw *float64, effort *int) error
}

// WorkoutScore is the outcome of scoring one session
type WorkoutScore struct {
	Workout *health.Workout
	// Intensity is nil when no signal was computable
	Intensity *analysis.IntensityResult
	// SuggestedEffort is nil with neither intensity nor effort history
	SuggestedEffort *int
	HistorySize     int
}

// WorkoutService scores sessions against their history
type WorkoutService struct {
	store  WorkoutStore
	logger *zap.Logger
}

// NewWorkoutService creates a workout scoring service
func NewWorkoutService(store WorkoutStore, logger *zap.Logger) *WorkoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkoutService{store: store, logger: logger}
}

// Score computes the intensity of the workout id against earlier sessions of
// the same input kind, suggests an effort rating and stores both
func (s *WorkoutService) Score(ctx context.Context, id string) (*WorkoutScore, error) {
	w, err := s.store.GetWorkout(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading workout %s: %w", id, err)
	}

	past, err := s.store.ListWorkouts(ctx, w.Date.Add(-IntensityLookback), w.Date)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	kind := w.PrimaryInputKind()
	history := make([]health.Workout, 0, len(past))
	for _, h := range past {
		if h.ID == w.ID || !h.Date.Before(w.Date) || h.PrimaryInputKind() != kind {
			continue
		}
		history = append(history, h)
	}

	result := analysis.CalculateIntensity(*w, history, nil)

	efforts, err := s.store.RecentEfforts(ctx, RecentEffortsLimit, w.ID)
	if err != nil {
		return nil, fmt.Errorf("loading recent efforts: %w", err)
	}

	var raw *float64
	if result != nil {
		r := result.RawScore
		raw = &r
	}
	effort := analysis.SuggestEffort(raw, efforts)

	if err := s.store.SetWorkoutIntensity(ctx, w.ID, raw, effort); err != nil {
		return nil, fmt.Errorf("saving intensity: %w", err)
	}
	w.IntensityRaw = raw
	w.Effort = effort

	fields := []zap.Field{zap.String("workout", w.ID), zap.Int("history", len(history))}
	if result != nil {
		fields = append(fields, zap.Float64("raw", result.RawScore), zap.Stringer("level", result.Level))
	}
	s.logger.Info("workout scored", fields...)

	return &WorkoutScore{
		Workout:         w,
		Intensity:       result,
		SuggestedEffort: effort,
		HistorySize:     len(history),
	}, nil
}
