package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"dune-health/internal/store"
)

// PreferenceStore persists dashboard preferences. store.DB implements it.
type PreferenceStore interface {
	PinnedMetrics(ctx context.Context) ([]string, error)
	SetPinnedMetrics(ctx context.Context, metrics []string) error
	GetWorkoutDefaults(ctx context.Context) (store.WorkoutDefaults, error)
	SetWorkoutDefaults(ctx context.Context, d store.WorkoutDefaults) error
}

// PinnableMetrics are the dashboard sections a client may pin
var PinnableMetrics = []string{
	"condition", "readiness", "hrv", "rhr", "sleep", "load_ratio", "streak", "weekly", "weather", "fatigue",
}

const maxPinnedMetrics = 4

func validatePinned(metrics []string) error {
	if len(metrics) > maxPinnedMetrics {
		return fmt.Errorf("at most %d metrics can be pinned", maxPinnedMetrics)
	}
	seen := make(map[string]bool, len(metrics))
	for _, m := range metrics {
		if seen[m] {
			return fmt.Errorf("metric %q pinned twice", m)
		}
		seen[m] = true
		known := false
		for _, p := range PinnableMetrics {
			if p == m {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown metric %q", m)
		}
	}
	return nil
}

func validateWorkoutDefaults(d store.WorkoutDefaults) error {
	if d.DurationMinutes < 0 || d.DurationMinutes > 24*60 {
		return fmt.Errorf("duration_minutes must be between 0 and 1440")
	}
	if d.RPE < 0 || d.RPE > 10 {
		return fmt.Errorf("rpe must be between 0 and 10")
	}
	return nil
}

func (s *Server) handleGetPinned(w http.ResponseWriter, r *http.Request) {
	metrics, err := s.prefs.PinnedMetrics(r.Context())
	if err != nil {
		s.logger.Error("loading pinned metrics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "loading preferences failed")
		return
	}
	if metrics == nil {
		metrics = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"metrics": metrics})
}

func (s *Server) handlePutPinned(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Metrics []string `json:"metrics"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validatePinned(body.Metrics); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Metrics == nil {
		body.Metrics = []string{}
	}
	if err := s.prefs.SetPinnedMetrics(r.Context(), body.Metrics); err != nil {
		s.logger.Error("saving pinned metrics failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "saving preferences failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"metrics": body.Metrics})
}

func (s *Server) handleGetWorkoutDefaults(w http.ResponseWriter, r *http.Request) {
	d, err := s.prefs.GetWorkoutDefaults(r.Context())
	if err != nil {
		s.logger.Error("loading workout defaults failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "loading preferences failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handlePutWorkoutDefaults(w http.ResponseWriter, r *http.Request) {
	var d store.WorkoutDefaults
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateWorkoutDefaults(d); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.prefs.SetWorkoutDefaults(r.Context(), d); err != nil {
		s.logger.Error("saving workout defaults failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "saving preferences failed")
		return
	}
	writeJSON(w, http.StatusOK, d)
}
