package service

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"dune-health/internal/refresh"
	"dune-health/internal/store"
)

// Refresher is the refresh entry point the server drives. refresh.Coordinator implements it.
type Refresher interface {
	RequestRefresh(source refresh.Source) bool
	ForceRefresh()
}

// Server exposes dashboards and refresh triggers over HTTP
type Server struct {
	dashboards *DashboardService
	workouts   *WorkoutService
	refresher  Refresher
	prefs      PreferenceStore
	origins    []string
	logger     *zap.Logger
}

// NewServer creates an HTTP server. origins lists the CORS origins allowed to call the API.
func NewServer(dashboards *DashboardService, workouts *WorkoutService, refresher Refresher, prefs PreferenceStore, origins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		dashboards: dashboards,
		workouts:   workouts,
		refresher:  refresher,
		prefs:      prefs,
		origins:    origins,
		logger:     logger,
	}
}

// Handler returns the routed, CORS-wrapped handler
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/dashboard", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/api/hooks/provider", s.handleProviderHook).Methods(http.MethodPost)
	r.HandleFunc("/api/workouts/{id}/score", s.handleScoreWorkout).Methods(http.MethodPost)
	r.HandleFunc("/api/preferences/pinned", s.handleGetPinned).Methods(http.MethodGet)
	r.HandleFunc("/api/preferences/pinned", s.handlePutPinned).Methods(http.MethodPut)
	r.HandleFunc("/api/preferences/workout-defaults", s.handleGetWorkoutDefaults).Methods(http.MethodGet)
	r.HandleFunc("/api/preferences/workout-defaults", s.handlePutWorkoutDefaults).Methods(http.MethodPut)
	r.Use(s.loggingMiddleware)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.String("addr", addr))
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NewDashboardView(s.dashboards.Build(r.Context())))
}

// handleRefresh is the pull-to-refresh path: it bypasses the throttle
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refresher.ForceRefresh()
	writeJSON(w, http.StatusOK, NewDashboardView(s.dashboards.Build(r.Context())))
}

// handleProviderHook is called when the provider reports new data
func (s *Server) handleProviderHook(w http.ResponseWriter, r *http.Request) {
	accepted := s.refresher.RequestRefresh(refresh.SourceProviderObserver)
	writeJSON(w, http.StatusAccepted, map[string]bool{"refreshed": accepted})
}

func (s *Server) handleScoreWorkout(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	score, err := s.workouts.Score(r.Context(), id)
	if errors.Is(err, store.ErrWorkoutNotFound) {
		writeError(w, http.StatusNotFound, "workout not found")
		return
	}
	if err != nil {
		s.logger.Error("scoring workout failed", zap.String("workout", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "scoring failed")
		return
	}
	writeJSON(w, http.StatusOK, NewWorkoutScoreView(score))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapper.statusCode),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
