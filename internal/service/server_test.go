package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dune-health/internal/health"
	"dune-health/internal/refresh"
	"dune-health/internal/store"
)

type fakeRefresher struct {
	requests []refresh.Source
	forced   int
	accept   bool
}

func (f *fakeRefresher) RequestRefresh(source refresh.Source) bool {
	f.requests = append(f.requests, source)
	return f.accept
}

func (f *fakeRefresher) ForceRefresh() {
	f.forced++
}

func newTestServer(t *testing.T, refresher Refresher) http.Handler {
	t.Helper()
	db := openTestDB(t)
	seedWorkouts(t, db, health.Workout{ID: "w1", Date: testNow, ActivityType: "yoga", RPE: intPtr(5)})

	dash := newTestDashboard(&fakeSnapshots{snap: fullSnapshot()}, db, nil, db)
	return NewServer(dash, NewWorkoutService(db, nil), refresher, db, []string{"http://localhost:3000"}, nil).Handler()
}

func TestServer_Dashboard(t *testing.T) {
	h := newTestServer(t, &fakeRefresher{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var v DashboardView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "snap-1", v.SnapshotID)
	require.NotNil(t, v.Condition)
	assert.Equal(t, 71, v.Condition.Score)
	assert.Equal(t, "good", v.Condition.Status)
	assert.NotEmpty(t, v.Focus.ID)
	assert.Empty(t, v.FailedSources)
}

func TestServer_RefreshForces(t *testing.T) {
	r := &fakeRefresher{}
	h := newTestServer(t, r)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/refresh", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, r.forced)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/refresh", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_ProviderHook(t *testing.T) {
	tests := []struct {
		name   string
		accept bool
	}{
		{"accepted", true},
		{"throttled", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRefresher{accept: tt.accept}
			h := newTestServer(t, r)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/hooks/provider", nil))
			assert.Equal(t, http.StatusAccepted, rec.Code)
			assert.Equal(t, []refresh.Source{refresh.SourceProviderObserver}, r.requests)

			var body map[string]bool
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.accept, body["refreshed"])
		})
	}
}

func TestServer_ScoreWorkout(t *testing.T) {
	h := newTestServer(t, &fakeRefresher{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workouts/w1/score", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var v WorkoutScoreView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "w1", v.WorkoutID)
	require.NotNil(t, v.RawScore)
	assert.InDelta(t, 0.5, *v.RawScore, 1e-9)
	assert.Equal(t, "rpeOnly", v.Method)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/workouts/nope/score", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_CORS(t *testing.T) {
	h := newTestServer(t, &fakeRefresher{})

	req := httptest.NewRequest(http.MethodOptions, "/api/dashboard", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestServer_PinnedMetrics(t *testing.T) {
	h := newTestServer(t, &fakeRefresher{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preferences/pinned", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"metrics":[]}`, rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/preferences/pinned", strings.NewReader(`{"metrics":["hrv","sleep"]}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preferences/pinned", nil))
	assert.JSONEq(t, `{"metrics":["hrv","sleep"]}`, rec.Body.String())

	bad := []string{
		`{"metrics":["hrv","vo2max"]}`,
		`{"metrics":["hrv","hrv"]}`,
		`{"metrics":["hrv","rhr","sleep","streak","weather"]}`,
		`not json`,
	}
	for _, body := range bad {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/preferences/pinned", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestServer_WorkoutDefaults(t *testing.T) {
	h := newTestServer(t, &fakeRefresher{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/preferences/workout-defaults",
		strings.NewReader(`{"activity_type":"running","duration_minutes":45,"rpe":6}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preferences/workout-defaults", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var d store.WorkoutDefaults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, store.WorkoutDefaults{ActivityType: "running", DurationMinutes: 45, RPE: 6}, d)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/preferences/workout-defaults", strings.NewReader(`{"rpe":11}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
