package store

import "time"

// Auth represents OAuth tokens for the health provider API
type Auth struct {
	UserID       string    `db:"user_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// ConditionPoint is the last condition score recorded on a day
type ConditionPoint struct {
	Date  time.Time `db:"fetched_at"`
	Score int       `db:"condition_score"`
}

// WorkoutDefaults pre-fill new workout entries
type WorkoutDefaults struct {
	ActivityType    string `json:"activity_type"`
	DurationMinutes int    `json:"duration_minutes"`
	RPE             int    `json:"rpe"`
}

// Setting keys
const (
	SettingPinnedMetrics   = "pinned_metrics"
	SettingWorkoutDefaults = "workout_defaults"
	SettingLastSync        = "last_sync"
)
