package service

import "time"

const (
	// Time windows
	TrendWindowDays     = 7
	WorkoutHistoryDays  = 90
	ConditionChartDays  = 30
	IntensityLookback   = 120 * 24 * time.Hour
	RecentEffortsLimit  = 5
	DefaultSyncDays     = 30
	WeatherFetchTimeout = 5 * time.Second
)
