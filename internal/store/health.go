package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"dune-health/internal/health"
)

// A night of sleep belongs to the day it ends on: stages starting after
// 18:00 count toward the next day.
const sleepDayOffset = 6 * time.Hour

var (
	_ health.HRVQuerier     = (*DB)(nil)
	_ health.SleepQuerier   = (*DB)(nil)
	_ health.WorkoutQuerier = (*DB)(nil)
	_ health.SettingsStore  = (*DB)(nil)
)

// InsertHRVSamples stores samples, ignoring ones already recorded at the same instant
func (db *DB) InsertHRVSamples(ctx context.Context, samples []health.HRVSample) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, s := range samples {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO hrv_samples (value, sampled_at) VALUES (?, ?)
			ON CONFLICT(sampled_at) DO UPDATE SET value = excluded.value
		`, s.Value, toUnix(s.Date)); err != nil {
			return fmt.Errorf("inserting hrv sample: %w", err)
		}
	}
	return tx.Commit()
}

// FetchHRVSamples returns samples from the last days days, oldest first
func (db *DB) FetchHRVSamples(ctx context.Context, days int) ([]health.HRVSample, error) {
	since := health.StartOfDay(db.now().In(db.loc)).AddDate(0, 0, -days)
	rows, err := db.QueryContext(ctx, `
		SELECT value, sampled_at FROM hrv_samples
		WHERE sampled_at >= ?
		ORDER BY sampled_at ASC
	`, toUnix(since))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []health.HRVSample
	for rows.Next() {
		var s health.HRVSample
		var at int64
		if err := rows.Scan(&s.Value, &at); err != nil {
			return nil, err
		}
		s.Date = db.fromUnix(at)
		samples = append(samples, s)
	}
	return samples, rows.Err()
}

// UpsertRestingHeartRate stores the daily resting heart rate summary
func (db *DB) UpsertRestingHeartRate(ctx context.Context, stat health.RHRDailyStat) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO resting_heart_rate (day, min, max, average)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			min = excluded.min,
			max = excluded.max,
			average = excluded.average
	`, db.dayKey(stat.Date), stat.Min, stat.Max, stat.Average)
	return err
}

// FetchRestingHeartRate returns the day's average, or nil when none was recorded
func (db *DB) FetchRestingHeartRate(ctx context.Context, date time.Time) (*float64, error) {
	var avg float64
	err := db.QueryRowContext(ctx, `
		SELECT average FROM resting_heart_rate WHERE day = ?
	`, db.dayKey(date)).Scan(&avg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &avg, nil
}

// FetchLatestRestingHeartRate returns the most recent reading within withinDays
func (db *DB) FetchLatestRestingHeartRate(ctx context.Context, withinDays int) (*health.RHRReading, error) {
	since := db.now().AddDate(0, 0, -withinDays)
	var day string
	var avg float64
	err := db.QueryRowContext(ctx, `
		SELECT day, average FROM resting_heart_rate
		WHERE day >= ?
		ORDER BY day DESC
		LIMIT 1
	`, db.dayKey(since)).Scan(&day, &avg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	date, err := db.parseDay(day)
	if err != nil {
		return nil, fmt.Errorf("parsing day %q: %w", day, err)
	}
	return &health.RHRReading{Value: avg, Date: date}, nil
}

// FetchRHRCollection returns summaries between start and end inclusive, grouped
// into buckets of interval (at least one day) aligned to start
func (db *DB) FetchRHRCollection(ctx context.Context, start, end time.Time, interval time.Duration) ([]health.RHRDailyStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT day, min, max, average FROM resting_heart_rate
		WHERE day >= ? AND day <= ?
		ORDER BY day ASC
	`, db.dayKey(start), db.dayKey(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var daily []health.RHRDailyStat
	for rows.Next() {
		var day string
		var s health.RHRDailyStat
		if err := rows.Scan(&day, &s.Min, &s.Max, &s.Average); err != nil {
			return nil, err
		}
		if s.Date, err = db.parseDay(day); err != nil {
			return nil, fmt.Errorf("parsing day %q: %w", day, err)
		}
		daily = append(daily, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	days := int(interval / (24 * time.Hour))
	if days <= 1 {
		return daily, nil
	}
	return bucketRHR(daily, health.StartOfDay(start.In(db.loc)), days), nil
}

func bucketRHR(daily []health.RHRDailyStat, origin time.Time, days int) []health.RHRDailyStat {
	var out []health.RHRDailyStat
	var count int
	for _, s := range daily {
		idx := int(s.Date.Sub(origin).Hours()/24) / days
		bucketStart := origin.AddDate(0, 0, idx*days)
		if len(out) == 0 || !out[len(out)-1].Date.Equal(bucketStart) {
			if count > 0 {
				out[len(out)-1].Average /= float64(count)
			}
			out = append(out, health.RHRDailyStat{Date: bucketStart, Min: s.Min, Max: s.Max})
			count = 0
		}
		b := &out[len(out)-1]
		if s.Min < b.Min {
			b.Min = s.Min
		}
		if s.Max > b.Max {
			b.Max = s.Max
		}
		b.Average += s.Average
		count++
	}
	if count > 0 {
		out[len(out)-1].Average /= float64(count)
	}
	return out
}

// InsertSleepStages stores stage intervals, replacing any with the same start and stage
func (db *DB) InsertSleepStages(ctx context.Context, stages []health.SleepStage) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, st := range stages {
		end := st.EndDate
		if end.IsZero() {
			end = st.StartDate.Add(st.Duration)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sleep_stages (stage, start_at, end_at) VALUES (?, ?, ?)
			ON CONFLICT(start_at, stage) DO UPDATE SET end_at = excluded.end_at
		`, st.Stage.String(), toUnix(st.StartDate), toUnix(end)); err != nil {
			return fmt.Errorf("inserting sleep stage: %w", err)
		}
	}
	return tx.Commit()
}

func (db *DB) sleepWindow(date time.Time) (time.Time, time.Time) {
	day := health.StartOfDay(date.In(db.loc))
	return day.Add(-sleepDayOffset), day.AddDate(0, 0, 1).Add(-sleepDayOffset)
}

func (db *DB) querySleepStages(ctx context.Context, from, to time.Time) ([]health.SleepStage, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT stage, start_at, end_at FROM sleep_stages
		WHERE start_at >= ? AND start_at < ?
		ORDER BY start_at ASC
	`, toUnix(from), toUnix(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []health.SleepStage
	for rows.Next() {
		var kind string
		var start, end int64
		if err := rows.Scan(&kind, &start, &end); err != nil {
			return nil, err
		}
		st := health.SleepStage{
			Stage:     health.ParseSleepStageKind(kind),
			StartDate: db.fromUnix(start),
			EndDate:   db.fromUnix(end),
		}
		st.Duration = st.EndDate.Sub(st.StartDate)
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

// FetchSleepStages returns the stages of the night ending on date
func (db *DB) FetchSleepStages(ctx context.Context, date time.Time) ([]health.SleepStage, error) {
	from, to := db.sleepWindow(date)
	return db.querySleepStages(ctx, from, to)
}

// FetchLatestSleepStages returns the most recent night within withinDays, or nil
func (db *DB) FetchLatestSleepStages(ctx context.Context, withinDays int) (*health.SleepReading, error) {
	now := db.now().In(db.loc)
	for i := 0; i <= withinDays; i++ {
		date := health.StartOfDay(now).AddDate(0, 0, -i)
		stages, err := db.FetchSleepStages(ctx, date)
		if err != nil {
			return nil, err
		}
		if len(stages) > 0 {
			return &health.SleepReading{Stages: stages, Date: date}, nil
		}
	}
	return nil, nil
}

// FetchDailySleepDurations returns one entry per night between start and end
func (db *DB) FetchDailySleepDurations(ctx context.Context, start, end time.Time) ([]health.DailySleep, error) {
	from, _ := db.sleepWindow(start)
	_, to := db.sleepWindow(end)
	stages, err := db.querySleepStages(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byDay := make(map[time.Time]*health.DailySleep)
	for _, st := range stages {
		day := health.StartOfDay(st.StartDate.Add(sleepDayOffset))
		d, ok := byDay[day]
		if !ok {
			d = &health.DailySleep{Date: day, StageBreakdown: make(map[health.SleepStageKind]float64)}
			byDay[day] = d
		}
		minutes := st.Duration.Minutes()
		d.StageBreakdown[st.Stage] += minutes
		if st.Stage != health.StageAwake {
			d.TotalMinutes += minutes
		}
	}

	out := make([]health.DailySleep, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}
