package analysis

import (
	"math"
	"sort"
	"time"

	"dune-health/internal/health"
)

// DatedValue is a single observation in a daily series
type DatedValue struct {
	Date  time.Time
	Value float64
}

// isFinite reports whether v is neither NaN nor ±Inf
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampScore rounds half away from zero and clamps to [0,100].
// Non-finite input maps to the neutral midpoint.
func clampScore(v float64) int {
	if !isFinite(v) {
		return NeutralScore
	}
	return int(clamp(math.Round(v), 0, 100))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdDev is the population standard deviation
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)))
}

// DailyHRVAverages groups HRV samples by calendar day (in each sample's location)
// and returns one averaged value per day sorted ascending. Non-finite and
// non-positive samples are ignored.
func DailyHRVAverages(samples []health.HRVSample) []DatedValue {
	type bucket struct {
		day   time.Time
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for _, s := range samples {
		if !isFinite(s.Value) || s.Value <= 0 {
			continue
		}
		day := health.StartOfDay(s.Date)
		b, ok := buckets[day]
		if !ok {
			b = &bucket{day: day}
			buckets[day] = b
		}
		b.sum += s.Value
		b.count++
	}

	out := make([]DatedValue, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, DatedValue{Date: b.day, Value: b.sum / float64(b.count)})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// RHRSeries converts the RHR collection to a daily series of averages
func RHRSeries(stats []health.RHRDailyStat) []DatedValue {
	out := make([]DatedValue, 0, len(stats))
	for _, s := range stats {
		if !isFinite(s.Average) || s.Average <= 0 {
			continue
		}
		out = append(out, DatedValue{Date: s.Date, Value: s.Average})
	}
	return out
}

// SleepSeries converts daily sleep durations to a series of total minutes
func SleepSeries(days []health.DailySleep) []DatedValue {
	out := make([]DatedValue, 0, len(days))
	for _, d := range days {
		if !isFinite(d.TotalMinutes) || d.TotalMinutes <= 0 {
			continue
		}
		out = append(out, DatedValue{Date: d.Date, Value: d.TotalMinutes})
	}
	return out
}

func values(series []DatedValue) []float64 {
	out := make([]float64, len(series))
	for i, dv := range series {
		out[i] = dv.Value
	}
	return out
}
