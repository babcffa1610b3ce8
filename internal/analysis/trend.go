package analysis

import "sort"

// TrendDirection classifies a series
type TrendDirection int

const (
	TrendInsufficient TrendDirection = iota
	TrendStable
	TrendRising
	TrendFalling
)

func (d TrendDirection) String() string {
	switch d {
	case TrendStable:
		return "stable"
	case TrendRising:
		return "rising"
	case TrendFalling:
		return "falling"
	default:
		return "insufficient"
	}
}

// TrendAnalysis is the result of AnalyzeTrend
type TrendAnalysis struct {
	Direction TrendDirection
	// ConsecutiveDays counts same-signed day-over-day changes ending at the latest sample
	ConsecutiveDays int
	// ChangePercent is (last - first) / first * 100 over the window, always finite
	ChangePercent float64
}

const (
	minTrendPoints     = 3
	minTrendStreakDays = 3
)

// AnalyzeTrend classifies the trailing windowDays of a series as rising, falling or
// stable. Input order does not matter and the slice is not modified. A window with
// fewer than three points is insufficient. windowDays <= 0 uses the whole series.
func AnalyzeTrend(series []DatedValue, windowDays int) TrendAnalysis {
	points := make([]DatedValue, 0, len(series))
	for _, p := range series {
		if isFinite(p.Value) {
			points = append(points, p)
		}
	}
	if len(points) == 0 {
		return TrendAnalysis{Direction: TrendInsufficient}
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	if windowDays > 0 {
		cutoff := points[len(points)-1].Date.AddDate(0, 0, -windowDays)
		start := 0
		for start < len(points) && !points[start].Date.After(cutoff) {
			start++
		}
		points = points[start:]
	}

	if len(points) < minTrendPoints {
		return TrendAnalysis{Direction: TrendInsufficient}
	}

	// Day-over-day deltas; a zero previous value would make percent change meaningless
	deltas := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].Value
		if prev == 0 {
			continue
		}
		deltas = append(deltas, points[i].Value-prev)
	}

	streak, sign := trailingStreak(deltas)

	first := points[0].Value
	last := points[len(points)-1].Value
	change := 0.0
	if first != 0 {
		change = (last - first) / first * 100
	}
	if !isFinite(change) {
		change = 0
	}

	result := TrendAnalysis{
		Direction:       TrendStable,
		ConsecutiveDays: streak,
		ChangePercent:   change,
	}

	net := last - first
	if streak >= minTrendStreakDays {
		switch {
		case sign > 0 && net > 0:
			result.Direction = TrendRising
		case sign < 0 && net < 0:
			result.Direction = TrendFalling
		}
	}
	return result
}

// trailingStreak counts consecutive same-signed non-zero deltas from the end
func trailingStreak(deltas []float64) (int, float64) {
	if len(deltas) == 0 {
		return 0, 0
	}
	sign := signOf(deltas[len(deltas)-1])
	if sign == 0 {
		return 0, 0
	}
	count := 0
	for i := len(deltas) - 1; i >= 0; i-- {
		if signOf(deltas[i]) != sign {
			break
		}
		count++
	}
	return count, sign
}

func signOf(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
