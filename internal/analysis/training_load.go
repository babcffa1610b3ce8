package analysis

import (
	"math"
	"sort"
	"time"

	"dune-health/internal/health"
)

// HRZones represents the athlete's heart rate bounds
type HRZones struct {
	RestingHR float64
	MaxHR     float64
}

// DefaultZones returns sensible defaults if not configured
func DefaultZones() HRZones {
	return HRZones{
		RestingHR: 50,
		MaxHR:     185,
	}
}

// TRIMP calculates Training Impulse (Banister model)
// TRIMP = duration (min) * ΔHR ratio * e^(b * ΔHR ratio)
// where b = 1.92 for men, 1.67 for women (using male default)
func TRIMP(w health.Workout, zones HRZones) float64 {
	if w.AverageHeartRate == nil || !isFinite(*w.AverageHeartRate) {
		return 0
	}
	avgHR := *w.AverageHeartRate
	duration := w.Duration.Minutes()
	if avgHR <= 0 || duration <= 0 {
		return 0
	}

	hrReserve := zones.MaxHR - zones.RestingHR
	if hrReserve <= 0 {
		return 0
	}

	hrRatio := clamp((avgHR-zones.RestingHR)/hrReserve, 0, 1)

	b := 1.92
	return duration * hrRatio * math.Exp(b*hrRatio)
}

// sessionRPEScale maps Foster session-RPE (minutes × RPE) onto roughly the TRIMP range
const sessionRPEScale = 0.4

// SessionLoad returns the training load of a workout. Heart-rate tracked sessions
// use TRIMP; otherwise session-RPE is used, assuming RPE 5 when unrated.
func SessionLoad(w health.Workout, zones HRZones) float64 {
	if trimp := TRIMP(w, zones); trimp > 0 {
		return trimp
	}
	minutes := w.Duration.Minutes()
	if minutes <= 0 || !isFinite(minutes) {
		return 0
	}
	rpe := 5.0
	if validRPE(w.RPE) {
		rpe = float64(*w.RPE)
	}
	return minutes * rpe * sessionRPEScale
}

// DailyLoad represents training load for a single day
type DailyLoad struct {
	Date time.Time
	Load float64
}

// DailyLoads sums session loads per calendar day
func DailyLoads(workouts []health.Workout, zones HRZones) []DailyLoad {
	byDay := make(map[time.Time]float64)
	for _, w := range workouts {
		byDay[health.StartOfDay(w.Date)] += SessionLoad(w, zones)
	}
	out := make([]DailyLoad, 0, len(byDay))
	for d, l := range byDay {
		out = append(out, DailyLoad{Date: d, Load: l})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// FitnessMetrics represents CTL/ATL/TSB for a day
type FitnessMetrics struct {
	Date time.Time
	CTL  float64 // Chronic Training Load (42-day EMA) - "Fitness"
	ATL  float64 // Acute Training Load (7-day EMA) - "Fatigue"
	TSB  float64 // Training Stress Balance (CTL - ATL) - "Form"
}

// CalculateFitnessTrend computes CTL/ATL/TSB from daily loads through endDate.
// Days without load decay both averages.
func CalculateFitnessTrend(dailyLoads []DailyLoad, endDate time.Time) []FitnessMetrics {
	if len(dailyLoads) == 0 {
		return nil
	}

	loads := make([]DailyLoad, len(dailyLoads))
	copy(loads, dailyLoads)
	sort.Slice(loads, func(i, j int) bool {
		return loads[i].Date.Before(loads[j].Date)
	})

	ctlDecay := 2.0 / (42.0 + 1.0)
	atlDecay := 2.0 / (7.0 + 1.0)

	loadMap := make(map[string]float64)
	for _, dl := range loads {
		loadMap[dl.Date.Format("2006-01-02")] += dl.Load
	}

	startDate := health.StartOfDay(loads[0].Date)
	last := health.StartOfDay(endDate)
	if lastLoad := health.StartOfDay(loads[len(loads)-1].Date); last.Before(lastLoad) {
		last = lastLoad
	}

	var metrics []FitnessMetrics
	var ctl, atl float64
	for d := startDate; !d.After(last); d = d.AddDate(0, 0, 1) {
		load := loadMap[d.Format("2006-01-02")]

		ctl = ctl + ctlDecay*(load-ctl)
		atl = atl + atlDecay*(load-atl)

		metrics = append(metrics, FitnessMetrics{
			Date: d,
			CTL:  ctl,
			ATL:  atl,
			TSB:  ctl - atl,
		})
	}

	return metrics
}

// LoadRatio returns the acute:chronic ratio (ATL/CTL) at endDate, or nil when
// there is no chronic load to compare against.
func LoadRatio(workouts []health.Workout, zones HRZones, endDate time.Time) *float64 {
	metrics := CalculateFitnessTrend(DailyLoads(workouts, zones), endDate)
	if len(metrics) == 0 {
		return nil
	}
	current := metrics[len(metrics)-1]
	if current.CTL <= 0 {
		return nil
	}
	ratio := current.ATL / current.CTL
	if !isFinite(ratio) {
		return nil
	}
	return &ratio
}

// LoadRatioLabel describes an acute:chronic ratio
func LoadRatioLabel(ratio float64) string {
	switch {
	case ratio > 1.5:
		return "Overreaching"
	case ratio > 1.2:
		return "Building"
	case ratio >= 0.8:
		return "Optimal"
	case ratio > 0:
		return "Detraining"
	default:
		return "No History"
	}
}
