package analysis

import (
	"math"

	"dune-health/internal/health"
)

// IntensityMethod identifies how a session's intensity was derived
type IntensityMethod int

const (
	MethodOneRMBased IntensityMethod = iota
	MethodRepsPercentile
	MethodPacePercentile
	MethodManualIntensity
	MethodRoundsPercentile
	MethodRPEOnly
)

func (m IntensityMethod) String() string {
	switch m {
	case MethodOneRMBased:
		return "oneRMBased"
	case MethodRepsPercentile:
		return "repsPercentile"
	case MethodPacePercentile:
		return "pacePercentile"
	case MethodManualIntensity:
		return "manualIntensity"
	case MethodRoundsPercentile:
		return "roundsPercentile"
	default:
		return "rpeOnly"
	}
}

// IntensityLevel buckets a raw intensity score
type IntensityLevel int

const (
	IntensityVeryLight IntensityLevel = iota
	IntensityLight
	IntensityModerate
	IntensityHard
	IntensityMaxEffort
)

func (l IntensityLevel) String() string {
	switch l {
	case IntensityLight:
		return "light"
	case IntensityModerate:
		return "moderate"
	case IntensityHard:
		return "hard"
	case IntensityMaxEffort:
		return "maxEffort"
	default:
		return "veryLight"
	}
}

// IntensityLevelFor maps a raw score onto a level. Values outside [0,1] fall
// into the nearest extreme band.
func IntensityLevelFor(raw float64) IntensityLevel {
	switch {
	case raw >= 0.8:
		return IntensityMaxEffort
	case raw >= 0.6:
		return IntensityHard
	case raw >= 0.4:
		return IntensityModerate
	case raw >= 0.2:
		return IntensityLight
	default:
		return IntensityVeryLight
	}
}

// IntensityDetail records the signals behind a result; nil signals were not computable
type IntensityDetail struct {
	Method        IntensityMethod
	PrimarySignal *float64
	VolumeSignal  *float64
	RPESignal     *float64
}

// IntensityResult is the estimated intensity of one session
type IntensityResult struct {
	RawScore float64
	Level    IntensityLevel
	Detail   IntensityDetail
}

const (
	maxPlausibleWeightKg = 500.0

	primaryWeight = 0.7
	volumeWeight  = 0.3
	rpeWeight     = 0.1

	minPrimaryHistory = 2
	minVolumeHistory  = 1
)

func validRPE(rpe *int) bool {
	return rpe != nil && *rpe >= 1 && *rpe <= 10
}

func validWeight(w *float64) bool {
	return w != nil && isFinite(*w) && *w > 0 && *w <= maxPlausibleWeightKg
}

// EstimateOneRM returns the Epley estimate, 1RM = weight × (1 + reps/30)
func EstimateOneRM(weight float64, reps int) float64 {
	if weight <= 0 || reps <= 0 {
		return 0
	}
	if reps == 1 {
		return weight
	}
	return weight * (1 + float64(reps)/30)
}

// CalculateIntensity scores a session against its history. History is filtered to
// sessions of the same primary input kind, matched on the leading exercise name.
// It returns nil when no signal is computable.
func CalculateIntensity(session health.Workout, history []health.Workout, estimated1RM *float64) *IntensityResult {
	kind := session.PrimaryInputKind()
	ex := leadExercise(session, kind)

	var past []health.ExerciseRecord
	for _, h := range history {
		if h.ID != "" && h.ID == session.ID {
			continue
		}
		if h.PrimaryInputKind() != kind {
			continue
		}
		hex := leadExercise(h, kind)
		if hex == nil || (ex != nil && ex.Name != "" && hex.Name != ex.Name) {
			continue
		}
		past = append(past, *hex)
	}

	detail := IntensityDetail{Method: methodFor(kind)}
	if ex != nil {
		switch detail.Method {
		case MethodOneRMBased:
			detail.PrimarySignal, detail.VolumeSignal = oneRMSignals(*ex, past, estimated1RM)
		case MethodManualIntensity:
			detail.PrimarySignal = manualSignal(*ex)
			detail.VolumeSignal = percentileSignal(*ex, past, kind, volumeMetric, false, minVolumeHistory)
		case MethodRepsPercentile, MethodPacePercentile, MethodRoundsPercentile:
			inverted := detail.Method == MethodPacePercentile
			detail.PrimarySignal = percentileSignal(*ex, past, kind, primaryMetric, inverted, minPrimaryHistory)
			detail.VolumeSignal = percentileSignal(*ex, past, kind, volumeMetric, false, minVolumeHistory)
		}
	}

	if validRPE(session.RPE) {
		r := float64(*session.RPE) / 10
		detail.RPESignal = &r
	}

	raw, ok := blend(detail)
	if !ok {
		return nil
	}
	if detail.PrimarySignal == nil && detail.VolumeSignal == nil {
		detail.Method = MethodRPEOnly
	}
	return &IntensityResult{
		RawScore: raw,
		Level:    IntensityLevelFor(raw),
		Detail:   detail,
	}
}

func methodFor(kind health.InputKind) IntensityMethod {
	switch kind {
	case health.InputWeightReps:
		return MethodOneRMBased
	case health.InputReps:
		return MethodRepsPercentile
	case health.InputDurationDistance:
		return MethodPacePercentile
	case health.InputDurationIntensity:
		return MethodManualIntensity
	case health.InputRounds:
		return MethodRoundsPercentile
	default:
		return MethodRPEOnly
	}
}

func leadExercise(w health.Workout, kind health.InputKind) *health.ExerciseRecord {
	for i := range w.Exercises {
		if w.Exercises[i].InputKind == kind {
			return &w.Exercises[i]
		}
	}
	return nil
}

// blend combines the present signals. Primary and volume share 0.9 of the score
// when RPE is present, otherwise all of it.
func blend(d IntensityDetail) (float64, bool) {
	var sum, weight float64
	if d.PrimarySignal != nil && isFinite(*d.PrimarySignal) {
		sum += *d.PrimarySignal * primaryWeight
		weight += primaryWeight
	}
	if d.VolumeSignal != nil && isFinite(*d.VolumeSignal) {
		sum += *d.VolumeSignal * volumeWeight
		weight += volumeWeight
	}

	hasRPE := d.RPESignal != nil && isFinite(*d.RPESignal)
	switch {
	case weight > 0 && hasRPE:
		return clamp((sum/weight)*(1-rpeWeight)+*d.RPESignal*rpeWeight, 0, 1), true
	case weight > 0:
		return clamp(sum/weight, 0, 1), true
	case hasRPE:
		return clamp(*d.RPESignal, 0, 1), true
	default:
		return 0, false
	}
}

func workingSets(ex health.ExerciseRecord) []health.WorkoutSet {
	out := make([]health.WorkoutSet, 0, len(ex.Sets))
	for _, s := range ex.Sets {
		if !s.IsWarmup {
			out = append(out, s)
		}
	}
	return out
}

// oneRMSignals returns mean working weight / e1RM and the tonnage percentile
func oneRMSignals(ex health.ExerciseRecord, past []health.ExerciseRecord, estimated1RM *float64) (*float64, *float64) {
	var oneRM float64
	if estimated1RM != nil && isFinite(*estimated1RM) && *estimated1RM > 0 {
		oneRM = *estimated1RM
	} else {
		oneRM = bestOneRM(append([]health.ExerciseRecord{ex}, past...))
	}

	var primary *float64
	var total float64
	var n int
	for _, s := range workingSets(ex) {
		if validWeight(s.Weight) {
			total += *s.Weight
			n++
		}
	}
	if n > 0 && oneRM > 0 {
		ratio := clamp(total/float64(n)/oneRM, 0, 1)
		primary = &ratio
	}

	var volume *float64
	if current, ok := tonnage(ex); ok {
		var hist []float64
		for _, p := range past {
			if t, ok := tonnage(p); ok {
				hist = append(hist, t)
			}
		}
		if len(hist) >= minVolumeHistory {
			v := percentileRank(current, hist, false)
			volume = &v
		}
	}
	return primary, volume
}

func bestOneRM(records []health.ExerciseRecord) float64 {
	best := 0.0
	for _, r := range records {
		for _, s := range workingSets(r) {
			if !validWeight(s.Weight) || s.Reps == nil {
				continue
			}
			if e := EstimateOneRM(*s.Weight, *s.Reps); e > best {
				best = e
			}
		}
	}
	return best
}

func tonnage(ex health.ExerciseRecord) (float64, bool) {
	var total float64
	found := false
	for _, s := range workingSets(ex) {
		if !validWeight(s.Weight) || s.Reps == nil || *s.Reps <= 0 {
			continue
		}
		total += *s.Weight * float64(*s.Reps)
		found = true
	}
	return total, found
}

func manualSignal(ex health.ExerciseRecord) *float64 {
	var total float64
	var n int
	for _, s := range workingSets(ex) {
		if validRPE(s.Intensity) {
			total += float64(*s.Intensity)
			n++
		}
	}
	if n == 0 {
		return nil
	}
	v := total / float64(n) / 10
	return &v
}

type metricFunc func(health.ExerciseRecord, health.InputKind) (float64, bool)

// percentileSignal ranks one metric of ex against history, or nil with fewer
// than minHistory comparable sessions
func percentileSignal(ex health.ExerciseRecord, past []health.ExerciseRecord, kind health.InputKind, metric metricFunc, inverted bool, minHistory int) *float64 {
	current, ok := metric(ex, kind)
	if !ok {
		return nil
	}
	var hist []float64
	for _, p := range past {
		if v, ok := metric(p, kind); ok {
			hist = append(hist, v)
		}
	}
	if len(hist) < minHistory {
		return nil
	}
	v := percentileRank(current, hist, inverted)
	return &v
}

// primaryMetric: best set reps, pace in seconds per km, or total rounds
func primaryMetric(ex health.ExerciseRecord, kind health.InputKind) (float64, bool) {
	sets := workingSets(ex)
	switch kind {
	case health.InputReps:
		best, found := 0, false
		for _, s := range sets {
			if s.Reps != nil && *s.Reps > best {
				best, found = *s.Reps, true
			}
		}
		return float64(best), found
	case health.InputDurationDistance:
		var secs, meters float64
		for _, s := range sets {
			if s.Duration == nil || s.Distance == nil || !isFinite(*s.Distance) || *s.Distance <= 0 {
				continue
			}
			secs += s.Duration.Seconds()
			meters += *s.Distance
		}
		if meters <= 0 || secs <= 0 {
			return 0, false
		}
		return secs / (meters / 1000), true
	case health.InputRounds:
		total, found := 0, false
		for _, s := range sets {
			if s.Rounds != nil && *s.Rounds > 0 {
				total += *s.Rounds
				found = true
			}
		}
		return float64(total), found
	}
	return 0, false
}

// volumeMetric: total reps, total distance, or total duration
func volumeMetric(ex health.ExerciseRecord, kind health.InputKind) (float64, bool) {
	sets := workingSets(ex)
	var total float64
	found := false
	for _, s := range sets {
		switch kind {
		case health.InputReps:
			if s.Reps != nil && *s.Reps > 0 {
				total += float64(*s.Reps)
				found = true
			}
		case health.InputDurationDistance:
			if s.Distance != nil && isFinite(*s.Distance) && *s.Distance > 0 {
				total += *s.Distance
				found = true
			}
		default:
			if s.Duration != nil && *s.Duration > 0 {
				total += s.Duration.Seconds()
				found = true
			}
		}
	}
	return total, found
}

// percentileRank is the fraction of history the current value exceeds. With
// inverted, lower values rank higher.
func percentileRank(current float64, history []float64, inverted bool) float64 {
	if len(history) == 0 {
		return 0
	}
	below := 0
	for _, h := range history {
		if (!inverted && current > h) || (inverted && current < h) {
			below++
		}
	}
	return float64(below) / float64(len(history))
}

// SuggestEffort maps a raw intensity onto the 1-10 effort scale and nudges it 30%
// toward the mean of recentEfforts (most recent first). Without a usable raw value
// it falls back to the most recent valid effort; with neither it returns nil.
func SuggestEffort(autoIntensityRaw *float64, recentEfforts []int) *int {
	var valid []int
	for _, e := range recentEfforts {
		if e >= 1 && e <= 10 {
			valid = append(valid, e)
		}
	}

	if autoIntensityRaw == nil || !isFinite(*autoIntensityRaw) || *autoIntensityRaw < 0 || *autoIntensityRaw > 1 {
		if len(valid) == 0 {
			return nil
		}
		e := valid[0]
		return &e
	}

	base := 1 + *autoIntensityRaw*9
	if len(valid) > 0 {
		var sum float64
		for _, e := range valid {
			sum += float64(e)
		}
		base += (sum/float64(len(valid)) - base) * 0.3
	}
	effort := int(clamp(math.Round(base), 1, 10))
	return &effort
}
