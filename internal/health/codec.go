package health

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SnapshotVersion is the current wire version written by EncodeSnapshot
const SnapshotVersion = 1

// ErrUnsupportedSnapshotVersion is returned when decoding a payload from an unknown version
var ErrUnsupportedSnapshotVersion = errors.New("unsupported snapshot version")

// The wire types below are the persisted shape of a snapshot. They are kept
// separate from Snapshot so internal fields can change without breaking stored data.

type snapshotEnvelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

type snapshotV1 struct {
	ID             string       `json:"id"`
	FetchedAt      time.Time    `json:"fetched_at"`
	HRV            []sampleV1   `json:"hrv"`
	TodayRHR       *float64     `json:"today_rhr,omitempty"`
	YesterdayRHR   *float64     `json:"yesterday_rhr,omitempty"`
	LatestRHR      *sampleV1    `json:"latest_rhr,omitempty"`
	RHRCollection  []rhrStatV1  `json:"rhr_collection"`
	TodaySleep     []stageV1    `json:"today_sleep"`
	YesterdaySleep []stageV1    `json:"yesterday_sleep"`
	LatestSleep    *latestV1    `json:"latest_sleep,omitempty"`
	DailySleep     []dailyV1    `json:"daily_sleep"`
	Condition      *conditionV1 `json:"condition,omitempty"`
	Baseline       baselineV1   `json:"baseline"`
	FailedSources  []string     `json:"failed_sources"`
}

type sampleV1 struct {
	Value float64   `json:"value"`
	Date  time.Time `json:"date"`
}

type rhrStatV1 struct {
	Date    time.Time `json:"date"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Average float64   `json:"average"`
}

type stageV1 struct {
	Stage   string    `json:"stage"`
	Seconds float64   `json:"seconds"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

type latestV1 struct {
	Date   time.Time `json:"date"`
	Stages []stageV1 `json:"stages"`
}

type dailyV1 struct {
	Date         time.Time          `json:"date"`
	TotalMinutes float64            `json:"total_minutes"`
	Stages       map[string]float64 `json:"stages,omitempty"`
}

type conditionV1 struct {
	Score  int                `json:"score"`
	Date   time.Time          `json:"date"`
	Detail *conditionDetailV1 `json:"detail,omitempty"`
}

type conditionDetailV1 struct {
	ZScore          float64 `json:"z_score"`
	BaselineHRV     float64 `json:"baseline_hrv"`
	StdDev          float64 `json:"std_dev"`
	EffectiveStdDev float64 `json:"effective_std_dev"`
	RHRPenalty      float64 `json:"rhr_penalty"`
	RawScore        float64 `json:"raw_score"`
	DaysInBaseline  int     `json:"days_in_baseline"`
}

type baselineV1 struct {
	Collected int `json:"collected"`
	Required  int `json:"required"`
}

// EncodeSnapshot serializes a snapshot into the current versioned wire format
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("encoding snapshot: nil snapshot")
	}

	w := snapshotV1{
		ID:             s.ID,
		FetchedAt:      s.FetchedAt,
		HRV:            make([]sampleV1, len(s.HRVSamples)),
		TodayRHR:       s.TodayRHR,
		YesterdayRHR:   s.YesterdayRHR,
		RHRCollection:  make([]rhrStatV1, len(s.RHRCollection)),
		TodaySleep:     encodeStages(s.TodaySleepStages),
		YesterdaySleep: encodeStages(s.YesterdaySleepStages),
		DailySleep:     make([]dailyV1, len(s.DailySleep)),
		Baseline:       baselineV1{Collected: s.BaselineStatus.DaysCollected, Required: s.BaselineStatus.DaysRequired},
		FailedSources:  []string{},
	}
	for i, h := range s.HRVSamples {
		w.HRV[i] = sampleV1{Value: h.Value, Date: h.Date}
	}
	if s.LatestRHR != nil {
		w.LatestRHR = &sampleV1{Value: s.LatestRHR.Value, Date: s.LatestRHR.Date}
	}
	for i, r := range s.RHRCollection {
		w.RHRCollection[i] = rhrStatV1{Date: r.Date, Min: r.Min, Max: r.Max, Average: r.Average}
	}
	if s.LatestSleep != nil {
		w.LatestSleep = &latestV1{Date: s.LatestSleep.Date, Stages: encodeStages(s.LatestSleep.Stages)}
	}
	for i, d := range s.DailySleep {
		dv := dailyV1{Date: d.Date, TotalMinutes: d.TotalMinutes}
		if len(d.StageBreakdown) > 0 {
			dv.Stages = make(map[string]float64, len(d.StageBreakdown))
			for k, v := range d.StageBreakdown {
				dv.Stages[k.String()] = v
			}
		}
		w.DailySleep[i] = dv
	}
	if s.Condition != nil {
		c := &conditionV1{Score: s.Condition.Score, Date: s.Condition.Date}
		if d := s.Condition.Detail; d != nil {
			c.Detail = &conditionDetailV1{
				ZScore:          d.ZScore,
				BaselineHRV:     d.BaselineHRV,
				StdDev:          d.StdDev,
				EffectiveStdDev: d.EffectiveStdDev,
				RHRPenalty:      d.RHRPenalty,
				RawScore:        d.RawScore,
				DaysInBaseline:  d.DaysInBaseline,
			}
		}
		w.Condition = c
	}
	for _, k := range s.FailedSources.Kinds() {
		w.FailedSources = append(w.FailedSources, k.String())
	}

	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return json.Marshal(snapshotEnvelope{Version: SnapshotVersion, Data: data})
}

// DecodeSnapshot parses a payload written by EncodeSnapshot
func DecodeSnapshot(payload []byte) (*Snapshot, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decoding snapshot envelope: %w", err)
	}
	if env.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotVersion, env.Version)
	}

	var w snapshotV1
	if err := json.Unmarshal(env.Data, &w); err != nil {
		return nil, fmt.Errorf("decoding snapshot v%d: %w", env.Version, err)
	}

	s := &Snapshot{
		ID:                   w.ID,
		FetchedAt:            w.FetchedAt,
		TodayRHR:             w.TodayRHR,
		YesterdayRHR:         w.YesterdayRHR,
		TodaySleepStages:     decodeStages(w.TodaySleep),
		YesterdaySleepStages: decodeStages(w.YesterdaySleep),
		BaselineStatus:       BaselineStatus{DaysCollected: w.Baseline.Collected, DaysRequired: w.Baseline.Required},
	}
	for _, h := range w.HRV {
		s.HRVSamples = append(s.HRVSamples, HRVSample{Value: h.Value, Date: h.Date})
	}
	if w.LatestRHR != nil {
		s.LatestRHR = &RHRReading{Value: w.LatestRHR.Value, Date: w.LatestRHR.Date}
	}
	for _, r := range w.RHRCollection {
		s.RHRCollection = append(s.RHRCollection, RHRDailyStat{Date: r.Date, Min: r.Min, Max: r.Max, Average: r.Average})
	}
	if w.LatestSleep != nil {
		s.LatestSleep = &SleepReading{Date: w.LatestSleep.Date, Stages: decodeStages(w.LatestSleep.Stages)}
	}
	for _, d := range w.DailySleep {
		ds := DailySleep{Date: d.Date, TotalMinutes: d.TotalMinutes}
		if len(d.Stages) > 0 {
			ds.StageBreakdown = make(map[SleepStageKind]float64, len(d.Stages))
			for k, v := range d.Stages {
				ds.StageBreakdown[ParseSleepStageKind(k)] += v
			}
		}
		s.DailySleep = append(s.DailySleep, ds)
	}
	if w.Condition != nil {
		c := &ConditionScore{Score: w.Condition.Score, Date: w.Condition.Date}
		if d := w.Condition.Detail; d != nil {
			c.Detail = &ConditionDetail{
				ZScore:          d.ZScore,
				BaselineHRV:     d.BaselineHRV,
				StdDev:          d.StdDev,
				EffectiveStdDev: d.EffectiveStdDev,
				RHRPenalty:      d.RHRPenalty,
				RawScore:        d.RawScore,
				DaysInBaseline:  d.DaysInBaseline,
			}
		}
		s.Condition = c
	}
	for _, name := range w.FailedSources {
		for _, k := range AllSources {
			if k.String() == name {
				s.FailedSources = s.FailedSources.Add(k)
			}
		}
	}
	return s, nil
}

func encodeStages(stages []SleepStage) []stageV1 {
	out := make([]stageV1, len(stages))
	for i, st := range stages {
		out[i] = stageV1{
			Stage:   st.Stage.String(),
			Seconds: st.Duration.Seconds(),
			Start:   st.StartDate,
			End:     st.EndDate,
		}
	}
	return out
}

func decodeStages(stages []stageV1) []SleepStage {
	if len(stages) == 0 {
		return nil
	}
	out := make([]SleepStage, len(stages))
	for i, st := range stages {
		out[i] = SleepStage{
			Stage:     ParseSleepStageKind(st.Stage),
			Duration:  time.Duration(st.Seconds * float64(time.Second)),
			StartDate: st.Start,
			EndDate:   st.End,
		}
	}
	return out
}
