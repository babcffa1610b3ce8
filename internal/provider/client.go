package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"dune-health/internal/health"
)

const dayLayout = "2006-01-02"

var (
	_ health.HRVQuerier      = (*Client)(nil)
	_ health.SleepQuerier    = (*Client)(nil)
	_ health.WorkoutQuerier  = (*Client)(nil)
	_ health.WeatherProvider = (*Client)(nil)
)

// errNotFound marks a 404, which optional endpoints use for "no data"
var errNotFound = errors.New("not found")

// APIError is a non-2xx response from the provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Client is a health data provider API client
type Client struct {
	baseURL     string
	httpClient  *http.Client
	rateLimiter *RateLimiter
	loc         *time.Location
}

// NewClient creates a client authenticated by tokenSource
func NewClient(baseURL string, tokenSource oauth2.TokenSource) *Client {
	return NewClientWithHTTP(baseURL, oauth2.NewClient(context.Background(), tokenSource))
}

// NewClientWithHTTP creates a client that sends requests through httpClient as is
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  httpClient,
		rateLimiter: NewRateLimiter(DefaultLimit, DefaultWindow, DefaultMinInterval),
		loc:         time.Local,
	}
}

// SetLocation sets the zone day paths are formatted in
func (c *Client) SetLocation(loc *time.Location) {
	c.loc = loc
}

// SetRateLimiter replaces the default limiter
func (c *Client) SetRateLimiter(r *RateLimiter) {
	c.rateLimiter = r
}

// RateLimitStatus returns the remaining budget in the current window
func (c *Client) RateLimitStatus() (remaining int, resetsAt time.Time) {
	return c.rateLimiter.Status()
}

// FetchHRVSamples returns HRV samples from the trailing days
func (c *Client) FetchHRVSamples(ctx context.Context, days int) ([]health.HRVSample, error) {
	params := url.Values{}
	params.Set("days", strconv.Itoa(days))

	var wire []hrvSample
	if err := c.getJSON(ctx, "/hrv", params, &wire); err != nil {
		return nil, fmt.Errorf("fetching hrv: %w", err)
	}
	out := make([]health.HRVSample, len(wire))
	for i, s := range wire {
		out[i] = health.HRVSample{Value: s.Value, Date: s.Date}
	}
	return out, nil
}

// FetchRestingHeartRate returns the resting heart rate for date, or nil
func (c *Client) FetchRestingHeartRate(ctx context.Context, date time.Time) (*float64, error) {
	var wire rhrValue
	err := c.getJSON(ctx, "/rhr/"+c.day(date), nil, &wire)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching resting heart rate: %w", err)
	}
	return wire.Value, nil
}

// FetchLatestRestingHeartRate returns the newest reading within the window, or nil
func (c *Client) FetchLatestRestingHeartRate(ctx context.Context, withinDays int) (*health.RHRReading, error) {
	params := url.Values{}
	params.Set("within_days", strconv.Itoa(withinDays))

	var wire rhrReading
	err := c.getJSON(ctx, "/rhr/latest", params, &wire)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching latest resting heart rate: %w", err)
	}
	return &health.RHRReading{Value: wire.Value, Date: wire.Date}, nil
}

// FetchRHRCollection returns resting heart rate statistics bucketed by interval
func (c *Client) FetchRHRCollection(ctx context.Context, start, end time.Time, interval time.Duration) ([]health.RHRDailyStat, error) {
	params := rangeParams(start, end)
	params.Set("interval", strconv.FormatInt(int64(interval/time.Second), 10))

	var wire []rhrStat
	if err := c.getJSON(ctx, "/rhr/collection", params, &wire); err != nil {
		return nil, fmt.Errorf("fetching resting heart rate collection: %w", err)
	}
	out := make([]health.RHRDailyStat, len(wire))
	for i, s := range wire {
		out[i] = health.RHRDailyStat{Date: s.Date, Min: s.Min, Max: s.Max, Average: s.Average}
	}
	return out, nil
}

// FetchSleepStages returns the stages of the night ending on date
func (c *Client) FetchSleepStages(ctx context.Context, date time.Time) ([]health.SleepStage, error) {
	var wire []sleepStage
	err := c.getJSON(ctx, "/sleep/"+c.day(date), nil, &wire)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching sleep stages: %w", err)
	}
	return toStages(wire), nil
}

// FetchLatestSleepStages returns the newest night within the window, or nil
func (c *Client) FetchLatestSleepStages(ctx context.Context, withinDays int) (*health.SleepReading, error) {
	params := url.Values{}
	params.Set("within_days", strconv.Itoa(withinDays))

	var wire sleepNight
	err := c.getJSON(ctx, "/sleep/latest", params, &wire)
	if errors.Is(err, errNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching latest sleep: %w", err)
	}
	return &health.SleepReading{Date: wire.Date, Stages: toStages(wire.Stages)}, nil
}

// FetchDailySleepDurations returns one total per night in [start, end]
func (c *Client) FetchDailySleepDurations(ctx context.Context, start, end time.Time) ([]health.DailySleep, error) {
	var wire []dailySleep
	if err := c.getJSON(ctx, "/sleep/daily", rangeParams(start, end), &wire); err != nil {
		return nil, fmt.Errorf("fetching daily sleep: %w", err)
	}
	out := make([]health.DailySleep, len(wire))
	for i, d := range wire {
		ds := health.DailySleep{Date: d.Date, TotalMinutes: d.TotalMinutes}
		if len(d.Stages) > 0 {
			ds.StageBreakdown = make(map[health.SleepStageKind]float64, len(d.Stages))
			for k, v := range d.Stages {
				ds.StageBreakdown[health.ParseSleepStageKind(k)] += v
			}
		}
		out[i] = ds
	}
	return out, nil
}

// ListWorkouts returns workouts started within [start, end]
func (c *Client) ListWorkouts(ctx context.Context, start, end time.Time) ([]health.Workout, error) {
	var wire []workout
	if err := c.getJSON(ctx, "/workouts", rangeParams(start, end), &wire); err != nil {
		return nil, fmt.Errorf("fetching workouts: %w", err)
	}
	out := make([]health.Workout, len(wire))
	for i, w := range wire {
		out[i] = w.toHealth()
	}
	return out, nil
}

// CurrentWeather returns the latest weather observation
func (c *Client) CurrentWeather(ctx context.Context) (*health.WeatherSnapshot, error) {
	var wire weather
	if err := c.getJSON(ctx, "/weather/current", nil, &wire); err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}
	return &health.WeatherSnapshot{
		TemperatureC:             wire.TemperatureC,
		FeelsLikeC:               wire.FeelsLikeC,
		UVIndex:                  wire.UVIndex,
		PrecipitationProbability: wire.PrecipitationProbability,
		Condition:                wire.Condition,
		IsRaining:                wire.IsRaining,
		ObservedAt:               wire.ObservedAt,
	}, nil
}

func (c *Client) day(t time.Time) string {
	return t.In(c.loc).Format(dayLayout)
}

func rangeParams(start, end time.Time) url.Values {
	params := url.Values{}
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))
	return params
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	resp, err := c.get(ctx, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	// Update rate limiter from response headers
	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, errNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	return resp, nil
}
