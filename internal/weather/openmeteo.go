package weather

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"dune-health/internal/health"
)

// DefaultBaseURL is the public Open-Meteo forecast API
const DefaultBaseURL = "https://api.open-meteo.com"

const currentFields = "temperature_2m,apparent_temperature,precipitation_probability,rain,uv_index,weather_code"

var _ health.WeatherProvider = (*OpenMeteo)(nil)

// OpenMeteo reads current conditions for a fixed location from Open-Meteo
type OpenMeteo struct {
	httpClient *resty.Client
	latitude   float64
	longitude  float64
	logger     *zap.Logger
}

// NewOpenMeteo creates a client. An empty baseURL uses DefaultBaseURL.
func NewOpenMeteo(baseURL string, latitude, longitude float64, logger *zap.Logger) *OpenMeteo {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Accept", "application/json")

	return &OpenMeteo{
		httpClient: client,
		latitude:   latitude,
		longitude:  longitude,
		logger:     logger,
	}
}

type forecastResponse struct {
	Current struct {
		Time                     string   `json:"time"`
		Temperature              float64  `json:"temperature_2m"`
		ApparentTemperature      float64  `json:"apparent_temperature"`
		PrecipitationProbability *float64 `json:"precipitation_probability"`
		Rain                     float64  `json:"rain"`
		UVIndex                  float64  `json:"uv_index"`
		WeatherCode              int      `json:"weather_code"`
	} `json:"current"`
}

// CurrentWeather fetches the current observation
func (o *OpenMeteo) CurrentWeather(ctx context.Context) (*health.WeatherSnapshot, error) {
	var out forecastResponse
	resp, err := o.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":  strconv.FormatFloat(o.latitude, 'f', 4, 64),
			"longitude": strconv.FormatFloat(o.longitude, 'f', 4, 64),
			"current":   currentFields,
			"timezone":  "GMT",
		}).
		SetResult(&out).
		Get("/v1/forecast")
	if err != nil {
		return nil, fmt.Errorf("fetching weather: %w", err)
	}
	if resp.IsError() {
		o.logger.Warn("weather request failed",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("body", resp.String()),
		)
		return nil, fmt.Errorf("fetching weather: status %d", resp.StatusCode())
	}

	cur := out.Current
	snap := &health.WeatherSnapshot{
		TemperatureC: cur.Temperature,
		FeelsLikeC:   cur.ApparentTemperature,
		UVIndex:      cur.UVIndex,
		Condition:    conditionFor(cur.WeatherCode),
		IsRaining:    cur.Rain > 0 || isWetCode(cur.WeatherCode),
	}
	if cur.PrecipitationProbability != nil {
		snap.PrecipitationProbability = *cur.PrecipitationProbability / 100
	}
	if t, err := time.Parse("2006-01-02T15:04", cur.Time); err == nil {
		snap.ObservedAt = t
	}
	return snap, nil
}

// conditionFor maps a WMO weather code to a condition name
func conditionFor(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code <= 2:
		return "partly_cloudy"
	case code == 3:
		return "cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "showers"
	case code >= 85 && code <= 86:
		return "snow_showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "unknown"
	}
}

func isWetCode(code int) bool {
	return (code >= 51 && code <= 67) || (code >= 80 && code <= 82) || code >= 95
}
