package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// EnvConfigPath overrides the config file location
const EnvConfigPath = "DUNE_CONFIG"

// Environment overrides for secrets, typically set through a .env file
const (
	EnvClientID      = "DUNE_CLIENT_ID"
	EnvClientSecret  = "DUNE_CLIENT_SECRET"
	EnvRedisAddr     = "DUNE_REDIS_ADDR"
	EnvRedisPassword = "DUNE_REDIS_PASSWORD"
)

// Config represents the application configuration
type Config struct {
	Provider ProviderConfig `json:"provider"`
	Database DatabaseConfig `json:"database"`
	Cache    CacheConfig    `json:"cache"`
	Refresh  RefreshConfig  `json:"refresh"`
	Scoring  ScoringConfig  `json:"scoring"`
	Fatigue  FatigueConfig  `json:"fatigue"`
	Athlete  AthleteConfig  `json:"athlete"`
	Goals    GoalsConfig    `json:"goals"`
	Weather  WeatherConfig  `json:"weather"`
	Redis    RedisConfig    `json:"redis"`
	Server   ServerConfig   `json:"server"`
	Log      LogConfig      `json:"log"`
}

// ProviderConfig holds the health data provider API and OAuth client settings
type ProviderConfig struct {
	BaseURL      string `json:"base_url"`
	AuthURL      string `json:"auth_url"`
	TokenURL     string `json:"token_url"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	CallbackPort int    `json:"callback_port"`
}

// DatabaseConfig locates the SQLite database. Empty uses ~/.dune/data.db.
type DatabaseConfig struct {
	Path string `json:"path"`
	// KeepSnapshots bounds the snapshot history
	KeepSnapshots int `json:"keep_snapshots"`
}

// CacheConfig tunes the snapshot cache
type CacheConfig struct {
	TTL              Duration `json:"ttl"`
	UpstreamTimeout  Duration `json:"upstream_timeout"`
	HRVDays          int      `json:"hrv_days"`
	SleepDays        int      `json:"sleep_days"`
	LatestWithinDays int      `json:"latest_within_days"`
}

// RefreshConfig controls throttling and background refresh
type RefreshConfig struct {
	Throttle Duration `json:"throttle"`
	// Schedule is a cron expression or descriptor such as "@every 15m"
	Schedule string `json:"schedule"`
}

// ScoringConfig calibrates the condition score
type ScoringConfig struct {
	BaselineCenter      float64 `json:"baseline_center"`
	Scale               float64 `json:"scale"`
	StdDevFloor         float64 `json:"std_dev_floor"`
	BaselineDays        int     `json:"baseline_days"`
	MinBaselineDays     int     `json:"min_baseline_days"`
	RHRPenaltyThreshold float64 `json:"rhr_penalty_threshold"`
	RHRPenaltyPerBPM    float64 `json:"rhr_penalty_per_bpm"`
	RHRPenaltyMax       float64 `json:"rhr_penalty_max"`
}

// FatigueConfig calibrates the muscle fatigue model
type FatigueConfig struct {
	TauHours       float64 `json:"tau_hours"`
	SaturationLoad float64 `json:"saturation_load"`
	LookbackDays   int     `json:"lookback_days"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	RestingHR float64 `json:"resting_hr"`
	MaxHR     float64 `json:"max_hr"`
}

// GoalsConfig holds training targets. Zero disables a goal.
type GoalsConfig struct {
	WeeklyActiveDays int `json:"weekly_active_days"`
	MonthlyWorkouts  int `json:"monthly_workouts"`
}

// Weather sources
const (
	WeatherNone      = "none"
	WeatherProvider  = "provider"
	WeatherOpenMeteo = "open-meteo"
)

// WeatherConfig selects where weather comes from
type WeatherConfig struct {
	Source    string  `json:"source"`
	BaseURL   string  `json:"base_url,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RedisConfig enables the shared snapshot mirror. Empty Addr disables it.
type RedisConfig struct {
	Addr     string   `json:"addr"`
	Password string   `json:"password,omitempty"`
	DB       int      `json:"db"`
	Key      string   `json:"key"`
	TTL      Duration `json:"ttl"`
}

// ServerConfig configures `dune serve`
type ServerConfig struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// LogConfig configures logging
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Provider: ProviderConfig{
			CallbackPort: 8089,
		},
		Database: DatabaseConfig{
			KeepSnapshots: 2000,
		},
		Cache: CacheConfig{
			TTL:              Duration(5 * time.Minute),
			UpstreamTimeout:  Duration(10 * time.Second),
			HRVDays:          30,
			SleepDays:        14,
			LatestWithinDays: 7,
		},
		Refresh: RefreshConfig{
			Throttle: Duration(60 * time.Second),
			Schedule: "@every 15m",
		},
		Scoring: ScoringConfig{
			BaselineCenter:      70,
			Scale:               15,
			StdDevFloor:         3,
			BaselineDays:        14,
			MinBaselineDays:     7,
			RHRPenaltyThreshold: 2,
			RHRPenaltyPerBPM:    2,
			RHRPenaltyMax:       20,
		},
		Fatigue: FatigueConfig{
			TauHours:       24,
			SaturationLoad: 12,
			LookbackDays:   14,
		},
		Athlete: AthleteConfig{
			RestingHR: 50,
			MaxHR:     185,
		},
		Weather: WeatherConfig{
			Source: WeatherProvider,
		},
		Redis: RedisConfig{
			Key: "dune:snapshot:latest",
			TTL: Duration(24 * time.Hour),
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8787",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads the configuration from ~/.dune/config.json, or DUNE_CONFIG when set
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration at path
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return &cfg, nil
}

// applyDefaults fills zero values from DefaultConfig
func (c *Config) applyDefaults() {
	d := DefaultConfig()

	setInt(&c.Provider.CallbackPort, d.Provider.CallbackPort)
	setInt(&c.Database.KeepSnapshots, d.Database.KeepSnapshots)

	setDuration(&c.Cache.TTL, d.Cache.TTL)
	setDuration(&c.Cache.UpstreamTimeout, d.Cache.UpstreamTimeout)
	setInt(&c.Cache.HRVDays, d.Cache.HRVDays)
	setInt(&c.Cache.SleepDays, d.Cache.SleepDays)
	setInt(&c.Cache.LatestWithinDays, d.Cache.LatestWithinDays)

	setDuration(&c.Refresh.Throttle, d.Refresh.Throttle)
	setString(&c.Refresh.Schedule, d.Refresh.Schedule)

	setFloat(&c.Scoring.BaselineCenter, d.Scoring.BaselineCenter)
	setFloat(&c.Scoring.Scale, d.Scoring.Scale)
	setFloat(&c.Scoring.StdDevFloor, d.Scoring.StdDevFloor)
	setInt(&c.Scoring.BaselineDays, d.Scoring.BaselineDays)
	setInt(&c.Scoring.MinBaselineDays, d.Scoring.MinBaselineDays)
	setFloat(&c.Scoring.RHRPenaltyThreshold, d.Scoring.RHRPenaltyThreshold)
	setFloat(&c.Scoring.RHRPenaltyPerBPM, d.Scoring.RHRPenaltyPerBPM)
	setFloat(&c.Scoring.RHRPenaltyMax, d.Scoring.RHRPenaltyMax)

	setFloat(&c.Fatigue.TauHours, d.Fatigue.TauHours)
	setFloat(&c.Fatigue.SaturationLoad, d.Fatigue.SaturationLoad)
	setInt(&c.Fatigue.LookbackDays, d.Fatigue.LookbackDays)

	setFloat(&c.Athlete.RestingHR, d.Athlete.RestingHR)
	setFloat(&c.Athlete.MaxHR, d.Athlete.MaxHR)

	setString(&c.Weather.Source, d.Weather.Source)

	setString(&c.Redis.Key, d.Redis.Key)
	setDuration(&c.Redis.TTL, d.Redis.TTL)

	setString(&c.Server.Addr, d.Server.Addr)
	if c.Server.AllowedOrigins == nil {
		c.Server.AllowedOrigins = d.Server.AllowedOrigins
	}

	setString(&c.Log.Level, d.Log.Level)
	setString(&c.Log.Format, d.Log.Format)
}

// applyEnv lets secrets live outside the config file
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Provider.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Provider.ClientSecret = v
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv(EnvRedisPassword); v != "" {
		c.Redis.Password = v
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setDuration(v *Duration, def Duration) {
	if *v == 0 {
		*v = def
	}
}

// Save writes the configuration to the config path
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes the configuration to path
func SaveFile(path string, cfg *Config) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Provider.BaseURL = "https://api.example-health.com/v1"
	example.Provider.AuthURL = "https://api.example-health.com/oauth/authorize"
	example.Provider.TokenURL = "https://api.example-health.com/oauth/token"
	example.Provider.ClientID = "YOUR_CLIENT_ID"
	example.Provider.ClientSecret = "YOUR_CLIENT_SECRET"
	example.Goals = GoalsConfig{WeeklyActiveDays: 4, MonthlyWorkouts: 16}

	return SaveFile(path, &example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Provider.BaseURL == "" {
		return errors.New("provider.base_url is required")
	}
	if c.Provider.ClientID == "" || c.Provider.ClientID == "YOUR_CLIENT_ID" {
		return fmt.Errorf("provider.client_id is required (or set %s)", EnvClientID)
	}
	if c.Provider.ClientSecret == "" || c.Provider.ClientSecret == "YOUR_CLIENT_SECRET" {
		return fmt.Errorf("provider.client_secret is required (or set %s)", EnvClientSecret)
	}
	if c.Provider.AuthURL == "" || c.Provider.TokenURL == "" {
		return errors.New("provider.auth_url and provider.token_url are required")
	}

	if c.Cache.TTL < 0 || c.Cache.UpstreamTimeout < 0 || c.Refresh.Throttle < 0 {
		return errors.New("durations must not be negative")
	}
	if c.Scoring.MinBaselineDays > c.Scoring.BaselineDays {
		return fmt.Errorf("scoring.min_baseline_days (%d) must not exceed scoring.baseline_days (%d)",
			c.Scoring.MinBaselineDays, c.Scoring.BaselineDays)
	}
	if c.Goals.WeeklyActiveDays < 0 || c.Goals.WeeklyActiveDays > 7 {
		return fmt.Errorf("goals.weekly_active_days must be between 0 and 7, got %d", c.Goals.WeeklyActiveDays)
	}
	if c.Goals.MonthlyWorkouts < 0 {
		return fmt.Errorf("goals.monthly_workouts must not be negative, got %d", c.Goals.MonthlyWorkouts)
	}

	// Validate resting_hr < max_hr when both are set
	if c.Athlete.RestingHR > 0 && c.Athlete.MaxHR > 0 && c.Athlete.RestingHR >= c.Athlete.MaxHR {
		return fmt.Errorf("athlete.resting_hr (%v) must be less than athlete.max_hr (%v)", c.Athlete.RestingHR, c.Athlete.MaxHR)
	}

	switch c.Weather.Source {
	case "", WeatherNone, WeatherProvider:
	case WeatherOpenMeteo:
		if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 || c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
			return errors.New("weather.latitude/longitude out of range")
		}
	default:
		return fmt.Errorf("weather.source must be %q, %q or %q, got %q",
			WeatherNone, WeatherProvider, WeatherOpenMeteo, c.Weather.Source)
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be \"json\" or \"console\", got %q", c.Log.Format)
	}

	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigPath returns the config file location after applying DUNE_CONFIG
func GetConfigPath() (string, error) {
	return getConfigPath()
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".dune"), nil
}
