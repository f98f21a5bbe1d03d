// Package config loads service configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/airas/airas/internal/airquality"
	"github.com/airas/airas/internal/database"
	"github.com/airas/airas/internal/location"
)

// PathEnv names the environment variable holding the YAML file path.
const PathEnv = "AIRAS_CONFIG"

// Config aggregates runtime configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Database   database.Config  `yaml:"database"`
	Admin      AdminConfig      `yaml:"admin"`
	PubSub     PubSubConfig     `yaml:"pubsub"`
	Location   LocationConfig   `yaml:"location"`
	AirQuality AirQualityConfig `yaml:"air_quality"`
	Geocoding  GeocodingConfig  `yaml:"geocoding"`
	Refresh    RefreshConfig    `yaml:"refresh"`
}

// AppConfig controls the HTTP server.
type AppConfig struct {
	Env        string `yaml:"env"`
	Port       string `yaml:"port"`
	RateLimit  int    `yaml:"rate_limit_per_minute"`
	RequireTLS bool   `yaml:"require_tls"`
}

// TelemetryConfig controls OpenTelemetry export.
type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// Insecure disables TLS to the collector, as with a local sidecar.
	Insecure bool `yaml:"insecure"`

	// SampleRatio is the fraction of new traces recorded.
	SampleRatio float64 `yaml:"sample_ratio"`
}

// AdminConfig protects the admin endpoints. An empty token disables them.
type AdminConfig struct {
	Token string `yaml:"token"`
}

// PubSubConfig configures the worker's refresh subscription.
type PubSubConfig struct {
	ProjectID    string `yaml:"project_id"`
	Subscription string `yaml:"subscription"`
}

// LocationConfig sets the fallback location.
type LocationConfig struct {
	Name      string  `yaml:"name"`
	Country   string  `yaml:"country"`
	Admin1    string  `yaml:"admin1"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`

	// IPLookup enables best-effort IP geolocation for the CLI.
	IPLookup bool `yaml:"ip_lookup"`
}

// Location returns the configured fallback as a domain location.
func (c LocationConfig) Location() airquality.Location {
	return airquality.Location{
		Name:      c.Name,
		Country:   c.Country,
		Admin1:    c.Admin1,
		Latitude:  c.Latitude,
		Longitude: c.Longitude,
	}
}

// AirQualityConfig configures the provider and report cache.
type AirQualityConfig struct {
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	StaleIfErrorTTL time.Duration `yaml:"stale_if_error_ttl"`
	MaxLocations    int           `yaml:"max_locations"`
}

// GeocodingConfig configures place search.
type GeocodingConfig struct {
	BaseURL  string        `yaml:"base_url"`
	Language string        `yaml:"language"`
	Timeout  time.Duration `yaml:"timeout"`
}

// RefreshConfig configures background refresh.
type RefreshConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Env:       "development",
			Port:      "8080",
			RateLimit: 100,
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: "localhost:4317",
			Insecure:     true,
			SampleRatio:  1,
		},
		Database: database.DefaultConfig(),
		Location: LocationConfig{
			Name:      location.Default.Name,
			Country:   location.Default.Country,
			Admin1:    location.Default.Admin1,
			Latitude:  location.Default.Latitude,
			Longitude: location.Default.Longitude,
		},
		AirQuality: AirQualityConfig{
			Timeout:         10 * time.Second,
			CacheTTL:        15 * time.Minute,
			StaleIfErrorTTL: 30 * time.Minute,
			MaxLocations:    256,
		},
		Geocoding: GeocodingConfig{
			Language: "en",
			Timeout:  10 * time.Second,
		},
		Refresh: RefreshConfig{
			Interval:    15 * time.Minute,
			Concurrency: 3,
			Timeout:     30 * time.Second,
		},
	}
}

// Load reads configuration using the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration with getenv supplying variables.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path := getenv(PathEnv); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg, getenv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func hydrateFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// envReader collects the first parse failure so overrides read linearly.
type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) str(key string, dst *string) {
	if v := r.getenv(key); v != "" {
		*dst = v
	}
}

func (r *envReader) integer(key string, dst *int) {
	v := r.getenv(key)
	if v == "" || r.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = n
}

func (r *envReader) float(key string, dst *float64) {
	v := r.getenv(key)
	if v == "" || r.err != nil {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = f
}

func (r *envReader) boolean(key string, dst *bool) {
	v := r.getenv(key)
	if v == "" || r.err != nil {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = b
}

func (r *envReader) duration(key string, dst *time.Duration) {
	v := r.getenv(key)
	if v == "" || r.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.err = fmt.Errorf("%s: %w", key, err)
		return
	}
	*dst = d
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	r := &envReader{getenv: getenv}

	r.str("APP_ENV", &cfg.App.Env)
	r.str("APP_PORT", &cfg.App.Port)
	r.integer("APP_RATE_LIMIT", &cfg.App.RateLimit)
	r.boolean("REQUIRE_TLS", &cfg.App.RequireTLS)

	r.boolean("OTEL_ENABLED", &cfg.Telemetry.Enabled)
	r.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Telemetry.OTLPEndpoint)
	r.boolean("OTEL_EXPORTER_OTLP_INSECURE", &cfg.Telemetry.Insecure)
	r.float("OTEL_TRACES_SAMPLER_ARG", &cfg.Telemetry.SampleRatio)

	r.str("DB_HOST", &cfg.Database.Host)
	r.integer("DB_PORT", &cfg.Database.Port)
	r.str("DB_USER", &cfg.Database.User)
	r.str("DB_PASSWORD", &cfg.Database.Password)
	r.str("DB_NAME", &cfg.Database.Database)
	r.str("DB_SSL_MODE", &cfg.Database.SSLMode)
	r.integer("DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	r.integer("DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	r.duration("DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)

	r.str("ADMIN_TOKEN", &cfg.Admin.Token)

	r.str("PUBSUB_PROJECT_ID", &cfg.PubSub.ProjectID)
	r.str("PUBSUB_SUBSCRIPTION", &cfg.PubSub.Subscription)

	r.str("AIRAS_DEFAULT_NAME", &cfg.Location.Name)
	r.str("AIRAS_DEFAULT_COUNTRY", &cfg.Location.Country)
	r.float("AIRAS_DEFAULT_LAT", &cfg.Location.Latitude)
	r.float("AIRAS_DEFAULT_LON", &cfg.Location.Longitude)
	r.boolean("AIRAS_IP_LOOKUP", &cfg.Location.IPLookup)

	r.str("AIR_QUALITY_BASE_URL", &cfg.AirQuality.BaseURL)
	r.duration("AIR_QUALITY_CACHE_TTL", &cfg.AirQuality.CacheTTL)
	r.str("GEOCODING_BASE_URL", &cfg.Geocoding.BaseURL)

	r.duration("REFRESH_INTERVAL", &cfg.Refresh.Interval)
	r.integer("REFRESH_CONCURRENCY", &cfg.Refresh.Concurrency)

	if r.err != nil {
		return fmt.Errorf("invalid environment: %w", r.err)
	}
	return nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.App.Port) == "" {
		errs = append(errs, errors.New("app.port is required"))
	}
	if c.App.RateLimit < 0 {
		errs = append(errs, errors.New("app.rate_limit_per_minute must not be negative"))
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		errs = append(errs, errors.New("telemetry.sample_ratio must be between 0 and 1"))
	}
	if err := c.Location.Location().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("location: %w", err))
	}
	if c.AirQuality.CacheTTL <= 0 {
		errs = append(errs, errors.New("air_quality.cache_ttl must be positive"))
	}
	if c.AirQuality.StaleIfErrorTTL < 0 {
		errs = append(errs, errors.New("air_quality.stale_if_error_ttl must not be negative"))
	}
	if c.Refresh.Interval < time.Minute {
		errs = append(errs, errors.New("refresh.interval must be at least 1m"))
	}
	if c.Refresh.Concurrency < 1 {
		errs = append(errs, errors.New("refresh.concurrency must be at least 1"))
	}
	if c.Database.Enabled() && (c.Database.Port <= 0 || c.Database.Database == "") {
		errs = append(errs, errors.New("database.port and database.name are required when database.host is set"))
	}
	if c.PubSub.Subscription != "" && c.PubSub.ProjectID == "" {
		errs = append(errs, errors.New("pubsub.project_id is required with pubsub.subscription"))
	}

	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}
