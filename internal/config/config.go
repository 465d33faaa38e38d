// Package config loads application configuration from defaults, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// A double underscore separates nesting levels: STATUSBOARD_SYNC__TOKEN sets sync.token.
const EnvPrefix = "STATUSBOARD_"

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	CORS      CORSConfig      `koanf:"cors"`
	Database  DatabaseConfig  `koanf:"database"`
	Admin     AdminConfig     `koanf:"admin"`
	Probe     ProbeConfig     `koanf:"probe"`
	Sync      SyncConfig      `koanf:"sync"`
	Collector CollectorConfig `koanf:"collector"`
	Analytics AnalyticsConfig `koanf:"analytics"`
	Seed      SeedConfig      `koanf:"seed"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig configures cross-origin requests.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// DatabaseConfig configures the PostgreSQL store. An empty URL selects the in-memory store.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
}

// AdminConfig holds the Basic auth credentials for admin routes.
type AdminConfig struct {
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// ProbeConfig configures the availability prober.
type ProbeConfig struct {
	Timeout     time.Duration `koanf:"timeout"`
	Method      string        `koanf:"method"`
	RateLimit   float64       `koanf:"rate_limit"`
	Burst       int           `koanf:"burst"`
	Concurrency int           `koanf:"concurrency"`
}

// SyncConfig configures reconciliation against the external metrics source.
type SyncConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	Token          string        `koanf:"token"`
	DatasourcePath string        `koanf:"datasource_path"`
	Query          string        `koanf:"query"`
	Timeout        time.Duration `koanf:"timeout"`
	Interval       time.Duration `koanf:"interval"`
	InitialDelay   time.Duration `koanf:"initial_delay"`
	Breaker        BreakerConfig `koanf:"breaker"`
	RedisURL       string        `koanf:"redis_url"`
	LockTTL        time.Duration `koanf:"lock_ttl"`
}

// Configured reports whether the upstream can be queried at all.
func (c SyncConfig) Configured() bool {
	return c.URL != "" && c.Token != ""
}

// BreakerConfig configures the circuit breaker around the upstream query.
type BreakerConfig struct {
	ConsecutiveFailures uint32        `koanf:"consecutive_failures"`
	OpenTimeout         time.Duration `koanf:"open_timeout"`
}

// CollectorConfig configures resource-usage collection.
type CollectorConfig struct {
	MetricsAPIURL string        `koanf:"metrics_api_url"`
	Interval      time.Duration `koanf:"interval"`
	Timeout       time.Duration `koanf:"timeout"`
	ApplyStatus   bool          `koanf:"apply_status"`
	HostServiceID string        `koanf:"host_service_id"`
	HostInterval  time.Duration `koanf:"host_interval"`
}

// AnalyticsConfig configures reporting.
type AnalyticsConfig struct {
	Timezone string `koanf:"timezone"`
}

// Location returns the configured reporting timezone.
func (c AnalyticsConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// SeedConfig points to data loaded at startup.
type SeedConfig struct {
	ImportFile string `koanf:"import_file"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			MigrateOnStart:  true,
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: time.Hour,
			ConnectAttempts: 5,
			ConnectTimeout:  60 * time.Second,
		},
		Admin: AdminConfig{
			Username: "admin",
		},
		Probe: ProbeConfig{
			Timeout:     5 * time.Second,
			Method:      "HEAD",
			RateLimit:   20,
			Burst:       10,
			Concurrency: 8,
		},
		Sync: SyncConfig{
			Enabled:        true,
			DatasourcePath: "/api/datasources/proxy/1",
			Query:          `up{job="node_exporter"}`,
			Timeout:        10 * time.Second,
			Interval:       30 * time.Second,
			InitialDelay:   5 * time.Second,
			Breaker: BreakerConfig{
				ConsecutiveFailures: 5,
				OpenTimeout:         time.Minute,
			},
			LockTTL: 2 * time.Minute,
		},
		Collector: CollectorConfig{
			Interval:     time.Minute,
			Timeout:      10 * time.Second,
			HostInterval: time.Minute,
		},
		Analytics: AnalyticsConfig{
			Timezone: "UTC",
		},
	}
}

// Load builds the configuration. path may be empty to skip the YAML file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error

	for name, port := range map[string]string{"server.port": c.Server.Port, "server.metrics_port": c.Server.MetricsPort} {
		if err := validatePort(port); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	switch strings.ToUpper(c.Probe.Method) {
	case "HEAD", "GET":
	default:
		errs = append(errs, fmt.Errorf("probe.method: must be HEAD or GET, got %q", c.Probe.Method))
	}

	durations := map[string]time.Duration{
		"probe.timeout":      c.Probe.Timeout,
		"sync.timeout":       c.Sync.Timeout,
		"sync.interval":      c.Sync.Interval,
		"collector.interval": c.Collector.Interval,
		"collector.timeout":  c.Collector.Timeout,
	}
	for name, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive", name))
		}
	}
	if c.Sync.InitialDelay < 0 {
		errs = append(errs, errors.New("sync.initial_delay: must not be negative"))
	}
	if c.Probe.Concurrency <= 0 {
		errs = append(errs, errors.New("probe.concurrency: must be positive"))
	}

	if _, err := c.Analytics.Location(); err != nil {
		errs = append(errs, fmt.Errorf("analytics.timezone: %w", err))
	}

	return errors.Join(errs...)
}

func validatePort(port string) error {
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port %q", port)
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port %d out of range", n)
	}
	return nil
}
