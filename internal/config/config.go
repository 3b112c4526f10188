package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds all application settings. Values come from an optional YAML
// file overlaid with environment variables; env wins.
type Config struct {
	DataDir      string `env:"CASELOG_DATA_DIR" yaml:"data_dir"`
	DatabasePath string `env:"CASELOG_DB_PATH" yaml:"database_path"`
	LogLevel     string `env:"CASELOG_LOG_LEVEL" yaml:"log_level"`
	LogFormat    string `env:"CASELOG_LOG_FORMAT" yaml:"log_format"`

	// HTTPAddr enables the local diagnostics server (healthz, readyz,
	// metrics) when non-empty. Empty disables it.
	HTTPAddr        string        `env:"CASELOG_HTTP_ADDR" yaml:"http_addr"`
	ShutdownTimeout time.Duration `env:"CASELOG_SHUTDOWN_TIMEOUT" yaml:"shutdown_timeout"`

	// Geocoder settings. The throttle interval honors Nominatim's
	// one-request-per-second usage policy and applies only to cache misses.
	GeocoderBaseURL   string        `env:"CASELOG_GEOCODER_URL" yaml:"geocoder_url"`
	GeocoderUserAgent string        `env:"CASELOG_GEOCODER_USER_AGENT" yaml:"geocoder_user_agent"`
	GeocoderTimeout   time.Duration `env:"CASELOG_GEOCODER_TIMEOUT" yaml:"geocoder_timeout"`
	GeocodeThrottle   time.Duration `env:"CASELOG_GEOCODE_THROTTLE" yaml:"geocode_throttle"`

	// SyncInterval is the map sync loop tick.
	SyncInterval time.Duration `env:"CASELOG_SYNC_INTERVAL" yaml:"sync_interval"`

	// Default viewport used when no markers could be placed.
	DefaultLat  float64 `env:"CASELOG_DEFAULT_LAT" yaml:"default_lat"`
	DefaultLon  float64 `env:"CASELOG_DEFAULT_LON" yaml:"default_lon"`
	DefaultZoom int     `env:"CASELOG_DEFAULT_ZOOM" yaml:"default_zoom"`
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "caselog.db")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		DataDir:           defaultDataDir(),
		LogLevel:          "info",
		LogFormat:         "text",
		ShutdownTimeout:   10 * time.Second,
		GeocoderBaseURL:   "https://nominatim.openstreetmap.org",
		GeocoderUserAgent: "caselog",
		GeocoderTimeout:   10 * time.Second,
		GeocodeThrottle:   1100 * time.Millisecond,
		SyncInterval:      50 * time.Millisecond,
		DefaultLat:        32.7,
		DefaultLon:        -89.5,
		DefaultZoom:       7,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".caselog")
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return errors.New("database path is required")
	}
	if c.GeocoderBaseURL == "" {
		return errors.New("geocoder URL is required")
	}
	if c.GeocoderTimeout <= 0 {
		return errors.New("geocoder timeout must be positive")
	}
	if c.GeocodeThrottle <= 0 {
		return errors.New("geocode throttle must be positive")
	}
	if c.SyncInterval <= 0 {
		return errors.New("sync interval must be positive")
	}
	if c.DefaultZoom < 1 || c.DefaultZoom > 19 {
		return errors.New("default zoom must be between 1 and 19")
	}
	return nil
}
