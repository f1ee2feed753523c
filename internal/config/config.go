// Package config provides configuration loading for the fittrack client.
//
// Configuration comes from fittrack.yaml (current directory or
// $HOME/.fittrack/), with FITTRACK_* environment variables overriding
// individual keys. Everything has a sensible default: a fresh install
// with no config file talks to http://localhost:8000.
package config

import (
	"time"
)

// Config is the top-level client configuration.
type Config struct {
	// API configures the backend endpoint and request timeouts.
	API APIConfig `yaml:"api" mapstructure:"api"`

	// Storage configures where the credential and local cache live.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// Goals are the fallback nutrition targets applied when the
	// server-side profile omits a goal field.
	Goals GoalsConfig `yaml:"goals" mapstructure:"goals"`

	// LogLevel controls slog verbosity: debug, info, warn, or error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// APIConfig configures the backend HTTP client.
type APIConfig struct {
	// BaseURL is the backend endpoint.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"omitempty,url"`

	// InitTimeout bounds the startup credential validation fetch (e.g. "10s").
	InitTimeout string `yaml:"init_timeout" mapstructure:"init_timeout" validate:"omitempty,duration"`

	// AuthTimeout bounds login and register calls (e.g. "15s").
	AuthTimeout string `yaml:"auth_timeout" mapstructure:"auth_timeout" validate:"omitempty,duration"`

	// RequestTimeout bounds all other calls, including scan uploads (e.g. "30s").
	RequestTimeout string `yaml:"request_timeout" mapstructure:"request_timeout" validate:"omitempty,duration"`
}

// StorageConfig configures local persistence.
type StorageConfig struct {
	// DataDir holds the sealed credential and the history cache.
	// Defaults to $HOME/.fittrack.
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
}

// GoalsConfig holds client-side default nutrition targets.
type GoalsConfig struct {
	// DailyCalories is in kcal.
	DailyCalories int `yaml:"daily_calories" mapstructure:"daily_calories" validate:"gte=0"`

	// Protein, Carbs, and Fiber are in grams.
	Protein int `yaml:"protein" mapstructure:"protein" validate:"gte=0"`
	Carbs   int `yaml:"carbs" mapstructure:"carbs" validate:"gte=0"`
	Fiber   int `yaml:"fiber" mapstructure:"fiber" validate:"gte=0"`
}

// Default values applied by SetDefaults.
const (
	DefaultBaseURL        = "http://localhost:8000"
	DefaultInitTimeout    = "10s"
	DefaultAuthTimeout    = "15s"
	DefaultRequestTimeout = "30s"
	DefaultLogLevel       = "info"

	DefaultDailyCalories = 2000
	DefaultProtein       = 120
	DefaultCarbs         = 250
	DefaultFiber         = 30
)

// SetDefaults fills in zero-valued optional fields.
func (c *Config) SetDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.InitTimeout == "" {
		c.API.InitTimeout = DefaultInitTimeout
	}
	if c.API.AuthTimeout == "" {
		c.API.AuthTimeout = DefaultAuthTimeout
	}
	if c.API.RequestTimeout == "" {
		c.API.RequestTimeout = DefaultRequestTimeout
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Goals.DailyCalories == 0 {
		c.Goals.DailyCalories = DefaultDailyCalories
	}
	if c.Goals.Protein == 0 {
		c.Goals.Protein = DefaultProtein
	}
	if c.Goals.Carbs == 0 {
		c.Goals.Carbs = DefaultCarbs
	}
	if c.Goals.Fiber == 0 {
		c.Goals.Fiber = DefaultFiber
	}
}

// InitTimeoutDuration returns the parsed init timeout.
// Call after SetDefaults and Validate.
func (c *APIConfig) InitTimeoutDuration() time.Duration {
	return mustDuration(c.InitTimeout, 10*time.Second)
}

// AuthTimeoutDuration returns the parsed auth timeout.
func (c *APIConfig) AuthTimeoutDuration() time.Duration {
	return mustDuration(c.AuthTimeout, 15*time.Second)
}

// RequestTimeoutDuration returns the parsed request timeout.
func (c *APIConfig) RequestTimeoutDuration() time.Duration {
	return mustDuration(c.RequestTimeout, 30*time.Second)
}

// mustDuration parses a validated duration string; fallback covers the
// unvalidated zero-config path.
func mustDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
