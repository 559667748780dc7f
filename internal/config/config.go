// Package config loads service configuration: built-in defaults, an
// optional YAML file, then environment variables on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"

	"github.com/latticeworks/substrate/internal/retry"
)

// Config holds all service settings.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Retry     RetryConfig     `yaml:"retry"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"SERVER_ADDR"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS"`
}

// StoreConfig holds the document store connection settings.
type StoreConfig struct {
	URL        string        `yaml:"url" env:"STORE_URL"`
	ServiceKey string        `yaml:"service_key" env:"STORE_SERVICE_KEY"`
	Timeout    time.Duration `yaml:"timeout" env:"STORE_TIMEOUT"`
}

// NotifierConfig holds the outside notification service settings.
type NotifierConfig struct {
	BaseURL    string        `yaml:"base_url" env:"NOTIFIER_BASE_URL"`
	ServiceID  string        `yaml:"service_id" env:"NOTIFIER_SERVICE_ID"`
	SigningKey string        `yaml:"signing_key" env:"NOTIFIER_SIGNING_KEY"`
	Timeout    time.Duration `yaml:"timeout" env:"NOTIFIER_TIMEOUT"`
}

// RetryConfig holds the IO retry policy knobs.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env:"RETRY_MAX_ATTEMPTS"`
	BaseDelay   time.Duration `yaml:"base_delay" env:"RETRY_BASE_DELAY"`
	Multiplier  float64       `yaml:"multiplier" env:"RETRY_MULTIPLIER"`
}

// RateLimitConfig holds per-caller rate limit settings.
type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second" env:"RATE_LIMIT_RPS"`
	Burst             int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
}

// Policy converts the retry knobs to a retry.Policy.
func (c RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		Multiplier:  c.Multiplier,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"http://localhost:3000"},
		},
		Store: StoreConfig{
			URL:     "http://localhost:9000",
			Timeout: 30 * time.Second,
		},
		Notifier: NotifierConfig{
			BaseURL:   "http://localhost:9100",
			ServiceID: "substrate",
			Timeout:   15 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   200 * time.Millisecond,
			Multiplier:  3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration, layering the YAML file at path (when
// non-empty) and then the environment over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// No env vars set at all is fine; defaults and file carry it.
	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode environment: %w", err)
	}

	return cfg, nil
}
