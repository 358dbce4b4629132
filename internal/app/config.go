package app

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// DefaultPort is the port the function server listens on when none is set.
const DefaultPort = 8080

// DefaultMaxDepth bounds nested invocations when no limit is set.
const DefaultMaxDepth = 64

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json", "auto"}
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	WorkspacePath string // directory of .hcl function files

	Host            string
	Port            int
	HealthcheckPort int // separate liveness listener, 0 disables it

	LogFormat string
	LogLevel  string

	// Production disables hot reload.
	Production         bool
	Debounce           time.Duration
	MaxDepth           int
	DisableModuleCache bool
	RequestLimit       int64

	DataPath    string
	TokenSecret string
}

// NewConfig validates cfg, fills in defaults and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.WorkspacePath == "" {
		return nil, errors.New("WorkspacePath is a required configuration field and cannot be empty")
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	if cfg.HealthcheckPort != 0 && cfg.HealthcheckPort == cfg.Port {
		return nil, fmt.Errorf("healthcheck port %d collides with the server port", cfg.HealthcheckPort)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if !slices.Contains(logLevels, cfg.LogLevel) {
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if !slices.Contains(logFormats, cfg.LogFormat) {
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}

	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	if cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("invalid max depth %d", cfg.MaxDepth)
	}
	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("invalid debounce %s", cfg.Debounce)
	}
	if cfg.RequestLimit < 0 {
		return nil, fmt.Errorf("invalid request limit %d", cfg.RequestLimit)
	}

	return &cfg, nil
}

// Addr is the function server's listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
