// Package config loads application configuration. Precedence, lowest to
// highest: built-in defaults, optional TOML file, environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Terminal  TerminalConfig  `toml:"terminal"`
	Stream    StreamConfig    `toml:"stream"`
	History   HistoryConfig   `toml:"history"`
	Notify    NotifyConfig    `toml:"notify"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" toml:"port"`
	Host string `envconfig:"HOST" toml:"host"`
}

// TerminalConfig holds terminal host and session settings.
type TerminalConfig struct {
	// Backend selects the process-control backend: "wezterm" or "local".
	Backend string `envconfig:"TERMINAL_BACKEND" toml:"backend"`
	// Command is the interactive CLI launched in each session.
	Command string   `envconfig:"CLAUDE_COMMAND" toml:"command"`
	Args    []string `envconfig:"CLAUDE_ARGS" toml:"args"`
	// Workspace tags panes so unmanaged ones can be discovered.
	Workspace      string        `envconfig:"WORKSPACE" toml:"workspace"`
	DefaultWorkDir string        `envconfig:"DEFAULT_WORKING_DIR" toml:"default_working_dir"`
	MaxSessions    int           `envconfig:"MAX_SESSIONS" toml:"max_sessions"`
	SettleDelay    time.Duration `envconfig:"SETTLE_DELAY" toml:"settle_delay"`
}

// StreamConfig holds output streaming settings.
type StreamConfig struct {
	PollInterval time.Duration `envconfig:"STREAM_POLL_INTERVAL" toml:"poll_interval"`
	IdleTimeout  time.Duration `envconfig:"STREAM_IDLE_TIMEOUT" toml:"idle_timeout"`
	ReadLines    int           `envconfig:"STREAM_READ_LINES" toml:"read_lines"`
	TailLines    int           `envconfig:"STREAM_TAIL_LINES" toml:"tail_lines"`
}

// HistoryConfig holds session history settings.
type HistoryConfig struct {
	Enabled bool   `envconfig:"HISTORY_ENABLED" toml:"enabled"`
	Dir     string `envconfig:"HISTORY_DIR" toml:"dir"`
}

// NotifyConfig holds webhook notification settings.
type NotifyConfig struct {
	// WebhookURLs receive every hook event as JSON. Empty disables
	// notifications.
	WebhookURLs []string      `envconfig:"NOTIFY_WEBHOOK_URLS" toml:"webhook_urls"`
	Timeout     time.Duration `envconfig:"NOTIFY_TIMEOUT" toml:"timeout"`
	RetryCount  int           `envconfig:"NOTIFY_RETRY_COUNT" toml:"retry_count"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration. The per-IP limit guards
// against one misbehaving client; the global limit caps total load on the
// terminal host. A global rate of zero disables the global limiter.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" toml:"burst"`
	GlobalRPS         int  `envconfig:"RATE_LIMIT_GLOBAL_RPS" toml:"global_rps"`
	GlobalBurst       int  `envconfig:"RATE_LIMIT_GLOBAL_BURST" toml:"global_burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" toml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8765",
			Host: "0.0.0.0",
		},
		Terminal: TerminalConfig{
			Backend:        "wezterm",
			Command:        "claude",
			Args:           []string{"--dangerously-skip-permissions"},
			Workspace:      "cc-anywhere",
			DefaultWorkDir: "~",
			MaxSessions:    10,
			SettleDelay:    time.Second,
		},
		Stream: StreamConfig{
			PollInterval: 500 * time.Millisecond,
			IdleTimeout:  5 * time.Minute,
			ReadLines:    200,
			TailLines:    50,
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "./logs/sessions",
		},
		Notify: NotifyConfig{
			Timeout:    10 * time.Second,
			RetryCount: 2,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			GlobalRPS:         200,
			GlobalBurst:       400,
			Enabled:           true,
		},
	}
}

// Load builds configuration from defaults, the optional TOML file at path
// (empty path skips the file), and environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from the environment only, falling back
// to defaults on error.
func LoadOrDefault() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}
