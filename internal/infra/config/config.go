// Package config loads and validates the canvasd configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Canvas  CanvasConfig  `yaml:"canvas"`
	Sync    SyncConfig    `yaml:"sync"`
	Relay   RelayConfig   `yaml:"relay"`
	Gateway GatewayConfig `yaml:"gateway"`
	MCP     MCPConfig     `yaml:"mcp"`
	Logger  LoggerConfig  `yaml:"logger"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// CanvasConfig holds canvas state settings.
type CanvasConfig struct {
	// Title seeds globalTitle on startup.
	Title string `yaml:"title"`
	// CreateWindow is the idempotency guard window for repeated creates.
	CreateWindow time.Duration `yaml:"create_window"`
}

// SyncConfig holds auto-export settings.
type SyncConfig struct {
	// Debounce is the quiet period collapsing a burst of state changes
	// into one export.
	Debounce time.Duration `yaml:"debounce"`
	// RelayRateLimit caps relay-facing sync tool actions per minute.
	RelayRateLimit int `yaml:"relay_rate_limit"`
}

// RelayConfig holds the workspace relay connection settings.
type RelayConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Token       string        `yaml:"token"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
	RespTimeout time.Duration `yaml:"resp_timeout"`
	Breaker     BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the relay circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure counts.
	Interval time.Duration `yaml:"interval"`
}

// GatewayConfig holds WebSocket gateway settings.
type GatewayConfig struct {
	Enabled bool       `yaml:"enabled"`
	Addr    string     `yaml:"addr"`
	Auth    AuthConfig `yaml:"auth"`
	// RatePerSecond caps tool invocations per connected client.
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	// Mode is "none" or "token".
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// MCPConfig holds MCP stdio server settings.
type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // stdout, noop
}

// Defaults returns the baseline configuration.
func Defaults() *Config {
	return &Config{
		Canvas: CanvasConfig{
			CreateWindow: 5 * time.Second,
		},
		Sync: SyncConfig{
			Debounce:       time.Second,
			RelayRateLimit: 30,
		},
		Relay: RelayConfig{
			BaseURL:     "http://localhost:8000",
			ConnTimeout: 10 * time.Second,
			RespTimeout: 60 * time.Second,
		},
		Gateway: GatewayConfig{
			Enabled:       true,
			Addr:          "127.0.0.1:8765",
			Auth:          AuthConfig{Mode: "none"},
			RatePerSecond: 10,
			RateBurst:     20,
		},
		MCP: MCPConfig{
			Enabled: false,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Env overrides apply after the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnvOverrides(cfg)
			if err := Validate(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	ApplyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps CANVASD_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CANVASD_RELAY_URL"); v != "" {
		cfg.Relay.BaseURL = v
	}
	if v := os.Getenv("CANVASD_RELAY_TOKEN"); v != "" {
		cfg.Relay.Token = v
	}
	if v := os.Getenv("CANVASD_GATEWAY_ADDR"); v != "" {
		cfg.Gateway.Addr = v
	}
	if v := os.Getenv("CANVASD_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Auth.Mode = "token"
		cfg.Gateway.Auth.Token = v
	}
	if v := os.Getenv("CANVASD_LOG_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("CANVASD_MCP_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.MCP.Enabled = b
		}
	}
}

// Validate checks cross-field consistency.
func Validate(cfg *Config) error {
	if cfg.Relay.BaseURL == "" {
		return fmt.Errorf("relay.base_url is required")
	}
	if cfg.Gateway.Enabled && cfg.Gateway.Addr == "" {
		return fmt.Errorf("gateway.addr is required when the gateway is enabled")
	}
	switch cfg.Gateway.Auth.Mode {
	case "", "none":
	case "token":
		if cfg.Gateway.Auth.Token == "" {
			return fmt.Errorf("gateway.auth.token is required for token auth")
		}
	default:
		return fmt.Errorf("unknown gateway auth mode %q", cfg.Gateway.Auth.Mode)
	}
	if cfg.Sync.Debounce < 0 {
		return fmt.Errorf("sync.debounce must not be negative")
	}
	if cfg.Sync.RelayRateLimit <= 0 {
		return fmt.Errorf("sync.relay_rate_limit must be positive")
	}
	if cfg.Canvas.CreateWindow < 0 {
		return fmt.Errorf("canvas.create_window must not be negative")
	}
	return nil
}
