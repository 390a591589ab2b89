package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Config holds all lexgate configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Inbound HTTP surface
	Server ServerConfig `yaml:"server"`

	// Shared headless browser
	Browser BrowserConfig `yaml:"browser"`

	// Provider adapter timing
	Provider ProviderConfig `yaml:"provider"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the HTTP listener and caller authentication.
type ServerConfig struct {
	Host         string `yaml:"host" env:"LEXGATE_HOST"`
	Port         int    `yaml:"port" env:"LEXGATE_PORT"`
	SharedSecret string `yaml:"-" env:"LEXGATE_SHARED_SECRET"`

	// Per-client token bucket on POST /search
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`

	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// ProviderConfig configures the adapter state machine.
type ProviderConfig struct {
	SearchTimeout     string `yaml:"search_timeout"`  // whole adapter run
	ResultWait        string `yaml:"result_wait"`     // result marker presence
	GraceDelay        string `yaml:"grace_delay"`     // after markers never appear
	LoginFormWait     string `yaml:"login_form_wait"` // login form render
	PollInterval      string `yaml:"poll_interval"`
	DefaultMaxResults int    `yaml:"default_max_results"`
	MaxResultsCap     int    `yaml:"max_results_cap"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "lexgate",
		Version: "1.2.0",

		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8090,
			RateLimitPerMinute: 30,
			RateLimitBurst:     5,
			ShutdownTimeout:    "15s",
		},

		Browser: DefaultBrowserConfig(),

		Provider: ProviderConfig{
			SearchTimeout:     "90s",
			ResultWait:        "15s",
			GraceDelay:        "2s",
			LoginFormWait:     "30s",
			PollInterval:      "250ms",
			DefaultMaxResults: 15,
			MaxResultsCap:     100,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment overrides.
// A missing file is not an error; defaults plus environment are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
			// Return defaults if config file doesn't exist
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies LEXGATE_* environment variables through the env struct tags.
func (c *Config) applyEnvOverrides() error {
	if err := cleanenv.ReadEnv(c); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	return nil
}

// Validate validates the configuration needed to serve requests.
func (c *Config) Validate() error {
	if c.Server.SharedSecret == "" {
		return fmt.Errorf("shared secret not configured (set LEXGATE_SHARED_SECRET)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Browser.MaxPages < 1 {
		return fmt.Errorf("browser.max_pages must be at least 1, got %d", c.Browser.MaxPages)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetSearchTimeout returns the whole-search deadline.
func (c *Config) GetSearchTimeout() time.Duration {
	return parseDuration(c.Provider.SearchTimeout, 90*time.Second)
}

// GetResultWait returns the result marker wait.
func (c *Config) GetResultWait() time.Duration {
	return parseDuration(c.Provider.ResultWait, 15*time.Second)
}

// GetGraceDelay returns the delay used when no result marker appears.
func (c *Config) GetGraceDelay() time.Duration {
	return parseDuration(c.Provider.GraceDelay, 2*time.Second)
}

// GetLoginFormWait returns the login form wait.
func (c *Config) GetLoginFormWait() time.Duration {
	return parseDuration(c.Provider.LoginFormWait, 30*time.Second)
}

// GetPollInterval returns the selector polling interval.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Provider.PollInterval, 250*time.Millisecond)
}

// GetShutdownTimeout returns the HTTP graceful shutdown timeout.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 15*time.Second)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
