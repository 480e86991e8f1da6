// Package config handles application configuration
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config.sample.yaml
var sampleConfig string

// GetSampleConfig returns the embedded sample configuration content
func GetSampleConfig() string {
	return sampleConfig
}

// ServerConfig holds backend connection settings
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"` // REST request timeout (e.g., "30s")
}

// StreamConfig holds push-connection tuning
type StreamConfig struct {
	MaxRetries             int    `yaml:"max_retries"`
	BaseRetryDelay         string `yaml:"base_retry_delay"`
	ErrorCooldown          string `yaml:"error_cooldown"`
	TokenRefreshInterval   string `yaml:"token_refresh_interval"`
	TokenRefreshMinSpacing string `yaml:"token_refresh_min_spacing"`
	HealthCheckInterval    string `yaml:"health_check_interval"`
}

// BoardConfig holds board presentation settings
type BoardConfig struct {
	Locale string `yaml:"locale"` // BCP 47 tag for sibling ordering
}

// AnalyticsConfig holds analytics settings
type AnalyticsConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Verbose   bool   `yaml:"verbose"`
	NoticeLog string `yaml:"notice_log"` // notice file sink, empty disables
}

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Stream    StreamConfig    `yaml:"stream"`
	Board     BoardConfig     `yaml:"board"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL: "http://localhost:8000",
			Timeout: "30s",
		},
		Board: BoardConfig{
			Locale: "zh-Hant",
		},
		Analytics: AnalyticsConfig{
			Enabled: true,
		},
	}
}

// Load loads configuration from the specified path, or the default XDG path if empty.
// If the config file doesn't exist, it creates one with defaults.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = filepath.Join(GetConfigDir(), "config.yaml")
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML in config file: %w", err)
	}

	// Apply defaults for unset fields
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8000"
	}
	if cfg.Board.Locale == "" {
		cfg.Board.Locale = "zh-Hant"
	}
	if cfg.Logging.NoticeLog != "" {
		cfg.Logging.NoticeLog = ExpandPath(cfg.Logging.NoticeLog)
	}

	return cfg, nil
}

// save writes the configuration to the specified path
func (c *Config) save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use the embedded sample config which includes all documentation and comments
	if err := os.WriteFile(path, []byte(sampleConfig), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server.base_url must start with http:// or https://, got %q", c.Server.BaseURL)
	}

	durations := []struct {
		name  string
		value string
	}{
		{"server.timeout", c.Server.Timeout},
		{"stream.base_retry_delay", c.Stream.BaseRetryDelay},
		{"stream.error_cooldown", c.Stream.ErrorCooldown},
		{"stream.token_refresh_interval", c.Stream.TokenRefreshInterval},
		{"stream.token_refresh_min_spacing", c.Stream.TokenRefreshMinSpacing},
		{"stream.health_check_interval", c.Stream.HealthCheckInterval},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		if _, err := time.ParseDuration(d.value); err != nil {
			return fmt.Errorf("invalid duration for %s: %q", d.name, d.value)
		}
	}

	if c.Stream.MaxRetries < 0 {
		return fmt.Errorf("stream.max_retries must not be negative, got %d", c.Stream.MaxRetries)
	}

	return nil
}

// GetServerTimeout returns the REST request timeout.
// Returns 30 seconds as default if not configured or if parsing fails.
func (c *Config) GetServerTimeout() time.Duration {
	return parseDurationOr(c.Server.Timeout, 30*time.Second)
}

// GetBaseRetryDelay returns the first reconnect delay.
func (c *Config) GetBaseRetryDelay() time.Duration {
	return parseDurationOr(c.Stream.BaseRetryDelay, 10*time.Second)
}

// GetErrorCooldown returns the duplicate-error window.
func (c *Config) GetErrorCooldown() time.Duration {
	return parseDurationOr(c.Stream.ErrorCooldown, 5*time.Second)
}

// GetTokenRefreshInterval returns the credential rotation interval.
func (c *Config) GetTokenRefreshInterval() time.Duration {
	return parseDurationOr(c.Stream.TokenRefreshInterval, 4*time.Minute)
}

// GetTokenRefreshMinSpacing returns the minimum spacing between rotations.
func (c *Config) GetTokenRefreshMinSpacing() time.Duration {
	return parseDurationOr(c.Stream.TokenRefreshMinSpacing, 2*time.Minute)
}

// GetHealthCheckInterval returns the liveness probe interval.
func (c *Config) GetHealthCheckInterval() time.Duration {
	return parseDurationOr(c.Stream.HealthCheckInterval, 5*time.Minute)
}

// GetMaxRetries returns the reconnect budget.
// Returns 3 (default) if not configured.
func (c *Config) GetMaxRetries() int {
	if c.Stream.MaxRetries <= 0 {
		return 3
	}
	return c.Stream.MaxRetries
}

// IsAnalyticsEnabled returns true if analytics is enabled in config
func (c *Config) IsAnalyticsEnabled() bool {
	return c.Analytics.Enabled
}

// GetAnalyticsRetentionDays returns the analytics retention period in days.
// Returns 365 (default) if not configured.
func (c *Config) GetAnalyticsRetentionDays() int {
	if c.Analytics.RetentionDays <= 0 {
		return 365
	}
	return c.Analytics.RetentionDays
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// getXDGDir returns a directory path following XDG spec.
// envVar is the XDG environment variable (e.g., "XDG_CONFIG_HOME").
// fallbackPath is the relative path from home (e.g., ".config").
func getXDGDir(envVar, fallbackPath string) string {
	if xdgDir := os.Getenv(envVar); xdgDir != "" {
		return filepath.Join(xdgDir, "taskboard")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", fallbackPath, "taskboard")
	}
	return filepath.Join(home, fallbackPath, "taskboard")
}

// GetConfigDir returns the configuration directory following XDG spec
func GetConfigDir() string {
	return getXDGDir("XDG_CONFIG_HOME", ".config")
}

// GetDataDir returns the data directory following XDG spec
func GetDataDir() string {
	return getXDGDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// GetCacheDir returns the cache directory following XDG spec
func GetCacheDir() string {
	return getXDGDir("XDG_CACHE_HOME", ".cache")
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	path = os.ExpandEnv(path)

	return path
}
