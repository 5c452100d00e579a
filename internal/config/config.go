// Package config loads the rider sync configuration file stored at
// ~/.ridersync/config.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigDir is the directory under the user's home for CLI state.
const DefaultConfigDir = ".ridersync"

// DefaultConfigFile is the config file name within the config directory.
const DefaultConfigFile = "config.yaml"

// EnvConfigPath overrides the config file location when set. Used by
// tests and by deployments that keep state outside the home directory.
const EnvConfigPath = "RIDERSYNC_CONFIG"

const (
	defaultBaseURL         = "https://api.unilove.app"
	defaultQueueLimit      = 120
	defaultRefreshInterval = 15 * time.Minute
)

// Config represents the contents of ~/.ridersync/config.yaml.
type Config struct {
	BaseURL      string `yaml:"base_url"`
	FallbackHost string `yaml:"fallback_host,omitempty"`
	FallbackIP   string `yaml:"fallback_ip,omitempty"`
	DataDir      string `yaml:"data_dir,omitempty"`

	QueueLimit             int `yaml:"queue_limit,omitempty"`
	RefreshIntervalMinutes int `yaml:"refresh_interval_minutes,omitempty"`
	ConnectTimeoutSeconds  int `yaml:"connect_timeout_seconds,omitempty"`
	RequestTimeoutSeconds  int `yaml:"request_timeout_seconds,omitempty"`

	// Push token registered after login, when the host platform has one.
	DeviceToken string `yaml:"device_token,omitempty"`
	DeviceID    string `yaml:"device_id,omitempty"`

	Timezone string `yaml:"timezone,omitempty"`
}

func configPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir, DefaultConfigFile), nil
}

// Load reads the config file. A missing file yields defaults; a present
// but malformed file is an error.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the config back to its file, creating the directory if
// needed.
func Save(cfg *Config) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// RefreshInterval returns the auto-refresh period.
func (c *Config) RefreshInterval() time.Duration {
	if c.RefreshIntervalMinutes <= 0 {
		return defaultRefreshInterval
	}
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// ConnectTimeout returns the dial timeout, zero meaning the transport
// default.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSeconds) * time.Second
}

// RequestTimeout returns the whole-request timeout, zero meaning the
// transport default.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Zone resolves the configured timezone, falling back to local time on
// a bad or missing name.
func (c *Config) Zone() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	zone, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return zone
}

// ResolveDataDir returns the directory for the cache database and
// vault, defaulting to the config directory itself.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return c.DataDir, nil
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return filepath.Dir(p), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.QueueLimit <= 0 {
		c.QueueLimit = defaultQueueLimit
	}
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
