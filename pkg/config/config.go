package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	History   HistoryConfig   `mapstructure:"history"`
	AgentID   string          `mapstructure:"agent_id"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// BackendConfig holds connection settings for the chat backend
type BackendConfig struct {
	URL        string        `mapstructure:"url"`
	Token      string        `mapstructure:"token"`
	Timeout    time.Duration `mapstructure:"timeout"`
	TimeoutStr string        `mapstructure:"timeout"` // For parsing string duration
}

// ReconcileConfig tunes the post-stream reconciliation pass
type ReconcileConfig struct {
	Delay      time.Duration `mapstructure:"delay"`
	DelayStr   string        `mapstructure:"delay"` // For parsing string duration
	Attempts   int           `mapstructure:"attempts"`
	FetchLimit int           `mapstructure:"fetch_limit"`
}

// HistoryConfig holds the local transcript cache configuration
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

var globalConfig *Config

// Load unmarshals the current viper state into the global config
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Duration fields come through as strings from YAML
	if cfg.Backend.TimeoutStr != "" {
		if d, err := time.ParseDuration(cfg.Backend.TimeoutStr); err == nil {
			cfg.Backend.Timeout = d
		}
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 90 * time.Second
	}

	if cfg.Reconcile.DelayStr != "" {
		if d, err := time.ParseDuration(cfg.Reconcile.DelayStr); err == nil {
			cfg.Reconcile.Delay = d
		}
	}
	if cfg.Reconcile.Delay == 0 {
		cfg.Reconcile.Delay = 500 * time.Millisecond
	}
	if cfg.Reconcile.Attempts == 0 {
		cfg.Reconcile.Attempts = 3
	}
	if cfg.Reconcile.FetchLimit == 0 {
		cfg.Reconcile.FetchLimit = 50
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.LogFile == "" {
		cfg.Logging.LogFile = "./.strand/system.log"
	}

	globalConfig = cfg
	return cfg, nil
}

// Get returns the global config, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			// Fall back to defaults rather than failing callers that
			// only need logging settings
			globalConfig = &Config{
				Logging: LoggingConfig{
					LogFile: "./.strand/system.log",
					Level:   "info",
				},
			}
			return globalConfig
		}
		globalConfig = cfg
	}
	return globalConfig
}

// Reset clears the global config (useful for testing)
func Reset() {
	globalConfig = nil
}

// SettingsDir returns the directory holding settings, logs, and the
// history cache
func SettingsDir() string {
	return "./.strand"
}

// BuildSettingsPath resolves a filename relative to the settings directory
func BuildSettingsPath(filename string) string {
	return filepath.Join(SettingsDir(), filename)
}

// EnsureSettingsDir creates the settings directory if it does not exist
func EnsureSettingsDir() error {
	if err := os.MkdirAll(SettingsDir(), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	return nil
}
