// Package config holds configuration for the client core. Values come from
// the environment (envconfig), optionally overridden by a TOML or YAML file
// shipped alongside the wrapper.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all core configuration.
type Config struct {
	Logging   LogConfig
	Sync      SyncConfig
	Broadcast BroadcastConfig
	Notify    NotifyConfig
	Update    UpdateConfig
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development" yaml:"development"`
}

// SyncConfig holds overlay-URL synchronization configuration.
type SyncConfig struct {
	DebounceMS       int    `envconfig:"SYNC_DEBOUNCE_MS" default:"120" toml:"debounce_ms" yaml:"debounce_ms"`
	MaxPropsLength   int    `envconfig:"SYNC_MAX_PROPS_LEN" default:"2000" toml:"max_props_length" yaml:"max_props_length"`
	ConflictStrategy string `envconfig:"SYNC_CONFLICT_STRATEGY" default:"url-wins" toml:"conflict_strategy" yaml:"conflict_strategy"`
}

// BroadcastConfig holds cross-window sync hub configuration.
type BroadcastConfig struct {
	Enabled bool   `envconfig:"BROADCAST_ENABLED" default:"false" toml:"enabled" yaml:"enabled"`
	Addr    string `envconfig:"BROADCAST_ADDR" default:"127.0.0.1:17893" toml:"addr" yaml:"addr"`
}

// NotifyConfig holds notification delivery configuration.
type NotifyConfig struct {
	RatePerSecond float64 `envconfig:"NOTIFY_RATE" default:"1" toml:"rate_per_second" yaml:"rate_per_second"`
	Burst         int     `envconfig:"NOTIFY_BURST" default:"3" toml:"burst" yaml:"burst"`
}

// UpdateConfig holds update-check configuration. Only the desktop wrapper
// checks for updates, matching the original shell.
type UpdateConfig struct {
	Enabled     bool   `envconfig:"UPDATE_ENABLED" default:"true" toml:"enabled" yaml:"enabled"`
	ManifestURL string `envconfig:"UPDATE_MANIFEST_URL" default:"" toml:"manifest_url" yaml:"manifest_url"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Sync: SyncConfig{
			DebounceMS:       120,
			MaxPropsLength:   2000,
			ConflictStrategy: "url-wins",
		},
		Broadcast: BroadcastConfig{
			Enabled: false,
			Addr:    "127.0.0.1:17893",
		},
		Notify: NotifyConfig{
			RatePerSecond: 1,
			Burst:         3,
		},
		Update: UpdateConfig{
			Enabled: true,
		},
	}
}
