// Package config loads, validates and materializes the daemon
// configuration.
//
// Configuration sources, in order of precedence:
//  1. Environment variables (DESKFS_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Each storage backend defines its own configuration type; the Config
// struct carries type-specific sections as loose maps and only the
// section matching the selected type is decoded, by the factories in
// this package.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/marmos91/deskfs/pkg/gc"
)

// Config is the complete daemon configuration.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains daemon-wide settings.
	Server ServerConfig `mapstructure:"server"`

	// Snapshot selects where the metadata index persists.
	Snapshot SnapshotConfig `mapstructure:"snapshot"`

	// Content selects the content store substrate.
	Content ContentConfig `mapstructure:"content"`

	// Lazy configures deferred content loading.
	Lazy LazyConfig `mapstructure:"lazy"`

	// GC configures the orphaned-content sweep.
	GC gc.Config `mapstructure:"gc"`

	// Metrics controls Prometheus metrics collection.
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls metrics collection.
type MetricsConfig struct {
	// Enabled turns on the Prometheus registry. When false all
	// components use no-op metrics.
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`
}

// ServerConfig contains daemon-wide settings.
type ServerConfig struct {
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`

	// FlushDelay is the metadata snapshot debounce window.
	FlushDelay time.Duration `mapstructure:"flush_delay" validate:"gte=0"`
}

// SnapshotConfig selects the metadata snapshot backend.
type SnapshotConfig struct {
	// Type is the backend to use.
	// Valid values: file, memory.
	Type string `mapstructure:"type" validate:"required,oneof=file memory"`

	// File holds file-backend options. Only used when Type = "file".
	File map[string]any `mapstructure:"file"`
}

// ContentConfig selects the content store substrate.
type ContentConfig struct {
	// Type is the substrate to use.
	// Valid values: badger, memory.
	Type string `mapstructure:"type" validate:"required,oneof=badger memory"`

	// Badger holds BadgerDB options. Only used when Type = "badger".
	Badger map[string]any `mapstructure:"badger"`
}

// LazyConfig configures deferred content loading.
type LazyConfig struct {
	// Fetcher selects how remote payloads are retrieved.
	// Valid values: http, s3, none.
	Fetcher string `mapstructure:"fetcher" validate:"required,oneof=http s3 none"`

	// ManifestPath points at the YAML manifest of lazily loaded files.
	// Empty disables manifest loading.
	ManifestPath string `mapstructure:"manifest_path"`

	// HTTP holds HTTP fetcher options. Only used when Fetcher = "http".
	HTTP map[string]any `mapstructure:"http"`

	// S3 holds S3 fetcher options. Only used when Fetcher = "s3".
	S3 map[string]any `mapstructure:"s3"`
}

// Load reads the configuration from file and environment, applies
// defaults and validates the result.
//
// An empty configPath falls back to the default location under
// $XDG_CONFIG_HOME/deskfs; a missing file there is not an error.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// setupViper wires environment variables and the config file location.
// Environment variables use the DESKFS_ prefix with underscores, for
// example DESKFS_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("DESKFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns the configuration directory, honoring
// XDG_CONFIG_HOME and falling back to ~/.config.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "deskfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "deskfs")
}

// DefaultDataDir returns the directory for persistent state, honoring
// XDG_DATA_HOME and falling back to ~/.local/share.
func DefaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "deskfs")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "deskfs")
}
