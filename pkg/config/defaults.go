package config

import (
	"path/filepath"
	"strings"
	"time"
)

// ApplyDefaults fills unspecified configuration fields with sensible
// defaults. Zero values are replaced, explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applySnapshotDefaults(&cfg.Snapshot)
	applyContentDefaults(&cfg.Content)
	applyLazyDefaults(&cfg.Lazy)
	applyGCDefaults(cfg)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.FlushDelay == 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
}

func applySnapshotDefaults(cfg *SnapshotConfig) {
	if cfg.Type == "" {
		cfg.Type = "file"
	}
	if cfg.File == nil {
		cfg.File = make(map[string]any)
	}
	if _, ok := cfg.File["path"]; !ok {
		cfg.File["path"] = filepath.Join(DefaultDataDir(), "index.json")
	}
}

func applyContentDefaults(cfg *ContentConfig) {
	if cfg.Type == "" {
		cfg.Type = "badger"
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = filepath.Join(DefaultDataDir(), "content")
	}
}

func applyLazyDefaults(cfg *LazyConfig) {
	if cfg.Fetcher == "" {
		cfg.Fetcher = "none"
	}
	if cfg.HTTP == nil {
		cfg.HTTP = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}
}

func applyGCDefaults(cfg *Config) {
	if cfg.GC.Interval == 0 {
		cfg.GC.Interval = time.Hour
	}
	if cfg.GC.BatchSize == 0 {
		cfg.GC.BatchSize = 1000
	}
}
