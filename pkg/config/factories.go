package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/deskfs/pkg/vfs/content"
	badgerstore "github.com/marmos91/deskfs/pkg/vfs/content/badger"
	"github.com/marmos91/deskfs/pkg/vfs/content/memory"
	"github.com/marmos91/deskfs/pkg/vfs/index"
	"github.com/marmos91/deskfs/pkg/vfs/lazy"
)

// NewSnapshotStore builds the metadata snapshot backend selected by cfg.
func NewSnapshotStore(cfg *SnapshotConfig) (index.SnapshotStore, error) {
	switch cfg.Type {
	case "file":
		type fileSnapshotConfig struct {
			Path string `mapstructure:"path"`
		}
		var fileCfg fileSnapshotConfig
		if err := mapstructure.Decode(cfg.File, &fileCfg); err != nil {
			return nil, fmt.Errorf("failed to decode file snapshot config: %w", err)
		}
		if fileCfg.Path == "" {
			return nil, fmt.Errorf("file snapshot store: path is required")
		}
		return index.NewFileSnapshotStore(fileCfg.Path), nil
	case "memory":
		return index.NewMemorySnapshotStore(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot store type: %q", cfg.Type)
	}
}

// NewContentStore builds the content store substrate selected by cfg.
func NewContentStore(ctx context.Context, cfg *ContentConfig) (content.Store, error) {
	switch cfg.Type {
	case "badger":
		var storeCfg badgerstore.Config
		if err := mapstructure.Decode(cfg.Badger, &storeCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger content store config: %w", err)
		}
		store, err := badgerstore.New(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create badger content store: %w", err)
		}
		return store, nil
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown content store type: %q", cfg.Type)
	}
}

// NewFetcher builds the lazy-loading fetcher selected by cfg. Returns
// nil when lazy loading is disabled.
func NewFetcher(ctx context.Context, cfg *LazyConfig) (lazy.Fetcher, error) {
	switch cfg.Fetcher {
	case "none":
		return nil, nil
	case "http":
		var httpCfg lazy.HTTPFetcherConfig
		if err := mapstructure.Decode(cfg.HTTP, &httpCfg); err != nil {
			return nil, fmt.Errorf("failed to decode http fetcher config: %w", err)
		}
		return lazy.NewHTTPFetcher(httpCfg), nil
	case "s3":
		var s3Cfg lazy.S3FetcherConfig
		if err := mapstructure.Decode(cfg.S3, &s3Cfg); err != nil {
			return nil, fmt.Errorf("failed to decode s3 fetcher config: %w", err)
		}
		fetcher, err := lazy.NewS3Fetcher(ctx, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 fetcher: %w", err)
		}
		return fetcher, nil
	default:
		return nil, fmt.Errorf("unknown fetcher type: %q", cfg.Fetcher)
	}
}
