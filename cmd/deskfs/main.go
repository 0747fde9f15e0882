package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/config"
	"github.com/marmos91/deskfs/pkg/gc"
	"github.com/marmos91/deskfs/pkg/metrics"
	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/fs"
	"github.com/marmos91/deskfs/pkg/vfs/index"
	"github.com/marmos91/deskfs/pkg/vfs/lazy"
	"github.com/marmos91/deskfs/pkg/vfs/migrate"
	"github.com/marmos91/deskfs/pkg/vfs/virtual"
)

// builtinApplications is the catalog projected under /Applications.
var builtinApplications = virtual.StaticCatalog{
	{Name: "TextEdit", Type: vfs.TypeApplet},
	{Name: "Paint", Type: vfs.TypeApplet},
	{Name: "Minesweeper", Type: vfs.TypeApplet},
	{Name: "Soundboard", Type: vfs.TypeApplet},
	{Name: "Virtual PC", Type: vfs.TypeApplet},
}

// seedInitialLayout creates the default desktop folders and starter
// files on a fresh system.
func seedInitialLayout(ctx context.Context, filesystem *fs.FileSystem) error {
	for _, folder := range []string{"/Desktop", "/Documents", "/Pictures", "/Music", "/Videos", "/Sites"} {
		if _, err := filesystem.CreateFolder(ctx, folder); err != nil {
			return fmt.Errorf("failed to create %s: %w", folder, err)
		}
	}

	starters := []fs.ImportFile{
		{Path: "/Documents/Welcome.md", Data: []byte("# Welcome\n\nThis is your file system. Everything you save here persists.\n"), Type: vfs.TypeMarkdown},
		{Path: "/Documents/Quick Tips.md", Data: []byte("# Quick Tips\n\n- Drag files to the Trash to delete them\n- The Trash keeps items until you empty it\n"), Type: vfs.TypeMarkdown},
	}
	if _, err := filesystem.Import(ctx, starters); err != nil {
		return fmt.Errorf("failed to create starter files: %w", err)
	}

	if _, err := filesystem.SaveAlias(ctx, "/Desktop/TextEdit", "textedit", vfs.AliasApplication); err != nil {
		return fmt.Errorf("failed to create desktop alias: %w", err)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fmt.Println("deskfs - persistent virtual file system")
	logger.Info("Log level set to: %s", cfg.Logging.Level)

	snapshotStore, err := config.NewSnapshotStore(&cfg.Snapshot)
	if err != nil {
		log.Fatalf("Failed to create snapshot store: %v", err)
	}

	contentStore, err := config.NewContentStore(ctx, &cfg.Content)
	if err != nil {
		log.Fatalf("Failed to create content store: %v", err)
	}

	snap, err := snapshotStore.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load metadata snapshot: %v", err)
	}
	snap, err = migrate.Run(snap, migrate.Steps())
	if err != nil {
		// The untouched snapshot still loads; the system runs with the
		// previous schema and retries migration on next start.
		logger.Error("Schema migration failed, continuing on previous schema: %v", err)
	}

	ix := index.New(snapshotStore, snap, index.Options{FlushDelay: cfg.Server.FlushDelay})

	var manager *lazy.Manager
	fetcher, err := config.NewFetcher(ctx, &cfg.Lazy)
	if err != nil {
		log.Fatalf("Failed to create lazy fetcher: %v", err)
	}
	if fetcher != nil {
		manager = lazy.NewManager(fetcher, contentStore)
	}

	resolver, err := virtual.NewResolver(map[string]virtual.Catalog{
		"/Applications": builtinApplications,
	})
	if err != nil {
		log.Fatalf("Failed to create virtual resolver: %v", err)
	}

	filesystem, err := fs.New(fs.Config{
		Index:    ix,
		Content:  contentStore,
		Resolver: resolver,
		Lazy:     manager,
	})
	if err != nil {
		log.Fatalf("Failed to create file system: %v", err)
	}

	// Root and trash only means a fresh system.
	if ix.Len() <= 2 {
		if err := seedInitialLayout(ctx, filesystem); err != nil {
			log.Fatalf("Failed to seed initial layout: %v", err)
		}
		logger.Info("Initial desktop layout created")
	}

	// Registration creates placeholder items, so manifest files are
	// listable before their first read fetches the content.
	if manager != nil && cfg.Lazy.ManifestPath != "" {
		entries, err := config.LoadManifest(cfg.Lazy.ManifestPath)
		if err != nil {
			log.Fatalf("Failed to load lazy manifest: %v", err)
		}
		registered, err := filesystem.RegisterLazy(ctx, entries)
		if err != nil {
			log.Fatalf("Failed to register lazy manifest: %v", err)
		}
		logger.Info("Registered %d lazily loaded files", registered)
	}

	collector := gc.NewCollector(ix, contentStore, cfg.GC)
	collector.Start()

	unsubscribe := filesystem.Subscribe(func(e vfs.Event) {
		logger.Debug("Event: %s path=%s old=%s", e.Type, e.Path, e.OldPath)
	})
	defer unsubscribe()

	logger.Info("deskfs ready (%d items indexed)", ix.Len())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Received %s, shutting down...", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := collector.Stop(shutdownCtx); err != nil {
		logger.Warn("Garbage collector did not stop cleanly: %v", err)
	}
	if err := filesystem.Close(shutdownCtx); err != nil {
		logger.Error("Shutdown flush failed: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
