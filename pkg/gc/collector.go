// Package gc reconciles the content store against the metadata index.
//
// Orphaned content records exist whenever a create saga commits its
// content write but never reaches the metadata commit, or a purge loses
// its content deletion. They are invisible to users and only waste
// space, so a periodic background sweep reclaims them: list every
// record per partition, subtract the ContentIDs the index references,
// batch-delete the rest.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/metrics"
	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

// MetadataSource yields the current metadata items. *index.Index
// satisfies it.
type MetadataSource interface {
	Items() []vfs.Item
}

// Config controls the sweep schedule.
type Config struct {
	// Enabled controls whether the background sweep runs (default false).
	Enabled bool `mapstructure:"enabled"`

	// Interval is how often to sweep (default 1h).
	Interval time.Duration `mapstructure:"interval"`

	// BatchSize caps how many orphans one delete batch carries
	// (default 1000).
	BatchSize int `mapstructure:"batch_size"`

	// DryRun logs what would be deleted without deleting it.
	DryRun bool `mapstructure:"dry_run"`
}

// Collector is the background orphan sweeper.
//
// Thread Safety: safe for concurrent use; Start and Stop pair once.
type Collector struct {
	metadata MetadataSource
	store    content.Store
	config   Config
	metrics  metrics.FileSystemMetrics
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewCollector wires a collector to its stores. Call Start to begin the
// background sweep, or RunNow for a one-shot pass.
func NewCollector(metadata MetadataSource, store content.Store, config Config) *Collector {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}
	return &Collector{
		metadata: metadata,
		store:    store,
		config:   config,
		metrics:  metrics.NewFileSystemMetrics(),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background sweep goroutine. A no-op when the
// collector is disabled.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}
	logger.Info("Starting garbage collector: interval=%s batch_size=%d dry_run=%v",
		c.config.Interval, c.config.BatchSize, c.config.DryRun)
	go c.worker()
}

// Stop signals the worker and waits for the in-progress sweep to finish
// or ctx to expire.
func (c *Collector) Stop(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	close(c.stopCh)
	select {
	case <-c.doneCh:
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

// RunNow triggers an immediate sweep and blocks until it completes.
func (c *Collector) RunNow(ctx context.Context) (*Stats, error) {
	return c.collect(ctx)
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			stats, err := c.collect(ctx)
			cancel()
			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", stats.Summary())
			}
		case <-c.stopCh:
			return
		}
	}
}

// collect runs one sweep:
//  1. snapshot the set of ContentIDs the index references
//  2. list every record in every partition
//  3. orphaned = existing - referenced, per partition
//  4. batch-delete the orphans
//
// An id counts as referenced in every partition. A trash or restore may
// legitimately leave a record in the partition opposite its item's
// state until the deferred relocation lands.
func (c *Collector) collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}

	referenced := make(map[vfs.ContentID]struct{})
	for _, it := range c.metadata.Items() {
		if it.HasContent() {
			referenced[it.ContentID] = struct{}{}
		}
	}
	stats.ReferencedCount = uint64(len(referenced))

	for _, part := range content.Partitions() {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		existing, err := c.store.List(ctx, part)
		if err != nil {
			return stats, fmt.Errorf("list %s: %w", part, err)
		}
		stats.ExistingCount += uint64(len(existing))

		var orphaned []vfs.ContentID
		for _, id := range existing {
			if _, ok := referenced[id]; !ok {
				orphaned = append(orphaned, id)
			}
		}
		stats.OrphanedCount += uint64(len(orphaned))
		if len(orphaned) == 0 {
			continue
		}

		if c.config.DryRun {
			logger.Info("GC: dry run, would delete %d orphans from %s", len(orphaned), part)
			continue
		}

		for i := 0; i < len(orphaned); i += c.config.BatchSize {
			if err := ctx.Err(); err != nil {
				stats.EndTime = time.Now()
				return stats, err
			}
			end := i + c.config.BatchSize
			if end > len(orphaned) {
				end = len(orphaned)
			}
			batch := orphaned[i:end]
			if err := c.store.DeleteBatch(ctx, part, batch); err != nil {
				logger.Warn("GC: batch delete in %s failed: %v", part, err)
				stats.FailedCount += uint64(len(batch))
				continue
			}
			stats.DeletedCount += uint64(len(batch))
		}
	}

	stats.EndTime = time.Now()
	c.metrics.RecordSweep(stats.OrphanedCount, stats.DeletedCount, stats.Duration())
	return stats, nil
}

// Stats summarizes one sweep.
type Stats struct {
	StartTime       time.Time
	EndTime         time.Time
	ReferencedCount uint64
	ExistingCount   uint64
	OrphanedCount   uint64
	DeletedCount    uint64
	FailedCount     uint64
}

// Duration returns how long the sweep took.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary renders the sweep outcome for logs.
func (s *Stats) Summary() string {
	return fmt.Sprintf("referenced=%d existing=%d orphaned=%d deleted=%d failed=%d duration=%s",
		s.ReferencedCount, s.ExistingCount, s.OrphanedCount, s.DeletedCount, s.FailedCount, s.Duration())
}
