// Package fs implements the Lifecycle Manager: the public file system
// contract consumed by applications.
//
// Every operation is a short saga across the two storage layers. The
// ordering rules keep a crash between steps harmless:
//
//   - create/save: content is written FIRST, metadata second. A failed
//     content write leaves metadata untouched (no dangling reference);
//     a failed metadata commit leaves an orphan content record for the
//     gc sweep, never a reference to missing content.
//   - trash/restore: the metadata flip is the externally visible commit
//     point and happens FIRST; the content relocation between origin
//     and trash partitions follows, and is repeatable if interrupted.
//
// Directory cascades (rename, move, trash, restore) collect the full
// descendant set before issuing any write, so no concurrent listing
// observes a half-renamed subtree.
package fs

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/metrics"
	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
	"github.com/marmos91/deskfs/pkg/vfs/index"
	"github.com/marmos91/deskfs/pkg/vfs/lazy"
	"github.com/marmos91/deskfs/pkg/vfs/virtual"
)

// DefaultRetryDelay is the backoff before the single retry of a content
// operation that failed with ErrUnavailable.
const DefaultRetryDelay = 100 * time.Millisecond

// Config wires a FileSystem together. Index and Content are required;
// Resolver and Lazy are optional collaborators.
type Config struct {
	Index    *index.Index
	Content  content.Store
	Resolver *virtual.Resolver
	Lazy     *lazy.Manager

	// Metrics observes operations; nil means no collection.
	Metrics metrics.FileSystemMetrics

	// RetryDelay overrides DefaultRetryDelay (tests shrink it).
	RetryDelay time.Duration
}

// FileSystem is the lifecycle manager. Construct one per process and
// share it by reference; it is safe for concurrent use.
type FileSystem struct {
	index      *index.Index
	content    content.Store
	resolver   *virtual.Resolver
	lazy       *lazy.Manager
	bus        *vfs.Bus
	metrics    metrics.FileSystemMetrics
	retryDelay time.Duration
}

// New builds the file system and guarantees the trash folder exists.
func New(cfg Config) (*FileSystem, error) {
	resolver := cfg.Resolver
	if resolver == nil {
		var err error
		resolver, err = virtual.NewResolver(nil)
		if err != nil {
			return nil, err
		}
	}
	retry := cfg.RetryDelay
	if retry <= 0 {
		retry = DefaultRetryDelay
	}
	fsMetrics := cfg.Metrics
	if fsMetrics == nil {
		fsMetrics = metrics.NewFileSystemMetrics()
	}
	f := &FileSystem{
		index:      cfg.Index,
		content:    cfg.Content,
		resolver:   resolver,
		lazy:       cfg.Lazy,
		bus:        vfs.NewBus(),
		metrics:    fsMetrics,
		retryDelay: retry,
	}

	if f.index.Get(vfs.TrashRoot) == nil {
		now := time.Now()
		if err := f.index.Upsert(&vfs.Item{
			Path:       vfs.TrashRoot,
			Name:       vfs.BaseName(vfs.TrashRoot),
			Dir:        true,
			Type:       vfs.TypeFolder,
			Kind:       vfs.KindPhysical,
			Status:     vfs.StatusActive,
			CreatedAt:  now,
			ModifiedAt: now,
		}, false); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Subscribe registers a change-notification handler and returns the
// unsubscribe function.
func (f *FileSystem) Subscribe(fn func(vfs.Event)) (unsubscribe func()) {
	return f.bus.Subscribe(fn)
}

// Close flushes the metadata snapshot and releases the content store.
func (f *FileSystem) Close(ctx context.Context) error {
	if err := f.index.Close(ctx); err != nil {
		return err
	}
	return f.content.Close()
}

// withRetry runs op and retries it exactly once, after a short backoff,
// when the content substrate reports transient unavailability.
func (f *FileSystem) withRetry(ctx context.Context, op func() error) error {
	err := op()
	if err == nil || !errors.Is(err, content.ErrUnavailable) {
		return err
	}
	logger.Warn("Content operation failed, retrying once: %v", err)
	select {
	case <-time.After(f.retryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return op()
}

// guardMutable rejects mutations against the virtual namespace and the
// root itself.
func (f *FileSystem) guardMutable(path string) error {
	if f.resolver.Covers(path) {
		return vfs.ReadOnly(path)
	}
	if path == vfs.Root {
		return vfs.InvalidTarget(path, "the root folder cannot be modified")
	}
	return nil
}

// requireParentFolder verifies the destination parent exists, is a
// folder and is not virtual.
func (f *FileSystem) requireParentFolder(path string) error {
	parent := vfs.ParentPath(path)
	if f.resolver.Covers(parent) {
		return vfs.ReadOnly(parent)
	}
	it := f.index.Get(parent)
	if it == nil || it.Status != vfs.StatusActive {
		return vfs.InvalidTarget(parent, "parent folder does not exist")
	}
	if !it.Dir {
		return vfs.InvalidTarget(parent, "parent is not a folder")
	}
	return nil
}

// track times an operation and records its outcome when the deferred
// function runs. errp must point at the operation's named error return.
func (f *FileSystem) track(op string, errp *error) func() {
	start := time.Now()
	return func() {
		result := "ok"
		if err := *errp; err != nil {
			if code, ok := vfs.CodeOf(err); ok {
				result = code.String()
			} else {
				result = "error"
			}
		}
		f.metrics.RecordOperation(op, time.Since(start), result)
		f.metrics.SetIndexedItems(f.index.Len())
	}
}

// partitions returns the partition an item's content currently lives in
// and the one it would occupy in the opposite lifecycle state.
func partitions(it *vfs.Item) (current, other content.Partition) {
	origin := content.PartitionForType(it.Type)
	if it.Status == vfs.StatusTrashed {
		return content.PartitionTrash, origin
	}
	return origin, content.PartitionTrash
}
