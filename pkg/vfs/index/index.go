// Package index implements the Metadata Index: a synchronous in-memory
// mapping from absolute path to item, persisted to a snapshot store.
//
// Reads never suspend; they always see the latest in-memory state.
// Mutations take effect synchronously and schedule a debounced snapshot
// persist, so durable state may lag but is never load-bearing for
// subsequent reads.
//
// Alongside the primary path→item map the index maintains a parent→child
// map, which makes directory listing O(children) and lets a directory
// rename collect its full descendant set without scanning every item.
package index

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/vfs"
)

// DefaultFlushDelay is the debounce window for snapshot persistence.
const DefaultFlushDelay = 500 * time.Millisecond

// Options tunes index behavior.
type Options struct {
	// FlushDelay is the debounce window between a mutation and the
	// snapshot persist it schedules. Zero means DefaultFlushDelay.
	FlushDelay time.Duration
}

// Index is the in-memory metadata index.
//
// Thread Safety: a single read-write mutex protects all maps. Every
// mutating method collects its complete effect before applying it, so
// concurrent readers observe either the old state or the new state of an
// operation, never a half-applied cascade.
type Index struct {
	mu       sync.RWMutex
	items    map[string]*vfs.Item
	children map[string]map[string]struct{}
	version  int

	store      SnapshotStore
	flushDelay time.Duration

	flushMu sync.Mutex
	timer   *time.Timer
	closed  bool
}

// New builds an index from snap (which may be nil for a fresh system) and
// wires it to store for persistence. The root folder always exists.
func New(store SnapshotStore, snap *Snapshot, opts Options) *Index {
	ix := &Index{
		items:      make(map[string]*vfs.Item),
		children:   make(map[string]map[string]struct{}),
		store:      store,
		flushDelay: opts.FlushDelay,
	}
	if ix.flushDelay <= 0 {
		ix.flushDelay = DefaultFlushDelay
	}
	if snap != nil {
		ix.version = snap.Version
		for i := range snap.Items {
			it := snap.Items[i].Clone()
			it.Path = vfs.NormalizePath(it.Path)
			ix.insertLocked(it)
		}
	}
	if _, ok := ix.items[vfs.Root]; !ok {
		now := time.Now()
		ix.insertLocked(&vfs.Item{
			Path:       vfs.Root,
			Name:       vfs.Root,
			Dir:        true,
			Type:       vfs.TypeFolder,
			Kind:       vfs.KindPhysical,
			Status:     vfs.StatusActive,
			CreatedAt:  now,
			ModifiedAt: now,
		})
	}
	return ix
}

// insertLocked adds an item to both maps. Caller holds the write lock (or
// has exclusive access during construction).
func (ix *Index) insertLocked(it *vfs.Item) {
	ix.items[it.Path] = it
	if it.Path == vfs.Root {
		return
	}
	parent := vfs.ParentPath(it.Path)
	set, ok := ix.children[parent]
	if !ok {
		set = make(map[string]struct{})
		ix.children[parent] = set
	}
	set[it.Path] = struct{}{}
}

// removeLocked drops an item from both maps. Caller holds the write lock.
func (ix *Index) removeLocked(path string) {
	delete(ix.items, path)
	parent := vfs.ParentPath(path)
	if set, ok := ix.children[parent]; ok {
		delete(set, path)
		if len(set) == 0 {
			delete(ix.children, parent)
		}
	}
	delete(ix.children, path)
}

// Get returns a copy of the item at path, or nil when absent.
func (ix *Index) Get(path string) *vfs.Item {
	path = vfs.NormalizePath(path)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	it, ok := ix.items[path]
	if !ok {
		return nil
	}
	return it.Clone()
}

// Children returns copies of the direct children of path, unsorted.
func (ix *Index) Children(path string) []vfs.Item {
	path = vfs.NormalizePath(path)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]vfs.Item, 0, len(ix.children[path]))
	for child := range ix.children[path] {
		if it, ok := ix.items[child]; ok {
			out = append(out, *it.Clone())
		}
	}
	return out
}

// Descendants returns copies of every item strictly below path, collected
// under a single lock acquisition so callers see a consistent subtree.
func (ix *Index) Descendants(path string) []vfs.Item {
	path = vfs.NormalizePath(path)
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []vfs.Item
	ix.walkLocked(path, func(it *vfs.Item) {
		out = append(out, *it.Clone())
	})
	return out
}

func (ix *Index) walkLocked(path string, visit func(*vfs.Item)) {
	for child := range ix.children[path] {
		if it, ok := ix.items[child]; ok {
			visit(it)
		}
		ix.walkLocked(child, visit)
	}
}

// Upsert inserts or replaces the item at item.Path. With createOnly set
// it fails with ErrConflict when an active item already occupies the
// path.
func (ix *Index) Upsert(item *vfs.Item, createOnly bool) error {
	it := item.Clone()
	it.Path = vfs.NormalizePath(it.Path)

	ix.mu.Lock()
	existing, exists := ix.items[it.Path]
	if createOnly && exists && existing.Status == vfs.StatusActive {
		ix.mu.Unlock()
		return vfs.Conflict(it.Path)
	}
	ix.insertLocked(it)
	ix.mu.Unlock()

	ix.scheduleFlush()
	return nil
}

// Remove hard-deletes the metadata record at path. Content is not
// touched; only purge uses this. Removing a missing path succeeds.
func (ix *Index) Remove(path string) {
	path = vfs.NormalizePath(path)
	if path == vfs.Root {
		return
	}
	ix.mu.Lock()
	ix.removeLocked(path)
	ix.mu.Unlock()
	ix.scheduleFlush()
}

// Renamed reports one path rewrite performed by Rename.
type Renamed struct {
	OldPath string
	NewPath string
}

// Rename moves the item at oldPath to newPath and cascades the prefix
// substitution to every descendant. The full affected set is collected
// before any record is rewritten and the whole rewrite happens under one
// write lock, so no concurrent read observes a half-renamed subtree.
//
// When mutate is non-nil it is applied to every moved item inside the
// same write lock, with the item's pre-rename path. Trash and restore
// use this to flip lifecycle state atomically with the path rewrite.
//
// Fails with ErrNotFound when oldPath is absent and ErrConflict when an
// active item already occupies newPath.
func (ix *Index) Rename(oldPath, newPath string, mutate func(it *vfs.Item, previous string)) ([]Renamed, error) {
	oldPath = vfs.NormalizePath(oldPath)
	newPath = vfs.NormalizePath(newPath)

	ix.mu.Lock()
	defer func() {
		ix.mu.Unlock()
		ix.scheduleFlush()
	}()

	src, ok := ix.items[oldPath]
	if !ok {
		return nil, vfs.NotFound(oldPath)
	}
	if oldPath == newPath {
		return nil, nil
	}
	if dst, exists := ix.items[newPath]; exists && dst.Status == vfs.StatusActive {
		return nil, vfs.Conflict(newPath)
	}

	// Collect the complete affected set first.
	moved := []*vfs.Item{src}
	ix.walkLocked(oldPath, func(it *vfs.Item) {
		moved = append(moved, it)
	})

	renames := make([]Renamed, 0, len(moved))
	for _, it := range moved {
		target := vfs.RebasePath(it.Path, oldPath, newPath)
		renames = append(renames, Renamed{OldPath: it.Path, NewPath: target})
	}

	// Rewrite: detach everything, then reinsert under the new paths.
	for _, it := range moved {
		delete(ix.items, it.Path)
		parent := vfs.ParentPath(it.Path)
		if set, ok := ix.children[parent]; ok {
			delete(set, it.Path)
			if len(set) == 0 {
				delete(ix.children, parent)
			}
		}
		delete(ix.children, it.Path)
	}
	for i, it := range moved {
		it.Path = renames[i].NewPath
		ix.insertLocked(it)
	}
	src.Name = vfs.BaseName(newPath)

	if mutate != nil {
		for i, it := range moved {
			mutate(it, renames[i].OldPath)
		}
	}

	return renames, nil
}

// Items returns copies of every item in the index.
func (ix *Index) Items() []vfs.Item {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	out := make([]vfs.Item, 0, len(ix.items))
	for _, it := range ix.items {
		out = append(out, *it.Clone())
	}
	return out
}

// Len returns the number of indexed items, the root included.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.items)
}

// Version returns the schema version the index currently carries.
func (ix *Index) Version() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.version
}

// Clear drops every item except the root. Used by Format.
func (ix *Index) Clear() {
	ix.mu.Lock()
	root := ix.items[vfs.Root]
	ix.items = map[string]*vfs.Item{vfs.Root: root}
	ix.children = make(map[string]map[string]struct{})
	ix.mu.Unlock()
	ix.scheduleFlush()
}

// scheduleFlush arms (or re-arms) the debounced persist timer.
func (ix *Index) scheduleFlush() {
	ix.flushMu.Lock()
	defer ix.flushMu.Unlock()
	if ix.closed {
		return
	}
	if ix.timer != nil {
		ix.timer.Stop()
	}
	ix.timer = time.AfterFunc(ix.flushDelay, func() {
		if err := ix.Flush(context.Background()); err != nil {
			logger.Warn("Snapshot persist failed: %v", err)
		}
	})
}

// snapshot builds a consistent snapshot of the current state.
func (ix *Index) snapshot() *Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	snap := &Snapshot{Version: ix.version, Items: make([]vfs.Item, 0, len(ix.items))}
	for _, it := range ix.items {
		snap.Items = append(snap.Items, *it.Clone())
	}
	return snap
}

// Flush persists the current state immediately, bypassing the debounce.
func (ix *Index) Flush(ctx context.Context) error {
	return ix.store.Save(ctx, ix.snapshot())
}

// Close stops the debounce timer and performs a final synchronous flush.
func (ix *Index) Close(ctx context.Context) error {
	ix.flushMu.Lock()
	ix.closed = true
	if ix.timer != nil {
		ix.timer.Stop()
		ix.timer = nil
	}
	ix.flushMu.Unlock()
	return ix.Flush(ctx)
}
