// Package lazy implements the Lazy Materialization Manager.
//
// Bulk-seeded files are declared at startup through a manifest of
// {path, external reference} pairs and recorded as "registered" without
// fetching anything. The first read against such a path fetches the
// payload from the external reference, commits it to the content store
// and hands the resulting record back; the lifecycle manager then flips
// the item's metadata to materialized so later reads hit the content
// store directly.
//
// Concurrent first reads of the same path are collapsed into a single
// fetch via singleflight: every waiter receives the same result. An
// explicit save to a registered path always wins: Cancel drops the
// registration and a fetch that completes afterwards is discarded
// without touching either storage layer.
package lazy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

var (
	// ErrNotRegistered indicates the path has no manifest entry (it was
	// never declared, already materialized, or cancelled by a save).
	ErrNotRegistered = errors.New("path not registered for lazy materialization")

	// ErrCancelled indicates a save to the path won the race against an
	// in-flight fetch; the fetched payload was discarded.
	ErrCancelled = errors.New("materialization cancelled by a concurrent save")
)

// ManifestEntry declares one lazily materialized file.
type ManifestEntry struct {
	// Path is where the file appears in the namespace.
	Path string `mapstructure:"path"`

	// Ref is the external content reference, interpreted by the Fetcher
	// (a URL for HTTP, an object key for S3).
	Ref string `mapstructure:"ref"`

	// Name is the stored record name; defaults to the path's base name.
	Name string `mapstructure:"name"`

	// Type routes the materialized content to its partition.
	Type vfs.FileType `mapstructure:"type"`
}

// Fetcher retrieves a payload from an external content reference.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Result is the outcome of a successful materialization.
type Result struct {
	ContentID vfs.ContentID
	Record    vfs.Record
}

// Manager tracks registered-but-not-loaded paths and performs
// deduplicated first-read fetches.
//
// Thread Safety: safe for concurrent use. The registration map has its
// own mutex; fetch deduplication is delegated to singleflight keyed by
// path.
type Manager struct {
	mu      sync.Mutex
	pending map[string]ManifestEntry
	fetched map[string]*Result

	group   singleflight.Group
	fetcher Fetcher
	store   content.Store
}

// NewManager creates a manager that commits fetched payloads to store.
func NewManager(fetcher Fetcher, store content.Store) *Manager {
	return &Manager{
		pending: make(map[string]ManifestEntry),
		fetched: make(map[string]*Result),
		fetcher: fetcher,
		store:   store,
	}
}

// Register records manifest entries as pending. Entries whose path is
// already materialized are simply overwritten; registration never
// fetches.
func (m *Manager) Register(entries []ManifestEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		e.Path = vfs.NormalizePath(e.Path)
		if e.Name == "" {
			e.Name = vfs.BaseName(e.Path)
		}
		m.pending[e.Path] = e
	}
}

// Registered reports whether path still awaits materialization.
func (m *Manager) Registered(path string) (ManifestEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pending[vfs.NormalizePath(path)]
	return e, ok
}

// Pending returns the number of paths still awaiting materialization.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Cancel drops the registration for path. Called by the lifecycle
// manager when an explicit save targets a registered path: the save
// wins, and any in-flight fetch for the path is discarded.
func (m *Manager) Cancel(path string) {
	p := vfs.NormalizePath(path)
	m.mu.Lock()
	delete(m.pending, p)
	delete(m.fetched, p)
	m.mu.Unlock()
}

// Forget drops the cached fetch result for path. Called by the
// lifecycle manager once the materialized metadata is committed; from
// then on readers find the content through the store directly.
func (m *Manager) Forget(path string) {
	m.mu.Lock()
	delete(m.fetched, vfs.NormalizePath(path))
	m.mu.Unlock()
}

// Clear drops every registration and cached result. Used by Format.
func (m *Manager) Clear() {
	m.mu.Lock()
	m.pending = make(map[string]ManifestEntry)
	m.fetched = make(map[string]*Result)
	m.mu.Unlock()
}

// Materialize fetches the payload for path, commits it to the content
// store and moves the registration to the fetched cache. Concurrent
// calls for the same path share one fetch and one commit, and a call
// arriving after the fetch completed is served from the cache, so every
// reader of a first-read burst receives the same Result. The cache
// entry lives until Forget or Cancel.
func (m *Manager) Materialize(ctx context.Context, path string) (*Result, error) {
	path = vfs.NormalizePath(path)

	v, err, _ := m.group.Do(path, func() (any, error) {
		m.mu.Lock()
		if res, ok := m.fetched[path]; ok {
			m.mu.Unlock()
			return res, nil
		}
		entry, ok := m.pending[path]
		m.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, ErrNotRegistered)
		}

		data, err := m.fetcher.Fetch(ctx, entry.Ref)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s: %w", entry.Ref, err)
		}

		// A save may have raced the fetch; it wins.
		if _, still := m.Registered(path); !still {
			return nil, fmt.Errorf("%s: %w", path, ErrCancelled)
		}

		rec := vfs.Record{Name: entry.Name, Data: data}
		id := vfs.ContentID(uuid.NewString())
		part := content.PartitionForType(entry.Type)
		if err := m.store.Put(ctx, part, id, rec); err != nil {
			return nil, err
		}

		res := &Result{ContentID: id, Record: rec}
		m.mu.Lock()
		delete(m.pending, path)
		m.fetched[path] = res
		m.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}
