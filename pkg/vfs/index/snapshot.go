package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marmos91/deskfs/pkg/vfs"
)

// Snapshot is the persisted form of the metadata index: a single
// versioned document. Version is the schema version the items were
// written under; the migrator compares it against the current expected
// version on load.
type Snapshot struct {
	Version int        `json:"version"`
	Items   []vfs.Item `json:"items"`
}

// Clone deep-copies the snapshot so migration steps can transform a copy
// and fall back to the original on failure.
func (s *Snapshot) Clone() *Snapshot {
	cp := &Snapshot{Version: s.Version, Items: make([]vfs.Item, len(s.Items))}
	for i := range s.Items {
		cp.Items[i] = *s.Items[i].Clone()
	}
	return cp
}

// SnapshotStore persists index snapshots. Implementations must make Save
// atomic: a crash mid-save leaves the previous snapshot readable, never a
// torn document.
type SnapshotStore interface {
	// Load returns the stored snapshot, or (nil, nil) when none has been
	// saved yet (first boot).
	Load(ctx context.Context) (*Snapshot, error)

	// Save durably replaces the stored snapshot.
	Save(ctx context.Context, snap *Snapshot) error
}

// FileSnapshotStore stores the snapshot as one JSON document on disk,
// written via temp-file-and-rename so readers never observe a partial
// write.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore creates a snapshot store at path. Parent
// directories are created on first save.
func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Load implements SnapshotStore.
func (s *FileSnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", s.path, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", s.path, err)
	}
	return &snap, nil
}

// Save implements SnapshotStore.
func (s *FileSnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// MemorySnapshotStore keeps the snapshot in memory. Used by tests and by
// sessions that don't need the index to survive a restart.
type MemorySnapshotStore struct {
	mu   sync.Mutex
	snap *Snapshot
}

// NewMemorySnapshotStore creates an empty in-memory snapshot store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{}
}

// Load implements SnapshotStore.
func (s *MemorySnapshotStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil, nil
	}
	return s.snap.Clone(), nil
}

// Save implements SnapshotStore.
func (s *MemorySnapshotStore) Save(ctx context.Context, snap *Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap.Clone()
	return nil
}
