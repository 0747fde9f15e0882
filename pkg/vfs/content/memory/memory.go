// Package memory provides an in-memory content store for tests and
// ephemeral sessions.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

// Store implements content.Store backed by maps.
//
// Thread Safety: all operations are protected by a single read-write
// mutex. Payload slices are copied on the way in and out so callers can
// never alias stored bytes.
type Store struct {
	mu     sync.RWMutex
	parts  map[content.Partition]map[vfs.ContentID]vfs.Record
	closed bool

	// FailNext forces the next mutating call to fail with ErrUnavailable.
	// Tests use it to exercise the lifecycle retry and rollback paths.
	FailNext bool

	// FailAll makes every mutating call fail until cleared.
	FailAll bool
}

// New creates an empty in-memory content store.
func New() *Store {
	return &Store{parts: make(map[content.Partition]map[vfs.ContentID]vfs.Record)}
}

func (s *Store) bucket(part content.Partition) map[vfs.ContentID]vfs.Record {
	b, ok := s.parts[part]
	if !ok {
		b = make(map[vfs.ContentID]vfs.Record)
		s.parts[part] = b
	}
	return b
}

// checkUsable must be called with the lock held.
func (s *Store) checkUsable(mutating bool) error {
	if s.closed {
		return fmt.Errorf("store closed: %w", content.ErrUnavailable)
	}
	if mutating && (s.FailNext || s.FailAll) {
		s.FailNext = false
		return fmt.Errorf("injected failure: %w", content.ErrUnavailable)
	}
	return nil
}

func cloneRecord(rec vfs.Record) vfs.Record {
	data := make([]byte, len(rec.Data))
	copy(data, rec.Data)
	return vfs.Record{Name: rec.Name, Data: data}
}

// Put implements content.Store.
func (s *Store) Put(ctx context.Context, part content.Partition, id vfs.ContentID, rec vfs.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(true); err != nil {
		return err
	}
	s.bucket(part)[id] = cloneRecord(rec)
	return nil
}

// Get implements content.Store.
func (s *Store) Get(ctx context.Context, part content.Partition, id vfs.ContentID) (*vfs.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkUsable(false); err != nil {
		return nil, err
	}
	rec, ok := s.parts[part][id]
	if !ok {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrNotFound)
	}
	cp := cloneRecord(rec)
	return &cp, nil
}

// Delete implements content.Store. Deleting a missing id succeeds.
func (s *Store) Delete(ctx context.Context, part content.Partition, id vfs.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(true); err != nil {
		return err
	}
	delete(s.parts[part], id)
	return nil
}

// Exists implements content.Store.
func (s *Store) Exists(ctx context.Context, part content.Partition, id vfs.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkUsable(false); err != nil {
		return false, err
	}
	_, ok := s.parts[part][id]
	return ok, nil
}

// Move implements content.Store.
func (s *Store) Move(ctx context.Context, from, to content.Partition, id vfs.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(true); err != nil {
		return err
	}
	rec, ok := s.parts[from][id]
	if !ok {
		// Already moved by an interrupted earlier attempt.
		if _, there := s.parts[to][id]; there {
			return nil
		}
		return fmt.Errorf("content %s: %w", id, content.ErrNotFound)
	}
	s.bucket(to)[id] = rec
	delete(s.parts[from], id)
	return nil
}

// PutBatch implements content.Store. The whole batch is applied under one
// lock acquisition, so readers never observe a partial import.
func (s *Store) PutBatch(ctx context.Context, part content.Partition, recs map[vfs.ContentID]vfs.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(true); err != nil {
		return err
	}
	b := s.bucket(part)
	for id, rec := range recs {
		b[id] = cloneRecord(rec)
	}
	return nil
}

// DeleteBatch implements content.Store.
func (s *Store) DeleteBatch(ctx context.Context, part content.Partition, ids []vfs.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkUsable(true); err != nil {
		return err
	}
	for _, id := range ids {
		delete(s.parts[part], id)
	}
	return nil
}

// List implements content.Store.
func (s *Store) List(ctx context.Context, part content.Partition) ([]vfs.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkUsable(false); err != nil {
		return nil, err
	}
	ids := make([]vfs.ContentID, 0, len(s.parts[part]))
	for id := range s.parts[part] {
		ids = append(ids, id)
	}
	return ids, nil
}

// Stats implements content.Store.
func (s *Store) Stats(ctx context.Context) (map[content.Partition]content.PartitionStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkUsable(false); err != nil {
		return nil, err
	}
	stats := make(map[content.Partition]content.PartitionStats, len(s.parts))
	for part, b := range s.parts {
		var ps content.PartitionStats
		for _, rec := range b {
			ps.Records++
			ps.Bytes += uint64(len(rec.Data))
		}
		stats[part] = ps
	}
	return stats, nil
}

// Close implements content.Store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
