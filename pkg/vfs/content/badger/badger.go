// Package badger provides the durable content store backed by BadgerDB,
// an embedded key-value store with an asynchronous write path.
//
// Storage Model:
// Each record is stored under a namespaced key:
//
//	record/<partition>/<content-id> → JSON {name, data}
//
// The partition segment keeps keyspaces disjoint, and prefix iteration
// over "record/<partition>/" gives cheap per-partition listing for the gc
// sweep and Format.
//
// JSON is used for the value encoding, trading some size for schema
// flexibility and debuggability; payloads in this system are desktop-scale
// documents and images, not bulk data.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

const keyPrefix = "record/"

// Config configures the BadgerDB content store.
type Config struct {
	// DBPath is the directory BadgerDB stores its files in. Ignored when
	// InMemory is set.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk. Useful for tests and
	// throwaway sessions.
	InMemory bool `mapstructure:"in_memory"`
}

// Store implements content.Store on BadgerDB.
//
// Thread Safety: BadgerDB transactions provide isolation; the store adds
// no locking of its own. Batch operations run inside a single transaction
// when they fit, falling back to a WriteBatch when BadgerDB reports the
// transaction has grown too big.
type Store struct {
	db *badger.DB
}

// New opens (or creates) the content database.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(cfg.DBPath)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	// Content records are written whole and read whole; compression
	// doesn't pay for desktop-scale payloads.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open content database at %s: %w", cfg.DBPath, err)
	}
	return &Store{db: db}, nil
}

func key(part content.Partition, id vfs.ContentID) []byte {
	return []byte(keyPrefix + string(part) + "/" + string(id))
}

func partPrefix(part content.Partition) []byte {
	return []byte(keyPrefix + string(part) + "/")
}

// wrapSubstrate maps BadgerDB failures onto the store's error taxonomy so
// the lifecycle layer can recognize transient unavailability.
func wrapSubstrate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return content.ErrNotFound
	}
	return fmt.Errorf("%w: %v", content.ErrUnavailable, err)
}

// Put implements content.Store.
func (s *Store) Put(ctx context.Context, part content.Partition, id vfs.ContentID, rec vfs.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", id, err)
	}
	return wrapSubstrate(s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(part, id), val)
	}))
}

// Get implements content.Store.
func (s *Store) Get(ctx context.Context, part content.Partition, id vfs.ContentID) (*vfs.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec vfs.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(part, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("content %s: %w", id, content.ErrNotFound)
	}
	if err != nil {
		return nil, wrapSubstrate(err)
	}
	return &rec, nil
}

// Delete implements content.Store. Deleting a missing id succeeds.
func (s *Store) Delete(ctx context.Context, part content.Partition, id vfs.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return wrapSubstrate(s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(part, id))
	}))
}

// Exists implements content.Store.
func (s *Store) Exists(ctx context.Context, part content.Partition, id vfs.ContentID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key(part, id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapSubstrate(err)
	}
	return true, nil
}

// Move implements content.Store. Source read, destination write and source
// delete happen in one transaction, so the record is never visible in both
// partitions or in neither.
func (s *Store) Move(ctx context.Context, from, to content.Partition, id vfs.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key(from, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			// Repeat of an interrupted move: done if it already landed.
			if _, err := txn.Get(key(to, id)); err == nil {
				return nil
			}
			return badger.ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := txn.Set(key(to, id), val); err != nil {
			return err
		}
		return txn.Delete(key(from, id))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("content %s: %w", id, content.ErrNotFound)
	}
	return wrapSubstrate(err)
}

// PutBatch implements content.Store. The batch commits atomically through
// a single transaction; if BadgerDB reports the transaction has grown too
// big the batch falls back to a WriteBatch, which still flushes as a unit.
func (s *Store) PutBatch(ctx context.Context, part content.Partition, recs map[vfs.ContentID]vfs.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	encoded := make(map[vfs.ContentID][]byte, len(recs))
	for id, rec := range recs {
		val, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", id, err)
		}
		encoded[id] = val
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		for id, val := range encoded {
			if err := txn.Set(key(part, id), val); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		wb := s.db.NewWriteBatch()
		defer wb.Cancel()
		for id, val := range encoded {
			if err := wb.Set(key(part, id), val); err != nil {
				return wrapSubstrate(err)
			}
		}
		return wrapSubstrate(wb.Flush())
	}
	return wrapSubstrate(err)
}

// DeleteBatch implements content.Store.
func (s *Store) DeleteBatch(ctx context.Context, part content.Partition, ids []vfs.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete(key(part, id)); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		wb := s.db.NewWriteBatch()
		defer wb.Cancel()
		for _, id := range ids {
			if err := wb.Delete(key(part, id)); err != nil {
				return wrapSubstrate(err)
			}
		}
		return wrapSubstrate(wb.Flush())
	}
	return wrapSubstrate(err)
}

// List implements content.Store via key-only prefix iteration.
func (s *Store) List(ctx context.Context, part content.Partition) ([]vfs.ContentID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := partPrefix(part)
	var ids []vfs.ContentID
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := string(it.Item().Key())
			ids = append(ids, vfs.ContentID(strings.TrimPrefix(k, string(prefix))))
		}
		return nil
	})
	if err != nil {
		return nil, wrapSubstrate(err)
	}
	return ids, nil
}

// Stats implements content.Store. Byte totals count decoded payload sizes,
// not on-disk size, so they line up with what the metadata index reports.
func (s *Store) Stats(ctx context.Context) (map[content.Partition]content.PartitionStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stats := make(map[content.Partition]content.PartitionStats)
	err := s.db.View(func(txn *badger.Txn) error {
		for _, part := range content.Partitions() {
			prefix := partPrefix(part)
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			var ps content.PartitionStats
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				var rec vfs.Record
				err := it.Item().Value(func(val []byte) error {
					return json.Unmarshal(val, &rec)
				})
				if err != nil {
					it.Close()
					return err
				}
				ps.Records++
				ps.Bytes += uint64(len(rec.Data))
			}
			it.Close()
			stats[part] = ps
		}
		return nil
	})
	if err != nil {
		return nil, wrapSubstrate(err)
	}
	return stats, nil
}

// Close implements content.Store.
func (s *Store) Close() error {
	return s.db.Close()
}
