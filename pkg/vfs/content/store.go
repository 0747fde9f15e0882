// Package content defines the asynchronous durable content store: the
// second layer of the file system, holding raw payloads addressed by
// ContentID and partitioned by content kind.
//
// The content store manages only bytes. It does NOT manage:
//   - Paths and names in the hierarchy → handled by the metadata index
//   - Lifecycle status (active/trashed) → handled by the metadata index
//   - Which partition a file type maps to → callers route via
//     PartitionForType and must never mix partitions for one item
//
// The metadata index and content store cooperate through ContentID:
// metadata carries the ID, the lifecycle manager reads and writes content
// by it. Orphaned records (no metadata referencing them) are permitted
// transiently and reclaimed by the gc sweep.
package content

import (
	"context"
	"errors"

	"github.com/marmos91/deskfs/pkg/vfs"
)

// Partition names a keyspace within the store. Each file type routes to
// exactly one partition; trashed content is relocated into
// PartitionTrash so origin partitions only ever hold active content.
type Partition string

const (
	PartitionDocuments  Partition = "documents"
	PartitionImages     Partition = "images"
	PartitionApplets    Partition = "applets"
	PartitionWallpapers Partition = "wallpapers"
	PartitionTrash      Partition = "trash"
)

// Partitions lists every partition, for sweeps and format.
func Partitions() []Partition {
	return []Partition{
		PartitionDocuments,
		PartitionImages,
		PartitionApplets,
		PartitionWallpapers,
		PartitionTrash,
	}
}

// PartitionForType routes a file type to its origin partition.
// Types without stored content (folders, aliases, virtual folders) still
// get a deterministic answer (documents) but never reach the store.
func PartitionForType(t vfs.FileType) Partition {
	switch t {
	case vfs.TypeImage:
		return PartitionImages
	case vfs.TypeApplet, vfs.TypeAudio:
		return PartitionApplets
	case vfs.TypeWallpaper:
		return PartitionWallpapers
	default:
		return PartitionDocuments
	}
}

// Standard content store errors. Implementations wrap these with context:
//
//	return fmt.Errorf("content %s: %w", id, content.ErrNotFound)
var (
	// ErrNotFound indicates no record exists for the ContentID in the
	// requested partition.
	ErrNotFound = errors.New("content not found")

	// ErrUnavailable indicates the substrate rejected the operation
	// (quota exceeded, store closed, access denied). This is the only
	// content error the lifecycle layer retries; it surfaces to callers
	// as vfs.ErrStorageUnavailable.
	ErrUnavailable = errors.New("content storage unavailable")
)

// Store is the content store contract.
//
// All operations suspend at the substrate boundary and respect context
// cancellation. Implementations must be safe for concurrent use; the
// single-writer discipline for a given ContentID is the lifecycle
// manager's responsibility.
type Store interface {
	// Put writes rec under id in the given partition. Overwrites are
	// idempotent: writing the same id twice replaces the record.
	Put(ctx context.Context, part Partition, id vfs.ContentID, rec vfs.Record) error

	// Get returns the record for id, or ErrNotFound.
	Get(ctx context.Context, part Partition, id vfs.ContentID) (*vfs.Record, error)

	// Delete removes the record for id. Deleting a missing id succeeds,
	// so retries and the gc sweep never need existence checks first.
	Delete(ctx context.Context, part Partition, id vfs.ContentID) error

	// Exists reports whether a record exists without reading its payload.
	Exists(ctx context.Context, part Partition, id vfs.ContentID) (bool, error)

	// Move relocates a record between partitions (trash and restore).
	// The record is moved, not copied. If id is already present in the
	// destination and absent from the source the call is a no-op, which
	// makes an interrupted trash/restore safe to repeat.
	Move(ctx context.Context, from, to Partition, id vfs.ContentID) error

	// PutBatch writes several records in one substrate transaction where
	// the backend allows, so a bulk import is never half-applied.
	PutBatch(ctx context.Context, part Partition, recs map[vfs.ContentID]vfs.Record) error

	// DeleteBatch removes several records, transactionally where the
	// backend allows. Missing ids are not errors.
	DeleteBatch(ctx context.Context, part Partition, ids []vfs.ContentID) error

	// List returns every ContentID in the partition. Used by the gc
	// sweep and by Format.
	List(ctx context.Context, part Partition) ([]vfs.ContentID, error)

	// Stats returns per-partition record counts and byte totals.
	Stats(ctx context.Context) (map[Partition]PartitionStats, error)

	// Close releases the substrate.
	Close() error
}

// PartitionStats describes one partition's usage.
type PartitionStats struct {
	// Records is the number of stored content records.
	Records uint64

	// Bytes is the total payload size in bytes.
	Bytes uint64
}
