package gc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
	"github.com/marmos91/deskfs/pkg/vfs/content/memory"
)

type staticMetadata []vfs.Item

func (m staticMetadata) Items() []vfs.Item { return m }

func put(t *testing.T, store content.Store, part content.Partition, id string) {
	t.Helper()
	err := store.Put(context.Background(), part, vfs.ContentID(id), vfs.Record{Name: id, Data: []byte("x")})
	require.NoError(t, err)
}

func TestRunNowDeletesOrphans(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	put(t, store, content.PartitionDocuments, "kept")
	put(t, store, content.PartitionDocuments, "orphan-1")
	put(t, store, content.PartitionImages, "orphan-2")

	meta := staticMetadata{
		{Path: "/a.txt", Type: vfs.TypeText, ContentID: "kept"},
		{Path: "/folder", Dir: true},
	}

	c := NewCollector(meta, store, Config{Enabled: true})
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), stats.ReferencedCount)
	assert.Equal(t, uint64(3), stats.ExistingCount)
	assert.Equal(t, uint64(2), stats.OrphanedCount)
	assert.Equal(t, uint64(2), stats.DeletedCount)
	assert.Zero(t, stats.FailedCount)

	ok, err := store.Exists(ctx, content.PartitionDocuments, "kept")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Exists(ctx, content.PartitionDocuments, "orphan-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReferencedIDSpansPartitions(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	// A deferred trash relocation leaves the record in its origin
	// partition while the item already reports trashed.
	put(t, store, content.PartitionDocuments, "in-limbo")
	meta := staticMetadata{
		{Path: "/Trash/a.txt", Type: vfs.TypeText, ContentID: "in-limbo", Status: vfs.StatusTrashed},
	}

	c := NewCollector(meta, store, Config{Enabled: true})
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)

	assert.Zero(t, stats.OrphanedCount)
	ok, err := store.Exists(ctx, content.PartitionDocuments, "in-limbo")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDryRunDeletesNothing(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	put(t, store, content.PartitionDocuments, "orphan")
	c := NewCollector(staticMetadata{}, store, Config{Enabled: true, DryRun: true})

	stats, err := c.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.OrphanedCount)
	assert.Zero(t, stats.DeletedCount)

	ok, err := store.Exists(ctx, content.PartitionDocuments, "orphan")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBatchingSplitsDeletes(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		put(t, store, content.PartitionDocuments, id)
	}

	c := NewCollector(staticMetadata{}, store, Config{Enabled: true, BatchSize: 2})
	stats, err := c.RunNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), stats.DeletedCount)

	ids, err := store.List(ctx, content.PartitionDocuments)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStartStopDisabled(t *testing.T) {
	c := NewCollector(staticMetadata{}, memory.New(), Config{Enabled: false})
	c.Start()
	require.NoError(t, c.Stop(context.Background()))
}

func TestStartStopEnabled(t *testing.T) {
	c := NewCollector(staticMetadata{}, memory.New(), Config{
		Enabled:  true,
		Interval: time.Hour,
	})
	c.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}
