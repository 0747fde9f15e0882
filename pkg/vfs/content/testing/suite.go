// Package testing provides a reusable contract test suite for
// content.Store implementations.
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

// StoreTestSuite exercises the content.Store contract. It tests the
// interface, not implementation details, so it runs unchanged against the
// memory and BadgerDB backends.
//
// Usage:
//
//	func TestMyContentStore(t *testing.T) {
//	    suite := &testing.StoreTestSuite{
//	        NewStore: func(t *testing.T) content.Store { ... },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store per test for isolation.
	// Cleanup should be registered on t.
	NewStore func(t *testing.T) content.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("PutGetRoundTrip", suite.testPutGetRoundTrip)
	t.Run("PutOverwrites", suite.testPutOverwrites)
	t.Run("GetMissing", suite.testGetMissing)
	t.Run("PartitionsAreDisjoint", suite.testPartitionsAreDisjoint)
	t.Run("DeleteIsIdempotent", suite.testDeleteIsIdempotent)
	t.Run("Exists", suite.testExists)
	t.Run("Move", suite.testMove)
	t.Run("MoveIsRepeatable", suite.testMoveIsRepeatable)
	t.Run("Batches", suite.testBatches)
	t.Run("ListAndStats", suite.testListAndStats)
}

func testContext() context.Context {
	return context.Background()
}

func (suite *StoreTestSuite) testPutGetRoundTrip(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	rec := vfs.Record{Name: "note.md", Data: []byte("# Hi")}
	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-1", rec))

	got, err := store.Get(ctx, content.PartitionDocuments, "id-1")
	require.NoError(t, err)
	require.Equal(t, "note.md", got.Name)
	require.Equal(t, []byte("# Hi"), got.Data)
}

func (suite *StoreTestSuite) testPutOverwrites(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-1",
		vfs.Record{Name: "a.txt", Data: []byte("first")}))
	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-1",
		vfs.Record{Name: "a.txt", Data: []byte("second")}))

	got, err := store.Get(ctx, content.PartitionDocuments, "id-1")
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got.Data)
}

func (suite *StoreTestSuite) testGetMissing(t *testing.T) {
	store := suite.NewStore(t)

	_, err := store.Get(testContext(), content.PartitionDocuments, "nope")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *StoreTestSuite) testPartitionsAreDisjoint(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-1",
		vfs.Record{Name: "a.txt", Data: []byte("doc")}))

	_, err := store.Get(ctx, content.PartitionImages, "id-1")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *StoreTestSuite) testDeleteIsIdempotent(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, content.PartitionImages, "id-1",
		vfs.Record{Name: "p.png", Data: []byte{1, 2, 3}}))
	require.NoError(t, store.Delete(ctx, content.PartitionImages, "id-1"))
	require.NoError(t, store.Delete(ctx, content.PartitionImages, "id-1"))

	_, err := store.Get(ctx, content.PartitionImages, "id-1")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *StoreTestSuite) testExists(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	ok, err := store.Exists(ctx, content.PartitionDocuments, "id-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-1",
		vfs.Record{Name: "a.txt", Data: []byte("x")}))

	ok, err = store.Exists(ctx, content.PartitionDocuments, "id-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func (suite *StoreTestSuite) testMove(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	rec := vfs.Record{Name: "a.txt", Data: []byte("payload")}
	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-1", rec))
	require.NoError(t, store.Move(ctx, content.PartitionDocuments, content.PartitionTrash, "id-1"))

	// Moved, not copied.
	_, err := store.Get(ctx, content.PartitionDocuments, "id-1")
	require.ErrorIs(t, err, content.ErrNotFound)

	got, err := store.Get(ctx, content.PartitionTrash, "id-1")
	require.NoError(t, err)
	require.Equal(t, rec.Data, got.Data)
}

func (suite *StoreTestSuite) testMoveIsRepeatable(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-1",
		vfs.Record{Name: "a.txt", Data: []byte("x")}))
	require.NoError(t, store.Move(ctx, content.PartitionDocuments, content.PartitionTrash, "id-1"))

	// Repeating an already-completed move succeeds (interrupted trash
	// retry path).
	require.NoError(t, store.Move(ctx, content.PartitionDocuments, content.PartitionTrash, "id-1"))

	// Moving a truly unknown id fails.
	err := store.Move(ctx, content.PartitionDocuments, content.PartitionTrash, "ghost")
	require.ErrorIs(t, err, content.ErrNotFound)
}

func (suite *StoreTestSuite) testBatches(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	recs := map[vfs.ContentID]vfs.Record{
		"id-1": {Name: "a.txt", Data: []byte("a")},
		"id-2": {Name: "b.txt", Data: []byte("b")},
		"id-3": {Name: "c.txt", Data: []byte("c")},
	}
	require.NoError(t, store.PutBatch(ctx, content.PartitionDocuments, recs))

	for id, want := range recs {
		got, err := store.Get(ctx, content.PartitionDocuments, id)
		require.NoError(t, err)
		require.Equal(t, want.Data, got.Data)
	}

	require.NoError(t, store.DeleteBatch(ctx, content.PartitionDocuments,
		[]vfs.ContentID{"id-1", "id-3", "missing"}))

	_, err := store.Get(ctx, content.PartitionDocuments, "id-1")
	require.ErrorIs(t, err, content.ErrNotFound)
	_, err = store.Get(ctx, content.PartitionDocuments, "id-2")
	require.NoError(t, err)
}

func (suite *StoreTestSuite) testListAndStats(t *testing.T) {
	store := suite.NewStore(t)
	ctx := testContext()

	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-1",
		vfs.Record{Name: "a.txt", Data: []byte("four")}))
	require.NoError(t, store.Put(ctx, content.PartitionDocuments, "id-2",
		vfs.Record{Name: "b.txt", Data: []byte("six...")}))
	require.NoError(t, store.Put(ctx, content.PartitionImages, "id-3",
		vfs.Record{Name: "p.png", Data: []byte{0xff}}))

	ids, err := store.List(ctx, content.PartitionDocuments)
	require.NoError(t, err)
	require.ElementsMatch(t, []vfs.ContentID{"id-1", "id-2"}, ids)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(2), stats[content.PartitionDocuments].Records)
	require.Equal(t, uint64(10), stats[content.PartitionDocuments].Bytes)
	require.Equal(t, uint64(1), stats[content.PartitionImages].Records)
}
