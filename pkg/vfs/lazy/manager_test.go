package lazy

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
	contentmemory "github.com/marmos91/deskfs/pkg/vfs/content/memory"
)

func TestManagerMaterializeCommitsToStore(t *testing.T) {
	store := contentmemory.New()
	fetcher := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		return []byte("payload for " + ref), nil
	})
	m := NewManager(fetcher, store)
	ctx := context.Background()

	m.Register([]ManifestEntry{
		{Path: "/Documents/guide.md", Ref: "seed/guide.md", Type: vfs.TypeMarkdown},
	})
	require.Equal(t, 1, m.Pending())

	res, err := m.Materialize(ctx, "/Documents/guide.md")
	require.NoError(t, err)
	assert.Equal(t, "guide.md", res.Record.Name)
	assert.Equal(t, []byte("payload for seed/guide.md"), res.Record.Data)

	// Committed to the right partition, registration cleared.
	got, err := store.Get(ctx, content.PartitionDocuments, res.ContentID)
	require.NoError(t, err)
	assert.Equal(t, res.Record.Data, got.Data)
	assert.Equal(t, 0, m.Pending())

	// Until the caller commits metadata and forgets the result, a
	// repeat call is served from the cache without refetching.
	again, err := m.Materialize(ctx, "/Documents/guide.md")
	require.NoError(t, err)
	assert.Equal(t, res.ContentID, again.ContentID)

	m.Forget("/Documents/guide.md")
	_, err = m.Materialize(ctx, "/Documents/guide.md")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestManagerLateReaderSharesCompletedFetch(t *testing.T) {
	var fetches atomic.Int32
	fetcher := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		fetches.Add(1)
		return []byte("shared"), nil
	})
	m := NewManager(fetcher, contentmemory.New())
	m.Register([]ManifestEntry{{Path: "/seed.bin", Ref: "seed", Type: vfs.TypeText}})

	first, err := m.Materialize(context.Background(), "/seed.bin")
	require.NoError(t, err)

	// The registration is already cleared; a reader arriving now still
	// gets the completed fetch, not a not-registered failure.
	_, registered := m.Registered("/seed.bin")
	require.False(t, registered)

	late, err := m.Materialize(context.Background(), "/seed.bin")
	require.NoError(t, err)
	assert.Equal(t, first.ContentID, late.ContentID)
	assert.Equal(t, int32(1), fetches.Load())
}

func TestManagerDeduplicatesConcurrentFirstReads(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		fetches.Add(1)
		<-release
		return []byte("shared"), nil
	})
	m := NewManager(fetcher, contentmemory.New())
	m.Register([]ManifestEntry{{Path: "/seed.bin", Ref: "seed", Type: vfs.TypeText}})

	const readers = 8
	var wg sync.WaitGroup
	results := make([]*Result, readers)
	errs := make([]error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Materialize(context.Background(), "/seed.bin")
		}(i)
	}
	close(release)
	wg.Wait()

	// Exactly one external fetch; every waiter got the same result.
	assert.Equal(t, int32(1), fetches.Load())
	for i := 0; i < readers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].ContentID, results[i].ContentID)
	}
}

func TestManagerSaveWinsOverInflightFetch(t *testing.T) {
	store := contentmemory.New()
	started := make(chan struct{})
	release := make(chan struct{})
	fetcher := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		close(started)
		<-release
		return []byte("stale seed"), nil
	})
	m := NewManager(fetcher, store)
	m.Register([]ManifestEntry{{Path: "/note.md", Ref: "seed", Type: vfs.TypeMarkdown}})

	done := make(chan error, 1)
	go func() {
		_, err := m.Materialize(context.Background(), "/note.md")
		done <- err
	}()

	<-started
	// The explicit save lands while the fetch is in flight.
	m.Cancel("/note.md")
	close(release)

	err := <-done
	require.ErrorIs(t, err, ErrCancelled)

	// The stale payload never reached the content store.
	for _, part := range content.Partitions() {
		ids, lerr := store.List(context.Background(), part)
		require.NoError(t, lerr)
		assert.Empty(t, ids)
	}
}

func TestManagerFetchFailureKeepsRegistration(t *testing.T) {
	fetcher := FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		return nil, context.DeadlineExceeded
	})
	m := NewManager(fetcher, contentmemory.New())
	m.Register([]ManifestEntry{{Path: "/seed.bin", Ref: "seed", Type: vfs.TypeText}})

	_, err := m.Materialize(context.Background(), "/seed.bin")
	require.Error(t, err)

	// A later read can retry.
	_, ok := m.Registered("/seed.bin")
	assert.True(t, ok)
}
