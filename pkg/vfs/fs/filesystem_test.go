package fs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
	"github.com/marmos91/deskfs/pkg/vfs/content/memory"
	"github.com/marmos91/deskfs/pkg/vfs/index"
	"github.com/marmos91/deskfs/pkg/vfs/lazy"
	"github.com/marmos91/deskfs/pkg/vfs/virtual"
)

type fixture struct {
	fs      *FileSystem
	index   *index.Index
	store   *memory.Store
	lazy    *lazy.Manager
	fetched map[string]int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.New()
	ix := index.New(index.NewMemorySnapshotStore(), nil, index.Options{FlushDelay: time.Hour})
	t.Cleanup(func() { _ = ix.Close(context.Background()) })

	fetched := make(map[string]int)
	mgr := lazy.NewManager(lazy.FetcherFunc(func(ctx context.Context, ref string) ([]byte, error) {
		fetched[ref]++
		return []byte("remote:" + ref), nil
	}), store)

	resolver, err := virtual.NewResolver(map[string]virtual.Catalog{
		"/Applications": virtual.StaticCatalog{
			{Name: "TextEdit", Type: vfs.TypeApplet},
			{Name: "Paint", Type: vfs.TypeApplet},
		},
	})
	require.NoError(t, err)

	f, err := New(Config{
		Index:      ix,
		Content:    store,
		Resolver:   resolver,
		Lazy:       mgr,
		RetryDelay: time.Millisecond,
	})
	require.NoError(t, err)

	return &fixture{fs: f, index: ix, store: store, lazy: mgr, fetched: fetched}
}

func (fx *fixture) mustSave(t *testing.T, path, data string) *vfs.Item {
	t.Helper()
	it, err := fx.fs.Save(context.Background(), path, []byte(data), vfs.TypeText)
	require.NoError(t, err)
	return it
}

func (fx *fixture) mustFolder(t *testing.T, path string) *vfs.Item {
	t.Helper()
	it, err := fx.fs.CreateFolder(context.Background(), path)
	require.NoError(t, err)
	return it
}

func TestSaveReadRoundTrip(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	saved := fx.mustSave(t, "/Documents/notes.txt", "hello")
	require.True(t, saved.HasContent())
	assert.Equal(t, int64(5), saved.Size)

	rec, err := fx.fs.Read(ctx, "/Documents/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), rec.Data)
	assert.Equal(t, "notes.txt", rec.Name)
}

func TestSaveOverwriteKeepsContentID(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	first := fx.mustSave(t, "/Documents/draft.md", "v1")
	second := fx.mustSave(t, "/Documents/draft.md", "v2 longer")

	assert.Equal(t, first.ContentID, second.ContentID)
	assert.Equal(t, int64(9), second.Size)

	rec, err := fx.fs.Read(ctx, "/Documents/draft.md")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2 longer"), rec.Data)
}

func TestSaveValidation(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.fs.Save(ctx, "/Missing/a.txt", []byte("x"), vfs.TypeText)
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.Save(ctx, "/Applications/a.txt", []byte("x"), vfs.TypeText)
	assert.True(t, vfs.IsCode(err, vfs.ErrReadOnly))

	_, err = fx.fs.Save(ctx, "/Trash/a.txt", []byte("x"), vfs.TypeText)
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	fx.mustFolder(t, "/Documents")
	_, err = fx.fs.Save(ctx, "/Documents", []byte("x"), vfs.TypeText)
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))
}

func TestSaveUnavailableStoreLeavesMetadataUntouched(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.mustFolder(t, "/Documents")

	// Both the first attempt and the single retry must fail.
	fx.store.FailAll = true
	_, err := fx.fs.Save(ctx, "/Documents/a.txt", []byte("x"), vfs.TypeText)
	require.True(t, vfs.IsCode(err, vfs.ErrStorageUnavailable))
	fx.store.FailAll = false

	assert.Nil(t, fx.index.Get("/Documents/a.txt"))
}

func TestSaveRetriesTransientFailure(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.mustFolder(t, "/Documents")

	fx.store.FailNext = true
	it, err := fx.fs.Save(ctx, "/Documents/a.txt", []byte("x"), vfs.TypeText)
	require.NoError(t, err)
	assert.True(t, it.HasContent())
}

func TestCreateFolderConflict(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	_, err := fx.fs.CreateFolder(ctx, "/Documents")
	assert.True(t, vfs.IsCode(err, vfs.ErrConflict))
}

func TestListMergesVirtualMounts(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	items, err := fx.fs.List(ctx, "/", vfs.SortByName)
	require.NoError(t, err)

	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Applications", "Documents", "Trash"}, names)

	apps, err := fx.fs.List(ctx, "/Applications", vfs.SortByName)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Paint", apps[0].Name)
	assert.Equal(t, vfs.KindVirtual, apps[0].Kind)
}

func TestListErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.fs.List(ctx, "/Nope", vfs.SortByName)
	assert.True(t, vfs.IsCode(err, vfs.ErrNotFound))

	fx.mustFolder(t, "/Documents")
	fx.mustSave(t, "/Documents/a.txt", "x")
	_, err = fx.fs.List(ctx, "/Documents/a.txt", vfs.SortByName)
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))
}

func TestRenameFolderCascades(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Projects")
	fx.mustFolder(t, "/Projects/app")
	inner := fx.mustSave(t, "/Projects/app/main.txt", "code")

	renamed, err := fx.fs.Rename(ctx, "/Projects", "Work")
	require.NoError(t, err)
	assert.Equal(t, "/Work", renamed.Path)
	assert.Equal(t, "Work", renamed.Name)

	moved := fx.index.Get("/Work/app/main.txt")
	require.NotNil(t, moved)
	assert.Equal(t, inner.ContentID, moved.ContentID)
	assert.Nil(t, fx.index.Get("/Projects"))

	rec, err := fx.fs.Read(ctx, "/Work/app/main.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("code"), rec.Data)
}

func TestRenameErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.fs.Rename(ctx, "/ghost", "x")
	assert.True(t, vfs.IsCode(err, vfs.ErrNotFound))

	fx.mustFolder(t, "/A")
	fx.mustFolder(t, "/B")
	_, err = fx.fs.Rename(ctx, "/A", "B")
	assert.True(t, vfs.IsCode(err, vfs.ErrConflict))

	_, err = fx.fs.Rename(ctx, "/A", "..")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.Rename(ctx, "/Trash", "Bin")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.Rename(ctx, "/Applications", "Apps")
	assert.True(t, vfs.IsCode(err, vfs.ErrReadOnly))
}

func TestMove(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Desktop")
	fx.mustFolder(t, "/Documents")
	fx.mustSave(t, "/Desktop/todo.txt", "list")

	moved, err := fx.fs.Move(ctx, "/Desktop/todo.txt", "/Documents")
	require.NoError(t, err)
	assert.Equal(t, "/Documents/todo.txt", moved.Path)
	assert.Nil(t, fx.index.Get("/Desktop/todo.txt"))
}

func TestMoveErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/A")
	fx.mustFolder(t, "/A/B")
	fx.mustSave(t, "/A/file.txt", "x")

	_, err := fx.fs.Move(ctx, "/A", "/A/B")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.Move(ctx, "/A/file.txt", "/Missing")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.Move(ctx, "/A/file.txt", "/A/file.txt")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.Move(ctx, "/A/file.txt", "/Trash")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.Move(ctx, "/A/file.txt", "/Applications")
	assert.True(t, vfs.IsCode(err, vfs.ErrReadOnly))
}

func TestTrashRestoreRoundTrip(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	saved := fx.mustSave(t, "/Documents/keep.txt", "precious")

	trashed, err := fx.fs.Trash(ctx, "/Documents/keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "/Trash/keep.txt", trashed.Path)
	assert.Equal(t, vfs.StatusTrashed, trashed.Status)
	assert.Equal(t, "/Documents/keep.txt", trashed.OriginalPath)
	require.NotNil(t, trashed.DeletedAt)
	assert.Nil(t, fx.index.Get("/Documents/keep.txt"))

	// Content followed the item into the trash partition.
	ok, err := fx.store.Exists(ctx, content.PartitionTrash, saved.ContentID)
	require.NoError(t, err)
	assert.True(t, ok)

	restored, err := fx.fs.Restore(ctx, "/Trash/keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "/Documents/keep.txt", restored.Path)
	assert.Equal(t, vfs.StatusActive, restored.Status)
	assert.Empty(t, restored.OriginalPath)
	assert.Nil(t, restored.DeletedAt)
	assert.Equal(t, saved.ContentID, restored.ContentID)

	rec, err := fx.fs.Read(ctx, "/Documents/keep.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("precious"), rec.Data)
}

func TestTrashFolderCascades(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Projects")
	fx.mustFolder(t, "/Projects/site")
	fx.mustSave(t, "/Projects/site/index.html", "<html>")

	_, err := fx.fs.Trash(ctx, "/Projects")
	require.NoError(t, err)

	leaf := fx.index.Get("/Trash/Projects/site/index.html")
	require.NotNil(t, leaf)
	assert.Equal(t, vfs.StatusTrashed, leaf.Status)
	assert.Equal(t, "/Projects/site/index.html", leaf.OriginalPath)

	_, err = fx.fs.Restore(ctx, "/Trash/Projects")
	require.NoError(t, err)

	back := fx.index.Get("/Projects/site/index.html")
	require.NotNil(t, back)
	assert.Equal(t, vfs.StatusActive, back.Status)
}

func TestTrashNameCollisionsGetSuffixed(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/A")
	fx.mustFolder(t, "/B")
	fx.mustSave(t, "/A/note.txt", "first")
	fx.mustSave(t, "/B/note.txt", "second")

	first, err := fx.fs.Trash(ctx, "/A/note.txt")
	require.NoError(t, err)
	second, err := fx.fs.Trash(ctx, "/B/note.txt")
	require.NoError(t, err)

	assert.Equal(t, "/Trash/note.txt", first.Path)
	assert.Equal(t, "/Trash/note.txt (2)", second.Path)
	assert.Equal(t, "/B/note.txt", second.OriginalPath)
}

func TestRestoreConflictAndMissingParent(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	fx.mustSave(t, "/Documents/a.txt", "old")
	_, err := fx.fs.Trash(ctx, "/Documents/a.txt")
	require.NoError(t, err)

	// A new active file now occupies the original path.
	fx.mustSave(t, "/Documents/a.txt", "new")
	_, err = fx.fs.Restore(ctx, "/Trash/a.txt")
	assert.True(t, vfs.IsCode(err, vfs.ErrConflict))

	fx.mustSave(t, "/Documents/b.txt", "x")
	_, err = fx.fs.Trash(ctx, "/Documents/b.txt")
	require.NoError(t, err)
	_, err = fx.fs.Trash(ctx, "/Documents")
	require.NoError(t, err)

	// The original parent folder is itself in the trash now.
	_, err = fx.fs.Restore(ctx, "/Trash/b.txt")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))
}

func TestTrashedItemStillReadable(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	fx.mustSave(t, "/Documents/peek.txt", "still here")
	_, err := fx.fs.Trash(ctx, "/Documents/peek.txt")
	require.NoError(t, err)

	rec, err := fx.fs.Read(ctx, "/Trash/peek.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("still here"), rec.Data)
}

func TestEmptyTrash(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	a := fx.mustSave(t, "/Documents/a.txt", "a")
	fx.mustSave(t, "/Documents/b.txt", "b")
	_, err := fx.fs.Trash(ctx, "/Documents/a.txt")
	require.NoError(t, err)
	_, err = fx.fs.Trash(ctx, "/Documents/b.txt")
	require.NoError(t, err)

	n, err := fx.fs.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	items, err := fx.fs.List(ctx, vfs.TrashRoot, vfs.SortByName)
	require.NoError(t, err)
	assert.Empty(t, items)

	ok, err := fx.store.Exists(ctx, content.PartitionTrash, a.ContentID)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = fx.fs.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFormat(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	fx.mustSave(t, "/Documents/a.txt", "x")
	_, err := fx.fs.Trash(ctx, "/Documents/a.txt")
	require.NoError(t, err)

	require.NoError(t, fx.fs.Format(ctx))

	items, err := fx.fs.List(ctx, vfs.Root, vfs.SortByName)
	require.NoError(t, err)
	// Only the trash folder and the virtual mount survive a format.
	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Applications", "Trash"}, names)

	stats, err := fx.store.Stats(ctx)
	require.NoError(t, err)
	for part, ps := range stats {
		assert.Zero(t, ps.Records, part)
	}
}

func TestLazyMaterializationOnFirstRead(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Music")
	fx.lazy.Register([]lazy.ManifestEntry{
		{Path: "/Music/song.mp3", Ref: "library/song.mp3", Type: vfs.TypeAudio},
	})
	now := time.Now()
	require.NoError(t, fx.index.Upsert(&vfs.Item{
		Path:       "/Music/song.mp3",
		Name:       "song.mp3",
		Type:       vfs.TypeAudio,
		Kind:       vfs.KindPhysical,
		Status:     vfs.StatusActive,
		CreatedAt:  now,
		ModifiedAt: now,
	}, true))

	rec, err := fx.fs.Read(ctx, "/Music/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote:library/song.mp3"), rec.Data)
	assert.Equal(t, 1, fx.fetched["library/song.mp3"])

	it := fx.index.Get("/Music/song.mp3")
	require.True(t, it.HasContent())
	assert.Equal(t, int64(len(rec.Data)), it.Size)

	// Second read comes from the store, not the fetcher.
	rec, err = fx.fs.Read(ctx, "/Music/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote:library/song.mp3"), rec.Data)
	assert.Equal(t, 1, fx.fetched["library/song.mp3"])
	assert.Zero(t, fx.lazy.Pending())
}

func TestSaveCancelsPendingMaterialization(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Music")
	fx.lazy.Register([]lazy.ManifestEntry{
		{Path: "/Music/song.mp3", Ref: "library/song.mp3", Type: vfs.TypeAudio},
	})

	_, err := fx.fs.Save(ctx, "/Music/song.mp3", []byte("local mix"), vfs.TypeAudio)
	require.NoError(t, err)
	assert.Zero(t, fx.lazy.Pending())

	rec, err := fx.fs.Read(ctx, "/Music/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("local mix"), rec.Data)
	assert.Zero(t, fx.fetched["library/song.mp3"])
}

func TestRegisterLazyCreatesPlaceholderItems(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	registered, err := fx.fs.RegisterLazy(ctx, []lazy.ManifestEntry{
		{Path: "/Music/song.mp3", Ref: "library/song.mp3", Type: vfs.TypeAudio},
		{Path: "/Music/b-side.mp3", Ref: "library/b-side.mp3", Type: vfs.TypeAudio},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, registered)

	// The parent folder was created and the files are visible before
	// any content has been fetched.
	items, err := fx.fs.List(ctx, "/Music", vfs.SortByName)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.False(t, items[0].HasContent())
	assert.Empty(t, fx.fetched)

	rec, err := fx.fs.Read(ctx, "/Music/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("remote:library/song.mp3"), rec.Data)
	assert.Equal(t, 1, fx.fetched["library/song.mp3"])
	assert.True(t, fx.index.Get("/Music/song.mp3").HasContent())
}

func TestRegisterLazySkipsMaterializedPaths(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Music")
	fx.mustSave(t, "/Music/song.mp3", "local mix")

	registered, err := fx.fs.RegisterLazy(ctx, []lazy.ManifestEntry{
		{Path: "/Music/song.mp3", Ref: "library/song.mp3", Type: vfs.TypeAudio},
	})
	require.NoError(t, err)
	assert.Zero(t, registered)
	assert.Zero(t, fx.lazy.Pending())

	rec, err := fx.fs.Read(ctx, "/Music/song.mp3")
	require.NoError(t, err)
	assert.Equal(t, []byte("local mix"), rec.Data)
	assert.Empty(t, fx.fetched)
}

func TestConcurrentFirstReadsShareOneFetch(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.fs.RegisterLazy(ctx, []lazy.ManifestEntry{
		{Path: "/Music/song.mp3", Ref: "library/song.mp3", Type: vfs.TypeAudio},
	})
	require.NoError(t, err)

	const readers = 8
	var wg sync.WaitGroup
	recs := make([]*vfs.Record, readers)
	errs := make([]error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs[i], errs[i] = fx.fs.Read(ctx, "/Music/song.mp3")
		}(i)
	}
	wg.Wait()

	for i := 0; i < readers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("remote:library/song.mp3"), recs[i].Data)
	}
	assert.Equal(t, 1, fx.fetched["library/song.mp3"])
}

func TestImportBulkWritesAcrossPartitions(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	imported, err := fx.fs.Import(ctx, []ImportFile{
		{Path: "/Documents/readme.md", Data: []byte("# hi"), Type: vfs.TypeMarkdown},
		{Path: "/Pictures/photo.png", Data: []byte("png-bytes"), Type: vfs.TypeImage},
		{Path: "/Pictures/Vacation/beach.png", Data: []byte("more-bytes"), Type: vfs.TypeImage},
	})
	require.NoError(t, err)
	require.Len(t, imported, 3)

	// Missing ancestors were created along the way.
	require.NotNil(t, fx.index.Get("/Pictures/Vacation"))

	for _, it := range imported {
		rec, err := fx.fs.Read(ctx, it.Path)
		require.NoError(t, err, it.Path)
		assert.Equal(t, int64(len(rec.Data)), it.Size)
	}

	stats, err := fx.store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats[content.PartitionDocuments].Records)
	assert.Equal(t, uint64(2), stats[content.PartitionImages].Records)
}

func TestImportUnavailableStoreLeavesMetadataUntouched(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	fx.store.FailAll = true
	_, err := fx.fs.Import(ctx, []ImportFile{
		{Path: "/Documents/readme.md", Data: []byte("# hi"), Type: vfs.TypeMarkdown},
	})
	require.Error(t, err)
	assert.True(t, vfs.IsCode(err, vfs.ErrStorageUnavailable))
	assert.Nil(t, fx.index.Get("/Documents/readme.md"))
}

func TestReadErrors(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.fs.Read(ctx, "/ghost.txt")
	assert.True(t, vfs.IsCode(err, vfs.ErrNotFound))

	fx.mustFolder(t, "/Documents")
	_, err = fx.fs.Read(ctx, "/Documents")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.Read(ctx, "/Applications/TextEdit")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))
}

func TestStat(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	it, err := fx.fs.Stat(ctx, "/Documents")
	require.NoError(t, err)
	assert.True(t, it.Dir)

	virt, err := fx.fs.Stat(ctx, "/Applications/TextEdit")
	require.NoError(t, err)
	assert.Equal(t, vfs.KindVirtual, virt.Kind)

	_, err = fx.fs.Stat(ctx, "/Applications/Nope")
	assert.True(t, vfs.IsCode(err, vfs.ErrNotFound))
}

func TestSaveAlias(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Desktop")
	it, err := fx.fs.SaveAlias(ctx, "/Desktop/TextEdit", "textedit", vfs.AliasApplication)
	require.NoError(t, err)
	assert.Equal(t, vfs.KindAlias, it.Kind)
	require.NotNil(t, it.Alias)
	assert.Equal(t, "textedit", it.Alias.Target)

	_, err = fx.fs.Read(ctx, "/Desktop/TextEdit")
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))

	_, err = fx.fs.SaveAlias(ctx, "/Desktop/Broken", "", vfs.AliasApplication)
	assert.True(t, vfs.IsCode(err, vfs.ErrInvalidTarget))
}

func TestSaveOverAliasBecomesPhysicalFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Desktop")
	_, err := fx.fs.SaveAlias(ctx, "/Desktop/note", "textedit", vfs.AliasApplication)
	require.NoError(t, err)

	saved, err := fx.fs.Save(ctx, "/Desktop/note", []byte("actual text"), vfs.TypeText)
	require.NoError(t, err)
	assert.Equal(t, vfs.KindPhysical, saved.Kind)
	assert.Nil(t, saved.Alias)
	require.True(t, saved.HasContent())

	rec, err := fx.fs.Read(ctx, "/Desktop/note")
	require.NoError(t, err)
	assert.Equal(t, []byte("actual text"), rec.Data)
}

func TestEvents(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	var events []vfs.Event
	unsubscribe := fx.fs.Subscribe(func(e vfs.Event) {
		events = append(events, e)
	})
	defer unsubscribe()

	fx.mustFolder(t, "/Documents")
	fx.mustSave(t, "/Documents/a.txt", "v1")
	fx.mustSave(t, "/Documents/a.txt", "v2")
	_, err := fx.fs.Rename(ctx, "/Documents/a.txt", "b.txt")
	require.NoError(t, err)
	_, err = fx.fs.Trash(ctx, "/Documents/b.txt")
	require.NoError(t, err)
	_, err = fx.fs.Restore(ctx, "/Trash/b.txt")
	require.NoError(t, err)

	var types []vfs.EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []vfs.EventType{
		vfs.EventCreated,
		vfs.EventCreated,
		vfs.EventContentUpdated,
		vfs.EventRenamed,
		vfs.EventTrashed,
		vfs.EventRestored,
	}, types)

	trashEvent := events[4]
	assert.Equal(t, "/Documents/b.txt", trashEvent.OldPath)
	assert.Equal(t, "/Trash/b.txt", trashEvent.Path)

	unsubscribe()
	fx.mustSave(t, "/Documents/c.txt", "x")
	assert.Len(t, events, 6)
}

func TestStats(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	fx.mustFolder(t, "/Documents")
	fx.mustSave(t, "/Documents/a.txt", "abc")
	_, err := fx.fs.Trash(ctx, "/Documents/a.txt")
	require.NoError(t, err)

	s, err := fx.fs.Stats(ctx)
	require.NoError(t, err)

	// Root, Trash, Documents are active; a.txt is trashed.
	assert.Equal(t, 4, s.Items)
	assert.Equal(t, 3, s.Active)
	assert.Equal(t, 1, s.Trashed)
	assert.Equal(t, uint64(1), s.Content[content.PartitionTrash].Records)
}
