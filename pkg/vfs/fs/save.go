package fs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

// Save writes data as the file at path, creating it if absent and
// overwriting it otherwise. The content record is committed before the
// metadata, so an interruption can leave an orphan record but never a
// file pointing at missing content. A save against a lazily registered
// file cancels the pending fetch; the saved payload wins.
func (f *FileSystem) Save(ctx context.Context, path string, data []byte, ftype vfs.FileType) (saved *vfs.Item, err error) {
	defer f.track("save", &err)()
	defer func() {
		if err == nil {
			f.metrics.RecordBytes("write", len(data))
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)
	if err := f.guardMutable(path); err != nil {
		return nil, err
	}
	name := vfs.BaseName(path)
	if !vfs.ValidName(name) {
		return nil, vfs.InvalidTarget(path, "invalid file name")
	}
	if vfs.InTrash(path) {
		return nil, vfs.InvalidTarget(path, "cannot save into the trash")
	}
	if err := f.requireParentFolder(path); err != nil {
		return nil, err
	}

	existing := f.index.Get(path)
	if existing != nil && existing.Dir {
		return nil, vfs.InvalidTarget(path, "a folder occupies this path")
	}
	if f.lazy != nil {
		f.lazy.Cancel(path)
	}

	now := time.Now()
	creating := existing == nil

	it := existing
	if creating || existing.Kind != vfs.KindPhysical {
		// Saving over an alias replaces it with a physical file. The
		// alias payload must not survive or the item could never serve
		// its content.
		it = &vfs.Item{
			Path:      path,
			Name:      name,
			Type:      ftype,
			Kind:      vfs.KindPhysical,
			Status:    vfs.StatusActive,
			CreatedAt: now,
		}
		if existing != nil {
			it.CreatedAt = existing.CreatedAt
		}
	}
	if !it.HasContent() {
		it.ContentID = vfs.ContentID(uuid.NewString())
	}
	it.Type = ftype
	it.Size = int64(len(data))
	it.ModifiedAt = now

	part := content.PartitionForType(ftype)
	err = f.withRetry(ctx, func() error {
		return f.content.Put(ctx, part, it.ContentID, vfs.Record{Name: name, Data: data})
	})
	if err != nil {
		// Metadata untouched: the file either keeps its previous
		// content or never comes into existence.
		return nil, vfs.StorageUnavailable(path, err)
	}

	if err := f.index.Upsert(it, creating); err != nil {
		// The orphan record is reclaimed by the gc sweep.
		return nil, err
	}

	evt := vfs.EventContentUpdated
	if creating {
		evt = vfs.EventCreated
	}
	f.bus.Publish(vfs.Event{Type: evt, Path: path, Name: name})
	return it, nil
}

// CreateFolder creates an empty folder at path. Folders are pure
// metadata; no content record is involved.
func (f *FileSystem) CreateFolder(ctx context.Context, path string) (created *vfs.Item, err error) {
	defer f.track("create_folder", &err)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)
	if err := f.guardMutable(path); err != nil {
		return nil, err
	}
	name := vfs.BaseName(path)
	if !vfs.ValidName(name) {
		return nil, vfs.InvalidTarget(path, "invalid folder name")
	}
	if vfs.InTrash(path) {
		return nil, vfs.InvalidTarget(path, "cannot create inside the trash")
	}
	if err := f.requireParentFolder(path); err != nil {
		return nil, err
	}

	now := time.Now()
	it := &vfs.Item{
		Path:       path,
		Name:       name,
		Dir:        true,
		Type:       vfs.TypeFolder,
		Kind:       vfs.KindPhysical,
		Status:     vfs.StatusActive,
		CreatedAt:  now,
		ModifiedAt: now,
	}
	if err := f.index.Upsert(it, true); err != nil {
		return nil, err
	}
	f.bus.Publish(vfs.Event{Type: vfs.EventCreated, Path: path, Name: name})
	return it, nil
}

// SaveAlias creates a metadata-only pointer to another path or to an
// application identifier.
func (f *FileSystem) SaveAlias(ctx context.Context, path, target string, kind vfs.AliasKind) (created *vfs.Item, err error) {
	defer f.track("save_alias", &err)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)
	if err := f.guardMutable(path); err != nil {
		return nil, err
	}
	name := vfs.BaseName(path)
	if !vfs.ValidName(name) {
		return nil, vfs.InvalidTarget(path, "invalid alias name")
	}
	if vfs.InTrash(path) {
		return nil, vfs.InvalidTarget(path, "cannot create inside the trash")
	}
	if target == "" {
		return nil, vfs.InvalidTarget(path, "alias target is empty")
	}
	if err := f.requireParentFolder(path); err != nil {
		return nil, err
	}
	if existing := f.index.Get(path); existing != nil && existing.Dir {
		return nil, vfs.InvalidTarget(path, "a folder occupies this path")
	}

	now := time.Now()
	it := &vfs.Item{
		Path:       path,
		Name:       name,
		Type:       vfs.TypeAlias,
		Kind:       vfs.KindAlias,
		Status:     vfs.StatusActive,
		CreatedAt:  now,
		ModifiedAt: now,
		Alias:      &vfs.AliasInfo{Target: target, Kind: kind},
	}
	if err := f.index.Upsert(it, false); err != nil {
		return nil, err
	}
	f.bus.Publish(vfs.Event{Type: vfs.EventCreated, Path: path, Name: name})
	return it, nil
}
