package fs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

// ImportFile is one entry of a bulk Import.
type ImportFile struct {
	Path string
	Data []byte
	Type vfs.FileType
}

// Import writes several files in one pass: all content lands first,
// one batch per partition, then the metadata items. Like Save, an
// interruption can orphan content but never produces metadata pointing
// at missing records. Missing ancestor folders are created.
func (f *FileSystem) Import(ctx context.Context, files []ImportFile) (imported []vfs.Item, err error) {
	defer f.track("import", &err)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]*vfs.Item, 0, len(files))
	creating := make([]bool, 0, len(files))
	batches := make(map[content.Partition]map[vfs.ContentID]vfs.Record)
	for _, file := range files {
		path := vfs.NormalizePath(file.Path)
		if err := f.guardMutable(path); err != nil {
			return nil, err
		}
		name := vfs.BaseName(path)
		if !vfs.ValidName(name) {
			return nil, vfs.InvalidTarget(path, "invalid file name")
		}
		if vfs.InTrash(path) {
			return nil, vfs.InvalidTarget(path, "cannot import into the trash")
		}
		if err := f.ensureFolders(path); err != nil {
			return nil, err
		}

		existing := f.index.Get(path)
		if existing != nil && existing.Dir {
			return nil, vfs.InvalidTarget(path, "a folder occupies this path")
		}

		it := existing
		if it == nil || it.Kind != vfs.KindPhysical {
			it = &vfs.Item{
				Path:      path,
				Name:      name,
				Kind:      vfs.KindPhysical,
				Status:    vfs.StatusActive,
				CreatedAt: now,
			}
		}
		if !it.HasContent() {
			it.ContentID = vfs.ContentID(uuid.NewString())
		}
		it.Type = file.Type
		it.Size = int64(len(file.Data))
		it.ModifiedAt = now
		items = append(items, it)
		creating = append(creating, existing == nil)

		part := content.PartitionForType(file.Type)
		if batches[part] == nil {
			batches[part] = make(map[vfs.ContentID]vfs.Record)
		}
		batches[part][it.ContentID] = vfs.Record{Name: name, Data: file.Data}
	}

	for part, recs := range batches {
		err = f.withRetry(ctx, func() error {
			return f.content.PutBatch(ctx, part, recs)
		})
		if err != nil {
			// Already-written batches become orphans for the gc sweep;
			// no metadata was touched yet.
			return nil, vfs.StorageUnavailable(vfs.Root, err)
		}
	}

	imported = make([]vfs.Item, 0, len(items))
	for i, it := range items {
		if f.lazy != nil {
			f.lazy.Cancel(it.Path)
		}
		if err := f.index.Upsert(it, creating[i]); err != nil {
			return nil, err
		}
		evt := vfs.EventContentUpdated
		if creating[i] {
			evt = vfs.EventCreated
		}
		f.bus.Publish(vfs.Event{Type: evt, Path: it.Path, Name: it.Name})
		imported = append(imported, *it)
	}
	return imported, nil
}
