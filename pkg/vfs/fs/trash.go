package fs

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

// Trash moves the item at path (and, for folders, its whole subtree)
// into the trash. The metadata flip is the commit point: once it lands
// the item is in the trash regardless of what happens next. Content
// records are then relocated to the trash partition; an interrupted
// relocation is retried implicitly because Read falls back to the
// origin partition and the relocation itself is repeatable.
func (f *FileSystem) Trash(ctx context.Context, path string) (trashed *vfs.Item, err error) {
	defer f.track("trash", &err)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)
	if err := f.guardMutable(path); err != nil {
		return nil, err
	}
	if path == vfs.TrashRoot || vfs.InTrash(path) {
		return nil, vfs.InvalidTarget(path, "already in the trash")
	}

	it := f.index.Get(path)
	if it == nil || it.Status != vfs.StatusActive {
		return nil, vfs.NotFound(path)
	}

	// The rename is the commit point: path rewrite and lifecycle flip
	// land under one index write lock, so no reader ever sees an item
	// under the trash still marked active.
	trashPath := f.uniqueTrashPath(it.Name)
	now := time.Now()
	_, err = f.index.Rename(path, trashPath, func(moved *vfs.Item, previous string) {
		moved.Status = vfs.StatusTrashed
		moved.OriginalPath = previous
		moved.DeletedAt = &now
	})
	if err != nil {
		return nil, err
	}

	f.relocateContent(ctx, trashPath, false)

	out := f.index.Get(trashPath)
	f.bus.Publish(vfs.Event{
		Type:    vfs.EventTrashed,
		OldPath: path,
		Path:    trashPath,
		Name:    out.Name,
	})
	return out, nil
}

// Restore moves a trashed item back to its original path, subtree
// included. Fails with ErrConflict when an active item now occupies the
// original path and ErrInvalidTarget when the original parent folder is
// gone.
func (f *FileSystem) Restore(ctx context.Context, path string) (restored *vfs.Item, err error) {
	defer f.track("restore", &err)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)

	it := f.index.Get(path)
	if it == nil || it.Status != vfs.StatusTrashed {
		return nil, vfs.NotFound(path)
	}
	target := it.OriginalPath
	if target == "" {
		return nil, vfs.InvalidTarget(path, "no original location recorded")
	}
	if existing := f.index.Get(target); existing != nil && existing.Status == vfs.StatusActive {
		return nil, vfs.Conflict(target)
	}
	if err := f.requireParentFolder(target); err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = f.index.Rename(path, target, func(moved *vfs.Item, _ string) {
		moved.Status = vfs.StatusActive
		moved.OriginalPath = ""
		moved.DeletedAt = nil
		moved.ModifiedAt = now
	})
	if err != nil {
		return nil, err
	}

	f.relocateContent(ctx, target, true)

	out := f.index.Get(target)
	f.bus.Publish(vfs.Event{
		Type:    vfs.EventRestored,
		OldPath: path,
		Path:    target,
		Name:    out.Name,
	})
	return out, nil
}

// relocateContent moves the content records of the subtree rooted at
// path between origin and trash partitions. Failures are logged, not
// surfaced: the metadata flip already committed the operation and the
// read path tolerates content still sitting in the previous partition.
func (f *FileSystem) relocateContent(ctx context.Context, path string, toOrigin bool) {
	subtree := append([]vfs.Item{}, f.index.Descendants(path)...)
	if it := f.index.Get(path); it != nil {
		subtree = append(subtree, *it)
	}
	for i := range subtree {
		it := &subtree[i]
		if !it.HasContent() {
			continue
		}
		origin := content.PartitionForType(it.Type)
		from, to := origin, content.PartitionTrash
		if toOrigin {
			from, to = content.PartitionTrash, origin
		}
		err := f.withRetry(ctx, func() error {
			return f.content.Move(ctx, from, to, it.ContentID)
		})
		if err != nil {
			logger.Warn("Content relocation for %s deferred: %v", it.Path, err)
		}
	}
}

// uniqueTrashPath picks a trash path that does not collide with items
// already in the trash, suffixing " (2)", " (3)" and so on.
func (f *FileSystem) uniqueTrashPath(name string) string {
	candidate := vfs.JoinPath(vfs.TrashRoot, name)
	for i := 2; f.index.Get(candidate) != nil; i++ {
		candidate = vfs.JoinPath(vfs.TrashRoot, fmt.Sprintf("%s (%d)", name, i))
	}
	return candidate
}

// EmptyTrash permanently deletes every trashed item and its content,
// returning the number of items purged.
func (f *FileSystem) EmptyTrash(ctx context.Context) (purged int, err error) {
	defer f.track("empty_trash", &err)()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	trashed := f.index.Descendants(vfs.TrashRoot)
	if len(trashed) == 0 {
		return 0, nil
	}

	ids := make([]vfs.ContentID, 0, len(trashed))
	byOrigin := make(map[content.Partition][]vfs.ContentID)
	for i := range trashed {
		it := &trashed[i]
		if !it.HasContent() {
			continue
		}
		ids = append(ids, it.ContentID)
		origin := content.PartitionForType(it.Type)
		byOrigin[origin] = append(byOrigin[origin], it.ContentID)
	}

	if len(ids) > 0 {
		err := f.withRetry(ctx, func() error {
			return f.content.DeleteBatch(ctx, content.PartitionTrash, ids)
		})
		if err != nil {
			return 0, vfs.StorageUnavailable(vfs.TrashRoot, err)
		}
		// Sweep origin partitions too, for relocations that never
		// landed. Deleting a missing id is a no-op.
		for part, partIDs := range byOrigin {
			if err := f.content.DeleteBatch(ctx, part, partIDs); err != nil {
				logger.Warn("Origin sweep of %s failed: %v", part, err)
			}
		}
	}

	for i := range trashed {
		f.index.Remove(trashed[i].Path)
	}
	return len(trashed), nil
}

// Format wipes the entire file system: every metadata item except the
// root, every content partition and any pending lazy registrations. The
// trash folder is recreated empty.
func (f *FileSystem) Format(ctx context.Context) (err error) {
	defer f.track("format", &err)()
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, part := range content.Partitions() {
		ids, err := f.content.List(ctx, part)
		if err != nil {
			return vfs.StorageUnavailable(vfs.Root, err)
		}
		if len(ids) == 0 {
			continue
		}
		if err := f.content.DeleteBatch(ctx, part, ids); err != nil {
			return vfs.StorageUnavailable(vfs.Root, err)
		}
	}

	f.index.Clear()
	if f.lazy != nil {
		f.lazy.Clear()
	}

	now := time.Now()
	if err := f.index.Upsert(&vfs.Item{
		Path:       vfs.TrashRoot,
		Name:       vfs.BaseName(vfs.TrashRoot),
		Dir:        true,
		Type:       vfs.TypeFolder,
		Kind:       vfs.KindPhysical,
		Status:     vfs.StatusActive,
		CreatedAt:  now,
		ModifiedAt: now,
	}, false); err != nil {
		return err
	}
	return f.index.Flush(ctx)
}
