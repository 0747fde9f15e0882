package fs

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
	"github.com/marmos91/deskfs/pkg/vfs/lazy"
)

// List returns the entries of the folder at path, sorted by key.
// Virtual mounts under the folder are merged into the listing; when the
// path is itself a virtual mount the catalog entries are returned.
func (f *FileSystem) List(ctx context.Context, path string, key vfs.SortKey) (out []vfs.Item, err error) {
	defer f.track("list", &err)()
	if err = ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)

	if f.resolver.Covers(path) {
		entries, err := f.resolver.EntriesAt(ctx, path)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			return nil, vfs.InvalidTarget(path, "not a folder")
		}
		vfs.SortItems(entries, key)
		return entries, nil
	}

	it := f.index.Get(path)
	if it == nil {
		return nil, vfs.NotFound(path)
	}
	if !it.Dir {
		return nil, vfs.InvalidTarget(path, "not a folder")
	}

	items := f.index.Children(path)
	for _, mount := range f.resolver.MountsUnder(path) {
		// A physical item shadowed by a mount is unreachable; the
		// mount wins.
		replaced := false
		for i := range items {
			if items[i].Path == mount.Path {
				items[i] = mount
				replaced = true
				break
			}
		}
		if !replaced {
			items = append(items, mount)
		}
	}
	vfs.SortItems(items, key)
	return items, nil
}

// Stat returns the item at path, resolving virtual entries as well.
func (f *FileSystem) Stat(ctx context.Context, path string) (it *vfs.Item, err error) {
	defer f.track("stat", &err)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)

	if f.resolver.Covers(path) {
		it, err := f.resolver.Lookup(ctx, path)
		if err != nil {
			return nil, err
		}
		if it == nil {
			return nil, vfs.NotFound(path)
		}
		return it, nil
	}
	if it := f.index.Get(path); it != nil {
		return it, nil
	}
	return nil, vfs.NotFound(path)
}

// Read returns the content record for the file at path.
//
// A file still registered with the lazy manager is materialized on this
// first read: the payload is fetched, committed to the content store
// and linked into metadata before the record is returned. Concurrent
// first reads share a single fetch.
func (f *FileSystem) Read(ctx context.Context, path string) (rec *vfs.Record, err error) {
	defer f.track("read", &err)()
	defer func() {
		if rec != nil {
			f.metrics.RecordBytes("read", len(rec.Data))
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)

	if f.resolver.Covers(path) {
		return nil, vfs.InvalidTarget(path, "virtual entries have no content")
	}

	it := f.index.Get(path)
	if it == nil {
		return nil, vfs.NotFound(path)
	}
	if it.Dir {
		return nil, vfs.InvalidTarget(path, "folders have no content")
	}
	if it.Type == vfs.TypeAlias {
		return nil, vfs.InvalidTarget(path, "aliases have no content")
	}

	if !it.HasContent() {
		if f.lazy == nil {
			return nil, vfs.NotFound(path)
		}
		rec, err = f.materialize(ctx, path, it)
		if errors.Is(err, lazy.ErrNotRegistered) {
			return nil, vfs.NotFound(path)
		}
		return rec, err
	}

	return f.readRecord(ctx, it)
}

// materialize fetches the remote payload for a registered file, commits
// it and flips the metadata item to materialized.
func (f *FileSystem) materialize(ctx context.Context, path string, it *vfs.Item) (*vfs.Record, error) {
	res, err := f.lazy.Materialize(ctx, path)
	if err != nil {
		if errors.Is(err, lazy.ErrCancelled) || errors.Is(err, lazy.ErrNotRegistered) {
			// Either a save landed while the fetch was in flight or
			// another reader already committed the materialization. In
			// both cases the index now knows the current content.
			if cur := f.index.Get(path); cur != nil && cur.HasContent() {
				return f.readRecord(ctx, cur)
			}
		}
		return nil, err
	}

	it.ContentID = res.ContentID
	it.Size = int64(len(res.Record.Data))
	it.ModifiedAt = time.Now()
	if err := f.index.Upsert(it, false); err != nil {
		return nil, err
	}
	f.lazy.Forget(path)
	f.bus.Publish(vfs.Event{Type: vfs.EventContentUpdated, Path: path, Name: it.Name})
	rec := res.Record
	return &rec, nil
}

// readRecord fetches the record from the item's current partition,
// falling back to the opposite lifecycle partition. The fallback covers
// a trash or restore whose content relocation has not landed yet.
func (f *FileSystem) readRecord(ctx context.Context, it *vfs.Item) (*vfs.Record, error) {
	current, other := partitions(it)

	var rec *vfs.Record
	err := f.withRetry(ctx, func() error {
		var getErr error
		rec, getErr = f.content.Get(ctx, current, it.ContentID)
		if errors.Is(getErr, content.ErrNotFound) {
			rec, getErr = f.content.Get(ctx, other, it.ContentID)
		}
		return getErr
	})
	if err != nil {
		if errors.Is(err, content.ErrNotFound) {
			return nil, vfs.NotFound(it.Path)
		}
		return nil, vfs.StorageUnavailable(it.Path, err)
	}
	return rec, nil
}
