package fs

import (
	"context"
	"time"

	"github.com/marmos91/deskfs/pkg/vfs"
)

// Rename changes an item's name in place. For folders every descendant
// path is rewritten in the same atomic index operation; content records
// are untouched because they are addressed by ContentID, not by path.
func (f *FileSystem) Rename(ctx context.Context, path, newName string) (renamed *vfs.Item, err error) {
	defer f.track("rename", &err)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)
	if err := f.guardMutable(path); err != nil {
		return nil, err
	}
	if path == vfs.TrashRoot {
		return nil, vfs.InvalidTarget(path, "the trash cannot be renamed")
	}
	if !vfs.ValidName(newName) {
		return nil, vfs.InvalidTarget(path, "invalid name")
	}

	newPath := vfs.JoinPath(vfs.ParentPath(path), newName)
	if newPath == path {
		it := f.index.Get(path)
		if it == nil {
			return nil, vfs.NotFound(path)
		}
		return it, nil
	}

	if _, err := f.index.Rename(path, newPath, nil); err != nil {
		return nil, err
	}
	it := f.touch(newPath)
	f.bus.Publish(vfs.Event{
		Type:    vfs.EventRenamed,
		OldPath: path,
		Path:    newPath,
		Name:    newName,
	})
	return it, nil
}

// Move relocates an item under a different parent folder, keeping its
// name. Like Rename this is a pure metadata operation.
func (f *FileSystem) Move(ctx context.Context, path, newParent string) (moved *vfs.Item, err error) {
	defer f.track("move", &err)()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path = vfs.NormalizePath(path)
	newParent = vfs.NormalizePath(newParent)
	if err := f.guardMutable(path); err != nil {
		return nil, err
	}
	if path == vfs.TrashRoot {
		return nil, vfs.InvalidTarget(path, "the trash cannot be moved")
	}
	if f.resolver.Covers(newParent) {
		return nil, vfs.ReadOnly(newParent)
	}
	if vfs.InTrash(newParent) || newParent == vfs.TrashRoot {
		return nil, vfs.InvalidTarget(newParent, "use Trash to move items into the trash")
	}

	it := f.index.Get(path)
	if it == nil || it.Status != vfs.StatusActive {
		return nil, vfs.NotFound(path)
	}
	dest := f.index.Get(newParent)
	if dest == nil || dest.Status != vfs.StatusActive {
		return nil, vfs.InvalidTarget(newParent, "destination does not exist")
	}
	if !dest.Dir {
		return nil, vfs.InvalidTarget(newParent, "destination is not a folder")
	}
	if newParent == path || vfs.IsAncestor(path, newParent) {
		return nil, vfs.InvalidTarget(newParent, "cannot move a folder into itself")
	}

	newPath := vfs.JoinPath(newParent, it.Name)
	if newPath == path {
		return it, nil
	}
	if _, err := f.index.Rename(path, newPath, nil); err != nil {
		return nil, err
	}
	moved = f.touch(newPath)
	f.bus.Publish(vfs.Event{
		Type:    vfs.EventRenamed,
		OldPath: path,
		Path:    newPath,
		Name:    moved.Name,
	})
	return moved, nil
}

// touch bumps the modification timestamp of the item at path and
// returns the updated copy.
func (f *FileSystem) touch(path string) *vfs.Item {
	it := f.index.Get(path)
	if it == nil {
		return nil
	}
	it.ModifiedAt = time.Now()
	if err := f.index.Upsert(it, false); err != nil {
		return it
	}
	return it
}
