package fs

import (
	"context"
	"time"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/lazy"
)

// RegisterLazy declares manifest entries as lazily materialized files.
// Every entry gets a placeholder metadata item without content, so the
// file shows up in listings right away, plus a registration with the
// lazy manager so the first read fetches the payload. Missing ancestor
// folders are created. Entries whose path already carries content are
// skipped; their stored bytes stay authoritative.
func (f *FileSystem) RegisterLazy(ctx context.Context, entries []lazy.ManifestEntry) (registered int, err error) {
	defer f.track("register_lazy", &err)()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if f.lazy == nil {
		return 0, vfs.InvalidTarget(vfs.Root, "no lazy manager configured")
	}

	now := time.Now()
	accepted := make([]lazy.ManifestEntry, 0, len(entries))
	for _, e := range entries {
		path := vfs.NormalizePath(e.Path)
		if err := f.guardMutable(path); err != nil {
			return registered, err
		}
		if !vfs.ValidName(vfs.BaseName(path)) {
			return registered, vfs.InvalidTarget(path, "invalid file name")
		}
		if vfs.InTrash(path) {
			return registered, vfs.InvalidTarget(path, "cannot register inside the trash")
		}

		existing := f.index.Get(path)
		if existing != nil && existing.Dir {
			return registered, vfs.InvalidTarget(path, "a folder occupies this path")
		}
		if existing != nil && existing.HasContent() {
			continue
		}

		if err := f.ensureFolders(path); err != nil {
			return registered, err
		}
		if existing == nil {
			it := &vfs.Item{
				Path:       path,
				Name:       vfs.BaseName(path),
				Type:       e.Type,
				Kind:       vfs.KindPhysical,
				Status:     vfs.StatusActive,
				CreatedAt:  now,
				ModifiedAt: now,
			}
			if err := f.index.Upsert(it, true); err != nil {
				return registered, err
			}
			f.bus.Publish(vfs.Event{Type: vfs.EventCreated, Path: path, Name: it.Name})
		}
		e.Path = path
		accepted = append(accepted, e)
		registered++
	}

	f.lazy.Register(accepted)
	return registered, nil
}

// ensureFolders creates any missing ancestor folders of path.
func (f *FileSystem) ensureFolders(path string) error {
	var missing []string
	for parent := vfs.ParentPath(path); parent != vfs.Root; parent = vfs.ParentPath(parent) {
		it := f.index.Get(parent)
		if it != nil {
			if !it.Dir || it.Status != vfs.StatusActive {
				return vfs.InvalidTarget(parent, "parent is not an active folder")
			}
			break
		}
		missing = append(missing, parent)
	}

	now := time.Now()
	for i := len(missing) - 1; i >= 0; i-- {
		it := &vfs.Item{
			Path:       missing[i],
			Name:       vfs.BaseName(missing[i]),
			Dir:        true,
			Type:       vfs.TypeFolder,
			Kind:       vfs.KindPhysical,
			Status:     vfs.StatusActive,
			CreatedAt:  now,
			ModifiedAt: now,
		}
		if err := f.index.Upsert(it, true); err != nil {
			return err
		}
	}
	return nil
}
