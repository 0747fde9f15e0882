// Package virtual implements the Virtual Namespace Resolver: read-only
// directories synthesized from external catalogs (application registry,
// media libraries, bookmarks) that appear in listings without being
// stored in the metadata index.
package virtual

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/deskfs/pkg/vfs"
)

// Entry is one element enumerated by a catalog, before projection into
// the file system's item shape.
type Entry struct {
	Name       string
	Type       vfs.FileType
	Size       int64
	ModifiedAt time.Time
}

// Catalog is an external collaborator that can enumerate its current
// entries. Calls are synchronous and the core never mutates the catalog.
type Catalog interface {
	// Entries returns the catalog's current contents. Implementations
	// may recompute on every call; the resolver does not cache.
	Entries(ctx context.Context) ([]Entry, error)
}

// CatalogFunc adapts a function to the Catalog interface.
type CatalogFunc func(ctx context.Context) ([]Entry, error)

// Entries implements Catalog.
func (f CatalogFunc) Entries(ctx context.Context) ([]Entry, error) {
	return f(ctx)
}

// StaticCatalog serves a fixed entry list. Used by tests and seeds.
type StaticCatalog []Entry

// Entries implements Catalog.
func (c StaticCatalog) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// Resolver holds the static table of mount points. It is assembled once
// at construction time and never mutated afterwards, so lookups need no
// locking.
type Resolver struct {
	mounts map[string]Catalog
}

// NewResolver builds a resolver from a mount-path→catalog table. Mount
// paths are normalized; mounting under the trash namespace or at the
// root is rejected.
func NewResolver(mounts map[string]Catalog) (*Resolver, error) {
	r := &Resolver{mounts: make(map[string]Catalog, len(mounts))}
	for path, cat := range mounts {
		path = vfs.NormalizePath(path)
		if path == vfs.Root || vfs.InTrash(path) {
			return nil, fmt.Errorf("invalid virtual mount point %q", path)
		}
		r.mounts[path] = cat
	}
	return r, nil
}

// Covers reports whether path is a virtual mount point or lives inside
// one. Mutations against covered paths fail with ErrReadOnly.
func (r *Resolver) Covers(path string) bool {
	path = vfs.NormalizePath(path)
	for mount := range r.mounts {
		if path == mount || vfs.IsAncestor(mount, path) {
			return true
		}
	}
	return false
}

// MountsUnder returns the mount points whose parent is exactly path, as
// virtual folder items, so the mounts themselves show up when their
// parent directory is listed.
func (r *Resolver) MountsUnder(path string) []vfs.Item {
	path = vfs.NormalizePath(path)
	var out []vfs.Item
	for mount := range r.mounts {
		if vfs.ParentPath(mount) == path {
			out = append(out, vfs.Item{
				Path:   mount,
				Name:   vfs.BaseName(mount),
				Dir:    true,
				Type:   vfs.TypeVirtualFolder,
				Kind:   vfs.KindVirtual,
				Status: vfs.StatusActive,
			})
		}
	}
	return out
}

// EntriesAt enumerates the catalog mounted exactly at path and projects
// its entries into read-only items. Returns nil when path is not a mount
// point.
func (r *Resolver) EntriesAt(ctx context.Context, path string) ([]vfs.Item, error) {
	path = vfs.NormalizePath(path)
	cat, ok := r.mounts[path]
	if !ok {
		return nil, nil
	}
	entries, err := cat.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog at %s: %w", path, err)
	}
	items := make([]vfs.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, vfs.Item{
			Path:       vfs.JoinPath(path, e.Name),
			Name:       e.Name,
			Type:       e.Type,
			Kind:       vfs.KindVirtual,
			Size:       e.Size,
			ModifiedAt: e.ModifiedAt,
			Status:     vfs.StatusActive,
		})
	}
	return items, nil
}

// Lookup resolves a single virtual path (a mount point itself or an
// entry directly inside one). Returns nil when the path is not virtual
// or the catalog doesn't currently list it.
func (r *Resolver) Lookup(ctx context.Context, path string) (*vfs.Item, error) {
	path = vfs.NormalizePath(path)
	if _, ok := r.mounts[path]; ok {
		it := vfs.Item{
			Path:   path,
			Name:   vfs.BaseName(path),
			Dir:    true,
			Type:   vfs.TypeVirtualFolder,
			Kind:   vfs.KindVirtual,
			Status: vfs.StatusActive,
		}
		return &it, nil
	}
	items, err := r.EntriesAt(ctx, vfs.ParentPath(path))
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].Path == path {
			return &items[i], nil
		}
	}
	return nil, nil
}
