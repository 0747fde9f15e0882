// Package vfs defines the domain model for the deskfs virtual file system:
// items, content identifiers, file types, sort orders, the error taxonomy
// and the change-notification bus.
//
// The file system is split into two independently persisted layers:
//
//   - Metadata Index (pkg/vfs/index): a synchronous in-memory mapping from
//     absolute path to Item, persisted as a versioned snapshot document.
//   - Content Store (pkg/vfs/content): an asynchronous durable key-value
//     store holding raw payloads, addressed by ContentID and partitioned
//     by content kind.
//
// Items reference content by ContentID, never by path. This indirection is
// what makes rename and move O(1) metadata-only operations: the stored
// bytes are never touched when a path changes.
package vfs

import "time"

// ContentID is an opaque identifier for a record in the content store.
//
// IDs are generated when content is first written (random UUIDs) and stay
// attached to the item for its whole life, across renames, moves, trash
// and restore. Callers must treat the value as opaque.
type ContentID string

// FileType is the semantic kind of an item. It drives icon selection in
// consumers and, more importantly, content store partition routing
// (see content.PartitionForType).
type FileType string

const (
	TypeText          FileType = "text"
	TypeMarkdown      FileType = "markdown"
	TypeImage         FileType = "image"
	TypeAudio         FileType = "audio"
	TypeApplet        FileType = "applet"
	TypeWallpaper     FileType = "wallpaper"
	TypeFolder        FileType = "folder"
	TypeVirtualFolder FileType = "virtual-folder"
	TypeAlias         FileType = "alias"
)

// Status is the lifecycle state of an item in the metadata index.
type Status string

const (
	// StatusActive marks an item visible at its normal path.
	StatusActive Status = "active"

	// StatusTrashed marks a soft-deleted item. Trashed items live under
	// the trash namespace (see TrashRoot) and carry their pre-trash
	// location in OriginalPath until they are restored or purged.
	StatusTrashed Status = "trashed"
)

// Kind discriminates the item variants. Exactly one variant payload is
// populated per kind, which keeps illegal combinations (an alias with
// content, a virtual folder in the trash) unrepresentable in practice:
//
//   - KindPhysical: a stored file or folder. Files may carry a ContentID;
//     folders never do.
//   - KindVirtual: a read-only projection of an external catalog entry.
//     Never persisted, never mutated through the lifecycle manager.
//   - KindAlias: a desktop shortcut pointing at a file path or an
//     application id. Owns no content.
type Kind string

const (
	KindPhysical Kind = "physical"
	KindVirtual  Kind = "virtual"
	KindAlias    Kind = "alias"
)

// AliasKind says what an alias points at.
type AliasKind string

const (
	// AliasFile targets another path in this file system.
	AliasFile AliasKind = "file"

	// AliasApplication targets an application id in the registry catalog.
	AliasApplication AliasKind = "application"
)

// AliasInfo is the alias variant payload.
type AliasInfo struct {
	// Target is a file path (AliasFile) or an application id
	// (AliasApplication).
	Target string `json:"target"`

	// Kind selects how Target is interpreted.
	Kind AliasKind `json:"kind"`
}

// Item is one entry in the metadata index.
//
// Path is the primary identity: unique across active items, absolute,
// '/'-separated, no trailing slash except the root "/". A trashed item's
// Path is rewritten under TrashRoot while OriginalPath keeps the pre-trash
// location.
//
// Invariant: when ContentID is set there is exactly one content record in
// the partition matching Type. Orphaned content (records no item points
// at) may exist transiently after an interrupted save and is reclaimed by
// the gc sweep.
type Item struct {
	Path string   `json:"path"`
	Name string   `json:"name"`
	Dir  bool     `json:"dir"`
	Type FileType `json:"type"`
	Kind Kind     `json:"kind"`

	// ContentID is set only for physical files whose content has been
	// materialized into the content store. Folders, aliases, virtual
	// entries and lazily registered files have none.
	ContentID ContentID `json:"contentId,omitempty"`

	// Size is the payload size in bytes. Zero for folders and aliases;
	// virtual entries report whatever their catalog declares.
	Size int64 `json:"size,omitempty"`

	CreatedAt  time.Time `json:"createdAt,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt,omitempty"`

	Status Status `json:"status"`

	// OriginalPath and DeletedAt are set only while Status is
	// StatusTrashed.
	OriginalPath string     `json:"originalPath,omitempty"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`

	// Alias is the variant payload for KindAlias items.
	Alias *AliasInfo `json:"alias,omitempty"`
}

// HasContent reports whether the item references a content record. The
// ContentID alone decides: items written before Kind existed must still
// count as referencing their content, or the gc sweep would reap live
// records.
func (it *Item) HasContent() bool {
	return !it.Dir && it.ContentID != ""
}

// IsVirtual reports whether the item is a read-only catalog projection.
func (it *Item) IsVirtual() bool {
	return it.Kind == KindVirtual
}

// Clone returns a deep copy. The index hands out clones so callers can
// never mutate indexed state behind its back.
func (it *Item) Clone() *Item {
	cp := *it
	if it.DeletedAt != nil {
		t := *it.DeletedAt
		cp.DeletedAt = &t
	}
	if it.Alias != nil {
		a := *it.Alias
		cp.Alias = &a
	}
	return &cp
}

// Record is one entry in the content store: the payload plus the name it
// was stored under. Records are addressed by ContentID only.
type Record struct {
	Name string `json:"name"`
	Data []byte `json:"data"`
}
