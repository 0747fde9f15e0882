package vfs

import (
	gopath "path"
	"strings"
)

// Root is the top of the namespace.
const Root = "/"

// TrashRoot is the reserved prefix under which soft-deleted items live
// pending restore or purge.
const TrashRoot = "/Trash"

// NormalizePath canonicalizes p: forces a leading '/', collapses '.' and
// '..' segments and duplicate slashes, and strips the trailing slash
// except for the root itself. Traversal above the root clamps to "/".
func NormalizePath(p string) string {
	if p == "" {
		return Root
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = gopath.Clean(p)
	if p == "." || p == "" {
		return Root
	}
	return p
}

// ParentPath returns the parent of p ("/" for top-level entries and for
// the root itself).
func ParentPath(p string) string {
	p = NormalizePath(p)
	if p == Root {
		return Root
	}
	return NormalizePath(gopath.Dir(p))
}

// BaseName returns the last path segment of p, or "/" for the root.
func BaseName(p string) string {
	p = NormalizePath(p)
	if p == Root {
		return Root
	}
	return gopath.Base(p)
}

// JoinPath joins parent and name into a normalized absolute path.
func JoinPath(parent, name string) string {
	return NormalizePath(gopath.Join(NormalizePath(parent), name))
}

// IsAncestor reports whether ancestor is a strict ancestor of p.
// "/" is an ancestor of everything but itself.
func IsAncestor(ancestor, p string) bool {
	ancestor = NormalizePath(ancestor)
	p = NormalizePath(p)
	if ancestor == p {
		return false
	}
	if ancestor == Root {
		return true
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// RebasePath rewrites p from the oldPrefix subtree into newPrefix.
// p must equal oldPrefix or be a descendant of it; rename cascades rely
// on this being a pure prefix substitution.
func RebasePath(p, oldPrefix, newPrefix string) string {
	p = NormalizePath(p)
	oldPrefix = NormalizePath(oldPrefix)
	if p == oldPrefix {
		return NormalizePath(newPrefix)
	}
	return NormalizePath(newPrefix + strings.TrimPrefix(p, oldPrefix))
}

// InTrash reports whether p lives under the trash namespace.
func InTrash(p string) bool {
	p = NormalizePath(p)
	return p == TrashRoot || IsAncestor(TrashRoot, p)
}

// ValidName reports whether name is usable as a single path segment.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\x00")
}
