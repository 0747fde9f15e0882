package vfs

import (
	"sort"
	"strings"
)

// SortKey selects the ordering of directory listings.
type SortKey string

const (
	SortByName SortKey = "name"
	SortByDate SortKey = "date"
	SortBySize SortKey = "size"
	SortByKind SortKey = "kind"
)

// SortItems orders items in place by key. Folders always sort before
// files; within each group the key applies, with a case-insensitive name
// comparison as the tiebreaker so equal keys order stably.
func SortItems(items []Item, key SortKey) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := &items[i], &items[j]
		if a.Dir != b.Dir {
			return a.Dir
		}
		switch key {
		case SortByDate:
			if !a.ModifiedAt.Equal(b.ModifiedAt) {
				return a.ModifiedAt.After(b.ModifiedAt)
			}
		case SortBySize:
			if a.Size != b.Size {
				return a.Size > b.Size
			}
		case SortByKind:
			if a.Type != b.Type {
				return a.Type < b.Type
			}
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}
