package fs

import (
	"context"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/content"
)

// Stats summarizes the state of both storage layers.
type Stats struct {
	Items   int `json:"items"`
	Active  int `json:"active"`
	Trashed int `json:"trashed"`
	Pending int `json:"pending"`

	Content map[content.Partition]content.PartitionStats `json:"content"`
}

// Stats counts indexed items by lifecycle state and reports content
// store usage per partition.
func (f *FileSystem) Stats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &Stats{}
	for _, it := range f.index.Items() {
		s.Items++
		switch it.Status {
		case vfs.StatusTrashed:
			s.Trashed++
		default:
			s.Active++
		}
	}
	if f.lazy != nil {
		s.Pending = f.lazy.Pending()
	}

	var err error
	s.Content, err = f.content.Stats(ctx)
	if err != nil {
		return nil, vfs.StorageUnavailable(vfs.Root, err)
	}
	return s, nil
}
