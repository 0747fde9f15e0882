package migrate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/index"
)

func legacySnapshot() *index.Snapshot {
	return &index.Snapshot{
		Version: 1,
		Items: []vfs.Item{
			{Path: "/Documents", Dir: true, Type: vfs.TypeFolder},
			{Path: "/Documents/note.md", Type: vfs.TypeMarkdown, ContentID: "c1", Size: 4},
			{Path: "/TextEdit", Type: vfs.TypeAlias, Alias: &vfs.AliasInfo{Target: "textedit", Kind: vfs.AliasApplication}, Size: 99},
		},
	}
}

func TestRunNilSnapshotIsFreshSystem(t *testing.T) {
	snap, err := Run(nil, Steps())
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, snap.Version)
	assert.Empty(t, snap.Items)
}

func TestRunUpgradesLegacySnapshot(t *testing.T) {
	snap, err := Run(legacySnapshot(), Steps())
	require.NoError(t, err)
	assert.Equal(t, CurrentVersion, snap.Version)

	byPath := make(map[string]vfs.Item)
	for _, it := range snap.Items {
		byPath[it.Path] = it
	}

	assert.Equal(t, vfs.KindPhysical, byPath["/Documents"].Kind)
	assert.Equal(t, vfs.KindAlias, byPath["/TextEdit"].Kind)
	assert.Equal(t, "note.md", byPath["/Documents/note.md"].Name)
	assert.Equal(t, vfs.StatusActive, byPath["/Documents/note.md"].Status)
	// Aliases own no content and no size.
	assert.Zero(t, byPath["/TextEdit"].Size)
	assert.False(t, byPath["/Documents"].CreatedAt.IsZero())
}

func TestRunIsIdempotent(t *testing.T) {
	once, err := Run(legacySnapshot(), Steps())
	require.NoError(t, err)

	twice, err := Run(once, Steps())
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestRunCurrentSnapshotUntouched(t *testing.T) {
	snap := &index.Snapshot{Version: CurrentVersion, Items: []vfs.Item{
		{Path: "/a.txt", Kind: vfs.KindPhysical, Status: vfs.StatusActive,
			CreatedAt: time.Unix(1, 0), ModifiedAt: time.Unix(1, 0)},
	}}

	got, err := Run(snap, Steps())
	require.NoError(t, err)
	assert.Same(t, snap, got)
}

func TestRunFailureFallsBackToOriginal(t *testing.T) {
	original := legacySnapshot()
	boom := errors.New("boom")
	steps := append(Steps(), Step{
		Version: 3,
		Name:    "exploding-step",
		Apply:   func(*index.Snapshot) error { return boom },
	})

	got, err := Run(original, steps)
	require.Error(t, err)
	assert.True(t, vfs.IsCode(err, vfs.ErrMigration))

	// The pre-migration snapshot stays active, fully untouched.
	assert.Same(t, original, got)
	assert.Equal(t, 1, got.Version)
	assert.Empty(t, got.Items[0].Kind)
}
