// Package migrate upgrades persisted metadata snapshots across schema
// versions.
//
// Each step is a pure, idempotent transformation of a snapshot. Steps
// run in version order against a deep copy of the loaded snapshot; when
// any step fails the original snapshot is returned untouched, so the
// index keeps serving the pre-migration state for the session rather
// than a half-applied one.
package migrate

import (
	"fmt"
	"sort"
	"time"

	"github.com/marmos91/deskfs/internal/logger"
	"github.com/marmos91/deskfs/pkg/vfs"
	"github.com/marmos91/deskfs/pkg/vfs/index"
)

// CurrentVersion is the schema version this build writes.
const CurrentVersion = 3

// Step is one schema upgrade. Apply must be idempotent: re-running a
// step against an already-upgraded snapshot must be a no-op.
type Step struct {
	// Version is the schema version the snapshot is at after this step.
	Version int

	// Name identifies the step in logs.
	Name string

	// Apply transforms the snapshot in place.
	Apply func(snap *index.Snapshot) error
}

// Steps returns the built-in migration chain.
func Steps() []Step {
	return []Step{
		{
			Version: 2,
			Name:    "backfill-item-kinds",
			Apply:   backfillItemKinds,
		},
		{
			Version: 3,
			Name:    "backfill-sizes-and-timestamps",
			Apply:   backfillSizesAndTimestamps,
		},
	}
}

// Run migrates snap to CurrentVersion using steps.
//
// A nil snap (first boot) yields an empty snapshot already at
// CurrentVersion. A snapshot at or above CurrentVersion is returned
// unchanged. On step failure the ORIGINAL snapshot is returned together
// with an ErrMigration error; callers keep running on the old version
// and must not persist the current version number.
func Run(snap *index.Snapshot, steps []Step) (*index.Snapshot, error) {
	if snap == nil {
		return &index.Snapshot{Version: CurrentVersion}, nil
	}
	if snap.Version >= CurrentVersion {
		return snap, nil
	}

	sorted := make([]Step, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	work := snap.Clone()
	for _, step := range sorted {
		if step.Version <= snap.Version || step.Version > CurrentVersion {
			continue
		}
		logger.Info("Applying schema migration %d (%s)", step.Version, step.Name)
		if err := step.Apply(work); err != nil {
			logger.Error("Schema migration %d (%s) failed: %v", step.Version, step.Name, err)
			return snap, &vfs.Error{
				Code:    vfs.ErrMigration,
				Message: fmt.Sprintf("migration %d (%s) failed: %v", step.Version, step.Name, err),
			}
		}
		work.Version = step.Version
	}
	work.Version = CurrentVersion
	return work, nil
}

// backfillItemKinds fills the Kind discriminator for snapshots written
// before it existed: alias payload implies KindAlias, everything else
// stored in the index is physical. Virtual entries were never persisted,
// so none appear here.
func backfillItemKinds(snap *index.Snapshot) error {
	for i := range snap.Items {
		it := &snap.Items[i]
		if it.Kind != "" {
			continue
		}
		switch {
		case it.Alias != nil:
			it.Kind = vfs.KindAlias
		default:
			it.Kind = vfs.KindPhysical
		}
		if it.Name == "" {
			it.Name = vfs.BaseName(it.Path)
		}
	}
	return nil
}

// backfillSizesAndTimestamps gives legacy items the fields later code
// assumes are always present.
func backfillSizesAndTimestamps(snap *index.Snapshot) error {
	now := time.Now()
	for i := range snap.Items {
		it := &snap.Items[i]
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		if it.ModifiedAt.IsZero() {
			it.ModifiedAt = it.CreatedAt
		}
		if it.Dir || it.Kind == vfs.KindAlias {
			it.Size = 0
		}
		if it.Status == "" {
			it.Status = vfs.StatusActive
		}
		if it.Status == vfs.StatusTrashed && it.OriginalPath == "" {
			// Best effort for pre-trash-metadata snapshots: restore
			// targets the top level.
			it.OriginalPath = vfs.JoinPath(vfs.Root, it.Name)
		}
	}
	return nil
}
