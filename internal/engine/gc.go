package engine

import (
	"context"
	"time"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// GCPolicy selects which historical versions garbage collection prunes.
// At most one of KeepLast or Before may be set; with neither set, GC only
// reclaims objects that are already orphaned without pruning any version.
type GCPolicy struct {
	// KeepLast retains, per file, only the KeepLast most recent versions
	// and prunes everything older.
	KeepLast *int
	// Before prunes every version older than this instant that is not the
	// current version of any file.
	Before *time.Time
	// DryRun computes what would be pruned/reclaimed without mutating
	// anything.
	DryRun bool
}

func (p GCPolicy) validate() error {
	if p.KeepLast != nil && p.Before != nil {
		return cowerrors.New(cowerrors.AmbiguousSelector, "keep-last and before policies are mutually exclusive").
			WithComponent("engine").WithOperation("gc")
	}
	return nil
}

// GCResult reports what a garbage collection run did (or, for a dry run,
// would do).
type GCResult struct {
	DryRun             bool
	KeepLast           *int
	Before             *time.Time
	VersionsPruned     int
	OrphanedObjects    int
	ProcessedObjects   int
	SkippedReferenced  int
	ReclaimedBytes     int64
}

// GC runs a garbage collection pass per policy.
func (e *Engine) GC(ctx context.Context, policy GCPolicy) (*GCResult, error) {
	ctx = ctxOrBackground(ctx)
	if err := policy.validate(); err != nil {
		return nil, err
	}

	result := &GCResult{DryRun: policy.DryRun, KeepLast: policy.KeepLast, Before: policy.Before}

	var prunable []*metastore.Version
	var err error
	switch {
	case policy.KeepLast != nil:
		prunable, err = e.meta.ListPrunableVersions(ctx, *policy.KeepLast)
	case policy.Before != nil:
		prunable, err = e.meta.ListPrunableVersionsBefore(ctx, policy.Before.UTC().Format(time.RFC3339Nano))
	}
	if err != nil {
		return nil, err
	}
	result.VersionsPruned = len(prunable)

	if policy.DryRun {
		orphaned, err := e.simulateOrphans(ctx, prunable)
		if err != nil {
			return nil, err
		}
		result.OrphanedObjects = len(orphaned)
		for _, o := range orphaned {
			result.ReclaimedBytes += o.SizeBytes
		}
		return result, nil
	}

	// Prune versions, decide which objects are now orphaned, delete their
	// blobs, and delete their object rows all inside one transaction: a
	// failure deleting any blob aborts the whole pass, rolling back the
	// version pruning along with it, so a partial GC run never leaves
	// pruned version rows gone without the blobs they referenced actually
	// being reclaimed.
	err = e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		for _, v := range prunable {
			if err := e.meta.DeleteVersion(ctx, t, v); err != nil {
				return err
			}
		}

		orphans, err := e.meta.GetOrphanedObjectsTx(ctx, t)
		if err != nil {
			return err
		}
		result.OrphanedObjects = len(orphans)

		for _, obj := range orphans {
			refs, err := e.meta.CountVersionReferencesTx(ctx, t, obj.Hash)
			if err != nil {
				return err
			}
			if refs > 0 {
				result.SkippedReferenced++
				e.log.Warn("gc skipping still-referenced object", logging.F("hash", obj.Hash), logging.F("references", refs))
				continue
			}

			freed, err := e.objects.Delete(obj.Hash)
			if err != nil {
				return err
			}

			if err := e.meta.DeleteObjectRecord(ctx, t, obj.Hash); err != nil {
				return err
			}

			result.ProcessedObjects++
			result.ReclaimedBytes += freed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("gc completed",
		logging.F("versions_pruned", result.VersionsPruned),
		logging.F("processed_objects", result.ProcessedObjects),
		logging.F("skipped_referenced", result.SkippedReferenced),
		logging.F("reclaimed_bytes", result.ReclaimedBytes))
	return result, nil
}

// simulateOrphans computes, without mutating anything, which objects would
// become orphaned if prunable were deleted — ref_count minus the number of
// prunable versions pointing at each hash, for every object that is
// already at or below zero references outside of this hypothetical prune.
func (e *Engine) simulateOrphans(ctx context.Context, prunable []*metastore.Version) ([]*metastore.Object, error) {
	decrements := make(map[string]int64)
	for _, v := range prunable {
		decrements[v.ObjectHash]++
	}

	var orphaned []*metastore.Object
	seen := make(map[string]bool)
	for hash := range decrements {
		if seen[hash] {
			continue
		}
		seen[hash] = true
		obj, err := e.meta.GetObject(ctx, hash)
		if err != nil {
			if cowerrors.CodeOf(err) == cowerrors.NotFound {
				continue
			}
			return nil, err
		}
		if obj.RefCount-decrements[hash] <= 0 {
			orphaned = append(orphaned, obj)
		}
	}

	existing, err := e.meta.GetOrphanedObjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, obj := range existing {
		if !seen[obj.Hash] {
			orphaned = append(orphaned, obj)
		}
	}
	return orphaned, nil
}
