package engine

import (
	"context"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/pkg/logging"
)

// CreateSnapshot pins the current version of every live file under name.
func (e *Engine) CreateSnapshot(ctx context.Context, name, description string) (*metastore.Snapshot, error) {
	ctx = ctxOrBackground(ctx)
	var snap *metastore.Snapshot
	err := e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		s, err := e.meta.CreateSnapshot(ctx, t, name, description)
		if err != nil {
			return err
		}
		if err := e.meta.RecordEvent(ctx, t, "SNAPSHOT_CREATE", "", nil, ""); err != nil {
			return err
		}
		snap = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.log.Info("snapshot created", logging.F("name", name), logging.F("file_count", snap.FileCount))
	return snap, nil
}

// ListSnapshots lists every snapshot in creation order.
func (e *Engine) ListSnapshots(ctx context.Context) ([]*metastore.Snapshot, error) {
	return e.meta.ListSnapshots(ctxOrBackground(ctx))
}

// ShowSnapshot returns the detailed per-file entries of a named snapshot.
func (e *Engine) ShowSnapshot(ctx context.Context, name string) ([]*metastore.SnapshotEntryDetail, error) {
	ctx = ctxOrBackground(ctx)
	snap, err := e.meta.GetSnapshotByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return e.meta.GetSnapshotEntriesDetailed(ctx, snap.ID)
}

// DeleteSnapshot removes a named snapshot and its pins. This never touches
// the objects or versions the snapshot referenced — those are reclaimed
// (if no longer referenced from anywhere) only by garbage collection.
func (e *Engine) DeleteSnapshot(ctx context.Context, name string) error {
	ctx = ctxOrBackground(ctx)
	snap, err := e.meta.GetSnapshotByName(ctx, name)
	if err != nil {
		return err
	}
	return e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		return e.meta.DeleteSnapshot(ctx, t, snap.ID)
	})
}

// SnapshotRestoreResult summarizes the effect of restoring a snapshot.
type SnapshotRestoreResult struct {
	FilesRestored        int
	FilesSoftDeleted     int
	FilesUndeleted       int
	EntriesSkippedPruned int
}

// RestoreSnapshot rolls the live tree back to a named snapshot: every
// pinned file gets a fresh current version carrying the snapshot-time
// object hash (restore never rewrites history in place), and — unless
// keepNew is set — every live file that is not part of the snapshot is
// soft-deleted, since it did not exist at snapshot time.
func (e *Engine) RestoreSnapshot(ctx context.Context, name string, keepNew bool) (*SnapshotRestoreResult, error) {
	ctx = ctxOrBackground(ctx)
	snap, err := e.meta.GetSnapshotByName(ctx, name)
	if err != nil {
		return nil, err
	}
	rawEntries, err := e.meta.GetSnapshotEntries(ctx, snap.ID)
	if err != nil {
		return nil, err
	}
	entries, err := e.meta.GetSnapshotEntriesDetailed(ctx, snap.ID)
	if err != nil {
		return nil, err
	}
	pinned := make(map[int64]bool, len(entries))
	for _, entry := range entries {
		pinned[entry.FileID] = true
	}

	result := &SnapshotRestoreResult{
		// GetSnapshotEntriesDetailed inner-joins against versions, so a pin
		// whose historical version has since been pruned by GC silently
		// drops out of entries while still counting in rawEntries.
		EntriesSkippedPruned: len(rawEntries) - len(entries),
	}
	var liveIDs []int64
	if !keepNew {
		liveIDs, err = e.meta.ListActiveFileIDs(ctx)
		if err != nil {
			return nil, err
		}
	}
	txErr := e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		for _, entry := range entries {
			if _, err := e.meta.CreateVersion(ctx, t, entry.FileID, entry.ObjectHash, entry.SizeBytes, "SNAPSHOT_RESTORE", entry.Path); err != nil {
				return err
			}
			result.FilesRestored++

			if entry.IsDeleted {
				if err := e.meta.SetFileDeleted(ctx, t, entry.FileID, false); err != nil {
					return err
				}
				result.FilesUndeleted++
			}
		}

		if !keepNew {
			for _, id := range liveIDs {
				if pinned[id] {
					continue
				}
				if err := e.meta.SoftDeleteFile(ctx, t, id); err != nil {
					return err
				}
				result.FilesSoftDeleted++
			}
		}

		return e.meta.RecordEvent(ctx, t, "SNAPSHOT_RESTORE", "", nil, "")
	})
	if txErr != nil {
		return nil, txErr
	}

	e.log.Info("snapshot restored", logging.F("name", name),
		logging.F("files_restored", result.FilesRestored), logging.F("files_soft_deleted", result.FilesSoftDeleted),
		logging.F("files_undeleted", result.FilesUndeleted), logging.F("entries_skipped_pruned", result.EntriesSkippedPruned))
	return result, nil
}
