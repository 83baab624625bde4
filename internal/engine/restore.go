package engine

import (
	"context"
	"time"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// RestoreSelector picks which historical version of a file to restore.
// Exactly one field must be set.
type RestoreSelector struct {
	// Index is the 1-based position in the file's version history, as
	// shown by the history command (oldest is 1).
	Index *int
	// Before selects the latest version created at or before this instant.
	Before *time.Time
}

func (sel RestoreSelector) validate() error {
	set := 0
	if sel.Index != nil {
		set++
	}
	if sel.Before != nil {
		set++
	}
	if set != 1 {
		return cowerrors.New(cowerrors.AmbiguousSelector, "exactly one of index or before-timestamp must be set").
			WithComponent("engine").WithOperation("restore")
	}
	return nil
}

// Restore appends a new current version to the file at path whose content
// is identical to a historical version chosen by sel. Restore never
// mutates the historical version in place — it always creates a fresh
// current version carrying the same object hash, so the version history
// itself is monotonically append-only even across restores.
func (e *Engine) Restore(ctx context.Context, path string, sel RestoreSelector) (*metastore.Version, error) {
	ctx = ctxOrBackground(ctx)
	if err := sel.validate(); err != nil {
		return nil, err
	}

	// Restoring a soft-deleted file must find it and bring it back, not
	// report it missing.
	file, err := e.meta.GetFileByPath(ctx, path, true)
	if err != nil {
		return nil, err
	}
	if file.IsDir {
		return nil, cowerrors.Newf(cowerrors.IsDir, "%q is a directory", path).
			WithComponent("engine").WithOperation("restore")
	}

	target, err := e.selectVersion(ctx, file, sel)
	if err != nil {
		return nil, err
	}

	var restored *metastore.Version
	txErr := e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		v, err := e.meta.CreateVersion(ctx, t, file.ID, target.ObjectHash, target.SizeBytes, "RESTORE", path)
		if err != nil {
			return err
		}
		restored = v
		if file.IsDeleted {
			if err := e.meta.SetFileDeleted(ctx, t, file.ID, false); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	e.log.Info("file restored", logging.F("path", path), logging.F("source_version", target.ID), logging.F("new_version", restored.ID))
	return restored, nil
}

func (e *Engine) selectVersion(ctx context.Context, file *metastore.File, sel RestoreSelector) (*metastore.Version, error) {
	if sel.Index != nil {
		versions, err := e.meta.ListVersions(ctx, file.ID)
		if err != nil {
			return nil, err
		}
		idx := *sel.Index
		if idx < 1 || idx > len(versions) {
			return nil, cowerrors.Newf(cowerrors.OutOfRange, "version index %d out of range (1..%d)", idx, len(versions)).
				WithComponent("engine").WithOperation("restore")
		}
		return versions[idx-1], nil
	}

	before := sel.Before.UTC().Format(time.RFC3339Nano)
	return e.meta.GetLatestVersionBefore(ctx, file.ID, before)
}
