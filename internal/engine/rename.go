package engine

import (
	"context"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// Rename moves inode to newName under newParentID. If the destination path
// is already occupied by a live entry, that entry is soft-deleted first —
// except when it is a non-empty directory, which refuses the rename
// outright, matching ordinary POSIX rename semantics.
func (e *Engine) Rename(ctx context.Context, inode, newParentID int64, newName string) error {
	ctx = ctxOrBackground(ctx)

	file, err := e.meta.GetFile(ctx, inode)
	if err != nil {
		return err
	}
	newPath, err := e.childPath(ctx, newParentID, newName)
	if err != nil {
		return err
	}

	existing, err := e.meta.GetFileByPath(ctx, newPath, false)
	hasExisting := err == nil
	if err != nil && cowerrors.CodeOf(err) != cowerrors.NotFound {
		return err
	}

	if hasExisting {
		if existing.IsDir {
			children, err := e.meta.ListChildren(ctx, existing.ID)
			if err != nil {
				return err
			}
			if len(children) > 0 {
				return cowerrors.Newf(cowerrors.NotEmpty, "destination directory %q is not empty", newPath).
					WithComponent("engine").WithOperation("rename")
			}
		}
	}

	oldPath := file.Path
	txErr := e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		if hasExisting {
			if err := e.meta.SoftDeleteFile(ctx, t, existing.ID); err != nil {
				return err
			}
		}
		return e.meta.RenameFile(ctx, t, inode, newParentID, newName, newPath, oldPath, file.IsDir)
	})
	if txErr != nil {
		return txErr
	}

	e.log.Debug("file renamed", logging.F("from", oldPath), logging.F("to", newPath))
	return nil
}
