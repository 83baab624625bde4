package engine

import (
	"context"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// Unlink soft-deletes a regular file. Its version history and the object
// references it holds are left untouched — reclaiming them is garbage
// collection's job, not unlink's.
func (e *Engine) Unlink(ctx context.Context, inode int64) error {
	ctx = ctxOrBackground(ctx)
	file, err := e.meta.GetFile(ctx, inode)
	if err != nil {
		return err
	}
	if file.IsDir {
		return cowerrors.Newf(cowerrors.IsDir, "%q is a directory", file.Path).
			WithComponent("engine").WithOperation("unlink")
	}

	err = e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		return e.meta.SoftDeleteFile(ctx, t, inode)
	})
	if err != nil {
		return err
	}
	e.log.Debug("file unlinked", logging.F("path", file.Path))
	return nil
}

// Rmdir soft-deletes an empty directory. A directory with any live
// children — files or subdirectories — cannot be removed.
func (e *Engine) Rmdir(ctx context.Context, inode int64) error {
	ctx = ctxOrBackground(ctx)
	file, err := e.meta.GetFile(ctx, inode)
	if err != nil {
		return err
	}
	if !file.IsDir {
		return cowerrors.Newf(cowerrors.NotDir, "%q is not a directory", file.Path).
			WithComponent("engine").WithOperation("rmdir")
	}

	children, err := e.meta.ListChildren(ctx, inode)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return cowerrors.Newf(cowerrors.NotEmpty, "directory %q is not empty", file.Path).
			WithComponent("engine").WithOperation("rmdir")
	}

	err = e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		return e.meta.SoftDeleteFile(ctx, t, inode)
	})
	if err != nil {
		return err
	}
	e.log.Debug("directory removed", logging.F("path", file.Path))
	return nil
}
