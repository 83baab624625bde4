package engine

import (
	"context"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// SetAttr updates mode/uid/gid on a file row. Any of the three may be nil
// to leave that field unchanged, matching pyfuse3's per-field dirty flags
// in setattr.
func (e *Engine) SetAttr(ctx context.Context, inode int64, mode, uid, gid *uint32) error {
	ctx = ctxOrBackground(ctx)
	return e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		return e.meta.UpdateAttrs(ctx, t, inode, mode, uid, gid)
	})
}

// Truncate resizes a regular file's current content to size, zero-padding
// on growth, and commits the result as a new version. Truncation is a
// content change like any write: it never rewrites history in place.
func (e *Engine) Truncate(ctx context.Context, inode int64, size int64) (*metastore.Version, error) {
	ctx = ctxOrBackground(ctx)

	file, err := e.meta.GetFile(ctx, inode)
	if err != nil {
		return nil, err
	}
	if file.IsDir {
		return nil, cowerrors.Newf(cowerrors.IsDir, "cannot truncate directory %q", file.Path).
			WithComponent("engine").WithOperation("truncate")
	}
	if size < 0 {
		return nil, cowerrors.New(cowerrors.InvalidArgument, "truncate size must be non-negative").
			WithComponent("engine").WithOperation("truncate")
	}

	data, err := e.ReadFile(ctx, inode)
	if err != nil {
		return nil, err
	}

	resized := make([]byte, size)
	copy(resized, data)

	version, err := e.WriteFile(ctx, inode, resized)
	if err != nil {
		return nil, err
	}
	e.log.Debug("truncated", logging.F("path", file.Path), logging.F("size", size))
	return version, nil
}
