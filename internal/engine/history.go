package engine

import (
	"context"

	"github.com/cowfs/cowfs/internal/metastore"
)

// History returns the full live version history of the file at path,
// oldest first, together with the file row, whose CurrentVersionID callers
// use to mark the current version.
func (e *Engine) History(ctx context.Context, path string) (file *metastore.File, versions []*metastore.Version, err error) {
	ctx = ctxOrBackground(ctx)
	file, err = e.meta.GetFileByPath(ctx, path, false)
	if err != nil {
		return nil, nil, err
	}
	versions, err = e.meta.ListVersions(ctx, file.ID)
	if err != nil {
		return nil, nil, err
	}
	return file, versions, nil
}

// Activity returns the most recent limit events across the whole store,
// oldest of the window first.
func (e *Engine) Activity(ctx context.Context, limit int) ([]*metastore.Event, error) {
	return e.meta.ListEvents(ctxOrBackground(ctx), limit)
}

// Stats reports store-wide size and dedup accounting.
func (e *Engine) Stats(ctx context.Context) (*metastore.Stats, error) {
	return e.meta.GetStats(ctxOrBackground(ctx))
}
