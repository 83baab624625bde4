// Package engine implements the Versioning Engine: the component that
// turns Object Store blobs and Metadata Store rows into the COWFS
// semantics of files, versions, renames, restores, snapshots, and
// garbage collection. Every operation that mutates more than one
// metadata row runs inside a single metastore transaction, so a crash or
// error mid-operation never leaves the tree, the version history, or the
// object reference counts inconsistent with one another.
package engine

import (
	"context"
	"sync"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/internal/objectstore"
	"github.com/cowfs/cowfs/pkg/logging"
)

// Engine is the versioning engine: the single object through which every
// file-tree mutation flows.
type Engine struct {
	objects *objectstore.Store
	meta    *metastore.Store
	log     *logging.Logger

	locksMu sync.Mutex
	locks   map[int64]*sync.Mutex
}

// New constructs an Engine over an already-open object store and metadata
// store.
func New(objects *objectstore.Store, meta *metastore.Store, log *logging.Logger) *Engine {
	if log == nil {
		log = logging.Default()
	}
	return &Engine{
		objects: objects,
		meta:    meta,
		log:     log.With("engine"),
		locks:   make(map[int64]*sync.Mutex),
	}
}

// lockInode returns the per-inode mutex, creating it on first use. The FUSE
// adapter holds it (through WithInodeLock) around buffer mutations and
// flushes; engine operations themselves do not take it.
// A single process-wide map is safe here because COWFS is single-process
// (the FUSE adapter's cooperative event loop plus worker pool), matching
// the concurrency model the reference FUSE handler assumes.
func (e *Engine) lockInode(inode int64) *sync.Mutex {
	e.locksMu.Lock()
	defer e.locksMu.Unlock()
	l, ok := e.locks[inode]
	if !ok {
		l = &sync.Mutex{}
		e.locks[inode] = l
	}
	return l
}

// WithInodeLock runs fn while holding the per-inode lock for inode.
func (e *Engine) WithInodeLock(inode int64, fn func() error) error {
	l := e.lockInode(inode)
	l.Lock()
	defer l.Unlock()
	return fn()
}

// Meta exposes the underlying metadata store for components (the FUSE
// adapter's attribute cache, the CLI's read-only inspection commands) that
// need direct read access without going through an engine operation.
func (e *Engine) Meta() *metastore.Store {
	return e.meta
}

// Objects exposes the underlying object store, for the same reason.
func (e *Engine) Objects() *objectstore.Store {
	return e.objects
}

// ctxOrBackground returns ctx if non-nil, else context.Background(). FUSE
// callbacks always provide one; CLI commands sometimes call engine methods
// outside of any request context.
func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
