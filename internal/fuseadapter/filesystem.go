// Package fuseadapter binds the versioning engine to the kernel through
// go-fuse/v2: every FUSE callback resolves to a COWFS inode id and calls
// straight into internal/engine, so the POSIX surface carries no
// filesystem logic of its own.
package fuseadapter

import (
	"context"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"golang.org/x/sync/semaphore"

	"github.com/cowfs/cowfs/internal/engine"
	"github.com/cowfs/cowfs/internal/health"
	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/internal/metrics"
	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// Config controls mount-time behavior of the adapter.
type Config struct {
	AllowOther  bool
	ReadOnly    bool
	FSName      string
	AttrTimeout time.Duration
	WorkerPool  int
}

// DefaultConfig returns sane defaults for a local single-user mount.
func DefaultConfig() Config {
	return Config{
		FSName:      "cowfs",
		AttrTimeout: time.Second,
		WorkerPool:  8,
	}
}

// FileSystem is the go-fuse root: it owns the engine and a semaphore of
// worker slots (see withWorker). No callback acquires a slot, so engine
// and object-store I/O runs on the FUSE dispatch goroutines.
type FileSystem struct {
	eng         *engine.Engine
	cfg         Config
	storageRoot string
	log         *logging.Logger
	health      *health.Tracker
	collector   *metrics.Collector
	sem         *semaphore.Weighted

	handles *handleTable
	buffers *bufferStore
}

// New constructs a FileSystem over an already-open engine. storageRoot is
// the on-disk directory backing the object/metadata stores, used for
// statfs's real disk-space numbers.
func New(eng *engine.Engine, cfg Config, storageRoot string, log *logging.Logger, tracker *health.Tracker, collector *metrics.Collector) *FileSystem {
	if log == nil {
		log = logging.Default()
	}
	if cfg.WorkerPool <= 0 {
		cfg.WorkerPool = 8
	}
	return &FileSystem{
		eng:         eng,
		cfg:         cfg,
		storageRoot: storageRoot,
		log:         log.With("fuseadapter"),
		health:      tracker,
		collector:   collector,
		sem:         semaphore.NewWeighted(int64(cfg.WorkerPool)),
		handles:     newHandleTable(),
		buffers:     newBufferStore(),
	}
}

// Root returns the root inode for go-fuse's mount setup.
func (f *FileSystem) Root() fs.InodeEmbedder {
	return &Node{fsys: f, inode: metastore.RootInodeID}
}

// MountOptions builds the go-fuse mount options for this configuration.
func (f *FileSystem) MountOptions() *fs.Options {
	opts := &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     f.cfg.FSName,
			Name:       f.cfg.FSName,
			AllowOther: f.cfg.AllowOther,
		},
		AttrTimeout:  &f.cfg.AttrTimeout,
		EntryTimeout: &f.cfg.AttrTimeout,
	}
	if f.cfg.ReadOnly {
		opts.Options = append(opts.Options, "ro")
	}
	return opts
}

// withWorker runs fn holding a worker-pool slot, bounding concurrent
// blocking object-store/metastore calls the way the reference
// implementation bounds concurrent trio.to_thread.run_sync calls.
func (f *FileSystem) withWorker(ctx context.Context, fn func() error) error {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer f.sem.Release(1)
	return fn()
}

func (f *FileSystem) observe(operation string, err error) {
	if f.collector != nil {
		f.collector.RecordOperation(operation, 0, err)
	}
	if f.health != nil {
		f.health.Observe("engine", err)
	}
}

// toErrno translates a cowerrors code (or any other error) into the
// syscall.Errno the kernel expects.
func toErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	switch cowerrors.CodeOf(err) {
	case cowerrors.NotFound:
		return syscall.ENOENT
	case cowerrors.AlreadyExists:
		return syscall.EEXIST
	case cowerrors.NotEmpty:
		return syscall.ENOTEMPTY
	case cowerrors.IsDir:
		return syscall.EISDIR
	case cowerrors.NotDir:
		return syscall.ENOTDIR
	case cowerrors.OutOfRange:
		return syscall.EINVAL
	case cowerrors.InvalidArgument:
		return syscall.EINVAL
	case cowerrors.MissingBlob, cowerrors.CorruptStore:
		return syscall.EIO
	default:
		return syscall.EIO
	}
}
