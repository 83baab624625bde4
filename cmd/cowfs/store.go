package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cowfs/cowfs/internal/engine"
	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/internal/objectstore"
	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// resolveStorage finds the storage directory from the --storage flag, the
// COWFS_STORAGE environment variable, and requires it to already carry a
// format marker (it is not a mount-time initializer).
func resolveStorage(flag string) (string, error) {
	dir := flag
	if dir == "" {
		dir = os.Getenv("COWFS_STORAGE")
	}
	if dir == "" {
		return "", fmt.Errorf("storage directory not set; use --storage or $COWFS_STORAGE")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	marker, err := readFormatMarker(abs)
	if err != nil {
		return "", err
	}
	if marker == nil {
		return "", fmt.Errorf("%s is not a valid COWFS storage directory", abs)
	}
	return abs, nil
}

// openEngine opens the object store and metadata store rooted at
// storageDir and returns a ready-to-use versioning engine. Callers own
// closing the returned metastore handle via the returned closer.
func openEngine(ctx context.Context, storageDir string) (*engine.Engine, func() error, error) {
	log := logging.Default()

	objStore, err := objectstore.Open(filepath.Join(storageDir, "objects"), log)
	if err != nil {
		return nil, nil, err
	}
	metaStore, err := metastore.Open(ctx, filepath.Join(storageDir, "cowfs.db"), log)
	if err != nil {
		return nil, nil, err
	}
	return engine.New(objStore, metaStore, log), metaStore.Close, nil
}

// exitCodeFor maps a cowerrors code to a process exit code, mirroring the
// FUSE adapter's errno mapping for the same taxonomy.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch cowerrors.CodeOf(err) {
	case cowerrors.NotFound:
		return 2
	case cowerrors.AlreadyExists, cowerrors.NotEmpty, cowerrors.IsDir, cowerrors.NotDir:
		return 3
	case cowerrors.AmbiguousSelector, cowerrors.InvalidArgument, cowerrors.OutOfRange:
		return 4
	case cowerrors.MissingBlob, cowerrors.CorruptStore, cowerrors.StillReferenced:
		return 5
	default:
		return 1
	}
}
