package engine

import (
	"context"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/internal/objectstore"
	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// CreateFile creates a new empty regular file under parentID and gives it
// its first version, pointing at the well-known empty blob — so a bare
// "touch" already has a one-entry history, matching the reference FUSE
// handler's create() behavior.
func (e *Engine) CreateFile(ctx context.Context, parentID int64, name string, mode, uid, gid uint32) (*metastore.File, *metastore.Version, error) {
	ctx = ctxOrBackground(ctx)
	path, err := e.childPath(ctx, parentID, name)
	if err != nil {
		return nil, nil, err
	}

	if _, err := e.objects.Put(nil); err != nil {
		return nil, nil, err
	}

	var fileID int64
	var version *metastore.Version
	txErr := e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		id, err := e.meta.CreateFile(ctx, t, parentID, name, path, false, mode, uid, gid)
		if err != nil {
			return err
		}
		v, err := e.meta.CreateVersion(ctx, t, id, objectstore.EmptyHash, 0, "CREATE", path)
		if err != nil {
			return err
		}
		fileID = id
		version = v
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}
	file, err := e.meta.GetFile(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}

	e.log.Debug("file created", logging.F("path", path))
	return file, version, nil
}

// Mkdir creates a directory row. Directories never carry versions.
func (e *Engine) Mkdir(ctx context.Context, parentID int64, name string, mode, uid, gid uint32) (*metastore.File, error) {
	ctx = ctxOrBackground(ctx)
	path, err := e.childPath(ctx, parentID, name)
	if err != nil {
		return nil, err
	}

	var fileID int64
	txErr := e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		id, err := e.meta.CreateFile(ctx, t, parentID, name, path, true, mode, uid, gid)
		if err != nil {
			return err
		}
		fileID = id
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	file, err := e.meta.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	e.log.Debug("directory created", logging.F("path", path))
	return file, nil
}

// WriteFile replaces the full content of inode with data, storing a new
// content-addressed object (deduplicated against any existing object with
// the same bytes) and appending a new current version. COWFS versions
// whole files, not byte ranges: every committed write — whether it
// changed one byte or the entire file — produces one new version.
func (e *Engine) WriteFile(ctx context.Context, inode int64, data []byte) (*metastore.Version, error) {
	ctx = ctxOrBackground(ctx)

	file, err := e.meta.GetFile(ctx, inode)
	if err != nil {
		return nil, err
	}
	if file.IsDir {
		return nil, cowerrors.Newf(cowerrors.IsDir, "cannot write to directory %q", file.Path).
			WithComponent("engine").WithOperation("write")
	}

	hash, err := e.objects.Put(data)
	if err != nil {
		return nil, err
	}

	var version *metastore.Version
	txErr := e.meta.WithTx(ctx, func(ctx context.Context, t metastore.Tx) error {
		v, err := e.meta.CreateVersion(ctx, t, inode, hash, int64(len(data)), "WRITE", file.Path)
		if err != nil {
			return err
		}
		version = v
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	e.log.Debug("write committed", logging.F("path", file.Path), logging.F("bytes", len(data)), logging.F("hash", hash))
	return version, nil
}

// ReadFile returns the full content of inode's current version.
func (e *Engine) ReadFile(ctx context.Context, inode int64) ([]byte, error) {
	ctx = ctxOrBackground(ctx)
	v, err := e.meta.GetCurrentVersion(ctx, inode)
	if err != nil {
		return nil, err
	}
	return e.objects.Get(v.ObjectHash)
}

func (e *Engine) childPath(ctx context.Context, parentID int64, name string) (string, error) {
	if parentID == 1 && name == "" {
		return "/", nil
	}
	parent, err := e.meta.GetFile(ctx, parentID)
	if err != nil {
		return "", err
	}
	if !parent.IsDir {
		return "", cowerrors.Newf(cowerrors.NotDir, "parent %q is not a directory", parent.Path).
			WithComponent("engine").WithOperation("child_path")
	}
	if parent.Path == "/" {
		return "/" + name, nil
	}
	return parent.Path + "/" + name, nil
}
