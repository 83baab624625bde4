// Package objectstore implements the content-addressed blob store: the
// lowest layer of COWFS, responsible only for storing and retrieving
// immutable byte blobs by their SHA-256 hash. It has no knowledge of
// files, versions, or names — that belongs to internal/metastore and
// internal/engine.
package objectstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/cowfs/cowfs/pkg/logging"
)

// EmptyHash is the SHA-256 hash of the zero-length blob. Every store
// contains this object from the moment it is initialized, since every
// newly created file starts out as an empty version.
const EmptyHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// Store is a directory-backed, content-addressed object store. Objects are
// sharded two levels deep by the first two hex characters of their hash
// (objects/<hh>/<rest>) to keep any one directory from growing unbounded.
type Store struct {
	root string
	log  *logging.Logger
}

// Open prepares a Store rooted at dir, creating the directory tree and the
// well-known empty blob if they do not already exist.
func Open(dir string, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, cowerrors.New(cowerrors.Internal, "create object store root").
			WithComponent("objectstore").WithOperation("open").WithCause(err)
	}
	s := &Store{root: dir, log: log.With("objectstore")}
	if _, err := s.Put(nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Hash computes the content hash of data, in the same algorithm the store
// uses for object paths.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) objectPath(hash string) (string, error) {
	if len(hash) < 3 {
		return "", cowerrors.Newf(cowerrors.InvalidArgument, "malformed object hash %q", hash).
			WithComponent("objectstore")
	}
	return filepath.Join(s.root, hash[:2], hash[2:]), nil
}

// Exists reports whether an object with the given hash is present.
func (s *Store) Exists(hash string) (bool, error) {
	path, err := s.objectPath(hash)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, cowerrors.New(cowerrors.Internal, "stat object").
		WithComponent("objectstore").WithOperation("exists").WithCause(err)
}

// Put writes data to the store under its content hash, returning the hash.
// Writing an object that already exists is a no-op beyond the existence
// check: the store is content-addressed, so two writes of the same bytes
// always produce the same object.
func (s *Store) Put(data []byte) (string, error) {
	hash := Hash(data)
	path, err := s.objectPath(hash)
	if err != nil {
		return "", err
	}

	exists, err := s.Exists(hash)
	if err != nil {
		return "", err
	}
	if exists {
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", cowerrors.New(cowerrors.Internal, "create object shard directory").
			WithComponent("objectstore").WithOperation("put").WithCause(err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", cowerrors.New(cowerrors.Internal, "create temp object file").
			WithComponent("objectstore").WithOperation("put").WithCause(err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", cowerrors.New(cowerrors.Internal, "write temp object file").
			WithComponent("objectstore").WithOperation("put").WithCause(err)
	}
	if err := tmp.Sync(); err != nil {
		return "", cowerrors.New(cowerrors.Internal, "fsync temp object file").
			WithComponent("objectstore").WithOperation("put").WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return "", cowerrors.New(cowerrors.Internal, "close temp object file").
			WithComponent("objectstore").WithOperation("put").WithCause(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", cowerrors.New(cowerrors.Internal, "rename temp object into place").
			WithComponent("objectstore").WithOperation("put").WithCause(err)
	}
	cleanup = false

	s.log.Debug("object stored", logging.F("hash", hash), logging.F("bytes", len(data)))
	return hash, nil
}

// Get reads the full contents of the object with the given hash.
func (s *Store) Get(hash string) ([]byte, error) {
	path, err := s.objectPath(hash)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cowerrors.Newf(cowerrors.MissingBlob, "object %s not found in store", hash).
				WithComponent("objectstore").WithOperation("get")
		}
		return nil, cowerrors.New(cowerrors.Internal, "read object").
			WithComponent("objectstore").WithOperation("get").WithCause(err)
	}
	return data, nil
}

// Reader opens a streaming reader for the object with the given hash. The
// caller must Close it.
func (s *Store) Reader(hash string) (io.ReadCloser, error) {
	path, err := s.objectPath(hash)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, cowerrors.Newf(cowerrors.MissingBlob, "object %s not found in store", hash).
				WithComponent("objectstore").WithOperation("reader")
		}
		return nil, cowerrors.New(cowerrors.Internal, "open object").
			WithComponent("objectstore").WithOperation("reader").WithCause(err)
	}
	return f, nil
}

// Delete removes the object with the given hash and returns the number of
// bytes freed. Deleting a missing object is not an error — it returns 0 —
// since garbage collection may race with a concurrent cleanup.
func (s *Store) Delete(hash string) (int64, error) {
	path, err := s.objectPath(hash)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, cowerrors.New(cowerrors.Internal, "stat object before delete").
			WithComponent("objectstore").WithOperation("delete").WithCause(err)
	}
	size := info.Size()
	if err := os.Remove(path); err != nil {
		return 0, cowerrors.New(cowerrors.Internal, "remove object").
			WithComponent("objectstore").WithOperation("delete").WithCause(err)
	}
	// Best-effort: remove the shard directory if it is now empty.
	_ = os.Remove(filepath.Dir(path))

	s.log.Debug("object deleted", logging.F("hash", hash), logging.F("bytes", size))
	return size, nil
}

// Stat returns the size in bytes of the object with the given hash.
func (s *Store) Stat(hash string) (int64, error) {
	path, err := s.objectPath(hash)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, cowerrors.Newf(cowerrors.MissingBlob, "object %s not found in store", hash).
				WithComponent("objectstore").WithOperation("stat")
		}
		return 0, cowerrors.New(cowerrors.Internal, "stat object").
			WithComponent("objectstore").WithOperation("stat").WithCause(err)
	}
	return info.Size(), nil
}

// Root returns the filesystem path the store is rooted at, for statfs and
// diagnostics use by callers.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) String() string {
	return fmt.Sprintf("objectstore(root=%s)", s.root)
}
