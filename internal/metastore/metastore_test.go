package metastore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cowfs.db")
	s, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsRootInode(t *testing.T) {
	s := openTestStore(t)
	root, err := s.GetFile(context.Background(), rootInodeID)
	require.NoError(t, err)
	assert.Equal(t, "/", root.Path)
	assert.True(t, root.IsDir)
}

func TestCreateFileAndLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var fileID int64
	err := s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		id, err := s.CreateFile(ctx, t, rootInodeID, "a.txt", "/a.txt", false, 0o644, 0, 0)
		fileID = id
		return err
	})
	require.NoError(t, err)

	found, err := s.Lookup(ctx, rootInodeID, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, fileID, found.ID)
}

func TestCreateVersionUpdatesRefCountAndCurrentVersion(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var fileID, versionID int64
	err := s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		id, err := s.CreateFile(ctx, t, rootInodeID, "a.txt", "/a.txt", false, 0o644, 0, 0)
		if err != nil {
			return err
		}
		fileID = id
		v, err := s.CreateVersion(ctx, t, fileID, "hash1", 11, "WRITE", "/a.txt")
		if err != nil {
			return err
		}
		versionID = v.ID
		return nil
	})
	require.NoError(t, err)

	f, err := s.GetFile(ctx, fileID)
	require.NoError(t, err)
	require.NotNil(t, f.CurrentVersionID)
	assert.Equal(t, versionID, *f.CurrentVersionID)

	obj, err := s.GetObject(ctx, "hash1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), obj.RefCount)

	cur, err := s.GetCurrentVersion(ctx, fileID)
	require.NoError(t, err)
	assert.Equal(t, "hash1", cur.ObjectHash)
}

func TestRenameDirectoryRewritesDescendantPaths(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var dirID, childID int64
	err := s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		id, err := s.CreateFile(ctx, t, rootInodeID, "olddir", "/olddir", true, 0o755, 0, 0)
		if err != nil {
			return err
		}
		dirID = id
		cid, err := s.CreateFile(ctx, t, dirID, "child.txt", "/olddir/child.txt", false, 0o644, 0, 0)
		childID = cid
		return err
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		return s.RenameFile(ctx, t, dirID, rootInodeID, "newdir", "/newdir", "/olddir", true)
	})
	require.NoError(t, err)

	child, err := s.GetFile(ctx, childID)
	require.NoError(t, err)
	assert.Equal(t, "/newdir/child.txt", child.Path)
}

func TestSoftDeleteThenGetFileByPathIncludeDeleted(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var fileID int64
	err := s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		id, err := s.CreateFile(ctx, t, rootInodeID, "a.txt", "/a.txt", false, 0o644, 0, 0)
		fileID = id
		return err
	})
	require.NoError(t, err)

	err = s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		return s.SoftDeleteFile(ctx, t, fileID)
	})
	require.NoError(t, err)

	_, err = s.GetFileByPath(ctx, "/a.txt", false)
	assert.Error(t, err)

	found, err := s.GetFileByPath(ctx, "/a.txt", true)
	require.NoError(t, err)
	assert.True(t, found.IsDeleted)
}

func TestListPrunableVersionsKeepLast(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var fileID int64
	err := s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		id, err := s.CreateFile(ctx, t, rootInodeID, "a.txt", "/a.txt", false, 0o644, 0, 0)
		if err != nil {
			return err
		}
		fileID = id
		for i, h := range []string{"h1", "h2", "h3"} {
			if _, err := s.CreateVersion(ctx, t, fileID, h, int64(i), "WRITE", "/a.txt"); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	prunable, err := s.ListPrunableVersions(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, prunable, 2)
}

func TestCreateSnapshotPinsLiveFiles(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		id, err := s.CreateFile(ctx, t, rootInodeID, "a.txt", "/a.txt", false, 0o644, 0, 0)
		if err != nil {
			return err
		}
		_, err = s.CreateVersion(ctx, t, id, "hash1", 5, "WRITE", "/a.txt")
		return err
	})
	require.NoError(t, err)

	var snap *Snapshot
	err = s.WithTx(ctx, func(ctx context.Context, t Tx) error {
		var err error
		snap, err = s.CreateSnapshot(ctx, t, "v1", "first snapshot")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.FileCount)

	entries, err := s.GetSnapshotEntriesDetailed(ctx, snap.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "/a.txt", entries[0].Path)
	assert.Equal(t, "hash1", entries[0].ObjectHash)
}
