package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cowfs/cowfs/internal/metastore"
	"github.com/cowfs/cowfs/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()

	os, err := objectstore.Open(filepath.Join(dir, "objects"), nil)
	require.NoError(t, err)

	ms, err := metastore.Open(context.Background(), filepath.Join(dir, "cowfs.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ms.Close() })

	return New(os, ms, nil)
}

const rootInode = 1

func TestCreateFileStartsWithOneVersion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, version, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "/a.txt", file.Path)
	assert.Equal(t, objectstore.EmptyHash, version.ObjectHash)

	_, versions, err := e.History(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestWriteFileAppendsVersionAndDeduplicates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	_, err = e.WriteFile(ctx, file.ID, []byte("hello"))
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("world"))
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("hello"))
	require.NoError(t, err)

	_, versions, err := e.History(ctx, "/a.txt")
	require.NoError(t, err)
	require.Len(t, versions, 4) // create + 3 writes
	assert.Equal(t, versions[1].ObjectHash, versions[3].ObjectHash)

	data, err := e.ReadFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestUnlinkSoftDeletesAndPreservesHistory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, e.Unlink(ctx, file.ID))

	_, err = e.meta.GetFileByPath(ctx, "/a.txt", false)
	assert.Error(t, err)

	restored, err := e.meta.GetFileByPath(ctx, "/a.txt", true)
	require.NoError(t, err)
	assert.True(t, restored.IsDeleted)
}

func TestUnlinkRecordsDeleteEvent(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	require.NoError(t, e.Unlink(ctx, file.ID))

	events, err := e.Activity(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "DELETE", last.Action)
	assert.Equal(t, "/a.txt", last.Path)
}

func TestRmdirRejectsNonEmptyDirectory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	dir, err := e.Mkdir(ctx, rootInode, "d", 0o755, 0, 0)
	require.NoError(t, err)
	_, _, err = e.CreateFile(ctx, dir.ID, "child.txt", 0o644, 0, 0)
	require.NoError(t, err)

	err = e.Rmdir(ctx, dir.ID)
	require.Error(t, err)
}

func TestRenameDirectoryMovesDescendants(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	dir, err := e.Mkdir(ctx, rootInode, "old", 0o755, 0, 0)
	require.NoError(t, err)
	child, _, err := e.CreateFile(ctx, dir.ID, "child.txt", 0o644, 0, 0)
	require.NoError(t, err)

	require.NoError(t, e.Rename(ctx, dir.ID, rootInode, "new"))

	moved, err := e.meta.GetFile(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "/new/child.txt", moved.Path)
}

func TestRestoreByIndexAppendsVersionWithSameHash(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("v1"))
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("v2"))
	require.NoError(t, err)

	idx := 2 // the "v1" write
	restored, err := e.Restore(ctx, "/a.txt", RestoreSelector{Index: &idx})
	require.NoError(t, err)

	data, err := e.ReadFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	_, versions, err := e.History(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Len(t, versions, 4) // create, v1, v2, restore
	assert.Equal(t, restored.ObjectHash, versions[1].ObjectHash)
}

func TestRestoreUndeletesSoftDeletedFile(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("v2"))
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("v3"))
	require.NoError(t, err)

	require.NoError(t, e.Unlink(ctx, file.ID))

	idx := 2
	_, err = e.Restore(ctx, "/a.txt", RestoreSelector{Index: &idx})
	require.NoError(t, err)

	restored, err := e.meta.GetFileByPath(ctx, "/a.txt", false)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)

	_, versions, err := e.History(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Len(t, versions, 4)
}

func TestRestoreRejectsOutOfRangeIndex(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)

	idx := 99
	_, err = e.Restore(ctx, "/a.txt", RestoreSelector{Index: &idx})
	require.Error(t, err)
}

func TestSnapshotRestoreSoftDeletesFilesCreatedAfterSnapshot(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, a.ID, []byte("snapshot content"))
	require.NoError(t, err)

	_, err = e.CreateSnapshot(ctx, "v1", "first")
	require.NoError(t, err)

	_, _, err = e.CreateFile(ctx, rootInode, "b.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, a.ID, []byte("post-snapshot content"))
	require.NoError(t, err)

	result, err := e.RestoreSnapshot(ctx, "v1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesRestored)
	assert.Equal(t, 1, result.FilesSoftDeleted)

	data, err := e.ReadFile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "snapshot content", string(data))

	_, err = e.meta.GetFileByPath(ctx, "/b.txt", false)
	assert.Error(t, err)
}

func TestSnapshotRestoreKeepNewLeavesNewFilesLive(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, a.ID, []byte("v1"))
	require.NoError(t, err)

	_, err = e.CreateSnapshot(ctx, "v1", "")
	require.NoError(t, err)
	_, _, err = e.CreateFile(ctx, rootInode, "b.txt", 0o644, 0, 0)
	require.NoError(t, err)

	result, err := e.RestoreSnapshot(ctx, "v1", true)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesSoftDeleted)

	_, err = e.meta.GetFileByPath(ctx, "/b.txt", false)
	assert.NoError(t, err)
}

func TestSnapshotRestoreUndeletesPinnedFile(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, a.ID, []byte("snapshot content"))
	require.NoError(t, err)

	_, err = e.CreateSnapshot(ctx, "v1", "")
	require.NoError(t, err)

	require.NoError(t, e.Unlink(ctx, a.ID))

	result, err := e.RestoreSnapshot(ctx, "v1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.FilesUndeleted)

	restored, err := e.meta.GetFileByPath(ctx, "/a.txt", false)
	require.NoError(t, err)
	assert.False(t, restored.IsDeleted)
}

func TestSnapshotRestoreCountsPinsSkippedByPrune(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	a, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, a.ID, []byte("snapshot content"))
	require.NoError(t, err)

	_, err = e.CreateSnapshot(ctx, "v1", "")
	require.NoError(t, err)

	// Move the file on to later versions so the snapshot-pinned version is
	// no longer current, then prune it out from under the snapshot.
	_, err = e.WriteFile(ctx, a.ID, []byte("later content"))
	require.NoError(t, err)
	keepLast := 1
	_, err = e.GC(ctx, GCPolicy{KeepLast: &keepLast})
	require.NoError(t, err)

	result, err := e.RestoreSnapshot(ctx, "v1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.EntriesSkippedPruned)
	assert.Equal(t, 0, result.FilesRestored)
}

func TestGCKeepLastPrunesOldestVersions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	for _, content := range []string{"v1", "v2", "v3"} {
		_, err = e.WriteFile(ctx, file.ID, []byte(content))
		require.NoError(t, err)
	}

	keepLast := 1
	result, err := e.GC(ctx, GCPolicy{KeepLast: &keepLast})
	require.NoError(t, err)
	assert.Equal(t, 3, result.VersionsPruned) // create(empty) + v1 + v2 pruned, v3 kept

	_, versions, err := e.History(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Len(t, versions, 1)
	assert.Equal(t, "v3", mustReadVersion(t, e, versions[0].ObjectHash))
}

func TestGCDryRunDoesNotMutate(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("v1"))
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("v2"))
	require.NoError(t, err)

	keepLast := 1
	result, err := e.GC(ctx, GCPolicy{KeepLast: &keepLast, DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.VersionsPruned)

	_, versions, err := e.History(ctx, "/a.txt")
	require.NoError(t, err)
	assert.Len(t, versions, 3)
}

func TestGCRejectsBothPoliciesTogether(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	keepLast := 1
	before := time.Now()
	_, err := e.GC(ctx, GCPolicy{KeepLast: &keepLast, Before: &before})
	assert.Error(t, err)
}

func TestGCBeforeCutoffNeverPrunesCurrentVersion(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	file, _, err := e.CreateFile(ctx, rootInode, "a.txt", 0o644, 0, 0)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("only version"))
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	result, err := e.GC(ctx, GCPolicy{Before: &future})
	require.NoError(t, err)
	// the empty version from create is older than the cutoff and not current
	assert.Equal(t, 1, result.VersionsPruned)
}

func mustReadVersion(t *testing.T, e *Engine, hash string) string {
	t.Helper()
	data, err := e.objects.Get(hash)
	require.NoError(t, err)
	return string(data)
}
