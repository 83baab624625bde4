package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValidOnceRootIsSet(t *testing.T) {
	cfg := Default()
	cfg.Storage.Root = "/var/lib/cowfs/vol"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.WorkerPool.Size)
	assert.Equal(t, 5*time.Second, cfg.Cache.TTL)
}

func TestValidateRejectsEmptyRoot(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnsupportedHashAlgo(t *testing.T) {
	cfg := Default()
	cfg.Storage.Root = "/vol"
	cfg.Storage.HashAlgo = "md5"
	assert.Error(t, cfg.Validate())
}

func TestLoadParsesYAMLAndAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cowfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  root: `+dir+`
worker_pool:
  size: 16
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Storage.Root)
	assert.Equal(t, 16, cfg.WorkerPool.Size)
	assert.Equal(t, "sha256", cfg.Storage.HashAlgo)
}

func TestEnvOverrideWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cowfs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  root: /from-file
`), 0o644))

	t.Setenv("COWFS_STORAGE", dir)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.Storage.Root)
}

func TestObjectsAndMetadataPathsJoinRoot(t *testing.T) {
	cfg := Default()
	cfg.Storage.Root = "/vol"
	assert.Equal(t, "/vol/objects", cfg.ObjectsPath())
	assert.Equal(t, "/vol/cowfs.db", cfg.MetadataPath())
}
