package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAttrUpdatesOnlyGivenFields(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	file, _, err := e.CreateFile(ctx, rootInode, "f.txt", 0o644, 1000, 1000)
	require.NoError(t, err)

	newMode := uint32(0o600)
	require.NoError(t, e.SetAttr(ctx, file.ID, &newMode, nil, nil))

	got, err := e.Meta().GetFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, newMode, got.Mode)
	assert.Equal(t, uint32(1000), got.UID)
}

func TestTruncateGrowsWithZeroBytes(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	file, _, err := e.CreateFile(ctx, rootInode, "f.txt", 0o644, 1000, 1000)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("hi"))
	require.NoError(t, err)

	_, err = e.Truncate(ctx, file.ID, 5)
	require.NoError(t, err)

	data, err := e.ReadFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte{'h', 'i', 0, 0, 0}, data)
}

func TestTruncateShrinks(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	file, _, err := e.CreateFile(ctx, rootInode, "f.txt", 0o644, 1000, 1000)
	require.NoError(t, err)
	_, err = e.WriteFile(ctx, file.ID, []byte("hello world"))
	require.NoError(t, err)

	_, err = e.Truncate(ctx, file.ID, 5)
	require.NoError(t, err)

	data, err := e.ReadFile(ctx, file.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
