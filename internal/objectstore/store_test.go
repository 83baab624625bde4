package objectstore

import (
	"testing"

	"github.com/cowfs/cowfs/pkg/cowerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	return s
}

func TestOpenStoresEmptyBlob(t *testing.T) {
	s := openTestStore(t)
	exists, err := s.Exists(EmptyHash)
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := s.Get(EmptyHash)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	hash, err := s.Put([]byte("hello world"))
	require.NoError(t, err)
	assert.Equal(t, Hash([]byte("hello world")), hash)

	data, err := s.Get(hash)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestPutIsDeduplicating(t *testing.T) {
	s := openTestStore(t)
	h1, err := s.Put([]byte("same content"))
	require.NoError(t, err)
	h2, err := s.Put([]byte("same content"))
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
}

func TestGetMissingObjectReturnsMissingBlob(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get("deadbeef00000000000000000000000000000000000000000000000000000000")
	require.Error(t, err)
	assert.Equal(t, cowerrors.MissingBlob, cowerrors.CodeOf(err))
}

func TestDeleteMissingObjectIsNotError(t *testing.T) {
	s := openTestStore(t)
	freed, err := s.Delete("deadbeef00000000000000000000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(0), freed)
}

func TestDeleteFreesReportedBytes(t *testing.T) {
	s := openTestStore(t)
	hash, err := s.Put([]byte("twelve bytes"))
	require.NoError(t, err)

	freed, err := s.Delete(hash)
	require.NoError(t, err)
	assert.Equal(t, int64(len("twelve bytes")), freed)

	exists, err := s.Exists(hash)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReaderStreamsContent(t *testing.T) {
	s := openTestStore(t)
	hash, err := s.Put([]byte("streamed"))
	require.NoError(t, err)

	r, err := s.Reader(hash)
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 8)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "streamed", string(buf[:n]))
}
