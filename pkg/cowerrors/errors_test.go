package cowerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSetsCategoryAndTimestamp(t *testing.T) {
	err := New(NotFound, "file not found")
	require.NotNil(t, err)
	assert.Equal(t, NotFound, err.Code)
	assert.Equal(t, CategoryLookup, err.Category)
	assert.False(t, err.Timestamp.IsZero())
	assert.False(t, err.Retryable)
}

func TestTransactionFailedIsRetryableByDefault(t *testing.T) {
	err := New(TransactionFailed, "commit failed")
	assert.True(t, err.Retryable)
}

func TestErrorStringIncludesComponentAndOperation(t *testing.T) {
	err := New(StillReferenced, "object still referenced").
		WithComponent("engine").WithOperation("gc")
	assert.Equal(t, "[engine:gc] STILL_REFERENCED: object still referenced", err.Error())
}

func TestWithCauseUnwraps(t *testing.T) {
	cause := errors.New("disk full")
	err := New(MissingBlob, "blob missing").WithCause(cause)
	assert.Same(t, cause, errors.Unwrap(err))
}

func TestIsMatchesSameCode(t *testing.T) {
	a := New(AmbiguousSelector, "multiple matches")
	b := New(AmbiguousSelector, "different message")
	c := New(NotFound, "not found")
	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestCodeOfUnwrapsWrappedError(t *testing.T) {
	base := New(OutOfRange, "version index out of range")
	wrapped := errors.New("context: " + base.Error())
	assert.Equal(t, Internal, CodeOf(wrapped))

	fmtWrapped := fmtErrorf(base)
	assert.Equal(t, OutOfRange, CodeOf(fmtWrapped))
}

func fmtErrorf(err error) error {
	return wrapError{err}
}

type wrapError struct{ err error }

func (w wrapError) Error() string { return "wrapped: " + w.err.Error() }
func (w wrapError) Unwrap() error { return w.err }

func TestWithDetailAccumulates(t *testing.T) {
	err := New(NotEmpty, "directory not empty").
		WithDetail("path", "/a/b").
		WithDetail("children", 3)
	assert.Equal(t, "/a/b", err.Details["path"])
	assert.Equal(t, 3, err.Details["children"])
}

func TestJSONRoundTrips(t *testing.T) {
	err := New(CorruptStore, "schema mismatch").WithComponent("metastore")
	j := err.JSON()
	assert.Contains(t, j, "CORRUPT_STORE")
	assert.Contains(t, j, "metastore")
}
