package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowfs/cowfs/pkg/cowerrors"
)

func TestRetryerSucceedsOnFirstAttempt(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	retryer := New(config)

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryerRetriesRetryableCode(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	config.InitialDelay = 5 * time.Millisecond
	config.Jitter = false
	retryer := New(config)

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		if attempts < 3 {
			return cowerrors.New(cowerrors.TransactionFailed, "db is locked")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryerDoesNotRetryNonRetryableCode(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	config.InitialDelay = 5 * time.Millisecond
	retryer := New(config)

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		return cowerrors.New(cowerrors.NotFound, "no such path")
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryerHonorsExplicitRetryableFlag(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	config.InitialDelay = 5 * time.Millisecond
	config.RetryableErrors = nil
	retryer := New(config)

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		if attempts < 2 {
			return cowerrors.New(cowerrors.TransactionFailed, "db is locked")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestRetryerExhaustsAttempts(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 3
	config.InitialDelay = 2 * time.Millisecond
	retryer := New(config)

	attempts := 0
	err := retryer.Do(func() error {
		attempts++
		return cowerrors.New(cowerrors.TransactionFailed, "db is locked")
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryerRespectsContextCancellation(t *testing.T) {
	config := DefaultConfig()
	config.MaxAttempts = 5
	config.InitialDelay = 50 * time.Millisecond
	retryer := New(config)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retryer.DoWithContext(ctx, func(ctx context.Context) error {
		return cowerrors.New(cowerrors.TransactionFailed, "db is locked")
	})

	require.Error(t, err)
}

func TestRetryWithBackoffOverridesMaxAttempts(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), 2, func() error {
		attempts++
		return cowerrors.New(cowerrors.Internal, "transient")
	})

	require.Error(t, err)
	assert.Equal(t, 2, attempts)
}
