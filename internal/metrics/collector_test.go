package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowfs/cowfs/pkg/cowerrors"
)

func TestRecordOperationCountsSuccessAndFailure(t *testing.T) {
	c := NewCollector(DefaultConfig())

	c.RecordOperation("write", 10*time.Millisecond, nil)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.operationTotal.WithLabelValues("write")))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.operationErrors.WithLabelValues("write", string(cowerrors.NotFound))))

	err := cowerrors.New(cowerrors.NotFound, "missing")
	c.RecordOperation("write", 5*time.Millisecond, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(c.operationTotal.WithLabelValues("write")))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.operationErrors.WithLabelValues("write", string(cowerrors.NotFound))))
}

func TestObserveRecordsOutcomeAndReturnsError(t *testing.T) {
	c := NewCollector(DefaultConfig())

	gotErr := c.Observe("gc", func() error { return nil })
	require.NoError(t, gotErr)

	sentinel := cowerrors.New(cowerrors.Internal, "boom")
	gotErr = c.Observe("gc", func() error { return sentinel })
	assert.ErrorIs(t, gotErr, sentinel)
	assert.Equal(t, float64(2), testutil.ToFloat64(c.operationTotal.WithLabelValues("gc")))
}

func TestSetStoreStatsUpdatesGauges(t *testing.T) {
	c := NewCollector(DefaultConfig())
	c.SetStoreStats(10, 2048, 1, 9)

	assert.Equal(t, float64(10), testutil.ToFloat64(c.objectsTotal))
	assert.Equal(t, float64(2048), testutil.ToFloat64(c.objectsBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.orphansGauge))
	assert.Equal(t, float64(9), testutil.ToFloat64(c.filesLiveGauge))
}

func TestHandlerServesMetrics(t *testing.T) {
	c := NewCollector(DefaultConfig())
	c.RecordOperation("read", time.Millisecond, nil)
	require.NotNil(t, c.Handler())
}
