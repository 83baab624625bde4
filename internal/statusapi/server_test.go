package statusapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cowfs/cowfs/internal/health"
	"github.com/cowfs/cowfs/internal/metrics"
	"github.com/cowfs/cowfs/pkg/logging"
)

func newTestServer(tracker *health.Tracker, collector *metrics.Collector) *Server {
	return NewServer(DefaultConfig(), tracker, collector, logging.Default())
}

func TestHealthzReportsHealthyWithNoTracker(t *testing.T) {
	s := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	s.handleHealthz(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestHealthzReportsUnavailableFromTracker(t *testing.T) {
	tracker := health.NewTracker(health.TrackerConfig{DegradedThreshold: 1, UnavailableThreshold: 1})
	tracker.Register("objectstore")
	tracker.RecordError("objectstore", assertErr{})

	s := newTestServer(tracker, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	s.handleHealthz(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsWithoutCollectorIs503(t *testing.T) {
	s := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	s.handleMetrics(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsServesPrometheusExposition(t *testing.T) {
	c := metrics.NewCollector(metrics.DefaultConfig())
	c.RecordOperation("write", 0, nil)

	s := newTestServer(nil, c)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	s.handleMetrics(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cowfs_operations_total")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
