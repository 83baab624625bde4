// Package metrics provides Prometheus-based metrics collection for COWFS
// engine operations: counts, durations, and errors for write, read,
// restore, snapshot, and gc, plus gauges for store size.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cowfs/cowfs/pkg/cowerrors"
)

// Config controls the collector's Prometheus namespace/subsystem.
type Config struct {
	Namespace string `yaml:"namespace"`
	Subsystem string `yaml:"subsystem"`
}

// DefaultConfig returns the standard COWFS metrics namespace.
func DefaultConfig() *Config {
	return &Config{Namespace: "cowfs"}
}

// Collector aggregates the Prometheus metrics for engine operations.
type Collector struct {
	registry *prometheus.Registry

	operationTotal    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec

	objectsTotal   prometheus.Gauge
	objectsBytes   prometheus.Gauge
	orphansGauge   prometheus.Gauge
	filesLiveGauge prometheus.Gauge
}

// NewCollector builds a Collector with its own private registry.
func NewCollector(cfg *Config) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		operationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "operations_total",
			Help:      "Total engine operations by type.",
		}, []string{"operation"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Engine operation latency distribution.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "operation_errors_total",
			Help:      "Total engine operation failures by type and error code.",
		}, []string{"operation", "code"}),
		objectsTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "objects_total",
			Help:      "Distinct content-addressed objects in the store.",
		}),
		objectsBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "objects_bytes",
			Help:      "Total bytes occupied by stored objects.",
		}),
		orphansGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "orphaned_objects",
			Help:      "Objects with a zero reference count awaiting GC.",
		}),
		filesLiveGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "files_live",
			Help:      "Non-deleted files tracked in the metadata store.",
		}),
	}

	registry.MustRegister(
		c.operationTotal,
		c.operationDuration,
		c.operationErrors,
		c.objectsTotal,
		c.objectsBytes,
		c.orphansGauge,
		c.filesLiveGauge,
	)
	return c
}

// Handler returns the HTTP handler serving this collector's registry in
// Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, e.g. to merge with process
// collectors in the status server.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordOperation records a single operation's outcome and latency. err
// may be nil; when non-nil, its cowerrors code labels the error counter.
func (c *Collector) RecordOperation(operation string, duration time.Duration, err error) {
	c.operationTotal.WithLabelValues(operation).Inc()
	c.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		c.operationErrors.WithLabelValues(operation, string(cowerrors.CodeOf(err))).Inc()
	}
}

// Observe times fn as the named operation, recording its outcome.
func (c *Collector) Observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	c.RecordOperation(operation, time.Since(start), err)
	return err
}

// SetStoreStats updates the store-level gauges, typically after a stats
// query or a GC run.
func (c *Collector) SetStoreStats(objectsTotal int64, objectsBytes int64, orphaned int64, filesLive int64) {
	c.objectsTotal.Set(float64(objectsTotal))
	c.objectsBytes.Set(float64(objectsBytes))
	c.orphansGauge.Set(float64(orphaned))
	c.filesLiveGauge.Set(float64(filesLive))
}
