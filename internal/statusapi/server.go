// Package statusapi exposes a small HTTP server for monitoring a COWFS
// mount: a health probe and a Prometheus metrics endpoint. It carries no
// REST surface over filesystem operations — those stay on FUSE and the
// cowfs CLI.
package statusapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cowfs/cowfs/internal/health"
	"github.com/cowfs/cowfs/internal/metrics"
	"github.com/cowfs/cowfs/pkg/logging"
)

// Config configures the status server.
type Config struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the standard local bind address.
func DefaultConfig() Config {
	return Config{Addr: "127.0.0.1:9090"}
}

// Server serves /healthz and /metrics for a running mount.
type Server struct {
	httpServer *http.Server
	health     *health.Tracker
	collector  *metrics.Collector
	log        *logging.Logger
}

// NewServer builds a Server. collector may be nil, in which case /metrics
// responds 503.
func NewServer(cfg Config, tracker *health.Tracker, collector *metrics.Collector, log *logging.Logger) *Server {
	s := &Server{health: tracker, collector: collector, log: log.With("statusapi")}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/metrics", s.handleMetrics)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start blocks serving until the server is shut down or fails.
func (s *Server) Start() error {
	s.log.Info("starting status server", logging.F("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// StartBackground starts the server in a goroutine, logging any failure.
func (s *Server) StartBackground() {
	go func() {
		if err := s.Start(); err != nil {
			s.log.Error("status server stopped", logging.F("error", err.Error()))
		}
	}()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if s.health == nil {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"status": "healthy"})
		return
	}

	overall := s.health.Overall()
	statusCode := http.StatusOK
	if overall == health.StateUnavailable {
		statusCode = http.StatusServiceUnavailable
	}

	s.respondJSON(w, statusCode, map[string]interface{}{
		"status":     overall.String(),
		"components": s.health.Snapshot(),
		"timestamp":  time.Now(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if s.collector == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	s.collector.Handler().ServeHTTP(w, r)
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("encode response", logging.F("error", err.Error()))
	}
}
