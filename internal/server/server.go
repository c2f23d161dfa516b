// Package server exposes the collected metrics over HTTP: Prometheus
// exposition on /metrics, JSON on /metrics/json[/<section>], and a
// liveness endpoint backed by the collector registry. The server owns
// routing, status codes, and request lifecycle; collection semantics
// live in the collector package.
package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/hostpulse/agent/internal/config"
	"github.com/hostpulse/agent/internal/models"
)

// Source is the slice of the coordinator the server needs: run one
// collection round, report liveness.
type Source interface {
	Collect(ctx context.Context) (*models.Snapshot, error)
	Healthy() bool
}

// Server serves the metrics and health endpoints.
type Server struct {
	cfg    *config.Config
	source Source
	logger *zap.Logger
	http   *http.Server
}

// New creates the HTTP server around a metrics source.
func New(cfg *config.Config, source Source, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		source: source,
		logger: logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/metrics/json", s.handleJSON)
	mux.HandleFunc("/metrics/json/", s.handleJSONSection)

	s.http = &http.Server{
		Addr:         cfg.Server.ListenAddr(),
		Handler:      s.withLogging(mux),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}
	return s
}

// Run starts the listener and blocks until ctx is cancelled, then shuts
// down gracefully within the configured timeout. In-flight collector
// polls are abandoned by their round contexts, so shutdown never waits
// on a slow source.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("HTTP server listening", zap.String("addr", s.http.Addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
