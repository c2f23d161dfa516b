package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hostpulse/agent/internal/collector"
	"github.com/hostpulse/agent/internal/exporter"
	"github.com/hostpulse/agent/internal/models"
)

// healthResponse is the body of the /health endpoint.
type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Reason    string    `json:"reason,omitempty"`
}

// errorResponse is the JSON body written for request failures.
type errorResponse struct {
	Error string `json:"error"`
}

// handleHealth reports liveness: healthy while at least one collector is
// available, 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !s.source.Healthy() {
		s.writeJSON(w, http.StatusServiceUnavailable, healthResponse{
			Status:    "unavailable",
			Timestamp: time.Now().UTC(),
			Reason:    "no telemetry sources configured",
		})
		return
	}

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
	})
}

// handleMetrics serves the Prometheus exposition document. A round with
// partial hardware failure still answers 200; the failed sections are
// simply absent from the body.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := s.collect(w, r)
	if snap == nil || err != nil {
		return
	}

	body, err := exporter.RenderPrometheus(snap)
	if err != nil {
		s.logger.Error("Exposition encoding failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "metrics encoding failed")
		return
	}

	w.Header().Set("Content-Type", exporter.ContentTypeText)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleJSON serves the full snapshot as JSON.
func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := s.collect(w, r)
	if snap == nil || err != nil {
		return
	}

	body, err := exporter.RenderJSON(snap)
	if err != nil {
		s.logger.Error("JSON encoding failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "metrics encoding failed")
		return
	}

	w.Header().Set("Content-Type", exporter.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleJSONSection serves one collector's slice of the snapshot, e.g.
// /metrics/json/cpu.
func (s *Server) handleJSONSection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	section := strings.TrimPrefix(r.URL.Path, "/metrics/json/")
	if section == "" || strings.Contains(section, "/") {
		s.writeError(w, http.StatusNotFound, "unknown metrics section")
		return
	}

	snap, err := s.collect(w, r)
	if snap == nil || err != nil {
		return
	}

	body, err := exporter.RenderJSONSection(snap, section)
	if err != nil {
		if errors.Is(err, exporter.ErrUnknownSection) {
			s.writeError(w, http.StatusNotFound,
				"unknown section "+section+", available: "+strings.Join(exporter.Sections, ", "))
			return
		}
		s.logger.Error("JSON encoding failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "metrics encoding failed")
		return
	}

	w.Header().Set("Content-Type", exporter.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// collect runs one collection round for a request. On failure it writes
// the error response itself and returns a nil snapshot.
func (s *Server) collect(w http.ResponseWriter, r *http.Request) (*models.Snapshot, error) {
	snap, err := s.source.Collect(r.Context())
	if err != nil {
		if errors.Is(err, collector.ErrNoCollectors) {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return nil, err
		}
		s.logger.Error("Collection round failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "collection failed")
		return nil, err
	}
	return snap, nil
}

// writeJSON writes v as a JSON response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", exporter.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encoding failed", zap.Error(err))
	}
}

// writeError writes a JSON error body.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
