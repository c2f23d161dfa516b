package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hostpulse/agent/internal/collector"
	"github.com/hostpulse/agent/internal/config"
	"github.com/hostpulse/agent/internal/models"
)

// fakeSource is a scriptable Source for handler tests.
type fakeSource struct {
	snap    *models.Snapshot
	err     error
	healthy bool
}

func (f *fakeSource) Collect(context.Context) (*models.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeSource) Healthy() bool { return f.healthy }

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Timestamp: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		CPU: &models.CPUMetrics{
			PhysicalCores: 4,
			LogicalCores:  8,
			PercentTotal:  25.5,
			PercentPerCPU: []float64{20.0, 30.0, 25.0, 27.0},
		},
		Memory: &models.MemoryMetrics{
			Virtual: models.VirtualMemory{Total: 16000000000, Used: 7000000000, Percent: 43.75},
		},
		Status: map[string]models.SectionStatus{
			"cpu":    {State: models.StatusOK},
			"memory": {State: models.StatusOK},
			"gpu":    {State: models.StatusUnavailable},
		},
	}
}

func newTestServer(src Source) *Server {
	return New(config.DefaultConfig(), src, nil)
}

func do(s *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	s.http.Handler.ServeHTTP(rec, req)
	return rec
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&fakeSource{snap: testSnapshot(), healthy: true})

	rec := do(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "text/plain; version=0.0.4; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	require.Contains(t, body, "cpu_percent_total 25.5\n")
	require.Contains(t, body, "memory_virtual_percent 43.75\n")
	for _, line := range strings.Split(body, "\n") {
		require.False(t, strings.HasPrefix(line, "gpu_"))
	}
}

// Partial hardware failure is not a request failure: the scrape still
// answers 200 and just marks the broken section.
func TestMetricsEndpoint_PartialFailure(t *testing.T) {
	snap := testSnapshot()
	snap.Memory = nil
	snap.Status["memory"] = models.SectionStatus{State: models.StatusError, Error: "sensor read failed"}

	s := newTestServer(&fakeSource{snap: snap, healthy: true})

	rec := do(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "cpu_percent_total")
	require.NotContains(t, rec.Body.String(), "memory_virtual_percent")
}

func TestMetricsEndpoint_EmptyRegistry(t *testing.T) {
	s := newTestServer(&fakeSource{err: collector.ErrNoCollectors})

	rec := do(s, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "no telemetry sources configured", body["error"])
}

func TestJSONEndpoint(t *testing.T) {
	s := newTestServer(&fakeSource{snap: testSnapshot(), healthy: true})

	rec := do(s, http.MethodGet, "/metrics/json")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Contains(t, doc, "cpu")
	require.Contains(t, doc, "memory")
	require.NotContains(t, doc, "gpu")
}

func TestJSONSectionEndpoint(t *testing.T) {
	s := newTestServer(&fakeSource{snap: testSnapshot(), healthy: true})

	rec := do(s, http.MethodGet, "/metrics/json/cpu")
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]models.CPUMetrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.InDelta(t, 25.5, doc["cpu"].PercentTotal, 0.0001)
}

func TestJSONSectionEndpoint_Unknown(t *testing.T) {
	s := newTestServer(&fakeSource{snap: testSnapshot(), healthy: true})

	rec := do(s, http.MethodGet, "/metrics/json/disk")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body["error"], "disk")
	require.Contains(t, body["error"], "cpu, memory, gpu")
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(&fakeSource{snap: testSnapshot(), healthy: true})

	rec := do(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
}

func TestHealthEndpoint_NoSources(t *testing.T) {
	s := newTestServer(&fakeSource{healthy: false})

	rec := do(s, http.MethodGet, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "no telemetry sources configured", body.Reason)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeSource{snap: testSnapshot(), healthy: true})

	for _, path := range []string{"/metrics", "/metrics/json", "/metrics/json/cpu", "/health"} {
		rec := do(s, http.MethodPost, path)
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code, "path %s", path)
	}
}
