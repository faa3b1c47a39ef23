package monitoring

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMonitorHealth(t *testing.T) {
	m := NewMonitor(zaptest.NewLogger(t))
	assert.True(t, m.IsHealthy())
	assert.Equal(t, "No runs yet", m.GetStatusSummary())

	m.RecordSuccess("3 videos", time.Second)
	assert.True(t, m.IsHealthy())
	assert.Contains(t, m.GetStatusSummary(), "3 videos")

	m.RecordPartialFailure(errors.New("1 enrichment failed"), time.Second)
	assert.True(t, m.IsHealthy())

	m.RecordCriticalFailure(errors.New("playlist gone"), time.Second)
	assert.False(t, m.IsHealthy())
	assert.Contains(t, m.GetStatusSummary(), "Last run failed")
	assert.Contains(t, m.GetStatusSummary(), "1 aborted")
}

func TestHealthServerRoutes(t *testing.T) {
	monitor := NewMonitor(nil)
	metrics := NewMetrics(nil)
	metrics.ObserveRun("video", "complete", 2*time.Second)
	metrics.IncEnrichmentAttempt()
	metrics.IncEnrichmentResult("enriched")

	srv := httptest.NewServer(NewHealthServer(monitor, metrics, "0", nil).Routes())
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, string(body)
	}

	code, body := get("/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "OK")

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `video_analytics_runs_total{kind="video",state="complete"} 1`)
	assert.Contains(t, body, "video_analytics_enrichment_attempts_total 1")

	monitor.RecordCriticalFailure(errors.New("boom"), time.Second)
	code, _ = get("/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	m.ObserveRun("video", "complete", time.Second)
	m.AddResolved(1, 0)
	m.IncEnrichmentAttempt()
	m.IncEnrichmentResult("failed")
	assert.NotNil(t, m.Handler())
}
