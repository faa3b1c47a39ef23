package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	VideosResolved     prometheus.Counter
	VideosMissing      prometheus.Counter
	EnrichmentAttempts prometheus.Counter
	EnrichmentResults  *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the collectors on reg. A nil reg uses a fresh private
// registry, which keeps tests from colliding on the global one.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "video_analytics_runs_total",
			Help: "Pipeline runs by input kind and final state",
		}, []string{"kind", "state"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "video_analytics_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"kind"}),
		VideosResolved: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_analytics_videos_resolved_total",
			Help: "Unique video IDs produced by input resolution",
		}),
		VideosMissing: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_analytics_videos_missing_total",
			Help: "Resolved IDs the primary API did not return",
		}),
		EnrichmentAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "video_analytics_enrichment_attempts_total",
			Help: "Requests sent to the secondary vote endpoint, retries included",
		}),
		EnrichmentResults: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "video_analytics_enrichment_results_total",
			Help: "Enrichment outcomes by status",
		}, []string{"status"}),
		gatherer: reg,
	}
}

// Handler serves the registry for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRun(kind, state string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(kind, state).Inc()
	m.RunDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Metrics) AddResolved(resolved, missing int) {
	if m == nil {
		return
	}
	m.VideosResolved.Add(float64(resolved))
	m.VideosMissing.Add(float64(missing))
}

func (m *Metrics) IncEnrichmentAttempt() {
	if m == nil {
		return
	}
	m.EnrichmentAttempts.Inc()
}

func (m *Metrics) IncEnrichmentResult(status string) {
	if m == nil {
		return
	}
	m.EnrichmentResults.WithLabelValues(status).Inc()
}
