package monitoring

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type HealthServer struct {
	monitor *Monitor
	metrics *Metrics
	port    string
	logger  *zap.Logger
	server  *http.Server
}

func NewHealthServer(monitor *Monitor, metrics *Metrics, port string, logger *zap.Logger) *HealthServer {
	if port == "" {
		port = "8080"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &HealthServer{
		monitor: monitor,
		metrics: metrics,
		port:    port,
		logger:  logger,
	}
	h.server = &http.Server{
		Addr:              ":" + port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Routes returns the handler serving /health, /status and /metrics.
func (h *HealthServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.healthHandler)
	mux.HandleFunc("/status", h.statusHandler)
	mux.Handle("/metrics", h.metrics.Handler())
	return mux
}

func (h *HealthServer) Start() {
	h.logger.Info("Health check server starting", zap.String("port", h.port))
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("Health server error", zap.Error(err))
		}
	}()
}

func (h *HealthServer) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

func (h *HealthServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if h.monitor.IsHealthy() {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK - %s", h.monitor.GetStatusSummary())
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, "Service unhealthy - %s", h.monitor.GetStatusSummary())
	}
}

func (h *HealthServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s", h.monitor.GetStatusSummary())
}
