// Package metrics records tool and repair statistics with Prometheus and can
// expose them over HTTP.
//
// The MCP channel is stdio, so the HTTP listener is optional and runs next to
// it on a separate address.
package metrics

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "watermark_mcp"

// Repair modes recorded by ObserveRepair.
const (
	ModeExplicit  = "explicit"
	ModeLocalized = "localized"
	ModeDiffuse   = "diffuse"
	ModeFallback  = "fallback"
)

// Metrics holds the collectors. Each instance owns its registry so tests and
// multiple servers do not collide.
type Metrics struct {
	registry      *prometheus.Registry
	toolCalls     *prometheus.CounterVec
	toolDuration  *prometheus.HistogramVec
	repairs       *prometheus.CounterVec
	coverage      prometheus.Histogram
	changedPixels prometheus.Histogram
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations by tool and outcome.",
		}, []string{"tool", "status"}),
		toolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Tool invocation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"tool"}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_total",
			Help:      "Completed repairs by method and mode.",
		}, []string{"method", "mode"}),
		coverage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "detection_coverage_ratio",
			Help:      "Fraction of pixels in the detected contamination mask.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		changedPixels: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "repair_changed_pixels",
			Help:      "Pixels changed by a repair.",
			Buckets:   prometheus.ExponentialBuckets(16, 4, 10),
		}),
	}
	m.registry.MustRegister(
		m.toolCalls,
		m.toolDuration,
		m.repairs,
		m.coverage,
		m.changedPixels,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveTool records one tool invocation.
func (m *Metrics) ObserveTool(tool string, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveRepair records a finished repair. coverage is negative when no
// detection ran.
func (m *Metrics) ObserveRepair(method, mode string, coverage float64, changed int) {
	m.repairs.WithLabelValues(method, mode).Inc()
	if coverage >= 0 {
		m.coverage.Observe(coverage)
	}
	m.changedPixels.Observe(float64(changed))
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	return r
}

// Serve answers metrics requests on ln until ctx is canceled. The caller
// binds ln so a bad address fails before anything else starts.
func (m *Metrics) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Metrics listening on %s", ln.Addr())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
