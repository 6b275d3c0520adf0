// Package metrics exposes Prometheus collectors for imports, extraction jobs,
// connector attempts and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/custodia/internal/core"
)

const namespace = "custodia"

// Metrics holds every collector, registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	// Imports
	ImportBatches *prometheus.CounterVec
	ImportRows    *prometheus.CounterVec

	// Extraction jobs
	JobRuns     *prometheus.CounterVec
	JobDuration *prometheus.HistogramVec
	JobBases    *prometheus.CounterVec

	// Connector
	ConnectAttempts *prometheus.CounterVec

	// HTTP
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry, plus Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ImportBatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_batches_total",
			Help:      "Import batches executed, by flow.",
		}, []string{"flow"}),

		ImportRows: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Import rows processed, by flow and outcome.",
		}, []string{"flow", "outcome"}),

		JobRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_runs_total",
			Help:      "Extraction job runs, by connector and final status.",
		}, []string{"connector", "status"}),

		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_run_duration_seconds",
			Help:      "Duration of extraction job runs in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}, []string{"connector"}),

		JobBases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "extraction_bases_total",
			Help:      "Bases received by extraction runs, by connector and outcome.",
		}, []string{"connector", "outcome"}),

		ConnectAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connector_attempts_total",
			Help:      "Connection strategy attempts, by strategy and result.",
		}, []string{"strategy", "result"}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "code"}),

		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveImport records one executed import batch.
func (m *Metrics) ObserveImport(flow string, res core.ImportResult) {
	m.ImportBatches.WithLabelValues(flow).Inc()
	m.ImportRows.WithLabelValues(flow, "imported").Add(float64(res.Imported))
	if failed := res.Total - res.Imported; failed > 0 {
		m.ImportRows.WithLabelValues(flow, "rejected").Add(float64(failed))
	}
}

// ObserveRun records a finished extraction run. res is nil for fatal runs.
func (m *Metrics) ObserveRun(connector string, status core.JobStatus, res *core.RunResult, elapsed time.Duration) {
	m.JobRuns.WithLabelValues(connector, string(status)).Inc()
	m.JobDuration.WithLabelValues(connector).Observe(elapsed.Seconds())
	if res == nil {
		return
	}
	m.JobBases.WithLabelValues(connector, "applied").Add(float64(res.Imported))
	if failed := res.Total - res.Imported; failed > 0 {
		m.JobBases.WithLabelValues(connector, "rejected").Add(float64(failed))
	}
}

// ObserveAttempt records one connection strategy attempt.
func (m *Metrics) ObserveAttempt(strategy string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.ConnectAttempts.WithLabelValues(strategy, result).Inc()
}

// Middleware records request counts and latency labelled by chi route
// pattern, so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
