// Package metrics provides Prometheus metrics for the file server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels for transfer counters.
const (
	StatusOK       = "ok"
	StatusCanceled = "canceled"
	StatusError    = "error"
)

// Metrics owns a registry and the server's collectors. Each server gets its
// own so tests can run several side by side.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	uploadBytesTotal    prometheus.Counter
	uploadsTotal        *prometheus.CounterVec
	downloadsTotal      *prometheus.CounterVec
}

// New creates the collectors on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lisfy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lisfy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		uploadBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lisfy_upload_bytes_total",
				Help: "Total bytes received by the upload endpoint",
			},
		),
		uploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lisfy_uploads_total",
				Help: "Total number of uploads by result",
			},
			[]string{"status"},
		),
		downloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lisfy_downloads_total",
				Help: "Total number of downloads by result",
			},
			[]string{"status"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records one finished request.
func (m *Metrics) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordUpload counts an upload and, on success, its bytes.
func (m *Metrics) RecordUpload(bytes int64, status string) {
	m.uploadsTotal.WithLabelValues(status).Inc()
	if bytes > 0 {
		m.uploadBytesTotal.Add(float64(bytes))
	}
}

// RecordDownload counts a download.
func (m *Metrics) RecordDownload(status string) {
	m.downloadsTotal.WithLabelValues(status).Inc()
}

// responseWriter captures the status code for metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the original writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and latency labelled by the matched
// route template. Install it with (*mux.Router).Use so the route is known.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		m.RecordHTTPRequest(r.Method, routeName(r), rw.statusCode, time.Since(start))
	})
}

func routeName(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	if tmpl, err := route.GetPathTemplate(); err == nil {
		return tmpl
	}
	return "unknown"
}
