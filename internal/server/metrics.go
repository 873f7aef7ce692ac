package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codedrop_http_requests_total",
			Help: "Total HTTP requests served.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codedrop_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	uploadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codedrop_uploads_total",
		Help: "Successful file uploads.",
	})

	downloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codedrop_downloads_total",
		Help: "Successful file downloads.",
	})

	codesAllocatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codedrop_codes_allocated_total",
			Help: "Share codes bound to files, by allocation mode.",
		},
		[]string{"mode"},
	)

	blobIntegrityFaults = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codedrop_blob_integrity_faults_total",
		Help: "Records whose blob was missing from object storage.",
	})
)

// metricsMiddleware records a counter and duration sample per request.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)

		mw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(mw, r)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(mw.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath collapses code segments so label cardinality stays bounded.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/info/"):
		return "/api/info/{code}"
	case strings.HasPrefix(path, "/api/download/"):
		return "/api/download/{code}"
	}
	return path
}

// metricsResponseWriter captures the status code written by the handler.
type metricsResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying ResponseWriter.
func (w *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
