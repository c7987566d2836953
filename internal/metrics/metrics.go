// Package metrics exposes Prometheus instrumentation for the HTTP API and
// the background sync/transcript jobs.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attribution_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "attribution_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	syncRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attribution_sync_rows_total",
		Help: "Rows upserted by sync jobs, by job type.",
	}, []string{"job"})

	syncFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attribution_sync_failures_total",
		Help: "Sync job failures, by job type.",
	}, []string{"job"})

	transcriptJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attribution_transcript_jobs_total",
		Help: "Transcript jobs processed, by outcome.",
	}, []string{"outcome"})
)

// RecordSyncRows adds to the upserted-row counter for a job type.
func RecordSyncRows(job string, rows int) {
	syncRows.WithLabelValues(job).Add(float64(rows))
}

// RecordSyncFailure counts one failed sync run.
func RecordSyncFailure(job string) {
	syncFailures.WithLabelValues(job).Inc()
}

// RecordTranscriptJob counts one transcript job outcome (completed|failed).
func RecordTranscriptJob(outcome string) {
	transcriptJobs.WithLabelValues(outcome).Inc()
}

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

// Middleware instruments requests with the chi route pattern as the label so
// parameterized paths don't explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
