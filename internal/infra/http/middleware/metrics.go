package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_connections",
			Help: "Number of active HTTP connections",
		},
	)

	leadsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_ingested_total",
			Help: "Total number of leads upserted per source",
		},
		[]string{"source", "qualified"},
	)

	outreachSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outreach_sent_total",
			Help: "Total number of outreach emails sent",
		},
		[]string{"persona"},
	)

	eventsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_reconciled_total",
			Help: "Inbound messaging events by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
)

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		activeConnections.Inc()
		defer activeConnections.Dec()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
	})
}

func RecordLeadIngested(source string, qualified bool) {
	leadsIngested.WithLabelValues(source, strconv.FormatBool(qualified)).Inc()
}

func RecordOutreachSent(persona string) {
	outreachSent.WithLabelValues(persona).Inc()
}

func RecordEventReconciled(kind, outcome string) {
	eventsReconciled.WithLabelValues(kind, outcome).Inc()
}
