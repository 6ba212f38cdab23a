package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
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
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Pipeline metrics
	refreshCyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_cycles_total",
			Help: "Total number of pipeline refresh cycles",
		},
		[]string{"result"},
	)

	refreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_duration_seconds",
			Help:    "Full pipeline refresh duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	recordsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "records_ingested_total",
			Help: "Total raw records received from the source",
		},
	)

	recordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "records_dropped_total",
			Help: "Total records dropped during reconciliation",
		},
		[]string{"reason"},
	)

	subjectsBySeverity = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "subjects_by_anemia_severity",
			Help: "Subjects in the current snapshot by anemia severity",
		},
		[]string{"severity"},
	)

	// Sync metrics
	syncPushesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_pushes_total",
			Help: "Total outbound sync pushes",
		},
		[]string{"result"},
	)

	syncDiffRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_diff_records_total",
			Help: "Total changed records selected for outbound sync",
		},
	)

	// Notification metrics
	notificationsMarked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_marked_total",
			Help: "Total follow-up notifications recorded in the ledger",
		},
	)

	notificationsReset = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notifications_reset_total",
			Help: "Total notification ledger resets",
		},
	)

	// Archive metrics
	dbQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath normalizes URL paths for metrics to avoid cardinality explosion
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordRefreshCycle records a pipeline refresh with its outcome
func RecordRefreshCycle(result string, duration time.Duration) {
	refreshCyclesTotal.WithLabelValues(result).Inc()
	refreshDuration.Observe(duration.Seconds())
}

// RecordRecordsIngested records raw records received from the source
func RecordRecordsIngested(count int) {
	recordsIngested.Add(float64(count))
}

// RecordRecordsDropped records records dropped during reconciliation
func RecordRecordsDropped(reason string, count int) {
	if count > 0 {
		recordsDropped.WithLabelValues(reason).Add(float64(count))
	}
}

// SetSubjectsBySeverity sets the snapshot gauge for one severity band
func SetSubjectsBySeverity(severity string, count int) {
	subjectsBySeverity.WithLabelValues(severity).Set(float64(count))
}

// RecordSyncPush records an outbound push attempt
func RecordSyncPush(result string, diffSize int) {
	syncPushesTotal.WithLabelValues(result).Inc()
	syncDiffRecords.Add(float64(diffSize))
}

// RecordNotificationMarked records a ledger entry being written
func RecordNotificationMarked(count int) {
	notificationsMarked.Add(float64(count))
}

// RecordNotificationReset records a ledger reset
func RecordNotificationReset() {
	notificationsReset.Inc()
}

// RecordDBQuery records a database query duration
func RecordDBQuery(operation string, duration time.Duration) {
	dbQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
