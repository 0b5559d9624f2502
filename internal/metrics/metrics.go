package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MovementsTotal counts ledger movements by kind (CHECKOUT, CHECKIN) and
	// outcome (ok, validation, not_found, conflict, storage).
	MovementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_movements_total",
			Help: "Checkout and check-in requests by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// SnapshotDrift is the number of assets whose state disagrees with the
	// open assignments, as of the last integrity check.
	SnapshotDrift = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "custody_ledger_snapshot_drift",
			Help: "Assets whose snapshot state disagrees with open assignments",
		},
	)

	// IntegrityChecksTotal counts integrity check runs by result (ok, drift, error).
	IntegrityChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "custody_integrity_checks_total",
			Help: "Ledger integrity check runs by result",
		},
		[]string{"result"},
	)
)

var (
	numericPathSegment = regexp.MustCompile(`/[0-9]+(/|$)`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, MovementsTotal, SnapshotDrift, IntegrityChecksTotal)
	})
}

// NormalizePath reduces cardinality by replacing numeric path segments with {id}.
// E.g. /assets/123/history -> /assets/{id}/history.
func NormalizePath(path string) string {
	return numericPathSegment.ReplaceAllString(path, "/{id}$1")
}

// RecordRequest records duration and count for an HTTP request.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// RecordMovement counts one ledger movement attempt.
func RecordMovement(kind, outcome string) {
	MovementsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordIntegrityCheck stores the drift count of a completed check.
func RecordIntegrityCheck(drift int) {
	SnapshotDrift.Set(float64(drift))
	if drift > 0 {
		IntegrityChecksTotal.WithLabelValues("drift").Inc()
		return
	}
	IntegrityChecksTotal.WithLabelValues("ok").Inc()
}

// RecordIntegrityCheckError counts a check that could not run.
func RecordIntegrityCheckError() {
	IntegrityChecksTotal.WithLabelValues("error").Inc()
}
