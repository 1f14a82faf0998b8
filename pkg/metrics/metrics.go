package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Operation graph metrics
	OperationsIngestedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "braiddb_operations_ingested_total",
			Help: "Total number of AddOperation calls, including idempotent replays",
		},
	)

	OperationsDuplicateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "braiddb_operations_duplicate_total",
			Help: "Total number of AddOperation calls for a version already in the store",
		},
	)

	FrontierSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "braiddb_frontier_size",
			Help: "Current number of orders in the operation graph's frontier",
		},
	)

	BranchSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "braiddb_branch_size",
			Help: "Current number of orders in the view's branch",
		},
	)

	DocumentsTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "braiddb_documents_tracked",
			Help: "Number of documents with a non-implicit value in the view",
		},
	)

	DocumentConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "braiddb_document_conflicts_total",
			Help: "Total number of forward applications that left a document with concurrent values",
		},
	)

	ViewApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "braiddb_view_apply_duration_seconds",
			Help:    "Time taken by ViewDb.ApplyForwards",
			Buckets: prometheus.DefBuckets,
		},
	)

	ViewRevertDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "braiddb_view_revert_duration_seconds",
			Help:    "Time taken by ViewDb.ApplyBackwards",
			Buckets: prometheus.DefBuckets,
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "braiddb_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "braiddb_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(OperationsIngestedTotal)
	prometheus.MustRegister(OperationsDuplicateTotal)
	prometheus.MustRegister(FrontierSize)
	prometheus.MustRegister(BranchSize)
	prometheus.MustRegister(DocumentsTracked)
	prometheus.MustRegister(DocumentConflictsTotal)
	prometheus.MustRegister(ViewApplyDuration)
	prometheus.MustRegister(ViewRevertDuration)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
