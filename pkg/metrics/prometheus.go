// Package metrics provides Prometheus metrics for the custseg service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Pipeline
	pipelineRuns        prometheus.Counter
	pipelineFailures    *prometheus.CounterVec
	pipelineDuration    prometheus.Histogram
	customersProcessed  prometheus.Counter
	sanitizedValues     *prometheus.CounterVec
	zeroOrderCustomers  prometheus.Counter
	futureUpdates       prometheus.Counter
	clusterSize         *prometheus.GaugeVec
	clusterInertia      prometheus.Gauge
	clusteringIteration prometheus.Histogram

	// Reports and sinks
	reportRowsWritten *prometheus.CounterVec
	publishErrors     prometheus.Counter

	// Job queue and workers
	queueSize       prometheus.Gauge
	queueCapacity   prometheus.Gauge
	queueRejected   *prometheus.CounterVec
	jobsCompleted   *prometheus.CounterVec
	jobDuration     prometheus.Histogram
	workerCount     prometheus.Gauge
	duplicateSubmit prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "custseg",
		subsystem:        "segmentation",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.pipelineRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pipeline_runs_total",
		Help:      "Total number of completed segmentation runs",
	})
	m.pipelineFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pipeline_failures_total",
		Help:      "Segmentation runs aborted, by error kind",
	}, []string{"kind"})
	m.pipelineDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pipeline_duration_milliseconds",
		Help:      "Wall time of a segmentation run in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.customersProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "customers_processed_total",
		Help:      "Customers that went through feature engineering",
	})
	m.sanitizedValues = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sanitized_values_total",
		Help:      "Feature values replaced by the sanitization pass, by column and reason",
	}, []string{"column", "reason"})
	m.zeroOrderCustomers = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "zero_order_customers_total",
		Help:      "Customers whose average order value fell back to zero",
	})
	m.futureUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "future_updates_total",
		Help:      "Customers with updated_at after the reference time",
	})
	m.clusterSize = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cluster_size",
		Help:      "Member count per cluster label of the latest run",
	}, []string{"cluster"})
	m.clusterInertia = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cluster_inertia",
		Help:      "Within-cluster sum of squares of the latest run (standardized scale)",
	})
	m.clusteringIteration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "clustering_iterations",
		Help:      "Lloyd iterations used by the winning initialization",
		Buckets:   []float64{1, 2, 5, 10, 20, 50, 100, 300},
	})

	m.reportRowsWritten = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "report_rows_written_total",
		Help:      "Rows written to reporting tables, by table",
	}, []string{"table"})
	m.publishErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "publish_errors_total",
		Help:      "Result bundles that could not be published",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_queue_size",
		Help:      "Current number of queued segmentation jobs",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_queue_capacity",
		Help:      "Maximum number of queued segmentation jobs",
	})
	m.queueRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_queue_rejected_total",
		Help:      "Jobs refused by the queue, by reason",
	}, []string{"reason"})
	m.jobsCompleted = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jobs_completed_total",
		Help:      "Jobs finished by workers, by outcome",
	}, []string{"outcome"})
	m.jobDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "job_duration_milliseconds",
		Help:      "Time a worker spent on one job in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of workers in the job pool",
	})
	m.duplicateSubmit = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_submissions_total",
		Help:      "Submissions answered from an earlier request with the same key",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordPipelineRun records a completed run and its duration.
func RecordPipelineRun(durationMs float64, customers int) {
	globalManager.pipelineRuns.Inc()
	globalManager.pipelineDuration.Observe(durationMs)
	globalManager.customersProcessed.Add(float64(customers))
}

// RecordPipelineFailure increments the failure counter for an error kind.
func RecordPipelineFailure(kind string) {
	globalManager.pipelineFailures.WithLabelValues(kind).Inc()
}

// RecordSanitized adds n replaced values for column; reason is "nan" or "inf".
func RecordSanitized(column, reason string, n int) {
	if n <= 0 {
		return
	}
	globalManager.sanitizedValues.WithLabelValues(column, reason).Add(float64(n))
}

// RecordZeroOrderCustomers adds n customers with a zero-order fallback.
func RecordZeroOrderCustomers(n int) {
	globalManager.zeroOrderCustomers.Add(float64(n))
}

// RecordFutureUpdates adds n customers with future updated_at.
func RecordFutureUpdates(n int) {
	globalManager.futureUpdates.Add(float64(n))
}

// UpdateClusterSizes replaces the per-cluster size gauges.
func UpdateClusterSizes(sizes []int) {
	globalManager.clusterSize.Reset()
	for label, n := range sizes {
		globalManager.clusterSize.WithLabelValues(strconv.Itoa(label)).Set(float64(n))
	}
}

// RecordClustering records the inertia and iteration count of a fit.
func RecordClustering(inertia float64, iterations int) {
	globalManager.clusterInertia.Set(inertia)
	globalManager.clusteringIteration.Observe(float64(iterations))
}

// RecordReportRows adds n rows written to table.
func RecordReportRows(table string, n int) {
	globalManager.reportRowsWritten.WithLabelValues(table).Add(float64(n))
}

// RecordPublishError increments the publish error counter.
func RecordPublishError() {
	globalManager.publishErrors.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueRejected increments the rejected counter for reason.
func RecordQueueRejected(reason string) {
	globalManager.queueRejected.WithLabelValues(reason).Inc()
}

// RecordJob records a finished job; outcome is "succeeded" or "failed".
func RecordJob(outcome string, durationMs float64) {
	globalManager.jobsCompleted.WithLabelValues(outcome).Inc()
	globalManager.jobDuration.Observe(durationMs)
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordDuplicateSubmission increments the duplicate submission counter.
func RecordDuplicateSubmission() {
	globalManager.duplicateSubmit.Inc()
}

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
