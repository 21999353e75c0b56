// Package metrics provides Prometheus metrics for the grading service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the grading service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	registry         prometheus.Registerer

	// Intake
	submissionsAccepted  prometheus.Counter
	submissionsDuplicate prometheus.Counter
	submissionsApplied   prometheus.Counter
	submissionsRejected  *prometheus.CounterVec

	// Grading runs
	gradingRuns           prometheus.Counter
	gradingErrors         prometheus.Counter
	gradingLatency        prometheus.Histogram
	studentsGraded        prometheus.Counter
	gradesAwarded         *prometheus.CounterVec
	cohortSize            prometheus.Gauge
	zeroVarianceSubjects  prometheus.Gauge
	uncategorizedStudents prometheus.Gauge

	// Sheet store
	sheetEntries      prometheus.Gauge
	sheetCycles       prometheus.Gauge
	storeWriteLatency prometheus.Histogram
	storeReadLatency  prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "nrt",
		subsystem:        "grading",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	m.submissionsAccepted = m.counter("submissions_accepted_total", "Score submissions accepted onto the queue")
	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Score submissions dropped as duplicates")
	m.submissionsApplied = m.counter("submissions_applied_total", "Score submissions written to the score sheet")
	m.submissionsRejected = m.counterVec("submissions_rejected_total", "Score submissions rejected before queuing", "reason")

	m.gradingRuns = m.counter("runs_total", "Cohort grading runs completed")
	m.gradingErrors = m.counter("run_errors_total", "Cohort grading runs that failed")
	m.gradingLatency = m.histogram("run_latency_milliseconds", "Wall time of a cohort grading run", m.histogramBuckets)
	m.studentsGraded = m.counter("students_graded_total", "Students processed across all runs")
	m.gradesAwarded = m.counterVec("grades_awarded_total", "Subject grades awarded by label", "grade")
	m.cohortSize = m.gauge("cohort_size", "Students in the most recently graded cohort")
	m.zeroVarianceSubjects = m.gauge("zero_variance_subjects", "Subjects with zero spread in the most recent run")
	m.uncategorizedStudents = m.gauge("uncategorized_students", "Students outside every category band in the most recent run")

	m.sheetEntries = m.gauge("sheet_entries", "Score entries held across all cycles")
	m.sheetCycles = m.gauge("sheet_cycles", "Assessment cycles held in the score sheet")
	m.storeWriteLatency = m.histogram("store_write_latency_milliseconds", "Score sheet write latency", m.histogramBuckets)
	m.storeReadLatency = m.histogram("store_read_latency_milliseconds", "Score sheet cohort read latency", m.histogramBuckets)

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Current number of queued submissions")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum capacity of the submission queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (0.0 to 1.0)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of enqueue operations")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of dequeue operations")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of failed enqueues")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time spent inside enqueue",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})

	m.workerCount = m.gauge("worker_count", "Number of sheet writer workers")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Average submissions applied per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time to apply one submission",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100})
	m.workerErrors = m.counter("worker_errors_total", "Submissions the workers failed to apply")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Intake.

// RecordSubmissionAccepted counts a submission placed on the queue.
func RecordSubmissionAccepted() { globalManager.submissionsAccepted.Inc() }

// RecordSubmissionDuplicate counts a submission dropped by the deduper.
func RecordSubmissionDuplicate() { globalManager.submissionsDuplicate.Inc() }

// RecordSubmissionApplied counts a submission written to the store.
func RecordSubmissionApplied() { globalManager.submissionsApplied.Inc() }

// RecordSubmissionRejected counts a submission refused before queuing.
func RecordSubmissionRejected(reason string) {
	globalManager.submissionsRejected.WithLabelValues(reason).Inc()
}

// Grading runs.

// RecordGradingRun records a completed run over a cohort of the given size.
func RecordGradingRun(latencyMs float64, students int) {
	globalManager.gradingRuns.Inc()
	globalManager.gradingLatency.Observe(latencyMs)
	globalManager.studentsGraded.Add(float64(students))
	globalManager.cohortSize.Set(float64(students))
}

// RecordGradingError counts a failed run.
func RecordGradingError() { globalManager.gradingErrors.Inc() }

// RecordGradeAwarded counts one subject grade.
func RecordGradeAwarded(grade string) {
	globalManager.gradesAwarded.WithLabelValues(grade).Inc()
}

// UpdateZeroVarianceSubjects sets the zero spread subject count of the last run.
func UpdateZeroVarianceSubjects(count int) {
	globalManager.zeroVarianceSubjects.Set(float64(count))
}

// UpdateUncategorizedStudents sets the uncategorized student count of the last run.
func UpdateUncategorizedStudents(count int) {
	globalManager.uncategorizedStudents.Set(float64(count))
}

// Sheet store.

// UpdateSheetEntries sets the number of stored score entries.
func UpdateSheetEntries(count int) { globalManager.sheetEntries.Set(float64(count)) }

// UpdateSheetCycles sets the number of stored cycles.
func UpdateSheetCycles(count int) { globalManager.sheetCycles.Set(float64(count)) }

// RecordStoreWriteLatency records a store write in milliseconds.
func RecordStoreWriteLatency(latencyMs float64) { globalManager.storeWriteLatency.Observe(latencyMs) }

// RecordStoreReadLatency records a cohort read in milliseconds.
func RecordStoreReadLatency(latencyMs float64) { globalManager.storeReadLatency.Observe(latencyMs) }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueueRate.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeueRate.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Workers.

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerMessagesPerSecond sets the average messages processed per second.
func UpdateWorkerMessagesPerSecond(rate float64) { globalManager.workerMessagesPerSecond.Set(rate) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Default returns the process-wide manager.
func Default() *Manager { return globalManager }
