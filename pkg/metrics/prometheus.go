// Package metrics provides Prometheus metrics for the gradelens service.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Outcome labels an upload attempt.
type Outcome string

const (
	OutcomeAccepted   Outcome = "accepted"
	OutcomeParseError Outcome = "parse_error"
	OutcomeReadError  Outcome = "read_error"
	OutcomeTooLarge   Outcome = "too_large"
	OutcomeSuperseded Outcome = "superseded"
)

// Valid reports whether o is a known outcome.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeAccepted, OutcomeParseError, OutcomeReadError, OutcomeTooLarge, OutcomeSuperseded:
		return true
	}
	return false
}

// Manager manages all Prometheus metrics for the gradelens service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Ingestion
	uploads         *prometheus.CounterVec
	rowsAccepted    prometheus.Counter
	rowsRejected    prometheus.Counter
	uploadBytes     prometheus.Histogram
	parseLatency    prometheus.Histogram
	pipelineLatency prometheus.Histogram

	// Current dataset
	datasetRecords        prometheus.Gauge
	datasetUniqueStudents prometheus.Gauge
	datasetAtRisk         prometheus.Gauge
	datasetPassRate       prometheus.Gauge
	datasetAverageScore   prometheus.Gauge
	datasetRiskLevel      *prometheus.GaugeVec
	datasetLoadedUnix     prometheus.Gauge

	// Query view
	queryLatency    prometheus.Histogram
	filteredRecords prometheus.Gauge

	// Standings
	standingsStudents     prometheus.Gauge
	standingsRebuild      prometheus.Histogram
	standingsQueryLatency prometheus.Histogram

	// Batch analysis
	batchJobs       *prometheus.CounterVec
	batchJobLatency prometheus.Histogram
	batchQueueDepth prometheus.Gauge
	batchWorkers    prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gradelens",
		subsystem:        "ingest",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often callers should refresh the system gauges.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.uploads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "uploads_total",
		Help:        "Total number of CSV uploads by outcome",
		ConstLabels: m.customLabels,
	}, []string{"outcome"})
	m.rowsAccepted = m.counter("rows_accepted_total", "Total number of data rows that became records")
	m.rowsRejected = m.counter("rows_rejected_total", "Total number of data rows rejected with a row error")
	m.uploadBytes = m.histogram("upload_bytes", "Size of accepted uploads in bytes",
		prometheus.ExponentialBuckets(1024, 4, 8))
	m.parseLatency = m.histogram("parse_latency_milliseconds", "CSV parse latency in milliseconds", m.histogramBuckets)
	m.pipelineLatency = m.histogram("pipeline_latency_milliseconds",
		"End to end load latency (read, parse, assess, aggregate) in milliseconds", m.histogramBuckets)

	m.datasetRecords = m.gauge("dataset_records", "Records in the current dataset")
	m.datasetUniqueStudents = m.gauge("dataset_unique_students", "Distinct student IDs in the current dataset")
	m.datasetAtRisk = m.gauge("dataset_at_risk", "Records classified high or medium risk")
	m.datasetPassRate = m.gauge("dataset_pass_rate_percent", "Pass rate of the current dataset")
	m.datasetAverageScore = m.gauge("dataset_average_score", "Mean marks of the current dataset")
	m.datasetRiskLevel = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "dataset_risk_level_records",
		Help:        "Records per risk level in the current dataset",
		ConstLabels: m.customLabels,
	}, []string{"level"})
	m.datasetLoadedUnix = m.gauge("dataset_loaded_unix", "Unix timestamp of the last committed load")

	m.queryLatency = m.histogram("query_latency_milliseconds", "Filter and sort latency in milliseconds", m.histogramBuckets)
	m.filteredRecords = m.gauge("filtered_records", "Records in the current filtered view")

	m.standingsStudents = m.gauge("standings_students", "Students ranked in the class standings")
	m.standingsRebuild = m.histogram("standings_rebuild_milliseconds", "Standings rebuild latency in milliseconds", m.histogramBuckets)
	m.standingsQueryLatency = m.histogram("standings_query_latency_milliseconds",
		"Standings rank and top-N latency in milliseconds", m.histogramBuckets)

	m.batchJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "batch_jobs_total",
		Help:        "Total number of batch analysis jobs by outcome",
		ConstLabels: m.customLabels,
	}, []string{"outcome"})
	m.batchJobLatency = m.histogram("batch_job_latency_milliseconds", "Batch analysis job latency in milliseconds", m.histogramBuckets)
	m.batchQueueDepth = m.gauge("batch_queue_depth", "Batch analysis jobs waiting for a worker")
	m.batchWorkers = m.gauge("batch_workers", "Batch analysis workers running")

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "http_request_duration_milliseconds",
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_component_total",
			Help:        "Total number of errors by component",
			ConstLabels: m.customLabels,
		},
		[]string{"component", "error_type"},
	)

	m.errorsByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        "errors_by_endpoint_total",
			Help:        "Total number of errors by endpoint",
			ConstLabels: m.customLabels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Ingestion.

// RecordUpload counts an upload attempt. Unknown outcomes are rejected to
// keep label cardinality bounded.
func (m *Manager) RecordUpload(outcome Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
	m.uploads.WithLabelValues(string(outcome)).Inc()
	return nil
}

// RecordRows adds accepted and rejected row counts.
func (m *Manager) RecordRows(accepted, rejected int) {
	if accepted > 0 {
		m.rowsAccepted.Add(float64(accepted))
	}
	if rejected > 0 {
		m.rowsRejected.Add(float64(rejected))
	}
}

// RecordUploadBytes observes the size of an upload.
func (m *Manager) RecordUploadBytes(n int64) { m.uploadBytes.Observe(float64(n)) }

// RecordParseLatency observes parse latency in milliseconds.
func (m *Manager) RecordParseLatency(latencyMs float64) { m.parseLatency.Observe(latencyMs) }

// RecordPipelineLatency observes end to end load latency in milliseconds.
func (m *Manager) RecordPipelineLatency(latencyMs float64) { m.pipelineLatency.Observe(latencyMs) }

// Dataset is the gauge snapshot published after a committed load.
type Dataset struct {
	Records        int
	UniqueStudents int
	AtRisk         int
	PassRate       float64
	AverageScore   float64
	RiskLevels     map[string]int
	LoadedAt       time.Time
}

// UpdateDataset publishes the gauges for the current dataset.
func (m *Manager) UpdateDataset(d Dataset) {
	m.datasetRecords.Set(float64(d.Records))
	m.datasetUniqueStudents.Set(float64(d.UniqueStudents))
	m.datasetAtRisk.Set(float64(d.AtRisk))
	m.datasetPassRate.Set(d.PassRate)
	m.datasetAverageScore.Set(d.AverageScore)
	m.datasetRiskLevel.Reset()
	for level, n := range d.RiskLevels {
		m.datasetRiskLevel.WithLabelValues(level).Set(float64(n))
	}
	if d.LoadedAt.IsZero() {
		m.datasetLoadedUnix.Set(0)
	} else {
		m.datasetLoadedUnix.Set(float64(d.LoadedAt.Unix()))
	}
}

// RecordQueryLatency observes filter and sort latency in milliseconds.
func (m *Manager) RecordQueryLatency(latencyMs float64) { m.queryLatency.Observe(latencyMs) }

// UpdateFilteredRecords sets the size of the filtered view.
func (m *Manager) UpdateFilteredRecords(n int) { m.filteredRecords.Set(float64(n)) }

// Standings.

// UpdateStandingsSize sets the number of ranked students.
func (m *Manager) UpdateStandingsSize(n int) { m.standingsStudents.Set(float64(n)) }

// RecordStandingsRebuild observes a standings rebuild in milliseconds.
func (m *Manager) RecordStandingsRebuild(latencyMs float64) { m.standingsRebuild.Observe(latencyMs) }

// RecordStandingsQueryLatency observes a rank or top-N lookup in milliseconds.
func (m *Manager) RecordStandingsQueryLatency(latencyMs float64) {
	m.standingsQueryLatency.Observe(latencyMs)
}

// Batch analysis.

// RecordBatchJob counts a finished batch job; outcome is "ok" or "failed".
func (m *Manager) RecordBatchJob(outcome string, latencyMs float64) {
	m.batchJobs.WithLabelValues(outcome).Inc()
	m.batchJobLatency.Observe(latencyMs)
}

// UpdateBatchQueueDepth sets the number of queued batch jobs.
func (m *Manager) UpdateBatchQueueDepth(n int) { m.batchQueueDepth.Set(float64(n)) }

// UpdateBatchWorkers sets the number of running batch workers.
func (m *Manager) UpdateBatchWorkers(n int) { m.batchWorkers.Set(float64(n)) }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) { m.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func (m *Manager) UpdateSystemGoroutineCount(count int) { m.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) { m.systemGCPauseTime.Observe(pauseMs) }

// Package-level helpers on the global manager.

// Default returns the global manager.
func Default() *Manager { return globalManager }

// RecordUpload counts an upload attempt on the global manager.
func RecordUpload(outcome Outcome) { _ = globalManager.RecordUpload(outcome) }

// RecordRows adds row counts on the global manager.
func RecordRows(accepted, rejected int) { globalManager.RecordRows(accepted, rejected) }

// RecordUploadBytes observes an upload size on the global manager.
func RecordUploadBytes(n int64) { globalManager.RecordUploadBytes(n) }

// RecordParseLatency observes parse latency on the global manager.
func RecordParseLatency(latencyMs float64) { globalManager.RecordParseLatency(latencyMs) }

// RecordPipelineLatency observes load latency on the global manager.
func RecordPipelineLatency(latencyMs float64) { globalManager.RecordPipelineLatency(latencyMs) }

// UpdateDataset publishes dataset gauges on the global manager.
func UpdateDataset(d Dataset) { globalManager.UpdateDataset(d) }

// RecordQueryLatency observes query latency on the global manager.
func RecordQueryLatency(latencyMs float64) { globalManager.RecordQueryLatency(latencyMs) }

// UpdateFilteredRecords sets the filtered view size on the global manager.
func UpdateFilteredRecords(n int) { globalManager.UpdateFilteredRecords(n) }

// RecordHTTPRequest records an HTTP request on the global manager.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}

// RecordHTTPRequestDuration records HTTP request duration on the global manager.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, duration)
}

// RecordErrorByComponent records a component error on the global manager.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// RecordErrorByEndpoint records an endpoint error on the global manager.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// UpdateSystemMemoryUsage sets memory usage on the global manager.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the goroutine count on the global manager.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime records GC pause time on the global manager.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
