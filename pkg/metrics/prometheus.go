// Package metrics provides Prometheus metrics for the tailor measurement service.
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

// Outcome labels for pipeline counters.
const (
	OutcomeSuccess          = "success"
	OutcomeNoFrame          = "no_frame"
	OutcomeNoBody           = "no_body"
	OutcomeMissingLandmarks = "missing_landmarks"
	OutcomeNotCalibrated    = "not_calibrated"
	OutcomeInvalidInput     = "invalid_input"
	OutcomeError            = "error"
)

// Manager manages all Prometheus metrics for the tailor service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Pipeline Metrics
	calibrations       *prometheus.CounterVec
	measurements       *prometheus.CounterVec
	measurementLatency prometheus.Histogram
	frameFailures      prometheus.Counter

	// Detector Metrics
	detectorLatency prometheus.Histogram
	detectorErrors  prometheus.Counter

	// Session Store Metrics
	saves          *prometheus.CounterVec
	saveDuplicates prometheus.Counter
	usersTracked   prometheus.Gauge
	recordsTotal   prometheus.Gauge
	activeSessions prometheus.Gauge

	// Repository Metrics
	repositoryWriteLatency *prometheus.HistogramVec
	repositoryLoadLatency  *prometheus.HistogramVec

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// LatencyBucketsMs are the default buckets for latency histograms, which
// all record milliseconds.
var LatencyBucketsMs = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // shared bucket layout

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
		namespace:        "tailor",
		subsystem:        "measure",
		histogramBuckets: LatencyBucketsMs,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool {
	return m.enabled
}

// RefreshInterval is how often gauges fed by polling should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Pipeline Metrics
	m.calibrations = auto.NewCounterVec(
		m.counterOpts("calibrations_total", "Total number of calibration attempts by outcome"),
		[]string{"outcome"},
	)
	m.measurements = auto.NewCounterVec(
		m.counterOpts("measurements_total", "Total number of measurement attempts by outcome"),
		[]string{"outcome"},
	)
	m.measurementLatency = auto.NewHistogram(m.histogramOpts(
		"measurement_latency_milliseconds",
		"End-to-end measurement latency in milliseconds including detection",
		nil,
	))
	m.frameFailures = auto.NewCounter(m.counterOpts(
		"frame_failures_total",
		"Total number of frames that could not be acquired or decoded",
	))

	// Detector Metrics
	m.detectorLatency = auto.NewHistogram(m.histogramOpts(
		"detector_latency_milliseconds",
		"Pose detector call latency in milliseconds",
		[]float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	))
	m.detectorErrors = auto.NewCounter(m.counterOpts(
		"detector_errors_total",
		"Total number of failed detector calls",
	))

	// Session Store Metrics
	m.saves = auto.NewCounterVec(
		m.counterOpts("saves_total", "Total number of save attempts by outcome"),
		[]string{"outcome"},
	)
	m.saveDuplicates = auto.NewCounter(m.counterOpts(
		"save_duplicates_total",
		"Total number of save requests skipped as retries",
	))
	m.usersTracked = auto.NewGauge(m.gaugeOpts(
		"users_tracked",
		"Number of users with a loaded measurement history",
	))
	m.recordsTotal = auto.NewGauge(m.gaugeOpts(
		"records_total",
		"Number of measurement records across loaded histories",
	))
	m.activeSessions = auto.NewGauge(m.gaugeOpts(
		"active_sessions",
		"Number of open measurement sessions",
	))

	// Repository Metrics
	m.repositoryWriteLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_write_latency_milliseconds", "History write latency in milliseconds", nil),
		[]string{"backend"},
	)
	m.repositoryLoadLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_load_latency_milliseconds", "History load latency in milliseconds", nil),
		[]string{"backend"},
	)

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that resulted in errors", nil),
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_usage_bytes",
		"System memory usage in bytes",
	))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutine_count",
		"Number of goroutines",
	))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// Pipeline Metrics Functions.

// RecordCalibration counts a calibration attempt.
func RecordCalibration(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.calibrations.WithLabelValues(outcome).Inc()
}

// RecordMeasurement counts a measurement attempt.
func RecordMeasurement(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.measurements.WithLabelValues(outcome).Inc()
}

// RecordMeasurementLatency records measurement latency in milliseconds.
func RecordMeasurementLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.measurementLatency.Observe(latencyMs)
}

// RecordFrameFailure increments the frame failure counter.
func RecordFrameFailure() {
	if !globalManager.enabled {
		return
	}
	globalManager.frameFailures.Inc()
}

// Detector Metrics Functions.

// RecordDetectorLatency records a detector call latency in milliseconds.
func RecordDetectorLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.detectorLatency.Observe(latencyMs)
}

// RecordDetectorError increments the detector error counter.
func RecordDetectorError() {
	if !globalManager.enabled {
		return
	}
	globalManager.detectorErrors.Inc()
}

// Session Store Metrics Functions.

// RecordSave counts a save attempt.
func RecordSave(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.saves.WithLabelValues(outcome).Inc()
}

// RecordSaveDuplicate increments the duplicate save counter.
func RecordSaveDuplicate() {
	if !globalManager.enabled {
		return
	}
	globalManager.saveDuplicates.Inc()
}

// UpdateUsersTracked sets the number of users with loaded history.
func UpdateUsersTracked(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.usersTracked.Set(float64(count))
}

// UpdateRecordsTotal sets the number of records across loaded histories.
func UpdateRecordsTotal(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.recordsTotal.Set(float64(count))
}

// UpdateActiveSessions sets the number of open sessions.
func UpdateActiveSessions(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.activeSessions.Set(float64(count))
}

// Repository Metrics Functions.

// RecordRepositoryWriteLatency records a history write latency for backend.
func RecordRepositoryWriteLatency(backend string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryWriteLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordRepositoryLoadLatency records a history load latency for backend.
func RecordRepositoryLoadLatency(backend string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryLoadLatency.WithLabelValues(backend).Observe(latencyMs)
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// SinceMs returns the elapsed milliseconds since start.
func SinceMs(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
