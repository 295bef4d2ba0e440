// Package metrics provides the Prometheus-backed metrics
// implementation. Metric names are prefixed with the service name and
// every series carries a component label so one registry serves the
// whole pipeline.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// sharedVecs holds the per-service metric vectors. They are registered
// with the default registry exactly once per service name; component
// instances share them through a label value.
type sharedVecs struct {
	processedTotal  *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	durationSeconds *prometheus.HistogramVec
	fileSizeBytes   *prometheus.HistogramVec
	inProgress      *prometheus.GaugeVec
}

var (
	sharedMu        sync.Mutex
	sharedByService = make(map[string]*sharedVecs)
)

func getShared(serviceName string) *sharedVecs {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if v, ok := sharedByService[serviceName]; ok {
		return v
	}

	v := &sharedVecs{
		processedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_processed_total", serviceName),
				Help: fmt.Sprintf("Total processed items by %s", serviceName),
			},
			[]string{"status", "operation", "component"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_errors_total", serviceName),
				Help: fmt.Sprintf("Total errors in %s", serviceName),
			},
			[]string{"error_type", "operation", "component"},
		),
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    fmt.Sprintf("%s_duration_seconds", serviceName),
				Help:    fmt.Sprintf("Operation duration in %s", serviceName),
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "component"},
		),
		fileSizeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: fmt.Sprintf("%s_file_size_bytes", serviceName),
				Help: fmt.Sprintf("Payload sizes processed by %s", serviceName),
				// 1KB through 1GB; document payloads cluster in the
				// low megabytes but annual reports can run large.
				Buckets: []float64{
					1024,
					10240,
					102400,
					1048576,
					10485760,
					104857600,
					1073741824,
				},
			},
			[]string{"file_type", "component"},
		),
		inProgress: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: fmt.Sprintf("%s_in_progress", serviceName),
				Help: fmt.Sprintf("Operations in progress in %s", serviceName),
			},
			[]string{"operation", "component"},
		),
	}

	prometheus.MustRegister(
		v.processedTotal,
		v.errorsTotal,
		v.durationSeconds,
		v.fileSizeBytes,
		v.inProgress,
	)

	sharedByService[serviceName] = v
	return v
}

// PrometheusMetrics implements the observability Metrics interface for
// one component of the service.
type PrometheusMetrics struct {
	component string
	shared    *sharedVecs
}

// New returns the metrics handle for a component. Calling New twice
// with the same service name reuses the registered vectors.
func New(serviceName, component string) *PrometheusMetrics {
	return &PrometheusMetrics{
		component: component,
		shared:    getShared(serviceName),
	}
}

// RecordSuccess increments the processed counter with status success.
func (m *PrometheusMetrics) RecordSuccess(operation string) {
	m.shared.processedTotal.WithLabelValues("success", operation, m.component).Inc()
}

// RecordError increments both the processed counter (status error) and
// the detailed error counter, giving failure rates and breakdowns.
func (m *PrometheusMetrics) RecordError(operation string, errorType string) {
	m.shared.processedTotal.WithLabelValues("error", operation, m.component).Inc()
	m.shared.errorsTotal.WithLabelValues(errorType, operation, m.component).Inc()
}

// RecordDuration observes an operation duration in seconds.
func (m *PrometheusMetrics) RecordDuration(operation string, seconds float64) {
	m.shared.durationSeconds.WithLabelValues(operation, m.component).Observe(seconds)
}

// RecordFileSize observes a payload size in bytes.
func (m *PrometheusMetrics) RecordFileSize(fileType string, bytes int64) {
	m.shared.fileSizeBytes.WithLabelValues(fileType, m.component).Observe(float64(bytes))
}

// StartOperation increments the in-progress gauge.
func (m *PrometheusMetrics) StartOperation(operation string) {
	m.shared.inProgress.WithLabelValues(operation, m.component).Inc()
}

// EndOperation decrements the in-progress gauge.
func (m *PrometheusMetrics) EndOperation(operation string) {
	m.shared.inProgress.WithLabelValues(operation, m.component).Dec()
}
