package metrics

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MetricsCollector interface for collecting metrics
type MetricsCollector interface {
	IncrementCounter(name string, labels map[string]string)
	RecordHistogram(name string, value float64, labels map[string]string)
	SetGauge(name string, value float64, labels map[string]string)
	RecordDuration(name string, duration time.Duration, labels map[string]string)
}

// SimpleMetricsCollector is a basic in-memory metrics collector, safe for concurrent use.
type SimpleMetricsCollector struct {
	mu         sync.Mutex
	counters   map[string]float64
	histograms map[string][]float64
	gauges     map[string]float64
	logger     *zap.Logger
}

// NewSimpleMetricsCollector creates a new simple metrics collector
func NewSimpleMetricsCollector(logger *zap.Logger) *SimpleMetricsCollector {
	return &SimpleMetricsCollector{
		counters:   make(map[string]float64),
		histograms: make(map[string][]float64),
		gauges:     make(map[string]float64),
		logger:     logger,
	}
}

// IncrementCounter increments a counter metric
func (smc *SimpleMetricsCollector) IncrementCounter(name string, labels map[string]string) {
	key := buildMetricKey(name, labels)
	smc.mu.Lock()
	smc.counters[key]++
	value := smc.counters[key]
	smc.mu.Unlock()

	smc.logger.Debug("Counter incremented",
		zap.String("metric", name),
		zap.Any("labels", labels),
		zap.Float64("value", value))
}

// RecordHistogram records a histogram value
func (smc *SimpleMetricsCollector) RecordHistogram(name string, value float64, labels map[string]string) {
	key := buildMetricKey(name, labels)
	smc.mu.Lock()
	smc.histograms[key] = append(smc.histograms[key], value)
	smc.mu.Unlock()

	smc.logger.Debug("Histogram recorded",
		zap.String("metric", name),
		zap.Any("labels", labels),
		zap.Float64("value", value))
}

// SetGauge sets a gauge metric value
func (smc *SimpleMetricsCollector) SetGauge(name string, value float64, labels map[string]string) {
	key := buildMetricKey(name, labels)
	smc.mu.Lock()
	smc.gauges[key] = value
	smc.mu.Unlock()

	smc.logger.Debug("Gauge set",
		zap.String("metric", name),
		zap.Any("labels", labels),
		zap.Float64("value", value))
}

// RecordDuration records a duration metric
func (smc *SimpleMetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	smc.RecordHistogram(name+"_duration_seconds", duration.Seconds(), labels)
}

// Snapshot is a point-in-time copy of everything collected.
type Snapshot struct {
	Counters   map[string]float64   `json:"counters"`
	Histograms map[string][]float64 `json:"histograms"`
	Gauges     map[string]float64   `json:"gauges"`
}

// Snapshot copies the current values.
func (smc *SimpleMetricsCollector) Snapshot() Snapshot {
	smc.mu.Lock()
	defer smc.mu.Unlock()

	s := Snapshot{
		Counters:   make(map[string]float64, len(smc.counters)),
		Histograms: make(map[string][]float64, len(smc.histograms)),
		Gauges:     make(map[string]float64, len(smc.gauges)),
	}
	for k, v := range smc.counters {
		s.Counters[k] = v
	}
	for k, v := range smc.histograms {
		s.Histograms[k] = append([]float64(nil), v...)
	}
	for k, v := range smc.gauges {
		s.Gauges[k] = v
	}
	return s
}

// buildMetricKey builds a unique key for a metric with labels.
// Labels are sorted so the key does not depend on map order.
func buildMetricKey(name string, labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	for _, k := range keys {
		b.WriteString("_" + k + "_" + labels[k])
	}
	return b.String()
}

// ApplicationMetrics holds all application-specific metrics
type ApplicationMetrics struct {
	collector MetricsCollector
	logger    *zap.Logger
}

// NewApplicationMetrics creates a new application metrics instance
func NewApplicationMetrics(collector MetricsCollector, logger *zap.Logger) *ApplicationMetrics {
	return &ApplicationMetrics{
		collector: collector,
		logger:    logger,
	}
}

// NopMetrics returns metrics that are collected and never read. Useful in tests.
func NopMetrics() *ApplicationMetrics {
	return NewApplicationMetrics(NewSimpleMetricsCollector(zap.NewNop()), zap.NewNop())
}

// HTTP Metrics
func (am *ApplicationMetrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	labels := map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(statusCode),
	}

	am.collector.IncrementCounter("http_requests_total", labels)
	am.collector.RecordDuration("http_request_duration", duration, labels)
}

// Kite Metrics
func (am *ApplicationMetrics) RecordKiteCall(operation, outcome string, duration time.Duration) {
	labels := map[string]string{
		"operation": operation,
		"outcome":   outcome,
	}

	am.collector.IncrementCounter("kite_calls_total", labels)
	am.collector.RecordDuration("kite_call", duration, labels)
}

// RecordMissingInstrument counts a null entry in a served bundle.
func (am *ApplicationMetrics) RecordMissingInstrument(key string) {
	am.collector.IncrementCounter("quote_missing_total", map[string]string{"instrument": key})
}

func (am *ApplicationMetrics) RecordTokenExchange(success bool) {
	am.collector.IncrementCounter("token_exchanges_total", map[string]string{
		"success": strconv.FormatBool(success),
	})
}

// Error Metrics
func (am *ApplicationMetrics) RecordError(errorType, component string) {
	labels := map[string]string{
		"type":      errorType,
		"component": component,
	}

	am.collector.IncrementCounter("errors_total", labels)
}

// MetricsMiddleware creates HTTP middleware for collecting metrics
func MetricsMiddleware(metrics *ApplicationMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapper := &responseWriterWrapper{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapper, r)

			metrics.RecordHTTPRequest(r.Method, r.URL.Path, wrapper.statusCode, time.Since(start))
		})
	}
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriterWrapper) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// HealthMetrics tracks health check metrics
type HealthMetrics struct {
	metrics *ApplicationMetrics
}

// NewHealthMetrics creates a new health metrics instance
func NewHealthMetrics(metrics *ApplicationMetrics) *HealthMetrics {
	return &HealthMetrics{
		metrics: metrics,
	}
}

// RecordHealthCheck records a health check result
func (hm *HealthMetrics) RecordHealthCheck(component string, healthy bool, duration time.Duration) {
	labels := map[string]string{
		"component": component,
		"healthy":   strconv.FormatBool(healthy),
	}

	hm.metrics.collector.IncrementCounter("health_checks_total", labels)
	hm.metrics.collector.RecordDuration("health_check", duration, labels)
}
