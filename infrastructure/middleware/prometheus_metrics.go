// Package middleware provides cross-cutting concerns for the AHP engine:
// Prometheus metrics and the traced, logged unit wrapper.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-ahp/internal/ports"
)

// Metric names routed to dedicated collectors. Anything else falls through
// to the generic operation counter or system gauge.
const (
	MetricConsistencyRatio    = ports.MetricConsistencyRatio
	MetricNonConvergence      = ports.MetricNonConvergence
	MetricInconsistent        = ports.MetricInconsistent
	MetricKendallsW           = ports.MetricKendallsW
	MetricOutlierEvaluators   = ports.MetricOutlierEvaluators
	MetricCacheRequests       = ports.MetricCacheRequests
	MetricUnitErrors          = ports.MetricUnitErrors
	MetricPowerIterationSteps = ports.MetricPowerIterationSteps
)

// PrometheusMetrics implements the MetricsCollector interface using Prometheus.
// It tracks unit latency, judgment quality and group agreement for the
// AHP engine.
type PrometheusMetrics struct {
	executionLatency *prometheus.HistogramVec
	consistencyRatio *prometheus.HistogramVec
	iterations       *prometheus.HistogramVec
	nonConvergence   *prometheus.CounterVec
	inconsistent     *prometheus.CounterVec
	outliers         *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
	operationCounter *prometheus.CounterVec
	kendallsW        *prometheus.GaugeVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWith(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWith registers the metrics with reg instead of the
// global registry.
func NewPrometheusMetricsWith(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	return &PrometheusMetrics{
		executionLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ahp_unit_duration_seconds",
				Help:    "Execution time of AHP units.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "unit"},
		),
		// CR rarely exceeds 1; the finer buckets sit around the 0.1 threshold.
		consistencyRatio: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricConsistencyRatio,
				Help:    "Consistency ratio of evaluated comparison matrices.",
				Buckets: []float64{0.01, 0.025, 0.05, 0.075, 0.1, 0.15, 0.2, 0.3, 0.5, 1},
			},
			[]string{"unit"},
		),
		iterations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricPowerIterationSteps,
				Help:    "Power iteration steps taken per solve.",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
			[]string{"unit"},
		),
		nonConvergence: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricNonConvergence,
				Help: "Solves that hit the power iteration budget without converging.",
			},
			[]string{"unit"},
		),
		inconsistent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricInconsistent,
				Help: "Judgments whose consistency ratio exceeded the threshold.",
			},
			[]string{"criterion_set", "unit"},
		),
		outliers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricOutlierEvaluators,
				Help: "Evaluators flagged as outliers by consensus aggregation.",
			},
			[]string{"criterion_set", "unit"},
		),
		cacheRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheRequests,
				Help: "Consensus cache lookups by result.",
			},
			[]string{"result"},
		),
		operationCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ahp_operations_total",
				Help: "Total number of operations performed by AHP units.",
			},
			[]string{"operation", "status", "unit"},
		),
		kendallsW: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: MetricKendallsW,
				Help: "Most recent Kendall's W per criterion set.",
			},
			[]string{"criterion_set"},
		),
		systemGauges: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ahp_system_state",
				Help: "Current system state values for the AHP engine.",
			},
			[]string{"metric", "unit"},
		),
	}
}

func unitLabel(labels map[string]string) string {
	if unit := labels["unit"]; unit != "" {
		return unit
	}
	return "unknown"
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.executionLatency.WithLabelValues(operation, unitLabel(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	unit := unitLabel(labels)

	switch metric {
	case MetricNonConvergence:
		pm.nonConvergence.WithLabelValues(unit).Add(value)
	case MetricInconsistent:
		pm.inconsistent.WithLabelValues(labels["criterion_set"], unit).Add(value)
	case MetricOutlierEvaluators:
		pm.outliers.WithLabelValues(labels["criterion_set"], unit).Add(value)
	case MetricCacheRequests:
		result := labels["result"]
		if result == "" {
			result = "miss"
		}
		pm.cacheRequests.WithLabelValues(result).Add(value)
	case MetricUnitErrors:
		pm.operationCounter.WithLabelValues("execute", "error", unit).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric, "success", unit).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case MetricKendallsW:
		pm.kendallsW.WithLabelValues(labels["criterion_set"]).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric, unitLabel(labels)).Set(value)
	}
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram. Unrecognized metrics are observed on
// the latency histogram under their own operation label.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	unit := unitLabel(labels)

	switch metric {
	case MetricConsistencyRatio:
		pm.consistencyRatio.WithLabelValues(unit).Observe(value)
	case MetricPowerIterationSteps:
		pm.iterations.WithLabelValues(unit).Observe(value)
	default:
		pm.executionLatency.WithLabelValues(metric, unit).Observe(value)
	}
}

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)
