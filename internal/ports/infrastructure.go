package ports

import (
	"context"
	"time"
)

// CacheStore caches evaluation results keyed by input fingerprint.
// Implementations could use Redis, Memcached, or in-memory storage.
type CacheStore interface {
	// Get retrieves a cached value by key.
	// Returns the value and true if found, or nil and false if not found.
	Get(ctx context.Context, key string) (any, bool, error)

	// Set stores a value in the cache with an expiration time.
	// A zero duration means the item doesn't expire.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error

	// Delete removes a value from the cache.
	// Returns nil if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Clear removes all values from the cache.
	Clear(ctx context.Context) error
}

// Well-known metric names shared by the engine and its collectors.
const (
	MetricConsistencyRatio    = "ahp_consistency_ratio"
	MetricNonConvergence      = "ahp_nonconvergence_total"
	MetricInconsistent        = "ahp_inconsistent_judgments_total"
	MetricKendallsW           = "ahp_kendalls_w"
	MetricOutlierEvaluators   = "ahp_outlier_evaluators_total"
	MetricCacheRequests       = "ahp_cache_requests_total"
	MetricUnitErrors          = "ahp_unit_errors_total"
	MetricPowerIterationSteps = "ahp_power_iterations"
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric, e.g. cache hits or
	// non-converged solves.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram, e.g. consistency
	// ratios.
	RecordHistogram(metric string, value float64, labels map[string]string)
}

// ConfigLoader loads engine configuration from an underlying source.
type ConfigLoader interface {
	// Load reads configuration from the underlying source and populates
	// config, which must be a pointer to a struct.
	//
	// Example:
	//
	//	var cfg EngineConfig
	//	err := loader.Load(ctx, &cfg)
	Load(ctx context.Context, config any) error
}
