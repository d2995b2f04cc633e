package ports

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheCorrupted means a cached evaluation did not decode back into
	// an evaluation result.
	ErrCacheCorrupted = errors.New("cached evaluation corrupted")

	// ErrConfigNotFound means an engine configuration or evaluation input
	// document does not exist.
	ErrConfigNotFound = errors.New("document not found")
)

// CacheError reports a failed evaluation cache call. Key is the
// fingerprint-derived cache key, or "*" for calls that span the store.
type CacheError struct {
	Key       string
	Operation string
	Err       error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("evaluation cache %s %s: %v", e.Operation, e.Key, e.Err)
}

func (e *CacheError) Unwrap() error { return e.Err }

// NewCacheError wraps err with the cache key and operation it came from.
func NewCacheError(key, operation string, err error) *CacheError {
	return &CacheError{Key: key, Operation: operation, Err: err}
}

// MetricsError reports a failure to record or export the engine's
// consistency, solver and consensus metrics. Metric is "*" when the whole
// registry was involved, as when writing a textfile.
type MetricsError struct {
	Metric    string
	Operation string
	Err       error
}

func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics %s %s: %v", e.Operation, e.Metric, e.Err)
}

func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError wraps err with the metric and operation it came from.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{Metric: metric, Operation: operation, Err: err}
}

// ConfigSource names where a document was read from.
type ConfigSource string

const (
	// ConfigSourceFile is a YAML or JSON document on disk.
	ConfigSourceFile ConfigSource = "file"
	// ConfigSourceReader is a document streamed from an io.Reader.
	ConfigSourceReader ConfigSource = "reader"
)

// ConfigError reports an engine configuration or evaluation input that
// could not be read or decoded. Location is the file path for
// ConfigSourceFile and empty otherwise.
type ConfigError struct {
	Source   ConfigSource
	Location string
	Err      error
}

func (e *ConfigError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("%s document: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s document %s: %v", e.Source, e.Location, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps err with the source kind and location of the
// offending document.
func NewConfigError(source ConfigSource, location string, err error) *ConfigError {
	return &ConfigError{Source: source, Location: location, Err: err}
}
