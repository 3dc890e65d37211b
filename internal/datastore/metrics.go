// Package datastore provides type aliases and integration with the observability metrics package
package datastore

import (
	"sync"

	"github.com/tphakala/mixcore/internal/observability/metrics"
)

// Metrics is a type alias for the metrics.DatastoreMetrics
// This allows us to use the metrics throughout the datastore package
type Metrics = metrics.DatastoreMetrics

// Global metrics instance (set by observability package)
var (
	globalMetrics *Metrics
	metricsMutex  sync.RWMutex
	metricsOnce   sync.Once
)

// SetMetrics sets the global metrics instance for the run journal.
// This function is thread-safe and ensures metrics are only set once per process lifetime.
// Subsequent calls to this function will be ignored (idempotent behavior).
func SetMetrics(m *Metrics) {
	metricsOnce.Do(func() {
		metricsMutex.Lock()
		defer metricsMutex.Unlock()
		globalMetrics = m
	})
}

// getGlobalMetrics returns the current global metrics instance in a thread-safe manner
func getGlobalMetrics() *Metrics {
	metricsMutex.RLock()
	defer metricsMutex.RUnlock()
	return globalMetrics
}
