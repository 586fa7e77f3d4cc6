// Package metrics provides Prometheus metrics for dirsync.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "dirsync"

// Sync paths.
const (
	PathSingle = "single"
	PathBatch  = "batch"
)

// Sync results.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultSkipped = "skipped"
	ResultCached  = "cached"
)

var (
	// SyncTotal counts sync outcomes per user.
	SyncTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_total",
			Help:      "Total number of user sync outcomes",
		},
		[]string{"path", "result"},
	)

	// BatchDuration measures batch sync duration.
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_sync_duration_seconds",
			Help:      "Duration of batch sync calls in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// BatchSize observes the number of distinct ids per batch call.
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Distribution of batch sync sizes",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// EventsTotal counts published events by type and status.
	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Total number of events handed to sinks",
		},
		[]string{"type", "status"},
	)

	// CacheLookups counts cache reads by tier outcome.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups by outcome",
		},
		[]string{"outcome"},
	)

	// CacheStoreErrors counts failed persistent tier operations.
	CacheStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_store_errors_total",
			Help:      "Total number of failed persistent cache operations",
		},
		[]string{"operation"},
	)

	// CacheDirtyEntries tracks in-memory entries not yet persisted.
	CacheDirtyEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_dirty_entries",
			Help:      "Number of cache entries not yet written to the persistent tier",
		},
	)
)

// RecordSync records count sync outcomes.
func RecordSync(path, result string, count int) {
	if count <= 0 {
		return
	}
	SyncTotal.WithLabelValues(path, result).Add(float64(count))
}

// RecordBatch records a finished batch call.
func RecordBatch(size int, duration float64) {
	BatchSize.Observe(float64(size))
	BatchDuration.Observe(duration)
}

// RecordEvent records an event delivery attempt.
func RecordEvent(eventType, status string) {
	EventsTotal.WithLabelValues(eventType, status).Inc()
}

// RecordCacheLookup records a cache read. outcome is memory_hit, store_hit or miss.
func RecordCacheLookup(outcome string) {
	CacheLookups.WithLabelValues(outcome).Inc()
}

// RecordCacheStoreError records a failed persistent tier operation.
func RecordCacheStoreError(operation string) {
	CacheStoreErrors.WithLabelValues(operation).Inc()
}

// SetDirtyEntries sets the dirty entry gauge.
func SetDirtyEntries(n int) {
	CacheDirtyEntries.Set(float64(n))
}
