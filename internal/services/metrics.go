package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Module lifecycle metrics
	ModuleActivations prometheus.Counter
	ModuleCompletions prometheus.Counter

	// Context synthesis metrics
	SnapshotWrites prometheus.Counter
	SnapshotSkips  prometheus.Counter

	// Generation gateway metrics
	GenerationRequests  prometheus.Counter
	GenerationFailures  prometheus.Counter
	GenerationCacheHits prometheus.Counter
	GenerationDuration  prometheus.Histogram
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		ModuleActivations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venturekit_module_activations_total",
			Help: "Total number of module activations",
		}),

		ModuleCompletions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venturekit_module_completions_total",
			Help: "Total number of modules reaching completed status",
		}),

		SnapshotWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venturekit_context_snapshot_writes_total",
			Help: "Total number of context snapshots persisted",
		}),

		SnapshotSkips: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venturekit_context_snapshot_skips_total",
			Help: "Total number of snapshot writes skipped because the hash was unchanged",
		}),

		GenerationRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venturekit_generation_requests_total",
			Help: "Total number of generation requests served from the provider",
		}),

		GenerationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venturekit_generation_failures_total",
			Help: "Total number of generation requests that failed after retries",
		}),

		GenerationCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "venturekit_generation_cache_hits_total",
			Help: "Total number of generation requests served from cache",
		}),

		GenerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "venturekit_generation_duration_seconds",
			Help:    "Generation request latency in seconds, retries included",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}, // up to 2 minutes for slow completions
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (may be nil if not initialized)
func GetMetrics() *Metrics {
	return globalMetrics
}
