package querycache

import "github.com/prometheus/client_golang/prometheus"

var (
	// cacheHits counts fresh reads served from the cache, by resource.
	cacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_hits_total",
			Help: "Cache reads served without an upstream call.",
		},
		[]string{"resource"},
	)

	// cacheMisses counts reads that went upstream, by resource.
	cacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_misses_total",
			Help: "Cache reads that required an upstream call.",
		},
		[]string{"resource"},
	)

	// cacheInvalidations counts entries dropped by prefix invalidation.
	cacheInvalidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_invalidated_entries_total",
			Help: "Entries dropped by invalidation.",
		},
		[]string{"resource"},
	)

	// cacheRollbacks counts optimistic mutations that were undone.
	cacheRollbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "querycache_rollbacks_total",
			Help: "Optimistic mutations rolled back after a failed upstream call.",
		},
	)

	// cacheStale counts fetch results discarded because their key was
	// invalidated while the fetch was in flight.
	cacheStale = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querycache_stale_results_total",
			Help: "Fetch results not stored because the key was invalidated mid-flight.",
		},
		[]string{"resource"},
	)
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMisses, cacheInvalidations, cacheRollbacks, cacheStale)
}
