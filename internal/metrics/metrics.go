package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// result cache lookups per orchestrator operation; result: hit/miss
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunebox_cache_lookups_total",
			Help: "Result cache lookups by operation and outcome",
		},
		[]string{"op", "result"},
	)

	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunebox_upstream_requests_total",
			Help: "Requests sent to the music provider by operation and status",
		},
		[]string{"op", "status"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tunebox_upstream_request_duration_seconds",
			Help:    "Music provider request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"op"},
	)

	SimilarityQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunebox_similarity_queries_total",
			Help: "Similarity queries by the strategy that served them",
		},
		[]string{"strategy", "status"},
	)

	EmbeddingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunebox_embeddings_total",
			Help: "Track embeddings computed by mode and status",
		},
		[]string{"mode", "status"},
	)

	// tier: lru or db
	EmbeddingCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunebox_embedding_cache_lookups_total",
			Help: "Embedding cache lookups by tier and outcome",
		},
		[]string{"tier", "result"},
	)

	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tunebox_job_runs_total",
			Help: "Background job runs by job and status",
		},
		[]string{"job", "status"},
	)

	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tunebox_job_duration_seconds",
			Help:    "Background job duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"job"},
	)
)

func CacheHit(op string) {
	CacheLookupsTotal.WithLabelValues(op, "hit").Inc()
}

func CacheMiss(op string) {
	CacheLookupsTotal.WithLabelValues(op, "miss").Inc()
}
