package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// FeedCacheLookups counts cached feed lookups by cache name and result (hit, miss, error).
	FeedCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_feed_cache_lookups_total",
		Help: "Feed cache lookups by result",
	}, []string{"cache", "result"})

	// FeedBuildLatency records how long it takes to compute a feed page from the database.
	FeedBuildLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chronicle_feed_build_latency_seconds",
		Help:    "Feed page computation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"feed"})

	// ActionsTotal counts mutating actions by action name and outcome.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_actions_total",
		Help: "Mutating actions by outcome",
	}, []string{"action", "outcome"})

	// WebSocketConnectionsTotal is the gauge of active live feed connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chronicle_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client's send buffer was full.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chronicle_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub"})
)

// RecordAction increments the action counter.
func RecordAction(action, outcome string) {
	ActionsTotal.WithLabelValues(action, outcome).Inc()
}
