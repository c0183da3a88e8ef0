package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(dbConnections, dbEmptyAcquires, cacheLookupsTotal)
}

var (
	dbConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "booking_db_connections",
			Help: "Postgres pool connections by state.",
		},
		[]string{"state"}, // total|idle|acquired|max
	)

	dbEmptyAcquires = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_db_empty_acquires",
			Help: "Acquires that had to wait for a connection since start.",
		},
	)

	cacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_cache_lookups_total",
			Help: "Redis read-through cache lookups by cache and result.",
		},
		[]string{"cache", "result"}, // result: hit|miss
	)
)

// PoolSnapshot is the part of the pool stats exported as gauges.
type PoolSnapshot struct {
	Total, Idle, Acquired, Max int32
	EmptyAcquires              int64
}

func ObservePool(s PoolSnapshot) {
	dbConnections.WithLabelValues("total").Set(float64(s.Total))
	dbConnections.WithLabelValues("idle").Set(float64(s.Idle))
	dbConnections.WithLabelValues("acquired").Set(float64(s.Acquired))
	dbConnections.WithLabelValues("max").Set(float64(s.Max))
	dbEmptyAcquires.Set(float64(s.EmptyAcquires))
}

func IncCacheRequest(cache, result string) {
	cacheLookupsTotal.WithLabelValues(norm(cache), norm(result)).Inc()
}
