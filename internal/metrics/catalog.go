package metrics

import "github.com/prometheus/client_golang/prometheus"

// Catalog and dataset pipeline Prometheus metrics.
var (
	CatalogRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlas",
			Name:      "catalog_requests_total",
			Help:      "Total number of catalog API requests",
		},
		[]string{"action", "status"},
	)

	CatalogRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "atlas",
			Name:      "catalog_request_duration_seconds",
			Help:      "Catalog API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"action"},
	)

	DatasetFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlas",
			Name:      "dataset_fetch_total",
			Help:      "Dataset fetch outcomes after normalization",
		},
		[]string{"outcome"}, // "ok" / "unavailable"
	)

	FeatureCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atlas",
			Name:      "feature_cache_total",
			Help:      "Dataset feature cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var catalogMetricsRegistered bool

// RegisterCatalogMetrics registers pipeline metrics. Must be called once from main.
func RegisterCatalogMetrics() {
	if catalogMetricsRegistered {
		return
	}
	prometheus.MustRegister(CatalogRequestsTotal)
	prometheus.MustRegister(CatalogRequestDuration)
	prometheus.MustRegister(DatasetFetchTotal)
	prometheus.MustRegister(FeatureCacheTotal)
	catalogMetricsRegistered = true
}
