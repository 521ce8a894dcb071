package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation Prometheus metrics.
var (
	RecommendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_requests_total",
			Help:      "Recommendation calls by outcome",
		},
		[]string{"outcome"}, // "ok" / "empty" / "error"
	)

	RecommendCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_candidates",
			Help:      "Candidates recalled from the vector index per call",
			Buckets:   []float64{0, 1, 5, 10, 30, 50, 100, 250, 500},
		},
	)

	RecommendBonusesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_bonuses_total",
			Help:      "Rule-based bonuses applied during re-ranking",
		},
		[]string{"rule"}, // "condition" / "skin_type"
	)

	CatalogProductsIndexed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_products_indexed",
			Help:      "Products written by the last catalog rebuild",
		},
	)
)
