package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ResolutionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugint_resolution_total",
			Help: "Resolved input names by winning method",
		},
		[]string{"method"},
	)

	ResolutionRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drugint_resolution_rejected_total",
			Help: "Input names rejected during normalization",
		},
	)

	StrategyDegraded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugint_strategy_degraded_total",
			Help: "Strategy calls that contributed no candidates because of an error",
		},
		[]string{"strategy", "reason"},
	)

	InteractionAlerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugint_interaction_alerts_total",
			Help: "Interaction alerts produced",
		},
		[]string{"severity", "source"},
	)

	CheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "drugint_check_duration_seconds",
			Help:    "Interaction check duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"outcome"},
	)

	MatchConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "drugint_match_confidence",
			Help:    "Confidence of matched names",
			Buckets: []float64{0.7, 0.75, 0.8, 0.85, 0.9, 0.95, 1.0},
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugint_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drugint_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache"},
	)

	CatalogDrugs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "drugint_catalog_drugs",
			Help: "Drugs in the active catalog index",
		},
	)

	IndexRebuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drugint_index_rebuilds_total",
			Help: "Catalog index rebuilds",
		},
	)
)

func Init() {
	prometheus.MustRegister(ResolutionTotal)
	prometheus.MustRegister(ResolutionRejected)
	prometheus.MustRegister(StrategyDegraded)
	prometheus.MustRegister(InteractionAlerts)
	prometheus.MustRegister(CheckDuration)
	prometheus.MustRegister(MatchConfidence)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(CatalogDrugs)
	prometheus.MustRegister(IndexRebuilds)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
