package enrich

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enrichSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_enrich_skipped_total",
		Help: "Referenced resources skipped during enrichment by kind and error class",
	}, []string{"kind", "class"})

	enrichDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_enrich_duration_seconds",
		Help:    "Time to enrich one character reference list by kind",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"kind"})

	detailFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_detail_failures_total",
		Help: "Detail fetches degraded to Error by failing resource",
	}, []string{"resource"})

	poolJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_enrich_jobs_total",
		Help: "Enrichment jobs processed by kind",
	}, []string{"kind"})

	poolQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_enrich_queue_depth",
		Help: "Enrichment jobs waiting for a worker",
	})
)
