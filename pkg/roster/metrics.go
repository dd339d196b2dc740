package roster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	rosterCharacters = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_roster_characters",
		Help: "Characters currently held in the roster",
	})

	rosterDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_roster_duplicates_total",
		Help: "Characters dropped because their URL was already stored",
	})

	rosterLoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_roster_loads_total",
		Help: "Roster loads by outcome",
	}, []string{"outcome"})

	rosterLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapi_roster_load_duration_seconds",
		Help:    "Time to walk the listing and drain enrichment",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)
