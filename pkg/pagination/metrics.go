package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "swapi_pages_fetched_total",
	Help: "Character pages fetched by the walker by outcome",
}, []string{"outcome"})
