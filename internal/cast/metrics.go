package cast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	castRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cast_requests_total",
		Help: "Cast requests by outcome",
	}, []string{"result"})

	castsBegun = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casts_begun_total",
		Help: "Casts started, by ability",
	}, []string{"ability"})

	castsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "casts_resolved_total",
		Help: "Casts ended, by ability",
	}, []string{"ability"})

	castResolveLag = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "cast_resolve_lag_seconds",
		Help:    "How long after its cast end a cast was resolved",
		Buckets: []float64{0, .005, .01, .025, .05, .1, .25, .5},
	})
)
