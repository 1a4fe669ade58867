package game

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Duration of authority ticks",
		Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05},
	})

	actorCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_actor_count",
		Help: "Live actors",
	})

	projectileCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_projectile_count",
		Help: "Active projectiles",
	})

	inboxDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_inbox_dropped_total",
		Help: "Commands dropped because the inbox was full",
	})

	castDroppedNoActor = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_cast_without_actor_total",
		Help: "Cast requests from connections that own no actor",
	})
)
