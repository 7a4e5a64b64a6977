package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tickDuration tracks how long one scheduler step takes across all actors.
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Wall time spent ticking every registered actor once",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.002, 0.004, 0.008, 0.016, 0.033, 0.066},
	})

	// actorsGauge tracks the number of registered actors.
	actorsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sim_actors",
		Help: "Number of actors registered with the scheduler",
	})

	// actorErrorsTotal counts actor ticks that returned an error.
	actorErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sim_actor_errors_total",
		Help: "Total number of actor ticks that returned an error",
	})
)
