package weapon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// shotsTotal counts shots by weapon preset.
	shotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weapon_shots_total",
		Help: "Total number of shots fired by weapon preset",
	}, []string{"weapon"})

	// overheatsTotal counts entries into Cooldown by weapon preset.
	overheatsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "weapon_overheats_total",
		Help: "Total number of overheats by weapon preset",
	}, []string{"weapon"})
)
