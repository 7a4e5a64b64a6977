package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Perception outcomes.
const (
	outcomeAccepted = "accepted"
	outcomeIgnored  = "ignored"
	outcomeDropped  = "dropped"
)

// perceptionEventsTotal counts perception events by kind and outcome.
var perceptionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "ai_perception_events_total",
	Help: "Total number of perception events by kind and outcome",
}, []string{"kind", "outcome"})
