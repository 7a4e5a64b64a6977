package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric definitions. The machine label is the machine kind (for example
// "enemy_ai" or "weapon"), never a per-instance label, to keep cardinality
// bounded when many actors run the same machine.
var (
	// transitionsTotal tracks applied transitions by kind and edge.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_transitions_total",
		Help: "Total number of applied state transitions by machine kind, from_state, and to_state",
	}, []string{"machine", "from_state", "to_state"})

	// startsTotal tracks successful machine starts.
	startsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_starts_total",
		Help: "Total number of machine starts by machine kind",
	}, []string{"machine"})

	// haltsTotal tracks halts by reason.
	haltsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_halts_total",
		Help: "Total number of machine halts by machine kind and reason",
	}, []string{"machine", "reason"})

	// lifecycleMisuseTotal tracks Start/Update calls made in the wrong lifecycle phase.
	lifecycleMisuseTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statemachine_lifecycle_misuse_total",
		Help: "Total number of lifecycle misuse reports by machine kind and kind of misuse",
	}, []string{"machine", "kind"})
)

// Misuse kinds.
const (
	misuseStartWhileActive    = "start_while_active"
	misuseUpdateWhileInactive = "update_while_inactive"
	misuseNilActor            = "nil_actor"
)

// Helper functions for label sanitization.
func sanitizeKind(kind string) string {
	if kind == "" {
		return "unknown"
	}

	return kind
}

func sanitizeReason(reason string) string {
	if reason == "" {
		return "none"
	}

	return reason
}
