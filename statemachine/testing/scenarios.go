package testing

import (
	"testing"
	"time"

	"github.com/amp-labs/dungen/statemachine"
	"github.com/stretchr/testify/require"
)

// ScenarioStep is one point on a scenario timeline. Act runs before the
// machine is updated at time At; Expect, when non-zero, is the state the
// machine must be in afterwards.
type ScenarioStep[ID statemachine.StateID, A any] struct {
	At     time.Duration
	Act    func(actor A)
	Expect ID
}

// Scenario is a timeline of actor mutations and expected states.
type Scenario[ID statemachine.StateID, A any] struct {
	Name     string
	Build    func(t *testing.T) *statemachine.Machine[ID, A]
	Initial  ID
	Steps    []ScenarioStep[ID, A]
	Matchers []Matcher[ID]
}

// RunScenario builds a fresh machine, starts it at time zero and plays the
// timeline in order.
func RunScenario[ID statemachine.StateID, A any](t *testing.T, scenario Scenario[ID, A]) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		t.Helper()

		tm := NewTestMachine(t, scenario.Build(t))
		tm.MustStart(scenario.Initial)

		var none ID

		for _, step := range scenario.Steps {
			if step.Act != nil {
				step.Act(tm.Actor())
			}

			tm.StepTo(step.At)

			if step.Expect != none {
				active, _ := tm.Active()
				require.Equal(t, tm.StateLabel(step.Expect), tm.StateLabel(active), "state at %s", step.At)
			}
		}

		require.NoError(t, MatchAll(tm.Trace(), scenario.Matchers...))
	})
}
