// Package testing provides testing utilities for tick-driven state machines:
// a manual clock, a machine wrapper that records every lifecycle event, and
// require-based assertions over the recorded trace.
//
//nolint:varnamelen // short names idiomatic
package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amp-labs/dungen/statemachine"
	"github.com/stretchr/testify/require"
)

// DefaultFrame is the tick length used by Step, roughly 60 frames per second.
const DefaultFrame = 16 * time.Millisecond

// Clock is a manual monotonic clock producing statemachine ticks.
type Clock struct {
	now time.Duration
}

// NewClock creates a clock starting at start.
func NewClock(start time.Duration) *Clock {
	return &Clock{now: start}
}

// Now returns the current time.
func (c *Clock) Now() time.Duration {
	return c.now
}

// Current returns a zero-delta tick at the current time, for Start.
func (c *Clock) Current() statemachine.Tick {
	return statemachine.Tick{Now: c.now}
}

// Advance moves the clock forward by d and returns the resulting tick.
func (c *Clock) Advance(d time.Duration) statemachine.Tick {
	c.now += d

	return statemachine.Tick{Now: c.now, Delta: d}
}

// AdvanceTo moves the clock to now. Moving backwards is a programming error.
func (c *Clock) AdvanceTo(now time.Duration) statemachine.Tick {
	if now < c.now {
		panic(fmt.Sprintf("clock cannot move backwards from %s to %s", c.now, now))
	}

	return c.Advance(now - c.now)
}

// TraceEntry records a single lifecycle event.
type TraceEntry[ID statemachine.StateID] struct {
	Phase      statemachine.Phase
	From       ID
	To         ID
	Transition string
	Reason     string
	Now        time.Duration
}

// TestMachine wraps a Machine with a manual clock and a lifecycle trace.
type TestMachine[ID statemachine.StateID, A any] struct {
	*statemachine.Machine[ID, A]

	t     *testing.T
	clock *Clock
	trace []TraceEntry[ID]
}

// NewTestMachine wraps m. The clock starts at zero.
func NewTestMachine[ID statemachine.StateID, A any](
	t *testing.T, m *statemachine.Machine[ID, A],
) *TestMachine[ID, A] {
	t.Helper()

	tm := &TestMachine[ID, A]{
		Machine: m,
		t:       t,
		clock:   NewClock(0),
	}

	m.AddHook(func(_ context.Context, event statemachine.HookEvent[ID]) {
		tm.trace = append(tm.trace, TraceEntry[ID]{
			Phase:      event.Phase,
			From:       event.From,
			To:         event.To,
			Transition: event.Transition,
			Reason:     event.Reason,
			Now:        event.Now,
		})
	})

	return tm
}

// Clock returns the manual clock driving the machine.
func (tm *TestMachine[ID, A]) Clock() *Clock {
	return tm.clock
}

// MustStart starts the machine at the current clock time.
func (tm *TestMachine[ID, A]) MustStart(initial ID) {
	tm.t.Helper()

	require.NoError(tm.t, tm.Start(tm.t.Context(), initial, tm.clock.Current()), "failed to start machine")
}

// Step advances the clock by d and runs one Update.
func (tm *TestMachine[ID, A]) Step(d time.Duration) statemachine.Step[ID] {
	tm.t.Helper()

	step, err := tm.Update(tm.t.Context(), tm.clock.Advance(d))
	require.NoError(tm.t, err, "update failed")

	return step
}

// StepTo advances the clock to now and runs one Update.
func (tm *TestMachine[ID, A]) StepTo(now time.Duration) statemachine.Step[ID] {
	tm.t.Helper()

	step, err := tm.Update(tm.t.Context(), tm.clock.AdvanceTo(now))
	require.NoError(tm.t, err, "update failed")

	return step
}

// RunFor runs frame-sized updates until total time has passed.
func (tm *TestMachine[ID, A]) RunFor(total, frame time.Duration) {
	tm.t.Helper()

	if frame <= 0 {
		frame = DefaultFrame
	}

	end := tm.clock.Now() + total
	for tm.clock.Now() < end {
		tm.Step(min(frame, end-tm.clock.Now()))
	}
}

// Trace returns the recorded lifecycle events.
func (tm *TestMachine[ID, A]) Trace() []TraceEntry[ID] {
	return tm.trace
}

// Path returns the sequence of states entered, starting with the initial state.
func (tm *TestMachine[ID, A]) Path() []ID {
	var path []ID

	for _, entry := range tm.trace {
		if entry.Phase == statemachine.PhaseStart || entry.Phase == statemachine.PhaseTransition {
			path = append(path, entry.To)
		}
	}

	return path
}

// AssertState checks the active state.
func (tm *TestMachine[ID, A]) AssertState(expected ID) {
	tm.t.Helper()

	actual, ok := tm.Active()
	require.True(tm.t, ok, "machine should be active")
	require.Equal(tm.t, tm.StateLabel(expected), tm.StateLabel(actual), "active state")
}

// AssertStateVisited checks that a state was entered at some point.
func (tm *TestMachine[ID, A]) AssertStateVisited(expected ID) {
	tm.t.Helper()

	ok, err := StateWasVisited[ID](expected).Match(tm.trace)
	require.True(tm.t, ok, "%v", err)
}

// AssertTransitionTaken checks that an edge from -> to was applied.
func (tm *TestMachine[ID, A]) AssertTransitionTaken(from, to ID) {
	tm.t.Helper()

	ok, err := TransitionWasTaken(from, to).Match(tm.trace)
	require.True(tm.t, ok, "%v", err)
}

// AssertNeverEntered checks that a state was never entered.
func (tm *TestMachine[ID, A]) AssertNeverEntered(id ID) {
	tm.t.Helper()

	ok, _ := StateWasVisited[ID](id).Match(tm.trace)
	require.False(tm.t, ok, "state %s should never be entered", tm.StateLabel(id))
}
