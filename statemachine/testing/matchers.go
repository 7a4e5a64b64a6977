package testing

import (
	"errors"
	"fmt"

	"github.com/amp-labs/dungen/statemachine"
)

// Matcher errors.
var (
	ErrNoTrace            = errors.New("no trace recorded")
	ErrStateNotVisited    = errors.New("state was not visited")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrUnexpectedFinal    = errors.New("unexpected final state")
	ErrNotHalted          = errors.New("machine was not halted")
)

// Matcher is an assertion over a recorded trace.
type Matcher[ID statemachine.StateID] interface {
	Match(trace []TraceEntry[ID]) (bool, error)
	Description() string
}

// StateWasVisited matches when the state was started in or transitioned into.
func StateWasVisited[ID statemachine.StateID](id ID) Matcher[ID] {
	return &stateVisitedMatcher[ID]{id: id}
}

type stateVisitedMatcher[ID statemachine.StateID] struct {
	id ID
}

func (m *stateVisitedMatcher[ID]) Match(trace []TraceEntry[ID]) (bool, error) {
	for _, entry := range trace {
		if entry.Phase != statemachine.PhaseHalt && entry.To == m.id {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: %v", ErrStateNotVisited, m.id)
}

func (m *stateVisitedMatcher[ID]) Description() string {
	return fmt.Sprintf("state %v should be visited", m.id)
}

// TransitionWasTaken matches when an edge from -> to was applied.
func TransitionWasTaken[ID statemachine.StateID](from, to ID) Matcher[ID] {
	return &transitionTakenMatcher[ID]{from: from, to: to}
}

type transitionTakenMatcher[ID statemachine.StateID] struct {
	from ID
	to   ID
}

func (m *transitionTakenMatcher[ID]) Match(trace []TraceEntry[ID]) (bool, error) {
	for _, entry := range trace {
		if entry.Phase == statemachine.PhaseTransition && entry.From == m.from && entry.To == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from %v to %v", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher[ID]) Description() string {
	return fmt.Sprintf("transition from %v to %v should be taken", m.from, m.to)
}

// EndedIn matches when the last state entered is id.
func EndedIn[ID statemachine.StateID](id ID) Matcher[ID] {
	return &endedInMatcher[ID]{id: id}
}

type endedInMatcher[ID statemachine.StateID] struct {
	id ID
}

func (m *endedInMatcher[ID]) Match(trace []TraceEntry[ID]) (bool, error) {
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Phase == statemachine.PhaseHalt {
			continue
		}

		if trace[i].To == m.id {
			return true, nil
		}

		return false, fmt.Errorf("%w: got %v, want %v", ErrUnexpectedFinal, trace[i].To, m.id)
	}

	return false, ErrNoTrace
}

func (m *endedInMatcher[ID]) Description() string {
	return fmt.Sprintf("last state entered should be %v", m.id)
}

// WasHalted matches when the machine was halted with the given reason.
// An empty reason matches any halt.
func WasHalted[ID statemachine.StateID](reason string) Matcher[ID] {
	return &haltedMatcher[ID]{reason: reason}
}

type haltedMatcher[ID statemachine.StateID] struct {
	reason string
}

func (m *haltedMatcher[ID]) Match(trace []TraceEntry[ID]) (bool, error) {
	for _, entry := range trace {
		if entry.Phase == statemachine.PhaseHalt && (m.reason == "" || entry.Reason == m.reason) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: reason %q", ErrNotHalted, m.reason)
}

func (m *haltedMatcher[ID]) Description() string {
	return fmt.Sprintf("machine should be halted (reason %q)", m.reason)
}

// MatchAll evaluates every matcher and returns the joined failures.
func MatchAll[ID statemachine.StateID](trace []TraceEntry[ID], matchers ...Matcher[ID]) error {
	var errs []error

	for _, matcher := range matchers {
		ok, err := matcher.Match(trace)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w", matcher.Description(), err))
		}
	}

	return errors.Join(errs...)
}
