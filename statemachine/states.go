package statemachine

import (
	"context"
	"time"
)

// State is a named mode of behavior with Enter, Update and Exit hooks and an
// ordered list of outgoing transitions. When several transitions are
// eligible, the one registered first wins.
//
// An entry delay suppresses transition evaluation for a while after each
// entry. The delay may be fixed or recomputed from the actor on every entry.
// Transitions in CombineAny mode are the one exception: while the delay is
// running they are still considered, with their timer half treated as not
// yet elapsed, so only their condition can make them fire early.
type State[ID StateID, A any] struct {
	id             ID
	label          string
	entryDelay     time.Duration
	entryDelayFunc DurationFunc[A]
	transitions    []*Transition[ID, A]

	onEnter  EnterFunc[ID, A]
	onUpdate UpdateFunc[A]
	onExit   ExitFunc[ID, A]

	enteredAt   time.Duration
	activeDelay time.Duration
}

// NewState creates a state with no hooks, no entry delay and no transitions.
func NewState[ID StateID, A any](id ID, label string) *State[ID, A] {
	return &State[ID, A]{
		id:    id,
		label: label,
	}
}

// WithEntryDelay sets a fixed entry delay.
func (s *State[ID, A]) WithEntryDelay(delay time.Duration) *State[ID, A] {
	s.entryDelay = max(delay, 0)
	s.entryDelayFunc = nil

	return s
}

// WithEntryDelayFunc sets an entry delay recomputed from the actor on every entry.
func (s *State[ID, A]) WithEntryDelayFunc(f DurationFunc[A]) *State[ID, A] {
	s.entryDelayFunc = f
	s.entryDelay = 0

	return s
}

// OnEnter sets the enter hook.
func (s *State[ID, A]) OnEnter(f EnterFunc[ID, A]) *State[ID, A] {
	s.onEnter = f

	return s
}

// OnUpdate sets the per-tick hook.
func (s *State[ID, A]) OnUpdate(f UpdateFunc[A]) *State[ID, A] {
	s.onUpdate = f

	return s
}

// OnExit sets the exit hook.
func (s *State[ID, A]) OnExit(f ExitFunc[ID, A]) *State[ID, A] {
	s.onExit = f

	return s
}

// AddTransition appends transitions in priority order.
func (s *State[ID, A]) AddTransition(transitions ...*Transition[ID, A]) *State[ID, A] {
	s.transitions = append(s.transitions, transitions...)

	return s
}

func (s *State[ID, A]) ID() ID {
	return s.id
}

func (s *State[ID, A]) Label() string {
	return s.label
}

// Transitions returns the outgoing transitions in priority order.
func (s *State[ID, A]) Transitions() []*Transition[ID, A] {
	out := make([]*Transition[ID, A], len(s.transitions))
	copy(out, s.transitions)

	return out
}

// EntryDelay returns the delay in effect for the current entry. Before the
// first entry it is the configured fixed delay.
//
// While the delay runs, only CombineAny transitions are evaluated, and only
// on their conditions. Every CombineAll transition stays suppressed until the
// delay has elapsed.
func (s *State[ID, A]) EntryDelay() time.Duration {
	if s.entryDelayFunc == nil {
		return s.entryDelay
	}

	return s.activeDelay
}

// HasDynamicEntryDelay reports whether the entry delay is recomputed per entry.
func (s *State[ID, A]) HasDynamicEntryDelay() bool {
	return s.entryDelayFunc != nil
}

// EnteredAt returns the time of the most recent entry.
func (s *State[ID, A]) EnteredAt() time.Duration {
	return s.enteredAt
}

// Elapsed returns the time spent in the state since its most recent entry.
func (s *State[ID, A]) Elapsed(now time.Duration) time.Duration {
	return now - s.enteredAt
}

// Enter records the entry time, fixes the entry delay for this visit,
// relatches every transition timer and then runs the enter hook.
func (s *State[ID, A]) Enter(ctx context.Context, prev ID, actor A, tick Tick) {
	s.enteredAt = tick.Now

	s.activeDelay = s.entryDelay
	if s.entryDelayFunc != nil {
		s.activeDelay = max(s.entryDelayFunc(actor), 0)
	}

	for _, t := range s.transitions {
		t.activate(actor, tick.Now)
	}

	if s.onEnter != nil {
		s.onEnter(ctx, prev, actor, tick)
	}
}

// EvaluateTransitions returns the first eligible transition, or nil. Before
// the entry delay has elapsed, only CombineAny transitions are candidates.
func (s *State[ID, A]) EvaluateTransitions(actor A, now time.Duration) *Transition[ID, A] {
	if !s.gateOpen(now) {
		for _, t := range s.transitions {
			if t.combine == CombineAny && t.check(actor, false) {
				return t
			}
		}

		return nil
	}

	for _, t := range s.transitions {
		if t.CanTransition(actor, now) {
			return t
		}
	}

	return nil
}

// Update runs the per-tick hook.
func (s *State[ID, A]) Update(ctx context.Context, actor A, tick Tick) {
	if s.onUpdate != nil {
		s.onUpdate(ctx, actor, tick)
	}
}

// Exit runs the exit hook.
func (s *State[ID, A]) Exit(ctx context.Context, next ID, actor A, tick Tick) {
	if s.onExit != nil {
		s.onExit(ctx, next, actor, tick)
	}
}

func (s *State[ID, A]) gateOpen(now time.Duration) bool {
	return now-s.enteredAt >= s.activeDelay
}
