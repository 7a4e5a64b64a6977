package statemachine

import "time"

// Transition is a directed edge from its owning state to a target state.
//
// Its base condition is a wait timer: when a wait is configured, every
// entry of the owning state latches a deadline of entry time plus wait, and
// the timer stays closed until Now reaches that deadline. A domain condition
// is joined to the timer with CombineAll (the default) or CombineAny. A guard,
// when set, must hold regardless of the combine mode.
//
// A Transition belongs to exactly one state of one machine; its latched
// deadline is per-instance runtime data.
type Transition[ID StateID, A any] struct {
	label    string
	target   ID
	wait     time.Duration
	waitFunc DurationFunc[A]
	combine  Combine
	cond     Condition[A]
	guard    Condition[A]

	latched  bool
	deadline time.Duration
}

// NewTransition creates an unconditional transition to target.
func NewTransition[ID StateID, A any](label string, target ID) *Transition[ID, A] {
	return &Transition[ID, A]{
		label:  label,
		target: target,
	}
}

// When sets the domain condition.
func (t *Transition[ID, A]) When(cond Condition[A]) *Transition[ID, A] {
	t.cond = cond

	return t
}

// Guard sets a precondition that is required under every combine mode.
func (t *Transition[ID, A]) Guard(cond Condition[A]) *Transition[ID, A] {
	t.guard = cond

	return t
}

// WithWait sets a fixed wait time, latched on each entry of the owning state.
func (t *Transition[ID, A]) WithWait(wait time.Duration) *Transition[ID, A] {
	t.wait = wait
	t.waitFunc = nil

	return t
}

// WithWaitFunc sets a wait time computed from the actor on each entry of
// the owning state, so configuration changes apply from the next entry.
func (t *Transition[ID, A]) WithWaitFunc(f DurationFunc[A]) *Transition[ID, A] {
	t.waitFunc = f
	t.wait = 0

	return t
}

// Either switches the transition to CombineAny: it becomes eligible as soon
// as either the wait timer elapses or the condition holds.
func (t *Transition[ID, A]) Either() *Transition[ID, A] {
	t.combine = CombineAny

	return t
}

// Label returns the diagnostic name of the transition.
func (t *Transition[ID, A]) Label() string {
	return t.label
}

// Target returns the destination state identifier.
func (t *Transition[ID, A]) Target() ID {
	return t.target
}

// Wait returns the fixed wait time. It is zero when the wait is computed.
func (t *Transition[ID, A]) Wait() time.Duration {
	return t.wait
}

// HasDynamicWait reports whether the wait is computed per entry.
func (t *Transition[ID, A]) HasDynamicWait() bool {
	return t.waitFunc != nil
}

// Mode returns how the timer and the condition are joined.
func (t *Transition[ID, A]) Mode() Combine {
	return t.combine
}

// Conditional reports whether a domain condition or guard is attached.
func (t *Transition[ID, A]) Conditional() bool {
	return t.cond != nil || t.guard != nil
}

// Deadline returns the latched deadline and whether one is armed.
func (t *Transition[ID, A]) Deadline() (time.Duration, bool) {
	return t.deadline, t.latched
}

// CanTransition reports whether the transition is eligible at now.
func (t *Transition[ID, A]) CanTransition(actor A, now time.Duration) bool {
	return t.check(actor, t.timerElapsed(now))
}

// activate relatches the wait deadline. The owning state calls it on every entry.
func (t *Transition[ID, A]) activate(actor A, now time.Duration) {
	wait := t.wait
	if t.waitFunc != nil {
		wait = max(t.waitFunc(actor), 0)
	}

	if wait <= 0 && t.waitFunc == nil {
		t.latched = false
		t.deadline = 0

		return
	}

	t.latched = true
	t.deadline = now + wait
}

func (t *Transition[ID, A]) timerElapsed(now time.Duration) bool {
	return !t.latched || now >= t.deadline
}

// check joins the base timer result with the guard and the condition.
// The condition is only consulted when its result can change the outcome.
func (t *Transition[ID, A]) check(actor A, base bool) bool {
	if t.guard != nil && !t.guard(actor) {
		return false
	}

	if t.cond == nil {
		return base
	}

	if t.combine == CombineAny {
		return base || t.cond(actor)
	}

	return base && t.cond(actor)
}
