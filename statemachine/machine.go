package statemachine

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel/codes"
)

const defaultKind = "default"

// Halt reasons used by the machine itself.
const (
	HaltReasonRestart      = "restart"
	HaltReasonMissingState = "missing_state"
)

// Option configures a Machine.
type Option func(*options)

type options struct {
	kind    string
	logger  Logger
	verbose bool
}

// WithKind sets the machine kind used as the metric and span label.
func WithKind(kind string) Option {
	return func(o *options) {
		o.kind = kind
	}
}

// WithLogger replaces the default slog-backed logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithVerbose enables verbose logging from the start.
func WithVerbose(verbose bool) Option {
	return func(o *options) {
		o.verbose = verbose
	}
}

// Machine drives exactly one active state per actor, advancing at most one
// transition per Update.
//
// A Machine is not safe for concurrent use. The actor that owns it is the
// only caller, once per tick.
type Machine[ID StateID, A any] struct {
	label    string
	kind     string
	actor    A
	states   map[ID]*State[ID, A]
	order    []ID
	initial  ID
	current  *State[ID, A]
	active   bool
	disabled bool
	verbose  bool
	logger   Logger
	hooks    []Hook[ID]
}

// New creates a machine with an empty state mapping. A nil actor leaves the
// machine permanently halted: Start will always fail with ErrNilActor.
func New[ID StateID, A any](label string, actor A, opts ...Option) *Machine[ID, A] {
	o := options{kind: defaultKind}
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		o.logger = NewDefaultLogger()
	}

	return &Machine[ID, A]{
		label:    label,
		kind:     sanitizeKind(o.kind),
		actor:    actor,
		states:   make(map[ID]*State[ID, A]),
		disabled: isNil(actor),
		verbose:  o.verbose,
		logger:   o.logger,
	}
}

// RegisterState adds a state. Duplicate or zero identifiers are rejected,
// and so is registration while the machine is running.
func (m *Machine[ID, A]) RegisterState(state *State[ID, A]) error {
	if state == nil {
		return ErrNilState
	}

	var zero ID
	if state.id == zero {
		return WrapStateError(state.label, ErrReservedStateID)
	}

	if m.active {
		return WrapStateError(state.label, ErrAlreadyActive)
	}

	if _, exists := m.states[state.id]; exists {
		return WrapStateError(state.label, ErrDuplicateState)
	}

	m.states[state.id] = state
	m.order = append(m.order, state.id)

	if m.initial == zero {
		m.initial = state.id
	}

	return nil
}

// Start activates the machine in the initial state and runs its Enter hook
// with the zero identifier as the previous state.
//
// Starting a machine that is already active halts it and reports
// ErrAlreadyActive. An unregistered initial state, or any transition whose
// destination is not registered, refuses the start.
func (m *Machine[ID, A]) Start(ctx context.Context, initial ID, tick Tick) error {
	if m.disabled {
		err := fmt.Errorf("%w: %s", ErrNilActor, m.label)
		m.misuse(ctx, misuseNilActor, err)

		return err
	}

	if m.active {
		m.Halt(ctx, HaltReasonRestart)

		err := fmt.Errorf("%w: %s", ErrAlreadyActive, m.label)
		m.misuse(ctx, misuseStartWhileActive, err)

		return err
	}

	state, ok := m.states[initial]
	if !ok {
		return WrapStateError(m.stateLabel(initial), ErrStateNotFound)
	}

	err := m.checkTargets()
	if err != nil {
		return err
	}

	ctx, span := startMachineSpan(ctx, m.kind, m.label, state.label)
	defer span.End()

	var none ID

	m.initial = initial
	m.active = true
	m.current = state
	state.Enter(ctx, none, m.actor, tick)

	startsTotal.WithLabelValues(m.kind).Inc()

	if m.verbose {
		m.logger.StateEntered(ctx, m.label, state.label, m.stateLabel(none), tick.Now)
	}

	m.emit(ctx, HookEvent[ID]{Phase: PhaseStart, Machine: m.label, To: initial, Now: tick.Now})

	return nil
}

// Halt stops the machine without running Exit on the active state. Halting
// represents actor death or destruction, not a state change. Halt is
// idempotent.
func (m *Machine[ID, A]) Halt(ctx context.Context, reason string) {
	if !m.active {
		return
	}

	var from ID

	fromLabel := m.stateLabel(from)

	if m.current != nil {
		from = m.current.id
		fromLabel = m.current.label
	}

	m.active = false
	m.current = nil

	haltsTotal.WithLabelValues(m.kind, sanitizeReason(reason)).Inc()

	if m.verbose {
		m.logger.MachineHalted(ctx, m.label, fromLabel, reason)
	}

	m.emit(ctx, HookEvent[ID]{Phase: PhaseHalt, Machine: m.label, From: from, Reason: reason})
}

// Update evaluates the active state's transitions, applies the first
// eligible one (Exit on the old state, then Enter on the new one) and then
// always runs Update on the active state. A state can therefore be entered
// and updated within the same tick.
//
// Calling Update on a machine that is not running has no side effects and
// reports ErrNotActive.
func (m *Machine[ID, A]) Update(ctx context.Context, tick Tick) (Step[ID], error) {
	if !m.active || m.current == nil {
		err := fmt.Errorf("%w: %s", ErrNotActive, m.label)
		m.misuse(ctx, misuseUpdateWhileInactive, err)

		return Step[ID]{}, err
	}

	step := Step[ID]{From: m.current.id, To: m.current.id}

	if t := m.current.EvaluateTransitions(m.actor, tick.Now); t != nil {
		err := m.apply(ctx, t, tick)
		if err != nil {
			return step, err
		}

		step.To = t.target
		step.Transition = t.label
		step.Transitioned = true
	}

	m.current.Update(ctx, m.actor, tick)

	return step, nil
}

func (m *Machine[ID, A]) apply(ctx context.Context, t *Transition[ID, A], tick Tick) error {
	from := m.current

	to, ok := m.states[t.target]
	if !ok {
		m.Halt(ctx, HaltReasonMissingState)

		return WrapTransitionError(from.label, m.stateLabel(t.target), ErrStateNotFound)
	}

	ctx, span := startTransitionSpan(ctx, m.kind, m.label, from.label, to.label, t.label)
	defer span.End()

	from.Exit(ctx, to.id, m.actor, tick)
	m.current = to
	to.Enter(ctx, from.id, m.actor, tick)

	span.SetStatus(codes.Ok, "applied")
	transitionsTotal.WithLabelValues(m.kind, from.label, to.label).Inc()

	if m.verbose {
		m.logger.TransitionExecuted(ctx, m.label, from.label, to.label, t.label, tick.Now)
	}

	m.emit(ctx, HookEvent[ID]{
		Phase:      PhaseTransition,
		Machine:    m.label,
		From:       from.id,
		To:         to.id,
		Transition: t.label,
		Now:        tick.Now,
	})

	return nil
}

// Active returns the identifier of the active state, if any.
func (m *Machine[ID, A]) Active() (ID, bool) {
	if !m.active || m.current == nil {
		var none ID

		return none, false
	}

	return m.current.id, true
}

// ActiveState returns the active state, or nil when the machine is not running.
func (m *Machine[ID, A]) ActiveState() *State[ID, A] {
	if !m.active {
		return nil
	}

	return m.current
}

// State returns a registered state.
func (m *Machine[ID, A]) State(id ID) (*State[ID, A], bool) {
	s, ok := m.states[id]

	return s, ok
}

// States returns the registered states in registration order.
func (m *Machine[ID, A]) States() []*State[ID, A] {
	out := make([]*State[ID, A], 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.states[id])
	}

	return out
}

// IsActive reports whether the machine is running.
func (m *Machine[ID, A]) IsActive() bool {
	return m.active
}

// Label returns the human-readable machine label.
func (m *Machine[ID, A]) Label() string {
	return m.label
}

// Kind returns the machine kind used in metrics and spans.
func (m *Machine[ID, A]) Kind() string {
	return m.kind
}

// Actor returns the actor the machine drives.
func (m *Machine[ID, A]) Actor() A {
	return m.actor
}

// Initial returns the initial state: the one passed to the last Start, or
// the first registered state before any start.
func (m *Machine[ID, A]) Initial() ID {
	return m.initial
}

// SetVerbose toggles verbose logging. It never affects control flow.
func (m *Machine[ID, A]) SetVerbose(verbose bool) {
	m.verbose = verbose
}

// Verbose reports whether verbose logging is enabled.
func (m *Machine[ID, A]) Verbose() bool {
	return m.verbose
}

// AddHook registers a lifecycle observer.
func (m *Machine[ID, A]) AddHook(hook Hook[ID]) {
	m.hooks = append(m.hooks, hook)
}

// StateLabel returns the label of a registered state, "none" for the zero
// identifier and the formatted identifier otherwise.
func (m *Machine[ID, A]) StateLabel(id ID) string {
	return m.stateLabel(id)
}

func (m *Machine[ID, A]) stateLabel(id ID) string {
	var none ID
	if id == none {
		return "none"
	}

	if s, ok := m.states[id]; ok {
		return s.label
	}

	return fmt.Sprint(id)
}

// checkTargets verifies that every transition points at a registered state.
func (m *Machine[ID, A]) checkTargets() error {
	for _, id := range m.order {
		state := m.states[id]
		for _, t := range state.transitions {
			if _, ok := m.states[t.target]; !ok {
				return WrapTransitionError(state.label, fmt.Sprint(t.target), ErrStateNotFound)
			}
		}
	}

	return nil
}

func (m *Machine[ID, A]) misuse(ctx context.Context, kind string, err error) {
	lifecycleMisuseTotal.WithLabelValues(m.kind, kind).Inc()
	m.logger.LifecycleMisuse(ctx, m.label, err)
}

func (m *Machine[ID, A]) emit(ctx context.Context, event HookEvent[ID]) {
	for _, hook := range m.hooks {
		hook(ctx, event)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() { //nolint:exhaustive // only nillable kinds matter
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
