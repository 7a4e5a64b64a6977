// Package weapon drives a weapon through Idle, Windup, Firing and Cooldown.
//
// The trigger is a level signal: Fire and StopFire may be called from any
// goroutine and the machine samples the level once per Tick. Heat rises
// while firing and decays otherwise, never dropping below zero.
package weapon

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amp-labs/dungen/logger"
	"github.com/amp-labs/dungen/statemachine"
	"go.uber.org/atomic"
)

// StateID identifies a weapon state. Zero is reserved for "no state".
type StateID int

const (
	Idle StateID = iota + 1
	Windup
	Firing
	Cooldown
)

func (s StateID) String() string {
	switch s {
	case Idle:
		return "idle"
	case Windup:
		return "windup"
	case Firing:
		return "firing"
	case Cooldown:
		return "cooldown"
	default:
		return "none"
	}
}

// MachineKind labels weapon machines in metrics and spans.
const MachineKind = "weapon"

// Option configures a Weapon.
type Option func(*Weapon)

// WithOwner equips the weapon from the start.
func WithOwner(owner string) Option {
	return func(w *Weapon) {
		w.owner.Store(owner)
	}
}

// WithEffects sets the effect sink.
func WithEffects(effects Effects) Option {
	return func(w *Weapon) {
		if effects != nil {
			w.effects = effects
		}
	}
}

// WithMachineOptions passes options through to the underlying machine.
func WithMachineOptions(opts ...statemachine.Option) Option {
	return func(w *Weapon) {
		w.machineOpts = append(w.machineOpts, opts...)
	}
}

// Weapon is a firing model owned by one character.
type Weapon struct {
	name        string
	effects     Effects
	machineOpts []statemachine.Option

	mu    sync.RWMutex
	props Properties

	trigger *atomic.Bool
	owner   *atomic.String
	heat    *atomic.Float64
	now     time.Duration

	machine *statemachine.Machine[StateID, *Weapon]
}

// New builds a weapon from validated properties.
func New(name string, props Properties, opts ...Option) (*Weapon, error) {
	err := props.Validate()
	if err != nil {
		return nil, err
	}

	w := &Weapon{
		name:    name,
		effects: EffectFuncs{},
		props:   props,
		trigger: atomic.NewBool(false),
		owner:   atomic.NewString(""),
		heat:    atomic.NewFloat64(0),
	}

	for _, opt := range opts {
		opt(w)
	}

	machineOpts := append([]statemachine.Option{statemachine.WithKind(MachineKind)}, w.machineOpts...)

	machine, err := statemachine.NewBuilder[StateID, *Weapon]("FSM_PRIMARYFIRE "+name, w).
		WithOptions(machineOpts...).
		WithInitialState(Idle).
		AddState(idleState(), windupState(), firingState(), cooldownState()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("building weapon machine: %w", err)
	}

	w.machine = machine

	return w, nil
}

func idleState() *statemachine.State[StateID, *Weapon] {
	return statemachine.NewState[StateID, *Weapon](Idle, Idle.String()).
		OnUpdate(func(_ context.Context, w *Weapon, tick statemachine.Tick) {
			w.dissipate(tick)
		}).
		AddTransition(
			statemachine.NewTransition[StateID, *Weapon]("trigger pulled", Windup).
				When((*Weapon).pulled),
		)
}

func windupState() *statemachine.State[StateID, *Weapon] {
	return statemachine.NewState[StateID, *Weapon](Windup, Windup.String()).
		AddTransition(
			statemachine.NewTransition[StateID, *Weapon]("trigger released", Idle).
				When((*Weapon).released),
			statemachine.NewTransition[StateID, *Weapon]("wound up", Firing).
				WithWaitFunc(func(w *Weapon) time.Duration { return w.Properties().WindupDelay }).
				When((*Weapon).pulled),
		)
}

func firingState() *statemachine.State[StateID, *Weapon] {
	return statemachine.NewState[StateID, *Weapon](Firing, Firing.String()).
		WithEntryDelayFunc(func(w *Weapon) time.Duration { return w.Properties().endCheckDelay() }).
		OnEnter(func(ctx context.Context, prev StateID, w *Weapon, _ statemachine.Tick) {
			w.onFire(ctx, prev)
		}).
		OnUpdate(func(_ context.Context, w *Weapon, tick statemachine.Tick) {
			w.heat.Add(w.Properties().HeatRate * tick.Seconds())
		}).
		OnExit(func(ctx context.Context, next StateID, w *Weapon, _ statemachine.Tick) {
			if next != Firing {
				w.effects.FireFinished(ctx, w.report())
			}
		}).
		AddTransition(
			statemachine.NewTransition[StateID, *Weapon]("overheated", Cooldown).
				When((*Weapon).overheated),
			statemachine.NewTransition[StateID, *Weapon]("trigger released", Idle).
				When((*Weapon).released),
			statemachine.NewTransition[StateID, *Weapon]("cycle", Firing).
				When(func(w *Weapon) bool { return w.Properties().RepeatCycleFire && w.pulled() }),
		)
}

func cooldownState() *statemachine.State[StateID, *Weapon] {
	return statemachine.NewState[StateID, *Weapon](Cooldown, Cooldown.String()).
		OnEnter(func(ctx context.Context, _ StateID, w *Weapon, _ statemachine.Tick) {
			overheatsTotal.WithLabelValues(w.name).Inc()
			logger.Get(ctx).Debug("weapon overheated", "weapon", w.name, "heat", w.Heat())
			w.effects.Overheated(ctx, w.report())
		}).
		OnUpdate(func(_ context.Context, w *Weapon, tick statemachine.Tick) {
			w.dissipate(tick)
		}).
		OnExit(func(ctx context.Context, _ StateID, w *Weapon, _ statemachine.Tick) {
			w.effects.CooledDown(ctx, w.report())
		}).
		AddTransition(
			statemachine.NewTransition[StateID, *Weapon]("cooled down", Idle).
				When(func(w *Weapon) bool { return w.Properties().RecoverFromOverheat && w.Heat() == 0 }),
		)
}

// Start activates the machine in Idle.
func (w *Weapon) Start(ctx context.Context, tick statemachine.Tick) error {
	w.now = tick.Now

	return w.machine.Start(ctx, Idle, tick)
}

// Tick samples the trigger and advances the machine by one update.
func (w *Weapon) Tick(ctx context.Context, tick statemachine.Tick) error {
	w.now = tick.Now

	_, err := w.machine.Update(ctx, tick)

	return err
}

// Fire pulls the trigger. An unequipped weapon ignores it.
func (w *Weapon) Fire() {
	if !w.Equipped() {
		return
	}

	w.trigger.Store(true)
}

// StopFire releases the trigger.
func (w *Weapon) StopFire() {
	w.trigger.Store(false)
}

// CanFire is true unless the weapon is cooling down.
func (w *Weapon) CanFire() bool {
	id, _ := w.machine.Active()

	return id != Cooldown
}

// IsFiring reports whether the weapon is in Firing.
func (w *Weapon) IsFiring() bool {
	id, _ := w.machine.Active()

	return id == Firing
}

// State returns the active state, or zero when the machine is not running.
func (w *Weapon) State() StateID {
	id, _ := w.machine.Active()

	return id
}

// Heat returns the current heat.
func (w *Weapon) Heat() float64 {
	return w.heat.Load()
}

// Properties returns a copy of the current properties.
func (w *Weapon) Properties() Properties {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.props
}

// SetProperties replaces the properties. Delays pick up the change on the
// next state entry; rates on the next tick.
func (w *Weapon) SetProperties(props Properties) error {
	err := props.Validate()
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.props = props

	return nil
}

// Equip hands the weapon to owner.
func (w *Weapon) Equip(owner string) {
	w.owner.Store(owner)
}

// Unequip drops the weapon and releases the trigger.
func (w *Weapon) Unequip() {
	w.owner.Store("")
	w.trigger.Store(false)
}

// Equipped reports whether someone holds the weapon.
func (w *Weapon) Equipped() bool {
	return w.owner.Load() != ""
}

// Owner returns the current holder, or "" when dropped.
func (w *Weapon) Owner() string {
	return w.owner.Load()
}

// Name returns the weapon preset name.
func (w *Weapon) Name() string {
	return w.name
}

// Machine exposes the underlying machine for hooks and description.
func (w *Weapon) Machine() *statemachine.Machine[StateID, *Weapon] {
	return w.machine
}

func (w *Weapon) pulled() bool {
	return w.trigger.Load()
}

func (w *Weapon) released() bool {
	return !w.trigger.Load()
}

func (w *Weapon) overheated() bool {
	props := w.Properties()

	return props.HeatRate > 0 && w.Heat() >= props.MaxHeat
}

// onFire signals the start of a run only when not cycling, then the shot.
func (w *Weapon) onFire(ctx context.Context, prev StateID) {
	report := w.report()

	if prev != Firing {
		w.effects.FireStarted(ctx, report)
	}

	shotsTotal.WithLabelValues(w.name).Inc()
	w.effects.Fire(ctx, report)
}

func (w *Weapon) dissipate(tick statemachine.Tick) {
	loss := w.Properties().CooldownRate * tick.Seconds()
	w.heat.Store(max(w.heat.Load()-loss, 0))
}

func (w *Weapon) report() Report {
	return Report{
		Weapon: w.name,
		Owner:  w.Owner(),
		Damage: w.Properties().Damage,
		Heat:   w.Heat(),
		Now:    w.now,
	}
}
