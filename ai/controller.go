package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amp-labs/dungen/logger"
	"github.com/amp-labs/dungen/statemachine"
	"go.uber.org/atomic"
)

// MachineKind labels AI machines in metrics and spans.
const MachineKind = "enemy_ai"

// HaltReasonDied is the halt reason recorded by Kill.
const HaltReasonDied = "died"

// ErrDead is returned by Tick and Start once the controller has been killed.
var ErrDead = errors.New("enemy is dead")

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	machineOpts []statemachine.Option
}

// WithMachineOptions passes options through to the underlying machine.
func WithMachineOptions(opts ...statemachine.Option) Option {
	return func(o *controllerOptions) {
		o.machineOpts = append(o.machineOpts, opts...)
	}
}

// Controller is the enemy brain. It owns its machine exclusively; Post is
// the only method safe to call from other goroutines.
type Controller struct {
	name     string
	settings Settings
	body     Body
	nav      Navigator

	target  Target
	losing  bool
	lostAt  time.Duration
	now     time.Duration
	inbox   inbox
	think   *atomic.Bool
	dead    *atomic.Bool
	machine *statemachine.Machine[StateID, *Controller]
}

// NewController wires the Idle, Alert and Aggressive states around body and nav.
func NewController(name string, body Body, nav Navigator, settings Settings, opts ...Option) (*Controller, error) {
	if body == nil || nav == nil {
		return nil, fmt.Errorf("%w: body and navigator are required", ErrInvalidSettings)
	}

	err := settings.Validate()
	if err != nil {
		return nil, err
	}

	var o controllerOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &Controller{
		name:     name,
		settings: settings,
		body:     body,
		nav:      nav,
		think:    atomic.NewBool(true),
		dead:     atomic.NewBool(false),
	}

	machineOpts := append([]statemachine.Option{statemachine.WithKind(MachineKind)}, o.machineOpts...)

	machine, err := statemachine.NewBuilder[StateID, *Controller]("BaseController of "+name, c).
		WithOptions(machineOpts...).
		WithInitialState(Idle).
		AddState(idleState(), alertState(settings.AlertDelay), aggressiveState()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("building ai machine: %w", err)
	}

	c.machine = machine

	return c, nil
}

func idleState() *statemachine.State[StateID, *Controller] {
	return statemachine.NewState[StateID, *Controller](Idle, Idle.String()).
		AddTransition(
			statemachine.NewTransition[StateID, *Controller]("saw target", Alert).
				When((*Controller).HasTarget),
		)
}

func alertState(delay time.Duration) *statemachine.State[StateID, *Controller] {
	return statemachine.NewState[StateID, *Controller](Alert, Alert.String()).
		WithEntryDelay(delay).
		OnEnter(func(_ context.Context, _ StateID, c *Controller, _ statemachine.Tick) {
			c.moveTowardsTarget()
		}).
		AddTransition(
			// Reaching attack range skips the rest of the alert delay.
			statemachine.NewTransition[StateID, *Controller]("engage", Aggressive).
				Either().
				When((*Controller).TargetWithinAttackRadius).
				Guard((*Controller).HasTarget),
			statemachine.NewTransition[StateID, *Controller]("lost target", Idle).
				When(noTarget),
		)
}

func aggressiveState() *statemachine.State[StateID, *Controller] {
	return statemachine.NewState[StateID, *Controller](Aggressive, Aggressive.String()).
		OnUpdate(func(_ context.Context, c *Controller, _ statemachine.Tick) {
			c.attackTarget()
		}).
		AddTransition(
			statemachine.NewTransition[StateID, *Controller]("lost target", Alert).
				When(noTarget),
		)
}

func noTarget(c *Controller) bool {
	return !c.HasTarget()
}

// Start activates the machine in Idle.
func (c *Controller) Start(ctx context.Context, tick statemachine.Tick) error {
	if c.dead.Load() {
		return ErrDead
	}

	c.now = tick.Now

	return c.machine.Start(ctx, Idle, tick)
}

// Post queues a perception event for the next tick. Events posted after
// death are dropped.
func (c *Controller) Post(ev Event) {
	if ev == nil {
		return
	}

	if !c.inbox.post(ev) {
		perceptionEventsTotal.WithLabelValues(ev.kind(), outcomeDropped).Inc()
	}
}

// Tick drains the inbox, resolves the target and advances the machine by
// one update. A paused controller does nothing.
func (c *Controller) Tick(ctx context.Context, tick statemachine.Tick) error {
	if c.dead.Load() {
		return ErrDead
	}

	if !c.think.Load() {
		return nil
	}

	c.now = tick.Now

	for _, ev := range c.inbox.drain() {
		c.handle(ctx, ev)
	}

	c.resolveTarget()

	_, err := c.machine.Update(ctx, tick)

	return err
}

// Kill halts the machine without running Exit and stops thinking for good.
func (c *Controller) Kill(ctx context.Context) {
	if c.dead.Swap(true) {
		return
	}

	c.think.Store(false)
	c.inbox.close()
	c.machine.Halt(ctx, HaltReasonDied)

	logger.Get(ctx).Debug("enemy died", "enemy", c.name)
}

// Pause stops thinking without halting the machine.
func (c *Controller) Pause() {
	c.think.Store(false)
}

// Resume restarts thinking after Pause. A dead controller stays dead.
func (c *Controller) Resume() {
	if !c.dead.Load() {
		c.think.Store(true)
	}
}

// Thinking reports whether Tick currently advances the machine.
func (c *Controller) Thinking() bool {
	return c.think.Load()
}

// Dead reports whether Kill has been called.
func (c *Controller) Dead() bool {
	return c.dead.Load()
}

// Name returns the enemy name.
func (c *Controller) Name() string {
	return c.name
}

// State returns the active state, or zero when the machine is not running.
func (c *Controller) State() StateID {
	id, _ := c.machine.Active()

	return id
}

// Target returns the current target, if any.
func (c *Controller) Target() Target {
	return c.target
}

// Settings returns the controller tuning.
func (c *Controller) Settings() Settings {
	return c.settings
}

// Machine exposes the underlying machine for hooks and description.
func (c *Controller) Machine() *statemachine.Machine[StateID, *Controller] {
	return c.machine
}

// HasTarget reports whether a target is set.
func (c *Controller) HasTarget() bool {
	return c.target != nil
}

// TargetWithinAttackRadius reports whether the target is closer than the
// attack distance and the body is free to attack.
func (c *Controller) TargetWithinAttackRadius() bool {
	if c.target == nil {
		return false
	}

	dist := c.target.Position().Distance(c.body.Position())

	return dist < c.settings.AttackDistance && !c.body.IsAttacking()
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	switch e := ev.(type) {
	case TargetAcquired:
		if e.Target == nil {
			perceptionEventsTotal.WithLabelValues(ev.kind(), outcomeIgnored).Inc()

			return
		}

		c.acquire(e.Target)
	case TargetLost:
		if c.target == nil || c.losing {
			perceptionEventsTotal.WithLabelValues(ev.kind(), outcomeIgnored).Inc()

			return
		}

		if c.settings.LoseTargetTime <= 0 {
			c.target = nil
		} else {
			c.losing = true
			c.lostAt = c.now
		}
	case NoiseHeard:
		if !c.hears(e) {
			logger.Get(ctx).Debug("noise out of hearing range", "enemy", c.name)
			perceptionEventsTotal.WithLabelValues(ev.kind(), outcomeIgnored).Inc()

			return
		}

		c.acquire(e.Instigator)
	}

	perceptionEventsTotal.WithLabelValues(ev.kind(), outcomeAccepted).Inc()
}

func (c *Controller) acquire(target Target) {
	c.target = target
	c.losing = false
}

// hears measures from the instigator. A noise nobody made has nothing to chase.
func (c *Controller) hears(noise NoiseHeard) bool {
	if noise.Instigator == nil {
		return false
	}

	source := noise.Instigator.Position()
	limit := c.settings.HearingDistance * c.settings.HearingDistance

	return source.Sub(c.body.Position()).LengthSquared() < limit
}

func (c *Controller) resolveTarget() {
	if c.target != nil && !c.target.Alive() {
		c.target = nil
		c.losing = false

		return
	}

	if c.losing && c.now-c.lostAt >= c.settings.LoseTargetTime {
		c.target = nil
		c.losing = false
	}
}

func (c *Controller) moveTowardsTarget() {
	if c.target == nil {
		return
	}

	c.nav.MoveTo(c.target.Position())
}

func (c *Controller) attackTarget() {
	if c.target == nil || c.body.IsAttacking() {
		return
	}

	if !c.TargetWithinAttackRadius() {
		c.moveTowardsTarget()

		return
	}

	c.nav.Stop()
	c.body.FaceTowards(c.target.Position())
	c.body.Attack(c.target)
}
