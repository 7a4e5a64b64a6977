package main

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/amp-labs/dungen/ai"
	"github.com/amp-labs/dungen/logger"
	"github.com/amp-labs/dungen/statemachine"
	"github.com/amp-labs/dungen/weapon"
	"go.uber.org/atomic"
)

const (
	sightRange     = 15.0
	moveSpeed      = 3.0
	swingTime      = 400 * time.Millisecond
	playerRadius   = 12.0
	playerSpeed    = 0.5
	noiseEvery     = 3 * time.Second
	stompRange     = 1.5
	stompDamage    = 40.0
	enemyMaxHealth = 100.0
	playerHealth   = 500.0
)

// player circles the arena, makes noise now and then and stomps anything
// standing too close. Enemies read its position concurrently.
type player struct {
	mu     sync.RWMutex
	pos    ai.Vec3
	health float64

	lastNoise time.Duration
	enemies   []*enemy
}

func (p *player) Position() ai.Vec3 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.pos
}

func (p *player) Alive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.health > 0
}

func (p *player) hurt(damage float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.health -= damage
}

func (p *player) Tick(ctx context.Context, tick statemachine.Tick) error {
	angle := tick.Now.Seconds() * playerSpeed

	p.mu.Lock()

	p.pos = ai.Vec3{X: math.Cos(angle) * playerRadius, Z: math.Sin(angle) * playerRadius}

	if p.health <= 0 {
		logger.Get(ctx).Info("player down, respawning")

		p.health = playerHealth
	}

	pos := p.pos

	p.mu.Unlock()

	noisy := tick.Now-p.lastNoise >= noiseEvery
	if noisy {
		p.lastNoise = tick.Now
	}

	for _, e := range p.enemies {
		if e.ctrl.Dead() {
			continue
		}

		if noisy {
			e.ctrl.Post(ai.NoiseHeard{Position: pos, Instigator: p})
		}

		if e.body.Position().Distance(pos) < stompRange {
			e.damage(stompDamage * tick.Seconds())
		}
	}

	return nil
}

// body is a point that walks towards its move order.
type body struct {
	mu      sync.Mutex
	pos     ai.Vec3
	dest    *ai.Vec3
	swingTo time.Duration
	now     time.Duration

	gun    *weapon.Weapon
	player *player
}

func (b *body) Position() ai.Vec3 {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pos
}

func (b *body) IsAttacking() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.now < b.swingTo
}

func (b *body) FaceTowards(ai.Vec3) {}

func (b *body) Attack(ai.Target) {
	b.mu.Lock()
	b.swingTo = b.now + swingTime
	b.mu.Unlock()

	if b.gun != nil {
		b.gun.Fire()

		return
	}

	b.player.hurt(weapon.DefaultDamage)
}

func (b *body) MoveTo(p ai.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dest = &p
}

func (b *body) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dest = nil
}

func (b *body) integrate(tick statemachine.Tick) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.now = tick.Now

	if b.dest == nil {
		return
	}

	offset := b.dest.Sub(b.pos)
	dist := math.Sqrt(offset.LengthSquared())
	step := moveSpeed * tick.Seconds()

	if dist <= step {
		b.pos = *b.dest
		b.dest = nil

		return
	}

	scale := step / dist
	b.pos = ai.Vec3{
		X: b.pos.X + offset.X*scale,
		Y: b.pos.Y + offset.Y*scale,
		Z: b.pos.Z + offset.Z*scale,
	}
}

// enemy is one scheduled actor: a body, its brain and an optional gun.
type enemy struct {
	name   string
	preset string
	body   *body
	ctrl   *ai.Controller
	gun    *weapon.Weapon
	player *player
	health *atomic.Float64
	seen   bool
	quiet  bool
}

func (e *enemy) damage(amount float64) {
	e.health.Sub(amount)
}

func (e *enemy) Start(ctx context.Context, tick statemachine.Tick) error {
	err := e.ctrl.Start(ctx, tick)
	if err != nil {
		return err
	}

	if e.gun != nil {
		return e.gun.Start(ctx, tick)
	}

	return nil
}

// actorContext mutes per-tick logging for quiet enemies.
func (e *enemy) actorContext(ctx context.Context) context.Context {
	if !e.quiet {
		return ctx
	}

	return logger.WithMuted(ctx, true)
}

func (e *enemy) Tick(ctx context.Context, tick statemachine.Tick) error {
	ctx = e.actorContext(ctx)

	if e.health.Load() <= 0 && !e.ctrl.Dead() {
		logger.Get(ctx).Info("enemy died", "enemy", e.name)

		e.ctrl.Kill(ctx)

		if e.gun != nil {
			e.gun.Unequip()
		}
	}

	e.body.integrate(tick)
	e.perceive()

	err := e.ctrl.Tick(ctx, tick)
	if err != nil {
		return err
	}

	if e.gun == nil {
		return nil
	}

	if e.ctrl.State() != ai.Aggressive {
		e.gun.StopFire()
	}

	return e.gun.Tick(ctx, tick)
}

func (e *enemy) perceive() {
	visible := e.player.Alive() && e.body.Position().Distance(e.player.Position()) < sightRange

	switch {
	case visible && !e.seen:
		e.ctrl.Post(ai.TargetAcquired{Target: e.player})
	case !visible && e.seen:
		e.ctrl.Post(ai.TargetLost{})
	}

	e.seen = visible
}
