package weapon

import (
	"context"
	"time"
)

// Report describes the weapon at the moment an effect fires.
type Report struct {
	Weapon string
	Owner  string
	Damage float64
	Heat   float64
	Now    time.Duration
}

// Effects receives weapon notifications: audio, animation, projectile spawn.
// Implementations must not call back into the weapon.
type Effects interface {
	// FireStarted marks the first shot of a firing run.
	FireStarted(ctx context.Context, r Report)
	// Fire is sent for every shot.
	Fire(ctx context.Context, r Report)
	// FireFinished marks the end of a firing run.
	FireFinished(ctx context.Context, r Report)
	// Overheated is sent on entering Cooldown.
	Overheated(ctx context.Context, r Report)
	// CooledDown is sent when Cooldown returns to Idle.
	CooledDown(ctx context.Context, r Report)
}

// EffectFuncs adapts optional functions to Effects. Nil fields are skipped.
type EffectFuncs struct {
	OnFireStarted  func(ctx context.Context, r Report)
	OnFire         func(ctx context.Context, r Report)
	OnFireFinished func(ctx context.Context, r Report)
	OnOverheated   func(ctx context.Context, r Report)
	OnCooledDown   func(ctx context.Context, r Report)
}

var _ Effects = EffectFuncs{}

func (f EffectFuncs) FireStarted(ctx context.Context, r Report) {
	if f.OnFireStarted != nil {
		f.OnFireStarted(ctx, r)
	}
}

func (f EffectFuncs) Fire(ctx context.Context, r Report) {
	if f.OnFire != nil {
		f.OnFire(ctx, r)
	}
}

func (f EffectFuncs) FireFinished(ctx context.Context, r Report) {
	if f.OnFireFinished != nil {
		f.OnFireFinished(ctx, r)
	}
}

func (f EffectFuncs) Overheated(ctx context.Context, r Report) {
	if f.OnOverheated != nil {
		f.OnOverheated(ctx, r)
	}
}

func (f EffectFuncs) CooledDown(ctx context.Context, r Report) {
	if f.OnCooledDown != nil {
		f.OnCooledDown(ctx, r)
	}
}

// MultiEffects fans every notification out in order.
type MultiEffects []Effects

var _ Effects = MultiEffects{}

func (m MultiEffects) FireStarted(ctx context.Context, r Report) {
	for _, e := range m {
		e.FireStarted(ctx, r)
	}
}

func (m MultiEffects) Fire(ctx context.Context, r Report) {
	for _, e := range m {
		e.Fire(ctx, r)
	}
}

func (m MultiEffects) FireFinished(ctx context.Context, r Report) {
	for _, e := range m {
		e.FireFinished(ctx, r)
	}
}

func (m MultiEffects) Overheated(ctx context.Context, r Report) {
	for _, e := range m {
		e.Overheated(ctx, r)
	}
}

func (m MultiEffects) CooledDown(ctx context.Context, r Report) {
	for _, e := range m {
		e.CooledDown(ctx, r)
	}
}
