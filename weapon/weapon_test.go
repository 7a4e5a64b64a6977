package weapon

import (
	"context"
	"testing"
	"time"

	smtest "github.com/amp-labs/dungen/statemachine/testing"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder counts effect notifications by name.
type recorder struct {
	events []string
}

func (r *recorder) effects() EffectFuncs {
	add := func(name string) func(context.Context, Report) {
		return func(context.Context, Report) {
			r.events = append(r.events, name)
		}
	}

	return EffectFuncs{
		OnFireStarted:  add("started"),
		OnFire:         add("fire"),
		OnFireFinished: add("finished"),
		OnOverheated:   add("overheated"),
		OnCooledDown:   add("cooled"),
	}
}

func (r *recorder) count(name string) int {
	n := 0

	for _, e := range r.events {
		if e == name {
			n++
		}
	}

	return n
}

type rig struct {
	t   *testing.T
	w   *Weapon
	rec *recorder
	tm  *smtest.TestMachine[StateID, *Weapon]
}

func newRig(t *testing.T, name string, props Properties) *rig {
	t.Helper()

	rec := &recorder{}

	w, err := New(name, props, WithOwner("player"), WithEffects(rec.effects()))
	require.NoError(t, err)

	r := &rig{t: t, w: w, rec: rec, tm: smtest.NewTestMachine(t, w.Machine())}
	require.NoError(t, w.Start(t.Context(), r.tm.Clock().Current()))

	return r
}

func (r *rig) tickAt(ms int) {
	r.t.Helper()

	tick := r.tm.Clock().AdvanceTo(time.Duration(ms) * time.Millisecond)
	require.NoError(r.t, r.w.Tick(r.t.Context(), tick))
}

// tickEvery advances in frame steps up to and including end.
func (r *rig) tickEvery(frame, end int) {
	r.t.Helper()

	for now := int(r.tm.Clock().Now()/time.Millisecond) + frame; now <= end; now += frame {
		r.tickAt(now)
	}
}

func TestSingleShotScenario(t *testing.T) {
	t.Parallel()

	r := newRig(t, "pistol", Properties{
		Damage:      DefaultDamage,
		FireRate:    200 * time.Millisecond,
		WindupDelay: 100 * time.Millisecond,
	})

	r.w.Fire()

	r.tickAt(0)
	r.tm.AssertState(Windup)

	r.tickAt(50)
	r.tm.AssertState(Windup)

	r.tickAt(100)
	r.tm.AssertState(Firing)
	assert.Equal(t, []string{"started", "fire"}, r.rec.events)
	assert.True(t, r.w.IsFiring())

	r.w.StopFire()
	r.tickAt(120)
	r.tickAt(200)
	r.tm.AssertState(Firing)
	assert.Zero(t, r.rec.count("finished"), "exit is not checked before fireRate*0.75")

	r.tickAt(250)
	r.tm.AssertState(Idle)

	assert.Equal(t, []string{"started", "fire", "finished"}, r.rec.events)
	assert.Equal(t, []StateID{Idle, Windup, Firing, Idle}, r.tm.Path())
}

func TestRepeatCycleFire(t *testing.T) {
	t.Parallel()

	r := newRig(t, "smg", Properties{
		RepeatCycleFire: true,
		FireRate:        100 * time.Millisecond,
	})

	r.w.Fire()
	r.tickEvery(16, 1000)

	r.tm.AssertState(Firing)
	assert.Equal(t, 1, r.rec.count("started"))
	assert.Zero(t, r.rec.count("finished"))
	assert.Greater(t, r.rec.count("fire"), 5)
	r.tm.AssertTransitionTaken(Firing, Firing)

	r.w.StopFire()
	r.tickEvery(16, 1200)

	r.tm.AssertState(Idle)
	assert.Equal(t, 1, r.rec.count("started"))
	assert.Equal(t, 1, r.rec.count("finished"))
}

func TestZeroHeatRateNeverOverheats(t *testing.T) {
	t.Parallel()

	r := newRig(t, "rifle", Properties{
		RepeatCycleFire: true,
		FireRate:        50 * time.Millisecond,
		MaxHeat:         0,
	})

	r.w.Fire()
	r.tickEvery(16, 5000)

	r.tm.AssertNeverEntered(Cooldown)
	assert.True(t, r.w.CanFire())
	assert.Zero(t, r.w.Heat())
}

func TestReleaseDuringWindupCancels(t *testing.T) {
	t.Parallel()

	r := newRig(t, "railgun", Properties{
		FireRate:    time.Second,
		WindupDelay: 500 * time.Millisecond,
	})

	r.w.Fire()
	r.tickAt(0)
	r.tm.AssertState(Windup)

	r.tickAt(200)
	r.w.StopFire()
	r.tickAt(300)
	r.tm.AssertState(Idle)

	r.tickEvery(16, 1000)
	r.tm.AssertNeverEntered(Firing)
	assert.Empty(t, r.rec.events)
}

func TestOverheat(t *testing.T) {
	t.Parallel()

	r := newRig(t, "minigun", Properties{
		RepeatCycleFire: true,
		FireRate:        100 * time.Millisecond,
		HeatRate:        10,
		CooldownRate:    5,
		MaxHeat:         1,
	})

	r.w.Fire()
	r.tickEvery(16, 400)

	r.tm.AssertState(Cooldown)
	assert.False(t, r.w.CanFire())
	assert.Equal(t, 1, r.rec.count("started"))
	assert.Equal(t, 1, r.rec.count("finished"))
	assert.Equal(t, 1, r.rec.count("overheated"))
	assert.GreaterOrEqual(t, testutil.ToFloat64(overheatsTotal.WithLabelValues("minigun")), 1.0)

	// Without recovery the weapon never leaves Cooldown, and heat bottoms out at zero.
	r.tickEvery(16, 3000)
	r.tm.AssertState(Cooldown)
	assert.Zero(t, r.w.Heat())
	assert.Zero(t, r.rec.count("cooled"))
}

func TestRecoverFromOverheat(t *testing.T) {
	t.Parallel()

	r := newRig(t, "blaster", Properties{
		RepeatCycleFire:     true,
		FireRate:            100 * time.Millisecond,
		HeatRate:            10,
		CooldownRate:        5,
		MaxHeat:             1,
		RecoverFromOverheat: true,
	})

	r.w.Fire()
	r.tickEvery(16, 400)
	r.tm.AssertState(Cooldown)

	r.w.StopFire()
	r.tickEvery(16, 1000)

	r.tm.AssertState(Idle)
	r.tm.AssertTransitionTaken(Cooldown, Idle)
	assert.Equal(t, 1, r.rec.count("cooled"))
	assert.Zero(t, r.w.Heat())
}

func TestHeatDecaysInIdle(t *testing.T) {
	t.Parallel()

	r := newRig(t, "cannon", Properties{
		FireRate:     100 * time.Millisecond,
		HeatRate:     1,
		CooldownRate: 1,
		MaxHeat:      100,
	})

	r.w.Fire()
	r.tickEvery(10, 500)
	r.tm.AssertState(Firing)

	heat := r.w.Heat()
	assert.Greater(t, heat, 0.0)

	r.w.StopFire()
	r.tickEvery(10, 600)
	r.tm.AssertState(Idle)
	assert.Less(t, r.w.Heat(), heat)

	r.tickEvery(10, 2000)
	assert.Zero(t, r.w.Heat())
}

func TestUnequippedIgnoresFire(t *testing.T) {
	t.Parallel()

	r := newRig(t, "dropped", DefaultProperties())

	r.w.Unequip()
	assert.False(t, r.w.Equipped())

	r.w.Fire()
	r.tickEvery(16, 200)
	r.tm.AssertState(Idle)

	r.w.Equip("goblin")
	assert.Equal(t, "goblin", r.w.Owner())

	r.w.Fire()
	r.tickAt(216)
	r.tm.AssertState(Windup)

	// Dropping mid windup releases the trigger.
	r.w.Unequip()
	r.tickAt(232)
	r.tm.AssertState(Idle)
}

func TestSetProperties(t *testing.T) {
	t.Parallel()

	r := newRig(t, "tunable", DefaultProperties())

	err := r.w.SetProperties(Properties{FireRate: -time.Second})
	require.ErrorIs(t, err, ErrInvalidProperties)

	props := DefaultProperties()
	props.FireRate = 400 * time.Millisecond
	require.NoError(t, r.w.SetProperties(props))
	assert.Equal(t, props, r.w.Properties())

	r.w.Fire()
	r.tickAt(0)
	r.tickAt(16)
	r.tm.AssertState(Firing)

	entered := r.w.Machine().ActiveState()
	assert.Equal(t, 300*time.Millisecond, entered.EntryDelay(), "fire rate is read on entry")
}

func TestNewRejectsInvalidProperties(t *testing.T) {
	t.Parallel()

	_, err := New("bad", Properties{HeatRate: -1, MaxHeat: -1})
	require.ErrorIs(t, err, ErrInvalidProperties)
}

func TestMultiEffects(t *testing.T) {
	t.Parallel()

	a, b := &recorder{}, &recorder{}
	multi := MultiEffects{a.effects(), b.effects(), EffectFuncs{}}

	ctx := t.Context()
	multi.FireStarted(ctx, Report{})
	multi.Fire(ctx, Report{})
	multi.FireFinished(ctx, Report{})
	multi.Overheated(ctx, Report{})
	multi.CooledDown(ctx, Report{})

	want := []string{"started", "fire", "finished", "overheated", "cooled"}
	assert.Equal(t, want, a.events)
	assert.Equal(t, want, b.events)
}

func TestStateIDString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "windup", Windup.String())
	assert.Equal(t, "firing", Firing.String())
	assert.Equal(t, "cooldown", Cooldown.String())
	assert.Equal(t, "none", StateID(0).String())
}
