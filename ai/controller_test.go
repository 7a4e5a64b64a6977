package ai

import (
	"context"
	"testing"
	"time"

	"github.com/amp-labs/dungen/statemachine"
	smtest "github.com/amp-labs/dungen/statemachine/testing"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBody struct {
	pos       Vec3
	attacking bool
	faced     []Vec3
	attacks   int
}

func (b *fakeBody) Position() Vec3 { return b.pos }

func (b *fakeBody) IsAttacking() bool { return b.attacking }

func (b *fakeBody) FaceTowards(p Vec3) { b.faced = append(b.faced, p) }

func (b *fakeBody) Attack(Target) { b.attacks++ }

type fakeNav struct {
	moves []Vec3
	stops int
}

func (n *fakeNav) MoveTo(p Vec3) { n.moves = append(n.moves, p) }

func (n *fakeNav) Stop() { n.stops++ }

type fakeTarget struct {
	pos   Vec3
	alive bool
}

func (t *fakeTarget) Position() Vec3 { return t.pos }

func (t *fakeTarget) Alive() bool { return t.alive }

func far() *fakeTarget {
	return &fakeTarget{pos: Vec3{X: 10}, alive: true}
}

func near() *fakeTarget {
	return &fakeTarget{pos: Vec3{X: 1}, alive: true}
}

func msec(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// fixture drives a controller with a manual clock and records its machine trace.
type fixture struct {
	t    *testing.T
	body *fakeBody
	nav  *fakeNav
	ctrl *Controller
	tm   *smtest.TestMachine[StateID, *Controller]
}

func (f *fixture) tickAt(n int) error {
	return f.ctrl.Tick(f.t.Context(), f.tm.Clock().AdvanceTo(msec(n)))
}

func (f *fixture) mustTick(n int) {
	f.t.Helper()

	require.NoError(f.t, f.tickAt(n))
}

func (f *fixture) post(ev Event) {
	f.ctrl.Post(ev)
}

func (f *fixture) path() []StateID {
	return f.tm.Path()
}

func (f *fixture) assertState(s StateID) {
	f.t.Helper()

	f.tm.AssertState(s)
}

func newFixture(t *testing.T, settings Settings) *fixture {
	t.Helper()

	body := &fakeBody{}
	nav := &fakeNav{}

	ctrl, err := NewController("grunt", body, nav, settings)
	require.NoError(t, err)

	f := &fixture{
		t:    t,
		body: body,
		nav:  nav,
		ctrl: ctrl,
		tm:   smtest.NewTestMachine(t, ctrl.Machine()),
	}

	require.NoError(t, ctrl.Start(t.Context(), f.tm.Clock().Current()))

	return f
}

func TestNewControllerValidation(t *testing.T) {
	t.Parallel()

	_, err := NewController("x", nil, &fakeNav{}, DefaultSettings())
	require.ErrorIs(t, err, ErrInvalidSettings)

	bad := DefaultSettings()
	bad.AlertDelay = -time.Second
	bad.HearingDistance = -1

	_, err = NewController("x", &fakeBody{}, &fakeNav{}, bad)
	require.ErrorIs(t, err, ErrInvalidSettings)
}

func TestStartsIdle(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())

	f.assertState(Idle)
	assert.Equal(t, MachineKind, f.ctrl.Machine().Kind())

	f.mustTick(16)
	f.assertState(Idle)
	assert.Empty(t, f.nav.moves)
}

// Target acquired at t=0, Update at 10ms enters Alert, the target stays out
// of reach and Update at 760ms enters Aggressive.
func TestAlertDelayScenario(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())
	target := far()

	f.post(TargetAcquired{Target: target})

	f.mustTick(10)
	f.assertState(Alert)
	require.Len(t, f.nav.moves, 1, "alert issues a move order on enter")
	assert.Equal(t, target.pos, f.nav.moves[0])

	f.mustTick(400)
	f.assertState(Alert)

	f.mustTick(759)
	f.assertState(Alert)

	f.mustTick(760)
	f.assertState(Aggressive)

	// Aggressive updates in the same tick: out of range means move again.
	assert.Len(t, f.nav.moves, 2)
	assert.Zero(t, f.body.attacks)
	assert.Equal(t, []StateID{Idle, Alert, Aggressive}, f.path())
}

func TestAttackRadiusSkipsAlertDelay(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())
	target := far()

	f.post(TargetAcquired{Target: target})
	f.mustTick(10)
	f.assertState(Alert)

	f.mustTick(100)
	f.assertState(Alert)

	target.pos = Vec3{X: 1.5}

	f.mustTick(116)
	f.assertState(Aggressive)
	f.tm.AssertTransitionTaken(Alert, Aggressive)

	// In range, so the same tick faces and attacks.
	assert.Equal(t, 1, f.body.attacks)
	assert.Equal(t, []Vec3{{X: 1.5}}, f.body.faced)
	assert.Equal(t, 1, f.nav.stops)
}

func TestBusyBodyDoesNotShortCircuit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())
	f.body.attacking = true

	f.post(TargetAcquired{Target: near()})
	f.mustTick(10)
	f.mustTick(100)
	f.assertState(Alert)
}

func TestAlertReturnsToIdleAfterDelay(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	settings.LoseTargetTime = 0

	f := newFixture(t, settings)

	f.post(TargetAcquired{Target: far()})
	f.mustTick(10)
	f.assertState(Alert)

	f.post(TargetLost{})
	f.mustTick(100)
	f.assertState(Alert)
	assert.Nil(t, f.ctrl.Target())

	f.mustTick(760)
	f.assertState(Idle)
	f.tm.AssertTransitionTaken(Alert, Idle)
	f.tm.AssertNeverEntered(Aggressive)
}

func TestAggressiveFallsBackToAlert(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	settings.LoseTargetTime = 0

	f := newFixture(t, settings)

	f.post(TargetAcquired{Target: near()})
	f.mustTick(10)
	f.mustTick(26)
	f.assertState(Aggressive)

	f.post(TargetLost{})
	f.mustTick(42)
	f.assertState(Alert)

	f.mustTick(800)
	f.assertState(Idle)
}

func TestLoseTargetGrace(t *testing.T) {
	t.Parallel()

	settings := DefaultSettings()
	settings.LoseTargetTime = 2 * time.Second

	f := newFixture(t, settings)
	target := far()

	f.post(TargetAcquired{Target: target})
	f.mustTick(10)

	f.post(TargetLost{})
	f.mustTick(100)
	assert.Equal(t, target, f.ctrl.Target(), "target is remembered during the grace period")

	// Re-acquiring cancels the pending loss.
	f.post(TargetAcquired{Target: target})
	f.mustTick(1500)
	f.mustTick(2200)
	assert.Equal(t, target, f.ctrl.Target())

	f.post(TargetLost{})
	f.mustTick(2300)
	assert.NotNil(t, f.ctrl.Target())

	f.mustTick(4300)
	assert.Nil(t, f.ctrl.Target())
}

func TestTargetLostFallsBackOnNextTick(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())

	f.post(TargetAcquired{Target: near()})
	f.mustTick(10)
	f.mustTick(26)
	f.assertState(Aggressive)

	attacks := f.body.attacks

	f.post(TargetLost{})
	f.mustTick(42)
	f.assertState(Alert)
	assert.Nil(t, f.ctrl.Target())

	f.mustTick(500)
	assert.Equal(t, attacks, f.body.attacks, "a lost target is never attacked again")
}

func TestTargetLostOutcomes(t *testing.T) { //nolint:paralleltest // reads a global counter
	accepted := perceptionEventsTotal.WithLabelValues("target_lost", outcomeAccepted)
	ignored := perceptionEventsTotal.WithLabelValues("target_lost", outcomeIgnored)

	acceptedBefore := testutil.ToFloat64(accepted)
	ignoredBefore := testutil.ToFloat64(ignored)

	settings := DefaultSettings()
	settings.LoseTargetTime = time.Second

	f := newFixture(t, settings)

	// Nothing to lose yet.
	f.post(TargetLost{})
	f.mustTick(16)

	f.post(TargetAcquired{Target: far()})
	f.mustTick(32)

	// The second loss arrives while the first is still pending.
	f.post(TargetLost{})
	f.post(TargetLost{})
	f.mustTick(48)

	assert.InDelta(t, 1, testutil.ToFloat64(accepted)-acceptedBefore, 0)
	assert.InDelta(t, 2, testutil.ToFloat64(ignored)-ignoredBefore, 0)
}

func TestDeadTargetIsDropped(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())
	target := near()

	f.post(TargetAcquired{Target: target})
	f.mustTick(10)
	f.mustTick(26)
	f.assertState(Aggressive)

	target.alive = false
	f.mustTick(42)
	f.assertState(Alert)
	assert.Nil(t, f.ctrl.Target())
}

func TestNoiseHearing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		distance  float64
		hearing   float64
		wantAlert bool
	}{
		{name: "inside radius", distance: 50, hearing: 100, wantAlert: true},
		{name: "exactly on radius", distance: 100, hearing: 100, wantAlert: false},
		{name: "outside radius", distance: 150, hearing: 100, wantAlert: false},
		{name: "deaf", distance: 1, hearing: 0, wantAlert: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			settings := DefaultSettings()
			settings.HearingDistance = tt.hearing

			f := newFixture(t, settings)
			instigator := &fakeTarget{pos: Vec3{Z: tt.distance}, alive: true}

			f.post(NoiseHeard{Position: Vec3{}, Instigator: instigator})
			f.mustTick(16)

			if tt.wantAlert {
				f.assertState(Alert)
				assert.Equal(t, instigator, f.ctrl.Target())
			} else {
				f.assertState(Idle)
				assert.Nil(t, f.ctrl.Target())
			}
		})
	}
}

func TestNoiseWithoutInstigatorIsIgnored(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())

	f.post(NoiseHeard{Position: Vec3{X: 1}})
	f.post(nil)
	f.mustTick(16)

	f.assertState(Idle)
}

func TestKill(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())

	exits := 0
	f.ctrl.Machine().ActiveState().OnExit(func(_ context.Context, _ StateID, _ *Controller, _ statemachine.Tick) {
		exits++
	})

	f.ctrl.Kill(t.Context())
	f.ctrl.Kill(t.Context())

	assert.True(t, f.ctrl.Dead())
	assert.False(t, f.ctrl.Thinking())
	assert.False(t, f.ctrl.Machine().IsActive())
	assert.Zero(t, exits, "death never runs exit")

	f.post(TargetAcquired{Target: near()})
	require.ErrorIs(t, f.tickAt(16), ErrDead)
	require.ErrorIs(t, f.ctrl.Start(t.Context(), statemachine.Tick{}), ErrDead)

	f.ctrl.Resume()
	assert.False(t, f.ctrl.Thinking())

	require.NoError(t, smtest.MatchAll(f.tm.Trace(), smtest.WasHalted[StateID](HaltReasonDied)))
}

func TestPauseResume(t *testing.T) {
	t.Parallel()

	f := newFixture(t, DefaultSettings())

	f.ctrl.Pause()
	f.post(TargetAcquired{Target: far()})
	f.mustTick(16)
	f.assertState(Idle)

	f.ctrl.Resume()
	f.mustTick(32)
	f.assertState(Alert)
}

func TestStateIDString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "alert", Alert.String())
	assert.Equal(t, "aggressive", Aggressive.String())
	assert.Equal(t, "none", StateID(0).String())
}

func TestVec3(t *testing.T) {
	t.Parallel()

	a := Vec3{X: 3, Y: 4}
	assert.InDelta(t, 25, a.LengthSquared(), 1e-9)
	assert.InDelta(t, 5, a.Distance(Vec3{}), 1e-9)
	assert.Equal(t, Vec3{X: 2, Y: 3, Z: -1}, a.Sub(Vec3{X: 1, Y: 1, Z: 1}))
}
