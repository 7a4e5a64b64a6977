package statemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransitionWithoutWaitIsOpen(t *testing.T) {
	t.Parallel()

	tr := NewTransition[sid, *probe]("plain", sBusy)

	assert.True(t, tr.CanTransition(&probe{}, 0))

	tr.activate(&probe{}, ms(100))
	assert.True(t, tr.CanTransition(&probe{}, ms(100)))

	_, armed := tr.Deadline()
	assert.False(t, armed)
}

func TestTransitionWaitLatchesOnActivation(t *testing.T) {
	t.Parallel()

	p := &probe{}
	tr := NewTransition[sid, *probe]("windup", sBusy).WithWait(ms(50))

	tr.activate(p, ms(100))
	assert.False(t, tr.CanTransition(p, ms(100)))
	assert.False(t, tr.CanTransition(p, ms(149)))
	assert.True(t, tr.CanTransition(p, ms(150)))
	assert.True(t, tr.CanTransition(p, ms(10_000)), "stays open until the next activation")

	tr.activate(p, ms(200))
	assert.False(t, tr.CanTransition(p, ms(249)))
	assert.True(t, tr.CanTransition(p, ms(250)))
}

func TestTransitionWaitFuncReadsActorOnActivation(t *testing.T) {
	t.Parallel()

	p := &probe{}
	wait := ms(30)
	tr := NewTransition[sid, *probe]("dynamic", sBusy).
		WithWaitFunc(func(*probe) time.Duration { return wait })

	tr.activate(p, 0)
	wait = ms(500)

	assert.True(t, tr.CanTransition(p, ms(30)))
	assert.True(t, tr.HasDynamicWait())
	assert.Equal(t, time.Duration(0), tr.Wait())

	tr.activate(p, ms(100))
	assert.False(t, tr.CanTransition(p, ms(599)))
	assert.True(t, tr.CanTransition(p, ms(600)))
}

func TestTransitionCombine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		anyMode bool
		ready   bool
		now     time.Duration
		want    bool
	}{
		{name: "all: timer closed, cond true", ready: true, now: ms(10), want: false},
		{name: "all: timer open, cond false", ready: false, now: ms(100), want: false},
		{name: "all: timer open, cond true", ready: true, now: ms(100), want: true},
		{name: "any: timer closed, cond true", anyMode: true, ready: true, now: ms(10), want: true},
		{name: "any: timer open, cond false", anyMode: true, ready: false, now: ms(100), want: true},
		{name: "any: timer closed, cond false", anyMode: true, ready: false, now: ms(10), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := &probe{ready: tt.ready}
			tr := NewTransition[sid, *probe]("combined", sBusy).WithWait(ms(50)).When(isReady)

			if tt.anyMode {
				tr.Either()
			}

			tr.activate(p, 0)

			assert.Equal(t, tt.want, tr.CanTransition(p, tt.now))
		})
	}
}

func TestTransitionConditionShortCircuits(t *testing.T) {
	t.Parallel()

	calls := 0
	counting := func(*probe) bool {
		calls++

		return true
	}

	tr := NewTransition[sid, *probe]("lazy", sBusy).WithWait(ms(50)).When(counting)
	tr.activate(&probe{}, 0)

	assert.False(t, tr.CanTransition(&probe{}, ms(10)))
	assert.Equal(t, 0, calls, "condition is not evaluated while the timer is closed")

	assert.True(t, tr.CanTransition(&probe{}, ms(60)))
	assert.Equal(t, 1, calls)
}

func TestTransitionAccessors(t *testing.T) {
	t.Parallel()

	tr := NewTransition[sid, *probe]("edge", sDone).WithWait(ms(5)).Either().Guard(always)

	assert.Equal(t, "edge", tr.Label())
	assert.Equal(t, sDone, tr.Target())
	assert.Equal(t, ms(5), tr.Wait())
	assert.Equal(t, CombineAny, tr.Mode())
	assert.True(t, tr.Conditional())
	assert.Equal(t, "any", CombineAny.String())
	assert.Equal(t, "all", CombineAll.String())
	assert.Equal(t, "unknown", Combine(9).String())
}
