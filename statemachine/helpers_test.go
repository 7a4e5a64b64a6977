package statemachine

import (
	"context"
	"fmt"
	"time"
)

type sid int

const (
	sIdle sid = iota + 1
	sBusy
	sDone
)

// probe is a minimal actor that records hook invocations.
type probe struct {
	ready bool
	calls []string
}

func (p *probe) record(format string, args ...any) {
	p.calls = append(p.calls, fmt.Sprintf(format, args...))
}

func at(ms int) Tick {
	return Tick{Now: time.Duration(ms) * time.Millisecond, Delta: 16 * time.Millisecond}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func isReady(p *probe) bool {
	return p.ready
}

// recordingState creates a state whose hooks append to the probe's call log.
func recordingState(id sid, label string) *State[sid, *probe] {
	return NewState[sid, *probe](id, label).
		OnEnter(func(_ context.Context, prev sid, p *probe, _ Tick) {
			p.record("enter %s from %d", label, prev)
		}).
		OnUpdate(func(_ context.Context, p *probe, _ Tick) {
			p.record("update %s", label)
		}).
		OnExit(func(_ context.Context, next sid, p *probe, _ Tick) {
			p.record("exit %s to %d", label, next)
		})
}

// newTestMachine builds idle -> busy (when ready) -> done (unconditional).
func newTestMachine(kind string, p *probe) *Machine[sid, *probe] {
	m := New[sid, *probe]("test", p, WithKind(kind))

	idle := recordingState(sIdle, "idle").
		AddTransition(NewTransition[sid, *probe]("ready", sBusy).When(isReady))
	busy := recordingState(sBusy, "busy").
		AddTransition(NewTransition[sid, *probe]("finish", sDone))
	done := recordingState(sDone, "done")

	for _, s := range []*State[sid, *probe]{idle, busy, done} {
		if err := m.RegisterState(s); err != nil {
			panic(err)
		}
	}

	return m
}

// recordingLogger captures Logger calls.
type recordingLogger struct {
	entered     []string
	transitions []string
	halted      []string
	misuse      []error
}

func (l *recordingLogger) StateEntered(_ context.Context, _, state, _ string, _ time.Duration) {
	l.entered = append(l.entered, state)
}

func (l *recordingLogger) TransitionExecuted(_ context.Context, _, from, to, _ string, _ time.Duration) {
	l.transitions = append(l.transitions, from+"->"+to)
}

func (l *recordingLogger) MachineHalted(_ context.Context, _, state, reason string) {
	l.halted = append(l.halted, state+":"+reason)
}

func (l *recordingLogger) LifecycleMisuse(_ context.Context, _ string, err error) {
	l.misuse = append(l.misuse, err)
}
