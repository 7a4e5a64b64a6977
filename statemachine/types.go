package statemachine

import (
	"context"
	"time"
)

// StateID is the constraint satisfied by per-machine state identifiers.
// The zero value of every StateID type is reserved to mean "no state" and
// can never be registered.
type StateID interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Tick is a single step of the host loop. Now is monotonic time measured
// from the start of the host, Delta is the time elapsed since the previous
// tick. Every timer in this package is evaluated lazily against Now.
type Tick struct {
	Now   time.Duration
	Delta time.Duration
}

// Seconds returns Delta in fractional seconds, the unit per-second rates use.
func (t Tick) Seconds() float64 {
	return t.Delta.Seconds()
}

// Combine selects how a transition's wait timer and its condition are joined.
type Combine int

const (
	// CombineAll requires the wait timer to have elapsed and the condition to hold.
	CombineAll Combine = iota
	// CombineAny accepts either an elapsed wait timer or a holding condition.
	CombineAny
)

func (c Combine) String() string {
	switch c {
	case CombineAll:
		return "all"
	case CombineAny:
		return "any"
	default:
		return "unknown"
	}
}

// Condition is a domain predicate over the actor a machine drives.
// Conditions must be free of side effects.
type Condition[A any] func(actor A) bool

// DurationFunc computes a duration from the actor at the moment it is latched.
type DurationFunc[A any] func(actor A) time.Duration

// EnterFunc runs when a state becomes active. prev is zero on machine start.
type EnterFunc[ID StateID, A any] func(ctx context.Context, prev ID, actor A, tick Tick)

// UpdateFunc runs once per tick while a state is active.
type UpdateFunc[A any] func(ctx context.Context, actor A, tick Tick)

// ExitFunc runs when a state is left through a transition. It never runs on Halt.
type ExitFunc[ID StateID, A any] func(ctx context.Context, next ID, actor A, tick Tick)

// Phase names a lifecycle event reported to hooks.
type Phase string

const (
	PhaseStart      Phase = "start"
	PhaseTransition Phase = "transition"
	PhaseHalt       Phase = "halt"
)

// HookEvent describes one lifecycle event of a machine.
type HookEvent[ID StateID] struct {
	Phase      Phase
	Machine    string
	From       ID
	To         ID
	Transition string
	Reason     string
	Now        time.Duration
}

// Hook observes machine lifecycle events. Hooks are called synchronously
// from inside Start, Update and Halt and must not call back into the machine.
type Hook[ID StateID] func(ctx context.Context, event HookEvent[ID])

// Step reports what a single Update did.
type Step[ID StateID] struct {
	From         ID
	To           ID
	Transition   string
	Transitioned bool
}
