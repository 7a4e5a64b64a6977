package ai

import "sync"

// Event is a perception signal posted to a controller.
type Event interface {
	kind() string
}

// TargetAcquired reports that the target came into view.
type TargetAcquired struct {
	Target Target
}

// TargetLost reports that the target left view.
type TargetLost struct{}

// NoiseHeard reports a noise made by an instigator. Hearing range is
// measured to the instigator; Position is where the sound was emitted.
type NoiseHeard struct {
	Position   Vec3
	Instigator Target
}

func (TargetAcquired) kind() string { return "target_acquired" }
func (TargetLost) kind() string     { return "target_lost" }
func (NoiseHeard) kind() string     { return "noise_heard" }

// inbox buffers events between ticks.
type inbox struct {
	mu     sync.Mutex
	events []Event
	closed bool
}

func (b *inbox) post(ev Event) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	b.events = append(b.events, ev)

	return true
}

func (b *inbox) drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	events := b.events
	b.events = nil

	return events
}

func (b *inbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.events = nil
}
