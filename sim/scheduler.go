// Package sim hosts actors and ticks them from one clock.
//
// Each Step reads the clock once, builds a Tick and hands it to every
// registered actor. Actors run in parallel on a worker pool; a single actor
// is never ticked concurrently with itself.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"facette.io/natsort"
	"github.com/alitto/pond/v2"
	"github.com/amp-labs/dungen/logger"
	"github.com/amp-labs/dungen/statemachine"
	"github.com/google/uuid"
	"go.uber.org/atomic"
)

const defaultWorkers = 8

var (
	// ErrAlreadyRegistered is returned when an actor name is taken.
	ErrAlreadyRegistered = errors.New("actor already registered")
	// ErrUnknownActor is returned for an ID the scheduler does not know.
	ErrUnknownActor = errors.New("unknown actor")
	// ErrNilActor is returned when registering a nil actor.
	ErrNilActor = errors.New("actor cannot be nil")
)

// Tickable is anything the scheduler can advance.
type Tickable interface {
	Tick(ctx context.Context, tick statemachine.Tick) error
}

// ActorID identifies a registered actor.
type ActorID uuid.UUID

func (id ActorID) String() string {
	return uuid.UUID(id).String()
}

// ErrorHandler observes actor tick failures. It runs after the step's
// worker group has finished.
type ErrorHandler func(ctx context.Context, id ActorID, name string, err error)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithErrorHandler sets the handler called for every failed actor tick.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *Scheduler) {
		s.onError = h
	}
}

// ActorInfo is a point-in-time view of a registered actor.
type ActorInfo struct {
	ID     ActorID
	Name   string
	Ticks  int64
	Errors int64
}

type entry struct {
	id     ActorID
	name   string
	actor  Tickable
	ticks  *atomic.Int64
	errors *atomic.Int64
}

type failure struct {
	entry *entry
	err   error
}

// Scheduler ticks registered actors from a shared clock.
type Scheduler struct {
	clock   Clock
	workers int
	onError ErrorHandler
	pool    pond.Pool

	mu     sync.Mutex
	actors map[ActorID]*entry
	names  map[string]ActorID
	last   time.Duration
	primed bool

	steps *atomic.Int64
}

// NewScheduler creates a scheduler reading clock.
func NewScheduler(clock Clock, opts ...Option) *Scheduler {
	s := &Scheduler{
		clock:   clock,
		workers: defaultWorkers,
		actors:  make(map[ActorID]*entry),
		names:   make(map[string]ActorID),
		steps:   atomic.NewInt64(0),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.pool = pond.NewPool(s.workers)

	return s
}

// Register adds an actor under a unique name.
func (s *Scheduler) Register(name string, actor Tickable) (ActorID, error) {
	if actor == nil {
		return ActorID{}, ErrNilActor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.names[name]; taken {
		return ActorID{}, fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	id := ActorID(uuid.New())
	s.actors[id] = &entry{
		id:     id,
		name:   name,
		actor:  actor,
		ticks:  atomic.NewInt64(0),
		errors: atomic.NewInt64(0),
	}
	s.names[name] = id

	actorsGauge.Inc()

	return id, nil
}

// Unregister removes an actor. It takes effect from the next Step.
func (s *Scheduler) Unregister(id ActorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.actors[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownActor, id)
	}

	delete(s.actors, id)
	delete(s.names, e.name)

	actorsGauge.Dec()

	return nil
}

// Lookup finds an actor by name.
func (s *Scheduler) Lookup(name string) (ActorID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.names[name]

	return id, ok
}

// Len returns the number of registered actors.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.actors)
}

// Steps returns the number of completed steps.
func (s *Scheduler) Steps() int64 {
	return s.steps.Load()
}

// Step reads the clock once and ticks every actor with the same Tick. The
// first step has a zero delta. Actor failures are joined into the returned
// error; they never stop other actors from ticking.
func (s *Scheduler) Step(ctx context.Context) (statemachine.Tick, error) {
	started := time.Now()

	s.mu.Lock()

	now := s.clock.Now()

	tick := statemachine.Tick{Now: now}
	if s.primed {
		tick.Delta = max(now-s.last, 0)
	}

	s.last = now
	s.primed = true

	entries := make([]*entry, 0, len(s.actors))
	for _, e := range s.actors {
		entries = append(entries, e)
	}

	s.mu.Unlock()

	var (
		failMu   sync.Mutex
		failures []failure
	)

	group := s.pool.NewGroup()

	for _, e := range entries {
		group.Submit(func() {
			e.ticks.Inc()

			err := e.actor.Tick(ctx, tick)
			if err == nil {
				return
			}

			e.errors.Inc()
			actorErrorsTotal.Inc()

			failMu.Lock()
			failures = append(failures, failure{entry: e, err: err})
			failMu.Unlock()
		})
	}

	err := group.Wait()
	if err != nil {
		return tick, fmt.Errorf("waiting for actors: %w", err)
	}

	s.steps.Inc()
	tickDuration.Observe(time.Since(started).Seconds())

	errs := make([]error, 0, len(failures))

	for _, f := range failures {
		if s.onError != nil {
			s.onError(ctx, f.entry.id, f.entry.name, f.err)
		}

		errs = append(errs, logger.Annotate(fmt.Errorf("actor %s: %w", f.entry.name, f.err),
			"actor", f.entry.name, "actor_id", f.entry.id.String(), "now", tick.Now))
	}

	return tick, errors.Join(errs...)
}

// Run steps on every interval until ctx is done. Actor failures are logged
// and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := logger.Get(ctx)
	log.Debug("scheduler running", "interval", interval, "actors", s.Len())

	for {
		select {
		case <-ctx.Done():
			log.Debug("scheduler stopped", "steps", s.Steps())

			return nil
		case <-ticker.C:
			_, err := s.Step(ctx)
			if err == nil {
				continue
			}

			// Step joins one annotated error per failed actor.
			joined, ok := err.(interface{ Unwrap() []error }) //nolint:errorlint
			if !ok {
				log.Warn("actor tick failed", "error", err)

				continue
			}

			for _, failure := range joined.Unwrap() {
				log.Warn("actor tick failed", "error", failure)
			}
		}
	}
}

// Snapshot lists registered actors in natural name order.
func (s *Scheduler) Snapshot() []ActorInfo {
	s.mu.Lock()

	infos := make([]ActorInfo, 0, len(s.actors))
	for _, e := range s.actors {
		infos = append(infos, ActorInfo{
			ID:     e.id,
			Name:   e.name,
			Ticks:  e.ticks.Load(),
			Errors: e.errors.Load(),
		})
	}

	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool {
		return natsort.Compare(infos[i].Name, infos[j].Name)
	})

	return infos
}

// Close stops the worker pool after in-flight ticks finish.
func (s *Scheduler) Close() {
	s.pool.StopAndWait()
}
