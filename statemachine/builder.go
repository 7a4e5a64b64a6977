package statemachine

import (
	"errors"
	"fmt"
)

// Builder provides a fluent API for constructing machines. Unlike calling
// RegisterState directly, Build reports every configuration error at once.
type Builder[ID StateID, A any] struct {
	label   string
	actor   A
	opts    []Option
	initial ID
	states  []*State[ID, A]
}

// NewBuilder creates a new machine builder.
func NewBuilder[ID StateID, A any](label string, actor A) *Builder[ID, A] {
	return &Builder[ID, A]{
		label: label,
		actor: actor,
	}
}

// WithOptions appends machine options.
func (b *Builder[ID, A]) WithOptions(opts ...Option) *Builder[ID, A] {
	b.opts = append(b.opts, opts...)

	return b
}

// WithInitialState sets the initial state reported by Describe and checked by Build.
func (b *Builder[ID, A]) WithInitialState(id ID) *Builder[ID, A] {
	b.initial = id

	return b
}

// AddState adds states in registration order.
func (b *Builder[ID, A]) AddState(states ...*State[ID, A]) *Builder[ID, A] {
	b.states = append(b.states, states...)

	return b
}

// Build constructs the machine. Duplicate or reserved identifiers, an
// unknown initial state and transitions to unregistered states are all
// reported, joined into a single error.
func (b *Builder[ID, A]) Build() (*Machine[ID, A], error) {
	machine := New[ID, A](b.label, b.actor, b.opts...)

	var errs []error

	for _, state := range b.states {
		err := machine.RegisterState(state)
		if err != nil {
			errs = append(errs, err)
		}
	}

	var none ID
	if b.initial != none {
		if _, ok := machine.states[b.initial]; ok {
			machine.initial = b.initial
		} else {
			errs = append(errs, fmt.Errorf("%w: %v", ErrInitialStateNotFound, b.initial))
		}
	}

	for _, id := range machine.order {
		state := machine.states[id]
		for _, t := range state.transitions {
			if _, ok := machine.states[t.target]; !ok {
				errs = append(errs, WrapTransitionError(state.label, fmt.Sprint(t.target), ErrStateNotFound))
			}
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return machine, nil
}
