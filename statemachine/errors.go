package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrStateNotFound indicates a lookup of an unregistered state identifier.
	ErrStateNotFound = errors.New("state not found")
	// ErrDuplicateState indicates a second registration of the same identifier.
	ErrDuplicateState = errors.New("duplicate state identifier")
	// ErrReservedStateID indicates an attempt to register the zero identifier.
	ErrReservedStateID = errors.New("state identifier zero is reserved for no state")
	// ErrNilState indicates a nil state passed to RegisterState.
	ErrNilState = errors.New("state is nil")
	// ErrAlreadyActive indicates Start (or registration) on a running machine.
	ErrAlreadyActive = errors.New("machine already active")
	// ErrNotActive indicates Update on a machine that is not running.
	ErrNotActive = errors.New("machine not active")
	// ErrNilActor indicates a machine constructed without an actor. Such a
	// machine never starts.
	ErrNilActor = errors.New("machine has no actor")

	// ErrGraphNameRequired indicates that a graph name is required.
	ErrGraphNameRequired = errors.New("graph name is required")
	// ErrInitialStateRequired indicates that an initial state is required.
	ErrInitialStateRequired = errors.New("initial state is required")
	// ErrInitialStateNotFound indicates that the initial state does not exist.
	ErrInitialStateNotFound = errors.New("initial state does not exist")
	// ErrStateRequired indicates that at least one state is required.
	ErrStateRequired = errors.New("at least one state is required")
	// ErrStateNameRequired indicates that a state name is required.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrDuplicateStateName indicates that a duplicate state name was found.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrTransitionFromRequired indicates that a transition from state is required.
	ErrTransitionFromRequired = errors.New("transition from state is required")
	// ErrTransitionToRequired indicates that a transition to state is required.
	ErrTransitionToRequired = errors.New("transition to state is required")
	// ErrTransitionFromNotFound indicates that a transition from state does not exist.
	ErrTransitionFromNotFound = errors.New("transition from state does not exist")
	// ErrTransitionToNotFound indicates that a transition to state does not exist.
	ErrTransitionToNotFound = errors.New("transition to state does not exist")
	// ErrInvalidCombine indicates an unknown combine mode in a graph file.
	ErrInvalidCombine = errors.New("invalid combine mode")
	// ErrNegativeDuration indicates a negative entry delay or wait time.
	ErrNegativeDuration = errors.New("duration must not be negative")
)

// StateError wraps an error with state context.
type StateError struct {
	State string
	Err   error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("state %s: %v", e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// TransitionError wraps an error with transition context.
type TransitionError struct {
	From string
	To   string
	Err  error
}

func (e *TransitionError) Error() string {
	if e.To == "" {
		return fmt.Sprintf("transition from %s: %v", e.From, e.Err)
	}

	return fmt.Sprintf("transition %s -> %s: %v", e.From, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{
		State: state,
		Err:   err,
	}
}

// WrapTransitionError wraps an error with transition context.
func WrapTransitionError(from, to string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		From: from,
		To:   to,
		Err:  err,
	}
}
