// Package validator checks machine graphs for structural problems and offers
// automatic fixes for some of them.
package validator

import (
	"errors"
	"fmt"

	"github.com/amp-labs/dungen/statemachine"
)

var (
	// ErrStateNotFound is returned when a fix targets a state that doesn't exist.
	ErrStateNotFound = errors.New("state not found")
	// ErrDuplicateNotFound is returned when attempting to remove a duplicate that doesn't exist.
	ErrDuplicateNotFound = errors.New("duplicate not found")
	// ErrStateAlreadyExists is returned when attempting to rename to an existing state name.
	ErrStateAlreadyExists = errors.New("state already exists")
	// ErrInitialStateRemoval is returned when a fix would remove the initial state.
	ErrInitialStateRemoval = errors.New("cannot remove the initial state")
)

// Fix represents an automatic fix for a validation error.
type Fix struct {
	Description string
	Apply       func(graph *statemachine.Graph) error
}

// RemoveUnreachableState creates a fix that removes a state and every edge touching it.
func RemoveUnreachableState(stateName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable state '%s'", stateName),
		Apply: func(graph *statemachine.Graph) error {
			if graph.InitialState == stateName {
				return fmt.Errorf("%w: '%s'", ErrInitialStateRemoval, stateName)
			}

			states := make([]statemachine.GraphState, 0, len(graph.States))
			found := false

			for _, state := range graph.States {
				if state.Name == stateName {
					found = true

					continue
				}

				states = append(states, state)
			}

			if !found {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, stateName)
			}

			graph.States = states

			transitions := make([]statemachine.GraphTransition, 0, len(graph.Transitions))
			for _, t := range graph.Transitions {
				if t.From != stateName && t.To != stateName {
					transitions = append(transitions, t)
				}
			}

			graph.Transitions = transitions

			return nil
		},
	}
}

// RenameState creates a fix that renames a state everywhere it is referenced.
func RenameState(oldName, newName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Rename state from '%s' to '%s'", oldName, newName),
		Apply: func(graph *statemachine.Graph) error {
			for _, state := range graph.States {
				if state.Name == newName {
					return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, newName)
				}
			}

			found := false

			for i, state := range graph.States {
				if state.Name == oldName {
					graph.States[i].Name = newName
					found = true

					break
				}
			}

			if !found {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, oldName)
			}

			if graph.InitialState == oldName {
				graph.InitialState = newName
			}

			for i, t := range graph.Transitions {
				if t.From == oldName {
					graph.Transitions[i].From = newName
				}

				if t.To == oldName {
					graph.Transitions[i].To = newName
				}
			}

			return nil
		},
	}
}

// RemoveDuplicateTransition creates a fix that keeps the first of several
// identical edges and drops the rest.
func RemoveDuplicateTransition(from, to, name string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove duplicate transition from '%s' to '%s'", from, to),
		Apply: func(graph *statemachine.Graph) error {
			transitions := make([]statemachine.GraphTransition, 0, len(graph.Transitions))
			found := false
			first := true

			for _, t := range graph.Transitions {
				if t.From != from || t.To != to || t.Name != name {
					transitions = append(transitions, t)

					continue
				}

				if first {
					transitions = append(transitions, t)
					first = false
				} else {
					found = true
				}
			}

			if !found {
				return ErrDuplicateNotFound
			}

			graph.Transitions = transitions

			return nil
		},
	}
}

// ApplyFixes applies a list of fixes to a graph.
func ApplyFixes(graph *statemachine.Graph, fixes []*Fix) error {
	for _, fix := range fixes {
		if fix != nil && fix.Apply != nil {
			err := fix.Apply(graph)
			if err != nil {
				return fmt.Errorf("failed to apply fix '%s': %w", fix.Description, err)
			}
		}
	}

	return nil
}

// Fixes collects the fixes attached to a result's errors.
func (r ValidationResult) Fixes() []*Fix {
	var fixes []*Fix

	for _, err := range r.Errors {
		if err.Fix != nil {
			fixes = append(fixes, err.Fix)
		}
	}

	return fixes
}
