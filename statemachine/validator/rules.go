//nolint:lll,mnd // Long validation messages; arithmetic for case conversion
package validator

import (
	"fmt"

	"github.com/amp-labs/dungen/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInfo
)

// Issue codes reported by the default rules.
const (
	CodeUnreachableState    = "UNREACHABLE_STATE"
	CodeNoExit              = "NO_EXIT"
	CodeDuplicateTransition = "DUPLICATE_TRANSITION"
	CodeShadowedTransition  = "SHADOWED_TRANSITION"
	CodeImmediateAny        = "IMMEDIATE_ANY"
	CodeNamingConvention    = "NAMING_CONVENTION"
	CodeGraphInvalid        = "GRAPH_INVALID"
	CodeGraphLoadFailed     = "GRAPH_LOAD_FAILED"
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that can check a graph for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(graph *statemachine.Graph) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&unreachableStateRule{},
		&noExitRule{},
		&duplicateTransitionRule{},
		&shadowedTransitionRule{},
		&immediateAnyRule{},
		&namingConventionRule{},
	}
}

// unreachableStateRule checks for states that cannot be reached from the initial state.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityError
}

func (r *unreachableStateRule) Check(graph *statemachine.Graph) RuleResult {
	var errors []ValidationError

	reachable := make(map[string]bool)
	reachable[graph.InitialState] = true

	queue := []string{graph.InitialState}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, transition := range graph.Transitions {
			if transition.From == current && !reachable[transition.To] {
				reachable[transition.To] = true
				queue = append(queue, transition.To)
			}
		}
	}

	for _, state := range graph.States {
		if !reachable[state.Name] {
			errors = append(errors, ValidationError{
				Code:     CodeUnreachableState,
				Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", state.Name, graph.InitialState),
				Location: Location{State: state.Name},
				Fix:      RemoveUnreachableState(state.Name),
			})
		}
	}

	return RuleResult{Errors: errors}
}

// noExitRule warns about states with no outgoing transitions. Such states
// are legal, an overheated weapon that never recovers is one, but they are
// usually a mistake.
type noExitRule struct{}

func (r *noExitRule) Name() string {
	return "NoExit"
}

func (r *noExitRule) Severity() Severity {
	return SeverityWarning
}

func (r *noExitRule) Check(graph *statemachine.Graph) RuleResult {
	var warnings []ValidationWarning

	hasOutgoing := make(map[string]bool)
	for _, transition := range graph.Transitions {
		hasOutgoing[transition.From] = true
	}

	for _, state := range graph.States {
		if !hasOutgoing[state.Name] {
			warnings = append(warnings, ValidationWarning{
				Code:     CodeNoExit,
				Message:  fmt.Sprintf("State '%s' has no outgoing transitions; a machine that enters it stays there until halted", state.Name),
				Location: Location{State: state.Name},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// duplicateTransitionRule checks for identical edges.
type duplicateTransitionRule struct{}

func (r *duplicateTransitionRule) Name() string {
	return "DuplicateTransition"
}

func (r *duplicateTransitionRule) Severity() Severity {
	return SeverityError
}

func (r *duplicateTransitionRule) Check(graph *statemachine.Graph) RuleResult {
	var errors []ValidationError

	seen := make(map[string]bool)

	for i, transition := range graph.Transitions {
		key := fmt.Sprintf("%s->%s:%s", transition.From, transition.To, transition.Name)
		if seen[key] {
			errors = append(errors, ValidationError{
				Code:    CodeDuplicateTransition,
				Message: fmt.Sprintf("Duplicate transition from '%s' to '%s' named '%s'", transition.From, transition.To, transition.Name),
				Location: Location{
					State: transition.From,
					Line:  i + 1,
				},
				Fix: RemoveDuplicateTransition(transition.From, transition.To, transition.Name),
			})
		}

		seen[key] = true
	}

	return RuleResult{Errors: errors}
}

// shadowedTransitionRule flags edges listed after an always-eligible edge of
// the same state. The first eligible edge wins, so those can only fire while
// the entry delay is pending, and only when they combine with "any".
type shadowedTransitionRule struct{}

func (r *shadowedTransitionRule) Name() string {
	return "ShadowedTransition"
}

func (r *shadowedTransitionRule) Severity() Severity {
	return SeverityWarning
}

func (r *shadowedTransitionRule) Check(graph *statemachine.Graph) RuleResult {
	var warnings []ValidationWarning

	for _, state := range graph.States {
		delayed := state.EntryDelay > 0 || state.DynamicDelay
		blocker := ""

		for _, transition := range graph.TransitionsFrom(state.Name) {
			if blocker != "" {
				if delayed && transition.Combine == statemachine.CombineAny.String() {
					continue
				}

				warnings = append(warnings, ValidationWarning{
					Code: CodeShadowedTransition,
					Message: fmt.Sprintf("Transition '%s' -> '%s' never fires: the earlier unconditional transition to '%s' always wins",
						transition.From, transition.To, blocker),
					Location: Location{State: state.Name},
				})

				continue
			}

			if alwaysEligible(transition) {
				blocker = transition.To
			}
		}
	}

	return RuleResult{Warnings: warnings}
}

// immediateAnyRule flags "any" edges that have nothing to wait for: with no
// wait and no entry delay the timer half is always satisfied, so the edge
// fires on the first update regardless of its condition.
type immediateAnyRule struct{}

func (r *immediateAnyRule) Name() string {
	return "ImmediateAny"
}

func (r *immediateAnyRule) Severity() Severity {
	return SeverityWarning
}

func (r *immediateAnyRule) Check(graph *statemachine.Graph) RuleResult {
	var warnings []ValidationWarning

	for _, state := range graph.States {
		if state.EntryDelay > 0 || state.DynamicDelay {
			continue
		}

		for _, transition := range graph.TransitionsFrom(state.Name) {
			if transition.Combine != statemachine.CombineAny.String() {
				continue
			}

			if transition.Wait > 0 || transition.DynamicWait {
				continue
			}

			warnings = append(warnings, ValidationWarning{
				Code:     CodeImmediateAny,
				Message:  fmt.Sprintf("Transition '%s' -> '%s' combines with 'any' but has no wait or entry delay; only its guard can hold it back", transition.From, transition.To),
				Location: Location{State: state.Name},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// namingConventionRule warns about naming convention violations.
type namingConventionRule struct{}

func (r *namingConventionRule) Name() string {
	return "NamingConvention"
}

func (r *namingConventionRule) Severity() Severity {
	return SeverityWarning
}

func (r *namingConventionRule) Check(graph *statemachine.Graph) RuleResult {
	var warnings []ValidationWarning

	for _, state := range graph.States {
		if !isSnakeCase(state.Name) {
			warnings = append(warnings, ValidationWarning{
				Code:     CodeNamingConvention,
				Message:  fmt.Sprintf("State '%s' should use snake_case naming (suggested: '%s')", state.Name, toSnakeCase(state.Name)),
				Location: Location{State: state.Name},
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// Helper functions

func alwaysEligible(t statemachine.GraphTransition) bool {
	return !t.Conditional && t.Wait == 0 && !t.DynamicWait
}

func isSnakeCase(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return false
		}

		if r == '-' || r == ' ' {
			return false
		}
	}

	return true
}

func toSnakeCase(s string) string {
	var result []rune

	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 {
				result = append(result, '_')
			}

			result = append(result, r+32)
		case r == '-' || r == ' ':
			result = append(result, '_')
		default:
			result = append(result, r)
		}
	}

	return string(result)
}
