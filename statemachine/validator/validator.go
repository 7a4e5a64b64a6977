package validator

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"facette.io/natsort"
	"github.com/amp-labs/dungen/statemachine"
)

// ValidationResult contains the results of validating a machine graph.
type ValidationResult struct {
	Valid       bool
	Errors      []ValidationError
	Warnings    []ValidationWarning
	Suggestions []Suggestion
}

// ValidationError represents a validation error with fix suggestions.
type ValidationError struct {
	Code     string   // Error code like "UNREACHABLE_STATE", "DUPLICATE_TRANSITION"
	Message  string   // Human-readable error message
	Location Location // Where the error occurred
	Fix      *Fix     // Optional auto-fix suggestion
}

// ValidationWarning represents a non-critical issue.
type ValidationWarning struct {
	Code     string
	Message  string
	Location Location
}

// Suggestion provides improvement recommendations.
type Suggestion struct {
	Message string // Suggestion description
	Example string // YAML example showing the improvement
}

// Location identifies where an issue occurred.
type Location struct {
	File  string // Graph file path
	Line  int    // Transition index, 1-based (0 if unknown)
	State string // State name if applicable
}

// Validate performs comprehensive validation on a machine graph.
func Validate(graph *statemachine.Graph) ValidationResult {
	return ValidateWithRules(graph, DefaultRules())
}

// ValidateMachine validates the graph a live machine describes.
func ValidateMachine[ID statemachine.StateID, A any](m *statemachine.Machine[ID, A]) ValidationResult {
	graph := m.Describe()

	return Validate(&graph)
}

// ValidateFile loads a graph from a file and validates it.
func ValidateFile(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, false)
}

// ValidateFileStrict loads a graph from a file and validates it in strict mode.
func ValidateFileStrict(path string) (ValidationResult, error) {
	return ValidateFileWithOptions(path, true)
}

// ValidateFileWithOptions loads a graph from a file and validates it with options.
func ValidateFileWithOptions(path string, strict bool) (ValidationResult, error) {
	graph, err := statemachine.LoadGraph(path)
	if err != nil {
		return ValidationResult{
			Valid: false,
			Errors: []ValidationError{
				{
					Code:     CodeGraphLoadFailed,
					Message:  fmt.Sprintf("Failed to load graph: %v", err),
					Location: Location{File: path},
				},
			},
		}, err
	}

	var result ValidationResult
	if strict {
		result = ValidateWithRulesStrict(graph, DefaultRules())
	} else {
		result = Validate(graph)
	}

	for i := range result.Errors {
		if result.Errors[i].Location.File == "" {
			result.Errors[i].Location.File = path
		}
	}

	for i := range result.Warnings {
		if result.Warnings[i].Location.File == "" {
			result.Warnings[i].Location.File = path
		}
	}

	return result, nil
}

// ValidateWithRules validates using custom rules. Structural errors reported
// by Graph.Validate stop the run before any rule is evaluated.
func ValidateWithRules(graph *statemachine.Graph, rules []Rule) ValidationResult {
	var result ValidationResult

	if err := graph.Validate(); err != nil {
		for _, cause := range flatten(err) {
			result.Errors = append(result.Errors, ValidationError{
				Code:    CodeGraphInvalid,
				Message: cause.Error(),
			})
		}

		return result
	}

	result.Valid = true

	for _, rule := range rules {
		ruleResult := rule.Check(graph)
		result.Errors = append(result.Errors, ruleResult.Errors...)
		result.Warnings = append(result.Warnings, ruleResult.Warnings...)
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	sortIssues(&result)

	result.Suggestions = generateSuggestions(graph)

	return result
}

// ValidateWithRulesStrict validates with strict mode (treats warnings as errors).
func ValidateWithRulesStrict(graph *statemachine.Graph, rules []Rule) ValidationResult {
	result := ValidateWithRules(graph, rules)

	for _, warning := range result.Warnings {
		result.Errors = append(result.Errors, ValidationError{
			Code:     warning.Code,
			Message:  warning.Message,
			Location: warning.Location,
		})
	}

	result.Warnings = nil

	if len(result.Errors) > 0 {
		result.Valid = false
	}

	return result
}

// sortIssues orders issues by state name, naturally, so "state2" sorts
// before "state10", then by code.
func sortIssues(result *ValidationResult) {
	less := func(a, b Location, codeA, codeB string) bool {
		if a.State != b.State {
			return natsort.Compare(a.State, b.State)
		}

		if codeA != codeB {
			return codeA < codeB
		}

		return a.Line < b.Line
	}

	sort.SliceStable(result.Errors, func(i, j int) bool {
		return less(result.Errors[i].Location, result.Errors[j].Location, result.Errors[i].Code, result.Errors[j].Code)
	})

	sort.SliceStable(result.Warnings, func(i, j int) bool {
		return less(result.Warnings[i].Location, result.Warnings[j].Location,
			result.Warnings[i].Code, result.Warnings[j].Code)
	})
}

func flatten(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}

	return []error{err}
}

// generateSuggestions provides general improvement suggestions.
func generateSuggestions(graph *statemachine.Graph) []Suggestion {
	var suggestions []Suggestion

	hasNonSnakeCase := false

	for _, state := range graph.States {
		if containsUpperCase(state.Name) {
			hasNonSnakeCase = true

			break
		}
	}

	if hasNonSnakeCase {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider using snake_case for state names for consistency",
			Example: `states:
  - name: wind_up  # Good
    # instead of: windUp, WindUp`,
		})
	}

	unnamed := false

	for _, transition := range graph.Transitions {
		if transition.Name == "" {
			unnamed = true

			break
		}
	}

	if unnamed {
		suggestions = append(suggestions, Suggestion{
			Message: "Consider naming every transition so logs and metrics are readable",
			Example: `transitions:
  - from: idle
    to: windup
    name: trigger pulled`,
		})
	}

	return suggestions
}

// containsUpperCase checks if a string contains uppercase characters.
func containsUpperCase(s string) bool {
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			return true
		}
	}

	return false
}

// HasErrors returns true if the result has any errors.
func (r ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if the result has any warnings.
func (r ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// String returns a human-readable summary of validation results.
func (r ValidationResult) String() string {
	var sb strings.Builder

	if r.Valid {
		sb.WriteString("Graph is valid\n")
	} else {
		fmt.Fprintf(&sb, "Graph has %d error(s)\n", len(r.Errors))

		for _, err := range r.Errors {
			fmt.Fprintf(&sb, "  [%s] %s", err.Code, err.Message)

			if err.Location.State != "" {
				fmt.Fprintf(&sb, " (state: %s)", err.Location.State)
			}

			sb.WriteString("\n")

			if err.Fix != nil {
				fmt.Fprintf(&sb, "    Fix: %s\n", err.Fix.Description)
			}
		}
	}

	if len(r.Warnings) > 0 {
		fmt.Fprintf(&sb, "\n%d warning(s):\n", len(r.Warnings))

		for _, warn := range r.Warnings {
			fmt.Fprintf(&sb, "  [%s] %s\n", warn.Code, warn.Message)
		}
	}

	if len(r.Suggestions) > 0 {
		fmt.Fprintf(&sb, "\n%d suggestion(s) for improvement\n", len(r.Suggestions))
	}

	return sb.String()
}
