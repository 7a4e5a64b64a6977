// Package visualizer generates Mermaid state diagrams from machine graphs.
//
//nolint:varnamelen // short names idiomatic
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/dungen/statemachine"
)

// Visualizer errors.
var (
	ErrGraphNil       = errors.New("graph cannot be nil")
	ErrNoInitialState = errors.New("graph must have an initial state")
)

type palette struct {
	delayed     string
	terminal    string
	highlighted string
}

var themes = map[string]palette{
	"default": {
		delayed:     "fill:#e1f5ff,stroke:#01579b,stroke-width:2px",
		terminal:    "fill:#ffcdd2,stroke:#b71c1c,stroke-width:2px",
		highlighted: "fill:#fff9c4,stroke:#f57f17,stroke-width:3px",
	},
	"dark": {
		delayed:     "fill:#263238,stroke:#4fc3f7,color:#eceff1,stroke-width:2px",
		terminal:    "fill:#3e2723,stroke:#ff8a65,color:#eceff1,stroke-width:2px",
		highlighted: "fill:#33691e,stroke:#c5e1a5,color:#f1f8e9,stroke-width:3px",
	},
}

// GenerateMermaid converts a Graph to a Mermaid state diagram.
func GenerateMermaid(graph *statemachine.Graph) (string, error) {
	return GenerateMermaidWithOptions(graph, DefaultOptions())
}

// GenerateMermaidFromFile loads a graph from a YAML file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	graph, err := statemachine.LoadGraph(path)
	if err != nil {
		return "", fmt.Errorf("failed to load graph: %w", err)
	}

	return GenerateMermaid(graph)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
func GenerateMermaidWithOptions(graph *statemachine.Graph, opts Options) (string, error) {
	if graph == nil {
		return "", ErrGraphNil
	}

	if graph.InitialState == "" {
		return "", ErrNoInitialState
	}

	colors, ok := themes[opts.Theme]
	if !ok {
		colors = themes["default"]
	}

	direction := opts.Direction
	if direction == "" {
		direction = "TD"
	}

	var sb strings.Builder

	sb.WriteString("```mermaid\n")
	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "    direction %s\n", direction)
	fmt.Fprintf(&sb, "    [*] --> %s\n", nodeID(graph.InitialState))

	highlightMap := make(map[string]bool)
	for _, state := range opts.HighlightPath {
		highlightMap[state] = true
	}

	for _, state := range graph.States {
		id := nodeID(state.Name)
		transitions := graph.TransitionsFrom(state.Name)

		if id != state.Name || (opts.ShowTimings && hasDelay(state)) {
			fmt.Fprintf(&sb, "    %s: %s\n", id, stateDescription(state, opts))
		}

		switch {
		case highlightMap[state.Name]:
			fmt.Fprintf(&sb, "    class %s highlighted\n", id)
		case len(transitions) == 0:
			fmt.Fprintf(&sb, "    class %s terminal\n", id)
		case hasDelay(state):
			fmt.Fprintf(&sb, "    class %s delayed\n", id)
		}

		for _, transition := range transitions {
			label := edgeLabel(transition, opts)
			if label != "" {
				label = ": " + label
			}

			fmt.Fprintf(&sb, "    %s --> %s%s\n", id, nodeID(transition.To), label)
		}
	}

	sb.WriteString("\n")
	fmt.Fprintf(&sb, "    classDef delayed %s\n", colors.delayed)
	fmt.Fprintf(&sb, "    classDef terminal %s\n", colors.terminal)
	fmt.Fprintf(&sb, "    classDef highlighted %s\n", colors.highlighted)

	sb.WriteString("```\n")

	return sb.String(), nil
}

func hasDelay(state statemachine.GraphState) bool {
	return state.EntryDelay > 0 || state.DynamicDelay
}

func stateDescription(state statemachine.GraphState, opts Options) string {
	if !opts.ShowTimings {
		return state.Name
	}

	switch {
	case state.DynamicDelay:
		return state.Name + "\\n(delay: dynamic)"
	case state.EntryDelay > 0:
		return fmt.Sprintf("%s\\n(delay: %s)", state.Name, state.EntryDelay)
	default:
		return state.Name
	}
}

func edgeLabel(transition statemachine.GraphTransition, opts Options) string {
	var parts []string

	if opts.ShowConditions && transition.Name != "" {
		parts = append(parts, transition.Name)
	}

	if opts.ShowTimings {
		switch {
		case transition.DynamicWait:
			parts = append(parts, "after dynamic")
		case transition.Wait > 0:
			parts = append(parts, "after "+transition.Wait.String())
		}

		if transition.Combine == statemachine.CombineAny.String() {
			parts = append(parts, "or")
		}
	}

	return strings.Join(parts, " ")
}

// nodeID turns a state name into a Mermaid-safe identifier.
func nodeID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
