package statemachine

import (
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Graph is a static description of a machine: its states, their entry
// delays and the transitions between them. A Graph can be produced from a
// live machine with Describe, or loaded from YAML for offline validation
// and rendering. Conditions are code and are represented only by a flag.
type Graph struct {
	Name         string            `json:"name"         yaml:"name"`
	InitialState string            `json:"initialState" yaml:"initialState"`
	States       []GraphState      `json:"states"       yaml:"states"`
	Transitions  []GraphTransition `json:"transitions"  yaml:"transitions"`
}

// GraphState describes one state.
type GraphState struct {
	Name         string        `json:"name"                   yaml:"name"`
	EntryDelay   time.Duration `json:"entryDelay,omitempty"   yaml:"entryDelay,omitempty"`
	DynamicDelay bool          `json:"dynamicDelay,omitempty" yaml:"dynamicDelay,omitempty"`
}

// GraphTransition describes one edge. Transitions are listed in priority
// order per source state.
type GraphTransition struct {
	From        string        `json:"from"                  yaml:"from"`
	To          string        `json:"to"                    yaml:"to"`
	Name        string        `json:"name,omitempty"        yaml:"name,omitempty"`
	Wait        time.Duration `json:"wait,omitempty"        yaml:"wait,omitempty"`
	DynamicWait bool          `json:"dynamicWait,omitempty" yaml:"dynamicWait,omitempty"`
	Combine     string        `json:"combine,omitempty"     yaml:"combine,omitempty"`
	Conditional bool          `json:"conditional,omitempty" yaml:"conditional,omitempty"`
}

// Describe returns the static graph of the machine.
func (m *Machine[ID, A]) Describe() Graph {
	graph := Graph{
		Name:         m.label,
		InitialState: m.stateLabel(m.initial),
		States:       make([]GraphState, 0, len(m.order)),
	}

	var none ID
	if m.initial == none {
		graph.InitialState = ""
	}

	for _, id := range m.order {
		state := m.states[id]
		graph.States = append(graph.States, GraphState{
			Name:         state.label,
			EntryDelay:   state.entryDelay,
			DynamicDelay: state.entryDelayFunc != nil,
		})

		for _, t := range state.transitions {
			graph.Transitions = append(graph.Transitions, GraphTransition{
				From:        state.label,
				To:          m.stateLabel(t.target),
				Name:        t.label,
				Wait:        t.wait,
				DynamicWait: t.waitFunc != nil,
				Combine:     t.combine.String(),
				Conditional: t.Conditional(),
			})
		}
	}

	return graph
}

// TransitionsFrom returns the transitions leaving state in priority order.
func (g *Graph) TransitionsFrom(state string) []GraphTransition {
	var out []GraphTransition

	for _, t := range g.Transitions {
		if t.From == state {
			out = append(out, t)
		}
	}

	return out
}

// LoadGraph loads a graph description from a YAML file.
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Intentional path-based loading
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %q: %w", path, err)
	}

	return LoadGraphFromBytes(data)
}

// LoadGraphFromFS loads a graph description from a file system, such as an embed.FS.
func LoadGraphFromFS(fsys fs.FS, path string) (*Graph, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file %q: %w", path, err)
	}

	return LoadGraphFromBytes(data)
}

// LoadGraphFromBytes loads a graph description from YAML bytes.
func LoadGraphFromBytes(data []byte) (*Graph, error) {
	var graph Graph

	err := yaml.Unmarshal(data, &graph)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	err = graph.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid graph: %w", err)
	}

	return &graph, nil
}

// Validate checks the structural integrity of the graph.
func (g *Graph) Validate() error {
	if g.Name == "" {
		return ErrGraphNameRequired
	}

	if g.InitialState == "" {
		return ErrInitialStateRequired
	}

	if len(g.States) == 0 {
		return ErrStateRequired
	}

	stateNames := make(map[string]bool)

	for _, state := range g.States {
		if state.Name == "" {
			return ErrStateNameRequired
		}

		if stateNames[state.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateStateName, state.Name)
		}

		if state.EntryDelay < 0 {
			return WrapStateError(state.Name, ErrNegativeDuration)
		}

		stateNames[state.Name] = true
	}

	if !stateNames[g.InitialState] {
		return fmt.Errorf("%w: %s", ErrInitialStateNotFound, g.InitialState)
	}

	for _, transition := range g.Transitions {
		if transition.From == "" {
			return ErrTransitionFromRequired
		}

		if transition.To == "" {
			return ErrTransitionToRequired
		}

		if !stateNames[transition.From] {
			return fmt.Errorf("%w: %s", ErrTransitionFromNotFound, transition.From)
		}

		if !stateNames[transition.To] {
			return fmt.Errorf("%w: %s", ErrTransitionToNotFound, transition.To)
		}

		switch transition.Combine {
		case "", CombineAll.String(), CombineAny.String():
		default:
			return WrapTransitionError(transition.From, transition.To,
				fmt.Errorf("%w: %q", ErrInvalidCombine, transition.Combine))
		}

		if transition.Wait < 0 {
			return WrapTransitionError(transition.From, transition.To, ErrNegativeDuration)
		}
	}

	return nil
}
