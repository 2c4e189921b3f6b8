package hydroflow

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for a stage pipeline.
// Chain AddStage, AddEdge and SetEntry, then call Compile.
//
// Graph is NOT thread-safe during building. Build it in one goroutine and
// share the immutable CompiledGraph instead.
//
// Example:
//
//	graph := hydroflow.NewGraph[Run]().
//	    AddStage("hydrology", hydrology).
//	    AddStage("watershed", watershed).
//	    AddEdge("hydrology", "watershed").
//	    AddEdge("watershed", hydroflow.END).
//	    SetEntry("hydrology")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	stages           map[string]StageFunc[S]
	order            []string
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
}

// NewGraph creates a new graph builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		stages:           make(map[string]StageFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// AddStage adds a named stage.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddStage(id string, fn StageFunc[S]) *Graph[S] {
	if id == "" {
		panic("hydroflow: stage ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == END {
		panic("hydroflow: stage ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("hydroflow: stage ID cannot contain whitespace")
	}

	if fn == nil {
		panic("hydroflow: stage function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.stages[id]; exists {
		panic(fmt.Sprintf("hydroflow: duplicate stage ID: %s", id))
	}

	g.stages[id] = fn
	g.order = append(g.order, id)
	return g
}

// AddEdge adds an unconditional edge. The target can be a stage id or END.
// Edges are validated by Compile, so they may be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge lets router pick the stage after from at runtime.
// A conditional edge takes precedence over simple edges from the same stage.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("hydroflow: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the first stage of a full run.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
