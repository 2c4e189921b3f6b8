package hydroflow

import "sort"

// CompiledGraph is an immutable, executable stage pipeline created by
// Graph.Compile. It is safe to share between goroutines, though a single
// run executes strictly one stage at a time.
type CompiledGraph[S any] struct {
	stages           map[string]StageFunc[S]
	order            []string
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
	predecessors     map[string][]string
}

// EntryPoint returns the entry stage ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// StageIDs returns the stage identifiers in the order they were added.
func (cg *CompiledGraph[S]) StageIDs() []string {
	return append([]string(nil), cg.order...)
}

// HasStage checks if a stage exists in the graph.
func (cg *CompiledGraph[S]) HasStage(id string) bool {
	_, exists := cg.stages[id]
	return exists
}

// Successors returns the simple-edge targets of a stage.
// Router targets are decided at runtime and are not included.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return cg.edges[id]
}

// Predecessors returns the stages with a simple edge into id.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return cg.predecessors[id]
}

// IsConditional returns true if the stage has a router.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	_, ok := cg.conditionalEdges[id]
	return ok
}

func (cg *CompiledGraph[S]) getStage(id string) (StageFunc[S], bool) {
	fn, exists := cg.stages[id]
	return fn, exists
}

func (cg *CompiledGraph[S]) getRouter(id string) (RouterFunc[S], bool) {
	router, exists := cg.conditionalEdges[id]
	return router, exists
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
