package hydroflow

import (
	"context"
)

// Run is a small stand-in for the pipeline state.
type Run struct {
	Stages   []string
	Manifest string
	Zones    int
}

// ManifestPath implements ManifestRecorder.
func (r Run) ManifestPath() string { return r.Manifest }

// record is a stage that appends its name to the state.
func record(name string) StageFunc[Run] {
	return func(ctx Context, r Run) (Run, error) {
		r.Stages = append(r.Stages, name)
		return r, nil
	}
}

// tracked records execution in tracker as well as in state.
func tracked(name string, tracker *[]string) StageFunc[Run] {
	return func(ctx Context, r Run) (Run, error) {
		*tracker = append(*tracker, name)
		r.Stages = append(r.Stages, name)
		return r, nil
	}
}

func failing(err error) StageFunc[Run] {
	return func(ctx Context, r Run) (Run, error) {
		return r, err
	}
}

func panicking(value any) StageFunc[Run] {
	return func(ctx Context, r Run) (Run, error) {
		panic(value)
	}
}

// linear builds hydrology -> watershed -> bqart -> END.
func linear(t interface{ Helper() }, fns map[string]StageFunc[Run]) *CompiledGraph[Run] {
	t.Helper()
	g := NewGraph[Run]()
	for _, id := range []string{"hydrology", "watershed", "bqart"} {
		fn := fns[id]
		if fn == nil {
			fn = record(id)
		}
		g.AddStage(id, fn)
	}
	g.AddEdge("hydrology", "watershed").
		AddEdge("watershed", "bqart").
		AddEdge("bqart", END).
		SetEntry("hydrology")

	compiled, err := g.Compile()
	if err != nil {
		panic(err)
	}
	return compiled
}

func testCtx() Context {
	return NewContext(context.Background(), WithContextRunID("2023_1_2_9_5_7"))
}
