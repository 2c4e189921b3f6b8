package hydroflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewGraph(t *testing.T) {
	graph := NewGraph[Run]()
	assert.NotNil(t, graph.stages)
	assert.NotNil(t, graph.edges)
	assert.NotNil(t, graph.conditionalEdges)
	assert.Empty(t, graph.entryPoint)
}

func TestGraph_AddStage(t *testing.T) {
	graph := NewGraph[Run]()
	result := graph.AddStage("hydrology", record("hydrology")).
		AddStage("watershed", record("watershed"))

	assert.Same(t, graph, result)
	assert.Len(t, graph.stages, 2)
	assert.Equal(t, []string{"hydrology", "watershed"}, graph.order)
}

func TestGraph_AddStage_Panics(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		fn    StageFunc[Run]
		panic string
	}{
		{"empty", "", record("x"), "hydroflow: stage ID cannot be empty"},
		{"END", "END", record("x"), "hydroflow: stage ID cannot be reserved word 'END'"},
		{"end", "end", record("x"), "hydroflow: stage ID cannot be reserved word 'END'"},
		{"__END__", "__END__", record("x"), "hydroflow: stage ID cannot be reserved word 'END'"},
		{"space", "fault stage", record("x"), "hydroflow: stage ID cannot contain whitespace"},
		{"tab", "fault\tstage", record("x"), "hydroflow: stage ID cannot contain whitespace"},
		{"nil func", "fault", nil, "hydroflow: stage function cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PanicsWithValue(t, tt.panic, func() {
				NewGraph[Run]().AddStage(tt.id, tt.fn)
			})
		})
	}
}

func TestGraph_AddStage_Duplicate(t *testing.T) {
	assert.PanicsWithValue(t, "hydroflow: duplicate stage ID: bqart", func() {
		NewGraph[Run]().
			AddStage("bqart", record("bqart")).
			AddStage("bqart", record("bqart"))
	})
}

func TestGraph_AddEdge(t *testing.T) {
	graph := NewGraph[Run]().
		AddEdge("hydrology", "watershed").
		AddEdge("hydrology", "fault")

	assert.Equal(t, []string{"watershed", "fault"}, graph.edges["hydrology"])
}

func TestGraph_AddConditionalEdge(t *testing.T) {
	router := func(ctx Context, r Run) string { return END }
	graph := NewGraph[Run]().AddConditionalEdge("hydrology", router)
	assert.Contains(t, graph.conditionalEdges, "hydrology")

	assert.PanicsWithValue(t, "hydroflow: router function cannot be nil", func() {
		NewGraph[Run]().AddConditionalEdge("hydrology", nil)
	})
}

func TestGraph_SetEntry(t *testing.T) {
	graph := NewGraph[Run]().SetEntry("hydrology").SetEntry("watershed")
	assert.Equal(t, "watershed", graph.entryPoint)
}
