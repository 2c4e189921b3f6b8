package hydroflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Linear(t *testing.T) {
	result, err := linear(t, nil).Run(testCtx(), Run{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hydrology", "watershed", "bqart"}, result.Stages)
}

func TestRun_NilContext(t *testing.T) {
	_, err := linear(t, nil).Run(nil, Run{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRunFrom(t *testing.T) {
	compiled := linear(t, nil)

	result, err := compiled.RunFrom(testCtx(), Run{Stages: []string{"loaded"}}, "watershed")
	require.NoError(t, err)
	assert.Equal(t, []string{"loaded", "watershed", "bqart"}, result.Stages)

	result, err = compiled.RunFrom(testCtx(), Run{}, "bqart")
	require.NoError(t, err)
	assert.Equal(t, []string{"bqart"}, result.Stages)
}

func TestRunFrom_UnknownStage(t *testing.T) {
	_, err := linear(t, nil).RunFrom(testCtx(), Run{}, "fault")
	assert.ErrorIs(t, err, ErrInvalidResumeStage)
}

func TestRun_StageError(t *testing.T) {
	boom := errors.New("flow direction failed")
	var executed []string

	compiled := linear(t, map[string]StageFunc[Run]{
		"hydrology": tracked("hydrology", &executed),
		"watershed": failing(boom),
		"bqart":     tracked("bqart", &executed),
	})

	result, err := compiled.Run(testCtx(), Run{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "watershed", stageErr.StageID)
	assert.Equal(t, "execute", stageErr.Op)
	assert.Equal(t, "stage watershed: execute: flow direction failed", err.Error())

	assert.Equal(t, []string{"hydrology"}, executed)
	assert.Equal(t, []string{"hydrology"}, result.Stages, "state at failure is returned")
}

func TestRun_Panic(t *testing.T) {
	compiled := linear(t, map[string]StageFunc[Run]{
		"bqart": panicking("zone table exploded"),
	})

	result, err := compiled.Run(testCtx(), Run{})

	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "bqart", panicErr.StageID)
	assert.Equal(t, "zone table exploded", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
	assert.Equal(t, []string{"hydrology", "watershed"}, result.Stages)
}

func TestRun_CancelledBeforeStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := linear(t, nil).Run(NewContext(ctx), Run{})

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "hydrology", cancelErr.StageID)
	assert.False(t, cancelErr.WasExecuting)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_CancelledDuringStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	compiled := linear(t, map[string]StageFunc[Run]{
		"watershed": func(ctx Context, r Run) (Run, error) {
			cancel()
			<-ctx.Done()
			return r, ctx.Err()
		},
	})

	_, err := compiled.Run(NewContext(ctx), Run{})

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "watershed", cancelErr.StageID)
	assert.True(t, cancelErr.WasExecuting)
}

func TestRun_Deadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	compiled := linear(t, map[string]StageFunc[Run]{
		"hydrology": func(ctx Context, r Run) (Run, error) {
			<-ctx.Done()
			return r, nil
		},
	})

	_, err := compiled.Run(NewContext(ctx), Run{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_ConditionalEdge(t *testing.T) {
	graph := NewGraph[Run]().
		AddStage("hydrology", record("hydrology")).
		AddStage("fault", record("fault")).
		AddStage("watershed", record("watershed")).
		AddConditionalEdge("hydrology", func(ctx Context, r Run) string {
			if r.Zones > 0 {
				return "fault"
			}
			return "watershed"
		}).
		AddEdge("fault", "watershed").
		AddEdge("watershed", END).
		SetEntry("hydrology")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Run{Zones: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"hydrology", "fault", "watershed"}, result.Stages)

	result, err = compiled.Run(testCtx(), Run{})
	require.NoError(t, err)
	assert.Equal(t, []string{"hydrology", "watershed"}, result.Stages)
}

func TestRun_RouterErrors(t *testing.T) {
	tests := []struct {
		name     string
		returned string
		want     error
	}{
		{"empty", "", ErrInvalidRouterResult},
		{"unknown", "climate", ErrRouterTargetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := NewGraph[Run]().
				AddStage("hydrology", record("hydrology")).
				AddConditionalEdge("hydrology", func(Context, Run) string { return tt.returned }).
				SetEntry("hydrology").
				Compile()
			require.NoError(t, err)

			_, err = compiled.Run(testCtx(), Run{})
			var routerErr *RouterError
			require.ErrorAs(t, err, &routerErr)
			assert.Equal(t, "hydrology", routerErr.FromStage)
			assert.Equal(t, tt.returned, routerErr.Returned)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_MaxIterations(t *testing.T) {
	compiled, err := NewGraph[Run]().
		AddStage("watershed", record("watershed")).
		AddConditionalEdge("watershed", func(Context, Run) string { return "watershed" }).
		SetEntry("watershed").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Run{}, WithMaxIterations(3))

	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 3, maxErr.Max)
	assert.Equal(t, "watershed", maxErr.LastStageID)
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, result.Stages, 3)
}

func TestRun_StageContext(t *testing.T) {
	var seen []string
	var attempts []int
	probe := func(ctx Context, r Run) (Run, error) {
		seen = append(seen, ctx.RunID()+"/"+ctx.StageID())
		attempts = append(attempts, ctx.Attempt())
		assert.NotNil(t, ctx.Logger())
		return r, nil
	}

	compiled := linear(t, map[string]StageFunc[Run]{
		"hydrology": probe,
		"watershed": probe,
		"bqart":     probe,
	})

	_, err := compiled.Run(testCtx(), Run{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2023_1_2_9_5_7/hydrology",
		"2023_1_2_9_5_7/watershed",
		"2023_1_2_9_5_7/bqart",
	}, seen)
	assert.Equal(t, []int{1, 1, 1}, attempts)
}

func TestRun_StateIsolatedBetweenRuns(t *testing.T) {
	compiled := linear(t, nil)

	first, err := compiled.Run(testCtx(), Run{})
	require.NoError(t, err)
	second, err := compiled.Run(testCtx(), Run{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestNewContext_Defaults(t *testing.T) {
	ctx := NewContext(context.Background())
	assert.NotEmpty(t, ctx.RunID())
	assert.Empty(t, ctx.StageID())
	assert.Equal(t, 1, ctx.Attempt())
	assert.NotNil(t, ctx.Logger())
	assert.Nil(t, ctx.Checkpointer())

	other := NewContext(context.Background())
	assert.NotEqual(t, ctx.RunID(), other.RunID())

	ctx = NewContext(context.Background(), WithAttempt(3), WithLogger(nil))
	assert.Equal(t, 3, ctx.Attempt())
	assert.NotNil(t, ctx.Logger())
}
