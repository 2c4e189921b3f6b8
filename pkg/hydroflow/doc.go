/*
Package hydroflow runs a fixed sequence of pipeline stages over a typed
state, checkpointing after every stage so an interrupted run can be resumed.

# Overview

A pipeline is a directed graph of stages. Each stage receives the current
state and returns the updated state; edges say which stage runs next. Runs
are strictly sequential: a stage, including every external tool call it
makes, completes before the next one starts.

The domain packages under this one implement the BQART sediment-yield
workflow on top of the engine:

  - config: typed, validated pipeline configuration
  - manifest: persisted stage manifests and the Last-Run record
  - batch: timestamped batch directories and advisory locks
  - terrain: the terrain analysis service and its external tool adapter
  - fault: pour point to fault route association
  - zonestats: zonal statistics join
  - climate: per-scenario climate raster cache
  - bqart: the sediment-yield model
  - prompt: operator questions, interactive or scripted
  - workflow: the four-stage pipeline itself

# Basic Usage

	graph := hydroflow.NewGraph[Run]().
	    AddStage("hydrology", hydrology).
	    AddStage("watershed", watershed).
	    AddStage("bqart", sedimentYield).
	    AddEdge("hydrology", "watershed").
	    AddEdge("watershed", "bqart").
	    AddEdge("bqart", hydroflow.END).
	    SetEntry("hydrology")

	compiled, err := graph.Compile()
	if err != nil {
	    return err
	}

	ctx := hydroflow.NewContext(context.Background(),
	    hydroflow.WithLogger(logger),
	    hydroflow.WithContextRunID(token))
	result, err := compiled.Run(ctx, Run{},
	    hydroflow.WithCheckpointing(store),
	    hydroflow.WithRunID(token))

# Starting Mid-Pipeline

RunFrom starts at any stage. The caller is responsible for putting the
outputs of the skipped stages into the state, typically by loading their
manifests:

	result, err := compiled.RunFrom(ctx, state, "bqart", opts...)

# Conditional Edges

A router picks the next stage at runtime:

	graph.AddConditionalEdge("hydrology", func(ctx hydroflow.Context, r Run) string {
	    if r.NeedsFaults {
	        return "fault"
	    }
	    return "watershed"
	})

# Checkpointing and Resume

With WithCheckpointing the state is JSON-encoded and saved after every
stage together with the id of the next stage. Resume loads the latest
checkpoint of a run and continues with that next stage:

	result, err := compiled.Resume(ctx, store, token)

ResumeFrom re-enters at the checkpoint of a specific stage, and
WithReplayStage re-executes the checkpointed stage itself.

# Errors

Stage failures are wrapped in StageError, panics become PanicError, and a
cancelled context becomes CancellationError. All of them name the stage.
The underlying domain error is reachable with errors.As.

# Observability

WithObservabilityLogger logs run and stage lifecycle events. WithMetrics and
WithTracing record OpenTelemetry metrics and spans through the global
providers.
*/
package hydroflow
