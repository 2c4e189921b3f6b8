package hydroflow

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/checkpoint"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/observability"
)

// Run executes the pipeline from the entry stage.
// On error it returns the state at the point of failure.
//
// Execution flow:
//  1. Start at the entry stage
//  2. Check for cancellation
//  3. Execute the current stage
//  4. Pick the next stage (router or simple edge)
//  5. Save a checkpoint, if configured
//  6. Repeat until END is reached or an error occurs
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (S, error) {
	return cg.RunFrom(ctx, state, cg.entryPoint, opts...)
}

// RunFrom executes the pipeline starting at stageID. Stages before it are
// assumed to have run already; their outputs must be in state.
func (cg *CompiledGraph[S]) RunFrom(ctx Context, state S, stageID string, opts ...RunOption) (S, error) {
	if ctx == nil {
		return state, ErrNilContext
	}
	if !cg.HasStage(stageID) {
		return state, fmt.Errorf("%w: %s", ErrInvalidResumeStage, stageID)
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cg.execute(ctx, state, stageID, &cfg)
}

// execute wraps the stage loop with run-level logging, metrics and tracing.
func (cg *CompiledGraph[S]) execute(ctx Context, state S, start string, cfg *runConfig) (result S, runErr error) {
	if cfg.checkpointStore != nil && cfg.runID == "" {
		return state, ErrRunIDRequired
	}

	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID, start)

	var tracingCtx context.Context = ctx
	if cfg.tracingEnabled {
		var runSpan trace.Span
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ctx, cfg.pipeline, runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var stageCount int
	result, stageCount, runErr = cg.runLoop(tracingCtx, ctx, state, start, cfg)

	duration := time.Since(startTime)
	cfg.metrics.RecordPipelineRun(ctx, runErr == nil, duration)

	durationMs := float64(duration.Milliseconds())
	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, durationMs, lastStage(runErr))
	} else {
		observability.LogRunComplete(cfg.logger, runID, durationMs, stageCount)
	}

	return result, runErr
}

// runLoop executes stages one at a time. tracingCtx carries span context;
// hfCtx is the hydroflow Context handed to stages.
func (cg *CompiledGraph[S]) runLoop(tracingCtx context.Context, hfCtx Context, state S, start string, cfg *runConfig) (S, int, error) {
	current := start
	prevStage := ""
	iterations := 0
	stageCount := 0

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, stageCount, &MaxIterationsError{
				Max:         cfg.maxIterations,
				LastStageID: current,
				State:       state,
			}
		}

		select {
		case <-hfCtx.Done():
			return state, stageCount, &CancellationError{
				StageID: current,
				State:   state,
				Cause:   hfCtx.Err(),
			}
		default:
		}

		observability.LogStageStart(cfg.logger, current)

		stageTracingCtx := tracingCtx
		var stageSpan trace.Span
		if cfg.tracingEnabled {
			stageTracingCtx, stageSpan = cfg.spans.StartStageSpan(tracingCtx, current)
		}

		stageStart := time.Now()
		var stageErr error
		state, stageErr = cg.executeStage(hfCtx, stageTracingCtx, current, state)
		stageDuration := time.Since(stageStart)

		cfg.metrics.RecordStageExecution(stageTracingCtx, current, stageDuration, stageErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(stageSpan, stageErr)
		}

		if stageErr != nil {
			observability.LogStageError(cfg.logger, current, stageErr)
			return state, stageCount, stageErr
		}
		observability.LogStageComplete(cfg.logger, current, float64(stageDuration.Milliseconds()))
		stageCount++

		next, err := cg.nextStage(hfCtx, state, current)
		if err != nil {
			return state, stageCount, err
		}

		if cfg.checkpointStore != nil {
			if err := cg.saveCheckpoint(hfCtx, cfg, current, prevStage, state, next); err != nil {
				return state, stageCount, err
			}
		}

		prevStage = current
		current = next
	}

	return state, stageCount, nil
}

// saveCheckpoint persists state after a stage. Failures are returned as
// CheckpointError when fatal and logged otherwise.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, stageID, prevStageID string, state S, next string) error {
	fail := func(op string, err error) error {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{StageID: stageID, Op: op, Err: err}
		}
		observability.LogCheckpointError(cfg.logger, stageID, op, err)
		return nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fail("serialize", err)
	}

	cfg.sequence++
	cp := checkpoint.New(cfg.runID, stageID, cfg.sequence, stateBytes, next).
		WithPrevStage(prevStageID).
		WithAttempt(ctx.Attempt())
	if mr, ok := any(state).(ManifestRecorder); ok {
		cp = cp.WithManifest(mr.ManifestPath())
	}

	data, err := cp.Marshal()
	if err != nil {
		return fail("marshal", err)
	}

	if err := cfg.checkpointStore.Save(ctx, cfg.runID, stageID, data); err != nil {
		return fail("save", err)
	}

	observability.LogCheckpoint(cfg.logger, stageID, len(data))
	cfg.metrics.RecordCheckpoint(ctx, stageID, int64(len(data)))
	return nil
}

// executeStage runs one stage with panic recovery.
func (cg *CompiledGraph[S]) executeStage(ctx Context, tracingCtx context.Context, stageID string, state S) (result S, err error) {
	fn, exists := cg.getStage(stageID)
	if !exists {
		return state, &StageError{
			StageID: stageID,
			Op:      "lookup",
			Err:     fmt.Errorf("stage not found: %s", stageID),
		}
	}

	stageCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		stageCtx = ec.withStageID(stageID).withTracing(tracingCtx)
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				StageID: stageID,
				Value:   r,
				Stack:   string(debug.Stack()),
			}
		}
	}()

	result, err = fn(stageCtx, state)
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, &CancellationError{
					StageID:      stageID,
					State:        result,
					Cause:        ctxErr,
					WasExecuting: true,
				}
			}
		}
		return result, &StageError{
			StageID: stageID,
			Op:      "execute",
			Err:     err,
		}
	}

	return result, nil
}

// nextStage picks the stage after current: router first, then the first
// simple edge.
func (cg *CompiledGraph[S]) nextStage(ctx Context, state S, current string) (string, error) {
	if router, exists := cg.getRouter(current); exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withStageID(current)
		}

		next := router(routerCtx, state)
		if next == "" {
			return "", &RouterError{FromStage: current, Returned: next, Err: ErrInvalidRouterResult}
		}
		if next != END && !cg.HasStage(next) {
			return "", &RouterError{FromStage: current, Returned: next, Err: ErrRouterTargetNotFound}
		}
		return next, nil
	}

	edges := cg.edges[current]
	if len(edges) == 0 {
		return "", &StageError{
			StageID: current,
			Op:      "routing",
			Err:     fmt.Errorf("no outgoing edge from stage %s", current),
		}
	}
	return edges[0], nil
}
