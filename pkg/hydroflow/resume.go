package hydroflow

import (
	"encoding/json"
	stderrors "errors"
	"fmt"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/checkpoint"
)

// Resume continues a run after its latest checkpoint.
//
// Example:
//
//	// The run crashed during the watershed stage; hydrology was checkpointed.
//	result, err := compiled.Resume(ctx, store, "2023_1_2_9_5_7")
func (cg *CompiledGraph[S]) Resume(ctx Context, store checkpoint.Store, runID string, opts ...ResumeOption) (S, error) {
	var zero S
	if ctx == nil {
		return zero, ErrNilContext
	}

	cp, err := checkpoint.Latest(ctx, store, runID)
	if err != nil {
		if stderrors.Is(err, checkpoint.ErrNotFound) {
			return zero, fmt.Errorf("%w: %s", ErrNoCheckpoints, runID)
		}
		return zero, fmt.Errorf("load checkpoint: %w", err)
	}
	return cg.resumeFrom(ctx, store, cp, opts)
}

// ResumeFrom continues a run from the checkpoint taken after stageID.
func (cg *CompiledGraph[S]) ResumeFrom(ctx Context, store checkpoint.Store, runID, stageID string, opts ...ResumeOption) (S, error) {
	var zero S
	if ctx == nil {
		return zero, ErrNilContext
	}

	data, err := store.Load(ctx, runID, stageID)
	if err != nil {
		if stderrors.Is(err, checkpoint.ErrNotFound) {
			return zero, fmt.Errorf("%w: %s at stage %s", ErrNoCheckpoints, runID, stageID)
		}
		return zero, fmt.Errorf("load checkpoint: %w", err)
	}
	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}
	return cg.resumeFrom(ctx, store, cp, opts)
}

func (cg *CompiledGraph[S]) resumeFrom(ctx Context, store checkpoint.Store, cp *checkpoint.Checkpoint, opts []ResumeOption) (S, error) {
	var zero S

	cfg := resumeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cp.Version != checkpoint.Version {
		return zero, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrDeserializeState, err)
	}

	if cfg.stateOverride != nil {
		if typed, ok := cfg.stateOverride(state).(S); ok {
			state = typed
		}
	}

	if cfg.validateState != nil {
		if err := cfg.validateState(state); err != nil {
			return state, fmt.Errorf("state validation failed: %w", err)
		}
	}

	start := cp.NextStage
	if cfg.replayStage {
		start = cp.StageID
	}
	if start == "" || start == END {
		return state, fmt.Errorf("%w: %s", ErrRunComplete, cp.RunID)
	}
	if !cg.HasStage(start) {
		return zero, fmt.Errorf("%w: %s", ErrInvalidResumeStage, start)
	}

	runCfg := defaultRunConfig()
	for _, opt := range cfg.runOpts {
		opt(&runCfg)
	}
	runCfg.checkpointStore = store
	runCfg.runID = cp.RunID
	runCfg.sequence = cp.Sequence

	if ec, ok := ctx.(*executionContext); ok {
		next := *ec
		next.attempt = cp.Attempt + 1
		ctx = &next
	}

	return cg.execute(ctx, state, start, &runCfg)
}
