package hydroflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a missing stage.
	ErrEntryNotFound = errors.New("entry point stage not found")

	// ErrStageNotFound indicates an edge references a missing stage.
	ErrStageNotFound = errors.New("stage not found")

	// ErrNoPathToEnd indicates no path exists from the entry point to END.
	ErrNoPathToEnd = errors.New("no path to END from entry")
)

// Sentinel errors for execution.
var (
	// ErrMaxIterations indicates the execution loop exceeded the configured limit.
	ErrMaxIterations = errors.New("exceeded maximum iterations")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrInvalidRouterResult indicates a router returned an empty string.
	ErrInvalidRouterResult = errors.New("router returned empty string")

	// ErrRouterTargetNotFound indicates a router returned an unknown stage.
	ErrRouterTargetNotFound = errors.New("router returned unknown stage")
)

// Sentinel errors for checkpointing and resume.
var (
	// ErrRunIDRequired indicates checkpointing was enabled without a run ID.
	ErrRunIDRequired = errors.New("run ID required for checkpointing")

	// ErrDeserializeState indicates checkpointed state could not be decoded.
	ErrDeserializeState = errors.New("failed to deserialize state")

	// ErrNoCheckpoints indicates no checkpoints exist for the run.
	ErrNoCheckpoints = errors.New("no checkpoints found for run")

	// ErrInvalidResumeStage indicates the resume stage doesn't exist.
	ErrInvalidResumeStage = errors.New("invalid resume stage")

	// ErrRunComplete indicates the run already reached END.
	ErrRunComplete = errors.New("run already complete")

	// ErrCheckpointVersionMismatch indicates the checkpoint version is incompatible.
	ErrCheckpointVersionMismatch = errors.New("checkpoint version mismatch")
)

// CheckpointError wraps errors from checkpoint operations.
type CheckpointError struct {
	StageID string
	// Op is the operation that failed ("serialize", "marshal", "save").
	Op  string
	Err error
}

// Error implements the error interface.
func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s at stage %s: %v", e.Op, e.StageID, e.Err)
}

// Unwrap returns the underlying error.
func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// StageError wraps an error with the stage that raised it.
type StageError struct {
	StageID string
	// Op is the operation that failed ("execute", "lookup", "routing").
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %s: %v", e.StageID, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StageError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised inside a stage.
type PanicError struct {
	StageID string
	Value   any
	Stack   string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.StageID, e.Value)
}

// CancellationError captures the state when execution was cancelled.
type CancellationError struct {
	// StageID is the stage that was about to execute or was executing.
	StageID string
	// State is the state at cancellation.
	State any
	// Cause is context.Canceled or context.DeadlineExceeded.
	Cause error
	// WasExecuting is true if the stage itself observed the cancellation.
	WasExecuting bool
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	if e.WasExecuting {
		return fmt.Sprintf("cancelled during stage %s: %v", e.StageID, e.Cause)
	}
	return fmt.Sprintf("cancelled before stage %s: %v", e.StageID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// RouterError reports a router that returned something unusable.
type RouterError struct {
	FromStage string
	Returned  string
	Err       error
}

// Error implements the error interface.
func (e *RouterError) Error() string {
	return fmt.Sprintf("router from %s returned %q: %v", e.FromStage, e.Returned, e.Err)
}

// Unwrap returns the underlying error.
func (e *RouterError) Unwrap() error {
	return e.Err
}

// MaxIterationsError reports a run that exceeded the stage limit.
type MaxIterationsError struct {
	Max         int
	LastStageID string
	State       any
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at stage %s", e.Max, e.LastStageID)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}

// lastStage extracts the failing stage id from a run error.
func lastStage(err error) string {
	var stageErr *StageError
	var panicErr *PanicError
	var cancelErr *CancellationError
	var maxErr *MaxIterationsError
	var cpErr *CheckpointError
	var routerErr *RouterError

	switch {
	case errors.As(err, &stageErr):
		return stageErr.StageID
	case errors.As(err, &panicErr):
		return panicErr.StageID
	case errors.As(err, &cancelErr):
		return cancelErr.StageID
	case errors.As(err, &maxErr):
		return maxErr.LastStageID
	case errors.As(err, &cpErr):
		return cpErr.StageID
	case errors.As(err, &routerErr):
		return routerErr.FromStage
	default:
		return ""
	}
}
