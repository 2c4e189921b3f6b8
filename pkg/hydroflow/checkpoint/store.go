// Package checkpoint persists per-stage snapshots of a pipeline run so an
// interrupted run can be resumed from the last completed stage.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Store persists checkpoints keyed by (runID, stageID).
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores a checkpoint for a run at a specific stage.
	// Overwrites if a checkpoint for (runID, stageID) already exists and
	// bumps its sequence so it becomes the latest.
	Save(ctx context.Context, runID, stageID string, data []byte) error

	// Load retrieves a checkpoint.
	// Returns ErrNotFound if the checkpoint doesn't exist.
	Load(ctx context.Context, runID, stageID string) ([]byte, error)

	// List returns all checkpoints for a run, ordered by sequence.
	// Returns an empty slice (not error) if the run has no checkpoints.
	List(ctx context.Context, runID string) ([]Info, error)

	// Runs returns the latest checkpoint of every known run, newest first.
	Runs(ctx context.Context) ([]Info, error)

	// Delete removes a specific checkpoint.
	Delete(ctx context.Context, runID, stageID string) error

	// DeleteRun removes all checkpoints for a run.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides metadata without loading full state.
type Info struct {
	RunID     string
	StageID   string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates a checkpoint doesn't exist.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)

// Latest returns the highest-sequence checkpoint of a run.
// Returns ErrNotFound if the run has none.
func Latest(ctx context.Context, store Store, runID string) (*Checkpoint, error) {
	infos, err := store.List(ctx, runID)
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, ErrNotFound
	}
	last := infos[len(infos)-1]
	data, err := store.Load(ctx, runID, last.StageID)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}
