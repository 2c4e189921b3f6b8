package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current checkpoint format version.
const Version = 1

// Checkpoint is the persisted snapshot taken after a stage completes.
// RunID is the batch token of the run, so a checkpoint can always be
// traced back to a directory on disk.
type Checkpoint struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	StageID   string    `json:"stage_id"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	State     json.RawMessage `json:"state"`
	NextStage string          `json:"next_stage"`

	Attempt     int    `json:"attempt"`
	PrevStageID string `json:"prev_stage_id,omitempty"`

	// Manifest is the manifest file the stage flushed before checkpointing.
	Manifest string `json:"manifest,omitempty"`
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// New creates a checkpoint. State must already be JSON-serialized.
func New(runID, stageID string, sequence int, state []byte, nextStage string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		RunID:     runID,
		StageID:   stageID,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
		NextStage: nextStage,
		Attempt:   1,
	}
}

// WithAttempt sets the attempt number.
func (c *Checkpoint) WithAttempt(attempt int) *Checkpoint {
	c.Attempt = attempt
	return c
}

// WithPrevStage sets the stage that ran before this one.
func (c *Checkpoint) WithPrevStage(stageID string) *Checkpoint {
	c.PrevStageID = stageID
	return c
}

// WithManifest records the manifest path the stage wrote.
func (c *Checkpoint) WithManifest(path string) *Checkpoint {
	c.Manifest = path
	return c
}

// Complete reports whether the run finished after this checkpoint.
func (c *Checkpoint) Complete() bool {
	return c.NextStage == "" || c.NextStage == "__end__"
}
