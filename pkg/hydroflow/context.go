package hydroflow

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/checkpoint"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/observability"
)

// Context is the execution context handed to stages.
// It extends context.Context with the run's logger and metadata.
//
// Context is immutable. The executor derives a context per stage with the
// stage id set and the logger enriched.
type Context interface {
	context.Context

	// Logger returns the logger, enriched with run and stage fields.
	// Never returns nil.
	Logger() *slog.Logger

	// Checkpointer returns the checkpoint store, or nil if not configured.
	Checkpointer() checkpoint.Store

	// RunID identifies the run. Pipelines use the batch token.
	RunID() string

	// StageID returns the stage being executed.
	// Empty before execution starts.
	StageID() string

	// Attempt returns the attempt number (1 = first attempt, incremented
	// each time the run is resumed).
	Attempt() int
}

type executionContext struct {
	context.Context

	logger       *slog.Logger
	checkpointer checkpoint.Store
	runID        string
	stageID      string
	attempt      int
}

func (c *executionContext) Logger() *slog.Logger          { return c.logger }
func (c *executionContext) Checkpointer() checkpoint.Store { return c.checkpointer }
func (c *executionContext) RunID() string                  { return c.runID }
func (c *executionContext) StageID() string                { return c.stageID }
func (c *executionContext) Attempt() int                   { return c.attempt }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger. It is enriched with run_id, stage_id and
// attempt during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCheckpointer sets the checkpoint store for the context.
func WithCheckpointer(store checkpoint.Store) ContextOption {
	return func(c *executionContext) {
		c.checkpointer = store
	}
}

// WithContextRunID sets the run identifier. A random UUID is used when
// none is set.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// WithAttempt sets the attempt number.
func WithAttempt(n int) ContextOption {
	return func(c *executionContext) {
		if n > 0 {
			c.attempt = n
		}
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := hydroflow.NewContext(context.Background(),
//	    hydroflow.WithLogger(logger),
//	    hydroflow.WithContextRunID(token))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
		attempt: 1,
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

func (c *executionContext) withStageID(stageID string) *executionContext {
	return &executionContext{
		Context:      c.Context,
		logger:       observability.EnrichLogger(c.logger, c.runID, stageID, c.attempt),
		checkpointer: c.checkpointer,
		runID:        c.runID,
		stageID:      stageID,
		attempt:      c.attempt,
	}
}

// withTracing swaps the embedded context so stage spans nest under the
// run span.
func (c *executionContext) withTracing(ctx context.Context) *executionContext {
	cp := *c
	cp.Context = ctx
	return &cp
}
