package workflow

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/batch"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/checkpoint"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/climate"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/config"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/observability"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/prompt"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
)

// PipelineName labels runs in traces and metrics.
const PipelineName = "bqart-workflow"

// ErrNoCheckpointStore is returned by Resume on a pipeline built without a
// checkpoint store.
var ErrNoCheckpointStore = stderrors.New("workflow: no checkpoint store configured")

// Pipeline runs the sediment-yield workflow for one project configuration.
type Pipeline struct {
	cfg     *config.Config
	terrain terrain.Service
	cache   *climate.Cache
	graph   *hydroflow.CompiledGraph[State]

	prompt  prompt.Prompt
	record  manifest.RunRecord
	store   checkpoint.Store
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	tracing bool
	clock   batch.Clock
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPrompt sets the operator prompt. The default fails every question.
func WithPrompt(p prompt.Prompt) Option {
	return func(pl *Pipeline) {
		if p != nil {
			pl.prompt = p
		}
	}
}

// WithRunRecord replaces the last-run record at <root>/last_run.yml.
func WithRunRecord(r manifest.RunRecord) Option {
	return func(pl *Pipeline) {
		if r != nil {
			pl.record = r
		}
	}
}

// WithCheckpointStore enables stage checkpoints and Resume.
func WithCheckpointStore(s checkpoint.Store) Option {
	return func(pl *Pipeline) { pl.store = s }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(pl *Pipeline) {
		if l != nil {
			pl.logger = l
		}
	}
}

// WithMetrics sets the metrics recorder shared by the engine and the
// climate cache.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(pl *Pipeline) {
		if m != nil {
			pl.metrics = m
		}
	}
}

// WithTracing enables run and stage spans.
func WithTracing(enabled bool) Option {
	return func(pl *Pipeline) { pl.tracing = enabled }
}

// WithClock sets the clock used for batch tokens.
func WithClock(c batch.Clock) Option {
	return func(pl *Pipeline) {
		if c != nil {
			pl.clock = c
		}
	}
}

// New builds a pipeline for cfg that sends terrain work to svc.
func New(cfg *config.Config, svc terrain.Service, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, stderrors.New("workflow: nil config")
	}
	if svc == nil {
		return nil, stderrors.New("workflow: nil terrain service")
	}

	p := &Pipeline{
		cfg:     cfg,
		terrain: svc,
		prompt:  prompt.NonInteractive{},
		record:  manifest.NewLastRun(cfg.Root),
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.cache = climate.New(svc,
		climate.WithLogger(p.logger),
		climate.WithMetrics(p.metrics),
		climate.WithInvalidateOnSourceChange(cfg.ClimateCache.InvalidateOnSourceChange))

	graph, err := p.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("workflow: build graph: %w", err)
	}
	p.graph = graph
	return p, nil
}

func (p *Pipeline) buildGraph() (*hydroflow.CompiledGraph[State], error) {
	return hydroflow.NewGraph[State]().
		AddStage(StageHydrology, p.hydrology).
		AddStage(StageFault, p.faults).
		AddStage(StageWatershed, p.watershed).
		AddStage(StageBQART, p.bqart).
		AddConditionalEdge(StageHydrology, routePourPoints).
		AddEdge(StageFault, StageWatershed).
		AddEdge(StageWatershed, StageBQART).
		AddEdge(StageBQART, hydroflow.END).
		SetEntry(StageHydrology).
		Compile()
}

// routePourPoints sends the run through the fault stage when pour points
// have to be derived from faults.
func routePourPoints(_ hydroflow.Context, s State) string {
	if s.RunFaults {
		return StageFault
	}
	return StageWatershed
}

// Start resolves req and runs the pipeline from the stage its mode implies.
// The returned state describes everything the run produced.
func (p *Pipeline) Start(ctx context.Context, req Request) (State, error) {
	if err := req.validate(); err != nil {
		return State{}, err
	}

	runID, err := p.newRunID(ctx)
	if err != nil {
		return State{}, err
	}
	state, start, err := p.resolve(req)
	if err != nil {
		return state, err
	}

	unlock, err := batch.Lock(state.Batch)
	if err != nil {
		return state, err
	}
	defer unlock.Unlock()

	p.logger.Info("starting pipeline",
		slog.String("run_id", runID),
		slog.String("mode", string(req.Mode)),
		slog.String("start_stage", start),
		slog.String("batch", state.Batch))

	return p.graph.RunFrom(p.newContext(ctx, runID), state, start, p.runOptions(runID)...)
}

// newRunID returns the batch token of the current time, suffixed with _2,
// _3, ... while the checkpoint store already holds a run of that id.
func (p *Pipeline) newRunID(ctx context.Context) (string, error) {
	token := batch.Token(p.clock())
	if p.store == nil {
		return token, nil
	}
	id := token
	for n := 2; ; n++ {
		infos, err := p.store.List(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check run id %s: %w", id, err)
		}
		if len(infos) == 0 {
			return id, nil
		}
		id = fmt.Sprintf("%s_%d", token, n)
	}
}

// Resume continues run runID after its latest checkpoint.
func (p *Pipeline) Resume(ctx context.Context, runID string) (State, error) {
	if p.store == nil {
		return State{}, ErrNoCheckpointStore
	}

	cp, err := checkpoint.Latest(ctx, p.store, runID)
	if err != nil {
		if stderrors.Is(err, checkpoint.ErrNotFound) {
			return State{}, fmt.Errorf("%w: %s", hydroflow.ErrNoCheckpoints, runID)
		}
		return State{}, err
	}
	var last State
	if err := json.Unmarshal(cp.State, &last); err != nil {
		return State{}, fmt.Errorf("%w: %v", hydroflow.ErrDeserializeState, err)
	}

	unlock, err := batch.Lock(last.Batch)
	if err != nil {
		return last, err
	}
	defer unlock.Unlock()

	p.logger.Info("resuming pipeline",
		slog.String("run_id", runID),
		slog.String("after_stage", cp.StageID),
		slog.String("next_stage", cp.NextStage))

	return p.graph.Resume(p.newContext(ctx, runID), p.store, runID,
		hydroflow.WithRunOptions(p.runOptions(runID)...))
}

// Runs lists the latest checkpoint of every recorded run, newest first.
func (p *Pipeline) Runs(ctx context.Context) ([]checkpoint.Info, error) {
	if p.store == nil {
		return nil, ErrNoCheckpointStore
	}
	return p.store.Runs(ctx)
}

func (p *Pipeline) newContext(ctx context.Context, runID string) hydroflow.Context {
	opts := []hydroflow.ContextOption{
		hydroflow.WithLogger(p.logger),
		hydroflow.WithContextRunID(runID),
	}
	if p.store != nil {
		opts = append(opts, hydroflow.WithCheckpointer(p.store))
	}
	return hydroflow.NewContext(ctx, opts...)
}

func (p *Pipeline) runOptions(runID string) []hydroflow.RunOption {
	opts := []hydroflow.RunOption{
		hydroflow.WithRunID(runID),
		hydroflow.WithPipelineName(PipelineName),
		hydroflow.WithObservabilityLogger(p.logger),
		hydroflow.WithMetricsRecorder(p.metrics),
		hydroflow.WithTracing(p.tracing),
	}
	if p.store != nil {
		opts = append(opts, hydroflow.WithCheckpointing(p.store))
	}
	return opts
}
