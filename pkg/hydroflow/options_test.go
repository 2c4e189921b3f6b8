package hydroflow

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/checkpoint"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/observability"
)

func TestDefaultRunConfig(t *testing.T) {
	cfg := defaultRunConfig()
	assert.Equal(t, 100, cfg.maxIterations)
	assert.True(t, cfg.checkpointFailureFatal)
	assert.Equal(t, "hydroflow", cfg.pipeline)
	assert.Nil(t, cfg.checkpointStore)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
	assert.IsType(t, observability.NoopSpanManager{}, cfg.spans)
}

func TestRunOptions(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	logger := slog.Default()

	cfg := defaultRunConfig()
	for _, opt := range []RunOption{
		WithMaxIterations(5),
		WithCheckpointing(store),
		WithRunID("2023_1_2_9_5_7"),
		WithCheckpointFailureFatal(false),
		WithPipelineName("bqart"),
		WithObservabilityLogger(logger),
		WithTracing(true),
	} {
		opt(&cfg)
	}

	assert.Equal(t, 5, cfg.maxIterations)
	assert.Same(t, store, cfg.checkpointStore)
	assert.Equal(t, "2023_1_2_9_5_7", cfg.runID)
	assert.False(t, cfg.checkpointFailureFatal)
	assert.Equal(t, "bqart", cfg.pipeline)
	assert.Same(t, logger, cfg.logger)
	assert.True(t, cfg.tracingEnabled)
	assert.NotNil(t, cfg.spans)
}

func TestRunOptions_IgnoreInvalid(t *testing.T) {
	cfg := defaultRunConfig()
	WithMaxIterations(0)(&cfg)
	WithPipelineName("")(&cfg)
	WithMetricsRecorder(nil)(&cfg)

	assert.Equal(t, 100, cfg.maxIterations)
	assert.Equal(t, "hydroflow", cfg.pipeline)
	assert.IsType(t, observability.NoopMetrics{}, cfg.metrics)
}

func TestResumeOptions(t *testing.T) {
	cfg := resumeConfig{}
	WithReplayStage()(&cfg)
	WithStateOverride(func(s any) any { return s })(&cfg)
	WithStateValidation(func(any) error { return nil })(&cfg)
	WithRunOptions(WithMaxIterations(3), WithPipelineName("x"))(&cfg)

	assert.True(t, cfg.replayStage)
	assert.NotNil(t, cfg.stateOverride)
	assert.NotNil(t, cfg.validateState)
	assert.Len(t, cfg.runOpts, 2)
}
