package hydroflow_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/checkpoint"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/observability"
)

type capturedRecord struct {
	level slog.Level
	msg   string
	attrs map[string]any
}

type testLogHandler struct {
	mu      *sync.Mutex
	records *[]capturedRecord
	attrs   []slog.Attr
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{mu: &sync.Mutex{}, records: &[]capturedRecord{}}
}

func (h *testLogHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	rec := capturedRecord{level: r.Level, msg: r.Message, attrs: map[string]any{}}
	for _, a := range h.attrs {
		rec.attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	*h.records = append(*h.records, rec)
	h.mu.Unlock()
	return nil
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &testLogHandler{mu: h.mu, records: h.records, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...)}
}

func (h *testLogHandler) WithGroup(string) slog.Handler { return h }

func (h *testLogHandler) messages() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, r := range *h.records {
		out = append(out, r.msg)
	}
	return out
}

func (h *testLogHandler) find(msg string) (capturedRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range *h.records {
		if r.msg == msg {
			return r, true
		}
	}
	return capturedRecord{}, false
}

type recordingMetrics struct {
	observability.NoopMetrics
	mu          sync.Mutex
	stages      []string
	stageErrs   int
	runs        []bool
	checkpoints []string
}

func (m *recordingMetrics) RecordStageExecution(_ context.Context, stageID string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stageID)
	if err != nil {
		m.stageErrs++
	}
}

func (m *recordingMetrics) RecordPipelineRun(_ context.Context, success bool, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, success)
}

func (m *recordingMetrics) RecordCheckpoint(_ context.Context, stageID string, _ int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkpoints = append(m.checkpoints, stageID)
}

func TestObservability_LogsRunLifecycle(t *testing.T) {
	handler := newTestLogHandler()
	p := &pipeline{}

	_, err := p.compile(t).Run(newCtx(), runState{},
		hydroflow.WithObservabilityLogger(slog.New(handler)),
		hydroflow.WithRunID(runID))
	require.NoError(t, err)

	msgs := handler.messages()
	assert.Equal(t, "pipeline run starting", msgs[0])
	assert.Equal(t, "pipeline run completed", msgs[len(msgs)-1])
	assert.Contains(t, msgs, "stage starting")
	assert.Contains(t, msgs, "stage completed")

	start, ok := handler.find("pipeline run starting")
	require.True(t, ok)
	assert.Equal(t, runID, start.attrs["run_id"])
	assert.Equal(t, "hydrology", start.attrs["start_stage"])

	done, ok := handler.find("pipeline run completed")
	require.True(t, ok)
	assert.EqualValues(t, 3, done.attrs["stages_executed"])
}

func TestObservability_LogsFailure(t *testing.T) {
	handler := newTestLogHandler()
	p := &pipeline{failAt: "watershed"}

	_, err := p.compile(t).Run(newCtx(), runState{},
		hydroflow.WithObservabilityLogger(slog.New(handler)))
	require.Error(t, err)

	stageFailed, ok := handler.find("stage failed")
	require.True(t, ok)
	assert.Equal(t, slog.LevelError, stageFailed.level)
	assert.Equal(t, "watershed", stageFailed.attrs["stage_id"])

	runFailed, ok := handler.find("pipeline run failed")
	require.True(t, ok)
	assert.Equal(t, "watershed", runFailed.attrs["last_stage"])
}

func TestObservability_NoLoggerIsSilent(t *testing.T) {
	p := &pipeline{}
	_, err := p.compile(t).Run(newCtx(), runState{}, hydroflow.WithObservabilityLogger(nil))
	assert.NoError(t, err)
}

func TestObservability_MetricsRecorder(t *testing.T) {
	m := &recordingMetrics{}
	p := &pipeline{failAt: "bqart"}

	_, err := p.compile(t).Run(newCtx(), runState{},
		hydroflow.WithMetricsRecorder(m),
		hydroflow.WithCheckpointing(checkpoint.NewMemoryStore()),
		hydroflow.WithRunID(runID))
	require.Error(t, err)

	assert.Equal(t, []string{"hydrology", "watershed", "bqart"}, m.stages)
	assert.Equal(t, 1, m.stageErrs)
	assert.Equal(t, []bool{false}, m.runs)
	assert.Equal(t, []string{"hydrology", "watershed"}, m.checkpoints)
}

func TestObservability_OTelMetricsSmoke(t *testing.T) {
	p := &pipeline{}
	_, err := p.compile(t).Run(newCtx(), runState{}, hydroflow.WithMetrics(true))
	assert.NoError(t, err)
}

func TestObservability_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	p := &pipeline{failAt: "bqart"}
	_, err := p.compile(t).Run(newCtx(), runState{},
		hydroflow.WithTracing(true),
		hydroflow.WithPipelineName("bqart-workflow"),
		hydroflow.WithRunID(runID))
	require.Error(t, err)

	names := map[string]bool{}
	var failed int
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
		for _, ev := range span.Events() {
			if ev.Name == "exception" {
				failed++
			}
		}
	}
	assert.True(t, names["hydroflow.run"])
	assert.True(t, names["hydroflow.stage.hydrology"])
	assert.True(t, names["hydroflow.stage.bqart"])
	assert.Equal(t, 2, failed, "the failing stage and the run both record the error")
}

func TestObservability_EnrichedStageLogger(t *testing.T) {
	handler := newTestLogHandler()
	compiled, err := hydroflow.NewGraph[runState]().
		AddStage("hydrology", func(ctx hydroflow.Context, s runState) (runState, error) {
			ctx.Logger().Info("filling sinks")
			return s, nil
		}).
		AddEdge("hydrology", hydroflow.END).
		SetEntry("hydrology").
		Compile()
	require.NoError(t, err)

	ctx := hydroflow.NewContext(context.Background(),
		hydroflow.WithLogger(slog.New(handler)),
		hydroflow.WithContextRunID(runID))
	_, err = compiled.Run(ctx, runState{})
	require.NoError(t, err)

	rec, ok := handler.find("filling sinks")
	require.True(t, ok)
	assert.Equal(t, runID, rec.attrs["run_id"])
	assert.Equal(t, "hydrology", rec.attrs["stage_id"])
	assert.EqualValues(t, 1, rec.attrs["attempt"])
}
