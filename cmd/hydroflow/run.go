package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/checkpoint"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/config"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/observability"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/workflow"
)

// modeCommand describes one run subcommand.
type modeCommand struct {
	use     string
	aliases []string
	short   string
	mode    workflow.Mode
}

var (
	modeFull = modeCommand{
		use:     "default",
		aliases: []string{"run"},
		short:   "Run every stage in a new batch",
		mode:    workflow.ModeFull,
	}
	modeWatershed = modeCommand{
		use:   "process_watersheds",
		short: "Delineate watersheds and compute sediment yield from an existing hydrology batch",
		mode:  workflow.ModeSkipToWatershed,
	}
	modeBQART = modeCommand{
		use:   "calculate_bqart",
		short: "Compute sediment yield from an existing watershed batch",
		mode:  workflow.ModeSkipToBQART,
	}
)

// runFlags are the request fields settable from the command line.
type runFlags struct {
	batch          string
	hydroManifest  string
	watershedBatch string
	pourPoints     string
	scenario       string
	lastRun        string
}

func newModeCmd(a *app, mc modeCommand) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:     mc.use,
		Aliases: mc.aliases,
		Short:   mc.short,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := f.request(mc.mode)
			if err != nil {
				return err
			}
			return a.start(cmd.Context(), req)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.batch, "batch", "b", "", "hydrology batch directory")
	flags.StringVar(&f.scenario, "scenario", "", "climate scenario name")
	if mc.mode != workflow.ModeSkipToBQART {
		flags.StringVar(&f.pourPoints, "pour-points", "", "pour point dataset, overriding the configuration")
	}
	if mc.mode != workflow.ModeFull {
		flags.StringVar(&f.hydroManifest, "hydro-manifest", "", "hydro_paths.yml to start from")
		flags.StringVar(&f.lastRun, "last-run", "ask", "reuse the last run's batches: ask, use or ignore")
	}
	if mc.mode == workflow.ModeSkipToBQART {
		flags.StringVar(&f.watershedBatch, "watershed-batch", "", "watershed batch directory")
	}
	return cmd
}

func (f runFlags) request(mode workflow.Mode) (workflow.Request, error) {
	req := workflow.Request{
		Mode:           mode,
		HydroBatch:     f.batch,
		HydroManifest:  f.hydroManifest,
		WatershedBatch: f.watershedBatch,
		PourPoints:     f.pourPoints,
		Scenario:       f.scenario,
	}
	switch strings.ToLower(f.lastRun) {
	case "ask", "":
		req.LastRun = workflow.LastRunAsk
	case "use":
		req.LastRun = workflow.LastRunUse
	case "ignore":
		req.LastRun = workflow.LastRunIgnore
	default:
		return req, fmt.Errorf("--last-run: want ask, use or ignore, got %q", f.lastRun)
	}
	return req, nil
}

func (a *app) start(ctx context.Context, req workflow.Request) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	p, closeStore, err := a.pipeline(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	state, err := p.Start(ctx, req)
	if err != nil {
		a.logFailure(err)
		return err
	}
	a.report(state)
	return nil
}

// pipeline wires the terrain tool, checkpoint database and observability
// into a workflow pipeline. The returned func closes the database.
func (a *app) pipeline(cfg *config.Config) (*workflow.Pipeline, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.CheckpointDB), 0o755); err != nil {
		return nil, nil, &errors.IOError{Op: "mkdir", Path: filepath.Dir(cfg.CheckpointDB), Err: err}
	}
	store, err := checkpoint.NewSQLiteStore(cfg.CheckpointDB)
	if err != nil {
		return nil, nil, err
	}

	runner := terrain.NewExec(cfg.Terrain.Command,
		terrain.WithArgs(cfg.Terrain.Args...),
		terrain.WithTimeout(cfg.Terrain.Timeout.Std()),
		terrain.WithEnv(terrain.Env{Projection: cfg.ProjectionCode, Scratch: cfg.Scratch}),
		terrain.WithLogger(a.logger))

	opts := []workflow.Option{
		workflow.WithPrompt(a.prompt()),
		workflow.WithCheckpointStore(store),
		workflow.WithLogger(a.logger),
	}
	if a.telemetry {
		opts = append(opts,
			workflow.WithMetrics(observability.NewMetricsRecorder()),
			workflow.WithTracing(true))
	}

	p, err := workflow.New(cfg, terrain.NewClient(runner), opts...)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return p, store.Close, nil
}

func (a *app) logFailure(err error) {
	a.logger.Error("workflow failed",
		slog.String("kind", string(errors.KindOf(err))),
		slog.String("category", errors.Categorize(err).String()),
		slog.String("error", err.Error()))
}

// report prints where the run left its results.
func (a *app) report(s workflow.State) {
	w := a.stdout
	fmt.Fprintf(w, "stages:    %s\n", strings.Join(s.Completed, " -> "))
	fmt.Fprintf(w, "batch:     %s\n", s.Batch)
	if s.WatershedBatch != "" {
		fmt.Fprintf(w, "watershed: %s\n", s.WatershedBatch)
	}
	if s.Output != "" {
		fmt.Fprintf(w, "scenario:  %s\n", s.Scenario)
		fmt.Fprintf(w, "output:    %s (%d zones)\n", s.Output, s.Zones)
	}
	if len(s.Dropped) > 0 {
		fmt.Fprintf(w, "dropped:   %v\n", s.Dropped)
	}
}
