package workflow

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
)

// hydrology derives the stream network of the project DEM.
func (p *Pipeline) hydrology(ctx hydroflow.Context, s State) (State, error) {
	cfg := p.cfg
	out := p.outputs(s.Batch)

	filled, err := step(ctx, "fill", func() (string, error) {
		return p.terrain.Fill(ctx, cfg.OriginalDEM, out("_fill.tif"))
	})
	if err != nil {
		return s, err
	}
	flowDir, err := step(ctx, "flow direction", func() (string, error) {
		return p.terrain.FlowDirection(ctx, filled, cfg.FlowDir.ForceFlow, out("_f_dir.tif"))
	})
	if err != nil {
		return s, err
	}
	flowAcc, err := step(ctx, "flow accumulation", func() (string, error) {
		acc := terrain.Accumulation{WeightRaster: cfg.FlowAcc.FlowWeightRaster, DataType: cfg.FlowAcc.FlowDataType}
		return p.terrain.FlowAccumulation(ctx, flowDir, acc, out("_f_acc.tif"))
	})
	if err != nil {
		return s, err
	}
	network, err := step(ctx, "stream network", func() (string, error) {
		return p.terrain.Conditional(ctx, flowAcc, flowAcc, cfg.StrNet.FalseConstant, cfg.StrNet.Conditional, out("_net.tif"))
	})
	if err != nil {
		return s, err
	}
	nulled, err := step(ctx, "nullify", func() (string, error) {
		return p.terrain.SetNull(ctx, network, cfg.SetNull.FalseRaster, cfg.SetNull.Conditional, out("_net_null.tif"))
	})
	if err != nil {
		return s, err
	}
	order, err := step(ctx, "stream order", func() (string, error) {
		return p.terrain.StreamOrder(ctx, nulled, flowDir, cfg.StrOrd.Method, out("_s_order.tif"))
	})
	if err != nil {
		return s, err
	}
	streams, err := step(ctx, "vectorize streams", func() (string, error) {
		return p.terrain.VectorizeStreams(ctx, order, flowDir, out("_streams.shp"))
	})
	if err != nil {
		return s, err
	}

	m, err := manifest.Open(filepath.Join(s.Batch, manifest.HydroFile))
	if err != nil {
		return s, err
	}
	m.Set(manifest.KeyFillPath, filled)
	m.Set(manifest.KeyFlowPath, flowDir)
	m.Set(manifest.KeyFlowAccPath, flowAcc)
	m.Set(manifest.KeyStreamNetPath, network)
	m.Set(manifest.KeyNullPath, nulled)
	m.Set(manifest.KeyStreamOrder, order)
	m.Set(manifest.KeyVectorStreams, streams)
	m.SetFloat(manifest.KeyUpliftRate, cfg.UpliftMMYr)
	if err := flush(m, manifest.HydroKeys...); err != nil {
		return s, err
	}

	s.Batch = absDir(m.File())
	s.HydroManifest = m.File()
	if err := p.record.Set(manifest.KeyHydroBatch, s.Batch); err != nil {
		return s, err
	}
	ctx.Logger().Info("hydrology manifest saved", slog.String("manifest", m.File()))
	return s.done(StageHydrology), nil
}

// outputs returns a function naming project files inside dir.
func (p *Pipeline) outputs(dir string) func(suffix string) string {
	return func(suffix string) string {
		return filepath.Join(dir, p.cfg.ProjectName+suffix)
	}
}

// step runs one terrain operation with progress logging.
func step(ctx hydroflow.Context, name string, fn func() (string, error)) (string, error) {
	ctx.Logger().Info("terrain step", slog.String("step", name))
	path, err := fn()
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	return path, nil
}

// flush saves m durably and then checks the saved file holds every key.
func flush(m *manifest.Manifest, required ...string) error {
	if err := m.Save(); err != nil {
		return err
	}
	saved, err := manifest.Load(m.File())
	if err != nil {
		return err
	}
	return saved.Require(required...)
}
