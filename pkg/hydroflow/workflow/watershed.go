package workflow

import (
	"log/slog"
	"path/filepath"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/batch"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
)

// Fields carrying the zone id from pour points to watersheds.
const (
	pourPointIDField = "FID"
	watershedField   = "VALUE"
)

// watershed delineates one zone per pour point in a new watershed
// sub-batch.
func (p *Pipeline) watershed(ctx hydroflow.Context, s State) (State, error) {
	if s.PourPoints == "" {
		return s, &errors.ConfigError{Key: "pour_points_path", Message: "no pour points resolved for the watershed stage"}
	}

	hm, err := manifest.Load(s.HydroManifest)
	if err != nil {
		return s, err
	}
	flowAcc, err := hm.Path(manifest.KeyFlowAccPath)
	if err != nil {
		return s, err
	}
	flowDir, err := hm.Path(manifest.KeyFlowPath)
	if err != nil {
		return s, err
	}

	dir, err := batch.Create(filepath.Join(s.Batch, WatershedCalcsDir), p.clock)
	if err != nil {
		return s, err
	}
	if _, err := batch.CopyOriginal(s.PourPoints, filepath.Join(dir, OriginalsDir)); err != nil {
		return s, err
	}
	working, err := batch.CopyOriginal(s.PourPoints, dir)
	if err != nil {
		return s, err
	}

	out := p.outputs(dir)
	snapped, err := step(ctx, "snap pour points", func() (string, error) {
		return p.terrain.SnapPourPoints(ctx, working, flowAcc, p.cfg.PourPoints.SnapDistance, pourPointIDField, out("_snap_ppoints.tif"))
	})
	if err != nil {
		return s, err
	}
	sheds, err := step(ctx, "delineate watersheds", func() (string, error) {
		return p.terrain.DelineateWatersheds(ctx, flowDir, snapped, watershedField, out("_watersheds.tif"))
	})
	if err != nil {
		return s, err
	}

	m := manifest.New(filepath.Join(dir, manifest.WatershedFile))
	m.Set(manifest.KeyPourPoints, snapped)
	m.Set(manifest.KeyWatersheds, sheds)
	if err := flush(m, manifest.WatershedKeys...); err != nil {
		return s, err
	}

	s.WatershedBatch = absDir(m.File())
	s.WatershedManifest = m.File()
	if err := p.record.Set(manifest.KeyWatershedBatch, s.WatershedBatch); err != nil {
		return s, err
	}
	ctx.Logger().Info("watershed manifest saved", slog.String("manifest", m.File()))
	return s.done(StageWatershed), nil
}
