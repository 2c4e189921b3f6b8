package workflow

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/fault"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
)

// Predicate selecting sampled points that fell on the lowland-free DEM.
const aboveLowlands = `"RASTERVALU" > 0`

// faults derives pour points from fault/stream intersections above the
// minimum height and correlates each with its nearest fault route.
func (p *Pipeline) faults(ctx hydroflow.Context, s State) (State, error) {
	cfg := p.cfg
	out := p.outputs(s.Batch)

	m, err := manifest.Load(s.HydroManifest)
	if err != nil {
		return s, err
	}
	streams, err := m.Path(manifest.KeyVectorStreams)
	if err != nil {
		return s, err
	}

	attrs, err := p.terrain.Attributes(ctx, cfg.FaultPath, out("_fault_attributes.csv"))
	if err != nil {
		return s, fmt.Errorf("fault attributes: %w", err)
	}
	meta, err := fault.ExtractMetadata(attrs)
	if err != nil {
		return s, err
	}
	metaPath := out("_fault_meta.yml")
	if err := fault.SaveMetadata(metaPath, meta); err != nil {
		return s, err
	}

	multipart, err := step(ctx, "intersect faults and streams", func() (string, error) {
		return p.terrain.Intersect(ctx, cfg.FaultPath, streams, cfg.Faults.ClusterTolerance, out("_intersects_multipart.shp"))
	})
	if err != nil {
		return s, err
	}
	single, err := step(ctx, "multipart to singlepart", func() (string, error) {
		return p.terrain.MultipartToSinglepart(ctx, multipart, out("_intersects_singlepart.shp"))
	})
	if err != nil {
		return s, err
	}
	highlands, err := step(ctx, "remove lowlands", func() (string, error) {
		predicate := "VALUE > " + strconv.FormatFloat(cfg.PourPoints.MinimumHeight, 'g', -1, 64)
		return p.terrain.ExtractByAttribute(ctx, cfg.OriginalDEM, predicate, out("_dem_no_lowlands.tif"))
	})
	if err != nil {
		return s, err
	}
	sampled, err := step(ctx, "sample intersect heights", func() (string, error) {
		return p.terrain.SampleRasterAtPoints(ctx, single, highlands, out("_intersects_all.shp"))
	})
	if err != nil {
		return s, err
	}
	above, err := step(ctx, "select intersects above minimum height", func() (string, error) {
		return p.terrain.Select(ctx, sampled, aboveLowlands, out("_intersects_above.shp"))
	})
	if err != nil {
		return s, err
	}
	routes, err := step(ctx, "create fault routes", func() (string, error) {
		return p.terrain.CreateRoutes(ctx, cfg.FaultPath, fault.RouteIDField, out("_fault_routes.shp"))
	})
	if err != nil {
		return s, err
	}

	ctx.Logger().Info("terrain step", slog.String("step", "locate pour points along faults"))
	events, err := p.terrain.LocateAlongRoutes(ctx, above, routes, fault.RouteIDField, cfg.Faults.SearchRadius, out("_intersect_events.csv"))
	if err != nil {
		return s, fmt.Errorf("locate pour points along faults: %w", err)
	}
	corrs, err := fault.Correlate(events, cfg.Faults.SearchRadius)
	if err != nil {
		return s, err
	}
	dataPath := out("_intersect_data.csv")
	if err := fault.WriteFile(dataPath, corrs); err != nil {
		return s, err
	}

	m.Set(manifest.KeyFaultData, dataPath)
	m.Set(manifest.KeyFaultMetaData, metaPath)
	m.Set(manifest.KeyFaultPourPoints, above)
	if err := flush(m, manifest.KeyFaultData, manifest.KeyFaultMetaData, manifest.KeyFaultPourPoints); err != nil {
		return s, err
	}

	ctx.Logger().Info("fault correlation saved",
		slog.Int("faults", len(meta)),
		slog.Int("correlated_points", len(corrs)),
		slog.String("path", dataPath))

	s.PourPoints = above
	return s.done(StageFault), nil
}
