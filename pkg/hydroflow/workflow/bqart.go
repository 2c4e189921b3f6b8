package workflow

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/batch"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/bqart"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/climate"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/fault"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/zonestats"
)

// Files written to the climate sub-batch.
const (
	TempDataFile   = "temp_data.csv"
	PrecipDataFile = "precip_data.csv"
	ElevDataFile   = "elev_data.csv"
	QsDataFile     = "qs_data.csv"
)

// BQARTKeys are the keys every completed BQART stage leaves behind.
var BQARTKeys = []string{
	manifest.KeyScenario, manifest.KeyTempClip, manifest.KeyPrecipClip,
	manifest.KeyTempData, manifest.KeyPrecipData, manifest.KeyElevData, manifest.KeyQsData,
}

// bqart computes the sediment yield of every watershed for the run's
// climate scenario.
func (p *Pipeline) bqart(ctx hydroflow.Context, s State) (State, error) {
	scenario, ok := p.cfg.Scenario(s.Scenario)
	if !ok {
		return s, &errors.ConfigError{Key: "climates", Message: fmt.Sprintf("unknown climate scenario %q", s.Scenario)}
	}

	hm, err := manifest.Load(s.HydroManifest)
	if err != nil {
		return s, err
	}
	uplift, err := hm.Float(manifest.KeyUpliftRate)
	if err != nil {
		return s, err
	}
	wm, err := manifest.Load(s.WatershedManifest)
	if err != nil {
		return s, err
	}
	sheds, err := wm.Path(manifest.KeyWatersheds)
	if err != nil {
		return s, err
	}

	dir, err := batch.Create(filepath.Join(s.WatershedBatch, ClimateCalcsDir), p.clock)
	if err != nil {
		return s, err
	}

	tempClip, err := p.cache.Build(ctx, s.WatershedBatch, scenario.Name, climate.Temperature, scenario.TempDirectory, sheds)
	if err != nil {
		return s, fmt.Errorf("temperature cache: %w", err)
	}
	precipClip, err := p.cache.Build(ctx, s.WatershedBatch, scenario.Name, climate.Precipitation, scenario.PrecipDirectory, sheds)
	if err != nil {
		return s, fmt.Errorf("precipitation cache: %w", err)
	}

	tables, err := p.zoneTables(ctx, sheds, dir, tempClip, precipClip)
	if err != nil {
		return s, err
	}
	zones, diag, err := zonestats.Join(tables, p.cfg.BQART.StrictJoin)
	if err != nil {
		return s, err
	}
	if !diag.Empty() {
		ctx.Logger().Warn("zones left out of the statistics join",
			slog.Int("count", len(diag.Gaps)),
			slog.String("zones", diag.String()))
	}

	src, err := tectonicSource(hm, uplift)
	if err != nil {
		return s, err
	}
	records, err := bqart.Run(ctx, zones, src, p.cfg.BQART.Workers)
	if err != nil {
		return s, err
	}
	qsPath := filepath.Join(dir, QsDataFile)
	if err := bqart.WriteFile(qsPath, records); err != nil {
		return s, err
	}

	m := manifest.New(filepath.Join(dir, manifest.BQARTFile))
	m.Set(manifest.KeyScenario, scenario.Name)
	m.Set(manifest.KeyTempClip, tempClip)
	m.Set(manifest.KeyPrecipClip, precipClip)
	m.Set(manifest.KeyTempData, filepath.Join(dir, TempDataFile))
	m.Set(manifest.KeyPrecipData, filepath.Join(dir, PrecipDataFile))
	m.Set(manifest.KeyElevData, filepath.Join(dir, ElevDataFile))
	m.Set(manifest.KeyQsData, qsPath)
	if err := flush(m, BQARTKeys...); err != nil {
		return s, err
	}

	ctx.Logger().Info("sediment yield saved",
		slog.String("path", qsPath),
		slog.Int("zones", len(records)))

	s.ClimateBatch = dir
	s.BQARTManifest = m.File()
	s.Output = qsPath
	s.Zones = len(records)
	s.Dropped = diag.Dropped()
	return s.done(StageBQART), nil
}

// zoneTables runs zonal statistics of temperature, precipitation and
// elevation over the watersheds.
func (p *Pipeline) zoneTables(ctx hydroflow.Context, sheds, dir, tempClip, precipClip string) (zonestats.Tables, error) {
	var t zonestats.Tables
	stats := []struct {
		name   string
		values string
		file   string
		dst    **terrain.Table
	}{
		{zonestats.Temperature, tempClip, TempDataFile, &t.Temperature},
		{zonestats.Precipitation, precipClip, PrecipDataFile, &t.Precipitation},
		{zonestats.Elevation, p.cfg.OriginalDEM, ElevDataFile, &t.Elevation},
	}
	for _, st := range stats {
		ctx.Logger().Info("zonal statistics", slog.String("table", st.name))
		table, err := p.terrain.ZonalStatistics(ctx, sheds, st.values, filepath.Join(dir, st.file))
		if err != nil {
			return t, fmt.Errorf("%s zonal statistics: %w", st.name, err)
		}
		*st.dst = table
	}
	return t, nil
}

// tectonicSource uses the batch's fault correlation when the fault stage
// produced one and the uniform uplift rate otherwise.
func tectonicSource(hm *manifest.Manifest, uplift float64) (bqart.Source, error) {
	dataPath, _ := hm.Get(manifest.KeyFaultData)
	if dataPath == "" || !exists(dataPath) {
		return bqart.Uniform(uplift), nil
	}
	metaPath, err := hm.Path(manifest.KeyFaultMetaData)
	if err != nil {
		return nil, err
	}

	corrs, err := fault.ReadFile(dataPath)
	if err != nil {
		return nil, err
	}
	meta, err := fault.LoadMetadata(metaPath)
	if err != nil {
		return nil, err
	}
	return bqart.Faults{Table: fault.NewTable(corrs), Metadata: meta, Uplift: uplift}, nil
}
