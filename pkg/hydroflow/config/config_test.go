package config_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/config"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

const validYAML = `
root: /data/andes
project_name: andes
projection_code: 32719
original_dem: /data/andes/dem.tif
pour_points_path: /data/andes/pp.shp
fault_path: /data/andes/faults.shp
uplift_mm_yr: 0.5
flow_dir:
  force_flow: FORCE
str_net:
  conditional: "VALUE > 1000"
  false_constant: 0
set_null:
  false_raster: "1"
  conditional: "VALUE = 0"
faults:
  cluster_tolerance: 1
  search_radius: 250
pour_points:
  minimum_height: 500
  snap_distance: 60
climates:
  - name: worldclim
    temp_directory: /data/climate/wc/tmean
    precip_directory: /data/climate/wc/prec
  - name: hadcm3
    temp_directory: /data/climate/hadcm3/tmean
    precip_directory: /data/climate/hadcm3/prec
terrain:
  command: terrain-tool
  args: ["--quiet"]
  timeout: 45m
`

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "andes", cfg.ProjectName)
	assert.Equal(t, 32719, cfg.ProjectionCode)
	assert.Equal(t, 0.5, cfg.UpliftMMYr)
	assert.Equal(t, "FORCE", cfg.FlowDir.ForceFlow)
	assert.Equal(t, 250.0, cfg.Faults.SearchRadius)
	assert.Equal(t, 60.0, cfg.PourPoints.SnapDistance)
	assert.Equal(t, []string{"worldclim", "hadcm3"}, cfg.ScenarioNames())
	assert.Equal(t, 45*time.Minute, cfg.Terrain.Timeout.Std())
	assert.True(t, cfg.HasFaults())

	sc, ok := cfg.Scenario("hadcm3")
	require.True(t, ok)
	assert.Equal(t, "/data/climate/hadcm3/prec", sc.PrecipDirectory)

	_, ok = cfg.Scenario("missing")
	assert.False(t, ok)
}

func TestDefaults(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
root: /data/andes
project_name: andes
projection_code: 32719
original_dem: /data/andes/dem.tif
str_net: {conditional: "VALUE > 1000"}
set_null: {conditional: "VALUE = 0"}
terrain: {command: terrain-tool}
`))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/data/andes", "Output"), cfg.Output)
	assert.Equal(t, filepath.Join("/data/andes", "Output", "scratch"), cfg.Scratch)
	assert.Equal(t, filepath.Join("/data/andes", "Output", "hydroflow.db"), cfg.CheckpointDB)
	assert.Equal(t, config.DefaultForceFlow, cfg.FlowDir.ForceFlow)
	assert.Equal(t, config.DefaultStreamOrder, cfg.StrOrd.Method)
	assert.Equal(t, config.DefaultTerrainTimeout, cfg.Terrain.Timeout.Std())
	assert.Equal(t, runtime.GOMAXPROCS(0), cfg.BQART.Workers)
	assert.False(t, cfg.HasFaults())
}

func TestValidationErrors(t *testing.T) {
	base := func() *config.Config {
		cfg, err := config.FromYAML([]byte(validYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*config.Config)
		key    string
	}{
		{"missing root", func(c *config.Config) { c.Root = "" }, "root"},
		{"missing projection", func(c *config.Config) { c.ProjectionCode = 0 }, "projection_code"},
		{"negative projection", func(c *config.Config) { c.ProjectionCode = -4 }, "projection_code"},
		{"missing dem", func(c *config.Config) { c.OriginalDEM = "" }, "original_dem"},
		{"bad force flow", func(c *config.Config) { c.FlowDir.ForceFlow = "SIDEWAYS" }, "flow_dir.force_flow"},
		{"bad stream order", func(c *config.Config) { c.StrOrd.Method = "HORTON" }, "str_ord.method"},
		{"negative uplift", func(c *config.Config) { c.UpliftMMYr = -1 }, "uplift_mm_yr"},
		{"scenario with slash", func(c *config.Config) { c.Climates[0].Name = "a/b" }, "climates[0].name"},
		{"scenario without temp dir", func(c *config.Config) { c.Climates[1].TempDirectory = "" }, "climates[1].temp_directory"},
		{"duplicate scenario", func(c *config.Config) { c.Climates[1].Name = "worldclim" }, "climates[1].name"},
		{"faults without radius", func(c *config.Config) { c.Faults.SearchRadius = 0 }, "faults.search_radius"},
		{"missing terrain command", func(c *config.Config) { c.Terrain.Command = "" }, "terrain.command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cerr *errors.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.key, cerr.Key)
		})
	}
}

func TestFromYAML_UnknownKey(t *testing.T) {
	_, err := config.FromYAML([]byte(validYAML + "\nflow_direction: {}\n"))
	var cerr *errors.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Contains(t, cerr.Message, "flow_direction")
}

func TestFromYAML_Empty(t *testing.T) {
	_, err := config.FromYAML(nil)
	var cerr *errors.ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "empty file", cerr.Message)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "project.yml")
		require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

		cfg, err := config.FromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "andes", cfg.ProjectName)
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "project.json")
		require.NoError(t, os.WriteFile(path, []byte(`{
			"root": "/data/andes",
			"project_name": "andes",
			"projection_code": 32719,
			"original_dem": "/data/andes/dem.tif",
			"str_net": {"conditional": "VALUE > 1000"},
			"set_null": {"conditional": "VALUE = 0"},
			"terrain": {"command": "terrain-tool", "timeout": 90}
		}`), 0o644))

		cfg, err := config.FromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 90*time.Second, cfg.Terrain.Timeout.Std())
	})

	t.Run("missing file is an io error", func(t *testing.T) {
		_, err := config.FromFile(filepath.Join(dir, "nope.yml"))
		var ioErr *errors.IOError
		require.ErrorAs(t, err, &ioErr)
		assert.True(t, errors.IsRecoverable(err))
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "project.toml")
		require.NoError(t, os.WriteFile(path, []byte("root = 1"), 0o644))

		_, err := config.FromFile(path)
		var cerr *errors.ConfigError
		require.ErrorAs(t, err, &cerr)
	})
}

func TestDuration_Invalid(t *testing.T) {
	_, err := config.FromYAML([]byte(validYAML + "\n" + `bqart: {workers: 2}` + "\n"))
	require.NoError(t, err)

	_, err = config.FromYAML([]byte(`
root: /r
project_name: p
projection_code: 1
original_dem: /d
str_net: {conditional: "VALUE > 1"}
set_null: {conditional: "VALUE = 0"}
terrain: {command: t, timeout: soon}
`))
	var cerr *errors.ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestPathVariables(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
root: /data/andes
project_name: andes
projection_code: 32719
output: ${root}/runs
original_dem: ${root}/dem/${project_name}.tif
pour_points_path: ${output}/pp.shp
str_net: {conditional: "VALUE > 1000"}
set_null: {conditional: "VALUE = 0"}
climates:
  - {name: present, temp_directory: "${root}/climate/tmean", precip_directory: "${root}/climate/prec"}
terrain: {command: terrain-tool}
`))
	require.NoError(t, err)

	assert.Equal(t, "/data/andes/runs", cfg.Output)
	assert.Equal(t, "/data/andes/dem/andes.tif", cfg.OriginalDEM)
	assert.Equal(t, "/data/andes/runs/pp.shp", cfg.PourPointsPath)
	assert.Equal(t, "/data/andes/climate/tmean", cfg.Climates[0].TempDirectory)
	assert.Equal(t, filepath.Join("/data/andes/runs", "hydroflow.db"), cfg.CheckpointDB)
}

func TestPathVariables_Undefined(t *testing.T) {
	_, err := config.FromYAML([]byte(`
root: /data/andes
project_name: andes
projection_code: 32719
original_dem: ${home}/dem.tif
str_net: {conditional: "VALUE > 1000"}
set_null: {conditional: "VALUE = 0"}
terrain: {command: terrain-tool}
`))
	var cfgErr *errors.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "original_dem", cfgErr.Key)
	assert.Contains(t, cfgErr.Message, "${home}")

	_, err = config.FromYAML([]byte(`
root: /data/andes
project_name: andes
projection_code: 32719
output: ${output}/x
original_dem: /dem.tif
str_net: {conditional: "VALUE > 1000"}
set_null: {conditional: "VALUE = 0"}
terrain: {command: terrain-tool}
`))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "output", cfgErr.Key)
}
