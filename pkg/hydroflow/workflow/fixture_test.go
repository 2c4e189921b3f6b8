package workflow_test

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/checkpoint"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/config"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/prompt"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain/terraintest"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/workflow"
)

type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixtureOpts struct {
	faults     bool
	pourPoints bool
	strict     bool
	extraZone  bool
}

type fixture struct {
	root   string
	cfg    *config.Config
	fake   *terraintest.Fake
	prompt *prompt.Scripted
	store  *checkpoint.MemoryStore
	clock  *tickingClock
}

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
	return path
}

func newFixture(t *testing.T, o fixtureOpts) *fixture {
	t.Helper()
	root := t.TempDir()

	dem := touch(t, filepath.Join(root, "data", "dem.tif"))
	pp := filepath.Join(root, "data", "pp.shp")
	if o.pourPoints {
		touch(t, pp)
		touch(t, filepath.Join(root, "data", "pp.dbf"))
	}
	faults := ""
	if o.faults {
		faults = touch(t, filepath.Join(root, "data", "faults.shp"))
	}
	tempDir := filepath.Join(root, "climate", "present", "tmean")
	precipDir := filepath.Join(root, "climate", "present", "prec")
	for _, m := range []string{"01", "02"} {
		touch(t, filepath.Join(tempDir, "tmean_"+m+".tif"))
		touch(t, filepath.Join(precipDir, "prec_"+m+".tif"))
	}

	yml := fmt.Sprintf(`
root: %q
project_name: demo
projection_code: 32611
original_dem: %q
pour_points_path: %q
fault_path: %q
uplift_mm_yr: 0.5
str_net:
  conditional: "VALUE < 1000"
set_null:
  conditional: "VALUE = 0"
faults:
  cluster_tolerance: 1
  search_radius: 500
pour_points:
  minimum_height: 100
  snap_distance: 30
climates:
  - name: present
    temp_directory: %q
    precip_directory: %q
  - name: lgm
    temp_directory: %q
    precip_directory: %q
terrain:
  command: terrain-tool
bqart:
  workers: 2
  strict_join: %t
`, root, dem, pp, faults, tempDir, precipDir, tempDir, precipDir, o.strict)
	cfg, err := config.FromYAML([]byte(yml))
	require.NoError(t, err)

	fake := terraintest.New()
	fake.Tables[terrain.OpAttributes] = terraintest.Static(terrain.NewTable("faults",
		[]string{"FID", "name", "slip_min", "slip_max", "age_min", "age_max", "sense"},
		[][]string{
			{"0", "San Andreas", "20", "35", "1", "5", "dextral"},
			{"1", "Garlock", "2", "11", "1", "3", "sinistral"},
		}))
	fake.Tables[terrain.OpLocateAlongRoutes] = terraintest.Static(terrain.NewTable("events",
		[]string{"INPUTOID", "RID", "MEAS", "DISTANCE"},
		[][]string{
			{"1", "0", "1200.5", "40"},
			{"2", "1", "300", "600"},
			{"2", "0", "80", "450"},
		}))
	fake.Tables[terrain.OpZonalStatistics] = zonalTables(o.extraZone)

	return &fixture{
		root:   root,
		cfg:    cfg,
		fake:   fake,
		prompt: &prompt.Scripted{},
		store:  checkpoint.NewMemoryStore(),
		clock:  &tickingClock{now: time.Date(2023, 1, 2, 9, 5, 7, 0, time.Local)},
	}
}

// zonalTables answers zonal statistics by the value raster: cached climate
// clips are named t_<scenario>_clip.tif and p_<scenario>_clip.tif, anything
// else is the DEM.
func zonalTables(extraZone bool) terraintest.TableFunc {
	return func(req terrain.Request) *terrain.Table {
		base := filepath.Base(req.Inputs["values"])
		switch {
		case strings.HasPrefix(base, "t_"):
			return terrain.NewTable("temp", []string{"VALUE", "COUNT", "MEAN"},
				[][]string{{"1", "10", "200"}, {"2", "8", "150"}, {"3", "4", "100"}})
		case strings.HasPrefix(base, "p_"):
			return terrain.NewTable("precip", []string{"VALUE", "COUNT", "MEAN"},
				[][]string{{"1", "10", "1000"}, {"2", "8", "800"}, {"3", "4", "600"}})
		default:
			rows := [][]string{
				{"1", "0", "2000", "100000000"},
				{"2", "100", "1500", "50000000"},
				{"3", "50", "900", "20000000"},
			}
			if extraZone {
				rows = append(rows, []string{"4", "10", "300", "1000000"})
			}
			return terrain.NewTable("elev", []string{"VALUE", "MIN", "MAX", "AREA"}, rows)
		}
	}
}

func (f *fixture) pipeline(t *testing.T, opts ...workflow.Option) *workflow.Pipeline {
	t.Helper()
	base := []workflow.Option{
		workflow.WithPrompt(f.prompt),
		workflow.WithCheckpointStore(f.store),
		workflow.WithClock(f.clock.Now),
	}
	p, err := workflow.New(f.cfg, f.fake.Service(), append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return rows
}

func column(t *testing.T, rows [][]string, name string) int {
	t.Helper()
	for i, h := range rows[0] {
		if h == name {
			return i
		}
	}
	t.Fatalf("column %q not in %v", name, rows[0])
	return -1
}
