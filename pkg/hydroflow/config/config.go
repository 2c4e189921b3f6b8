package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the validated project configuration.
type Config struct {
	Root           string  `yaml:"root" json:"root" validate:"required"`
	ProjectName    string  `yaml:"project_name" json:"project_name" validate:"required,excludesall=/\\"`
	ProjectionCode int     `yaml:"projection_code" json:"projection_code" validate:"required,gt=0"`
	OriginalDEM    string  `yaml:"original_dem" json:"original_dem" validate:"required"`
	Scratch        string  `yaml:"scratch" json:"scratch"`
	Output         string  `yaml:"output" json:"output"`
	PourPointsPath string  `yaml:"pour_points_path" json:"pour_points_path"`
	FaultPath      string  `yaml:"fault_path" json:"fault_path"`
	UpliftMMYr     float64 `yaml:"uplift_mm_yr" json:"uplift_mm_yr" validate:"gte=0"`

	FlowDir    FlowDir     `yaml:"flow_dir" json:"flow_dir"`
	FlowAcc    FlowAcc     `yaml:"flow_acc" json:"flow_acc"`
	StrNet     StreamNet   `yaml:"str_net" json:"str_net"`
	SetNull    SetNull     `yaml:"set_null" json:"set_null"`
	StrOrd     StreamOrder `yaml:"str_ord" json:"str_ord"`
	Faults     Faults      `yaml:"faults" json:"faults"`
	PourPoints PourPoints  `yaml:"pour_points" json:"pour_points"`

	Climates     []Climate    `yaml:"climates" json:"climates" validate:"dive"`
	ClimateCache ClimateCache `yaml:"climate_cache" json:"climate_cache"`

	Terrain      Terrain `yaml:"terrain" json:"terrain"`
	CheckpointDB string  `yaml:"checkpoint_db" json:"checkpoint_db"`
	BQART        BQART   `yaml:"bqart" json:"bqart"`
}

// FlowDir configures flow direction.
type FlowDir struct {
	ForceFlow string `yaml:"force_flow" json:"force_flow" validate:"omitempty,oneof=NORMAL FORCE"`
}

// FlowAcc configures flow accumulation. Both fields are optional.
type FlowAcc struct {
	FlowWeightRaster string `yaml:"flow_weight_raster" json:"flow_weight_raster"`
	FlowDataType     string `yaml:"flow_data_type" json:"flow_data_type" validate:"omitempty,oneof=FLOAT INTEGER"`
}

// StreamNet configures stream network thresholding.
type StreamNet struct {
	Conditional   string  `yaml:"conditional" json:"conditional" validate:"required"`
	FalseConstant float64 `yaml:"false_constant" json:"false_constant"`
}

// SetNull configures null masking of the stream network.
type SetNull struct {
	FalseRaster string `yaml:"false_raster" json:"false_raster"`
	Conditional string `yaml:"conditional" json:"conditional" validate:"required"`
}

// StreamOrder configures stream ordering.
type StreamOrder struct {
	Method string `yaml:"method" json:"method" validate:"omitempty,oneof=STRAHLER SHREVE"`
}

// Faults configures fault intersection and correlation. Distances are in
// map units.
type Faults struct {
	ClusterTolerance float64 `yaml:"cluster_tolerance" json:"cluster_tolerance" validate:"gte=0"`
	SearchRadius     float64 `yaml:"search_radius" json:"search_radius" validate:"gte=0"`
}

// PourPoints configures pour point filtering and snapping.
type PourPoints struct {
	MinimumHeight float64 `yaml:"minimum_height" json:"minimum_height"`
	SnapDistance  float64 `yaml:"snap_distance" json:"snap_distance" validate:"gte=0"`
}

// Climate is one named climate scenario with directories of monthly rasters.
type Climate struct {
	Name            string `yaml:"name" json:"name" validate:"required,excludesall=/\\"`
	TempDirectory   string `yaml:"temp_directory" json:"temp_directory" validate:"required"`
	PrecipDirectory string `yaml:"precip_directory" json:"precip_directory" validate:"required"`
}

// ClimateCache configures cache staleness.
type ClimateCache struct {
	// InvalidateOnSourceChange rebuilds a cached raster older than any of
	// its source rasters.
	InvalidateOnSourceChange bool `yaml:"invalidate_on_source_change" json:"invalidate_on_source_change"`
}

// Terrain configures the external terrain analysis tool.
type Terrain struct {
	Command string   `yaml:"command" json:"command" validate:"required"`
	Args    []string `yaml:"args" json:"args"`
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// BQART configures the sediment-yield computation.
type BQART struct {
	Workers    int  `yaml:"workers" json:"workers" validate:"gte=0"`
	StrictJoin bool `yaml:"strict_join" json:"strict_join"`
}

// Duration is a time.Duration that decodes from a duration string ("30m")
// or a number of seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d *Duration) set(v any) error {
	switch val := v.(type) {
	case nil:
		*d = 0
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q", val)
		}
		*d = Duration(parsed)
	case int:
		*d = Duration(time.Duration(val) * time.Second)
	case float64:
		*d = Duration(val * float64(time.Second))
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// Default values applied by Load when a key is absent.
const (
	DefaultTerrainTimeout = 30 * time.Minute
	DefaultForceFlow      = "NORMAL"
	DefaultStreamOrder    = "STRAHLER"
	outputDirName         = "Output"
	checkpointFile        = "hydroflow.db"
)

func defaultOutput(root string) string {
	return filepath.Join(root, outputDirName)
}

func (c *Config) applyDefaults() {
	if c.Output == "" && c.Root != "" {
		c.Output = defaultOutput(c.Root)
	}
	if c.Scratch == "" && c.Output != "" {
		c.Scratch = filepath.Join(c.Output, "scratch")
	}
	if c.CheckpointDB == "" && c.Output != "" {
		c.CheckpointDB = filepath.Join(c.Output, checkpointFile)
	}
	if c.FlowDir.ForceFlow == "" {
		c.FlowDir.ForceFlow = DefaultForceFlow
	}
	if c.StrOrd.Method == "" {
		c.StrOrd.Method = DefaultStreamOrder
	}
	if c.Terrain.Timeout == 0 {
		c.Terrain.Timeout = Duration(DefaultTerrainTimeout)
	}
	if c.BQART.Workers == 0 {
		c.BQART.Workers = runtime.GOMAXPROCS(0)
	}
}

// Scenario returns the climate scenario with the given name.
func (c *Config) Scenario(name string) (Climate, bool) {
	for _, cl := range c.Climates {
		if cl.Name == name {
			return cl, true
		}
	}
	return Climate{}, false
}

// ScenarioNames returns the configured scenario names in file order.
func (c *Config) ScenarioNames() []string {
	names := make([]string, len(c.Climates))
	for i, cl := range c.Climates {
		names[i] = cl.Name
	}
	return names
}

// HasFaults reports whether a fault dataset is configured.
func (c *Config) HasFaults() bool {
	return strings.TrimSpace(c.FaultPath) != ""
}
