package config

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

// placeholder matches ${name}.
var placeholder = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// expand replaces every ${name} in s with vars[name]. Names not in vars
// are returned, sorted, and left in place.
func expand(s string, vars map[string]string) (string, []string) {
	if !strings.Contains(s, "${") {
		return s, nil
	}
	var missing []string
	out := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if v, ok := vars[name]; ok {
			return v
		}
		missing = append(missing, name)
		return match
	})
	sort.Strings(missing)
	return out, missing
}

type pathSetting struct {
	key string
	dst *string
}

// expandPaths substitutes ${root} and ${project_name} in path settings,
// and ${output} in every path setting except output itself. An unknown
// name is a ConfigError naming the key.
func (c *Config) expandPaths() error {
	vars := map[string]string{"root": c.Root, "project_name": c.ProjectName}

	one := func(key string, dst *string) error {
		v, missing := expand(*dst, vars)
		if len(missing) > 0 {
			return &errors.ConfigError{
				Key:     key,
				Message: fmt.Sprintf("undefined variable ${%s}", strings.Join(missing, "}, ${")),
			}
		}
		*dst = v
		return nil
	}

	if err := one("output", &c.Output); err != nil {
		return err
	}
	if c.Output == "" && c.Root != "" {
		c.Output = defaultOutput(c.Root)
	}
	vars["output"] = c.Output

	paths := []pathSetting{
		{"original_dem", &c.OriginalDEM},
		{"scratch", &c.Scratch},
		{"pour_points_path", &c.PourPointsPath},
		{"fault_path", &c.FaultPath},
		{"flow_acc.flow_weight_raster", &c.FlowAcc.FlowWeightRaster},
		{"set_null.false_raster", &c.SetNull.FalseRaster},
		{"checkpoint_db", &c.CheckpointDB},
	}
	for i := range c.Climates {
		paths = append(paths,
			pathSetting{fmt.Sprintf("climates[%d].temp_directory", i), &c.Climates[i].TempDirectory},
			pathSetting{fmt.Sprintf("climates[%d].precip_directory", i), &c.Climates[i].PrecipDirectory})
	}
	for _, p := range paths {
		if err := one(p.key, p.dst); err != nil {
			return err
		}
	}
	return nil
}
