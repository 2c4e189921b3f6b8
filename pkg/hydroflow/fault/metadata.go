// Package fault associates watershed pour points with nearby fault routes
// and carries the per-fault slip metadata used by the tectonic term.
package fault

import (
	stderrors "errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
)

// Fault dataset attribute fields.
const (
	FieldID      = "FID"
	FieldName    = "name"
	FieldSlipMin = "slip_min"
	FieldSlipMax = "slip_max"
	FieldAgeMin  = "age_min"
	FieldAgeMax  = "age_max"
	FieldSense   = "sense"
)

var requiredFields = []string{
	FieldID, FieldName, FieldSlipMin, FieldSlipMax, FieldAgeMin, FieldAgeMax, FieldSense,
}

// Metadata describes one fault feature. Slip rates are mm/yr.
type Metadata struct {
	Name    string  `yaml:"name"`
	SlipMin float64 `yaml:"slip_min"`
	SlipMax float64 `yaml:"slip_max"`
	AgeMin  float64 `yaml:"age_min"`
	AgeMax  float64 `yaml:"age_max"`
	Sense   string  `yaml:"sense"`
}

// ExtractMetadata reads one Metadata per row of the fault attribute table,
// keyed by FID. A missing field or unparsable value is a DataError.
func ExtractMetadata(t *terrain.Table) (map[int]Metadata, error) {
	if err := t.Require(requiredFields...); err != nil {
		return nil, err
	}

	out := make(map[int]Metadata, t.Len())
	for row := 0; row < t.Len(); row++ {
		id, err := t.Int(row, FieldID)
		if err != nil {
			return nil, err
		}
		var m Metadata
		if m.Name, err = t.String(row, FieldName); err != nil {
			return nil, err
		}
		if m.Sense, err = t.String(row, FieldSense); err != nil {
			return nil, err
		}
		for _, f := range []struct {
			field string
			dst   *float64
		}{
			{FieldSlipMin, &m.SlipMin},
			{FieldSlipMax, &m.SlipMax},
			{FieldAgeMin, &m.AgeMin},
			{FieldAgeMax, &m.AgeMax},
		} {
			if *f.dst, err = t.Float(row, f.field); err != nil {
				return nil, err
			}
		}
		out[id] = m
	}
	return out, nil
}

// SaveMetadata writes metadata as YAML keyed by fault id.
func SaveMetadata(path string, meta map[int]Metadata) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode fault metadata: %w", err)
	}
	return manifest.WriteFile(path, data)
}

// LoadMetadata reads metadata written by SaveMetadata.
func LoadMetadata(path string) (map[int]Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &errors.IOError{Op: "read fault metadata", Path: path, Err: err}
	}
	meta := make(map[int]Metadata)
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return nil, &errors.DataError{Dataset: path, Message: "parse fault metadata: " + err.Error()}
	}
	return meta, nil
}

// ErrUnknownFault means a correlation names a fault with no metadata.
var ErrUnknownFault = stderrors.New("fault has no metadata")
