package bqart

import (
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/fault"
)

// Source supplies the tectonic term of each zone.
type Source interface {
	Tectonic(zoneID int) (Tectonic, error)
}

// Uniform applies one uplift rate (mm/yr) to every zone.
type Uniform float64

// Tectonic implements Source.
func (u Uniform) Tectonic(int) (Tectonic, error) {
	return Tectonic{Rate: float64(u)}, nil
}

// Faults applies the maximum slip rate of each zone's correlated fault,
// falling back to the uniform Uplift rate for uncorrelated zones.
type Faults struct {
	Table    *fault.Table
	Metadata map[int]fault.Metadata
	Uplift   float64
}

// Tectonic implements Source.
func (f Faults) Tectonic(zoneID int) (Tectonic, error) {
	c, ok := f.Table.NearestForZone(zoneID)
	if !ok {
		return Tectonic{Rate: f.Uplift}, nil
	}
	m, err := fault.Lookup(f.Metadata, c)
	if err != nil {
		return Tectonic{}, err
	}
	return Tectonic{
		Rate:  m.SlipMax,
		Fault: &FaultRef{ID: c.FaultID, Name: m.Name, Distance: c.Distance},
	}, nil
}
