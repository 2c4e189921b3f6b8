// Package zonestats joins per-zone zonal statistics tables into zone records.
package zonestats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
)

// Zonal statistics column names.
const (
	ColZone = "VALUE"
	ColMean = "MEAN"
	ColMin  = "MIN"
	ColMax  = "MAX"
	ColArea = "AREA"
)

// Table names used in diagnostics.
const (
	Temperature   = "temperature"
	Precipitation = "precipitation"
	Elevation     = "elevation"
)

// Zone is the joined statistics of one watershed.
type Zone struct {
	ID                int
	MeanTemperature   float64 // tenths of a degree C
	MeanPrecipitation float64 // mm/yr
	MaxElevation      float64 // m
	MinElevation      float64 // m
	Area              float64 // m²
}

// Tables are the three zonal statistics tables of a BQART run.
type Tables struct {
	Temperature   *terrain.Table
	Precipitation *terrain.Table
	Elevation     *terrain.Table
}

// Gap is a zone that appears in some tables but not all.
type Gap struct {
	ZoneID  int
	Missing []string
}

// Diagnostics reports the zones left out of the join.
type Diagnostics struct {
	Gaps []Gap
}

// Empty reports whether every zone was present in every table.
func (d Diagnostics) Empty() bool { return len(d.Gaps) == 0 }

// Dropped returns the ids of the zones left out, ascending.
func (d Diagnostics) Dropped() []int {
	ids := make([]int, len(d.Gaps))
	for i, g := range d.Gaps {
		ids[i] = g.ZoneID
	}
	return ids
}

// String summarises the gaps, e.g. "zone 4 missing precipitation".
func (d Diagnostics) String() string {
	parts := make([]string, len(d.Gaps))
	for i, g := range d.Gaps {
		parts[i] = fmt.Sprintf("zone %d missing %s", g.ZoneID, strings.Join(g.Missing, "+"))
	}
	return strings.Join(parts, "; ")
}

// Join computes the zone ids common to all three tables and returns one Zone
// per common id, ordered by id. Zones missing from any table are reported
// in the Diagnostics and never defaulted to zero. With strict set, the
// first gap is returned as a ComputationError instead.
func Join(t Tables, strict bool) ([]Zone, Diagnostics, error) {
	temps, err := column(t.Temperature, ColMean)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	precips, err := column(t.Precipitation, ColMean)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	mins, err := column(t.Elevation, ColMin)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	maxs, err := column(t.Elevation, ColMax)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	areas, err := column(t.Elevation, ColArea)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	sources := []struct {
		name   string
		values map[int]float64
	}{
		{Temperature, temps},
		{Precipitation, precips},
		{Elevation, areas},
	}

	union := make(map[int]bool)
	for _, s := range sources {
		for id := range s.values {
			union[id] = true
		}
	}
	ids := make([]int, 0, len(union))
	for id := range union {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var diag Diagnostics
	zones := make([]Zone, 0, len(ids))
	for _, id := range ids {
		var missing []string
		for _, s := range sources {
			if _, ok := s.values[id]; !ok {
				missing = append(missing, s.name)
			}
		}
		if len(missing) > 0 {
			diag.Gaps = append(diag.Gaps, Gap{ZoneID: id, Missing: missing})
			continue
		}
		zones = append(zones, Zone{
			ID:                id,
			MeanTemperature:   temps[id],
			MeanPrecipitation: precips[id],
			MaxElevation:      maxs[id],
			MinElevation:      mins[id],
			Area:              areas[id],
		})
	}

	if strict && !diag.Empty() {
		g := diag.Gaps[0]
		return nil, diag, &errors.ComputationError{
			ZoneID:  g.ZoneID,
			Message: "missing from " + strings.Join(g.Missing, ", ") + " statistics",
		}
	}
	return zones, diag, nil
}

// column maps zone id to the value of col. Later rows win on duplicate ids.
func column(t *terrain.Table, col string) (map[int]float64, error) {
	if t == nil {
		return nil, &errors.DataError{Dataset: "zonal statistics", Message: "table is missing"}
	}
	if err := t.Require(ColZone, col); err != nil {
		return nil, err
	}
	out := make(map[int]float64, t.Len())
	for row := 0; row < t.Len(); row++ {
		id, err := t.Int(row, ColZone)
		if err != nil {
			return nil, err
		}
		v, err := t.Float(row, col)
		if err != nil {
			return nil, err
		}
		out[id] = v
	}
	return out, nil
}
