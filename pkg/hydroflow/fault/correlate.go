package fault

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
)

// Route event table columns.
const (
	ColPoint   = "INPUTOID" // id of the located point
	ColRoute   = "RID"      // route (fault) id
	ColMeasure = "MEAS"     // position along the route
	ColOffset  = "DISTANCE" // perpendicular offset from the route
)

// RouteIDField is the fault attribute routes are built on.
const RouteIDField = "Id"

// Correlation ties a pour point to its nearest fault. Distance is the
// position along the fault route, not a straight-line distance.
type Correlation struct {
	PointID  int
	FaultID  int
	Distance float64
}

// Correlate reduces a route event table to at most one correlation per
// point: the route with the smallest offset, provided the offset is within
// radius. Points with no route within radius are left out. Tables without
// an offset column are taken as already filtered by radius. The result is
// ordered by point id.
func Correlate(events *terrain.Table, radius float64) ([]Correlation, error) {
	if err := events.Require(ColPoint, ColRoute, ColMeasure); err != nil {
		return nil, err
	}
	hasOffset := events.Has(ColOffset)

	type best struct {
		c      Correlation
		offset float64
	}
	nearest := make(map[int]best)

	for row := 0; row < events.Len(); row++ {
		point, err := events.Int(row, ColPoint)
		if err != nil {
			return nil, err
		}
		route, err := events.Int(row, ColRoute)
		if err != nil {
			return nil, err
		}
		meas, err := events.Float(row, ColMeasure)
		if err != nil {
			return nil, err
		}
		offset := 0.0
		if hasOffset {
			if offset, err = events.Float(row, ColOffset); err != nil {
				return nil, err
			}
			offset = math.Abs(offset)
		}
		if offset > radius {
			continue
		}

		cand := best{c: Correlation{PointID: point, FaultID: route, Distance: meas}, offset: offset}
		cur, seen := nearest[point]
		if !seen || cand.offset < cur.offset || (cand.offset == cur.offset && route < cur.c.FaultID) {
			nearest[point] = cand
		}
	}

	out := make([]Correlation, 0, len(nearest))
	for _, b := range nearest {
		out = append(out, b.c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PointID < out[j].PointID })
	return out, nil
}

// Table indexes correlations by zone. A zone id is the id of the pour point
// it was delineated from.
type Table struct {
	byZone map[int]Correlation
}

// NewTable indexes correlations.
func NewTable(corrs []Correlation) *Table {
	t := &Table{byZone: make(map[int]Correlation, len(corrs))}
	for _, c := range corrs {
		t.byZone[c.PointID] = c
	}
	return t
}

// Len returns the number of correlated zones.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byZone)
}

// NearestForZone returns the fault correlated with zone, if any.
func (t *Table) NearestForZone(zoneID int) (Correlation, bool) {
	if t == nil {
		return Correlation{}, false
	}
	c, ok := t.byZone[zoneID]
	return c, ok
}

var csvHeader = []string{"id", "fault", "distance"}

// WriteCSV writes correlations with the header id,fault,distance.
func WriteCSV(w io.Writer, corrs []Correlation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, c := range corrs {
		if err := cw.Write([]string{
			strconv.Itoa(c.PointID),
			strconv.Itoa(c.FaultID),
			strconv.FormatFloat(c.Distance, 'g', -1, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the fault-intersection CSV durably.
func WriteFile(path string, corrs []Correlation) error {
	var b strings.Builder
	if err := WriteCSV(&b, corrs); err != nil {
		return fmt.Errorf("encode fault intersections: %w", err)
	}
	return manifest.WriteFile(path, []byte(b.String()))
}

// ReadFile reads a fault-intersection CSV.
func ReadFile(path string) ([]Correlation, error) {
	t, err := terrain.ReadCSVFile(path)
	if err != nil {
		return nil, err
	}
	if err := t.Require(csvHeader...); err != nil {
		return nil, err
	}

	out := make([]Correlation, 0, t.Len())
	for row := 0; row < t.Len(); row++ {
		var c Correlation
		if c.PointID, err = t.Int(row, "id"); err != nil {
			return nil, err
		}
		if c.FaultID, err = t.Int(row, "fault"); err != nil {
			return nil, err
		}
		if c.Distance, err = t.Float(row, "distance"); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Lookup resolves the metadata of a correlation's fault.
func Lookup(meta map[int]Metadata, c Correlation) (Metadata, error) {
	m, ok := meta[c.FaultID]
	if !ok {
		return Metadata{}, &errors.DataError{
			Dataset: "fault metadata",
			Field:   strconv.Itoa(c.FaultID),
			Message: ErrUnknownFault.Error(),
		}
	}
	return m, nil
}
