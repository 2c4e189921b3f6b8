package bqart

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/zonestats"
)

// Model constants.
const (
	Density        = 2700.0 // kg/m³
	Omega          = 0.0006
	B              = 1.0
	SecondsPerYear = 31_536_000.0
	BulkCorrection = 1.3
	DischargeExp   = 0.31
)

// FaultRef identifies the fault a zone was correlated with.
type FaultRef struct {
	ID       int
	Name     string
	Distance float64
}

// Tectonic is the slip or uplift rate (mm/yr) applied to one zone. Fault is
// nil when the uniform uplift rate applies.
type Tectonic struct {
	Rate  float64
	Fault *FaultRef
}

// Record is the computed result for one zone.
type Record struct {
	ID            int
	Precipitation float64 // mm/yr
	Omega         float64
	B             float64
	QwM3s         float64 // m³/s
	QwScaled      float64 // (km³/yr)^0.31
	A             float64 // sqrt(km²)
	ReliefKm      float64
	TempC         float64
	QsMT          float64 // MT/yr
	Density       float64
	QsM3          float64 // m³/yr
	ErosionM      float64 // m/yr
	ErosionMM     float64 // mm/yr
	Slip          float64 // mm/yr
	QsTectonic    float64 // m³/yr
	Fault         *FaultRef
}

// Compute evaluates the model for one zone. Temperatures arrive in tenths
// of a degree.
func Compute(z zonestats.Zone, t Tectonic) (Record, error) {
	if z.Area <= 0 {
		return Record{}, &errors.ComputationError{ZoneID: z.ID, Message: "zero area"}
	}

	reliefKm := (z.MaxElevation - z.MinElevation) / 1000
	a := math.Sqrt(z.Area / 1e6)

	discharge := z.MeanPrecipitation / 1000 * z.Area
	qw := discharge / SecondsPerYear
	qwScaled := math.Pow(qw*SecondsPerYear/1e9, DischargeExp)

	tempC := z.MeanTemperature / 10

	qsMT := Omega * B * qwScaled * a * reliefKm * tempC
	qsM3 := qsMT * (1e9 / Density) * BulkCorrection
	erosionM := qsM3 / z.Area

	return Record{
		ID:            z.ID,
		Precipitation: z.MeanPrecipitation,
		Omega:         Omega,
		B:             B,
		QwM3s:         qw,
		QwScaled:      qwScaled,
		A:             a,
		ReliefKm:      reliefKm,
		TempC:         tempC,
		QsMT:          qsMT,
		Density:       Density,
		QsM3:          qsM3,
		ErosionM:      erosionM,
		ErosionMM:     erosionM * 1000,
		Slip:          t.Rate,
		QsTectonic:    z.Area * (t.Rate / 1000) / Density,
		Fault:         t.Fault,
	}, nil
}

// Run computes every zone using up to workers goroutines. The first error
// cancels the remaining zones. Records are ordered by zone id.
func Run(ctx context.Context, zones []zonestats.Zone, src Source, workers int) ([]Record, error) {
	if workers < 1 {
		workers = 1
	}

	records := make([]Record, len(zones))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, z := range zones {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, err := src.Tectonic(z.ID)
			if err != nil {
				return err
			}
			rec, err := Compute(z, t)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
