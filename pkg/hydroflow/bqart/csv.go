package bqart

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/manifest"
)

// Header is the column set every output carries.
var Header = []string{
	"id", "precipitation(mm/yr)", "w", "B", "Qw(m³/s)", "Qw(km³/yr)", "A(km²)",
	"R(km)", "T(C)", "Qs(MT/yr)", "density(kg/m³)", "Qs(m³/yr)", "erosion(m/yr)",
	"erosion(mm/yr)", "Slip(mm/yr)", "Qs_Tectonic(m³/yr)",
}

// FaultHeader is appended when any record is fault-correlated.
var FaultHeader = []string{"fault_id", "fault_name", "distance"}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes records in order.
func WriteCSV(w io.Writer, records []Record) error {
	withFaults := false
	for _, r := range records {
		if r.Fault != nil {
			withFaults = true
			break
		}
	}

	header := Header
	if withFaults {
		header = append(append([]string(nil), Header...), FaultHeader...)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{strconv.Itoa(r.ID)}
		for _, v := range []float64{
			r.Precipitation, r.Omega, r.B, r.QwM3s, r.QwScaled, r.A, r.ReliefKm,
			r.TempC, r.QsMT, r.Density, r.QsM3, r.ErosionM, r.ErosionMM, r.Slip, r.QsTectonic,
		} {
			row = append(row, formatFloat(v))
		}
		if withFaults {
			if r.Fault != nil {
				row = append(row, strconv.Itoa(r.Fault.ID), r.Fault.Name, formatFloat(r.Fault.Distance))
			} else {
				row = append(row, "", "", "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes records to path durably.
func WriteFile(path string, records []Record) error {
	var b strings.Builder
	if err := WriteCSV(&b, records); err != nil {
		return fmt.Errorf("encode sediment yield: %w", err)
	}
	return manifest.WriteFile(path, []byte(b.String()))
}
