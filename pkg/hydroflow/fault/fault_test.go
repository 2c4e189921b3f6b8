package fault_test

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/fault"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/terrain"
)

var faultColumns = []string{"FID", "Id", "name", "slip_min", "slip_max", "age_min", "age_max", "sense"}

func TestExtractMetadata(t *testing.T) {
	attrs := terrain.NewTable("faults.shp", faultColumns, [][]string{
		{"0", "0", "Garlock", "1", "2", "0.1", "2.5", "sinistral"},
		{"1", "1", "Panamint", "0.2", "0.5", "0", "1", "normal"},
	})

	meta, err := fault.ExtractMetadata(attrs)
	require.NoError(t, err)
	require.Len(t, meta, 2)
	assert.Equal(t, fault.Metadata{
		Name: "Garlock", SlipMin: 1, SlipMax: 2, AgeMin: 0.1, AgeMax: 2.5, Sense: "sinistral",
	}, meta[0])
	assert.Equal(t, 0.5, meta[1].SlipMax)
}

func TestExtractMetadataMissingField(t *testing.T) {
	attrs := terrain.NewTable("faults.shp", []string{"FID", "name", "slip_min", "age_min", "age_max", "sense"}, [][]string{
		{"0", "Garlock", "1", "0", "1", "normal"},
	})

	_, err := fault.ExtractMetadata(attrs)
	var dataErr *errors.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "slip_max", dataErr.Field)
	assert.Equal(t, "faults.shp", dataErr.Dataset)
}

func TestExtractMetadataBadValue(t *testing.T) {
	attrs := terrain.NewTable("faults.shp", faultColumns, [][]string{
		{"0", "0", "Garlock", "1", "fast", "0", "1", "normal"},
	})

	_, err := fault.ExtractMetadata(attrs)
	assert.Equal(t, errors.KindData, errors.KindOf(err))
}

func TestMetadataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fault_meta.yml")
	meta := map[int]fault.Metadata{
		3: {Name: "Owens Valley", SlipMin: 1.5, SlipMax: 2, Sense: "dextral"},
	}

	require.NoError(t, fault.SaveMetadata(path, meta))
	got, err := fault.LoadMetadata(path)
	require.NoError(t, err)
	assert.Equal(t, meta, got)

	_, err = fault.LoadMetadata(filepath.Join(t.TempDir(), "nope.yml"))
	assert.True(t, errors.IsRecoverable(err))
}

func eventTable(rows ...[]string) *terrain.Table {
	return terrain.NewTable("intersect_events", []string{"INPUTOID", "RID", "MEAS", "DISTANCE"}, rows)
}

func TestCorrelateKeepsNearestWithinRadius(t *testing.T) {
	events := eventTable(
		[]string{"7", "1", "120.5", "40"},
		[]string{"7", "2", "88", "-12"}, // nearer, offset sign ignored
		[]string{"3", "1", "10", "5"},
		[]string{"9", "4", "500", "250"}, // outside radius
	)

	got, err := fault.Correlate(events, 100)
	require.NoError(t, err)
	assert.Equal(t, []fault.Correlation{
		{PointID: 3, FaultID: 1, Distance: 10},
		{PointID: 7, FaultID: 2, Distance: 88},
	}, got)
}

func TestCorrelateTiesPreferLowerRoute(t *testing.T) {
	events := eventTable(
		[]string{"1", "5", "1", "10"},
		[]string{"1", "2", "2", "10"},
	)

	got, err := fault.Correlate(events, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].FaultID)
}

func TestCorrelateWithoutOffsetColumn(t *testing.T) {
	events := terrain.NewTable("events", []string{"INPUTOID", "RID", "MEAS"}, [][]string{
		{"1", "5", "33"},
	})

	got, err := fault.Correlate(events, 0)
	require.NoError(t, err)
	assert.Equal(t, []fault.Correlation{{PointID: 1, FaultID: 5, Distance: 33}}, got)
}

func TestCorrelateMissingColumn(t *testing.T) {
	events := terrain.NewTable("events", []string{"INPUTOID", "MEAS"}, nil)

	_, err := fault.Correlate(events, 10)
	var dataErr *errors.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Equal(t, "RID", dataErr.Field)
}

func TestTable(t *testing.T) {
	table := fault.NewTable([]fault.Correlation{{PointID: 4, FaultID: 1, Distance: 2}})
	assert.Equal(t, 1, table.Len())

	c, ok := table.NearestForZone(4)
	require.True(t, ok)
	assert.Equal(t, 1, c.FaultID)

	_, ok = table.NearestForZone(5)
	assert.False(t, ok)

	var empty *fault.Table
	_, ok = empty.NearestForZone(4)
	assert.False(t, ok)
	assert.Zero(t, empty.Len())
}

func TestIntersectionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proj_intersect_data.csv")
	corrs := []fault.Correlation{
		{PointID: 1, FaultID: 0, Distance: 1250.5},
		{PointID: 2, FaultID: 3, Distance: 0},
	}

	require.NoError(t, fault.WriteFile(path, corrs))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "id,fault,distance\n1,0,1250.5\n"))

	got, err := fault.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrs, got)
}

func TestLookup(t *testing.T) {
	meta := map[int]fault.Metadata{1: {Name: "Garlock", SlipMax: 2}}

	m, err := fault.Lookup(meta, fault.Correlation{PointID: 9, FaultID: 1})
	require.NoError(t, err)
	assert.Equal(t, "Garlock", m.Name)

	_, err = fault.Lookup(meta, fault.Correlation{PointID: 9, FaultID: 2})
	var dataErr *errors.DataError
	require.True(t, stderrors.As(err, &dataErr))
	assert.Equal(t, "2", dataErr.Field)
}
