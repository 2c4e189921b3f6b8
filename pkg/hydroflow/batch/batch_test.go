package batch_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/batch"
	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

func fixedClock(t time.Time) batch.Clock {
	return func() time.Time { return t }
}

func TestToken(t *testing.T) {
	ts := time.Date(2024, time.March, 9, 14, 5, 7, 0, time.Local)
	assert.Equal(t, "2024_3_9_14_5_7", batch.Token(ts))

	parsed, err := batch.ParseToken("2024_3_9_14_5_7")
	require.NoError(t, err)
	assert.True(t, ts.Equal(parsed))
}

func TestParseTokenRejects(t *testing.T) {
	for _, s := range []string{
		"scratch",
		"2024_3_9",
		"2024_3_9_14_5_x",
		"2024_03_09_14_05_07",
		"2024_2_30_0_0_0",
		"2024_3_9_14_5_-1",
	} {
		t.Run(s, func(t *testing.T) {
			_, err := batch.ParseToken(s)
			assert.Error(t, err)
		})
	}
}

func TestCreate(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Output")
	clock := fixedClock(time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local))

	dir, err := batch.Create(root, clock)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "2024_3_9_14_5_7"), dir)
	assert.DirExists(t, dir)

	_, err = batch.Create(root, clock)
	var ioErr *errors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, os.ErrExist)
}

func TestListAndGroup(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"2024_3_10_9_0_0",
		"2024_3_9_14_5_7",
		"2024_3_9_8_30_0",
		"scratch",
		"not_a_batch_at_all",
	} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024_1_1_0_0_0"), nil, 0o644))

	entries, err := batch.List(root)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, filepath.Join(root, "2024_3_9_8_30_0"), entries[0].Path)
	assert.Equal(t, "Sat Mar 09 2024", entries[0].Day)
	assert.Equal(t, "08:30:00", entries[0].Time)
	assert.Equal(t, "14:05:07", entries[1].Time)
	assert.Equal(t, "Sun Mar 10 2024", entries[2].Day)

	days := batch.GroupByDay(entries)
	require.Len(t, days, 2)
	assert.Equal(t, "Sat Mar 09 2024", days[0].Label)
	assert.Len(t, days[0].Entries, 2)
	assert.Equal(t, "Sun Mar 10 2024", days[1].Label)
	assert.Len(t, days[1].Entries, 1)
}

func TestListMissingRoot(t *testing.T) {
	_, err := batch.List(filepath.Join(t.TempDir(), "missing"))
	var ioErr *errors.IOError
	require.ErrorAs(t, err, &ioErr)
}

func TestCopyOriginal(t *testing.T) {
	src := t.TempDir()
	for _, name := range []string{"pp.shp", "pp.shx", "pp.dbf", "pp.prj", "ppx.shp", "other.shp"} {
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0o644))
	}
	dst := filepath.Join(t.TempDir(), "originals")

	copied, err := batch.CopyOriginal(filepath.Join(src, "pp.shp"), dst)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dst, "pp.shp"), copied)

	entries, err := os.ReadDir(dst)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"pp.shp", "pp.shx", "pp.dbf", "pp.prj"}, names)

	data, err := os.ReadFile(filepath.Join(dst, "pp.dbf"))
	require.NoError(t, err)
	assert.Equal(t, "pp.dbf", string(data))
}

func TestCopyOriginalMissing(t *testing.T) {
	_, err := batch.CopyOriginal(filepath.Join(t.TempDir(), "dem.tif"), t.TempDir())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
