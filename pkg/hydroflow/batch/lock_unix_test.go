//go:build unix

package batch_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/batch"
)

func TestLock(t *testing.T) {
	dir := t.TempDir()

	first, err := batch.Lock(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, batch.LockFile))

	_, err = batch.Lock(dir)
	assert.ErrorIs(t, err, batch.ErrLocked)

	require.NoError(t, first.Unlock())
	require.NoError(t, first.Unlock())

	again, err := batch.Lock(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
