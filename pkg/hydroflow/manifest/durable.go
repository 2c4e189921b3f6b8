package manifest

import (
	"os"
	"path/filepath"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

// WriteFile replaces path with data so that a crash leaves either the old
// or the new content: the data is written to a temporary sibling, synced,
// renamed over path, and the directory is synced.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return &errors.IOError{Op: "create temp", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return &errors.IOError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &errors.IOError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &errors.IOError{Op: "close", Path: tmpName, Err: err}
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return &errors.IOError{Op: "chmod", Path: tmpName, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return &errors.IOError{Op: "rename", Path: path, Err: err}
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return &errors.IOError{Op: "open dir", Path: dir, Err: err}
	}
	defer d.Close()
	// Some platforms refuse to fsync a directory; the rename already happened.
	_ = d.Sync()
	return nil
}
