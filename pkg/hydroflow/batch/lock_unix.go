//go:build unix

package batch

import (
	stderrors "errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

// Lock takes a non-blocking exclusive advisory lock on dir. A second run
// against the same batch fails immediately with an IOError wrapping
// ErrLocked instead of waiting.
func Lock(dir string) (*Unlocker, error) {
	path := filepath.Join(dir, LockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, &errors.IOError{Op: "open lock", Path: path, Err: err}
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if stderrors.Is(err, unix.EWOULDBLOCK) {
			err = ErrLocked
		}
		return nil, &errors.IOError{Op: "lock", Path: dir, Err: err}
	}
	return &Unlocker{release: func() error {
		defer f.Close()
		return unix.Flock(int(f.Fd()), unix.LOCK_UN)
	}}, nil
}
