package batch

import (
	stderrors "errors"
	"sync"
)

// LockFile is the advisory lock file created inside a locked directory.
const LockFile = ".hydroflow.lock"

// ErrLocked means another process holds the directory lock.
var ErrLocked = stderrors.New("directory is locked by another run")

// Unlocker releases a directory lock.
type Unlocker struct {
	once    sync.Once
	release func() error
	err     error
}

// Unlock releases the lock. Calling it more than once is safe.
func (u *Unlocker) Unlock() error {
	u.once.Do(func() { u.err = u.release() })
	return u.err
}
