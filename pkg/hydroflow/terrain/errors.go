package terrain

import "fmt"

// Error is a failed terrain operation.
type Error struct {
	Op     string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("terrain %s: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("terrain %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
