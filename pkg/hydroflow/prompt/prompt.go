// Package prompt separates operator questions from the pipeline. The
// pipeline asks through a Prompt and never reads the terminal itself, so
// headless runs use NonInteractive and tests use Scripted.
package prompt

import (
	"errors"
)

var (
	// ErrNonInteractive is returned when no operator is available.
	ErrNonInteractive = errors.New("prompt: no operator available")

	// ErrCanceled is returned when the operator aborts or input ends.
	ErrCanceled = errors.New("prompt: canceled by operator")
)

// Prompt asks the operator for decisions.
type Prompt interface {
	// Confirm asks a yes/no question.
	Confirm(question string) (bool, error)

	// Select presents options and returns the chosen index.
	Select(title string, options []string) (int, error)

	// Path asks for a filesystem path. Existence is the caller's concern.
	Path(question string) (string, error)
}

// NonInteractive fails every question.
type NonInteractive struct{}

var _ Prompt = NonInteractive{}

// Confirm implements Prompt.
func (NonInteractive) Confirm(string) (bool, error) { return false, ErrNonInteractive }

// Select implements Prompt.
func (NonInteractive) Select(string, []string) (int, error) { return -1, ErrNonInteractive }

// Path implements Prompt.
func (NonInteractive) Path(string) (string, error) { return "", ErrNonInteractive }
