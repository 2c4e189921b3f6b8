package manifest

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hijinks/gis-hydro-workflow/pkg/hydroflow/errors"
)

// LastRunFile is the last-run record's file name under the project root.
const LastRunFile = "last_run.yml"

// Last-run keys.
const (
	KeyHydroBatch     = "hydro_batch"
	KeyWatershedBatch = "watershed_batch"
)

// RunRecord remembers the batches chosen by previous runs.
type RunRecord interface {
	// Values returns every remembered choice. A record that has never been
	// written returns an empty map.
	Values() (map[string]string, error)

	// Set remembers one choice, keeping all others.
	Set(key, value string) error
}

// LastRun is the RunRecord persisted at <root>/last_run.yml.
type LastRun struct {
	mu   sync.Mutex
	file string
}

var _ RunRecord = (*LastRun)(nil)

// NewLastRun returns the record for a project root.
func NewLastRun(root string) *LastRun {
	return &LastRun{file: filepath.Join(root, LastRunFile)}
}

// File returns the record's path.
func (l *LastRun) File() string { return l.file }

// Exists reports whether the record has ever been written.
func (l *LastRun) Exists() bool {
	_, err := os.Stat(l.file)
	return err == nil
}

// Values implements RunRecord.
func (l *LastRun) Values() (map[string]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

func (l *LastRun) read() (map[string]string, error) {
	data, err := os.ReadFile(l.file)
	if stderrors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, &errors.IOError{Op: "read last run", Path: l.file, Err: err}
	}
	return decode(l.file, data)
}

// Set implements RunRecord.
func (l *LastRun) Set(key, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	values, err := l.read()
	if err != nil {
		return err
	}
	values[key] = value

	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode last run: %w", err)
	}
	return WriteFile(l.file, data)
}
