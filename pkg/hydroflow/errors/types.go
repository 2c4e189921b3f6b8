package errors

import "fmt"

// ConfigError indicates a missing or invalid configuration key.
// It is raised at load time, before any stage runs.
type ConfigError struct {
	Key     string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("config %s: %s", e.Key, e.Message)
	}
	return fmt.Sprintf("config: %s", e.Message)
}

// MissingManifestError indicates that a stage manifest lacks a key that an
// earlier stage should have written.
type MissingManifestError struct {
	// Manifest is the manifest file path, if known.
	Manifest string
	// Key is the first missing key.
	Key string
}

// Error implements the error interface.
func (e *MissingManifestError) Error() string {
	if e.Manifest != "" {
		return fmt.Sprintf("manifest %s: missing key %q", e.Manifest, e.Key)
	}
	return fmt.Sprintf("manifest: missing key %q", e.Key)
}

// DataError indicates a required attribute is absent on a dataset feature.
type DataError struct {
	Dataset string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *DataError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("dataset %s: field %q: %s", e.Dataset, e.Field, e.Message)
	}
	return fmt.Sprintf("dataset %s: %s", e.Dataset, e.Message)
}

// ComputationError indicates a zone could not be computed.
type ComputationError struct {
	ZoneID  int
	Message string
}

// Error implements the error interface.
func (e *ComputationError) Error() string {
	return fmt.Sprintf("zone %d: %s", e.ZoneID, e.Message)
}

// IOError indicates a path could not be found or accessed.
// Interactive callers may re-prompt for a different path; everyone else
// treats it as fatal.
type IOError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s", e.Op, e.Path)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}
