// Package errors defines the error taxonomy of the hydrology pipeline and
// classifies errors by how an operator can recover from them.
//
// Every error is fatal for the operation that raised it. The only
// recoverable category is a missing path, which an interactive operator can
// answer by supplying a different one. Nothing is retried automatically.
package errors

import (
	"errors"
)

// Category represents how an error should be handled.
type Category int

const (
	// CategoryFatal stops the pipeline. The offending key, path or zone is
	// named in the error.
	CategoryFatal Category = iota

	// CategoryRecoverable indicates that an operator can supply a different
	// input (typically a path) and the step can be attempted again.
	CategoryRecoverable
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryFatal:
		return "fatal"
	case CategoryRecoverable:
		return "recoverable"
	default:
		return "unknown"
	}
}

// Kind names the taxonomy entry of an error.
type Kind string

const (
	KindConfig          Kind = "config"
	KindMissingManifest Kind = "missing_manifest"
	KindData            Kind = "data"
	KindComputation     Kind = "computation"
	KindIO              Kind = "io"
	KindUnknown         Kind = "unknown"
)

// KindOf reports the taxonomy entry for err, looking through wrapped errors.
func KindOf(err error) Kind {
	var cfgErr *ConfigError
	var manErr *MissingManifestError
	var dataErr *DataError
	var compErr *ComputationError
	var ioErr *IOError

	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &cfgErr):
		return KindConfig
	case errors.As(err, &manErr):
		return KindMissingManifest
	case errors.As(err, &dataErr):
		return KindData
	case errors.As(err, &compErr):
		return KindComputation
	case errors.As(err, &ioErr):
		return KindIO
	default:
		return KindUnknown
	}
}

// Categorize determines how an error should be handled.
func Categorize(err error) Category {
	if KindOf(err) == KindIO {
		return CategoryRecoverable
	}
	return CategoryFatal
}

// IsRecoverable reports whether an operator could recover from err by
// supplying a different input.
func IsRecoverable(err error) bool {
	return Categorize(err) == CategoryRecoverable
}
