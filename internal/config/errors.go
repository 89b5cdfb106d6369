package config

import (
	"errors"
	"fmt"
)

// Errors returned by the engine.
var (
	// ErrSuperseded indicates a reload was skipped or its result discarded
	// because a newer reload was triggered.
	ErrSuperseded = errors.New("reload superseded by a newer trigger")

	// ErrNilSource indicates a layer was registered without a source.
	ErrNilSource = errors.New("layer has no source")

	// ErrFutureVersion indicates a layer declares a format version newer
	// than this release understands.
	ErrFutureVersion = errors.New("layer format version is newer than supported")

	// ErrInvalidVersion indicates a malformed layer format version.
	ErrInvalidVersion = errors.New("invalid layer format version")
)

// LoadError describes a layer that could not be loaded. The layer is
// skipped and resolution continues with the remaining layers.
type LoadError struct {
	// Layer is the name the layer was registered under.
	Layer string
	// Origin is where the layer was read from, if known.
	Origin string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Origin != "" {
		return fmt.Sprintf("load layer %q from %s: %v", e.Layer, e.Origin, e.Err)
	}
	return fmt.Sprintf("load layer %q: %v", e.Layer, e.Err)
}

// Unwrap returns the underlying error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// MigrationError describes a failed layer migration.
type MigrationError struct {
	From        Version
	To          Version
	Description string
	Err         error
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s -> %s (%s) failed: %v", e.From, e.To, e.Description, e.Err)
}

// Unwrap returns the underlying error.
func (e *MigrationError) Unwrap() error {
	return e.Err
}
