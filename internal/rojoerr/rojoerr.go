// Package rojoerr defines the error kinds produced across the sync
// engine: not-found, I/O, encoding, manifest, property, conflict, and
// configuration errors.
package rojoerr

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a path has no corresponding entry in the
// VFS or tree. Use errors.Is to test for it; NotFoundError carries the
// offending path.
var ErrNotFound = errors.New("not found")

// NotFoundError wraps ErrNotFound with the path that was missing.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.Path) }
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IoError wraps an underlying OS error with the path it occurred on.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string { return fmt.Sprintf("io error at %s: %v", e.Path, e.Err) }
func (e *IoError) Unwrap() error { return e.Err }

// BadEncodingError reports that a file's contents could not be decoded
// by the middleware responsible for it.
type BadEncodingError struct {
	Path   string
	Detail string
}

func (e *BadEncodingError) Error() string {
	return fmt.Sprintf("bad encoding at %s: %s", e.Path, e.Detail)
}

// BadManifestError reports a malformed project manifest.
type BadManifestError struct {
	Path   string
	Detail string
}

func (e *BadManifestError) Error() string {
	return fmt.Sprintf("bad manifest at %s: %s", e.Path, e.Detail)
}

// BadPropertyError reports a property value that could not be resolved
// against class metadata.
type BadPropertyError struct {
	Class  string
	Name   string
	Detail string
}

func (e *BadPropertyError) Error() string {
	return fmt.Sprintf("bad property %s.%s: %s", e.Class, e.Name, e.Detail)
}

// ConflictError reports a patch that could not be applied because the
// tree had already diverged from the snapshot it was computed against.
type ConflictError struct {
	Path   string
	Detail string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict at %s: %s", e.Path, e.Detail)
}

// ConfigError reports invalid serve-session configuration.
type ConfigError struct {
	Detail string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config error: %s", e.Detail) }
