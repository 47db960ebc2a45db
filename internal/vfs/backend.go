// Package vfs implements the layered virtual filesystem: a pluggable
// Backend capability object, wrapped by a mutex-guarded façade that
// optionally maintains a lazy front cache and exposes a change stream.
package vfs

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
)

// EventKind distinguishes the three shapes of filesystem change a
// backend may report.
type EventKind int

const (
	Created EventKind = iota
	Modified
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a single filesystem change notification.
type Event struct {
	Kind EventKind
	Path string
}

// Metadata is the subset of file metadata the engine cares about.
type Metadata struct {
	IsFile bool
}

// Backend is the sealed capability set a VFS façade is built on. Every
// method must translate missing-path conditions into an error
// satisfying errors.Is(err, rojoerr.ErrNotFound) rather than a generic
// I/O error, so callers can branch on it uniformly.
type Backend interface {
	Read(path string) ([]byte, error)
	Write(path string, contents []byte) error
	ReadDir(path string) ([]string, error)
	Metadata(path string) (Metadata, error)
	Exists(path string) (bool, error)
	CreateDir(path string) error
	CreateDirAll(path string) error
	RemoveFile(path string) error
	RemoveDirAll(path string) error
	Canonicalize(path string) (string, error)

	// Watch and Unwatch are idempotent and may be no-ops for backends
	// that watch everything by default (e.g. InMemory). Noop returns an
	// error from both, as from every other method.
	Watch(path string) error
	Unwatch(path string) error

	// EventReceiver returns the channel of change notifications this
	// backend produces. It is closed when the backend is closed.
	EventReceiver() <-chan Event

	// Close releases any OS-level watch resources.
	Close() error
}

// WithNotFound maps a raw OS error to rojoerr's NotFoundError when err
// indicates the path is absent, otherwise wraps it as an IoError. This
// mirrors IoResultExt::with_not_found from the memofs crate this
// backend layer is modeled on.
func WithNotFound(path string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &rojoerr.NotFoundError{Path: path}
	}
	return &rojoerr.IoError{Path: path, Err: err}
}

// ErrRescanNeeded names the condition where the underlying watch
// mechanism lost events. No backend in this package returns it:
// StdBackend logs fsnotify watcher errors, including event overflow,
// and keeps delivering the events it still receives.
var ErrRescanNeeded = errors.New("vfs: rescan needed, watch overflowed")

func wrapRescan(path string, cause error) error {
	return fmt.Errorf("%s: %w", path, errors.Join(ErrRescanNeeded, cause))
}
