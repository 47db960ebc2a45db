package vfs

import "errors"

var errNoop = errors.New("vfs: noop backend cannot perform I/O")

// NoopBackend always errors. It exists as a safe default for contexts
// that construct a Vfs façade before a real backend is chosen, per the
// Noop backend named in spec.md's Backend enumeration.
type NoopBackend struct {
	events chan Event
}

// NewNoopBackend returns a backend that rejects every operation.
func NewNoopBackend() *NoopBackend {
	return &NoopBackend{events: make(chan Event)}
}

func (b *NoopBackend) Read(string) ([]byte, error)          { return nil, errNoop }
func (b *NoopBackend) Write(string, []byte) error           { return errNoop }
func (b *NoopBackend) ReadDir(string) ([]string, error)     { return nil, errNoop }
func (b *NoopBackend) Metadata(string) (Metadata, error)    { return Metadata{}, errNoop }
func (b *NoopBackend) Exists(string) (bool, error)          { return false, errNoop }
func (b *NoopBackend) CreateDir(string) error                { return errNoop }
func (b *NoopBackend) CreateDirAll(string) error              { return errNoop }
func (b *NoopBackend) RemoveFile(string) error                { return errNoop }
func (b *NoopBackend) RemoveDirAll(string) error               { return errNoop }
func (b *NoopBackend) Canonicalize(string) (string, error)    { return "", errNoop }
func (b *NoopBackend) Watch(string) error                      { return errNoop }
func (b *NoopBackend) Unwatch(string) error                    { return errNoop }
func (b *NoopBackend) EventReceiver() <-chan Event             { return b.events }
func (b *NoopBackend) Close() error                             { return nil }
