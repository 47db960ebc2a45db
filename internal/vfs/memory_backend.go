package vfs

import (
	"io"
	"os"
	"sync"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

// MemoryBackend is an in-memory test double backed by go-billy's memfs.
// Unlike StdBackend it has no independent OS watcher: tests drive its
// event stream explicitly via RaiseEvent, matching the VfsEvent-driven
// test fixtures used throughout the original engine's own test suite.
type MemoryBackend struct {
	fs billy.Filesystem

	mu     sync.Mutex
	events chan Event
	closed bool
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		fs:     memfs.New(),
		events: make(chan Event, 256),
	}
}

// RaiseEvent injects an event as if the backend had observed it. Tests
// use this to simulate filesystem changes without touching real disk.
func (b *MemoryBackend) RaiseEvent(kind EventKind, path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.events <- Event{Kind: kind, Path: path}
}

func (b *MemoryBackend) Read(path string) ([]byte, error) {
	f, err := b.fs.Open(path)
	if err != nil {
		return nil, WithNotFound(path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, WithNotFound(path, err)
	}
	return data, nil
}

func (b *MemoryBackend) Write(path string, contents []byte) error {
	if err := util.WriteFile(b.fs, path, contents, 0o644); err != nil {
		return WithNotFound(path, err)
	}
	return nil
}

func (b *MemoryBackend) ReadDir(path string) ([]string, error) {
	entries, err := b.fs.ReadDir(path)
	if err != nil {
		return nil, WithNotFound(path, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (b *MemoryBackend) Metadata(path string) (Metadata, error) {
	info, err := b.fs.Stat(path)
	if err != nil {
		return Metadata{}, WithNotFound(path, err)
	}
	return Metadata{IsFile: !info.IsDir()}, nil
}

func (b *MemoryBackend) Exists(path string) (bool, error) {
	_, err := b.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, WithNotFound(path, err)
}

func (b *MemoryBackend) CreateDir(path string) error {
	if err := b.fs.MkdirAll(path, 0o755); err != nil {
		return WithNotFound(path, err)
	}
	return nil
}

func (b *MemoryBackend) CreateDirAll(path string) error { return b.CreateDir(path) }

func (b *MemoryBackend) RemoveFile(path string) error {
	if err := b.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return WithNotFound(path, err)
	}
	return nil
}

func (b *MemoryBackend) RemoveDirAll(path string) error {
	if err := util.RemoveAll(b.fs, path); err != nil && !os.IsNotExist(err) {
		return WithNotFound(path, err)
	}
	return nil
}

func (b *MemoryBackend) Canonicalize(path string) (string, error) { return path, nil }

func (b *MemoryBackend) Watch(path string) error   { return nil }
func (b *MemoryBackend) Unwatch(path string) error { return nil }

func (b *MemoryBackend) EventReceiver() <-chan Event { return b.events }

func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.events)
	}
	return nil
}
