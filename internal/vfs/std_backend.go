package vfs

import (
	"io"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/rojo-rbx/rojo-core/internal/rojolog"
)

// StdBackend is the real-disk backend: reads and writes go through
// go-billy's osfs (for a uniform billy.Filesystem surface shared with
// the InMemory backend and the treemount exporter), and change
// notification comes from fsnotify, a capability osfs does not
// provide natively.
type StdBackend struct {
	fs billy.Filesystem

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	watched  map[string]struct{}
	events   chan Event
	closed   bool
	closeErr error
}

// NewStdBackend roots a StdBackend at root on the real filesystem.
func NewStdBackend(root string) (*StdBackend, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	b := &StdBackend{
		fs:      osfs.New(root, osfs.WithBoundOS()),
		watcher: watcher,
		watched: make(map[string]struct{}),
		events:  make(chan Event, 256),
	}
	go b.pump()
	return b, nil
}

func (b *StdBackend) pump() {
	for {
		select {
		case ev, ok := <-b.watcher.Events:
			if !ok {
				close(b.events)
				return
			}
			kind := classify(ev)
			b.events <- Event{Kind: kind, Path: ev.Name}
		case err, ok := <-b.watcher.Errors:
			if !ok {
				continue
			}
			rojolog.WithError(err).Warn("vfs: fsnotify watcher error")
		}
	}
}

func classify(ev fsnotify.Event) EventKind {
	switch {
	case ev.Op&fsnotify.Create != 0:
		return Created
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Removed
	default:
		return Modified
	}
}

func (b *StdBackend) Read(path string) ([]byte, error) {
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

// Write atomically replaces path's contents: it writes to a temp file
// in the same directory, preserves the original file's permissions if
// it existed, then renames over the target.
func (b *StdBackend) Write(path string, contents []byte) error {
	mode := os.FileMode(0o644)
	if info, err := b.fs.Stat(path); err == nil {
		mode = info.Mode()
	}

	tmp, err := util.TempFile(b.fs, billyDir(path), ".rojo-vfs-tmp-")
	if err != nil {
		return WithNotFound(path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(contents); err != nil {
		tmp.Close()
		b.fs.Remove(tmpName)
		return WithNotFound(path, err)
	}
	if err := tmp.Close(); err != nil {
		b.fs.Remove(tmpName)
		return WithNotFound(path, err)
	}
	if err := b.fs.Chmod(tmpName, mode); err != nil {
		b.fs.Remove(tmpName)
		return WithNotFound(path, err)
	}
	if err := b.fs.Rename(tmpName, path); err != nil {
		b.fs.Remove(tmpName)
		return WithNotFound(path, err)
	}
	return nil
}

func billyDir(path string) string {
	i := len(path) - 1
	for i >= 0 && path[i] != '/' {
		i--
	}
	if i < 0 {
		return "."
	}
	if i == 0 {
		return "/"
	}
	return path[:i]
}

func (b *StdBackend) ReadDir(path string) ([]string, error) {
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

func (b *StdBackend) Metadata(path string) (Metadata, error) {
	info, err := b.fs.Stat(path)
	if err != nil {
		return Metadata{}, WithNotFound(path, err)
	}
	return Metadata{IsFile: !info.IsDir()}, nil
}

func (b *StdBackend) Exists(path string) (bool, error) {
	_, err := b.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, WithNotFound(path, err)
}

func (b *StdBackend) CreateDir(path string) error {
	if err := b.fs.MkdirAll(path, 0o755); err != nil {
		return WithNotFound(path, err)
	}
	return nil
}

func (b *StdBackend) CreateDirAll(path string) error { return b.CreateDir(path) }

func (b *StdBackend) RemoveFile(path string) error {
	if err := b.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return WithNotFound(path, err)
	}
	return nil
}

func (b *StdBackend) RemoveDirAll(path string) error {
	if err := util.RemoveAll(b.fs, path); err != nil && !os.IsNotExist(err) {
		return WithNotFound(path, err)
	}
	return nil
}

func (b *StdBackend) Canonicalize(path string) (string, error) {
	root := b.fs.Root()
	return root + "/" + path, nil
}

func (b *StdBackend) Watch(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watched[path]; ok {
		return nil
	}
	real, err := b.Canonicalize(path)
	if err != nil {
		return err
	}
	if err := b.watcher.Add(real); err != nil {
		return err
	}
	b.watched[path] = struct{}{}
	return nil
}

func (b *StdBackend) Unwatch(path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.watched[path]; !ok {
		return nil
	}
	real, err := b.Canonicalize(path)
	if err != nil {
		return nil
	}
	_ = b.watcher.Remove(real)
	delete(b.watched, path)
	return nil
}

func (b *StdBackend) EventReceiver() <-chan Event { return b.events }

func (b *StdBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return b.closeErr
	}
	b.closed = true
	b.closeErr = b.watcher.Close()
	return b.closeErr
}
