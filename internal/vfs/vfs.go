package vfs

import (
	"strings"
	"sync"

	"github.com/rojo-rbx/rojo-core/internal/pathmap"
)

// Item is a cache entry: either a file whose contents may or may not
// have been read yet, or a directory whose children may or may not
// have been fully enumerated.
type Item struct {
	IsFile bool

	// Contents is nil until the file has been read or written through
	// this façade; it is filled only from the bytes of that read or
	// write.
	Contents []byte
	HasRead  bool

	// ChildrenEnumerated records whether ReadDir has been run against
	// this directory and its full child list is therefore trustworthy.
	ChildrenEnumerated bool
}

// Vfs is the concurrency-safe façade over a Backend. It serializes all
// operations behind a single mutex and optionally maintains a
// PathMap-backed front cache, mirroring the two VFS designs this
// engine's ancestor implementations kept separate.
type Vfs struct {
	mu      sync.Mutex
	backend Backend
	cache   *pathmap.PathMap[*Item]
	autoWatch bool

	changeOut chan Event
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New wraps backend in a façade with an empty cache. autoWatch controls
// whether Read/ReadDir/Exists calls also call Watch on success.
func New(backend Backend, autoWatch bool) *Vfs {
	v := &Vfs{
		backend:   backend,
		cache:     pathmap.New[*Item](),
		autoWatch: autoWatch,
		changeOut: make(chan Event, 256),
		stop:      make(chan struct{}),
	}
	v.wg.Add(1)
	go v.forwardEvents()
	return v
}

func (v *Vfs) forwardEvents() {
	defer v.wg.Done()
	in := v.backend.EventReceiver()
	for {
		select {
		case ev, ok := <-in:
			if !ok {
				close(v.changeOut)
				return
			}
			select {
			case v.changeOut <- ev:
			case <-v.stop:
				close(v.changeOut)
				return
			}
		case <-v.stop:
			close(v.changeOut)
			return
		}
	}
}

// ChangeReceiver returns the shared stream of raw backend events. Only
// the change processor may call CommitChange against the events it
// reads here.
func (v *Vfs) ChangeReceiver() <-chan Event { return v.changeOut }

// Close stops the event-forwarding goroutine and closes the backend.
func (v *Vfs) Close() error {
	close(v.stop)
	v.wg.Wait()
	return v.backend.Close()
}

// Lock retains the façade's mutex for the duration of a batch of
// operations performed through the returned handle.
type Lock struct {
	v *Vfs
}

func (v *Vfs) Lock() *Lock {
	v.mu.Lock()
	return &Lock{v: v}
}

func (l *Lock) Unlock() { l.v.mu.Unlock() }

func (l *Lock) Read(path string) ([]byte, error)           { return l.v.read(path) }
func (l *Lock) ReadDir(path string) ([]string, error)       { return l.v.readDir(path) }
func (l *Lock) Metadata(path string) (Metadata, error)      { return l.v.metadata(path) }
func (l *Lock) Exists(path string) (bool, error)            { return l.v.exists(path) }

func (v *Vfs) Read(path string) ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.read(path)
}

func (v *Vfs) read(path string) ([]byte, error) {
	data, err := v.backend.Read(path)
	if err != nil {
		return nil, err
	}
	if v.autoWatch {
		_ = v.backend.Watch(path)
	}
	v.cache.Insert(path, &Item{IsFile: true, Contents: data, HasRead: true})
	return data, nil
}

// ReadToString reads path and returns it as a string.
func (v *Vfs) ReadToString(path string) (string, error) {
	data, err := v.Read(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadToStringLFNormalized reads path and replaces every CRLF pair
// with a bare LF, per the façade's documented normalization behavior.
func (v *Vfs) ReadToStringLFNormalized(path string) (string, error) {
	s, err := v.ReadToString(path)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}

func (v *Vfs) Write(path string, contents []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.Write(path, contents); err != nil {
		return err
	}
	v.cache.Insert(path, &Item{IsFile: true, Contents: contents, HasRead: true})
	return nil
}

func (v *Vfs) ReadDir(path string) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.readDir(path)
}

func (v *Vfs) readDir(path string) ([]string, error) {
	children, err := v.backend.ReadDir(path)
	if err != nil {
		return nil, err
	}
	if v.autoWatch {
		_ = v.backend.Watch(path)
	}
	v.cache.Insert(path, &Item{IsFile: false, ChildrenEnumerated: true})
	return children, nil
}

func (v *Vfs) Metadata(path string) (Metadata, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.metadata(path)
}

func (v *Vfs) metadata(path string) (Metadata, error) {
	return v.backend.Metadata(path)
}

func (v *Vfs) Exists(path string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.exists(path)
}

func (v *Vfs) exists(path string) (bool, error) {
	ok, err := v.backend.Exists(path)
	if err != nil {
		return false, err
	}
	if ok && v.autoWatch {
		_ = v.backend.Watch(path)
	}
	return ok, nil
}

func (v *Vfs) CreateDir(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.CreateDir(path); err != nil {
		return err
	}
	v.cache.Insert(path, &Item{IsFile: false})
	return nil
}

func (v *Vfs) CreateDirAll(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.CreateDirAll(path); err != nil {
		return err
	}
	v.cache.Insert(path, &Item{IsFile: false})
	return nil
}

func (v *Vfs) RemoveFile(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.RemoveFile(path); err != nil {
		return err
	}
	_ = v.backend.Unwatch(path)
	v.cache.Remove(path)
	return nil
}

func (v *Vfs) RemoveDirAll(path string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.backend.RemoveDirAll(path); err != nil {
		return err
	}
	_ = v.backend.Unwatch(path)
	v.cache.Remove(path)
	return nil
}

func (v *Vfs) Canonicalize(path string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.backend.Canonicalize(path)
}

// IsResident reports whether path is present in the cache, or whether
// its parent is a fully-enumerated directory entry in the cache —
// the residency rule this façade's lazy cache semantics are defined
// against.
func (v *Vfs) IsResident(path string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isResident(path)
}

func (v *Vfs) isResident(path string) bool {
	if v.cache.Contains(path) {
		return true
	}
	parent := parentPath(path)
	if parent == "" {
		return false
	}
	if item, ok := v.cache.Get(parent); ok && !item.IsFile && item.ChildrenEnumerated {
		return true
	}
	return false
}

func parentPath(path string) string {
	i := strings.LastIndexByte(path, '/')
	if i <= 0 {
		return ""
	}
	return path[:i]
}

// CommitChange is the single integration point for reacting to a raw
// backend Event: only the change processor should call this. It
// re-probes the backend and updates the cache per the residency rules
// in spec.md §4.B ("lazy cache semantics").
func (v *Vfs) CommitChange(ev Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.isResident(ev.Path) {
		return
	}

	meta, err := v.backend.Metadata(ev.Path)
	if err != nil {
		// Treat any error (including NotFound) as removal.
		v.cache.Remove(ev.Path)
		return
	}

	existing, had := v.cache.Get(ev.Path)
	if meta.IsFile {
		v.cache.Insert(ev.Path, &Item{IsFile: true})
		return
	}
	// Directory: if it was previously a file, or wasn't cached, reset
	// children_enumerated; if it was already a directory entry, leave
	// its enumeration state for the next explicit ReadDir.
	if !had || existing.IsFile {
		v.cache.Insert(ev.Path, &Item{IsFile: false, ChildrenEnumerated: false})
	}
}

// CachedItem exposes the current cache entry for path, if any —
// used by tests to assert on cache state
// without reaching into the backend.
func (v *Vfs) CachedItem(path string) (*Item, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cache.Get(path)
}
