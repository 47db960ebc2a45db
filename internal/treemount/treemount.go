// Package treemount exposes a live instance tree as a read-only
// billy.Filesystem, for local inspection via NFS or FUSE loopback
// mounts rather than the change-processor's file-facing Vfs. This is
// a debugging aid, not a sync path: nothing written here ever reaches
// internal/patch or internal/changeprocessor. Grounded on
// internal/nfsmount/graphfs.go's billy.Filesystem adaptation of a
// different in-memory source (mache's graph.Graph), carrying over its
// method set and virtual-file conventions (there, "_schema.json"; here,
// a per-instance "_meta.json" sidecar) but trimmed to read-only, since
// a tree mount has no source files to splice writes back into.
package treemount

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/helper/chroot"
	"github.com/ohler55/ojg/oj"

	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/tree"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

var errReadOnly = fmt.Errorf("tree mount is read-only")

// scriptProperty names the property rendered as a leaf instance's file
// content for the class names that carry source text; everything else
// falls back to an empty file, with its properties still visible via
// _meta.json.
var scriptProperty = map[string]string{
	"Script":       "Source",
	"LocalScript":  "Source",
	"ModuleScript": "Source",
}

// TreeFS adapts a *tree.Tree to billy.Filesystem: each instance with
// children is a directory, each leaf instance is a file, and every
// instance additionally exposes a "<name>_meta.json" sidecar in its
// parent directory carrying its class name and properties.
type TreeFS struct {
	tree      *tree.Tree
	mountTime time.Time
}

// New wraps t for mounting.
func New(t *tree.Tree) *TreeFS {
	return &TreeFS{tree: t, mountTime: time.Now()}
}

const metaSuffix = "_meta.json"

func cleanPath(p string) string {
	p = filepath.Clean("/" + p)
	if p == "." {
		return "/"
	}
	return p
}

// resolve walks p's segments from the tree root, matching each against
// child instance names. It returns ref.None, false if any segment
// can't be found.
func (fs *TreeFS) resolve(p string) (ref.Ref, tree.Instance, bool) {
	p = cleanPath(p)
	id := fs.tree.RootID()
	inst, ok := fs.tree.GetInstance(id)
	if !ok {
		return ref.None, tree.Instance{}, false
	}
	if p == "/" {
		return id, inst, true
	}
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for _, seg := range segments {
		var next ref.Ref
		found := false
		for _, childID := range inst.Children {
			child, ok := fs.tree.GetInstance(childID)
			if ok && child.Name == seg {
				next = childID
				inst = child
				found = true
				break
			}
		}
		if !found {
			return ref.None, tree.Instance{}, false
		}
		id = next
	}
	return id, inst, true
}

// resolveMeta handles the "<name>_meta.json" sidecar convention: it
// strips the suffix, resolves the remaining path as an instance under
// the same parent, and reports whether p actually named a sidecar.
func (fs *TreeFS) resolveMeta(p string) (tree.Instance, bool, bool) {
	p = cleanPath(p)
	base := filepath.Base(p)
	if !strings.HasSuffix(base, metaSuffix) || p == "/" {
		return tree.Instance{}, false, false
	}
	instName := strings.TrimSuffix(base, metaSuffix)
	siblingPath := filepath.Join(filepath.Dir(p), instName)
	_, inst, ok := fs.resolve(siblingPath)
	return inst, ok, true
}

func metaContent(inst tree.Instance) ([]byte, error) {
	props := make(map[string]any, len(inst.Properties))
	for name, val := range inst.Properties {
		props[name] = displayValue(val)
	}
	return oj.Marshal(map[string]any{
		"className":  inst.ClassName,
		"name":       inst.Name,
		"properties": props,
	})
}

// displayValue renders a variant.Value as a plain JSON-able value for
// _meta.json; it's a display-only projection, not the ambiguous-value
// wire encoding internal/resolve round-trips.
func displayValue(v variant.Value) any {
	switch t := v.(type) {
	case variant.String:
		return string(t)
	case variant.Bool:
		return bool(t)
	case variant.Float32:
		return float32(t)
	case variant.Float64:
		return float64(t)
	case variant.Int32:
		return int32(t)
	case variant.Int64:
		return int64(t)
	case variant.Vector3:
		return map[string]any{"x": t.X, "y": t.Y, "z": t.Z}
	case variant.Vector2:
		return map[string]any{"x": t.X, "y": t.Y}
	case variant.Color3:
		return map[string]any{"r": t.R, "g": t.G, "b": t.B}
	case variant.Ref:
		if t.HasLive {
			return t.Resolved.String()
		}
		return nil
	default:
		return fmt.Sprintf("%v", v)
	}
}

func fileContent(inst tree.Instance) []byte {
	propName, ok := scriptProperty[inst.ClassName]
	if !ok {
		return nil
	}
	val, ok := inst.Properties[propName]
	if !ok {
		return nil
	}
	if s, ok := val.(variant.String); ok {
		return []byte(s)
	}
	return nil
}

func isLeaf(inst tree.Instance) bool {
	return len(inst.Children) == 0
}

// --- billy.Basic ---

func (fs *TreeFS) Create(string) (billy.File, error) { return nil, errReadOnly }

func (fs *TreeFS) Open(filename string) (billy.File, error) {
	return fs.OpenFile(filename, os.O_RDONLY, 0)
}

func (fs *TreeFS) OpenFile(filename string, flag int, _ os.FileMode) (billy.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, errReadOnly
	}
	filename = cleanPath(filename)

	if inst, ok, isMeta := fs.resolveMeta(filename); isMeta {
		if !ok {
			return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
		}
		data, err := metaContent(inst)
		if err != nil {
			return nil, err
		}
		return &bytesFile{name: filepath.Base(filename), data: data}, nil
	}

	_, inst, ok := fs.resolve(filename)
	if !ok {
		return nil, &os.PathError{Op: "open", Path: filename, Err: os.ErrNotExist}
	}
	if !isLeaf(inst) {
		return nil, &os.PathError{Op: "open", Path: filename, Err: fmt.Errorf("is a directory")}
	}
	return &bytesFile{name: inst.Name, data: fileContent(inst)}, nil
}

func (fs *TreeFS) Stat(filename string) (os.FileInfo, error) {
	return fs.Lstat(filename)
}

func (fs *TreeFS) Rename(string, string) error { return errReadOnly }
func (fs *TreeFS) Remove(string) error         { return errReadOnly }

func (fs *TreeFS) Join(elem ...string) string {
	return filepath.Join(elem...)
}

// --- billy.TempFile ---

func (fs *TreeFS) TempFile(string, string) (billy.File, error) {
	return nil, billy.ErrNotSupported
}

// --- billy.Dir ---

func (fs *TreeFS) ReadDir(p string) ([]os.FileInfo, error) {
	p = cleanPath(p)
	_, inst, ok := fs.resolve(p)
	if !ok {
		return nil, &os.PathError{Op: "readdir", Path: p, Err: os.ErrNotExist}
	}
	infos := make([]os.FileInfo, 0, len(inst.Children)*2)
	for _, childID := range inst.Children {
		child, ok := fs.tree.GetInstance(childID)
		if !ok {
			continue
		}
		infos = append(infos, instanceFileInfo(child, fs.mountTime))
		metaData, err := metaContent(child)
		if err == nil {
			infos = append(infos, &staticFileInfo{
				name:    child.Name + metaSuffix,
				size:    int64(len(metaData)),
				mode:    0o444,
				modTime: fs.mountTime,
			})
		}
	}
	return infos, nil
}

func (fs *TreeFS) MkdirAll(string, os.FileMode) error { return errReadOnly }

// --- billy.Symlink ---

func (fs *TreeFS) Lstat(filename string) (os.FileInfo, error) {
	filename = cleanPath(filename)
	if filename == "/" {
		return &staticFileInfo{name: "/", mode: os.ModeDir | 0o555, modTime: fs.mountTime}, nil
	}

	if inst, ok, isMeta := fs.resolveMeta(filename); isMeta {
		if !ok {
			return nil, &os.PathError{Op: "lstat", Path: filename, Err: os.ErrNotExist}
		}
		data, err := metaContent(inst)
		if err != nil {
			return nil, err
		}
		return &staticFileInfo{
			name:    filepath.Base(filename),
			size:    int64(len(data)),
			mode:    0o444,
			modTime: fs.mountTime,
		}, nil
	}

	_, inst, ok := fs.resolve(filename)
	if !ok {
		return nil, &os.PathError{Op: "lstat", Path: filename, Err: os.ErrNotExist}
	}
	return instanceFileInfo(inst, fs.mountTime), nil
}

func (fs *TreeFS) Symlink(string, string) error    { return billy.ErrNotSupported }
func (fs *TreeFS) Readlink(string) (string, error) { return "", billy.ErrNotSupported }

// --- billy.Chroot ---

func (fs *TreeFS) Chroot(path string) (billy.Filesystem, error) {
	return chroot.New(fs, path), nil
}

func (fs *TreeFS) Root() string { return "/" }

// --- billy.Capable ---

func (fs *TreeFS) Capabilities() billy.Capability {
	return billy.ReadCapability | billy.SeekCapability
}

func instanceFileInfo(inst tree.Instance, mountTime time.Time) os.FileInfo {
	if !isLeaf(inst) {
		return &staticFileInfo{name: inst.Name, mode: os.ModeDir | 0o555, modTime: mountTime}
	}
	content := fileContent(inst)
	return &staticFileInfo{
		name:    inst.Name,
		size:    int64(len(content)),
		mode:    0o444,
		modTime: mountTime,
	}
}

type staticFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
}

func (fi *staticFileInfo) Name() string       { return fi.name }
func (fi *staticFileInfo) Size() int64        { return fi.size }
func (fi *staticFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *staticFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *staticFileInfo) IsDir() bool        { return fi.mode.IsDir() }
func (fi *staticFileInfo) Sys() interface{}   { return nil }

var (
	_ billy.Filesystem = (*TreeFS)(nil)
	_ billy.Capable    = (*TreeFS)(nil)
	_ error            = errReadOnly
)
