// Package tree implements the authoritative, live object tree: an
// arena of instances, Rojo-specific metadata kept in lockstep with
// each instance, and a path→Refs reverse index backed by roaring
// bitmaps for O(k) lookup of every instance whose instigating source
// is a given path.
package tree

import (
	"sort"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

// Instance is one arena slot: instance data plus parent/children
// wiring. It deliberately excludes Metadata, which lives in a sibling
// map, matching the "mapping<Ref, InstanceMetadata> sibling to the
// tree" data-model note.
type Instance struct {
	Name       string
	ClassName  string
	Properties map[string]variant.Value
	Children   []ref.Ref
	Parent     ref.Ref
}

// Tree is the authoritative object tree. All mutation happens through
// InsertInstance/RemoveInstance and the SetProperties/Rename/
// SetClassName/SetMetadata updaters; readers take a
// snapshot of the fields they need under the lock via GetInstance.
type Tree struct {
	mu sync.RWMutex

	root ref.Ref

	instances map[ref.Ref]*Instance
	metadata  map[ref.Ref]*snapshot.Metadata

	// Reverse path index: bitmap of interned instance ids per path,
	// mirroring MemoryStore.fileToNodes/indexNode/DeleteFileNodes in
	// this repo's bitmap-indexing lineage, adapted from content nodes
	// to instance Refs.
	pathBitmaps map[string]*roaring.Bitmap
	intID       map[ref.Ref]uint32
	idByInt     []ref.Ref
	nextIntID   uint32
}

// New constructs a tree whose root takes rootInstance's name and class
// and rootMetadata; rootInstance's properties and children are not
// copied.
func New(rootInstance *snapshot.Instance, rootMetadata snapshot.Metadata) *Tree {
	t := &Tree{
		instances:   make(map[ref.Ref]*Instance),
		metadata:    make(map[ref.Ref]*snapshot.Metadata),
		pathBitmaps: make(map[string]*roaring.Bitmap),
		intID:       make(map[ref.Ref]uint32),
	}
	rootRef := ref.New()
	t.root = rootRef
	t.instances[rootRef] = &Instance{
		Name:      rootInstance.Name,
		ClassName: rootInstance.ClassName,
		Parent:    ref.None,
	}
	md := rootMetadata
	t.metadata[rootRef] = &md
	t.indexMetadata(rootRef, &md)
	return t
}

// RootID returns the tree's root Ref.
func (t *Tree) RootID() ref.Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// GetInstance returns a copy of the instance's public view, or false
// if id is absent.
func (t *Tree) GetInstance(id ref.Ref) (Instance, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	inst, ok := t.instances[id]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// GetMetadata returns a copy of id's metadata, or false if absent.
func (t *Tree) GetMetadata(id ref.Ref) (snapshot.Metadata, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	md, ok := t.metadata[id]
	if !ok {
		return snapshot.Metadata{}, false
	}
	return *md, true
}

// InsertInstance mints a new Ref, wires it under parent, records its
// metadata, and updates the path index from the metadata's
// instigating source. It returns ref.None if parent does not exist.
func (t *Tree) InsertInstance(name, className string, md snapshot.Metadata, parent ref.Ref) ref.Ref {
	t.mu.Lock()
	defer t.mu.Unlock()

	parentInst, ok := t.instances[parent]
	if !ok {
		return ref.None
	}

	id := ref.New()
	t.instances[id] = &Instance{Name: name, ClassName: className, Parent: parent}
	parentInst.Children = append(parentInst.Children, id)

	mdCopy := md
	t.metadata[id] = &mdCopy
	t.indexMetadata(id, &mdCopy)

	return id
}

// SetProperties replaces id's property map wholesale. Individual
// property updates go through the patch engine, which computes the
// merged map before calling this.
func (t *Tree) SetProperties(id ref.Ref, props map[string]variant.Value) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	inst, ok := t.instances[id]
	if !ok {
		return false
	}
	inst.Properties = props
	return true
}

// Rename changes id's name.
func (t *Tree) Rename(id ref.Ref, name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	inst, ok := t.instances[id]
	if !ok {
		return false
	}
	inst.Name = name
	return true
}

// SetClassName changes id's class.
func (t *Tree) SetClassName(id ref.Ref, className string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	inst, ok := t.instances[id]
	if !ok {
		return false
	}
	inst.ClassName = className
	return true
}

// SetMetadata replaces id's metadata and refreshes the path index.
func (t *Tree) SetMetadata(id ref.Ref, md snapshot.Metadata) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.instances[id]; !ok {
		return false
	}
	t.unindexMetadata(id)
	mdCopy := md
	t.metadata[id] = &mdCopy
	t.indexMetadata(id, &mdCopy)
	return true
}

// RemoveInstance detaches id from its parent and removes it along with
// every descendant, returning the set of removed Refs in depth-first
// order (deepest removals are not guaranteed before shallower ones;
// callers needing a specific tear-down order should sort further).
func (t *Tree) RemoveInstance(id ref.Ref) []ref.Ref {
	t.mu.Lock()
	defer t.mu.Unlock()

	inst, ok := t.instances[id]
	if !ok {
		return nil
	}

	if inst.Parent != ref.None {
		if parentInst, ok := t.instances[inst.Parent]; ok {
			parentInst.Children = removeRef(parentInst.Children, id)
		}
	}

	var removed []ref.Ref
	var walk func(ref.Ref)
	walk = func(r ref.Ref) {
		n, ok := t.instances[r]
		if !ok {
			return
		}
		children := append([]ref.Ref(nil), n.Children...)
		removed = append(removed, r)
		t.unindexMetadata(r)
		delete(t.metadata, r)
		delete(t.instances, r)
		for _, c := range children {
			walk(c)
		}
	}
	walk(id)

	return removed
}

// GetIDsAtPath returns every Ref whose instigating-source path equals
// path, via the bitmap reverse index — O(k) in the number of matches,
// not in tree size.
func (t *Tree) GetIDsAtPath(path string) []ref.Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()

	bm, ok := t.pathBitmaps[path]
	if !ok {
		return nil
	}
	out := make([]ref.Ref, 0, bm.GetCardinality())
	it := bm.Iterator()
	for it.HasNext() {
		intID := it.Next()
		if int(intID) < len(t.idByInt) {
			out = append(out, t.idByInt[intID])
		}
	}
	return out
}

// Descendants returns every descendant of id, breadth-first.
func (t *Tree) Descendants(id ref.Ref) []ref.Ref {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []ref.Ref
	queue := []ref.Ref{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		inst, ok := t.instances[cur]
		if !ok {
			continue
		}
		for _, c := range inst.Children {
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

func (t *Tree) intern(id ref.Ref) uint32 {
	if n, ok := t.intID[id]; ok {
		return n
	}
	n := t.nextIntID
	t.nextIntID++
	t.intID[id] = n
	t.idByInt = append(t.idByInt, id)
	return n
}

// indexMetadata indexes id under its instigating source's path,
// whichever kind that source is: a ProjectNode source's Path names the
// project file it came from, so a change to that file finds every
// plain (non-$path) node it declared, not just the project root —
// mirroring the original tree's single path_to_ids multimap keyed by
// InstigatingSource's common path field regardless of variant.
func (t *Tree) indexMetadata(id ref.Ref, md *snapshot.Metadata) {
	if md.InstigatingSource.Kind == snapshot.SourceNone || md.InstigatingSource.Path == "" {
		return
	}
	path := md.InstigatingSource.Path
	bm, ok := t.pathBitmaps[path]
	if !ok {
		bm = roaring.New()
		t.pathBitmaps[path] = bm
	}
	bm.Add(t.intern(id))
}

func (t *Tree) unindexMetadata(id ref.Ref) {
	md, ok := t.metadata[id]
	if !ok || md.InstigatingSource.Kind == snapshot.SourceNone || md.InstigatingSource.Path == "" {
		return
	}
	if n, ok := t.intID[id]; ok {
		if bm, ok := t.pathBitmaps[md.InstigatingSource.Path]; ok {
			bm.Remove(n)
			if bm.IsEmpty() {
				delete(t.pathBitmaps, md.InstigatingSource.Path)
			}
		}
	}
}

func removeRef(refs []ref.Ref, target ref.Ref) []ref.Ref {
	out := refs[:0]
	for _, r := range refs {
		if r != target {
			out = append(out, r)
		}
	}
	return out
}

// DebugPaths returns the sorted list of paths currently indexed, for
// tests.
func (t *Tree) DebugPaths() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.pathBitmaps))
	for p := range t.pathBitmaps {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
