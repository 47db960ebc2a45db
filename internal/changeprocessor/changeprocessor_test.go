package changeprocessor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rojo-core/internal/middleware"
	"github.com/rojo-rbx/rojo-core/internal/patch"
	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/tree"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]snapshot.AppliedPatchSet
	woken   chan struct{}
}

func newRecordingSink() *recordingSink {
	return &recordingSink{woken: make(chan struct{}, 8)}
}

func (s *recordingSink) Push(patches ...snapshot.AppliedPatchSet) {
	s.mu.Lock()
	s.batches = append(s.batches, patches)
	s.mu.Unlock()
	s.woken <- struct{}{}
}

func (s *recordingSink) all() [][]snapshot.AppliedPatchSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]snapshot.AppliedPatchSet(nil), s.batches...)
}

func buildTestTree(t *testing.T, v *vfs.Vfs, d *middleware.Dispatcher) *tree.Tree {
	t.Helper()
	ctx := &snapshot.Context{}
	rootSnap, err := d.Snapshot(ctx, v, "/")
	require.NoError(t, err)
	require.NotNil(t, rootSnap)

	tr := tree.New(rootSnap, snapshot.Metadata{})
	ps := patch.Compute(rootSnap, tr, tr.RootID())
	patch.Apply(tr, ps)
	return tr
}

func TestChangeProcessorAppliesModification(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/foo.txt", []byte("hello")))

	d := &middleware.Dispatcher{}
	tr := buildTestTree(t, v, d)

	leafID := singleLeaf(t, tr)
	leafInst, ok := tr.GetInstance(leafID)
	require.True(t, ok)
	assert.Equal(t, variant.String("hello"), leafInst.Properties["Value"])

	sink := newRecordingSink()
	cp := Start(tr, v, d, sink)
	defer cp.Stop()

	require.NoError(t, v.Write("/foo.txt", []byte("world")))
	backend.RaiseEvent(vfs.Modified, "/foo.txt")

	select {
	case <-sink.woken:
	case <-time.After(2 * time.Second):
		t.Fatal("change processor never applied the modification")
	}

	leafInst, ok = tr.GetInstance(leafID)
	require.True(t, ok)
	assert.Equal(t, variant.String("world"), leafInst.Properties["Value"])

	batches := sink.all()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 1)
	assert.Contains(t, batches[0][0].Updated, leafID)
}

func TestChangeProcessorAppliesRemoval(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/foo.txt", []byte("hello")))

	d := &middleware.Dispatcher{}
	tr := buildTestTree(t, v, d)
	leafID := singleLeaf(t, tr)

	sink := newRecordingSink()
	cp := Start(tr, v, d, sink)
	defer cp.Stop()

	require.NoError(t, v.RemoveFile("/foo.txt"))
	backend.RaiseEvent(vfs.Removed, "/foo.txt")

	select {
	case <-sink.woken:
	case <-time.After(2 * time.Second):
		t.Fatal("change processor never applied the removal")
	}

	_, ok := tr.GetInstance(leafID)
	assert.False(t, ok)
}

func singleLeaf(t *testing.T, tr *tree.Tree) ref.Ref {
	t.Helper()
	root, ok := tr.GetInstance(tr.RootID())
	require.True(t, ok)
	require.Len(t, root.Children, 1)
	return root.Children[0]
}
