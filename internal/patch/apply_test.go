package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

// Mirrors patch_apply.rs's add_from_empty.
func TestApplyAddFromEmpty(t *testing.T) {
	tr, rootID := newTestTree()

	child := snapshot.New("Foo", "Bar")
	child.SetProperty("Baz", variant.Int32(5))

	ps := &snapshot.PatchSet{Added: []snapshot.AddedInstance{{Parent: rootID, Instance: child}}}
	applied := Apply(tr, ps)

	require.Len(t, applied.Added, 1)
	childID := applied.Added[0]

	inst, ok := tr.GetInstance(childID)
	require.True(t, ok)
	assert.Equal(t, "Foo", inst.Name)
	assert.Equal(t, "Bar", inst.ClassName)
	assert.Equal(t, variant.Int32(5), inst.Properties["Baz"])
	assert.Empty(t, inst.Children)

	root, _ := tr.GetInstance(rootID)
	assert.Equal(t, []ref.Ref{childID}, root.Children)
}

// Mirrors patch_apply.rs's update_existing.
func TestApplyUpdateExisting(t *testing.T) {
	tr, rootID := newTestTree()
	tr.SetProperties(rootID, map[string]variant.Value{
		"Foo":       variant.Int32(7),
		"Bar":       variant.Int32(3),
		"Unchanged": variant.Int32(-5),
	})

	name := "Foo"
	className := "NewClassName"
	ps := &snapshot.PatchSet{
		Updated: []snapshot.UpdatedInstance{{
			ID:               rootID,
			ChangedName:      &name,
			ChangedClassName: &className,
			ChangedProperties: map[string]variant.Value{
				"Foo": variant.Int32(8),
				"Bar": nil,
				"Baz": variant.Int32(10),
			},
		}},
	}

	applied := Apply(tr, ps)
	assert.Equal(t, []ref.Ref{rootID}, applied.Updated)

	inst, ok := tr.GetInstance(rootID)
	require.True(t, ok)
	assert.Equal(t, "Foo", inst.Name)
	assert.Equal(t, "NewClassName", inst.ClassName)
	assert.Equal(t, map[string]variant.Value{
		"Foo":       variant.Int32(8),
		"Baz":       variant.Int32(10),
		"Unchanged": variant.Int32(-5),
	}, inst.Properties)
}

func TestApplyRemoveCascades(t *testing.T) {
	tr, rootID := newTestTree()
	parent := tr.InsertInstance("Parent", "Folder", snapshot.Metadata{}, rootID)
	tr.InsertInstance("Child", "Folder", snapshot.Metadata{}, parent)

	ps := &snapshot.PatchSet{Removed: []ref.Ref{parent}}
	applied := Apply(tr, ps)

	assert.Equal(t, []ref.Ref{parent}, applied.Removed)
	_, ok := tr.GetInstance(parent)
	assert.False(t, ok)
}

func TestApplyAddResolvesRefBetweenSiblingsAddedTogether(t *testing.T) {
	tr, rootID := newTestTree()

	a := snapshot.New("A", "Folder")
	a.SnapshotID = "snap-a"
	b := snapshot.New("B", "Folder")
	b.SetProperty("Other", variant.Ref{Snapshot: "snap-a"})

	ps := &snapshot.PatchSet{Added: []snapshot.AddedInstance{
		{Parent: rootID, Instance: a},
		{Parent: rootID, Instance: b},
	}}
	applied := Apply(tr, ps)
	require.Len(t, applied.Added, 2)

	aID := applied.Added[0]
	bInst, ok := tr.GetInstance(applied.Added[1])
	require.True(t, ok)
	otherRef, ok := bInst.Properties["Other"].(variant.Ref)
	require.True(t, ok)
	assert.True(t, otherRef.HasLive)
	assert.Equal(t, aID, otherRef.Resolved)
}

// A forward reference: B is added before A in the patch, but points
// at A's snapshot id. Since property application is deferred until
// every addition in the patch has a live ref, this must still
// resolve — this is invariant 4 / testable property 4.
func TestApplyAddResolvesForwardRefToLaterSibling(t *testing.T) {
	tr, rootID := newTestTree()

	a := snapshot.New("A", "Folder")
	a.SnapshotID = "snap-a"
	b := snapshot.New("B", "Folder")
	b.SetProperty("Other", variant.Ref{Snapshot: "snap-a"})

	ps := &snapshot.PatchSet{Added: []snapshot.AddedInstance{
		{Parent: rootID, Instance: b},
		{Parent: rootID, Instance: a},
	}}
	applied := Apply(tr, ps)
	require.Len(t, applied.Added, 2)

	aID := applied.Added[1]
	bInst, ok := tr.GetInstance(applied.Added[0])
	require.True(t, ok)
	otherRef, ok := bInst.Properties["Other"].(variant.Ref)
	require.True(t, ok)
	assert.True(t, otherRef.HasLive)
	assert.Equal(t, aID, otherRef.Resolved)
}

// A parent references a child added beneath it in the same subtree:
// properties are deferred past the full depth-first insert walk, so
// this resolves too.
func TestApplyAddResolvesRefToOwnDescendant(t *testing.T) {
	tr, rootID := newTestTree()

	child := snapshot.New("Child", "Folder")
	child.SnapshotID = "snap-child"

	parent := snapshot.New("Parent", "Folder")
	parent.SetProperty("Other", variant.Ref{Snapshot: "snap-child"})
	parent.Children = []*snapshot.Instance{child}

	ps := &snapshot.PatchSet{Added: []snapshot.AddedInstance{{Parent: rootID, Instance: parent}}}
	applied := Apply(tr, ps)
	require.Len(t, applied.Added, 1)

	parentID := applied.Added[0]
	parentInst, ok := tr.GetInstance(parentID)
	require.True(t, ok)
	require.Len(t, parentInst.Children, 1)
	childID := parentInst.Children[0]

	otherRef, ok := parentInst.Properties["Other"].(variant.Ref)
	require.True(t, ok)
	assert.True(t, otherRef.HasLive)
	assert.Equal(t, childID, otherRef.Resolved)
}
