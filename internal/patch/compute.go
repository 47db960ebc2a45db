// Package patch implements the patch-set algebra described in
// spec.md §4.G: diffing a freshly middleware-produced snapshot against
// the live tree, and applying the result back into the tree. Grounded
// on original_source's snapshot/patch_compute.rs and
// snapshot/patch_apply.rs, adapted from rbx_dom_weak's RojoTree to this
// module's tree.Tree/snapshot.Instance types.
package patch

import (
	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/tree"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

// computeContext carries the snapshot-id -> live-ref correlations
// discovered while walking a snapshot against the tree, used at the
// end of Compute to rewrite any Ref property that pointed at a
// snapshot-local id into the real tree Ref.
type computeContext struct {
	snapshotIDToRef map[string]ref.Ref
}

// Compute diffs snap (the freshly produced snapshot rooted at id)
// against the live tree, returning a roughly-minimal PatchSet. A nil
// snap means the instigating source disappeared: id (unless it is the
// tree root) is queued for removal.
func Compute(snap *snapshot.Instance, t *tree.Tree, id ref.Ref) *snapshot.PatchSet {
	ps := &snapshot.PatchSet{}

	if snap == nil {
		if id != t.RootID() {
			ps.Removed = append(ps.Removed, id)
		}
		return ps
	}

	ctx := &computeContext{snapshotIDToRef: make(map[string]ref.Ref)}
	computeInternal(ctx, snap, t, id, ps)

	rewriteRefsInUpdates(ctx, ps.Updated)
	rewriteRefsInAdditions(ctx, ps.Added)

	return ps
}

func computeInternal(ctx *computeContext, snap *snapshot.Instance, t *tree.Tree, id ref.Ref, ps *snapshot.PatchSet) {
	if snap.SnapshotID != "" {
		ctx.snapshotIDToRef[snap.SnapshotID] = id
	}

	inst, ok := t.GetInstance(id)
	if !ok {
		// The tree mutated out from under this walk (concurrent removal);
		// nothing more can be diffed at this node.
		return
	}
	md, _ := t.GetMetadata(id)

	computePropertyPatches(snap, inst, md, id, ps)
	computeChildrenPatches(ctx, snap, t, id, inst, ps)
}

func computePropertyPatches(snap *snapshot.Instance, inst tree.Instance, md snapshot.Metadata, id ref.Ref, ps *snapshot.PatchSet) {
	var changedName *string
	if snap.Name != inst.Name {
		name := snap.Name
		changedName = &name
	}

	var changedClassName *string
	if snap.ClassName != inst.ClassName {
		className := snap.ClassName
		changedClassName = &className
	}

	var changedMetadata *snapshot.Metadata
	if !metadataEqual(snap.Metadata, md) {
		mdCopy := snap.Metadata
		changedMetadata = &mdCopy
	}

	visited := make(map[string]bool, len(snap.Properties))
	changedProperties := make(map[string]variant.Value)

	for name, snapValue := range snap.Properties {
		visited[name] = true
		instValue, ok := inst.Properties[name]
		if !ok || !valuesEqual(snapValue, instValue) {
			changedProperties[name] = snapValue
		}
	}
	for name := range inst.Properties {
		if visited[name] {
			continue
		}
		changedProperties[name] = nil
	}

	if len(changedProperties) == 0 && changedName == nil && changedClassName == nil && changedMetadata == nil {
		return
	}

	ps.Updated = append(ps.Updated, snapshot.UpdatedInstance{
		ID:                id,
		ChangedName:       changedName,
		ChangedClassName:  changedClassName,
		ChangedProperties: changedProperties,
		ChangedMetadata:   changedMetadata,
	})
}

func computeChildrenPatches(ctx *computeContext, snap *snapshot.Instance, t *tree.Tree, id ref.Ref, inst tree.Instance, ps *snapshot.PatchSet) {
	paired := make([]bool, len(inst.Children))

	for _, snapChild := range snap.Children {
		matchedIndex := -1
		for i, childID := range inst.Children {
			if paired[i] {
				continue
			}
			childInst, ok := t.GetInstance(childID)
			if !ok {
				continue
			}
			if snapChild.Name == childInst.Name && snapChild.ClassName == childInst.ClassName {
				paired[i] = true
				matchedIndex = i
				break
			}
		}

		if matchedIndex >= 0 {
			computeInternal(ctx, snapChild, t, inst.Children[matchedIndex], ps)
			continue
		}

		ps.Added = append(ps.Added, snapshot.AddedInstance{
			Parent:   id,
			Instance: snapChild,
		})
	}

	for i, childID := range inst.Children {
		if paired[i] {
			continue
		}
		ps.Removed = append(ps.Removed, childID)
	}
}

func valuesEqual(a, b variant.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(b)
}

func metadataEqual(a, b snapshot.Metadata) bool {
	if a.IgnoreUnknownInstances != b.IgnoreUnknownInstances {
		return false
	}
	if a.Middleware != b.Middleware {
		return false
	}
	if a.SpecifiedID != b.SpecifiedID {
		return false
	}
	if a.InstigatingSource.Kind != b.InstigatingSource.Kind {
		return false
	}
	if a.InstigatingSource.Path != b.InstigatingSource.Path {
		return false
	}
	if len(a.InstigatingSource.ProjectPath) != len(b.InstigatingSource.ProjectPath) {
		return false
	}
	for i := range a.InstigatingSource.ProjectPath {
		if a.InstigatingSource.ProjectPath[i] != b.InstigatingSource.ProjectPath[i] {
			return false
		}
	}
	return true
}

func rewriteRefsInUpdates(ctx *computeContext, updates []snapshot.UpdatedInstance) {
	for i := range updates {
		for name, value := range updates[i].ChangedProperties {
			if r, ok := value.(variant.Ref); ok && !r.HasLive {
				if liveRef, ok := ctx.snapshotIDToRef[r.Snapshot]; ok {
					updates[i].ChangedProperties[name] = variant.Ref{Resolved: liveRef, HasLive: true}
				}
			}
		}
	}
}

func rewriteRefsInAdditions(ctx *computeContext, additions []snapshot.AddedInstance) {
	for i := range additions {
		rewriteRefsInSnapshot(ctx, additions[i].Instance)
	}
}

func rewriteRefsInSnapshot(ctx *computeContext, snap *snapshot.Instance) {
	for name, value := range snap.Properties {
		if r, ok := value.(variant.Ref); ok && !r.HasLive {
			if liveRef, ok := ctx.snapshotIDToRef[r.Snapshot]; ok {
				snap.Properties[name] = variant.Ref{Resolved: liveRef, HasLive: true}
			}
		}
	}
	for _, child := range snap.Children {
		rewriteRefsInSnapshot(ctx, child)
	}
}
