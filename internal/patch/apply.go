package patch

import (
	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/tree"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

// applyContext correlates snapshot-local ids to the live refs minted
// while applying additions, so sibling properties within the same
// patch that reference a just-created instance resolve correctly.
type applyContext struct {
	snapshotIDToRef map[string]ref.Ref
}

// pendingAdd carries the live ref minted for one added instance and
// its not-yet-applied properties, deferred until every instance in
// the patch has been inserted and assigned a ref.
type pendingAdd struct {
	id    ref.Ref
	props map[string]variant.Value
}

// Apply applies ps to t in the fixed order spec.md §4.G mandates:
// removals, then additions, then updates. Additions happen in two
// passes — first every added instance in the subtree is inserted
// (depth-first, so a child's parent always exists when it is
// inserted) with no properties set, fully populating the
// snapshot-id -> live-ref map; only then are properties applied, so a
// Ref property pointing at a sibling or descendant added later in the
// same patch resolves correctly instead of being left unresolved. It
// returns the set of refs actually touched, for the change processor
// to report upstream.
func Apply(t *tree.Tree, ps *snapshot.PatchSet) snapshot.AppliedPatchSet {
	applied := snapshot.AppliedPatchSet{}
	ctx := &applyContext{snapshotIDToRef: make(map[string]ref.Ref)}

	for _, id := range ps.Removed {
		if t.RemoveInstance(id) != nil {
			applied.Removed = append(applied.Removed, id)
		}
	}

	var pending []pendingAdd
	for _, add := range ps.Added {
		id := applyAddChild(ctx, t, add.Parent, add.Instance, &pending)
		if id != ref.None {
			applied.Added = append(applied.Added, id)
		}
	}
	for _, p := range pending {
		props := make(map[string]variant.Value, len(p.props))
		for name, value := range p.props {
			props[name] = resolveAddedRef(ctx, value)
		}
		t.SetProperties(p.id, props)
	}

	for _, upd := range ps.Updated {
		if applyUpdateChild(ctx, t, upd) {
			applied.Updated = append(applied.Updated, upd.ID)
		}
	}

	return applied
}

func applyAddChild(ctx *applyContext, t *tree.Tree, parent ref.Ref, snap *snapshot.Instance, pending *[]pendingAdd) ref.Ref {
	id := t.InsertInstance(snap.Name, snap.ClassName, snap.Metadata, parent)
	if id == ref.None {
		return ref.None
	}

	if snap.SnapshotID != "" {
		ctx.snapshotIDToRef[snap.SnapshotID] = id
	}

	if len(snap.Properties) > 0 {
		*pending = append(*pending, pendingAdd{id: id, props: snap.Properties})
	}

	for _, child := range snap.Children {
		applyAddChild(ctx, t, id, child, pending)
	}

	return id
}

func applyUpdateChild(ctx *applyContext, t *tree.Tree, upd snapshot.UpdatedInstance) bool {
	touched := false

	if upd.ChangedName != nil {
		touched = t.Rename(upd.ID, *upd.ChangedName) || touched
	}
	if upd.ChangedClassName != nil {
		touched = t.SetClassName(upd.ID, *upd.ChangedClassName) || touched
	}
	if upd.ChangedMetadata != nil {
		touched = t.SetMetadata(upd.ID, *upd.ChangedMetadata) || touched
	}

	if len(upd.ChangedProperties) > 0 {
		inst, ok := t.GetInstance(upd.ID)
		if !ok {
			return touched
		}
		props := make(map[string]variant.Value, len(inst.Properties))
		for k, v := range inst.Properties {
			props[k] = v
		}
		for name, value := range upd.ChangedProperties {
			if value == nil {
				delete(props, name)
				continue
			}
			props[name] = resolveAddedRef(ctx, value)
		}
		touched = t.SetProperties(upd.ID, props) || touched
	}

	return touched
}

// resolveAddedRef rewrites a Ref property that still points at a
// snapshot-local id into the live ref minted for it earlier in this
// same Apply call, covering refs between two instances added in the
// same patch (compute-time rewriting only resolves refs to
// already-existing instances).
func resolveAddedRef(ctx *applyContext, value variant.Value) variant.Value {
	r, ok := value.(variant.Ref)
	if !ok || r.HasLive {
		return value
	}
	if liveRef, ok := ctx.snapshotIDToRef[r.Snapshot]; ok {
		return variant.Ref{Resolved: liveRef, HasLive: true}
	}
	return value
}
