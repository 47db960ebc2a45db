package snapshot

import (
	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

// AddedInstance roots a new subtree under an existing tree Ref. The
// subtree's own descendants live in Instance.Children and are not
// flattened into separate AddedInstance entries; apply_patch_set walks
// them depth-first, minting a fresh tree Ref for each.
type AddedInstance struct {
	Parent   ref.Ref
	Instance *Instance
}

// UpdatedInstance describes a property/name/class/metadata delta
// against an existing tree instance, addressed by Ref. In
// ChangedProperties, a nil value means the property was removed (Apply
// deletes it from the instance); a non-nil value is the new value.
type UpdatedInstance struct {
	ID                ref.Ref
	ChangedName       *string
	ChangedClassName  *string
	ChangedProperties map[string]variant.Value
	ChangedMetadata   *Metadata
}

// PatchSet is the output of compute_patch_set: three ordered kinds of
// change, expressed in terms that may still reference snapshot-local
// ids rather than real tree Refs.
type PatchSet struct {
	Removed []ref.Ref
	Added   []AddedInstance
	Updated []UpdatedInstance
}

func (p *PatchSet) IsEmpty() bool {
	return len(p.Removed) == 0 && len(p.Added) == 0 && len(p.Updated) == 0
}

// AppliedPatchSet is the same three kinds expressed in terms of real
// tree Refs after snapshot ids have been resolved by apply_patch_set;
// it is the unit emitted to subscribers via the message queue.
type AppliedPatchSet struct {
	Removed []ref.Ref
	Added   []ref.Ref
	Updated []ref.Ref
}
