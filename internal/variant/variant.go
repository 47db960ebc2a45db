// Package variant implements the closed set of property value kinds a
// snapshot or tree instance can carry, mirroring Roblox's ambiguous
// value encoding.
package variant

import (
	"math"

	"github.com/rojo-rbx/rojo-core/internal/ref"
)

// Value is any concrete property value. It is a closed interface: only
// the types defined in this package implement it.
type Value interface {
	// Equal reports whether two values represent the same data, used by
	// the patch engine to decide whether a property changed.
	Equal(Value) bool
	// Clone returns an independent copy, since snapshots and tree
	// instances must not alias mutable state.
	Clone() Value
	variantSealed()
}

type String string

func (v String) Equal(o Value) bool { t, ok := o.(String); return ok && v == t }
func (v String) Clone() Value       { return v }
func (String) variantSealed()       {}

type Bool bool

func (v Bool) Equal(o Value) bool { t, ok := o.(Bool); return ok && v == t }
func (v Bool) Clone() Value       { return v }
func (Bool) variantSealed()       {}

type Float32 float32

func (v Float32) Equal(o Value) bool {
	t, ok := o.(Float32)
	return ok && float32(v) == float32(t)
}
func (v Float32) Clone() Value { return v }
func (Float32) variantSealed() {}

type Float64 float64

func (v Float64) Equal(o Value) bool {
	t, ok := o.(Float64)
	return ok && float64(v) == float64(t)
}
func (v Float64) Clone() Value { return v }
func (Float64) variantSealed() {}

type Int32 int32

func (v Int32) Equal(o Value) bool { t, ok := o.(Int32); return ok && v == t }
func (v Int32) Clone() Value       { return v }
func (Int32) variantSealed()       {}

type Int64 int64

func (v Int64) Equal(o Value) bool { t, ok := o.(Int64); return ok && v == t }
func (v Int64) Clone() Value       { return v }
func (Int64) variantSealed()       {}

type Vector2 struct{ X, Y float32 }

func (v Vector2) Equal(o Value) bool { t, ok := o.(Vector2); return ok && v == t }
func (v Vector2) Clone() Value       { return v }
func (Vector2) variantSealed()       {}

type Vector3 struct{ X, Y, Z float32 }

func (v Vector3) Equal(o Value) bool { t, ok := o.(Vector3); return ok && v == t }
func (v Vector3) Clone() Value       { return v }
func (Vector3) variantSealed()       {}

type Color3 struct{ R, G, B float32 }

func (v Color3) Equal(o Value) bool { t, ok := o.(Color3); return ok && v == t }
func (v Color3) Clone() Value       { return v }
func (Color3) variantSealed()       {}

// CFrame is a 3D position plus a 3x3 rotation matrix, stored row-major.
type CFrame struct {
	Position Vector3
	Rotation [9]float32
}

func (v CFrame) Equal(o Value) bool {
	t, ok := o.(CFrame)
	if !ok || !v.Position.Equal(t.Position) {
		return false
	}
	return v.Rotation == t.Rotation
}
func (v CFrame) Clone() Value { return v }
func (CFrame) variantSealed() {}

type Enum uint32

func (v Enum) Equal(o Value) bool { t, ok := o.(Enum); return ok && v == t }
func (v Enum) Clone() Value       { return v }
func (Enum) variantSealed()       {}

// ContentId is an asset URI, e.g. "rbxassetid://123".
type ContentId string

func (v ContentId) Equal(o Value) bool { t, ok := o.(ContentId); return ok && v == t }
func (v ContentId) Clone() Value       { return v }
func (ContentId) variantSealed()       {}

// Content is the newer tagged variant of asset references (uri, html,
// or a raw object reference).
type Content struct {
	Kind string // "uri", "html", "object"
	Data string
}

func (v Content) Equal(o Value) bool { t, ok := o.(Content); return ok && v == t }
func (v Content) Clone() Value       { return v }
func (Content) variantSealed()       {}

type Font struct {
	Family string
	Weight int32
	Style  string
	Cached ContentId
}

func (v Font) Equal(o Value) bool { t, ok := o.(Font); return ok && v == t }
func (v Font) Clone() Value       { return v }
func (Font) variantSealed()       {}

// MaterialColors maps material names to Color3 swatches.
type MaterialColors map[string]Color3

func (v MaterialColors) Equal(o Value) bool {
	t, ok := o.(MaterialColors)
	if !ok || len(v) != len(t) {
		return false
	}
	for k, c := range v {
		oc, ok := t[k]
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}
func (v MaterialColors) Clone() Value {
	out := make(MaterialColors, len(v))
	for k, c := range v {
		out[k] = c
	}
	return out
}
func (MaterialColors) variantSealed() {}

type Tags []string

func (v Tags) Equal(o Value) bool {
	t, ok := o.(Tags)
	if !ok || len(v) != len(t) {
		return false
	}
	for i := range v {
		if v[i] != t[i] {
			return false
		}
	}
	return true
}
func (v Tags) Clone() Value {
	out := make(Tags, len(v))
	copy(out, v)
	return out
}
func (Tags) variantSealed() {}

// Ref is a reference to another instance, encoded ambiguously either as
// a live Ref (post-resolution) or, before resolution, as the attribute
// pair scheme described in spec.md §6.
type Ref struct {
	// Snapshot carries an opaque id local to the snapshot tree being
	// diffed against the live tree; Resolved carries the live tree's
	// 128-bit instance id once known. Exactly one is meaningful at a
	// time depending on where in the pipeline the value sits.
	Snapshot string
	Resolved ref.Ref
	HasLive  bool
}

func (v Ref) Equal(o Value) bool {
	t, ok := o.(Ref)
	if !ok {
		return false
	}
	if v.HasLive != t.HasLive {
		return false
	}
	if v.HasLive {
		return v.Resolved == t.Resolved
	}
	return v.Snapshot == t.Snapshot
}
func (v Ref) Clone() Value { return v }
func (Ref) variantSealed() {}

// NaNSafeEqual compares two float64s the way property diffing should:
// NaN never equals anything, including itself, matching IEEE-754 and
// Roblox's own float comparison semantics.
func NaNSafeEqual(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	return a == b
}
