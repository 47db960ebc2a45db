// Package oracle defines the two external collaborators spec.md keeps
// as interfaces rather than full implementations: Roblox class/property
// reflection, and the binary/XML model codecs. A minimal in-module
// table is provided so the rest of the engine can be exercised and
// tested without a real reflection database.
package oracle

import "github.com/rojo-rbx/rojo-core/internal/variant"

// ClassMetadata answers questions about a Roblox class that only the
// real reflection database can answer authoritatively: default
// property values, and which properties should round-trip through the
// Ref-via-attribute encoding described in spec.md §6.
type ClassMetadata interface {
	// DefaultValue returns the class's default for a property, if the
	// table has one. Patch application does not consult it: a property
	// removed by a patch is deleted from the instance.
	DefaultValue(className, propertyName string) (variant.Value, bool)

	// IsRefProperty reports whether propertyName on className holds an
	// instance reference and must therefore be encoded via attributes
	// rather than written to a native binary/XML field.
	IsRefProperty(className, propertyName string) bool

	// PropertyTarget returns the resolve target name that disambiguates
	// propertyName's JSON encoding on className, when its shape alone
	// is not enough (a 3-float array could mean Vector3 or Color3; a
	// bare number could mean Float32, Int32, or an Enum member).
	// ("", false) leaves the value to be inferred from its shape alone.
	PropertyTarget(className, propertyName string) (string, bool)

	// InferClassName infers a class for a ProjectNode keyed by name
	// directly under a DataModel node (e.g. "Workspace" ->
	// "Workspace"), returning ("", false) when no inference applies.
	InferClassName(rootChildName string) (string, bool)
}

// ModelCodec decodes binary (.rbxm) and XML (.rbxmx) model files into
// an instance subtree. This is the seam spec.md §1 names explicitly as
// out of scope ("binary/XML file codecs"); no implementation is
// provided here, only the interface the rbxm/rbxmx middlewares depend
// on.
type ModelCodec interface {
	DecodeBinary(data []byte) (ModelRoot, error)
	DecodeXML(data []byte) (ModelRoot, error)
}

// ModelRoot is the single root instance a model file must contain.
type ModelRoot struct {
	Name       string
	ClassName  string
	Properties map[string]variant.Value
	Children   []ModelRoot
}

// wellKnownSingletons backs InferClassName's fallback table: service
// names that, when they appear as a direct child key of the DataModel
// root with no explicit $className, should be classed accordingly.
var wellKnownSingletons = map[string]string{
	"Workspace":           "Workspace",
	"ReplicatedStorage":   "ReplicatedStorage",
	"ReplicatedFirst":     "ReplicatedFirst",
	"ServerScriptService": "ServerScriptService",
	"ServerStorage":       "ServerStorage",
	"StarterGui":          "StarterGui",
	"StarterPack":         "StarterPack",
	"StarterPlayer":       "StarterPlayer",
	"Lighting":            "Lighting",
	"SoundService":        "SoundService",
	"Chat":                "Chat",
	"TestService":         "TestService",
}

// StaticClassMetadata is a minimal, hand-populated ClassMetadata
// sufficient to exercise the patch/snapshot machinery's tests; it is
// not a substitute for the real reflection database.
type StaticClassMetadata struct {
	// RefProperties lists "ClassName.PropertyName" pairs known to hold
	// instance references.
	RefProperties map[string]bool
	// Defaults maps "ClassName.PropertyName" to its default value.
	Defaults map[string]variant.Value
	// Targets maps "ClassName.PropertyName" to the resolve target name
	// that disambiguates its JSON encoding.
	Targets map[string]string
}

// NewStaticClassMetadata returns a table pre-populated with the
// well-known singleton inference rules plus a handful of ref/target
// entries for properties common enough to be worth hardcoding;
// callers may populate the maps further.
func NewStaticClassMetadata() *StaticClassMetadata {
	return &StaticClassMetadata{
		RefProperties: map[string]bool{
			"Model.PrimaryPart": true,
			"ObjectValue.Value": true,
			"Motor6D.Part0":     true,
			"Motor6D.Part1":     true,
		},
		Defaults: make(map[string]variant.Value),
		Targets: map[string]string{
			"BasePart.Color":   "Color3",
			"Part.Color":       "Color3",
			"UIStroke.Color":   "Color3",
			"Sound.SoundId":    "ContentId",
			"Decal.Texture":    "ContentId",
			"ImageLabel.Image": "ContentId",
		},
	}
}

func key(className, propertyName string) string { return className + "." + propertyName }

func (s *StaticClassMetadata) DefaultValue(className, propertyName string) (variant.Value, bool) {
	v, ok := s.Defaults[key(className, propertyName)]
	return v, ok
}

func (s *StaticClassMetadata) IsRefProperty(className, propertyName string) bool {
	return s.RefProperties[key(className, propertyName)]
}

func (s *StaticClassMetadata) PropertyTarget(className, propertyName string) (string, bool) {
	v, ok := s.Targets[key(className, propertyName)]
	return v, ok
}

func (s *StaticClassMetadata) InferClassName(rootChildName string) (string, bool) {
	v, ok := wellKnownSingletons[rootChildName]
	return v, ok
}
