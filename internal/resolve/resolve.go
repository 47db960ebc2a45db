// Package resolve turns the user-friendly "ambiguous value" JSON
// encoding used in project manifests, .model.json files, and .meta.json
// files into concrete variant.Value instances, consulting the class
// metadata oracle when a shape is genuinely ambiguous (e.g. a
// three-element number array could be a Vector3 or a Color3).
package resolve

import (
	"fmt"

	"github.com/ohler55/ojg/jp"

	"github.com/rojo-rbx/rojo-core/internal/oracle"
	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

// Target optionally names the expected variant kind, letting ambiguous
// shapes (e.g. a 3-float array meaning Vector3 vs Color3) resolve
// deterministically. An empty Target means "infer from shape alone."
type Target string

const (
	TargetNone           Target = ""
	TargetFloat32        Target = "Float32"
	TargetFloat64        Target = "Float64"
	TargetInt32          Target = "Int32"
	TargetInt64          Target = "Int64"
	TargetVector2        Target = "Vector2"
	TargetVector3        Target = "Vector3"
	TargetColor3         Target = "Color3"
	TargetCFrame         Target = "CFrame"
	TargetEnum           Target = "Enum"
	TargetContentId      Target = "ContentId"
	TargetContent        Target = "Content"
	TargetFont           Target = "Font"
	TargetMaterialColors Target = "MaterialColors"
	TargetTags           Target = "Tags"
)

// Resolve converts a decoded JSON value (as produced by ojg/oj.Parse)
// into a variant.Value, given the expected target kind (may be
// TargetNone) and the property's owning class/name for diagnostics.
// When classes is non-nil, it is consulted for two things before the
// generic shape-based resolution runs: whether (className,
// propertyName) is a Ref-via-attribute property per spec.md §6 (raw
// must then be the target's stable id string), and, failing that,
// whether the oracle can supply a disambiguating target for an
// otherwise ambiguous shape.
func Resolve(raw any, target Target, className, propertyName string, classes oracle.ClassMetadata) (variant.Value, error) {
	if classes != nil {
		if classes.IsRefProperty(className, propertyName) {
			return resolveRef(raw, className, propertyName)
		}
		if target == TargetNone {
			if t, ok := classes.PropertyTarget(className, propertyName); ok {
				target = Target(t)
			}
		}
	}

	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return variant.Bool(v), nil
	case string:
		return resolveString(v, target), nil
	case float64:
		return resolveNumber(v, target), nil
	case []any:
		return resolveArray(v, target, className, propertyName)
	case map[string]any:
		return resolveObject(v, target, className, propertyName)
	default:
		return nil, &rojoerr.BadPropertyError{
			Class: className, Name: propertyName,
			Detail: fmt.Sprintf("unsupported JSON shape %T", raw),
		}
	}
}

// resolveRef converts a Ref-via-attribute value (the target instance's
// stable id, as a plain string) into an unresolved variant.Ref; the
// patch engine rewrites it to a live ref once the target is known.
func resolveRef(raw any, className, propertyName string) (variant.Value, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, &rojoerr.BadPropertyError{
			Class: className, Name: propertyName,
			Detail: fmt.Sprintf("ref property must be a stable-id string, got %T", raw),
		}
	}
	return variant.Ref{Snapshot: s}, nil
}

func resolveString(s string, target Target) variant.Value {
	switch target {
	case TargetContentId:
		return variant.ContentId(s)
	case TargetContent:
		return variant.Content{Kind: "uri", Data: s}
	case TargetEnum:
		return variant.String(s) // caller resolves the symbolic name to a numeric Enum later
	default:
		return variant.String(s)
	}
}

func resolveNumber(n float64, target Target) variant.Value {
	switch target {
	case TargetFloat64:
		return variant.Float64(n)
	case TargetInt32:
		return variant.Int32(int32(n))
	case TargetInt64:
		return variant.Int64(int64(n))
	case TargetEnum:
		return variant.Enum(uint32(n))
	default:
		return variant.Float32(float32(n))
	}
}

func resolveArray(arr []any, target Target, className, propertyName string) (variant.Value, error) {
	if allStrings(arr) {
		if target == TargetTags || target == TargetNone {
			tags := make(variant.Tags, len(arr))
			for i, v := range arr {
				tags[i] = v.(string)
			}
			return tags, nil
		}
	}

	nums, ok := allNumbers(arr)
	if !ok {
		return nil, &rojoerr.BadPropertyError{
			Class: className, Name: propertyName,
			Detail: "array must contain all numbers or all strings",
		}
	}

	switch len(nums) {
	case 2:
		return variant.Vector2{X: float32(nums[0]), Y: float32(nums[1])}, nil
	case 3:
		if target == TargetColor3 {
			return variant.Color3{R: float32(nums[0]), G: float32(nums[1]), B: float32(nums[2])}, nil
		}
		return variant.Vector3{X: float32(nums[0]), Y: float32(nums[1]), Z: float32(nums[2])}, nil
	case 12:
		cf := variant.CFrame{Position: variant.Vector3{X: float32(nums[0]), Y: float32(nums[1]), Z: float32(nums[2])}}
		for i := 0; i < 9; i++ {
			cf.Rotation[i] = float32(nums[i+3])
		}
		return cf, nil
	default:
		return nil, &rojoerr.BadPropertyError{
			Class: className, Name: propertyName,
			Detail: fmt.Sprintf("no Variant kind accepts a %d-element numeric array", len(nums)),
		}
	}
}

func resolveObject(obj map[string]any, target Target, className, propertyName string) (variant.Value, error) {
	if target == TargetFont || (target == TargetNone && hasFontShape(obj)) {
		font := variant.Font{}
		if f, ok := obj["family"].(string); ok {
			font.Family = f
		}
		if w, ok := obj["weight"].(float64); ok {
			font.Weight = int32(w)
		}
		if s, ok := obj["style"].(string); ok {
			font.Style = s
		}
		return font, nil
	}

	// Otherwise treat the object as a MaterialColors swatch map.
	mc := variant.MaterialColors{}
	for name, v := range obj {
		arr, ok := v.([]any)
		if !ok {
			return nil, &rojoerr.BadPropertyError{
				Class: className, Name: propertyName,
				Detail: fmt.Sprintf("material %q must be a 3-element color array", name),
			}
		}
		color, err := resolveArray(arr, TargetColor3, className, propertyName)
		if err != nil {
			return nil, err
		}
		mc[name] = color.(variant.Color3)
	}
	return mc, nil
}

func hasFontShape(obj map[string]any) bool {
	_, hasFamily := obj["family"]
	return hasFamily
}

func allStrings(arr []any) bool {
	for _, v := range arr {
		if _, ok := v.(string); !ok {
			return false
		}
	}
	return len(arr) > 0
}

func allNumbers(arr []any) ([]float64, bool) {
	out := make([]float64, len(arr))
	for i, v := range arr {
		f, ok := v.(float64)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

// Lookup evaluates a JSONPath expression against decoded manifest data,
// used by the project middleware to pull nested $properties/$attributes
// values out of a parsed manifest document without re-walking it by
// hand.
func Lookup(data any, path string) (any, error) {
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil, fmt.Errorf("resolve: parse JSONPath %q: %w", path, err)
	}
	results := expr.Get(data)
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}
