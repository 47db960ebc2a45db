package middleware

import (
	"path/filepath"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/rojo-rbx/rojo-core/internal/oracle"
	"github.com/rojo-rbx/rojo-core/internal/resolve"
	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// snapshotJSONModel decodes a `*.model.json` tree-in-JSON document:
// `{ $schema?, name?, className, id?, children: array, properties,
// attributes }`, per spec.md §6. `ClassName` is accepted in place of
// `className`.
func snapshotJSONModel(v *vfs.Vfs, p string, classes oracle.ClassMetadata) (*snapshot.Instance, error) {
	data, err := v.Read(p)
	if err != nil {
		return nil, err
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, &rojoerr.BadEncodingError{Path: p, Detail: err.Error()}
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, &rojoerr.BadEncodingError{Path: p, Detail: "model.json root must be an object"}
	}

	defaultName := strings.TrimSuffix(filepath.Base(p), ".model.json")
	return decodeJSONModelNode(obj, defaultName, classes)
}

func decodeJSONModelNode(obj map[string]any, defaultName string, classes oracle.ClassMetadata) (*snapshot.Instance, error) {
	name := defaultName
	if n, ok := obj["name"].(string); ok {
		name = n
	}
	className, _ := obj["className"].(string)
	if className == "" {
		className, _ = obj["ClassName"].(string)
	}
	if className == "" {
		return nil, &rojoerr.BadEncodingError{Detail: "model.json node is missing required \"className\""}
	}

	inst := snapshot.New(name, className)

	if idStr, ok := obj["id"].(string); ok {
		inst.SnapshotID = idStr
	}

	if props, ok := obj["properties"].(map[string]any); ok {
		for k, raw := range props {
			val, err := resolve.Resolve(raw, resolve.TargetNone, className, k, classes)
			if err != nil {
				return nil, err
			}
			if val != nil {
				inst.SetProperty(k, val)
			}
		}
	}
	if attrs, ok := obj["attributes"].(map[string]any); ok {
		for k, raw := range attrs {
			switch {
			case k == refIDAttribute:
				if s, ok := raw.(string); ok && inst.SnapshotID == "" {
					inst.SnapshotID = s
				}
				continue
			case strings.HasPrefix(k, refPointerPrefix):
				propName := strings.TrimPrefix(k, refPointerPrefix)
				s, ok := raw.(string)
				if !ok {
					return nil, &rojoerr.BadPropertyError{
						Class: className, Name: propName,
						Detail: "RojoRefPointerTo_ attribute value must be a stable-id string",
					}
				}
				inst.SetProperty(propName, variant.Ref{Snapshot: s})
				continue
			}

			val, err := resolve.Resolve(raw, resolve.TargetNone, className, k, classes)
			if err != nil {
				return nil, err
			}
			if val != nil {
				inst.SetProperty("Attribute_"+k, val)
			}
		}
	}

	if children, ok := obj["children"].([]any); ok {
		for _, c := range children {
			childObj, ok := c.(map[string]any)
			if !ok {
				continue
			}
			child, err := decodeJSONModelNode(childObj, "", classes)
			if err != nil {
				return nil, err
			}
			inst.AddChild(child)
		}
	}

	return inst, nil
}
