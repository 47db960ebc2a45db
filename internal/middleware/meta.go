package middleware

import (
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/rojo-rbx/rojo-core/internal/oracle"
	"github.com/rojo-rbx/rojo-core/internal/resolve"
	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// mergeAdjacentMeta looks for "<base>.meta.json" next to the file or
// directory base was derived from and, if present, merges its
// className/ignoreUnknownInstances/properties/id overrides into inst,
// per spec.md §4.F ("Every middleware additionally merges a sibling
// <name>.meta.json file if present").
func mergeAdjacentMeta(v *vfs.Vfs, base string, inst *snapshot.Instance, classes oracle.ClassMetadata) error {
	metaPath := base + ".meta.json"
	exists, err := v.Exists(metaPath)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	data, err := v.Read(metaPath)
	if err != nil {
		return err
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		return &rojoerr.BadManifestError{Path: metaPath, Detail: err.Error()}
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return &rojoerr.BadManifestError{Path: metaPath, Detail: "meta.json root must be an object"}
	}

	if className, ok := obj["className"].(string); ok {
		inst.ClassName = className
	}
	if ignore, ok := obj["ignoreUnknownInstances"].(bool); ok {
		inst.Metadata.IgnoreUnknownInstances = ignore
	}
	explicitID := false
	if idStr, ok := obj["id"].(string); ok {
		inst.SnapshotID = idStr
		explicitID = true
	}
	if props, ok := obj["properties"].(map[string]any); ok {
		for name, raw := range props {
			val, err := resolve.Resolve(raw, resolve.TargetNone, inst.ClassName, name, classes)
			if err != nil {
				return err
			}
			if val != nil {
				inst.SetProperty(name, val)
			}
		}
	}
	if attrs, ok := obj["attributes"].(map[string]any); ok {
		for name, raw := range attrs {
			switch {
			case name == refIDAttribute:
				if s, ok := raw.(string); ok && !explicitID {
					inst.SnapshotID = s
				}
				continue
			case strings.HasPrefix(name, refPointerPrefix):
				propName := strings.TrimPrefix(name, refPointerPrefix)
				s, ok := raw.(string)
				if !ok {
					return &rojoerr.BadPropertyError{
						Class: inst.ClassName, Name: propName,
						Detail: "RojoRefPointerTo_ attribute value must be a stable-id string",
					}
				}
				inst.SetProperty(propName, variant.Ref{Snapshot: s})
				continue
			}

			val, err := resolve.Resolve(raw, resolve.TargetNone, inst.ClassName, name, classes)
			if err != nil {
				return err
			}
			if val != nil {
				inst.SetProperty("Attribute_"+name, val)
			}
		}
	}

	inst.Metadata.RelevantPaths = append(inst.Metadata.RelevantPaths, metaPath)
	return nil
}
