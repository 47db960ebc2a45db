package middleware

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/rojo-rbx/rojo-core/internal/project"
	"github.com/rojo-rbx/rojo-core/internal/resolve"
	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// refIDAttribute is the reserved attribute a node uses to declare its
// own stable id for other nodes to point at via refPointerPrefix,
// independent of (and in addition to) the manifest's own $id. Neither
// it nor a refPointerPrefix-keyed attribute is surfaced as a regular
// user attribute on the built instance, per spec.md §6.
const refIDAttribute = "RojoRefId"

const refPointerPrefix = "RojoRefPointerTo_"

// SnapshotProjectFile implements the project-middleware recursion from
// spec.md §4.F: load the manifest at p, snapshot its $path target (if
// any) as the node's base, then layer $className/$properties/
// $attributes/$id overrides and recurse into declared children, in
// that order.
func (d *Dispatcher) SnapshotProjectFile(ctx *snapshot.Context, v *vfs.Vfs, p string) (*snapshot.Instance, error) {
	data, err := v.Read(p)
	if err != nil {
		return nil, err
	}
	proj, err := project.LoadFromBytes(data, p)
	if err != nil {
		return nil, err
	}

	childCtx := *ctx
	childCtx.SyncRules = append(append([]snapshot.SyncRule(nil), ctx.SyncRules...), convertSyncRules(proj.SyncRules)...)
	childCtx.IgnorePaths = append(append([]string(nil), ctx.IgnorePaths...), proj.GlobIgnorePaths...)
	childCtx.EmitLegacyScript = ctx.EmitLegacyScript || proj.EmitLegacyScript

	root, err := d.snapshotProjectNode(&childCtx, v, filepath.Dir(p), p, proj.Name, proj.Tree, []string{proj.Name}, "")
	if err != nil {
		return nil, err
	}
	root.Metadata.InstigatingSource = snapshot.PathSource(p)
	root.Metadata.RelevantPaths = append(root.Metadata.RelevantPaths, p)
	root.Metadata.Middleware = snapshot.MiddlewareProject
	return root, nil
}

// snapshotProjectNode converts one project.ProjectNode (addressed by
// the dotted projectPath from the manifest root) into an instance,
// folding in its $path base snapshot when present. parentClass is the
// class of the enclosing node ("" for the manifest root).
func (d *Dispatcher) snapshotProjectNode(ctx *snapshot.Context, v *vfs.Vfs, folder, projectFilePath, name string, node *project.ProjectNode, projectPath []string, parentClass string) (*snapshot.Instance, error) {
	var inst *snapshot.Instance

	if node.Path != nil {
		target := filepath.Join(folder, node.Path.Path)
		exists, err := v.Exists(target)
		if err != nil {
			return nil, err
		}
		if !exists {
			if node.Path.Optional {
				inst = snapshot.New(name, "Folder")
			} else {
				return nil, &missingPathError{Path: target}
			}
		} else {
			inst, err = d.Snapshot(ctx, v, target)
			if err != nil {
				return nil, err
			}
			if inst == nil {
				inst = snapshot.New(name, "Folder")
			}
		}
		inst.Name = name
	} else {
		className := node.ClassName
		if className == "" {
			if d.Classes != nil && parentClass == "DataModel" {
				if inferred, ok := d.Classes.InferClassName(name); ok {
					className = inferred
				}
			}
			if className == "" {
				className = "Folder"
			}
		}
		inst = snapshot.New(name, className)
	}

	if node.ClassName != "" {
		inst.ClassName = node.ClassName
	}

	for key, raw := range node.Properties {
		val, err := resolve.Resolve(raw, resolve.TargetNone, inst.ClassName, key, d.Classes)
		if err != nil {
			return nil, err
		}
		if val != nil {
			inst.SetProperty(key, val)
		}
	}
	var refID string
	for key, raw := range node.Attributes {
		switch {
		case key == refIDAttribute:
			if s, ok := raw.(string); ok {
				refID = s
			}
			continue
		case strings.HasPrefix(key, refPointerPrefix):
			propName := strings.TrimPrefix(key, refPointerPrefix)
			s, ok := raw.(string)
			if !ok {
				return nil, &rojoerr.BadPropertyError{
					Class: inst.ClassName, Name: propName,
					Detail: "RojoRefPointerTo_ attribute value must be a stable-id string",
				}
			}
			inst.SetProperty(propName, variant.Ref{Snapshot: s})
			continue
		}

		val, err := resolve.Resolve(raw, resolve.TargetNone, inst.ClassName, key, d.Classes)
		if err != nil {
			return nil, err
		}
		if val != nil {
			inst.SetProperty("Attribute_"+key, val)
		}
	}

	childNames := make([]string, 0, len(node.Children))
	for childName := range node.Children {
		childNames = append(childNames, childName)
	}
	sort.Strings(childNames)
	for _, childName := range childNames {
		childNode := node.Children[childName]
		childPath := append(append([]string(nil), projectPath...), childName)
		child, err := d.snapshotProjectNode(ctx, v, folder, projectFilePath, childName, childNode, childPath, inst.ClassName)
		if err != nil {
			return nil, err
		}
		inst.AddChild(child)
	}

	if node.IgnoreUnknownInstances != nil {
		inst.Metadata.IgnoreUnknownInstances = *node.IgnoreUnknownInstances
	} else {
		// Default to true when $path is absent (the node's children are
		// entirely manifest-declared, so anything else found there is
		// unexpected) and false otherwise (a $path folder's real
		// contents are expected and should not be flagged).
		inst.Metadata.IgnoreUnknownInstances = node.Path == nil
	}
	if node.ID != "" {
		inst.SnapshotID = node.ID
	} else if refID != "" {
		inst.SnapshotID = refID
	}
	inst.Metadata.InstigatingSource = snapshot.ProjectNodeSource(projectFilePath, projectPath)
	inst.Metadata.Context = *ctx

	return inst, nil
}

func convertSyncRules(rules []project.SyncRule) []snapshot.SyncRule {
	out := make([]snapshot.SyncRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, snapshot.SyncRule{
			Pattern:    r.Pattern,
			Middleware: snapshot.Middleware(r.Middleware),
		})
	}
	return out
}

// missingPathError reports a required $path target that does not
// exist in the VFS.
type missingPathError struct {
	Path string
}

func (e *missingPathError) Error() string {
	return "required $path target does not exist: " + e.Path
}
