// Package middleware implements the pure file→snapshot transforms
// dispatched by filename pattern or project sync rule, per spec.md
// §4.F. Dispatcher.Snapshot picks the middleware for a path; each
// middleware reads from the *vfs.Vfs at that path (taking whatever else
// its format needs) and returns (*snapshot.Instance, error).
package middleware

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/rojo-rbx/rojo-core/internal/oracle"
	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// Dispatcher holds the collaborators every middleware needs: the class
// metadata oracle and, for the rbxm/rbxmx middlewares, a model codec.
type Dispatcher struct {
	Classes ClassMetadataOrNil
	Codec   oracle.ModelCodec
}

// ClassMetadataOrNil is oracle.ClassMetadata, aliased locally so a nil
// Dispatcher.Classes is a legal "no oracle available" configuration
// for tests exercising middlewares that never need it.
type ClassMetadataOrNil = oracle.ClassMetadata

var initNames = []string{"init.lua", "init.server.lua", "init.client.lua", "init.meta.json"}

// Snapshot dispatches at path (relative to the VFS root) according to
// spec.md §4.F's rules, returning nil (no error) when path should be
// skipped entirely (e.g. it is a consumed .meta.json sidecar).
func (d *Dispatcher) Snapshot(ctx *snapshot.Context, v *vfs.Vfs, p string) (*snapshot.Instance, error) {
	name := filepath.Base(p)

	if ctx.Matches(p) {
		return nil, nil
	}

	meta, err := v.Metadata(p)
	if err != nil {
		return nil, err
	}

	if !meta.IsFile {
		return d.snapshotDirectory(ctx, v, p)
	}
	return d.snapshotFile(ctx, v, p, name)
}

func (d *Dispatcher) snapshotDirectory(ctx *snapshot.Context, v *vfs.Vfs, p string) (*snapshot.Instance, error) {
	children, err := v.ReadDir(p)
	if err != nil {
		return nil, err
	}
	childSet := make(map[string]bool, len(children))
	for _, c := range children {
		childSet[c] = true
	}

	if childSet[projectFilename] {
		return d.SnapshotProjectFile(ctx, v, joinPath(p, projectFilename))
	}

	for _, initName := range initNames {
		if !childSet[initName] {
			continue
		}
		if initName == "init.meta.json" {
			continue // meta-only init with no script content is handled via the fallback below
		}
		inst, err := d.snapshotFile(ctx, v, joinPath(p, initName), initName)
		if err != nil {
			return nil, err
		}
		if inst == nil {
			continue
		}
		inst.Name = filepath.Base(p)
		for _, c := range children {
			if c == initName || strings.HasSuffix(c, ".meta.json") && strings.TrimSuffix(c, ".meta.json") == "init" {
				continue
			}
			childInst, err := d.Snapshot(ctx, v, joinPath(p, c))
			if err != nil {
				return nil, err
			}
			if childInst != nil {
				inst.AddChild(childInst)
			}
		}
		if err := mergeAdjacentMeta(v, joinPath(p, "init"), inst, d.Classes); err != nil {
			return nil, err
		}
		inst.Metadata.InstigatingSource = snapshot.PathSource(p)
		inst.Metadata.RelevantPaths = []string{p}
		return inst, nil
	}

	folder := snapshot.New(filepath.Base(p), "Folder")
	folder.Metadata.Middleware = snapshot.MiddlewareDir
	folder.Metadata.InstigatingSource = snapshot.PathSource(p)
	folder.Metadata.RelevantPaths = []string{p}
	folder.Metadata.IgnoreUnknownInstances = false
	for _, c := range children {
		childInst, err := d.Snapshot(ctx, v, joinPath(p, c))
		if err != nil {
			return nil, err
		}
		if childInst != nil {
			folder.AddChild(childInst)
		}
	}
	if childSet["init.meta.json"] {
		if err := mergeAdjacentMeta(v, joinPath(p, "init"), folder, d.Classes); err != nil {
			return nil, err
		}
	}
	return folder, nil
}

const projectFilename = "default.project.json"

func (d *Dispatcher) snapshotFile(ctx *snapshot.Context, v *vfs.Vfs, p, name string) (*snapshot.Instance, error) {
	if strings.HasSuffix(name, ".meta.json") {
		// .meta.json files are consumed as a sidecar by their sibling,
		// never snapshotted in their own right.
		return nil, nil
	}

	mw, className := resolveMiddleware(ctx, name)

	var inst *snapshot.Instance
	var err error
	switch mw {
	case snapshot.MiddlewareProject:
		return d.SnapshotProjectFile(ctx, v, p)
	case snapshot.MiddlewareJsonModel:
		inst, err = snapshotJSONModel(v, p, d.Classes)
	case snapshot.MiddlewareServerScript, snapshot.MiddlewareClientScript, snapshot.MiddlewareModuleScript:
		inst, err = snapshotLuaScript(v, p, name, mw)
	case snapshot.MiddlewareCsvLocalization:
		inst, err = snapshotCSVLocalization(v, p)
	case snapshot.MiddlewarePlainText:
		inst, err = snapshotPlainText(v, p)
	case snapshot.MiddlewareJsonModule:
		inst, err = snapshotJSONModule(v, p)
	case snapshot.MiddlewareRbxm:
		inst, err = d.snapshotModel(v, p, false)
	case snapshot.MiddlewareRbxmx:
		inst, err = d.snapshotModel(v, p, true)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, nil
	}
	if className != "" {
		inst.ClassName = className
	}

	inst.Metadata.Middleware = mw
	inst.Metadata.InstigatingSource = snapshot.PathSource(p)
	inst.Metadata.RelevantPaths = []string{p}
	inst.Metadata.IgnoreUnknownInstances = false
	inst.Metadata.Context = *ctx

	metaBase := strings.TrimSuffix(p, filepath.Ext(p))
	switch filepath.Ext(metaBase) {
	case ".server", ".client", ".model":
		metaBase = strings.TrimSuffix(metaBase, filepath.Ext(metaBase))
	}
	if err := mergeAdjacentMeta(v, metaBase, inst, d.Classes); err != nil {
		return nil, err
	}

	return inst, nil
}

// resolveMiddleware picks the middleware for name: project sync rules
// first, then the default suffix table.
func resolveMiddleware(ctx *snapshot.Context, name string) (snapshot.Middleware, string) {
	for _, rule := range ctx.SyncRules {
		if ok, _ := path.Match(rule.Pattern, name); ok {
			return rule.Middleware, rule.ClassName
		}
	}

	switch {
	case strings.HasSuffix(name, ".project.json"):
		return snapshot.MiddlewareProject, ""
	case strings.HasSuffix(name, ".model.json"):
		return snapshot.MiddlewareJsonModel, ""
	case strings.HasSuffix(name, ".server.lua") || strings.HasSuffix(name, ".server.luau"):
		return snapshot.MiddlewareServerScript, "Script"
	case strings.HasSuffix(name, ".client.lua") || strings.HasSuffix(name, ".client.luau"):
		return snapshot.MiddlewareClientScript, "LocalScript"
	case strings.HasSuffix(name, ".lua") || strings.HasSuffix(name, ".luau"):
		return snapshot.MiddlewareModuleScript, "ModuleScript"
	case strings.HasSuffix(name, ".csv"):
		return snapshot.MiddlewareCsvLocalization, "LocalizationTable"
	case strings.HasSuffix(name, ".txt"):
		return snapshot.MiddlewarePlainText, "StringValue"
	case strings.HasSuffix(name, ".rbxm"):
		return snapshot.MiddlewareRbxm, ""
	case strings.HasSuffix(name, ".rbxmx"):
		return snapshot.MiddlewareRbxmx, ""
	case strings.HasSuffix(name, ".json"):
		return snapshot.MiddlewareJsonModule, "ModuleScript"
	default:
		return "", ""
	}
}

func joinPath(dir, name string) string {
	if dir == "" || dir == "/" {
		return "/" + name
	}
	return strings.TrimRight(dir, "/") + "/" + name
}

func (d *Dispatcher) snapshotModel(v *vfs.Vfs, p string, xml bool) (*snapshot.Instance, error) {
	if d.Codec == nil {
		return nil, &rojoerr.BadEncodingError{Path: p, Detail: "no model codec configured; binary/XML model decoding is an external oracle"}
	}
	data, err := v.Read(p)
	if err != nil {
		return nil, err
	}
	var root oracle.ModelRoot
	if xml {
		root, err = d.Codec.DecodeXML(data)
	} else {
		root, err = d.Codec.DecodeBinary(data)
	}
	if err != nil {
		return nil, &rojoerr.BadEncodingError{Path: p, Detail: err.Error()}
	}
	return modelRootToInstance(root), nil
}

func modelRootToInstance(root oracle.ModelRoot) *snapshot.Instance {
	inst := snapshot.New(root.Name, root.ClassName)
	for k, v := range root.Properties {
		inst.SetProperty(k, v)
	}
	for _, c := range root.Children {
		inst.AddChild(modelRootToInstance(c))
	}
	return inst
}
