// Package snapshot defines the plain value types produced by
// middlewares: Instance (an instance snapshot), Metadata, and Context.
// Snapshots are pure data, compared by value, and carry no mutable
// shared state.
package snapshot

import (
	"path/filepath"

	"github.com/rojo-rbx/rojo-core/internal/intern"
	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

// Middleware tags which file-to-instance transform produced a
// snapshot, recorded for deterministic re-snapshot and syncback.
type Middleware string

const (
	MiddlewareDir              Middleware = "dir"
	MiddlewareProject          Middleware = "project"
	MiddlewareJsonModel        Middleware = "json_model"
	MiddlewareMeta             Middleware = "meta"
	MiddlewareServerScript     Middleware = "server_script"
	MiddlewareClientScript     Middleware = "client_script"
	MiddlewareModuleScript     Middleware = "module_script"
	MiddlewareCsvLocalization  Middleware = "csv_localization"
	MiddlewarePlainText        Middleware = "text"
	MiddlewareJsonModule       Middleware = "json_module"
	MiddlewareRbxm             Middleware = "rbxm"
	MiddlewareRbxmx            Middleware = "rbxmx"
)

// InstigatingSourceKind distinguishes the two shapes an instigating
// source may take.
type InstigatingSourceKind int

const (
	SourceNone InstigatingSourceKind = iota
	SourcePath
	SourceProjectNode
)

// InstigatingSource names the input whose modification should trigger
// re-snapshotting a subtree: either a filesystem path, or a project
// node addressed by the dotted path of tree-template keys leading to
// it (since project-node subtrees have no single file backing them).
type InstigatingSource struct {
	Kind        InstigatingSourceKind
	Path        string
	ProjectPath []string // dotted key path within the project tree
}

func PathSource(path string) InstigatingSource {
	return InstigatingSource{Kind: SourcePath, Path: filepath.Clean(path)}
}

// ProjectNodeSource addresses a project-template node with no file of
// its own: projectFilePath is the manifest it came from (so a change
// to that file re-dispatches every node it contains, same as the
// Path-indexed case) and keys is the dotted path of tree-template keys
// leading to it.
func ProjectNodeSource(projectFilePath string, keys []string) InstigatingSource {
	return InstigatingSource{
		Kind:        SourceProjectNode,
		Path:        filepath.Clean(projectFilePath),
		ProjectPath: append([]string(nil), keys...),
	}
}

// Context is snapshot-scoped configuration threaded through every
// middleware invocation: sync rule overrides, path-ignore globs, and
// whether legacy (pre-rewrite) script emission is requested.
type Context struct {
	SyncRules        []SyncRule
	IgnorePaths      []string // glob patterns, matched against relative paths
	EmitLegacyScript bool
}

// SyncRule overrides middleware dispatch for files matching Pattern.
type SyncRule struct {
	Pattern    string
	Middleware Middleware
	// ClassName overrides the default class the middleware would
	// otherwise pick, when non-empty.
	ClassName string
}

// Matches reports whether the ignore-path globs in c reject relPath.
func (c *Context) Matches(relPath string) bool {
	for _, pattern := range c.IgnorePaths {
		if ok, _ := filepath.Match(pattern, relPath); ok {
			return true
		}
	}
	return false
}

// Metadata is Rojo-specific bookkeeping carried alongside every
// instance, both in transient snapshots and in the live tree.
type Metadata struct {
	IgnoreUnknownInstances bool
	InstigatingSource      InstigatingSource
	RelevantPaths          []string
	Middleware             Middleware
	SpecifiedID            ref.Ref // zero value (ref.None) means unspecified
	Context                Context
}

// Instance is a transient snapshot node: a tentative object subtree
// produced by a middleware, not yet reconciled against the live tree.
type Instance struct {
	Name       string
	ClassName  string
	Properties map[string]variant.Value
	Children   []*Instance
	Metadata   Metadata

	// SnapshotID optionally names this node so properties elsewhere in
	// the same snapshot tree can reference it via variant.Ref before
	// the patch engine rewrites those references into real tree Refs.
	SnapshotID string
}

// New constructs an instance with interned name/class and an empty
// property map, ready for middlewares to populate.
func New(name, className string) *Instance {
	return &Instance{
		Name:       intern.String(name),
		ClassName:  intern.String(className),
		Properties: make(map[string]variant.Value),
	}
}

// SetProperty interns the property name and stores value.
func (i *Instance) SetProperty(name string, value variant.Value) {
	i.Properties[intern.String(name)] = value
}

// AddChild appends child to i's ordered child list.
func (i *Instance) AddChild(child *Instance) {
	i.Children = append(i.Children, child)
}
