// Package project loads the declarative project manifest
// (`*.project.json`) that seeds a sync session's tree, grounded on the
// original Rojo project file's fuzzy-load and field-naming semantics.
package project

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
	"github.com/rojo-rbx/rojo-core/internal/rojolog"
)

var (
	errNotObject   = errors.New("project node must be a JSON object")
	errBadPathNode = errors.New(`"$path" must be a string or {"optional"|"required": string}`)
)

// DefaultFilename is the manifest name looked for inside a directory
// passed to LoadFuzzy.
const DefaultFilename = "default.project.json"

// SyncRule overrides default filename→middleware dispatch.
type SyncRule struct {
	Pattern    string `json:"pattern"`
	Middleware string `json:"middleware"`
	Suffix     string `json:"suffix,omitempty"`
	BasePath   string `json:"base_path,omitempty"`
}

// PathNode is a `$path` value: either a required or optional reference
// to a file or directory relative to the manifest's folder.
type PathNode struct {
	Path     string
	Optional bool
}

// ProjectNode is one node of the declarative tree template.
type ProjectNode struct {
	ClassName              string
	Properties             map[string]any
	Attributes             map[string]any
	Children               map[string]*ProjectNode
	Path                   *PathNode
	IgnoreUnknownInstances *bool
	ID                     string
}

// Project is a loaded manifest.
type Project struct {
	Name             string
	Tree             *ProjectNode
	ServePort        *uint16
	ServeAddress     string
	ServePlaceIDs    []uint64
	GlobIgnorePaths  []string
	SyncRules        []SyncRule
	EmitLegacyScript bool

	// FileLocation is the absolute path to the manifest file this
	// Project was loaded from.
	FileLocation string
}

// FolderLocation returns the directory containing the manifest, the
// root other paths in the project are resolved relative to.
func (p *Project) FolderLocation() string {
	return filepath.Dir(p.FileLocation)
}

// IsProjectFile reports whether path's filename ends in
// ".project.json".
func IsProjectFile(path string) bool {
	return strings.HasSuffix(filepath.Base(path), ".project.json")
}

// locate resolves a fuzzy path (either the manifest itself, or a
// directory containing DefaultFilename) to an exact manifest path.
func locate(fuzzyPath string) (string, bool) {
	info, err := os.Stat(fuzzyPath)
	if err != nil {
		return "", false
	}
	if !info.IsDir() {
		if IsProjectFile(fuzzyPath) {
			return fuzzyPath, true
		}
		return "", false
	}
	candidate := filepath.Join(fuzzyPath, DefaultFilename)
	if childInfo, err := os.Stat(candidate); err == nil && !childInfo.IsDir() {
		return candidate, true
	}
	return "", false
}

// LoadFuzzy locates and loads a project from fuzzyPath, returning
// (nil, nil) if no manifest is found there.
func LoadFuzzy(fuzzyPath string) (*Project, error) {
	exact, ok := locate(fuzzyPath)
	if !ok {
		return nil, nil
	}
	return LoadExact(exact)
}

// LoadExact loads the manifest at exactly path.
func LoadExact(path string) (*Project, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, &rojoerr.IoError{Path: path, Err: err}
	}
	return LoadFromBytes(contents, path)
}

// LoadFromBytes parses raw manifest JSON, attributing errors to
// fileLocation for diagnostics.
func LoadFromBytes(contents []byte, fileLocation string) (*Project, error) {
	raw, err := oj.Parse(contents)
	if err != nil {
		return nil, &rojoerr.BadManifestError{Path: fileLocation, Detail: err.Error()}
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &rojoerr.BadManifestError{Path: fileLocation, Detail: "root must be a JSON object"}
	}

	p := &Project{FileLocation: fileLocation}
	if name, ok := obj["name"].(string); ok {
		p.Name = name
	} else {
		return nil, &rojoerr.BadManifestError{Path: fileLocation, Detail: "missing required field \"name\""}
	}

	treeRaw, ok := obj["tree"]
	if !ok {
		return nil, &rojoerr.BadManifestError{Path: fileLocation, Detail: "missing required field \"tree\""}
	}
	tree, err := parseNode(treeRaw, true)
	if err != nil {
		return nil, &rojoerr.BadManifestError{Path: fileLocation, Detail: err.Error()}
	}
	p.Tree = tree

	if port, ok := numberField(obj, "servePort"); ok {
		v := uint16(port)
		p.ServePort = &v
	}
	if addr, ok := obj["serveAddress"].(string); ok {
		p.ServeAddress = addr
	}
	if ids, ok := obj["servePlaceIds"].([]any); ok {
		for _, idv := range ids {
			if f, ok := idv.(float64); ok {
				p.ServePlaceIDs = append(p.ServePlaceIDs, uint64(f))
			}
		}
	}
	if globs, ok := obj["globIgnorePaths"].([]any); ok {
		for _, g := range globs {
			if s, ok := g.(string); ok {
				p.GlobIgnorePaths = append(p.GlobIgnorePaths, s)
			}
		}
	}
	if rules, ok := obj["syncRules"].([]any); ok {
		for _, rv := range rules {
			if rm, ok := rv.(map[string]any); ok {
				rule := SyncRule{}
				if v, ok := rm["pattern"].(string); ok {
					rule.Pattern = v
				}
				if v, ok := rm["middleware"].(string); ok {
					rule.Middleware = v
				}
				if v, ok := rm["suffix"].(string); ok {
					rule.Suffix = v
				}
				if v, ok := rm["basePath"].(string); ok {
					rule.BasePath = v
				}
				p.SyncRules = append(p.SyncRules, rule)
			}
		}
	}
	if b, ok := obj["emitLegacyScripts"].(bool); ok {
		p.EmitLegacyScript = b
	}

	validateReservedNames(p.Tree)

	return p, nil
}

func numberField(obj map[string]any, key string) (float64, bool) {
	v, ok := obj[key].(float64)
	return v, ok
}

func parseNode(raw any, isRoot bool) (*ProjectNode, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errNotObject
	}

	n := &ProjectNode{
		Properties: map[string]any{},
		Attributes: map[string]any{},
		Children:   map[string]*ProjectNode{},
	}

	if v, ok := obj["$className"].(string); ok {
		n.ClassName = v
	}
	if v, ok := obj["$properties"].(map[string]any); ok {
		n.Properties = v
	}
	if v, ok := obj["$attributes"].(map[string]any); ok {
		n.Attributes = v
	}
	if v, ok := obj["$path"]; ok {
		pathNode, err := parsePathNode(v)
		if err != nil {
			return nil, err
		}
		n.Path = pathNode
	}
	if v, ok := obj["$ignoreUnknownInstances"].(bool); ok {
		n.IgnoreUnknownInstances = &v
	} else {
		def := n.Path == nil
		n.IgnoreUnknownInstances = &def
	}
	if v, ok := obj["$id"].(string); ok {
		n.ID = v
	}

	for key, val := range obj {
		if strings.HasPrefix(key, "$") {
			continue
		}
		child, err := parseNode(val, false)
		if err != nil {
			return nil, err
		}
		n.Children[key] = child
	}

	return n, nil
}

func parsePathNode(raw any) (*PathNode, error) {
	switch v := raw.(type) {
	case string:
		return &PathNode{Path: v}, nil
	case map[string]any:
		if opt, ok := v["optional"].(string); ok {
			return &PathNode{Path: opt, Optional: true}, nil
		}
		if req, ok := v["required"].(string); ok {
			return &PathNode{Path: req}, nil
		}
		return nil, errBadPathNode
	default:
		return nil, errBadPathNode
	}
}

func validateReservedNames(n *ProjectNode) {
	if n == nil {
		return
	}
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if strings.HasPrefix(name, "$") {
			rojolog.Log.Warnf("key %q is reserved by $-prefixed manifest syntax and should be renamed", name)
		}
		validateReservedNames(n.Children[name])
	}
}
