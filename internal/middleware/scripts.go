package middleware

import (
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

var scriptClassByMiddleware = map[snapshot.Middleware]string{
	snapshot.MiddlewareServerScript: "Script",
	snapshot.MiddlewareClientScript: "LocalScript",
	snapshot.MiddlewareModuleScript: "ModuleScript",
}

// snapshotLuaScript reads a .lua/.luau source file and produces a
// script instance with its Source property set, normalizing CRLF line
// endings the way the VFS façade's read_to_string_lf_normalized does.
func snapshotLuaScript(v *vfs.Vfs, p, name string, mw snapshot.Middleware) (*snapshot.Instance, error) {
	source, err := v.ReadToStringLFNormalized(p)
	if err != nil {
		return nil, err
	}

	className := scriptClassByMiddleware[mw]
	instName := trimScriptSuffix(name)

	inst := snapshot.New(instName, className)
	inst.SetProperty("Source", variant.String(source))
	return inst, nil
}

func trimScriptSuffix(name string) string {
	for _, suffix := range []string{".server.lua", ".server.luau", ".client.lua", ".client.luau", ".lua", ".luau"} {
		if len(name) > len(suffix) && name[len(name)-len(suffix):] == suffix {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}
