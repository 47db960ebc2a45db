package middleware

import (
	"path/filepath"
	"strings"

	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// snapshotPlainText reads a .txt file into a StringValue instance.
func snapshotPlainText(v *vfs.Vfs, p string) (*snapshot.Instance, error) {
	contents, err := v.ReadToStringLFNormalized(p)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(p), ".txt")
	inst := snapshot.New(name, "StringValue")
	inst.SetProperty("Value", variant.String(contents))
	return inst, nil
}
