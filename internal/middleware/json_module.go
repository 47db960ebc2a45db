package middleware

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// snapshotJSONModule reads a bare .json file and emits a ModuleScript
// whose Source is a generated Lua `return <literal>` statement
// equivalent to the JSON document, per spec.md §4.F's ".json" row.
func snapshotJSONModule(v *vfs.Vfs, p string) (*snapshot.Instance, error) {
	data, err := v.Read(p)
	if err != nil {
		return nil, err
	}
	parsed, err := oj.Parse(data)
	if err != nil {
		return nil, &rojoerr.BadEncodingError{Path: p, Detail: err.Error()}
	}

	var b strings.Builder
	b.WriteString("return ")
	writeLuaLiteral(&b, parsed)

	name := strings.TrimSuffix(filepath.Base(p), ".json")
	inst := snapshot.New(name, "ModuleScript")
	inst.SetProperty("Source", variant.String(b.String()))
	return inst, nil
}

func writeLuaLiteral(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("nil")
	case bool:
		if val {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case string:
		b.WriteString(strconv.Quote(val))
	case float64:
		b.WriteString(formatNumber(val))
	case []any:
		b.WriteString("{")
		for i, item := range val {
			if i > 0 {
				b.WriteString(", ")
			}
			writeLuaLiteral(b, item)
		}
		b.WriteString("}")
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "[%s] = ", strconv.Quote(k))
			writeLuaLiteral(b, val[k])
		}
		b.WriteString("}")
	default:
		b.WriteString("nil")
	}
}

func formatNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
