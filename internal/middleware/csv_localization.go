package middleware

import (
	"encoding/csv"
	"path/filepath"
	"strings"

	"github.com/ohler55/ojg/oj"

	"github.com/rojo-rbx/rojo-core/internal/rojoerr"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// localizationEntry mirrors the Source-of-truth shape described in
// spec.md §6: one per data row, locale columns collapse into a single
// translations map keyed by locale code.
type localizationEntry struct {
	Key          string
	Source       string
	Context      string
	Example      string
	Translations map[string]string
}

// snapshotCSVLocalization parses a localization CSV into a
// LocalizationTable instance whose Contents property holds the
// JSON-encoded entry list, mirroring how Rojo stores the parsed table
// as opaque serialized data on the instance.
func snapshotCSVLocalization(v *vfs.Vfs, p string) (*snapshot.Instance, error) {
	raw, err := v.ReadToStringLFNormalized(p)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &rojoerr.BadEncodingError{Path: p, Detail: err.Error()}
	}
	if len(records) == 0 {
		return nil, &rojoerr.BadEncodingError{Path: p, Detail: "empty localization CSV"}
	}

	header := records[0]
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}

	var localeCols []string
	for _, col := range header {
		switch col {
		case "Key", "Source", "Context", "Example":
		default:
			localeCols = append(localeCols, col)
		}
	}

	var entries []localizationEntry
	for _, row := range records[1:] {
		entry := localizationEntry{}
		if i, ok := colIndex["Key"]; ok && i < len(row) {
			entry.Key = row[i]
		}
		if i, ok := colIndex["Source"]; ok && i < len(row) {
			entry.Source = row[i]
		}
		if i, ok := colIndex["Context"]; ok && i < len(row) {
			entry.Context = row[i]
		}
		if i, ok := colIndex["Example"]; ok && i < len(row) {
			entry.Example = row[i]
		}
		for _, locale := range localeCols {
			i := colIndex[locale]
			if i < len(row) && row[i] != "" {
				if entry.Translations == nil {
					entry.Translations = make(map[string]string)
				}
				entry.Translations[locale] = row[i]
			}
		}
		entries = append(entries, entry)
	}

	encoded, err := oj.Marshal(toAny(entries))
	if err != nil {
		return nil, &rojoerr.BadEncodingError{Path: p, Detail: err.Error()}
	}

	name := strings.TrimSuffix(filepath.Base(p), ".csv")
	inst := snapshot.New(name, "LocalizationTable")
	inst.SetProperty("Contents", variant.String(string(encoded)))
	return inst, nil
}

// toAny converts the typed entry slice to the generic shape oj.Marshal
// expects for deterministic, dependency-free JSON encoding.
func toAny(entries []localizationEntry) []any {
	out := make([]any, len(entries))
	for i, e := range entries {
		m := map[string]any{}
		if e.Key != "" {
			m["Key"] = e.Key
		}
		if e.Source != "" {
			m["Source"] = e.Source
		}
		if e.Context != "" {
			m["Context"] = e.Context
		}
		if e.Example != "" {
			m["Example"] = e.Example
		}
		if len(e.Translations) > 0 {
			tr := map[string]any{}
			for k, v := range e.Translations {
				tr[k] = v
			}
			m["Translations"] = tr
		}
		out[i] = m
	}
	return out
}
