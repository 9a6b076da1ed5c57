// Package registry holds the daemon's authoritative state: discovered
// addons and assets, sampled telemetry, and active-window data. It builds
// that state from disk discovery plus a sensor pull, persists it to a JSON
// snapshot, and rebuilds when the snapshot is edited externally.
package registry

import (
	"reflect"
	"strings"
)

// Entry is one discovered or sampled registry item.
type Entry struct {
	// ID is unique within its category-scoped list, not globally.
	ID       string `json:"id"`
	Category string `json:"category"`
	Subtype  string `json:"subtype"`

	// Metadata is an open structured document; categories have genuinely
	// heterogeneous shapes, so it stays schemaless and is validated at the
	// edges.
	Metadata map[string]interface{} `json:"metadata"`

	// Path is the filesystem location the entry was discovered from,
	// empty for synthetic or sampled entries.
	Path string `json:"path"`

	// ExePath is the resolved absolute executable path, empty when not
	// applicable.
	ExePath string `json:"exe_path"`
}

// Registry is the full snapshot, partitioned into four independent ordered
// lists. Uniqueness is enforced per category during merge, not globally.
type Registry struct {
	Addons  []Entry `json:"addons"`
	Assets  []Entry `json:"assets"`
	Sysdata []Entry `json:"sysdata"`
	Appdata []Entry `json:"appdata"`
}

// MergeByCategory returns existing with every entry whose category is in
// categories replaced by the fresh entries. Entries for untouched
// categories are preserved in order; fresh entries are appended.
func MergeByCategory(existing, fresh []Entry, categories []string) []Entry {
	merged := make([]Entry, 0, len(existing)+len(fresh))
	for _, e := range existing {
		if !containsFold(categories, e.Category) {
			merged = append(merged, e)
		}
	}
	return append(merged, fresh...)
}

// EntriesEqual reports whether two entry lists are equal, metadata
// included. Used for the compare-and-skip check after a tier merge.
func EntriesEqual(a, b []Entry) bool {
	if len(a) != len(b) {
		return false
	}
	return reflect.DeepEqual(a, b)
}

func containsFold(list []string, s string) bool {
	for _, c := range list {
		if strings.EqualFold(c, s) {
			return true
		}
	}
	return false
}

// FindByCategory returns the first entry with the given category, or nil.
func FindByCategory(entries []Entry, category string) *Entry {
	for i := range entries {
		if strings.EqualFold(entries[i].Category, category) {
			return &entries[i]
		}
	}
	return nil
}

// FilterByCategory returns all entries with the given category.
func FilterByCategory(entries []Entry, category string) []Entry {
	var out []Entry
	for _, e := range entries {
		if strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out
}
