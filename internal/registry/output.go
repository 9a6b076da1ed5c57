package registry

import "strings"

// The shaped views below are what RPC clients receive from the registry
// namespace. They differ from the persisted snapshot: addon metadata drops
// exe_path in favor of an entry_path field, assets are grouped by
// category, display entries are expanded into a flat monitor array, and
// appdata is grouped per monitor id.

// sysdataSections is the fixed key set of the shaped sysdata document.
var sysdataSections = []string{
	"cpu", "ram", "gpu", "storage", "network", "audio", "time",
	"keyboard", "mouse", "power", "bluetooth", "wifi", "system",
	"processes", "idle",
}

// OutputAddons shapes the addons list for clients.
func OutputAddons(addons []Entry) []interface{} {
	out := make([]interface{}, 0, len(addons))
	for _, entry := range addons {
		metadata := cloneWithout(entry.Metadata, "exe_path")
		out = append(out, map[string]interface{}{
			"id":         entry.ID,
			"metadata":   metadata,
			"path":       entry.Path,
			"entry_path": entry.ExePath,
		})
	}
	return out
}

// OutputAssets groups the assets list by category.
func OutputAssets(assets []Entry) map[string]interface{} {
	grouped := make(map[string]interface{})
	for _, entry := range assets {
		metadata := cloneWithout(entry.Metadata, "exe_path")

		entryPath := ""
		if files, ok := entry.Metadata["files"].(map[string]interface{}); ok {
			if v, ok := files["entry"].(string); ok {
				entryPath = v
			}
		}
		if entryPath == "" {
			if v, ok := entry.Metadata["entry"].(string); ok {
				entryPath = v
			}
		}
		if entryPath == "" {
			entryPath = entry.ExePath
		}

		list, _ := grouped[entry.Category].([]interface{})
		grouped[entry.Category] = append(list, map[string]interface{}{
			"id":         entry.ID,
			"category":   entry.Category,
			"subtype":    entry.Subtype,
			"metadata":   metadata,
			"path":       entry.Path,
			"entry_path": entryPath,
		})
	}
	return grouped
}

// OutputSysdata keys sysdata by section, expanding grouped display entries
// into a flat monitor array so clients receive individual displays.
func OutputSysdata(sysdata []Entry) map[string]interface{} {
	out := map[string]interface{}{
		"displays": OutputDisplays(sysdata),
	}
	for _, section := range sysdataSections {
		var metadata interface{}
		if e := FindByCategory(sysdata, section); e != nil {
			metadata = e.Metadata
		}
		out[section] = metadata
	}
	return out
}

// OutputDisplays flattens display entries into one monitor array.
func OutputDisplays(sysdata []Entry) []interface{} {
	displays := make([]interface{}, 0)
	for _, entry := range FilterByCategory(sysdata, "display") {
		monitors, ok := entry.Metadata["monitors"].([]interface{})
		if !ok {
			// Individual display entry without a monitor group.
			displays = append(displays, map[string]interface{}{
				"id":       entry.ID,
				"category": entry.Category,
				"subtype":  entry.Subtype,
				"metadata": entry.Metadata,
			})
			continue
		}
		for _, m := range monitors {
			mm, ok := m.(map[string]interface{})
			if !ok {
				continue
			}
			id := entry.ID
			if v, ok := mm["id"].(string); ok {
				id = v
			}
			displays = append(displays, map[string]interface{}{
				"id":       id,
				"category": entry.Category,
				"subtype":  entry.Subtype,
				"metadata": mm,
			})
		}
	}
	return displays
}

// OutputAppdata groups active-window entries per monitor id. Monitors
// known from sysdata appear even when they have no windows.
func OutputAppdata(appdata, sysdata []Entry) map[string]interface{} {
	byMonitor := make(map[string]interface{})

	ensureMonitor := func(id string) map[string]interface{} {
		if existing, ok := byMonitor[id].(map[string]interface{}); ok {
			return existing
		}
		m := map[string]interface{}{"windows": []interface{}{}}
		byMonitor[id] = m
		return m
	}

	for _, d := range OutputDisplays(sysdata) {
		dm, ok := d.(map[string]interface{})
		if !ok {
			continue
		}
		if id, ok := dm["id"].(string); ok && id != "" {
			ensureMonitor(id)
		}
	}

	for _, entry := range appdata {
		if !strings.EqualFold(entry.Category, activeWindowSection) {
			continue
		}
		monitorID, _ := entry.Metadata["monitor_id"].(string)
		if monitorID == "" {
			continue
		}

		window := map[string]interface{}{
			"focused":      boolOr(entry.Metadata, "focused", false),
			"app_name":     stringOr(entry.Metadata, "app_name", "unknown"),
			"app_icon":     stringOr(entry.Metadata, "app_icon", ""),
			"exe_path":     stringOr(entry.Metadata, "exe_path", ""),
			"window_title": stringOr(entry.Metadata, "window_title", ""),
			"pid":          numberOr(entry.Metadata, "pid", 0),
			"window_state": stringOr(entry.Metadata, "window_state", "normal"),
			"size":         valueOr(entry.Metadata, "size", map[string]interface{}{"width": 0, "height": 0}),
			"position":     valueOr(entry.Metadata, "position", map[string]interface{}{"x": 0, "y": 0}),
		}

		monitor := ensureMonitor(monitorID)
		windows, _ := monitor["windows"].([]interface{})
		monitor["windows"] = append(windows, window)
	}

	return byMonitor
}

// OutputDocument is the full shaped registry document.
func OutputDocument(reg Registry, tm TrackingMeta) map[string]interface{} {
	sections := make(map[string]interface{}, len(tm.Sections))
	for name, tracked := range tm.Sections {
		sections[name] = map[string]interface{}{"tracked": tracked}
	}
	return map[string]interface{}{
		"addons":  OutputAddons(reg.Addons),
		"assets":  OutputAssets(reg.Assets),
		"sysdata": OutputSysdata(reg.Sysdata),
		"appdata": OutputAppdata(reg.Appdata, reg.Sysdata),
		"__meta": map[string]interface{}{
			"tracking_active": tm.Active,
			"sections":        sections,
		},
	}
}

func cloneWithout(meta map[string]interface{}, key string) map[string]interface{} {
	out := make(map[string]interface{}, len(meta))
	for k, v := range meta {
		if k == key {
			continue
		}
		out[k] = v
	}
	return out
}

func stringOr(meta map[string]interface{}, key, fallback string) string {
	if v, ok := meta[key].(string); ok {
		return v
	}
	return fallback
}

func boolOr(meta map[string]interface{}, key string, fallback bool) bool {
	if v, ok := meta[key].(bool); ok {
		return v
	}
	return fallback
}

func numberOr(meta map[string]interface{}, key string, fallback float64) interface{} {
	if v, ok := meta[key]; ok {
		return v
	}
	return fallback
}

func valueOr(meta map[string]interface{}, key string, fallback interface{}) interface{} {
	if v, ok := meta[key]; ok {
		return v
	}
	return fallback
}
