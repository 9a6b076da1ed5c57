package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSensors serves canned entries for a fixed set of sections.
type fakeSensors struct {
	sections map[string][]Entry
}

func (f *fakeSensors) Sections() []string {
	out := make([]string, 0, len(f.sections))
	for s := range f.sections {
		out = append(out, s)
	}
	return out
}

func (f *fakeSensors) Collect(ctx context.Context, section string) ([]Entry, error) {
	entries, ok := f.sections[section]
	if !ok || entries == nil {
		return nil, assert.AnError
	}
	return entries, nil
}

func TestBuildCombinesDiscoveryAndSensors(t *testing.T) {
	root := t.TempDir()
	addonDir := filepath.Join(root, "Addons", "weatherwidget")
	writeFile(t, filepath.Join(addonDir, "addon.json"),
		`{"id":"wx1","name":"Weather"}`)
	writeFile(t, filepath.Join(root, "Assets", "wallpapers", "sunset", "manifest.json"),
		`{"id":"wp1"}`)

	sensors := &fakeSensors{sections: map[string][]Entry{
		"cpu": {{ID: "cpu-0", Category: "cpu", Metadata: map[string]interface{}{"usage": 1.0}}},
		"active_window": {{ID: "win-1", Category: "active_window",
			Metadata: map[string]interface{}{"monitor_id": "m1"}}},
	}}

	reg := Build(context.Background(), root, sensors, testLogger())

	require.Len(t, reg.Addons, 1)
	assert.Equal(t, "wx1", reg.Addons[0].ID)

	require.Len(t, reg.Assets, 1)
	assert.Equal(t, "wp1", reg.Assets[0].ID)

	// Sysdata holds the cpu sample, appdata the window sample.
	require.Len(t, reg.Sysdata, 1)
	assert.Equal(t, "cpu", reg.Sysdata[0].Category)
	require.Len(t, reg.Appdata, 1)
	assert.Equal(t, "active_window", reg.Appdata[0].Category)
}

func TestBuildSurvivesFailingSensors(t *testing.T) {
	root := t.TempDir()

	sensors := &fakeSensors{sections: map[string][]Entry{
		"cpu": {{ID: "cpu-0", Category: "cpu"}},
		// "ram" is advertised but always fails.
	}}
	sensors.sections["ram"] = nil

	reg := Build(context.Background(), root, sensors, testLogger())

	assert.NotNil(t, FindByCategory(reg.Sysdata, "cpu"))
	assert.Nil(t, FindByCategory(reg.Sysdata, "ram"))
	assert.Empty(t, reg.Addons)
	assert.Empty(t, reg.Assets)
}
