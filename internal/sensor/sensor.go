// Package sensor provides the telemetry sensor catalog. Each section name
// maps to an opaque reader function producing a structured snapshot; the
// catalog wraps those readers so a failing or panicking sensor never takes
// down a scheduler tier.
package sensor

import (
	"context"
	"fmt"
	"sync"

	"github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/registry"
)

// Section names, as used by tracking demands and tier ownership.
const (
	SectionTime     = "time"
	SectionKeyboard = "keyboard"
	SectionMouse    = "mouse"
	SectionAudio    = "audio"
	SectionIdle     = "idle"
	SectionCPU      = "cpu"
	SectionGPU      = "gpu"
	SectionRAM      = "ram"
	SectionStorage  = "storage"
	SectionNetwork  = "network"
	SectionBT       = "bluetooth"
	SectionWifi     = "wifi"
	SectionSystem   = "system"
	SectionProcs    = "processes"
	SectionDisplays = "displays"
	SectionPower    = "power"
	SectionWindows  = "active_window"
)

// CategoryFor maps a demand section name to the registry category its
// entries carry. They coincide except for displays, whose individual
// entries are tagged "display".
func CategoryFor(section string) string {
	if section == SectionDisplays {
		return "display"
	}
	return section
}

// Func is one sensor: a synchronous reader returning a structured
// snapshot. Readers share no state with each other.
type Func func(ctx context.Context) (map[string]interface{}, error)

// Catalog maps section names to sensor functions. Platform-specific
// readers replace the portable defaults via Register.
type Catalog struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewCatalog returns a catalog with the default readers registered for
// every section.
func NewCatalog() *Catalog {
	c := &Catalog{funcs: make(map[string]Func)}
	c.Register(SectionTime, timeSensor)
	c.Register(SectionKeyboard, keyboardSensor)
	c.Register(SectionMouse, mouseSensor)
	c.Register(SectionAudio, audioSensor)
	c.Register(SectionIdle, idleSensor)
	c.Register(SectionCPU, cpuSensor)
	c.Register(SectionGPU, gpuSensor)
	c.Register(SectionRAM, ramSensor)
	c.Register(SectionStorage, storageSensor)
	c.Register(SectionNetwork, networkSensor)
	c.Register(SectionBT, bluetoothSensor)
	c.Register(SectionWifi, wifiSensor)
	c.Register(SectionSystem, systemSensor)
	c.Register(SectionProcs, processesSensor)
	c.Register(SectionDisplays, displaysSensor)
	c.Register(SectionPower, powerSensor)
	c.Register(SectionWindows, activeWindowSensor)
	return c
}

// Register installs or replaces the reader for a section.
func (c *Catalog) Register(section string, fn Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.funcs[section] = fn
}

// Sections returns all registered section names.
func (c *Catalog) Sections() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.funcs))
	for s := range c.funcs {
		out = append(out, s)
	}
	return out
}

// Collect invokes the sensor for a section and shapes its snapshot into
// registry entries. A panicking sensor is recovered and reported as an
// error; the caller omits the section from that cycle's merge.
func (c *Catalog) Collect(ctx context.Context, section string) (entries []registry.Entry, err error) {
	c.mu.RLock()
	fn, ok := c.funcs[section]
	c.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.ErrCodeSensorUnknown, fmt.Sprintf("no sensor for section '%s'", section))
	}

	defer func() {
		if r := recover(); r != nil {
			entries = nil
			err = errors.SensorFailed(section, fmt.Errorf("panic: %v", r))
		}
	}()

	meta, err := fn(ctx)
	if err != nil {
		return nil, errors.SensorFailed(section, err)
	}

	switch section {
	case SectionWindows:
		return windowEntries(meta), nil
	default:
		subtype := "system"
		if section == SectionDisplays {
			subtype = "monitor"
		}
		return []registry.Entry{{
			ID:       section,
			Category: CategoryFor(section),
			Subtype:  subtype,
			Metadata: meta,
		}}, nil
	}
}

// windowEntries expands an active-window snapshot into one entry per
// window so the appdata list can be grouped per monitor downstream.
func windowEntries(meta map[string]interface{}) []registry.Entry {
	windows, _ := meta["windows"].([]interface{})
	entries := make([]registry.Entry, 0, len(windows))
	for i, w := range windows {
		wm, ok := w.(map[string]interface{})
		if !ok {
			continue
		}
		id := fmt.Sprintf("window_%d", i)
		if pid, ok := wm["pid"]; ok {
			id = fmt.Sprintf("window_%v", pid)
		}
		entries = append(entries, registry.Entry{
			ID:       id,
			Category: SectionWindows,
			Subtype:  "window",
			Metadata: wm,
		})
	}
	return entries
}
