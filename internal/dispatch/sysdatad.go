package dispatch

import (
	"context"
	"strings"

	"github.com/hearthdesk/hearthd/internal/registry"
)

// SysdataCommands serves the sysdata namespace: per-category metadata reads
// plus the synthesized displays and temperature composites.
type SysdataCommands struct {
	Store *registry.Store
}

// Mount registers the sysdata namespace on d.
func (s *SysdataCommands) Mount(d *Dispatcher) {
	for _, category := range []string{
		"cpu", "gpu", "ram", "storage", "network", "audio",
		"keyboard", "mouse", "power", "time",
	} {
		d.Register("sysdata", "get_"+category, s.categoryReader(category))
	}
	d.Register("sysdata", "get_displays", s.getDisplays)
	d.Register("sysdata", "get_temp", s.getTemp)
}

func (s *SysdataCommands) categoryReader(category string) CommandFunc {
	return func(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
		reg := s.Store.Snapshot()
		if e := registry.FindByCategory(reg.Sysdata, category); e != nil {
			return e.Metadata, nil
		}
		// No sample collected yet for this category.
		return nil, nil
	}
}

func (s *SysdataCommands) getDisplays(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	reg := s.Store.Snapshot()
	return registry.OutputDisplays(reg.Sysdata), nil
}

// getTemp synthesizes a temperature view from whatever sensor entries
// expose temperature readings in their metadata.
func (s *SysdataCommands) getTemp(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	reg := s.Store.Snapshot()
	composite := map[string]interface{}{
		"cpu_sensors": temperatureReadings(reg.Sysdata, "cpu"),
		"gpu_sensors": temperatureReadings(reg.Sysdata, "gpu"),
	}
	return composite, nil
}

func temperatureReadings(sysdata []registry.Entry, category string) []interface{} {
	readings := make([]interface{}, 0)
	e := registry.FindByCategory(sysdata, category)
	if e == nil {
		return readings
	}

	if sensors, ok := e.Metadata["sensors"].([]interface{}); ok {
		for _, s := range sensors {
			sm, ok := s.(map[string]interface{})
			if !ok {
				continue
			}
			if label, ok := sm["label"].(string); ok && strings.Contains(strings.ToLower(label), category) {
				readings = append(readings, sm)
			} else if !ok {
				readings = append(readings, sm)
			}
		}
		return readings
	}

	if temp, ok := e.Metadata["temperature"]; ok {
		readings = append(readings, map[string]interface{}{
			"label":       category,
			"temperature": temp,
		})
	}
	return readings
}
