package sensor

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// The readers below cover sections that need OS-specific APIs (window
// manager, audio stack, input devices, GPU vendors). The portable defaults
// report what they can and mark themselves unsupported otherwise; a
// platform build replaces them through Catalog.Register.

func gpuSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"supported": false, "adapters": []interface{}{}}, nil
}

func audioSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"supported": false, "sessions": []interface{}{}}, nil
}

func keyboardSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"supported": false, "caps_lock": false, "num_lock": false}, nil
}

func mouseSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"supported": false, "x": 0, "y": 0}, nil
}

func idleSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"supported": false, "idle_ms": 0}, nil
}

func bluetoothSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"supported": false, "devices": []interface{}{}}, nil
}

func wifiSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"supported": false, "ssid": "", "signal_percent": 0}, nil
}

func displaysSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"monitors": []interface{}{}}, nil
}

func activeWindowSensor(context.Context) (map[string]interface{}, error) {
	return map[string]interface{}{"windows": []interface{}{}}, nil
}

// powerSensor reads battery state from sysfs where available and reports
// unsupported elsewhere.
func powerSensor(context.Context) (map[string]interface{}, error) {
	const sysPower = "/sys/class/power_supply"

	supplies, err := os.ReadDir(sysPower)
	if err != nil {
		return map[string]interface{}{"supported": false, "on_battery": false}, nil
	}

	meta := map[string]interface{}{"supported": true, "on_battery": false}
	for _, s := range supplies {
		base := filepath.Join(sysPower, s.Name())
		kind := readSysFile(filepath.Join(base, "type"))
		switch kind {
		case "Battery":
			meta["battery_status"] = readSysFile(filepath.Join(base, "status"))
			if pct, err := strconv.Atoi(readSysFile(filepath.Join(base, "capacity"))); err == nil {
				meta["battery_percent"] = pct
			}
		case "Mains":
			online := readSysFile(filepath.Join(base, "online"))
			meta["on_battery"] = online == "0"
		}
	}
	return meta, nil
}

func readSysFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
