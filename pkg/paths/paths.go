// Package paths resolves the on-disk layout of the Hearth data root.
//
// Resolution order for the root:
// 1. HEARTH_HOME (portable root)
// 2. $XDG_DATA_HOME/hearth
// 3. ~/.hearth
//
// Everything the daemon owns lives under this single root: the Addons and
// Assets content trees, the persisted registry snapshot, the runtime
// settings file, the control socket, and log files.
package paths

import (
	"os"
	"path/filepath"
)

// RootDir returns the Hearth data root directory.
func RootDir() string {
	if hearthHome := os.Getenv("HEARTH_HOME"); hearthHome != "" {
		return hearthHome
	}
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "hearth")
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".hearth")
	}
	return "."
}

// AddonsDir returns the root of the addon content tree.
func AddonsDir(root string) string {
	return filepath.Join(root, "Addons")
}

// AssetsDir returns the root of the asset content tree.
func AssetsDir(root string) string {
	return filepath.Join(root, "Assets")
}

// SnapshotPath returns the path of the persisted registry snapshot.
func SnapshotPath(root string) string {
	return filepath.Join(root, "registry.json")
}

// SettingsPath returns the path of the persisted runtime settings file.
func SettingsPath(root string) string {
	return filepath.Join(root, "config.yaml")
}

// SocketPath returns the path of the RPC control socket.
func SocketPath(root string) string {
	return filepath.Join(root, "hearthd.sock")
}

// EventsSocketPath returns the path of the event-stream socket.
func EventsSocketPath(root string) string {
	return filepath.Join(root, "hearthd-events.sock")
}

// PidFilePath returns the path of the daemon pidfile.
func PidFilePath(root string) string {
	return filepath.Join(root, "hearthd.pid")
}

// LogsDir returns the directory log files are written to.
func LogsDir(root string) string {
	return filepath.Join(root, "logs")
}
