package errors

import "fmt"

// ManifestInvalid creates a manifest parse/validation error for discovery.
func ManifestInvalid(path string, err error) *HearthError {
	return Wrap(err, ErrCodeManifestInvalid, fmt.Sprintf("invalid manifest: %s", path)).
		WithDetail("path", path)
}

// ExeNotFound creates an error for an addon whose executable is missing.
func ExeNotFound(addon, exePath string) *HearthError {
	return New(ErrCodeExeNotFound, fmt.Sprintf("addon '%s' executable not found: %s", addon, exePath)).
		WithDetail("addon", addon).
		WithDetail("exe_path", exePath)
}

// UnknownNamespace creates a dispatch error for an unrouted namespace.
func UnknownNamespace(ns string) *HearthError {
	return New(ErrCodeUnknownNamespace, fmt.Sprintf("unknown namespace: %s", ns)).
		WithDetail("namespace", ns)
}

// UnknownCommand creates a dispatch error for an unrouted command.
func UnknownCommand(ns, cmd string) *HearthError {
	return New(ErrCodeUnknownCommand, fmt.Sprintf("unknown %s command: %s", ns, cmd)).
		WithDetail("namespace", ns).
		WithDetail("command", cmd)
}

// MissingArgument creates a dispatch error for a missing request argument.
func MissingArgument(name string) *HearthError {
	return New(ErrCodeMissingArgument, fmt.Sprintf("missing '%s' in args", name)).
		WithDetail("argument", name)
}

// AddonNotFound creates an error for an addon lookup miss.
func AddonNotFound(name string) *HearthError {
	return New(ErrCodeAddonNotFound, fmt.Sprintf("addon not found: %s", name)).
		WithDetail("addon", name)
}

// AddonControl wraps a process start/stop failure.
func AddonControl(name string, err error) *HearthError {
	return Wrap(err, ErrCodeAddonControl, fmt.Sprintf("addon control failed: %s", name)).
		WithDetail("addon", name)
}

// SensorFailed wraps a single category's sampling failure.
func SensorFailed(category string, err error) *HearthError {
	return Wrap(err, ErrCodeSensorFailed, fmt.Sprintf("sensor '%s' failed", category)).
		WithDetail("category", category)
}

// AlreadyRunning reports a second daemon instance on the same host.
func AlreadyRunning(pid int) *HearthError {
	return New(ErrCodeAlreadyRunning, fmt.Sprintf("daemon already running with PID %d", pid)).
		WithDetail("pid", pid)
}
