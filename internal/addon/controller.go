// Package addon controls the OS processes behind registered addons.
package addon

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
	"github.com/sirupsen/logrus"

	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/registry"
)

// Status values returned by control operations.
const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already_running"
	StatusStopped        = "stopped"
	StatusNotRunning     = "not_running"
	StatusReloaded       = "reloaded"
)

// Controller resolves addon identifiers against the registry and
// starts/stops their processes.
type Controller struct {
	store  *registry.Store
	logger *logrus.Entry
}

// NewController creates a Controller reading addon entries from store.
func NewController(store *registry.Store, logger *logrus.Entry) *Controller {
	return &Controller{store: store, logger: logger}
}

// find matches name case-insensitively against an addon's id or its
// display name from the manifest.
func (c *Controller) find(name string) (registry.Entry, error) {
	reg := c.store.Snapshot()
	for _, entry := range reg.Addons {
		if strings.EqualFold(entry.ID, name) {
			return entry, nil
		}
		if display, ok := entry.Metadata["name"].(string); ok && strings.EqualFold(display, name) {
			return entry, nil
		}
	}
	return registry.Entry{}, herr.AddonNotFound(name)
}

// running reports whether any process matches the addon's executable path
// or base name.
func (c *Controller) running(ctx context.Context, entry registry.Entry) []*process.Process {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Process enumeration failed")
		return nil
	}

	exeBase := filepath.Base(entry.ExePath)
	var matched []*process.Process
	for _, p := range procs {
		if exe, err := p.ExeWithContext(ctx); err == nil && exe == entry.ExePath {
			matched = append(matched, p)
			continue
		}
		if name, err := p.NameWithContext(ctx); err == nil && strings.EqualFold(name, exeBase) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Start launches the addon's executable with its directory as working dir.
// A second start of a running addon reports already_running, not an error.
func (c *Controller) Start(ctx context.Context, name string) (string, error) {
	entry, err := c.find(name)
	if err != nil {
		return "", err
	}
	if entry.ExePath == "" {
		return "", herr.AddonControl(name, herr.ExeNotFound(entry.ID, ""))
	}

	if len(c.running(ctx, entry)) > 0 {
		c.logger.Infof("Addon '%s' is already running, skipping start", entry.ID)
		return StatusAlreadyRunning, nil
	}

	if _, err := os.Stat(entry.ExePath); err != nil {
		return "", herr.ExeNotFound(entry.ID, entry.ExePath)
	}

	cmd := exec.Command(entry.ExePath)
	cmd.Dir = entry.Path
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return "", herr.AddonControl(name, err)
	}

	c.logger.Infof("Started addon '%s' with PID %d", entry.ID, cmd.Process.Pid)
	// Reap the child when it exits so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()
	return StatusStarted, nil
}

// Stop kills every process matching the addon's executable.
func (c *Controller) Stop(ctx context.Context, name string) (string, error) {
	entry, err := c.find(name)
	if err != nil {
		return "", err
	}

	matched := c.running(ctx, entry)
	if len(matched) == 0 {
		return StatusNotRunning, nil
	}

	stopped := 0
	for _, p := range matched {
		if err := p.KillWithContext(ctx); err != nil {
			c.logger.WithError(err).Warnf("Failed to kill addon process %d", p.Pid)
			continue
		}
		stopped++
	}
	if stopped == 0 {
		return "", herr.AddonControl(name, herr.New(herr.ErrCodeAddonControl, "no matching process could be killed"))
	}

	c.logger.Infof("Stopped addon '%s' (%d processes)", entry.ID, stopped)
	return StatusStopped, nil
}

// Reload stops then starts the addon. The stop result is advisory; a
// not-running addon still gets started.
func (c *Controller) Reload(ctx context.Context, name string) (string, error) {
	if _, err := c.find(name); err != nil {
		return "", err
	}
	if _, err := c.Stop(ctx, name); err != nil {
		c.logger.WithError(err).Debugf("Stop during reload of '%s'", name)
	}
	if _, err := c.Start(ctx, name); err != nil {
		return "", err
	}
	c.logger.Infof("Reloaded addon '%s'", name)
	return StatusReloaded, nil
}

// StopAll kills every process matching any registered addon. Called on
// daemon shutdown.
func (c *Controller) StopAll(ctx context.Context) {
	reg := c.store.Snapshot()
	if len(reg.Addons) == 0 {
		c.logger.Debug("No registered addons to stop")
		return
	}

	for _, entry := range reg.Addons {
		if entry.ExePath == "" {
			continue
		}
		for _, p := range c.running(ctx, entry) {
			if err := p.KillWithContext(ctx); err != nil {
				c.logger.WithError(err).Warnf("Failed to kill addon '%s' on exit", entry.ID)
				continue
			}
			c.logger.Infof("Killed addon process '%s' on exit", entry.ID)
		}
	}
	c.logger.Info("Addon cleanup complete")
}
