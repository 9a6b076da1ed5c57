package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hearthdesk/hearthd/config"
	herr "github.com/hearthdesk/hearthd/errors"
	"github.com/hearthdesk/hearthd/internal/addon"
	"github.com/hearthdesk/hearthd/internal/dispatch"
	"github.com/hearthdesk/hearthd/internal/events"
	"github.com/hearthdesk/hearthd/internal/pidfile"
	"github.com/hearthdesk/hearthd/internal/registry"
	"github.com/hearthdesk/hearthd/internal/scheduler"
	"github.com/hearthdesk/hearthd/internal/sensor"
	"github.com/hearthdesk/hearthd/internal/server"
	"github.com/hearthdesk/hearthd/pkg/paths"
)

func newStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long:  "Start the hearthd daemon in foreground mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := getLogger(cmd, "hearthd")
			root := paths.RootDir()
			pidPath := paths.PidFilePath(root)

			for _, dir := range []string{root, paths.AddonsDir(root), paths.AssetsDir(root), paths.LogsDir(root)} {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("failed to create %s: %w", dir, err)
				}
			}

			// Single-instance guard: a second instance exits silently.
			if err := pidfile.Acquire(pidPath); err != nil {
				if herr.Is(err, herr.ErrCodeAlreadyRunning) {
					logger.Debug("Another instance is already running, exiting")
					return nil
				}
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			// Settings and shared state.
			settings := config.Load(paths.SettingsPath(root), logger)
			store := registry.NewStore()
			catalog := sensor.NewCatalog()

			wake := scheduler.NewSignal()
			tracker := scheduler.NewTracker(settings.UIDataExceptionEnabled, wake)

			snapshotter := &registry.Snapshotter{
				Path:  paths.SnapshotPath(root),
				Store: store,
				Tracking: func() registry.TrackingMeta {
					return registry.TrackingMeta{
						Active:   tracker.TrackingActive(),
						Sections: tracker.Tracked(),
					}
				},
				Logger: logger,
			}

			// Initial build from disk discovery plus one sensor pull.
			reg := registry.Build(ctx, root, catalog, logger)
			store.Replace(reg, "startup")
			snapshotter.Persist(reg)

			// Collection engine.
			sched := scheduler.NewScheduler(store, catalog, tracker, wake, settings, func() {
				snapshotter.Persist(store.Snapshot())
			}, logger)
			go sched.Run(ctx)

			// Filesystem watcher: external snapshot edits and manifest
			// changes trigger a full rebuild.
			watcher, err := registry.NewWatcher(root, paths.SnapshotPath(root), store, func(reason string) {
				rebuilt := registry.Build(ctx, root, catalog, logger)
				store.Replace(rebuilt, "watcher")
				snapshotter.Persist(rebuilt)
			}, logger)
			if err != nil {
				logger.WithError(err).Warn("Filesystem watcher unavailable, rebuilds disabled")
			} else {
				go watcher.Start(ctx)
			}

			// Event stream for push-style clients.
			hub := events.NewHub(store, logger)
			go func() {
				if err := hub.ListenAndServe(ctx, paths.EventsSocketPath(root)); err != nil {
					logger.WithError(err).Error("Event stream failed")
				}
			}()

			// RPC surface.
			controller := addon.NewController(store, logger)
			d := dispatch.NewDispatcher(logger)
			(&dispatch.RegistryCommands{Store: store, Tracker: tracker, Settings: settings, Scheduler: sched}).Mount(d)
			(&dispatch.SysdataCommands{Store: store}).Mount(d)
			(&dispatch.BackendCommands{Settings: settings, Tracker: tracker, Signal: wake}).Mount(d)
			(&dispatch.AddonCommands{Controller: controller}).Mount(d)

			srv := server.New(d, logger)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-stop
				logger.Info("Received stop signal")
				cancel()
				srv.Shutdown()

				stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer stopCancel()
				controller.StopAll(stopCtx)

				_ = pidfile.Release(pidPath)
				os.Exit(0)
			}()

			logger.WithField("pid", os.Getpid()).Info("Starting daemon")
			if err := srv.ListenAndServe(ctx, paths.SocketPath(root)); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}
