package registry

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// selfWriteWindow is how soon after our own persist a snapshot event is
// ignored so that writing the file does not trigger a rebuild loop.
const selfWriteWindow = 500 * time.Millisecond

// Watcher watches the data root for external snapshot edits and for addon
// or asset manifest changes, rebuilding the registry when either occurs.
type Watcher struct {
	watcher      *fsnotify.Watcher
	root         string
	snapshotName string
	store        *Store
	onRebuild    func(reason string)
	logger       *logrus.Entry
}

// NewWatcher creates a Watcher over root and all its subdirectories.
// Directories created later are added as they appear.
func NewWatcher(root, snapshotPath string, store *Store, onRebuild func(reason string), logger *logrus.Entry) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:      fsw,
		root:         root,
		snapshotName: filepath.Base(snapshotPath),
		store:        store,
		onRebuild:    onRebuild,
		logger:       logger,
	}

	if err := w.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				w.logger.WithError(err).Warnf("Failed to watch %s", path)
			}
		}
		return nil
	})
}

// Start blocks processing events until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.watcher.Close()
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

	// Newly created directories need their own watch to stay recursive.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.WithError(err).Warnf("Failed to watch new directory %s", event.Name)
			}
		}
	}

	reason, ok := RebuildReason(event.Name, event.Op, w.snapshotName, w.store.SinceLastPersist())
	if !ok {
		return
	}

	w.logger.Infof("Registry change detected: %s (%s)", filepath.Base(event.Name), reason)
	if w.onRebuild != nil {
		w.onRebuild(reason)
	}
}

// RebuildReason decides whether a filesystem event warrants a registry
// rebuild. Snapshot writes within selfWriteWindow of our own persist are
// treated as self-inflicted and ignored.
func RebuildReason(name string, op fsnotify.Op, snapshotName string, sincePersist time.Duration) (string, bool) {
	if op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}

	base := filepath.Base(name)
	if base == snapshotName {
		if sincePersist < selfWriteWindow {
			return "", false
		}
		return "snapshot edited externally", true
	}

	switch strings.ToLower(base) {
	case "addon.json":
		return "addon manifest changed", true
	case "manifest.json":
		return "asset manifest changed", true
	}
	return "", false
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
