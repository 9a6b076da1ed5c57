// Package logging provides pre-configured logrus loggers for hearthd
// components. Each component gets a singleton *logrus.Entry tagged with a
// "component" field, writing to a per-day file under <root>/logs and, when
// appropriate, to stderr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hearthdesk/hearthd/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger creates and returns a pre-configured logger for a specific
// component. It uses a singleton pattern per component to avoid
// re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("HEARTH_LOG_LEVEL"); env != "" {
		levelStr = env
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("HEARTH_LOG_CALLER") == "true" {
		logger.SetReportCaller(true)
	}

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	var writers []io.Writer

	// File sink: <root>/logs/<component>-<date>.log. Failure to open the
	// log file is not fatal; the daemon keeps running with whatever sinks
	// it could set up.
	logDir := paths.LogsDir(paths.RootDir())
	if err := os.MkdirAll(logDir, 0o755); err == nil {
		name := fmt.Sprintf("%s-%s.log", component, time.Now().Format("2006-01-02"))
		file, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			writers = append(writers, file)
		}
	}

	// Stderr sink: only when debugging or when not attached to an
	// interactive terminal (piped, service manager, CI).
	isDebug := os.Getenv("HEARTH_DEBUG") == "1" || logger.GetLevel() == logrus.DebugLevel
	isInteractive := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	if isDebug || !isInteractive {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}
