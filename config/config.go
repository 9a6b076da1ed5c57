// Package config holds the daemon's persisted runtime settings.
//
// Settings live in config.yaml under the Hearth data root. They are loaded
// once at startup (defaulted when the file is absent or corrupt), mirrored
// into atomic values for lock-free reads on the scheduler hot path, and
// mutated only through setters that update the atomics, the locked struct,
// and the disk copy together.
package config

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultFastRateMS is the default fast-tier interval in milliseconds.
	DefaultFastRateMS = 50
	// DefaultSlowRateMS is the default slow-tier interval in milliseconds.
	DefaultSlowRateMS = 500

	// MaxFastRateMS is the clamp ceiling for the fast-tier interval.
	MaxFastRateMS = 5000
	// MaxSlowRateMS is the clamp ceiling for the slow-tier interval.
	MaxSlowRateMS = 10000
)

// Settings is the on-disk shape of the runtime settings file. The json
// tags mirror the yaml ones so get_config responses use the same field
// names external tooling reads from the file.
type Settings struct {
	// Interval (ms) for lightweight data: time, keyboard, mouse, audio, idle.
	FastPullRateMS uint64 `yaml:"fast_pull_rate_ms" json:"fast_pull_rate_ms"`

	// Interval (ms) for heavyweight data: cpu, gpu, ram, storage, network,
	// processes, etc.
	SlowPullRateMS uint64 `yaml:"slow_pull_rate_ms" json:"slow_pull_rate_ms"`

	// Whether data pulling is currently paused.
	DataPullPaused bool `yaml:"data_pull_paused" json:"data_pull_paused"`

	// Whether to refresh fast-tier data inline on sysdata-reading RPC
	// requests.
	RefreshOnRequest bool `yaml:"refresh_on_request" json:"refresh_on_request"`

	// Whether a recent UI heartbeat counts as demand for every section.
	UIDataExceptionEnabled bool `yaml:"ui_data_exception_enabled" json:"ui_data_exception_enabled"`

	// Absorbed silently if present in an old settings file; never
	// rewritten or exposed.
	LegacyPullRateMS *uint64 `yaml:"data_pull_rate_ms,omitempty" json:"-"`
}

func defaultSettings() Settings {
	return Settings{
		FastPullRateMS:         DefaultFastRateMS,
		SlowPullRateMS:         DefaultSlowRateMS,
		DataPullPaused:         false,
		RefreshOnRequest:       true,
		UIDataExceptionEnabled: true,
	}
}

// Store owns the settings for the process lifetime. Hot-path fields are
// readable without locking; persistence goes through an internal mutex.
type Store struct {
	mu       sync.Mutex
	settings Settings
	path     string
	logger   *logrus.Entry

	fastRate    atomic.Uint64
	slowRate    atomic.Uint64
	paused      atomic.Bool
	refreshReq  atomic.Bool
	uiException atomic.Bool
}

// Load reads the settings file at path, falling back to defaults when it is
// missing or unparsable, and returns a Store with the atomics synced. A
// missing file is created with defaults.
func Load(path string, logger *logrus.Entry) *Store {
	s := &Store{path: path, logger: logger}

	settings := defaultSettings()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		logger.WithField("path", path).Info("No settings file found, creating defaults")
		s.settings = settings
		s.sync()
		s.save()
		return s
	case err != nil:
		logger.WithError(err).Warn("Failed to read settings file, using defaults")
	default:
		if err := yaml.Unmarshal(data, &settings); err != nil {
			logger.WithError(err).Warn("Failed to parse settings file, using defaults")
			settings = defaultSettings()
		}
	}

	settings.FastPullRateMS = clamp(settings.FastPullRateMS, MaxFastRateMS)
	settings.SlowPullRateMS = clamp(settings.SlowPullRateMS, MaxSlowRateMS)
	s.settings = settings
	s.sync()
	return s
}

func clamp(v, max uint64) uint64 {
	if v > max {
		return max
	}
	return v
}

// sync mirrors the settings struct into the lock-free atomics.
func (s *Store) sync() {
	s.fastRate.Store(s.settings.FastPullRateMS)
	s.slowRate.Store(s.settings.SlowPullRateMS)
	s.paused.Store(s.settings.DataPullPaused)
	s.refreshReq.Store(s.settings.RefreshOnRequest)
	s.uiException.Store(s.settings.UIDataExceptionEnabled)
}

// FastPullRateMS returns the fast-tier interval in milliseconds.
func (s *Store) FastPullRateMS() uint64 { return s.fastRate.Load() }

// SlowPullRateMS returns the slow-tier interval in milliseconds.
func (s *Store) SlowPullRateMS() uint64 { return s.slowRate.Load() }

// Paused returns whether data pulling is globally paused.
func (s *Store) Paused() bool { return s.paused.Load() }

// RefreshOnRequest returns whether sysdata RPC reads refresh the fast tier
// inline.
func (s *Store) RefreshOnRequest() bool { return s.refreshReq.Load() }

// UIDataExceptionEnabled returns whether UI heartbeats imply demand.
func (s *Store) UIDataExceptionEnabled() bool { return s.uiException.Load() }

// Snapshot returns a copy of the current settings.
func (s *Store) Snapshot() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetFastPullRateMS sets the fast-tier interval, clamped, and persists.
func (s *Store) SetFastPullRateMS(ms uint64) uint64 {
	clamped := clamp(ms, MaxFastRateMS)
	s.fastRate.Store(clamped)
	s.update(func(st *Settings) { st.FastPullRateMS = clamped })
	s.logger.WithField("rate_ms", clamped).Info("Fast pull rate updated")
	return clamped
}

// SetSlowPullRateMS sets the slow-tier interval, clamped, and persists.
func (s *Store) SetSlowPullRateMS(ms uint64) uint64 {
	clamped := clamp(ms, MaxSlowRateMS)
	s.slowRate.Store(clamped)
	s.update(func(st *Settings) { st.SlowPullRateMS = clamped })
	s.logger.WithField("rate_ms", clamped).Info("Slow pull rate updated")
	return clamped
}

// SetPaused sets the global pause flag and persists.
func (s *Store) SetPaused(paused bool) {
	s.paused.Store(paused)
	s.update(func(st *Settings) { st.DataPullPaused = paused })
	s.logger.WithField("paused", paused).Info("Data pull pause updated")
}

// SetRefreshOnRequest sets the refresh-on-request toggle and persists.
func (s *Store) SetRefreshOnRequest(enabled bool) {
	s.refreshReq.Store(enabled)
	s.update(func(st *Settings) { st.RefreshOnRequest = enabled })
	s.logger.WithField("enabled", enabled).Info("Refresh on request updated")
}

// SetUIDataExceptionEnabled sets the heartbeat-demand toggle and persists.
func (s *Store) SetUIDataExceptionEnabled(enabled bool) {
	s.uiException.Store(enabled)
	s.update(func(st *Settings) { st.UIDataExceptionEnabled = enabled })
	s.logger.WithField("enabled", enabled).Info("UI data exception updated")
}

func (s *Store) update(f func(*Settings)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f(&s.settings)
	s.save()
}

// save writes the settings file. Failures are logged, never propagated:
// the in-memory settings stay authoritative.
func (s *Store) save() {
	out := s.settings
	out.LegacyPullRateMS = nil
	data, err := yaml.Marshal(&out)
	if err != nil {
		s.logger.WithError(err).Error("Failed to serialize settings")
		return
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.WithError(err).Error("Failed to write settings file")
	}
}
