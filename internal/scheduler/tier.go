package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hearthdesk/hearthd/config"
	"github.com/hearthdesk/hearthd/internal/registry"
	"github.com/hearthdesk/hearthd/internal/sensor"
)

// idleBackoff is the poll interval while a tier is paused or no section
// is in demand. State changes wake the loops immediately, so this only
// bounds staleness of the pause and demand checks themselves.
const idleBackoff = 250 * time.Millisecond

// Tier groups sections that share a pull cadence. The cpu section gets its
// own tier because its sampling window blocks for a fixed interval and
// would stall the other fast sections.
type Tier struct {
	Name     string
	Sections []string
	Appdata  bool
	Fast     bool
}

// Tiers is the fixed tier layout of the collection engine.
var Tiers = []Tier{
	{
		Name: "fast",
		Sections: []string{
			sensor.SectionTime, sensor.SectionKeyboard, sensor.SectionMouse,
			sensor.SectionAudio, sensor.SectionIdle,
		},
		Fast: true,
	},
	{
		Name:     "cpu",
		Sections: []string{sensor.SectionCPU},
	},
	{
		Name:     "appdata",
		Sections: []string{sensor.SectionWindows},
		Appdata:  true,
		Fast:     true,
	},
	{
		Name: "slow",
		Sections: []string{
			sensor.SectionGPU, sensor.SectionRAM, sensor.SectionStorage,
			sensor.SectionNetwork, sensor.SectionBT, sensor.SectionWifi,
			sensor.SectionSystem, sensor.SectionProcs, sensor.SectionDisplays,
			sensor.SectionPower,
		},
	},
}

// Collector pulls a single data section.
type Collector interface {
	Collect(ctx context.Context, section string) ([]registry.Entry, error)
}

// Scheduler runs one goroutine per tier, collecting demanded sections and
// merging the results into the registry store.
type Scheduler struct {
	store     *registry.Store
	collector Collector
	tracker   *Tracker
	signal    *Signal
	settings  *config.Store
	onChange  func()
	logger    *logrus.Entry
}

// NewScheduler wires the collection engine. onChange is invoked after any
// merge that actually altered the registry, typically to persist it.
func NewScheduler(store *registry.Store, collector Collector, tracker *Tracker, signal *Signal, settings *config.Store, onChange func(), logger *logrus.Entry) *Scheduler {
	return &Scheduler{
		store:     store,
		collector: collector,
		tracker:   tracker,
		signal:    signal,
		settings:  settings,
		onChange:  onChange,
		logger:    logger,
	}
}

// Run starts all tier loops and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, tier := range Tiers {
		wg.Add(1)
		go func(t Tier) {
			defer wg.Done()
			s.runTier(ctx, t)
		}(tier)
	}
	wg.Wait()
}

func (s *Scheduler) runTier(ctx context.Context, tier Tier) {
	s.logger.Debugf("Tier %s started (%d sections)", tier.Name, len(tier.Sections))
	for ctx.Err() == nil {
		if s.settings.Paused() {
			if !s.signal.Wait(ctx, idleBackoff) {
				return
			}
			continue
		}

		sections := s.tracker.ActiveSubset(tier.Sections)
		if len(sections) == 0 {
			if !s.signal.Wait(ctx, idleBackoff) {
				return
			}
			continue
		}

		if s.collectTier(ctx, tier, sections) && s.onChange != nil {
			s.onChange()
		}

		if !s.signal.Wait(ctx, s.interval(tier)) {
			return
		}
	}
}

func (s *Scheduler) interval(tier Tier) time.Duration {
	ms := s.settings.SlowPullRateMS()
	if tier.Fast {
		ms = s.settings.FastPullRateMS()
	}
	return time.Duration(ms) * time.Millisecond
}

// collectTier pulls the given sections and merges the results, reporting
// whether the registry changed. Collection happens outside any store lock.
func (s *Scheduler) collectTier(ctx context.Context, tier Tier, sections []string) bool {
	var fresh []registry.Entry
	categories := make([]string, 0, len(sections))
	for _, section := range sections {
		entries, err := s.collector.Collect(ctx, section)
		if err != nil {
			s.logger.WithError(err).Debugf("Collection failed for %s", section)
			continue
		}
		fresh = append(fresh, entries...)
		categories = append(categories, sensor.CategoryFor(section))
	}
	if len(categories) == 0 {
		return false
	}

	source := "tier:" + tier.Name
	if tier.Appdata {
		return s.store.MergeAppdata(fresh, categories, source)
	}
	return s.store.MergeSysdata(fresh, categories, source)
}

// RefreshFastNow synchronously pulls every fast-cadence sysdata section,
// regardless of demand. Used to serve registry reads with fresh data when
// refresh-on-request is enabled.
func (s *Scheduler) RefreshFastNow(ctx context.Context) {
	for _, tier := range Tiers {
		if !tier.Fast || tier.Appdata {
			continue
		}
		if s.collectTier(ctx, tier, tier.Sections) && s.onChange != nil {
			s.onChange()
		}
	}
}
