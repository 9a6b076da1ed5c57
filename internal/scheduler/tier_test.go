package scheduler

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearthdesk/hearthd/config"
	"github.com/hearthdesk/hearthd/internal/registry"
)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeCollector records which sections were sampled and returns a fresh
// entry per call so merges always observe a change.
type fakeCollector struct {
	mu    sync.Mutex
	calls map[string]int
	seq   int
}

func newFakeCollector() *fakeCollector {
	return &fakeCollector{calls: make(map[string]int)}
}

func (f *fakeCollector) Collect(ctx context.Context, section string) ([]registry.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[section]++
	f.seq++
	return []registry.Entry{{
		ID:       section + "-0",
		Category: section,
		Metadata: map[string]interface{}{"seq": f.seq},
	}}, nil
}

func (f *fakeCollector) count(section string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[section]
}

func (f *fakeCollector) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func newTestScheduler(t *testing.T, collector *fakeCollector) (*Scheduler, *Tracker, *Signal, *config.Store, *registry.Store) {
	t.Helper()
	settings := config.Load(filepath.Join(t.TempDir(), "config.yaml"), testLogger())
	settings.SetFastPullRateMS(10)
	settings.SetSlowPullRateMS(20)

	store := registry.NewStore()
	sig := NewSignal()
	tracker := NewTracker(settings.UIDataExceptionEnabled, sig)
	sched := NewScheduler(store, collector, tracker, sig, settings, nil, testLogger())
	return sched, tracker, sig, settings, store
}

func TestSchedulerSkipsSamplingWithoutDemand(t *testing.T) {
	collector := newFakeCollector()
	sched, _, _, _, _ := newTestScheduler(t, collector)

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)

	time.Sleep(150 * time.Millisecond)
	cancel()

	assert.Zero(t, collector.total(), "no sensor calls may occur without demand")
}

func TestSchedulerSamplesOnlyDemandedSections(t *testing.T) {
	collector := newFakeCollector()
	sched, tracker, _, _, store := newTestScheduler(t, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	tracker.SetSections([]string{"cpu"})

	require.Eventually(t, func() bool {
		return collector.count("cpu") > 0
	}, 2*time.Second, 10*time.Millisecond, "tracked section must be sampled within a tick")

	// Untracked sections stay silent.
	assert.Zero(t, collector.count("time"))
	assert.Zero(t, collector.count("ram"))
	assert.Zero(t, collector.count("active_window"))

	// The sample must have landed in the registry.
	require.Eventually(t, func() bool {
		return registry.FindByCategory(store.Snapshot().Sysdata, "cpu") != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSchedulerPausedBackoff(t *testing.T) {
	collector := newFakeCollector()
	sched, tracker, _, settings, _ := newTestScheduler(t, collector)

	settings.SetPaused(true)
	tracker.SetSections([]string{"cpu", "time", "ram"})

	ctx, cancel := context.WithCancel(context.Background())
	go sched.Run(ctx)

	time.Sleep(150 * time.Millisecond)
	cancel()

	assert.Zero(t, collector.total(), "paused tiers must not sample regardless of demand")
}

func TestSchedulerUnpauseNoticedWithoutWake(t *testing.T) {
	collector := newFakeCollector()
	sched, tracker, _, settings, _ := newTestScheduler(t, collector)

	// The configured intervals must not govern how often a paused tier
	// rechecks the flag; the paused wait is the short fixed backoff.
	settings.SetFastPullRateMS(config.MaxFastRateMS)
	settings.SetSlowPullRateMS(config.MaxSlowRateMS)
	settings.SetPaused(true)
	tracker.SetSections([]string{"cpu"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	time.Sleep(50 * time.Millisecond)
	settings.SetPaused(false)

	assert.Eventually(t, func() bool { return collector.count("cpu") > 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestSchedulerHeartbeatOpensAllTiers(t *testing.T) {
	collector := newFakeCollector()
	sched, tracker, _, _, _ := newTestScheduler(t, collector)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go sched.Run(ctx)

	// Keep the heartbeat alive across the observation window.
	heartbeatCtx, stopBeat := context.WithCancel(context.Background())
	defer stopBeat()
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		tracker.TouchHeartbeat()
		for {
			select {
			case <-heartbeatCtx.Done():
				return
			case <-ticker.C:
				tracker.TouchHeartbeat()
			}
		}
	}()

	require.Eventually(t, func() bool {
		return collector.count("time") > 0 && collector.count("ram") > 0 && collector.count("active_window") > 0
	}, 3*time.Second, 10*time.Millisecond, "heartbeat must open every tier")
}

func TestSchedulerOnChangeFiresOnlyWhenDataChanges(t *testing.T) {
	collector := newFakeCollector()
	settings := config.Load(filepath.Join(t.TempDir(), "config.yaml"), testLogger())
	store := registry.NewStore()
	sig := NewSignal()
	tracker := NewTracker(settings.UIDataExceptionEnabled, sig)

	var mu sync.Mutex
	changes := 0
	sched := NewScheduler(store, collector, tracker, sig, settings, func() {
		mu.Lock()
		changes++
		mu.Unlock()
	}, testLogger())

	ctx := context.Background()
	tier := Tier{Name: "cpu", Sections: []string{"cpu"}}

	assert.True(t, sched.collectTier(ctx, tier, []string{"cpu"}))
	mu.Lock()
	assert.Zero(t, changes, "collectTier itself does not invoke onChange")
	mu.Unlock()

	// Identical data merged again reports no change.
	static := &staticCollector{}
	sched2 := NewScheduler(store, static, tracker, sig, settings, nil, testLogger())
	assert.True(t, sched2.collectTier(ctx, tier, []string{"cpu"}))
	assert.False(t, sched2.collectTier(ctx, tier, []string{"cpu"}))
}

// staticCollector always returns the same entry.
type staticCollector struct{}

func (s *staticCollector) Collect(ctx context.Context, section string) ([]registry.Entry, error) {
	return []registry.Entry{{
		ID:       section + "-0",
		Category: section,
		Metadata: map[string]interface{}{"value": 1.0},
	}}, nil
}

func TestRefreshFastNowIgnoresDemand(t *testing.T) {
	collector := newFakeCollector()
	sched, _, _, _, store := newTestScheduler(t, collector)

	sched.RefreshFastNow(context.Background())

	// Every fast sysdata section gets sampled once, appdata does not.
	assert.Equal(t, 1, collector.count("time"))
	assert.Equal(t, 1, collector.count("keyboard"))
	assert.Zero(t, collector.count("active_window"))
	assert.Zero(t, collector.count("ram"))

	assert.NotNil(t, registry.FindByCategory(store.Snapshot().Sysdata, "time"))
}
