package scheduler

import (
	"strings"
	"sync"
	"time"
)

// heartbeatTTL is how long a UI heartbeat keeps all sections in demand.
const heartbeatTTL = 2500 * time.Millisecond

// Tracker decides which data sections are currently worth collecting.
// Demand comes from two sources: an explicit set of tracked sections, and
// a recent UI heartbeat which demands everything while the frontend is
// visible. The heartbeat path can be disabled via the supplied gate.
type Tracker struct {
	mu            sync.Mutex
	tracked       map[string]bool
	lastHeartbeat time.Time

	uiException func() bool
	signal      *Signal
	now         func() time.Time
}

// NewTracker creates a Tracker. uiException gates whether UI heartbeats
// count as demand; signal is woken whenever demand may have grown.
func NewTracker(uiException func() bool, signal *Signal) *Tracker {
	return &Tracker{
		tracked:     make(map[string]bool),
		uiException: uiException,
		signal:      signal,
		now:         time.Now,
	}
}

// SetSections replaces the tracked section set. Section names are
// lowercased. The wake signal fires only when the set actually changed.
func (t *Tracker) SetSections(sections []string) {
	next := make(map[string]bool, len(sections))
	for _, s := range sections {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			next[s] = true
		}
	}

	t.mu.Lock()
	same := len(next) == len(t.tracked)
	if same {
		for s := range next {
			if !t.tracked[s] {
				same = false
				break
			}
		}
	}
	t.tracked = next
	t.mu.Unlock()

	if !same {
		t.signal.Wake()
	}
}

// TouchHeartbeat records a UI heartbeat and wakes the tier loops.
func (t *Tracker) TouchHeartbeat() {
	t.mu.Lock()
	t.lastHeartbeat = t.now()
	t.mu.Unlock()
	t.signal.Wake()
}

// heartbeatActive reports whether a heartbeat within the TTL is demanding
// all sections. Callers must hold t.mu.
func (t *Tracker) heartbeatActive() bool {
	if t.lastHeartbeat.IsZero() || !t.uiException() {
		return false
	}
	return t.now().Sub(t.lastHeartbeat) < heartbeatTTL
}

// Active reports whether any demand exists at all.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracked) > 0 || t.heartbeatActive()
}

// ActiveSubset returns the demanded subset of sections. A live heartbeat
// demands every section; otherwise only explicitly tracked ones qualify.
func (t *Tracker) ActiveSubset(sections []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.heartbeatActive() {
		out := make([]string, len(sections))
		copy(out, sections)
		return out
	}
	if len(t.tracked) == 0 {
		return nil
	}
	var out []string
	for _, s := range sections {
		if t.tracked[strings.ToLower(s)] {
			out = append(out, s)
		}
	}
	return out
}

// TrackingActive reports whether any section is explicitly tracked.
func (t *Tracker) TrackingActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tracked) > 0
}

// Tracked returns the explicit tracking state keyed by section name.
func (t *Tracker) Tracked() map[string]bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]bool, len(t.tracked))
	for s := range t.tracked {
		out[s] = true
	}
	return out
}
