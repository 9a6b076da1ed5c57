package registry

import (
	"sync"
	"time"
)

// Update describes a registry change pushed to subscribers.
type Update struct {
	// Source names what produced the change: a tier name, "watcher", or
	// "rpc".
	Source string `json:"source"`
	// Categories lists the categories the change touched; empty means a
	// full rebuild.
	Categories []string `json:"categories,omitempty"`
}

// Store owns the shared Registry value. Replacement is atomic from a
// reader's perspective: a single lock acquisition covers the whole swap, so
// readers see either the old or the new value in full, never a mix.
type Store struct {
	mu  sync.RWMutex
	reg Registry

	subMu       sync.Mutex
	subscribers map[chan Update]struct{}

	// lastPersist is read by the watcher for self-write suppression. The
	// time.Time monotonic reading is what matters, not wall-clock.
	persistMu   sync.Mutex
	lastPersist time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		subscribers: make(map[chan Update]struct{}),
	}
}

// Snapshot returns the current registry value. The slices must be treated
// as read-only; writers always swap in fresh slices.
func (s *Store) Snapshot() Registry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reg
}

// Replace swaps in a brand-new registry value.
func (s *Store) Replace(reg Registry, source string) {
	s.mu.Lock()
	s.reg = reg
	s.mu.Unlock()
	s.broadcast(Update{Source: source})
}

// MergeSysdata replaces the sysdata entries for the given categories with
// fresh and reports whether the list actually changed. The write lock is
// held only for the merge itself; unchanged merges are skipped so
// downstream consumers that diff snapshots are not invalidated needlessly.
func (s *Store) MergeSysdata(fresh []Entry, categories []string, source string) bool {
	s.mu.Lock()
	merged := MergeByCategory(s.reg.Sysdata, fresh, categories)
	if EntriesEqual(s.reg.Sysdata, merged) {
		s.mu.Unlock()
		return false
	}
	s.reg.Sysdata = merged
	s.mu.Unlock()
	s.broadcast(Update{Source: source, Categories: categories})
	return true
}

// MergeAppdata is MergeSysdata for the appdata list.
func (s *Store) MergeAppdata(fresh []Entry, categories []string, source string) bool {
	s.mu.Lock()
	merged := MergeByCategory(s.reg.Appdata, fresh, categories)
	if EntriesEqual(s.reg.Appdata, merged) {
		s.mu.Unlock()
		return false
	}
	s.reg.Appdata = merged
	s.mu.Unlock()
	s.broadcast(Update{Source: source, Categories: categories})
	return true
}

// Subscribe creates a buffered subscription channel for registry changes.
func (s *Store) Subscribe() chan Update {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	ch := make(chan Update, 64)
	s.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Store) Unsubscribe(ch chan Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subscribers, ch)
	close(ch)
}

// broadcast delivers an update without blocking; slow subscribers drop
// updates rather than stalling writers.
func (s *Store) broadcast(u Update) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}

// MarkPersist records the moment of the daemon's own snapshot write.
func (s *Store) MarkPersist() {
	s.persistMu.Lock()
	s.lastPersist = time.Now()
	s.persistMu.Unlock()
}

// SinceLastPersist returns the elapsed time since the daemon's own last
// snapshot write, or a very large duration if it never wrote.
func (s *Store) SinceLastPersist() time.Duration {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if s.lastPersist.IsZero() {
		return time.Duration(1<<62 - 1)
	}
	return time.Since(s.lastPersist)
}
