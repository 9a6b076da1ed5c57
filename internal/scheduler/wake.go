package scheduler

import (
	"context"
	"sync"
	"time"
)

// Signal is a broadcast wakeup for the tier loops. Waiters block on the
// current generation's channel; Wake closes it, releasing every waiter at
// once and arming a fresh channel for the next round.
type Signal struct {
	mu sync.Mutex
	ch chan struct{}
}

// NewSignal returns an armed Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Wake releases every goroutine currently blocked in Wait.
func (s *Signal) Wake() {
	s.mu.Lock()
	defer s.mu.Unlock()
	close(s.ch)
	s.ch = make(chan struct{})
}

// Wait blocks until Wake is called, the timeout elapses, or the context is
// cancelled. It reports false only on context cancellation.
func (s *Signal) Wait(ctx context.Context, timeout time.Duration) bool {
	s.mu.Lock()
	ch := s.ch
	s.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return true
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
