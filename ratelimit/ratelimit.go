// Package ratelimit implements a fixed-window per-key rate limiter kept
// entirely in process memory. Counters reset when their window expires and
// are lost on restart.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts actions per key within a fixed window.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	windows map[string]*windowCount

	now func() time.Time // test hook
}

type windowCount struct {
	start time.Time
	count int
}

// New creates a limiter allowing max actions per window for each key.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		windows: make(map[string]*windowCount),
		now:     time.Now,
	}
}

// Allow records one action under key and reports whether it fits in the
// key's current window.
func (l *Limiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.prune(now)
		l.windows[key] = &windowCount{start: now, count: 1}
		return true
	}
	if w.count >= l.max {
		return false
	}
	w.count++
	return true
}

// prune drops expired windows. Called with the lock held; keyed by client
// address the map stays small enough to sweep inline.
func (l *Limiter) prune(now time.Time) {
	for k, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, k)
		}
	}
}
