// Package ratelimit implements a fixed-window request counter keyed by
// route+client. It is an injected service with an explicit sweep lifecycle
// rather than process-global state, so handlers stay testable.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

type entry struct {
	count     int
	resetTime time.Time
}

// Result describes the outcome of one Allow call. Reset and Limit feed the
// X-RateLimit-* response headers.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

func New() *Limiter {
	return &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow counts one request against the window for key and reports whether it
// fits under max.
func (l *Limiter) Allow(key string, window time.Duration, max int) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	e, ok := l.entries[key]
	if !ok || e.resetTime.Before(now) {
		e = &entry{count: 1, resetTime: now.Add(window)}
		l.entries[key] = e
		return Result{Allowed: true, Limit: max, Remaining: max - 1, Reset: e.resetTime}
	}

	if e.count >= max {
		return Result{Allowed: false, Limit: max, Remaining: 0, Reset: e.resetTime}
	}

	e.count++
	return Result{Allowed: true, Limit: max, Remaining: max - e.count, Reset: e.resetTime}
}

// Start runs the sweep loop until ctx is cancelled.
func (l *Limiter) Start(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, e := range l.entries {
		if e.resetTime.Before(now) {
			delete(l.entries, key)
		}
	}
}
