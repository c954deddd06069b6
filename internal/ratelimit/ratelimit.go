package ratelimit

import (
	"sync"
	"time"
)

const (
	windowDuration  = time.Minute
	entryTTL        = 5 * time.Minute
	cleanupInterval = time.Minute
)

type entry struct {
	timestamps []time.Time
	lastAccess time.Time
}

// Limiter is a best-effort sliding-window limiter keyed by phone number.
// It is advisory only: entries evict by time window, never persist, and
// reset on restart.
type Limiter struct {
	mu          sync.Mutex
	limit       int
	store       map[string]*entry
	lastCleanup time.Time
	now         func() time.Time
}

// New creates a Limiter allowing limit messages per phone per minute.
func New(limit int) *Limiter {
	return &Limiter{
		limit:       limit,
		store:       make(map[string]*entry),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow records one inbound message and reports whether it is within the
// window budget.
func (l *Limiter) Allow(phone string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now)

	e, ok := l.store[phone]
	if !ok {
		e = &entry{}
		l.store[phone] = e
	}
	e.lastAccess = now

	windowStart := now.Add(-windowDuration)
	kept := e.timestamps[:0]
	for _, ts := range e.timestamps {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}
	e.timestamps = kept

	if len(e.timestamps) >= l.limit {
		return false
	}
	e.timestamps = append(e.timestamps, now)
	return true
}

func (l *Limiter) cleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < cleanupInterval {
		return
	}
	l.lastCleanup = now
	for key, e := range l.store {
		if now.Sub(e.lastAccess) > entryTTL {
			delete(l.store, key)
		}
	}
}
