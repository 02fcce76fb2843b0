// Package ratelimit implements the in-process sliding-log admission controller.
//
// Each client key owns an ordered log of admitted request timestamps. A check prunes
// the log to the trailing window, then admits and records the request only when the
// remaining count is below the policy limit. Rejected attempts are never recorded.
package ratelimit

import (
	"sync"
	"time"
)

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed   bool
	Remaining int
	// At is the recorded timestamp of an admitted check, zero otherwise.
	At time.Time
}

type entry struct {
	mu     sync.Mutex
	stamps []time.Time
}

// Limiter holds per-key sliding logs. Keys never contend with each other; each key
// is guarded by its own mutex.
type Limiter struct {
	entries sync.Map // map[string]*entry
	now     func() time.Time
}

type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

func New(opts ...Option) *Limiter {
	l := &Limiter{now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check prunes the log for key, then admits the request if fewer than maxRequests
// timestamps remain strictly inside (now-window, now].
func (l *Limiter) Check(key string, maxRequests int, window time.Duration) Decision {
	if maxRequests <= 0 {
		return Decision{}
	}

	value, ok := l.entries.Load(key)
	if !ok {
		value, _ = l.entries.LoadOrStore(key, &entry{})
	}
	e := value.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	now := l.now()
	e.prune(now.Add(-window))

	count := len(e.stamps)
	if count >= maxRequests {
		return Decision{Allowed: false, Remaining: 0}
	}

	e.stamps = append(e.stamps, now)
	return Decision{Allowed: true, Remaining: maxRequests - count - 1, At: now}
}

// Release withdraws one timestamp recorded at `at` for key. It undoes an admission
// whose request was then rejected by a later check. It reports whether a stamp was
// removed; a stamp already pruned or never recorded is a no-op.
func (l *Limiter) Release(key string, at time.Time) bool {
	if at.IsZero() {
		return false
	}
	value, ok := l.entries.Load(key)
	if !ok {
		return false
	}
	e := value.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := len(e.stamps) - 1; i >= 0; i-- {
		if e.stamps[i].Equal(at) {
			e.stamps = append(e.stamps[:i], e.stamps[i+1:]...)
			return true
		}
		if e.stamps[i].Before(at) {
			break
		}
	}
	return false
}

// Remaining reports the quota left for key without recording anything. Unknown keys
// report the full limit and are not created.
func (l *Limiter) Remaining(key string, maxRequests int, window time.Duration) int {
	if maxRequests <= 0 {
		return 0
	}
	value, ok := l.entries.Load(key)
	if !ok {
		return maxRequests
	}
	e := value.(*entry)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.prune(l.now().Add(-window))
	if left := maxRequests - len(e.stamps); left > 0 {
		return left
	}
	return 0
}

// Keys reports how many client keys currently hold an entry, including stale ones
// that have not been touched since their window elapsed.
func (l *Limiter) Keys() int {
	n := 0
	l.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// prune drops timestamps at or before cutoff. Stamps are appended in order, so the
// survivors are always a suffix.
func (e *entry) prune(cutoff time.Time) {
	idx := 0
	for idx < len(e.stamps) && !e.stamps[idx].After(cutoff) {
		idx++
	}
	if idx == 0 {
		return
	}
	n := copy(e.stamps, e.stamps[idx:])
	e.stamps = e.stamps[:n]
}
