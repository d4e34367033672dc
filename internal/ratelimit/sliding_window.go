package ratelimit

import (
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	cleanupInterval = 5 * time.Minute
	idleEviction    = time.Hour
)

// Info is attached to every admission decision so handlers can emit
// X-RateLimit-* headers and a Retry-After hint.
type Info struct {
	Limit      int   `json:"limit"`
	Remaining  int   `json:"remaining"`
	Reset      int64 `json:"reset"`
	RetryAfter int   `json:"retry_after"`
}

// SlidingWindow is an in-memory, process-local rate limiter. It counts
// request timestamps per key inside a trailing window. Restarts reset
// all counters and horizontal scale-out fragments the limit per
// instance; both are accepted for a single-instance deployment.
type SlidingWindow struct {
	mu          sync.Mutex
	windows     map[string][]time.Time
	lastCleanup time.Time
	now         func() time.Time
}

func New() *SlidingWindow {
	return &SlidingWindow{
		windows:     make(map[string][]time.Time),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow admits the request iff fewer than limit timestamps remain in the
// trailing window after evicting stale ones. Admitted requests append a
// timestamp.
func (l *SlidingWindow) Allow(key string, limit int, window time.Duration) (bool, Info) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-window)

	l.cleanupLocked(now)

	entries := l.windows[key]
	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(windowStart) {
			kept = append(kept, ts)
		}
	}

	count := len(kept)
	allowed := count < limit
	if allowed {
		kept = append(kept, now)
	}
	l.windows[key] = kept

	info := Info{
		Limit:     limit,
		Remaining: limit - count,
		Reset:     now.Add(window).Unix(),
	}
	if allowed {
		info.Remaining = limit - count - 1
	}
	if info.Remaining < 0 {
		info.Remaining = 0
	}
	if len(kept) > 0 {
		info.Reset = kept[0].Add(window).Unix()
	}
	if !allowed {
		info.RetryAfter = int(window.Seconds())
	}

	return allowed, info
}

// cleanupLocked evicts windows untouched for over an hour. Time-boxed to
// once per cleanupInterval rather than running on every request.
func (l *SlidingWindow) cleanupLocked(now time.Time) {
	if now.Sub(l.lastCleanup) < cleanupInterval {
		return
	}
	l.lastCleanup = now

	cutoff := now.Add(-idleEviction)
	removed := 0
	for key, entries := range l.windows {
		kept := entries[:0]
		for _, ts := range entries {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(l.windows, key)
			removed++
			continue
		}
		l.windows[key] = kept
	}

	if removed > 0 {
		log.Printf("Rate limiter cleanup: removed %d expired entries", removed)
	}
}

// ParseRate parses a limit string like "5/minute" or "100/hour" into a
// count and window. Malformed input falls back to 5/minute.
func ParseRate(rate string) (int, time.Duration) {
	parts := strings.SplitN(rate, "/", 2)
	if len(parts) != 2 {
		log.Printf("Warning: invalid rate limit format %q, using default 5/minute", rate)
		return 5, time.Minute
	}

	count, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || count <= 0 {
		log.Printf("Warning: invalid rate limit format %q, using default 5/minute", rate)
		return 5, time.Minute
	}

	var window time.Duration
	switch strings.ToLower(strings.TrimSpace(parts[1])) {
	case "second":
		window = time.Second
	case "minute":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		window = time.Minute
	}

	return count, window
}
