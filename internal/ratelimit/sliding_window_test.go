package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestLimiter() (*SlidingWindow, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	l := New()
	l.now = clock.now
	l.lastCleanup = clock.t
	return l, clock
}

func TestAllowUpToLimit(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		allowed, info := l.Allow("ip:1.2.3.4", 5, time.Minute)
		assert.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 5, info.Limit)
		assert.Equal(t, 4-i, info.Remaining)
	}

	allowed, info := l.Allow("ip:1.2.3.4", 5, time.Minute)
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 60, info.RetryAfter)
}

func TestWindowSlides(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("k", 5, time.Minute)
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("k", 5, time.Minute)
	assert.False(t, allowed)

	// Just past the window the oldest timestamps fall out.
	clock.advance(61 * time.Second)
	allowed, info := l.Allow("k", 5, time.Minute)
	assert.True(t, allowed)
	assert.Equal(t, 4, info.Remaining)
}

func TestKeysIndependent(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("ip:a", 3, time.Minute)
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("ip:a", 3, time.Minute)
	assert.False(t, allowed)

	allowed, _ = l.Allow("ip:b", 3, time.Minute)
	assert.True(t, allowed)
}

func TestIdleEviction(t *testing.T) {
	l, clock := newTestLimiter()

	l.Allow("stale", 5, time.Minute)
	l.Allow("fresh", 5, time.Minute)

	// Past the idle threshold only keys touched since survive the sweep.
	clock.advance(2 * time.Hour)
	l.Allow("fresh", 5, time.Minute)

	l.mu.Lock()
	_, staleExists := l.windows["stale"]
	_, freshExists := l.windows["fresh"]
	l.mu.Unlock()

	assert.False(t, staleExists)
	assert.True(t, freshExists)
}

func TestParseRate(t *testing.T) {
	count, window := ParseRate("5/minute")
	assert.Equal(t, 5, count)
	assert.Equal(t, time.Minute, window)

	count, window = ParseRate("100/hour")
	assert.Equal(t, 100, count)
	assert.Equal(t, time.Hour, window)

	count, window = ParseRate("10/second")
	assert.Equal(t, 10, count)
	assert.Equal(t, time.Second, window)

	count, window = ParseRate("2/day")
	assert.Equal(t, 2, count)
	assert.Equal(t, 24*time.Hour, window)

	// Garbage falls back to the default.
	count, window = ParseRate("not-a-rate")
	assert.Equal(t, 5, count)
	assert.Equal(t, time.Minute, window)

	count, window = ParseRate("-3/minute")
	assert.Equal(t, 5, count)
	assert.Equal(t, time.Minute, window)
}
