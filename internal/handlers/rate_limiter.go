package handlers

import (
	"strings"
	"sync"
	"time"
)

type rateLimiter interface {
	Allow(key string) bool
}

// fixedWindowLimiter counts requests per key inside a fixed window. Windows
// reset lazily on the first request after expiry; expired keys are pruned on
// window rollover so the map does not grow with one-off callers.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time

	mu      sync.Mutex
	windows map[string]requestWindow
}

type requestWindow struct {
	hits      int
	expiresAt time.Time
}

func newFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		clock:   clock,
		windows: make(map[string]requestWindow),
	}
}

func (l *fixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}

	now := l.clock()

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.windows[key]
	if !ok || now.After(current.expiresAt) {
		l.dropExpiredLocked(now)
		l.windows[key] = requestWindow{hits: 1, expiresAt: now.Add(l.window)}
		return true
	}

	if current.hits >= l.limit {
		return false
	}
	current.hits++
	l.windows[key] = current
	return true
}

func (l *fixedWindowLimiter) dropExpiredLocked(now time.Time) {
	for key, w := range l.windows {
		if now.After(w.expiresAt) {
			delete(l.windows, key)
		}
	}
}
