// Package throttle is an in-memory fixed-window attempt limiter keyed by string.
package throttle

import (
	"strings"
	"sync"
	"time"
)

type bucket struct {
	hits    int
	resetAt time.Time
}

// Limiter counts hits per key inside a fixed window.
type Limiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	now     func() time.Time
	buckets map[string]*bucket
}

// New creates a Limiter allowing max hits per window.
func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		max:     max,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Key builds the login throttle key from an email and a client address.
func Key(email, ip string) string {
	return strings.ToLower(strings.TrimSpace(email)) + "|" + ip
}

// live returns the bucket for key, dropping it if its window elapsed.
func (l *Limiter) live(key string) *bucket {
	b, ok := l.buckets[key]
	if !ok {
		return nil
	}
	if !l.now().Before(b.resetAt) {
		delete(l.buckets, key)
		return nil
	}
	return b
}

// TooMany reports whether key has used up its attempts.
func (l *Limiter) TooMany(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.live(key)
	return b != nil && b.hits >= l.max
}

// Hit records one attempt for key and returns the hit count in the window.
func (l *Limiter) Hit(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.live(key)
	if b == nil {
		b = &bucket{resetAt: l.now().Add(l.window)}
		l.buckets[key] = b
	}
	b.hits++
	return b.hits
}

// AvailableIn returns the time until key's window resets.
func (l *Limiter) AvailableIn(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.live(key)
	if b == nil {
		return 0
	}
	return b.resetAt.Sub(l.now())
}

// Clear forgets key.
func (l *Limiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Sweep drops expired buckets. The server calls it periodically.
func (l *Limiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for k, b := range l.buckets {
		if !now.Before(b.resetAt) {
			delete(l.buckets, k)
		}
	}
}
