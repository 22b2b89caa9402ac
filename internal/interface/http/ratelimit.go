package http

import (
	"sync"
	"time"
)

// rateLimiter counts requests per key in fixed windows. A key's count
// resets when its window expires, so a burst straddling a boundary can
// briefly exceed the limit; that is acceptable for abuse protection.
type rateLimiter struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	buckets map[string]*windowCount
}

type windowCount struct {
	start time.Time
	count int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	rl := &rateLimiter{
		limit:   limit,
		window:  window,
		buckets: make(map[string]*windowCount),
	}
	go rl.sweep()
	return rl
}

// Allow records one request for key and reports whether it fits the
// current window.
func (rl *rateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.buckets[key]
	if b == nil || now.Sub(b.start) >= rl.window {
		rl.buckets[key] = &windowCount{start: now, count: 1}
		return true
	}

	if b.count >= rl.limit {
		return false
	}
	b.count++
	return true
}

// sweep drops buckets from expired windows so idle clients do not pin
// memory.
func (rl *rateLimiter) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for now := range ticker.C {
		rl.mu.Lock()
		for key, b := range rl.buckets {
			if now.Sub(b.start) >= rl.window {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}
