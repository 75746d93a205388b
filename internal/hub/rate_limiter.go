package hub

import (
	"sync"
	"time"
)

// RateLimiter coalesces version notifications so a burst of prints yields
// one broadcast per interval carrying the newest version.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	onFlush  func(version uint64)
	latest   uint64
	pending  bool
	timer    *time.Timer
}

func NewRateLimiter(interval time.Duration, onFlush func(uint64)) *RateLimiter {
	return &RateLimiter{
		interval: interval,
		onFlush:  onFlush,
	}
}

func (r *RateLimiter) Add(version uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if version > r.latest {
		r.latest = version
	}
	r.pending = true
	if r.timer == nil {
		r.timer = time.AfterFunc(r.interval, r.Flush)
	}
}

// Flush sends the pending version now, if any.
func (r *RateLimiter) Flush() {
	r.mu.Lock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if !r.pending {
		r.mu.Unlock()
		return
	}
	r.pending = false
	version := r.latest
	r.mu.Unlock()

	if r.onFlush != nil {
		r.onFlush(version)
	}
}
