package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter admits at most one connection per source host per cooldown.
// A rejected attempt does not push the next admission further out.
type RateLimiter struct {
	cooldown time.Duration

	mu      sync.Mutex
	entries map[string]*rateLimitData
}

type rateLimitData struct {
	limiter  *rate.Limiter
	admitted time.Time
}

// NewRateLimiter returns a limiter with the given cooldown. A cooldown of
// zero or less admits every connection.
func NewRateLimiter(cooldown time.Duration) *RateLimiter {
	return &RateLimiter{
		cooldown: cooldown,
		entries:  make(map[string]*rateLimitData),
	}
}

func (rl *RateLimiter) Allow(host string) bool {
	return rl.AllowAt(host, time.Now())
}

// AllowAt reports whether a connection from host arriving at now is admitted,
// recording the admission if so.
func (rl *RateLimiter) AllowAt(host string, now time.Time) bool {
	if rl.cooldown <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	data := rl.entries[host]
	if data == nil {
		data = &rateLimitData{limiter: rate.NewLimiter(rate.Every(rl.cooldown), 1)}
		rl.entries[host] = data
	}
	if !data.limiter.AllowN(now, 1) {
		return false
	}
	data.admitted = now
	return true
}

// Prune forgets hosts whose cooldown has fully elapsed; their next
// connection is admitted either way.
func (rl *RateLimiter) Prune(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	pruned := 0
	for host, data := range rl.entries {
		if now.Sub(data.admitted) >= rl.cooldown {
			delete(rl.entries, host)
			pruned++
		}
	}
	return pruned
}

func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.entries)
}
