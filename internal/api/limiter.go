package api

import (
	"sync"

	"shareit/internal/config"

	"golang.org/x/time/rate"
)

const defaultBurst = 5

// clientThrottle keeps one token bucket per calling user so a single noisy
// client cannot starve the rest of the API.
type clientThrottle struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

func newClientThrottle(cfg config.APIConfig) *clientThrottle {
	burst := cfg.RateLimit.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &clientThrottle{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(cfg.RateLimit.RPS),
		burst:   burst,
	}
}

// allow consumes one token from the caller's bucket, creating it on first use.
func (t *clientThrottle) allow(key string) bool {
	t.mu.Lock()
	bucket, ok := t.buckets[key]
	if !ok {
		bucket = rate.NewLimiter(t.rps, t.burst)
		t.buckets[key] = bucket
	}
	t.mu.Unlock()

	return bucket.Allow()
}
