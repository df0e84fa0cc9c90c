// Package limiter keeps one token bucket per key, such as a client IP.
package limiter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	cleanupInterval = 5 * time.Minute
	idleExpiry      = time.Hour
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Keyed rate limits requests per key. Buckets idle for longer than an hour
// are dropped by Run.
type Keyed struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func New(limit rate.Limit, burst int) *Keyed {
	return &Keyed{
		limit:   limit,
		burst:   burst,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// PerMinute builds a limiter refilling n tokens per minute.
func PerMinute(n, burst int) *Keyed {
	if n <= 0 {
		return New(rate.Inf, burst)
	}
	return New(rate.Every(time.Minute/time.Duration(n)), burst)
}

// Allow reports whether key may proceed now and consumes a token if so.
func (k *Keyed) Allow(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	now := k.now()
	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Len reports how many keys are tracked.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// Sweep drops buckets idle since before cutoff and returns how many went.
func (k *Keyed) Sweep(cutoff time.Time) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	n := 0
	for key, b := range k.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(k.buckets, key)
			n++
		}
	}
	return n
}

// Run sweeps idle buckets until ctx is done.
func (k *Keyed) Run(ctx context.Context, logger *slog.Logger) error {
	t := time.NewTicker(cleanupInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n := k.Sweep(k.now().Add(-idleExpiry)); n > 0 {
				logger.Debug("rate limiter swept idle keys", "removed", n, "remaining", k.Len())
			}
		}
	}
}
