package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the background sweeper evicts
// identities with no recent requests.
const DefaultSweepInterval = 5 * time.Minute

// Decision is the outcome of an admission check. RetryAfter is only set
// when the request is denied.
type Decision struct {
	Allowed    bool
	RetryAfter int
}

// Limiter is a sliding-window rate limiter keyed by caller identity.
// Each identity keeps the timestamps of its admitted requests within the
// trailing window; a request is admitted while fewer than maxRequests
// timestamps remain after pruning.
type Limiter struct {
	maxRequests int
	window      time.Duration

	mu      sync.Mutex
	buckets map[string][]time.Time

	now func() time.Time
}

// New builds a limiter admitting maxRequests per identity per window.
func New(maxRequests int, window time.Duration) *Limiter {
	return &Limiter{
		maxRequests: maxRequests,
		window:      window,
		buckets:     make(map[string][]time.Time),
		now:         time.Now,
	}
}

// Check prunes the identity's bucket and either admits the request,
// recording its timestamp, or denies it with the whole seconds to wait
// before the oldest admitted request leaves the window.
func (l *Limiter) Check(identity string) Decision {
	now := l.now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket := l.buckets[identity]
	start := 0
	for start < len(bucket) && bucket[start].Before(cutoff) {
		start++
	}
	bucket = bucket[start:]

	if len(bucket) >= l.maxRequests {
		l.buckets[identity] = bucket
		retryAfter := int(math.Ceil(bucket[0].Add(l.window).Sub(now).Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		return Decision{Allowed: false, RetryAfter: retryAfter}
	}

	l.buckets[identity] = append(bucket, now)
	return Decision{Allowed: true}
}

// Run sweeps the bucket map on the given interval, evicting identities
// whose buckets are empty after pruning. It blocks until ctx is
// cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

func (l *Limiter) sweep() {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for identity, bucket := range l.buckets {
		start := 0
		for start < len(bucket) && bucket[start].Before(cutoff) {
			start++
		}
		if start == len(bucket) {
			delete(l.buckets, identity)
			continue
		}
		l.buckets[identity] = bucket[start:]
	}
}
