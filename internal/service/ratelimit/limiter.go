package ratelimit

import (
	"sync"
	"time"
)

// DefaultMaxKeys bounds how many buckets a Limiter tracks before pruning idle ones.
const DefaultMaxKeys = 4096

type bucket struct {
	tokens float64
	last   time.Time
}

// Limiter is a keyed token bucket. Every key shares the same capacity and refill rate.
type Limiter struct {
	mu         sync.Mutex
	m          map[string]*bucket
	capacity   float64
	refillRate float64 // tokens per second
	maxKeys    int
	now        func() time.Time
}

// New creates a limiter. A capacity below one is raised to one so a key can
// always make progress.
func New(capacity, refillPerSec float64) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		m:          make(map[string]*bucket),
		capacity:   capacity,
		refillRate: refillPerSec,
		maxKeys:    DefaultMaxKeys,
		now:        time.Now,
	}
}

// Allow returns true if one token can be consumed for key.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.m[key]
	if !ok {
		if len(l.m) >= l.maxKeys {
			l.prune(now)
		}
		b = &bucket{tokens: l.capacity, last: now}
		l.m[key] = b
	}
	l.refill(b, now)
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

func (l *Limiter) refill(b *bucket, now time.Time) {
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens += elapsed * l.refillRate
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
}

// prune drops buckets that have refilled completely; forgetting them changes
// nothing since a new bucket starts full. If every bucket is still draining
// the oldest one is evicted.
func (l *Limiter) prune(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, b := range l.m {
		l.refill(b, now)
		if b.tokens >= l.capacity {
			delete(l.m, k)
			continue
		}
		if oldestKey == "" || b.last.Before(oldest) {
			oldestKey, oldest = k, b.last
		}
	}
	if len(l.m) >= l.maxKeys && oldestKey != "" {
		delete(l.m, oldestKey)
	}
}
