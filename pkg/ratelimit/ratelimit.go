package ratelimit

import (
	"sync"
	"time"
)

// Bucket is a token bucket. Tokens refill continuously at refillRate per
// second up to capacity.
type Bucket struct {
	mu         sync.Mutex
	tokens     float64
	capacity   float64
	refillRate float64
	lastRefill time.Time
	lastUsed   time.Time
}

// NewBucket creates a full bucket
func NewBucket(capacity, refillRate float64) *Bucket {
	now := time.Now()
	return &Bucket{
		tokens:     capacity,
		capacity:   capacity,
		refillRate: refillRate,
		lastRefill: now,
		lastUsed:   now,
	}
}

// Allow takes one token if available
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.lastRefill = now
	b.lastUsed = now

	b.tokens += elapsed * b.refillRate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}

	if b.tokens < 1 {
		return false
	}

	b.tokens--
	return true
}

func (b *Bucket) idleSince(cutoff time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastUsed.Before(cutoff)
}

// ClientLimiter keeps one bucket per client key, typically an IP address.
// Idle buckets are dropped so the map does not grow without bound.
type ClientLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*Bucket
	capacity   float64
	refillRate float64
	done       chan struct{}
	stopOnce   sync.Once
}

// NewClientLimiter creates a per-client limiter and starts its cleanup loop
func NewClientLimiter(capacity, refillRate float64) *ClientLimiter {
	l := &ClientLimiter{
		buckets:    make(map[string]*Bucket),
		capacity:   capacity,
		refillRate: refillRate,
		done:       make(chan struct{}),
	}

	go l.cleanupLoop(10 * time.Minute)

	return l
}

// Allow takes a token from the client's bucket
func (l *ClientLimiter) Allow(key string) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = NewBucket(l.capacity, l.refillRate)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()

	return bucket.Allow()
}

func (l *ClientLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-interval)
			l.mu.Lock()
			for key, bucket := range l.buckets {
				if bucket.idleSince(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

// Stop terminates the cleanup loop
func (l *ClientLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.done)
	})
}
