package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucketDrainsAndRefills(t *testing.T) {
	b := NewBucket(3, 1000)

	for i := 0; i < 3; i++ {
		assert.True(t, b.Allow(), "request %d within burst", i)
	}

	// a 1000/s refill rate restores a token almost immediately, so force
	// an empty bucket instead of sleeping
	b.mu.Lock()
	b.tokens = 0
	b.refillRate = 0
	b.mu.Unlock()

	assert.False(t, b.Allow(), "empty bucket must reject")
}

func TestClientLimiterIsolatesClients(t *testing.T) {
	l := NewClientLimiter(1, 0)
	defer l.Stop()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "client burst exhausted")
	assert.True(t, l.Allow("10.0.0.2"), "other clients keep their own bucket")
}

func TestClientLimiterStopIsIdempotent(t *testing.T) {
	l := NewClientLimiter(1, 1)
	l.Stop()
	l.Stop()
}
