package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterCooldown(t *testing.T) {
	rl := NewRateLimiter(5000 * time.Millisecond)
	start := time.Unix(100, 0)

	assert.True(t, rl.AllowAt("10.0.0.1", start))
	assert.False(t, rl.AllowAt("10.0.0.1", start.Add(time.Second)))
	assert.False(t, rl.AllowAt("10.0.0.1", start.Add(4999*time.Millisecond)))

	// other hosts are independent
	assert.True(t, rl.AllowAt("10.0.0.2", start.Add(time.Second)))

	assert.True(t, rl.AllowAt("10.0.0.1", start.Add(5001*time.Millisecond)))
	// admission refreshed the timestamp
	assert.False(t, rl.AllowAt("10.0.0.1", start.Add(6*time.Second)))
	assert.True(t, rl.AllowAt("10.0.0.1", start.Add(10002*time.Millisecond)))
}

func TestRateLimiterRejectionDoesNotExtend(t *testing.T) {
	rl := NewRateLimiter(time.Second)
	start := time.Unix(100, 0)
	assert.True(t, rl.AllowAt("h", start))
	for i := 1; i < 10; i++ {
		assert.False(t, rl.AllowAt("h", start.Add(time.Duration(i)*90*time.Millisecond)))
	}
	assert.True(t, rl.AllowAt("h", start.Add(1001*time.Millisecond)))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0)
	now := time.Now()
	for i := 0; i < 5; i++ {
		assert.True(t, rl.AllowAt("h", now))
	}
	assert.Equal(t, 0, rl.Len())
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(5 * time.Second)
	start := time.Unix(100, 0)
	rl.AllowAt("old", start)
	rl.AllowAt("new", start.Add(4*time.Second))
	assert.Equal(t, 2, rl.Len())

	assert.Equal(t, 1, rl.Prune(start.Add(6*time.Second)))
	assert.Equal(t, 1, rl.Len())
	assert.False(t, rl.AllowAt("new", start.Add(6*time.Second)))
	assert.True(t, rl.AllowAt("old", start.Add(6*time.Second)))
}
