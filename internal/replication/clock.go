package replication

import (
	"sync"
	"time"

	"warlock-arena/internal/pkg/clock"
)

// offsetSmoothing is the divisor applied to each new offset sample.
const offsetSmoothing = 8

// ServerClock estimates the authority clock from message timestamps.
// Replicated cooldown and cast timestamps are compared against it.
type ServerClock struct {
	mu     sync.RWMutex
	local  clock.Clock
	offset time.Duration
	synced bool
}

// NewServerClock returns an unsynced clock reading local time.
func NewServerClock(local clock.Clock) *ServerClock {
	if local == nil {
		local = clock.New()
	}
	return &ServerClock{local: local}
}

// Observe folds in a server timestamp. The first sample is taken as is.
func (c *ServerClock) Observe(server time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sample := server.Sub(c.local.Now())
	if !c.synced {
		c.offset = sample
		c.synced = true
		return
	}
	c.offset += (sample - c.offset) / offsetSmoothing
}

// Now returns the estimated server time.
func (c *ServerClock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local.Now().Add(c.offset)
}

func (c *ServerClock) Offset() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

func (c *ServerClock) Synced() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synced
}
