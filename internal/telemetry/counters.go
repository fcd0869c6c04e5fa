package telemetry

import (
	"sync"
)

// Counters is a concurrency-safe Metrics implementation backed by a
// plain map. Snapshot copies are cheap enough for a diagnostics endpoint.
type Counters struct {
	mu     sync.Mutex
	values map[string]uint64
}

// NewCounters builds an empty counter set.
func NewCounters() *Counters {
	return &Counters{values: make(map[string]uint64)}
}

// Add increments a counter by delta.
func (c *Counters) Add(key string, delta uint64) {
	c.mu.Lock()
	c.values[key] += delta
	c.mu.Unlock()
}

// Store overwrites a gauge-style value.
func (c *Counters) Store(key string, value uint64) {
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
}

// Snapshot returns a copy of every recorded value.
func (c *Counters) Snapshot() map[string]uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]uint64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}
