package replication

import "sync"

// Baselines tracks the newest tick each client has acknowledged. Acks are
// cumulative: acknowledging tick N implies every tick up to N, and a stale
// or duplicate ack never moves a baseline backward.
type Baselines struct {
	mu    sync.Mutex
	acked map[string]uint64
}

// NewBaselines returns an empty baseline table.
func NewBaselines() *Baselines {
	return &Baselines{acked: make(map[string]uint64)}
}

// Ack records an acknowledgement and reports whether it advanced the
// client's baseline.
func (b *Baselines) Ack(clientID string, tick uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.acked[clientID]
	if ok && tick <= current {
		return false
	}
	b.acked[clientID] = tick
	return true
}

// Baseline returns the client's acknowledged tick, if any.
func (b *Baselines) Baseline(clientID string) (uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tick, ok := b.acked[clientID]
	return tick, ok
}

// Drop forgets a client. The next update it receives will be a full
// snapshot.
func (b *Baselines) Drop(clientID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.acked, clientID)
}
